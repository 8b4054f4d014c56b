package cmd

import (
	"errors"

	"github.com/urfave/cli/v2"

	"github.com/pithecene-io/joinery/adapter"
	"github.com/pithecene-io/joinery/codec"
	"github.com/pithecene-io/joinery/framing"
	"github.com/pithecene-io/joinery/joiner"
	"github.com/pithecene-io/joinery/joinlog"
	"github.com/pithecene-io/joinery/lode"
)

// Exit codes shared by join and parse.
const (
	exitSuccess      = 0
	exitUsage        = 1
	exitFormatError  = 2
	exitStorageError = 3
)

// notifyError marks a failed completion notification.
type notifyError struct {
	err error
}

func (e *notifyError) Error() string { return "notification failed: " + e.err.Error() }

func (e *notifyError) Unwrap() error { return e.err }

// exitCodeFor classifies err:
//   - malformed artifacts, logs and events: exitFormatError
//   - storage and notification failures: exitStorageError
//   - everything else (flags, config, local files): exitUsage
func exitCodeFor(err error) int {
	var unsupported *joiner.UnsupportedMessageError
	var permanent *adapter.PermanentError
	var notify *notifyError
	switch {
	case err == nil:
		return exitSuccess
	case joinlog.IsFormatError(err),
		framing.IsFrameError(err),
		codec.IsDecodeError(err),
		codec.IsUnknownPayloadTypeError(err),
		errors.As(err, &unsupported):
		return exitFormatError
	case lode.IsStorageError(err),
		errors.As(err, &permanent),
		errors.As(err, &notify):
		return exitStorageError
	default:
		return exitUsage
	}
}

// exitError wraps err with its exit code. A nil err stays nil.
func exitError(err error) error {
	if err == nil {
		return nil
	}
	return cli.Exit(err.Error(), exitCodeFor(err))
}
