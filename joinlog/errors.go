package joinlog

import (
	"errors"
	"fmt"
)

// FormatErrorKind classifies merged-log format errors.
type FormatErrorKind int

const (
	// FormatErrorMagic indicates the file does not start with the log magic.
	FormatErrorMagic FormatErrorKind = iota
	// FormatErrorVersion indicates an unsupported container version.
	FormatErrorVersion
	// FormatErrorSequence indicates a frame out of the required order,
	// including a missing Header or Checkpoint.
	FormatErrorSequence
	// FormatErrorUnknownKind indicates a frame kind outside the reserved set.
	FormatErrorUnknownKind
	// FormatErrorMissingEOF indicates the stream ended without an EndOfFile frame.
	FormatErrorMissingEOF
	// FormatErrorEmptyPayload indicates a Regular frame with no events.
	FormatErrorEmptyPayload
	// FormatErrorFrame indicates a framing or record decoding failure.
	FormatErrorFrame
	// FormatErrorEvent indicates an event inside a Regular frame that does
	// not decode.
	FormatErrorEvent
)

var formatErrorKindNames = map[FormatErrorKind]string{
	FormatErrorMagic:        "bad magic",
	FormatErrorVersion:      "unsupported version",
	FormatErrorSequence:     "frame out of sequence",
	FormatErrorUnknownKind:  "unknown frame kind",
	FormatErrorMissingEOF:   "missing end of file",
	FormatErrorEmptyPayload: "empty joined payload",
	FormatErrorFrame:        "malformed frame",
	FormatErrorEvent:        "malformed event",
}

func (k FormatErrorKind) String() string {
	if name, ok := formatErrorKindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("format_error(%d)", int(k))
}

// FormatError is a structural violation of the merged-log container.
type FormatError struct {
	Kind   FormatErrorKind
	Offset int64
	Msg    string
	Err    error
}

func (e *FormatError) Error() string {
	msg := fmt.Sprintf("merged log %s at offset %d", e.Kind, e.Offset)
	if e.Msg != "" {
		msg += ": " + e.Msg
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *FormatError) Unwrap() error {
	return e.Err
}

// IsFormatError returns true if err is or wraps a *FormatError.
func IsFormatError(err error) bool {
	var target *FormatError
	return errors.As(err, &target)
}
