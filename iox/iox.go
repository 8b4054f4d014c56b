// Package iox provides I/O helpers for resource cleanup and for output
// files that must never be observed half-written.
package iox

import (
	"errors"
	"io"
	"os"
	"path/filepath"
)

// DiscardClose closes c and discards the error.
// Use in defer statements where close errors are unactionable:
//
//	defer iox.DiscardClose(f)
func DiscardClose(c io.Closer) { _ = c.Close() }

// CloseFunc returns a cleanup function that closes c, for t.Cleanup:
//
//	t.Cleanup(iox.CloseFunc(client))
func CloseFunc(c io.Closer) func() {
	return func() { _ = c.Close() }
}

// NoClose hides any Close method on w, so a sink that closes what it wraps
// leaves w (typically stdout) open.
func NoClose(w io.Writer) io.Writer {
	return struct{ io.Writer }{w}
}

// PendingFile is a temporary file that replaces its target on Commit.
// Readers of the target see either the old content or the complete new
// content.
type PendingFile struct {
	*os.File
	target string
	done   bool
}

// CreatePending creates a hidden temporary file next to target.
func CreatePending(target string) (*PendingFile, error) {
	f, err := os.CreateTemp(filepath.Dir(target), "."+filepath.Base(target)+".*")
	if err != nil {
		return nil, err
	}
	return &PendingFile{File: f, target: target}, nil
}

// Commit closes the file and renames it over the target.
func (p *PendingFile) Commit() error {
	if p.done {
		return errors.New("iox: pending file already finished")
	}
	p.done = true
	if err := p.File.Close(); err != nil {
		_ = os.Remove(p.Name())
		return err
	}
	if err := os.Rename(p.Name(), p.target); err != nil {
		_ = os.Remove(p.Name())
		return err
	}
	return nil
}

// Abort closes and removes the temporary file. It is a no-op after Commit,
// so it is safe to defer.
func (p *PendingFile) Abort() {
	if p.done {
		return
	}
	p.done = true
	_ = p.File.Close()
	_ = os.Remove(p.Name())
}
