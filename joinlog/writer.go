// Package joinlog reads and writes the merged log container:
//
//	magic "VWFB" | version u32 | Header | Checkpoint | Regular* | EndOfFile
package joinlog

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"

	"github.com/pithecene-io/joinery/codec"
	"github.com/pithecene-io/joinery/framing"
	"github.com/pithecene-io/joinery/types"
)

// Magic is the four-byte file signature.
var Magic = [4]byte{'V', 'W', 'F', 'B'}

// PreludeSize is the size of magic plus version.
const PreludeSize = 8

// ErrWriterClosed is returned when writing after Close.
var ErrWriterClosed = errors.New("joinlog: writer closed")

// Writer writes a merged log. The EndOfFile frame is written by Close.
type Writer struct {
	w       io.Writer
	regular int
	closed  bool
}

// NewWriter writes the prelude, Header and Checkpoint frames.
func NewWriter(w io.Writer, header *types.FileHeader, checkpoint *types.CheckpointInfo) (*Writer, error) {
	var prelude [PreludeSize]byte
	copy(prelude[0:4], Magic[:])
	binary.BigEndian.PutUint32(prelude[4:8], types.LogFormatVersion)
	if _, err := w.Write(prelude[:]); err != nil {
		return nil, fmt.Errorf("failed to write prelude: %w", err)
	}

	hdr, err := codec.EncodeFileHeader(header)
	if err != nil {
		return nil, fmt.Errorf("failed to encode header: %w", err)
	}
	if err := framing.WriteFrame(w, framing.KindHeader, hdr); err != nil {
		return nil, fmt.Errorf("failed to write header: %w", err)
	}

	cp, err := codec.EncodeCheckpoint(checkpoint)
	if err != nil {
		return nil, fmt.Errorf("failed to encode checkpoint: %w", err)
	}
	if err := framing.WriteFrame(w, framing.KindCheckpoint, cp); err != nil {
		return nil, fmt.Errorf("failed to write checkpoint: %w", err)
	}

	return &Writer{w: w}, nil
}

// WriteJoined writes one Regular frame. Empty payloads are rejected since
// readers treat them as corruption.
func (lw *Writer) WriteJoined(jp *types.JoinedPayload) error {
	if len(jp.Events) == 0 {
		return errors.New("joinlog: refusing to write empty joined payload")
	}
	body, err := codec.EncodeJoinedPayload(jp)
	if err != nil {
		return fmt.Errorf("failed to encode joined payload: %w", err)
	}
	if err := lw.WriteFrame(framing.KindRegular, body); err != nil {
		return err
	}
	lw.regular++
	return nil
}

// WriteFrame writes a raw frame with no validation. It exists for tools
// that need to produce deliberately malformed logs.
func (lw *Writer) WriteFrame(kind framing.Kind, payload []byte) error {
	if lw.closed {
		return ErrWriterClosed
	}
	return framing.WriteFrame(lw.w, kind, payload)
}

// Regular returns the number of Regular frames written by WriteJoined.
func (lw *Writer) Regular() int {
	return lw.regular
}

// Close writes the EndOfFile frame. It does not close the underlying writer.
// Subsequent calls are no-ops.
func (lw *Writer) Close() error {
	if lw.closed {
		return nil
	}
	if err := framing.WriteFrame(lw.w, framing.KindEndOfFile, nil); err != nil {
		return fmt.Errorf("failed to write end of file: %w", err)
	}
	lw.closed = true
	return nil
}
