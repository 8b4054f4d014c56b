// Package framing implements the merged-log frame codec and the preamble
// that prefixes raw event artifacts.
//
// A frame is {kind u32, length u32, payload, padding}, all integers
// big-endian, with zero padding bringing the payload region to an 8-byte
// boundary.
package framing

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
)

// Frame size constants.
const (
	// HeaderSize is the size of the kind + length prefix in bytes.
	HeaderSize = 8
	// Alignment is the boundary payloads are padded to.
	Alignment = 8
	// MaxPayloadSize is the largest payload accepted on read (256 MiB).
	MaxPayloadSize = 256 * 1024 * 1024
)

// Kind is the frame kind discriminant.
type Kind uint32

// Reserved frame kinds.
const (
	KindHeader     Kind = 0x55555555
	KindCheckpoint Kind = 0x11111111
	KindRegular    Kind = 0xFFFFFFFF
	KindEndOfFile  Kind = 0xAAAAAAAA
)

func (k Kind) String() string {
	switch k {
	case KindHeader:
		return "header"
	case KindCheckpoint:
		return "checkpoint"
	case KindRegular:
		return "regular"
	case KindEndOfFile:
		return "eof"
	default:
		return fmt.Sprintf("kind(0x%08X)", uint32(k))
	}
}

// Known returns true for the four reserved kinds.
func (k Kind) Known() bool {
	switch k {
	case KindHeader, KindCheckpoint, KindRegular, KindEndOfFile:
		return true
	}
	return false
}

// Frame is one decoded frame. Padding is stripped.
type Frame struct {
	Kind    Kind
	Payload []byte
}

// PaddingLen returns the number of zero bytes that follow a payload of n bytes.
func PaddingLen(n int) int {
	return (Alignment - n%Alignment) % Alignment
}

// FrameErrorKind classifies frame errors.
type FrameErrorKind int

const (
	// FrameErrorPartial indicates a truncated header, payload or padding.
	FrameErrorPartial FrameErrorKind = iota
	// FrameErrorTooLarge indicates a payload exceeding MaxPayloadSize.
	FrameErrorTooLarge
	// FrameErrorPadding indicates non-zero padding bytes.
	FrameErrorPadding
	// FrameErrorPreamble indicates a malformed artifact preamble.
	FrameErrorPreamble
)

// FrameError is a format error in the framed stream.
type FrameError struct {
	Kind FrameErrorKind
	// Offset is the stream offset of the frame that failed.
	Offset int64
	Msg    string
	Err    error
}

func (e *FrameError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("frame at offset %d: %s: %v", e.Offset, e.Msg, e.Err)
	}
	return fmt.Sprintf("frame at offset %d: %s", e.Offset, e.Msg)
}

func (e *FrameError) Unwrap() error {
	return e.Err
}

// IsFrameError returns true if err is or wraps a *FrameError.
func IsFrameError(err error) bool {
	var frameErr *FrameError
	return errors.As(err, &frameErr)
}

// EncodeFrame returns the encoded frame, padding included.
func EncodeFrame(kind Kind, payload []byte) []byte {
	pad := PaddingLen(len(payload))
	buf := make([]byte, HeaderSize+len(payload)+pad)
	binary.BigEndian.PutUint32(buf[0:4], uint32(kind))
	binary.BigEndian.PutUint32(buf[4:8], uint32(len(payload)))
	copy(buf[HeaderSize:], payload)
	return buf
}

// WriteFrame writes one frame to w.
func WriteFrame(w io.Writer, kind Kind, payload []byte) error {
	if uint64(len(payload)) > MaxPayloadSize {
		return &FrameError{
			Kind: FrameErrorTooLarge,
			Msg:  fmt.Sprintf("payload size %d exceeds maximum %d", len(payload), MaxPayloadSize),
		}
	}
	_, err := w.Write(EncodeFrame(kind, payload))
	return err
}

// Decoder reads frames from a stream.
type Decoder struct {
	reader io.Reader
	offset int64
}

// NewDecoder creates a new frame decoder. offset is the stream position of
// r, used only for error reporting.
func NewDecoder(r io.Reader, offset int64) *Decoder {
	return &Decoder{reader: r, offset: offset}
}

// Offset returns the stream position of the next frame.
func (d *Decoder) Offset() int64 {
	return d.offset
}

// ReadFrame reads a single frame.
//
// Errors:
//   - io.EOF: stream ended cleanly between frames
//   - *FrameError with Kind=FrameErrorPartial: truncated frame
//   - *FrameError with Kind=FrameErrorTooLarge: payload exceeds limit
//   - *FrameError with Kind=FrameErrorPadding: padding bytes not zero
func (d *Decoder) ReadFrame() (Frame, error) {
	start := d.offset

	var header [HeaderSize]byte
	n, err := io.ReadFull(d.reader, header[:])
	d.offset += int64(n)
	if err != nil {
		if err == io.EOF {
			return Frame{}, io.EOF
		}
		return Frame{}, &FrameError{
			Kind:   FrameErrorPartial,
			Offset: start,
			Msg:    "failed to read frame header",
			Err:    err,
		}
	}

	kind := Kind(binary.BigEndian.Uint32(header[0:4]))
	size := binary.BigEndian.Uint32(header[4:8])
	if size > MaxPayloadSize {
		return Frame{}, &FrameError{
			Kind:   FrameErrorTooLarge,
			Offset: start,
			Msg:    fmt.Sprintf("payload size %d exceeds maximum %d", size, MaxPayloadSize),
		}
	}

	pad := PaddingLen(int(size))
	body := make([]byte, int(size)+pad)
	n, err = io.ReadFull(d.reader, body)
	d.offset += int64(n)
	if err != nil {
		return Frame{}, &FrameError{
			Kind:   FrameErrorPartial,
			Offset: start,
			Msg:    fmt.Sprintf("failed to read %s payload of %d bytes", kind, size),
			Err:    err,
		}
	}
	for _, b := range body[size:] {
		if b != 0 {
			return Frame{}, &FrameError{
				Kind:   FrameErrorPadding,
				Offset: start,
				Msg:    "non-zero padding",
			}
		}
	}

	return Frame{Kind: kind, Payload: body[:size:size]}, nil
}
