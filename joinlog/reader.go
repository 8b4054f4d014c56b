package joinlog

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"

	"github.com/pithecene-io/joinery/codec"
	"github.com/pithecene-io/joinery/framing"
	"github.com/pithecene-io/joinery/types"
)

// Reader reads a merged log. Open validates the prelude, Header and
// Checkpoint; Next yields the Regular payloads.
type Reader struct {
	dec        *framing.Decoder
	header     *types.FileHeader
	checkpoint *types.CheckpointInfo
	regular    int
	last       int64
	done       bool
}

// Open validates the container prelude and reads the Header and Checkpoint
// frames. Every structural violation is a *FormatError.
func Open(r io.Reader) (*Reader, error) {
	var prelude [PreludeSize]byte
	n, err := io.ReadFull(r, prelude[:])
	if n < len(Magic) || !bytes.Equal(prelude[0:4], Magic[:]) {
		return nil, &FormatError{Kind: FormatErrorMagic, Msg: fmt.Sprintf("got %q", prelude[:min(n, len(Magic))])}
	}
	if err != nil {
		return nil, &FormatError{Kind: FormatErrorVersion, Msg: "truncated version", Err: err}
	}
	if version := binary.BigEndian.Uint32(prelude[4:8]); version != types.LogFormatVersion {
		return nil, &FormatError{
			Kind:   FormatErrorVersion,
			Offset: 4,
			Msg:    fmt.Sprintf("version %d, want %d", version, types.LogFormatVersion),
		}
	}

	lr := &Reader{dec: framing.NewDecoder(r, PreludeSize)}

	body, err := lr.expect(framing.KindHeader)
	if err != nil {
		return nil, err
	}
	if lr.header, err = codec.DecodeFileHeader(body); err != nil {
		return nil, &FormatError{Kind: FormatErrorFrame, Offset: PreludeSize, Err: err}
	}

	offset := lr.dec.Offset()
	if body, err = lr.expect(framing.KindCheckpoint); err != nil {
		return nil, err
	}
	if lr.checkpoint, err = codec.DecodeCheckpoint(body); err != nil {
		return nil, &FormatError{Kind: FormatErrorFrame, Offset: offset, Err: err}
	}
	return lr, nil
}

func (lr *Reader) expect(kind framing.Kind) ([]byte, error) {
	offset := lr.dec.Offset()
	frame, err := lr.dec.ReadFrame()
	if err == io.EOF {
		return nil, &FormatError{Kind: FormatErrorSequence, Offset: offset, Msg: fmt.Sprintf("missing %s frame", kind)}
	}
	if err != nil {
		return nil, &FormatError{Kind: FormatErrorFrame, Offset: offset, Err: err}
	}
	if frame.Kind != kind {
		return nil, &FormatError{
			Kind:   FormatErrorSequence,
			Offset: offset,
			Msg:    fmt.Sprintf("expected %s frame, got %s", kind, frame.Kind),
		}
	}
	return frame.Payload, nil
}

// Header returns the file header.
func (lr *Reader) Header() *types.FileHeader {
	return lr.header
}

// Checkpoint returns the reward policy the log was joined under.
func (lr *Reader) Checkpoint() *types.CheckpointInfo {
	return lr.checkpoint
}

// Regular returns the number of Regular frames read so far.
func (lr *Reader) Regular() int {
	return lr.regular
}

// Offset returns the file offset of the last Regular frame returned by Next.
func (lr *Reader) Offset() int64 {
	return lr.last
}

// Next returns the next joined payload.
//
// Errors:
//   - io.EOF: the EndOfFile frame was read
//   - *FormatError: truncated or malformed frame, unknown kind, a second
//     Header or Checkpoint, an empty payload, or a stream that ends without
//     an EndOfFile frame
func (lr *Reader) Next() (*types.JoinedPayload, error) {
	if lr.done {
		return nil, io.EOF
	}

	offset := lr.dec.Offset()
	frame, err := lr.dec.ReadFrame()
	if err == io.EOF {
		return nil, &FormatError{Kind: FormatErrorMissingEOF, Offset: offset}
	}
	if err != nil {
		return nil, &FormatError{Kind: FormatErrorFrame, Offset: offset, Err: err}
	}

	switch frame.Kind {
	case framing.KindEndOfFile:
		if len(frame.Payload) != 0 {
			return nil, &FormatError{Kind: FormatErrorFrame, Offset: offset, Msg: "end of file frame carries a payload"}
		}
		lr.done = true
		return nil, io.EOF
	case framing.KindRegular:
		jp, err := codec.DecodeJoinedPayload(frame.Payload)
		if err != nil {
			return nil, &FormatError{Kind: FormatErrorFrame, Offset: offset, Err: err}
		}
		if len(jp.Events) == 0 {
			return nil, &FormatError{Kind: FormatErrorEmptyPayload, Offset: offset}
		}
		lr.regular++
		lr.last = offset
		return jp, nil
	case framing.KindHeader, framing.KindCheckpoint:
		return nil, &FormatError{Kind: FormatErrorSequence, Offset: offset, Msg: fmt.Sprintf("unexpected %s frame", frame.Kind)}
	default:
		return nil, &FormatError{Kind: FormatErrorUnknownKind, Offset: offset, Msg: frame.Kind.String()}
	}
}
