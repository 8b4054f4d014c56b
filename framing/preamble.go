package framing

import (
	"encoding/binary"
	"fmt"
	"io"
)

// PreambleSize is the size of an artifact message preamble in bytes.
const PreambleSize = 8

// PreambleVersion is the only preamble version accepted.
const PreambleVersion uint8 = 1

// MsgType identifies the body that follows a preamble.
type MsgType uint16

// Message types. Only event collections carry joinable events.
const (
	MsgTypeRankingCollection                 MsgType = 1
	MsgTypeOutcomeCollection                 MsgType = 2
	MsgTypeJSONRanking                       MsgType = 3
	MsgTypeJSONOutcome                       MsgType = 4
	MsgTypeOutcomeEvent                      MsgType = 5
	MsgTypeInteractionEvent                  MsgType = 6
	MsgTypeDecisionEvent                     MsgType = 7
	MsgTypeDecisionCollection                MsgType = 8
	MsgTypeRankingLearningModeCollection     MsgType = 9
	MsgTypeInteractionLearningModeCollection MsgType = 10
	MsgTypeGenericCollection                 MsgType = 11
)

// IsEventCollection returns true for message types whose body is an EventBatch.
func (m MsgType) IsEventCollection() bool {
	switch m {
	case MsgTypeOutcomeCollection, MsgTypeRankingLearningModeCollection, MsgTypeGenericCollection:
		return true
	}
	return false
}

// Preamble prefixes every raw artifact message.
type Preamble struct {
	Reserved uint8
	Version  uint8
	MsgType  MsgType
	MsgSize  uint32
}

// Encode returns the 8-byte wire form.
func (p Preamble) Encode() [PreambleSize]byte {
	var buf [PreambleSize]byte
	buf[0] = p.Reserved
	buf[1] = p.Version
	binary.BigEndian.PutUint16(buf[2:4], uint16(p.MsgType))
	binary.BigEndian.PutUint32(buf[4:8], p.MsgSize)
	return buf
}

// DecodePreamble parses the 8-byte wire form.
func DecodePreamble(buf [PreambleSize]byte) Preamble {
	return Preamble{
		Reserved: buf[0],
		Version:  buf[1],
		MsgType:  MsgType(binary.BigEndian.Uint16(buf[2:4])),
		MsgSize:  binary.BigEndian.Uint32(buf[4:8]),
	}
}

// WriteMessage writes a preamble followed by body.
func WriteMessage(w io.Writer, msgType MsgType, body []byte) error {
	if uint64(len(body)) > MaxPayloadSize {
		return &FrameError{
			Kind: FrameErrorTooLarge,
			Msg:  fmt.Sprintf("message size %d exceeds maximum %d", len(body), MaxPayloadSize),
		}
	}
	pre := Preamble{Version: PreambleVersion, MsgType: msgType, MsgSize: uint32(len(body))}.Encode()
	if _, err := w.Write(pre[:]); err != nil {
		return err
	}
	_, err := w.Write(body)
	return err
}

// MessageReader reads preamble-prefixed messages from a raw artifact.
type MessageReader struct {
	reader io.Reader
	offset int64
}

// NewMessageReader creates a reader over a raw artifact stream.
func NewMessageReader(r io.Reader) *MessageReader {
	return &MessageReader{reader: r}
}

// Next reads the next message. It returns io.EOF at a clean end of stream.
func (m *MessageReader) Next() (Preamble, []byte, error) {
	start := m.offset

	var buf [PreambleSize]byte
	n, err := io.ReadFull(m.reader, buf[:])
	m.offset += int64(n)
	if err != nil {
		if err == io.EOF {
			return Preamble{}, nil, io.EOF
		}
		return Preamble{}, nil, &FrameError{Kind: FrameErrorPartial, Offset: start, Msg: "failed to read preamble", Err: err}
	}

	pre := DecodePreamble(buf)
	if pre.Version != PreambleVersion {
		return Preamble{}, nil, &FrameError{
			Kind:   FrameErrorPreamble,
			Offset: start,
			Msg:    fmt.Sprintf("unsupported preamble version %d", pre.Version),
		}
	}
	if pre.MsgSize > MaxPayloadSize {
		return Preamble{}, nil, &FrameError{
			Kind:   FrameErrorTooLarge,
			Offset: start,
			Msg:    fmt.Sprintf("message size %d exceeds maximum %d", pre.MsgSize, MaxPayloadSize),
		}
	}

	body := make([]byte, pre.MsgSize)
	n, err = io.ReadFull(m.reader, body)
	m.offset += int64(n)
	if err != nil {
		return Preamble{}, nil, &FrameError{Kind: FrameErrorPartial, Offset: start, Msg: "failed to read message body", Err: err}
	}
	return pre, body, nil
}
