package joiner

import (
	"fmt"
	"io"

	"github.com/pithecene-io/joinery/codec"
	"github.com/pithecene-io/joinery/framing"
	"github.com/pithecene-io/joinery/types"
)

// UnsupportedMessageError is returned when a raw artifact carries a message
// that is not an event collection.
type UnsupportedMessageError struct {
	MsgType framing.MsgType
}

func (e *UnsupportedMessageError) Error() string {
	return fmt.Sprintf("unsupported artifact message type %d", uint16(e.MsgType))
}

// BatchReader yields EventBatches from a raw artifact stream.
type BatchReader struct {
	msgs *framing.MessageReader
}

// NewBatchReader creates a reader over a preamble-framed artifact.
func NewBatchReader(r io.Reader) *BatchReader {
	return &BatchReader{msgs: framing.NewMessageReader(r)}
}

// Next returns the next batch, or io.EOF at a clean end of stream.
func (b *BatchReader) Next() (*types.EventBatch, error) {
	pre, body, err := b.msgs.Next()
	if err != nil {
		return nil, err
	}
	if !pre.MsgType.IsEventCollection() {
		return nil, &UnsupportedMessageError{MsgType: pre.MsgType}
	}
	return codec.DecodeEventBatch(body)
}

// WriteBatch writes one event collection message to w.
func WriteBatch(w io.Writer, msgType framing.MsgType, batch *types.EventBatch) error {
	body, err := codec.EncodeEventBatch(batch)
	if err != nil {
		return fmt.Errorf("failed to encode batch: %w", err)
	}
	return framing.WriteMessage(w, msgType, body)
}
