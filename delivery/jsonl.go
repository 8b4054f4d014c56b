package delivery

import (
	"bufio"
	"context"
	"fmt"
	"io"

	"github.com/goccy/go-json"

	"github.com/pithecene-io/joinery/types"
)

// JSONLSink writes examples as JSON lines.
type JSONLSink struct {
	w   *bufio.Writer
	enc *json.Encoder
	c   io.Closer
}

// NewJSONLSink writes to w. If w is an io.Closer, Close closes it.
func NewJSONLSink(w io.Writer) *JSONLSink {
	bw := bufio.NewWriter(w)
	s := &JSONLSink{w: bw, enc: json.NewEncoder(bw)}
	if c, ok := w.(io.Closer); ok {
		s.c = c
	}
	return s
}

// WriteExamples encodes each example on its own line and flushes.
func (s *JSONLSink) WriteExamples(_ context.Context, examples []*types.Example) error {
	for _, ex := range examples {
		if err := s.enc.Encode(ex); err != nil {
			return fmt.Errorf("failed to encode example %s: %w", ex.DecisionID, err)
		}
	}
	return s.w.Flush()
}

// Close flushes and closes the underlying writer when it is closable.
func (s *JSONLSink) Close() error {
	if err := s.w.Flush(); err != nil {
		return err
	}
	if s.c != nil {
		return s.c.Close()
	}
	return nil
}
