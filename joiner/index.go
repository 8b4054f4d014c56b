package joiner

import (
	"fmt"
	"io"

	"github.com/pithecene-io/joinery/codec"
)

// Index groups raw observation events by metadata id. Each group keeps the
// order in which its observations were first seen.
type Index struct {
	byID  map[string][][]byte
	order []string
	total int
}

// NewIndex returns an empty index.
func NewIndex() *Index {
	return &Index{byID: make(map[string][][]byte)}
}

// Add appends one raw observation event.
func (x *Index) Add(raw []byte) error {
	meta, err := codec.PeekMetadata(raw)
	if err != nil {
		return err
	}
	if _, ok := x.byID[meta.ID]; !ok {
		x.order = append(x.order, meta.ID)
	}
	x.byID[meta.ID] = append(x.byID[meta.ID], raw)
	x.total++
	return nil
}

// Lookup returns the observations for id in first-seen order.
func (x *Index) Lookup(id string) [][]byte {
	return x.byID[id]
}

// IDs returns the indexed ids in first-seen order.
func (x *Index) IDs() []string {
	return x.order
}

// Len returns the number of distinct ids.
func (x *Index) Len() int {
	return len(x.order)
}

// Total returns the number of indexed observations.
func (x *Index) Total() int {
	return x.total
}

// BuildIndex scans every batch of an observation artifact.
func BuildIndex(r io.Reader) (*Index, error) {
	x := NewIndex()
	br := NewBatchReader(r)
	for batchNum := 0; ; batchNum++ {
		batch, err := br.Next()
		if err == io.EOF {
			return x, nil
		}
		if err != nil {
			return nil, fmt.Errorf("observation batch %d: %w", batchNum, err)
		}
		for i, raw := range batch.Events {
			if err := x.Add(raw); err != nil {
				return nil, fmt.Errorf("observation batch %d event %d: %w", batchNum, i, err)
			}
		}
	}
}
