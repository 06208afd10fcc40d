// Package flowio streams flow dumps: a flow dump is a stream of JSON
// objects, one per flow, concatenated (optionally newline-separated). The
// reader tolerates both forms.
package flowio

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/jnovack/capture-view/pkg/flow"
)

// Reader streams flows from a dump.
type Reader struct {
	dec *json.Decoder
}

// NewReader wraps r for streaming.
func NewReader(r io.Reader) *Reader {
	return &Reader{dec: json.NewDecoder(r)}
}

// Next returns the next flow in the dump, or io.EOF when exhausted.
func (r *Reader) Next() (*flow.Flow, error) {
	var f flow.Flow
	if err := r.dec.Decode(&f); err != nil {
		if err == io.EOF {
			return nil, io.EOF
		}
		return nil, fmt.Errorf("decode flow: %w", err)
	}
	return &f, nil
}

// Writer appends flows to a dump.
type Writer struct {
	enc *json.Encoder
}

// NewWriter wraps w for appending.
func NewWriter(w io.Writer) *Writer {
	return &Writer{enc: json.NewEncoder(w)}
}

// Write appends one flow.
func (w *Writer) Write(f *flow.Flow) error {
	if err := w.enc.Encode(f); err != nil {
		return fmt.Errorf("encode flow %s: %w", f.ID, err)
	}
	return nil
}

// WriteAll appends flows in order, stopping at the first error.
func (w *Writer) WriteAll(flows []*flow.Flow) error {
	for _, f := range flows {
		if err := w.Write(f); err != nil {
			return err
		}
	}
	return nil
}
