// pkg/flowio/flowio_test.go
package flowio

import (
	"bytes"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/jnovack/capture-view/pkg/flow"
)

func TestRoundTrip(t *testing.T) {
	a, err := flow.Make("GET", "http://example.com/a")
	if err != nil {
		t.Fatalf("make: %v", err)
	}
	a.Request.Content = []byte("hello")
	b, err := flow.Make("POST", "http://example.com/b")
	if err != nil {
		t.Fatalf("make: %v", err)
	}
	b.Response = &flow.Response{Status: 201}

	var buf bytes.Buffer
	if err := NewWriter(&buf).WriteAll([]*flow.Flow{a, b}); err != nil {
		t.Fatalf("write: %v", err)
	}

	r := NewReader(&buf)
	got1, err := r.Next()
	if err != nil {
		t.Fatalf("next: %v", err)
	}
	if got1.ID != a.ID || got1.Request.URL != a.Request.URL || string(got1.Request.Content) != "hello" {
		t.Fatalf("first flow mismatch: %+v", got1)
	}
	got2, err := r.Next()
	if err != nil {
		t.Fatalf("next: %v", err)
	}
	if got2.Response == nil || got2.Response.Status != 201 {
		t.Fatalf("second flow mismatch: %+v", got2)
	}
	if _, err := r.Next(); !errors.Is(err, io.EOF) {
		t.Fatalf("expected EOF, got %v", err)
	}
}

func TestReaderGarbage(t *testing.T) {
	r := NewReader(strings.NewReader("this is not json"))
	if _, err := r.Next(); err == nil || errors.Is(err, io.EOF) {
		t.Fatalf("expected a decode error, got %v", err)
	}
}

func TestReaderEmpty(t *testing.T) {
	r := NewReader(strings.NewReader(""))
	if _, err := r.Next(); !errors.Is(err, io.EOF) {
		t.Fatalf("expected EOF on empty input, got %v", err)
	}
}
