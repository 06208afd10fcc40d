// Package helpers holds shared test constructors for flows and views.
package helpers

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/jnovack/capture-view/pkg/filter"
	"github.com/jnovack/capture-view/pkg/flow"
	"github.com/jnovack/capture-view/pkg/view"
)

// MakeFlow builds a flow for method and url with a start time, failing the
// test on a bad URL.
func MakeFlow(t *testing.T, method, url string) *flow.Flow {
	t.Helper()
	f, err := flow.Make(method, url)
	require.NoError(t, err, "make flow %s %s", method, url)
	return f
}

// MakeSizedFlow builds a flow whose Size() is exactly n bytes, carried in
// the request payload.
func MakeSizedFlow(t *testing.T, url string, n int) *flow.Flow {
	t.Helper()
	f := MakeFlow(t, "GET", url)
	f.Request.Content = make([]byte, n)
	return f
}

// StartAt pins the flow's request start time and returns the flow, for
// deterministic time ordering in tests.
func StartAt(f *flow.Flow, ts time.Time) *flow.Flow {
	f.Request.Start = ts
	return f
}

// NewTestView builds a view wired to the real filter parser.
func NewTestView() *view.View {
	return view.New(nil, filter.Parse)
}

// ShownURLs returns the request URLs of the displayed flows in display
// order.
func ShownURLs(v *view.View) []string {
	var urls []string
	for _, f := range v.Shown() {
		urls = append(urls, f.Request.URL)
	}
	return urls
}

// ShownSizes returns the sizes of the displayed flows in display order.
func ShownSizes(v *view.View) []int64 {
	var sizes []int64
	for _, f := range v.Shown() {
		sizes = append(sizes, f.Size())
	}
	return sizes
}
