// pkg/admin/admin_test.go
package admin

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/jnovack/capture-view/internal/helpers"
	"github.com/jnovack/capture-view/pkg/flow"
)

func TestHandleFlows(t *testing.T) {
	v := helpers.NewTestView()
	a := helpers.MakeFlow(t, "GET", "http://example.com/a")
	a.Marked = true
	b := helpers.MakeFlow(t, "POST", "http://example.com/b")
	b.Response = &flow.Response{Status: 200, Content: []byte("body")}
	v.Add([]*flow.Flow{a, b})

	mux := NewMux(v, NewViewMetrics(), map[string]any{"test": true})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)

	var listed []map[string]any
	getJSON(t, srv.URL+"/flows", &listed)
	require.Len(t, listed, 2)
	require.Equal(t, a.ID, listed[0]["id"])

	getJSON(t, srv.URL+"/flows?spec=@marked", &listed)
	require.Len(t, listed, 1)
	require.Equal(t, a.ID, listed[0]["id"])

	getJSON(t, srv.URL+"/flows?spec=~c+200", &listed)
	require.Len(t, listed, 1)
	require.Equal(t, b.ID, listed[0]["id"])

	resp, err := http.Get(srv.URL + "/flows?spec=~bogus+x")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestHandleFocus(t *testing.T) {
	v := helpers.NewTestView()
	mux := NewMux(v, NewViewMetrics(), nil)
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)

	resp, err := http.Get(srv.URL + "/focus")
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, http.StatusNotFound, resp.StatusCode, "empty view has no focus")

	f := helpers.MakeFlow(t, "GET", "http://example.com/a")
	v.Add([]*flow.Flow{f})

	var got struct {
		Index int `json:"index"`
		Flow  struct {
			ID string `json:"id"`
		} `json:"flow"`
	}
	getJSON(t, srv.URL+"/focus", &got)
	require.Equal(t, 0, got.Index)
	require.Equal(t, f.ID, got.Flow.ID)
}

func TestMetricsExposition(t *testing.T) {
	v := helpers.NewTestView()
	m := NewViewMetrics()
	m.Attach(v.Bus())

	flows := []*flow.Flow{
		helpers.MakeFlow(t, "GET", "http://example.com/a"),
		helpers.MakeFlow(t, "GET", "http://example.com/b"),
	}
	v.Add(flows)
	v.Update(flows[:1])
	v.Remove(flows[1:])

	srv := httptest.NewServer(NewMux(v, m, nil))
	t.Cleanup(srv.Close)

	resp, err := http.Get(srv.URL + "/metrics")
	require.NoError(t, err)
	defer resp.Body.Close()
	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	body := string(raw)

	require.Contains(t, body, "view_flows_added_total 2")
	require.Contains(t, body, "view_flows_updated_total 1")
	require.Contains(t, body, "view_flows_removed_total 1")
	require.Contains(t, body, "store_flows_removed_total 1")
	require.Contains(t, body, "view_flows 1")
	require.Contains(t, body, "store_flows 1")
}

func TestHealthAndVarz(t *testing.T) {
	v := helpers.NewTestView()
	srv := httptest.NewServer(NewMux(v, NewViewMetrics(), map[string]any{"order": "time"}))
	t.Cleanup(srv.Close)

	resp, err := http.Get(srv.URL + "/healthz")
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var cfg map[string]any
	getJSON(t, srv.URL+"/varz", &cfg)
	require.Equal(t, "time", cfg["order"])
}

func getJSON(t *testing.T, url string, into any) {
	t.Helper()
	resp, err := http.Get(url)
	require.NoError(t, err, "GET %s", url)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode, "GET %s", url)
	require.NoError(t, json.NewDecoder(resp.Body).Decode(into))
}
