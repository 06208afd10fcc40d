// Package admin implements small HTTP admin endpoints over a view: flow
// listings, the focus cursor, counters and health. The handlers are
// read-only; per the view's single-writer model they must only run while
// the owning goroutine is not mutating (the shipped binary loads flows
// first, then serves).
package admin

import (
	"encoding/json"
	"fmt"
	"net/http"
	"sync"

	"github.com/jnovack/capture-view/pkg/flow"
	"github.com/jnovack/capture-view/pkg/view"
)

// ViewMetrics is a minimal metrics container fed by the view's signal bus
// and consumed by the /metrics handler.
type ViewMetrics struct {
	sync.Mutex

	Added         uint64 `json:"flows_added"`
	Removed       uint64 `json:"flows_removed"`
	Updated       uint64 `json:"flows_updated"`
	ViewRefreshes uint64 `json:"view_refreshes"`
	StoreRemoved  uint64 `json:"store_removed"`
	FocusMoves    uint64 `json:"focus_moves"`
}

// NewViewMetrics constructs an empty ViewMetrics.
func NewViewMetrics() *ViewMetrics { return &ViewMetrics{} }

// Attach subscribes the counters to a bus.
func (m *ViewMetrics) Attach(bus *view.Bus) {
	bus.ViewAdd.Connect(func(*flow.Flow) { m.Lock(); m.Added++; m.Unlock() })
	bus.ViewRemove.Connect(func(*flow.Flow) { m.Lock(); m.Removed++; m.Unlock() })
	bus.ViewUpdate.Connect(func(*flow.Flow) { m.Lock(); m.Updated++; m.Unlock() })
	bus.ViewRefresh.Connect(func() { m.Lock(); m.ViewRefreshes++; m.Unlock() })
	bus.StoreRemove.Connect(func(*flow.Flow) { m.Lock(); m.StoreRemoved++; m.Unlock() })
	bus.FocusChange.Connect(func(*flow.Flow) { m.Lock(); m.FocusMoves++; m.Unlock() })
}

// flowSummary is the wire form of one flow in listings.
type flowSummary struct {
	ID     string `json:"id"`
	Method string `json:"method,omitempty"`
	URL    string `json:"url,omitempty"`
	Status int    `json:"status,omitempty"`
	Size   int64  `json:"size_bytes"`
	Marked bool   `json:"marked,omitempty"`
	TLS    bool   `json:"is_tls,omitempty"`
}

func summarize(f *flow.Flow) flowSummary {
	s := flowSummary{ID: f.ID, Size: f.Size(), Marked: f.Marked, TLS: f.TLS}
	if f.Request != nil {
		s.Method = f.Request.Method
		s.URL = f.Request.URL
	}
	if f.Response != nil {
		s.Status = f.Response.Status
	}
	return s
}

// Admin handlers

// HandleHealth is a simple healthz handler.
func HandleHealth(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
}

// HandleVarz writes config (provided) as JSON.
func HandleVarz(w http.ResponseWriter, cfg interface{}) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(cfg)
}

// HandleFlows lists flows as JSON. Without a query it returns the
// displayed flows in display order; ?spec= resolves a selector or filter
// expression over the store instead.
func HandleFlows(w http.ResponseWriter, r *http.Request, v *view.View) {
	var flows []*flow.Flow
	if spec := r.URL.Query().Get("spec"); spec != "" {
		resolved, err := v.Resolve(spec)
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		flows = resolved
	} else {
		flows = v.Shown()
	}
	out := make([]flowSummary, 0, len(flows))
	for _, f := range flows {
		out = append(out, summarize(f))
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(out)
}

// HandleFocus writes the focused flow, or 404 when focus is empty.
func HandleFocus(w http.ResponseWriter, _ *http.Request, v *view.View) {
	f := v.Focus().Flow()
	if f == nil {
		http.Error(w, "no focus", http.StatusNotFound)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(struct {
		Index int         `json:"index"`
		Flow  flowSummary `json:"flow"`
	}{Index: v.Focus().Index(), Flow: summarize(f)})
}

// HandleMetrics writes Prometheus-compatible counters and gauges.
func HandleMetrics(w http.ResponseWriter, m *ViewMetrics, v *view.View) {
	w.Header().Set("Content-Type", "text/plain; version=0.0.4; charset=utf-8")
	m.Lock()
	counter := func(name, help string, val uint64) {
		_, _ = fmt.Fprintf(w, "# HELP %s %s\n", name, help)
		_, _ = fmt.Fprintf(w, "# TYPE %s counter\n", name)
		_, _ = fmt.Fprintf(w, "%s %d\n\n", name, val)
	}
	counter("view_flows_added_total", "Flows that entered the view", m.Added)
	counter("view_flows_removed_total", "Flows that left the view", m.Removed)
	counter("view_flows_updated_total", "In-view flow updates", m.Updated)
	counter("view_refreshes_total", "Full view refreshes", m.ViewRefreshes)
	counter("store_flows_removed_total", "Flows removed from the store", m.StoreRemoved)
	counter("focus_moves_total", "Focus cursor movements", m.FocusMoves)
	m.Unlock()

	gauge := func(name, help string, val int) {
		_, _ = fmt.Fprintf(w, "# HELP %s %s\n", name, help)
		_, _ = fmt.Fprintf(w, "# TYPE %s gauge\n", name)
		_, _ = fmt.Fprintf(w, "%s %d\n\n", name, val)
	}
	gauge("view_flows", "Flows currently visible", v.Len())
	gauge("store_flows", "Flows currently in the store", v.StoreLen())
}

// NewMux builds the admin mux over a view.
func NewMux(v *view.View, m *ViewMetrics, cfg interface{}) *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", HandleHealth)
	mux.HandleFunc("/varz", func(w http.ResponseWriter, r *http.Request) { HandleVarz(w, cfg) })
	mux.HandleFunc("/flows", func(w http.ResponseWriter, r *http.Request) { HandleFlows(w, r, v) })
	mux.HandleFunc("/focus", func(w http.ResponseWriter, r *http.Request) { HandleFocus(w, r, v) })
	mux.HandleFunc("/metrics", func(w http.ResponseWriter, r *http.Request) { HandleMetrics(w, m, v) })
	return mux
}
