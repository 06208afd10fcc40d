// pkg/view/settings.go
package view

import (
	"fmt"

	"github.com/jnovack/capture-view/pkg/flow"
)

// Settings is per-flow key/value metadata whose lifetime is bound to store
// membership: an entry is created lazily on first access and deleted the
// moment its flow leaves the store, whether or not the flow was ever
// visible in the view.
type Settings struct {
	view   *View
	values map[string]map[string]string
}

func newSettings(v *View) *Settings {
	s := &Settings{
		view:   v,
		values: make(map[string]map[string]string),
	}
	v.bus.StoreRemove.Connect(s.onStoreRemove)
	v.bus.StoreRefresh.Connect(s.onStoreRefresh)
	return s
}

// For returns the mutable settings map for f, creating it on first access.
// Flows the store does not hold have no settings.
func (s *Settings) For(f *flow.Flow) (map[string]string, error) {
	if !s.view.store.Contains(f.ID) {
		return nil, fmt.Errorf("%w: %s", ErrUnknownFlow, f.ID)
	}
	m, ok := s.values[f.ID]
	if !ok {
		m = make(map[string]string)
		s.values[f.ID] = m
	}
	return m, nil
}

// Len returns the number of flows that have a settings entry.
func (s *Settings) Len() int { return len(s.values) }

// Contains reports whether id currently has a settings entry.
func (s *Settings) Contains(id string) bool {
	_, ok := s.values[id]
	return ok
}

func (s *Settings) onStoreRemove(f *flow.Flow) {
	delete(s.values, f.ID)
}

func (s *Settings) onStoreRefresh() {
	for id := range s.values {
		if !s.view.store.Contains(id) {
			delete(s.values, id)
		}
	}
}
