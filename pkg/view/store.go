// pkg/view/store.go
package view

import "github.com/jnovack/capture-view/pkg/flow"

// Store is the authoritative, insertion-ordered collection of all known
// flows, keyed by id. It is the sole source of truth for whether a flow
// still exists; the view is a derived projection over it.
//
// No filtering or ordering logic lives here. The store also assigns each
// flow a monotonically increasing sequence number, which the sorted index
// uses as the deterministic tie-break for equal order values.
type Store struct {
	flows map[string]*flow.Flow
	order []string // ids in insertion order
	seq   map[string]uint64
	next  uint64
}

// NewStore returns an empty store.
func NewStore() *Store {
	return &Store{
		flows: make(map[string]*flow.Flow),
		seq:   make(map[string]uint64),
	}
}

// Put inserts f if its id is not already present and reports whether it was
// inserted. Duplicate delivery is silently ignored.
func (s *Store) Put(f *flow.Flow) bool {
	if _, ok := s.flows[f.ID]; ok {
		return false
	}
	s.flows[f.ID] = f
	s.order = append(s.order, f.ID)
	s.seq[f.ID] = s.next
	s.next++
	return true
}

// Get returns the flow with the given id, or nil.
func (s *Store) Get(id string) *flow.Flow { return s.flows[id] }

// Contains reports whether the store holds id.
func (s *Store) Contains(id string) bool {
	_, ok := s.flows[id]
	return ok
}

// Delete removes id from the store. No-op if absent.
func (s *Store) Delete(id string) {
	if _, ok := s.flows[id]; !ok {
		return
	}
	delete(s.flows, id)
	delete(s.seq, id)
	for i, v := range s.order {
		if v == id {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
}

// All returns the flows in insertion order.
func (s *Store) All() []*flow.Flow {
	out := make([]*flow.Flow, 0, len(s.order))
	for _, id := range s.order {
		out = append(out, s.flows[id])
	}
	return out
}

// Len returns the number of flows held.
func (s *Store) Len() int { return len(s.flows) }

// Seq returns the insertion sequence number for id. Zero for unknown ids;
// callers only ask about flows they just verified are present.
func (s *Store) Seq(id string) uint64 { return s.seq[id] }

// Clear empties the store. Sequence numbers keep increasing across clears
// so an id can never reuse a smaller tie-break than an earlier occupant.
func (s *Store) Clear() {
	s.flows = make(map[string]*flow.Flow)
	s.seq = make(map[string]uint64)
	s.order = nil
}
