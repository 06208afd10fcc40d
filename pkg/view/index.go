// pkg/view/index.go
package view

import (
	"sort"

	"github.com/jnovack/capture-view/pkg/flow"
)

// indexEntry pins a flow to the sort value the index actually used to place
// it. Positions are always derived from the pinned value, never from a live
// recomputation, so a flow whose key drifts stays findable until
// refreshOrder repairs it.
type indexEntry struct {
	f   *flow.Flow
	val Value
	seq uint64
}

// before reports whether e sorts strictly before (val, seq).
func (e indexEntry) before(val Value, seq uint64) bool {
	if e.val != val {
		return e.val.Less(val)
	}
	return e.seq < seq
}

// sortedIndex is an ascending index over the visible flows, ordered by
// (pinned sort value, store insertion sequence). The sequence tie-break
// makes the order total and rebuilds reproducible.
type sortedIndex struct {
	entries []indexEntry
	ids     map[string]bool
}

func newSortedIndex() *sortedIndex {
	return &sortedIndex{ids: make(map[string]bool)}
}

// search returns the number of entries sorting strictly before (val, seq).
func (x *sortedIndex) search(val Value, seq uint64) int {
	return sort.Search(len(x.entries), func(i int) bool {
		return !x.entries[i].before(val, seq)
	})
}

// Insert places f at the position determined by val and seq.
func (x *sortedIndex) Insert(f *flow.Flow, val Value, seq uint64) {
	i := x.search(val, seq)
	x.entries = append(x.entries, indexEntry{})
	copy(x.entries[i+1:], x.entries[i:])
	x.entries[i] = indexEntry{f: f, val: val, seq: seq}
	x.ids[f.ID] = true
}

// Remove deletes f, located by the value the index placed it under.
// Tolerates absence.
func (x *sortedIndex) Remove(f *flow.Flow, val Value, seq uint64) {
	if !x.ids[f.ID] {
		return
	}
	i := x.search(val, seq)
	if i < len(x.entries) && x.entries[i].f.ID == f.ID {
		x.entries = append(x.entries[:i], x.entries[i+1:]...)
		delete(x.ids, f.ID)
	}
}

// IndexOf returns f's ascending position, or -1 when absent.
func (x *sortedIndex) IndexOf(f *flow.Flow, val Value, seq uint64) int {
	if !x.ids[f.ID] {
		return -1
	}
	i := x.search(val, seq)
	if i < len(x.entries) && x.entries[i].f.ID == f.ID {
		return i
	}
	return -1
}

// BisectRight returns the position just past every entry sorting at or
// before (val, seq).
func (x *sortedIndex) BisectRight(val Value, seq uint64) int {
	return sort.Search(len(x.entries), func(i int) bool {
		e := x.entries[i]
		if e.val != val {
			return val.Less(e.val)
		}
		return e.seq > seq
	})
}

// At returns the flow at ascending position i.
func (x *sortedIndex) At(i int) *flow.Flow { return x.entries[i].f }

// Contains reports whether f is indexed.
func (x *sortedIndex) Contains(id string) bool { return x.ids[id] }

// Len returns the number of indexed flows.
func (x *sortedIndex) Len() int { return len(x.entries) }

// All returns the flows in ascending index order.
func (x *sortedIndex) All() []*flow.Flow {
	out := make([]*flow.Flow, len(x.entries))
	for i, e := range x.entries {
		out[i] = e.f
	}
	return out
}

// Clear empties the index.
func (x *sortedIndex) Clear() {
	x.entries = nil
	x.ids = make(map[string]bool)
}
