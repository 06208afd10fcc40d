// pkg/view/index_test.go
package view

import (
	"testing"

	"github.com/jnovack/capture-view/pkg/flow"
)

func sized(n int) *flow.Flow {
	f := flow.New()
	f.Request = &flow.Request{Method: "GET", URL: "http://x/", Content: make([]byte, n)}
	return f
}

func TestSortedIndex_InsertOrdering(t *testing.T) {
	x := newSortedIndex()
	a, b, c := sized(10), sized(5), sized(20)

	x.Insert(a, Value{Num: 10}, 0)
	x.Insert(b, Value{Num: 5}, 1)
	x.Insert(c, Value{Num: 20}, 2)

	want := []*flow.Flow{b, a, c}
	for i, f := range want {
		if x.At(i) != f {
			t.Fatalf("position %d: got %s, want %s", i, x.At(i).ID, f.ID)
		}
	}
}

func TestSortedIndex_TieBreakBySeq(t *testing.T) {
	x := newSortedIndex()
	a, b, c := sized(7), sized(7), sized(7)

	// Insert out of sequence order; equal values must still come out in
	// sequence order.
	x.Insert(c, Value{Num: 7}, 2)
	x.Insert(a, Value{Num: 7}, 0)
	x.Insert(b, Value{Num: 7}, 1)

	want := []*flow.Flow{a, b, c}
	for i, f := range want {
		if x.At(i) != f {
			t.Fatalf("position %d: got %s, want %s", i, x.At(i).ID, f.ID)
		}
	}
}

func TestSortedIndex_RemoveByPinnedValue(t *testing.T) {
	x := newSortedIndex()
	a, b := sized(10), sized(5)
	x.Insert(a, Value{Num: 10}, 0)
	x.Insert(b, Value{Num: 5}, 1)

	// Removal must use the pinned value even when the flow has drifted.
	a.Request.Content = make([]byte, 99)
	x.Remove(a, Value{Num: 10}, 0)

	if x.Len() != 1 || x.At(0) != b {
		t.Fatalf("expected only b to remain, len=%d", x.Len())
	}
	if x.Contains(a.ID) {
		t.Fatalf("a still reported as indexed")
	}
	// Removing an absent flow is a no-op.
	x.Remove(a, Value{Num: 10}, 0)
	if x.Len() != 1 {
		t.Fatalf("no-op remove changed the index")
	}
}

func TestSortedIndex_BisectRight(t *testing.T) {
	x := newSortedIndex()
	a, b, c := sized(5), sized(10), sized(20)
	x.Insert(a, Value{Num: 5}, 0)
	x.Insert(b, Value{Num: 10}, 1)
	x.Insert(c, Value{Num: 20}, 2)

	if got := x.BisectRight(Value{Num: 10}, 1); got != 2 {
		t.Fatalf("bisect right of b: got %d, want 2", got)
	}
	if got := x.BisectRight(Value{Num: 1}, 99); got != 0 {
		t.Fatalf("bisect right below all: got %d, want 0", got)
	}
	if got := x.BisectRight(Value{Num: 99}, 99); got != 3 {
		t.Fatalf("bisect right above all: got %d, want 3", got)
	}
}

func TestValueOrdering(t *testing.T) {
	cases := []struct {
		a, b Value
		less bool
	}{
		{Value{Num: 1}, Value{Num: 2}, true},
		{Value{Num: 2}, Value{Num: 1}, false},
		{Value{Str: "GET"}, Value{Str: "POST"}, true},
		{Value{Str: "a"}, Value{Str: "a"}, false},
	}
	for _, c := range cases {
		if got := c.a.Less(c.b); got != c.less {
			t.Fatalf("Less(%v, %v) = %v, want %v", c.a, c.b, got, c.less)
		}
	}
}

func TestStore_InsertionOrderAndSeq(t *testing.T) {
	s := NewStore()
	a, b := sized(1), sized(2)
	if !s.Put(a) || !s.Put(b) {
		t.Fatalf("fresh puts must insert")
	}
	if s.Put(a) {
		t.Fatalf("duplicate put must be ignored")
	}
	if s.Seq(a.ID) >= s.Seq(b.ID) {
		t.Fatalf("seq not monotonic: %d vs %d", s.Seq(a.ID), s.Seq(b.ID))
	}
	all := s.All()
	if len(all) != 2 || all[0] != a || all[1] != b {
		t.Fatalf("insertion order not preserved: %v", all)
	}
	s.Delete(a.ID)
	if s.Contains(a.ID) || s.Len() != 1 {
		t.Fatalf("delete did not remove a")
	}
	// Seq keeps increasing across Clear.
	s.Clear()
	c := sized(3)
	s.Put(c)
	if s.Seq(c.ID) <= 1 {
		t.Fatalf("seq reused after clear: %d", s.Seq(c.ID))
	}
}
