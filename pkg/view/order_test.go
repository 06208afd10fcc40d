// pkg/view/order_test.go
package view

import (
	"testing"

	"github.com/jnovack/capture-view/pkg/flow"
)

// The size order key changes while a transfer progresses. Insert sizes
// [10, 5, 20], mutate the 10-byte flow to 30 bytes, update: the displayed
// order must repair itself and the cache must hold the new value.
func TestStalenessRepair(t *testing.T) {
	v := New(nil, nil)
	if err := v.SetOrderByName("size"); err != nil {
		t.Fatalf("set order: %v", err)
	}

	a, b, c := sized(10), sized(5), sized(20)
	v.Add([]*flow.Flow{a, b, c})

	wantSizes := func(want ...int64) {
		t.Helper()
		shown := v.Shown()
		if len(shown) != len(want) {
			t.Fatalf("shown %d flows, want %d", len(shown), len(want))
		}
		for i, w := range want {
			if got := shown[i].Size(); got != w {
				t.Fatalf("position %d: size %d, want %d", i, got, w)
			}
		}
	}
	wantSizes(5, 10, 20)

	refreshes := 0
	v.Bus().ViewRefresh.Connect(func() { refreshes++ })

	a.Request.Content = make([]byte, 30)
	v.Update([]*flow.Flow{a})

	wantSizes(5, 20, 30)
	if refreshes != 1 {
		t.Fatalf("expected exactly one view refresh, got %d", refreshes)
	}
	if got, ok := v.cache.get(a.ID, "size"); !ok || got != (Value{Num: 30}) {
		t.Fatalf("cache for repositioned flow = %v (ok=%v), want Num 30", got, ok)
	}

	// Updating again without drift must not refresh.
	v.Update([]*flow.Flow{a})
	if refreshes != 1 {
		t.Fatalf("no-drift update refreshed the view")
	}
}

func TestOrderValueCachedOncePerFlow(t *testing.T) {
	calls := 0
	counting := NewOrder("counting", func(f *flow.Flow) Value {
		calls++
		return Value{Num: float64(f.Size())}
	})

	v := New(nil, nil)
	v.RegisterOrder(counting)
	v.SetOrder(counting)

	f := sized(12)
	v.Add([]*flow.Flow{f})
	calls = 0

	// Positional queries must consult the cache, not regenerate.
	if _, err := v.At(0); err != nil {
		t.Fatalf("at: %v", err)
	}
	if _, err := v.IndexOf(f); err != nil {
		t.Fatalf("index of: %v", err)
	}
	if calls != 0 {
		t.Fatalf("positional queries regenerated the key %d times", calls)
	}
}

func TestOrderCachePrunedWithStore(t *testing.T) {
	v := New(nil, nil)
	f := sized(8)
	v.Add([]*flow.Flow{f})
	if _, ok := v.cache.get(f.ID, v.Order().Name()); !ok {
		t.Fatalf("expected cached order value after add")
	}
	v.Remove([]*flow.Flow{f})
	if _, ok := v.cache.get(f.ID, v.Order().Name()); ok {
		t.Fatalf("cache survived store removal")
	}
}

func TestBuiltinOrderKeys(t *testing.T) {
	f := flow.New()
	f.Request = &flow.Request{Method: "POST", URL: "http://example.com/x", Content: make([]byte, 3)}
	f.Response = &flow.Response{Status: 200, Content: make([]byte, 4)}

	if got := OrderMethod.Key(f); got != (Value{Str: "POST"}) {
		t.Fatalf("method key = %v", got)
	}
	if got := OrderURL.Key(f); got != (Value{Str: "http://example.com/x"}) {
		t.Fatalf("url key = %v", got)
	}
	if got := OrderSize.Key(f); got != (Value{Num: 7}) {
		t.Fatalf("size key = %v", got)
	}
	// Missing halves count as zero.
	empty := flow.New()
	if got := OrderSize.Key(empty); got != (Value{Num: 0}) {
		t.Fatalf("size of empty flow = %v", got)
	}
	if got := OrderTime.Key(empty); got != (Value{}) {
		t.Fatalf("time of empty flow = %v", got)
	}
}
