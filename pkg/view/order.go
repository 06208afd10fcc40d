// pkg/view/order.go
package view

import (
	"sort"

	"github.com/jnovack/capture-view/pkg/flow"
)

// Value is a sort-key sample. An order produces either string or numeric
// values, never a mix, so comparing Str first and Num second yields a
// consistent total order for any single order key.
type Value struct {
	Str string
	Num float64
}

// Less reports whether v sorts before o.
func (v Value) Less(o Value) bool {
	if v.Str != o.Str {
		return v.Str < o.Str
	}
	return v.Num < o.Num
}

// Order is a named sort-key extractor. Key is a pure function of the flow's
// state at call time; it may be expensive, so the view caches generated
// values per flow and only recomputes on update. The name doubles as the
// opaque stable token that namespaces the cache, so distinct orders never
// collide even when they produce equal values.
type Order struct {
	name string
	key  func(*flow.Flow) Value
}

// NewOrder constructs an order with the given name and key function.
func NewOrder(name string, key func(*flow.Flow) Value) Order {
	return Order{name: name, key: key}
}

// Name returns the order's registered name.
func (o Order) Name() string { return o.name }

// Key generates the sort value for f. Callers should prefer the view's
// cached value; this always recomputes.
func (o Order) Key(f *flow.Flow) Value { return o.key(f) }

// Built-in orders. Time is the default: flows appear in the order their
// requests started.
var (
	OrderTime = NewOrder("time", func(f *flow.Flow) Value {
		if f.Request == nil || f.Request.Start.IsZero() {
			return Value{}
		}
		return Value{Num: float64(f.Request.Start.UnixNano()) / 1e9}
	})

	OrderMethod = NewOrder("method", func(f *flow.Flow) Value {
		if f.Request == nil {
			return Value{}
		}
		return Value{Str: f.Request.Method}
	})

	OrderURL = NewOrder("url", func(f *flow.Flow) Value {
		if f.Request == nil {
			return Value{}
		}
		return Value{Str: f.Request.URL}
	})

	OrderSize = NewOrder("size", func(f *flow.Flow) Value {
		return Value{Num: float64(f.Size())}
	})
)

func builtinOrders() map[string]Order {
	return map[string]Order{
		OrderTime.Name():   OrderTime,
		OrderMethod.Name(): OrderMethod,
		OrderURL.Name():    OrderURL,
		OrderSize.Name():   OrderSize,
	}
}

// orderCache is the per-view table flow id -> order name -> cached Value.
// It is pruned in lockstep with store membership, on the same edges as the
// settings store.
type orderCache map[string]map[string]Value

func (c orderCache) get(id, order string) (Value, bool) {
	v, ok := c[id][order]
	return v, ok
}

func (c orderCache) put(id, order string, v Value) {
	m, ok := c[id]
	if !ok {
		m = make(map[string]Value)
		c[id] = m
	}
	m[order] = v
}

func (c orderCache) drop(id string) { delete(c, id) }

// OrderOptions returns the sorted names of the registered orders.
func (v *View) OrderOptions() []string {
	names := make([]string, 0, len(v.orders))
	for n := range v.orders {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// orderValue returns the cached sort value for f under the active order,
// computing and caching it on first use. Flows outside the store are
// computed directly and never cached, so a departed flow cannot leave a
// stale cache entry behind.
func (v *View) orderValue(f *flow.Flow) Value {
	if !v.store.Contains(f.ID) {
		return v.order.Key(f)
	}
	if val, ok := v.cache.get(f.ID, v.order.Name()); ok {
		return val
	}
	val := v.order.Key(f)
	v.cache.put(f.ID, v.order.Name(), val)
	return val
}

// refreshOrder repairs staleness for an indexed flow: if the freshly
// generated value differs from the cached one, the flow is pulled out of
// the index under its old value, the cache is overwritten, and the flow is
// re-inserted in its new position. The relative order of other entries may
// now differ from what consumers last observed, so a full view refresh is
// signalled. Equal values are a no-op.
func (v *View) refreshOrder(f *flow.Flow) {
	old, ok := v.cache.get(f.ID, v.order.Name())
	fresh := v.order.Key(f)
	if ok && old == fresh {
		return
	}
	if !ok {
		// Indexed flows always have a cached value; tolerate anyway.
		old = fresh
	}
	v.index.Remove(f, old, v.store.Seq(f.ID))
	v.cache.put(f.ID, v.order.Name(), fresh)
	v.index.Insert(f, fresh, v.store.Seq(f.ID))
	v.bus.ViewRefresh.Emit()
}
