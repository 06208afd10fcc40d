// Package view maintains a live, filtered, sorted projection over a store
// of captured flows:
//
//   - Store holds every known flow, keyed by id, in insertion order.
//   - View is the filtered projection, kept sorted by the active order key
//     and optionally displayed reversed.
//   - Focus tracks a single current flow and re-anchors when the view
//     changes under it.
//   - Settings keeps per-flow key/value metadata that expires when the flow
//     leaves the store.
//   - Bus broadcasts typed signals so consumers can observe all of it.
//
// The sorted index expects the sort key to be stable for the lifetime of an
// entry, but keys like "size" grow while a transfer is still running. The
// index therefore pins the value each flow was inserted under, and Update
// detects drift and repairs the entry by removing and re-adding it.
//
// Everything here follows a single-writer model: all mutations must happen
// on one goroutine, and signal handlers run synchronously on it. There is
// no internal locking.
package view

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/rs/zerolog/log"

	"github.com/jnovack/capture-view/pkg/flow"
	"github.com/jnovack/capture-view/pkg/flowio"
)

// Predicate decides whether a flow is visible.
type Predicate = func(*flow.Flow) bool

// ParseFunc turns a textual filter expression into a predicate. It is the
// boundary to the filter-expression collaborator; pkg/filter provides one.
type ParseFunc func(string) (Predicate, error)

func matchAll(*flow.Flow) bool { return true }

// View is the filtered, sorted projection over the store. Consumers only
// ever call View operations and read its signals; they never mutate the
// store directly.
type View struct {
	bus   *Bus
	store *Store
	index *sortedIndex
	cache orderCache

	settings *Settings
	focus    *Focus

	parse      ParseFunc
	filter     Predicate
	showMarked bool

	orders      map[string]Order
	order       Order
	reversed    bool
	focusFollow bool
}

// New builds an empty view. A nil bus gets a fresh one; a nil parse
// disables textual filter expressions (symbolic selectors still work).
func New(bus *Bus, parse ParseFunc) *View {
	if bus == nil {
		bus = NewBus()
	}
	v := &View{
		bus:    bus,
		store:  NewStore(),
		index:  newSortedIndex(),
		cache:  orderCache{},
		parse:  parse,
		filter: matchAll,
		orders: builtinOrders(),
		order:  OrderTime,
	}
	v.settings = newSettings(v)
	v.focus = newFocus(v)
	return v
}

// Bus returns the signal bus.
func (v *View) Bus() *Bus { return v.bus }

// Focus returns the focus cursor.
func (v *View) Focus() *Focus { return v.focus }

// Settings returns the per-flow metadata store.
func (v *View) Settings() *Settings { return v.settings }

// Order returns the active order key.
func (v *View) Order() Order { return v.order }

// Reversed reports whether display order is reversed.
func (v *View) Reversed() bool { return v.reversed }

// Len returns the number of visible flows.
func (v *View) Len() int { return v.index.Len() }

// StoreLen returns the number of flows in the underlying store.
func (v *View) StoreLen() int { return v.store.Len() }

// Get returns the flow with the given id from the store, or nil.
func (v *View) Get(id string) *flow.Flow { return v.store.Get(id) }

// InBounds reports whether 0 <= i < Len().
func (v *View) InBounds(i int) bool { return i >= 0 && i < v.index.Len() }

// accepts is the combined display predicate.
func (v *View) accepts(f *flow.Flow) bool {
	if v.showMarked && !f.Marked {
		return false
	}
	return v.filter(f)
}

// underlying maps a displayed position to an ascending index position.
func (v *View) underlying(d int) int {
	if v.reversed {
		return v.index.Len() - d - 1
	}
	return d
}

// At returns the flow at the displayed offset. Offset 0 is the first
// displayed flow regardless of direction; negative offsets count from the
// end, -1 being the last displayed flow.
func (v *View) At(offset int) (*flow.Flow, error) {
	n := v.index.Len()
	d := offset
	if d < 0 {
		d += n
	}
	if d < 0 || d >= n {
		return nil, fmt.Errorf("%w: %d of %d", ErrOutOfBounds, offset, n)
	}
	return v.index.At(v.underlying(d)), nil
}

// IndexOf returns f's displayed offset.
func (v *View) IndexOf(f *flow.Flow) (int, error) {
	u := v.index.IndexOf(f, v.orderValue(f), v.store.Seq(f.ID))
	if u < 0 {
		return 0, fmt.Errorf("%w: %s", ErrNotInView, f.ID)
	}
	if v.reversed {
		return v.index.Len() - u - 1, nil
	}
	return u, nil
}

// Contains reports whether f is currently visible.
func (v *View) Contains(f *flow.Flow) bool { return v.index.Contains(f.ID) }

// Shown returns the visible flows in displayed order.
func (v *View) Shown() []*flow.Flow {
	n := v.index.Len()
	out := make([]*flow.Flow, n)
	for d := 0; d < n; d++ {
		out[d] = v.index.At(v.underlying(d))
	}
	return out
}

// displayBisect returns the displayed position just past where f would
// sort, used by the focus cursor to find the nearest survivor after a
// removal.
func (v *View) displayBisect(f *flow.Flow) int {
	i := v.index.BisectRight(v.orderValue(f), v.store.Seq(f.ID)) - 1
	if v.reversed {
		if i < 0 {
			i = -i - 1
		} else {
			i = v.index.Len() - i - 1
		}
	}
	return i + 1
}

// baseAdd pins f into the index under its cached order value.
func (v *View) baseAdd(f *flow.Flow) {
	v.index.Insert(f, v.orderValue(f), v.store.Seq(f.ID))
}

// refilter rebuilds the index from the store under the current predicate.
func (v *View) refilter() {
	v.index.Clear()
	for _, f := range v.store.All() {
		if v.accepts(f) {
			v.baseAdd(f)
		}
	}
	v.bus.ViewRefresh.Emit()
}

// Add inserts flows into the store. Flows already present are silently
// skipped; visible ones enter the index and emit ViewAdd.
func (v *View) Add(flows []*flow.Flow) {
	for _, f := range flows {
		if !v.store.Put(f) {
			continue
		}
		if v.accepts(f) {
			v.baseAdd(f)
			if v.focusFollow {
				_ = v.focus.Set(f)
			}
			v.bus.ViewAdd.Emit(f)
		}
	}
}

// Update re-evaluates flows already in the store. A flow that became
// visible enters the index (ViewAdd); a visible flow has its order value
// refreshed in case it drifted (ViewUpdate); a flow that no longer passes
// the predicate leaves the index (ViewRemove). Flows not in the store are
// ignored.
func (v *View) Update(flows []*flow.Flow) {
	for _, f := range flows {
		if !v.store.Contains(f.ID) {
			continue
		}
		switch {
		case v.accepts(f) && !v.index.Contains(f.ID):
			v.baseAdd(f)
			if v.focusFollow {
				_ = v.focus.Set(f)
			}
			v.bus.ViewAdd.Emit(f)
		case v.accepts(f):
			v.refreshOrder(f)
			v.bus.ViewUpdate.Emit(f)
		case v.index.Contains(f.ID):
			v.index.Remove(f, v.orderValue(f), v.store.Seq(f.ID))
			v.bus.ViewRemove.Emit(f)
		}
	}
}

// Remove kills (when killable) and deletes flows from both the view and
// the store. This is the only path that prunes a single flow's settings.
func (v *View) Remove(flows []*flow.Flow) {
	for _, f := range flows {
		if !v.store.Contains(f.ID) {
			continue
		}
		if f.Killable() {
			f.Kill()
		}
		if v.index.Contains(f.ID) {
			v.index.Remove(f, v.orderValue(f), v.store.Seq(f.ID))
			v.bus.ViewRemove.Emit(f)
		}
		v.store.Delete(f.ID)
		v.cache.drop(f.ID)
		v.bus.StoreRemove.Emit(f)
	}
}

// SetFilter replaces the predicate and rebuilds the view. A nil predicate
// shows everything.
func (v *View) SetFilter(p Predicate) {
	if p == nil {
		p = matchAll
	}
	v.filter = p
	v.refilter()
}

// SetFilterExpr parses and applies a textual filter expression. The view is
// unchanged when the expression does not parse.
func (v *View) SetFilterExpr(text string) error {
	if v.parse == nil {
		return fmt.Errorf("%w: no filter parser configured", ErrInvalidFilter)
	}
	p, err := v.parse(text)
	if err != nil {
		return fmt.Errorf("%w: %q: %v", ErrInvalidFilter, text, err)
	}
	v.SetFilter(p)
	return nil
}

// RegisterOrder makes a custom order available to SetOrderByName.
func (v *View) RegisterOrder(o Order) { v.orders[o.Name()] = o }

// SetOrder switches the active order key and rebuilds the index over the
// same membership. Membership is unchanged, so no add/remove signals fire;
// consumers get a single refresh.
func (v *View) SetOrder(o Order) {
	v.order = o
	members := v.index.All()
	v.index.Clear()
	for _, f := range members {
		v.baseAdd(f)
	}
	v.bus.ViewRefresh.Emit()
}

// SetOrderByName switches to a registered order.
func (v *View) SetOrderByName(name string) error {
	o, ok := v.orders[name]
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknownOrder, name)
	}
	v.SetOrder(o)
	return nil
}

// SetReversed flips the display direction. The ascending index is left
// alone; only the offset mapping changes.
func (v *View) SetReversed(reversed bool) {
	v.reversed = reversed
	v.bus.ViewRefresh.Emit()
}

// SetFocusFollow makes newly added visible flows take focus.
func (v *View) SetFocusFollow(follow bool) { v.focusFollow = follow }

// ToggleShowMarked flips the marked-only display flag and refilters.
func (v *View) ToggleShowMarked() {
	v.showMarked = !v.showMarked
	v.refilter()
}

// Clear empties both the store and the view.
func (v *View) Clear() {
	v.store.Clear()
	v.index.Clear()
	v.cache = orderCache{}
	v.bus.ViewRefresh.Emit()
	v.bus.StoreRefresh.Emit()
}

// ClearUnmarked deletes every unmarked flow from the store, then
// refilters.
func (v *View) ClearUnmarked() {
	for _, f := range v.store.All() {
		if !f.Marked {
			v.store.Delete(f.ID)
			v.cache.drop(f.ID)
		}
	}
	v.refilter()
	v.bus.StoreRefresh.Emit()
}

// Resolve turns a flow selector into a concrete list of flows. Symbolic
// selectors address store or view membership; any other text is parsed as
// a filter expression over the whole store.
func (v *View) Resolve(spec string) ([]*flow.Flow, error) {
	switch spec {
	case "@all":
		return v.store.All(), nil
	case "@focus":
		if f := v.focus.Flow(); f != nil {
			return []*flow.Flow{f}, nil
		}
		return nil, nil
	case "@shown":
		return v.Shown(), nil
	case "@hidden":
		var out []*flow.Flow
		for _, f := range v.store.All() {
			if !v.index.Contains(f.ID) {
				out = append(out, f)
			}
		}
		return out, nil
	case "@marked":
		return v.selectMarked(true), nil
	case "@unmarked":
		return v.selectMarked(false), nil
	default:
		if v.parse == nil {
			return nil, fmt.Errorf("%w: no filter parser configured", ErrInvalidFilter)
		}
		p, err := v.parse(spec)
		if err != nil {
			return nil, fmt.Errorf("%w: %q: %v", ErrInvalidFilter, spec, err)
		}
		var out []*flow.Flow
		for _, f := range v.store.All() {
			if p(f) {
				out = append(out, f)
			}
		}
		return out, nil
	}
}

func (v *View) selectMarked(marked bool) []*flow.Flow {
	var out []*flow.Flow
	for _, f := range v.store.All() {
		if f.Marked == marked {
			out = append(out, f)
		}
	}
	return out
}

// Command surface: the operations the key bindings and command layer call.

// FocusNext moves focus to the next displayed flow, if there is one. With
// no focus it lands on the first.
func (v *View) FocusNext() {
	if idx := v.focus.Index() + 1; v.InBounds(idx) {
		_ = v.focus.SetIndex(idx)
	}
}

// FocusPrev moves focus to the previous displayed flow, if there is one.
func (v *View) FocusPrev() {
	if idx := v.focus.Index() - 1; v.InBounds(idx) {
		_ = v.focus.SetIndex(idx)
	}
}

// Go focuses the flow at the given displayed offset. Negative offsets
// count from the end (-1 is the last flow); out-of-range offsets clamp to
// the nearest bound. No-op on an empty view.
func (v *View) Go(dst int) {
	n := v.index.Len()
	if n == 0 {
		return
	}
	if dst < 0 {
		dst += n
	}
	if dst < 0 {
		dst = 0
	}
	if dst > n-1 {
		dst = n - 1
	}
	f, _ := v.At(dst)
	_ = v.focus.Set(f)
}

// Duplicate copies the given flows under fresh ids, adds the copies, and
// focuses the first one. A copy hidden by the current filter cannot take
// focus.
func (v *View) Duplicate(flows []*flow.Flow) {
	dups := make([]*flow.Flow, 0, len(flows))
	for _, f := range flows {
		dups = append(dups, f.Copy())
	}
	if len(dups) == 0 {
		return
	}
	v.Add(dups)
	if err := v.focus.Set(dups[0]); err != nil {
		log.Debug().Str("id", dups[0].ID).Msg("duplicate hidden by filter, focus unchanged")
	}
	log.Info().Int("count", len(dups)).Msg("duplicated flows")
}

// Create builds a synthetic flow for method and url and adds it.
func (v *View) Create(method, url string) (*flow.Flow, error) {
	f, err := flow.Make(method, url)
	if err != nil {
		return nil, err
	}
	v.Add([]*flow.Flow{f})
	return f, nil
}

// LoadFile streams a flow dump from path and adds a fresh-id copy of each
// flow, so loading the same dump twice yields distinct entries.
func (v *View) LoadFile(path string) error {
	fh, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("load flows: %w", err)
	}
	defer fh.Close()

	r := flowio.NewReader(fh)
	n := 0
	for {
		f, err := r.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return fmt.Errorf("load flows from %s: %w", path, err)
		}
		v.Add([]*flow.Flow{f.Copy()})
		n++
	}
	log.Info().Int("flows", n).Str("path", path).Msg("loaded flow dump")
	return nil
}

// GetValue reads a per-flow setting, falling back to def when unset.
func (v *View) GetValue(f *flow.Flow, key, def string) (string, error) {
	s, err := v.settings.For(f)
	if err != nil {
		return "", err
	}
	if val, ok := s[key]; ok {
		return val, nil
	}
	return def, nil
}

// SetValue writes a per-flow setting on each flow and emits one batched
// FlowsUpdated notification. Each flow commits independently; the first
// unknown flow aborts the rest.
func (v *View) SetValue(flows []*flow.Flow, key, value string) error {
	var updated []*flow.Flow
	for _, f := range flows {
		s, err := v.settings.For(f)
		if err != nil {
			v.notifyUpdated(updated)
			return err
		}
		s[key] = value
		updated = append(updated, f)
	}
	v.notifyUpdated(updated)
	return nil
}

// ToggleValue flips a boolean setting between the strings "true" and
// "false" under the caller's key, unset reading as "false".
func (v *View) ToggleValue(flows []*flow.Flow, key string) error {
	var updated []*flow.Flow
	for _, f := range flows {
		s, err := v.settings.For(f)
		if err != nil {
			v.notifyUpdated(updated)
			return err
		}
		if s[key] == "true" {
			s[key] = "false"
		} else {
			s[key] = "true"
		}
		updated = append(updated, f)
	}
	v.notifyUpdated(updated)
	return nil
}

func (v *View) notifyUpdated(flows []*flow.Flow) {
	if len(flows) > 0 {
		v.bus.FlowsUpdated.Emit(flows)
	}
}
