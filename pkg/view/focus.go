// pkg/view/focus.go
package view

import (
	"fmt"

	"github.com/jnovack/capture-view/pkg/flow"
)

// Focus tracks a single current flow within a view. It is never
// authoritative: it recomputes itself from the view's signals, and is
// always either empty or a current view member.
type Focus struct {
	view *View
	flow *flow.Flow
}

func newFocus(v *View) *Focus {
	fo := &Focus{view: v}
	if v.Len() > 0 {
		f, _ := v.At(0)
		fo.set(f)
	}
	v.bus.ViewAdd.Connect(fo.onViewAdd)
	v.bus.ViewRemove.Connect(fo.onViewRemove)
	v.bus.ViewRefresh.Connect(fo.onViewRefresh)
	return fo
}

// Flow returns the focused flow, or nil.
func (fo *Focus) Flow() *flow.Flow { return fo.flow }

// Set focuses f, which must be a current view member. nil clears focus.
func (fo *Focus) Set(f *flow.Flow) error {
	if f != nil && !fo.view.Contains(f) {
		return fmt.Errorf("%w: cannot focus %s", ErrNotInView, f.ID)
	}
	fo.set(f)
	return nil
}

func (fo *Focus) set(f *flow.Flow) {
	fo.flow = f
	fo.view.bus.FocusChange.Emit(f)
}

// Index returns the focused flow's displayed offset, or -1 when empty.
func (fo *Focus) Index() int {
	if fo.flow == nil {
		return -1
	}
	idx, err := fo.view.IndexOf(fo.flow)
	if err != nil {
		return -1
	}
	return idx
}

// SetIndex focuses the flow at the given displayed offset.
func (fo *Focus) SetIndex(idx int) error {
	if !fo.view.InBounds(idx) {
		return fmt.Errorf("%w: %d of %d", ErrOutOfBounds, idx, fo.view.Len())
	}
	f, err := fo.view.At(idx)
	if err != nil {
		return err
	}
	fo.set(f)
	return nil
}

// nearest returns the displayed position closest to where f sat, clamped
// to the last valid position.
func (fo *Focus) nearest(f *flow.Flow) int {
	i := fo.view.displayBisect(f)
	if last := fo.view.Len() - 1; i > last {
		i = last
	}
	if i < 0 {
		i = 0
	}
	return i
}

func (fo *Focus) onViewRemove(f *flow.Flow) {
	if fo.view.Len() == 0 {
		fo.set(nil)
	} else if f == fo.flow {
		nf, _ := fo.view.At(fo.nearest(f))
		fo.set(nf)
	}
}

func (fo *Focus) onViewRefresh() {
	switch {
	case fo.view.Len() == 0:
		fo.set(nil)
	case fo.flow == nil:
		f, _ := fo.view.At(0)
		fo.set(f)
	case !fo.view.Contains(fo.flow):
		nf, _ := fo.view.At(fo.nearest(fo.flow))
		fo.set(nf)
	}
}

func (fo *Focus) onViewAdd(f *flow.Flow) {
	// Only claim the new flow when nothing is focused.
	if fo.flow == nil {
		fo.set(f)
	}
}
