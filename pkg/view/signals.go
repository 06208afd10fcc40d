// pkg/view/signals.go
package view

import "github.com/jnovack/capture-view/pkg/flow"

// FlowSignal is a synchronous, ordered notification channel carrying a
// single flow. Handlers run on the mutator's goroutine, in subscription
// order, after the causing mutation has fully applied.
//
// Handlers must not call mutating operations (Add, Update, Remove,
// SetFilter, ...) on the view that emitted the signal; delivery is
// re-entrant into handler code but the view is not.
type FlowSignal struct {
	handlers []func(*flow.Flow)
}

// Connect subscribes a handler. There is no unsubscribe; consumers live as
// long as the view they observe.
func (s *FlowSignal) Connect(h func(*flow.Flow)) {
	s.handlers = append(s.handlers, h)
}

// Emit delivers f to every handler in subscription order.
func (s *FlowSignal) Emit(f *flow.Flow) {
	for _, h := range s.handlers {
		h(f)
	}
}

// UnitSignal is a FlowSignal without a payload, used for whole-structure
// refresh notifications.
type UnitSignal struct {
	handlers []func()
}

// Connect subscribes a handler.
func (s *UnitSignal) Connect(h func()) {
	s.handlers = append(s.handlers, h)
}

// Emit delivers the signal to every handler in subscription order.
func (s *UnitSignal) Emit() {
	for _, h := range s.handlers {
		h()
	}
}

// BatchSignal carries a batch of flows touched by one operation, used for
// the settings-updated notification.
type BatchSignal struct {
	handlers []func([]*flow.Flow)
}

// Connect subscribes a handler.
func (s *BatchSignal) Connect(h func([]*flow.Flow)) {
	s.handlers = append(s.handlers, h)
}

// Emit delivers the batch to every handler in subscription order.
func (s *BatchSignal) Emit(flows []*flow.Flow) {
	for _, h := range s.handlers {
		h(flows)
	}
}

// Bus groups the signals a View emits. The view-level signals fire only for
// mutations that change view-visible state; the store-level signals fire
// when store membership changes, whether or not the flow was visible.
//
// A flow removed from the store while visible triggers both ViewRemove and
// StoreRemove, in that order, with the store deletion in between.
type Bus struct {
	ViewAdd     FlowSignal
	ViewRemove  FlowSignal
	ViewUpdate  FlowSignal
	ViewRefresh UnitSignal

	StoreRemove  FlowSignal
	StoreRefresh UnitSignal

	// FocusChange fires after the focus cursor moves or clears.
	FocusChange FlowSignal

	// FlowsUpdated batches the flows whose settings were written by one
	// SetValue/ToggleValue call.
	FlowsUpdated BatchSignal
}

// NewBus returns an empty bus.
func NewBus() *Bus { return &Bus{} }
