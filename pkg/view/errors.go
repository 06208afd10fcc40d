// pkg/view/errors.go
package view

import "errors"

// Caller-input errors. None are retried internally; every operation that
// returns one leaves the view unchanged.
var (
	// ErrInvalidFilter wraps a filter expression the parser rejected.
	ErrInvalidFilter = errors.New("invalid filter expression")
	// ErrUnknownOrder is returned when an order name is not registered.
	ErrUnknownOrder = errors.New("unknown order")
	// ErrOutOfBounds is returned for offsets outside the current view size.
	ErrOutOfBounds = errors.New("offset out of view bounds")
	// ErrNotInView is returned when an operation needs the flow to be a
	// current view member and it is not.
	ErrNotInView = errors.New("flow not in view")
	// ErrUnknownFlow is returned for settings access on an id the store
	// does not hold.
	ErrUnknownFlow = errors.New("flow not in store")
)
