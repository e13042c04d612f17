package middleware

import (
	"errors"
	"sync"

	"github.com/odvcencio/furry-store/state"
)

// ErrNotAttached is returned by Dispatch before the dispatcher's middleware
// has been installed on a store.
var ErrNotAttached = errors.New("middleware: dispatcher not attached to a store")

// Reducer computes the next state for an action. Returning state unchanged
// means "no change".
type Reducer[T, A any] func(state *T, action A) *T

// Dispatcher drives a store through a reducer:
//
//	d := middleware.NewDispatcher(reduce)
//	store, _ := state.New(initCounter, state.WithMiddleware(d.Middleware()))
//	_ = d.Dispatch(increment{by: 2})
type Dispatcher[T, A any] struct {
	reducer Reducer[T, A]

	mu    sync.RWMutex
	store *state.Store[T]
}

// NewDispatcher creates a dispatcher for reducer.
func NewDispatcher[T, A any](reducer Reducer[T, A]) *Dispatcher[T, A] {
	return &Dispatcher[T, A]{reducer: reducer}
}

// Middleware attaches the dispatcher to the store it is installed on. It
// does not alter other transitions.
func (d *Dispatcher[T, A]) Middleware() state.Middleware[T] {
	return func(set state.SetFunc[T], _ state.GetFunc[T], api *state.Store[T]) state.SetFunc[T] {
		d.mu.Lock()
		d.store = api
		d.mu.Unlock()
		return set
	}
}

// Store returns the attached store, or nil.
func (d *Dispatcher[T, A]) Store() *state.Store[T] {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.store
}

// Dispatch reduces the current state with action and installs the result
// through the store's full middleware chain.
func (d *Dispatcher[T, A]) Dispatch(action A) error {
	store := d.Store()
	if store == nil {
		return ErrNotAttached
	}
	next := d.reducer(store.GetState(), action)
	return store.SetState(state.Replace(next), true)
}
