package hooks

import "github.com/odvcencio/furry-store/state"

// Hook binds consumers to one store.
type Hook[T any] struct {
	store    *state.Store[T]
	identity state.Selector[T, *T]
}

// Bind wraps an existing store.
func Bind[T any](store *state.Store[T]) *Hook[T] {
	return &Hook[T]{
		store:    store,
		identity: func(s *T) *T { return s },
	}
}

// Create builds a store from init and returns both the hook and the store
// API. The store lives until the caller destroys it.
func Create[T any](init state.Initializer[T], opts ...state.Option[T]) (*Hook[T], *state.Store[T], error) {
	store, err := state.New(init, opts...)
	if err != nil {
		return nil, nil, err
	}
	return Bind(store), store, nil
}

// MustCreate is like Create but panics on error. It suits package-level
// hooks:
//
//	var useCounter, counterStore = hooks.MustCreate(newCounter)
func MustCreate[T any](init state.Initializer[T], opts ...state.Option[T]) (*Hook[T], *state.Store[T]) {
	hook, store, err := Create(init, opts...)
	if err != nil {
		panic(err)
	}
	return hook, store
}

// Store returns the store API.
func (h *Hook[T]) Store() *state.Store[T] {
	if h == nil {
		return nil
	}
	return h.store
}

// Use returns the whole state and re-renders the consumer on every
// transition.
func (h *Hook[T]) Use(scope *Scope) *T {
	return UseStore(scope, h.Store(), h.identity)
}

// Select returns selector's slice of the hook's store. See UseStore.
func Select[T, S any](scope *Scope, hook *Hook[T], selector state.Selector[T, S], equal ...state.EqualFunc[S]) S {
	return UseStore(scope, hook.Store(), selector, equal...)
}
