// Package scoped provides stores that live with a subtree of components
// instead of at package scope.
//
// A Context describes how to build a store. Its Provider component builds
// one store per mounted instance, exposes it to the components below it and
// destroys it on unmount. Descendants reach the nearest provider's store
// through Select, UseState and UseStoreAPI:
//
//	var Counter = scoped.New(newCounter)
//
//	root := Counter.Provider(view)
//	...
//	count, err := scoped.Select(ctx.Scope, Counter, selectCount)
package scoped

import (
	"errors"
	"fmt"

	"github.com/odvcencio/furry-store/hooks"
	"github.com/odvcencio/furry-store/state"
)

// ErrNoProvider is returned when a consumer has no provider above it.
var ErrNoProvider = errors.New("scoped: no provider above this component")

// Context builds a store for each provider instance.
type Context[T any] struct {
	name     string
	init     state.Initializer[T]
	opts     []state.Option[T]
	key      *contextKey
	identity state.Selector[T, *T]
}

type contextKey struct {
	name string
}

type entry[T any] struct {
	store *state.Store[T]
	err   error
}

// New creates a context whose providers build stores from init.
func New[T any](init state.Initializer[T], opts ...state.Option[T]) *Context[T] {
	name := fmt.Sprintf("%T", *new(T))
	return &Context[T]{
		name:     name,
		init:     init,
		opts:     opts,
		key:      &contextKey{name: name},
		identity: func(s *T) *T { return s },
	}
}

// Name returns the state type name used in errors.
func (c *Context[T]) Name() string {
	return c.name
}

// lookup finds the store of the nearest provider above scope.
func (c *Context[T]) lookup(scope *hooks.Scope) (*state.Store[T], error) {
	value, ok := scope.Lookup(c.key)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNoProvider, c.name)
	}
	e := value.(*entry[T])
	if e.err != nil {
		return nil, e.err
	}
	return e.store, nil
}

// UseStoreAPI returns the nearest provider's store.
func UseStoreAPI[T any](scope *hooks.Scope, c *Context[T]) (*state.Store[T], error) {
	return c.lookup(scope)
}

// Select returns selector's slice of the nearest provider's store and keeps
// the consumer subscribed like hooks.UseStore.
func Select[T, S any](scope *hooks.Scope, c *Context[T], selector state.Selector[T, S], equal ...state.EqualFunc[S]) (S, error) {
	store, err := c.lookup(scope)
	if err != nil {
		var zero S
		return zero, err
	}
	return hooks.UseStore(scope, store, selector, equal...), nil
}

// UseState returns the nearest provider's whole state and re-renders the
// consumer on every transition.
func UseState[T any](scope *hooks.Scope, c *Context[T]) (*T, error) {
	return Select(scope, c, c.identity)
}
