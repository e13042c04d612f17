package state

import "sync"

// Selector derives a slice from the state.
type Selector[T, S any] func(state *T) S

// SliceListener receives a changed slice and the slice it replaced.
type SliceListener[S any] func(slice, prev S)

// SelectorOption configures SubscribeSelector.
type SelectorOption[S any] func(*selectorConfig[S])

type selectorConfig[S any] struct {
	equal   EqualFunc[S]
	current S
	seeded  bool
}

// WithEqual sets the equality function deciding whether a slice changed.
// The default is Is.
func WithEqual[S any](equal EqualFunc[S]) SelectorOption[S] {
	return func(c *selectorConfig[S]) {
		if equal != nil {
			c.equal = equal
		}
	}
}

// WithCurrentSlice seeds the memoized slice. Use it when the caller already
// holds the slice for the current state, e.g. one computed during render.
func WithCurrentSlice[S any](current S) SelectorOption[S] {
	return func(c *selectorConfig[S]) {
		c.current = current
		c.seeded = true
	}
}

// SubscribeSelector registers listener for changes of selector's slice.
// On each transition the selector runs against the live state; the listener
// fires only when the result differs from the memoized slice.
//
// Panics raised by selector or the equality function propagate out of the
// SetState call that triggered the transition.
func SubscribeSelector[T, S any](s *Store[T], selector Selector[T, S], listener SliceListener[S], opts ...SelectorOption[S]) func() {
	if s == nil || selector == nil || listener == nil {
		return func() {}
	}
	cfg := selectorConfig[S]{equal: Is[S]}
	for _, opt := range opts {
		if opt != nil {
			opt(&cfg)
		}
	}
	if !cfg.seeded {
		cfg.current = selector(s.GetState())
	}

	var mu sync.Mutex
	current := cfg.current
	equal := cfg.equal
	return s.subscribe(func(state, _ *T) {
		next := selector(state)
		mu.Lock()
		memo := current
		mu.Unlock()
		if equal(memo, next) {
			return
		}
		mu.Lock()
		prev := current
		current = next
		mu.Unlock()
		listener(next, prev)
	})
}
