package hooks

import (
	"sync"

	"github.com/odvcencio/furry-store/state"
)

// snapshot is what one render used: the store, the selector, the equality
// function and the slice it returned.
type snapshot[T, S any] struct {
	store    *state.Store[T]
	selector state.Selector[T, S]
	equal    state.EqualFunc[S] // nil means state.Is
	slice    S
}

func (s snapshot[T, S]) same(a, b S) bool {
	if s.equal == nil {
		return state.Is(a, b)
	}
	return s.equal(a, b)
}

// binding is the per-consumer record behind UseStore. rendered is written by
// every render; committed is promoted from it when a render commits, so a
// render that never commits leaves the live subscription alone.
type binding[T, S any] struct {
	scope *Scope

	mu          sync.Mutex
	rendered    snapshot[T, S]
	committed   snapshot[T, S]
	unsubscribe func()
	generation  int
	released    bool
}

func newBinding[T, S any](scope *Scope) *binding[T, S] {
	b := &binding[T, S]{scope: scope}
	scope.OnCleanup(b.release)
	return b
}

func (b *binding[T, S]) render(store *state.Store[T], selector state.Selector[T, S], equal state.EqualFunc[S]) S {
	var slice S
	if store != nil {
		slice = selector(store.GetState())
	}
	b.mu.Lock()
	b.rendered = snapshot[T, S]{store: store, selector: selector, equal: equal, slice: slice}
	b.mu.Unlock()
	b.scope.scheduleEffect(b.commit)
	return slice
}

// commit runs in the effect phase of a committed render. It swaps the
// subscription when the store, selector or equality changed identity, then
// re-checks the store in case it moved between render and commit. After
// such a drift the subscription is seeded again with the slice the store
// holds now, so its memo matches what the forced re-render will show.
func (b *binding[T, S]) commit() {
	b.mu.Lock()
	if b.released {
		b.mu.Unlock()
		return
	}
	next := b.rendered
	prev := b.committed
	resubscribe := b.unsubscribe == nil ||
		next.store != prev.store ||
		!state.SameFunc(next.selector, prev.selector) ||
		!state.SameFunc(next.equal, prev.equal)
	var stale func()
	if resubscribe {
		stale = b.unsubscribe
		b.unsubscribe = nil
	}
	b.committed = next
	b.mu.Unlock()

	if stale != nil {
		stale()
	}
	if next.store == nil {
		return
	}
	if resubscribe && !b.subscribe(next, next.slice) {
		return
	}
	if current := next.selector(next.store.GetState()); !next.same(next.slice, current) {
		if b.subscribe(next, current) {
			b.invalidate()
		}
	}
}

// subscribe replaces the live subscription with one seeded with slice. It
// reports false when the binding was released meanwhile.
func (b *binding[T, S]) subscribe(snap snapshot[T, S], slice S) bool {
	opts := []state.SelectorOption[S]{state.WithCurrentSlice(slice)}
	if snap.equal != nil {
		opts = append(opts, state.WithEqual(snap.equal))
	}
	unsub := state.SubscribeSelector(snap.store, snap.selector, b.changed, opts...)
	b.mu.Lock()
	if b.released {
		b.mu.Unlock()
		unsub()
		return false
	}
	old := b.unsubscribe
	b.unsubscribe = unsub
	b.generation++
	b.mu.Unlock()
	if old != nil {
		old()
	}
	return true
}

// changed runs when the selector subscription reports a new slice.
func (b *binding[T, S]) changed(_, _ S) {
	b.mu.Lock()
	released := b.released
	b.mu.Unlock()
	if !released {
		b.invalidate()
	}
}

func (b *binding[T, S]) invalidate() {
	b.scope.ForceUpdate()
}

func (b *binding[T, S]) release() {
	b.mu.Lock()
	if b.released {
		b.mu.Unlock()
		return
	}
	b.released = true
	unsub := b.unsubscribe
	b.unsubscribe = nil
	b.mu.Unlock()
	if unsub != nil {
		unsub()
	}
}

// UseStore reads selector's slice of store during render and keeps the
// consumer subscribed to it once the render commits. The consumer is asked
// to render again whenever the slice changes under equal (state.Is when
// omitted).
//
// Changing store, selector or equal between renders swaps the subscription
// at the next commit. Pass stable function values to avoid that churn.
func UseStore[T, S any](scope *Scope, store *state.Store[T], selector state.Selector[T, S], equal ...state.EqualFunc[S]) S {
	if selector == nil {
		panic("hooks: nil selector")
	}
	b := useSlot(scope, func() *binding[T, S] { return newBinding[T, S](scope) })
	var eq state.EqualFunc[S]
	if len(equal) > 0 {
		eq = equal[0]
	}
	return b.render(store, selector, eq)
}
