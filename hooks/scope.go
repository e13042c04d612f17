// Package hooks binds store subscriptions to the render lifecycle of a
// consumer.
//
// A host (see package runtime) owns one Scope per mounted consumer and
// drives it through render, commit and unmount:
//
//	scope.BeginRender()
//	count := hooks.Select(scope, useCounter, func(s *Counter) int { return s.Count })
//	scope.EndRender() // hands the commit effect to Host.ScheduleEffect
//	...
//	scope.Unmount()
//
// Hooks are identified by call order, so a consumer must call the same hooks
// in the same order on every render.
package hooks

import (
	"errors"
	"fmt"
	"sync"
)

var (
	// ErrUnmounted is the panic value when rendering an unmounted scope.
	ErrUnmounted = errors.New("hooks: scope is unmounted")
	// ErrOutsideRender is the panic value when a hook runs outside a render.
	ErrOutsideRender = errors.New("hooks: hook called outside render")
	// ErrHookOrder is the panic value when hook order changes between renders.
	ErrHookOrder = errors.New("hooks: hook order changed between renders")
)

// Host is the part of the rendering framework a Scope needs.
type Host interface {
	// ScheduleEffect runs fn after the current render has been committed.
	ScheduleEffect(fn func())
	// ForceUpdate requests a new render of the consumer.
	ForceUpdate()
}

// Phase is the lifecycle state of a Scope.
type Phase int

const (
	// PhaseIdle is a scope that has never rendered.
	PhaseIdle Phase = iota
	// PhaseRendering is a scope whose latest render is not committed yet.
	PhaseRendering
	// PhaseCommitted is a scope whose latest render has been committed.
	PhaseCommitted
	// PhaseUnmounted is terminal.
	PhaseUnmounted
)

// String returns the phase name.
func (p Phase) String() string {
	switch p {
	case PhaseIdle:
		return "idle"
	case PhaseRendering:
		return "rendering"
	case PhaseCommitted:
		return "committed"
	case PhaseUnmounted:
		return "unmounted"
	default:
		return fmt.Sprintf("Phase(%d)", int(p))
	}
}

// Scope holds hook state for one consumer instance.
type Scope struct {
	mu       sync.Mutex
	host     Host
	parent   *Scope
	phase    Phase
	render   uint64
	slots    []any
	slot     int
	effects  []func()
	cleanups []func()
	values   map[any]any
}

// NewScope creates a scope driven by host. parent links context lookups;
// it may be nil.
func NewScope(host Host, parent *Scope) *Scope {
	return &Scope{host: host, parent: parent}
}

// Parent returns the enclosing scope.
func (s *Scope) Parent() *Scope {
	if s == nil {
		return nil
	}
	return s.parent
}

// Phase returns the current lifecycle phase.
func (s *Scope) Phase() Phase {
	if s == nil {
		return PhaseUnmounted
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.phase
}

// BeginRender starts a render pass. A render that is never ended is
// discarded; its hooks leave the committed subscriptions untouched.
func (s *Scope) BeginRender() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.phase == PhaseUnmounted {
		panic(ErrUnmounted)
	}
	s.phase = PhaseRendering
	s.render++
	s.slot = 0
	s.effects = nil
}

// EndRender finishes the render pass and schedules its commit with the
// host. Without a host the commit runs immediately.
func (s *Scope) EndRender() {
	s.mu.Lock()
	if s.phase != PhaseRendering {
		s.mu.Unlock()
		return
	}
	gen := s.render
	effects := s.effects
	s.effects = nil
	host := s.host
	s.mu.Unlock()

	commit := func() { s.commit(gen, effects) }
	if host == nil {
		commit()
		return
	}
	host.ScheduleEffect(commit)
}

// Render runs fn between BeginRender and EndRender.
func (s *Scope) Render(fn func()) {
	s.BeginRender()
	defer s.EndRender()
	if fn != nil {
		fn()
	}
}

// commit runs the effects of render gen unless a newer render has started
// or the scope is gone.
func (s *Scope) commit(gen uint64, effects []func()) {
	s.mu.Lock()
	if s.phase == PhaseUnmounted || gen != s.render {
		s.mu.Unlock()
		return
	}
	s.phase = PhaseCommitted
	s.mu.Unlock()
	for _, fn := range effects {
		fn()
	}
}

// Unmount runs cleanups in reverse registration order. It is terminal and
// idempotent.
func (s *Scope) Unmount() {
	if s == nil {
		return
	}
	s.mu.Lock()
	if s.phase == PhaseUnmounted {
		s.mu.Unlock()
		return
	}
	s.phase = PhaseUnmounted
	cleanups := s.cleanups
	s.cleanups = nil
	s.slots = nil
	s.effects = nil
	s.mu.Unlock()
	for i := len(cleanups) - 1; i >= 0; i-- {
		cleanups[i]()
	}
}

// OnCleanup registers fn to run on unmount. On an unmounted scope fn runs
// immediately.
func (s *Scope) OnCleanup(fn func()) {
	if fn == nil {
		return
	}
	s.mu.Lock()
	if s.phase == PhaseUnmounted {
		s.mu.Unlock()
		fn()
		return
	}
	s.cleanups = append(s.cleanups, fn)
	s.mu.Unlock()
}

// Provide stores a context value visible to this scope and its descendants.
func (s *Scope) Provide(key, value any) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.values == nil {
		s.values = make(map[any]any)
	}
	s.values[key] = value
}

// Lookup finds the nearest value for key, starting at this scope.
func (s *Scope) Lookup(key any) (any, bool) {
	for cur := s; cur != nil; cur = cur.parent {
		cur.mu.Lock()
		value, ok := cur.values[key]
		cur.mu.Unlock()
		if ok {
			return value, true
		}
	}
	return nil, false
}

// ForceUpdate asks the host to render this scope again.
func (s *Scope) ForceUpdate() {
	s.mu.Lock()
	host := s.host
	gone := s.phase == PhaseUnmounted
	s.mu.Unlock()
	if gone || host == nil {
		return
	}
	host.ForceUpdate()
}

// useSlot returns the hook slot for the next hook call in this render.
// init builds the slot value on first use.
func useSlot[V any](s *Scope, init func() V) V {
	if s == nil {
		panic(ErrOutsideRender)
	}
	s.mu.Lock()
	if s.phase != PhaseRendering {
		phase := s.phase
		s.mu.Unlock()
		if phase == PhaseUnmounted {
			panic(ErrUnmounted)
		}
		panic(ErrOutsideRender)
	}
	idx := s.slot
	s.slot++
	if idx < len(s.slots) {
		existing := s.slots[idx]
		s.mu.Unlock()
		v, ok := existing.(V)
		if !ok {
			panic(fmt.Errorf("%w: slot %d holds %T", ErrHookOrder, idx, existing))
		}
		return v
	}
	s.mu.Unlock()

	v := init()
	s.mu.Lock()
	s.slots = append(s.slots, v)
	s.mu.Unlock()
	return v
}

// scheduleEffect queues fn to run when the current render commits.
func (s *Scope) scheduleEffect(fn func()) {
	s.mu.Lock()
	s.effects = append(s.effects, fn)
	s.mu.Unlock()
}
