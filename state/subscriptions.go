package state

import "sync"

// Subscribable is a change source that Subscriptions.Observe can attach to.
type Subscribable interface {
	Subscribe(fn func()) func()
}

// Subscriptions owns a set of store handles so a consumer that subscribes
// in several places can let go of all of them at once, typically when it
// leaves the tree. Callbacks registered through it run on its scheduler,
// or inline when none is set.
type Subscriptions struct {
	mu      sync.Mutex
	handles []func()
	sched   Scheduler
}

// NewSubscriptions creates a Subscriptions that dispatches on scheduler.
func NewSubscriptions(scheduler Scheduler) *Subscriptions {
	return &Subscriptions{sched: scheduler}
}

// SetScheduler changes the scheduler used by later registrations.
func (s *Subscriptions) SetScheduler(scheduler Scheduler) {
	if s == nil {
		return
	}
	s.mu.Lock()
	s.sched = scheduler
	s.mu.Unlock()
}

func (s *Subscriptions) scheduler() Scheduler {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sched
}

// Add takes ownership of an unsubscribe handle.
func (s *Subscriptions) Add(unsubscribe func()) {
	if s == nil || unsubscribe == nil {
		return
	}
	s.mu.Lock()
	s.handles = append(s.handles, unsubscribe)
	s.mu.Unlock()
}

// Len reports how many handles are held.
func (s *Subscriptions) Len() int {
	if s == nil {
		return 0
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.handles)
}

// Observe runs fn after every change of source.
func (s *Subscriptions) Observe(source Subscribable, fn func()) {
	if s == nil || source == nil || fn == nil {
		return
	}
	sched := s.scheduler()
	if r, ok := source.(interface {
		SubscribeWithScheduler(Scheduler, func()) func()
	}); ok {
		s.Add(r.SubscribeWithScheduler(sched, fn))
		return
	}
	s.Add(source.Subscribe(dispatchOn(sched, fn)))
}

// Listen subscribes listener to every transition of store.
func Listen[T any](subs *Subscriptions, store *Store[T], listener Listener[T]) {
	if subs == nil || store == nil || listener == nil {
		return
	}
	sched := subs.scheduler()
	subs.Add(store.Subscribe(func(state, prev *T) {
		dispatchOn(sched, func() { listener(state, prev) })()
	}))
}

// Watch subscribes listener to changes of one slice of store, with the
// same equality and seeding options as SubscribeSelector.
func Watch[T, S any](subs *Subscriptions, store *Store[T], selector Selector[T, S], listener SliceListener[S], opts ...SelectorOption[S]) {
	if subs == nil || store == nil || selector == nil || listener == nil {
		return
	}
	sched := subs.scheduler()
	subs.Add(SubscribeSelector(store, selector, func(slice, prev S) {
		dispatchOn(sched, func() { listener(slice, prev) })()
	}, opts...))
}

// Clear releases every held handle.
func (s *Subscriptions) Clear() {
	if s == nil {
		return
	}
	s.mu.Lock()
	handles := s.handles
	s.handles = nil
	s.mu.Unlock()
	for _, unsubscribe := range handles {
		unsubscribe()
	}
}

func dispatchOn(sched Scheduler, fn func()) func() {
	if sched == nil {
		return fn
	}
	return func() { sched.Schedule(fn) }
}
