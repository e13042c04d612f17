package state

import "sync"

// Readable is a read-only value that announces its changes. Widgets render
// one without knowing the store type behind it.
type Readable[T any] interface {
	Get() T
	Subscribe(fn func()) func()
	SubscribeWithScheduler(scheduler Scheduler, fn func()) func()
}

// Derived is a long-lived view of one slice of a store. It holds a single
// selector subscription on the source and republishes changed slices to
// its own subscribers.
type Derived[T, S any] struct {
	view *Store[S]
	mu   sync.Mutex
	stop func()
}

// Select creates a Derived view of source. The slice is computed
// immediately; later transitions update it only when the equality check
// reports a change.
func Select[T, S any](source *Store[T], selector Selector[T, S], opts ...SelectorOption[S]) *Derived[T, S] {
	d := &Derived[T, S]{}
	var initial S
	if source != nil && selector != nil {
		initial = selector(source.GetState())
	}
	d.view = MustNew(func(SetFunc[S], GetFunc[S], *Store[S]) (*S, error) {
		return &initial, nil
	}, WithName[S](sourceName(source)+".derived"))
	if source == nil || selector == nil {
		d.stop = func() {}
		return d
	}
	seeded := append([]SelectorOption[S]{WithCurrentSlice(initial)}, opts...)
	d.stop = SubscribeSelector(source, selector, func(slice, _ S) {
		next := slice
		_ = d.view.SetState(Replace(&next), true)
	}, seeded...)
	return d
}

// Get returns the current slice.
func (d *Derived[T, S]) Get() S {
	if d == nil {
		var zero S
		return zero
	}
	return *d.view.GetState()
}

// Subscribe registers a listener for slice changes.
func (d *Derived[T, S]) Subscribe(fn func()) func() {
	return d.SubscribeWithScheduler(nil, fn)
}

// SubscribeWithScheduler registers a listener using a scheduler.
// If scheduler is nil, callbacks run synchronously.
func (d *Derived[T, S]) SubscribeWithScheduler(scheduler Scheduler, fn func()) func() {
	if d == nil || fn == nil {
		return func() {}
	}
	return d.view.Subscribe(func(_, _ *S) {
		if scheduler == nil {
			fn()
			return
		}
		scheduler.Schedule(fn)
	})
}

// Stop detaches the view from its source and drops its subscribers.
func (d *Derived[T, S]) Stop() {
	if d == nil {
		return
	}
	d.mu.Lock()
	stop := d.stop
	d.stop = nil
	d.mu.Unlock()
	if stop != nil {
		stop()
		d.view.Destroy()
	}
}

func sourceName[T any](s *Store[T]) string {
	if s == nil {
		return "nil"
	}
	return s.Name()
}
