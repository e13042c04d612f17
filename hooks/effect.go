package hooks

import "sync"

// UseRef returns a pointer whose value lives as long as the scope. init
// builds the value on the first render; a nil init leaves the zero value.
func UseRef[V any](scope *Scope, init func() V) *V {
	return useSlot(scope, func() *V {
		var v V
		if init != nil {
			v = init()
		}
		return &v
	})
}

type effectSlot struct {
	mu      sync.Mutex
	ran     bool
	cleanup func()
}

func (e *effectSlot) run(setup func() func()) {
	e.mu.Lock()
	if e.ran {
		e.mu.Unlock()
		return
	}
	e.ran = true
	e.mu.Unlock()
	cleanup := setup()
	e.mu.Lock()
	e.cleanup = cleanup
	e.mu.Unlock()
}

func (e *effectSlot) release() {
	e.mu.Lock()
	cleanup := e.cleanup
	e.cleanup = nil
	e.mu.Unlock()
	if cleanup != nil {
		cleanup()
	}
}

// UseEffect runs setup once, when the first render that reaches commit is
// committed. The function setup returns, if any, runs on unmount.
func UseEffect(scope *Scope, setup func() func()) {
	slot := useSlot(scope, func() *effectSlot {
		e := &effectSlot{}
		scope.OnCleanup(e.release)
		return e
	})
	if setup == nil {
		return
	}
	slot.mu.Lock()
	ran := slot.ran
	slot.mu.Unlock()
	if ran {
		return
	}
	scope.scheduleEffect(func() { slot.run(setup) })
}
