package runtime

import (
	"sync/atomic"
	"time"

	"github.com/odvcencio/furry-store/state"
)

// wake posts msg to the loop at most once until the loop rearms it, so a
// burst of store notifications between two frames costs one message.
type wake struct {
	msg   Message
	post  PostFunc
	armed atomic.Bool
}

func (w *wake) fire() {
	if w == nil || w.post == nil {
		return
	}
	if w.armed.CompareAndSwap(false, true) && !w.post(w.msg) {
		w.armed.Store(false)
	}
}

func (w *wake) rearm() {
	if w != nil {
		w.armed.Store(false)
	}
}

// Loop is a handle on an App for code running outside the loop goroutine:
// components receive one through Bind and RenderContext, and goroutines use
// it to get store writes onto the loop. The zero Loop is detached and
// ignores every call.
type Loop struct {
	app *App
}

// Loop returns a handle on a.
func (a *App) Loop() Loop {
	return Loop{app: a}
}

// Attached reports whether l belongs to an App.
func (l Loop) Attached() bool {
	return l.app != nil
}

// Post delivers msg to the loop.
func (l Loop) Post(msg Message) bool {
	if l.app == nil {
		return false
	}
	return l.app.tryPost(msg)
}

// Redraw asks for a frame.
func (l Loop) Redraw() {
	if l.app != nil {
		l.app.Invalidate()
	}
}

// Go runs task for the lifetime of the app.
func (l Loop) Go(task Task) {
	if l.app != nil {
		l.app.Spawn(task)
	}
}

// After posts msg once delay has passed.
func (l Loop) After(delay time.Duration, msg Message) {
	l.Go(After(delay, msg))
}

// Defer runs fn on the loop goroutine after the current message. Writes
// deferred from several goroutines apply in the order they were deferred.
func (l Loop) Defer(fn func()) {
	if l.app == nil || fn == nil {
		return
	}
	l.app.writes.Schedule(fn)
	l.app.flushWake.fire()
}

// Scheduler adapts Defer to state.Scheduler, so listeners registered
// through state.Subscriptions run on the loop.
func (l Loop) Scheduler() state.Scheduler {
	if l.app == nil {
		return nil
	}
	return state.SchedulerFunc(l.Defer)
}

// Redrawing returns a scheduler that runs callbacks inline and then asks
// for a frame. Widgets that cache store values outside hooks use it.
func (l Loop) Redrawing() state.Scheduler {
	if l.app == nil {
		return nil
	}
	return state.SchedulerFunc(func(fn func()) {
		fn()
		l.app.Invalidate()
	})
}
