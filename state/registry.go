package state

import "sync/atomic"

// listener is one registry entry. active flips to false on removal so a
// notification pass that snapshotted the entry skips it if it has not been
// dispatched yet.
type listener[T any] struct {
	id     uint64
	notify func(state, prev *T)
	active atomic.Bool
}

// registry keeps listeners in registration order.
// It is not safe for concurrent use; Store guards it with its mutex.
type registry[T any] struct {
	entries []*listener[T]
	next    uint64
}

func (r *registry[T]) add(fn func(state, prev *T)) *listener[T] {
	l := &listener[T]{id: r.next, notify: fn}
	r.next++
	l.active.Store(true)
	r.entries = append(r.entries, l)
	return l
}

func (r *registry[T]) remove(l *listener[T]) bool {
	if l == nil || !l.active.CompareAndSwap(true, false) {
		return false
	}
	for i, entry := range r.entries {
		if entry == l {
			r.entries = append(r.entries[:i:i], r.entries[i+1:]...)
			return true
		}
	}
	return false
}

// snapshot copies the current entries so reentrant add/remove during a
// notification pass cannot disturb the iteration.
func (r *registry[T]) snapshot() []*listener[T] {
	if len(r.entries) == 0 {
		return nil
	}
	out := make([]*listener[T], len(r.entries))
	copy(out, r.entries)
	return out
}

func (r *registry[T]) clear() {
	for _, entry := range r.entries {
		entry.active.Store(false)
	}
	r.entries = nil
}

func (r *registry[T]) len() int {
	return len(r.entries)
}
