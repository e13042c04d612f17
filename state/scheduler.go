package state

import "sync"

// Scheduler decides where a callback runs. Stores always notify on the
// goroutine that changed them; a Scheduler moves the work elsewhere,
// usually onto a UI loop.
type Scheduler interface {
	Schedule(fn func())
}

// SchedulerFunc adapts a function into a Scheduler.
type SchedulerFunc func(func())

// Schedule hands fn to f.
func (f SchedulerFunc) Schedule(fn func()) {
	if f != nil && fn != nil {
		f(fn)
	}
}

// Inline runs callbacks on the notifying goroutine.
var Inline Scheduler = SchedulerFunc(func(fn func()) { fn() })

// Queue holds callbacks until someone flushes it. The runtime keeps commit
// effects in one and writes handed over by other goroutines in another.
type Queue struct {
	mu    sync.Mutex
	items []func()
	spare []func()
}

// NewQueue creates an empty queue.
func NewQueue() *Queue {
	return &Queue{}
}

// Schedule appends fn.
func (q *Queue) Schedule(fn func()) {
	if q == nil || fn == nil {
		return
	}
	q.mu.Lock()
	q.items = append(q.items, fn)
	q.mu.Unlock()
}

// Len reports how many callbacks wait for the next Flush.
func (q *Queue) Len() int {
	if q == nil {
		return 0
	}
	q.mu.Lock()
	n := len(q.items)
	q.mu.Unlock()
	return n
}

// Flush runs the callbacks queued so far, oldest first, and returns how
// many ran. Anything they queue waits for the next Flush.
func (q *Queue) Flush() int {
	if q == nil {
		return 0
	}
	q.mu.Lock()
	batch := q.items
	q.items = q.spare[:0]
	q.spare = nil
	q.mu.Unlock()

	for i, fn := range batch {
		batch[i] = nil
		fn()
	}

	q.mu.Lock()
	if q.spare == nil {
		q.spare = batch[:0]
	}
	q.mu.Unlock()
	return len(batch)
}

// Drain flushes until the queue stays empty or passes flushes have run,
// and returns the total number of callbacks run.
func (q *Queue) Drain(passes int) int {
	total := 0
	for i := 0; i < passes && q.Len() > 0; i++ {
		total += q.Flush()
	}
	return total
}
