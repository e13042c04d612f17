package runtime

import (
	"context"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

// After returns a Task that posts msg once delay has passed.
func After(delay time.Duration, msg Message) Task {
	return Task{Name: "after", Run: func(ctx context.Context, post PostFunc) {
		if msg == nil {
			return
		}
		if delay > 0 {
			timer := time.NewTimer(delay)
			defer timer.Stop()
			select {
			case <-ctx.Done():
				return
			case <-timer.C:
			}
		}
		post(msg)
	}}
}

// Every returns a Task that calls fn on each tick and posts the message it
// returns. A nil message posts nothing.
func Every(interval time.Duration, fn func(time.Time) Message) Task {
	return Task{Name: "every", Run: func(ctx context.Context, post PostFunc) {
		if interval <= 0 || fn == nil {
			return
		}
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case now := <-ticker.C:
				if msg := fn(now); msg != nil {
					post(msg)
				}
			}
		}
	}}
}

// tasks runs Tasks for the lifetime of one App.Run. Tasks spawned while
// the app is not running wait for the next Run.
type tasks struct {
	post   PostFunc
	logger *logrus.Entry

	mu      sync.Mutex
	ctx     context.Context
	cancel  context.CancelFunc
	waiting []Task
}

func (g *tasks) start(parent context.Context) {
	ctx, cancel := context.WithCancel(parent)
	g.mu.Lock()
	g.ctx, g.cancel = ctx, cancel
	waiting := g.waiting
	g.waiting = nil
	g.mu.Unlock()
	for _, task := range waiting {
		g.launch(ctx, task)
	}
}

func (g *tasks) spawn(task Task) {
	if task.Run == nil {
		return
	}
	g.mu.Lock()
	ctx := g.ctx
	if ctx == nil {
		g.waiting = append(g.waiting, task)
	}
	g.mu.Unlock()
	if ctx != nil {
		g.launch(ctx, task)
	}
}

func (g *tasks) launch(ctx context.Context, task Task) {
	name := task.Name
	if name == "" {
		name = "task"
	}
	log := g.logger.WithField("task", name)
	go func() {
		log.Trace("task started")
		task.Run(ctx, g.post)
		log.Trace("task finished")
	}()
}

// interrupt cancels running tasks. Tasks spawned afterwards in the same
// Run see a cancelled context.
func (g *tasks) interrupt() {
	g.mu.Lock()
	cancel := g.cancel
	g.mu.Unlock()
	if cancel != nil {
		cancel()
	}
}

func (g *tasks) stop() {
	g.interrupt()
	g.mu.Lock()
	g.ctx, g.cancel = nil, nil
	g.mu.Unlock()
}
