// Package agent drives a running App through the simulation backend. Tests
// and scripts use it to type keys, wait for text and read back what the
// terminal shows, without a real terminal.
package agent

import (
	"cmp"
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/odvcencio/furry-store/backend"
	"github.com/odvcencio/furry-store/backend/sim"
	"github.com/odvcencio/furry-store/runtime"
)

// Errors returned when the agent cannot drive its app.
var (
	ErrTimeout    = errors.New("agent: operation timed out")
	ErrNoApp      = errors.New("agent: no app configured")
	ErrRunning    = errors.New("agent: app already running")
	ErrNotRunning = errors.New("agent: app not running")
)

// Agent runs an App on a simulation backend and inspects its output.
type Agent struct {
	mu     sync.Mutex
	app    *runtime.App
	screen *sim.Backend
	settle time.Duration
	cancel context.CancelFunc
	done   chan error
}

// Config configures an Agent. The App must have been built on Sim.
type Config struct {
	App *runtime.App
	// Sim defaults to a Width x Height screen, 80x24 unless set.
	Sim           *sim.Backend
	Width, Height int
	// TickRate is the pause Tick takes to let the loop apply posted
	// input and store writes. It defaults to 10ms.
	TickRate time.Duration
}

// New returns an Agent for cfg.App.
func New(cfg Config) *Agent {
	screen := cfg.Sim
	if screen == nil {
		screen = sim.New(cmp.Or(max(cfg.Width, 0), 80), cmp.Or(max(cfg.Height, 0), 24))
	}
	return &Agent{
		app:    cfg.App,
		screen: screen,
		settle: cmp.Or(max(cfg.TickRate, 0), 10*time.Millisecond),
	}
}

// Backend returns the underlying simulation backend.
func (a *Agent) Backend() *sim.Backend {
	if a == nil {
		return nil
	}
	return a.screen
}

// App returns the controlled application.
func (a *Agent) App() *runtime.App {
	if a == nil {
		return nil
	}
	return a.app
}

// Start runs the app in the background and waits for its first frame.
func (a *Agent) Start(ctx context.Context, timeout time.Duration) error {
	if a == nil || a.app == nil {
		return ErrNoApp
	}
	a.mu.Lock()
	if a.done != nil {
		a.mu.Unlock()
		return ErrRunning
	}
	runCtx, cancel := context.WithCancel(ctx)
	done := make(chan error, 1)
	a.cancel = cancel
	a.done = done
	a.mu.Unlock()

	go func() {
		done <- a.app.Run(runCtx)
	}()

	select {
	case <-a.app.Ready():
		return nil
	case err := <-done:
		a.reset()
		if err == nil {
			err = ErrNotRunning
		}
		return err
	case <-time.After(timeout):
		_ = a.Stop()
		return ErrTimeout
	}
}

// Stop quits the app and waits for Run to return. A cancelled context is
// not reported as an error.
func (a *Agent) Stop() error {
	if a == nil {
		return ErrNoApp
	}
	a.mu.Lock()
	cancel, done := a.cancel, a.done
	a.mu.Unlock()
	if done == nil {
		return ErrNotRunning
	}
	a.app.Post(runtime.CommandMsg{Command: runtime.Quit{}})
	var err error
	select {
	case err = <-done:
	case <-time.After(time.Second):
		cancel()
		err = <-done
	}
	cancel()
	a.reset()
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

func (a *Agent) reset() {
	a.mu.Lock()
	a.cancel = nil
	a.done = nil
	a.mu.Unlock()
}

// Tick waits for the UI to process pending events.
func (a *Agent) Tick() {
	if a == nil {
		return
	}
	time.Sleep(a.settle)
}

// Snapshot returns a structured representation of the current UI state.
func (a *Agent) Snapshot() Snapshot {
	if a == nil {
		return Snapshot{}
	}
	snap := Snapshot{
		Timestamp: time.Now(),
	}
	if a.screen != nil {
		snap.Text = a.screen.Capture()
		snap.Width, snap.Height = a.screen.Size()
		snap.Frames = a.screen.Frames()
	}
	if a.app != nil {
		tree := a.app.Tree()
		snap.Mounted = tree.Mounted()
		snap.Renders = tree.Renders()
	}
	return snap
}

// SnapshotJSON returns Snapshot encoded as JSON.
func (a *Agent) SnapshotJSON() ([]byte, error) {
	return json.Marshal(a.Snapshot())
}

// ContainsText checks if the given text appears on screen.
func (a *Agent) ContainsText(text string) bool {
	if a == nil || a.screen == nil {
		return false
	}
	return a.screen.ContainsText(text)
}

// FindText returns the position of text on screen, or (-1, -1) if not found.
func (a *Agent) FindText(text string) (x, y int) {
	if a == nil || a.screen == nil {
		return -1, -1
	}
	return a.screen.FindText(text)
}

// CaptureText returns the raw text content of the screen.
func (a *Agent) CaptureText() string {
	if a == nil || a.screen == nil {
		return ""
	}
	return a.screen.Capture()
}

// WaitFor polls cond every tick until it holds or timeout passes.
func (a *Agent) WaitFor(cond func() bool, timeout time.Duration) error {
	deadline := time.Now().Add(timeout)
	for {
		if cond() {
			return nil
		}
		if time.Now().After(deadline) {
			return ErrTimeout
		}
		a.Tick()
	}
}

// WaitForText waits until text appears on screen.
func (a *Agent) WaitForText(text string, timeout time.Duration) error {
	return a.WaitFor(func() bool { return a.ContainsText(text) }, timeout)
}

// WaitForNoText waits until text is gone from the screen.
func (a *Agent) WaitForNoText(text string, timeout time.Duration) error {
	return a.WaitFor(func() bool { return !a.ContainsText(text) }, timeout)
}

// SendKey injects a key press and waits one tick.
func (a *Agent) SendKey(key backend.Key, r rune) error {
	if a == nil || a.screen == nil {
		return ErrNoApp
	}
	if err := a.screen.InjectKey(key, r); err != nil {
		return err
	}
	a.Tick()
	return nil
}

// Type injects text as rune key presses and waits one tick.
func (a *Agent) Type(text string) error {
	if a == nil || a.screen == nil {
		return ErrNoApp
	}
	if err := a.screen.InjectString(text); err != nil {
		return err
	}
	a.Tick()
	return nil
}

// Resize changes the simulated terminal size and waits one tick.
func (a *Agent) Resize(width, height int) error {
	if a == nil || a.screen == nil {
		return ErrNoApp
	}
	if err := a.screen.Resize(width, height); err != nil {
		return err
	}
	a.Tick()
	return nil
}
