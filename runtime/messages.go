package runtime

import (
	"time"

	"github.com/odvcencio/furry-store/backend"
)

// Message is an event flowing into the app loop from input, timers or
// background goroutines.
type Message interface {
	isMessage()
}

// KeyMsg is a key press.
type KeyMsg struct {
	Key   backend.Key
	Rune  rune
	Alt   bool
	Ctrl  bool
	Shift bool
}

func (KeyMsg) isMessage() {}

// ResizeMsg reports a new terminal size.
type ResizeMsg struct {
	Width  int
	Height int
}

func (ResizeMsg) isMessage() {}

// TickMsg is posted on every frame tick.
type TickMsg struct {
	Time time.Time
}

func (TickMsg) isMessage() {}

// InvalidateMsg asks for a full frame.
type InvalidateMsg struct{}

func (InvalidateMsg) isMessage() {}

// CustomMsg carries an application value through the loop.
type CustomMsg struct {
	Value any
}

func (CustomMsg) isMessage() {}

// CommandMsg runs a command on the app loop. Goroutines outside the loop
// use it to quit or refresh the app.
type CommandMsg struct {
	Command Command
}

func (CommandMsg) isMessage() {}

// flushMsg wakes the loop to apply writes handed over through Loop.Defer.
type flushMsg struct{}

func (flushMsg) isMessage() {}

// dirtyMsg wakes the loop for a partial frame after mounted components
// asked for an update.
type dirtyMsg struct{}

func (dirtyMsg) isMessage() {}
