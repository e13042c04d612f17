// Package backend defines the terminal surface the runtime draws on.
package backend

import "github.com/gdamore/tcell/v2"

// Style is a cell style.
type Style = tcell.Style

// DefaultStyle returns the terminal's default style.
func DefaultStyle() Style {
	return tcell.StyleDefault
}

// Cell is one character cell.
type Cell struct {
	Rune  rune
	Style Style
}

// Key identifies a non-rune key.
type Key = tcell.Key

const (
	KeyRune   = tcell.KeyRune
	KeyEnter  = tcell.KeyEnter
	KeyEscape = tcell.KeyEscape
	KeyCtrlC  = tcell.KeyCtrlC
	KeyUp     = tcell.KeyUp
	KeyDown   = tcell.KeyDown
	KeyLeft   = tcell.KeyLeft
	KeyRight  = tcell.KeyRight
)

// Event is an input event from the terminal.
type Event interface {
	isEvent()
}

// KeyEvent is a key press.
type KeyEvent struct {
	Key   Key
	Rune  rune
	Alt   bool
	Ctrl  bool
	Shift bool
}

func (KeyEvent) isEvent() {}

// ResizeEvent reports a new terminal size.
type ResizeEvent struct {
	Width  int
	Height int
}

func (ResizeEvent) isEvent() {}

// Backend is a terminal the runtime renders to.
type Backend interface {
	Init() error
	Fini()
	Size() (width, height int)
	SetContent(x, y int, mainc rune, combc []rune, style Style)
	Show()
	HideCursor()
	// PollEvent blocks for the next event. It returns nil once the backend
	// has been finalized.
	PollEvent() Event
}
