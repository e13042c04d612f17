// Package tcell adapts a tcell screen to backend.Backend.
package tcell

import (
	"fmt"

	"github.com/gdamore/tcell/v2"

	"github.com/odvcencio/furry-store/backend"
)

// Backend renders to a real terminal through tcell.
type Backend struct {
	screen tcell.Screen
}

var (
	_ backend.Backend   = (*Backend)(nil)
	_ backend.RowWriter = (*Backend)(nil)
)

// New creates a backend for the controlling terminal.
func New() (*Backend, error) {
	screen, err := tcell.NewScreen()
	if err != nil {
		return nil, fmt.Errorf("tcell: new screen: %w", err)
	}
	return &Backend{screen: screen}, nil
}

// NewWithScreen wraps an existing screen.
func NewWithScreen(screen tcell.Screen) *Backend {
	return &Backend{screen: screen}
}

// Init implements backend.Backend.
func (b *Backend) Init() error {
	if err := b.screen.Init(); err != nil {
		return fmt.Errorf("tcell: init: %w", err)
	}
	b.screen.Clear()
	return nil
}

// Fini implements backend.Backend.
func (b *Backend) Fini() {
	b.screen.Fini()
}

// Size implements backend.Backend.
func (b *Backend) Size() (int, int) {
	return b.screen.Size()
}

// SetContent implements backend.Backend.
func (b *Backend) SetContent(x, y int, mainc rune, combc []rune, style backend.Style) {
	b.screen.SetContent(x, y, mainc, combc, style)
}

// SetRow implements backend.RowWriter.
func (b *Backend) SetRow(y int, startX int, cells []backend.Cell) {
	for i, cell := range cells {
		if cell.Rune == 0 {
			continue
		}
		b.screen.SetContent(startX+i, y, cell.Rune, nil, cell.Style)
	}
}

// Show implements backend.Backend.
func (b *Backend) Show() {
	b.screen.Show()
}

// HideCursor implements backend.Backend.
func (b *Backend) HideCursor() {
	b.screen.HideCursor()
}

// PollEvent implements backend.Backend. Events the runtime does not model
// are skipped.
func (b *Backend) PollEvent() backend.Event {
	for {
		ev := b.screen.PollEvent()
		if ev == nil {
			return nil
		}
		if converted := convert(ev); converted != nil {
			return converted
		}
	}
}

func convert(ev tcell.Event) backend.Event {
	switch e := ev.(type) {
	case *tcell.EventKey:
		mod := e.Modifiers()
		return backend.KeyEvent{
			Key:   e.Key(),
			Rune:  e.Rune(),
			Alt:   mod&tcell.ModAlt != 0,
			Ctrl:  mod&tcell.ModCtrl != 0,
			Shift: mod&tcell.ModShift != 0,
		}
	case *tcell.EventResize:
		w, h := e.Size()
		return backend.ResizeEvent{Width: w, Height: h}
	default:
		return nil
	}
}
