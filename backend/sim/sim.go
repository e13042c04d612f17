// Package sim provides an in-memory backend for tests and headless agents.
package sim

import (
	"errors"
	"strings"
	"sync"

	"github.com/mattn/go-runewidth"

	"github.com/odvcencio/furry-store/backend"
)

// ErrClosed is returned when injecting into a finalized backend.
var ErrClosed = errors.New("sim: backend closed")

// Backend is an in-memory terminal.
type Backend struct {
	mu     sync.Mutex
	width  int
	height int
	cells  []backend.Cell
	frames int
	events chan backend.Event
	done   chan struct{}
	closed bool
}

var (
	_ backend.Backend    = (*Backend)(nil)
	_ backend.RowWriter  = (*Backend)(nil)
	_ backend.RectWriter = (*Backend)(nil)
)

// New creates a width x height backend.
func New(width, height int) *Backend {
	b := &Backend{
		events: make(chan backend.Event, 64),
		done:   make(chan struct{}),
	}
	b.resize(width, height)
	return b
}

// Init implements backend.Backend.
func (b *Backend) Init() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return ErrClosed
	}
	return nil
}

// Fini implements backend.Backend. PollEvent returns nil afterwards.
func (b *Backend) Fini() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return
	}
	b.closed = true
	close(b.done)
}

// Size implements backend.Backend.
func (b *Backend) Size() (int, int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.width, b.height
}

// SetContent implements backend.Backend.
func (b *Backend) SetContent(x, y int, mainc rune, _ []rune, style backend.Style) {
	b.mu.Lock()
	b.set(x, y, backend.Cell{Rune: mainc, Style: style})
	b.mu.Unlock()
}

// SetRow implements backend.RowWriter.
func (b *Backend) SetRow(y int, startX int, cells []backend.Cell) {
	b.mu.Lock()
	for i, cell := range cells {
		b.set(startX+i, y, cell)
	}
	b.mu.Unlock()
}

// SetRect implements backend.RectWriter.
func (b *Backend) SetRect(x, y, width, height int, cells []backend.Cell) {
	if width <= 0 || height <= 0 || len(cells) < width*height {
		return
	}
	b.mu.Lock()
	for row := 0; row < height; row++ {
		for col := 0; col < width; col++ {
			b.set(x+col, y+row, cells[row*width+col])
		}
	}
	b.mu.Unlock()
}

// Show implements backend.Backend.
func (b *Backend) Show() {
	b.mu.Lock()
	b.frames++
	b.mu.Unlock()
}

// HideCursor implements backend.Backend.
func (b *Backend) HideCursor() {}

// PollEvent implements backend.Backend.
func (b *Backend) PollEvent() backend.Event {
	select {
	case ev := <-b.events:
		return ev
	case <-b.done:
		return nil
	}
}

// Frames reports how many times Show was called.
func (b *Backend) Frames() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.frames
}

// Inject queues an input event.
func (b *Backend) Inject(ev backend.Event) error {
	if ev == nil {
		return nil
	}
	select {
	case <-b.done:
		return ErrClosed
	default:
	}
	select {
	case b.events <- ev:
		return nil
	case <-b.done:
		return ErrClosed
	}
}

// InjectKey queues a key press.
func (b *Backend) InjectKey(key backend.Key, r rune) error {
	return b.Inject(backend.KeyEvent{Key: key, Rune: r})
}

// InjectString queues one rune key press per rune of s.
func (b *Backend) InjectString(s string) error {
	for _, r := range s {
		if err := b.InjectKey(backend.KeyRune, r); err != nil {
			return err
		}
	}
	return nil
}

// Resize changes the terminal size and queues a resize event.
func (b *Backend) Resize(width, height int) error {
	b.mu.Lock()
	b.resize(width, height)
	b.mu.Unlock()
	return b.Inject(backend.ResizeEvent{Width: width, Height: height})
}

// Cell returns the cell at x, y.
func (b *Backend) Cell(x, y int) backend.Cell {
	b.mu.Lock()
	defer b.mu.Unlock()
	if x < 0 || y < 0 || x >= b.width || y >= b.height {
		return backend.Cell{Rune: ' '}
	}
	return b.cells[y*b.width+x]
}

// Capture returns the screen as text, one line per row with trailing
// spaces removed. Wide runes occupy their own cell only.
func (b *Backend) Capture() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	lines := make([]string, b.height)
	var sb strings.Builder
	for y := 0; y < b.height; y++ {
		sb.Reset()
		for x := 0; x < b.width; x++ {
			r := b.cells[y*b.width+x].Rune
			if r == 0 {
				if x > 0 && runewidth.RuneWidth(b.cells[y*b.width+x-1].Rune) == 2 {
					continue
				}
				r = ' '
			}
			sb.WriteRune(r)
		}
		lines[y] = strings.TrimRight(sb.String(), " ")
	}
	return strings.TrimRight(strings.Join(lines, "\n"), "\n")
}

// ContainsText reports whether text appears on any row.
func (b *Backend) ContainsText(text string) bool {
	x, _ := b.FindText(text)
	return x >= 0
}

// FindText returns the column and row of text, or -1, -1.
func (b *Backend) FindText(text string) (x, y int) {
	if text == "" {
		return -1, -1
	}
	for row, line := range strings.Split(b.Capture(), "\n") {
		if idx := strings.Index(line, text); idx >= 0 {
			return runewidth.StringWidth(line[:idx]), row
		}
	}
	return -1, -1
}

func (b *Backend) set(x, y int, cell backend.Cell) {
	if x < 0 || y < 0 || x >= b.width || y >= b.height {
		return
	}
	b.cells[y*b.width+x] = cell
}

func (b *Backend) resize(width, height int) {
	width = max(width, 0)
	height = max(height, 0)
	cells := make([]backend.Cell, width*height)
	for i := range cells {
		cells[i] = backend.Cell{Rune: ' ', Style: backend.DefaultStyle()}
	}
	for y := 0; y < min(height, b.height); y++ {
		for x := 0; x < min(width, b.width); x++ {
			cells[y*width+x] = b.cells[y*b.width+x]
		}
	}
	b.cells = cells
	b.width = width
	b.height = height
}
