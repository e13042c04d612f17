package runtime

import (
	"strings"

	"github.com/mattn/go-runewidth"

	"github.com/odvcencio/furry-store/backend"
)

// Cell represents a single character cell in the buffer.
type Cell = backend.Cell

// Buffer is the cell grid components draw into during a render pass. It
// tracks which cells changed so the app only flushes those to the backend.
// A wide rune occupies two cells; the second holds rune 0.
type Buffer struct {
	cells  []Cell
	width  int
	height int

	dirty      []bool
	dirtyAll   bool
	dirtyCount int
	dirtyRect  Rect
}

// NewBuffer creates a buffer with the given dimensions.
func NewBuffer(w, h int) *Buffer {
	b := &Buffer{}
	b.Resize(w, h)
	return b
}

// Size returns the buffer dimensions.
func (b *Buffer) Size() (w, h int) {
	return b.width, b.height
}

// Resize changes the buffer dimensions, preserving content where possible.
func (b *Buffer) Resize(w, h int) {
	w, h = max(w, 0), max(h, 0)
	if w == b.width && h == b.height && b.cells != nil {
		return
	}
	cells := make([]Cell, w*h)
	for i := range cells {
		cells[i] = Cell{Rune: ' ', Style: backend.DefaultStyle()}
	}
	for y := 0; y < min(h, b.height); y++ {
		copy(cells[y*w:y*w+min(w, b.width)], b.cells[y*b.width:])
	}
	b.cells = cells
	b.dirty = make([]bool, w*h)
	b.width = w
	b.height = h
	b.MarkAllDirty()
}

// Clear fills the buffer with spaces in the default style.
func (b *Buffer) Clear() {
	b.Fill(Rect{0, 0, b.width, b.height}, ' ', backend.DefaultStyle())
}

// Get returns the cell at x, y, or a blank cell when out of bounds.
func (b *Buffer) Get(x, y int) Cell {
	if x < 0 || x >= b.width || y < 0 || y >= b.height {
		return Cell{Rune: ' '}
	}
	return b.cells[y*b.width+x]
}

// Set writes a rune at x, y. Out-of-bounds writes are dropped.
func (b *Buffer) Set(x, y int, r rune, s backend.Style) {
	if x < 0 || x >= b.width || y < 0 || y >= b.height {
		return
	}
	idx := y*b.width + x
	cell := Cell{Rune: r, Style: s}
	if b.cells[idx] != cell {
		b.cells[idx] = cell
		b.markDirty(x, y, idx)
	}
}

// SetString writes s starting at x, y and returns the number of columns
// used. Text is clipped at the right edge; a wide rune that does not fit is
// dropped.
func (b *Buffer) SetString(x, y int, s string, style backend.Style) int {
	return b.setString(x, y, s, style, b.width)
}

func (b *Buffer) setString(x, y int, s string, style backend.Style, limit int) int {
	if y < 0 || y >= b.height {
		return 0
	}
	limit = min(limit, b.width)
	col := x
	for _, r := range s {
		w := runewidth.RuneWidth(r)
		if w == 0 {
			continue
		}
		if col+w > limit {
			break
		}
		if col >= 0 {
			b.Set(col, y, r, style)
			if w == 2 {
				b.Set(col+1, y, 0, style)
			}
		}
		col += w
	}
	return col - x
}

// Fill fills r with ch.
func (b *Buffer) Fill(r Rect, ch rune, s backend.Style) {
	clipped := r.Intersection(Rect{0, 0, b.width, b.height})
	for y := clipped.Y; y < clipped.Y+clipped.Height; y++ {
		for x := clipped.X; x < clipped.X+clipped.Width; x++ {
			b.Set(x, y, ch, s)
		}
	}
}

// DrawBox draws a rounded border around r.
func (b *Buffer) DrawBox(r Rect, s backend.Style) {
	if r.Width < 2 || r.Height < 2 {
		return
	}
	right, bottom := r.X+r.Width-1, r.Y+r.Height-1
	b.Set(r.X, r.Y, '╭', s)
	b.Set(right, r.Y, '╮', s)
	b.Set(r.X, bottom, '╰', s)
	b.Set(right, bottom, '╯', s)
	for x := r.X + 1; x < right; x++ {
		b.Set(x, r.Y, '─', s)
		b.Set(x, bottom, '─', s)
	}
	for y := r.Y + 1; y < bottom; y++ {
		b.Set(r.X, y, '│', s)
		b.Set(right, y, '│', s)
	}
}

// Text returns the buffer content, one line per row with trailing spaces
// removed.
func (b *Buffer) Text() string {
	lines := make([]string, b.height)
	var sb strings.Builder
	for y := 0; y < b.height; y++ {
		sb.Reset()
		for _, cell := range b.cells[y*b.width : (y+1)*b.width] {
			if cell.Rune == 0 {
				continue
			}
			sb.WriteRune(cell.Rune)
		}
		lines[y] = strings.TrimRight(sb.String(), " ")
	}
	return strings.TrimRight(strings.Join(lines, "\n"), "\n")
}

func (b *Buffer) markDirty(x, y, idx int) {
	if b.dirtyAll || b.dirty[idx] {
		return
	}
	b.dirty[idx] = true
	b.dirtyCount++
	if b.dirtyCount == 1 {
		b.dirtyRect = Rect{X: x, Y: y, Width: 1, Height: 1}
		return
	}
	x0 := min(b.dirtyRect.X, x)
	y0 := min(b.dirtyRect.Y, y)
	x1 := max(b.dirtyRect.X+b.dirtyRect.Width, x+1)
	y1 := max(b.dirtyRect.Y+b.dirtyRect.Height, y+1)
	b.dirtyRect = Rect{X: x0, Y: y0, Width: x1 - x0, Height: y1 - y0}
}

// MarkAllDirty forces the next flush to redraw every cell.
func (b *Buffer) MarkAllDirty() {
	b.dirtyAll = true
	b.dirtyCount = b.width * b.height
	b.dirtyRect = Rect{X: 0, Y: 0, Width: b.width, Height: b.height}
}

// ClearDirty resets dirty tracking after a flush.
func (b *Buffer) ClearDirty() {
	b.dirtyAll = false
	b.dirtyCount = 0
	b.dirtyRect = Rect{}
	clear(b.dirty)
}

// IsDirty reports whether any cell changed since the last flush.
func (b *Buffer) IsDirty() bool {
	return b.dirtyAll || b.dirtyCount > 0
}

// DirtyCount returns the number of dirty cells.
func (b *Buffer) DirtyCount() int {
	return b.dirtyCount
}

// DirtyRect returns the bounding box of dirty cells.
func (b *Buffer) DirtyRect() Rect {
	return b.dirtyRect
}

// ForEachDirtySpan calls fn for each contiguous dirty run per row.
func (b *Buffer) ForEachDirtySpan(fn func(y, startX, endX int)) {
	if !b.IsDirty() {
		return
	}
	rect := b.dirtyRect
	for y := rect.Y; y < rect.Y+rect.Height; y++ {
		row := y * b.width
		x := rect.X
		end := rect.X + rect.Width
		for x < end {
			if !b.dirtyAll && !b.dirty[row+x] {
				x++
				continue
			}
			start := x
			for x < end && (b.dirtyAll || b.dirty[row+x]) {
				x++
			}
			fn(y, start, x)
		}
	}
}

// Cells returns the underlying row-major cell slice.
func (b *Buffer) Cells() []Cell {
	return b.cells
}
