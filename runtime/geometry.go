package runtime

// Rect is a screen rectangle in cells.
type Rect struct {
	X, Y          int
	Width, Height int
}

// Empty reports whether the rect covers no cells.
func (r Rect) Empty() bool {
	return r.Width <= 0 || r.Height <= 0
}

// Contains reports whether the cell x, y lies inside r.
func (r Rect) Contains(x, y int) bool {
	return x >= r.X && x < r.X+r.Width && y >= r.Y && y < r.Y+r.Height
}

// Intersection returns the overlap of r and other.
func (r Rect) Intersection(other Rect) Rect {
	x0 := max(r.X, other.X)
	y0 := max(r.Y, other.Y)
	x1 := min(r.X+r.Width, other.X+other.Width)
	y1 := min(r.Y+r.Height, other.Y+other.Height)
	if x1 <= x0 || y1 <= y0 {
		return Rect{}
	}
	return Rect{X: x0, Y: y0, Width: x1 - x0, Height: y1 - y0}
}

// Row returns the single-row rect at offset dy inside r.
func (r Rect) Row(dy int) Rect {
	if dy < 0 || dy >= r.Height {
		return Rect{}
	}
	return Rect{X: r.X, Y: r.Y + dy, Width: r.Width, Height: 1}
}

// Rows splits r into consecutive rects of the given heights. Heights that
// overflow r are clipped.
func (r Rect) Rows(heights ...int) []Rect {
	out := make([]Rect, 0, len(heights))
	y := r.Y
	for _, h := range heights {
		h = max(0, min(h, r.Y+r.Height-y))
		out = append(out, Rect{X: r.X, Y: y, Width: r.Width, Height: h})
		y += h
	}
	return out
}
