package backend

// RectWriter is implemented by backends that accept a whole rectangle.
// cells is row-major with width*height entries. The runtime uses it for
// full redraws.
type RectWriter interface {
	SetRect(x, y, width, height int, cells []Cell)
}
