package backend

// RowWriter is implemented by backends that accept a run of cells in one
// call. The runtime prefers it over per-cell SetContent.
type RowWriter interface {
	SetRow(y int, startX int, cells []Cell)
}
