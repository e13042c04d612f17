package widgets

import (
	"github.com/odvcencio/furry-store/backend"
	"github.com/odvcencio/furry-store/runtime"
)

// Column stacks children one row each, top to bottom.
type Column struct {
	Children []runtime.Component
}

// NewColumn creates a column of children.
func NewColumn(children ...runtime.Component) *Column {
	return &Column{Children: children}
}

// Render places each child on its own row. Children past the bottom edge
// are not mounted.
func (c *Column) Render(ctx *runtime.RenderContext) []runtime.Element {
	out := make([]runtime.Element, 0, len(c.Children))
	for i, child := range c.Children {
		row := ctx.Bounds.Row(i)
		if row.Empty() {
			break
		}
		out = append(out, runtime.Place(child, row))
	}
	return out
}

// Panel draws a rounded border with a title and renders its child inside.
type Panel struct {
	Title string
	Style backend.Style
	Child runtime.Component
}

// NewPanel creates a bordered panel around child.
func NewPanel(title string, child runtime.Component) *Panel {
	return &Panel{Title: title, Style: backend.DefaultStyle(), Child: child}
}

// Render draws the frame and places the child in the inner area.
func (p *Panel) Render(ctx *runtime.RenderContext) []runtime.Element {
	b := ctx.Bounds
	if ctx.Buffer == nil || b.Width < 2 || b.Height < 2 {
		return nil
	}
	ctx.Buffer.DrawBox(b, p.Style)
	if p.Title != "" {
		title := truncateString(" "+p.Title+" ", b.Width-2)
		ctx.Buffer.SetString(b.X+1, b.Y, title, p.Style)
	}
	if p.Child == nil {
		return nil
	}
	inner := runtime.Rect{X: b.X + 1, Y: b.Y + 1, Width: b.Width - 2, Height: b.Height - 2}
	if inner.Empty() {
		return nil
	}
	return []runtime.Element{runtime.Place(p.Child, inner)}
}
