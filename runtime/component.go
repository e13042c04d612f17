package runtime

import (
	"github.com/odvcencio/furry-store/backend"
	"github.com/odvcencio/furry-store/hooks"
)

// Component is a node of the render tree. Render draws into ctx and returns
// the children to place inside it. Hooks used during Render must be called
// with ctx.Scope, in the same order on every render.
type Component interface {
	Render(ctx *RenderContext) []Element
}

// ComponentFunc adapts a function to Component.
type ComponentFunc func(ctx *RenderContext) []Element

// Render calls f.
func (f ComponentFunc) Render(ctx *RenderContext) []Element {
	if f == nil {
		return nil
	}
	return f(ctx)
}

// Element places a child component. Children keep their hook state across
// renders while they stay at the same position with the same component
// type, or under the same non-empty Key.
type Element struct {
	Component Component
	Bounds    Rect
	Key       string
}

// Place returns an element for c at bounds.
func Place(c Component, bounds Rect) Element {
	return Element{Component: c, Bounds: bounds}
}

// Keyed returns an element for c at bounds identified by key.
func Keyed(key string, c Component, bounds Rect) Element {
	return Element{Component: c, Bounds: bounds, Key: key}
}

// MessageHandler is implemented by components that react to input.
type MessageHandler interface {
	HandleMessage(msg Message) HandleResult
}

// HandleResult reports whether a message was consumed and which commands
// it produced.
type HandleResult struct {
	Handled  bool
	Commands []Command
}

// Handled returns a consumed result.
func Handled() HandleResult {
	return HandleResult{Handled: true}
}

// Unhandled returns a result that lets the message continue.
func Unhandled() HandleResult {
	return HandleResult{}
}

// WithCommand returns a consumed result carrying cmds.
func WithCommand(cmds ...Command) HandleResult {
	return HandleResult{Handled: true, Commands: cmds}
}

// RenderContext is handed to Component.Render.
type RenderContext struct {
	// Scope holds the component's hook state.
	Scope *hooks.Scope
	// Buffer is the frame being drawn.
	Buffer *Buffer
	// Bounds is the area allocated by the parent.
	Bounds Rect
	// Loop reaches the running app. It is detached outside an App.
	Loop Loop
}

// Clear fills the context bounds with spaces.
func (ctx *RenderContext) Clear(style backend.Style) {
	if ctx.Buffer == nil {
		return
	}
	ctx.Buffer.Fill(ctx.Bounds, ' ', style)
}

// Text writes s on row dy of the bounds, clipped to the bounds width.
func (ctx *RenderContext) Text(dy int, s string, style backend.Style) {
	row := ctx.Bounds.Row(dy)
	if ctx.Buffer == nil || row.Empty() {
		return
	}
	ctx.Buffer.setString(row.X, row.Y, s, style, row.X+row.Width)
}
