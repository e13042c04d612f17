package widgets

import (
	"github.com/odvcencio/furry-store/backend"
	"github.com/odvcencio/furry-store/hooks"
	"github.com/odvcencio/furry-store/runtime"
	"github.com/odvcencio/furry-store/state"
)

// Label draws fixed text.
type Label struct {
	Text      string
	Style     backend.Style
	Alignment Alignment
}

// NewLabel creates a left-aligned label.
func NewLabel(text string) Label {
	return Label{Text: text, Style: backend.DefaultStyle()}
}

// Render draws the label.
func (l Label) Render(ctx *runtime.RenderContext) []runtime.Element {
	drawLine(ctx, 0, l.Text, l.Alignment, l.Style)
	return nil
}

// StoreText draws a string selected from a store. It re-renders only when
// the selected string changes.
type StoreText[T any] struct {
	hook      *hooks.Hook[T]
	selector  state.Selector[T, string]
	style     backend.Style
	alignment Alignment
}

// NewStoreText binds selector's output to a text line. Keep selector a
// stable function value so the subscription survives re-renders.
func NewStoreText[T any](hook *hooks.Hook[T], selector state.Selector[T, string]) *StoreText[T] {
	return &StoreText[T]{
		hook:     hook,
		selector: selector,
		style:    backend.DefaultStyle(),
	}
}

// SetStyle sets the text style.
func (s *StoreText[T]) SetStyle(style backend.Style) *StoreText[T] {
	s.style = style
	return s
}

// SetAlignment sets text alignment.
func (s *StoreText[T]) SetAlignment(align Alignment) *StoreText[T] {
	s.alignment = align
	return s
}

// Render selects the text and draws it.
func (s *StoreText[T]) Render(ctx *runtime.RenderContext) []runtime.Element {
	text := hooks.Select(ctx.Scope, s.hook, s.selector)
	drawLine(ctx, 0, text, s.alignment, s.style)
	return nil
}
