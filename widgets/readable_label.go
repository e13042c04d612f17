package widgets

import (
	"sync"

	"github.com/odvcencio/furry-store/backend"
	"github.com/odvcencio/furry-store/runtime"
	"github.com/odvcencio/furry-store/state"
)

// ReadableLabel shows a state.Readable[string], such as a state.Derived
// view. It subscribes in Mount and releases the subscription in Unmount,
// redrawing the app after each change when bound.
type ReadableLabel struct {
	Component
	source    state.Readable[string]
	style     backend.Style
	alignment Alignment

	mu      sync.Mutex
	text    string
	mounted bool
}

// NewReadableLabel creates a label bound to source.
func NewReadableLabel(source state.Readable[string]) *ReadableLabel {
	label := &ReadableLabel{
		source: source,
		style:  backend.DefaultStyle(),
	}
	if source != nil {
		label.text = source.Get()
	}
	return label
}

// Text returns the last text read from the source.
func (l *ReadableLabel) Text() string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.text
}

// SetStyle sets the label style.
func (l *ReadableLabel) SetStyle(style backend.Style) *ReadableLabel {
	l.style = style
	return l
}

// SetAlignment sets text alignment.
func (l *ReadableLabel) SetAlignment(align Alignment) *ReadableLabel {
	l.alignment = align
	return l
}

// Render draws the label.
func (l *ReadableLabel) Render(ctx *runtime.RenderContext) []runtime.Element {
	drawLine(ctx, 0, l.Text(), l.alignment, l.style)
	return nil
}

// Mount subscribes to source changes.
func (l *ReadableLabel) Mount() {
	l.mu.Lock()
	l.mounted = true
	l.mu.Unlock()
	if l.source == nil {
		return
	}
	l.refresh()
	l.Observe(l.source, l.refresh)
}

// Unmount unsubscribes from source changes.
func (l *ReadableLabel) Unmount() {
	l.mu.Lock()
	l.mounted = false
	l.mu.Unlock()
	l.Subs.Clear()
}

func (l *ReadableLabel) refresh() {
	l.mu.Lock()
	defer l.mu.Unlock()
	if !l.mounted || l.source == nil {
		return
	}
	l.text = l.source.Get()
}
