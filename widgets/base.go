// Package widgets provides components that render store state.
package widgets

import (
	"strings"

	"github.com/mattn/go-runewidth"

	"github.com/odvcencio/furry-store/backend"
	"github.com/odvcencio/furry-store/runtime"
)

// Alignment positions text inside its bounds.
type Alignment int

const (
	AlignLeft Alignment = iota
	AlignCenter
	AlignRight
)

// drawLine writes text on row dy of bounds, truncated and aligned.
func drawLine(ctx *runtime.RenderContext, dy int, text string, align Alignment, style backend.Style) {
	width := ctx.Bounds.Width
	text = truncateString(text, width)
	if pad := alignOffset(runewidth.StringWidth(text), width, align); pad > 0 {
		text = strings.Repeat(" ", pad) + text
	}
	ctx.Text(dy, text, style)
}

func alignOffset(textWidth, width int, align Alignment) int {
	switch align {
	case AlignCenter:
		return max(0, (width-textWidth)/2)
	case AlignRight:
		return max(0, width-textWidth)
	default:
		return 0
	}
}

// truncateString truncates a string to fit within maxWidth.
// Adds "..." if truncated.
func truncateString(s string, maxWidth int) string {
	if maxWidth <= 0 {
		return ""
	}
	if runewidth.StringWidth(s) <= maxWidth {
		return s
	}
	return runewidth.Truncate(s, maxWidth, "...")
}
