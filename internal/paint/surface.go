package paint

import (
	colorful "github.com/lucasb-eyer/go-colorful"

	"github.com/verte-zerg/pronocloud/internal/layout"
)

// TextStyle describes how one item is drawn.
type TextStyle struct {
	Color colorful.Color
	Bold  bool
	// Glow is drawn behind the text when GlowRadius is positive.
	Glow       colorful.Color
	GlowRadius float64
	// Stroke outlines hovered text.
	Stroke bool
	Dim    bool
}

// Surface is a drawing target. Coordinates passed to DrawText and DrawRing
// are relative to the surface center; text is positioned by its ink center.
type Surface interface {
	layout.Measurer
	Size() (width, height float64)
	Resize(width, height float64)
	Clear(bg colorful.Color)
	DrawText(text string, size, x, y float64, style TextStyle)
	DrawRing(x, y, radius float64, c colorful.Color, alpha float64)
	// Present publishes everything drawn since the last Clear.
	Present()
}
