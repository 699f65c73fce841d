// Package layout sizes cloud items, packs them on a spiral, fits the packed
// extent to a surface and caches placements by item identity.
package layout

import "math"

// Extents are the ink bounds of a string relative to its pen origin on the
// baseline. Left and Right are horizontal offsets; Ascent and Descent are
// distances above and below the baseline.
type Extents struct {
	Left    float64
	Right   float64
	Ascent  float64
	Descent float64
}

// Width of the ink box.
func (e Extents) Width() float64 { return e.Right - e.Left }

// Height of the ink box.
func (e Extents) Height() float64 { return e.Ascent + e.Descent }

// Measurer reports tight text extents at a given size.
type Measurer interface {
	Measure(text string, size float64) Extents
}

// Rect is an axis-aligned box.
type Rect struct {
	MinX, MinY, MaxX, MaxY float64
}

// CenteredRect returns a w by h box centered on (x, y).
func CenteredRect(x, y, w, h float64) Rect {
	return Rect{MinX: x - w/2, MinY: y - h/2, MaxX: x + w/2, MaxY: y + h/2}
}

// Dx is the rect width.
func (r Rect) Dx() float64 { return r.MaxX - r.MinX }

// Dy is the rect height.
func (r Rect) Dy() float64 { return r.MaxY - r.MinY }

// Contains reports whether (x, y) lies inside r, edges included.
func (r Rect) Contains(x, y float64) bool {
	return x >= r.MinX && x <= r.MaxX && y >= r.MinY && y <= r.MaxY
}

// Intersects reports whether r and o overlap with positive area.
func (r Rect) Intersects(o Rect) bool {
	return r.MinX < o.MaxX && o.MinX < r.MaxX && r.MinY < o.MaxY && o.MinY < r.MaxY
}

// Inside reports whether r lies entirely within o.
func (r Rect) Inside(o Rect) bool {
	return r.MinX >= o.MinX && r.MaxX <= o.MaxX && r.MinY >= o.MinY && r.MaxY <= o.MaxY
}

// Inflate grows r by d on every side.
func (r Rect) Inflate(d float64) Rect {
	return Rect{MinX: r.MinX - d, MinY: r.MinY - d, MaxX: r.MaxX + d, MaxY: r.MaxY + d}
}

// Union returns the smallest rect covering r and o.
func (r Rect) Union(o Rect) Rect {
	return Rect{
		MinX: math.Min(r.MinX, o.MinX),
		MinY: math.Min(r.MinY, o.MinY),
		MaxX: math.Max(r.MaxX, o.MaxX),
		MaxY: math.Max(r.MaxY, o.MaxY),
	}
}

// InkBox returns the ink box of text drawn at size with its ink center on
// (x, y).
func InkBox(m Measurer, text string, size, x, y float64) Rect {
	ext := m.Measure(text, size)
	return CenteredRect(x, y, ext.Width(), ext.Height())
}

// PenOrigin returns where a pen must start so that the ink box of text is
// centered on (x, y).
func PenOrigin(ext Extents, x, y float64) (float64, float64) {
	return x - (ext.Left+ext.Right)/2, y + (ext.Ascent-ext.Descent)/2
}
