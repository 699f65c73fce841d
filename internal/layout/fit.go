package layout

// FillRatio is the share of each surface axis the fitted cloud occupies.
const FillRatio = 0.92

// Bounds returns the union of the items' ink boxes. ok is false for an empty
// set.
func Bounds(m Measurer, items []Item) (Rect, bool) {
	var box Rect
	for i, it := range items {
		ink := InkBox(m, it.Stat.ID, it.Size, it.X, it.Y)
		if i == 0 {
			box = ink
			continue
		}
		box = box.Union(ink)
	}
	return box, len(items) > 0
}

// Fit uniformly scales and recenters items so their tight ink bound fills
// FillRatio of a width by height surface. Items are modified in place.
func Fit(m Measurer, items []Item, width, height float64) {
	box, ok := Bounds(m, items)
	if !ok || box.Dx() <= 0 || box.Dy() <= 0 {
		return
	}
	scale := min(width*FillRatio/box.Dx(), height*FillRatio/box.Dy())
	cx := (box.MinX + box.MaxX) / 2
	cy := (box.MinY + box.MaxY) / 2
	for i := range items {
		items[i].X = (items[i].X - cx) * scale
		items[i].Y = (items[i].Y - cy) * scale
		items[i].Size *= scale
	}
}
