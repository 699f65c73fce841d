package layout

import (
	"math"

	"github.com/verte-zerg/pronocloud/internal/model"
)

// Pinned items are drawn larger and closer to the center than packed.
const (
	PinnedSizeBoost = 1.16
	PinnedPull      = 0.86
)

// Item is a sized target with a placement relative to the surface center.
type Item struct {
	Stat   model.TargetStat
	Size   float64
	X, Y   float64
	Pinned bool
}

// ID is the target id.
func (it Item) ID() string { return it.Stat.ID }

// Paint returns the size and position the item is drawn at. Pinned items
// are boosted and pulled toward the center; the stored placement is not
// changed.
func (it Item) Paint() (size, x, y float64) {
	if !it.Pinned {
		return it.Size, it.X, it.Y
	}
	return it.Size * PinnedSizeBoost, it.X * PinnedPull, it.Y * PinnedPull
}

// SizeOptions bounds item sizes.
type SizeOptions struct {
	Min float64
	Max float64
}

// Default size bounds in surface units.
const (
	DefaultMinSize = 14
	DefaultMaxSize = 64
)

// SizeItems turns ranked targets into unplaced items. Sizes grow with the
// square root of the normalized count; equal counts get the midpoint.
func SizeItems(stats []model.TargetStat, opts SizeOptions, pinned map[string]struct{}) []Item {
	if opts.Min <= 0 {
		opts.Min = DefaultMinSize
	}
	if opts.Max < opts.Min {
		opts.Max = opts.Min
	}
	if len(stats) == 0 {
		return nil
	}
	cmin, cmax := stats[0].Count, stats[0].Count
	for _, s := range stats[1:] {
		cmin = min(cmin, s.Count)
		cmax = max(cmax, s.Count)
	}
	items := make([]Item, 0, len(stats))
	for _, s := range stats {
		size := (opts.Min + opts.Max) / 2
		if cmax > cmin {
			t := float64(s.Count-cmin) / float64(cmax-cmin)
			size = opts.Min + (opts.Max-opts.Min)*math.Sqrt(t)
		}
		_, isPinned := pinned[s.ID]
		items = append(items, Item{Stat: s, Size: size, Pinned: isPinned})
	}
	return items
}
