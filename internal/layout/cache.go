package layout

import (
	"strings"
	"sync"

	"github.com/verte-zerg/pronocloud/internal/model"
)

// Signature identifies an ordered item set. Any change to membership or
// order changes it.
func Signature(tax model.Taxonomy, stats []model.TargetStat) string {
	var b strings.Builder
	b.WriteString(string(tax))
	for _, s := range stats {
		b.WriteByte('\x1f')
		b.WriteString(s.ID)
	}
	return b.String()
}

// Placement is a fitted layout for one surface size.
type Placement struct {
	Signature string
	Width     float64
	Height    float64
	Items     []Item
}

// Rescale returns a copy of p fitted to a new surface size by one uniform
// factor. Relative positions are unchanged.
func (p Placement) Rescale(width, height float64) Placement {
	out := Placement{Signature: p.Signature, Width: width, Height: height}
	out.Items = append([]Item(nil), p.Items...)
	if p.Width <= 0 || p.Height <= 0 {
		return out
	}
	f := min(width/p.Width, height/p.Height)
	for i := range out.Items {
		out.Items[i].X *= f
		out.Items[i].Y *= f
		out.Items[i].Size *= f
	}
	return out
}

// Cache holds the most recent placement.
type Cache struct {
	mu    sync.Mutex
	entry *Placement
}

// Get returns the cached placement when its signature matches.
func (c *Cache) Get(signature string) (Placement, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.entry == nil || c.entry.Signature != signature {
		return Placement{}, false
	}
	return clonePlacement(*c.entry), true
}

// Put replaces the cached placement.
func (c *Cache) Put(p Placement) {
	p = clonePlacement(p)
	c.mu.Lock()
	c.entry = &p
	c.mu.Unlock()
}

// Reset drops the cached placement.
func (c *Cache) Reset() {
	c.mu.Lock()
	c.entry = nil
	c.mu.Unlock()
}

func clonePlacement(p Placement) Placement {
	p.Items = append([]Item(nil), p.Items...)
	return p
}
