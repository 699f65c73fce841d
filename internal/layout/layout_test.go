package layout

import (
	"context"
	"fmt"
	"math"
	"testing"
	"time"

	"github.com/verte-zerg/pronocloud/internal/model"
)

type fixedMeasurer struct{}

func (fixedMeasurer) Measure(text string, size float64) Extents {
	return Extents{Left: 0.05 * size, Right: float64(len(text)) * 0.6 * size, Ascent: 0.7 * size, Descent: 0.2 * size}
}

func stats(n int) []model.TargetStat {
	out := make([]model.TargetStat, n)
	for i := range out {
		out[i] = model.TargetStat{ID: fmt.Sprintf("w%02d", i), Count: n - i, Avg: float64(40 + i)}
	}
	return out
}

func near(a, b float64) bool { return math.Abs(a-b) < 1e-6 }

func TestSizeItems(t *testing.T) {
	items := SizeItems([]model.TargetStat{{ID: "a", Count: 1}, {ID: "b", Count: 5}, {ID: "c", Count: 2}}, SizeOptions{Min: 10, Max: 50}, map[string]struct{}{"b": {}})
	if !near(items[0].Size, 10) || !near(items[1].Size, 50) {
		t.Fatalf("unexpected sizes: %v %v", items[0].Size, items[1].Size)
	}
	if !near(items[2].Size, 10+40*math.Sqrt(0.25)) {
		t.Fatalf("expected sqrt scaling, got %v", items[2].Size)
	}
	if !items[1].Pinned || items[0].Pinned {
		t.Fatalf("pinned flags not applied")
	}

	flat := SizeItems([]model.TargetStat{{ID: "a", Count: 3}, {ID: "b", Count: 3}}, SizeOptions{Min: 10, Max: 50}, nil)
	if !near(flat[0].Size, 30) || !near(flat[1].Size, 30) {
		t.Fatalf("expected midpoint for equal counts, got %v %v", flat[0].Size, flat[1].Size)
	}
	if SizeItems(nil, SizeOptions{}, nil) != nil {
		t.Fatalf("expected nil for no stats")
	}
}

func TestPinnedPaint(t *testing.T) {
	it := Item{Size: 10, X: 100, Y: -50, Pinned: true}
	size, x, y := it.Paint()
	if !near(size, 11.6) || !near(x, 86) || !near(y, -43) {
		t.Fatalf("unexpected pinned paint: %v %v %v", size, x, y)
	}
	if it.Size != 10 || it.X != 100 {
		t.Fatalf("paint must not change the placement")
	}
}

func TestSpiralNoOverlap(t *testing.T) {
	m := fixedMeasurer{}
	items := SizeItems(stats(40), SizeOptions{Min: 8, Max: 40}, nil)
	words := make([]Word, len(items))
	for i, it := range items {
		words[i] = Word{Text: it.Stat.ID, Size: it.Size}
	}
	canvas := Canvas{Width: 800, Height: 500}
	s := NewSpiral(m)
	placed := s.PackSync(words, canvas)
	if len(placed) != len(words) {
		t.Fatalf("expected output per input word")
	}
	bounds := CenteredRect(0, 0, canvas.Width, canvas.Height)
	var boxes []Rect
	for i, p := range placed {
		if p.Text != words[i].Text {
			t.Fatalf("output order must match input order")
		}
		if !p.OK {
			continue
		}
		box := InkBox(m, p.Text, p.Size, p.X, p.Y)
		if !box.Inside(bounds) {
			t.Fatalf("%s placed outside the canvas: %+v", p.Text, box)
		}
		for _, other := range boxes {
			if box.Intersects(other) {
				t.Fatalf("%s overlaps a previous word", p.Text)
			}
		}
		boxes = append(boxes, box)
	}
	if !placed[0].OK {
		t.Fatalf("the largest word must be placed")
	}

	again := s.PackSync(words, canvas)
	for i := range placed {
		if placed[i] != again[i] {
			t.Fatalf("packing is not deterministic at %d", i)
		}
	}
}

func TestSpiralDropsOversized(t *testing.T) {
	placed := NewSpiral(fixedMeasurer{}).PackSync([]Word{{Text: "enormous", Size: 500}, {Text: "ok", Size: 10}}, Canvas{Width: 200, Height: 100})
	if placed[0].OK {
		t.Fatalf("oversized word must not be placed")
	}
	if !placed[1].OK {
		t.Fatalf("small word should be placed")
	}
}

func TestFitFillsSurface(t *testing.T) {
	m := fixedMeasurer{}
	items := []Item{
		{Stat: model.TargetStat{ID: "alpha"}, Size: 10, X: 30, Y: 20},
		{Stat: model.TargetStat{ID: "be"}, Size: 20, X: -40, Y: -10},
	}
	Fit(m, items, 1000, 400)
	box, ok := Bounds(m, items)
	if !ok {
		t.Fatalf("expected bounds")
	}
	wRatio := box.Dx() / 1000
	hRatio := box.Dy() / 400
	if !near(math.Max(wRatio, hRatio), FillRatio) || wRatio > FillRatio+1e-9 || hRatio > FillRatio+1e-9 {
		t.Fatalf("unexpected fill ratios %v %v", wRatio, hRatio)
	}
	if !near((box.MinX+box.MaxX)/2, 0) || !near((box.MinY+box.MaxY)/2, 0) {
		t.Fatalf("fitted cloud not centered: %+v", box)
	}
}

func TestRescaleKeepsRelativePositions(t *testing.T) {
	p := Placement{Signature: "s", Width: 800, Height: 600, Items: []Item{
		{Stat: model.TargetStat{ID: "a"}, Size: 20, X: 100, Y: -50},
		{Stat: model.TargetStat{ID: "b"}, Size: 10, X: -30, Y: 60},
	}}
	r := p.Rescale(400, 600)
	if r.Width != 400 || r.Height != 600 {
		t.Fatalf("unexpected rescaled size")
	}
	for i := range p.Items {
		if !near(r.Items[i].X, p.Items[i].X*0.5) || !near(r.Items[i].Y, p.Items[i].Y*0.5) || !near(r.Items[i].Size, p.Items[i].Size*0.5) {
			t.Fatalf("item %d not uniformly rescaled: %+v", i, r.Items[i])
		}
	}
	back := r.Rescale(800, 600)
	for i := range p.Items {
		if !near(back.Items[i].X, p.Items[i].X) || !near(back.Items[i].Y, p.Items[i].Y) {
			t.Fatalf("rescale is not reversible at %d", i)
		}
	}
	if p.Items[0].X != 100 {
		t.Fatalf("rescale must not modify the source placement")
	}
}

func TestCache(t *testing.T) {
	var c Cache
	sig := Signature(model.TaxonomyWords, stats(3))
	if _, ok := c.Get(sig); ok {
		t.Fatalf("empty cache must miss")
	}
	c.Put(Placement{Signature: sig, Width: 10, Height: 10, Items: []Item{{Size: 1}}})
	got, ok := c.Get(sig)
	if !ok || len(got.Items) != 1 {
		t.Fatalf("expected cache hit")
	}
	got.Items[0].Size = 99
	again, _ := c.Get(sig)
	if again.Items[0].Size != 1 {
		t.Fatalf("cache must hand out copies")
	}
	reordered := stats(3)
	reordered[0], reordered[1] = reordered[1], reordered[0]
	if _, ok := c.Get(Signature(model.TaxonomyWords, reordered)); ok {
		t.Fatalf("a reordered set must not hit")
	}
	if _, ok := c.Get(Signature(model.TaxonomyPhonemes, stats(3))); ok {
		t.Fatalf("another taxonomy must not hit")
	}
	c.Reset()
	if _, ok := c.Get(sig); ok {
		t.Fatalf("reset cache must miss")
	}
}

type stuckPacker struct{}

func (stuckPacker) Pack([]Word, Canvas, func([]Placed)) {}

func TestAwaitHonorsContext(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Millisecond)
	defer cancel()
	_, err := Await(ctx, stuckPacker{}, []Word{{Text: "a", Size: 1}}, Canvas{Width: 10, Height: 10})
	if err == nil {
		t.Fatalf("expected context error")
	}
}

func TestEngineLayout(t *testing.T) {
	m := fixedMeasurer{}
	e := NewEngine(NewSpiral(m), m)
	items := SizeItems(stats(20), SizeOptions{Min: 10, Max: 36}, nil)
	out, err := e.Layout(context.Background(), items, 900, 600)
	if err != nil {
		t.Fatalf("layout: %v", err)
	}
	if len(out) == 0 || len(out) > len(items) {
		t.Fatalf("unexpected item count %d", len(out))
	}
	box, _ := Bounds(m, out)
	if box.Dx() > 900*FillRatio+1e-6 || box.Dy() > 600*FillRatio+1e-6 {
		t.Fatalf("layout exceeds fill area: %+v", box)
	}
	if empty, err := e.Layout(context.Background(), nil, 100, 100); err != nil || empty != nil {
		t.Fatalf("expected nil layout for no items")
	}
}

type panicMeasurer struct{}

func (panicMeasurer) Measure(string, float64) Extents { panic("no metrics") }

func TestSpiralPanicReportsNoPlacements(t *testing.T) {
	out, err := Await(context.Background(), NewSpiral(panicMeasurer{}), []Word{{Text: "a", Size: 1}}, Canvas{Width: 10, Height: 10})
	if err != nil || out != nil {
		t.Fatalf("expected no placements after a panic, got %v %v", out, err)
	}
	e := NewEngine(NewSpiral(panicMeasurer{}), fixedMeasurer{})
	if _, err := e.Layout(context.Background(), SizeItems(stats(2), SizeOptions{Min: 10, Max: 20}, nil), 100, 100); err == nil {
		t.Fatalf("expected a layout error after a packer panic")
	}
}
