package layout

import (
	"context"
	"fmt"
)

// Engine packs sized items and fits the result to a surface.
type Engine struct {
	packer  Packer
	measure Measurer
}

// NewEngine returns an engine using packer and m.
func NewEngine(packer Packer, m Measurer) *Engine {
	return &Engine{packer: packer, measure: m}
}

// Measurer returns the engine's measurer.
func (e *Engine) Measurer() Measurer { return e.measure }

// Layout packs items into the fill area of a width by height surface,
// drops the ones that did not fit and fits the rest. It blocks on the
// packer and returns ctx.Err() if ctx ends first.
func (e *Engine) Layout(ctx context.Context, items []Item, width, height float64) ([]Item, error) {
	if len(items) == 0 {
		return nil, nil
	}
	words := make([]Word, len(items))
	for i, it := range items {
		words[i] = Word{Text: it.Stat.ID, Size: it.Size}
	}
	canvas := Canvas{Width: width * FillRatio, Height: height * FillRatio}
	placed, err := Await(ctx, e.packer, words, canvas)
	if err != nil {
		return nil, err
	}
	if len(placed) != len(items) {
		return nil, fmt.Errorf("packer returned %d placements for %d items", len(placed), len(items))
	}
	out := make([]Item, 0, len(items))
	for i, p := range placed {
		if !p.OK {
			continue
		}
		it := items[i]
		it.X, it.Y, it.Size = p.X, p.Y, p.Size
		out = append(out, it)
	}
	Fit(e.measure, out, width, height)
	return out, nil
}
