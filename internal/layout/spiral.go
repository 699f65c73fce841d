package layout

import (
	"context"
	"hash/fnv"
	"math"
	"math/rand"
	"sort"
)

// Word is the packer input: text drawn at a size.
type Word struct {
	Text string
	Size float64
}

// Placed is the packer output for one word. Coordinates are relative to the
// canvas center. Words that found no free spot have OK set to false.
type Placed struct {
	Text string
	Size float64
	X, Y float64
	OK   bool
}

// Canvas is the area a packer may place words in.
type Canvas struct {
	Width  float64
	Height float64
}

// Packer places words without overlap and reports through done, possibly
// from another goroutine. Output order matches input order.
type Packer interface {
	Pack(words []Word, canvas Canvas, done func([]Placed))
}

// Spiral is an archimedean spiral packer. Larger words are placed first;
// each walks outward from a jittered center until its box is free.
type Spiral struct {
	Measure Measurer
	// Padding is added around every box before collision checks.
	Padding float64
	// Seed makes the walk deterministic. Zero derives a seed from the words.
	Seed int64
	// Step is the angular increment in radians.
	Step float64
}

// NewSpiral returns a spiral packer measuring with m.
func NewSpiral(m Measurer) *Spiral {
	return &Spiral{Measure: m, Padding: 1, Step: 0.1}
}

// Pack runs PackSync on a new goroutine and hands the result to done. A
// panic while packing hands done no placements at all.
func (s *Spiral) Pack(words []Word, canvas Canvas, done func([]Placed)) {
	words = append([]Word(nil), words...)
	go func() {
		var out []Placed
		defer func() {
			if recover() != nil {
				out = nil
			}
			done(out)
		}()
		out = s.PackSync(words, canvas)
	}()
}

// PackSync places words and returns their positions in input order.
func (s *Spiral) PackSync(words []Word, canvas Canvas) []Placed {
	out := make([]Placed, len(words))
	for i, w := range words {
		out[i] = Placed{Text: w.Text, Size: w.Size}
	}
	if len(words) == 0 || canvas.Width <= 0 || canvas.Height <= 0 {
		return out
	}
	step := s.Step
	if step <= 0 {
		step = 0.1
	}
	seed := s.Seed
	if seed == 0 {
		seed = wordsSeed(words)
	}
	rnd := rand.New(rand.NewSource(seed))

	order := make([]int, len(words))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool {
		return words[order[a]].Size > words[order[b]].Size
	})

	bounds := CenteredRect(0, 0, canvas.Width, canvas.Height)
	aspect := canvas.Width / canvas.Height
	maxRadius := math.Hypot(canvas.Width, canvas.Height) / 2
	placed := make([]Rect, 0, len(words))
	for _, idx := range order {
		w := words[idx]
		ext := s.Measure.Measure(w.Text, w.Size)
		bw := ext.Width() + 2*s.Padding
		bh := ext.Height() + 2*s.Padding
		if bw > canvas.Width || bh > canvas.Height {
			continue
		}
		startX := (rnd.Float64() - 0.5) * canvas.Width * 0.1
		startY := (rnd.Float64() - 0.5) * canvas.Height * 0.1
		phase := rnd.Float64() * 2 * math.Pi
		dir := 1.0
		if rnd.Intn(2) == 0 {
			dir = -1
		}
		for t := 0.0; ; t += step {
			r := t * 0.5 * math.Max(1, math.Min(bw, bh)/4)
			if r > maxRadius {
				break
			}
			x := startX + r*math.Cos(phase+dir*t)*aspect
			y := startY + r*math.Sin(phase+dir*t)
			box := CenteredRect(x, y, bw, bh)
			if !box.Inside(bounds) || collides(box, placed) {
				continue
			}
			placed = append(placed, box)
			out[idx].X, out[idx].Y, out[idx].OK = x, y, true
			break
		}
	}
	return out
}

func collides(box Rect, placed []Rect) bool {
	for _, p := range placed {
		if box.Intersects(p) {
			return true
		}
	}
	return false
}

func wordsSeed(words []Word) int64 {
	h := fnv.New64a()
	for _, w := range words {
		_, _ = h.Write([]byte(w.Text))
		_, _ = h.Write([]byte{0})
	}
	return int64(h.Sum64() & math.MaxInt64)
}

// Await runs p and blocks until its completion callback fires or ctx ends.
// A callback arriving after ctx ended is dropped.
func Await(ctx context.Context, p Packer, words []Word, canvas Canvas) ([]Placed, error) {
	ch := make(chan []Placed, 1)
	p.Pack(words, canvas, func(out []Placed) {
		ch <- out
	})
	select {
	case out := <-ch:
		return out, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}
