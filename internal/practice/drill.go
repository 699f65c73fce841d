package practice

import (
	"math/rand"
	"time"

	"github.com/antzucaro/matchr"
)

// Drill produces randomized drill word sequences.
type Drill struct {
	rnd *rand.Rand
}

// NewDrill returns a Drill seeded with seed, or with the current time when
// seed is 0.
func NewDrill(seed int64) *Drill {
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	return &Drill{rnd: rand.New(rand.NewSource(seed))}
}

// Weighted selects count words, biased toward words that share a Double
// Metaphone code with any focus word. The same word is never picked twice in
// a row when there is an alternative.
func (d *Drill) Weighted(words []string, count int, focus []string, factor float64) []string {
	if len(words) == 0 || count <= 0 {
		return nil
	}
	focusCodes := map[string]struct{}{}
	for _, f := range focus {
		for _, c := range codes(f) {
			focusCodes[c] = struct{}{}
		}
	}
	weights := make([]float64, len(words))
	total := 0.0
	for i, word := range words {
		shared := 0
		for _, c := range codes(word) {
			if _, ok := focusCodes[c]; ok {
				shared++
			}
		}
		w := 1.0 + float64(shared)*factor
		weights[i] = w
		total += w
	}

	result := make([]string, 0, count)
	prev := -1
	for len(result) < count {
		idx := d.pick(weights, total)
		if idx == prev && len(words) > 1 {
			continue
		}
		prev = idx
		result = append(result, words[idx])
	}
	return result
}

func (d *Drill) pick(weights []float64, total float64) int {
	r := d.rnd.Float64() * total
	acc := 0.0
	for j, w := range weights {
		acc += w
		if r <= acc {
			return j
		}
	}
	return len(weights) - 1
}

func codes(word string) []string {
	primary, secondary := matchr.DoubleMetaphone(word)
	out := make([]string, 0, 2)
	if primary != "" {
		out = append(out, primary)
	}
	if secondary != "" && secondary != primary {
		out = append(out, secondary)
	}
	return out
}
