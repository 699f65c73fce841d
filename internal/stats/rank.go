package stats

import (
	"math"
	"sort"
	"time"

	"github.com/verte-zerg/pronocloud/internal/model"
)

// Priority weights.
const (
	weightDifficulty  = 0.45
	weightPersistence = 0.25
	weightFrequency   = 0.20
	weightRecency     = 0.10
)

// PersistentScore rewards targets that are both long-standing and weak.
func PersistentScore(t model.TargetStat) float64 {
	return math.Pow(float64(t.Days+1), 1.2) *
		math.Pow(float64(t.Count+1), 0.65) *
		(0.35 + (100-clampScore(t.Avg))/100)
}

// ComputePriority sets Priority on every item in place. Each term is
// log-compressed and min/max normalized within items, so the result is
// relative to this pool only.
func ComputePriority(items []model.TargetStat) {
	if len(items) == 0 {
		return
	}
	n := len(items)
	difficulty := make([]float64, n)
	persistence := make([]float64, n)
	frequency := make([]float64, n)
	recency := make([]float64, n)
	seen := make([]bool, n)

	var newest time.Time
	for _, t := range items {
		if t.LastSeen.After(newest) {
			newest = t.LastSeen
		}
	}
	for i, t := range items {
		difficulty[i] = math.Log1p(100 - clampScore(t.Avg))
		persistence[i] = math.Log1p(PersistentScore(t))
		frequency[i] = math.Log1p(float64(t.Count))
		if !t.LastSeen.IsZero() {
			ageHours := newest.Sub(t.LastSeen).Hours()
			recency[i] = -math.Log1p(math.Max(ageHours, 0))
			seen[i] = true
		}
	}
	normalize(difficulty, nil)
	normalize(persistence, nil)
	normalize(frequency, nil)
	normalize(recency, seen)

	for i := range items {
		items[i].Priority = weightDifficulty*difficulty[i] +
			weightPersistence*persistence[i] +
			weightFrequency*frequency[i] +
			weightRecency*recency[i]
	}
}

// normalize rescales values to [0, 1] in place. When valid is non-nil only
// flagged entries take part; the others become 0. A flat range maps to 0.
func normalize(values []float64, valid []bool) {
	minVal := math.Inf(1)
	maxVal := math.Inf(-1)
	for i, v := range values {
		if valid != nil && !valid[i] {
			continue
		}
		minVal = math.Min(minVal, v)
		maxVal = math.Max(maxVal, v)
	}
	span := maxVal - minVal
	for i, v := range values {
		if (valid != nil && !valid[i]) || math.IsInf(span, 0) || span < 1e-12 {
			values[i] = 0
			continue
		}
		values[i] = (v - minVal) / span
	}
}

// Rank returns a copy of items ordered by the given policy. Every policy is a
// total order; ties fall back to the id.
func Rank(items []model.TargetStat, mode model.RankMode) []model.TargetStat {
	out := append([]model.TargetStat(nil), items...)
	var less func(a, b model.TargetStat) (bool, bool)
	switch mode {
	case model.RankFrequency:
		less = func(a, b model.TargetStat) (bool, bool) {
			return a.Count > b.Count, a.Count == b.Count
		}
	case model.RankDifficulty:
		less = func(a, b model.TargetStat) (bool, bool) {
			return a.Avg < b.Avg, a.Avg == b.Avg
		}
	case model.RankRecency:
		less = func(a, b model.TargetStat) (bool, bool) {
			return a.LastSeen.After(b.LastSeen), a.LastSeen.Equal(b.LastSeen)
		}
	case model.RankPersistence:
		less = func(a, b model.TargetStat) (bool, bool) {
			pa, pb := PersistentScore(a), PersistentScore(b)
			return pa > pb, pa == pb
		}
	default:
		less = func(a, b model.TargetStat) (bool, bool) {
			return a.Priority > b.Priority, a.Priority == b.Priority
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		before, tie := less(out[i], out[j])
		if tie {
			return out[i].ID < out[j].ID
		}
		return before
	})
	return out
}
