package stats

import (
	"github.com/verte-zerg/pronocloud/internal/model"
)

// Occurrence floors for the smart top-3 selector.
const (
	minPhonemeOccurrences = 3
	minWordOccurrences    = 2
	smartTopSize          = 3
)

// SmartTop3 picks up to three distinct targets worth practicing next. Only
// targets meeting the occurrence floor compete, ranked by a priority
// recomputed over that subset. When nothing clears the floor it falls back
// to the first three pool items as given.
func SmartTop3(pool []model.TargetStat, tax model.Taxonomy) []model.TargetStat {
	if len(pool) == 0 {
		return nil
	}
	floor := minWordOccurrences
	if tax == model.TaxonomyPhonemes {
		floor = minPhonemeOccurrences
	}
	candidates := make([]model.TargetStat, 0, len(pool))
	for _, t := range dedupe(pool, tax) {
		if t.Count >= floor {
			candidates = append(candidates, t)
		}
	}
	if len(candidates) == 0 {
		return firstN(dedupe(pool, tax), smartTopSize)
	}
	ComputePriority(candidates)
	return firstN(Rank(candidates, model.RankPriority), smartTopSize)
}

// TopByFrequency returns the ids of the n most frequent targets.
func TopByFrequency(pool []model.TargetStat, n int) []string {
	if n <= 0 || len(pool) == 0 {
		return nil
	}
	ranked := firstN(Rank(pool, model.RankFrequency), n)
	out := make([]string, 0, len(ranked))
	for _, t := range ranked {
		out = append(out, t.ID)
	}
	return out
}

func dedupe(items []model.TargetStat, tax model.Taxonomy) []model.TargetStat {
	seen := make(map[string]struct{}, len(items))
	out := make([]model.TargetStat, 0, len(items))
	for _, t := range items {
		key := NormalizeID(tax, t.ID)
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, t)
	}
	return out
}

func firstN(items []model.TargetStat, n int) []model.TargetStat {
	if n > len(items) {
		n = len(items)
	}
	return append([]model.TargetStat(nil), items[:n]...)
}
