// Package stats contains target aggregation, ranking and reporting.
package stats

import (
	"sort"
	"strings"
	"time"
	"unicode"

	"github.com/verte-zerg/pronocloud/internal/model"
)

const (
	// DefaultPoolSize caps each candidate pool.
	DefaultPoolSize = 140
	// MaxExamples bounds the sample words kept per phoneme.
	MaxExamples = 6
)

// AggregateOptions tunes an aggregation pass.
type AggregateOptions struct {
	PoolSize int
	// Location decides calendar-day boundaries. Defaults to time.Local.
	Location *time.Location
}

type accumulator struct {
	id       string
	count    int
	sum      float64
	days     map[string]struct{}
	examples []string
}

// Aggregate reduces attempts into bounded word and phoneme pools. Each pool
// is ranked by count, capped, backfilled with last-seen timestamps and given
// priorities. Empty input yields empty pools.
func Aggregate(attempts []model.AttemptRecord, opts AggregateOptions) model.Pools {
	if len(attempts) == 0 {
		return model.Pools{}
	}
	if opts.PoolSize <= 0 {
		opts.PoolSize = DefaultPoolSize
	}
	loc := opts.Location
	if loc == nil {
		loc = time.Local
	}

	words := map[string]*accumulator{}
	phonemes := map[string]*accumulator{}
	for _, a := range attempts {
		day := a.Timestamp.In(loc).Format("2006-01-02")
		for _, w := range a.Words {
			wordID := NormalizeWord(w.Word)
			if wordID != "" {
				add(words, wordID, w.Accuracy, day, "")
			}
			for _, p := range w.Phonemes {
				phonemeID := NormalizePhoneme(p.Phoneme)
				if phonemeID == "" {
					continue
				}
				add(phonemes, phonemeID, p.Accuracy, day, wordID)
			}
		}
	}

	pools := model.Pools{
		Words:    buildPool(words, model.TaxonomyWords, opts.PoolSize),
		Phonemes: buildPool(phonemes, model.TaxonomyPhonemes, opts.PoolSize),
	}
	BackfillLastSeen(pools.Words, attempts, model.TaxonomyWords)
	BackfillLastSeen(pools.Phonemes, attempts, model.TaxonomyPhonemes)
	ComputePriority(pools.Words)
	ComputePriority(pools.Phonemes)
	return pools
}

func add(into map[string]*accumulator, id string, score float64, day, example string) {
	acc, ok := into[id]
	if !ok {
		acc = &accumulator{id: id, days: map[string]struct{}{}}
		into[id] = acc
	}
	acc.count++
	acc.sum += clampScore(score)
	acc.days[day] = struct{}{}
	if example != "" && len(acc.examples) < MaxExamples && !containsString(acc.examples, example) {
		acc.examples = append(acc.examples, example)
	}
}

func buildPool(accs map[string]*accumulator, tax model.Taxonomy, size int) []model.TargetStat {
	pool := make([]model.TargetStat, 0, len(accs))
	for _, acc := range accs {
		pool = append(pool, model.TargetStat{
			ID:       acc.id,
			Taxonomy: tax,
			Count:    acc.count,
			Avg:      acc.sum / float64(acc.count),
			Days:     len(acc.days),
			Examples: acc.examples,
		})
	}
	sort.Slice(pool, func(i, j int) bool {
		if pool[i].Count != pool[j].Count {
			return pool[i].Count > pool[j].Count
		}
		if pool[i].Avg != pool[j].Avg {
			return pool[i].Avg < pool[j].Avg
		}
		return pool[i].ID < pool[j].ID
	})
	if len(pool) > size {
		pool = pool[:size]
	}
	return pool
}

// BackfillLastSeen sets LastSeen on pool entries by scanning attempts newest
// first. It stops as soon as every entry is resolved and returns the number
// of attempts scanned.
func BackfillLastSeen(pool []model.TargetStat, attempts []model.AttemptRecord, tax model.Taxonomy) int {
	if len(pool) == 0 || len(attempts) == 0 {
		return 0
	}
	pending := make(map[string]int, len(pool))
	for i, t := range pool {
		pending[t.ID] = i
	}
	order := newestFirst(attempts)
	scanned := 0
	for _, idx := range order {
		if len(pending) == 0 {
			break
		}
		scanned++
		a := attempts[idx]
		for _, w := range a.Words {
			if tax == model.TaxonomyWords {
				resolve(pool, pending, NormalizeWord(w.Word), a.Timestamp)
				continue
			}
			for _, p := range w.Phonemes {
				resolve(pool, pending, NormalizePhoneme(p.Phoneme), a.Timestamp)
			}
		}
	}
	return scanned
}

func resolve(pool []model.TargetStat, pending map[string]int, id string, ts time.Time) {
	i, ok := pending[id]
	if !ok {
		return
	}
	pool[i].LastSeen = ts
	delete(pending, id)
}

// newestFirst returns attempt indexes ordered by descending timestamp.
func newestFirst(attempts []model.AttemptRecord) []int {
	order := make([]int, len(attempts))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(i, j int) bool {
		return attempts[order[i]].Timestamp.After(attempts[order[j]].Timestamp)
	})
	return order
}

// NormalizeWord lowercases a word and strips surrounding punctuation.
func NormalizeWord(word string) string {
	word = strings.ToLower(strings.TrimSpace(word))
	return strings.TrimFunc(word, func(r rune) bool {
		return unicode.IsPunct(r) || unicode.IsSymbol(r) || unicode.IsSpace(r)
	})
}

// NormalizePhoneme trims and lowercases a phoneme symbol.
func NormalizePhoneme(symbol string) string {
	return strings.ToLower(strings.TrimSpace(symbol))
}

// NormalizeID normalizes an id of either taxonomy.
func NormalizeID(tax model.Taxonomy, id string) string {
	if tax == model.TaxonomyPhonemes {
		return NormalizePhoneme(id)
	}
	return NormalizeWord(id)
}

func clampScore(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 100 {
		return 100
	}
	return v
}

func containsString(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
