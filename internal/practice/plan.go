// Package practice turns ranked targets into a plan for the next practice
// session.
package practice

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/verte-zerg/pronocloud/internal/model"
	"github.com/verte-zerg/pronocloud/internal/stats"
	"github.com/verte-zerg/pronocloud/internal/viewstate"
)

const (
	// DefaultDrillWords is the drill length when none is configured.
	DefaultDrillWords = 12
	soundsLikeFactor  = 4.0
)

// ErrNoTargets means there is nothing to practice yet.
var ErrNoTargets = errors.New("not enough data for a practice plan")

// Options tunes plan building.
type Options struct {
	Mix        string
	DrillWords int
	Wordlist   []string
	Seed       int64
	Now        time.Time
}

// BuildPlan picks focus targets from the pools and assembles a drill.
func BuildPlan(pools model.Pools, opts Options) (model.PracticePlan, error) {
	words := stats.SmartTop3(pools.Words, model.TaxonomyWords)
	phonemes := stats.SmartTop3(pools.Phonemes, model.TaxonomyPhonemes)
	if len(words) == 0 && len(phonemes) == 0 {
		return model.PracticePlan{}, ErrNoTargets
	}
	if opts.DrillWords <= 0 {
		opts.DrillWords = DefaultDrillWords
	}
	if opts.Now.IsZero() {
		opts.Now = time.Now()
	}

	weaker := model.TaxonomyWords
	if len(phonemes) > 0 && (len(words) == 0 || meanAvg(phonemes) < meanAvg(words)) {
		weaker = model.TaxonomyPhonemes
	}

	plan := model.PracticePlan{CreatedAt: opts.Now}
	mix := opts.Mix
	if (mix == viewstate.MixWords && len(words) == 0) || (mix == viewstate.MixPhonemes && len(phonemes) == 0) {
		mix = viewstate.MixAuto
	}
	switch mix {
	case viewstate.MixWords:
		plan.Taxonomy = model.TaxonomyWords
	case viewstate.MixPhonemes:
		plan.Taxonomy = model.TaxonomyPhonemes
	case viewstate.MixBoth:
		plan.Taxonomy = weaker
	default:
		mix = viewstate.MixAuto
		plan.Taxonomy = weaker
	}
	if mix == viewstate.MixBoth || plan.Taxonomy == model.TaxonomyWords {
		for _, w := range words {
			plan.FocusWords = append(plan.FocusWords, w.ID)
		}
	}
	if len(phonemes) > 0 && (mix == viewstate.MixBoth || plan.Taxonomy == model.TaxonomyPhonemes) {
		p := phonemes[0]
		plan.FocusPhoneme = &model.PhonemeFocus{
			Symbol:   p.ID,
			Avg:      p.Avg,
			Count:    p.Count,
			Examples: append([]string(nil), p.Examples...),
		}
	}
	plan.Drill = buildDrill(plan, opts)
	return plan, nil
}

// buildDrill starts with the focus words and phoneme examples, then fills
// up from the seeds and the word list.
func buildDrill(plan model.PracticePlan, opts Options) []string {
	seeds := append([]string(nil), plan.FocusWords...)
	if plan.FocusPhoneme != nil {
		seeds = append(seeds, plan.FocusPhoneme.Examples...)
	}
	seeds = unique(seeds)
	if len(seeds) >= opts.DrillWords {
		return seeds[:opts.DrillWords]
	}
	pool := unique(append(append([]string(nil), seeds...), opts.Wordlist...))
	if len(pool) == 0 {
		return seeds
	}
	extra := NewDrill(opts.Seed).Weighted(pool, opts.DrillWords-len(seeds), seeds, soundsLikeFactor)
	return append(seeds, extra...)
}

func meanAvg(items []model.TargetStat) float64 {
	if len(items) == 0 {
		return 0
	}
	sum := 0.0
	for _, t := range items {
		sum += t.Avg
	}
	return sum / float64(len(items))
}

func unique(words []string) []string {
	seen := map[string]struct{}{}
	out := make([]string, 0, len(words))
	for _, w := range words {
		w = stats.NormalizeWord(w)
		if w == "" {
			continue
		}
		if _, ok := seen[w]; ok {
			continue
		}
		seen[w] = struct{}{}
		out = append(out, w)
	}
	return out
}

// Formats accepted by Encode.
const (
	FormatJSON = "json"
	FormatYAML = "yaml"
)

// Encode writes plan to w as JSON or YAML.
func Encode(w io.Writer, plan model.PracticePlan, format string) error {
	switch strings.ToLower(format) {
	case "", FormatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(plan)
	case FormatYAML, "yml":
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(plan); err != nil {
			return err
		}
		return enc.Close()
	default:
		return fmt.Errorf("unknown plan format %q", format)
	}
}

// WriteFile hands plan off by writing it to path. The format follows the
// file extension.
func WriteFile(path string, plan model.PracticePlan) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	format := FormatJSON
	if ext := strings.ToLower(filepath.Ext(path)); ext == ".yaml" || ext == ".yml" {
		format = FormatYAML
	}
	file, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := Encode(file, plan, format); err != nil {
		_ = file.Close()
		return fmt.Errorf("write plan: %w", err)
	}
	return file.Close()
}
