package practice

import (
	"bytes"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/verte-zerg/pronocloud/internal/model"
	"github.com/verte-zerg/pronocloud/internal/viewstate"
)

var created = time.Date(2025, 7, 1, 9, 0, 0, 0, time.UTC)

func pools(wordAvg, phonemeAvg float64) model.Pools {
	return model.Pools{
		Words: []model.TargetStat{
			{ID: "three", Taxonomy: model.TaxonomyWords, Count: 5, Avg: wordAvg, Days: 2},
			{ID: "think", Taxonomy: model.TaxonomyWords, Count: 4, Avg: wordAvg + 5, Days: 2},
			{ID: "cat", Taxonomy: model.TaxonomyWords, Count: 6, Avg: 95, Days: 3},
		},
		Phonemes: []model.TargetStat{
			{ID: "θ", Taxonomy: model.TaxonomyPhonemes, Count: 9, Avg: phonemeAvg, Days: 2, Examples: []string{"three", "think", "bath"}},
			{ID: "æ", Taxonomy: model.TaxonomyPhonemes, Count: 6, Avg: 90, Days: 3, Examples: []string{"cat"}},
		},
	}
}

func TestBuildPlanAutoPicksWeakerTaxonomy(t *testing.T) {
	plan, err := BuildPlan(pools(70, 20), Options{Mix: viewstate.MixAuto, Now: created, Seed: 1})
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	if plan.Taxonomy != model.TaxonomyPhonemes || plan.FocusPhoneme == nil {
		t.Fatalf("expected a phoneme plan, got %+v", plan)
	}
	if plan.FocusPhoneme.Symbol != "θ" || len(plan.FocusWords) != 0 {
		t.Fatalf("unexpected focus %+v", plan)
	}

	plan, err = BuildPlan(pools(20, 85), Options{Now: created, Seed: 1})
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	if plan.Taxonomy != model.TaxonomyWords || plan.FocusPhoneme != nil {
		t.Fatalf("expected a word plan, got %+v", plan)
	}
	if len(plan.FocusWords) != 3 || plan.FocusWords[0] != "three" {
		t.Fatalf("unexpected focus words %v", plan.FocusWords)
	}
}

func TestBuildPlanBoth(t *testing.T) {
	plan, err := BuildPlan(pools(20, 85), Options{Mix: viewstate.MixBoth, Now: created, Seed: 1})
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	if len(plan.FocusWords) == 0 || plan.FocusPhoneme == nil {
		t.Fatalf("expected words and a phoneme, got %+v", plan)
	}
	if !plan.CreatedAt.Equal(created) {
		t.Fatalf("unexpected created_at %v", plan.CreatedAt)
	}
}

func TestBuildPlanMixFallsBackWhenTaxonomyEmpty(t *testing.T) {
	p := pools(50, 50)
	p.Phonemes = nil
	plan, err := BuildPlan(p, Options{Mix: viewstate.MixPhonemes, Now: created, Seed: 1})
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	if plan.Taxonomy != model.TaxonomyWords {
		t.Fatalf("expected fallback to words, got %s", plan.Taxonomy)
	}
}

func TestBuildPlanEmpty(t *testing.T) {
	if _, err := BuildPlan(model.Pools{}, Options{}); !errors.Is(err, ErrNoTargets) {
		t.Fatalf("expected ErrNoTargets, got %v", err)
	}
}

func TestDrillSeedsThenFills(t *testing.T) {
	opts := Options{Mix: viewstate.MixWords, DrillWords: 8, Wordlist: []string{"dog", "tree", "Three"}, Now: created, Seed: 7}
	plan, err := BuildPlan(pools(20, 85), opts)
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	if len(plan.Drill) != 8 {
		t.Fatalf("expected 8 drill words, got %v", plan.Drill)
	}
	if strings.Join(plan.Drill[:3], " ") != "three think cat" {
		t.Fatalf("drill should start with the focus words: %v", plan.Drill)
	}
	again, _ := BuildPlan(pools(20, 85), opts)
	if strings.Join(again.Drill, " ") != strings.Join(plan.Drill, " ") {
		t.Fatalf("same seed should give the same drill")
	}
}

func TestWeightedFavorsSharedCodes(t *testing.T) {
	words := []string{"fone", "cat", "dog"}
	picks := NewDrill(42).Weighted(words, 300, []string{"phone"}, 20)
	if len(picks) != 300 {
		t.Fatalf("expected 300 picks, got %d", len(picks))
	}
	hits := 0
	for i, w := range picks {
		if w == "fone" {
			hits++
		}
		if i > 0 && picks[i-1] == w {
			t.Fatalf("repeated %q at %d", w, i)
		}
	}
	if hits < 120 {
		t.Fatalf("expected sound-alike bias, got %d/300", hits)
	}
}

func TestEncodeFormats(t *testing.T) {
	plan, err := BuildPlan(pools(70, 20), Options{Now: created, Seed: 1})
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	var buf bytes.Buffer
	if err := Encode(&buf, plan, FormatJSON); err != nil {
		t.Fatalf("json: %v", err)
	}
	var decoded model.PracticePlan
	if err := json.Unmarshal(buf.Bytes(), &decoded); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if decoded.FocusPhoneme == nil || decoded.FocusPhoneme.Symbol != "θ" {
		t.Fatalf("unexpected decoded plan %+v", decoded)
	}

	buf.Reset()
	if err := Encode(&buf, plan, FormatYAML); err != nil {
		t.Fatalf("yaml: %v", err)
	}
	if !strings.Contains(buf.String(), "focus_phoneme:") || !strings.Contains(buf.String(), "taxonomy: phonemes") {
		t.Fatalf("unexpected yaml:\n%s", buf.String())
	}
	if err := Encode(&buf, plan, "xml"); err == nil {
		t.Fatalf("expected an error for an unknown format")
	}
}

func TestWriteFile(t *testing.T) {
	plan, _ := BuildPlan(pools(20, 85), Options{Now: created, Seed: 1})
	path := filepath.Join(t.TempDir(), "out", "plan.yaml")
	if err := WriteFile(path, plan); err != nil {
		t.Fatalf("write: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if !strings.HasPrefix(string(data), "taxonomy: words") {
		t.Fatalf("expected yaml output, got:\n%s", data)
	}
}
