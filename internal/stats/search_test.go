package stats

import (
	"testing"

	"github.com/verte-zerg/pronocloud/internal/model"
)

func TestSearchReorderStablePartition(t *testing.T) {
	items := []model.TargetStat{
		{ID: "apple", Taxonomy: model.TaxonomyWords},
		{ID: "cat", Taxonomy: model.TaxonomyWords},
		{ID: "pineapple", Taxonomy: model.TaxonomyWords},
		{ID: "dog", Taxonomy: model.TaxonomyWords},
		{ID: "applet", Taxonomy: model.TaxonomyWords},
	}
	got := ids(SearchReorder(items, "APPLE"))
	want := []string{"apple", "pineapple", "applet", "cat", "dog"}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("expected %v, got %v", want, got)
		}
	}
}

func TestSearchReorderEmptyQuery(t *testing.T) {
	items := []model.TargetStat{{ID: "b"}, {ID: "a"}}
	got := ids(SearchReorder(items, "  "))
	if got[0] != "b" || got[1] != "a" {
		t.Fatalf("empty query must keep order, got %v", got)
	}
}

func TestMatcherExamplesAndSoundsLike(t *testing.T) {
	phoneme := model.TargetStat{ID: "θ", Taxonomy: model.TaxonomyPhonemes, Examples: []string{"think", "bath"}}
	if !NewMatcher("bath").Match(phoneme) {
		t.Fatalf("expected phoneme to match through its examples")
	}
	w := model.TargetStat{ID: "knight", Taxonomy: model.TaxonomyWords}
	if !NewMatcher("night").Match(w) {
		t.Fatalf("expected sounds-like match for knight/night")
	}
	if NewMatcher("zebra").Match(w) {
		t.Fatalf("unexpected match")
	}
	if NewMatcher("").Active() {
		t.Fatalf("empty matcher must be inactive")
	}
}
