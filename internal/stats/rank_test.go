package stats

import (
	"math"
	"testing"
	"time"

	"github.com/verte-zerg/pronocloud/internal/model"
)

func sampleTargets() []model.TargetStat {
	now := time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC)
	return []model.TargetStat{
		{ID: "a", Count: 10, Avg: 90, Days: 5, LastSeen: now},
		{ID: "b", Count: 3, Avg: 40, Days: 1, LastSeen: now.Add(-48 * time.Hour)},
		{ID: "c", Count: 6, Avg: 55, Days: 4, LastSeen: now.Add(-2 * time.Hour)},
		{ID: "d", Count: 1, Avg: 70, Days: 1, LastSeen: now.Add(-200 * time.Hour)},
	}
}

func ids(items []model.TargetStat) []string {
	out := make([]string, len(items))
	for i, t := range items {
		out[i] = t.ID
	}
	return out
}

func TestRankPolicies(t *testing.T) {
	items := sampleTargets()
	cases := map[model.RankMode][]string{
		model.RankFrequency:  {"a", "c", "b", "d"},
		model.RankDifficulty: {"b", "c", "d", "a"},
		model.RankRecency:    {"a", "c", "b", "d"},
	}
	for mode, want := range cases {
		got := ids(Rank(items, mode))
		for i := range want {
			if got[i] != want[i] {
				t.Fatalf("%s: expected %v, got %v", mode, want, got)
			}
		}
	}
	if items[0].ID != "a" || items[1].ID != "b" {
		t.Fatalf("Rank must not reorder its input")
	}
}

func TestRankPersistence(t *testing.T) {
	items := sampleTargets()
	got := Rank(items, model.RankPersistence)
	for i := 1; i < len(got); i++ {
		if PersistentScore(got[i-1]) < PersistentScore(got[i]) {
			t.Fatalf("persistence order broken at %d: %v", i, ids(got))
		}
	}
	want := math.Pow(6, 1.2) * math.Pow(11, 0.65) * (0.35 + 0.10)
	if math.Abs(PersistentScore(items[0])-want) > 1e-9 {
		t.Fatalf("unexpected persistent score %v, want %v", PersistentScore(items[0]), want)
	}
}

func TestComputePriorityRange(t *testing.T) {
	items := sampleTargets()
	ComputePriority(items)
	for _, it := range items {
		if it.Priority < 0 || it.Priority > 1+1e-9 {
			t.Fatalf("priority out of range for %s: %v", it.ID, it.Priority)
		}
	}
	ranked := Rank(items, model.RankPriority)
	for i := 1; i < len(ranked); i++ {
		if ranked[i-1].Priority < ranked[i].Priority {
			t.Fatalf("priority order broken: %v", ids(ranked))
		}
	}
}

func TestComputePriorityFlatPool(t *testing.T) {
	single := []model.TargetStat{{ID: "solo", Count: 3, Avg: 50}}
	ComputePriority(single)
	if single[0].Priority != 0 {
		t.Fatalf("flat pool should normalize to 0, got %v", single[0].Priority)
	}
}

func TestPrioritySwapAvgFollowsDifficulty(t *testing.T) {
	ts := time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC)
	build := func(avgX, avgY float64) []string {
		items := []model.TargetStat{
			{ID: "x", Count: 4, Avg: avgX, Days: 2, LastSeen: ts},
			{ID: "y", Count: 4, Avg: avgY, Days: 2, LastSeen: ts},
			{ID: "z", Count: 9, Avg: 80, Days: 6, LastSeen: ts.Add(-time.Hour)},
		}
		ComputePriority(items)
		var order []string
		for _, it := range Rank(items, model.RankPriority) {
			if it.ID == "x" || it.ID == "y" {
				order = append(order, it.ID)
			}
		}
		return order
	}
	before := build(40, 70)
	if before[0] != "x" {
		t.Fatalf("harder item should lead, got %v", before)
	}
	after := build(70, 40)
	if after[0] != "y" {
		t.Fatalf("order should follow difficulty after swap, got %v", after)
	}
	tie := build(55, 55)
	if tie[0] != "x" {
		t.Fatalf("equal items should tie-break by id, got %v", tie)
	}
}

func TestRankRecencyZeroLast(t *testing.T) {
	items := []model.TargetStat{
		{ID: "unseen"},
		{ID: "seen", LastSeen: time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)},
	}
	got := Rank(items, model.RankRecency)
	if got[0].ID != "seen" {
		t.Fatalf("expected unresolved last-seen to sort last, got %v", ids(got))
	}
}
