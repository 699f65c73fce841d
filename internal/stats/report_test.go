package stats

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/verte-zerg/pronocloud/internal/model"
)

func TestBuildReport(t *testing.T) {
	now := time.Date(2025, 4, 1, 12, 0, 0, 0, time.UTC)
	attempts := []model.AttemptRecord{
		attempt(now.Add(-60*24*time.Hour), word("ancient", 10)),
		attempt(now.Add(-2*time.Hour), word("the", 40), word("cat", 90)),
		attempt(now.Add(-1*time.Hour), word("the", 50), word("cat", 95)),
	}
	report := BuildReport(attempts, ReportConfig{Range: model.Range30d, Rank: model.RankDifficulty, Now: now})
	if report.Attempts != 2 {
		t.Fatalf("expected 2 attempts in range, got %d", report.Attempts)
	}
	ranked := report.Ranked(model.TaxonomyWords)
	if len(ranked) != 2 || ranked[0].ID != "the" {
		t.Fatalf("unexpected ranking: %v", ids(ranked))
	}
	if len(report.TopWords) != 2 {
		t.Fatalf("expected both words to clear the floor, got %v", ids(report.TopWords))
	}
}

func TestRenderTargetTable(t *testing.T) {
	now := time.Date(2025, 4, 1, 12, 0, 0, 0, time.UTC)
	var buf bytes.Buffer
	items := []model.TargetStat{
		{ID: "the", Count: 6, Avg: 65, Days: 3, Priority: 0.7, LastSeen: now.Add(-49 * time.Hour)},
		{ID: "cat", Count: 2, Avg: 90, Days: 1},
	}
	if err := RenderTargetTable(&buf, "Words", items, 1, now); err != nil {
		t.Fatalf("render: %v", err)
	}
	out := buf.String()
	if !strings.Contains(out, "Words") || !strings.Contains(out, "the") || !strings.Contains(out, "2 days ago") {
		t.Fatalf("unexpected table: %s", out)
	}
	if strings.Contains(out, "cat") {
		t.Fatalf("limit not applied: %s", out)
	}

	buf.Reset()
	if err := RenderTargetTable(&buf, "Words", nil, 0, now); err != nil {
		t.Fatalf("render empty: %v", err)
	}
	if !strings.Contains(buf.String(), "Not enough data") {
		t.Fatalf("expected empty-state message, got %q", buf.String())
	}
}

func TestSparkline(t *testing.T) {
	if got := Sparkline([]float64{0, 50, 100}); got != " +@" {
		t.Fatalf("unexpected sparkline %q", got)
	}
	if got := Sparkline([]float64{3, 3}); got != "++" {
		t.Fatalf("flat sparkline %q", got)
	}
}
