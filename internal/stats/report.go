package stats

import (
	"fmt"
	"io"
	"math"
	"strings"
	"time"

	"github.com/verte-zerg/pronocloud/internal/model"
)

const sparkChars = " .:-=+*#%@"

// ReportConfig selects what a report covers.
type ReportConfig struct {
	Range    string
	Rank     model.RankMode
	Search   string
	PoolSize int
	Now      time.Time
}

// Report contains precomputed data for ranking output.
type Report struct {
	Attempts     int
	Pools        model.Pools
	TopWords     []model.TargetStat
	TopPhonemes  []model.TargetStat
	RankedWords  []model.TargetStat
	RankedPhones []model.TargetStat
}

// BuildReport aggregates attempts and ranks both taxonomies.
func BuildReport(attempts []model.AttemptRecord, cfg ReportConfig) Report {
	now := cfg.Now
	if now.IsZero() {
		now = time.Now()
	}
	inRange := FilterRange(attempts, cfg.Range, now)
	pools := Aggregate(inRange, AggregateOptions{PoolSize: cfg.PoolSize})
	return Report{
		Attempts:     len(inRange),
		Pools:        pools,
		TopWords:     SmartTop3(pools.Words, model.TaxonomyWords),
		TopPhonemes:  SmartTop3(pools.Phonemes, model.TaxonomyPhonemes),
		RankedWords:  SearchReorder(Rank(pools.Words, cfg.Rank), cfg.Search),
		RankedPhones: SearchReorder(Rank(pools.Phonemes, cfg.Rank), cfg.Search),
	}
}

// Ranked returns the ranked list of a taxonomy.
func (r Report) Ranked(tax model.Taxonomy) []model.TargetStat {
	if tax == model.TaxonomyPhonemes {
		return r.RankedPhones
	}
	return r.RankedWords
}

// Sparkline renders a single-line ASCII sparkline for the values.
func Sparkline(values []float64) string {
	if len(values) == 0 {
		return ""
	}
	minVal := values[0]
	maxVal := values[0]
	for _, v := range values[1:] {
		minVal = math.Min(minVal, v)
		maxVal = math.Max(maxVal, v)
	}
	if math.Abs(maxVal-minVal) < 1e-9 {
		return strings.Repeat(string(sparkChars[len(sparkChars)/2]), len(values))
	}
	var b strings.Builder
	for _, v := range values {
		pos := (v - minVal) / (maxVal - minVal)
		idx := int(math.Round(pos * float64(len(sparkChars)-1)))
		if idx < 0 {
			idx = 0
		}
		if idx >= len(sparkChars) {
			idx = len(sparkChars) - 1
		}
		b.WriteByte(sparkChars[idx])
	}
	return b.String()
}

// RenderTargetTable prints ranked targets as an aligned table.
func RenderTargetTable(w io.Writer, title string, items []model.TargetStat, limit int, now time.Time) error {
	if len(items) == 0 {
		_, err := fmt.Fprintln(w, "Not enough data yet. Practice a few more phrases.")
		return err
	}
	if limit > 0 && len(items) > limit {
		items = items[:limit]
	}
	if _, err := fmt.Fprintln(w, title); err != nil {
		return err
	}
	headers := []string{"#", "Target", "Count", "Avg", "Days", "Priority", "Last seen"}
	rows := make([][]string, 0, len(items))
	for i, t := range items {
		rows = append(rows, []string{
			fmt.Sprintf("%d", i+1),
			t.ID,
			fmt.Sprintf("%d", t.Count),
			fmt.Sprintf("%.1f", t.Avg),
			fmt.Sprintf("%d", t.Days),
			fmt.Sprintf("%.3f", t.Priority),
			lastSeenLabel(t.LastSeen, now),
		})
	}
	rightAlign := map[int]bool{0: true, 2: true, 3: true, 4: true, 5: true}
	for _, line := range formatTable(headers, rows, rightAlign) {
		if _, err := fmt.Fprintln(w, line); err != nil {
			return err
		}
	}
	_, err := fmt.Fprintln(w, "")
	return err
}

func lastSeenLabel(ts, now time.Time) string {
	if ts.IsZero() {
		return "-"
	}
	days := int(now.Sub(ts).Hours() / 24)
	switch {
	case days <= 0:
		return "today"
	case days == 1:
		return "1 day ago"
	default:
		return fmt.Sprintf("%d days ago", days)
	}
}
