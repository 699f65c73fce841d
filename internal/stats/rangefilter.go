package stats

import (
	"math"
	"time"

	"github.com/verte-zerg/pronocloud/internal/model"
)

// FilterRange keeps attempts inside a rolling range selector ending at now.
// "all" and "timeline" return every attempt; timeline slicing happens later.
func FilterRange(attempts []model.AttemptRecord, sel string, now time.Time) []model.AttemptRecord {
	var span time.Duration
	switch sel {
	case model.Range7d:
		span = 7 * 24 * time.Hour
	case model.Range30d:
		span = 30 * 24 * time.Hour
	case model.Range90d:
		span = 90 * 24 * time.Hour
	default:
		return attempts
	}
	cutoff := now.Add(-span)
	out := make([]model.AttemptRecord, 0, len(attempts))
	for _, a := range attempts {
		if !a.Timestamp.Before(cutoff) {
			out = append(out, a)
		}
	}
	return out
}

// TimelineDays returns the number of calendar days spanned by attempts,
// counting from the first attempt's day.
func TimelineDays(attempts []model.AttemptRecord, loc *time.Location) int {
	first, last, ok := span(attempts)
	if !ok {
		return 0
	}
	return dayIndex(first, last, loc) + 1
}

// TimelineMaxPosition is the last valid window start for a window of
// window days.
func TimelineMaxPosition(attempts []model.AttemptRecord, window int, loc *time.Location) int {
	if window < 1 {
		window = 1
	}
	return max(0, TimelineDays(attempts, loc)-window)
}

// TimelineSlice keeps attempts whose day falls in [position, position+window)
// counted from the first attempt's day.
func TimelineSlice(attempts []model.AttemptRecord, window, position int, loc *time.Location) []model.AttemptRecord {
	first, _, ok := span(attempts)
	if !ok {
		return nil
	}
	if window < 1 {
		window = 1
	}
	out := make([]model.AttemptRecord, 0, len(attempts))
	for _, a := range attempts {
		d := dayIndex(first, a.Timestamp, loc)
		if d >= position && d < position+window {
			out = append(out, a)
		}
	}
	return out
}

func span(attempts []model.AttemptRecord) (first, last time.Time, ok bool) {
	for i, a := range attempts {
		if i == 0 || a.Timestamp.Before(first) {
			first = a.Timestamp
		}
		if i == 0 || a.Timestamp.After(last) {
			last = a.Timestamp
		}
	}
	return first, last, len(attempts) > 0
}

func dayIndex(first, ts time.Time, loc *time.Location) int {
	if loc == nil {
		loc = time.Local
	}
	y, m, d := first.In(loc).Date()
	start := time.Date(y, m, d, 0, 0, 0, 0, loc)
	y, m, d = ts.In(loc).Date()
	day := time.Date(y, m, d, 0, 0, 0, 0, loc)
	return int(math.Round(day.Sub(start).Hours() / 24))
}
