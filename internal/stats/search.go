package stats

import (
	"strings"

	"github.com/antzucaro/matchr"

	"github.com/verte-zerg/pronocloud/internal/model"
)

const soundsLikeThreshold = 0.9

// Matcher tests targets against a free-text query. Words also match when
// they sound like the query.
type Matcher struct {
	query string
	codes map[string]struct{}
}

// NewMatcher builds a matcher for query. An empty query matches nothing.
func NewMatcher(query string) *Matcher {
	query = strings.ToLower(strings.TrimSpace(query))
	m := &Matcher{query: query}
	if len([]rune(query)) >= 3 {
		m.codes = metaphoneCodes(query)
	}
	return m
}

// Active reports whether the matcher filters anything.
func (m *Matcher) Active() bool {
	return m != nil && m.query != ""
}

// Query returns the normalized query.
func (m *Matcher) Query() string {
	if m == nil {
		return ""
	}
	return m.query
}

// Match reports whether t matches the query.
func (m *Matcher) Match(t model.TargetStat) bool {
	if !m.Active() {
		return false
	}
	if strings.Contains(t.ID, m.query) {
		return true
	}
	for _, ex := range t.Examples {
		if strings.Contains(ex, m.query) {
			return true
		}
	}
	if t.Taxonomy != model.TaxonomyWords || len(m.codes) == 0 {
		return false
	}
	if matchr.JaroWinkler(t.ID, m.query, false) >= soundsLikeThreshold {
		return true
	}
	for code := range metaphoneCodes(t.ID) {
		if _, ok := m.codes[code]; ok {
			return true
		}
	}
	return false
}

// SearchReorder moves matching items to the front. Relative order inside the
// matching and non-matching groups is preserved.
func SearchReorder(items []model.TargetStat, query string) []model.TargetStat {
	m := NewMatcher(query)
	if !m.Active() {
		return append([]model.TargetStat(nil), items...)
	}
	matched := make([]model.TargetStat, 0, len(items))
	rest := make([]model.TargetStat, 0, len(items))
	for _, t := range items {
		if m.Match(t) {
			matched = append(matched, t)
		} else {
			rest = append(rest, t)
		}
	}
	return append(matched, rest...)
}

func metaphoneCodes(word string) map[string]struct{} {
	codes := map[string]struct{}{}
	primary, secondary := matchr.DoubleMetaphone(word)
	if primary != "" {
		codes[primary] = struct{}{}
	}
	if secondary != "" {
		codes[secondary] = struct{}{}
	}
	return codes
}
