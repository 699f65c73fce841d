// Package detail builds the detail sheet for one target.
package detail

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/verte-zerg/pronocloud/internal/layout"
	"github.com/verte-zerg/pronocloud/internal/model"
	"github.com/verte-zerg/pronocloud/internal/paint"
	"github.com/verte-zerg/pronocloud/internal/prefs"
	"github.com/verte-zerg/pronocloud/internal/render"
	"github.com/verte-zerg/pronocloud/internal/stats"
)

const (
	// MaxRecents bounds the recent attempts shown.
	MaxRecents = 6
	// maxScan bounds how many attempts are inspected for recents.
	maxScan = 500
)

// ErrNotFound means the target is not in the last computed pool.
var ErrNotFound = errors.New("target not in the current pool")

// Source provides the last computed render data.
type Source interface {
	Snapshot() render.Snapshot
}

// Saved is the saved-set store.
type Saved interface {
	IsSaved(ctx context.Context, kind string, tax model.Taxonomy, id string) bool
	Toggle(ctx context.Context, kind string, tax model.Taxonomy, id string) (bool, error)
}

// Recent is one recent attempt containing the target.
type Recent struct {
	AttemptID string
	When      time.Time
	Text      string
	Score     float64
}

// ViewModel is the detail sheet content.
type ViewModel struct {
	ID            string
	Title         string
	Taxonomy      model.Taxonomy
	Avg           float64
	Count         int
	Days          int
	Priority      float64
	Band          string
	LastSeen      time.Time
	LastSeenLabel string
	Examples      []string
	Recents       []Recent
	Trend         string
	Favorite      bool
	Pinned        bool
}

// Controller resolves targets into view models.
type Controller struct {
	source Source
	saved  Saved
	now    func() time.Time

	mu     sync.Mutex
	onOpen []func()
}

// New returns a controller. saved may be nil.
func New(source Source, saved Saved, now func() time.Time) *Controller {
	if now == nil {
		now = time.Now
	}
	return &Controller{source: source, saved: saved, now: now}
}

// OnOpen registers fn to run before every open.
func (c *Controller) OnOpen(fn func()) {
	c.mu.Lock()
	c.onOpen = append(c.onOpen, fn)
	c.mu.Unlock()
}

// OpenItem opens a hit-test result.
func (c *Controller) OpenItem(ctx context.Context, it layout.Item) (ViewModel, error) {
	return c.Open(ctx, it.Stat.Taxonomy, it.Stat.ID)
}

// Open builds the view model of id. An empty taxonomy is resolved from a
// "word:" or "phoneme:" prefix, then by looking in the word pool before the
// phoneme pool.
func (c *Controller) Open(ctx context.Context, tax model.Taxonomy, id string) (ViewModel, error) {
	c.mu.Lock()
	hooks := append([]func(){}, c.onOpen...)
	c.mu.Unlock()
	for _, fn := range hooks {
		fn()
	}

	snap := c.source.Snapshot()
	if tax == "" {
		tax, id = splitPrefix(id)
	}
	stat, ok := lookup(snap.Pools, tax, id)
	if !ok {
		return ViewModel{}, fmt.Errorf("%w: %q", ErrNotFound, id)
	}

	vm := ViewModel{
		ID:       stat.ID,
		Title:    title(stat),
		Taxonomy: stat.Taxonomy,
		Avg:      stat.Avg,
		Count:    stat.Count,
		Days:     stat.Days,
		Priority: stat.Priority,
		Band:     paint.BandFor(stat.Avg).String(),
		LastSeen: stat.LastSeen,
		Examples: append([]string(nil), stat.Examples...),
		Recents:  Recents(snap.History, stat.Taxonomy, stat.ID),
	}
	if stat.LastSeen.IsZero() {
		vm.LastSeenLabel = "never"
	} else {
		vm.LastSeenLabel = humanize.RelTime(stat.LastSeen, c.now(), "ago", "from now")
	}
	trend := make([]float64, 0, len(vm.Recents))
	for i := len(vm.Recents) - 1; i >= 0; i-- {
		trend = append(trend, vm.Recents[i].Score)
	}
	vm.Trend = stats.Sparkline(trend)
	if c.saved != nil {
		vm.Favorite = c.saved.IsSaved(ctx, prefs.KindFavorite, stat.Taxonomy, stat.ID)
		vm.Pinned = c.saved.IsSaved(ctx, prefs.KindPinned, stat.Taxonomy, stat.ID)
	}
	return vm, nil
}

// ToggleFavorite flips the favorite flag of vm.
func (c *Controller) ToggleFavorite(ctx context.Context, vm *ViewModel) error {
	return c.toggle(ctx, prefs.KindFavorite, vm, &vm.Favorite)
}

// TogglePinned flips the pinned flag of vm.
func (c *Controller) TogglePinned(ctx context.Context, vm *ViewModel) error {
	return c.toggle(ctx, prefs.KindPinned, vm, &vm.Pinned)
}

func (c *Controller) toggle(ctx context.Context, kind string, vm *ViewModel, flag *bool) error {
	if c.saved == nil {
		return errors.New("saved sets unavailable")
	}
	on, err := c.saved.Toggle(ctx, kind, vm.Taxonomy, vm.ID)
	if err != nil {
		return fmt.Errorf("toggle %s: %w", kind, err)
	}
	*flag = on
	return nil
}

// Recents returns up to MaxRecents attempts containing the target, newest
// first. history is oldest first; at most maxScan attempts are inspected.
func Recents(history []model.AttemptRecord, tax model.Taxonomy, id string) []Recent {
	var out []Recent
	scanned := 0
	for i := len(history) - 1; i >= 0 && len(out) < MaxRecents && scanned < maxScan; i-- {
		scanned++
		a := history[i]
		if score, ok := scoreIn(a, tax, id); ok {
			out = append(out, Recent{AttemptID: a.ID, When: a.Timestamp, Text: a.Text, Score: score})
		}
	}
	return out
}

// scoreIn returns the mean score of the target within one attempt.
func scoreIn(a model.AttemptRecord, tax model.Taxonomy, id string) (float64, bool) {
	sum := 0.0
	n := 0
	for _, w := range a.Words {
		if tax == model.TaxonomyWords {
			if stats.NormalizeWord(w.Word) == id {
				sum += w.Accuracy
				n++
			}
			continue
		}
		for _, p := range w.Phonemes {
			if stats.NormalizePhoneme(p.Phoneme) == id {
				sum += p.Accuracy
				n++
			}
		}
	}
	if n == 0 {
		return 0, false
	}
	return sum / float64(n), true
}

func splitPrefix(id string) (model.Taxonomy, string) {
	switch {
	case strings.HasPrefix(id, "word:"):
		return model.TaxonomyWords, strings.TrimPrefix(id, "word:")
	case strings.HasPrefix(id, "phoneme:"):
		return model.TaxonomyPhonemes, strings.TrimPrefix(id, "phoneme:")
	}
	return "", id
}

func lookup(pools model.Pools, tax model.Taxonomy, id string) (model.TargetStat, bool) {
	order := []model.Taxonomy{model.TaxonomyWords, model.TaxonomyPhonemes}
	if tax != "" {
		order = []model.Taxonomy{tax}
	}
	for _, t := range order {
		key := stats.NormalizeID(t, id)
		for _, s := range pools.For(t) {
			if s.ID == key {
				if s.Taxonomy == "" {
					s.Taxonomy = t
				}
				return s, true
			}
		}
	}
	return model.TargetStat{}, false
}

func title(s model.TargetStat) string {
	if s.Taxonomy == model.TaxonomyPhonemes {
		return "/" + s.ID + "/"
	}
	return s.ID
}
