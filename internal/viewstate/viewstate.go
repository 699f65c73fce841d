// Package viewstate holds the explorer's view state. All changes go through
// Store.Set, which normalizes, persists, mirrors to a query string and
// notifies subscribers.
package viewstate

import (
	"context"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"sync"

	clog "github.com/charmbracelet/log"

	"github.com/verte-zerg/pronocloud/internal/model"
)

// Mix strategies for practice plans.
const (
	MixAuto     = "auto"
	MixWords    = "words"
	MixPhonemes = "phonemes"
	MixBoth     = "both"
)

// Mixes lists mix strategies in cycling order.
var Mixes = []string{MixAuto, MixWords, MixPhonemes, MixBoth}

const (
	persistKey    = "view.state"
	defaultWindow = 7
)

// State is the view state.
type State struct {
	Taxonomy model.Taxonomy `json:"taxonomy"`
	Rank     model.RankMode `json:"rank"`
	Range    string         `json:"range"`
	Search   string         `json:"search"`
	Cluster  bool           `json:"cluster"`
	Theme    string         `json:"theme"`
	Mix      string         `json:"mix"`
	Window   int            `json:"window"`
	Position int            `json:"position"`
}

// Defaults returns the initial state.
func Defaults() State {
	return State{
		Taxonomy: model.TaxonomyWords,
		Rank:     model.RankPriority,
		Range:    model.RangeAll,
		Theme:    "dark",
		Mix:      MixAuto,
		Window:   defaultWindow,
	}
}

// Patch lists fields to change. Nil fields are left alone.
type Patch struct {
	Taxonomy *model.Taxonomy
	Rank     *model.RankMode
	Range    *string
	Search   *string
	Cluster  *bool
	Theme    *string
	Mix      *string
	Window   *int
	Position *int
}

// Ptr returns a pointer to v, for building patches.
func Ptr[T any](v T) *T { return &v }

func (p Patch) apply(s State) State {
	if p.Taxonomy != nil {
		s.Taxonomy = *p.Taxonomy
	}
	if p.Rank != nil {
		s.Rank = *p.Rank
	}
	if p.Range != nil {
		s.Range = *p.Range
	}
	if p.Search != nil {
		s.Search = *p.Search
	}
	if p.Cluster != nil {
		s.Cluster = *p.Cluster
	}
	if p.Theme != nil {
		s.Theme = *p.Theme
	}
	if p.Mix != nil {
		s.Mix = *p.Mix
	}
	if p.Window != nil {
		s.Window = *p.Window
	}
	if p.Position != nil {
		s.Position = *p.Position
	}
	return s
}

// Normalize replaces unknown or out-of-range values with defaults.
func Normalize(s State) State {
	d := Defaults()
	if !s.Taxonomy.Valid() {
		s.Taxonomy = d.Taxonomy
	}
	if !s.Rank.Valid() {
		s.Rank = d.Rank
	}
	if !contains(model.Ranges, s.Range) {
		s.Range = d.Range
	}
	if s.Theme != "dark" && s.Theme != "light" {
		s.Theme = d.Theme
	}
	if !contains(Mixes, s.Mix) {
		s.Mix = d.Mix
	}
	if s.Window < 1 {
		s.Window = d.Window
	}
	if s.Position < 0 {
		s.Position = 0
	}
	s.Search = strings.TrimSpace(s.Search)
	return s
}

func contains(list []string, v string) bool {
	for _, item := range list {
		if item == v {
			return true
		}
	}
	return false
}

// Persister stores the state between sessions.
type Persister interface {
	Load(ctx context.Context, key string, out any) bool
	Save(ctx context.Context, key string, value any) error
}

// Listener receives the previous and the new state.
type Listener func(prev, next State)

// Store owns the view state.
type Store struct {
	mu      sync.Mutex
	state   State
	query   string
	persist Persister
	logger  *clog.Logger
	subs    map[int]Listener
	nextSub int
}

// New returns a store holding defaults. persist may be nil.
func New(persist Persister, logger *clog.Logger) *Store {
	s := &Store{persist: persist, logger: logger, subs: map[int]Listener{}}
	s.state = Defaults()
	s.query = Encode(s.state)
	return s
}

// Boot sets the initial state: base, then persisted preferences, then the
// query string. Absent query keys keep the earlier value.
func (s *Store) Boot(ctx context.Context, base State, rawQuery string) State {
	state := Normalize(base)
	if s.persist != nil {
		var saved State
		if s.persist.Load(ctx, persistKey, &saved) {
			state = Normalize(mergeSaved(state, saved))
		}
	}
	state = Normalize(Decode(rawQuery, state))
	s.mu.Lock()
	s.state = state
	s.query = Encode(state)
	s.mu.Unlock()
	return state
}

// mergeSaved keeps base values for fields the saved state leaves empty.
func mergeSaved(base, saved State) State {
	if saved.Taxonomy != "" {
		base.Taxonomy = saved.Taxonomy
	}
	if saved.Rank != "" {
		base.Rank = saved.Rank
	}
	if saved.Range != "" {
		base.Range = saved.Range
	}
	if saved.Theme != "" {
		base.Theme = saved.Theme
	}
	if saved.Mix != "" {
		base.Mix = saved.Mix
	}
	if saved.Window > 0 {
		base.Window = saved.Window
	}
	base.Search = saved.Search
	base.Cluster = saved.Cluster
	base.Position = saved.Position
	return base
}

// Get returns the current state.
func (s *Store) Get() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Query returns the query string mirroring the current state.
func (s *Store) Query() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.query
}

// Set applies patch and returns the new state. Subscribers are notified
// only when something changed.
func (s *Store) Set(ctx context.Context, patch Patch) State {
	s.mu.Lock()
	prev := s.state
	next := Normalize(patch.apply(prev))
	if next == prev {
		s.mu.Unlock()
		return next
	}
	s.state = next
	s.query = Encode(next)
	listeners := make([]Listener, 0, len(s.subs))
	keys := make([]int, 0, len(s.subs))
	for k := range s.subs {
		keys = append(keys, k)
	}
	sort.Ints(keys)
	for _, k := range keys {
		listeners = append(listeners, s.subs[k])
	}
	s.mu.Unlock()

	if s.persist != nil {
		if err := s.persist.Save(ctx, persistKey, next); err != nil && s.logger != nil {
			s.logger.Warn("failed to persist view state", "err", err)
		}
	}
	for _, fn := range listeners {
		fn(prev, next)
	}
	return next
}

// Subscribe registers fn and returns a function removing it.
func (s *Store) Subscribe(fn Listener) func() {
	s.mu.Lock()
	id := s.nextSub
	s.nextSub++
	s.subs[id] = fn
	s.mu.Unlock()
	return func() {
		s.mu.Lock()
		delete(s.subs, id)
		s.mu.Unlock()
	}
}

// Query keys.
const (
	keyTaxonomy = "tax"
	keyRank     = "rank"
	keyRange    = "range"
	keySearch   = "q"
	keyTheme    = "theme"
	keyCluster  = "cluster"
	keyMix      = "mix"
	keyWindow   = "win"
	keyPosition = "pos"
)

// Encode renders every field of s as a query string.
func Encode(s State) string {
	v := url.Values{}
	v.Set(keyTaxonomy, string(s.Taxonomy))
	v.Set(keyRank, string(s.Rank))
	v.Set(keyRange, s.Range)
	v.Set(keySearch, s.Search)
	v.Set(keyTheme, s.Theme)
	v.Set(keyCluster, boolParam(s.Cluster))
	v.Set(keyMix, s.Mix)
	v.Set(keyWindow, strconv.Itoa(s.Window))
	v.Set(keyPosition, strconv.Itoa(s.Position))
	return v.Encode()
}

// Decode overlays values present in rawQuery onto base. Malformed input
// leaves base untouched.
func Decode(rawQuery string, base State) State {
	v, err := url.ParseQuery(strings.TrimPrefix(rawQuery, "?"))
	if err != nil {
		return base
	}
	if x := v.Get(keyTaxonomy); x != "" {
		base.Taxonomy = model.Taxonomy(x)
	}
	if x := v.Get(keyRank); x != "" {
		base.Rank = model.RankMode(x)
	}
	if x := v.Get(keyRange); x != "" {
		base.Range = x
	}
	if v.Has(keySearch) {
		base.Search = v.Get(keySearch)
	}
	if x := v.Get(keyTheme); x != "" {
		base.Theme = x
	}
	if x := v.Get(keyCluster); x != "" {
		base.Cluster = x == "1" || x == "true"
	}
	if x := v.Get(keyMix); x != "" {
		base.Mix = x
	}
	if n, err := strconv.Atoi(v.Get(keyWindow)); err == nil {
		base.Window = n
	}
	if n, err := strconv.Atoi(v.Get(keyPosition)); err == nil {
		base.Position = n
	}
	return base
}

func boolParam(b bool) string {
	if b {
		return "1"
	}
	return "0"
}
