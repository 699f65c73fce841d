package render

import (
	"context"
	"fmt"
	"io"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	clog "github.com/charmbracelet/log"
	"golang.org/x/sync/singleflight"

	"github.com/verte-zerg/pronocloud/internal/layout"
	"github.com/verte-zerg/pronocloud/internal/model"
	"github.com/verte-zerg/pronocloud/internal/paint"
	"github.com/verte-zerg/pronocloud/internal/prefs"
	"github.com/verte-zerg/pronocloud/internal/stats"
	"github.com/verte-zerg/pronocloud/internal/viewstate"
)

// Defaults for Options.
const (
	DefaultMaxItems  = 60
	DefaultSlowAfter = 1500 * time.Millisecond
)

// HistorySource fetches attempt history. It must be idempotent.
type HistorySource interface {
	FetchHistory(ctx context.Context, userID string) ([]model.AttemptRecord, error)
}

// Dependency is loaded before the first render.
type Dependency interface {
	Load(ctx context.Context) error
}

// DependencyFunc adapts a function to Dependency.
type DependencyFunc func(ctx context.Context) error

// Load calls f.
func (f DependencyFunc) Load(ctx context.Context) error { return f(ctx) }

// View provides the current view state.
type View interface {
	Get() viewstate.State
}

// SavedSets reports saved ids.
type SavedSets interface {
	SavedSet(ctx context.Context, kind string, tax model.Taxonomy) map[string]struct{}
}

// Healer may reset the timeline when a window comes out empty. It returns
// true when the position was changed and the render should be retried.
type Healer interface {
	AutoHeal(inWindow, total int) bool
}

// Options configures an Orchestrator.
type Options struct {
	User      string
	MaxItems  int
	PoolSize  int
	Sizes     layout.SizeOptions
	SlowAfter time.Duration
	Location  *time.Location
	Logger    *clog.Logger
	Now       func() time.Time
}

// DrawOptions selects what a render may reuse.
type DrawOptions struct {
	// ForceFetch refetches history instead of using the cached copy.
	ForceFetch bool
	// ReuseLayoutOnly rescales the cached placement when the item set is
	// unchanged instead of packing again.
	ReuseLayoutOnly bool
}

// Snapshot is the data behind the last completed computation.
type Snapshot struct {
	Taxonomy model.Taxonomy
	History  []model.AttemptRecord
	InRange  []model.AttemptRecord
	Pools    model.Pools
	Ranked   []model.TargetStat
}

// Orchestrator runs renders. The sequence token and the placement cache are
// only written here.
type Orchestrator struct {
	source HistorySource
	dep    Dependency
	view   View
	saved  SavedSets
	layout *layout.Engine
	paint  *paint.Engine
	opts   Options
	logger *clog.Logger

	token   atomic.Uint64
	drawing atomic.Bool
	cache   layout.Cache
	fetches singleflight.Group

	histMu  sync.Mutex
	history []model.AttemptRecord
	fetched bool

	snapMu   sync.Mutex
	snapshot Snapshot

	healMu sync.Mutex
	healer Healer

	statusMu sync.Mutex
	status   Status
	subs     map[int]func(Status)
	nextSub  int
}

// New returns an orchestrator. saved may be nil.
func New(source HistorySource, dep Dependency, view View, saved SavedSets, le *layout.Engine, pe *paint.Engine, opts Options) *Orchestrator {
	if opts.MaxItems <= 0 {
		opts.MaxItems = DefaultMaxItems
	}
	if opts.SlowAfter <= 0 {
		opts.SlowAfter = DefaultSlowAfter
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.Location == nil {
		opts.Location = time.Local
	}
	if opts.Logger == nil {
		opts.Logger = clog.New(io.Discard)
	}
	if dep == nil {
		dep = DependencyFunc(func(context.Context) error { return nil })
	}
	return &Orchestrator{
		source: source,
		dep:    dep,
		view:   view,
		saved:  saved,
		layout: le,
		paint:  pe,
		opts:   opts,
		logger: opts.Logger,
		subs:   map[int]func(Status){},
	}
}

// SetHealer installs the timeline auto-heal hook.
func (o *Orchestrator) SetHealer(h Healer) {
	o.healMu.Lock()
	o.healer = h
	o.healMu.Unlock()
}

// Token returns the current sequence token.
func (o *Orchestrator) Token() uint64 { return o.token.Load() }

// Status returns the last published status.
func (o *Orchestrator) Status() Status {
	o.statusMu.Lock()
	defer o.statusMu.Unlock()
	return o.status
}

// Subscribe registers fn for status changes and returns a function removing
// it.
func (o *Orchestrator) Subscribe(fn func(Status)) func() {
	o.statusMu.Lock()
	id := o.nextSub
	o.nextSub++
	o.subs[id] = fn
	o.statusMu.Unlock()
	return func() {
		o.statusMu.Lock()
		delete(o.subs, id)
		o.statusMu.Unlock()
	}
}

// Snapshot returns the data of the last render that got past computing.
func (o *Orchestrator) Snapshot() Snapshot {
	o.snapMu.Lock()
	defer o.snapMu.Unlock()
	return o.snapshot
}

// History returns the cached attempt history, fetching it if needed.
func (o *Orchestrator) History(ctx context.Context) []model.AttemptRecord {
	return o.fetch(ctx, false)
}

// Draw runs one render. It returns ErrBusy when another render holds the
// gate and ErrStale when a newer render superseded this one; neither
// changes what is on screen.
func (o *Orchestrator) Draw(ctx context.Context, opts DrawOptions) error {
	retry, err := o.draw(ctx, opts)
	if retry {
		_, err = o.draw(ctx, opts)
	}
	return err
}

func (o *Orchestrator) current(token uint64) bool {
	return o.token.Load() == token
}

func (o *Orchestrator) draw(ctx context.Context, opts DrawOptions) (retry bool, err error) {
	if !o.drawing.CompareAndSwap(false, true) {
		o.logger.Debug("render dropped, another is in progress")
		return false, ErrBusy
	}
	var released atomic.Bool
	release := func() {
		if released.CompareAndSwap(false, true) {
			o.drawing.Store(false)
		}
	}
	defer release()

	token := o.token.Add(1)
	o.publish(token, Status{Phase: PhaseLoadingLibs, Busy: true, Message: PhaseLoadingLibs.String()})

	defer func() {
		if rec := recover(); rec != nil {
			o.logger.Error("render panicked", "token", token, "panic", rec)
			err = fmt.Errorf("render: %v", rec)
			retry = false
			o.fail(token)
		}
	}()

	if err := o.dep.Load(ctx); err != nil {
		if !o.current(token) {
			return false, ErrStale
		}
		o.logger.Error("renderer dependency failed", "err", err)
		o.paint.Clear(nil)
		o.publish(token, Status{Phase: PhaseIdle, Message: MessageDependencyUnavailable})
		return false, fmt.Errorf("%w: %v", ErrDependencyUnavailable, err)
	}
	if !o.current(token) {
		return false, ErrStale
	}

	o.publish(token, Status{Phase: PhaseLoadingData, Busy: true, Message: PhaseLoadingData.String()})
	history := o.fetch(ctx, opts.ForceFetch)
	if !o.current(token) {
		return false, ErrStale
	}

	o.publish(token, Status{Phase: PhaseComputing, Busy: true, Message: PhaseComputing.String()})
	view := o.view.Get()
	now := o.opts.Now()
	inRange := stats.FilterRange(history, view.Range, now)
	maxPos := 0
	if view.Range == model.RangeTimeline {
		maxPos = stats.TimelineMaxPosition(history, view.Window, o.opts.Location)
		inRange = stats.TimelineSlice(history, view.Window, min(view.Position, maxPos), o.opts.Location)
		if o.heal(len(inRange), len(history)) {
			o.logger.Debug("timeline window empty, position reset", "token", token)
			return true, nil
		}
	}
	pools := stats.Aggregate(inRange, stats.AggregateOptions{PoolSize: o.opts.PoolSize, Location: o.opts.Location})
	ranked := stats.SearchReorder(stats.Rank(pools.For(view.Taxonomy), view.Rank), view.Search)
	if !o.current(token) {
		return false, ErrStale
	}
	o.snapMu.Lock()
	o.snapshot = Snapshot{Taxonomy: view.Taxonomy, History: history, InRange: inRange, Pools: pools, Ranked: ranked}
	o.snapMu.Unlock()

	// Presentation changes ride with the scene so a superseded render never
	// touches the surface.
	scene := paint.Scene{Theme: view.Theme, Cluster: view.Cluster, Focus: view.Search}

	if len(ranked) == 0 {
		o.paint.ShowScene(nil, scene, func(err error) {
			o.finish(token, err, Status{Message: MessageEmpty, Attempts: len(inRange), MaxPosition: maxPos})
		})
		return false, nil
	}

	top := ranked
	if len(top) > o.opts.MaxItems {
		top = top[:o.opts.MaxItems]
	}
	sig := layout.Signature(view.Taxonomy, top)
	pinned := o.pinned(ctx, view.Taxonomy)
	width, height := o.paint.Surface().Size()

	o.publish(token, Status{Phase: PhaseLayingOut, Busy: true, Message: PhaseLayingOut.String()})
	// Release the gate before waiting on the packer so a newer render can
	// supersede this one.
	release()

	done := Status{Attempts: len(inRange), MaxPosition: maxPos}
	if opts.ReuseLayoutOnly {
		if cached, ok := o.cache.Get(sig); ok {
			o.logger.Debug("reusing cached layout", "token", token)
			placement := cached.Rescale(width, height)
			o.apply(token, applyPinned(placement.Items, pinned), scene, done, nil)
			return false, nil
		}
	}

	slow := time.AfterFunc(o.opts.SlowAfter, func() {
		o.escalate(token)
	})
	items := layout.SizeItems(top, o.opts.Sizes, pinned)
	placed, err := o.layout.Layout(ctx, items, width, height)
	if !o.current(token) {
		slow.Stop()
		o.logger.Debug("stale render discarded", "token", token)
		return false, ErrStale
	}
	if err != nil {
		slow.Stop()
		o.logger.Error("layout failed", "err", err)
		o.fail(token)
		return false, fmt.Errorf("layout: %w", err)
	}
	o.cache.Put(layout.Placement{Signature: sig, Width: width, Height: height, Items: placed})
	o.apply(token, placed, scene, done, slow)
	return false, nil
}

// apply hands a scene to the paint engine when token is still current.
func (o *Orchestrator) apply(token uint64, items []layout.Item, scene paint.Scene, done Status, slow *time.Timer) {
	if !o.current(token) {
		if slow != nil {
			slow.Stop()
		}
		return
	}
	done.Items = len(items)
	if len(items) == 0 {
		done.Message = MessageTooSmall
	}
	o.paint.ShowScene(items, scene, func(err error) {
		if slow != nil {
			slow.Stop()
		}
		o.finish(token, err, done)
	})
}

// finish publishes the idle status once the scene painted.
func (o *Orchestrator) finish(token uint64, err error, st Status) {
	if err != nil {
		o.logger.Error("paint failed", "token", token, "err", err)
		o.fail(token)
		return
	}
	st.Phase = PhaseIdle
	st.Busy = false
	if o.publish(token, st) {
		o.logger.Info("render done", "token", token, "items", st.Items, "attempts", st.Attempts)
	}
}

func (o *Orchestrator) fail(token uint64) {
	if !o.current(token) {
		return
	}
	o.paint.Clear(nil)
	o.publish(token, Status{Phase: PhaseIdle, Message: MessageFailed})
}

func (o *Orchestrator) escalate(token uint64) {
	o.statusMu.Lock()
	if o.status.Token != token || !o.status.Busy {
		o.statusMu.Unlock()
		return
	}
	o.status.Subtext = MessageSlow
	st := o.status
	subs := o.listenersLocked()
	o.statusMu.Unlock()
	for _, fn := range subs {
		fn(st)
	}
}

// publish sets the status when token is current and reports whether it
// did.
func (o *Orchestrator) publish(token uint64, st Status) bool {
	o.statusMu.Lock()
	if !o.current(token) {
		o.statusMu.Unlock()
		return false
	}
	st.Token = token
	if st.Busy && o.status.Token == token && o.status.Busy {
		st.Subtext = o.status.Subtext
	}
	o.status = st
	subs := o.listenersLocked()
	o.statusMu.Unlock()
	for _, fn := range subs {
		fn(st)
	}
	return true
}

func (o *Orchestrator) listenersLocked() []func(Status) {
	keys := make([]int, 0, len(o.subs))
	for k := range o.subs {
		keys = append(keys, k)
	}
	sort.Ints(keys)
	out := make([]func(Status), 0, len(keys))
	for _, k := range keys {
		out = append(out, o.subs[k])
	}
	return out
}

// fetch returns cached history unless force is set. Concurrent fetches
// share one call; a failed fetch reads as empty history.
func (o *Orchestrator) fetch(ctx context.Context, force bool) []model.AttemptRecord {
	o.histMu.Lock()
	if o.fetched && !force {
		h := o.history
		o.histMu.Unlock()
		return h
	}
	o.histMu.Unlock()

	v, err, _ := o.fetches.Do(o.opts.User, func() (any, error) {
		return o.source.FetchHistory(ctx, o.opts.User)
	})
	if err != nil {
		o.logger.Warn("history fetch failed, treating as empty", "err", err)
		return nil
	}
	history, _ := v.([]model.AttemptRecord)
	o.histMu.Lock()
	o.history = history
	o.fetched = true
	o.histMu.Unlock()
	return history
}

func (o *Orchestrator) heal(inWindow, total int) bool {
	o.healMu.Lock()
	h := o.healer
	o.healMu.Unlock()
	return h != nil && h.AutoHeal(inWindow, total)
}

func (o *Orchestrator) pinned(ctx context.Context, tax model.Taxonomy) map[string]struct{} {
	if o.saved == nil {
		return nil
	}
	return o.saved.SavedSet(ctx, prefs.KindPinned, tax)
}

func applyPinned(items []layout.Item, pinned map[string]struct{}) []layout.Item {
	for i := range items {
		_, items[i].Pinned = pinned[items[i].Stat.ID]
	}
	return items
}
