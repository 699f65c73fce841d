package render

import (
	"context"
	"errors"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/verte-zerg/pronocloud/internal/layout"
	"github.com/verte-zerg/pronocloud/internal/model"
	"github.com/verte-zerg/pronocloud/internal/paint"
	"github.com/verte-zerg/pronocloud/internal/viewstate"
)

var baseTime = time.Date(2025, 6, 2, 9, 0, 0, 0, time.UTC)

type fakeSource struct {
	mu       sync.Mutex
	attempts []model.AttemptRecord
	err      error
	panics   bool
	calls    int
}

func (f *fakeSource) FetchHistory(context.Context, string) ([]model.AttemptRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.panics {
		panic("history exploded")
	}
	return f.attempts, f.err
}

type gatedPacker struct {
	inner layout.Packer
	calls atomic.Int32
	// gateCall is the pack call held at the gate; zero means the first.
	gateCall int32
	gate     chan struct{}
	started  chan struct{}
}

func (p *gatedPacker) Pack(words []layout.Word, canvas layout.Canvas, done func([]layout.Placed)) {
	n := p.calls.Add(1)
	gated := p.gateCall
	if gated == 0 {
		gated = 1
	}
	if n == gated && p.gate != nil {
		p.started <- struct{}{}
		go func() {
			<-p.gate
			p.inner.Pack(words, canvas, done)
		}()
		return
	}
	p.inner.Pack(words, canvas, done)
}

type harness struct {
	orch    *Orchestrator
	view    *viewstate.Store
	engine  *paint.Engine
	surface *paint.CellSurface
	packer  *gatedPacker
}

func newHarness(t *testing.T, source HistorySource, dep Dependency, gated bool) *harness {
	t.Helper()
	surface := paint.NewCellSurface(80, 24)
	spiral := layout.NewSpiral(surface)
	spiral.Padding = 0.5
	packer := &gatedPacker{inner: spiral}
	if gated {
		packer.gate = make(chan struct{})
		packer.started = make(chan struct{}, 1)
	}
	engine := paint.NewEngine(surface, paint.Options{Scheduler: &paint.ImmediateScheduler{}})
	view := viewstate.New(nil, nil)
	orch := New(source, dep, view, nil, layout.NewEngine(packer, surface), engine, Options{
		User:     "me",
		Location: time.UTC,
		Now:      func() time.Time { return baseTime },
		Sizes:    layout.SizeOptions{Min: 1, Max: 3},
	})
	return &harness{orch: orch, view: view, engine: engine, surface: surface, packer: packer}
}

func exampleHistory() []model.AttemptRecord {
	scores := []float64{40, 90, 40, 90, 40, 90}
	var out []model.AttemptRecord
	for i := 0; i < 10; i++ {
		ts := baseTime.Add(-time.Duration(5-i/2) * 24 * time.Hour)
		words := []model.WordScore{{Word: "cat", Accuracy: 95}, {Word: "sun", Accuracy: 70}}
		if i < len(scores) {
			words = append(words, model.WordScore{Word: "the", Accuracy: scores[i], Phonemes: []model.PhonemeScore{{Phoneme: "ð", Accuracy: scores[i]}}})
		}
		out = append(out, model.AttemptRecord{ID: string(rune('a' + i)), Timestamp: ts, Words: words})
	}
	return out
}

func TestEmptyHistoryShowsNotEnoughData(t *testing.T) {
	h := newHarness(t, &fakeSource{}, nil, false)
	if err := h.orch.Draw(context.Background(), DrawOptions{}); err != nil {
		t.Fatalf("draw: %v", err)
	}
	st := h.orch.Status()
	if st.Busy || st.Phase != PhaseIdle || st.Message != MessageEmpty {
		t.Fatalf("expected idle empty state, got %+v", st)
	}
	if strings.TrimSpace(h.surface.Plain()) != "" {
		t.Fatalf("surface should be empty, got %q", h.surface.Plain())
	}
}

func TestDrawPaintsCloud(t *testing.T) {
	h := newHarness(t, &fakeSource{attempts: exampleHistory()}, nil, false)
	var phases []Phase
	var busyFirst bool
	h.orch.Subscribe(func(st Status) {
		if len(phases) == 0 {
			busyFirst = st.Busy
		}
		phases = append(phases, st.Phase)
	})
	if err := h.orch.Draw(context.Background(), DrawOptions{}); err != nil {
		t.Fatalf("draw: %v", err)
	}
	if !busyFirst || phases[0] != PhaseLoadingLibs {
		t.Fatalf("busy must be signalled first, got %v", phases)
	}
	want := []Phase{PhaseLoadingLibs, PhaseLoadingData, PhaseComputing, PhaseLayingOut, PhaseIdle}
	if len(phases) != len(want) {
		t.Fatalf("unexpected phases %v", phases)
	}
	for i := range want {
		if phases[i] != want[i] {
			t.Fatalf("unexpected phases %v", phases)
		}
	}
	st := h.orch.Status()
	if st.Busy || st.Items != 3 || st.Attempts != 10 {
		t.Fatalf("unexpected final status %+v", st)
	}
	out := h.surface.Plain()
	for _, w := range []string{"the", "cat", "sun"} {
		if !strings.Contains(out, w) {
			t.Fatalf("expected %q on the surface:\n%s", w, out)
		}
	}
	snap := h.orch.Snapshot()
	if snap.Taxonomy != model.TaxonomyWords || len(snap.Ranked) != 3 || len(snap.Pools.Phonemes) != 1 {
		t.Fatalf("unexpected snapshot %+v", snap)
	}
}

func TestDependencyFailureIsTerminal(t *testing.T) {
	calls := 0
	dep := DependencyFunc(func(context.Context) error {
		calls++
		return errors.New("no fonts")
	})
	source := &fakeSource{attempts: exampleHistory()}
	h := newHarness(t, source, dep, false)
	err := h.orch.Draw(context.Background(), DrawOptions{})
	if !errors.Is(err, ErrDependencyUnavailable) {
		t.Fatalf("expected ErrDependencyUnavailable, got %v", err)
	}
	st := h.orch.Status()
	if st.Busy || st.Message != MessageDependencyUnavailable {
		t.Fatalf("unexpected status %+v", st)
	}
	if source.calls != 0 || calls != 1 {
		t.Fatalf("history must not be fetched after a dependency failure")
	}
}

func TestFetchFailureReadsAsEmpty(t *testing.T) {
	h := newHarness(t, &fakeSource{err: errors.New("offline")}, nil, false)
	if err := h.orch.Draw(context.Background(), DrawOptions{}); err != nil {
		t.Fatalf("draw: %v", err)
	}
	if st := h.orch.Status(); st.Message != MessageEmpty || st.Busy {
		t.Fatalf("expected empty state, got %+v", st)
	}
}

func TestHistoryCachedUntilForced(t *testing.T) {
	source := &fakeSource{attempts: exampleHistory()}
	h := newHarness(t, source, nil, false)
	ctx := context.Background()
	_ = h.orch.Draw(ctx, DrawOptions{})
	_ = h.orch.Draw(ctx, DrawOptions{})
	if source.calls != 1 {
		t.Fatalf("expected cached history, got %d fetches", source.calls)
	}
	_ = h.orch.Draw(ctx, DrawOptions{ForceFetch: true})
	if source.calls != 2 {
		t.Fatalf("expected a forced refetch, got %d fetches", source.calls)
	}
}

func TestPanicReturnsToIdle(t *testing.T) {
	h := newHarness(t, &fakeSource{panics: true}, nil, false)
	if err := h.orch.Draw(context.Background(), DrawOptions{}); err == nil {
		t.Fatalf("expected error from panicking render")
	}
	st := h.orch.Status()
	if st.Busy || st.Message != MessageFailed {
		t.Fatalf("unexpected status %+v", st)
	}
	if err := h.orch.Draw(context.Background(), DrawOptions{}); errors.Is(err, ErrBusy) {
		t.Fatalf("gate must be released after a panic")
	}
}

func TestSupersededRenderChangesNothing(t *testing.T) {
	h := newHarness(t, &fakeSource{attempts: exampleHistory()}, nil, true)
	ctx := context.Background()

	first := make(chan error, 1)
	go func() { first <- h.orch.Draw(ctx, DrawOptions{}) }()
	<-h.packer.started

	if err := h.orch.Draw(ctx, DrawOptions{}); err != nil {
		t.Fatalf("second draw: %v", err)
	}
	settled := h.orch.Status()
	screen := h.surface.Plain()
	frames := h.engine.Frames()
	if settled.Busy || settled.Token != 2 {
		t.Fatalf("second render should have finished, got %+v", settled)
	}

	close(h.packer.gate)
	if err := <-first; !errors.Is(err, ErrStale) {
		t.Fatalf("expected ErrStale, got %v", err)
	}
	if h.orch.Status() != settled {
		t.Fatalf("stale render changed the status: %+v", h.orch.Status())
	}
	if h.surface.Plain() != screen || h.engine.Frames() != frames {
		t.Fatalf("stale render changed the surface")
	}
}

func TestOverlappingDrawIsDropped(t *testing.T) {
	release := make(chan struct{})
	entered := make(chan struct{}, 1)
	var once sync.Once
	dep := DependencyFunc(func(context.Context) error {
		once.Do(func() {
			entered <- struct{}{}
			<-release
		})
		return nil
	})
	h := newHarness(t, &fakeSource{attempts: exampleHistory()}, dep, false)
	ctx := context.Background()
	first := make(chan error, 1)
	go func() { first <- h.orch.Draw(ctx, DrawOptions{}) }()
	<-entered

	if err := h.orch.Draw(ctx, DrawOptions{}); !errors.Is(err, ErrBusy) {
		t.Fatalf("expected ErrBusy, got %v", err)
	}
	if h.orch.Token() != 1 {
		t.Fatalf("a dropped draw must not claim a token")
	}
	close(release)
	if err := <-first; err != nil {
		t.Fatalf("first draw: %v", err)
	}
}

func TestReflowReusesPlacement(t *testing.T) {
	h := newHarness(t, &fakeSource{attempts: exampleHistory()}, nil, false)
	ctx := context.Background()
	if err := h.orch.Draw(ctx, DrawOptions{}); err != nil {
		t.Fatalf("draw: %v", err)
	}
	before := h.engine.Items()
	packs := h.packer.calls.Load()

	h.engine.Resize(40, 24)
	if err := h.orch.Draw(ctx, DrawOptions{ReuseLayoutOnly: true}); err != nil {
		t.Fatalf("reflow: %v", err)
	}
	if h.packer.calls.Load() != packs {
		t.Fatalf("reflow must not pack again")
	}
	after := h.engine.Items()
	if len(after) != len(before) {
		t.Fatalf("reflow changed the item set")
	}
	for i := range before {
		if after[i].Stat.ID != before[i].Stat.ID {
			t.Fatalf("reflow reordered items")
		}
		if diff := after[i].X - before[i].X*0.5; diff > 1e-9 || diff < -1e-9 {
			t.Fatalf("item %s not uniformly rescaled: %v -> %v", after[i].Stat.ID, before[i].X, after[i].X)
		}
		if diff := after[i].Y - before[i].Y*0.5; diff > 1e-9 || diff < -1e-9 {
			t.Fatalf("item %s not uniformly rescaled", after[i].Stat.ID)
		}
	}

	h.view.Set(ctx, viewstate.Patch{Rank: viewstate.Ptr(model.RankDifficulty)})
	if err := h.orch.Draw(ctx, DrawOptions{ReuseLayoutOnly: true}); err != nil {
		t.Fatalf("draw: %v", err)
	}
	if h.packer.calls.Load() == packs {
		t.Fatalf("a reordered item set must pack again")
	}
}

type healOnce struct {
	view  *viewstate.Store
	calls int
	heals int
}

func (h *healOnce) AutoHeal(inWindow, total int) bool {
	h.calls++
	if inWindow > 0 || total == 0 || h.heals > 0 {
		return false
	}
	h.heals++
	h.view.Set(context.Background(), viewstate.Patch{Position: viewstate.Ptr(0)})
	return true
}

func TestTimelineAutoHealRetries(t *testing.T) {
	history := []model.AttemptRecord{
		{ID: "1", Timestamp: baseTime, Words: []model.WordScore{{Word: "the", Accuracy: 50}}},
		{ID: "2", Timestamp: baseTime.Add(72 * time.Hour), Words: []model.WordScore{{Word: "cat", Accuracy: 50}}},
	}
	h := newHarness(t, &fakeSource{attempts: history}, nil, false)
	ctx := context.Background()
	h.view.Set(ctx, viewstate.Patch{Range: viewstate.Ptr(model.RangeTimeline), Window: viewstate.Ptr(1), Position: viewstate.Ptr(1)})
	healer := &healOnce{view: h.view}
	h.orch.SetHealer(healer)

	if err := h.orch.Draw(ctx, DrawOptions{}); err != nil {
		t.Fatalf("draw: %v", err)
	}
	if healer.heals != 1 || healer.calls != 2 {
		t.Fatalf("expected one heal and a retry, got heals=%d calls=%d", healer.heals, healer.calls)
	}
	st := h.orch.Status()
	if st.Items != 1 || st.MaxPosition != 3 {
		t.Fatalf("unexpected status after heal %+v", st)
	}
}

func TestSlowLayoutEscalatesSubtext(t *testing.T) {
	h := newHarness(t, &fakeSource{attempts: exampleHistory()}, nil, true)
	h.orch.opts.SlowAfter = time.Millisecond
	sawSlow := make(chan Status, 4)
	h.orch.Subscribe(func(st Status) {
		if st.Subtext == MessageSlow {
			select {
			case sawSlow <- st:
			default:
			}
		}
	})
	done := make(chan error, 1)
	go func() { done <- h.orch.Draw(context.Background(), DrawOptions{}) }()
	<-h.packer.started

	select {
	case st := <-sawSlow:
		if !st.Busy || st.Phase != PhaseLayingOut {
			t.Fatalf("slow subtext must not end the busy state: %+v", st)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("slow subtext never shown")
	}
	close(h.packer.gate)
	if err := <-done; err != nil {
		t.Fatalf("draw: %v", err)
	}
	if st := h.orch.Status(); st.Busy || st.Subtext != "" {
		t.Fatalf("expected clean idle status, got %+v", st)
	}
}

func TestSupersededRenderKeepsPresentation(t *testing.T) {
	h := newHarness(t, &fakeSource{attempts: exampleHistory()}, nil, true)
	h.packer.gateCall = 2
	ctx := context.Background()
	if err := h.orch.Draw(ctx, DrawOptions{}); err != nil {
		t.Fatalf("first draw: %v", err)
	}
	painted := h.engine.Scene()
	frames := h.engine.Frames()
	screen := h.surface.String()

	h.view.Set(ctx, viewstate.Patch{Search: viewstate.Ptr("zzzz"), Theme: viewstate.Ptr(paint.ThemeLight)})
	pending := make(chan error, 1)
	go func() { pending <- h.orch.Draw(ctx, DrawOptions{}) }()
	<-h.packer.started

	if h.engine.Frames() != frames || h.engine.Scene() != painted || h.surface.String() != screen {
		t.Fatalf("a render waiting on the packer changed the surface: frames %d -> %d", frames, h.engine.Frames())
	}

	if err := h.orch.Draw(ctx, DrawOptions{}); err != nil {
		t.Fatalf("superseding draw: %v", err)
	}
	want := paint.Scene{Theme: paint.ThemeLight, Focus: "zzzz"}
	if got := h.engine.Scene(); got != want {
		t.Fatalf("expected scene %+v, got %+v", want, got)
	}
	frames = h.engine.Frames()
	close(h.packer.gate)
	if err := <-pending; !errors.Is(err, ErrStale) {
		t.Fatalf("expected ErrStale, got %v", err)
	}
	if h.engine.Frames() != frames {
		t.Fatalf("stale render painted a frame")
	}
}

func TestNothingFitsExplainsItself(t *testing.T) {
	h := newHarness(t, &fakeSource{attempts: exampleHistory()}, nil, false)
	h.engine.Resize(2, 1)
	if err := h.orch.Draw(context.Background(), DrawOptions{}); err != nil {
		t.Fatalf("draw: %v", err)
	}
	st := h.orch.Status()
	if st.Busy || st.Items != 0 || st.Message != MessageTooSmall {
		t.Fatalf("expected a too-small message, got %+v", st)
	}
}
