package timeline

import (
	"context"
	"slices"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/verte-zerg/pronocloud/internal/model"
	"github.com/verte-zerg/pronocloud/internal/viewstate"
)

func newController(t *testing.T, max int) (*Controller, *viewstate.Store, *atomic.Int32) {
	t.Helper()
	view := viewstate.New(nil, nil)
	var draws atomic.Int32
	c := New(view, func(context.Context) error {
		draws.Add(1)
		return nil
	}, func(context.Context) int { return max }, Options{Interval: time.Millisecond})
	t.Cleanup(c.Close)
	return c, view, &draws
}

// recordPositions collects every position the view moves through.
func recordPositions(t *testing.T, view *viewstate.Store) func() []int {
	t.Helper()
	var mu sync.Mutex
	var seen []int
	unsub := view.Subscribe(func(prev, next viewstate.State) {
		if prev.Position == next.Position {
			return
		}
		mu.Lock()
		seen = append(seen, next.Position)
		mu.Unlock()
	})
	t.Cleanup(unsub)
	return func() []int {
		mu.Lock()
		defer mu.Unlock()
		return slices.Clone(seen)
	}
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatalf("condition not met in time")
		}
		time.Sleep(time.Millisecond)
	}
}

func TestPlayRunsToMaxAndStops(t *testing.T) {
	c, view, draws := newController(t, 3)
	ctx := context.Background()
	c.Play(ctx)
	if view.Get().Range != model.RangeTimeline {
		t.Fatalf("play must switch to the timeline range")
	}
	waitFor(t, func() bool { return !c.IsPlaying() })
	if got := view.Get().Position; got != 3 {
		t.Fatalf("expected to stop at max position 3, got %d", got)
	}
	if got := draws.Load(); got != 4 {
		t.Fatalf("expected an initial draw plus one per step, got %d", got)
	}
}

func TestPlayAtEndRewinds(t *testing.T) {
	c, view, _ := newController(t, 2)
	ctx := context.Background()
	view.Set(ctx, viewstate.Patch{Range: viewstate.Ptr(model.RangeTimeline), Position: viewstate.Ptr(2)})
	positions := recordPositions(t, view)
	c.Play(ctx)
	waitFor(t, func() bool { return !c.IsPlaying() })
	got := positions()
	if want := []int{0, 1, 2}; !slices.Equal(got, want) {
		t.Fatalf("expected replay through %v, got %v", want, got)
	}
}

func TestToggleStops(t *testing.T) {
	c, _, _ := newController(t, 1000)
	ctx := context.Background()
	if !c.Toggle(ctx) {
		t.Fatalf("toggle should start playback")
	}
	if c.Toggle(ctx) {
		t.Fatalf("toggle should stop playback")
	}
	if c.IsPlaying() {
		t.Fatalf("expected stopped")
	}
	c.Stop()
}

func TestLeavingTimelineStops(t *testing.T) {
	c, view, draws := newController(t, 1000)
	ctx := context.Background()
	c.Play(ctx)
	view.Set(ctx, viewstate.Patch{Range: viewstate.Ptr(model.Range30d)})
	if c.IsPlaying() {
		t.Fatalf("leaving timeline mode must stop playback")
	}
	settled := draws.Load()
	time.Sleep(10 * time.Millisecond)
	if draws.Load() > settled+1 {
		t.Fatalf("draws continued after stop")
	}
}

func TestStepClamps(t *testing.T) {
	c, view, _ := newController(t, 4)
	ctx := context.Background()
	view.Set(ctx, viewstate.Patch{Range: viewstate.Ptr(model.RangeTimeline)})
	if got := c.Step(ctx, 10); got != 4 {
		t.Fatalf("expected clamp to 4, got %d", got)
	}
	if got := c.Step(ctx, -10); got != 0 {
		t.Fatalf("expected clamp to 0, got %d", got)
	}
}

func TestAutoHealOnlyOnFirstDrawAfterEntry(t *testing.T) {
	c, view, _ := newController(t, 10)
	ctx := context.Background()
	enter := func(pos int) {
		view.Set(ctx, viewstate.Patch{Range: viewstate.Ptr(model.RangeAll)})
		view.Set(ctx, viewstate.Patch{Range: viewstate.Ptr(model.RangeTimeline), Position: viewstate.Ptr(pos)})
	}

	enter(5)
	if c.AutoHeal(3, 10) {
		t.Fatalf("a non-empty window must not heal")
	}
	if c.AutoHeal(0, 10) {
		t.Fatalf("only the first draw after entry may heal")
	}

	enter(5)
	if c.AutoHeal(0, 0) {
		t.Fatalf("an empty history must not heal")
	}

	enter(6)
	if !c.AutoHeal(0, 10) {
		t.Fatalf("expected a heal")
	}
	if view.Get().Position != 0 {
		t.Fatalf("heal must reset the position")
	}
	view.Set(ctx, viewstate.Patch{Position: viewstate.Ptr(4)})
	if c.AutoHeal(0, 10) {
		t.Fatalf("a second empty slice must not heal again")
	}
}

func TestStepNeverHeals(t *testing.T) {
	c, view, _ := newController(t, 10)
	ctx := context.Background()
	view.Set(ctx, viewstate.Patch{Range: viewstate.Ptr(model.RangeTimeline), Position: viewstate.Ptr(3)})
	if got := c.Step(ctx, 1); got != 4 {
		t.Fatalf("expected step to 4, got %d", got)
	}
	if c.AutoHeal(0, 10) {
		t.Fatalf("stepping onto an empty window must not heal")
	}
	if got := view.Get().Position; got != 4 {
		t.Fatalf("expected position 4 to stick, got %d", got)
	}
}

func TestReplayAcrossGapOnlyAdvances(t *testing.T) {
	view := viewstate.New(nil, nil)
	ctx := context.Background()
	// Days 2 and 3 hold no attempts.
	empty := map[int]bool{2: true, 3: true}
	var c *Controller
	c = New(view, func(context.Context) error {
		state := view.Get()
		inWindow := 5
		if empty[state.Position] {
			inWindow = 0
		}
		c.AutoHeal(inWindow, 20)
		return nil
	}, func(context.Context) int { return 5 }, Options{Interval: time.Millisecond})
	t.Cleanup(c.Close)

	positions := recordPositions(t, view)
	c.Play(ctx)
	waitFor(t, func() bool { return !c.IsPlaying() })

	got := positions()
	for i := 1; i < len(got); i++ {
		if got[i] <= got[i-1] {
			t.Fatalf("replay went backwards: %v", got)
		}
	}
	if len(got) == 0 || got[len(got)-1] != 5 {
		t.Fatalf("expected replay to finish at 5, got %v", got)
	}
}
