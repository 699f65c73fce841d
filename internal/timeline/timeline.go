// Package timeline replays progress by sliding a day window across the
// history on an interval.
package timeline

import (
	"context"
	"errors"
	"io"
	"sync"
	"time"

	clog "github.com/charmbracelet/log"

	"github.com/verte-zerg/pronocloud/internal/model"
	"github.com/verte-zerg/pronocloud/internal/viewstate"
)

// Defaults for Options.
const (
	DefaultInterval = 700 * time.Millisecond
	DefaultStep     = 1
)

// View is the view state the controller drives.
type View interface {
	Get() viewstate.State
	Set(ctx context.Context, patch viewstate.Patch) viewstate.State
	Subscribe(fn viewstate.Listener) func()
}

// RedrawFunc requests a render.
type RedrawFunc func(ctx context.Context) error

// MaxPositionFunc returns the last valid position for the current window.
type MaxPositionFunc func(ctx context.Context) int

// Options configures a Controller.
type Options struct {
	Interval time.Duration
	Step     int
	Logger   *clog.Logger
}

// Controller is a stopped/playing state machine over the timeline position.
type Controller struct {
	view     View
	redraw   RedrawFunc
	maxPos   MaxPositionFunc
	interval time.Duration
	step     int
	logger   *clog.Logger
	unsub    func()

	mu      sync.Mutex
	playing bool
	stop    chan struct{}
	armed   bool
}

// New returns a stopped controller watching view for range changes.
func New(view View, redraw RedrawFunc, maxPos MaxPositionFunc, opts Options) *Controller {
	if opts.Interval <= 0 {
		opts.Interval = DefaultInterval
	}
	if opts.Step <= 0 {
		opts.Step = DefaultStep
	}
	if opts.Logger == nil {
		opts.Logger = clog.New(io.Discard)
	}
	c := &Controller{
		view:     view,
		redraw:   redraw,
		maxPos:   maxPos,
		interval: opts.Interval,
		step:     opts.Step,
		logger:   opts.Logger,
		armed:    view.Get().Range == model.RangeTimeline,
	}
	c.unsub = view.Subscribe(c.onViewChange)
	return c
}

// Close stops playback and detaches from the view.
func (c *Controller) Close() {
	c.Stop()
	if c.unsub != nil {
		c.unsub()
	}
}

func (c *Controller) onViewChange(prev, next viewstate.State) {
	leaving := prev.Range == model.RangeTimeline && next.Range != model.RangeTimeline
	entering := prev.Range != model.RangeTimeline && next.Range == model.RangeTimeline
	if leaving {
		c.Stop()
	}
	if entering {
		c.mu.Lock()
		c.armed = !c.playing
		c.mu.Unlock()
	}
}

// IsPlaying reports whether the interval is running.
func (c *Controller) IsPlaying() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.playing
}

// Toggle starts or stops playback and returns the new playing state.
func (c *Controller) Toggle(ctx context.Context) bool {
	if c.IsPlaying() {
		c.Stop()
		return false
	}
	c.Play(ctx)
	return c.IsPlaying()
}

// Play switches the range to timeline if needed and starts advancing the
// position. Playing from the last position rewinds to the start.
func (c *Controller) Play(ctx context.Context) {
	if c.IsPlaying() {
		return
	}
	state := c.view.Get()
	if state.Range != model.RangeTimeline {
		state = c.view.Set(ctx, viewstate.Patch{Range: viewstate.Ptr(model.RangeTimeline)})
	}
	if last := c.maxPos(ctx); state.Position >= last && last > 0 {
		c.view.Set(ctx, viewstate.Patch{Position: viewstate.Ptr(0)})
	}

	c.mu.Lock()
	if c.playing {
		c.mu.Unlock()
		return
	}
	c.playing = true
	c.armed = false
	stop := make(chan struct{})
	c.stop = stop
	c.mu.Unlock()

	c.logger.Debug("timeline playing", "interval", c.interval, "step", c.step)
	c.draw(ctx)
	go c.run(ctx, stop)
}

// Stop halts playback. It is safe to call when stopped.
func (c *Controller) Stop() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.playing {
		return
	}
	c.playing = false
	close(c.stop)
	c.stop = nil
}

func (c *Controller) run(ctx context.Context, stop <-chan struct{}) {
	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()
	for {
		select {
		case <-stop:
			return
		case <-ctx.Done():
			c.Stop()
			return
		case <-ticker.C:
			select {
			case <-stop:
				return
			default:
			}
			if !c.advance(ctx) {
				c.Stop()
				return
			}
		}
	}
}

// advance moves one step and reports whether playback should continue.
func (c *Controller) advance(ctx context.Context) bool {
	state := c.view.Get()
	if state.Range != model.RangeTimeline {
		return false
	}
	last := c.maxPos(ctx)
	next := clamp(state.Position+c.step, 0, last)
	c.view.Set(ctx, viewstate.Patch{Position: viewstate.Ptr(next)})
	c.draw(ctx)
	return next < last
}

// Step moves the position by delta steps, clamped to the valid range, and
// redraws.
func (c *Controller) Step(ctx context.Context, delta int) int {
	state := c.view.Get()
	next := clamp(state.Position+delta*c.step, 0, c.maxPos(ctx))
	c.disarm()
	if next != state.Position {
		c.view.Set(ctx, viewstate.Patch{Position: viewstate.Ptr(next)})
		c.draw(ctx)
	}
	return next
}

// AutoHeal resets the position to 0 when the current window holds no
// attempts but the history does. Only the first timeline draw after entering
// the mode may heal; playback and stepping never do. It reports whether it
// changed the position.
func (c *Controller) AutoHeal(inWindow, total int) bool {
	state := c.view.Get()
	if state.Range != model.RangeTimeline {
		return false
	}
	c.mu.Lock()
	armed := c.armed && !c.playing
	c.armed = false
	c.mu.Unlock()
	if !armed || inWindow > 0 || total == 0 || state.Position == 0 {
		return false
	}
	c.logger.Info("timeline window empty, rewinding", "position", state.Position)
	c.view.Set(context.Background(), viewstate.Patch{Position: viewstate.Ptr(0)})
	return true
}

func (c *Controller) disarm() {
	c.mu.Lock()
	c.armed = false
	c.mu.Unlock()
}

func (c *Controller) draw(ctx context.Context) {
	if c.redraw == nil {
		return
	}
	if err := c.redraw(ctx); err != nil && !errors.Is(err, context.Canceled) {
		c.logger.Debug("timeline redraw", "err", err)
	}
}

func clamp(v, lo, hi int) int {
	if hi < lo {
		hi = lo
	}
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
