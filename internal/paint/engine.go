package paint

import (
	"fmt"
	"io"
	"math"
	"sort"
	"sync"

	"github.com/charmbracelet/harmonica"
	clog "github.com/charmbracelet/log"
	colorful "github.com/lucasb-eyer/go-colorful"

	"github.com/verte-zerg/pronocloud/internal/layout"
	"github.com/verte-zerg/pronocloud/internal/stats"
)

// Cluster mode pulls items toward a zone per band.
const (
	clusterZone  = 0.28
	clusterDrift = 0.35
)

const maxRippleFrames = 120

// PaintedFunc runs after the frame that painted a scene. err is non-nil
// when painting failed.
type PaintedFunc func(err error)

// Options configures an Engine.
type Options struct {
	Theme     string
	Cluster   bool
	Scheduler FrameScheduler
	Logger    *clog.Logger
}

type hitBox struct {
	box   layout.Rect
	index int
}

type ripple struct {
	x, y   float64
	pos    float64
	vel    float64
	target float64
	color  colorful.Color
	frames int
}

// Engine owns what is on a surface: the placed items, hover, focus, cluster
// and ripple state, and the boxes last painted. All drawing happens in
// frames delivered by the scheduler; at most one frame is pending.
type Engine struct {
	mu        sync.Mutex
	surface   Surface
	scheduler FrameScheduler
	logger    *clog.Logger

	theme   string
	palette Palette
	cluster bool
	focus   *stats.Matcher
	items   []layout.Item
	boxes   []hitBox
	hover   int

	spring     harmonica.Spring
	clusterPos float64
	clusterVel float64
	ripple     *ripple

	needsRepaint bool
	framePending bool
	onPainted    []PaintedFunc
	frames       int
}

// NewEngine returns an engine drawing on surface.
func NewEngine(surface Surface, opts Options) *Engine {
	if opts.Scheduler == nil {
		opts.Scheduler = TimerScheduler{}
	}
	if opts.Logger == nil {
		opts.Logger = clog.New(io.Discard)
	}
	e := &Engine{
		surface:   surface,
		scheduler: opts.Scheduler,
		logger:    opts.Logger,
		theme:     opts.Theme,
		palette:   PaletteFor(opts.Theme),
		cluster:   opts.Cluster,
		hover:     -1,
		spring:    harmonica.NewSpring(harmonica.FPS(60), 7.0, 0.85),
	}
	if opts.Cluster {
		e.clusterPos = 1
	}
	return e
}

// Surface returns the drawing surface.
func (e *Engine) Surface() Surface { return e.surface }

// Palette returns the active palette.
func (e *Engine) Palette() Palette {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.palette
}

// Scene is the presentation state painted together with a set of items.
type Scene struct {
	Theme   string
	Cluster bool
	Focus   string
}

// Scene returns the presentation state currently painted.
func (e *Engine) Scene() Scene {
	e.mu.Lock()
	defer e.mu.Unlock()
	sc := Scene{Theme: e.theme, Cluster: e.cluster}
	if e.focus != nil {
		sc.Focus = e.focus.Query()
	}
	return sc
}

// SetItems replaces the scene, keeping the current theme, cluster and
// focus. done runs after the scene is painted.
func (e *Engine) SetItems(items []layout.Item, done PaintedFunc) {
	e.ShowScene(items, e.Scene(), done)
}

// ShowScene replaces the items and their presentation in one repaint.
// done runs after the scene is painted.
func (e *Engine) ShowScene(items []layout.Item, sc Scene, done PaintedFunc) {
	items = append([]layout.Item(nil), items...)
	if bs, ok := e.surface.(interface{ SetBoldFrom(float64) }); ok {
		bs.SetBoldFrom(boldThreshold(items))
	}
	focus := stats.NewMatcher(sc.Focus)
	if !focus.Active() {
		focus = nil
	}
	e.mu.Lock()
	e.items = items
	e.boxes = nil
	e.hover = -1
	e.ripple = nil
	e.theme = sc.Theme
	e.palette = PaletteFor(sc.Theme)
	e.cluster = sc.Cluster
	e.focus = focus
	e.addCallbackLocked(done)
	e.mu.Unlock()
	e.RequestPaint()
}

// Clear empties the scene. done runs after the empty surface is painted.
func (e *Engine) Clear(done PaintedFunc) {
	e.SetItems(nil, done)
}

// Items returns a copy of the current scene.
func (e *Engine) Items() []layout.Item {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]layout.Item(nil), e.items...)
}

// SetTheme switches palettes.
func (e *Engine) SetTheme(theme string) {
	e.mu.Lock()
	changed := theme != e.theme
	e.theme = theme
	e.palette = PaletteFor(theme)
	e.mu.Unlock()
	if changed {
		e.RequestPaint()
	}
}

// SetCluster turns cluster drift on or off. The drift animates.
func (e *Engine) SetCluster(on bool) {
	e.mu.Lock()
	changed := on != e.cluster
	e.cluster = on
	e.mu.Unlock()
	if changed {
		e.RequestPaint()
	}
}

// SetFocus dims items that do not match query. An empty query clears focus.
func (e *Engine) SetFocus(query string) {
	m := stats.NewMatcher(query)
	e.mu.Lock()
	if !m.Active() {
		m = nil
	}
	e.focus = m
	e.mu.Unlock()
	e.RequestPaint()
}

// Resize resizes the surface and repaints the current scene.
func (e *Engine) Resize(width, height float64) {
	e.mu.Lock()
	e.surface.Resize(width, height)
	e.boxes = nil
	e.hover = -1
	e.mu.Unlock()
	e.RequestPaint()
}

// HitTest returns the topmost painted item containing (x, y), in surface
// coordinates with the origin at the top-left corner.
func (e *Engine) HitTest(x, y float64) (layout.Item, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	idx := e.hitLocked(x, y)
	if idx < 0 {
		return layout.Item{}, false
	}
	return e.items[idx], true
}

func (e *Engine) hitLocked(x, y float64) int {
	for i := len(e.boxes) - 1; i >= 0; i-- {
		if e.boxes[i].box.Contains(x, y) {
			return e.boxes[i].index
		}
	}
	return -1
}

// MouseMove updates hover state and reports whether a repaint was requested.
// Only a change of the hovered item repaints.
func (e *Engine) MouseMove(x, y float64) bool {
	e.mu.Lock()
	idx := e.hitLocked(x, y)
	if idx == e.hover {
		e.mu.Unlock()
		return false
	}
	e.hover = idx
	e.mu.Unlock()
	e.RequestPaint()
	return true
}

// Hovered returns the hovered item.
func (e *Engine) Hovered() (layout.Item, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.hover < 0 || e.hover >= len(e.items) {
		return layout.Item{}, false
	}
	return e.items[e.hover], true
}

// Click hit-tests (x, y) and starts a ripple on the item found.
func (e *Engine) Click(x, y float64) (layout.Item, bool) {
	e.mu.Lock()
	idx := e.hitLocked(x, y)
	if idx < 0 {
		e.mu.Unlock()
		return layout.Item{}, false
	}
	var box layout.Rect
	for _, hb := range e.boxes {
		if hb.index == idx {
			box = hb.box
		}
	}
	w, h := e.surface.Size()
	it := e.items[idx]
	e.ripple = &ripple{
		x:      (box.MinX+box.MaxX)/2 - w/2,
		y:      (box.MinY+box.MaxY)/2 - h/2,
		target: math.Max(box.Dx(), box.Dy())*0.75 + 2,
		color:  e.palette.Band(BandFor(it.Stat.Avg)),
	}
	e.mu.Unlock()
	e.RequestPaint()
	return it, true
}

// Animating reports whether a ripple or cluster drift is in progress.
func (e *Engine) Animating() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.animatingLocked()
}

// Frames returns how many frames have painted.
func (e *Engine) Frames() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.frames
}

// RequestPaint marks the surface dirty and schedules a frame unless one is
// already pending.
func (e *Engine) RequestPaint() {
	e.mu.Lock()
	e.needsRepaint = true
	schedule := !e.framePending
	e.framePending = true
	e.mu.Unlock()
	if schedule {
		e.scheduler.Schedule(e.frame)
	}
}

func (e *Engine) addCallbackLocked(done PaintedFunc) {
	if done != nil {
		e.onPainted = append(e.onPainted, done)
	}
}

func (e *Engine) frame() {
	e.mu.Lock()
	e.framePending = false
	if !e.needsRepaint {
		e.mu.Unlock()
		return
	}
	e.needsRepaint = false
	err := e.paintLocked()
	again := err == nil && e.advanceLocked()
	callbacks := e.onPainted
	e.onPainted = nil
	e.mu.Unlock()

	if again {
		e.RequestPaint()
	}
	for _, cb := range callbacks {
		cb(err)
	}
}

func (e *Engine) paintLocked() (err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("paint: %v", rec)
			e.logger.Error("paint failed", "err", err)
			e.items = nil
			e.boxes = nil
			e.hover = -1
			e.ripple = nil
			e.surface.Clear(e.palette.Background)
			e.surface.Present()
		}
	}()

	e.frames++
	e.surface.Clear(e.palette.Background)
	w, h := e.surface.Size()
	boxes := make([]hitBox, 0, len(e.items))
	for i, it := range e.items {
		size, x, y := it.Paint()
		band := BandFor(it.Stat.Avg)
		x = e.driftLocked(x, w, band)

		base := e.palette.Band(band)
		style := TextStyle{
			Color:      base,
			Glow:       e.palette.Glow(base, 0.35),
			GlowRadius: math.Max(1, size*0.05),
		}
		if e.focus != nil && !e.focus.Match(it.Stat) {
			style = TextStyle{Color: e.palette.Dim(base), Dim: true}
		}
		if i == e.hover {
			style.Color = base
			style.Dim = false
			style.Glow = e.palette.Glow(e.palette.Stroke, 0.7)
			style.GlowRadius = math.Max(2, size*0.1)
			style.Stroke = true
		}
		e.surface.DrawText(it.Stat.ID, size, x, y, style)

		ext := e.surface.Measure(it.Stat.ID, size)
		boxes = append(boxes, hitBox{
			box:   layout.CenteredRect(w/2+x, h/2+y, ext.Width(), ext.Height()),
			index: i,
		})
	}
	if r := e.ripple; r != nil {
		alpha := 1 - r.pos/r.target
		e.surface.DrawRing(r.x, r.y, r.pos, r.color, alpha)
	}
	e.surface.Present()
	e.boxes = boxes
	return nil
}

// driftLocked moves x toward the band's zone by the current cluster amount.
func (e *Engine) driftLocked(x, width float64, band Band) float64 {
	if e.clusterPos == 0 {
		return x
	}
	zone := 0.0
	switch band {
	case BandPoor:
		zone = -clusterZone * width
	case BandGood:
		zone = clusterZone * width
	}
	return x + (zone-x)*clusterDrift*e.clusterPos
}

// advanceLocked steps animations and reports whether another frame is
// needed. The frame after an animation settles paints its final state.
func (e *Engine) advanceLocked() bool {
	if !e.animatingLocked() {
		return false
	}
	target := 0.0
	if e.cluster {
		target = 1
	}
	if e.clusterPos != target || e.clusterVel != 0 {
		e.clusterPos, e.clusterVel = e.spring.Update(e.clusterPos, e.clusterVel, target)
		if math.Abs(e.clusterPos-target) < 0.005 && math.Abs(e.clusterVel) < 0.01 {
			e.clusterPos, e.clusterVel = target, 0
		}
	}
	if r := e.ripple; r != nil {
		r.pos, r.vel = e.spring.Update(r.pos, r.vel, r.target)
		r.frames++
		if r.pos >= r.target*0.98 || r.frames >= maxRippleFrames {
			e.ripple = nil
		}
	}
	return true
}

func (e *Engine) animatingLocked() bool {
	target := 0.0
	if e.cluster {
		target = 1
	}
	return e.ripple != nil || e.clusterPos != target || e.clusterVel != 0
}

// boldThreshold returns the size of the item at the top quartile.
func boldThreshold(items []layout.Item) float64 {
	if len(items) == 0 {
		return math.Inf(1)
	}
	sizes := make([]float64, len(items))
	for i, it := range items {
		sizes[i] = it.Size
	}
	sort.Float64s(sizes)
	if sizes[0] == sizes[len(sizes)-1] {
		return math.Inf(1)
	}
	return sizes[len(sizes)*3/4]
}
