// Package tui provides the Bubble Tea cloud explorer.
package tui

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/bubbles/cursor"
	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	clog "github.com/charmbracelet/log"

	"github.com/verte-zerg/pronocloud/internal/detail"
	"github.com/verte-zerg/pronocloud/internal/layout"
	"github.com/verte-zerg/pronocloud/internal/model"
	"github.com/verte-zerg/pronocloud/internal/paint"
	"github.com/verte-zerg/pronocloud/internal/render"
	"github.com/verte-zerg/pronocloud/internal/timeline"
	"github.com/verte-zerg/pronocloud/internal/viewstate"
)

var (
	titleStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("#F0F0F0")).Bold(true)
	headerStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("#6E6E6E"))
	accentStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("#C89A3A"))
	cardTitleStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#8C8C8C"))
	errorStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("#FF4D4F"))
	messageStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#B0B0B0"))
	modalStyle     = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder(), true).
			BorderForeground(lipgloss.Color("#C89A3A")).
			Padding(1, 2)
)

// PlanFunc hands a practice plan off and describes where it went.
type PlanFunc func(ctx context.Context) (string, error)

// Deps wires the explorer to the engines it drives.
type Deps struct {
	Ctx       context.Context
	View      *viewstate.Store
	Render    *render.Orchestrator
	Paint     *paint.Engine
	Surface   *paint.CellSurface
	Timeline  *timeline.Controller
	Detail    *detail.Controller
	Scheduler *Scheduler
	Plan      PlanFunc
	Logger    *clog.Logger
}

type statusMsg struct{}

type drawDoneMsg struct {
	err error
}

type flashMsg struct {
	text string
	err  bool
}

// Model implements the Bubble Tea cloud explorer.
type Model struct {
	deps  Deps
	unsub func()

	width  int
	height int

	status render.Status
	// redraw is set when a render was dropped because another held the gate.
	redraw bool

	keys      cloudKeys
	sheetKeys sheetKeys
	help      help.Model
	spinner   spinner.Model

	searching bool
	search    textinput.Model

	sheetOpen bool
	sheetVM   detail.ViewModel
	sheet     viewport.Model

	flash    string
	flashErr bool
}

// NewModel constructs the explorer model.
func NewModel(deps Deps) *Model {
	if deps.Ctx == nil {
		deps.Ctx = context.Background()
	}
	if deps.Logger == nil {
		deps.Logger = clog.New(io.Discard)
	}
	input := textinput.New()
	input.Prompt = "/ "
	input.Placeholder = "search targets"
	input.CharLimit = 64
	input.Cursor.SetMode(cursor.CursorBlink)
	input.SetValue(deps.View.Get().Search)

	spin := spinner.New()
	spin.Spinner = spinner.Dot
	spin.Style = accentStyle

	return &Model{
		deps:      deps,
		keys:      defaultCloudKeys,
		sheetKeys: defaultSheetKeys,
		help:      help.New(),
		spinner:   spin,
		search:    input,
		sheet:     viewport.New(0, 0),
		status:    deps.Render.Status(),
	}
}

// Attach connects the model to a running program. Status changes and paint
// frames arrive as messages through send.
func (m *Model) Attach(send func(tea.Msg)) {
	if m.deps.Scheduler != nil {
		m.deps.Scheduler.Attach(send)
	}
	// Listeners may run on the update goroutine, so never send inline.
	m.unsub = m.deps.Render.Subscribe(func(render.Status) {
		go send(statusMsg{})
	})
}

// Close detaches listeners and stops replay.
func (m *Model) Close() {
	if m.unsub != nil {
		m.unsub()
	}
	if m.deps.Timeline != nil {
		m.deps.Timeline.Close()
	}
}

// Init implements tea.Model.
func (m *Model) Init() tea.Cmd {
	return m.spinner.Tick
}

// Update implements tea.Model.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.updateLayout()
		w, h := m.cloudSize()
		m.deps.Paint.Resize(float64(w), float64(h))
		return m, m.draw(render.DrawOptions{ReuseLayoutOnly: true})
	case frameMsg:
		msg.run()
		return m, nil
	case statusMsg:
		m.status = m.deps.Render.Status()
		return m, nil
	case drawDoneMsg:
		return m, m.drawDone(msg.err)
	case flashMsg:
		m.flash = msg.text
		m.flashErr = msg.err
		return m, nil
	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	case tea.MouseMsg:
		return m, m.handleMouse(msg)
	case tea.KeyMsg:
		if msg.Type == tea.KeyCtrlC {
			return m, tea.Quit
		}
		if m.searching {
			return m, m.updateSearch(msg)
		}
		if m.sheetOpen {
			return m, m.updateSheet(msg)
		}
		return m.handleKey(msg)
	}
	return m, nil
}

func (m *Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	m.flash = ""
	state := m.deps.View.Get()
	switch {
	case key.Matches(msg, m.keys.Quit):
		return m, tea.Quit
	case key.Matches(msg, m.keys.Taxonomy):
		next := model.TaxonomyPhonemes
		if state.Taxonomy == model.TaxonomyPhonemes {
			next = model.TaxonomyWords
		}
		return m, m.setView(viewstate.Patch{Taxonomy: viewstate.Ptr(next)})
	case key.Matches(msg, m.keys.Rank):
		next := cycle(model.RankModes, state.Rank)
		return m, m.setView(viewstate.Patch{Rank: viewstate.Ptr(next)})
	case key.Matches(msg, m.keys.Range):
		next := cycle(model.Ranges, state.Range)
		return m, m.setView(viewstate.Patch{Range: viewstate.Ptr(next)})
	case key.Matches(msg, m.keys.Cluster):
		return m, m.setView(viewstate.Patch{Cluster: viewstate.Ptr(!state.Cluster)})
	case key.Matches(msg, m.keys.Theme):
		next := paint.ThemeLight
		if state.Theme == paint.ThemeLight {
			next = paint.ThemeDark
		}
		return m, m.setView(viewstate.Patch{Theme: viewstate.Ptr(next)})
	case key.Matches(msg, m.keys.Search):
		m.searching = true
		m.search.SetValue(state.Search)
		m.search.CursorEnd()
		return m, m.search.Focus()
	case key.Matches(msg, m.keys.Play):
		return m, m.timelineCmd(func(ctx context.Context, tl *timeline.Controller) { tl.Toggle(ctx) })
	case key.Matches(msg, m.keys.Back):
		return m, m.timelineCmd(func(ctx context.Context, tl *timeline.Controller) { tl.Step(ctx, -1) })
	case key.Matches(msg, m.keys.Forward):
		return m, m.timelineCmd(func(ctx context.Context, tl *timeline.Controller) { tl.Step(ctx, 1) })
	case key.Matches(msg, m.keys.Open):
		if it, ok := m.deps.Paint.Hovered(); ok {
			return m, m.openDetail(it)
		}
		return m, nil
	case key.Matches(msg, m.keys.Plan):
		return m, m.planCmd()
	case key.Matches(msg, m.keys.Refresh):
		return m, m.draw(render.DrawOptions{ForceFetch: true})
	}
	return m, nil
}

func (m *Model) updateSearch(msg tea.KeyMsg) tea.Cmd {
	switch msg.Type {
	case tea.KeyEsc:
		m.searching = false
		m.search.Blur()
		committed := m.deps.View.Get().Search
		m.search.SetValue(committed)
		m.deps.Paint.SetFocus(committed)
		return nil
	case tea.KeyEnter:
		m.searching = false
		m.search.Blur()
		return m.setView(viewstate.Patch{Search: viewstate.Ptr(strings.TrimSpace(m.search.Value()))})
	}
	var cmd tea.Cmd
	m.search, cmd = m.search.Update(msg)
	// Typing only dims; the cloud reorders once the query is committed.
	m.deps.Paint.SetFocus(m.search.Value())
	return cmd
}

func (m *Model) updateSheet(msg tea.KeyMsg) tea.Cmd {
	switch {
	case key.Matches(msg, m.sheetKeys.Close):
		m.sheetOpen = false
		return nil
	case key.Matches(msg, m.sheetKeys.Favorite):
		if err := m.deps.Detail.ToggleFavorite(m.deps.Ctx, &m.sheetVM); err != nil {
			m.setFlash(err.Error(), true)
			return nil
		}
		m.refreshSheet()
		return nil
	case key.Matches(msg, m.sheetKeys.Pin):
		if err := m.deps.Detail.TogglePinned(m.deps.Ctx, &m.sheetVM); err != nil {
			m.setFlash(err.Error(), true)
			return nil
		}
		m.refreshSheet()
		if m.sheetVM.Taxonomy == m.deps.View.Get().Taxonomy {
			return m.draw(render.DrawOptions{ReuseLayoutOnly: true})
		}
		return nil
	}
	var cmd tea.Cmd
	m.sheet, cmd = m.sheet.Update(msg)
	return cmd
}

func (m *Model) handleMouse(msg tea.MouseMsg) tea.Cmd {
	if m.sheetOpen || m.searching {
		return nil
	}
	x, y, ok := m.cloudPoint(msg.X, msg.Y)
	if !ok {
		return nil
	}
	switch msg.Action {
	case tea.MouseActionMotion:
		m.deps.Paint.MouseMove(x, y)
	case tea.MouseActionPress:
		if msg.Button != tea.MouseButtonLeft {
			return nil
		}
		if it, hit := m.deps.Paint.Click(x, y); hit {
			return m.openDetail(it)
		}
	}
	return nil
}

func (m *Model) openDetail(it layout.Item) tea.Cmd {
	vm, err := m.deps.Detail.OpenItem(m.deps.Ctx, it)
	if err != nil {
		m.deps.Logger.Debug("detail unavailable", "id", it.ID(), "err", err)
		m.setFlash("No details for "+it.ID(), true)
		return nil
	}
	m.sheetVM = vm
	m.sheetOpen = true
	m.refreshSheet()
	m.sheet.GotoTop()
	return nil
}

func (m *Model) refreshSheet() {
	m.sheet.SetContent(renderSheet(m.sheetVM, m.sheet.Width))
}

// setView applies patch and redraws when the state changed.
func (m *Model) setView(patch viewstate.Patch) tea.Cmd {
	prev := m.deps.View.Get()
	next := m.deps.View.Set(m.deps.Ctx, patch)
	if next == prev {
		return nil
	}
	return m.draw(render.DrawOptions{ReuseLayoutOnly: true})
}

func (m *Model) draw(opts render.DrawOptions) tea.Cmd {
	ctx := m.deps.Ctx
	orch := m.deps.Render
	return func() tea.Msg {
		return drawDoneMsg{err: orch.Draw(ctx, opts)}
	}
}

func (m *Model) drawDone(err error) tea.Cmd {
	switch {
	case errors.Is(err, render.ErrBusy):
		m.redraw = true
		return nil
	case errors.Is(err, render.ErrStale):
	case err != nil:
		m.deps.Logger.Debug("render ended", "err", err)
	}
	m.status = m.deps.Render.Status()
	if m.redraw {
		m.redraw = false
		return m.draw(render.DrawOptions{ReuseLayoutOnly: true})
	}
	return nil
}

func (m *Model) timelineCmd(fn func(ctx context.Context, tl *timeline.Controller)) tea.Cmd {
	tl := m.deps.Timeline
	if tl == nil {
		return nil
	}
	ctx := m.deps.Ctx
	return func() tea.Msg {
		fn(ctx, tl)
		return statusMsg{}
	}
}

func (m *Model) planCmd() tea.Cmd {
	plan := m.deps.Plan
	if plan == nil {
		return nil
	}
	ctx := m.deps.Ctx
	return func() tea.Msg {
		where, err := plan(ctx)
		if err != nil {
			return flashMsg{text: err.Error(), err: true}
		}
		return flashMsg{text: "Practice plan written to " + where}
	}
}

func (m *Model) setFlash(text string, isErr bool) {
	m.flash = text
	m.flashErr = isErr
}

// View implements tea.Model.
func (m *Model) View() string {
	if m.width == 0 || m.height == 0 {
		return ""
	}
	if m.height < 3 {
		return fitLines(m.renderHeader(), m.width, m.height)
	}
	_, bodyHeight := m.cloudSize()
	header := fitLines(m.renderHeader(), m.width, 1)
	body := fitLines(m.renderBody(bodyHeight), m.width, bodyHeight)
	footer := fitLines(m.renderFooter(), m.width, 1)
	return strings.Join([]string{header, body, footer}, "\n")
}

func (m *Model) updateLayout() {
	m.help.Width = m.width
	m.search.Width = max(10, m.width-lipgloss.Width(m.search.Prompt)-2)
	innerW, innerH := m.sheetInner()
	m.sheet.Width = innerW
	m.sheet.Height = innerH
	if m.sheetOpen {
		m.refreshSheet()
	}
}

// cloudSize is the surface size: the full width between header and footer.
func (m *Model) cloudSize() (int, int) {
	return max(1, m.width), max(1, m.height-2)
}

// cloudPoint maps a terminal cell to surface coordinates at the cell center.
func (m *Model) cloudPoint(col, row int) (float64, float64, bool) {
	w, h := m.cloudSize()
	row--
	if col < 0 || row < 0 || col >= w || row >= h {
		return 0, 0, false
	}
	return float64(col) + 0.5, float64(row) + 0.5, true
}

func (m *Model) sheetInner() (int, int) {
	_, h := m.cloudSize()
	frameW, frameH := modalStyle.GetFrameSize()
	width := min(m.width-4, 72) - frameW
	height := h - frameH
	return max(10, width), max(1, height)
}

func (m *Model) renderHeader() string {
	state := m.deps.View.Get()
	parts := []string{
		titleStyle.Render("pronocloud"),
		string(state.Taxonomy),
		string(state.Rank),
		state.Range,
	}
	if state.Range == model.RangeTimeline {
		label := fmt.Sprintf("day %d/%d, %dd window", state.Position+1, m.status.MaxPosition+1, state.Window)
		if m.deps.Timeline != nil && m.deps.Timeline.IsPlaying() {
			label += " ▶"
		}
		parts = append(parts, label)
	}
	if state.Search != "" {
		parts = append(parts, "search: "+state.Search)
	}
	if state.Cluster {
		parts = append(parts, "clustered")
	}
	return truncateLine(strings.Join(parts, headerStyle.Render(" · ")), m.width)
}

func (m *Model) renderBody(height int) string {
	if m.sheetOpen {
		box := modalStyle.Render(m.sheet.View())
		return lipgloss.Place(m.width, height, lipgloss.Center, lipgloss.Center, box)
	}
	items := m.deps.Paint.Items()
	switch {
	case m.status.Busy && len(items) == 0:
		lines := []string{m.spinner.View() + " " + titleStyle.Render(capitalize(m.status.Phase.String())+"...")}
		if m.status.Subtext != "" {
			lines = append(lines, messageStyle.Render(m.status.Subtext))
		}
		return lipgloss.Place(m.width, height, lipgloss.Center, lipgloss.Center, strings.Join(lines, "\n"))
	case !m.status.Busy && m.status.Message != "" && len(items) == 0:
		style := messageStyle
		if m.status.Message != render.MessageEmpty && m.status.Message != render.MessageTooSmall {
			style = errorStyle
		}
		return lipgloss.Place(m.width, height, lipgloss.Center, lipgloss.Center, style.Render(m.status.Message))
	}
	return m.deps.Surface.String()
}

func (m *Model) renderFooter() string {
	switch {
	case m.searching:
		return m.search.View()
	case m.flash != "":
		if m.flashErr {
			return errorStyle.Render(m.flash)
		}
		return accentStyle.Render(m.flash)
	case m.status.Busy:
		line := m.spinner.View() + " " + m.status.Phase.String()
		if m.status.Subtext != "" {
			line += "  " + m.status.Subtext
		}
		return headerStyle.Render(line)
	case m.sheetOpen:
		return m.help.View(m.sheetKeys)
	}
	if it, ok := m.deps.Paint.Hovered(); ok {
		s := it.Stat
		return accentStyle.Render(fmt.Sprintf("%s  avg %.1f  seen %d×  %s", s.ID, s.Avg, s.Count, paint.BandFor(s.Avg)))
	}
	return m.help.View(m.keys)
}

func cycle[T comparable](values []T, current T) T {
	for i, v := range values {
		if v == current {
			return values[(i+1)%len(values)]
		}
	}
	return values[0]
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
