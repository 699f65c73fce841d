package paint

import (
	"math"
	"strings"
	"sync"

	"github.com/charmbracelet/lipgloss"
	colorful "github.com/lucasb-eyer/go-colorful"
	"github.com/mattn/go-runewidth"

	"github.com/verte-zerg/pronocloud/internal/layout"
)

type cell struct {
	r     rune
	style TextStyle
	set   bool
	// cont marks the trailing half of a wide rune.
	cont bool
	ring bool
}

// CellSurface draws onto a terminal cell grid. One surface unit is one
// cell; text size only changes emphasis.
type CellSurface struct {
	mu     sync.Mutex
	cols   int
	rows   int
	bg     colorful.Color
	back   []cell
	front  []cell
	frontW int
	// boldFrom is the size at or above which text is bold.
	boldFrom float64
}

// NewCellSurface returns a cols by rows surface.
func NewCellSurface(cols, rows int) *CellSurface {
	s := &CellSurface{boldFrom: math.Inf(1)}
	s.Resize(float64(cols), float64(rows))
	return s
}

// SetBoldFrom makes text at or above size render bold.
func (s *CellSurface) SetBoldFrom(size float64) {
	s.mu.Lock()
	s.boldFrom = size
	s.mu.Unlock()
}

// Measure reports the cell extents of text. Size is ignored.
func (s *CellSurface) Measure(text string, _ float64) layout.Extents {
	return layout.Extents{Left: 0, Right: float64(runewidth.StringWidth(text)), Ascent: 0.5, Descent: 0.5}
}

// Size returns the grid size in cells.
func (s *CellSurface) Size() (float64, float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return float64(s.cols), float64(s.rows)
}

// Resize changes the grid size and clears it.
func (s *CellSurface) Resize(width, height float64) {
	cols := max(int(width), 0)
	rows := max(int(height), 0)
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cols, s.rows = cols, rows
	s.back = make([]cell, cols*rows)
}

// Clear resets the back buffer.
func (s *CellSurface) Clear(bg colorful.Color) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.bg = bg
	for i := range s.back {
		s.back[i] = cell{}
	}
}

// DrawText writes text with its center on the cell nearest (x, y).
func (s *CellSurface) DrawText(text string, size, x, y float64, style TextStyle) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if size >= s.boldFrom {
		style.Bold = true
	}
	width := runewidth.StringWidth(text)
	col := int(math.Floor(float64(s.cols)/2 + x - float64(width)/2 + 0.5))
	row := int(math.Floor(float64(s.rows)/2 + y))
	if row < 0 || row >= s.rows {
		return
	}
	for _, r := range text {
		w := runewidth.RuneWidth(r)
		if w == 0 {
			continue
		}
		if col >= 0 && col+w <= s.cols {
			idx := row*s.cols + col
			s.back[idx] = cell{r: r, style: style, set: true}
			for k := 1; k < w; k++ {
				s.back[idx+k] = cell{style: style, set: true, cont: true}
			}
		}
		col += w
	}
}

// DrawRing plots a ring of dots. Cells are about twice as tall as wide, so
// the horizontal radius is doubled.
func (s *CellSurface) DrawRing(x, y, radius float64, c colorful.Color, alpha float64) {
	if radius <= 0 || alpha <= 0 {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	cx := float64(s.cols)/2 + x
	cy := float64(s.rows)/2 + y
	steps := max(16, int(4*math.Pi*radius))
	style := TextStyle{Color: s.bg.BlendLab(c, clamp01(alpha)).Clamped()}
	for i := 0; i < steps; i++ {
		a := 2 * math.Pi * float64(i) / float64(steps)
		col := int(math.Round(cx + 2*radius*math.Cos(a)))
		row := int(math.Round(cy + radius*math.Sin(a)))
		if col < 0 || col >= s.cols || row < 0 || row >= s.rows {
			continue
		}
		idx := row*s.cols + col
		if s.back[idx].set {
			continue
		}
		s.back[idx] = cell{r: '·', style: style, set: true, ring: true}
	}
}

// Present swaps the back buffer to the front.
func (s *CellSurface) Present() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.front = append(s.front[:0], s.back...)
	s.frontW = s.cols
}

// String renders the presented frame with lipgloss styling.
func (s *CellSurface) String() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.render(true)
}

// Plain renders the presented frame without styling.
func (s *CellSurface) Plain() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.render(false)
}

func (s *CellSurface) render(styled bool) string {
	if s.frontW == 0 {
		return ""
	}
	rows := len(s.front) / s.frontW
	lines := make([]string, 0, rows)
	for r := 0; r < rows; r++ {
		line := s.front[r*s.frontW : (r+1)*s.frontW]
		var b strings.Builder
		for i := 0; i < len(line); {
			c := line[i]
			if !c.set {
				b.WriteByte(' ')
				i++
				continue
			}
			// Group a run of cells sharing one style.
			j := i
			var run strings.Builder
			for j < len(line) && line[j].set && line[j].style == c.style {
				if !line[j].cont {
					run.WriteRune(line[j].r)
				}
				j++
			}
			if styled {
				b.WriteString(cellStyle(c.style).Render(run.String()))
			} else {
				b.WriteString(run.String())
			}
			i = j
		}
		lines = append(lines, strings.TrimRight(b.String(), " "))
	}
	return strings.Join(lines, "\n")
}

func cellStyle(ts TextStyle) lipgloss.Style {
	st := lipgloss.NewStyle().Foreground(lipgloss.Color(ts.Color.Clamped().Hex()))
	if ts.Bold {
		st = st.Bold(true)
	}
	if ts.Stroke {
		st = st.Underline(true)
	}
	if ts.Dim {
		st = st.Faint(true)
	}
	return st
}
