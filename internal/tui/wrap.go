package tui

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-runewidth"
)

// wrapChips lays chips out left to right, separated by sep, starting a new
// line when the next chip would overflow width. A chip wider than width gets
// a line of its own and is truncated.
func wrapChips(chips []string, sep string, width int) []string {
	if len(chips) == 0 {
		return nil
	}
	if width <= 0 {
		return []string{strings.Join(chips, sep)}
	}
	sepWidth := runewidth.StringWidth(sep)
	var lines []string
	var line strings.Builder
	lineWidth := 0
	for _, chip := range chips {
		w := runewidth.StringWidth(chip)
		if w > width {
			chip = runewidth.Truncate(chip, width, "…")
			w = runewidth.StringWidth(chip)
		}
		if lineWidth > 0 && lineWidth+sepWidth+w > width {
			lines = append(lines, line.String())
			line.Reset()
			lineWidth = 0
		}
		if lineWidth > 0 {
			line.WriteString(sep)
			lineWidth += sepWidth
		}
		line.WriteString(chip)
		lineWidth += w
	}
	if lineWidth > 0 {
		lines = append(lines, line.String())
	}
	return lines
}

func padLine(line string, width int) string {
	lineWidth := lipgloss.Width(line)
	if lineWidth < width {
		return line + strings.Repeat(" ", width-lineWidth)
	}
	return line
}

func fitLines(s string, width, height int) string {
	if width <= 0 || height <= 0 {
		return s
	}
	lines := strings.Split(s, "\n")
	for i, line := range lines {
		lines[i] = padLine(line, width)
	}
	if len(lines) > height {
		lines = lines[:height]
	}
	for len(lines) < height {
		lines = append(lines, strings.Repeat(" ", width))
	}
	return strings.Join(lines, "\n")
}

func truncateLine(s string, width int) string {
	if width <= 0 || runewidth.StringWidth(s) <= width {
		return s
	}
	if width <= 3 {
		return runewidth.Truncate(s, width, "")
	}
	return runewidth.Truncate(s, width, "...")
}
