package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/verte-zerg/pronocloud/internal/detail"
	"github.com/verte-zerg/pronocloud/internal/model"
)

var bandStyles = map[string]lipgloss.Style{
	"good": lipgloss.NewStyle().Foreground(lipgloss.Color("#5FB760")),
	"warn": lipgloss.NewStyle().Foreground(lipgloss.Color("#E0A526")),
	"poor": lipgloss.NewStyle().Foreground(lipgloss.Color("#FF4D4F")),
}

// renderSheet formats the detail sheet body for the given inner width.
func renderSheet(vm detail.ViewModel, width int) string {
	if width < 20 {
		width = 20
	}
	band := bandStyles[vm.Band]
	kind := "word"
	if vm.Taxonomy == model.TaxonomyPhonemes {
		kind = "phoneme"
	}
	lines := []string{
		titleStyle.Render(vm.Title) + "  " + headerStyle.Render(kind),
		"",
		fmt.Sprintf("%s  %s", cardTitleStyle.Render("Average"), band.Render(fmt.Sprintf("%.1f (%s)", vm.Avg, vm.Band))),
		fmt.Sprintf("%s  %d times on %d days", cardTitleStyle.Render("Seen   "), vm.Count, vm.Days),
		fmt.Sprintf("%s  %s", cardTitleStyle.Render("Last   "), vm.LastSeenLabel),
		fmt.Sprintf("%s  %.3f", cardTitleStyle.Render("Rank   "), vm.Priority),
	}
	var flags []string
	if vm.Favorite {
		flags = append(flags, "★ favorite")
	}
	if vm.Pinned {
		flags = append(flags, "◆ pinned")
	}
	if len(flags) > 0 {
		lines = append(lines, accentStyle.Render(strings.Join(flags, "  ")))
	}
	if vm.Trend != "" {
		lines = append(lines, fmt.Sprintf("%s  %s", cardTitleStyle.Render("Trend  "), vm.Trend))
	}
	if len(vm.Examples) > 0 {
		lines = append(lines, "", cardTitleStyle.Render("Examples"))
		lines = append(lines, wrapChips(vm.Examples, "  ", width)...)
	}
	lines = append(lines, "", cardTitleStyle.Render("Recent attempts"))
	if len(vm.Recents) == 0 {
		lines = append(lines, headerStyle.Render("none in history"))
	}
	for _, r := range vm.Recents {
		prefix := fmt.Sprintf("%s  %5.1f  ", r.When.Local().Format("Jan 02 15:04"), r.Score)
		lines = append(lines, truncateLine(prefix+r.Text, width))
	}
	return strings.Join(lines, "\n")
}
