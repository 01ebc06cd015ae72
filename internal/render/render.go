// Package render draws streak read-models for the terminal.
package render

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/julianstephens/habitd/internal/models"
	"github.com/julianstephens/habitd/internal/utils"
)

var (
	completeStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("42"))
	failedStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
	incompleteStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("214"))
	skippedStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("111"))
	awayStyle       = lipgloss.NewStyle().Foreground(lipgloss.Color("141"))
	idleStyle       = lipgloss.NewStyle().Foreground(lipgloss.Color("240"))

	titleStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("205"))
	labelStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("244"))
	valueStyle = lipgloss.NewStyle().Bold(true)
	boxStyle   = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(lipgloss.Color("238")).Padding(0, 1)
)

// Glyph returns the one-cell symbol for a state.
func Glyph(state models.CompletionState) string {
	switch state {
	case models.StateComplete:
		return completeStyle.Render("■")
	case models.StateFailed:
		return failedStyle.Render("✗")
	case models.StateIncomplete:
		return incompleteStyle.Render("□")
	case models.StateSkipped:
		return skippedStyle.Render("-")
	case models.StateAway:
		return awayStyle.Render("~")
	default:
		return idleStyle.Render("·")
	}
}

// Legend explains the glyphs.
func Legend() string {
	states := []models.CompletionState{
		models.StateComplete, models.StateFailed, models.StateIncomplete,
		models.StateSkipped, models.StateAway, models.StateNoSchedule,
	}
	parts := make([]string, len(states))
	for i, s := range states {
		parts[i] = Glyph(s) + " " + labelStyle.Render(strings.ToLower(strings.ReplaceAll(string(s), "_", " ")))
	}
	return strings.Join(parts, "  ")
}

// Strip renders the results as a single row, oldest first.
func Strip(hs models.HabitStreak) string {
	var b strings.Builder
	for _, r := range hs.Results {
		b.WriteString(Glyph(r.State))
	}
	return b.String()
}

// Calendar renders the results as a grid with one row per weekday, starting
// at weekStart, and one column per week.
func Calendar(hs models.HabitStreak, weekStart time.Weekday) string {
	if len(hs.Results) == 0 {
		return idleStyle.Render("no days to show")
	}

	first := utils.DayKey(hs.Results[0].Day)
	gridStart := first
	for gridStart.Weekday() != weekStart {
		gridStart = gridStart.AddDate(0, 0, -1)
	}
	last := utils.DayKey(hs.Results[len(hs.Results)-1].Day)
	weeks := utils.DaysBetween(gridStart, last)/7 + 1

	cells := make([][]string, 7)
	for row := range cells {
		cells[row] = make([]string, weeks)
		for col := range cells[row] {
			cells[row][col] = " "
		}
	}
	for _, r := range hs.Results {
		offset := utils.DaysBetween(gridStart, r.Day)
		cells[offset%7][offset/7] = Glyph(r.State)
	}

	var b strings.Builder
	for row := 0; row < 7; row++ {
		wd := time.Weekday((int(weekStart) + row) % 7)
		b.WriteString(labelStyle.Render(wd.String()[:3]))
		b.WriteString(" ")
		b.WriteString(strings.Join(cells[row], " "))
		if row < 6 {
			b.WriteString("\n")
		}
	}
	return b.String()
}

// Summary renders the streak scalars and the window they were read over.
func Summary(title string, hs models.HabitStreak) string {
	lines := []string{
		titleStyle.Render(title),
		fmt.Sprintf("%s %s   %s %s",
			labelStyle.Render("current"), valueStyle.Render(fmt.Sprintf("%d", hs.CurrentStreak)),
			labelStyle.Render("longest"), valueStyle.Render(fmt.Sprintf("%d", hs.LongestStreak))),
		labelStyle.Render(fmt.Sprintf("%s → %s", utils.FormatDay(hs.StartDate), utils.FormatDay(hs.EndDate))),
	}
	return boxStyle.Render(strings.Join(lines, "\n"))
}

// Report combines the summary, the day grid and the legend.
func Report(title string, hs models.HabitStreak, weekStart time.Weekday, grid bool) string {
	body := Strip(hs)
	if grid {
		body = Calendar(hs, weekStart)
	}
	return lipgloss.JoinVertical(lipgloss.Left, Summary(title, hs), "", body, "", Legend())
}
