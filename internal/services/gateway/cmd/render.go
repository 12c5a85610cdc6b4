package main

import (
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/LeonardoBeccarini/anuja/internal/services/advisor"
)

var (
	titleStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("34"))
	sectionStyle = lipgloss.NewStyle().Bold(true).Underline(true).MarginTop(1)
	weekStyle    = lipgloss.NewStyle().Bold(true)

	levelStyles = map[advisor.Level]lipgloss.Style{
		advisor.LevelInfo:    lipgloss.NewStyle().Foreground(lipgloss.Color("39")),
		advisor.LevelSuccess: lipgloss.NewStyle().Foreground(lipgloss.Color("34")),
		advisor.LevelWarning: lipgloss.NewStyle().Foreground(lipgloss.Color("214")),
		advisor.LevelError:   lipgloss.NewStyle().Foreground(lipgloss.Color("196")),
	}
	levelMarks = map[advisor.Level]string{
		advisor.LevelInfo:    "i",
		advisor.LevelSuccess: "✓",
		advisor.LevelWarning: "!",
		advisor.LevelError:   "✗",
	}
)

func notice(n advisor.Notice) string {
	return levelStyles[n.Level].Render(levelMarks[n.Level] + " " + n.Text)
}

// renderReport lays the report out in the same order as the web form.
func renderReport(rep advisor.Report) string {
	var b strings.Builder
	line := func(s string) { b.WriteString(s + "\n") }

	line(titleStyle.Render("ANUJA - Your Smart Farming Partner"))

	line(sectionStyle.Render("Input Summary"))
	for _, s := range rep.Summary {
		line("• " + s)
	}

	line(sectionStyle.Render("Smart Suggestions"))
	for _, n := range rep.Suggestions {
		line(notice(n))
	}
	line(sectionStyle.Render("Fertilizer Guide"))
	line(notice(rep.Fertilizer))
	line(sectionStyle.Render("Watering Schedule"))
	line(notice(rep.Watering))
	line(sectionStyle.Render("Required Supplements at Planting"))
	line(notice(rep.Supplement))

	line(sectionStyle.Render("Future Pest & Fertilizer Planner"))
	for _, w := range rep.Planner {
		line(weekStyle.Render(w.Label + ":"))
		line("  Pest: " + w.Pest)
		line("  Fertilizer: " + w.Fertilizer)
	}

	if rep.Weather.Requested {
		line(sectionStyle.Render("Live Weather Report"))
	}
	for _, n := range rep.Weather.Notices {
		line(notice(n))
	}
	return strings.TrimRight(b.String(), "\n")
}
