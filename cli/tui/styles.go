// Package tui holds the Bubble Tea views behind --tui.
//
// Views are opt-in and read-only. They display the same reader payloads
// the json, yaml and table renderers print.
package tui

import (
	"strconv"

	"github.com/charmbracelet/lipgloss"
)

// palette entries adapt to light and dark terminal backgrounds.
var (
	accent = lipgloss.AdaptiveColor{Light: "#5B21B6", Dark: "#A78BFA"}
	good   = lipgloss.AdaptiveColor{Light: "#047857", Dark: "#34D399"}
	warn   = lipgloss.AdaptiveColor{Light: "#B45309", Dark: "#FBBF24"}
	bad    = lipgloss.AdaptiveColor{Light: "#B91C1C", Dark: "#F87171"}
	muted  = lipgloss.AdaptiveColor{Light: "#6B7280", Dark: "#9CA3AF"}
	text   = lipgloss.AdaptiveColor{Light: "#111827", Dark: "#F9FAFB"}
	frame  = lipgloss.AdaptiveColor{Light: "#2563EB", Dark: "#60A5FA"}
)

var (
	titleStyle = lipgloss.NewStyle().Bold(true).Foreground(accent).MarginBottom(1)
	labelStyle = lipgloss.NewStyle().Foreground(muted).Width(18)
	valueStyle = lipgloss.NewStyle().Foreground(text)
	helpStyle  = lipgloss.NewStyle().Foreground(muted).MarginTop(1)

	goodStyle = lipgloss.NewStyle().Foreground(good)
	warnStyle = lipgloss.NewStyle().Foreground(warn)
	badStyle  = lipgloss.NewStyle().Foreground(bad)

	boxStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(muted).
			Padding(1, 2)

	// Stat tiles in the stats views.
	statBoxStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(frame).
			Padding(0, 2).
			Width(20).
			Align(lipgloss.Center)
	statLabelStyle = lipgloss.NewStyle().Foreground(muted).Align(lipgloss.Center)
	statValueStyle = lipgloss.NewStyle().Bold(true).Foreground(text).Align(lipgloss.Center)
)

// completenessStyle colors a log's completeness flag.
func completenessStyle(complete bool) lipgloss.Style {
	if complete {
		return goodStyle
	}
	return badStyle
}

// countStyle highlights nonzero problem counters such as unmatched
// interactions or orphan outcomes.
func countStyle(n int64) lipgloss.Style {
	if n > 0 {
		return warnStyle
	}
	return valueStyle
}

// rewardText formats a reward, colored by sign.
func rewardText(r float64) string {
	s := strconv.FormatFloat(r, 'g', 6, 64)
	switch {
	case r > 0:
		return goodStyle.Render(s)
	case r < 0:
		return badStyle.Render(s)
	default:
		return valueStyle.Render(s)
	}
}
