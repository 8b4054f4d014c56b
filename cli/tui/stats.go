package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/pithecene-io/joinery/cli/reader"
)

// StatsModel is a Bubble Tea model for stats views.
type StatsModel struct {
	viewType string
	data     any
	width    int
	height   int
	quitting bool
}

// NewStatsModel creates a new stats model.
func NewStatsModel(viewType string, data any) StatsModel {
	return StatsModel{viewType: viewType, data: data}
}

// Init implements tea.Model.
func (m StatsModel) Init() tea.Cmd {
	return nil
}

// Update implements tea.Model.
func (m StatsModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
	case tea.KeyMsg:
		if key.Matches(msg, keys.Quit) {
			m.quitting = true
			return m, tea.Quit
		}
	}
	return m, nil
}

// View implements tea.Model.
func (m StatsModel) View() string {
	if m.quitting {
		return ""
	}

	var content string
	switch m.viewType {
	case ViewStatsMetrics:
		content = m.renderStatsMetrics()
	case ViewStatsExamples:
		content = m.renderStatsExamples()
	default:
		content = fmt.Sprintf("Unknown view type: %s", m.viewType)
	}

	help := helpStyle.Render("Press q or Ctrl+C to quit")
	return content + "\n" + help
}

func statBox(label string, value int64, color lipgloss.AdaptiveColor) string {
	content := lipgloss.JoinVertical(lipgloss.Center,
		statValueStyle.Foreground(color).Render(fmt.Sprintf("%d", value)),
		statLabelStyle.Render(label),
	)
	return statBoxStyle.BorderForeground(color).Render(content)
}

func (m StatsModel) renderStatsMetrics() string {
	data, ok := m.data.(*reader.MetricsSnapshot)
	if !ok {
		return "Invalid data type for stats_metrics"
	}

	var b strings.Builder
	b.WriteString(titleStyle.Render("Metrics"))
	b.WriteString("\n\n")
	field(&b, "Command", valueStyle.Render(data.Command))
	field(&b, "Join ID", valueStyle.Render(data.JoinID))
	field(&b, "Source", valueStyle.Render(data.Source))
	field(&b, "Storage", valueStyle.Render(data.StorageBackend))
	field(&b, "Completed", valueStyle.Render(data.CompletedAt))

	b.WriteString("\n")
	b.WriteString(titleStyle.Render("Join"))
	b.WriteString("\n")
	b.WriteString(lipgloss.JoinHorizontal(lipgloss.Top,
		statBox("Interactions", data.InteractionsJoined, frame),
		statBox("Observations", data.ObservationsJoined, good),
		statBox("Unmatched", data.UnmatchedInteractions, warn),
		statBox("Payloads", data.PayloadsWritten, frame),
	))

	b.WriteString("\n")
	b.WriteString(titleStyle.Render("Reconstruction"))
	b.WriteString("\n")
	b.WriteString(lipgloss.JoinHorizontal(lipgloss.Top,
		statBox("Examples", data.ExamplesEmitted, good),
		statBox("Unresolved", data.UnresolvedActions, warn),
		statBox("Orphans", data.OrphanOutcomes, warn),
		statBox("Dangling", data.DanglingEpisodes, bad),
	))

	if len(data.SkippedByType) > 0 {
		b.WriteString("\n")
		b.WriteString(titleStyle.Render("Skipped"))
		b.WriteString("\n")
		for _, k := range sortedKeys(data.SkippedByType) {
			n := data.SkippedByType[k]
			field(&b, "  "+k, countStyle(n).Render(fmt.Sprintf("%d", n)))
		}
	}

	b.WriteString("\n")
	field(&b, "Lode writes", fmt.Sprintf("%s ok, %s failed",
		goodStyle.Render(fmt.Sprintf("%d", data.LodeWriteSuccess)),
		countStyle(data.LodeWriteFailure).Render(fmt.Sprintf("%d", data.LodeWriteFailure))))
	field(&b, "Notifications", fmt.Sprintf("%s ok, %s failed",
		goodStyle.Render(fmt.Sprintf("%d", data.NotifySuccess)),
		countStyle(data.NotifyFailure).Render(fmt.Sprintf("%d", data.NotifyFailure))))

	return boxStyle.Render(b.String())
}

func (m StatsModel) renderStatsExamples() string {
	data, ok := m.data.(*reader.ExampleStats)
	if !ok {
		return "Invalid data type for stats_examples"
	}

	var b strings.Builder
	b.WriteString(titleStyle.Render("Examples"))
	b.WriteString("\n\n")
	b.WriteString(lipgloss.JoinHorizontal(lipgloss.Top,
		statBox("Total", int64(data.Examples), frame),
		statBox("Resolved", int64(data.Resolved), good),
		statBox("Unresolved", int64(data.Unresolved), warn),
		statBox("Steps", int64(data.Steps), frame),
	))
	b.WriteString("\n")
	field(&b, "With outcomes", valueStyle.Render(fmt.Sprintf("%d", data.WithOutcomes)))
	field(&b, "Mean reward", rewardText(data.MeanReward))
	field(&b, "Reward range", "["+rewardText(float64(data.MinReward))+", "+rewardText(float64(data.MaxReward))+"]")
	for _, k := range sortedKeys(data.ByPayloadType) {
		field(&b, "  "+k, valueStyle.Render(fmt.Sprintf("%d", data.ByPayloadType[k])))
	}
	return boxStyle.Render(b.String())
}

// RunStatsTUI runs the stats TUI.
func RunStatsTUI(viewType string, data any) error {
	p := tea.NewProgram(NewStatsModel(viewType, data), tea.WithAltScreen())
	_, err := p.Run()
	return err
}

// RenderStatsStatic renders a stats view once, without a program.
func RenderStatsStatic(viewType string, data any) string {
	model := NewStatsModel(viewType, data)
	model.width = 80
	model.height = 24
	return lipgloss.NewStyle().Padding(1, 2).Render(model.View())
}
