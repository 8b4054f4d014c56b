package tui

import (
	"fmt"
	"sort"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/table"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/pithecene-io/joinery/cli/reader"
)

const timeLayout = "2006-01-02 15:04:05"

// InspectModel is a Bubble Tea model for inspect views.
type InspectModel struct {
	viewType string
	data     any
	payloads table.Model
	width    int
	height   int
	quitting bool
}

// NewInspectModel creates a new inspect model.
func NewInspectModel(viewType string, data any) InspectModel {
	m := InspectModel{viewType: viewType, data: data}
	if resp, ok := data.(*reader.InspectLogResponse); ok && len(resp.PayloadDetails) > 0 {
		m.payloads = payloadTable(resp.PayloadDetails)
	}
	return m
}

func payloadTable(details []reader.PayloadSummary) table.Model {
	rows := make([]table.Row, 0, len(details))
	for _, p := range details {
		rows = append(rows, table.Row{
			fmt.Sprintf("%d", p.Index),
			fmt.Sprintf("%d", p.Events),
			fmt.Sprintf("%d", p.Interactions),
			fmt.Sprintf("%d", p.Outcomes),
			p.FirstID,
		})
	}
	t := table.New(
		table.WithColumns([]table.Column{
			{Title: "#", Width: 6},
			{Title: "Events", Width: 8},
			{Title: "Inter.", Width: 8},
			{Title: "Outc.", Width: 8},
			{Title: "First ID", Width: 36},
		}),
		table.WithRows(rows),
		table.WithFocused(true),
		table.WithHeight(min(len(rows)+1, 10)),
	)
	styles := table.DefaultStyles()
	styles.Header = styles.Header.Foreground(accent).Bold(true)
	styles.Selected = styles.Selected.Foreground(frame)
	t.SetStyles(styles)
	return t
}

// Init implements tea.Model.
func (m InspectModel) Init() tea.Cmd {
	return nil
}

// Update implements tea.Model.
func (m InspectModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil

	case tea.KeyMsg:
		if key.Matches(msg, keys.Quit) {
			m.quitting = true
			return m, tea.Quit
		}
	}

	var cmd tea.Cmd
	m.payloads, cmd = m.payloads.Update(msg)
	return m, cmd
}

// View implements tea.Model.
func (m InspectModel) View() string {
	if m.quitting {
		return ""
	}

	var content string
	switch m.viewType {
	case ViewInspectLog:
		content = m.renderInspectLog()
	default:
		content = fmt.Sprintf("Unknown view type: %s", m.viewType)
	}

	help := helpStyle.Render("↑/↓ scroll payloads • q quit")
	return content + "\n" + help
}

func field(b *strings.Builder, label string, value string) {
	fmt.Fprintf(b, "%s %s\n", labelStyle.Render(label+":"), value)
}

func (m InspectModel) renderInspectLog() string {
	data, ok := m.data.(*reader.InspectLogResponse)
	if !ok {
		return "Invalid data type for inspect_log"
	}

	var b strings.Builder
	b.WriteString(titleStyle.Render("Merged Log"))
	b.WriteString("\n\n")

	if data.Path != "" {
		field(&b, "Path", valueStyle.Render(data.Path))
	}
	field(&b, "Join ID", valueStyle.Render(data.JoinID))
	field(&b, "Joiner", valueStyle.Render(data.Joiner))
	if !data.JoinTime.IsZero() {
		field(&b, "Join Time", valueStyle.Render(data.JoinTime.Format(timeLayout)))
	}
	status := "complete"
	if !data.Complete {
		status = "incomplete: " + data.Error
	}
	field(&b, "Status", completenessStyle(data.Complete).Render(status))

	b.WriteString("\n")
	b.WriteString(titleStyle.Render("Checkpoint"))
	b.WriteString("\n")
	cp := data.Checkpoint
	field(&b, "  Reward", valueStyle.Render(cp.RewardFunction))
	field(&b, "  Default", valueStyle.Render(fmt.Sprintf("%g", cp.DefaultReward)))
	field(&b, "  Mode", valueStyle.Render(cp.LearningMode))
	field(&b, "  Problem", valueStyle.Render(cp.ProblemType))
	field(&b, "  Client Time", valueStyle.Render(fmt.Sprintf("%t", cp.UseClientTime)))

	if len(data.Properties) > 0 {
		b.WriteString("\n")
		b.WriteString(titleStyle.Render("Properties"))
		b.WriteString("\n")
		for _, k := range sortedKeys(data.Properties) {
			field(&b, "  "+k, valueStyle.Render(data.Properties[k]))
		}
	}

	b.WriteString("\n")
	counts := lipgloss.JoinHorizontal(lipgloss.Top,
		statBox("Payloads", int64(data.Payloads), frame),
		statBox("Events", int64(data.Events), frame),
		statBox("Interactions", int64(data.Interactions), good),
		statBox("Outcomes", int64(data.Outcomes), good),
	)
	b.WriteString(counts)

	if len(data.PayloadDetails) > 0 {
		b.WriteString("\n\n")
		b.WriteString(m.payloads.View())
	}

	return boxStyle.Render(b.String())
}

func sortedKeys[V any](m map[string]V) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// keyMap defines key bindings.
type keyMap struct {
	Quit key.Binding
}

var keys = keyMap{
	Quit: key.NewBinding(
		key.WithKeys("q", "ctrl+c"),
		key.WithHelp("q", "quit"),
	),
}

// RunInspectTUI runs the inspect TUI.
func RunInspectTUI(viewType string, data any) error {
	p := tea.NewProgram(NewInspectModel(viewType, data), tea.WithAltScreen())
	_, err := p.Run()
	return err
}

// RenderInspectStatic renders an inspect view once, without a program.
func RenderInspectStatic(viewType string, data any) string {
	model := NewInspectModel(viewType, data)
	model.width = 80
	model.height = 24
	return lipgloss.NewStyle().Padding(1, 2).Render(model.View())
}
