package monitor

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/table"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/dd0wney/cluso-busnet/pkg/events"
)

// Styles
var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#00FFFF")).
			MarginLeft(2).
			MarginTop(1)

	activeTabStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FFFFFF")).
			Background(lipgloss.Color("#005F87")).
			Padding(0, 2)

	inactiveTabStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("#666666")).
				Padding(0, 2)

	contentStyle = lipgloss.NewStyle().
			MarginLeft(2)

	statusStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#00FF00")).
			MarginLeft(2)

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FF0000")).
			Bold(true).
			MarginLeft(2)

	helpStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#888888")).
			MarginTop(1).
			MarginLeft(2)
)

// trafficLines is how many traffic lines the board keeps.
const trafficLines = 200

type view int

const (
	devicesView view = iota
	trafficView
)

type keyMap struct {
	Tab   key.Binding
	Pause key.Binding
	Clear key.Binding
	Quit  key.Binding
	Up    key.Binding
	Down  key.Binding
}

var keys = keyMap{
	Tab: key.NewBinding(
		key.WithKeys("tab"),
		key.WithHelp("tab", "switch view"),
	),
	Pause: key.NewBinding(
		key.WithKeys("p", " "),
		key.WithHelp("p", "pause"),
	),
	Clear: key.NewBinding(
		key.WithKeys("c"),
		key.WithHelp("c", "clear"),
	),
	Quit: key.NewBinding(
		key.WithKeys("q", "ctrl+c"),
		key.WithHelp("q", "quit"),
	),
	Up: key.NewBinding(
		key.WithKeys("up", "k"),
		key.WithHelp("↑/k", "up"),
	),
	Down: key.NewBinding(
		key.WithKeys("down", "j"),
		key.WithHelp("↓/j", "down"),
	),
}

func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Tab, k.Pause, k.Clear, k.Quit}
}

func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Tab, k.Pause, k.Clear},
		{k.Up, k.Down},
		{k.Quit},
	}
}

type eventMsg events.Event

type streamErrMsg struct{ err error }

type tickMsg time.Time

func tickCmd() tea.Cmd {
	return tea.Tick(time.Second, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

// Model is the bubbletea model of the dashboard.
type Model struct {
	ctx         context.Context
	source      Source
	title       string
	board       *Board
	table       table.Model
	help        help.Model
	keys        keyMap
	currentView view
	paused      bool
	err         error
	width       int
	height      int
	now         time.Time
}

// New builds a dashboard reading from source until ctx is done.
func New(ctx context.Context, source Source, title string) Model {
	columns := []table.Column{
		{Title: "Device", Width: 16},
		{Title: "Bus bytes", Width: 10},
		{Title: "Recent", Width: maxRecent + 2},
		{Title: "Pins", Width: 36},
		{Title: "Seen", Width: 8},
	}

	t := table.New(
		table.WithColumns(columns),
		table.WithFocused(true),
		table.WithHeight(12),
		table.WithWidth(110),
	)

	s := table.DefaultStyles()
	s.Header = s.Header.
		BorderStyle(lipgloss.NormalBorder()).
		BorderForeground(lipgloss.Color("#00FFFF")).
		BorderBottom(true).
		Bold(true)
	s.Selected = s.Selected.
		Foreground(lipgloss.Color("#FFFFFF")).
		Background(lipgloss.Color("#005F87")).
		Bold(false)
	t.SetStyles(s)

	return Model{
		ctx:    ctx,
		source: source,
		title:  title,
		board:  NewBoard(trafficLines),
		table:  t,
		help:   help.New(),
		keys:   keys,
		now:    time.Now(),
	}
}

// Init starts reading events.
func (m Model) Init() tea.Cmd {
	return tea.Batch(m.waitForEvent(), tickCmd())
}

func (m Model) waitForEvent() tea.Cmd {
	return func() tea.Msg {
		ev, err := m.source.Next(m.ctx)
		if err != nil {
			return streamErrMsg{err: err}
		}
		return eventMsg(ev)
	}
}

// Update handles one message.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.help.Width = msg.Width

	case tickMsg:
		m.now = time.Time(msg)
		m.refresh()
		return m, tickCmd()

	case eventMsg:
		if !m.paused {
			// Unrecognised topics are counted on the board.
			_ = m.board.Apply(events.Event(msg), time.Now())
			m.refresh()
		}
		return m, m.waitForEvent()

	case streamErrMsg:
		if errors.Is(msg.err, context.Canceled) || errors.Is(msg.err, context.DeadlineExceeded) {
			return m, tea.Quit
		}
		m.err = msg.err
		return m, nil

	case tea.KeyMsg:
		switch {
		case key.Matches(msg, m.keys.Quit):
			return m, tea.Quit
		case key.Matches(msg, m.keys.Tab):
			m.currentView = (m.currentView + 1) % 2
		case key.Matches(msg, m.keys.Pause):
			m.paused = !m.paused
		case key.Matches(msg, m.keys.Clear):
			m.board.Reset()
			m.refresh()
		}
	}

	if m.currentView == devicesView {
		m.table, cmd = m.table.Update(msg)
	}
	return m, cmd
}

func (m *Model) refresh() {
	rows := m.board.Rows()
	out := make([]table.Row, len(rows))
	for i, r := range rows {
		out[i] = table.Row{
			r.Name,
			fmt.Sprintf("%d", r.BusBytes),
			Printable(r.Recent),
			r.PinSummary(),
			since(m.now, r.Updated),
		}
	}
	m.table.SetRows(out)
}

func since(now, t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	d := now.Sub(t)
	if d < time.Second {
		return "now"
	}
	return d.Round(time.Second).String()
}

// View renders the dashboard.
func (m Model) View() string {
	var s strings.Builder

	s.WriteString(titleStyle.Render(m.title))
	s.WriteString("\n\n")
	s.WriteString(m.renderTabs())
	s.WriteString("\n\n")

	switch m.currentView {
	case devicesView:
		s.WriteString(contentStyle.Render(m.table.View()))
	case trafficView:
		s.WriteString(contentStyle.Render(m.renderTraffic()))
	}

	s.WriteString("\n\n")
	status := fmt.Sprintf("events: %d  devices: %d", m.board.Total(), len(m.board.rows))
	if skipped := m.board.Skipped(); skipped > 0 {
		status += fmt.Sprintf("  unrecognised: %d", skipped)
	}
	if m.paused {
		status += "  [paused]"
	}
	s.WriteString(statusStyle.Render(status))

	if m.err != nil {
		s.WriteString("\n")
		s.WriteString(errorStyle.Render("✗ event stream: " + m.err.Error()))
	}

	s.WriteString("\n")
	s.WriteString(helpStyle.Render(m.help.ShortHelpView(m.keys.ShortHelp())))
	return s.String()
}

func (m Model) renderTabs() string {
	tabs := []string{"Devices", "Traffic"}
	rendered := make([]string, len(tabs))
	for i, tab := range tabs {
		if view(i) == m.currentView {
			rendered[i] = activeTabStyle.Render(tab)
		} else {
			rendered[i] = inactiveTabStyle.Render(tab)
		}
	}
	return lipgloss.JoinHorizontal(lipgloss.Top, rendered...)
}

func (m Model) renderTraffic() string {
	lines := m.board.Traffic()
	limit := 20
	if m.height > 12 {
		limit = m.height - 12
	}
	if len(lines) > limit {
		lines = lines[len(lines)-limit:]
	}
	if len(lines) == 0 {
		return "waiting for traffic..."
	}
	return strings.Join(lines, "\n")
}

// Run shows the dashboard until the user quits or ctx is cancelled.
func Run(ctx context.Context, source Source, title string) error {
	p := tea.NewProgram(New(ctx, source, title), tea.WithAltScreen(), tea.WithContext(ctx))
	_, err := p.Run()
	if err != nil && ctx.Err() != nil && errors.Is(err, tea.ErrProgramKilled) {
		return nil
	}
	return err
}
