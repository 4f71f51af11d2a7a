package tui

import (
	"strings"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"procmux/internal/supervisor"
)

// Controller defines the subset of supervisor.Supervisor behaviour the TUI
// needs.
type Controller interface {
	Snapshot() supervisor.Snapshot
	HandleKey(supervisor.Key)
	Changes() <-chan struct{}
	Done() <-chan struct{}
}

const panelWidth = 30

var (
	panelStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("240")).
			Padding(0, 1)
	logStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("240"))
)

// Model represents the Bubble Tea state.
type Model struct {
	ctrl Controller
	snap supervisor.Snapshot

	logs    viewport.Model
	spinner spinner.Model
	help    help.Model
	keys    keyMap

	width  int
	height int

	lastSelection string
	lastSearch    string
	quitting      bool
}

// New constructs a TUI model bound to ctrl.
func New(ctrl Controller) *Model {
	sp := spinner.New(spinner.WithSpinner(spinner.MiniDot))
	vp := viewport.New(0, 0)
	vp.MouseWheelEnabled = true
	return &Model{
		ctrl:    ctrl,
		snap:    ctrl.Snapshot(),
		logs:    vp,
		spinner: sp,
		help:    help.New(),
		keys:    defaultKeyMap(),
	}
}

// Run drives the program until the supervisor finished shutting down.
func Run(ctrl Controller) error {
	m := New(ctrl)
	prog := tea.NewProgram(m, tea.WithAltScreen(), tea.WithMouseCellMotion())
	_, err := prog.Run()
	return err
}

// Init implements tea.Model.
func (m *Model) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, waitForChange(m.ctrl))
}

// Update implements tea.Model.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.layout()
		m.refresh()
		return m, nil

	case changedMsg:
		m.snap = m.ctrl.Snapshot()
		m.refresh()
		return m, waitForChange(m.ctrl)

	case doneMsg:
		m.quitting = true
		return m, tea.Quit

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case tea.MouseMsg:
		var cmd tea.Cmd
		m.logs, cmd = m.logs.Update(msg)
		return m, cmd

	case tea.KeyMsg:
		if !m.snap.Searching && m.scroll(msg.String()) {
			return m, nil
		}
		for _, k := range translate(msg) {
			m.ctrl.HandleKey(k)
		}
	}
	return m, nil
}

// View implements tea.Model.
func (m *Model) View() string {
	if m.quitting {
		return ""
	}
	if m.width == 0 {
		return "Starting…"
	}

	panel := panelStyle.
		Width(panelWidth).
		Height(m.logs.Height).
		Render(RenderPanel(m.snap, panelWidth, m.spinner.View()))
	logs := logStyle.Render(m.logs.View())

	var b strings.Builder
	b.WriteString(lipgloss.JoinHorizontal(lipgloss.Top, panel, logs))
	b.WriteByte('\n')
	if status := RenderStatus(m.snap, m.width); status != "" {
		b.WriteString(status)
		b.WriteByte('\n')
	}
	b.WriteString(m.help.View(m.keys))
	return b.String()
}

func (m *Model) scroll(key string) bool {
	switch key {
	case "pgup":
		m.logs.ViewUp()
	case "pgdown":
		m.logs.ViewDown()
	case "home":
		m.logs.GotoTop()
	case "end":
		m.logs.GotoBottom()
	default:
		return false
	}
	return true
}

func (m *Model) layout() {
	// borders, padding, status and help lines
	h := m.height - 4
	if h < 1 {
		h = 1
	}
	w := m.width - panelWidth - 6
	if w < 10 {
		w = 10
	}
	m.logs.Width = w
	m.logs.Height = h
	m.help.Width = m.width
}

// refresh reloads the log pane. It follows the tail unless the operator
// scrolled up; a new selection or search jumps back to the tail.
func (m *Model) refresh() {
	follow := m.logs.AtBottom() ||
		m.snap.Selection != m.lastSelection ||
		m.snap.Search != m.lastSearch
	m.lastSelection = m.snap.Selection
	m.lastSearch = m.snap.Search

	m.logs.SetContent(RenderLogs(m.snap.Logs, m.logs.Width))
	if follow {
		m.logs.GotoBottom()
	}
}

type changedMsg struct{}

type doneMsg struct{}

func waitForChange(ctrl Controller) tea.Cmd {
	return func() tea.Msg {
		select {
		case <-ctrl.Changes():
			return changedMsg{}
		case <-ctrl.Done():
			return doneMsg{}
		}
	}
}
