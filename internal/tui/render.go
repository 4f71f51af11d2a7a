package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/reflow/truncate"

	"procmux/internal/filter"
	"procmux/internal/logstore"
	"procmux/internal/registry"
	"procmux/internal/supervisor"
)

var (
	selectedStyle = lipgloss.NewStyle().Bold(true).Reverse(true)
	dimStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("244"))
	runningStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("42"))
	stoppedStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("203"))
	pendingStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("214"))
	titleStyle    = lipgloss.NewStyle().Bold(true)
)

// RenderPanel draws the control panel rows, one per navigation item.
// spin is the current spinner frame used for pending processes.
func RenderPanel(snap supervisor.Snapshot, width int, spin string) string {
	lines := make([]string, 0, len(snap.Panel))
	for _, it := range snap.Panel {
		line := panelLine(it, spin)
		if it.Selected {
			line = "▸ " + line
		} else {
			line = "  " + line
		}
		line = clip(line, width)
		if it.Selected {
			line = selectedStyle.Render(line)
		}
		lines = append(lines, line)
	}
	return strings.Join(lines, "\n")
}

func panelLine(it supervisor.PanelItem, spin string) string {
	switch it.Kind {
	case filter.All:
		return titleStyle.Render("ALL") + dimStyle.Render(fmt.Sprintf(" %d/%d", it.Running, it.Total))
	case filter.Group:
		return colored(it.Color).Bold(true).Render(it.Name) + dimStyle.Render(fmt.Sprintf(" %d/%d", it.Running, it.Total))
	}

	indent := ""
	if it.Group != "" {
		indent = "  "
	}
	line := indent + stateGlyph(it, spin) + " " + colored(it.Color).Render(it.Name)
	if it.Blocked {
		line += dimStyle.Render(" waits " + strings.Join(it.Waiting, ","))
	}
	return line
}

func stateGlyph(it supervisor.PanelItem, spin string) string {
	switch it.State {
	case registry.Running:
		return runningStyle.Render("●")
	case registry.Pending:
		if spin == "" {
			spin = "…"
		}
		return pendingStyle.Render(spin)
	case registry.Starting:
		return pendingStyle.Render("◌")
	default:
		return stoppedStyle.Render("○")
	}
}

// RenderLogs renders entries as "NAME | text" lines clipped to width. The
// name column is as wide as the longest name shown.
func RenderLogs(entries []logstore.Entry, width int) string {
	nameWidth := 0
	for _, e := range entries {
		if n := len(e.Name); n > nameWidth {
			nameWidth = n
		}
	}
	var b strings.Builder
	for i, e := range entries {
		if i > 0 {
			b.WriteByte('\n')
		}
		name := colored(e.Color).Render(fmt.Sprintf("%-*s", nameWidth, e.Name))
		b.WriteString(clip(name+dimStyle.Render(" │ ")+e.Text+"\x1b[0m", width))
	}
	return b.String()
}

// RenderStatus draws the bottom line: search state and file logging.
func RenderStatus(snap supervisor.Snapshot, width int) string {
	var parts []string
	switch {
	case snap.Stopping:
		parts = append(parts, stoppedStyle.Render("Stopping processes…"))
	case snap.Searching:
		parts = append(parts, pendingStyle.Render("search: ")+snap.Input+"▏")
	case snap.Search != "":
		parts = append(parts, pendingStyle.Render("filter: ")+snap.Search+dimStyle.Render(" (f clears)"))
	}
	if snap.LogFile != "" {
		if snap.FileLogging {
			parts = append(parts, dimStyle.Render("log: "+snap.LogFile))
		} else {
			parts = append(parts, stoppedStyle.Render("file logging disabled"))
		}
	}
	return clip(strings.Join(parts, dimStyle.Render(" • ")), width)
}

func colored(c string) lipgloss.Style {
	if c == "" {
		return lipgloss.NewStyle()
	}
	return lipgloss.NewStyle().Foreground(lipgloss.Color(c))
}

func clip(s string, width int) string {
	if width <= 0 {
		return s
	}
	return truncate.StringWithTail(s, uint(width), "…")
}
