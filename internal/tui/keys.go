package tui

import (
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"

	"procmux/internal/supervisor"
)

type keyMap struct {
	Up      key.Binding
	Down    key.Binding
	Restart key.Binding
	Toggle  key.Binding
	Search  key.Binding
	Scroll  key.Binding
	Quit    key.Binding
}

func defaultKeyMap() keyMap {
	return keyMap{
		Up:      key.NewBinding(key.WithKeys("up", "k"), key.WithHelp("↑/k", "up")),
		Down:    key.NewBinding(key.WithKeys("down", "j"), key.WithHelp("↓/j", "down")),
		Restart: key.NewBinding(key.WithKeys("r"), key.WithHelp("r", "restart")),
		Toggle:  key.NewBinding(key.WithKeys("s"), key.WithHelp("s", "start/stop")),
		Search:  key.NewBinding(key.WithKeys("f", "/"), key.WithHelp("f", "search")),
		Scroll:  key.NewBinding(key.WithKeys("pgup", "pgdown", "home", "end"), key.WithHelp("pgup/pgdn", "scroll")),
		Quit:    key.NewBinding(key.WithKeys("ctrl+c", "q"), key.WithHelp("ctrl+c", "quit")),
	}
}

func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Up, k.Down, k.Restart, k.Toggle, k.Search, k.Scroll, k.Quit}
}

func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{k.ShortHelp()}
}

// translate maps a terminal key to supervisor keys. Scroll keys are handled
// by the log viewport and produce none.
func translate(msg tea.KeyMsg) []supervisor.Key {
	switch msg.Type {
	case tea.KeyCtrlC:
		return []supervisor.Key{{Kind: supervisor.KeyInterrupt}}
	case tea.KeyUp:
		return []supervisor.Key{{Kind: supervisor.KeyUp}}
	case tea.KeyDown:
		return []supervisor.Key{{Kind: supervisor.KeyDown}}
	case tea.KeyEnter:
		return []supervisor.Key{{Kind: supervisor.KeyEnter}}
	case tea.KeyEsc:
		return []supervisor.Key{{Kind: supervisor.KeyEscape}}
	case tea.KeyBackspace:
		return []supervisor.Key{{Kind: supervisor.KeyBackspace}}
	case tea.KeySpace:
		return []supervisor.Key{supervisor.RuneKey(' ')}
	case tea.KeyRunes:
		keys := make([]supervisor.Key, 0, len(msg.Runes))
		for _, r := range msg.Runes {
			keys = append(keys, supervisor.RuneKey(r))
		}
		return keys
	}
	return nil
}
