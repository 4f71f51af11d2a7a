// Package filter holds the selection and search state that decides which
// log entries are visible.
package filter

import (
	"strings"

	"procmux/internal/config"
	"procmux/internal/logstore"
)

const groupPrefix = "group:"

// Kind is the type of a selectable item.
type Kind int

const (
	All Kind = iota
	Group
	Process
)

// Item is one entry of the navigation list.
type Item struct {
	Kind Kind
	Name string
	// Group is set on processes that belong to a group.
	Group string
}

// Token returns the selection token: "" for all, "group:<name>" for a
// group, the process name otherwise.
func (i Item) Token() string {
	switch i.Kind {
	case Group:
		return groupPrefix + i.Name
	case Process:
		return i.Name
	default:
		return ""
	}
}

// GroupToken builds the selection token of a group.
func GroupToken(name string) string { return groupPrefix + name }

// ParseToken splits a selection token into kind and name.
func ParseToken(token string) (Kind, string) {
	switch {
	case token == "":
		return All, ""
	case strings.HasPrefix(token, groupPrefix):
		return Group, strings.TrimPrefix(token, groupPrefix)
	default:
		return Process, token
	}
}

// Engine is the filter and search state machine.
type Engine struct {
	items   []Item
	members map[string][]string

	current   int
	searching bool
	input     []rune
	search    string
}

// New lays out the navigation list as ALL, each group followed by its
// members, then ungrouped commands.
func New(cfg config.Config) *Engine {
	e := &Engine{
		items:   []Item{{Kind: All}},
		members: make(map[string][]string, len(cfg.Groups)),
	}
	for _, g := range cfg.Groups {
		e.items = append(e.items, Item{Kind: Group, Name: g.Name})
		for _, name := range g.Commands {
			e.items = append(e.items, Item{Kind: Process, Name: name, Group: g.Name})
		}
		e.members[g.Name] = append([]string(nil), g.Commands...)
	}
	for _, name := range cfg.Ungrouped() {
		e.items = append(e.items, Item{Kind: Process, Name: name})
	}
	return e
}

// Items returns the flattened navigation list.
func (e *Engine) Items() []Item {
	return append([]Item(nil), e.items...)
}

// Index returns the position of the current selection in Items.
func (e *Engine) Index() int { return e.current }

// Selection returns the selected item.
func (e *Engine) Selection() Item { return e.items[e.current] }

// Current returns the selection token.
func (e *Engine) Current() string { return e.Selection().Token() }

// Up moves the selection one item up, wrapping to the last item.
func (e *Engine) Up() {
	e.current = (e.current - 1 + len(e.items)) % len(e.items)
}

// Down moves the selection one item down, wrapping to ALL.
func (e *Engine) Down() {
	e.current = (e.current + 1) % len(e.items)
}

// Select jumps to token and reports whether it exists.
func (e *Engine) Select(token string) bool {
	for i, it := range e.items {
		if it.Token() == token {
			e.current = i
			return true
		}
	}
	return false
}

// Members returns the commands of group.
func (e *Engine) Members(group string) []string {
	return append([]string(nil), e.members[group]...)
}

// Searching reports whether search text is being edited.
func (e *Engine) Searching() bool { return e.searching }

// Input returns the uncommitted search text.
func (e *Engine) Input() string { return string(e.input) }

// Search returns the committed search text.
func (e *Engine) Search() string { return e.search }

// BeginSearch enters edit mode, seeded with the committed text.
func (e *Engine) BeginSearch() {
	e.searching = true
	e.input = []rune(e.search)
}

// Type appends r to the edit buffer.
func (e *Engine) Type(r rune) {
	if e.searching {
		e.input = append(e.input, r)
	}
}

// Backspace removes the last rune of the edit buffer.
func (e *Engine) Backspace() {
	if e.searching && len(e.input) > 0 {
		e.input = e.input[:len(e.input)-1]
	}
}

// Commit makes the edit buffer the active search and leaves edit mode.
func (e *Engine) Commit() {
	if !e.searching {
		return
	}
	e.search = strings.TrimSpace(string(e.input))
	e.searching = false
	e.input = nil
}

// Cancel leaves edit mode without changing the active search.
func (e *Engine) Cancel() {
	e.searching = false
	e.input = nil
}

// ClearSearch drops the active search.
func (e *Engine) ClearSearch() {
	e.search = ""
}

// Matches reports whether entry passes both selection and search.
func (e *Engine) Matches(entry logstore.Entry) bool {
	return e.selected(entry.Name) && matchesSearch(entry, strings.ToLower(e.search))
}

// Apply returns the entries visible under the current selection and
// search, preserving order.
func (e *Engine) Apply(entries []logstore.Entry) []logstore.Entry {
	sel := e.Selection()
	if sel.Kind == All && e.search == "" {
		return entries
	}
	needle := strings.ToLower(e.search)
	out := make([]logstore.Entry, 0, len(entries))
	for _, entry := range entries {
		if e.selected(entry.Name) && matchesSearch(entry, needle) {
			out = append(out, entry)
		}
	}
	return out
}

func (e *Engine) selected(name string) bool {
	sel := e.Selection()
	switch sel.Kind {
	case Process:
		return name == sel.Name
	case Group:
		for _, m := range e.members[sel.Name] {
			if m == name {
				return true
			}
		}
		return false
	default:
		return true
	}
}

func matchesSearch(entry logstore.Entry, needle string) bool {
	if needle == "" {
		return true
	}
	return strings.Contains(strings.ToLower(entry.Name), needle) ||
		strings.Contains(strings.ToLower(logstore.StripANSI(entry.Text)), needle)
}
