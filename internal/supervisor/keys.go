package supervisor

import (
	"procmux/internal/filter"
	"procmux/internal/registry"
)

// KeyKind enumerates the keyboard events the supervisor understands.
type KeyKind int

const (
	KeyRune KeyKind = iota
	KeyUp
	KeyDown
	KeyRestart
	KeyToggle
	KeySearch
	KeyEnter
	KeyEscape
	KeyBackspace
	KeyInterrupt
)

// Key is one keyboard event. Rune is set for KeyRune.
type Key struct {
	Kind KeyKind
	Rune rune
}

// RuneKey builds a KeyRune event.
func RuneKey(r rune) Key { return Key{Kind: KeyRune, Rune: r} }

// HandleKey queues a keyboard event for the loop.
func (s *Supervisor) HandleKey(k Key) {
	if k.Kind == KeyInterrupt {
		s.requestQuit()
		return
	}
	s.post(func() { s.dispatch(k) })
}

// dispatch applies k. While search text is edited every rune, including
// the command letters, goes to the edit buffer.
func (s *Supervisor) dispatch(k Key) {
	if s.filter.Searching() {
		s.dispatchSearch(k)
		s.markDirty()
		return
	}

	if k.Kind == KeyRune {
		switch k.Rune {
		case 'r', 'R':
			k.Kind = KeyRestart
		case 's', 'S':
			k.Kind = KeyToggle
		case 'f', 'F', '/':
			k.Kind = KeySearch
		case 'k':
			k.Kind = KeyUp
		case 'j':
			k.Kind = KeyDown
		case 'q':
			s.requestQuit()
			return
		default:
			return
		}
	}

	switch k.Kind {
	case KeyUp:
		s.filter.Up()
	case KeyDown:
		s.filter.Down()
	case KeyRestart:
		s.actOnSelection(s.mgr.Restart, s.mgr.RestartGroup, s.restartAll)
	case KeyToggle:
		s.actOnSelection(s.mgr.Toggle, s.mgr.ToggleGroup, s.toggleAll)
	case KeySearch:
		if s.filter.Search() != "" {
			s.filter.ClearSearch()
		} else {
			s.filter.BeginSearch()
		}
	case KeyEscape:
		s.filter.ClearSearch()
	default:
		return
	}
	s.markDirty()
}

func (s *Supervisor) dispatchSearch(k Key) {
	switch k.Kind {
	case KeyRune:
		s.filter.Type(k.Rune)
	case KeyBackspace:
		s.filter.Backspace()
	case KeyEnter:
		s.filter.Commit()
	case KeyEscape:
		s.filter.Cancel()
	case KeySearch:
		s.filter.Commit()
	case KeyUp:
		s.filter.Up()
	case KeyDown:
		s.filter.Down()
	}
}

// actOnSelection applies the process, group or everything action that
// matches the current selection.
func (s *Supervisor) actOnSelection(one, group func(string) error, all func() error) {
	sel := s.filter.Selection()
	var err error
	switch sel.Kind {
	case filter.Process:
		err = one(sel.Name)
	case filter.Group:
		err = group(sel.Name)
	default:
		err = all()
	}
	if err != nil {
		s.logger.Warn("action failed", "selection", sel.Token(), "error", err)
	}
}

func (s *Supervisor) restartAll() error {
	for _, name := range s.mgr.Order() {
		if err := s.mgr.Restart(name); err != nil {
			return err
		}
	}
	return nil
}

// toggleAll has group semantics over every command: stop all when all run,
// otherwise start the rest.
func (s *Supervisor) toggleAll() error {
	names := s.mgr.Order()
	allRunning := true
	for _, name := range names {
		if s.reg.State(name) != registry.Running {
			allRunning = false
			break
		}
	}
	for _, name := range names {
		var err error
		switch {
		case allRunning:
			err = s.mgr.Stop(name)
		case s.reg.State(name) != registry.Running:
			err = s.mgr.Start(name)
		}
		if err != nil {
			return err
		}
	}
	return nil
}
