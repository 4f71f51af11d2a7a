package lifecycle

import (
	"slices"

	"procmux/internal/logstore"
	"procmux/internal/registry"
)

// Satisfied reports whether dependent may consider dep usable: dep must be
// running and, when dependent declares a ready pattern for it, dependent
// must have seen a matching line since dep last started.
func (m *Manager) Satisfied(dependent, dep string) bool {
	if m.reg.State(dep) != registry.Running {
		return false
	}
	if _, ok := m.specs[dependent].ReadyPattern(dep); !ok {
		return true
	}
	return m.reg.IsReady(dependent, dep)
}

// Unmet lists the dependencies of name that are not satisfied.
func (m *Manager) Unmet(name string) []string {
	var out []string
	for _, dep := range m.specs[name].DependsOn {
		if !m.Satisfied(name, dep) {
			out = append(out, dep)
		}
	}
	return out
}

// handleOutput stores output of instance gen and feeds it to the ready
// patterns of dependents. Lines of superseded instances are stored but
// never count as ready signals.
func (m *Manager) handleOutput(name string, gen uint64, text string) {
	entries := m.store.Append(name, text, string(m.specs[name].Color))
	if len(entries) == 0 {
		return
	}
	cur, state, _ := m.reg.Current(name)
	if cur != gen || state != registry.Running {
		m.changed()
		return
	}

	matched := false
	for _, dependent := range m.dependents[name] {
		re, ok := m.specs[dependent].ReadyPattern(name)
		if !ok || m.reg.IsReady(dependent, name) {
			continue
		}
		for _, e := range entries {
			if re.MatchString(logstore.StripANSI(e.Text)) {
				_ = m.reg.SetReady(dependent, name, true)
				matched = true
				break
			}
		}
	}
	if matched {
		m.recheck()
	}
	m.changed()
}

// recheck launches every pending command whose dependencies are all
// satisfied and refreshes the waiting list of the rest. It repeats until a
// pass makes no launch, so chains unblock in one call. Re-entrant calls
// made by spawn only request another pass.
func (m *Manager) recheck() {
	if m.rechecking {
		m.recheckAgain = true
		return
	}
	m.rechecking = true
	defer func() { m.rechecking = false }()

	for {
		m.recheckAgain = false
		for _, name := range m.order {
			if _, ok := m.pending[name]; !ok {
				continue
			}
			unmet := m.Unmet(name)
			if len(unmet) == 0 {
				m.spawn(m.specs[name])
				continue
			}
			_ = m.reg.Update(name, func(p *registry.Proc) {
				if !slices.Equal(p.Waiting, unmet) {
					p.Waiting = unmet
				}
			})
		}
		if !m.recheckAgain {
			return
		}
	}
}
