package supervisor

import (
	"procmux/internal/filter"
	"procmux/internal/logstore"
	"procmux/internal/registry"
)

// PanelItem is one row of the control panel.
type PanelItem struct {
	filter.Item
	Color    string
	Selected bool

	// Process rows.
	State   registry.State
	Blocked bool
	Waiting []string
	PID     int

	// Group and ALL rows count their members.
	Running int
	Total   int
}

// Snapshot is an immutable view of the supervisor state for renderers.
type Snapshot struct {
	Version   uint64
	Panel     []PanelItem
	Selection string
	Searching bool
	Input     string
	Search    string
	// Logs are the visible entries in chronological order.
	Logs        []logstore.Entry
	LogFile     string
	FileLogging bool
	Stopping    bool
}

// Snapshot returns the latest published state. Safe from any goroutine.
func (s *Supervisor) Snapshot() Snapshot {
	if p := s.snap.Load(); p != nil {
		return *p
	}
	return Snapshot{}
}

// Changes delivers a notification after each new snapshot. Notifications
// coalesce; read Snapshot for the current state.
func (s *Supervisor) Changes() <-chan struct{} { return s.changes }

// publish rebuilds the snapshot. Loop goroutine only.
func (s *Supervisor) publish() {
	s.dirty = false
	s.version++

	procs := s.reg.List(registry.ListFilter{})
	byName := make(map[string]registry.Proc, len(procs))
	for _, p := range procs {
		byName[p.Name] = p
	}
	count := func(names []string) (running int) {
		for _, n := range names {
			if byName[n].State == registry.Running {
				running++
			}
		}
		return running
	}

	items := s.filter.Items()
	selected := s.filter.Index()
	panel := make([]PanelItem, 0, len(items))
	for i, it := range items {
		row := PanelItem{Item: it, Selected: i == selected}
		switch it.Kind {
		case filter.Process:
			p := byName[it.Name]
			row.Color = p.Color
			row.State = p.State
			row.Blocked = p.Blocked()
			row.Waiting = p.Waiting
			row.PID = p.PID
			row.Total = 1
			row.Running = count([]string{it.Name})
		case filter.Group:
			members := s.filter.Members(it.Name)
			if g, ok := s.cfg.Group(it.Name); ok {
				row.Color = string(g.Color)
			}
			row.Total = len(members)
			row.Running = count(members)
		default:
			names := s.reg.Names()
			row.Total = len(names)
			row.Running = count(names)
		}
		panel = append(panel, row)
	}

	snap := &Snapshot{
		Version:     s.version,
		Panel:       panel,
		Selection:   s.filter.Current(),
		Searching:   s.filter.Searching(),
		Input:       s.filter.Input(),
		Search:      s.filter.Search(),
		Logs:        s.filter.Apply(s.store.AllSorted()),
		FileLogging: s.sinkAlive.Load(),
		Stopping:    s.stopping.Load(),
	}
	if s.sink != nil {
		snap.LogFile = s.sink.Path()
	}
	s.snap.Store(snap)

	select {
	case s.changes <- struct{}{}:
	default:
	}
}
