package registry

import (
	"slices"
	"time"
)

// State is the lifecycle state of a supervised process.
type State int

const (
	Stopped State = iota
	Pending
	Starting
	Running
)

func (s State) String() string {
	switch s {
	case Pending:
		return "pending"
	case Starting:
		return "starting"
	case Running:
		return "running"
	default:
		return "stopped"
	}
}

// Proc is the runtime record of one command. It persists for the whole run
// so state and history stay queryable after the process exits.
type Proc struct {
	Name  string
	Group string
	Cmd   string
	Color string

	State State
	PID   int
	// Gen identifies the current OS instance. Notifications carrying an
	// older generation are stale.
	Gen      uint64
	Restarts int

	ExitCode  int
	Exited    bool
	StartedAt time.Time
	StoppedAt time.Time

	// Waiting lists unmet dependencies while Pending.
	Waiting []string
	// Ready holds the seen-ready flag per dependency name.
	Ready map[string]bool
}

// Blocked reports whether a pending process still has unmet dependencies.
func (p Proc) Blocked() bool {
	return p.State == Pending && len(p.Waiting) > 0
}

func (p Proc) clone() Proc {
	cp := p
	cp.Waiting = slices.Clone(p.Waiting)
	if p.Ready != nil {
		cp.Ready = make(map[string]bool, len(p.Ready))
		for k, v := range p.Ready {
			cp.Ready[k] = v
		}
	}
	return cp
}

// ListFilter narrows a registry query. Empty fields match everything.
type ListFilter struct {
	Names      []string
	Groups     []string
	States     []State
	TextSearch string // substring over Name and Cmd
}
