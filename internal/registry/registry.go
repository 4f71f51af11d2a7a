package registry

import (
	"errors"
	"fmt"
	"slices"
	"strings"
	"sync"
)

// ErrNotFound is returned for names the registry does not track.
var ErrNotFound = errors.New("process not found")

// Registry is a threadsafe table of process runtime records keyed by name.
// Insertion order is kept; a group index serves group-wide operations.
type Registry struct {
	mu      sync.RWMutex
	order   []string
	byName  map[string]*Proc
	byGroup map[string][]string
}

// New returns an empty registry.
func New() *Registry {
	return &Registry{
		byName:  make(map[string]*Proc),
		byGroup: make(map[string][]string),
	}
}

// Add registers a stopped process. Adding an existing name is an error.
func (r *Registry) Add(name, group, cmd, color string) error {
	if strings.TrimSpace(name) == "" {
		return errors.New("name must not be empty")
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.byName[name]; ok {
		return fmt.Errorf("process %s already registered", name)
	}
	r.byName[name] = &Proc{
		Name:  name,
		Group: group,
		Cmd:   cmd,
		Color: color,
		State: Stopped,
		Ready: make(map[string]bool),
	}
	r.order = append(r.order, name)
	if group != "" {
		r.byGroup[group] = append(r.byGroup[group], name)
	}
	return nil
}

// Get returns a copy of the named record.
func (r *Registry) Get(name string) (Proc, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p := r.byName[name]
	if p == nil {
		return Proc{}, false
	}
	return p.clone(), true
}

// Has reports whether name is tracked.
func (r *Registry) Has(name string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.byName[name]
	return ok
}

// State returns the state of name, Stopped when unknown.
func (r *Registry) State(name string) State {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if p := r.byName[name]; p != nil {
		return p.State
	}
	return Stopped
}

// Update applies fn to the named record under the write lock.
func (r *Registry) Update(name string, fn func(*Proc)) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	p := r.byName[name]
	if p == nil {
		return errNotFound(name)
	}
	fn(p)
	return nil
}

// Members returns the names in group, in registration order.
func (r *Registry) Members(group string) []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return slices.Clone(r.byGroup[group])
}

// Names returns every tracked name in registration order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return slices.Clone(r.order)
}

// SetReady records whether dependent has seen dep become ready.
func (r *Registry) SetReady(dependent, dep string, ready bool) error {
	return r.Update(dependent, func(p *Proc) {
		if ready {
			p.Ready[dep] = true
			return
		}
		delete(p.Ready, dep)
	})
}

// IsReady reports the seen-ready flag dependent holds for dep.
func (r *Registry) IsReady(dependent, dep string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p := r.byName[dependent]
	return p != nil && p.Ready[dep]
}

// ClearReadyFor drops every flag other processes hold about dep and returns
// how many were cleared.
func (r *Registry) ClearReadyFor(dep string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	count := 0
	for _, p := range r.byName {
		if p.Ready[dep] {
			delete(p.Ready, dep)
			count++
		}
	}
	return count
}

// List returns matching records in registration order.
func (r *Registry) List(f ListFilter) []Proc {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := slices.Clone(r.order)
	if len(f.Names) > 0 {
		set := toSet(f.Names)
		names = filterNames(names, set.has)
	}
	if len(f.Groups) > 0 {
		set := toSet(f.Groups)
		names = filterNames(names, func(n string) bool {
			return set.has(r.byName[n].Group)
		})
	}
	if len(f.States) > 0 {
		names = filterNames(names, func(n string) bool {
			return slices.Contains(f.States, r.byName[n].State)
		})
	}
	if s := strings.ToLower(strings.TrimSpace(f.TextSearch)); s != "" {
		names = filterNames(names, func(n string) bool {
			p := r.byName[n]
			return strings.Contains(strings.ToLower(p.Name), s) ||
				strings.Contains(strings.ToLower(p.Cmd), s)
		})
	}

	out := make([]Proc, 0, len(names))
	for _, n := range names {
		out = append(out, r.byName[n].clone())
	}
	return out
}

// Begin opens a new instance of name in state Starting and returns its
// generation.
func (r *Registry) Begin(name string) (uint64, error) {
	var gen uint64
	err := r.Update(name, func(p *Proc) {
		if !p.StartedAt.IsZero() {
			p.Restarts++
		}
		p.Gen++
		gen = p.Gen
		p.State = Starting
		p.Waiting = nil
	})
	return gen, err
}

// Current returns the generation and state of name.
func (r *Registry) Current(name string) (uint64, State, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p := r.byName[name]
	if p == nil {
		return 0, Stopped, false
	}
	return p.Gen, p.State, true
}

// MarkRunning records that instance gen is up with the given pid.
func (r *Registry) MarkRunning(name string, gen uint64, pid int) error {
	return r.Update(name, func(p *Proc) {
		if p.Gen != gen {
			return
		}
		p.State = Running
		p.PID = pid
		p.Exited = false
		p.ExitCode = 0
		p.StartedAt = now()
	})
}

// MarkExited records that instance gen ended. It reports false when gen is
// not the current instance.
func (r *Registry) MarkExited(name string, gen uint64, code int) (bool, error) {
	current := false
	err := r.Update(name, func(p *Proc) {
		if p.Gen != gen {
			return
		}
		current = true
		if p.State == Running || p.State == Starting {
			p.State = Stopped
		}
		p.PID = 0
		p.Exited = true
		p.ExitCode = code
		p.StoppedAt = now()
	})
	return current, err
}

func filterNames(names []string, keep func(string) bool) []string {
	dst := names[:0]
	for _, n := range names {
		if keep(n) {
			dst = append(dst, n)
		}
	}
	return dst
}

func errNotFound(name string) error {
	return fmt.Errorf("%w: %s", ErrNotFound, name)
}
