// Package lifecycle starts, stops and restarts supervised commands and gates
// their launch on dependency readiness.
//
// A Manager is not safe for concurrent use. Every method, and every callback
// it schedules through Options.Post, must run on one goroutine.
package lifecycle

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"golang.org/x/sync/errgroup"

	"procmux/internal/config"
	"procmux/internal/logstore"
	"procmux/internal/registry"
)

// ErrUnknown is returned for names that are neither commands nor groups.
var ErrUnknown = errors.New("unknown process")

// Options wires a Manager to its collaborators.
type Options struct {
	Config   config.Config
	Registry *registry.Registry
	Store    *logstore.Store
	Spawner  Spawner
	// Post schedules fn on the goroutine that owns the Manager. Nil runs
	// callbacks inline.
	Post     func(fn func())
	Logger   *log.Logger
	OnChange func()
}

type instance struct {
	name string
	gen  uint64
}

// Manager owns every process instance and the pending set.
type Manager struct {
	cfg      config.Config
	reg      *registry.Registry
	store    *logstore.Store
	spawner  Spawner
	post     func(func())
	logger   *log.Logger
	onChange func()

	specs      map[string]config.CommandSpec
	order      []string
	dependents map[string][]string

	handles    map[instance]Handle
	pending    map[string]struct{}
	restarting map[string]struct{}

	rechecking   bool
	recheckAgain bool
	closed       bool
}

// New registers every command in the registry and computes the startup
// order. No process is launched until StartAll.
func New(opts Options) (*Manager, error) {
	if opts.Registry == nil || opts.Store == nil || opts.Spawner == nil {
		return nil, errors.New("lifecycle: registry, store and spawner are required")
	}
	order, err := config.StartupOrder(opts.Config)
	if err != nil {
		return nil, err
	}

	m := &Manager{
		cfg:        opts.Config,
		reg:        opts.Registry,
		store:      opts.Store,
		spawner:    opts.Spawner,
		post:       opts.Post,
		logger:     opts.Logger,
		onChange:   opts.OnChange,
		specs:      make(map[string]config.CommandSpec, len(opts.Config.Commands)),
		order:      order,
		dependents: make(map[string][]string),
		handles:    make(map[instance]Handle),
		pending:    make(map[string]struct{}),
		restarting: make(map[string]struct{}),
	}
	if m.post == nil {
		m.post = func(fn func()) { fn() }
	}
	if m.logger == nil {
		m.logger = log.Default()
	}

	for _, spec := range opts.Config.Commands {
		m.specs[spec.Name] = spec
		if !m.reg.Has(spec.Name) {
			if err := m.reg.Add(spec.Name, spec.Group, spec.Cmd, string(spec.Color)); err != nil {
				return nil, err
			}
		}
		for _, dep := range spec.DependsOn {
			m.dependents[dep] = append(m.dependents[dep], spec.Name)
		}
	}
	return m, nil
}

// Order returns the dependency-respecting startup order.
func (m *Manager) Order() []string {
	return append([]string(nil), m.order...)
}

// StartAll initiates a start of every command in startup order. Commands
// with unmet dependencies fall into the pending set.
func (m *Manager) StartAll() {
	for _, name := range m.order {
		_ = m.Start(name)
	}
}

// Start launches name unless it is already running. With unmet
// dependencies it is (re)added to the pending set instead.
func (m *Manager) Start(name string) error {
	spec, ok := m.specs[name]
	if !ok {
		return unknown(name)
	}
	if m.closed {
		return nil
	}
	switch m.reg.State(name) {
	case registry.Running, registry.Starting:
		return nil
	}

	if unmet := m.Unmet(name); len(unmet) > 0 {
		m.pending[name] = struct{}{}
		_ = m.reg.Update(name, func(p *registry.Proc) {
			p.State = registry.Pending
			p.Waiting = unmet
		})
		m.note(name, "Waiting for dependencies: "+strings.Join(unmet, ", "))
		return nil
	}
	m.spawn(spec)
	return nil
}

// Stop terminates a running instance or cancels a pending start.
func (m *Manager) Stop(name string) error {
	if _, ok := m.specs[name]; !ok {
		return unknown(name)
	}
	gen, state, _ := m.reg.Current(name)
	switch state {
	case registry.Pending:
		delete(m.pending, name)
		m.setStopped(name)
		m.note(name, "Start cancelled")
	case registry.Running, registry.Starting:
		delete(m.restarting, name)
		if h := m.handles[instance{name, gen}]; h != nil {
			h.Terminate(m.cfg.RestartGrace)
		}
		m.setStopped(name)
		m.note(name, "Stopping process")
	}
	return nil
}

// Toggle stops a running or pending command and starts a stopped one. Each
// call drives exactly one transition.
func (m *Manager) Toggle(name string) error {
	if _, ok := m.specs[name]; !ok {
		return unknown(name)
	}
	if m.reg.State(name) == registry.Stopped {
		return m.Start(name)
	}
	return m.Stop(name)
}

// Restart terminates the current instance, if any, and starts a new one.
// With a positive restart grace the new instance is spawned only after the
// old one has exited; otherwise it is spawned immediately.
func (m *Manager) Restart(name string) error {
	if _, ok := m.specs[name]; !ok {
		return unknown(name)
	}
	if m.closed {
		return nil
	}
	gen, state, _ := m.reg.Current(name)
	h := m.handles[instance{name, gen}]
	if h == nil {
		if state == registry.Pending {
			delete(m.pending, name)
			m.setStopped(name)
		}
		return m.Start(name)
	}

	m.note(name, "Restarting")
	if state != registry.Stopped {
		h.Terminate(m.cfg.RestartGrace)
	}
	if m.cfg.RestartGrace <= 0 {
		m.setStopped(name)
		return m.Start(name)
	}
	m.restarting[name] = struct{}{}
	delete(m.pending, name)
	_ = m.reg.Update(name, func(p *registry.Proc) {
		p.State = registry.Starting
		p.Waiting = nil
	})
	m.changed()
	return nil
}

// ToggleGroup starts every non-running member unless all members are
// running, in which case it stops them all.
func (m *Manager) ToggleGroup(group string) error {
	members, err := m.members(group)
	if err != nil {
		return err
	}
	allRunning := true
	for _, name := range members {
		if m.reg.State(name) != registry.Running {
			allRunning = false
			break
		}
	}
	for _, name := range members {
		if allRunning {
			_ = m.Stop(name)
			continue
		}
		if m.reg.State(name) != registry.Running {
			_ = m.Start(name)
		}
	}
	return nil
}

// RestartGroup restarts every member of group.
func (m *Manager) RestartGroup(group string) error {
	members, err := m.members(group)
	if err != nil {
		return err
	}
	for _, name := range members {
		_ = m.Restart(name)
	}
	return nil
}

// Pending returns the names waiting on dependencies, in startup order.
func (m *Manager) Pending() []string {
	var out []string
	for _, name := range m.order {
		if _, ok := m.pending[name]; ok {
			out = append(out, name)
		}
	}
	return out
}

// Live reports how many OS instances have not exited yet.
func (m *Manager) Live() int { return len(m.handles) }

// Shutdown terminates every live instance and waits for them to exit or
// for ctx to end. It blocks the calling goroutine, so callers that receive
// exit and output callbacks through Post should use Terminate instead.
func (m *Manager) Shutdown(ctx context.Context) error {
	return m.Terminate()(ctx)
}

// Terminate refuses further starts and signals every live instance.
// Instances that ignore SIGTERM are killed after the restart grace (or the
// default grace when none is configured). The returned wait function blocks
// until they exited or ctx ends; it is safe to call from any goroutine.
func (m *Manager) Terminate() func(ctx context.Context) error {
	m.closed = true
	for name := range m.pending {
		m.setStopped(name)
	}
	clear(m.pending)
	clear(m.restarting)

	grace := m.cfg.RestartGrace
	if grace <= 0 {
		grace = config.DefaultRestartGrace
	}

	type live struct {
		name string
		h    Handle
	}
	var alive []live
	for inst, h := range m.handles {
		m.setStopped(inst.name)
		alive = append(alive, live{inst.name, h})
	}
	for _, l := range alive {
		l.h.Terminate(grace)
	}

	return func(ctx context.Context) error {
		g, ctx := errgroup.WithContext(ctx)
		for _, l := range alive {
			g.Go(func() error {
				select {
				case <-l.h.Done():
					return nil
				case <-ctx.Done():
					return fmt.Errorf("%s (pid %d) did not exit: %w", l.name, l.h.PID(), ctx.Err())
				}
			})
		}
		return g.Wait()
	}
}

func (m *Manager) spawn(spec config.CommandSpec) {
	name := spec.Name
	delete(m.pending, name)

	gen, err := m.reg.Begin(name)
	if err != nil {
		m.logger.Error("begin start", "name", name, "error", err)
		return
	}
	// Dependents must see a fresh ready signal from this instance.
	m.reg.ClearReadyFor(name)

	h, err := m.spawner.Spawn(spec, Callbacks{
		Output: func(text string) {
			m.post(func() { m.handleOutput(name, gen, text) })
		},
		Exit: func(ex Exit) {
			m.post(func() { m.handleExit(name, gen, ex) })
		},
	})
	if err != nil {
		_ = m.reg.Update(name, func(p *registry.Proc) {
			p.State = registry.Stopped
			p.Exited = true
			p.ExitCode = -1
			p.StoppedAt = time.Now().UTC()
		})
		m.logger.Warn("spawn failed", "name", name, "error", err)
		m.note(name, "Failed to start: "+err.Error())
		m.recheck()
		return
	}

	m.handles[instance{name, gen}] = h
	_ = m.reg.MarkRunning(name, gen, h.PID())
	m.logger.Debug("started", "name", name, "pid", h.PID())
	m.note(name, fmt.Sprintf("Started (pid %d)", h.PID()))
	m.recheck()
}

func (m *Manager) handleExit(name string, gen uint64, ex Exit) {
	delete(m.handles, instance{name, gen})
	current, err := m.reg.MarkExited(name, gen, ex.Code)
	if err != nil || !current {
		m.changed()
		return
	}
	m.logger.Debug("exited", "name", name, "code", ex.Code, "signal", ex.Signal)
	m.note(name, ex.String())
	m.reg.ClearReadyFor(name)

	if _, ok := m.restarting[name]; ok {
		delete(m.restarting, name)
		_ = m.Start(name)
	}
	m.recheck()
}

func (m *Manager) setStopped(name string) {
	_ = m.reg.Update(name, func(p *registry.Proc) {
		p.State = registry.Stopped
		p.Waiting = nil
		p.StoppedAt = time.Now().UTC()
	})
}

func (m *Manager) members(group string) ([]string, error) {
	g, ok := m.cfg.Group(group)
	if !ok {
		return nil, fmt.Errorf("%w: group %s", ErrUnknown, group)
	}
	return g.Commands, nil
}

// note appends a supervisor message to name's log.
func (m *Manager) note(name, text string) {
	m.store.Append(name, text, string(m.specs[name].Color))
	m.changed()
}

func (m *Manager) changed() {
	if m.onChange != nil {
		m.onChange()
	}
}

func unknown(name string) error {
	return fmt.Errorf("%w: %s", ErrUnknown, name)
}
