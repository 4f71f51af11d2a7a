package lifecycle

import (
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"procmux/internal/config"
	"procmux/internal/logstore"
	"procmux/internal/registry"
)

type fakeHandle struct {
	pid        int
	cb         Callbacks
	terminated []time.Duration
	done       chan struct{}
	exited     bool
}

func (h *fakeHandle) PID() int              { return h.pid }
func (h *fakeHandle) Done() <-chan struct{} { return h.done }
func (h *fakeHandle) Terminate(grace time.Duration) {
	h.terminated = append(h.terminated, grace)
}

func (h *fakeHandle) emit(text string) { h.cb.Output(text) }

func (h *fakeHandle) exit(ex Exit) {
	if h.exited {
		return
	}
	h.exited = true
	close(h.done)
	h.cb.Exit(ex)
}

type fakeSpawner struct {
	nextPID int
	spawned []string
	handles map[string][]*fakeHandle
	fail    map[string]error
}

func newFakeSpawner() *fakeSpawner {
	return &fakeSpawner{
		nextPID: 100,
		handles: make(map[string][]*fakeHandle),
		fail:    make(map[string]error),
	}
}

func (s *fakeSpawner) Spawn(spec config.CommandSpec, cb Callbacks) (Handle, error) {
	if err := s.fail[spec.Name]; err != nil {
		return nil, err
	}
	s.nextPID++
	h := &fakeHandle{pid: s.nextPID, cb: cb, done: make(chan struct{})}
	s.spawned = append(s.spawned, spec.Name)
	s.handles[spec.Name] = append(s.handles[spec.Name], h)
	return h, nil
}

// last returns the newest instance of name.
func (s *fakeSpawner) last(t *testing.T, name string) *fakeHandle {
	t.Helper()
	hs := s.handles[name]
	require.NotEmpty(t, hs, "no instance of %s", name)
	return hs[len(hs)-1]
}

type harness struct {
	mgr     *Manager
	reg     *registry.Registry
	store   *logstore.Store
	spawner *fakeSpawner
}

func cmd(name string, deps ...string) config.CommandSpec {
	return config.CommandSpec{Name: name, Cmd: "run " + name, DependsOn: deps}
}

func withPattern(c config.CommandSpec, dep, pattern string) config.CommandSpec {
	if c.ReadyPatterns == nil {
		c.ReadyPatterns = make(map[string]*regexp.Regexp)
	}
	c.ReadyPatterns[dep] = regexp.MustCompile("(?i)" + pattern)
	return c
}

func newHarness(t *testing.T, grace time.Duration, cmds []config.CommandSpec, groups ...config.GroupSpec) *harness {
	t.Helper()
	cfg := config.Config{Commands: cmds, Groups: groups, BufferSize: 100, RestartGrace: grace}
	h := &harness{
		reg:     registry.New(),
		store:   logstore.New(logstore.Options{BufferSize: 100}),
		spawner: newFakeSpawner(),
	}
	mgr, err := New(Options{Config: cfg, Registry: h.reg, Store: h.store, Spawner: h.spawner})
	require.NoError(t, err)
	h.mgr = mgr
	return h
}

func (h *harness) state(name string) registry.State { return h.reg.State(name) }

func (h *harness) logs(name string) []string {
	var out []string
	for _, e := range h.store.Entries(name) {
		out = append(out, e.Text)
	}
	return out
}

var errSpawn = errors.New("exec: not found")
