// Package supervisor wires the log store, the lifecycle manager and the
// filter engine behind a single event loop.
package supervisor

import (
	"context"
	"errors"
	"fmt"
	"io"
	"runtime/debug"
	"sync"
	"sync/atomic"
	"time"

	"github.com/charmbracelet/log"
	"vawter.tech/stopper"

	"procmux/internal/config"
	"procmux/internal/control"
	"procmux/internal/filter"
	"procmux/internal/lifecycle"
	"procmux/internal/logstore"
	"procmux/internal/registry"
)

// SystemName is the log stream of supervisor messages. Command names are
// upper case, so it cannot collide with one.
const SystemName = "procmux"

const eventQueueSize = 1024

// ErrStopped is returned by actions issued after shutdown began.
var ErrStopped = errors.New("supervisor stopped")

// Options configures a Supervisor.
type Options struct {
	Config  config.Config
	Spawner lifecycle.Spawner
	Logger  *log.Logger
	// Console receives every entry as it is stored ("NAME | text"). Used in
	// headless mode.
	Console io.Writer
	// Control enables the control socket at Config.ControlSocket.
	Control bool
	// Watch reports config file changes.
	Watch bool
	Now   func() time.Time
}

// Supervisor owns every core component. All mutation happens on the loop
// goroutine started by Run.
type Supervisor struct {
	cfg    config.Config
	logger *log.Logger
	opts   Options

	store  *logstore.Store
	sink   *logstore.FileSink
	reg    *registry.Registry
	mgr    *lifecycle.Manager
	filter *filter.Engine

	events   chan func()
	loopDone chan struct{}
	changes  chan struct{}
	snap     atomic.Pointer[Snapshot]
	dirty    bool
	version  uint64

	quit      chan struct{}
	quitOnce  sync.Once
	fault     atomic.Value
	done      chan struct{}
	running   atomic.Bool
	stopping  atomic.Bool
	shutOnce  sync.Once
	shutErr   error
	sinkAlive atomic.Bool
}

// New builds the supervisor. Nothing is spawned until Run.
func New(opts Options) (*Supervisor, error) {
	if len(opts.Config.Commands) == 0 {
		return nil, &config.Error{Msg: "no commands configured"}
	}
	logger := opts.Logger
	if logger == nil {
		logger = log.Default()
	}
	spawner := opts.Spawner
	if spawner == nil {
		spawner = lifecycle.ExecSpawner{}
	}

	s := &Supervisor{
		cfg:      opts.Config,
		logger:   logger,
		opts:     opts,
		reg:      registry.New(),
		filter:   filter.New(opts.Config),
		events:   make(chan func(), eventQueueSize),
		loopDone: make(chan struct{}),
		changes:  make(chan struct{}, 1),
		quit:     make(chan struct{}),
		done:     make(chan struct{}),
	}

	if opts.Config.LogFile != "" {
		s.sink = logstore.NewFileSink(opts.Config.LogFile, logstore.WithOnDisable(s.onSinkFailure))
		s.sinkAlive.Store(true)
	}
	storeOpts := logstore.Options{
		BufferSize: opts.Config.BufferSize,
		Now:        opts.Now,
	}
	if s.sink != nil {
		storeOpts.Sink = s.sink
	}
	if opts.Console != nil {
		storeOpts.OnAppend = newConsolePrinter(opts.Console).print
	}
	s.store = logstore.New(storeOpts)

	mgr, err := lifecycle.New(lifecycle.Options{
		Config:   opts.Config,
		Registry: s.reg,
		Store:    s.store,
		Spawner:  spawner,
		Post:     s.post,
		Logger:   logger,
		OnChange: s.markDirty,
	})
	if err != nil {
		return nil, err
	}
	s.mgr = mgr
	s.publish()
	return s, nil
}

// Run starts every command and processes events until ctx ends, an
// Interrupt key arrives, Shutdown is called or the loop faults. It always
// runs the shutdown path before returning.
func (s *Supervisor) Run(ctx context.Context) error {
	if !s.running.CompareAndSwap(false, true) {
		return errors.New("supervisor already running")
	}
	sctx := stopper.WithContext(context.Background())

	if s.sink != nil {
		s.sink.Start()
		s.logger.Info("file logging enabled", "path", s.sink.Path())
	}
	sctx.Go(func(sctx *stopper.Context) error {
		s.loop(sctx)
		return nil
	})
	if s.opts.Control {
		s.startControl(sctx)
	}
	if s.opts.Watch && s.cfg.Path != "" {
		s.startWatcher(sctx)
	}

	s.post(s.mgr.StartAll)

	select {
	case <-ctx.Done():
	case <-s.quit:
	}
	return s.shutdown(sctx)
}

// Shutdown requests the shared cleanup path and waits for it when Run is
// active. It is safe to call more than once.
func (s *Supervisor) Shutdown() error {
	s.requestQuit()
	if !s.running.Load() {
		return nil
	}
	<-s.done
	return s.shutErr
}

// Done is closed once shutdown completed.
func (s *Supervisor) Done() <-chan struct{} { return s.done }

// Stopping reports whether shutdown has begun.
func (s *Supervisor) Stopping() bool { return s.stopping.Load() }

// Processes returns the runtime table. It is safe from any goroutine.
func (s *Supervisor) Processes() []registry.Proc {
	return s.reg.List(registry.ListFilter{})
}

// Restart restarts a process or, given "group:<name>" or a group name, a
// whole group. It blocks until the loop has applied it.
func (s *Supervisor) Restart(name string) error {
	return s.call(func() error { return s.apply(name, s.mgr.Restart, s.mgr.RestartGroup) })
}

// Toggle starts or stops a process or group; see Restart for names.
func (s *Supervisor) Toggle(name string) error {
	return s.call(func() error { return s.apply(name, s.mgr.Toggle, s.mgr.ToggleGroup) })
}

func (s *Supervisor) apply(name string, one, group func(string) error) error {
	kind, raw := filter.ParseToken(name)
	if kind == filter.All {
		return fmt.Errorf("%w: empty name", lifecycle.ErrUnknown)
	}
	norm, err := config.NormalizeName(raw)
	if err != nil {
		return &config.Error{Field: "name", Msg: err.Error()}
	}
	if kind == filter.Group {
		return group(norm)
	}
	if s.reg.Has(norm) {
		return one(norm)
	}
	if _, ok := s.cfg.Group(norm); ok {
		return group(norm)
	}
	return fmt.Errorf("%w: %s", lifecycle.ErrUnknown, norm)
}

// post schedules fn on the loop. After the loop ended fn is dropped.
func (s *Supervisor) post(fn func()) {
	select {
	case <-s.loopDone:
	case s.events <- fn:
	}
}

// call runs fn on the loop and waits for its result.
func (s *Supervisor) call(fn func() error) error {
	if s.stopping.Load() {
		return ErrStopped
	}
	res := make(chan error, 1)
	s.post(func() { res <- fn() })
	select {
	case err := <-res:
		return err
	case <-s.loopDone:
		return ErrStopped
	}
}

func (s *Supervisor) loop(sctx *stopper.Context) {
	defer close(s.loopDone)
	for {
		select {
		case <-sctx.Stopping():
			return
		case fn := <-s.events:
			s.exec(fn)
			if s.dirty && len(s.events) == 0 {
				s.publish()
			}
		}
	}
}

// exec runs one event. A panic is logged and turned into a shutdown.
func (s *Supervisor) exec(fn func()) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("supervisor fault", "panic", r, "stack", string(debug.Stack()))
			s.fault.Store(fmt.Errorf("supervisor fault: %v", r))
			s.requestQuit()
		}
	}()
	fn()
}

func (s *Supervisor) requestQuit() {
	s.quitOnce.Do(func() { close(s.quit) })
}

func (s *Supervisor) markDirty() { s.dirty = true }

// notice appends a supervisor message to the system stream.
func (s *Supervisor) notice(text string) {
	s.store.Append(SystemName, text, "")
	s.markDirty()
}

func (s *Supervisor) onSinkFailure(err error) {
	s.sinkAlive.Store(false)
	s.logger.Warn("file logging disabled", "path", s.sink.Path(), "error", err)
	s.post(func() { s.notice("File logging disabled: " + err.Error()) })
}

func (s *Supervisor) startControl(sctx *stopper.Context) {
	path := control.SocketPath(s.cfg.ControlSocket)
	srv, err := control.Listen(path, s)
	if err != nil {
		s.logger.Warn("control socket unavailable", "path", path, "error", err)
		s.post(func() { s.notice("Control socket unavailable: " + err.Error()) })
		return
	}
	s.logger.Info("control socket listening", "path", srv.Path())
	sctx.Go(srv.Serve)
}

func (s *Supervisor) startWatcher(sctx *stopper.Context) {
	w, err := config.NewWatcher(s.cfg.Path)
	if err != nil {
		s.logger.Warn("config watcher unavailable", "path", s.cfg.Path, "error", err)
		return
	}
	sctx.Go(func(sctx *stopper.Context) error {
		return w.Run(sctx, func() {
			s.post(func() {
				s.notice("Config file " + s.cfg.Path + " changed; restart procmux to apply it")
			})
		})
	})
}

// settle waits until the loop has handled the exit of every instance, so
// the final messages are stored before the loop stops.
func (s *Supervisor) settle(limit time.Duration) {
	timeout := time.After(limit)
	for {
		live := make(chan int, 1)
		s.post(func() {
			s.publish()
			live <- s.mgr.Live()
		})
		select {
		case n := <-live:
			if n == 0 {
				return
			}
		case <-s.loopDone:
			return
		case <-timeout:
			return
		}
		select {
		case <-time.After(10 * time.Millisecond):
		case <-timeout:
			return
		}
	}
}

// shutdown is the single cleanup path: stop accepting work, terminate every
// process, stop background goroutines and do a final flush.
func (s *Supervisor) shutdown(sctx *stopper.Context) error {
	s.shutOnce.Do(func() {
		s.stopping.Store(true)
		s.requestQuit()

		grace := s.cfg.RestartGrace
		if grace <= 0 {
			grace = config.DefaultRestartGrace
		}
		waitc := make(chan func(context.Context) error, 1)
		s.post(func() {
			s.notice("Stopping all processes")
			waitc <- s.mgr.Terminate()
			s.publish()
		})

		// The loop keeps draining output and exit events while the
		// processes wind down.
		var errs []error
		select {
		case wait := <-waitc:
			ctx, cancel := context.WithTimeout(context.Background(), grace+time.Second)
			err := wait(ctx)
			cancel()
			if err != nil {
				s.logger.Warn("processes still running after shutdown", "error", err)
				errs = append(errs, err)
			}
			s.settle(500 * time.Millisecond)
		case <-s.loopDone:
		}

		sctx.Stop(time.Second)
		if err := sctx.Wait(); err != nil {
			errs = append(errs, err)
		}

		s.store.Cleanup()
		if s.sink != nil {
			if err := s.sink.Drain(); err != nil {
				errs = append(errs, fmt.Errorf("final log flush: %w", err))
			}
		}
		if f, ok := s.fault.Load().(error); ok {
			errs = append(errs, f)
		}
		s.shutErr = errors.Join(errs...)
		close(s.done)
	})
	return s.shutErr
}
