package lifecycle

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/creack/pty"

	"procmux/internal/config"
)

// Exit describes how an instance ended. Code is -1 when the process was
// killed by a signal or could not be waited on.
type Exit struct {
	Code   int
	Signal string
	Err    error
}

func (e Exit) String() string {
	switch {
	case e.Signal != "":
		return "Process killed by signal " + e.Signal
	case e.Err != nil && e.Code < 0:
		return "Process failed: " + e.Err.Error()
	default:
		return fmt.Sprintf("Process exited with code %d", e.Code)
	}
}

// Callbacks receive asynchronous notifications from a running instance.
// They are invoked from spawner goroutines.
type Callbacks struct {
	Output func(text string)
	Exit   func(Exit)
}

// Handle controls one OS instance.
type Handle interface {
	PID() int
	// Terminate sends SIGTERM to the process group and, when grace > 0,
	// SIGKILL once grace elapses without an exit. It does not block.
	Terminate(grace time.Duration)
	// Done is closed after the instance has exited and its output drained.
	Done() <-chan struct{}
}

// Spawner launches command instances.
type Spawner interface {
	Spawn(spec config.CommandSpec, cb Callbacks) (Handle, error)
}

const maxLineBytes = 1 << 20

// ExecSpawner runs commands through a shell, optionally on a pseudo-terminal.
type ExecSpawner struct {
	Shell string
	// Env is the base environment; nil means the supervisor's own.
	Env []string
}

// Spawn starts spec.Cmd as "<shell> -c <cmd>" in its own process group.
func (s ExecSpawner) Spawn(spec config.CommandSpec, cb Callbacks) (Handle, error) {
	shell := s.Shell
	if shell == "" {
		shell = "/bin/sh"
	}
	base := s.Env
	if base == nil {
		base = os.Environ()
	}

	cmd := exec.Command(shell, "-c", spec.Cmd)
	cmd.Dir = spec.Cwd
	cmd.Env = append(append([]string(nil), base...), spec.Env...)

	if spec.PTY {
		return startPTY(cmd, cb)
	}
	return startPiped(cmd, cb)
}

func startPiped(cmd *exec.Cmd, cb Callbacks) (Handle, error) {
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, err
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		return nil, err
	}
	if err := cmd.Start(); err != nil {
		return nil, err
	}

	p := newProcess(cmd)
	var wg sync.WaitGroup
	for _, r := range []io.Reader{stdout, stderr} {
		wg.Add(1)
		go func(r io.Reader) {
			defer wg.Done()
			readLines(r, cb.Output)
		}(r)
	}
	go func() {
		wg.Wait()
		p.finish(cmd.Wait(), cb.Exit)
	}()
	return p, nil
}

func startPTY(cmd *exec.Cmd, cb Callbacks) (Handle, error) {
	ptmx, err := pty.StartWithSize(cmd, &pty.Winsize{Rows: 40, Cols: 200})
	if err != nil {
		return nil, err
	}
	p := newProcess(cmd)
	go func() {
		// Reads end with EIO once the child side closes.
		readLines(ptmx, cb.Output)
		err := cmd.Wait()
		_ = ptmx.Close()
		p.finish(err, cb.Exit)
	}()
	return p, nil
}

func readLines(r io.Reader, emit func(string)) {
	br := bufio.NewReaderSize(r, 64*1024)
	var partial strings.Builder
	for {
		chunk, isPrefix, err := br.ReadLine()
		if len(chunk) > 0 && partial.Len() < maxLineBytes {
			partial.Write(chunk)
		}
		if err != nil {
			if partial.Len() > 0 {
				emit(partial.String())
			}
			return
		}
		if isPrefix {
			continue
		}
		if partial.Len() > 0 {
			emit(partial.String())
		}
		partial.Reset()
	}
}

type process struct {
	cmd  *exec.Cmd
	done chan struct{}
	once sync.Once
}

func newProcess(cmd *exec.Cmd) *process {
	return &process{cmd: cmd, done: make(chan struct{})}
}

func (p *process) PID() int {
	if p.cmd.Process == nil {
		return -1
	}
	return p.cmd.Process.Pid
}

func (p *process) Done() <-chan struct{} { return p.done }

func (p *process) Terminate(grace time.Duration) {
	select {
	case <-p.done:
		return
	default:
	}
	p.signal(syscall.SIGTERM)
	if grace <= 0 {
		return
	}
	go func() {
		t := time.NewTimer(grace)
		defer t.Stop()
		select {
		case <-p.done:
		case <-t.C:
			p.signal(syscall.SIGKILL)
		}
	}()
}

func (p *process) signal(sig syscall.Signal) {
	pid := p.PID()
	if pid <= 0 {
		return
	}
	if err := syscall.Kill(-pid, sig); err != nil {
		_ = p.cmd.Process.Signal(sig)
	}
}

func (p *process) finish(waitErr error, onExit func(Exit)) {
	p.once.Do(func() {
		close(p.done)
		if onExit != nil {
			onExit(exitFromWait(waitErr))
		}
	})
}

func exitFromWait(err error) Exit {
	if err == nil {
		return Exit{Code: 0}
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		if status, ok := exitErr.Sys().(syscall.WaitStatus); ok && status.Signaled() {
			return Exit{Code: -1, Signal: status.Signal().String(), Err: err}
		}
		return Exit{Code: exitErr.ExitCode(), Err: err}
	}
	return Exit{Code: -1, Err: err}
}
