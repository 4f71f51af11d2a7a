package main

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"procmux/internal/app"
	"procmux/internal/control"
)

type stubController struct {
	pingFunc    func(ctx context.Context, timeout time.Duration) (string, error)
	listFunc    func(ctx context.Context, params app.ListParams) ([]control.ProcInfo, error)
	restartFunc func(ctx context.Context, target string, timeout time.Duration) error
	toggleFunc  func(ctx context.Context, target string, timeout time.Duration) error
}

func (s *stubController) Ping(ctx context.Context, timeout time.Duration) (string, error) {
	if s.pingFunc != nil {
		return s.pingFunc(ctx, timeout)
	}
	return "", errors.New("ping not implemented")
}

func (s *stubController) List(ctx context.Context, params app.ListParams) ([]control.ProcInfo, error) {
	if s.listFunc != nil {
		return s.listFunc(ctx, params)
	}
	panic("List not implemented")
}

func (s *stubController) Restart(ctx context.Context, target string, timeout time.Duration) error {
	if s.restartFunc != nil {
		return s.restartFunc(ctx, target, timeout)
	}
	panic("Restart not implemented")
}

func (s *stubController) Toggle(ctx context.Context, target string, timeout time.Duration) error {
	if s.toggleFunc != nil {
		return s.toggleFunc(ctx, target, timeout)
	}
	panic("Toggle not implemented")
}

func withController(t *testing.T, stub controllerAPI) {
	t.Helper()
	origFactory := controllerFactory
	controllerFactory = func() controllerAPI {
		return stub
	}
	t.Cleanup(func() {
		controllerFactory = origFactory
	})
}

func withTimeout(t *testing.T, d time.Duration) {
	t.Helper()
	old := ctlTimeout
	ctlTimeout = d
	t.Cleanup(func() { ctlTimeout = old })
}

func captureOutput(t *testing.T) *bytes.Buffer {
	t.Helper()
	buf := &bytes.Buffer{}
	cmdPing.SetOut(buf)
	cmdList.SetOut(buf)
	cmdRestart.SetOut(buf)
	cmdToggle.SetOut(buf)
	t.Cleanup(func() {
		cmdPing.SetOut(nil)
		cmdList.SetOut(nil)
		cmdRestart.SetOut(nil)
		cmdToggle.SetOut(nil)
	})
	return buf
}

func TestPingSuccess(t *testing.T) {
	withController(t, &stubController{
		pingFunc: func(ctx context.Context, timeout time.Duration) (string, error) {
			if timeout != 2*time.Second {
				t.Fatalf("expected timeout 2s, got %v", timeout)
			}
			return "pong", nil
		},
	})
	withTimeout(t, 2*time.Second)
	buf := captureOutput(t)

	if err := cmdPing.RunE(cmdPing, nil); err != nil {
		t.Fatalf("RunE error: %v", err)
	}
	if got := buf.String(); got != "pong\n" {
		t.Fatalf("unexpected output %q", got)
	}
}

func TestPingError(t *testing.T) {
	expected := errors.New("procmux down")
	withController(t, &stubController{
		pingFunc: func(ctx context.Context, timeout time.Duration) (string, error) {
			return "", expected
		},
	})
	withTimeout(t, time.Second)

	err := cmdPing.RunE(cmdPing, nil)
	if !errors.Is(err, expected) {
		t.Fatalf("expected error %v, got %v", expected, err)
	}
}

func TestListPrintsTable(t *testing.T) {
	withController(t, &stubController{
		listFunc: func(ctx context.Context, params app.ListParams) ([]control.ProcInfo, error) {
			return []control.ProcInfo{
				{Name: "DB", Group: "DATA", State: "running", PID: 42},
				{Name: "API", State: "blocked", Waiting: []string{"DB"}},
				{Name: "JOB", State: "stopped", Exited: true, ExitCode: 2, Restarts: 1},
			}, nil
		},
	})
	withTimeout(t, time.Second)
	buf := captureOutput(t)

	if err := cmdList.RunE(cmdList, nil); err != nil {
		t.Fatalf("RunE error: %v", err)
	}
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 4 {
		t.Fatalf("unexpected output %q", buf.String())
	}
	if !strings.Contains(lines[1], "DATA") || !strings.Contains(lines[1], "42") {
		t.Fatalf("unexpected DB row %q", lines[1])
	}
	if !strings.HasSuffix(lines[2], "waiting for DB") {
		t.Fatalf("unexpected API row %q", lines[2])
	}
	if !strings.HasSuffix(lines[3], "exit 2") {
		t.Fatalf("unexpected JOB row %q", lines[3])
	}
}

func TestListEmpty(t *testing.T) {
	withController(t, &stubController{
		listFunc: func(ctx context.Context, params app.ListParams) ([]control.ProcInfo, error) {
			return nil, nil
		},
	})
	withTimeout(t, time.Second)
	buf := captureOutput(t)

	if err := cmdList.RunE(cmdList, nil); err != nil {
		t.Fatalf("RunE error: %v", err)
	}
	if buf.String() != "No matching commands\n" {
		t.Fatalf("unexpected output %q", buf.String())
	}
}

func TestRestartAndToggle(t *testing.T) {
	var calls []string
	withController(t, &stubController{
		restartFunc: func(ctx context.Context, target string, timeout time.Duration) error {
			calls = append(calls, "restart "+target)
			return nil
		},
		toggleFunc: func(ctx context.Context, target string, timeout time.Duration) error {
			calls = append(calls, "toggle "+target)
			return app.ErrUnknownTarget
		},
	})
	withTimeout(t, time.Second)
	buf := captureOutput(t)

	if err := cmdRestart.RunE(cmdRestart, []string{"group:DATA"}); err != nil {
		t.Fatalf("restart: %v", err)
	}
	if err := cmdToggle.RunE(cmdToggle, []string{"GHOST"}); !errors.Is(err, app.ErrUnknownTarget) {
		t.Fatalf("expected unknown target, got %v", err)
	}
	if strings.Join(calls, ";") != "restart group:DATA;toggle GHOST" {
		t.Fatalf("unexpected calls %v", calls)
	}
	if buf.String() != "Restarting group:DATA\n" {
		t.Fatalf("unexpected output %q", buf.String())
	}
}
