package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"procmux/internal/control"
)

var (
	supervisorIsRunning = control.IsRunning
	dialControlClient   = func(ctx context.Context, path string) (control.ControlClient, io.Closer, error) {
		client, conn, err := control.Dial(ctx, path)
		if err != nil {
			return nil, nil, err
		}
		return client, conn, nil
	}
)

func resetControlDeps() {
	supervisorIsRunning = control.IsRunning
	dialControlClient = func(ctx context.Context, path string) (control.ControlClient, io.Closer, error) {
		client, conn, err := control.Dial(ctx, path)
		if err != nil {
			return nil, nil, err
		}
		return client, conn, nil
	}
}

// SocketPath is the resolved control socket location.
func (a *App) SocketPath() string {
	return control.SocketPath(a.socket)
}

func (a *App) withClient(ctx context.Context, timeout time.Duration, fn func(context.Context, control.ControlClient) error) error {
	if timeout <= 0 {
		return errors.New("timeout must be greater than 0")
	}
	path := a.SocketPath()
	if !supervisorIsRunning(path) {
		return errors.New("procmux is not running")
	}

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	client, conn, err := dialControlClient(ctx, path)
	if err != nil {
		return fmt.Errorf("connect to procmux: %w", err)
	}
	if conn != nil {
		defer conn.Close()
	}

	return fn(ctx, client)
}
