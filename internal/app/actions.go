package app

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/wrapperspb"

	"procmux/internal/control"
)

// ErrUnknownTarget reports that the supervisor has no process or group by that name.
var ErrUnknownTarget = errors.New("unknown process or group")

// Restart asks the supervisor to restart a process or a group ("group:NAME").
func (a *App) Restart(ctx context.Context, target string, timeout time.Duration) error {
	return a.act(ctx, target, timeout, "restart", func(ctx context.Context, client control.ControlClient, in *wrapperspb.StringValue) error {
		_, err := client.Restart(ctx, in)
		return err
	})
}

// Toggle asks the supervisor to start or stop a process or a group.
func (a *App) Toggle(ctx context.Context, target string, timeout time.Duration) error {
	return a.act(ctx, target, timeout, "toggle", func(ctx context.Context, client control.ControlClient, in *wrapperspb.StringValue) error {
		_, err := client.Toggle(ctx, in)
		return err
	})
}

func (a *App) act(ctx context.Context, target string, timeout time.Duration, verb string, call func(context.Context, control.ControlClient, *wrapperspb.StringValue) error) error {
	target = strings.TrimSpace(target)
	if target == "" {
		return errors.New("target must not be empty")
	}
	return a.withClient(ctx, timeout, func(ctx context.Context, client control.ControlClient) error {
		err := call(ctx, client, wrapperspb.String(target))
		if err == nil {
			return nil
		}
		switch status.Code(err) {
		case codes.NotFound:
			return fmt.Errorf("%w: %s", ErrUnknownTarget, target)
		case codes.InvalidArgument:
			return fmt.Errorf("invalid target %q: %s", target, status.Convert(err).Message())
		}
		return fmt.Errorf("%s RPC failed: %w", verb, err)
	})
}
