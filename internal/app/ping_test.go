package app

import (
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/wrapperspb"

	"procmux/internal/control"
)

func TestAppPingNotRunning(t *testing.T) {
	stubSupervisor(t, false, nil)

	app := New(Options{})
	if _, err := app.Ping(context.Background(), time.Second); err == nil || err.Error() != "procmux is not running" {
		t.Fatalf("expected not running error, got %v", err)
	}
}

func TestAppPingSuccess(t *testing.T) {
	conn := &fakeConn{
		invoke: func(ctx context.Context, method string, args interface{}, reply interface{}, opts ...grpc.CallOption) error {
			if method != "/procmux.v1.Control/Ping" {
				t.Fatalf("unexpected method %s", method)
			}
			resp, ok := reply.(*wrapperspb.StringValue)
			if !ok {
				t.Fatalf("unexpected reply type %T", reply)
			}
			resp.Value = "pong"
			return nil
		},
	}
	stubConn(t, conn)

	app := New(Options{})
	msg, err := app.Ping(context.Background(), 500*time.Millisecond)
	if err != nil {
		t.Fatalf("Ping returned error: %v", err)
	}
	if msg != "pong" {
		t.Fatalf("expected pong, got %q", msg)
	}
	if !conn.closed {
		t.Fatalf("connection was not closed")
	}
}

func TestAppPingDialError(t *testing.T) {
	stubSupervisor(t, true, func(context.Context, string) (control.ControlClient, io.Closer, error) {
		return nil, nil, errors.New("dial failed")
	})

	app := New(Options{})
	if _, err := app.Ping(context.Background(), time.Second); err == nil || err.Error() != "connect to procmux: dial failed" {
		t.Fatalf("expected wrapped dial error, got %v", err)
	}
}

func TestAppPingInvalidTimeout(t *testing.T) {
	stubSupervisor(t, true, func(context.Context, string) (control.ControlClient, io.Closer, error) {
		return nil, nil, errors.New("should not dial")
	})

	app := New(Options{})
	if _, err := app.Ping(context.Background(), 0); err == nil || err.Error() != "timeout must be greater than 0" {
		t.Fatalf("expected timeout error, got %v", err)
	}
}

func TestAppUsesExplicitSocket(t *testing.T) {
	var dialed string
	stubSupervisor(t, true, func(_ context.Context, path string) (control.ControlClient, io.Closer, error) {
		dialed = path
		return nil, nil, errors.New("stop here")
	})

	app := New(Options{SocketPath: "/tmp/custom.sock"})
	_, _ = app.Ping(context.Background(), time.Second)
	if dialed != "/tmp/custom.sock" {
		t.Fatalf("dialed %q", dialed)
	}
}
