package app

import (
	"context"
	"errors"
	"io"
	"testing"

	"google.golang.org/grpc"

	"procmux/internal/control"
)

type fakeConn struct {
	invoke func(ctx context.Context, method string, args interface{}, reply interface{}, opts ...grpc.CallOption) error
	closed bool
}

func (f *fakeConn) Invoke(ctx context.Context, method string, args interface{}, reply interface{}, opts ...grpc.CallOption) error {
	if f.invoke != nil {
		return f.invoke(ctx, method, args, reply, opts...)
	}
	return nil
}

func (f *fakeConn) NewStream(ctx context.Context, desc *grpc.StreamDesc, method string, opts ...grpc.CallOption) (grpc.ClientStream, error) {
	return nil, errors.New("not implemented")
}

func (f *fakeConn) Close() error {
	f.closed = true
	return nil
}

func stubSupervisor(t *testing.T, running bool, dial func(context.Context, string) (control.ControlClient, io.Closer, error)) {
	t.Helper()
	resetControlDeps()
	supervisorIsRunning = func(string) bool { return running }
	if dial == nil {
		dial = func(context.Context, string) (control.ControlClient, io.Closer, error) {
			return nil, nil, errors.New("dial not stubbed")
		}
	}
	dialControlClient = dial
	t.Cleanup(resetControlDeps)
}

func stubConn(t *testing.T, conn *fakeConn) {
	t.Helper()
	stubSupervisor(t, true, func(context.Context, string) (control.ControlClient, io.Closer, error) {
		return control.NewControlClient(conn), conn, nil
	})
}
