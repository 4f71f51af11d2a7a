package control

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/wrapperspb"
	"vawter.tech/stopper"

	"procmux/internal/lifecycle"
	"procmux/internal/registry"
)

type fakeTarget struct {
	procs     []registry.Proc
	restarted []string
	toggled   []string
	err       error
}

func (f *fakeTarget) Processes() []registry.Proc { return f.procs }

func (f *fakeTarget) Restart(name string) error {
	f.restarted = append(f.restarted, name)
	return f.err
}

func (f *fakeTarget) Toggle(name string) error {
	f.toggled = append(f.toggled, name)
	return f.err
}

func sampleProcs() []registry.Proc {
	return []registry.Proc{
		{Name: "DB", State: registry.Running, PID: 42},
		{Name: "API", Group: "BACKEND", State: registry.Pending, Waiting: []string{"DB"}},
		{Name: "WEB", State: registry.Stopped, Exited: true, ExitCode: 2, Restarts: 1},
	}
}

func TestServiceList(t *testing.T) {
	svc := newService(&fakeTarget{procs: sampleProcs()})
	resp, err := svc.List(context.Background(), &emptypb.Empty{})
	require.NoError(t, err)

	infos := DecodeList(resp)
	require.Len(t, infos, 3)
	require.Equal(t, ProcInfo{Name: "DB", State: "running", PID: 42}, infos[0])
	require.Equal(t, "blocked", infos[1].State)
	require.Equal(t, "BACKEND", infos[1].Group)
	require.Equal(t, []string{"DB"}, infos[1].Waiting)
	require.True(t, infos[2].Exited)
	require.Equal(t, 2, infos[2].ExitCode)
	require.Equal(t, 1, infos[2].Restarts)
}

func TestServiceActionsMapErrors(t *testing.T) {
	target := &fakeTarget{}
	svc := newService(target)

	_, err := svc.Restart(context.Background(), wrapperspb.String(" API "))
	require.NoError(t, err)
	require.Equal(t, []string{"API"}, target.restarted)

	_, err = svc.Toggle(context.Background(), wrapperspb.String(""))
	require.Equal(t, codes.InvalidArgument, status.Code(err))

	target.err = fmt.Errorf("%w: NOPE", lifecycle.ErrUnknown)
	_, err = svc.Toggle(context.Background(), wrapperspb.String("NOPE"))
	require.Equal(t, codes.NotFound, status.Code(err))
}

func TestSocketPathPrecedence(t *testing.T) {
	t.Setenv("PROCMUX_SOCKET", "/tmp/env.sock")
	require.Equal(t, "/tmp/flag.sock", SocketPath("/tmp/flag.sock"))
	require.Equal(t, "/tmp/env.sock", SocketPath(""))

	t.Setenv("PROCMUX_SOCKET", "")
	t.Setenv("PROCMUX_RUNTIME_DIR", "/tmp/rt")
	require.Equal(t, filepath.Join("/tmp/rt", SocketBaseName), SocketPath(""))
}

func shortSocketPath(t *testing.T) string {
	t.Helper()
	dir, err := os.MkdirTemp("", "pmx")
	require.NoError(t, err)
	t.Cleanup(func() { _ = os.RemoveAll(dir) })
	return filepath.Join(dir, "c.sock")
}

func TestServerRoundTrip(t *testing.T) {
	path := shortSocketPath(t)
	target := &fakeTarget{procs: sampleProcs()}
	srv, err := Listen(path, target)
	require.NoError(t, err)

	sctx := stopper.WithContext(context.Background())
	sctx.Go(srv.Serve)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	client, conn, err := Dial(ctx, path)
	require.NoError(t, err)
	defer conn.Close()

	pong, err := client.Ping(ctx, &emptypb.Empty{})
	require.NoError(t, err)
	require.Equal(t, "pong", pong.GetValue())

	list, err := client.List(ctx, &emptypb.Empty{})
	require.NoError(t, err)
	require.Len(t, DecodeList(list), 3)

	_, err = client.Restart(ctx, wrapperspb.String("DB"))
	require.NoError(t, err)
	require.True(t, IsRunning(path))

	_, err = Listen(path, target)
	require.Error(t, err)

	sctx.Stop(time.Second)
	require.NoError(t, sctx.Wait())
	_, err = os.Stat(path)
	require.True(t, os.IsNotExist(err))
	require.Equal(t, []string{"DB"}, target.restarted)
}

func TestListenReplacesStaleSocket(t *testing.T) {
	path := shortSocketPath(t)
	require.NoError(t, os.WriteFile(path, nil, 0o600))

	srv, err := Listen(path, &fakeTarget{})
	require.NoError(t, err)
	require.NoError(t, srv.Close())
}
