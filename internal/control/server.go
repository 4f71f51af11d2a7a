package control

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"time"

	"github.com/charmbracelet/log"
	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/emptypb"
	"vawter.tech/stopper"
)

// Server wraps the UNIX listener and the gRPC server.
type Server struct {
	ln   net.Listener
	grpc *grpc.Server
	path string
}

// Listen binds the control socket at path. A stale socket left by a dead
// supervisor is removed; a live one is an error.
func Listen(path string, target Target) (*Server, error) {
	if err := EnsureRuntimeDir(path); err != nil {
		return nil, err
	}

	if _, err := os.Stat(path); err == nil {
		if IsRunning(path) {
			return nil, fmt.Errorf("another supervisor is listening on %s", path)
		}
		if err := os.Remove(path); err != nil {
			return nil, err
		}
	}

	ln, err := net.Listen("unix", path)
	if err != nil {
		return nil, err
	}
	if err := os.Chmod(path, 0o600); err != nil {
		ln.Close()
		return nil, err
	}

	gs := grpc.NewServer()
	RegisterControlServer(gs, newService(target))
	return &Server{ln: ln, grpc: gs, path: path}, nil
}

// Path returns the socket path.
func (s *Server) Path() string { return s.path }

// Serve runs the server until the stopper context begins stopping. It is
// meant to be launched with sctx.Go.
func (s *Server) Serve(sctx *stopper.Context) error {
	errc := make(chan error, 1)
	go func() { errc <- s.grpc.Serve(s.ln) }()

	select {
	case <-sctx.Stopping():
		s.stop(time.Second)
		<-errc
	case err := <-errc:
		if err != nil && !errors.Is(err, grpc.ErrServerStopped) {
			log.Warn("control server stopped", "path", s.path, "error", err)
		}
	}
	s.unlink()
	return nil
}

// Close stops the server immediately and unlinks the socket.
func (s *Server) Close() error {
	s.grpc.Stop()
	return s.unlink()
}

func (s *Server) stop(grace time.Duration) {
	done := make(chan struct{})
	go func() {
		s.grpc.GracefulStop()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(grace):
		s.grpc.Stop()
	}
}

func (s *Server) unlink() error {
	if err := os.Remove(s.path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	return nil
}

// IsRunning pings the socket at path and reports whether a supervisor answers.
func IsRunning(path string) bool {
	if _, err := os.Stat(path); err != nil {
		return false
	}

	ctx, cancel := context.WithTimeout(context.Background(), 300*time.Millisecond)
	defer cancel()

	client, conn, err := Dial(ctx, path)
	if err != nil {
		return false
	}
	defer conn.Close()

	_, err = client.Ping(ctx, &emptypb.Empty{})
	return err == nil
}
