package control

import (
	"context"
	"errors"
	"strings"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"

	"procmux/internal/config"
	"procmux/internal/lifecycle"
	"procmux/internal/registry"
)

// Target is what the control service drives. Restart and Toggle accept a
// process name or "group:<name>".
type Target interface {
	Processes() []registry.Proc
	Restart(name string) error
	Toggle(name string) error
}

// service implements ControlServer on top of a Target.
type service struct {
	target Target
}

func newService(target Target) *service {
	return &service{target: target}
}

func (s *service) Ping(ctx context.Context, _ *emptypb.Empty) (*wrapperspb.StringValue, error) {
	return wrapperspb.String("pong"), nil
}

func (s *service) List(ctx context.Context, _ *emptypb.Empty) (*structpb.ListValue, error) {
	ps := s.target.Processes()
	infos := make([]ProcInfo, 0, len(ps))
	for _, p := range ps {
		infos = append(infos, InfoFromProc(p))
	}
	resp, err := EncodeList(infos)
	if err != nil {
		return nil, status.Errorf(codes.Internal, "encode list: %v", err)
	}
	return resp, nil
}

func (s *service) Restart(ctx context.Context, req *wrapperspb.StringValue) (*emptypb.Empty, error) {
	name, err := targetName(req)
	if err != nil {
		return nil, err
	}
	if err := s.target.Restart(name); err != nil {
		return nil, toStatus(err)
	}
	return &emptypb.Empty{}, nil
}

func (s *service) Toggle(ctx context.Context, req *wrapperspb.StringValue) (*emptypb.Empty, error) {
	name, err := targetName(req)
	if err != nil {
		return nil, err
	}
	if err := s.target.Toggle(name); err != nil {
		return nil, toStatus(err)
	}
	return &emptypb.Empty{}, nil
}

func targetName(req *wrapperspb.StringValue) (string, error) {
	name := strings.TrimSpace(req.GetValue())
	if name == "" {
		return "", status.Error(codes.InvalidArgument, "name is required")
	}
	return name, nil
}

func toStatus(err error) error {
	switch {
	case errors.Is(err, lifecycle.ErrUnknown):
		return status.Error(codes.NotFound, err.Error())
	case errors.Is(err, config.ErrInvalid):
		return status.Error(codes.InvalidArgument, err.Error())
	default:
		return status.Error(codes.Internal, err.Error())
	}
}
