package app

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"google.golang.org/protobuf/types/known/emptypb"

	"procmux/internal/control"
)

// ListFilters narrows the listing client-side.
type ListFilters struct {
	Names  []string
	Groups []string
	States []string
}

// ListParams defines filters and timeout.
type ListParams struct {
	Filters ListFilters
	Timeout time.Duration
}

func (f ListFilters) normalize() (ListFilters, error) {
	clean := func(values []string, what string) ([]string, error) {
		out := make([]string, 0, len(values))
		for _, v := range values {
			v = strings.TrimSpace(v)
			if v == "" {
				return nil, fmt.Errorf("%s filters must not be empty", what)
			}
			out = append(out, v)
		}
		return out, nil
	}
	var (
		out ListFilters
		err error
	)
	if out.Names, err = clean(f.Names, "name"); err != nil {
		return ListFilters{}, err
	}
	if out.Groups, err = clean(f.Groups, "group"); err != nil {
		return ListFilters{}, err
	}
	if out.States, err = clean(f.States, "state"); err != nil {
		return ListFilters{}, err
	}
	for _, s := range out.States {
		if !slices.Contains(knownStates, strings.ToLower(s)) {
			return ListFilters{}, errors.New("unknown state filter: " + s)
		}
	}
	return out, nil
}

var knownStates = []string{"stopped", "pending", "blocked", "starting", "running"}

func (f ListFilters) match(info control.ProcInfo) bool {
	if len(f.Names) > 0 && !slices.ContainsFunc(f.Names, func(n string) bool { return strings.EqualFold(n, info.Name) }) {
		return false
	}
	if len(f.Groups) > 0 && !slices.ContainsFunc(f.Groups, func(g string) bool { return strings.EqualFold(g, info.Group) }) {
		return false
	}
	if len(f.States) > 0 && !slices.ContainsFunc(f.States, func(s string) bool { return strings.EqualFold(s, info.State) }) {
		return false
	}
	return true
}

// List fetches the supervised processes matching the provided filters.
func (a *App) List(ctx context.Context, params ListParams) ([]control.ProcInfo, error) {
	filters, err := params.Filters.normalize()
	if err != nil {
		return nil, err
	}

	var procs []control.ProcInfo
	err = a.withClient(ctx, params.Timeout, func(ctx context.Context, client control.ControlClient) error {
		resp, err := client.List(ctx, &emptypb.Empty{})
		if err != nil {
			return fmt.Errorf("list RPC failed: %w", err)
		}
		for _, info := range control.DecodeList(resp) {
			if filters.match(info) {
				procs = append(procs, info)
			}
		}
		return nil
	})
	return procs, err
}
