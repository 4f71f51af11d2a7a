// Package depgraph orders named nodes so that every node comes after its
// dependencies.
package depgraph

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrCycle   = errors.New("dependency cycle")
	ErrUnknown = errors.New("unknown dependency")
)

// CycleError reports the back-edge found during traversal. Path starts and
// ends with the same name.
type CycleError struct {
	Path []string
}

func (e *CycleError) Error() string {
	if e == nil || len(e.Path) == 0 {
		return ErrCycle.Error()
	}
	return fmt.Sprintf("%s: %s", ErrCycle.Error(), strings.Join(e.Path, " -> "))
}

func (e *CycleError) Unwrap() error { return ErrCycle }

// Order returns names in a dependency-respecting order using a depth-first
// traversal: dependencies are emitted before the node itself and roots are
// visited in the order given. deps must only return names present in names.
func Order(names []string, deps func(string) []string) ([]string, error) {
	known := make(map[string]struct{}, len(names))
	for _, n := range names {
		known[n] = struct{}{}
	}

	visited := make(map[string]struct{}, len(names))
	inProgress := make(map[string]int, len(names))
	stack := make([]string, 0, len(names))
	out := make([]string, 0, len(names))

	var visit func(name string) error
	visit = func(name string) error {
		if _, done := visited[name]; done {
			return nil
		}
		if at, ok := inProgress[name]; ok {
			path := append(append([]string(nil), stack[at:]...), name)
			return &CycleError{Path: path}
		}
		inProgress[name] = len(stack)
		stack = append(stack, name)

		for _, dep := range deps(name) {
			if _, ok := known[dep]; !ok {
				return fmt.Errorf("%w: %q depends on %q", ErrUnknown, name, dep)
			}
			if err := visit(dep); err != nil {
				return err
			}
		}

		stack = stack[:len(stack)-1]
		delete(inProgress, name)
		visited[name] = struct{}{}
		out = append(out, name)
		return nil
	}

	for _, n := range names {
		if err := visit(n); err != nil {
			return nil, err
		}
	}
	return out, nil
}
