package registry

import (
	"strings"
	"time"
)

type strset map[string]struct{}

func (s strset) add(v string) {
	s[v] = struct{}{}
}

func (s strset) has(v string) bool {
	_, ok := s[v]
	return ok
}

func toSet(xs []string) strset {
	s := make(strset, len(xs))
	for _, x := range xs {
		s.add(strings.TrimSpace(x))
	}
	return s
}

func now() time.Time {
	return time.Now().UTC()
}
