// Package logstore keeps bounded per-process output history and optionally
// mirrors it to an append-only log file.
package logstore

import (
	"slices"
	"strings"
	"sync"
	"time"
)

// Entry is one line of process output. Entries are never mutated after
// insertion.
type Entry struct {
	Name  string
	Text  string
	Color string
	Time  time.Time
}

// Options configures a Store.
type Options struct {
	// BufferSize is the per-process ring capacity.
	BufferSize int
	// Sink mirrors every entry to disk when set.
	Sink *FileSink
	// OnAppend observes each stored entry (headless console output).
	OnAppend func(Entry)
	Now      func() time.Time
}

// Store owns one ring buffer per process name.
type Store struct {
	mu       sync.RWMutex
	capacity int
	buffers  map[string]*Ring[Entry]
	order    []string

	sink     *FileSink
	onAppend func(Entry)
	now      func() time.Time
}

// New constructs an empty store.
func New(opts Options) *Store {
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	return &Store{
		capacity: opts.BufferSize,
		buffers:  make(map[string]*Ring[Entry]),
		sink:     opts.Sink,
		onAppend: opts.OnAppend,
		now:      now,
	}
}

// Append splits text on newlines and stores every non-empty line as its own
// entry. All lines of one call share a timestamp.
func (s *Store) Append(name, text, color string) []Entry {
	lines := splitLines(text)
	if len(lines) == 0 {
		return nil
	}
	at := s.now()
	out := make([]Entry, 0, len(lines))

	s.mu.Lock()
	buf, ok := s.buffers[name]
	if !ok {
		buf = NewRing[Entry](s.capacity)
		s.buffers[name] = buf
		s.order = append(s.order, name)
	}
	for _, line := range lines {
		e := Entry{Name: name, Text: line, Color: color, Time: at}
		buf.Push(e)
		out = append(out, e)
	}
	s.mu.Unlock()

	for _, e := range out {
		if s.sink != nil {
			s.sink.Enqueue(e)
		}
		if s.onAppend != nil {
			s.onAppend(e)
		}
	}
	return out
}

// Entries returns the buffered entries of one process, oldest first.
func (s *Store) Entries(name string) []Entry {
	s.mu.RLock()
	defer s.mu.RUnlock()
	buf, ok := s.buffers[name]
	if !ok {
		return nil
	}
	return buf.Items()
}

// Names returns process names in first-append order.
func (s *Store) Names() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]string(nil), s.order...)
}

// AllSorted merges every buffer into ascending timestamp order. Entries
// with equal timestamps keep their encounter order.
func (s *Store) AllSorted() []Entry {
	s.mu.RLock()
	total := 0
	for _, buf := range s.buffers {
		total += buf.Len()
	}
	all := make([]Entry, 0, total)
	for _, name := range s.order {
		all = append(all, s.buffers[name].Items()...)
	}
	s.mu.RUnlock()

	slices.SortStableFunc(all, func(a, b Entry) int {
		return a.Time.Compare(b.Time)
	})
	return all
}

// Sink returns the file sink, if any.
func (s *Store) Sink() *FileSink { return s.sink }

// Cleanup cancels the periodic flush timer. It does not flush; callers do a
// final Flush themselves.
func (s *Store) Cleanup() {
	if s.sink != nil {
		s.sink.Stop()
	}
}

func splitLines(text string) []string {
	raw := strings.Split(text, "\n")
	out := raw[:0]
	for _, line := range raw {
		line = strings.TrimSuffix(line, "\r")
		if line == "" {
			continue
		}
		out = append(out, line)
	}
	return out
}
