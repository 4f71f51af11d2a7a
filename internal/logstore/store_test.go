package logstore

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func fixedClock(start time.Time, step time.Duration) func() time.Time {
	cur := start
	return func() time.Time {
		t := cur
		cur = cur.Add(step)
		return t
	}
}

func texts(entries []Entry) []string {
	out := make([]string, len(entries))
	for i, e := range entries {
		out[i] = e.Text
	}
	return out
}

func TestAppendSplitsLinesAndSkipsBlanks(t *testing.T) {
	s := New(Options{BufferSize: 10})
	got := s.Append("API", "one\n\ntwo\r\nthree\n", "blue")
	require.Len(t, got, 3)
	require.Equal(t, []string{"one", "two", "three"}, texts(s.Entries("API")))
	for _, e := range got {
		require.Equal(t, got[0].Time, e.Time)
		require.Equal(t, "API", e.Name)
		require.Equal(t, "blue", e.Color)
	}
}

func TestAppendEmptyTextStoresNothing(t *testing.T) {
	s := New(Options{BufferSize: 10})
	require.Empty(t, s.Append("API", "\n\n", ""))
	require.Empty(t, s.Entries("API"))
	require.Empty(t, s.Names())
}

func TestAppendBoundedByCapacity(t *testing.T) {
	s := New(Options{BufferSize: 2})
	s.Append("A", "a", "")
	s.Append("A", "b", "")
	s.Append("A", "c", "")
	require.Equal(t, []string{"b", "c"}, texts(s.Entries("A")))
}

func TestAllSortedOrdersByTimeStably(t *testing.T) {
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	s := New(Options{BufferSize: 10, Now: fixedClock(base, time.Second)})
	s.Append("A", "a1", "")
	s.Append("B", "b1", "")
	s.Append("A", "a2\na3", "")

	all := s.AllSorted()
	require.Equal(t, []string{"a1", "b1", "a2", "a3"}, texts(all))
	for i := 1; i < len(all); i++ {
		require.False(t, all[i].Time.Before(all[i-1].Time))
	}
}

func TestAllSortedEqualTimestampsKeepBufferOrder(t *testing.T) {
	at := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	s := New(Options{BufferSize: 10, Now: func() time.Time { return at }})
	s.Append("B", "b1", "")
	s.Append("A", "a1", "")
	s.Append("B", "b2", "")
	require.Equal(t, []string{"b1", "b2", "a1"}, texts(s.AllSorted()))
}

func TestAppendNotifiesObserverAndSink(t *testing.T) {
	var seen []Entry
	var written []byte
	sink := NewFileSink("mem.log", withWriter(func(_ string, data []byte) error {
		written = append(written, data...)
		return nil
	}))
	at := time.Date(2024, 5, 6, 7, 8, 9, 10_000_000, time.UTC)
	s := New(Options{
		BufferSize: 5,
		Sink:       sink,
		OnAppend:   func(e Entry) { seen = append(seen, e) },
		Now:        func() time.Time { return at },
	})
	s.Append("WEB", "\x1b[32mready\x1b[0m", "green")

	require.Len(t, seen, 1)
	require.Equal(t, 1, sink.Pending())
	require.NoError(t, sink.Flush())
	require.Equal(t, "[2024-05-06T07:08:09.010Z] [WEB] ready\n", string(written))
}
