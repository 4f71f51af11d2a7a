package logstore

import (
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"
)

const (
	DefaultFlushInterval = time.Second
	DefaultHighWater     = 1000

	fileTimeLayout = "2006-01-02T15:04:05.000Z07:00"
)

// FileSink batches formatted log lines and appends them to a file from a
// background flush. The first write failure disables the sink for good.
type FileSink struct {
	path      string
	interval  time.Duration
	highWater int
	write     func(path string, data []byte) error
	onDisable func(error)

	mu       sync.Mutex
	queue    []string
	flushing bool
	disabled bool

	stopOnce sync.Once
	stop     chan struct{}
	started  bool
}

// SinkOption configures a FileSink.
type SinkOption func(*FileSink)

// WithFlushInterval sets the periodic flush interval.
func WithFlushInterval(d time.Duration) SinkOption {
	return func(f *FileSink) { f.interval = d }
}

// WithHighWater sets the queue length that triggers an immediate flush.
func WithHighWater(n int) SinkOption {
	return func(f *FileSink) { f.highWater = n }
}

// WithOnDisable registers a callback invoked once when a write fails.
func WithOnDisable(fn func(error)) SinkOption {
	return func(f *FileSink) { f.onDisable = fn }
}

// withWriter replaces the file writer; used by tests.
func withWriter(fn func(string, []byte) error) SinkOption {
	return func(f *FileSink) { f.write = fn }
}

// NewFileSink creates a sink appending to path. Call Start to enable the
// periodic flush.
func NewFileSink(path string, opts ...SinkOption) *FileSink {
	f := &FileSink{
		path:      path,
		interval:  DefaultFlushInterval,
		highWater: DefaultHighWater,
		write:     appendFile,
		stop:      make(chan struct{}),
	}
	for _, opt := range opts {
		opt(f)
	}
	if f.interval <= 0 {
		f.interval = DefaultFlushInterval
	}
	if f.highWater < 1 {
		f.highWater = DefaultHighWater
	}
	return f
}

// Path returns the destination file.
func (f *FileSink) Path() string { return f.path }

// Start launches the periodic flush timer.
func (f *FileSink) Start() {
	f.mu.Lock()
	if f.started {
		f.mu.Unlock()
		return
	}
	f.started = true
	f.mu.Unlock()

	go func() {
		ticker := time.NewTicker(f.interval)
		defer ticker.Stop()
		for {
			select {
			case <-f.stop:
				return
			case <-ticker.C:
				_ = f.Flush()
			}
		}
	}()
}

// Stop cancels the periodic flush timer. It does not flush.
func (f *FileSink) Stop() {
	f.stopOnce.Do(func() { close(f.stop) })
}

// Enabled reports whether the sink still accepts lines.
func (f *FileSink) Enabled() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return !f.disabled
}

// Pending returns the number of queued lines.
func (f *FileSink) Pending() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.queue)
}

// Enqueue formats and queues one entry. Crossing the high-water mark
// schedules an immediate asynchronous flush.
func (f *FileSink) Enqueue(e Entry) {
	line := FormatFileLine(e)

	f.mu.Lock()
	if f.disabled {
		f.mu.Unlock()
		return
	}
	f.queue = append(f.queue, line)
	over := len(f.queue) > f.highWater && !f.flushing
	f.mu.Unlock()

	if over {
		go func() { _ = f.Flush() }()
	}
}

// Flush writes every queued line. A call made while another flush is in
// flight returns immediately; the next tick picks up the backlog.
func (f *FileSink) Flush() error {
	f.mu.Lock()
	if f.disabled || f.flushing || len(f.queue) == 0 {
		f.mu.Unlock()
		return nil
	}
	batch := f.queue
	f.queue = nil
	f.flushing = true
	f.mu.Unlock()

	err := f.write(f.path, []byte(strings.Join(batch, "")))

	f.mu.Lock()
	f.flushing = false
	if err != nil {
		f.disabled = true
		f.queue = nil
	}
	cb := f.onDisable
	f.mu.Unlock()

	if err != nil && cb != nil {
		cb(err)
	}
	return err
}

// Drain writes everything queued, waiting out any flush already in flight.
// It returns once the queue is empty or the sink is disabled.
func (f *FileSink) Drain() error {
	for {
		if err := f.Flush(); err != nil {
			return err
		}
		f.mu.Lock()
		done := f.disabled || (!f.flushing && len(f.queue) == 0)
		f.mu.Unlock()
		if done {
			return nil
		}
		time.Sleep(5 * time.Millisecond)
	}
}

// FormatFileLine renders e as "[ISO-timestamp] [NAME] text\n" with escape
// codes removed.
func FormatFileLine(e Entry) string {
	var b strings.Builder
	b.WriteByte('[')
	b.WriteString(e.Time.UTC().Format(fileTimeLayout))
	b.WriteString("] [")
	b.WriteString(e.Name)
	b.WriteString("] ")
	b.WriteString(StripANSI(e.Text))
	b.WriteByte('\n')
	return b.String()
}

func appendFile(path string, data []byte) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	fh, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}
	if _, err := fh.Write(data); err != nil {
		_ = fh.Close()
		return err
	}
	return fh.Close()
}
