package config

import (
	"path/filepath"
	"time"

	"github.com/charmbracelet/log"
	"github.com/fsnotify/fsnotify"
	"vawter.tech/stopper"
)

const watchDebounce = 100 * time.Millisecond

// Watcher reports changes to a config file. It watches the parent directory
// so editors that replace the file on save are still noticed.
type Watcher struct {
	path    string
	watcher *fsnotify.Watcher
}

// NewWatcher starts watching the directory that holds path.
func NewWatcher(path string) (*Watcher, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, err
	}
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if err := w.Add(filepath.Dir(abs)); err != nil {
		_ = w.Close()
		return nil, err
	}
	return &Watcher{path: abs, watcher: w}, nil
}

// Run delivers debounced change notifications to onChange until the stopper
// context begins stopping. It is meant to be launched with sctx.Go.
func (w *Watcher) Run(sctx *stopper.Context, onChange func()) error {
	var debounce *time.Timer
	defer func() {
		if debounce != nil {
			debounce.Stop()
		}
		_ = w.watcher.Close()
	}()

	for {
		select {
		case <-sctx.Stopping():
			return nil
		case event, ok := <-w.watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != w.path {
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) && !event.Has(fsnotify.Rename) {
				continue
			}
			if debounce != nil {
				debounce.Stop()
			}
			debounce = time.AfterFunc(watchDebounce, onChange)
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return nil
			}
			if err != nil {
				log.Warn("config watcher error", "path", w.path, "error", err)
			}
		}
	}
}
