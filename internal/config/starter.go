package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/google/renameio/v2"
)

// Starter returns the example configuration written by `procmux init`.
func Starter() File {
	bufferSize := DefaultBufferSize
	return File{
		Commands: []CommandDef{
			{
				Name:  "db",
				Cmd:   "echo 'database ready'; sleep 3600",
				Color: "cyan",
				Group: "backend",
			},
			{
				Name:          "api",
				Cmd:           "echo 'api listening'; sleep 3600",
				Color:         "magenta",
				Group:         "backend",
				DependsOn:     []string{"db"},
				ReadyPatterns: map[string]string{"db": "ready"},
			},
			{
				Name:      "web",
				Cmd:       "echo 'web up'; sleep 3600",
				Color:     "yellow",
				DependsOn: []string{"api"},
			},
		},
		Groups: []GroupDef{
			{Name: "backend", Color: "blue", Commands: []string{"db", "api"}},
		},
		Options: FileOptions{
			BufferSize: &bufferSize,
			LogFile:    "procmux-{timestamp}.log",
		},
	}
}

// WriteStarter atomically writes the starter config to path in the format
// implied by its extension. Existing files are never overwritten.
func WriteStarter(path string) error {
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("%s already exists", path)
	} else if !errors.Is(err, fs.ErrNotExist) {
		return err
	}
	data, err := encodeFile(formatOf(path), Starter())
	if err != nil {
		return fmt.Errorf("encode starter config: %w", err)
	}
	return renameio.WriteFile(path, data, 0o644)
}
