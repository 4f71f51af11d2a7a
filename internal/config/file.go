package config

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"
)

// CommandDef is a command as written in a config file or on the command line,
// before normalization and validation.
type CommandDef struct {
	Name          string            `json:"name" yaml:"name" toml:"name"`
	Cmd           string            `json:"cmd" yaml:"cmd" toml:"cmd"`
	Color         string            `json:"color,omitempty" yaml:"color,omitempty" toml:"color,omitempty"`
	Group         string            `json:"group,omitempty" yaml:"group,omitempty" toml:"group,omitempty"`
	DependsOn     []string          `json:"dependsOn,omitempty" yaml:"dependsOn,omitempty" toml:"dependsOn,omitempty"`
	ReadyPatterns map[string]string `json:"readyPatterns,omitempty" yaml:"readyPatterns,omitempty" toml:"readyPatterns,omitempty"`
	Cwd           string            `json:"cwd,omitempty" yaml:"cwd,omitempty" toml:"cwd,omitempty"`
	Env           map[string]string `json:"env,omitempty" yaml:"env,omitempty" toml:"env,omitempty"`
	PTY           bool              `json:"pty,omitempty" yaml:"pty,omitempty" toml:"pty,omitempty"`
}

// GroupDef is a group as written in a config file.
type GroupDef struct {
	Name     string   `json:"name" yaml:"name" toml:"name"`
	Color    string   `json:"color,omitempty" yaml:"color,omitempty" toml:"color,omitempty"`
	Commands []string `json:"commands,omitempty" yaml:"commands,omitempty" toml:"commands,omitempty"`
}

// FileOptions holds the optional global settings of a config file.
type FileOptions struct {
	BufferSize    *int   `json:"bufferSize,omitempty" yaml:"bufferSize,omitempty" toml:"bufferSize,omitempty"`
	LogFile       string `json:"logFile,omitempty" yaml:"logFile,omitempty" toml:"logFile,omitempty"`
	RestartGrace  string `json:"restartGrace,omitempty" yaml:"restartGrace,omitempty" toml:"restartGrace,omitempty"`
	ControlSocket string `json:"controlSocket,omitempty" yaml:"controlSocket,omitempty" toml:"controlSocket,omitempty"`
}

// File is the declarative config file schema.
type File struct {
	Commands []CommandDef `json:"commands" yaml:"commands" toml:"commands"`
	Groups   []GroupDef   `json:"groups,omitempty" yaml:"groups,omitempty" toml:"groups,omitempty"`
	Options  FileOptions  `json:"options,omitempty" yaml:"options,omitempty" toml:"options,omitempty"`
}

type format int

const (
	formatJSON format = iota
	formatYAML
	formatTOML
)

func formatOf(path string) format {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return formatYAML
	case ".toml":
		return formatTOML
	default:
		return formatJSON
	}
}

// LoadFile reads a config file. The format is chosen by extension:
// .yaml/.yml, .toml, anything else is JSON.
func LoadFile(path string) (File, error) {
	var f File
	data, err := os.ReadFile(path)
	if err != nil {
		return f, err
	}
	if err := decodeFile(formatOf(path), data, &f); err != nil {
		return f, fmt.Errorf("parse %s: %w", filepath.Base(path), err)
	}
	return f, nil
}

func decodeFile(ft format, data []byte, f *File) error {
	switch ft {
	case formatYAML:
		return yaml.Unmarshal(data, f)
	case formatTOML:
		return toml.Unmarshal(data, f)
	default:
		return json.Unmarshal(data, f)
	}
}

func encodeFile(ft format, f File) ([]byte, error) {
	switch ft {
	case formatYAML:
		return yaml.Marshal(f)
	case formatTOML:
		var buf bytes.Buffer
		if err := toml.NewEncoder(&buf).Encode(f); err != nil {
			return nil, err
		}
		return buf.Bytes(), nil
	default:
		b, err := json.MarshalIndent(f, "", "  ")
		if err != nil {
			return nil, err
		}
		return append(b, '\n'), nil
	}
}

func envList(env map[string]string) []string {
	if len(env) == 0 {
		return nil
	}
	out := make([]string, 0, len(env))
	for k, v := range env {
		out = append(out, k+"="+v)
	}
	sort.Strings(out)
	return out
}
