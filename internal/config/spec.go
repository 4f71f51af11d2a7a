package config

import (
	"errors"
	"fmt"
	"regexp"
	"time"
)

// ErrInvalid marks every configuration validation failure.
var ErrInvalid = errors.New("invalid configuration")

// Error describes one configuration problem. Field names the offending
// setting (e.g. "commands[API].dependsOn").
type Error struct {
	Field string
	Msg   string
	Err   error
}

func (e *Error) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("%s: %s", ErrInvalid.Error(), e.Msg)
	}
	return fmt.Sprintf("%s: %s: %s", ErrInvalid.Error(), e.Field, e.Msg)
}

func (e *Error) Unwrap() []error {
	if e.Err == nil {
		return []error{ErrInvalid}
	}
	return []error{ErrInvalid, e.Err}
}

func invalidf(field, format string, args ...any) error {
	return &Error{Field: field, Msg: fmt.Sprintf(format, args...)}
}

// CommandSpec is one supervised command. It is immutable after Load.
type CommandSpec struct {
	Name      string
	Cmd       string
	Color     Color
	Group     string
	DependsOn []string
	// ReadyPatterns is keyed by dependency name. Compiled once at load time.
	ReadyPatterns map[string]*regexp.Regexp
	Cwd           string
	Env           []string
	PTY           bool
}

// ReadyPattern returns the matcher this command waits for on dep's output.
func (c CommandSpec) ReadyPattern(dep string) (*regexp.Regexp, bool) {
	re, ok := c.ReadyPatterns[dep]
	return re, ok
}

// GroupSpec is a named, ordered set of commands controllable as a unit.
type GroupSpec struct {
	Name     string
	Color    Color
	Commands []string
}

// Config is the fully resolved and validated supervisor configuration.
type Config struct {
	Commands      []CommandSpec
	Groups        []GroupSpec
	BufferSize    int
	LogFile       string
	RestartGrace  time.Duration
	ControlSocket string
	// Path is the config file that was read, if any.
	Path string
}

// Command looks up a command by its normalized name.
func (c Config) Command(name string) (CommandSpec, bool) {
	for _, cmd := range c.Commands {
		if cmd.Name == name {
			return cmd, true
		}
	}
	return CommandSpec{}, false
}

// Group looks up a group by name.
func (c Config) Group(name string) (GroupSpec, bool) {
	for _, g := range c.Groups {
		if g.Name == name {
			return g, true
		}
	}
	return GroupSpec{}, false
}

// Names returns command names in declaration order.
func (c Config) Names() []string {
	out := make([]string, 0, len(c.Commands))
	for _, cmd := range c.Commands {
		out = append(out, cmd.Name)
	}
	return out
}

// Ungrouped returns the names of commands that belong to no group.
func (c Config) Ungrouped() []string {
	var out []string
	for _, cmd := range c.Commands {
		if cmd.Group == "" {
			out = append(out, cmd.Name)
		}
	}
	return out
}
