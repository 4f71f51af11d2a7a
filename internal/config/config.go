package config

import (
	"fmt"
	"os"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/log"

	"procmux/internal/depgraph"
)

const (
	DefaultBufferSize   = 1000
	DefaultRestartGrace = 5 * time.Second

	envBufferSize   = "PROCMUX_BUFFER_SIZE"
	envLogFile      = "PROCMUX_LOG_FILE"
	envRestartGrace = "PROCMUX_RESTART_GRACE"

	timestampPlaceholder = "{timestamp}"
	timestampLayout      = "2006-01-02_15-04-05"
)

// Options carries the command-line inputs of the loader. Pointer fields are
// nil when the flag was not given.
type Options struct {
	// Args are positional command definitions, see ParseArg.
	Args          []string
	ConfigPath    string
	BufferSize    *int
	Colors        []string
	LogFile       string
	RestartGrace  *time.Duration
	ControlSocket string

	// Now resolves the {timestamp} placeholder; defaults to time.Now.
	Now func() time.Time
}

// Load builds a Config from an optional config file, environment overrides,
// flags and positional command definitions, then validates it.
func Load(opts Options) (Config, error) {
	cfg := Config{
		BufferSize:   DefaultBufferSize,
		RestartGrace: DefaultRestartGrace,
	}

	var (
		defs   []CommandDef
		groups []GroupDef
	)
	if opts.ConfigPath != "" {
		f, err := LoadFile(opts.ConfigPath)
		if err != nil {
			return cfg, fmt.Errorf("load config %s: %w", opts.ConfigPath, err)
		}
		if err := applyFileOptions(&cfg, f.Options); err != nil {
			return cfg, err
		}
		defs = append(defs, f.Commands...)
		groups = f.Groups
		cfg.Path = opts.ConfigPath
	}

	applyEnvOverrides(&cfg)

	if opts.BufferSize != nil {
		if *opts.BufferSize <= 0 {
			return cfg, invalidf("buffer-size", "must be > 0, got %d", *opts.BufferSize)
		}
		cfg.BufferSize = *opts.BufferSize
	}
	if opts.LogFile != "" {
		cfg.LogFile = opts.LogFile
	}
	if opts.RestartGrace != nil {
		if *opts.RestartGrace < 0 {
			return cfg, invalidf("restart-grace", "must be >= 0")
		}
		cfg.RestartGrace = *opts.RestartGrace
	}
	if opts.ControlSocket != "" {
		cfg.ControlSocket = opts.ControlSocket
	}

	for _, arg := range opts.Args {
		def, err := ParseArg(arg)
		if err != nil {
			return cfg, &Error{Field: "args", Msg: err.Error()}
		}
		defs = append(defs, def)
	}

	now := opts.Now
	if now == nil {
		now = time.Now
	}
	cfg.LogFile = ResolveLogPath(cfg.LogFile, now())

	if err := resolve(&cfg, defs, groups, opts.Colors); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// ResolveLogPath substitutes {timestamp} with the local time formatted as
// YYYY-MM-DD_HH-mm-ss.
func ResolveLogPath(tmpl string, at time.Time) string {
	if !strings.Contains(tmpl, timestampPlaceholder) {
		return tmpl
	}
	return strings.ReplaceAll(tmpl, timestampPlaceholder, at.Local().Format(timestampLayout))
}

func applyFileOptions(cfg *Config, opts FileOptions) error {
	if opts.BufferSize != nil {
		if *opts.BufferSize <= 0 {
			return invalidf("options.bufferSize", "must be > 0, got %d", *opts.BufferSize)
		}
		cfg.BufferSize = *opts.BufferSize
	}
	if opts.LogFile != "" {
		cfg.LogFile = opts.LogFile
	}
	if opts.RestartGrace != "" {
		dur, err := time.ParseDuration(opts.RestartGrace)
		if err != nil {
			return &Error{Field: "options.restartGrace", Msg: err.Error(), Err: err}
		}
		if dur < 0 {
			return invalidf("options.restartGrace", "must be >= 0")
		}
		cfg.RestartGrace = dur
	}
	if opts.ControlSocket != "" {
		cfg.ControlSocket = opts.ControlSocket
	}
	return nil
}

func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv(envBufferSize); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.BufferSize = n
		} else {
			log.Warn("ignoring invalid environment value", "key", envBufferSize, "value", v)
		}
	}
	if v := os.Getenv(envLogFile); v != "" {
		cfg.LogFile = v
	}
	if v := os.Getenv(envRestartGrace); v != "" {
		if dur, err := time.ParseDuration(v); err == nil && dur >= 0 {
			cfg.RestartGrace = dur
		} else {
			log.Warn("ignoring invalid environment value", "key", envRestartGrace, "value", v)
		}
	}
}

func resolve(cfg *Config, defs []CommandDef, groupDefs []GroupDef, colors []string) error {
	if len(defs) == 0 {
		return invalidf("", "no commands specified")
	}

	palette := make([]Color, 0, len(colors))
	for _, raw := range colors {
		c, err := ParseColor(raw)
		if err != nil {
			return invalidf("colors", "%v", err)
		}
		palette = append(palette, c)
	}

	cmds := make([]CommandSpec, 0, len(defs))
	index := make(map[string]int, len(defs))
	for i, def := range defs {
		name, err := NormalizeName(def.Name)
		if err != nil {
			return invalidf(fmt.Sprintf("commands[%d].name", i), "%v", err)
		}
		if _, dup := index[name]; dup {
			return invalidf(fmt.Sprintf("commands[%s]", name), "duplicate command name")
		}
		if strings.TrimSpace(def.Cmd) == "" {
			return invalidf(fmt.Sprintf("commands[%s].cmd", name), "must not be empty")
		}

		spec := CommandSpec{
			Name: name,
			Cmd:  def.Cmd,
			Cwd:  def.Cwd,
			Env:  envList(def.Env),
			PTY:  def.PTY,
		}
		switch {
		case def.Color != "":
			c, err := ParseColor(def.Color)
			if err != nil {
				return invalidf(fmt.Sprintf("commands[%s].color", name), "%v", err)
			}
			spec.Color = c
		case len(palette) > 0:
			spec.Color = palette[i%len(palette)]
		default:
			spec.Color = paletteColor(i)
		}
		if def.Group != "" {
			g, err := NormalizeName(def.Group)
			if err != nil {
				return invalidf(fmt.Sprintf("commands[%s].group", name), "%v", err)
			}
			spec.Group = g
		}
		index[name] = len(cmds)
		cmds = append(cmds, spec)
	}

	// Dependencies and ready patterns need the full name set.
	for i, def := range defs {
		spec := &cmds[i]
		seen := make(map[string]struct{}, len(def.DependsOn))
		for _, raw := range def.DependsOn {
			dep, err := NormalizeName(raw)
			if err != nil {
				return invalidf(fmt.Sprintf("commands[%s].dependsOn", spec.Name), "%v", err)
			}
			if _, ok := index[dep]; !ok {
				return invalidf(fmt.Sprintf("commands[%s].dependsOn", spec.Name), "unknown command %q", dep)
			}
			if _, dup := seen[dep]; dup {
				continue
			}
			seen[dep] = struct{}{}
			spec.DependsOn = append(spec.DependsOn, dep)
		}
		for rawDep, pattern := range def.ReadyPatterns {
			field := fmt.Sprintf("commands[%s].readyPatterns[%s]", spec.Name, rawDep)
			dep, err := NormalizeName(rawDep)
			if err != nil {
				return invalidf(field, "%v", err)
			}
			if _, ok := seen[dep]; !ok {
				return invalidf(field, "%q is not listed in dependsOn", dep)
			}
			re, err := regexp.Compile(pattern)
			if err != nil {
				return &Error{Field: field, Msg: err.Error(), Err: err}
			}
			if spec.ReadyPatterns == nil {
				spec.ReadyPatterns = make(map[string]*regexp.Regexp)
			}
			spec.ReadyPatterns[dep] = re
		}
	}

	groups, err := resolveGroups(cmds, index, groupDefs)
	if err != nil {
		return err
	}

	cfg.Commands = cmds
	cfg.Groups = groups

	if _, err := StartupOrder(*cfg); err != nil {
		return &Error{Field: "dependsOn", Msg: err.Error(), Err: err}
	}
	return nil
}

func resolveGroups(cmds []CommandSpec, index map[string]int, defs []GroupDef) ([]GroupSpec, error) {
	var groups []GroupSpec
	byName := make(map[string]int)
	owner := make(map[string]string)

	for i, def := range defs {
		name, err := NormalizeName(def.Name)
		if err != nil {
			return nil, invalidf(fmt.Sprintf("groups[%d].name", i), "%v", err)
		}
		if _, dup := byName[name]; dup {
			return nil, invalidf(fmt.Sprintf("groups[%s]", name), "duplicate group name")
		}
		g := GroupSpec{Name: name, Color: paletteColor(len(groups))}
		if def.Color != "" {
			c, err := ParseColor(def.Color)
			if err != nil {
				return nil, invalidf(fmt.Sprintf("groups[%s].color", name), "%v", err)
			}
			g.Color = c
		}
		for _, raw := range def.Commands {
			member, err := NormalizeName(raw)
			if err != nil {
				return nil, invalidf(fmt.Sprintf("groups[%s].commands", name), "%v", err)
			}
			at, ok := index[member]
			if !ok {
				return nil, invalidf(fmt.Sprintf("groups[%s].commands", name), "unknown command %q", member)
			}
			if prev, taken := owner[member]; taken {
				return nil, invalidf(fmt.Sprintf("groups[%s].commands", name), "%q already belongs to group %q", member, prev)
			}
			if declared := cmds[at].Group; declared != "" && declared != name {
				return nil, invalidf(fmt.Sprintf("groups[%s].commands", name), "%q declares group %q", member, declared)
			}
			cmds[at].Group = name
			owner[member] = name
			g.Commands = append(g.Commands, member)
		}
		byName[name] = len(groups)
		groups = append(groups, g)
	}

	// Synthesize groups referenced only from commands and append members
	// that declared the group without being listed.
	for _, cmd := range cmds {
		if cmd.Group == "" {
			continue
		}
		if _, listed := owner[cmd.Name]; listed {
			continue
		}
		at, ok := byName[cmd.Group]
		if !ok {
			at = len(groups)
			byName[cmd.Group] = at
			groups = append(groups, GroupSpec{Name: cmd.Group, Color: cmd.Color})
		}
		groups[at].Commands = append(groups[at].Commands, cmd.Name)
		owner[cmd.Name] = cmd.Group
	}
	return groups, nil
}

// StartupOrder returns command names so that every command follows its
// dependencies. Dependency cycles are reported as depgraph.ErrCycle.
func StartupOrder(cfg Config) ([]string, error) {
	deps := make(map[string][]string, len(cfg.Commands))
	for _, c := range cfg.Commands {
		deps[c.Name] = c.DependsOn
	}
	return depgraph.Order(cfg.Names(), func(name string) []string { return deps[name] })
}
