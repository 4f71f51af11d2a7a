package main

import (
	"time"

	"github.com/spf13/cobra"

	"procmux/internal/config"
)

var (
	configPath    string
	bufferSize    int
	colors        []string
	logFile       string
	restartGrace  time.Duration
	controlSocket string
	debugLog      string
	noControl     bool
)

func init() {
	f := rootCmd.PersistentFlags()
	f.StringVarP(&configPath, "config", "c", "", "Config file (.json, .yaml, .yml or .toml)")
	f.StringVar(&controlSocket, "control-socket", "", "Control socket path (default $PROCMUX_SOCKET or the user runtime dir)")

	rf := rootCmd.Flags()
	rf.IntVarP(&bufferSize, "buffer-size", "b", config.DefaultBufferSize, "Lines kept in memory per command")
	rf.StringSliceVar(&colors, "colors", nil, "Colors assigned to positional commands, in order")
	rf.StringVarP(&logFile, "log-file", "l", "", "Append every line to this file; {timestamp} is replaced by the start time")
	rf.DurationVar(&restartGrace, "restart-grace", config.DefaultRestartGrace, "Time a stopping process gets before SIGKILL; 0 restarts without waiting")
	rf.StringVar(&debugLog, "debug-log", "", "Write internal logs to this file in TUI mode")
	rf.BoolVar(&noControl, "no-control", false, "Do not listen on the control socket")
}

// loaderOptions maps flags onto config.Options. Defaults that were not set
// explicitly stay nil so file and env values can apply.
func loaderOptions(cmd *cobra.Command, args []string) config.Options {
	opts := config.Options{
		Args:          args,
		ConfigPath:    configPath,
		Colors:        colors,
		LogFile:       logFile,
		ControlSocket: controlSocket,
	}
	if cmd.Flags().Changed("buffer-size") {
		size := bufferSize
		opts.BufferSize = &size
	}
	if cmd.Flags().Changed("restart-grace") {
		grace := restartGrace
		opts.RestartGrace = &grace
	}
	return opts
}
