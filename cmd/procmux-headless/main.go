// Command procmux-headless runs the supervisor without a terminal UI. Every
// line is printed as "NAME | text" on stdout; diagnostics go to stderr.
package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"github.com/charmbracelet/log"

	"procmux/internal/config"
	"procmux/internal/supervisor"
)

func main() {
	configPath := flag.String("config", "", "Path to a JSON, YAML or TOML config file")
	logFile := flag.String("log-file", "", "Append every line to this file")
	socket := flag.String("control-socket", "", "Control socket path")
	noControl := flag.Bool("no-control", false, "Do not listen on the control socket")
	flag.Parse()

	logger := log.NewWithOptions(os.Stderr, log.Options{Prefix: "procmux", ReportTimestamp: true})

	cfg, err := config.Load(config.Options{
		Args:          flag.Args(),
		ConfigPath:    *configPath,
		LogFile:       *logFile,
		ControlSocket: *socket,
	})
	if err != nil {
		logger.Fatal("invalid configuration", "error", err)
	}

	sup, err := supervisor.New(supervisor.Options{
		Config:  cfg,
		Logger:  logger,
		Console: os.Stdout,
		Control: !*noControl,
		Watch:   true,
	})
	if err != nil {
		logger.Fatal("failed to start", "error", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	logger.Info("supervisor started", "pid", os.Getpid(), "commands", len(cfg.Commands))
	if err := sup.Run(ctx); err != nil {
		logger.Error("shutdown finished with errors", "error", err)
		stop()
		os.Exit(1)
	}
	logger.Info("supervisor stopped")
}
