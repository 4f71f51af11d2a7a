package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/briandowns/spinner"
	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"procmux/internal/config"
	"procmux/internal/supervisor"
	"procmux/internal/tui"
)

var isTerminal = func(f *os.File) bool { return term.IsTerminal(int(f.Fd())) }

func runSupervisor(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(loaderOptions(cmd, args))
	if err != nil {
		return err
	}

	interactive := isTerminal(os.Stdin) && isTerminal(os.Stdout)
	logger, closeLog, err := newLogger(interactive)
	if err != nil {
		return err
	}
	defer closeLog()

	opts := supervisor.Options{
		Config:  cfg,
		Logger:  logger,
		Control: !noControl,
		Watch:   true,
	}
	if !interactive {
		opts.Console = cmd.OutOrStdout()
	}
	sup, err := supervisor.New(opts)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if interactive {
		return runInteractive(ctx, sup, logger, cmd.OutOrStdout())
	}
	return runHeadless(ctx, sup)
}

// runInteractive drives the TUI while the supervisor runs, then prints every
// buffered line once the alternate screen is gone.
func runInteractive(ctx context.Context, sup *supervisor.Supervisor, logger *log.Logger, out io.Writer) error {
	errc := make(chan error, 1)
	go func() { errc <- sup.Run(ctx) }()

	if err := tui.Run(sup); err != nil {
		logger.Error("tui exited with error", "error", err)
		_ = sup.Shutdown()
	}
	runErr := <-errc
	sup.Dump(out)
	return runErr
}

func runHeadless(ctx context.Context, sup *supervisor.Supervisor) error {
	go func() {
		select {
		case <-ctx.Done():
		case <-sup.Done():
			return
		}
		if !isTerminal(os.Stderr) {
			return
		}
		stopSpin := spinner.New(spinner.CharSets[14], 120*time.Millisecond, spinner.WithWriter(os.Stderr))
		stopSpin.Suffix = " Stopping processes..."
		stopSpin.Start()
		<-sup.Done()
		stopSpin.Stop()
	}()
	return sup.Run(ctx)
}

// newLogger picks the diagnostics destination. The TUI owns the terminal, so
// interactive runs only log when --debug-log is given.
func newLogger(interactive bool) (*log.Logger, func(), error) {
	opts := log.Options{Prefix: "procmux", ReportTimestamp: true}
	if !interactive {
		return log.NewWithOptions(os.Stderr, opts), func() {}, nil
	}
	if debugLog == "" {
		return log.NewWithOptions(io.Discard, opts), func() {}, nil
	}
	f, err := os.OpenFile(debugLog, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, nil, fmt.Errorf("open debug log: %w", err)
	}
	opts.Level = log.DebugLevel
	return log.NewWithOptions(f, opts), func() { _ = f.Close() }, nil
}
