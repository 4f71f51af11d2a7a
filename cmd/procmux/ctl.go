package main

import (
	"context"
	"fmt"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"procmux/internal/app"
	"procmux/internal/control"
)

type controllerAPI interface {
	Ping(ctx context.Context, timeout time.Duration) (string, error)
	List(ctx context.Context, params app.ListParams) ([]control.ProcInfo, error)
	Restart(ctx context.Context, target string, timeout time.Duration) error
	Toggle(ctx context.Context, target string, timeout time.Duration) error
}

var controllerFactory = func() controllerAPI {
	return app.New(app.Options{SocketPath: controlSocket})
}

func controller() controllerAPI {
	return controllerFactory()
}

var (
	ctlTimeout time.Duration
	listGroups []string
	listStates []string
	listNames  []string
)

func init() {
	rootCmd.AddCommand(cmdCtl)
	cmdCtl.PersistentFlags().DurationVarP(&ctlTimeout, "timeout", "t", 2*time.Second, "Timeout for requests to the running procmux")
	cmdCtl.AddCommand(cmdPing, cmdList, cmdRestart, cmdToggle)

	cmdList.Flags().StringSliceVar(&listNames, "name", nil, "Only these commands")
	cmdList.Flags().StringSliceVar(&listGroups, "group", nil, "Only members of these groups")
	cmdList.Flags().StringSliceVar(&listStates, "state", nil, "Only these states (stopped, pending, blocked, starting, running)")
}

var cmdCtl = &cobra.Command{
	Use:   "ctl",
	Short: "Control a running procmux over its socket",
}

// `procmux ctl ping` prints "pong" when a supervisor is listening.
var cmdPing = &cobra.Command{
	Use:   "ping",
	Short: "Check that procmux is running (expects 'pong')",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		msg, err := controller().Ping(cmd.Context(), ctlTimeout)
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), msg)
		return nil
	},
}

var cmdList = &cobra.Command{
	Use:   "list",
	Short: "List supervised commands and their state",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		procs, err := controller().List(cmd.Context(), app.ListParams{
			Timeout: ctlTimeout,
			Filters: app.ListFilters{Names: listNames, Groups: listGroups, States: listStates},
		})
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		if len(procs) == 0 {
			fmt.Fprintln(out, "No matching commands")
			return nil
		}
		tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
		fmt.Fprintln(tw, "NAME\tGROUP\tSTATE\tPID\tRESTARTS\tDETAIL")
		for _, p := range procs {
			pid := "-"
			if p.PID > 0 {
				pid = fmt.Sprint(p.PID)
			}
			group := p.Group
			if group == "" {
				group = "-"
			}
			fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%d\t%s\n", p.Name, group, p.State, pid, p.Restarts, detail(p))
		}
		return tw.Flush()
	},
}

func detail(p control.ProcInfo) string {
	switch {
	case len(p.Waiting) > 0:
		return "waiting for " + strings.Join(p.Waiting, ", ")
	case p.Exited && p.State == "stopped":
		return fmt.Sprintf("exit %d", p.ExitCode)
	}
	return ""
}

var cmdRestart = &cobra.Command{
	Use:   "restart NAME|group:NAME",
	Short: "Restart a command or a group",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := controller().Restart(cmd.Context(), args[0], ctlTimeout); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Restarting %s\n", args[0])
		return nil
	},
}

var cmdToggle = &cobra.Command{
	Use:   "toggle NAME|group:NAME",
	Short: "Start a stopped command or group, or stop a running one",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := controller().Toggle(cmd.Context(), args[0], ctlTimeout); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Toggled %s\n", args[0])
		return nil
	},
}
