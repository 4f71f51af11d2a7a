package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"procmux/internal/config"
)

func init() {
	rootCmd.AddCommand(cmdCheck)
}

// `procmux check` validates the configuration without starting anything.
var cmdCheck = &cobra.Command{
	Use:   "check [command definitions...]",
	Short: "Validate the configuration and print the startup order",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(config.Options{
			Args:          args,
			ConfigPath:    configPath,
			ControlSocket: controlSocket,
		})
		if err != nil {
			return err
		}
		order, err := config.StartupOrder(cfg)
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		for i, name := range order {
			spec, _ := cfg.Command(name)
			line := fmt.Sprintf("%2d. %s", i+1, name)
			if spec.Group != "" {
				line += " [" + spec.Group + "]"
			}
			if len(spec.DependsOn) > 0 {
				line += " after " + strings.Join(spec.DependsOn, ", ")
			}
			fmt.Fprintln(out, line)
		}
		fmt.Fprintf(out, "buffer size %d, restart grace %s\n", cfg.BufferSize, cfg.RestartGrace)
		if cfg.LogFile != "" {
			fmt.Fprintf(out, "log file %s\n", cfg.LogFile)
		}
		return nil
	},
}
