package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"procmux/internal/config"
)

func init() {
	rootCmd.AddCommand(cmdInit)
}

var cmdInit = &cobra.Command{
	Use:   "init [path]",
	Short: "Write a starter config file (default procmux.yaml)",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		path := "procmux.yaml"
		if len(args) == 1 {
			path = args[0]
		}
		if err := config.WriteStarter(path); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s\n", path)
		return nil
	},
}
