package main

import (
	"os"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "procmux [flags] [GROUP:]NAME[@DEP,...]=COMMAND[:: {DEP: 'pattern'}] ...",
	Short: "procmux: run several commands side by side",
	Long: `procmux starts every configured command, waits for dependencies to report
readiness, and shows their output in one terminal. Commands come from a config
file (--config) and/or positional definitions.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE:          runSupervisor,
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		log.NewWithOptions(os.Stderr, log.Options{Prefix: "procmux"}).Fatal(err)
	}
}
