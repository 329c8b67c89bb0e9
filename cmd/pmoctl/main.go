// Command pmoctl inspects and runs the PMO tools from a terminal and can hold
// a chat with the agent.
package main

import (
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/dileep-u-k/pmo-assistant/internal/config"
	"github.com/dileep-u-k/pmo-assistant/internal/logging"
	"github.com/dileep-u-k/pmo-assistant/internal/version"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, color.RedString("Error: %v", err))
		os.Exit(1)
	}
}

// cli carries the state shared by all subcommands.
type cli struct {
	configPath string
	verbose    bool
}

func (c *cli) load() (*config.Config, *logging.Logger, error) {
	cfg, err := config.Load(c.configPath)
	if err != nil {
		return nil, nil, err
	}
	level := "warn"
	if c.verbose {
		level = "debug"
	}
	return cfg, logging.New(level), nil
}

func newRootCmd() *cobra.Command {
	c := &cli{}
	root := &cobra.Command{
		Use:           "pmoctl",
		Short:         "PMO assistant command line",
		Long:          "Inspect and run the PMO assistant tools, or chat with the PMO agent.",
		Version:       version.Get().Version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&c.configPath, "config", "", "Path to config file (default $PMO_CONFIG or config.yaml)")
	root.PersistentFlags().BoolVarP(&c.verbose, "verbose", "v", false, "Log debug output to stderr")

	root.AddCommand(toolsCmd(c), chatCmd(c))
	return root
}
