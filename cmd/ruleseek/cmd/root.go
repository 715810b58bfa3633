// Package cmd provides the CLI commands for ruleseek.
package cmd

import (
	"github.com/spf13/cobra"

	"github.com/Aman-CERP/ruleseek/pkg/version"
)

// Global flags
var (
	debugMode bool
	workDir   string
)

// NewRootCmd creates the root command for the ruleseek CLI.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "ruleseek",
		Short: "Rules lookup service",
		Long: `ruleseek answers questions about a community's rules.

It loads the rules from rules.json (or the demo rules), ranks them against
a question and serves the results over a JSON API, an MCP endpoint and
the command line.

Run 'ruleseek' with no arguments to start the server.`,
		Version:       version.Version,
		SilenceUsage:  true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) > 0 {
				return cmd.Help()
			}
			return runServe(cmd.Context(), serveOptions{})
		},
	}

	cmd.SetVersionTemplate("ruleseek version {{.Version}}\n")

	cmd.PersistentFlags().BoolVar(&debugMode, "debug", false, "Enable debug logging")
	cmd.PersistentFlags().StringVarP(&workDir, "dir", "C", "", "Directory holding rules.json and .ruleseek.yaml (default: current directory)")

	cmd.AddCommand(newServeCmd())
	cmd.AddCommand(newSearchCmd())
	cmd.AddCommand(newRulesCmd())
	cmd.AddCommand(newCategoriesCmd())
	cmd.AddCommand(newBrowseCmd())
	cmd.AddCommand(newStatsCmd())
	cmd.AddCommand(newDoctorCmd())
	cmd.AddCommand(newConfigCmd())
	cmd.AddCommand(newMCPCmd())
	cmd.AddCommand(newLogsCmd())
	cmd.AddCommand(newVersionCmd())

	return cmd
}

// Execute runs the root command.
func Execute() error {
	return NewRootCmd().Execute()
}
