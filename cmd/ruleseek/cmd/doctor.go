package cmd

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/Aman-CERP/ruleseek/internal/preflight"
)

func newDoctorCmd() *cobra.Command {
	var (
		verbose    bool
		jsonOutput bool
		running    bool
	)

	cmd := &cobra.Command{
		Use:   "doctor",
		Short: "Check the installation and diagnose issues",
		Long: `Run diagnostics to ensure ruleseek can start and serve.

Checks:
  - Rules source (rules.json, demo file, built-in rules)
  - Data directory write permissions and free space
  - File descriptor limit
  - Listen address availability
  - History database integrity
  - Discord webhook URL

Use --verbose for detailed diagnostic information.
Use --json for machine-readable output.`,
		Example: `  ruleseek doctor
  ruleseek doctor --verbose
  ruleseek doctor --json --running`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runDoctor(cmd, verbose, jsonOutput, running)
		},
	}

	cmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "Show detailed diagnostic info")
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output as JSON")
	cmd.Flags().BoolVar(&running, "running", false, "Skip the listen address check (server already running)")

	return cmd
}

func runDoctor(cmd *cobra.Command, verbose, jsonOutput, running bool) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	target := preflight.Target{
		DataDir:   cfg.DataDir,
		RulesPath: cfg.Rules.Path,
		DemoPath:  cfg.Rules.DemoPath,
		Category:  cfg.Rules.DefaultCategory,
		Addr:      cfg.Server.Addr,
	}
	if cfg.History.Enabled {
		target.HistoryPath = cfg.HistoryPath()
	}
	if cfg.NotifyEnabled() {
		target.WebhookURL = cfg.Notify.DiscordWebhookURL
	}

	checker := preflight.New(
		preflight.WithVerbose(verbose),
		preflight.WithSkipListen(running),
		preflight.WithOutput(cmd.OutOrStdout()),
	)
	results := checker.RunAll(ctx, target)

	if jsonOutput {
		if err := outputDoctorJSON(cmd, checker, results); err != nil {
			return err
		}
	} else {
		checker.PrintResults(results)
	}

	if checker.HasCriticalFailures(results) {
		return errDoctorFailed
	}
	return nil
}

var errDoctorFailed = errors.New("system check failed")

// DoctorOutput is the JSON output of `ruleseek doctor --json`.
type DoctorOutput struct {
	Status   string              `json:"status"`
	Checks   []DoctorCheckResult `json:"checks"`
	Warnings []string            `json:"warnings,omitempty"`
	Errors   []string            `json:"errors,omitempty"`
}

// DoctorCheckResult is a single check result for JSON output.
type DoctorCheckResult struct {
	Name     string `json:"name"`
	Status   string `json:"status"`
	Message  string `json:"message"`
	Required bool   `json:"required"`
	Details  string `json:"details,omitempty"`
}

func outputDoctorJSON(cmd *cobra.Command, checker *preflight.Checker, results []preflight.CheckResult) error {
	out := DoctorOutput{
		Status: checker.SummaryStatus(results),
		Checks: make([]DoctorCheckResult, len(results)),
	}

	for i, r := range results {
		out.Checks[i] = DoctorCheckResult{
			Name:     r.Name,
			Status:   strings.ToLower(r.Status.String()),
			Message:  r.Message,
			Required: r.Required,
			Details:  r.Details,
		}
		if r.IsCritical() {
			out.Errors = append(out.Errors, r.Name+": "+r.Message)
		} else if r.Status != preflight.StatusPass {
			out.Warnings = append(out.Warnings, r.Name+": "+r.Message)
		}
	}

	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(out)
}
