package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	mcpserver "github.com/Aman-CERP/ruleseek/internal/mcp"
	"github.com/Aman-CERP/ruleseek/internal/output"
	"github.com/Aman-CERP/ruleseek/internal/profiling"
	"github.com/Aman-CERP/ruleseek/internal/search"
)

// searchOptions holds CLI flags for search.
type searchOptions struct {
	format     string // "text", "json"
	explain    bool
	cpuProfile string
	memProfile string
}

func newSearchCmd() *cobra.Command {
	var opts searchOptions

	cmd := &cobra.Command{
		Use:   "search <question>",
		Short: "Find the rules that answer a question",
		Long: `Rank the rules against a question and print the best matches.

Words shorter than three letters are ignored. At most five rules are
printed, each with its relevance.`,
		Example: `  ruleseek search "форма одежды"
  ruleseek search изъятие предметов --format json
  ruleseek search "green зона" --explain`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSearch(cmd.Context(), cmd, strings.Join(args, " "), opts)
		},
	}

	cmd.Flags().StringVarP(&opts.format, "format", "f", "text", "Output format: text, json")
	cmd.Flags().BoolVar(&opts.explain, "explain", false, "Show how each rule was scored")
	cmd.Flags().StringVar(&opts.cpuProfile, "cpuprofile", "", "Write a CPU profile to this file")
	cmd.Flags().StringVar(&opts.memProfile, "memprofile", "", "Write a heap profile to this file")

	return cmd
}

func runSearch(ctx context.Context, cmd *cobra.Command, question string, opts searchOptions) (err error) {
	if opts.format != "text" && opts.format != "json" {
		return fmt.Errorf("invalid format %q: use text or json", opts.format)
	}

	prof := &profiling.Profiler{CPUPath: opts.cpuProfile, HeapPath: opts.memProfile}
	if err := prof.Start(); err != nil {
		return err
	}
	defer func() {
		if stopErr := prof.Stop(); stopErr != nil && err == nil {
			err = stopErr
		}
	}()

	svc, cleanup, err := openReadOnlyService(ctx)
	if err != nil {
		return err
	}
	defer cleanup()
	logger := svc.logger

	logger.Info("search_started", slog.String("query", question))
	answer, err := svc.engine.Ask(ctx, question)
	if err != nil {
		return err
	}
	logger.Info("search_complete",
		slog.String("mode", string(answer.Mode)),
		slog.Int("results", answer.TotalFound))

	out := output.New(cmd.OutOrStdout())
	if opts.format == "json" {
		return out.JSON(mcpserver.ToSearchRulesOutput(answer))
	}

	out.Answer(answer)
	if opts.explain {
		printExplain(cmd, answer)
	}
	return nil
}

// printExplain prints the score components of every ranked rule.
func printExplain(cmd *cobra.Command, a *search.Answer) {
	w := cmd.OutOrStdout()
	for _, r := range a.Rules {
		if !r.Scored {
			continue
		}
		b := search.Explain(r.Rule, a.Question)
		_, _ = fmt.Fprintf(w, "%s: score %d = phrase %d + terms %d + content %d + prefix %d",
			r.Point, b.Total(), b.Phrase, b.Terms, b.Content, b.Prefix)
		keys := make([]string, 0, len(b.Keywords))
		for k := range b.Keywords {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			_, _ = fmt.Fprintf(w, " + %s %d", k, b.Keywords[k])
		}
		_, _ = fmt.Fprintln(w)
	}
}
