package cmd

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/Aman-CERP/ruleseek/internal/store"
	"github.com/Aman-CERP/ruleseek/internal/telemetry"
	"github.com/Aman-CERP/ruleseek/internal/ui"
)

type statsOptions struct {
	jsonOutput bool
	noColor    bool
	days       int
	recent     int
	terms      int
}

func newStatsCmd() *cobra.Command {
	var opts statsOptions

	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Show question statistics",
		Long: `Display the loaded corpus and what visitors have been asking:
  - Search mode distribution (browse/no_terms/ranked)
  - Latency distribution
  - Top question terms
  - Questions that found nothing
  - Most recent questions`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runStats(cmd.Context(), cmd, opts)
		},
	}

	cmd.Flags().BoolVar(&opts.jsonOutput, "json", false, "Output as JSON")
	cmd.Flags().BoolVar(&opts.noColor, "no-color", false, "Disable colored output")
	cmd.Flags().IntVar(&opts.days, "days", 7, "Number of days of mode and latency counts to include")
	cmd.Flags().IntVar(&opts.recent, "recent", 10, "Number of recent questions to show")
	cmd.Flags().IntVar(&opts.terms, "terms", 10, "Number of top terms to show")

	return cmd
}

func runStats(ctx context.Context, cmd *cobra.Command, opts statsOptions) error {
	svc, cleanup, err := openReadOnlyService(ctx)
	if err != nil {
		return err
	}
	defer cleanup()

	snap := svc.rules.Snapshot()
	info := ui.StatsInfo{
		RulesCount:  snap.Len(),
		RulesSource: string(snap.Source),
		Categories:  len(snap.Categories()),
	}

	path := svc.cfg.HistoryPath()
	if _, err := os.Stat(path); err == nil {
		if err := readHistoryStats(ctx, path, opts, &info); err != nil {
			return err
		}
	}

	r := ui.NewStatsRenderer(cmd.OutOrStdout(), opts.noColor || !ui.Detect(cmd.OutOrStdout()).Color())
	if opts.jsonOutput {
		return r.RenderJSON(info)
	}
	return r.Render(info)
}

// readHistoryStats fills info from the history database at path.
func readHistoryStats(ctx context.Context, path string, opts statsOptions, info *ui.StatsInfo) error {
	db, err := store.Open(path)
	if err != nil {
		return fmt.Errorf("failed to open history database: %w", err)
	}
	defer func() { _ = db.Close() }()

	info.HistoryPath = db.Path()
	if v, err := db.Version(ctx); err == nil {
		info.SchemaVersion = v
	}

	ms, err := telemetry.NewSQLiteMetricsStore(db.SQL())
	if err != nil {
		return fmt.Errorf("failed to open metrics store: %w", err)
	}
	days := max(opts.days, 1)
	to := time.Now()
	from := to.AddDate(0, 0, -(days - 1))
	fromKey, toKey := from.Format("2006-01-02"), to.Format("2006-01-02")

	if info.ModeCounts, err = ms.GetModeCounts(fromKey, toKey); err != nil {
		return fmt.Errorf("get mode counts: %w", err)
	}
	if info.LatencyCounts, err = ms.GetLatencyCounts(fromKey, toKey); err != nil {
		return fmt.Errorf("get latency counts: %w", err)
	}
	if info.TopTerms, err = ms.GetTopTerms(opts.terms); err != nil {
		return fmt.Errorf("get top terms: %w", err)
	}
	if info.ZeroResults, err = ms.GetZeroResultQueries(opts.terms); err != nil {
		return fmt.Errorf("get zero-result queries: %w", err)
	}

	history, err := store.NewHistory(db.SQL())
	if err != nil {
		return err
	}
	defer func() { _ = history.Close() }()
	if info.HistoryCount, err = history.Count(ctx); err != nil {
		return fmt.Errorf("count history: %w", err)
	}
	if info.Recent, err = history.Recent(ctx, opts.recent); err != nil {
		return fmt.Errorf("read recent questions: %w", err)
	}
	return nil
}
