package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Aman-CERP/ruleseek/internal/output"
	"github.com/Aman-CERP/ruleseek/internal/search"
)

type rulesOptions struct {
	category string
	search   string
	format   string
}

func newRulesCmd() *cobra.Command {
	var opts rulesOptions

	cmd := &cobra.Command{
		Use:   "rules",
		Short: "List the loaded rules",
		Long: `List every loaded rule, optionally limited to one category.

With --search the listing is replaced by a ranked search, as in the
web page's rules tab.`,
		Example: `  ruleseek rules
  ruleseek rules --category "Внешний вид"
  ruleseek rules --search склад --format json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runRules(cmd.Context(), cmd, opts)
		},
	}

	cmd.Flags().StringVar(&opts.category, "category", "", "Only rules in this category")
	cmd.Flags().StringVar(&opts.search, "search", "", "Rank rules against this question instead")
	cmd.Flags().StringVarP(&opts.format, "format", "f", "text", "Output format: text, json")

	return cmd
}

func runRules(ctx context.Context, cmd *cobra.Command, opts rulesOptions) error {
	if opts.format != "text" && opts.format != "json" {
		return fmt.Errorf("invalid format %q: use text or json", opts.format)
	}
	svc, cleanup, err := openReadOnlyService(ctx)
	if err != nil {
		return err
	}
	defer cleanup()

	list, err := svc.engine.Rules(ctx, opts.category, opts.search)
	if err != nil {
		return err
	}

	out := output.New(cmd.OutOrStdout())
	if opts.format == "json" {
		if list == nil {
			list = []search.ScoredRule{}
		}
		return out.JSON(list)
	}
	if len(list) == 0 {
		out.Warning("Правила не найдены")
		return nil
	}
	out.Rules(list)
	out.Statusf("📋", "Всего: %d", len(list))
	return nil
}

func newCategoriesCmd() *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "categories",
		Short: "List rule categories",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			svc, cleanup, err := openReadOnlyService(cmd.Context())
			if err != nil {
				return err
			}
			defer cleanup()

			categories := svc.engine.Categories()
			out := output.New(cmd.OutOrStdout())
			if jsonOutput {
				if categories == nil {
					categories = []string{}
				}
				return out.JSON(categories)
			}
			out.List(categories)
			return nil
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output as JSON")
	return cmd
}

// openReadOnlyService loads the rules for a one-shot command. Logs go
// to the log file only.
func openReadOnlyService(ctx context.Context) (*service, func(), error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, nil, err
	}
	logger, logCleanup, err := setupLogging(cfg, false)
	if err != nil {
		return nil, nil, err
	}
	svc, err := newService(ctx, cfg, logger, false)
	if err != nil {
		logCleanup()
		return nil, nil, err
	}
	return svc, func() {
		_ = svc.Close(ctx)
		logCleanup()
	}, nil
}
