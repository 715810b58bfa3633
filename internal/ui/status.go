package ui

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strings"
	"time"

	"github.com/Aman-CERP/ruleseek/internal/store"
	"github.com/Aman-CERP/ruleseek/internal/telemetry"
)

// StatsInfo is everything `ruleseek stats` reports.
type StatsInfo struct {
	RulesCount    int    `json:"rules_count"`
	RulesSource   string `json:"rules_source"`
	Categories    int    `json:"categories"`
	HistoryPath   string `json:"history_path"`
	HistoryCount  int    `json:"history_count"`
	SchemaVersion int    `json:"schema_version"`

	ModeCounts    map[telemetry.QueryMode]int64     `json:"mode_counts"`
	LatencyCounts map[telemetry.LatencyBucket]int64 `json:"latency_counts"`
	TopTerms      []telemetry.TermCount             `json:"top_terms"`
	ZeroResults   []string                          `json:"zero_result_queries"`
	Recent        []store.Entry                     `json:"recent"`
}

// LatencyBuckets lists histogram buckets in ascending order.
var LatencyBuckets = []telemetry.LatencyBucket{
	telemetry.BucketSub1ms,
	telemetry.Bucket5ms,
	telemetry.Bucket20ms,
	telemetry.Bucket100ms,
	telemetry.BucketOver100,
}

// StatsRenderer writes the stats report.
type StatsRenderer struct {
	out    io.Writer
	styles Styles
	now    func() time.Time
}

// NewStatsRenderer creates a stats renderer.
func NewStatsRenderer(out io.Writer, noColor bool) *StatsRenderer {
	return &StatsRenderer{out: out, styles: GetStyles(noColor), now: time.Now}
}

// Render writes the human-readable report.
func (r *StatsRenderer) Render(info StatsInfo) error {
	var sb strings.Builder
	s := r.styles

	fmt.Fprintf(&sb, "%s\n\n", s.Header.Render("ruleseek stats"))
	fmt.Fprintf(&sb, "  %s %d (%s, %d categories)\n", s.Label.Render("Rules:     "), info.RulesCount, info.RulesSource, info.Categories)
	fmt.Fprintf(&sb, "  %s %d\n", s.Label.Render("Questions: "), info.HistoryCount)
	if info.HistoryPath != "" {
		fmt.Fprintf(&sb, "  %s %s (schema v%d)\n", s.Label.Render("Database:  "), info.HistoryPath, info.SchemaVersion)
	}
	sb.WriteString("\n")

	var total int64
	for _, c := range info.ModeCounts {
		total += c
	}
	if total > 0 {
		sb.WriteString("  Modes:\n")
		modes := make([]string, 0, len(info.ModeCounts))
		for m := range info.ModeCounts {
			modes = append(modes, string(m))
		}
		sort.Strings(modes)
		for _, m := range modes {
			c := info.ModeCounts[telemetry.QueryMode(m)]
			fmt.Fprintf(&sb, "    %-9s %s %d\n", m, s.Bar.Render(Bar(c, total, 20)), c)
		}
		sb.WriteString("\n")
	}

	if len(info.LatencyCounts) > 0 {
		values := make([]int64, len(LatencyBuckets))
		labels := make([]string, len(LatencyBuckets))
		for i, b := range LatencyBuckets {
			values[i] = info.LatencyCounts[b]
			labels[i] = fmt.Sprintf("%s=%d", b, values[i])
		}
		fmt.Fprintf(&sb, "  Latency: %s  %s\n\n", s.Bar.Render(Sparkline(values)), s.Dim.Render(strings.Join(labels, " ")))
	}

	if len(info.TopTerms) > 0 {
		sb.WriteString("  Top terms:\n")
		for _, tc := range info.TopTerms {
			fmt.Fprintf(&sb, "    %-20s %d\n", tc.Term, tc.Count)
		}
		sb.WriteString("\n")
	}

	if len(info.ZeroResults) > 0 {
		sb.WriteString("  Unanswered:\n")
		for _, q := range info.ZeroResults {
			fmt.Fprintf(&sb, "    %s\n", s.Warning.Render(q))
		}
		sb.WriteString("\n")
	}

	if len(info.Recent) > 0 {
		sb.WriteString("  Recent:\n")
		for _, e := range info.Recent {
			points := "-"
			if len(e.TopPoints) > 0 {
				points = strings.Join(e.TopPoints, ",")
			}
			fmt.Fprintf(&sb, "    %s  %-40s %2d  %s\n",
				s.Dim.Render(formatTime(e.AskedAt, r.now())), e.Question, e.ResultCount, s.Point.Render(points))
		}
	}

	_, err := io.WriteString(r.out, sb.String())
	return err
}

// RenderJSON writes the report as JSON.
func (r *StatsRenderer) RenderJSON(info StatsInfo) error {
	enc := json.NewEncoder(r.out)
	enc.SetIndent("", "  ")
	return enc.Encode(info)
}

// formatTime formats t relative to now.
func formatTime(t, now time.Time) string {
	diff := now.Sub(t)
	switch {
	case diff < time.Minute:
		return "just now"
	case diff < time.Hour:
		mins := int(diff.Minutes())
		if mins == 1 {
			return "1 minute ago"
		}
		return fmt.Sprintf("%d minutes ago", mins)
	case diff < 24*time.Hour:
		hours := int(diff.Hours())
		if hours == 1 {
			return "1 hour ago"
		}
		return fmt.Sprintf("%d hours ago", hours)
	case diff < 7*24*time.Hour:
		days := int(diff.Hours() / 24)
		if days == 1 {
			return "1 day ago"
		}
		return fmt.Sprintf("%d days ago", days)
	default:
		return t.Format("2006-01-02 15:04")
	}
}
