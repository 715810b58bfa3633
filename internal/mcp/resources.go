package mcp

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// Resource URIs.
const (
	RulesURI        = "ruleseek://rules"
	QueryMetricsURI = "ruleseek://query_metrics"
)

// QueryMetricsOutput is the JSON structure for the query_metrics resource.
type QueryMetricsOutput struct {
	Summary             QueryMetricsSummary `json:"summary"`
	ModeCounts          map[string]int64    `json:"mode_counts"`
	TopTerms            []QueryTermCount    `json:"top_terms"`
	ZeroResultQueries   []string            `json:"zero_result_queries"`
	LatencyDistribution map[string]int64    `json:"latency_distribution"`
}

// QueryMetricsSummary provides overview statistics.
type QueryMetricsSummary struct {
	TotalQueries  int64   `json:"total_queries"`
	Since         string  `json:"since"`
	ZeroResultPct float64 `json:"zero_result_pct"`
}

// QueryTermCount is a term and its frequency.
type QueryTermCount struct {
	Term  string `json:"term"`
	Count int64  `json:"count"`
}

func (s *Server) registerResources() {
	s.mcp.AddResource(
		&mcp.Resource{
			Name:        "rules",
			URI:         RulesURI,
			Description: "The full rules corpus currently served",
			MIMEType:    "application/json",
		},
		func(ctx context.Context, _ *mcp.ReadResourceRequest) (*mcp.ReadResourceResult, error) {
			return s.readRules(ctx)
		},
	)

	if s.metrics != nil {
		s.mcp.AddResource(
			&mcp.Resource{
				Name:        "query_metrics",
				URI:         QueryMetricsURI,
				Description: "Question telemetry: modes, top terms, zero-result questions, latency",
				MIMEType:    "application/json",
			},
			func(ctx context.Context, _ *mcp.ReadResourceRequest) (*mcp.ReadResourceResult, error) {
				return s.readQueryMetrics(ctx)
			},
		)
	}
}

// ReadResource reads a resource by URI.
func (s *Server) ReadResource(ctx context.Context, uri string) (*mcp.ReadResourceResult, error) {
	switch uri {
	case RulesURI:
		return s.readRules(ctx)
	case QueryMetricsURI:
		return s.readQueryMetrics(ctx)
	default:
		return nil, NewResourceNotFoundError(uri)
	}
}

func (s *Server) readRules(ctx context.Context) (*mcp.ReadResourceResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, MapError(err)
	}
	snap := s.engine.Store().Snapshot()
	return jsonResource(RulesURI, snap.Rules)
}

func (s *Server) readQueryMetrics(ctx context.Context) (*mcp.ReadResourceResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, MapError(err)
	}
	if s.metrics == nil {
		return nil, NewInvalidParamsError("query metrics not available")
	}

	snapshot := s.metrics.Snapshot()
	output := QueryMetricsOutput{
		Summary: QueryMetricsSummary{
			TotalQueries:  snapshot.TotalQueries,
			Since:         snapshot.Since.UTC().Format("2006-01-02T15:04:05Z07:00"),
			ZeroResultPct: snapshot.ZeroResultPercentage(),
		},
		ModeCounts:          make(map[string]int64, len(snapshot.ModeCounts)),
		TopTerms:            make([]QueryTermCount, 0, len(snapshot.TopTerms)),
		ZeroResultQueries:   snapshot.ZeroResultQueries,
		LatencyDistribution: make(map[string]int64, len(snapshot.LatencyDistribution)),
	}
	for mode, count := range snapshot.ModeCounts {
		output.ModeCounts[string(mode)] = count
	}
	for _, tc := range snapshot.TopTerms {
		output.TopTerms = append(output.TopTerms, QueryTermCount{Term: tc.Term, Count: tc.Count})
	}
	for bucket, count := range snapshot.LatencyDistribution {
		output.LatencyDistribution[string(bucket)] = count
	}

	return jsonResource(QueryMetricsURI, output)
}

func jsonResource(uri string, v any) (*mcp.ReadResourceResult, error) {
	content, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, MapError(fmt.Errorf("marshal %s: %w", uri, err))
	}
	return &mcp.ReadResourceResult{
		Contents: []*mcp.ResourceContents{
			{
				URI:      uri,
				MIMEType: "application/json",
				Text:     string(content),
			},
		},
	}, nil
}
