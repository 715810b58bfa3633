package mcp

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/Aman-CERP/ruleseek/internal/search"
	"github.com/Aman-CERP/ruleseek/internal/telemetry"
	"github.com/Aman-CERP/ruleseek/pkg/version"
)

// Tool names.
const (
	ToolSearchRules    = "search_rules"
	ToolListCategories = "list_categories"
	ToolRulesStatus    = "rules_status"
)

// Server bridges MCP clients with the rules search engine.
type Server struct {
	mcp     *mcp.Server
	engine  *search.Engine
	metrics *telemetry.QueryMetrics
	logger  *slog.Logger
}

// ToolInfo describes a registered tool.
type ToolInfo struct {
	Name        string
	Description string
}

// Option configures the server.
type Option func(*Server)

// WithMetrics exposes query telemetry as the query_metrics resource.
func WithMetrics(m *telemetry.QueryMetrics) Option {
	return func(s *Server) { s.metrics = m }
}

func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// NewServer creates an MCP server over engine.
func NewServer(engine *search.Engine, opts ...Option) (*Server, error) {
	if engine == nil {
		return nil, errors.New("search engine is required")
	}

	s := &Server{
		engine: engine,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}

	s.mcp = mcp.NewServer(
		&mcp.Implementation{
			Name:    version.Name,
			Version: version.Version,
		},
		nil,
	)

	s.registerTools()
	s.registerResources()
	return s, nil
}

// MCPServer returns the underlying SDK server.
func (s *Server) MCPServer() *mcp.Server {
	return s.mcp
}

// ListTools returns the registered tools.
func (s *Server) ListTools() []ToolInfo {
	return []ToolInfo{
		{
			Name:        ToolSearchRules,
			Description: "Find the rules relevant to a question. Returns up to 5 rules ranked by relevance, or the first 10 rules for a blank question.",
		},
		{
			Name:        ToolListCategories,
			Description: "List the rule categories in corpus order.",
		},
		{
			Name:        ToolRulesStatus,
			Description: "Report how many rules are loaded, where they came from and the corpus version.",
		},
	}
}

// CallTool invokes a tool by name. search_rules returns markdown; the
// other tools return their structured output.
func (s *Server) CallTool(ctx context.Context, name string, args map[string]any) (any, error) {
	switch name {
	case ToolSearchRules:
		query, ok := args["query"].(string)
		if !ok {
			return nil, NewInvalidParamsError("query parameter is required and must be a string")
		}
		answer, err := s.ask(ctx, query)
		if err != nil {
			return nil, err
		}
		return FormatAnswer(answer), nil
	case ToolListCategories:
		return s.listCategories(ctx)
	case ToolRulesStatus:
		return s.status(ctx)
	default:
		return nil, NewMethodNotFoundError(name)
	}
}

func (s *Server) registerTools() {
	tools := s.ListTools()
	mcp.AddTool(s.mcp, &mcp.Tool{Name: tools[0].Name, Description: tools[0].Description}, s.mcpSearchRulesHandler)
	mcp.AddTool(s.mcp, &mcp.Tool{Name: tools[1].Name, Description: tools[1].Description}, s.mcpListCategoriesHandler)
	mcp.AddTool(s.mcp, &mcp.Tool{Name: tools[2].Name, Description: tools[2].Description}, s.mcpRulesStatusHandler)
	s.logger.Debug("MCP tools registered", slog.Int("count", len(tools)))
}

func (s *Server) mcpSearchRulesHandler(ctx context.Context, _ *mcp.CallToolRequest, input SearchRulesInput) (
	*mcp.CallToolResult,
	SearchRulesOutput,
	error,
) {
	answer, err := s.ask(ctx, input.Query)
	if err != nil {
		return nil, SearchRulesOutput{}, err
	}
	return nil, ToSearchRulesOutput(answer), nil
}

func (s *Server) mcpListCategoriesHandler(ctx context.Context, _ *mcp.CallToolRequest, _ ListCategoriesInput) (
	*mcp.CallToolResult,
	*ListCategoriesOutput,
	error,
) {
	out, err := s.listCategories(ctx)
	if err != nil {
		return nil, nil, err
	}
	return nil, out, nil
}

func (s *Server) mcpRulesStatusHandler(ctx context.Context, _ *mcp.CallToolRequest, _ RulesStatusInput) (
	*mcp.CallToolResult,
	*RulesStatusOutput,
	error,
) {
	out, err := s.status(ctx)
	if err != nil {
		return nil, nil, err
	}
	return nil, out, nil
}

func (s *Server) ask(ctx context.Context, query string) (*search.Answer, error) {
	requestID := generateRequestID()
	start := time.Now()

	answer, err := s.engine.Ask(ctx, query)
	if err != nil {
		s.logger.WarnContext(ctx, "MCP search failed",
			slog.String("request_id", requestID),
			slog.String("error", err.Error()))
		return nil, MapError(err)
	}

	s.logger.InfoContext(ctx, "MCP search",
		slog.String("request_id", requestID),
		slog.String("mode", string(answer.Mode)),
		slog.Int("found", answer.TotalFound),
		slog.Duration("elapsed", time.Since(start)))
	return answer, nil
}

func (s *Server) listCategories(ctx context.Context) (*ListCategoriesOutput, error) {
	if err := ctx.Err(); err != nil {
		return nil, MapError(err)
	}
	categories := s.engine.Categories()
	if categories == nil {
		categories = []string{}
	}
	return &ListCategoriesOutput{Categories: categories}, nil
}

func (s *Server) status(ctx context.Context) (*RulesStatusOutput, error) {
	if err := ctx.Err(); err != nil {
		return nil, MapError(err)
	}
	snap := s.engine.Store().Snapshot()
	out := &RulesStatusOutput{
		Status:        "ready",
		RulesCount:    snap.Len(),
		Categories:    len(snap.Categories()),
		Source:        string(snap.Source),
		CorpusVersion: snap.Version,
		Version:       version.Version,
	}
	if !snap.LoadedAt.IsZero() {
		out.LoadedAt = snap.LoadedAt.UTC().Format(time.RFC3339)
	}
	if out.RulesCount == 0 {
		out.Status = "empty"
	}
	return out, nil
}

// Run serves MCP over stdio until ctx is canceled.
func (s *Server) Run(ctx context.Context) error {
	s.logger.Info("Starting MCP server", slog.String("transport", "stdio"))
	err := s.mcp.Run(ctx, &mcp.StdioTransport{})
	if err != nil && !errors.Is(err, context.Canceled) {
		s.logger.Error("MCP server stopped with error", slog.String("error", err.Error()))
		return err
	}
	s.logger.Info("MCP server stopped gracefully")
	return nil
}

// HTTPHandler returns a streamable HTTP handler for mounting on the API
// server.
func (s *Server) HTTPHandler() http.Handler {
	return mcp.NewStreamableHTTPHandler(func(*http.Request) *mcp.Server {
		return s.mcp
	}, nil)
}

// generateRequestID creates a short id for log correlation.
func generateRequestID() string {
	b := make([]byte, 4)
	_, _ = rand.Read(b)
	return hex.EncodeToString(b)
}
