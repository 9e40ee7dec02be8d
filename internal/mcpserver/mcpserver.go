// Package mcpserver exposes the report pipeline as Model Context Protocol
// tools over stdio.
package mcpserver

import (
	"context"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/panbanda/quarterly/internal/report"
	"github.com/panbanda/quarterly/pkg/config"
)

// Server wraps the MCP server and the collaborators its tools need.
type Server struct {
	server     *mcp.Server
	cfg        *config.Config
	source     report.Source
	clientsDir string
	version    string
}

// Option configures a Server.
type Option func(*Server)

// WithConfig sets thresholds, benchmarks and limits used by the tools.
func WithConfig(cfg *config.Config) Option {
	return func(s *Server) {
		if cfg != nil {
			s.cfg = cfg
		}
	}
}

// WithSource enables analyze_report by supplying snapshot data.
func WithSource(src report.Source) Option {
	return func(s *Server) {
		s.source = src
	}
}

// WithClientsDir sets where client profiles are read from.
func WithClientsDir(dir string) Option {
	return func(s *Server) {
		s.clientsDir = dir
	}
}

// NewServer creates an MCP server with all report tools registered.
func NewServer(version string, opts ...Option) *Server {
	if version == "" {
		version = "dev"
	}
	s := &Server{
		cfg:     config.DefaultConfig(),
		version: version,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.clientsDir == "" {
		s.clientsDir = s.cfg.Data.ClientsDir
	}

	s.server = mcp.NewServer(
		&mcp.Implementation{
			Name:    "quarterly",
			Version: version,
		},
		nil,
	)
	s.registerTools()
	s.registerPrompts()
	return s
}

// Run serves over stdio until ctx is done or the client disconnects.
func (s *Server) Run(ctx context.Context) error {
	return s.server.Run(ctx, &mcp.StdioTransport{})
}

func (s *Server) registerTools() {
	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "resolve_periods",
		Description: describeResolvePeriods(),
	}, s.handleResolvePeriods)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "calculate_change",
		Description: describeCalculateChange(),
	}, s.handleCalculateChange)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "compare_benchmarks",
		Description: describeCompareBenchmarks(),
	}, s.handleCompareBenchmarks)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "generate_insights",
		Description: describeGenerateInsights(),
	}, s.handleGenerateInsights)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "list_clients",
		Description: describeListClients(),
	}, s.handleListClients)

	// Needs snapshot data on disk.
	if s.source != nil {
		mcp.AddTool(s.server, &mcp.Tool{
			Name:        "analyze_report",
			Description: describeAnalyzeReport(),
		}, s.handleAnalyzeReport)
	}
}
