// Package mcp exposes the safety, quality, monitoring and catalog
// operations as Model Context Protocol tools, with the catalog also
// published as resources.
package mcp

import (
	"context"
	"errors"
	"fmt"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/sirupsen/logrus"

	"github.com/peptide-safety-engine/internal/domain"
	"github.com/peptide-safety-engine/internal/knowledge"
)

// CatalogSource exposes the compound catalog currently in service.
type CatalogSource interface {
	Catalog() *knowledge.Catalog
}

// Services are the operations published as tools.
type Services struct {
	Safety  domain.SafetyEvaluator
	Quality domain.QualityEvaluator
	Monitor domain.ProtocolMonitor
	Catalog CatalogSource
}

// Server represents the peptide safety MCP server
type Server struct {
	mcpServer *mcp.Server
	services  Services
	logger    *logrus.Logger
}

// NewServer creates an MCP server with every tool registered.
func NewServer(cfg domain.MCPConfig, services Services, logger *logrus.Logger) (*Server, error) {
	switch {
	case services.Safety == nil:
		return nil, errors.New("safety evaluator is required")
	case services.Quality == nil:
		return nil, errors.New("quality evaluator is required")
	case services.Monitor == nil:
		return nil, errors.New("protocol monitor is required")
	case services.Catalog == nil:
		return nil, errors.New("catalog source is required")
	}

	serverInfo := &mcp.Implementation{
		Name:    cfg.ServerName,
		Version: cfg.ServerVersion,
	}

	server := &Server{
		mcpServer: mcp.NewServer(serverInfo, nil),
		services:  services,
		logger:    logger,
	}
	server.registerTools()
	server.registerResources()
	server.registerPrompts()

	return server, nil
}

// Connect attaches the server to a single transport and returns the session.
func (s *Server) Connect(ctx context.Context, transport mcp.Transport) (*mcp.ServerSession, error) {
	return s.mcpServer.Connect(ctx, transport, nil)
}

// Run serves transport until the client disconnects or ctx is done.
func (s *Server) Run(ctx context.Context, transport mcp.Transport) error {
	s.logger.Info("Starting peptide safety MCP server")
	if err := s.mcpServer.Run(ctx, transport); err != nil && !errors.Is(err, context.Canceled) {
		return fmt.Errorf("MCP server failed: %w", err)
	}
	return nil
}

// Start serves over stdin and stdout.
func (s *Server) Start(ctx context.Context) error {
	return s.Run(ctx, &mcp.StdioTransport{})
}
