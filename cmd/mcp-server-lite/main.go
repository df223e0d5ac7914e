// Package main provides the standalone MCP entry point. It needs no external
// services: the catalog is built in or read from a file, and consent is kept
// in SQLite under the data directory.
package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/peptide-safety-engine/internal/bootstrap"
	"github.com/peptide-safety-engine/internal/config"
	"github.com/peptide-safety-engine/internal/domain"
	"github.com/peptide-safety-engine/internal/logging"
	"github.com/peptide-safety-engine/internal/mcp"
	"github.com/peptide-safety-engine/internal/setup"
)

const serverVersion = "1.0.0"

func main() {
	if len(os.Args) > 1 && os.Args[1] == "setup" {
		if err := setup.NewCLI(os.Stdout).Run(os.Args[2:]); err != nil {
			log.Fatalf("Setup failed: %v", err)
		}
		return
	}

	cfg := config.LoadLiteConfig()

	// stdout carries the protocol stream
	logger, err := logging.New(domain.LoggingConfig{
		Level:  cfg.LogLevel,
		Format: cfg.LogFormat,
		Output: logging.OutputStderr,
	})
	if err != nil {
		log.Fatalf("Failed to configure logging: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	components, err := bootstrap.BuildLite(ctx, cfg, logger)
	if err != nil {
		logger.WithError(err).Fatal("Failed to initialize services")
	}

	server, err := mcp.NewServer(domain.MCPConfig{
		ServerName:    setup.ServerName,
		ServerVersion: serverVersion,
	}, mcp.Services{
		Safety:  components.Safety,
		Quality: components.Quality,
		Monitor: components.Monitor,
		Catalog: components.Catalog,
	}, logger)
	if err != nil {
		components.Close()
		logger.WithError(err).Fatal("Failed to create MCP server")
	}

	logger.WithField("data_dir", cfg.DataDir).Info("Starting standalone MCP server")

	err = server.Start(ctx)
	if closeErr := components.Close(); closeErr != nil {
		logger.WithError(closeErr).Warn("Failed to release resources")
	}
	if err != nil {
		logger.WithError(err).Error("MCP server failed")
		os.Exit(1)
	}
	logger.Info("Standalone MCP server stopped")
}
