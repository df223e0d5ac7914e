// Package main provides the MCP entry point backed by the full configuration:
// PostgreSQL, Redis and the configured catalog source.
package main

import (
	"context"
	"errors"
	"io/fs"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/peptide-safety-engine/internal/bootstrap"
	"github.com/peptide-safety-engine/internal/config"
	"github.com/peptide-safety-engine/internal/logging"
	"github.com/peptide-safety-engine/internal/mcp"
)

func main() {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		log.Fatalf("Failed to load .env file: %v", err)
	}

	configManager, err := config.NewManager()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	if err := configManager.Validate(); err != nil {
		log.Fatalf("Configuration validation failed: %v", err)
	}

	cfg := configManager.GetConfig()

	// stdout carries the protocol stream
	loggingCfg := cfg.Logging
	if loggingCfg.Output == "" || loggingCfg.Output == logging.OutputStdout {
		loggingCfg.Output = logging.OutputStderr
	}
	logger, err := logging.New(loggingCfg)
	if err != nil {
		log.Fatalf("Failed to configure logging: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	components, err := bootstrap.Build(ctx, configManager, logger)
	if err != nil {
		logger.WithError(err).Fatal("Failed to initialize services")
	}

	server, err := mcp.NewServer(cfg.MCP, servicesFrom(components), logger)
	if err != nil {
		components.Close()
		logger.WithError(err).Fatal("Failed to create MCP server")
	}

	err = server.Start(ctx)
	if closeErr := components.Close(); closeErr != nil {
		logger.WithError(closeErr).Warn("Failed to release resources")
	}
	if err != nil {
		logger.WithError(err).Error("MCP server failed")
		os.Exit(1)
	}
	logger.Info("MCP server stopped")
}

func servicesFrom(c *bootstrap.Components) mcp.Services {
	return mcp.Services{
		Safety:  c.Safety,
		Quality: c.Quality,
		Monitor: c.Monitor,
		Catalog: c.Catalog,
	}
}
