package main

import (
	"context"
	"errors"
	"io/fs"
	"log"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"

	"github.com/peptide-safety-engine/internal/api"
	"github.com/peptide-safety-engine/internal/bootstrap"
	"github.com/peptide-safety-engine/internal/config"
	"github.com/peptide-safety-engine/internal/logging"
)

func main() {
	// Optional .env for local development
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

	logger, err := logging.New(configManager.GetConfig().Logging)
	if err != nil {
		log.Fatalf("Failed to configure logging: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, configManager, logger); err != nil {
		logger.WithError(err).Fatal("Server failed")
	}
	logger.Info("Server stopped")
}

func run(ctx context.Context, configManager *config.Manager, logger *logrus.Logger) error {
	components, err := bootstrap.Build(ctx, configManager, logger)
	if err != nil {
		return err
	}
	defer func() {
		if err := components.Close(); err != nil {
			logger.WithError(err).Warn("Failed to release resources")
		}
	}()

	deps := api.Dependencies{
		Safety:       components.Safety,
		Quality:      components.Quality,
		Monitor:      components.Monitor,
		Catalog:      components.Catalog,
		HealthChecks: components.HealthChecks,
	}
	if components.ConsentStore != nil {
		deps.ConsentStore = components.ConsentStore
		deps.ConsentCache = components.ConsentCache
	}

	server, err := api.NewServer(configManager, logger, deps)
	if err != nil {
		return err
	}

	cfg := configManager.GetConfig()
	logger.WithFields(logrus.Fields{
		"host":             cfg.Server.Host,
		"port":             cfg.Server.Port,
		"knowledge_source": cfg.Knowledge.Source,
		"kb_version":       components.Catalog.Catalog().Version(),
		"consent_store":    cfg.Consent.Store,
	}).Info("Starting peptide safety engine")

	return server.Start(ctx)
}
