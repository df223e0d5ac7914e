package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/peptide-safety-engine/internal/consent"
	"github.com/peptide-safety-engine/internal/domain"
	"github.com/peptide-safety-engine/internal/knowledge"
	"github.com/peptide-safety-engine/internal/middleware"
)

const shutdownTimeout = 30 * time.Second

// CatalogSource exposes the compound catalog currently in service.
type CatalogSource interface {
	Catalog() *knowledge.Catalog
}

// ConsentInvalidator drops cached consent status after a consent change.
type ConsentInvalidator interface {
	Invalidate(ctx context.Context, patientID, protocolID string) error
}

// HealthCheck probes one dependency.
type HealthCheck = func(ctx context.Context) error

// Dependencies are the services the HTTP API serves. ConsentStore,
// ConsentCache and HealthChecks are optional; consent routes are only
// registered when a store is configured.
type Dependencies struct {
	Safety       domain.SafetyEvaluator
	Quality      domain.QualityEvaluator
	Monitor      domain.ProtocolMonitor
	Catalog      CatalogSource
	ConsentStore consent.Store
	ConsentCache ConsentInvalidator
	HealthChecks map[string]HealthCheck
}

// Server represents the HTTP server
type Server struct {
	configManager domain.ConfigManager
	logger        *logrus.Logger
	deps          Dependencies
	router        *gin.Engine
	server        *http.Server
}

// NewServer creates a new HTTP server instance
func NewServer(configManager domain.ConfigManager, logger *logrus.Logger, deps Dependencies) (*Server, error) {
	switch {
	case deps.Safety == nil:
		return nil, errors.New("safety evaluator is required")
	case deps.Quality == nil:
		return nil, errors.New("quality evaluator is required")
	case deps.Monitor == nil:
		return nil, errors.New("protocol monitor is required")
	case deps.Catalog == nil:
		return nil, errors.New("catalog source is required")
	}

	cfg := configManager.GetConfig()

	// Set Gin mode based on environment
	if configManager.IsDevelopment() && cfg.Logging.Level == "debug" {
		gin.SetMode(gin.DebugMode)
	} else if gin.Mode() != gin.TestMode {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()

	router.Use(gin.Recovery())
	router.Use(middleware.CorrelationID())
	router.Use(middleware.SecurityHeaders())
	router.Use(middleware.AuditLogger(logger))
	router.Use(middleware.RateLimit(middleware.NewRateLimiter(cfg.RateLimit)))
	router.Use(middleware.RequestTimeout(cfg.Server.RequestTimeout))

	server := &Server{
		configManager: configManager,
		logger:        logger,
		deps:          deps,
		router:        router,
	}

	server.setupRoutes()

	return server, nil
}

// Handler returns the routed handler, for tests and embedding.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Start serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Start(ctx context.Context) error {
	cfg := s.configManager.GetServerConfig()
	addr := fmt.Sprintf("%s:%d", cfg.Host, cfg.Port)

	s.server = &http.Server{
		Addr:         addr,
		Handler:      s.router,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		IdleTimeout:  cfg.IdleTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.WithField("addr", addr).Info("HTTP server listening")
		var err error
		if cfg.TLSEnabled {
			err = s.server.ListenAndServeTLS(cfg.CertFile, cfg.KeyFile)
		} else {
			err = s.server.ListenAndServe()
		}
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err, ok := <-errCh:
		if ok {
			return fmt.Errorf("failed to start server: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	return s.server.Shutdown(shutdownCtx)
}

// setupRoutes configures the API routes
func (s *Server) setupRoutes() {
	s.router.GET("/health", s.handleHealth)

	v1 := s.router.Group("/api/v1")
	{
		v1.POST("/safety/evaluate", s.handleEvaluateSafety)
		v1.POST("/quality/evaluate", s.handleEvaluateQuality)
		v1.POST("/monitoring/evaluate", s.handleEvaluateMonitoring)

		v1.GET("/catalog/compounds", s.handleListCompounds)
		v1.GET("/catalog/compounds/:id", s.handleGetCompound)

		if s.deps.ConsentStore != nil {
			v1.POST("/consent", s.handleRecordConsent)
			v1.GET("/consent/:patient_id/:protocol_id", s.handleGetConsent)
			v1.DELETE("/consent/:patient_id/:protocol_id", s.handleRevokeConsent)
		}
	}
}
