package api

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/peptide-safety-engine/internal/domain"
	"github.com/peptide-safety-engine/internal/middleware"
)

// EvaluationRequest is the body of the safety and quality endpoints.
type EvaluationRequest struct {
	Patient  *domain.Patient  `json:"patient"`
	Protocol *domain.Protocol `json:"protocol"`
}

// MonitoringRequest is the body of the monitoring endpoint.
type MonitoringRequest struct {
	ProtocolID      string                 `json:"protocol_id"`
	UsageStatistics domain.UsageStatistics `json:"usage_statistics"`
}

// ConsentResponse pairs a stored consent record with the status it yields.
type ConsentResponse struct {
	Record *domain.ConsentRecord `json:"record"`
	Status domain.ConsentStatus  `json:"status"`
}

// CatalogResponse lists the compounds of the catalog in service.
type CatalogResponse struct {
	Version     string                 `json:"version"`
	Compounds   []domain.CompoundEntry `json:"compounds"`
	DrugClasses map[string][]string    `json:"drug_classes"`
}

// handleHealth handles health check requests
func (s *Server) handleHealth(c *gin.Context) {
	checks := make(map[string]string, len(s.deps.HealthChecks))
	status, code := "healthy", http.StatusOK
	for name, check := range s.deps.HealthChecks {
		if err := check(c.Request.Context()); err != nil {
			s.logger.WithError(err).WithField("check", name).Warn("Health check failed")
			checks[name] = "unhealthy"
			status, code = "degraded", http.StatusServiceUnavailable
			continue
		}
		checks[name] = "healthy"
	}

	c.JSON(code, gin.H{
		"status":                 status,
		"timestamp":              time.Now().UTC(),
		"version":                s.configManager.GetConfig().MCP.ServerVersion,
		"knowledge_base_version": s.deps.Catalog.Catalog().Version(),
		"checks":                 checks,
	})
}

func (s *Server) handleEvaluateSafety(c *gin.Context) {
	var req EvaluationRequest
	if !s.bind(c, &req) {
		return
	}

	result, err := s.deps.Safety.EvaluateSafety(c.Request.Context(), req.Patient, req.Protocol)
	if err != nil {
		s.respondError(c, err)
		return
	}

	evaluation := domain.NewSafetyEvaluation(result, time.Now())
	s.logger.WithFields(logrus.Fields{
		"evaluation_id":    evaluation.EvaluationID,
		"correlation_id":   c.GetString(middleware.CorrelationIDKey),
		"clearance_status": result.ClearanceStatus,
	}).Info("Safety evaluation returned")

	c.JSON(http.StatusOK, evaluation)
}

func (s *Server) handleEvaluateQuality(c *gin.Context) {
	var req EvaluationRequest
	if !s.bind(c, &req) {
		return
	}

	result, err := s.deps.Quality.EvaluateQuality(req.Patient, req.Protocol)
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (s *Server) handleEvaluateMonitoring(c *gin.Context) {
	var req MonitoringRequest
	if !s.bind(c, &req) {
		return
	}

	result, err := s.deps.Monitor.Evaluate(req.ProtocolID, req.UsageStatistics)
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (s *Server) handleListCompounds(c *gin.Context) {
	catalog := s.deps.Catalog.Catalog()
	c.JSON(http.StatusOK, CatalogResponse{
		Version:     catalog.Version(),
		Compounds:   catalog.Entries(),
		DrugClasses: catalog.DrugClasses(),
	})
}

func (s *Server) handleGetCompound(c *gin.Context) {
	id := c.Param("id")
	entry, ok := s.deps.Catalog.Catalog().Lookup(id)
	if !ok {
		s.respondError(c, fmt.Errorf("%w: %s", domain.ErrUnknownCompound, id))
		return
	}
	c.JSON(http.StatusOK, entry)
}

func (s *Server) handleRecordConsent(c *gin.Context) {
	var record domain.ConsentRecord
	if !s.bind(c, &record) {
		return
	}

	ctx := c.Request.Context()
	if err := s.deps.ConsentStore.Record(ctx, &record); err != nil {
		s.respondError(c, err)
		return
	}
	s.invalidateConsent(c, record.PatientID, record.ProtocolID)

	s.logger.WithFields(logrus.Fields{
		"consent_id":     record.ID,
		"correlation_id": c.GetString(middleware.CorrelationIDKey),
		"elements":       len(record.ConfirmedElements),
	}).Info("Consent recorded")

	c.JSON(http.StatusCreated, ConsentResponse{Record: &record, Status: record.Status()})
}

func (s *Server) handleGetConsent(c *gin.Context) {
	patientID, protocolID := c.Param("patient_id"), c.Param("protocol_id")

	record, err := s.deps.ConsentStore.Get(c.Request.Context(), patientID, protocolID)
	if err != nil {
		s.respondError(c, err)
		return
	}
	if record == nil {
		s.respondError(c, fmt.Errorf("consent for patient %s and protocol %s: %w", patientID, protocolID, domain.ErrNotFound))
		return
	}
	c.JSON(http.StatusOK, ConsentResponse{Record: record, Status: record.Status()})
}

func (s *Server) handleRevokeConsent(c *gin.Context) {
	patientID, protocolID := c.Param("patient_id"), c.Param("protocol_id")

	if err := s.deps.ConsentStore.Revoke(c.Request.Context(), patientID, protocolID); err != nil {
		s.respondError(c, err)
		return
	}
	s.invalidateConsent(c, patientID, protocolID)

	c.Status(http.StatusNoContent)
}

// invalidateConsent drops the cached status. A failure is logged; the cache
// entry still expires after its TTL.
func (s *Server) invalidateConsent(c *gin.Context, patientID, protocolID string) {
	if s.deps.ConsentCache == nil {
		return
	}
	if err := s.deps.ConsentCache.Invalidate(c.Request.Context(), patientID, protocolID); err != nil {
		s.logger.WithError(err).Warn("Failed to invalidate cached consent status")
	}
}

// bind decodes the JSON body into v and answers 400 when it is malformed.
func (s *Server) bind(c *gin.Context, v interface{}) bool {
	if err := c.ShouldBindJSON(v); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, domain.NewEngineError(
			domain.ErrInvalidInput,
			"Malformed request body",
			err.Error(),
			c.GetString(middleware.CorrelationIDKey),
		))
		return false
	}
	return true
}

// respondError maps err onto a status code and the standard error payload.
func (s *Server) respondError(c *gin.Context, err error) {
	code := domain.ErrorCode(err)
	status := statusFor(code)

	message := http.StatusText(status)
	var validationErrs domain.ValidationErrors
	var validationErr *domain.ValidationError
	if errors.As(err, &validationErrs) || errors.As(err, &validationErr) {
		message = "Input validation failed"
	}

	entry := s.logger.WithFields(logrus.Fields{
		"code":           code,
		"correlation_id": c.GetString(middleware.CorrelationIDKey),
	})
	if status >= http.StatusInternalServerError {
		entry.WithError(err).Error("Request failed")
	} else {
		entry.Debug("Request rejected")
	}

	c.AbortWithStatusJSON(status, domain.NewEngineError(code, message, err.Error(), c.GetString(middleware.CorrelationIDKey)))
}

func statusFor(code string) int {
	switch code {
	case domain.ErrValidation, domain.ErrInvalidInput:
		return http.StatusBadRequest
	case domain.ErrNotFoundCode:
		return http.StatusNotFound
	case domain.ErrRateLimit:
		return http.StatusTooManyRequests
	case domain.ErrConsentProvider:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
