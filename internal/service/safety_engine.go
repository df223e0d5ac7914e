package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/peptide-safety-engine/internal/domain"
	"github.com/peptide-safety-engine/internal/matching"
)

// SafetyEngine runs the five safety layers against a knowledge base
// snapshot and reduces them to a verdict. It holds no per-request state and
// is safe for concurrent use.
type SafetyEngine struct {
	logger  *logrus.Logger
	source  domain.KnowledgeSource
	consent domain.ConsentStatusProvider
	matcher matching.Matcher
	policy  SafetyPolicy
}

// SafetyEngineOption customizes a SafetyEngine.
type SafetyEngineOption func(*SafetyEngine)

// WithPolicy replaces the default safety policy.
func WithPolicy(policy SafetyPolicy) SafetyEngineOption {
	return func(e *SafetyEngine) {
		e.policy = policy
	}
}

// WithMatcher replaces substring matching of free-text entries.
func WithMatcher(m matching.Matcher) SafetyEngineOption {
	return func(e *SafetyEngine) {
		e.matcher = m
	}
}

// NewSafetyEngine creates a safety engine reading compound data from source
// and consent status from consent.
func NewSafetyEngine(
	logger *logrus.Logger,
	source domain.KnowledgeSource,
	consent domain.ConsentStatusProvider,
	opts ...SafetyEngineOption,
) (*SafetyEngine, error) {
	if source == nil {
		return nil, errors.New("knowledge source is required")
	}
	if consent == nil {
		return nil, errors.New("consent status provider is required")
	}

	e := &SafetyEngine{
		logger:  logger,
		source:  source,
		consent: consent,
		matcher: matching.Substring,
		policy:  DefaultSafetyPolicy(),
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.matcher == nil {
		return nil, errors.New("matcher is required")
	}
	if err := e.policy.Validate(); err != nil {
		return nil, err
	}
	return e, nil
}

// Policy returns the policy the engine evaluates with.
func (e *SafetyEngine) Policy() SafetyPolicy {
	return e.policy
}

// EvaluateSafety validates the input, takes one knowledge base snapshot and
// evaluates every layer against it. Errors from the consent provider are
// returned, never read as a status.
func (e *SafetyEngine) EvaluateSafety(ctx context.Context, patient *domain.Patient, protocol *domain.Protocol) (*domain.SafetyResult, error) {
	startTime := time.Now()

	if err := domain.ValidateEvaluationInput(patient, protocol); err != nil {
		return nil, err
	}

	kb := e.source.Snapshot()
	if kb == nil {
		return nil, fmt.Errorf("%w: knowledge source returned no snapshot", domain.ErrInvariantViolation)
	}

	interactions := ScreenInteractions(kb, e.matcher, patient, protocol)
	contraindications := ScreenContraindications(kb, e.matcher, e.policy, patient, protocol)
	dosing := CheckDosingBoundaries(kb, e.policy, protocol)

	practitioner, err := PractitionerGate(interactions, contraindications, dosing)
	if err != nil {
		return nil, err
	}

	status, err := e.consent.ConsentStatus(ctx, patient.ID, protocol.ID)
	if err != nil {
		if !errors.Is(err, domain.ErrConsentUnavailable) {
			err = fmt.Errorf("%w: %w", domain.ErrConsentUnavailable, err)
		}
		return nil, err
	}
	consent := ConsentGate(status)

	layers := []domain.LayerResult{interactions, contraindications, dosing, practitioner, consent}
	for _, layer := range layers {
		e.logger.WithFields(logrus.Fields{
			"layer":    layer.Layer,
			"status":   layer.Status,
			"findings": findingCount(layer),
		}).Debug("Safety layer evaluated")
	}

	verdict, err := Aggregate(layers, e.policy)
	if err != nil {
		return nil, err
	}

	result := &domain.SafetyResult{
		OverallSafetyScore:    verdict.OverallSafetyScore,
		ClearanceStatus:       verdict.ClearanceStatus,
		RequiredActions:       verdict.RequiredActions,
		SafetyAlerts:          verdict.SafetyAlerts,
		LayerResults:          layers,
		UnrecognizedCompounds: unrecognizedCompounds(kb, protocol),
		KnowledgeBaseVersion:  kb.Version(),
	}

	e.logger.WithFields(logrus.Fields{
		"clearance_status":     result.ClearanceStatus,
		"overall_safety_score": result.OverallSafetyScore,
		"compounds":            len(protocol.RecommendedCompounds),
		"unrecognized":         len(result.UnrecognizedCompounds),
		"kb_version":           result.KnowledgeBaseVersion,
		"duration":             time.Since(startTime),
	}).Info("Safety evaluation completed")

	return result, nil
}

func findingCount(layer domain.LayerResult) int {
	return len(layer.CriticalBlocks) + len(layer.InteractionWarnings) +
		len(layer.AbsoluteContraindications) + len(layer.RelativeContraindications) +
		len(layer.BoundaryViolations) + len(layer.Warnings)
}
