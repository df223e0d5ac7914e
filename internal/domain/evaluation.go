package domain

import (
	"time"

	"github.com/google/uuid"
)

// SafetyEvaluation is the envelope the API and MCP surfaces return around a
// SafetyResult. The result itself stays free of call-specific data so that
// identical inputs produce identical results.
type SafetyEvaluation struct {
	EvaluationID string    `json:"evaluation_id"`
	EvaluatedAt  time.Time `json:"evaluated_at"`
	*SafetyResult
}

// NewSafetyEvaluation wraps result with a fresh evaluation id.
func NewSafetyEvaluation(result *SafetyResult, evaluatedAt time.Time) *SafetyEvaluation {
	return &SafetyEvaluation{
		EvaluationID: uuid.NewString(),
		EvaluatedAt:  evaluatedAt.UTC(),
		SafetyResult: result,
	}
}
