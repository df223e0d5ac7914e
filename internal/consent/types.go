// Package consent provides the consent status providers the safety engine
// asks before a protocol can be released, and the stores that record
// consent confirmations.
package consent

import (
	"context"
	"strings"

	"github.com/peptide-safety-engine/internal/domain"
)

// Store persists consent confirmations and reports consent status from them.
type Store interface {
	domain.ConsentStatusProvider

	// Record stores the confirmed elements for a patient and protocol.
	// An existing record for the same pair is replaced and un-revoked.
	Record(ctx context.Context, record *domain.ConsentRecord) error

	// Get returns the record for a patient and protocol, or nil if none exists.
	Get(ctx context.Context, patientID, protocolID string) (*domain.ConsentRecord, error)

	// Revoke withdraws consent. It returns domain.ErrNotFound when no record exists.
	Revoke(ctx context.Context, patientID, protocolID string) error

	// Close closes the store and releases resources.
	Close() error
}

// PendingProvider never reports consent as obtained. It stands in for the
// external consent system when none is configured.
type PendingProvider struct{}

// ConsentStatus always returns a not-obtained status.
func (PendingProvider) ConsentStatus(context.Context, string, string) (domain.ConsentStatus, error) {
	return domain.ConsentStatus{}, nil
}

func validateRecord(record *domain.ConsentRecord) error {
	if record == nil {
		return domain.NewValidationError("consent", "consent record is required", nil)
	}
	return domain.Validate(record)
}

func validateKey(patientID, protocolID string) error {
	if strings.TrimSpace(patientID) == "" {
		return domain.NewValidationError("patient_id", "must not be blank", patientID)
	}
	if strings.TrimSpace(protocolID) == "" {
		return domain.NewValidationError("protocol_id", "must not be blank", protocolID)
	}
	return nil
}
