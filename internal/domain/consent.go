package domain

import (
	"context"
	"time"
)

// Consent elements that must all be confirmed before treatment.
const (
	ConsentInformed      = "Informed consent for peptide therapy"
	ConsentRiskAck       = "Risk acknowledgment signed"
	ConsentAlternatives  = "Treatment alternatives discussed"
	ConsentQuestionsDone = "Patient questions answered"
)

// RequiredConsentElements is the fixed consent checklist.
var RequiredConsentElements = []string{
	ConsentInformed,
	ConsentRiskAck,
	ConsentAlternatives,
	ConsentQuestionsDone,
}

// ConsentStatus is what a ConsentStatusProvider knows about a patient's
// consent to a protocol.
type ConsentStatus struct {
	Obtained          bool     `json:"obtained"`
	ConfirmedElements []string `json:"confirmed_elements,omitempty"`
}

// MissingElements returns the required elements not yet confirmed.
func (s ConsentStatus) MissingElements() []string {
	confirmed := make(map[string]bool, len(s.ConfirmedElements))
	for _, e := range s.ConfirmedElements {
		confirmed[e] = true
	}
	var missing []string
	for _, e := range RequiredConsentElements {
		if !confirmed[e] {
			missing = append(missing, e)
		}
	}
	return missing
}

// NewConsentStatus derives a status from confirmed elements. Consent counts
// as obtained only when every required element is confirmed.
func NewConsentStatus(confirmed []string) ConsentStatus {
	s := ConsentStatus{ConfirmedElements: append([]string(nil), confirmed...)}
	s.Obtained = len(s.MissingElements()) == 0
	return s
}

// ConsentStatusProvider is the external capability the consent gate asks.
// An error must be propagated, never read as consent.
type ConsentStatusProvider interface {
	ConsentStatus(ctx context.Context, patientID, protocolID string) (ConsentStatus, error)
}

// ConsentRecord is a persisted consent confirmation.
type ConsentRecord struct {
	ID                int64     `json:"id,omitempty"`
	PatientID         string    `json:"patient_id" validate:"notblank"`
	ProtocolID        string    `json:"protocol_id" validate:"notblank"`
	ConfirmedElements []string  `json:"confirmed_elements" validate:"dive,consent_element"`
	ConfirmedBy       string    `json:"confirmed_by" validate:"notblank"`
	Revoked           bool      `json:"revoked"`
	CreatedAt         time.Time `json:"created_at"`
	UpdatedAt         time.Time `json:"updated_at"`
}

// Status converts the record into the status reported to the consent gate.
func (r *ConsentRecord) Status() ConsentStatus {
	if r == nil || r.Revoked {
		return ConsentStatus{}
	}
	return NewConsentStatus(r.ConfirmedElements)
}
