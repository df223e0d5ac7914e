package service

import (
	"context"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"

	"github.com/peptide-safety-engine/internal/domain"
	"github.com/peptide-safety-engine/internal/knowledge"
)

func testLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetLevel(logrus.FatalLevel)
	return logger
}

func testCatalog(t *testing.T) *knowledge.Catalog {
	t.Helper()
	c, err := knowledge.Default()
	require.NoError(t, err)
	return c
}

// stubConsent returns a fixed status or error.
type stubConsent struct {
	status domain.ConsentStatus
	err    error
	calls  int
}

func (s *stubConsent) ConsentStatus(context.Context, string, string) (domain.ConsentStatus, error) {
	s.calls++
	return s.status, s.err
}

func pendingConsent() *stubConsent {
	return &stubConsent{}
}

func obtainedConsent() *stubConsent {
	return &stubConsent{status: domain.NewConsentStatus(domain.RequiredConsentElements)}
}

func newTestEngine(t *testing.T, consent domain.ConsentStatusProvider) *SafetyEngine {
	t.Helper()
	engine, err := NewSafetyEngine(testLogger(), testCatalog(t), consent)
	require.NoError(t, err)
	return engine
}

func malePatient(medications ...string) *domain.Patient {
	return &domain.Patient{
		ID:           "patient-1",
		Medications:  medications,
		Demographics: domain.Demographics{Age: 45, Gender: domain.GenderMale},
	}
}

func femalePatient(age int) *domain.Patient {
	return &domain.Patient{
		ID:           "patient-2",
		Demographics: domain.Demographics{Age: age, Gender: domain.GenderFemale},
	}
}

func protocolFor(compounds ...string) *domain.Protocol {
	return &domain.Protocol{ID: "protocol-1", RecommendedCompounds: compounds}
}

func dose(compound string, amount float64, unit string) domain.DosingEntry {
	return domain.DosingEntry{CompoundID: compound, CalculatedDose: amount, Unit: unit}
}

func floatPtr(v float64) *float64 { return &v }

func intPtr(v int) *int { return &v }
