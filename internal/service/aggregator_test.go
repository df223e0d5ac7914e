package service

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/peptide-safety-engine/internal/domain"
)

func layersWith(statuses map[domain.LayerID]domain.LayerStatus) []domain.LayerResult {
	layers := make([]domain.LayerResult, 0, len(domain.Layers))
	for _, id := range domain.Layers {
		status, ok := statuses[id]
		if !ok {
			status = domain.StatusPassed
		}
		layers = append(layers, domain.LayerResult{Layer: id, Status: status})
	}
	return layers
}

func TestClearance(t *testing.T) {
	tests := []struct {
		statuses []domain.LayerStatus
		want     domain.ClearanceStatus
	}{
		{[]domain.LayerStatus{domain.StatusPassed}, domain.ClearanceCleared},
		{[]domain.LayerStatus{domain.StatusPassed, domain.StatusPending}, domain.ClearancePending},
		{[]domain.LayerStatus{domain.StatusWarning, domain.StatusPending}, domain.ClearanceRequiresReview},
		{[]domain.LayerStatus{domain.StatusRequiresReview, domain.StatusPassed}, domain.ClearanceRequiresReview},
		{[]domain.LayerStatus{domain.StatusRequiresOverride, domain.StatusWarning}, domain.ClearanceRequiresOverride},
		{[]domain.LayerStatus{domain.StatusPending, domain.StatusBlocked, domain.StatusRequiresOverride}, domain.ClearanceBlocked},
	}

	for _, tt := range tests {
		got, err := Clearance(tt.statuses...)
		require.NoError(t, err)
		assert.Equal(t, tt.want, got, "%v", tt.statuses)
	}
}

func TestClearance_WorstCaseDominance(t *testing.T) {
	for _, blocked := range domain.Layers {
		t.Run(string(blocked), func(t *testing.T) {
			verdict, err := Aggregate(layersWith(map[domain.LayerID]domain.LayerStatus{blocked: domain.StatusBlocked}), DefaultSafetyPolicy())
			require.NoError(t, err)
			assert.Equal(t, domain.ClearanceBlocked, verdict.ClearanceStatus)
		})
	}
}

func TestClearance_NeverMorePermissiveThanAnyLayer(t *testing.T) {
	all := []domain.LayerStatus{
		domain.StatusPassed, domain.StatusWarning, domain.StatusBlocked,
		domain.StatusRequiresReview, domain.StatusRequiresOverride, domain.StatusPending,
	}
	for _, a := range all {
		for _, b := range all {
			got, err := Clearance(a, b)
			require.NoError(t, err)
			for _, s := range []domain.LayerStatus{a, b} {
				mapped, err := s.Clearance()
				require.NoError(t, err)
				assert.False(t, got.MorePermissiveThan(mapped), "%s,%s -> %s", a, b, got)
			}
		}
	}
}

func TestClearance_InvalidStatus(t *testing.T) {
	_, err := Clearance(domain.StatusPassed, "approved")
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrInvariantViolation))

	_, err = Clearance()
	assert.True(t, errors.Is(err, domain.ErrInvariantViolation))
}

func TestSafetyScore(t *testing.T) {
	policy := DefaultSafetyPolicy()

	tests := []struct {
		name     string
		statuses map[domain.LayerID]domain.LayerStatus
		want     float64
	}{
		{"all passed", nil, 100},
		{"consent pending only", map[domain.LayerID]domain.LayerStatus{
			domain.LayerConsent: domain.StatusPending,
		}, 86},
		{"dosing warning with review", map[domain.LayerID]domain.LayerStatus{
			domain.LayerDosing:       domain.StatusWarning,
			domain.LayerPractitioner: domain.StatusRequiresReview,
			domain.LayerConsent:      domain.StatusPending,
		}, 75.5},
		{"interaction blocked", map[domain.LayerID]domain.LayerStatus{
			domain.LayerInteractions: domain.StatusBlocked,
			domain.LayerPractitioner: domain.StatusRequiresOverride,
			domain.LayerConsent:      domain.StatusPending,
		}, 55.5},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			score, err := SafetyScore(layersWith(tt.statuses), policy)
			require.NoError(t, err)
			assert.Equal(t, tt.want, score)
		})
	}
}

func TestSafetyScore_CustomWeights(t *testing.T) {
	policy := DefaultSafetyPolicy()
	policy.LayerWeights[domain.LayerConsent] = 0

	score, err := SafetyScore(layersWith(map[domain.LayerID]domain.LayerStatus{
		domain.LayerConsent: domain.StatusPending,
	}), policy)
	require.NoError(t, err)
	assert.Equal(t, 100.0, score, "a zero-weight layer does not count")
}

func TestAggregate_RequiresEveryLayerOnce(t *testing.T) {
	policy := DefaultSafetyPolicy()

	_, err := Aggregate(layersWith(nil)[:4], policy)
	assert.True(t, errors.Is(err, domain.ErrInvariantViolation), "missing layer")

	dup := append(layersWith(nil), domain.LayerResult{Layer: domain.LayerDosing, Status: domain.StatusPassed})
	_, err = Aggregate(dup, policy)
	assert.True(t, errors.Is(err, domain.ErrInvariantViolation), "duplicate layer")

	bad := layersWith(nil)
	bad[2].Status = "unknown"
	_, err = Aggregate(bad, policy)
	assert.True(t, errors.Is(err, domain.ErrInvariantViolation), "unknown status")
}

func TestAggregate_RequiredActions(t *testing.T) {
	layers := layersWith(map[domain.LayerID]domain.LayerStatus{
		domain.LayerContraindications: domain.StatusWarning,
		domain.LayerPractitioner:      domain.StatusRequiresReview,
		domain.LayerConsent:           domain.StatusPending,
	})
	pregnancy := domain.LayerWarning{
		Type:    domain.WarningPregnancyScreening,
		Message: "Pregnancy screening required for females of childbearing age",
		Action:  "Obtain pregnancy test",
	}
	// Two compounds prompting the same action yield one entry.
	layers[1].Warnings = []domain.LayerWarning{pregnancy, pregnancy}

	verdict, err := Aggregate(layers, DefaultSafetyPolicy())
	require.NoError(t, err)

	assert.Equal(t, domain.ClearanceRequiresReview, verdict.ClearanceStatus)
	require.Len(t, verdict.RequiredActions, 3)
	assert.Equal(t, "Practitioner review recommended", verdict.RequiredActions[0].Action)
	assert.Equal(t, domain.PriorityModerate, verdict.RequiredActions[0].Priority)
	assert.Equal(t, "Obtain patient consent", verdict.RequiredActions[1].Action)
	assert.Equal(t, "staff", verdict.RequiredActions[1].Responsible)
	assert.Equal(t, "Obtain pregnancy test", verdict.RequiredActions[2].Action)
	assert.Equal(t, domain.PriorityHigh, verdict.RequiredActions[2].Priority)
}

func TestAggregate_Alerts(t *testing.T) {
	layers := layersWith(map[domain.LayerID]domain.LayerStatus{
		domain.LayerInteractions:      domain.StatusBlocked,
		domain.LayerContraindications: domain.StatusBlocked,
		domain.LayerDosing:            domain.StatusBlocked,
		domain.LayerPractitioner:      domain.StatusRequiresOverride,
	})
	layers[0].CriticalBlocks = []domain.InteractionFinding{{CompoundID: "x", Mechanism: "Serotonin syndrome"}}
	layers[0].InteractionWarnings = []domain.InteractionFinding{{CompoundID: "x", Severity: domain.SeverityMajor, Medication: "y", Mechanism: "Additive"}}
	layers[1].AbsoluteContraindications = []domain.ContraindicationFinding{{CompoundID: "x", Condition: "Pregnancy"}}
	layers[1].RelativeContraindications = []domain.ContraindicationFinding{{CompoundID: "x", Condition: "Hypertension"}}
	layers[2].BoundaryViolations = []domain.BoundaryViolation{{CompoundID: "x", Type: domain.ViolationAboveMaximum}}

	verdict, err := Aggregate(layers, DefaultSafetyPolicy())
	require.NoError(t, err)

	require.Len(t, verdict.SafetyAlerts, 5)
	assert.Equal(t, domain.SafetyAlert{
		Severity: domain.AlertCritical, Type: "block", Layer: domain.LayerInteractions,
		CompoundID: "x", Message: "Critical interaction: Serotonin syndrome",
	}, verdict.SafetyAlerts[0])
	assert.Equal(t, "Major interaction with y: Additive", verdict.SafetyAlerts[1].Message)
	assert.Equal(t, domain.AlertWarning, verdict.SafetyAlerts[1].Severity)
	assert.Equal(t, domain.AlertCritical, verdict.SafetyAlerts[2].Severity)
	assert.Equal(t, domain.AlertWarning, verdict.SafetyAlerts[3].Severity)
	assert.Equal(t, "Dosing boundary violation: above_maximum", verdict.SafetyAlerts[4].Message)

	assert.Equal(t, "Protocol blocked due to safety concerns", verdict.RequiredActions[0].Action)
	assert.Equal(t, domain.PriorityCritical, verdict.RequiredActions[0].Priority)
	assert.Equal(t, 24.5, verdict.OverallSafetyScore)
}
