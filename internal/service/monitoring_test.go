package service

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/peptide-safety-engine/internal/domain"
)

func usage(success, incident, satisfaction, practitioner float64) domain.UsageStatistics {
	return domain.UsageStatistics{
		SuccessRate:        floatPtr(success),
		IncidentRate:       floatPtr(incident),
		SatisfactionScore:  floatPtr(satisfaction),
		PractitionerRating: floatPtr(practitioner),
	}
}

func newTestMonitor(t *testing.T) *MonitoringAggregator {
	t.Helper()
	a, err := NewMonitoringAggregator(testLogger(), DefaultMonitoringBenchmarks())
	require.NoError(t, err)
	return a
}

func TestMonitoringEvaluate_HealthyProtocol(t *testing.T) {
	result, err := newTestMonitor(t).Evaluate("protocol-1", usage(0.9, 0.05, 4.1, 3.8))
	require.NoError(t, err)

	assert.Equal(t, "protocol-1", result.ProtocolID)
	assert.Equal(t, domain.TrendImproving, result.Metric(domain.MetricOutcomes).Trend)
	assert.Equal(t, domain.TrendImproving, result.Metric(domain.MetricSafety).Trend)
	assert.Equal(t, domain.TrendStable, result.Metric(domain.MetricSatisfaction).Trend)
	assert.Equal(t, domain.TrendStable, result.Metric(domain.MetricPractitionerFeedback).Trend)
	assert.Empty(t, result.QualityAlerts)
	assert.Equal(t, []string{"Continue monitoring current metrics"}, result.ImprovementRecommendations)
}

func TestMonitoringEvaluate_DecliningProtocol(t *testing.T) {
	result, err := newTestMonitor(t).Evaluate("protocol-1", usage(0.7, 0.2, 3.5, 3.0))
	require.NoError(t, err)

	for _, m := range result.Metrics {
		assert.Equal(t, domain.TrendDeclining, m.Trend, m.Metric)
	}

	types := make([]string, 0, len(result.QualityAlerts))
	for _, a := range result.QualityAlerts {
		assert.Equal(t, domain.AlertWarning, a.Severity)
		types = append(types, a.Type)
	}
	assert.Equal(t, []string{
		"outcome_degradation", "safety_incident_increase", "satisfaction_decline", "practitioner_rating_decline",
	}, types)
	assert.Equal(t, "Success rate below benchmark", result.QualityAlerts[0].Message)
	assert.Len(t, result.ImprovementRecommendations, 4)
	assert.NotContains(t, result.ImprovementRecommendations, "Continue monitoring current metrics")
}

func TestMonitoringEvaluate_Trend(t *testing.T) {
	a := newTestMonitor(t)

	tests := []struct {
		name    string
		success float64
		want    domain.Trend
	}{
		{"at benchmark", 0.80, domain.TrendStable},
		{"within margin", 0.84, domain.TrendStable},
		{"beyond margin", 0.85, domain.TrendImproving},
		{"just below benchmark", 0.79, domain.TrendDeclining},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := a.Evaluate("protocol-1", usage(tt.success, 0.1, 4.0, 3.8))
			require.NoError(t, err)
			assert.Equal(t, tt.want, result.Metric(domain.MetricOutcomes).Trend)
		})
	}
}

func TestMonitoringEvaluate_InvalidInput(t *testing.T) {
	a := newTestMonitor(t)

	_, err := a.Evaluate("  ", usage(0.9, 0.05, 4.1, 3.8))
	assert.True(t, domain.IsValidationError(err))

	stats := usage(0.9, 0.05, 4.1, 3.8)
	stats.IncidentRate = nil
	_, err = a.Evaluate("protocol-1", stats)
	assert.True(t, domain.IsValidationError(err))

	_, err = a.Evaluate("protocol-1", usage(1.5, 0.05, 4.1, 3.8))
	assert.True(t, domain.IsValidationError(err))
}

func TestMonitoringBenchmarks_Validate(t *testing.T) {
	require.NoError(t, DefaultMonitoringBenchmarks().Validate())

	b := DefaultMonitoringBenchmarks()
	b.Metrics = b.Metrics[1:]
	assert.Error(t, b.Validate())

	b = DefaultMonitoringBenchmarks()
	b.Metrics = append(b.Metrics, b.Metrics[0])
	assert.Error(t, b.Validate())

	b = DefaultMonitoringBenchmarks()
	b.ImprovementMargin = -0.1
	_, err := NewMonitoringAggregator(testLogger(), b)
	assert.Error(t, err)
}
