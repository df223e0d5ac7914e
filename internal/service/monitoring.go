package service

import (
	"errors"
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/peptide-safety-engine/internal/domain"
)

// MetricBenchmark is the reference value of one field metric and what to
// say when the metric falls behind it.
type MetricBenchmark struct {
	Metric         domain.MonitoringMetric
	Benchmark      float64
	HigherIsBetter bool
	AlertType      string
	AlertMessage   string
	Recommendation string
}

// MonitoringBenchmarks configures the monitoring aggregator.
type MonitoringBenchmarks struct {
	Metrics []MetricBenchmark
	// ImprovementMargin is the fraction of the benchmark a metric must beat
	// it by to count as improving.
	ImprovementMargin     float64
	DefaultRecommendation string
}

// DefaultMonitoringBenchmarks returns the reference benchmarks.
func DefaultMonitoringBenchmarks() MonitoringBenchmarks {
	return MonitoringBenchmarks{
		Metrics: []MetricBenchmark{
			{
				Metric:         domain.MetricOutcomes,
				Benchmark:      0.80,
				HigherIsBetter: true,
				AlertType:      "outcome_degradation",
				AlertMessage:   "Success rate below benchmark",
				Recommendation: "Consider protocol optimization based on outcome data",
			},
			{
				Metric:         domain.MetricSafety,
				Benchmark:      0.10,
				AlertType:      "safety_incident_increase",
				AlertMessage:   "Incident rate above benchmark",
				Recommendation: "Review reported incidents and tighten screening criteria",
			},
			{
				Metric:         domain.MetricSatisfaction,
				Benchmark:      4.0,
				HigherIsBetter: true,
				AlertType:      "satisfaction_decline",
				AlertMessage:   "Patient satisfaction below benchmark",
				Recommendation: "Enhance patient education materials",
			},
			{
				Metric:         domain.MetricPractitionerFeedback,
				Benchmark:      3.8,
				HigherIsBetter: true,
				AlertType:      "practitioner_rating_decline",
				AlertMessage:   "Practitioner rating below benchmark",
				Recommendation: "Gather practitioner feedback to refine protocol guidance",
			},
		},
		ImprovementMargin:     0.05,
		DefaultRecommendation: "Continue monitoring current metrics",
	}
}

// Validate checks that each metric has exactly one positive benchmark.
func (b MonitoringBenchmarks) Validate() error {
	seen := make(map[domain.MonitoringMetric]bool, len(b.Metrics))
	for _, m := range b.Metrics {
		if seen[m.Metric] {
			return fmt.Errorf("duplicate benchmark for metric %s", m.Metric)
		}
		seen[m.Metric] = true
		if m.Benchmark <= 0 {
			return fmt.Errorf("benchmark for metric %s must be positive", m.Metric)
		}
	}
	for _, metric := range []domain.MonitoringMetric{
		domain.MetricOutcomes, domain.MetricSafety, domain.MetricSatisfaction, domain.MetricPractitionerFeedback,
	} {
		if !seen[metric] {
			return fmt.Errorf("missing benchmark for metric %s", metric)
		}
	}
	if b.ImprovementMargin < 0 {
		return errors.New("improvement margin must not be negative")
	}
	return nil
}

// MonitoringAggregator compares a released protocol's field statistics with
// benchmarks. It is advisory and gates nothing.
type MonitoringAggregator struct {
	logger     *logrus.Logger
	benchmarks MonitoringBenchmarks
}

// NewMonitoringAggregator creates an aggregator for benchmarks.
func NewMonitoringAggregator(logger *logrus.Logger, benchmarks MonitoringBenchmarks) (*MonitoringAggregator, error) {
	if err := benchmarks.Validate(); err != nil {
		return nil, err
	}
	return &MonitoringAggregator{logger: logger, benchmarks: benchmarks}, nil
}

// Evaluate reports each metric's trend against its benchmark, with a
// warning alert and a recommendation per declining metric.
func (a *MonitoringAggregator) Evaluate(protocolID string, stats domain.UsageStatistics) (*domain.MonitoringResult, error) {
	if strings.TrimSpace(protocolID) == "" {
		return nil, domain.NewValidationError("protocol_id", "must not be blank", protocolID)
	}
	if err := domain.Validate(stats); err != nil {
		return nil, err
	}

	values := map[domain.MonitoringMetric]float64{
		domain.MetricOutcomes:             *stats.SuccessRate,
		domain.MetricSafety:               *stats.IncidentRate,
		domain.MetricSatisfaction:         *stats.SatisfactionScore,
		domain.MetricPractitionerFeedback: *stats.PractitionerRating,
	}

	result := &domain.MonitoringResult{
		ProtocolID:                 protocolID,
		Metrics:                    make([]domain.MetricReport, 0, len(a.benchmarks.Metrics)),
		QualityAlerts:              []domain.QualityAlert{},
		ImprovementRecommendations: []string{},
	}

	for _, b := range a.benchmarks.Metrics {
		value := values[b.Metric]
		trend := a.trend(b, value)
		result.Metrics = append(result.Metrics, domain.MetricReport{
			Metric:         b.Metric,
			Value:          value,
			Benchmark:      b.Benchmark,
			HigherIsBetter: b.HigherIsBetter,
			Trend:          trend,
		})
		if trend != domain.TrendDeclining {
			continue
		}
		result.QualityAlerts = append(result.QualityAlerts, domain.QualityAlert{
			Severity: domain.AlertWarning,
			Type:     b.AlertType,
			Metric:   b.Metric,
			Message:  b.AlertMessage,
		})
		if b.Recommendation != "" {
			result.ImprovementRecommendations = append(result.ImprovementRecommendations, b.Recommendation)
		}
	}
	if len(result.ImprovementRecommendations) == 0 {
		result.ImprovementRecommendations = append(result.ImprovementRecommendations, a.benchmarks.DefaultRecommendation)
	}

	a.logger.WithFields(logrus.Fields{
		"protocol_id": protocolID,
		"alerts":      len(result.QualityAlerts),
	}).Info("Protocol monitoring evaluated")

	return result, nil
}

// trend is declining when value is worse than the benchmark and improving
// when it beats the benchmark by more than the improvement margin.
func (a *MonitoringAggregator) trend(b MetricBenchmark, value float64) domain.Trend {
	delta := value - b.Benchmark
	if !b.HigherIsBetter {
		delta = -delta
	}
	switch {
	case delta < 0:
		return domain.TrendDeclining
	case delta > b.Benchmark*a.benchmarks.ImprovementMargin:
		return domain.TrendImproving
	default:
		return domain.TrendStable
	}
}
