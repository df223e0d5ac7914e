package domain

// MonitoringMetric names a field metric tracked for a released protocol.
type MonitoringMetric string

const (
	MetricOutcomes             MonitoringMetric = "outcomes"
	MetricSafety               MonitoringMetric = "safety"
	MetricSatisfaction         MonitoringMetric = "satisfaction"
	MetricPractitionerFeedback MonitoringMetric = "practitioner_feedback"
)

// UsageStatistics are the accumulated field counters of a protocol. The four
// rate fields are required; the counts are informational.
type UsageStatistics struct {
	SuccessRate        *float64 `json:"success_rate" validate:"required,gte=0,lte=1"`
	IncidentRate       *float64 `json:"incident_rate" validate:"required,gte=0,lte=1"`
	SatisfactionScore  *float64 `json:"satisfaction_score" validate:"required,gte=0,lte=5"`
	PractitionerRating *float64 `json:"practitioner_rating" validate:"required,gte=0,lte=5"`
	TotalPatients      int      `json:"total_patients,omitempty" validate:"gte=0"`
	TotalIncidents     int      `json:"total_incidents,omitempty" validate:"gte=0"`
}

// MetricReport compares one metric with its benchmark.
type MetricReport struct {
	Metric         MonitoringMetric `json:"metric"`
	Value          float64          `json:"value"`
	Benchmark      float64          `json:"benchmark"`
	HigherIsBetter bool             `json:"higher_is_better"`
	Trend          Trend            `json:"trend"`
}

// QualityAlert flags a metric that has fallen behind its benchmark.
type QualityAlert struct {
	Severity AlertSeverity    `json:"severity"`
	Type     string           `json:"type"`
	Metric   MonitoringMetric `json:"metric"`
	Message  string           `json:"message"`
}

// MonitoringResult is the advisory monitoring report of a protocol.
type MonitoringResult struct {
	ProtocolID                 string         `json:"protocol_id"`
	Metrics                    []MetricReport `json:"monitoring_metrics"`
	QualityAlerts              []QualityAlert `json:"quality_alerts"`
	ImprovementRecommendations []string       `json:"improvement_recommendations"`
}

// Metric returns the report for metric m, or nil.
func (r *MonitoringResult) Metric(m MonitoringMetric) *MetricReport {
	for i := range r.Metrics {
		if r.Metrics[i].Metric == m {
			return &r.Metrics[i]
		}
	}
	return nil
}
