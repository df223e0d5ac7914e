package domain

// QualityDimension names one axis of the protocol quality rubric.
type QualityDimension string

const (
	DimensionEvidence          QualityDimension = "evidence_level"
	DimensionSafetyProfile     QualityDimension = "safety_profile"
	DimensionPersonalization   QualityDimension = "personalization"
	DimensionMonitoring        QualityDimension = "monitoring"
	DimensionPatientEngagement QualityDimension = "patient_engagement"
)

// QualityDimensions lists the rubric dimensions in reporting order.
var QualityDimensions = []QualityDimension{
	DimensionEvidence,
	DimensionSafetyProfile,
	DimensionPersonalization,
	DimensionMonitoring,
	DimensionPatientEngagement,
}

func (d QualityDimension) IsValid() bool {
	switch d {
	case DimensionEvidence, DimensionSafetyProfile, DimensionPersonalization,
		DimensionMonitoring, DimensionPatientEngagement:
		return true
	default:
		return false
	}
}

// ComponentScore is the score of one quality dimension.
type ComponentScore struct {
	Dimension    QualityDimension `json:"dimension"`
	Level        string           `json:"level"`
	Score        float64          `json:"score"`
	MaxScore     float64          `json:"max_score"`
	Percentage   float64          `json:"percentage"`
	FactorsCount int              `json:"factors_count,omitempty"`
}

// QualityBenchmarks are the grade cut-offs reported with a score.
type QualityBenchmarks struct {
	Excellent        float64 `json:"excellent"`
	Good             float64 `json:"good"`
	Acceptable       float64 `json:"acceptable"`
	NeedsImprovement float64 `json:"needs_improvement"`
}

// QualityResult is the advisory quality rating of a protocol.
type QualityResult struct {
	OverallScore     float64           `json:"overall_score"`
	OverallGrade     Grade             `json:"overall_grade"`
	GradeDescription string            `json:"grade_description"`
	ComponentScores  []ComponentScore  `json:"component_scores"`
	Recommendations  []string          `json:"recommendations"`
	Benchmarks       QualityBenchmarks `json:"benchmarks"`
}

// Component returns the score of dimension d, or nil.
func (r *QualityResult) Component(d QualityDimension) *ComponentScore {
	for i := range r.ComponentScores {
		if r.ComponentScores[i].Dimension == d {
			return &r.ComponentScores[i]
		}
	}
	return nil
}
