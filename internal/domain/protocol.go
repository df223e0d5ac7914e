package domain

// DosingEntry is the dose proposed for one compound of a protocol.
// PreviousDose and DurationWeeks are optional and enable the titration and
// continuous-duration checks.
type DosingEntry struct {
	CompoundID     string   `json:"compound_id" yaml:"compound_id" validate:"notblank"`
	CalculatedDose float64  `json:"calculated_dose" yaml:"calculated_dose" validate:"finite,gte=0"`
	Unit           string   `json:"unit,omitempty" yaml:"unit"`
	Frequency      string   `json:"frequency,omitempty" yaml:"frequency"`
	Route          string   `json:"route,omitempty" yaml:"route"`
	PreviousDose   *float64 `json:"previous_dose,omitempty" yaml:"previous_dose" validate:"omitempty,finite,gte=0"`
	DurationWeeks  *int     `json:"duration_weeks,omitempty" yaml:"duration_weeks" validate:"omitempty,gte=0"`
}

// MonitoringRequirements is the monitoring section of a protocol. Each
// sub-section counts as present when it has at least one entry.
type MonitoringRequirements struct {
	BaselineLabs     []string `json:"baseline_labs,omitempty" yaml:"baseline_labs"`
	FollowUpSchedule []string `json:"follow_up_schedule,omitempty" yaml:"follow_up_schedule"`
	SafetyMonitoring []string `json:"safety_monitoring,omitempty" yaml:"safety_monitoring"`
	SuccessMetrics   []string `json:"success_metrics,omitempty" yaml:"success_metrics"`
}

// SectionCount returns how many monitoring sub-sections are present.
func (m *MonitoringRequirements) SectionCount() int {
	if m == nil {
		return 0
	}
	count := 0
	for _, section := range [][]string{m.BaselineLabs, m.FollowUpSchedule, m.SafetyMonitoring, m.SuccessMetrics} {
		if len(section) > 0 {
			count++
		}
	}
	return count
}

// PersonalizationSignals records how the protocol was adapted to the patient.
type PersonalizationSignals struct {
	WeightAdjustedDosing  bool `json:"weight_adjusted_dosing,omitempty" yaml:"weight_adjusted_dosing"`
	ConcernAdjustedDosing bool `json:"concern_adjusted_dosing,omitempty" yaml:"concern_adjusted_dosing"`
}

// Protocol is a proposed treatment protocol. RecommendedCompounds is in
// presentation order, which carries no clinical priority.
type Protocol struct {
	ID                       string                  `json:"id,omitempty" yaml:"id"`
	RecommendedCompounds     []string                `json:"recommended_compounds" yaml:"recommended_compounds" validate:"min=1,dive,notblank"`
	DosingEntries            []DosingEntry           `json:"dosing_entries,omitempty" yaml:"dosing_entries" validate:"dive"`
	EvidenceSupport          string                  `json:"evidence_support,omitempty" yaml:"evidence_support"`
	ContraindicationsSection []string                `json:"contraindications_section,omitempty" yaml:"contraindications_section"`
	MonitoringRequirements   *MonitoringRequirements `json:"monitoring_requirements,omitempty" yaml:"monitoring_requirements"`
	PersonalizationSignals   PersonalizationSignals  `json:"personalization_signals,omitzero" yaml:"personalization_signals"`
}
