package domain

// ContraindicationSource names the patient field a contraindication matched.
type ContraindicationSource string

const (
	SourceMedicalHistory ContraindicationSource = "medical_history"
	SourceAllergies      ContraindicationSource = "allergies"
)

// Boundary violation types.
const (
	ViolationBelowMinimum = "below_minimum"
	ViolationAboveMaximum = "above_maximum"
)

// Warning types raised by the screening layers.
const (
	WarningPregnancyScreening = "pregnancy_screening"
	WarningDoseNearUpperLimit = "dose_near_upper_limit"
	WarningTitrationStep      = "titration_step_exceeded"
	WarningContinuousDuration = "continuous_duration_exceeded"
	WarningUnitMismatch       = "unit_mismatch"
)

// InteractionFinding is one (compound, medication) pair that matched a known
// interaction.
type InteractionFinding struct {
	CompoundID      string   `json:"compound_id"`
	Medication      string   `json:"medication"`
	InteractingDrug string   `json:"interacting_drug"`
	Severity        Severity `json:"severity"`
	Mechanism       string   `json:"mechanism"`
	Management      string   `json:"management"`
}

// ContraindicationFinding is a patient condition or allergy that matched a
// compound's contraindication list.
type ContraindicationFinding struct {
	CompoundID   string                 `json:"compound_id"`
	Condition    string                 `json:"contraindication"`
	PatientEntry string                 `json:"patient_condition"`
	Source       ContraindicationSource `json:"source"`
}

// BoundaryViolation is a dose outside the expanded safe range.
type BoundaryViolation struct {
	CompoundID string  `json:"compound_id"`
	Type       string  `json:"type"`
	Dose       float64 `json:"dose"`
	SafeMin    float64 `json:"safe_min"`
	SafeMax    float64 `json:"safe_max"`
	Unit       string  `json:"unit"`
}

// LayerWarning is a soft finding that does not block on its own.
type LayerWarning struct {
	CompoundID string `json:"compound_id,omitempty"`
	Type       string `json:"type"`
	Message    string `json:"message"`
	Action     string `json:"action,omitempty"`
}

// CompoundCoverage records whether the knowledge base recognized a compound.
// Unrecognized compounds contribute no findings, which callers may want to
// surface to practitioners.
type CompoundCoverage struct {
	CompoundID         string `json:"compound_id"`
	CompoundRecognized bool   `json:"compound_recognized"`
}

// ReviewRequirement is the outcome of the practitioner gate.
type ReviewRequirement struct {
	ReviewRequired        bool      `json:"review_required"`
	OverrideRequired      bool      `json:"override_required"`
	JustificationRequired bool      `json:"justification_required"`
	TriggeringLayers      []LayerID `json:"triggering_layers,omitempty"`
}

// ConsentRequirement is the outcome of the consent gate.
type ConsentRequirement struct {
	Obtained         bool     `json:"obtained"`
	RequiredElements []string `json:"required_elements"`
	MissingElements  []string `json:"missing_elements,omitempty"`
}

// LayerResult is the structured result of one safety layer.
type LayerResult struct {
	Layer                     LayerID                   `json:"layer"`
	Name                      string                    `json:"layer_name"`
	Status                    LayerStatus               `json:"status"`
	Summary                   string                    `json:"summary,omitempty"`
	CriticalBlocks            []InteractionFinding      `json:"critical_blocks,omitempty"`
	InteractionWarnings       []InteractionFinding      `json:"interaction_warnings,omitempty"`
	AbsoluteContraindications []ContraindicationFinding `json:"absolute_contraindications,omitempty"`
	RelativeContraindications []ContraindicationFinding `json:"relative_contraindications,omitempty"`
	BoundaryViolations        []BoundaryViolation       `json:"boundary_violations,omitempty"`
	Warnings                  []LayerWarning            `json:"warnings,omitempty"`
	Coverage                  []CompoundCoverage        `json:"coverage,omitempty"`
	Review                    *ReviewRequirement        `json:"review,omitempty"`
	Consent                   *ConsentRequirement       `json:"consent,omitempty"`
}

// RequiredAction is an action the caller must complete before release.
type RequiredAction struct {
	Type        string   `json:"type"`
	Priority    Priority `json:"priority"`
	Action      string   `json:"action"`
	Description string   `json:"description"`
	Responsible string   `json:"responsible"`
}

// SafetyAlert is one entry of the flattened alert list.
type SafetyAlert struct {
	Severity   AlertSeverity `json:"severity"`
	Type       string        `json:"type"`
	Layer      LayerID       `json:"layer"`
	CompoundID string        `json:"compound_id,omitempty"`
	Message    string        `json:"message"`
}

// SafetyResult is the verdict of one safety evaluation. It carries no
// identity or timestamp so identical inputs yield identical results.
type SafetyResult struct {
	OverallSafetyScore    float64          `json:"overall_safety_score"`
	ClearanceStatus       ClearanceStatus  `json:"clearance_status"`
	RequiredActions       []RequiredAction `json:"required_actions"`
	SafetyAlerts          []SafetyAlert    `json:"safety_alerts"`
	LayerResults          []LayerResult    `json:"layer_results"`
	UnrecognizedCompounds []string         `json:"unrecognized_compounds,omitempty"`
	KnowledgeBaseVersion  string           `json:"knowledge_base_version"`
}

// Layer returns the result of layer id, or nil when it was not evaluated.
func (r *SafetyResult) Layer(id LayerID) *LayerResult {
	for i := range r.LayerResults {
		if r.LayerResults[i].Layer == id {
			return &r.LayerResults[i]
		}
	}
	return nil
}
