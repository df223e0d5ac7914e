package domain

// Interaction is a known interaction between a compound and another drug or
// drug class.
type Interaction struct {
	InteractingDrug string `json:"interacting_drug" yaml:"interacting_drug"`
	Mechanism       string `json:"mechanism" yaml:"mechanism"`
	Management      string `json:"management" yaml:"management"`
}

// InteractionSet partitions a compound's interactions by severity.
type InteractionSet struct {
	Critical []Interaction `json:"critical,omitempty" yaml:"critical"`
	Major    []Interaction `json:"major,omitempty" yaml:"major"`
	Moderate []Interaction `json:"moderate,omitempty" yaml:"moderate"`
	Minor    []Interaction `json:"minor,omitempty" yaml:"minor"`
}

// BySeverity returns the interactions recorded under severity s.
func (i InteractionSet) BySeverity(s Severity) []Interaction {
	switch s {
	case SeverityCritical:
		return i.Critical
	case SeverityMajor:
		return i.Major
	case SeverityModerate:
		return i.Moderate
	case SeverityMinor:
		return i.Minor
	default:
		return nil
	}
}

// Contraindications lists the conditions that forbid (absolute) or caution
// against (relative) use of a compound.
type Contraindications struct {
	Absolute []string `json:"absolute,omitempty" yaml:"absolute"`
	Relative []string `json:"relative,omitempty" yaml:"relative"`
}

// DosingBoundary is the standard clinical dose range of a compound. Zero
// titration or duration limits mean the limit is not defined.
type DosingBoundary struct {
	MinStandardDose            float64 `json:"min_standard_dose" yaml:"min_standard_dose"`
	MaxStandardDose            float64 `json:"max_standard_dose" yaml:"max_standard_dose"`
	Unit                       string  `json:"unit" yaml:"unit"`
	MaxWeeklyIncrease          float64 `json:"max_weekly_increase,omitempty" yaml:"max_weekly_increase"`
	MaxContinuousDurationWeeks int     `json:"max_continuous_duration_weeks,omitempty" yaml:"max_continuous_duration_weeks"`
}

// CompoundEntry is the knowledge base record for one compound.
type CompoundEntry struct {
	ID                string            `json:"id" yaml:"id"`
	Name              string            `json:"name,omitempty" yaml:"name"`
	Aliases           []string          `json:"aliases,omitempty" yaml:"aliases"`
	Interactions      InteractionSet    `json:"interactions" yaml:"interactions"`
	Contraindications Contraindications `json:"contraindications" yaml:"contraindications"`
	DosingBoundary    *DosingBoundary   `json:"dosing_boundary,omitempty" yaml:"dosing_boundary"`
}

// KnowledgeBase is an immutable view over compound reference data.
// Implementations must be safe for concurrent readers and must never change
// once handed out.
type KnowledgeBase interface {
	// Lookup resolves a compound identifier or alias. Unknown identifiers
	// return false and are not an error.
	Lookup(compoundID string) (CompoundEntry, bool)
	// DrugClassMembers returns the drug names grouped under a class name
	// such as "ssris", or nil when the class is unknown.
	DrugClassMembers(class string) []string
	Version() string
}

// KnowledgeSource hands out the knowledge base snapshot an evaluation uses.
type KnowledgeSource interface {
	Snapshot() KnowledgeBase
}
