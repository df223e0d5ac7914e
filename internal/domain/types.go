// Package domain contains the core entities and vocabularies of the peptide
// protocol safety engine: patient and protocol records, compound knowledge,
// per-layer safety findings, the clearance verdict and the quality score.
//
// Every enumerated vocabulary is a string type with an IsValid method. Values
// outside a vocabulary are rejected at the boundary rather than coerced, since
// a mis-typed status could silently weaken a safety verdict.
package domain

import (
	"errors"
	"fmt"
)

// Gender is the patient gender as recorded in demographics.
type Gender string

const (
	GenderMale        Gender = "male"
	GenderFemale      Gender = "female"
	GenderOther       Gender = "other"
	GenderUnspecified Gender = "unspecified"
)

// Severity partitions the interactions recorded for a compound.
type Severity string

const (
	SeverityCritical Severity = "critical"
	SeverityMajor    Severity = "major"
	SeverityModerate Severity = "moderate"
	SeverityMinor    Severity = "minor"
)

// LayerStatus is the native status reported by a single safety layer.
type LayerStatus string

const (
	StatusPassed           LayerStatus = "passed"
	StatusWarning          LayerStatus = "warning"
	StatusBlocked          LayerStatus = "blocked"
	StatusRequiresReview   LayerStatus = "requires_review"
	StatusRequiresOverride LayerStatus = "requires_override"
	StatusPending          LayerStatus = "pending"
)

// ClearanceStatus is the single verdict summarizing whether a protocol may
// proceed. The vocabulary is totally ordered, see Rank.
type ClearanceStatus string

const (
	ClearanceCleared          ClearanceStatus = "cleared"
	ClearancePending          ClearanceStatus = "pending"
	ClearanceRequiresReview   ClearanceStatus = "requires_review"
	ClearanceRequiresOverride ClearanceStatus = "requires_override"
	ClearanceBlocked          ClearanceStatus = "blocked"
)

// LayerID identifies one of the five independent safety checks.
type LayerID string

const (
	LayerInteractions      LayerID = "interactions"
	LayerContraindications LayerID = "contraindications"
	LayerDosing            LayerID = "dosing"
	LayerPractitioner      LayerID = "practitioner"
	LayerConsent           LayerID = "consent"
)

// Layers lists every safety layer in evaluation order.
var Layers = []LayerID{
	LayerInteractions,
	LayerContraindications,
	LayerDosing,
	LayerPractitioner,
	LayerConsent,
}

// AlertSeverity classifies entries in the flattened safety alert list.
type AlertSeverity string

const (
	AlertCritical AlertSeverity = "critical"
	AlertWarning  AlertSeverity = "warning"
	AlertInfo     AlertSeverity = "info"
)

// Priority orders required actions.
type Priority string

const (
	PriorityCritical Priority = "critical"
	PriorityHigh     Priority = "high"
	PriorityModerate Priority = "moderate"
	PriorityLow      Priority = "low"
)

// Grade is the letter grade of a quality score.
type Grade string

const (
	GradeA Grade = "A"
	GradeB Grade = "B"
	GradeC Grade = "C"
	GradeD Grade = "D"
	GradeF Grade = "F"
)

// Trend is the direction of a monitored metric relative to its benchmark.
type Trend string

const (
	TrendImproving Trend = "improving"
	TrendStable    Trend = "stable"
	TrendDeclining Trend = "declining"
)

var (
	ErrNotFound               = errors.New("not found")
	ErrInvalidGender          = errors.New("invalid gender")
	ErrInvalidSeverity        = errors.New("invalid interaction severity")
	ErrInvalidLayerStatus     = errors.New("invalid layer status")
	ErrInvalidClearanceStatus = errors.New("invalid clearance status")
	ErrInvalidLayer           = errors.New("invalid safety layer")
	ErrInvariantViolation     = errors.New("internal invariant violation")
	ErrConsentUnavailable     = errors.New("consent status unavailable")
	ErrUnknownCompound        = errors.New("unknown compound")
)

// IsValid reports whether g is part of the gender vocabulary. The empty
// value is accepted and means unspecified.
func (g Gender) IsValid() bool {
	switch g {
	case GenderMale, GenderFemale, GenderOther, GenderUnspecified, "":
		return true
	default:
		return false
	}
}

func (g Gender) String() string {
	if g == "" {
		return string(GenderUnspecified)
	}
	return string(g)
}

func (s Severity) IsValid() bool {
	switch s {
	case SeverityCritical, SeverityMajor, SeverityModerate, SeverityMinor:
		return true
	default:
		return false
	}
}

func (s Severity) String() string {
	return string(s)
}

func (s LayerStatus) IsValid() bool {
	switch s {
	case StatusPassed, StatusWarning, StatusBlocked,
		StatusRequiresReview, StatusRequiresOverride, StatusPending:
		return true
	default:
		return false
	}
}

func (s LayerStatus) String() string {
	return string(s)
}

// Clearance maps a layer's native status onto the shared clearance
// vocabulary. An unknown status is an invariant violation.
func (s LayerStatus) Clearance() (ClearanceStatus, error) {
	switch s {
	case StatusPassed:
		return ClearanceCleared, nil
	case StatusWarning, StatusRequiresReview:
		return ClearanceRequiresReview, nil
	case StatusRequiresOverride:
		return ClearanceRequiresOverride, nil
	case StatusPending:
		return ClearancePending, nil
	case StatusBlocked:
		return ClearanceBlocked, nil
	default:
		return "", fmt.Errorf("%w: %w %q", ErrInvariantViolation, ErrInvalidLayerStatus, string(s))
	}
}

func (c ClearanceStatus) IsValid() bool {
	return c.Rank() >= 0
}

// Rank returns the position of c in the permissiveness order, 0 being the
// most permissive. Unknown values rank -1.
func (c ClearanceStatus) Rank() int {
	switch c {
	case ClearanceCleared:
		return 0
	case ClearancePending:
		return 1
	case ClearanceRequiresReview:
		return 2
	case ClearanceRequiresOverride:
		return 3
	case ClearanceBlocked:
		return 4
	default:
		return -1
	}
}

// MorePermissiveThan reports whether c allows more than other.
func (c ClearanceStatus) MorePermissiveThan(other ClearanceStatus) bool {
	return c.Rank() < other.Rank()
}

func (c ClearanceStatus) String() string {
	return string(c)
}

func (l LayerID) IsValid() bool {
	switch l {
	case LayerInteractions, LayerContraindications, LayerDosing, LayerPractitioner, LayerConsent:
		return true
	default:
		return false
	}
}

// DisplayName returns the human readable layer title used in reports.
func (l LayerID) DisplayName() string {
	switch l {
	case LayerInteractions:
		return "Drug Interaction Screening"
	case LayerContraindications:
		return "Contraindication Analysis"
	case LayerDosing:
		return "Dosing Boundary Analysis"
	case LayerPractitioner:
		return "Practitioner Review Requirements"
	case LayerConsent:
		return "Patient Consent Verification"
	default:
		return string(l)
	}
}

func (l LayerID) String() string {
	return string(l)
}

func (g Grade) IsValid() bool {
	switch g {
	case GradeA, GradeB, GradeC, GradeD, GradeF:
		return true
	default:
		return false
	}
}

// Description returns the grade with its qualitative label, e.g. "A (Excellent)".
func (g Grade) Description() string {
	switch g {
	case GradeA:
		return "A (Excellent)"
	case GradeB:
		return "B (Good)"
	case GradeC:
		return "C (Acceptable)"
	case GradeD:
		return "D (Needs Improvement)"
	case GradeF:
		return "F (Poor)"
	default:
		return string(g)
	}
}

func (t Trend) IsValid() bool {
	switch t {
	case TrendImproving, TrendStable, TrendDeclining:
		return true
	default:
		return false
	}
}
