package service

import (
	"fmt"
	"sort"
	"strings"

	"github.com/peptide-safety-engine/internal/domain"
	"github.com/peptide-safety-engine/internal/matching"
)

// Interaction severities screened by layer 1. Minor interactions are
// informational and never screened.
var screenedSeverities = []domain.Severity{
	domain.SeverityCritical,
	domain.SeverityMajor,
	domain.SeverityModerate,
}

const (
	pregnancyKeyword       = "pregnancy"
	pregnancyScreeningMsg  = "Pregnancy screening required for females of childbearing age"
	pregnancyTestAction    = "Obtain pregnancy test"
	nearUpperLimitMsg      = "Dose approaching upper limit - enhanced monitoring recommended"
	enhancedMonitoringStep = "Schedule enhanced monitoring"
)

// resolvedCompound is a protocol compound looked up in the knowledge base.
type resolvedCompound struct {
	ID         string
	Requested  string
	Entry      domain.CompoundEntry
	Recognized bool
}

// resolveCompounds looks up each requested compound once, keeping the first
// occurrence's position. Unknown compounds are kept with Recognized unset.
func resolveCompounds(kb domain.KnowledgeBase, requested []string) []resolvedCompound {
	seen := make(map[string]bool, len(requested))
	out := make([]resolvedCompound, 0, len(requested))
	for _, raw := range requested {
		rc := resolvedCompound{Requested: strings.TrimSpace(raw)}
		if entry, ok := kb.Lookup(raw); ok {
			rc.ID, rc.Entry, rc.Recognized = entry.ID, entry, true
		} else {
			rc.ID = strings.ToLower(rc.Requested)
		}
		if rc.ID == "" || seen[rc.ID] {
			continue
		}
		seen[rc.ID] = true
		out = append(out, rc)
	}
	return out
}

func coverageOf(compounds []resolvedCompound) []domain.CompoundCoverage {
	coverage := make([]domain.CompoundCoverage, 0, len(compounds))
	for _, c := range compounds {
		coverage = append(coverage, domain.CompoundCoverage{CompoundID: c.ID, CompoundRecognized: c.Recognized})
	}
	return coverage
}

// unrecognizedCompounds lists, sorted, every compound of the protocol that
// the knowledge base does not know, including dosing-only compounds.
func unrecognizedCompounds(kb domain.KnowledgeBase, protocol *domain.Protocol) []string {
	requested := append([]string(nil), protocol.RecommendedCompounds...)
	for _, entry := range protocol.DosingEntries {
		requested = append(requested, entry.CompoundID)
	}

	var unknown []string
	for _, c := range resolveCompounds(kb, requested) {
		if !c.Recognized {
			unknown = append(unknown, c.ID)
		}
	}
	sort.Strings(unknown)
	return unknown
}

// interactionMatches reports whether an interaction's interacting drug, or
// any member of the drug class it names, matches a patient medication.
func interactionMatches(kb domain.KnowledgeBase, m matching.Matcher, interactingDrug, medication string) bool {
	if m.Matches(interactingDrug, medication) {
		return true
	}
	for _, member := range kb.DrugClassMembers(interactingDrug) {
		if m.Matches(member, medication) {
			return true
		}
	}
	return false
}

// ScreenInteractions is layer 1. Every (compound, medication) pair matching
// a critical interaction is a critical block; major and moderate matches are
// interaction warnings.
func ScreenInteractions(kb domain.KnowledgeBase, m matching.Matcher, patient *domain.Patient, protocol *domain.Protocol) domain.LayerResult {
	result := newLayerResult(domain.LayerInteractions)
	compounds := resolveCompounds(kb, protocol.RecommendedCompounds)
	result.Coverage = coverageOf(compounds)

	counts := make(map[domain.Severity]int)
	for _, c := range compounds {
		if !c.Recognized {
			continue
		}
		for _, severity := range screenedSeverities {
			for _, in := range c.Entry.Interactions.BySeverity(severity) {
				for _, medication := range patient.Medications {
					if !interactionMatches(kb, m, in.InteractingDrug, medication) {
						continue
					}
					finding := domain.InteractionFinding{
						CompoundID:      c.ID,
						Medication:      medication,
						InteractingDrug: in.InteractingDrug,
						Severity:        severity,
						Mechanism:       in.Mechanism,
						Management:      in.Management,
					}
					counts[severity]++
					if severity == domain.SeverityCritical {
						result.CriticalBlocks = append(result.CriticalBlocks, finding)
					} else {
						result.InteractionWarnings = append(result.InteractionWarnings, finding)
					}
				}
			}
		}
	}

	switch {
	case len(result.CriticalBlocks) > 0:
		result.Status = domain.StatusBlocked
	case len(result.InteractionWarnings) > 0:
		result.Status = domain.StatusWarning
	}
	result.Summary = interactionSummary(counts)
	return result
}

func interactionSummary(counts map[domain.Severity]int) string {
	var parts []string
	for _, severity := range screenedSeverities {
		if n := counts[severity]; n > 0 {
			parts = append(parts, fmt.Sprintf("%d %s interaction(s)", n, severity))
		}
	}
	if len(parts) == 0 {
		return "No significant drug interactions found."
	}
	return fmt.Sprintf("Found %s. Review all interactions before prescribing.", strings.Join(parts, ", "))
}

// ScreenContraindications is layer 2. Absolute contraindications matching
// the medical history, and allergies to a compound itself, block. Relative
// matches warn. Women inside the pregnancy screening window get a screening
// prompt for compounds contraindicated in pregnancy, whether or not their
// history mentions it.
func ScreenContraindications(kb domain.KnowledgeBase, m matching.Matcher, policy SafetyPolicy, patient *domain.Patient, protocol *domain.Protocol) domain.LayerResult {
	result := newLayerResult(domain.LayerContraindications)
	compounds := resolveCompounds(kb, protocol.RecommendedCompounds)
	result.Coverage = coverageOf(compounds)

	screenPregnancy := patient.IsFemale() && policy.inPregnancyWindow(patient.Demographics.Age)

	for _, c := range compounds {
		if allergy, ok := allergyTo(m, c, patient.Allergies); ok {
			result.AbsoluteContraindications = append(result.AbsoluteContraindications, domain.ContraindicationFinding{
				CompoundID:   c.ID,
				Condition:    "Allergy to " + compoundLabel(c),
				PatientEntry: allergy,
				Source:       domain.SourceAllergies,
			})
		}
		if !c.Recognized {
			continue
		}

		prompted := false
		for _, condition := range c.Entry.Contraindications.Absolute {
			if entry, ok := matching.Any(m, condition, patient.MedicalHistory); ok {
				result.AbsoluteContraindications = append(result.AbsoluteContraindications, domain.ContraindicationFinding{
					CompoundID:   c.ID,
					Condition:    condition,
					PatientEntry: entry,
					Source:       domain.SourceMedicalHistory,
				})
			}
			if screenPregnancy && !prompted && strings.Contains(strings.ToLower(condition), pregnancyKeyword) {
				prompted = true
				result.Warnings = append(result.Warnings, domain.LayerWarning{
					CompoundID: c.ID,
					Type:       domain.WarningPregnancyScreening,
					Message:    pregnancyScreeningMsg,
					Action:     pregnancyTestAction,
				})
			}
		}

		for _, condition := range c.Entry.Contraindications.Relative {
			if entry, ok := matching.Any(m, condition, patient.MedicalHistory); ok {
				result.RelativeContraindications = append(result.RelativeContraindications, domain.ContraindicationFinding{
					CompoundID:   c.ID,
					Condition:    condition,
					PatientEntry: entry,
					Source:       domain.SourceMedicalHistory,
				})
			}
		}
	}

	switch {
	case len(result.AbsoluteContraindications) > 0:
		result.Status = domain.StatusBlocked
	case len(result.RelativeContraindications) > 0:
		// The pregnancy prompt is advisory and leaves the status alone.
		result.Status = domain.StatusWarning
	}
	result.Summary = fmt.Sprintf("%d absolute, %d relative contraindication(s)",
		len(result.AbsoluteContraindications), len(result.RelativeContraindications))
	return result
}

// allergyTo matches patient allergies against a compound's id, name and
// aliases.
func allergyTo(m matching.Matcher, c resolvedCompound, allergies []string) (string, bool) {
	names := []string{c.Requested}
	if c.Recognized {
		names = append(names, c.Entry.ID, c.Entry.Name)
		names = append(names, c.Entry.Aliases...)
	}
	for _, allergy := range allergies {
		for _, name := range names {
			if m.Matches(name, allergy) {
				return allergy, true
			}
		}
	}
	return "", false
}

func compoundLabel(c resolvedCompound) string {
	if c.Recognized && c.Entry.Name != "" {
		return c.Entry.Name
	}
	return c.ID
}

// CheckDosingBoundaries is layer 3. A dose outside the expanded safe range
// is a violation and blocks. A dose above the soft-warning fraction of the
// standard maximum warns, as do titration steps and continuous durations
// beyond the compound's limits. Compounds without a boundary are skipped.
func CheckDosingBoundaries(kb domain.KnowledgeBase, policy SafetyPolicy, protocol *domain.Protocol) domain.LayerResult {
	result := newLayerResult(domain.LayerDosing)
	result.Coverage = coverageOf(resolveCompounds(kb, protocol.RecommendedCompounds))

	checked := 0
	for _, entry := range protocol.DosingEntries {
		compound, ok := kb.Lookup(entry.CompoundID)
		if !ok || compound.DosingBoundary == nil {
			continue
		}
		checked++
		b := compound.DosingBoundary

		dose, ok := convertDose(entry.CalculatedDose, entry.Unit, b.Unit)
		if !ok {
			result.Warnings = append(result.Warnings, domain.LayerWarning{
				CompoundID: compound.ID,
				Type:       domain.WarningUnitMismatch,
				Message:    fmt.Sprintf("Dose unit %q is not comparable with boundary unit %q, boundary not verified", entry.Unit, b.Unit),
				Action:     "Confirm dose unit",
			})
			continue
		}

		safeMin := b.MinStandardDose * policy.MinDoseMultiplier
		safeMax := b.MaxStandardDose * policy.MaxDoseMultiplier
		violation := domain.BoundaryViolation{
			CompoundID: compound.ID,
			Dose:       dose,
			SafeMin:    safeMin,
			SafeMax:    safeMax,
			Unit:       b.Unit,
		}

		switch {
		case dose < safeMin:
			violation.Type = domain.ViolationBelowMinimum
			result.BoundaryViolations = append(result.BoundaryViolations, violation)
		case dose > safeMax:
			violation.Type = domain.ViolationAboveMaximum
			result.BoundaryViolations = append(result.BoundaryViolations, violation)
		case dose > b.MaxStandardDose*policy.SoftWarningFraction:
			result.Warnings = append(result.Warnings, domain.LayerWarning{
				CompoundID: compound.ID,
				Type:       domain.WarningDoseNearUpperLimit,
				Message:    nearUpperLimitMsg,
				Action:     enhancedMonitoringStep,
			})
		}

		if entry.PreviousDose != nil && b.MaxWeeklyIncrease > 0 {
			previous, ok := convertDose(*entry.PreviousDose, entry.Unit, b.Unit)
			if ok && dose-previous > b.MaxWeeklyIncrease {
				result.Warnings = append(result.Warnings, domain.LayerWarning{
					CompoundID: compound.ID,
					Type:       domain.WarningTitrationStep,
					Message: fmt.Sprintf("Titration step of %g %s exceeds the weekly maximum of %g %s",
						dose-previous, b.Unit, b.MaxWeeklyIncrease, b.Unit),
					Action: "Confirm titration schedule",
				})
			}
		}

		if entry.DurationWeeks != nil && b.MaxContinuousDurationWeeks > 0 && *entry.DurationWeeks > b.MaxContinuousDurationWeeks {
			result.Warnings = append(result.Warnings, domain.LayerWarning{
				CompoundID: compound.ID,
				Type:       domain.WarningContinuousDuration,
				Message: fmt.Sprintf("Planned duration of %d weeks exceeds the continuous maximum of %d weeks",
					*entry.DurationWeeks, b.MaxContinuousDurationWeeks),
				Action: "Plan a treatment break",
			})
		}
	}

	switch {
	case len(result.BoundaryViolations) > 0:
		result.Status = domain.StatusBlocked
	case len(result.Warnings) > 0:
		result.Status = domain.StatusWarning
	}
	result.Summary = fmt.Sprintf("%d dose(s) checked, %d violation(s)", checked, len(result.BoundaryViolations))
	return result
}

// Mass units expressed in micrograms.
var massUnits = map[string]float64{
	"g":   1e6,
	"mg":  1e3,
	"mcg": 1,
	"ug":  1,
	"µg":  1,
	"μg":  1,
}

// convertDose expresses dose, given in unit from, in unit to. An empty unit
// on either side is taken to be the other. Units that are neither equal nor
// both mass units cannot be converted.
func convertDose(dose float64, from, to string) (float64, bool) {
	f := strings.ToLower(strings.TrimSpace(from))
	t := strings.ToLower(strings.TrimSpace(to))
	if f == "" || t == "" || f == t {
		return dose, true
	}
	fromFactor, okFrom := massUnits[f]
	toFactor, okTo := massUnits[t]
	if !okFrom || !okTo {
		return 0, false
	}
	if fromFactor == toFactor {
		return dose, true
	}
	return dose * fromFactor / toFactor, true
}

// PractitionerGate is layer 4, a pure reduction over the screening layers:
// any blocked layer requires an override with justification, any warning
// requires a review.
func PractitionerGate(upstream ...domain.LayerResult) (domain.LayerResult, error) {
	result := newLayerResult(domain.LayerPractitioner)
	review := &domain.ReviewRequirement{}

	var blocked, warned []domain.LayerID
	for _, layer := range upstream {
		if !layer.Status.IsValid() {
			return domain.LayerResult{}, fmt.Errorf("%w: layer %s reported %w %q",
				domain.ErrInvariantViolation, layer.Layer, domain.ErrInvalidLayerStatus, string(layer.Status))
		}
		switch layer.Status {
		case domain.StatusBlocked:
			blocked = append(blocked, layer.Layer)
		case domain.StatusWarning:
			warned = append(warned, layer.Layer)
		}
	}

	switch {
	case len(blocked) > 0:
		result.Status = domain.StatusRequiresOverride
		review.ReviewRequired = true
		review.OverrideRequired = true
		review.JustificationRequired = true
		review.TriggeringLayers = blocked
		result.Summary = "Practitioner override with justification required"
	case len(warned) > 0:
		result.Status = domain.StatusRequiresReview
		review.ReviewRequired = true
		review.TriggeringLayers = warned
		result.Summary = "Practitioner review required"
	default:
		result.Summary = "No practitioner action required"
	}
	result.Review = review
	return result, nil
}

// ConsentGate is layer 5. It passes once every consent element is
// confirmed and is pending otherwise; it never blocks.
func ConsentGate(status domain.ConsentStatus) domain.LayerResult {
	result := newLayerResult(domain.LayerConsent)
	requirement := &domain.ConsentRequirement{
		Obtained:         status.Obtained,
		RequiredElements: append([]string(nil), domain.RequiredConsentElements...),
	}
	if status.Obtained {
		result.Summary = "Patient consent obtained"
	} else {
		result.Status = domain.StatusPending
		requirement.MissingElements = status.MissingElements()
		result.Summary = fmt.Sprintf("%d consent element(s) outstanding", len(requirement.MissingElements))
	}
	result.Consent = requirement
	return result
}

func newLayerResult(layer domain.LayerID) domain.LayerResult {
	return domain.LayerResult{
		Layer:  layer,
		Name:   layer.DisplayName(),
		Status: domain.StatusPassed,
	}
}
