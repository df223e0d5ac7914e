package service

import (
	"fmt"
	"sort"
	"strings"

	"github.com/peptide-safety-engine/internal/domain"
)

// SafetyVerdict is the reduction of the five layer results.
type SafetyVerdict struct {
	OverallSafetyScore float64
	ClearanceStatus    domain.ClearanceStatus
	RequiredActions    []domain.RequiredAction
	SafetyAlerts       []domain.SafetyAlert
}

// Clearance returns the least permissive clearance among the layer
// statuses. A status outside the vocabulary is an invariant violation.
func Clearance(statuses ...domain.LayerStatus) (domain.ClearanceStatus, error) {
	if len(statuses) == 0 {
		return "", fmt.Errorf("%w: no layer statuses to reduce", domain.ErrInvariantViolation)
	}
	worst := domain.ClearanceCleared
	for _, s := range statuses {
		c, err := s.Clearance()
		if err != nil {
			return "", err
		}
		if worst.MorePermissiveThan(c) {
			worst = c
		}
	}
	return worst, nil
}

// SafetyScore weighs each layer by the credit its status earns and scales
// the sum to 0-100, rounded to one decimal.
func SafetyScore(layers []domain.LayerResult, policy SafetyPolicy) (float64, error) {
	total := policy.TotalWeight()
	if total <= 0 {
		return 0, fmt.Errorf("%w: layer weights sum to %g", domain.ErrInvariantViolation, total)
	}
	sum := 0.0
	for _, layer := range layers {
		credit, ok := policy.StatusCredits[layer.Status]
		if !ok {
			return 0, fmt.Errorf("%w: no credit for %w %q", domain.ErrInvariantViolation, domain.ErrInvalidLayerStatus, string(layer.Status))
		}
		sum += policy.LayerWeights[layer.Layer] * credit
	}
	return round1(sum / total * 100), nil
}

// Aggregate reduces exactly one result per safety layer into a verdict.
func Aggregate(layers []domain.LayerResult, policy SafetyPolicy) (*SafetyVerdict, error) {
	if err := checkLayerSet(layers); err != nil {
		return nil, err
	}

	statuses := make([]domain.LayerStatus, 0, len(layers))
	for _, layer := range layers {
		statuses = append(statuses, layer.Status)
	}
	clearance, err := Clearance(statuses...)
	if err != nil {
		return nil, err
	}
	score, err := SafetyScore(layers, policy)
	if err != nil {
		return nil, err
	}

	return &SafetyVerdict{
		OverallSafetyScore: score,
		ClearanceStatus:    clearance,
		RequiredActions:    requiredActions(clearance, layers),
		SafetyAlerts:       safetyAlerts(layers),
	}, nil
}

func checkLayerSet(layers []domain.LayerResult) error {
	seen := make(map[domain.LayerID]bool, len(layers))
	for _, layer := range layers {
		if !layer.Layer.IsValid() {
			return fmt.Errorf("%w: %w %q", domain.ErrInvariantViolation, domain.ErrInvalidLayer, string(layer.Layer))
		}
		if seen[layer.Layer] {
			return fmt.Errorf("%w: layer %s reported twice", domain.ErrInvariantViolation, layer.Layer)
		}
		seen[layer.Layer] = true
	}
	for _, id := range domain.Layers {
		if !seen[id] {
			return fmt.Errorf("%w: layer %s missing", domain.ErrInvariantViolation, id)
		}
	}
	return nil
}

var clearanceActions = map[domain.ClearanceStatus]domain.RequiredAction{
	domain.ClearanceBlocked: {
		Type:        "resolve_safety_issues",
		Priority:    domain.PriorityCritical,
		Action:      "Protocol blocked due to safety concerns",
		Description: "Critical safety issues must be resolved before proceeding",
		Responsible: "system",
	},
	domain.ClearanceRequiresOverride: {
		Type:        "practitioner_override",
		Priority:    domain.PriorityHigh,
		Action:      "Practitioner override required",
		Description: "Safety concerns require practitioner review and justification",
		Responsible: "practitioner",
	},
	domain.ClearanceRequiresReview: {
		Type:        "practitioner_review",
		Priority:    domain.PriorityModerate,
		Action:      "Practitioner review recommended",
		Description: "Warning conditions should be reviewed before proceeding",
		Responsible: "practitioner",
	},
}

var consentAction = domain.RequiredAction{
	Type:        "obtain_consent",
	Priority:    domain.PriorityHigh,
	Action:      "Obtain patient consent",
	Description: "Informed consent must be obtained before treatment",
	Responsible: "staff",
}

// requiredActions lists the clearance action, the consent action when
// consent is pending, then the distinct layer-specific actions sorted by
// type and action.
func requiredActions(clearance domain.ClearanceStatus, layers []domain.LayerResult) []domain.RequiredAction {
	actions := []domain.RequiredAction{}
	if a, ok := clearanceActions[clearance]; ok {
		actions = append(actions, a)
	}

	var specific []domain.RequiredAction
	seen := make(map[string]bool)
	for _, layer := range layers {
		if layer.Layer == domain.LayerConsent && layer.Status == domain.StatusPending {
			actions = append(actions, consentAction)
		}
		for _, w := range layer.Warnings {
			if w.Action == "" {
				continue
			}
			key := w.Type + "\x00" + w.Action
			if seen[key] {
				continue
			}
			seen[key] = true

			priority := domain.PriorityModerate
			if w.Type == domain.WarningPregnancyScreening {
				priority = domain.PriorityHigh
			}
			specific = append(specific, domain.RequiredAction{
				Type:        w.Type,
				Priority:    priority,
				Action:      w.Action,
				Description: w.Message,
				Responsible: "practitioner",
			})
		}
	}

	sort.Slice(specific, func(i, j int) bool {
		if specific[i].Type != specific[j].Type {
			return specific[i].Type < specific[j].Type
		}
		return specific[i].Action < specific[j].Action
	})
	return append(actions, specific...)
}

// safetyAlerts flattens layer findings in layer order.
func safetyAlerts(layers []domain.LayerResult) []domain.SafetyAlert {
	alerts := []domain.SafetyAlert{}
	for _, layer := range layers {
		for _, f := range layer.CriticalBlocks {
			alerts = append(alerts, domain.SafetyAlert{
				Severity:   domain.AlertCritical,
				Type:       "block",
				Layer:      layer.Layer,
				CompoundID: f.CompoundID,
				Message:    "Critical interaction: " + orDefault(f.Mechanism, "Unknown"),
			})
		}
		for _, f := range layer.InteractionWarnings {
			alerts = append(alerts, domain.SafetyAlert{
				Severity:   domain.AlertWarning,
				Type:       "interaction_warning",
				Layer:      layer.Layer,
				CompoundID: f.CompoundID,
				Message:    fmt.Sprintf("%s interaction with %s: %s", capitalize(string(f.Severity)), f.Medication, orDefault(f.Mechanism, "Safety warning")),
			})
		}
		for _, f := range layer.AbsoluteContraindications {
			alerts = append(alerts, domain.SafetyAlert{
				Severity:   domain.AlertCritical,
				Type:       "absolute_contraindication",
				Layer:      layer.Layer,
				CompoundID: f.CompoundID,
				Message:    "Absolute contraindication: " + f.Condition,
			})
		}
		for _, f := range layer.RelativeContraindications {
			alerts = append(alerts, domain.SafetyAlert{
				Severity:   domain.AlertWarning,
				Type:       "relative_contraindication",
				Layer:      layer.Layer,
				CompoundID: f.CompoundID,
				Message:    "Relative contraindication: " + f.Condition,
			})
		}
		for _, v := range layer.BoundaryViolations {
			alerts = append(alerts, domain.SafetyAlert{
				Severity:   domain.AlertCritical,
				Type:       "dosing_violation",
				Layer:      layer.Layer,
				CompoundID: v.CompoundID,
				Message:    "Dosing boundary violation: " + v.Type,
			})
		}
		for _, w := range layer.Warnings {
			alerts = append(alerts, domain.SafetyAlert{
				Severity:   domain.AlertWarning,
				Type:       w.Type,
				Layer:      layer.Layer,
				CompoundID: w.CompoundID,
				Message:    w.Message,
			})
		}
	}
	return alerts
}

func orDefault(s, fallback string) string {
	if s == "" {
		return fallback
	}
	return s
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
