package service

import (
	"errors"
	"fmt"
	"math"

	"github.com/peptide-safety-engine/internal/domain"
)

// SafetyPolicy holds the tunable numbers of the safety evaluation: dose
// multipliers, the soft-warning threshold, per-layer score weights and the
// credit each layer status earns.
type SafetyPolicy struct {
	// MinDoseMultiplier and MaxDoseMultiplier expand the standard dose range
	// into the hard safe range.
	MinDoseMultiplier float64
	MaxDoseMultiplier float64
	// SoftWarningFraction of the standard maximum above which a dose earns a
	// soft warning.
	SoftWarningFraction float64

	LayerWeights  map[domain.LayerID]float64
	StatusCredits map[domain.LayerStatus]float64

	// Pregnancy screening window, inclusive.
	PregnancyMinAge int
	PregnancyMaxAge int
}

// DefaultSafetyPolicy returns the reference policy.
func DefaultSafetyPolicy() SafetyPolicy {
	return SafetyPolicy{
		MinDoseMultiplier:   0.25,
		MaxDoseMultiplier:   2.0,
		SoftWarningFraction: 0.8,
		LayerWeights: map[domain.LayerID]float64{
			domain.LayerInteractions:      20,
			domain.LayerContraindications: 25,
			domain.LayerDosing:            20,
			domain.LayerPractitioner:      15,
			domain.LayerConsent:           20,
		},
		StatusCredits: map[domain.LayerStatus]float64{
			domain.StatusPassed:           1.0,
			domain.StatusWarning:          0.7,
			domain.StatusRequiresReview:   0.7,
			domain.StatusRequiresOverride: 0.3,
			domain.StatusPending:          0.3,
			domain.StatusBlocked:          0,
		},
		PregnancyMinAge: 18,
		PregnancyMaxAge: 50,
	}
}

// SafetyPolicyFromConfig overlays configured values on the default policy.
// Zero values keep the default.
func SafetyPolicyFromConfig(cfg domain.SafetyConfig) (SafetyPolicy, error) {
	p := DefaultSafetyPolicy()
	if cfg.MinDoseMultiplier != 0 {
		p.MinDoseMultiplier = cfg.MinDoseMultiplier
	}
	if cfg.MaxDoseMultiplier != 0 {
		p.MaxDoseMultiplier = cfg.MaxDoseMultiplier
	}
	if cfg.SoftWarningFraction != 0 {
		p.SoftWarningFraction = cfg.SoftWarningFraction
	}
	if cfg.PregnancyMinAge != 0 {
		p.PregnancyMinAge = cfg.PregnancyMinAge
	}
	if cfg.PregnancyMaxAge != 0 {
		p.PregnancyMaxAge = cfg.PregnancyMaxAge
	}
	for name, weight := range cfg.LayerWeights {
		layer := domain.LayerID(name)
		if !layer.IsValid() {
			return SafetyPolicy{}, fmt.Errorf("%w: %q in layer weights", domain.ErrInvalidLayer, name)
		}
		p.LayerWeights[layer] = weight
	}
	if err := p.Validate(); err != nil {
		return SafetyPolicy{}, err
	}
	return p, nil
}

// Validate checks that the policy is complete and internally consistent.
func (p SafetyPolicy) Validate() error {
	var errs []error

	if !(p.MinDoseMultiplier > 0 && p.MinDoseMultiplier <= 1) {
		errs = append(errs, fmt.Errorf("min dose multiplier %g must be in (0, 1]", p.MinDoseMultiplier))
	}
	if !(p.MaxDoseMultiplier >= 1) || math.IsInf(p.MaxDoseMultiplier, 0) {
		errs = append(errs, fmt.Errorf("max dose multiplier %g must be at least 1", p.MaxDoseMultiplier))
	}
	if !(p.SoftWarningFraction > 0 && p.SoftWarningFraction <= 1) {
		errs = append(errs, fmt.Errorf("soft warning fraction %g must be in (0, 1]", p.SoftWarningFraction))
	}

	total := 0.0
	for _, layer := range domain.Layers {
		w, ok := p.LayerWeights[layer]
		if !ok {
			errs = append(errs, fmt.Errorf("missing weight for layer %s", layer))
			continue
		}
		if w < 0 || math.IsNaN(w) || math.IsInf(w, 0) {
			errs = append(errs, fmt.Errorf("weight %g for layer %s must be a non-negative number", w, layer))
		}
		total += w
	}
	if total <= 0 {
		errs = append(errs, errors.New("layer weights must sum to a positive total"))
	}

	for _, status := range []domain.LayerStatus{
		domain.StatusPassed, domain.StatusWarning, domain.StatusRequiresReview,
		domain.StatusRequiresOverride, domain.StatusPending, domain.StatusBlocked,
	} {
		c, ok := p.StatusCredits[status]
		if !ok {
			errs = append(errs, fmt.Errorf("missing credit for status %s", status))
			continue
		}
		if !(c >= 0 && c <= 1) {
			errs = append(errs, fmt.Errorf("credit %g for status %s must be in [0, 1]", c, status))
		}
	}

	if p.PregnancyMinAge < 0 || p.PregnancyMinAge > p.PregnancyMaxAge {
		errs = append(errs, fmt.Errorf("pregnancy screening window [%d, %d] is invalid", p.PregnancyMinAge, p.PregnancyMaxAge))
	}

	if len(errs) > 0 {
		return fmt.Errorf("invalid safety policy: %w", errors.Join(errs...))
	}
	return nil
}

// TotalWeight is the sum of all layer weights.
func (p SafetyPolicy) TotalWeight() float64 {
	total := 0.0
	for _, layer := range domain.Layers {
		total += p.LayerWeights[layer]
	}
	return total
}

// inPregnancyWindow reports whether age falls inside the screening window.
func (p SafetyPolicy) inPregnancyWindow(age int) bool {
	return age >= p.PregnancyMinAge && age <= p.PregnancyMaxAge
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}
