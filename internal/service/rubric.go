package service

import (
	"errors"
	"fmt"

	"github.com/peptide-safety-engine/internal/domain"
)

// Quality levels per dimension.
const (
	EvidenceRCT         = "A_randomized_controlled_trials"
	EvidenceCohort      = "B_cohort_studies"
	EvidenceCaseSeries  = "C_case_series"
	EvidenceExpertLevel = "D_expert_opinion"

	SafetyExcellent  = "excellent"
	SafetyGood       = "good"
	SafetyAcceptable = "acceptable"
	SafetyConcerning = "concerning"

	PersonalizationHigh     = "high_personalization"
	PersonalizationModerate = "moderate_personalization"
	PersonalizationStandard = "standard_personalization"
	PersonalizationMinimal  = "minimal_personalization"

	MonitoringComprehensive = "comprehensive"
	MonitoringAdequate      = "adequate"
	MonitoringBasic         = "basic"
	MonitoringInsufficient  = "insufficient"

	EngagementHigh     = "high_engagement"
	EngagementModerate = "moderate_engagement"
	EngagementBasic    = "basic_engagement"
	EngagementMinimal  = "minimal_engagement"
)

// EvidenceKeyword upgrades the evidence level when the protocol's evidence
// text contains Keyword.
type EvidenceKeyword struct {
	Keyword string
	Level   string
}

// CountLevel assigns Level when at least MinCount signals are present.
type CountLevel struct {
	MinCount int
	Level    string
}

// GradeThreshold assigns Grade to scores of at least MinScore.
type GradeThreshold struct {
	MinScore float64
	Grade    domain.Grade
}

// QualityRubric is the scoring table of the quality scorer. The maximum
// score of a dimension is its highest level's points.
type QualityRubric struct {
	Points map[domain.QualityDimension]map[string]float64

	// EvidenceKeywords are tried in order; the first hit wins.
	EvidenceKeywords     []EvidenceKeyword
	DefaultEvidenceLevel string

	// ExtensivelyTrialed compounds lift the safety profile to TrialedSafetyLevel.
	ExtensivelyTrialed []string
	TrialedSafetyLevel string
	DefaultSafetyLevel string

	// Count levels sorted by descending MinCount.
	PersonalizationLevels []CountLevel
	MonitoringLevels      []CountLevel

	EngagementLevel string

	// Dimensions below RecommendationThreshold percent get their
	// recommendation.
	RecommendationThreshold float64
	Recommendations         map[domain.QualityDimension]string
	MeetsStandardsMessage   string

	Grades     []GradeThreshold
	Benchmarks domain.QualityBenchmarks
}

// DefaultQualityRubric returns the reference rubric.
func DefaultQualityRubric() QualityRubric {
	return QualityRubric{
		Points: map[domain.QualityDimension]map[string]float64{
			domain.DimensionEvidence: {
				EvidenceRCT:         25,
				EvidenceCohort:      20,
				EvidenceCaseSeries:  15,
				EvidenceExpertLevel: 10,
			},
			domain.DimensionSafetyProfile: {
				SafetyExcellent:  25,
				SafetyGood:       20,
				SafetyAcceptable: 15,
				SafetyConcerning: 5,
			},
			domain.DimensionPersonalization: {
				PersonalizationHigh:     20,
				PersonalizationModerate: 15,
				PersonalizationStandard: 10,
				PersonalizationMinimal:  5,
			},
			domain.DimensionMonitoring: {
				MonitoringComprehensive: 15,
				MonitoringAdequate:      12,
				MonitoringBasic:         8,
				MonitoringInsufficient:  3,
			},
			domain.DimensionPatientEngagement: {
				EngagementHigh:     15,
				EngagementModerate: 12,
				EngagementBasic:    8,
				EngagementMinimal:  3,
			},
		},
		EvidenceKeywords: []EvidenceKeyword{
			{Keyword: "randomized controlled trial", Level: EvidenceRCT},
			{Keyword: "clinical trial", Level: EvidenceCohort},
		},
		DefaultEvidenceLevel: EvidenceCohort,
		ExtensivelyTrialed:   []string{"semaglutide"},
		TrialedSafetyLevel:   SafetyExcellent,
		DefaultSafetyLevel:   SafetyGood,
		PersonalizationLevels: []CountLevel{
			{MinCount: 3, Level: PersonalizationHigh},
			{MinCount: 2, Level: PersonalizationModerate},
			{MinCount: 1, Level: PersonalizationStandard},
			{MinCount: 0, Level: PersonalizationMinimal},
		},
		MonitoringLevels: []CountLevel{
			{MinCount: 4, Level: MonitoringComprehensive},
			{MinCount: 3, Level: MonitoringAdequate},
			{MinCount: 2, Level: MonitoringBasic},
			{MinCount: 0, Level: MonitoringInsufficient},
		},
		EngagementLevel:         EngagementHigh,
		RecommendationThreshold: 80,
		Recommendations: map[domain.QualityDimension]string{
			domain.DimensionEvidence:          "Consider incorporating additional clinical trial data",
			domain.DimensionSafetyProfile:     "Review compound safety data and strengthen risk mitigation",
			domain.DimensionPersonalization:   "Enhance personalization factors (genetics, biomarkers)",
			domain.DimensionMonitoring:        "Expand monitoring protocol comprehensiveness",
			domain.DimensionPatientEngagement: "Strengthen patient education and engagement materials",
		},
		MeetsStandardsMessage: "Protocol meets high quality standards",
		Grades: []GradeThreshold{
			{MinScore: 90, Grade: domain.GradeA},
			{MinScore: 80, Grade: domain.GradeB},
			{MinScore: 70, Grade: domain.GradeC},
			{MinScore: 60, Grade: domain.GradeD},
		},
		Benchmarks: domain.QualityBenchmarks{
			Excellent:        90,
			Good:             80,
			Acceptable:       70,
			NeedsImprovement: 60,
		},
	}
}

// QualityRubricFromConfig overlays configured values on the default rubric.
func QualityRubricFromConfig(cfg domain.QualityConfig) (QualityRubric, error) {
	r := DefaultQualityRubric()
	if len(cfg.ExtensivelyTrialedCompounds) > 0 {
		r.ExtensivelyTrialed = append([]string(nil), cfg.ExtensivelyTrialedCompounds...)
	}
	if err := r.Validate(); err != nil {
		return QualityRubric{}, err
	}
	return r, nil
}

// Validate checks that every level the rubric can assign has points.
func (r QualityRubric) Validate() error {
	var errs []error

	for _, d := range domain.QualityDimensions {
		if r.MaxScore(d) <= 0 {
			errs = append(errs, fmt.Errorf("dimension %s has no positive points", d))
		}
	}

	check := func(d domain.QualityDimension, level string) {
		if _, ok := r.Points[d][level]; !ok {
			errs = append(errs, fmt.Errorf("dimension %s has no points for level %q", d, level))
		}
	}
	check(domain.DimensionEvidence, r.DefaultEvidenceLevel)
	for _, k := range r.EvidenceKeywords {
		if k.Keyword == "" {
			errs = append(errs, errors.New("empty evidence keyword"))
		}
		check(domain.DimensionEvidence, k.Level)
	}
	check(domain.DimensionSafetyProfile, r.DefaultSafetyLevel)
	check(domain.DimensionSafetyProfile, r.TrialedSafetyLevel)
	check(domain.DimensionPatientEngagement, r.EngagementLevel)

	for name, levels := range map[domain.QualityDimension][]CountLevel{
		domain.DimensionPersonalization: r.PersonalizationLevels,
		domain.DimensionMonitoring:      r.MonitoringLevels,
	} {
		if len(levels) == 0 || levels[len(levels)-1].MinCount != 0 {
			errs = append(errs, fmt.Errorf("dimension %s needs a level for zero signals", name))
		}
		for i, l := range levels {
			check(name, l.Level)
			if i > 0 && l.MinCount >= levels[i-1].MinCount {
				errs = append(errs, fmt.Errorf("dimension %s levels must be sorted by descending count", name))
			}
		}
	}

	for i, g := range r.Grades {
		if !g.Grade.IsValid() {
			errs = append(errs, fmt.Errorf("invalid grade %q", g.Grade))
		}
		if i > 0 && g.MinScore >= r.Grades[i-1].MinScore {
			errs = append(errs, errors.New("grade thresholds must be sorted by descending score"))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("invalid quality rubric: %w", errors.Join(errs...))
	}
	return nil
}

// MaxScore is the highest number of points dimension d can earn.
func (r QualityRubric) MaxScore(d domain.QualityDimension) float64 {
	highest := 0.0
	for _, points := range r.Points[d] {
		if points > highest {
			highest = points
		}
	}
	return highest
}

// Grade maps an overall score onto a letter grade. Scores below every
// threshold are F.
func (r QualityRubric) Grade(score float64) domain.Grade {
	for _, g := range r.Grades {
		if score >= g.MinScore {
			return g.Grade
		}
	}
	return domain.GradeF
}

func levelFor(levels []CountLevel, count int) string {
	for _, l := range levels {
		if count >= l.MinCount {
			return l.Level
		}
	}
	return levels[len(levels)-1].Level
}
