package service

import (
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/peptide-safety-engine/internal/domain"
)

// QualityScorer rates the thoroughness of a protocol along the rubric's
// five dimensions. It is independent of the safety verdict.
type QualityScorer struct {
	logger *logrus.Logger
	rubric QualityRubric
}

// NewQualityScorer creates a scorer for rubric.
func NewQualityScorer(logger *logrus.Logger, rubric QualityRubric) (*QualityScorer, error) {
	if err := rubric.Validate(); err != nil {
		return nil, err
	}
	return &QualityScorer{logger: logger, rubric: rubric}, nil
}

// GradeFor grades a score with the default rubric.
func GradeFor(score float64) domain.Grade {
	return DefaultQualityRubric().Grade(score)
}

// EvaluateQuality scores patient and protocol against the rubric.
func (s *QualityScorer) EvaluateQuality(patient *domain.Patient, protocol *domain.Protocol) (*domain.QualityResult, error) {
	if err := domain.ValidateEvaluationInput(patient, protocol); err != nil {
		return nil, err
	}

	components := []domain.ComponentScore{
		s.component(domain.DimensionEvidence, s.evidenceLevel(protocol), 0),
		s.component(domain.DimensionSafetyProfile, s.safetyLevel(protocol), 0),
	}
	signals := personalizationSignals(patient, protocol)
	components = append(components, s.component(domain.DimensionPersonalization, levelFor(s.rubric.PersonalizationLevels, signals), signals))
	sections := protocol.MonitoringRequirements.SectionCount()
	components = append(components, s.component(domain.DimensionMonitoring, levelFor(s.rubric.MonitoringLevels, sections), sections))
	components = append(components, s.component(domain.DimensionPatientEngagement, s.rubric.EngagementLevel, 0))

	total, possible := 0.0, 0.0
	for _, c := range components {
		total += c.Score
		possible += c.MaxScore
	}
	overall := round1(100 * total / possible)
	grade := s.rubric.Grade(overall)

	result := &domain.QualityResult{
		OverallScore:     overall,
		OverallGrade:     grade,
		GradeDescription: grade.Description(),
		ComponentScores:  components,
		Recommendations:  s.recommendations(components),
		Benchmarks:       s.rubric.Benchmarks,
	}

	s.logger.WithFields(logrus.Fields{
		"protocol_id":   protocol.ID,
		"overall_score": result.OverallScore,
		"grade":         result.OverallGrade,
	}).Info("Quality evaluation completed")

	return result, nil
}

func (s *QualityScorer) component(d domain.QualityDimension, level string, factors int) domain.ComponentScore {
	score := s.rubric.Points[d][level]
	maxScore := s.rubric.MaxScore(d)
	return domain.ComponentScore{
		Dimension:    d,
		Level:        level,
		Score:        score,
		MaxScore:     maxScore,
		Percentage:   round1(score / maxScore * 100),
		FactorsCount: factors,
	}
}

func (s *QualityScorer) evidenceLevel(protocol *domain.Protocol) string {
	text := strings.ToLower(protocol.EvidenceSupport)
	for _, k := range s.rubric.EvidenceKeywords {
		if strings.Contains(text, strings.ToLower(k.Keyword)) {
			return k.Level
		}
	}
	return s.rubric.DefaultEvidenceLevel
}

func (s *QualityScorer) safetyLevel(protocol *domain.Protocol) string {
	for _, compound := range protocol.RecommendedCompounds {
		name := strings.ToLower(compound)
		for _, trialed := range s.rubric.ExtensivelyTrialed {
			if t := strings.ToLower(strings.TrimSpace(trialed)); t != "" && strings.Contains(name, t) {
				return s.rubric.TrialedSafetyLevel
			}
		}
	}
	return s.rubric.DefaultSafetyLevel
}

// personalizationSignals counts: adjusted dosing, more than one primary
// concern, a contraindications section, a monitoring section.
func personalizationSignals(patient *domain.Patient, protocol *domain.Protocol) int {
	count := 0
	if protocol.PersonalizationSignals.WeightAdjustedDosing || protocol.PersonalizationSignals.ConcernAdjustedDosing {
		count++
	}
	if len(patient.PrimaryConcerns) > 1 {
		count++
	}
	if len(protocol.ContraindicationsSection) > 0 {
		count++
	}
	if protocol.MonitoringRequirements.SectionCount() > 0 {
		count++
	}
	return count
}

func (s *QualityScorer) recommendations(components []domain.ComponentScore) []string {
	var recs []string
	for _, c := range components {
		if c.Score/c.MaxScore*100 >= s.rubric.RecommendationThreshold {
			continue
		}
		if rec, ok := s.rubric.Recommendations[c.Dimension]; ok {
			recs = append(recs, rec)
		}
	}
	if len(recs) == 0 {
		recs = append(recs, s.rubric.MeetsStandardsMessage)
	}
	return recs
}
