package domain

import (
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validPatient() *Patient {
	return &Patient{
		ID:             "patient-1",
		Medications:    []string{"metformin"},
		MedicalHistory: []string{"type 2 diabetes"},
		Demographics:   Demographics{Age: 42, Gender: GenderFemale},
	}
}

func validProtocol() *Protocol {
	return &Protocol{
		ID:                   "protocol-1",
		RecommendedCompounds: []string{"semaglutide"},
		DosingEntries: []DosingEntry{
			{CompoundID: "semaglutide", CalculatedDose: 0.5, Unit: "mg"},
		},
	}
}

func fieldsOf(t *testing.T, err error) []string {
	t.Helper()
	var verrs ValidationErrors
	require.True(t, errors.As(err, &verrs), "expected ValidationErrors, got %v", err)
	fields := make([]string, 0, len(verrs))
	for _, e := range verrs {
		fields = append(fields, e.Field)
	}
	return fields
}

func TestValidateEvaluationInput_Valid(t *testing.T) {
	assert.NoError(t, ValidateEvaluationInput(validPatient(), validProtocol()))
}

func TestValidateEvaluationInput_MissingRecords(t *testing.T) {
	err := ValidateEvaluationInput(nil, validProtocol())
	var verr *ValidationError
	require.True(t, errors.As(err, &verr))
	assert.Equal(t, "patient", verr.Field)

	err = ValidateEvaluationInput(validPatient(), nil)
	require.True(t, errors.As(err, &verr))
	assert.Equal(t, "protocol", verr.Field)
}

func TestValidateEvaluationInput_FieldErrors(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(p *Patient, pr *Protocol)
		field  string
	}{
		{
			name:   "negative age",
			mutate: func(p *Patient, _ *Protocol) { p.Demographics.Age = -1 },
			field:  "demographics.age",
		},
		{
			name:   "unknown gender",
			mutate: func(p *Patient, _ *Protocol) { p.Demographics.Gender = "f" },
			field:  "demographics.gender",
		},
		{
			name:   "blank medication",
			mutate: func(p *Patient, _ *Protocol) { p.Medications = []string{"  "} },
			field:  "medications[0]",
		},
		{
			name:   "no compounds",
			mutate: func(_ *Patient, pr *Protocol) { pr.RecommendedCompounds = nil },
			field:  "recommended_compounds",
		},
		{
			name:   "blank compound",
			mutate: func(_ *Patient, pr *Protocol) { pr.RecommendedCompounds = []string{""} },
			field:  "recommended_compounds[0]",
		},
		{
			name:   "dose is NaN",
			mutate: func(_ *Patient, pr *Protocol) { pr.DosingEntries[0].CalculatedDose = math.NaN() },
			field:  "dosing_entries[0].calculated_dose",
		},
		{
			name:   "negative dose",
			mutate: func(_ *Patient, pr *Protocol) { pr.DosingEntries[0].CalculatedDose = -2 },
			field:  "dosing_entries[0].calculated_dose",
		},
		{
			name:   "dosing entry without compound",
			mutate: func(_ *Patient, pr *Protocol) { pr.DosingEntries[0].CompoundID = "" },
			field:  "dosing_entries[0].compound_id",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			patient, protocol := validPatient(), validProtocol()
			tt.mutate(patient, protocol)

			err := ValidateEvaluationInput(patient, protocol)
			require.Error(t, err)
			assert.True(t, IsValidationError(err))
			assert.Contains(t, fieldsOf(t, err), tt.field)
		})
	}
}

func TestValidate_UsageStatistics(t *testing.T) {
	rate := 0.9
	err := Validate(&UsageStatistics{SuccessRate: &rate})
	require.Error(t, err)
	fields := fieldsOf(t, err)
	assert.ElementsMatch(t, []string{"incident_rate", "satisfaction_score", "practitioner_rating"}, fields)

	tooHigh := 1.5
	err = Validate(&UsageStatistics{SuccessRate: &tooHigh, IncidentRate: &rate, SatisfactionScore: &rate, PractitionerRating: &rate})
	require.Error(t, err)
	assert.Equal(t, []string{"success_rate"}, fieldsOf(t, err))
}

func TestValidate_ConsentRecord(t *testing.T) {
	record := &ConsentRecord{
		PatientID:         "patient-1",
		ProtocolID:        "protocol-1",
		ConfirmedElements: []string{ConsentInformed, "verbal ok"},
		ConfirmedBy:       "nurse-7",
	}

	err := Validate(record)
	require.Error(t, err)
	assert.Equal(t, []string{"confirmed_elements[1]"}, fieldsOf(t, err))
}
