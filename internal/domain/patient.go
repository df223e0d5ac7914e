package domain

import "strings"

// Demographics holds the patient attributes consulted by the screening rules.
type Demographics struct {
	Age    int    `json:"age" yaml:"age" validate:"gte=0,lte=150"`
	Gender Gender `json:"gender,omitempty" yaml:"gender" validate:"gender"`
}

// Patient is the patient record an evaluation runs against. Free-text
// fields are matched approximately against knowledge base strings.
type Patient struct {
	ID              string       `json:"id,omitempty" yaml:"id"`
	Medications     []string     `json:"medications,omitempty" yaml:"medications" validate:"dive,notblank"`
	MedicalHistory  []string     `json:"medical_history,omitempty" yaml:"medical_history" validate:"dive,notblank"`
	Allergies       []string     `json:"allergies,omitempty" yaml:"allergies" validate:"dive,notblank"`
	Demographics    Demographics `json:"demographics" yaml:"demographics"`
	PrimaryConcerns []string     `json:"primary_concerns,omitempty" yaml:"primary_concerns" validate:"dive,notblank"`
}

// IsFemale reports whether the patient is recorded as female.
func (p *Patient) IsFemale() bool {
	return strings.EqualFold(string(p.Demographics.Gender), string(GenderFemale))
}
