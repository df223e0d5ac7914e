package matching

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSubstring(t *testing.T) {
	tests := []struct {
		name  string
		term  string
		entry string
		match bool
	}{
		{"exact", "warfarin", "warfarin", true},
		{"case insensitive", "Warfarin", "WARFARIN", true},
		{"term inside entry", "insulin", "insulin glargine 10 units", true},
		{"entry inside term", "levothyroxine sodium", "levothyroxine", true},
		{"surrounding whitespace", "  pregnancy ", "Pregnancy", true},
		{"known false positive", "insulin", "insulin-like growth factor", true},
		{"brand name misses generic", "fluoxetine", "prozac", false},
		{"unrelated", "ssris", "fluoxetine", false},
		{"empty term", "", "warfarin", false},
		{"blank entry", "warfarin", "   ", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.match, Substring.Matches(tt.term, tt.entry))
			assert.Equal(t, tt.match, Substring.Matches(tt.entry, tt.term), "matching must be symmetric")
		})
	}
}

func TestAny(t *testing.T) {
	entry, ok := Any(Substring, "diabetes", []string{"hypertension", "Type 2 Diabetes", "diabetes insipidus"})
	assert.True(t, ok)
	assert.Equal(t, "Type 2 Diabetes", entry)

	_, ok = Any(Substring, "pancreatitis", nil)
	assert.False(t, ok)
}

func TestMatcherFunc(t *testing.T) {
	exact := MatcherFunc(func(term, entry string) bool { return term == entry })
	assert.True(t, exact.Matches("a", "a"))
	assert.False(t, exact.Matches("a", "ab"))
}
