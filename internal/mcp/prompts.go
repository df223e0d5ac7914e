package mcp

import (
	"context"
	"fmt"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/peptide-safety-engine/internal/domain"
)

// PromptConsentBriefing prepares the consent discussion for a compound.
const PromptConsentBriefing = "consent_briefing"

func (s *Server) registerPrompts() {
	s.mcpServer.AddPrompt(&mcp.Prompt{
		Name:        PromptConsentBriefing,
		Title:       "Consent briefing",
		Description: "Outline the consent discussion for a compound: known risks, contraindications and the confirmations the consent gate expects.",
		Arguments: []*mcp.PromptArgument{
			{Name: "compound_id", Description: "Compound identifier or alias", Required: true},
			{Name: "patient_name", Description: "How to address the patient"},
		},
	}, s.consentBriefing)
}

func (s *Server) consentBriefing(_ context.Context, req *mcp.GetPromptRequest) (*mcp.GetPromptResult, error) {
	compoundID := req.Params.Arguments["compound_id"]
	entry, ok := s.services.Catalog.Catalog().Lookup(compoundID)
	if !ok {
		return nil, fmt.Errorf("%s: %w: %s", domain.ErrNotFoundCode, domain.ErrUnknownCompound, compoundID)
	}

	patient := req.Params.Arguments["patient_name"]
	if patient == "" {
		patient = "the patient"
	}

	return &mcp.GetPromptResult{
		Description: fmt.Sprintf("Consent briefing for %s", displayName(entry)),
		Messages: []*mcp.PromptMessage{{
			Role:    "user",
			Content: &mcp.TextContent{Text: renderBriefing(entry, patient)},
		}},
	}, nil
}

func renderBriefing(entry domain.CompoundEntry, patient string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Prepare a plain-language consent discussion with %s about %s.\n\n", patient, displayName(entry))

	if risks := interactionLines(entry.Interactions); len(risks) > 0 {
		b.WriteString("Known interactions:\n")
		for _, line := range risks {
			fmt.Fprintf(&b, "- %s\n", line)
		}
		b.WriteString("\n")
	}

	if c := entry.Contraindications; len(c.Absolute)+len(c.Relative) > 0 {
		b.WriteString("Contraindications:\n")
		for _, cond := range c.Absolute {
			fmt.Fprintf(&b, "- %s (absolute)\n", cond)
		}
		for _, cond := range c.Relative {
			fmt.Fprintf(&b, "- %s (relative)\n", cond)
		}
		b.WriteString("\n")
	}

	if d := entry.DosingBoundary; d != nil {
		fmt.Fprintf(&b, "Standard dose range: %g-%g %s.\n\n", d.MinStandardDose, d.MaxStandardDose, d.Unit)
	}

	b.WriteString("The discussion must let the practitioner confirm each of:\n")
	for _, element := range domain.RequiredConsentElements {
		fmt.Fprintf(&b, "- %s\n", element)
	}
	return b.String()
}

func interactionLines(set domain.InteractionSet) []string {
	var lines []string
	for _, severity := range []domain.Severity{domain.SeverityCritical, domain.SeverityMajor, domain.SeverityModerate} {
		for _, i := range set.BySeverity(severity) {
			lines = append(lines, fmt.Sprintf("%s with %s: %s", severity, i.InteractingDrug, i.Mechanism))
		}
	}
	return lines
}

func displayName(entry domain.CompoundEntry) string {
	if entry.Name != "" {
		return entry.Name
	}
	return entry.ID
}
