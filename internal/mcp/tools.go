package mcp

import (
	"context"
	"fmt"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/sirupsen/logrus"

	"github.com/peptide-safety-engine/internal/domain"
)

// Tool names
const (
	ToolEvaluateSafety  = "evaluate_safety"
	ToolEvaluateQuality = "evaluate_quality"
	ToolMonitorProtocol = "monitor_protocol"
	ToolLookupCompound  = "lookup_compound"
)

// EvaluationInput is the argument of the safety and quality tools.
type EvaluationInput struct {
	Patient  domain.Patient  `json:"patient" jsonschema:"the patient record: medications, medical history, allergies and demographics"`
	Protocol domain.Protocol `json:"protocol" jsonschema:"the proposed protocol: recommended compounds and dosing entries"`
}

// MonitorInput is the argument of the monitoring tool.
type MonitorInput struct {
	ProtocolID      string                 `json:"protocol_id" jsonschema:"identifier of the released protocol"`
	UsageStatistics domain.UsageStatistics `json:"usage_statistics" jsonschema:"field statistics accumulated for the protocol"`
}

// LookupInput is the argument of the catalog lookup tool.
type LookupInput struct {
	CompoundID string `json:"compound_id" jsonschema:"compound identifier or alias"`
}

func (s *Server) registerTools() {
	mcp.AddTool(s.mcpServer, &mcp.Tool{
		Name: ToolEvaluateSafety,
		Description: "Run the five safety layers (drug interactions, contraindications, dosing boundaries, " +
			"practitioner review, patient consent) and return the clearance status, safety score, " +
			"required actions and alerts.",
	}, s.evaluateSafety)

	mcp.AddTool(s.mcpServer, &mcp.Tool{
		Name:        ToolEvaluateQuality,
		Description: "Score the thoroughness of a protocol and return a letter grade with recommendations. Advisory only.",
	}, s.evaluateQuality)

	mcp.AddTool(s.mcpServer, &mcp.Tool{
		Name:        ToolMonitorProtocol,
		Description: "Compare field statistics of a released protocol with their benchmarks and flag declining metrics.",
	}, s.monitorProtocol)

	mcp.AddTool(s.mcpServer, &mcp.Tool{
		Name:        ToolLookupCompound,
		Description: "Look up a compound's interactions, contraindications and dosing boundary in the catalog.",
	}, s.lookupCompound)

	s.logger.WithField("tool_count", 4).Info("Registered MCP tools")
}

func (s *Server) evaluateSafety(ctx context.Context, _ *mcp.CallToolRequest, in EvaluationInput) (*mcp.CallToolResult, any, error) {
	result, err := s.services.Safety.EvaluateSafety(ctx, &in.Patient, &in.Protocol)
	if err != nil {
		return nil, nil, s.toolError(ToolEvaluateSafety, err)
	}

	evaluation := domain.NewSafetyEvaluation(result, time.Now())
	s.logger.WithFields(logrus.Fields{
		"tool":             ToolEvaluateSafety,
		"evaluation_id":    evaluation.EvaluationID,
		"clearance_status": result.ClearanceStatus,
	}).Info("Safety evaluation returned")

	return nil, evaluation, nil
}

func (s *Server) evaluateQuality(_ context.Context, _ *mcp.CallToolRequest, in EvaluationInput) (*mcp.CallToolResult, any, error) {
	result, err := s.services.Quality.EvaluateQuality(&in.Patient, &in.Protocol)
	if err != nil {
		return nil, nil, s.toolError(ToolEvaluateQuality, err)
	}
	return nil, result, nil
}

func (s *Server) monitorProtocol(_ context.Context, _ *mcp.CallToolRequest, in MonitorInput) (*mcp.CallToolResult, any, error) {
	result, err := s.services.Monitor.Evaluate(in.ProtocolID, in.UsageStatistics)
	if err != nil {
		return nil, nil, s.toolError(ToolMonitorProtocol, err)
	}
	return nil, result, nil
}

func (s *Server) lookupCompound(_ context.Context, _ *mcp.CallToolRequest, in LookupInput) (*mcp.CallToolResult, any, error) {
	entry, ok := s.services.Catalog.Catalog().Lookup(in.CompoundID)
	if !ok {
		return nil, nil, s.toolError(ToolLookupCompound, fmt.Errorf("%w: %s", domain.ErrUnknownCompound, in.CompoundID))
	}
	return nil, entry, nil
}

// toolError prefixes err with its error code so clients can tell invalid
// input from provider outages.
func (s *Server) toolError(tool string, err error) error {
	code := domain.ErrorCode(err)
	entry := s.logger.WithFields(logrus.Fields{"tool": tool, "code": code})
	if code == domain.ErrValidation || code == domain.ErrNotFoundCode {
		entry.Debug("Tool call rejected")
	} else {
		entry.WithError(err).Error("Tool call failed")
	}
	return fmt.Errorf("%s: %w", code, err)
}
