package mcp

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/peptide-safety-engine/internal/consent"
	"github.com/peptide-safety-engine/internal/domain"
	"github.com/peptide-safety-engine/internal/knowledge"
	"github.com/peptide-safety-engine/internal/service"
)

func quietLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetLevel(logrus.FatalLevel)
	return logger
}

func testServices(t *testing.T) Services {
	t.Helper()
	logger := quietLogger()

	catalog, err := knowledge.Default()
	require.NoError(t, err)
	holder, err := knowledge.NewHolder(catalog, logger)
	require.NoError(t, err)

	engine, err := service.NewSafetyEngine(logger, holder, consent.PendingProvider{})
	require.NoError(t, err)
	scorer, err := service.NewQualityScorer(logger, service.DefaultQualityRubric())
	require.NoError(t, err)
	monitor, err := service.NewMonitoringAggregator(logger, service.DefaultMonitoringBenchmarks())
	require.NoError(t, err)

	return Services{Safety: engine, Quality: scorer, Monitor: monitor, Catalog: holder}
}

// connect starts a server and returns a client session talking to it in memory.
func connect(t *testing.T) *mcp.ClientSession {
	t.Helper()
	ctx := context.Background()

	server, err := NewServer(domain.MCPConfig{ServerName: "peptide-safety-engine", ServerVersion: "test"}, testServices(t), quietLogger())
	require.NoError(t, err)

	serverTransport, clientTransport := mcp.NewInMemoryTransports()
	serverSession, err := server.Connect(ctx, serverTransport)
	require.NoError(t, err)
	t.Cleanup(func() { serverSession.Close() })

	client := mcp.NewClient(&mcp.Implementation{Name: "test-client", Version: "test"}, nil)
	session, err := client.Connect(ctx, clientTransport, nil)
	require.NoError(t, err)
	t.Cleanup(func() { session.Close() })

	return session
}

func callTool(t *testing.T, session *mcp.ClientSession, name string, args any) *mcp.CallToolResult {
	t.Helper()
	res, err := session.CallTool(context.Background(), &mcp.CallToolParams{Name: name, Arguments: args})
	require.NoError(t, err)
	require.NotEmpty(t, res.Content)
	return res
}

func textOf(t *testing.T, res *mcp.CallToolResult) string {
	t.Helper()
	text, ok := res.Content[0].(*mcp.TextContent)
	require.True(t, ok, "expected text content")
	return text.Text
}

func evaluationInput(medications []string, compounds ...string) EvaluationInput {
	return EvaluationInput{
		Patient: domain.Patient{
			ID:           "patient-1",
			Medications:  medications,
			Demographics: domain.Demographics{Age: 45, Gender: domain.GenderMale},
		},
		Protocol: domain.Protocol{
			ID:                   "protocol-1",
			RecommendedCompounds: compounds,
		},
	}
}

func TestNewServer_RequiresServices(t *testing.T) {
	services := testServices(t)
	services.Safety = nil
	_, err := NewServer(domain.MCPConfig{}, services, quietLogger())
	assert.Error(t, err)

	services = testServices(t)
	services.Catalog = nil
	_, err = NewServer(domain.MCPConfig{}, services, quietLogger())
	assert.Error(t, err)
}

func TestListTools(t *testing.T) {
	session := connect(t)

	res, err := session.ListTools(context.Background(), nil)
	require.NoError(t, err)

	names := make([]string, 0, len(res.Tools))
	for _, tool := range res.Tools {
		names = append(names, tool.Name)
		assert.NotEmpty(t, tool.Description)
		assert.NotNil(t, tool.InputSchema)
	}
	assert.ElementsMatch(t, []string{ToolEvaluateSafety, ToolEvaluateQuality, ToolMonitorProtocol, ToolLookupCompound}, names)
}

func TestEvaluateSafetyTool(t *testing.T) {
	session := connect(t)

	res := callTool(t, session, ToolEvaluateSafety, evaluationInput([]string{"fluoxetine"}, "formula_n_5550"))
	require.False(t, res.IsError, textOf(t, res))

	var evaluation domain.SafetyEvaluation
	require.NoError(t, json.Unmarshal([]byte(textOf(t, res)), &evaluation))
	require.NotNil(t, evaluation.SafetyResult)
	assert.Len(t, evaluation.EvaluationID, 36)
	assert.Equal(t, domain.ClearanceBlocked, evaluation.ClearanceStatus)
	assert.Equal(t, 55.5, evaluation.OverallSafetyScore)
}

func TestEvaluateSafetyTool_ValidationError(t *testing.T) {
	session := connect(t)

	input := evaluationInput(nil, "bpc157")
	input.Patient.Demographics.Age = 200

	res := callTool(t, session, ToolEvaluateSafety, input)
	assert.True(t, res.IsError)
	assert.Contains(t, textOf(t, res), domain.ErrValidation)
}

func TestEvaluateQualityTool(t *testing.T) {
	session := connect(t)

	res := callTool(t, session, ToolEvaluateQuality, evaluationInput(nil, "semaglutide"))
	require.False(t, res.IsError, textOf(t, res))

	var result domain.QualityResult
	require.NoError(t, json.Unmarshal([]byte(textOf(t, res)), &result))
	assert.NotEmpty(t, result.OverallGrade)
	assert.Len(t, result.ComponentScores, len(domain.QualityDimensions))
}

func TestMonitorProtocolTool(t *testing.T) {
	session := connect(t)
	f := func(v float64) *float64 { return &v }

	res := callTool(t, session, ToolMonitorProtocol, MonitorInput{
		ProtocolID: "protocol-1",
		UsageStatistics: domain.UsageStatistics{
			SuccessRate:        f(0.9),
			IncidentRate:       f(0.05),
			SatisfactionScore:  f(4.1),
			PractitionerRating: f(3.8),
		},
	})
	require.False(t, res.IsError, textOf(t, res))

	var result domain.MonitoringResult
	require.NoError(t, json.Unmarshal([]byte(textOf(t, res)), &result))
	assert.Equal(t, "protocol-1", result.ProtocolID)
	assert.Empty(t, result.QualityAlerts)
}

func TestLookupCompoundTool(t *testing.T) {
	session := connect(t)

	res := callTool(t, session, ToolLookupCompound, LookupInput{CompoundID: "bpc-157"})
	require.False(t, res.IsError, textOf(t, res))

	var entry domain.CompoundEntry
	require.NoError(t, json.Unmarshal([]byte(textOf(t, res)), &entry))
	assert.Equal(t, "bpc157", entry.ID)
	require.NotNil(t, entry.DosingBoundary)
	assert.Equal(t, 500.0, entry.DosingBoundary.MaxStandardDose)

	res = callTool(t, session, ToolLookupCompound, LookupInput{CompoundID: "unobtainium"})
	assert.True(t, res.IsError)
	assert.Contains(t, textOf(t, res), domain.ErrNotFoundCode)
}

func TestCatalogResources(t *testing.T) {
	session := connect(t)
	ctx := context.Background()

	list, err := session.ListResources(ctx, nil)
	require.NoError(t, err)
	require.Len(t, list.Resources, 1)
	assert.Equal(t, CatalogResourceURI, list.Resources[0].URI)

	res, err := session.ReadResource(ctx, &mcp.ReadResourceParams{URI: CatalogResourceURI})
	require.NoError(t, err)
	require.Len(t, res.Contents, 1)
	assert.Equal(t, "application/json", res.Contents[0].MIMEType)

	var catalog struct {
		Version   string                 `json:"version"`
		Compounds []domain.CompoundEntry `json:"compounds"`
	}
	require.NoError(t, json.Unmarshal([]byte(res.Contents[0].Text), &catalog))
	assert.Equal(t, "builtin-2025.1", catalog.Version)
	assert.NotEmpty(t, catalog.Compounds)

	res, err = session.ReadResource(ctx, &mcp.ReadResourceParams{URI: "peptide://compounds/bpc-157"})
	require.NoError(t, err)
	var entry domain.CompoundEntry
	require.NoError(t, json.Unmarshal([]byte(res.Contents[0].Text), &entry))
	assert.Equal(t, "bpc157", entry.ID)

	_, err = session.ReadResource(ctx, &mcp.ReadResourceParams{URI: "peptide://compounds/unobtainium"})
	assert.Error(t, err)
}

func TestConsentBriefingPrompt(t *testing.T) {
	session := connect(t)
	ctx := context.Background()

	list, err := session.ListPrompts(ctx, nil)
	require.NoError(t, err)
	require.Len(t, list.Prompts, 1)
	assert.Equal(t, PromptConsentBriefing, list.Prompts[0].Name)

	res, err := session.GetPrompt(ctx, &mcp.GetPromptParams{
		Name:      PromptConsentBriefing,
		Arguments: map[string]string{"compound_id": "bpc157", "patient_name": "Alex"},
	})
	require.NoError(t, err)
	require.Len(t, res.Messages, 1)

	text, ok := res.Messages[0].Content.(*mcp.TextContent)
	require.True(t, ok)
	assert.Contains(t, text.Text, "Alex")
	assert.Contains(t, text.Text, "BPC-157")
	assert.Contains(t, text.Text, "Active malignancy (absolute)")
	assert.Contains(t, text.Text, "100-500 mcg")
	for _, element := range domain.RequiredConsentElements {
		assert.Contains(t, text.Text, element)
	}

	_, err = session.GetPrompt(ctx, &mcp.GetPromptParams{
		Name:      PromptConsentBriefing,
		Arguments: map[string]string{"compound_id": "unobtainium"},
	})
	assert.Error(t, err)
}
