package policy

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/de-tools/workspace-monitor/pkg/models/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func securityDoc(score float64, statuses ...domain.FindingStatus) domain.ReportDocument {
	findings := make([]domain.Finding, len(statuses))
	for i, s := range statuses {
		findings[i] = domain.Finding{Name: "check", Status: s}
	}
	return domain.ReportDocument{
		Category:    domain.CategorySecurity,
		GeneratedAt: time.Date(2026, 1, 15, 9, 30, 0, 0, time.UTC),
		ScoreFields: map[string]domain.ScoreValue{
			domain.ScoreCompliance: domain.NumberScore(score),
		},
		Findings: findings,
	}
}

func costDoc(savings float64, priority string) domain.ReportDocument {
	return domain.ReportDocument{
		Category:    domain.CategoryCost,
		GeneratedAt: time.Date(2026, 1, 15, 9, 30, 0, 0, time.UTC),
		ScoreFields: map[string]domain.ScoreValue{
			domain.ScoreMonthlySavings: domain.NumberScore(savings),
			domain.ScorePriority:       domain.TextScore(priority),
		},
	}
}

func kinds(violations []domain.Violation) []domain.ViolationKind {
	out := make([]domain.ViolationKind, len(violations))
	for i, v := range violations {
		out[i] = v.Kind
	}
	return out
}

func TestEvaluate_ComplianceBelowThreshold(t *testing.T) {
	violations, err := Evaluate(securityDoc(69.9), DefaultThresholds())
	require.NoError(t, err)
	require.Len(t, violations, 1)
	assert.Equal(t, domain.ViolationCompliance, violations[0].Kind)
	assert.Equal(t, domain.CategorySecurity, violations[0].Category)
	assert.NotEmpty(t, violations[0].Source.Name)
}

func TestEvaluate_ComplianceAtThreshold(t *testing.T) {
	violations, err := Evaluate(securityDoc(70), DefaultThresholds())
	require.NoError(t, err)
	assert.Empty(t, violations)
}

func TestEvaluate_FailedChecks(t *testing.T) {
	violations, err := Evaluate(securityDoc(95, domain.StatusFail, domain.StatusPass), DefaultThresholds())
	require.NoError(t, err)
	require.Len(t, violations, 1)
	assert.Equal(t, domain.ViolationSecurity, violations[0].Kind)
	assert.Contains(t, violations[0].Message, "1 security checks failed")
}

func TestEvaluate_BothChecksFireIndependently(t *testing.T) {
	doc := securityDoc(65, domain.StatusFail, domain.StatusFail, domain.StatusPass)

	violations, err := Evaluate(doc, DefaultThresholds())
	require.NoError(t, err)
	assert.ElementsMatch(t,
		[]domain.ViolationKind{domain.ViolationCompliance, domain.ViolationSecurity},
		kinds(violations))
}

func TestEvaluate_WarnIsNotCritical(t *testing.T) {
	violations, err := Evaluate(securityDoc(90, domain.StatusWarn, domain.StatusWarn), DefaultThresholds())
	require.NoError(t, err)
	assert.Empty(t, violations)
}

func TestEvaluate_UnknownFindingStatus(t *testing.T) {
	_, err := Evaluate(securityDoc(90, domain.FindingStatus("MAYBE")), DefaultThresholds())

	var schemaErr *domain.SchemaError
	require.True(t, errors.As(err, &schemaErr))
	assert.Equal(t, "findings.status", schemaErr.Field)
}

func TestEvaluate_MissingComplianceScore(t *testing.T) {
	doc := domain.ReportDocument{
		Category:    domain.CategorySecurity,
		GeneratedAt: time.Date(2026, 1, 15, 9, 30, 0, 0, time.UTC),
		ScoreFields: map[string]domain.ScoreValue{},
	}

	_, err := Evaluate(doc, DefaultThresholds())
	var schemaErr *domain.SchemaError
	require.True(t, errors.As(err, &schemaErr))
	assert.Equal(t, domain.ScoreCompliance, schemaErr.Field)
}

func TestEvaluate_CustomThreshold(t *testing.T) {
	violations, err := Evaluate(securityDoc(80), Thresholds{MinComplianceScore: 85})
	require.NoError(t, err)
	require.Len(t, violations, 1)
	assert.Equal(t, domain.ViolationCompliance, violations[0].Kind)
}

func TestEvaluate_CostHighPriority(t *testing.T) {
	violations, err := Evaluate(costDoc(6500.50, "HIGH"), DefaultThresholds())
	require.NoError(t, err)
	require.Len(t, violations, 1)
	assert.Equal(t, domain.ViolationCost, violations[0].Kind)
	assert.Contains(t, violations[0].Message, "$6500.50")
}

func TestEvaluate_CostLowAndMediumPriority(t *testing.T) {
	for _, priority := range []string{"LOW", "MEDIUM"} {
		violations, err := Evaluate(costDoc(900, priority), DefaultThresholds())
		require.NoError(t, err)
		assert.Empty(t, violations, "priority %s", priority)
	}
}

func TestEvaluate_CostUnknownPriority(t *testing.T) {
	_, err := Evaluate(costDoc(900, "URGENT"), DefaultThresholds())

	var schemaErr *domain.SchemaError
	require.True(t, errors.As(err, &schemaErr))
	assert.Equal(t, domain.ScorePriority, schemaErr.Field)
}

func TestEvaluate_CostMissingSavings(t *testing.T) {
	doc := domain.ReportDocument{
		Category:    domain.CategoryCost,
		GeneratedAt: time.Date(2026, 1, 15, 9, 30, 0, 0, time.UTC),
		ScoreFields: map[string]domain.ScoreValue{
			domain.ScorePriority: domain.TextScore("HIGH"),
		},
	}

	_, err := Evaluate(doc, DefaultThresholds())
	var schemaErr *domain.SchemaError
	require.True(t, errors.As(err, &schemaErr))
	assert.Equal(t, domain.ScoreMonthlySavings, schemaErr.Field)
}

func TestEvaluate_UnknownCategory(t *testing.T) {
	_, err := Evaluate(domain.ReportDocument{Category: "latency"}, DefaultThresholds())
	assert.Error(t, err)
}

type mockLatestReader struct {
	mock.Mock
}

func (m *mockLatestReader) Latest(c domain.ReportCategory) (domain.ReportDocument, bool, error) {
	args := m.Called(c)
	return args.Get(0).(domain.ReportDocument), args.Bool(1), args.Error(2)
}

func TestCheckCompliance_NoData(t *testing.T) {
	store := new(mockLatestReader)
	store.On("Latest", domain.CategorySecurity).Return(domain.ReportDocument{}, false, nil)

	_, ok, err := CheckCompliance(context.Background(), store, DefaultThresholds())
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestCheckCompliance_WithStoredReport(t *testing.T) {
	store := new(mockLatestReader)
	store.On("Latest", domain.CategorySecurity).
		Return(securityDoc(65, domain.StatusFail), true, nil)

	result, ok, err := CheckCompliance(context.Background(), store, DefaultThresholds())
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, 65.0, result.Score)
	assert.ElementsMatch(t,
		[]domain.ViolationKind{domain.ViolationCompliance, domain.ViolationSecurity},
		kinds(result.Violations))
}
