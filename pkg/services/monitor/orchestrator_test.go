package monitor

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/de-tools/workspace-monitor/pkg/models/domain"
	"github.com/de-tools/workspace-monitor/pkg/services/alert"
	"github.com/de-tools/workspace-monitor/pkg/services/probe"
	"github.com/de-tools/workspace-monitor/pkg/store/reports"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubProbe struct {
	category domain.ReportCategory
	doc      domain.ReportDocument
	err      error
}

func (p *stubProbe) Category() domain.ReportCategory { return p.category }

func (p *stubProbe) Run(_ context.Context, _ domain.Credentials) (domain.ReportDocument, error) {
	if p.err != nil {
		return domain.ReportDocument{}, p.err
	}
	return p.doc, nil
}

type recordingChannel struct {
	name string
	err  error
	sent []alert.Message
}

func (c *recordingChannel) Name() string { return c.name }

func (c *recordingChannel) Send(_ context.Context, msg alert.Message) error {
	if c.err != nil {
		return c.err
	}
	c.sent = append(c.sent, msg)
	return nil
}

var stubCreds = domain.Credentials{
	WorkspaceURL: "https://example.cloud.databricks.com",
	AccessToken:  "dapi-test",
}

func failingSecurityDoc() domain.ReportDocument {
	return domain.ReportDocument{
		Category:    domain.CategorySecurity,
		GeneratedAt: time.Date(2026, 1, 15, 9, 30, 0, 0, time.UTC),
		ScoreFields: map[string]domain.ScoreValue{
			domain.ScoreCompliance: domain.NumberScore(65),
		},
		Findings: []domain.Finding{
			{Name: "audit_logging", Status: domain.StatusFail},
			{Name: "access_controls", Status: domain.StatusPass},
		},
		Recommendations: []string{"rotate keys"},
	}
}

func quietCostDoc() domain.ReportDocument {
	return domain.ReportDocument{
		Category:    domain.CategoryCost,
		GeneratedAt: time.Date(2026, 1, 15, 9, 45, 0, 0, time.UTC),
		ScoreFields: map[string]domain.ScoreValue{
			domain.ScoreMonthlySavings: domain.NumberScore(120),
			domain.ScorePriority:       domain.TextScore("LOW"),
		},
	}
}

func newTestMonitor(t *testing.T, probes map[domain.ReportCategory]probe.Probe, channels ...alert.Channel) (*Monitor, string) {
	t.Helper()
	dir := t.TempDir()
	store, err := reports.New(reports.Settings{Dir: dir})
	require.NoError(t, err)
	mon := New(stubCreds, probes, store, alert.NewDispatcher(channels...), DefaultOptions())
	return mon, dir
}

func categoryResult(t *testing.T, s RunSummary, c domain.ReportCategory) CategoryResult {
	t.Helper()
	for _, r := range s.Categories {
		if r.Category == c {
			return r
		}
	}
	t.Fatalf("no result for category %s", c)
	return CategoryResult{}
}

func TestRun_FullSuite(t *testing.T) {
	channel := &recordingChannel{name: "webhook"}
	mon, dir := newTestMonitor(t, map[domain.ReportCategory]probe.Probe{
		domain.CategorySecurity: &stubProbe{category: domain.CategorySecurity, doc: failingSecurityDoc()},
		domain.CategoryCost:     &stubProbe{category: domain.CategoryCost, doc: quietCostDoc()},
	}, channel)

	summary, err := mon.Run(context.Background(), ModeFull)
	require.NoError(t, err)
	assert.True(t, summary.Succeeded())
	assert.NotEmpty(t, summary.RunID)

	// Security breaches both the compliance and the critical-issue checks.
	secResult := categoryResult(t, summary, domain.CategorySecurity)
	assert.Equal(t, 2, secResult.Violations)
	require.Len(t, secResult.Deliveries, 2)
	for _, d := range secResult.Deliveries {
		assert.True(t, d.Succeeded())
	}

	costResult := categoryResult(t, summary, domain.CategoryCost)
	assert.Equal(t, 0, costResult.Violations)

	// Both latest pointers resolve to the persisted documents.
	sec, ok, err := mon.Store().Latest(domain.CategorySecurity)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, failingSecurityDoc(), sec)

	_, ok, err = mon.Store().Latest(domain.CategoryCost)
	require.NoError(t, err)
	assert.True(t, ok)

	// The dashboard snapshot carries the degraded compliance score.
	require.NoError(t, summary.DashboardErr)
	data, err := os.ReadFile(filepath.Join(dir, "dashboard.json"))
	require.NoError(t, err)
	var snap domain.DashboardSnapshot
	require.NoError(t, json.Unmarshal(data, &snap))
	assert.Equal(t, 65.0, snap.Security.ComplianceScore)
	assert.Equal(t, 1, snap.Security.CriticalIssues)

	require.NoError(t, summary.PruneErr)
}

func TestRun_ProbeFailureIsIsolated(t *testing.T) {
	channel := &recordingChannel{name: "webhook"}
	mon, _ := newTestMonitor(t, map[domain.ReportCategory]probe.Probe{
		domain.CategorySecurity: &stubProbe{
			category: domain.CategorySecurity,
			err: &domain.ProbeError{
				Category: domain.CategorySecurity,
				Reason:   domain.ProbeExit,
				Err:      errors.New("exit status 1"),
			},
		},
		domain.CategoryCost: &stubProbe{category: domain.CategoryCost, doc: quietCostDoc()},
	}, channel)

	summary, err := mon.Run(context.Background(), ModeFull)
	require.NoError(t, err)

	// The failed probe degrades the run but the cost pipeline completed.
	assert.False(t, summary.Succeeded())
	assert.False(t, categoryResult(t, summary, domain.CategorySecurity).Succeeded())
	assert.True(t, categoryResult(t, summary, domain.CategoryCost).Succeeded())

	_, ok, err := mon.Store().Latest(domain.CategoryCost)
	require.NoError(t, err)
	assert.True(t, ok)

	// Aggregation was still attempted and reported the missing category.
	var incomplete *domain.IncompleteDataError
	require.True(t, errors.As(summary.DashboardErr, &incomplete))
	assert.Equal(t, []domain.ReportCategory{domain.CategorySecurity}, incomplete.Missing)
	assert.NoError(t, summary.PruneErr)
}

func TestRun_SingleCategoryModes(t *testing.T) {
	mon, _ := newTestMonitor(t, map[domain.ReportCategory]probe.Probe{
		domain.CategorySecurity: &stubProbe{category: domain.CategorySecurity, doc: failingSecurityDoc()},
		domain.CategoryCost:     &stubProbe{category: domain.CategoryCost, doc: quietCostDoc()},
	})

	summary, err := mon.Run(context.Background(), ModeCost)
	require.NoError(t, err)
	require.Len(t, summary.Categories, 1)
	assert.Equal(t, domain.CategoryCost, summary.Categories[0].Category)

	// Single-category modes never aggregate or prune.
	assert.NoError(t, summary.DashboardErr)
	_, ok, err := mon.Store().Latest(domain.CategorySecurity)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestRun_SchemaErrorRecordedPerEvaluation(t *testing.T) {
	doc := failingSecurityDoc()
	doc.Findings = []domain.Finding{{Name: "odd", Status: domain.FindingStatus("MAYBE")}}
	mon, _ := newTestMonitor(t, map[domain.ReportCategory]probe.Probe{
		domain.CategorySecurity: &stubProbe{category: domain.CategorySecurity, doc: doc},
	})

	summary, err := mon.Run(context.Background(), ModeSecurity)
	require.NoError(t, err)

	res := categoryResult(t, summary, domain.CategorySecurity)
	var schemaErr *domain.SchemaError
	require.True(t, errors.As(res.EvalErr, &schemaErr))

	// The report itself was still persisted and indexed.
	assert.True(t, res.Succeeded())
	_, ok, err := mon.Store().Latest(domain.CategorySecurity)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.True(t, summary.Succeeded())
}

func TestRun_ComplianceModeWithNoData(t *testing.T) {
	mon, _ := newTestMonitor(t, nil)

	summary, err := mon.Run(context.Background(), ModeCompliance)
	require.NoError(t, err)
	assert.True(t, summary.NoData)
	assert.True(t, summary.Succeeded())
}

func TestRun_ComplianceModeRechecksStoredReport(t *testing.T) {
	channel := &recordingChannel{name: "webhook"}
	mon, _ := newTestMonitor(t, map[domain.ReportCategory]probe.Probe{
		domain.CategorySecurity: &stubProbe{category: domain.CategorySecurity, doc: failingSecurityDoc()},
	}, channel)

	_, err := mon.Run(context.Background(), ModeSecurity)
	require.NoError(t, err)
	dispatchedDuringScan := len(channel.sent)

	summary, err := mon.Run(context.Background(), ModeCompliance)
	require.NoError(t, err)
	assert.False(t, summary.NoData)

	res := categoryResult(t, summary, domain.CategorySecurity)
	assert.Equal(t, 2, res.Violations)
	assert.Len(t, channel.sent, dispatchedDuringScan+2)
}

func TestRun_ComplianceModeFailsOnUndecidableReport(t *testing.T) {
	mon, _ := newTestMonitor(t, nil)

	doc := failingSecurityDoc()
	doc.Findings = []domain.Finding{{Name: "odd", Status: domain.FindingStatus("MAYBE")}}
	id, err := mon.Store().Persist(doc)
	require.NoError(t, err)
	require.NoError(t, mon.Store().UpdateLatest(domain.CategorySecurity, id))

	summary, err := mon.Run(context.Background(), ModeCompliance)
	require.NoError(t, err)

	res := categoryResult(t, summary, domain.CategorySecurity)
	var schemaErr *domain.SchemaError
	require.True(t, errors.As(res.EvalErr, &schemaErr))
	assert.False(t, summary.Succeeded())
}

func TestRun_DashboardModeFailsWithoutData(t *testing.T) {
	mon, _ := newTestMonitor(t, nil)

	summary, err := mon.Run(context.Background(), ModeDashboard)
	require.NoError(t, err)

	var incomplete *domain.IncompleteDataError
	require.True(t, errors.As(summary.DashboardErr, &incomplete))
	assert.False(t, summary.Succeeded())
}

func TestRun_DeliveryFailureDoesNotFailRun(t *testing.T) {
	broken := &recordingChannel{name: "email", err: errors.New("connection refused")}
	working := &recordingChannel{name: "webhook"}
	mon, _ := newTestMonitor(t, map[domain.ReportCategory]probe.Probe{
		domain.CategorySecurity: &stubProbe{category: domain.CategorySecurity, doc: failingSecurityDoc()},
	}, broken, working)

	summary, err := mon.Run(context.Background(), ModeSecurity)
	require.NoError(t, err)
	assert.True(t, summary.Succeeded())

	res := categoryResult(t, summary, domain.CategorySecurity)
	require.Len(t, res.Deliveries, 4) // 2 violations x 2 channels

	failed := 0
	for _, d := range res.Deliveries {
		if !d.Succeeded() {
			failed++
		}
	}
	assert.Equal(t, 2, failed)
	assert.Len(t, working.sent, 2)
}

func TestRun_UnknownMode(t *testing.T) {
	mon, _ := newTestMonitor(t, nil)
	_, err := mon.Run(context.Background(), Mode("sideways"))
	assert.Error(t, err)
}
