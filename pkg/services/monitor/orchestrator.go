package monitor

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/de-tools/workspace-monitor/pkg/models/domain"
	"github.com/de-tools/workspace-monitor/pkg/services/alert"
	"github.com/de-tools/workspace-monitor/pkg/services/dashboard"
	"github.com/de-tools/workspace-monitor/pkg/services/policy"
	"github.com/de-tools/workspace-monitor/pkg/services/probe"
	"github.com/de-tools/workspace-monitor/pkg/store/reports"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// Mode selects which category pipelines a run executes.
type Mode string

const (
	// ModeFull runs every category, then aggregates and prunes.
	ModeFull Mode = "full"
	// ModeSecurity runs the security pipeline only.
	ModeSecurity Mode = "security"
	// ModeCost runs the cost pipeline only.
	ModeCost Mode = "cost"
	// ModeCompliance re-checks the stored latest security report.
	ModeCompliance Mode = "compliance"
	// ModeDashboard aggregates the latest reports without probing.
	ModeDashboard Mode = "dashboard"
)

// Options bound the run's resource usage and retention behavior.
type Options struct {
	// WorkerLimit caps concurrently running category pipelines so the
	// workspace API is not overwhelmed.
	WorkerLimit int
	Retention   domain.RetentionPolicy
	Thresholds  policy.Thresholds
}

func DefaultOptions() Options {
	return Options{
		WorkerLimit: 2,
		Retention:   domain.RetentionPolicy{MaxAgeDays: 30},
		Thresholds:  policy.DefaultThresholds(),
	}
}

// Monitor sequences probe execution, report persistence, policy evaluation
// and alert dispatch per category.
type Monitor struct {
	creds      domain.Credentials
	probes     map[domain.ReportCategory]probe.Probe
	store      *reports.Store
	dispatcher *alert.Dispatcher
	opts       Options
}

func New(
	creds domain.Credentials,
	probes map[domain.ReportCategory]probe.Probe,
	store *reports.Store,
	dispatcher *alert.Dispatcher,
	opts Options,
) *Monitor {
	if opts.WorkerLimit <= 0 {
		opts.WorkerLimit = DefaultOptions().WorkerLimit
	}
	return &Monitor{
		creds:      creds,
		probes:     probes,
		store:      store,
		dispatcher: dispatcher,
		opts:       opts,
	}
}

// Store exposes the report store for read-only consumers such as the API.
func (m *Monitor) Store() *reports.Store { return m.store }

// CategoryResult records the per-stage outcome of one category pipeline.
type CategoryResult struct {
	Category   domain.ReportCategory
	Identity   domain.ReportIdentity
	ProbeErr   error
	StoreErr   error
	EvalErr    error
	Violations int
	Deliveries []alert.DeliveryResult
}

// Succeeded reports whether the pipeline produced and persisted a report.
func (r CategoryResult) Succeeded() bool {
	return r.ProbeErr == nil && r.StoreErr == nil
}

// RunSummary is the outcome of one orchestrator run.
type RunSummary struct {
	RunID        string
	Mode         Mode
	Started      time.Time
	Finished     time.Time
	Categories   []CategoryResult
	DashboardErr error
	PruneErr     error
	Pruned       int
	NoData       bool
}

// Succeeded is false when any requested probe failed. Aggregation or prune
// errors degrade a full-suite run's log output but not its exit status;
// dashboard-only runs do fail on aggregation errors. Evaluation errors on
// scan runs leave the persisted report intact and only degrade the log,
// but a compliance-only run exists to evaluate, so there they are fatal.
func (s RunSummary) Succeeded() bool {
	for _, r := range s.Categories {
		if !r.Succeeded() {
			return false
		}
		if s.Mode == ModeCompliance && r.EvalErr != nil {
			return false
		}
	}
	if s.Mode == ModeDashboard && s.DashboardErr != nil {
		return false
	}
	return true
}

// Run executes the selected pipelines. Category pipelines are isolated: one
// probe's failure never aborts the others, and full-suite runs always
// attempt aggregation and pruning afterwards.
func (m *Monitor) Run(ctx context.Context, mode Mode) (RunSummary, error) {
	runID := uuid.NewString()
	logger := zerolog.Ctx(ctx).With().
		Str("run_id", runID).
		Str("mode", string(mode)).
		Logger()
	ctx = logger.WithContext(ctx)

	summary := RunSummary{RunID: runID, Mode: mode, Started: time.Now().UTC()}
	logger.Info().Msg("run started")

	switch mode {
	case ModeCompliance:
		summary.Categories, summary.NoData = m.runComplianceCheck(ctx)
	case ModeDashboard:
		summary.DashboardErr = m.aggregate(ctx)
	case ModeFull, ModeSecurity, ModeCost:
		summary.Categories = m.runPipelines(ctx, selectCategories(mode))
		if mode == ModeFull {
			summary.DashboardErr = m.aggregate(ctx)
			summary.Pruned, summary.PruneErr = m.prune(ctx)
		}
	default:
		return summary, fmt.Errorf("unknown run mode %q", mode)
	}

	summary.Finished = time.Now().UTC()
	logSummary(logger, summary)
	return summary, nil
}

func selectCategories(mode Mode) []domain.ReportCategory {
	switch mode {
	case ModeSecurity:
		return []domain.ReportCategory{domain.CategorySecurity}
	case ModeCost:
		return []domain.ReportCategory{domain.CategoryCost}
	default:
		return domain.AllCategories()
	}
}

// runPipelines executes the category pipelines concurrently under the
// worker limit. Stages within one pipeline stay strictly sequential.
func (m *Monitor) runPipelines(ctx context.Context, categories []domain.ReportCategory) []CategoryResult {
	results := make([]CategoryResult, len(categories))
	sem := make(chan struct{}, m.opts.WorkerLimit)
	var wg sync.WaitGroup

	for i, c := range categories {
		wg.Add(1)
		go func(i int, c domain.ReportCategory) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()
			results[i] = m.runCategory(ctx, c)
		}(i, c)
	}
	wg.Wait()
	return results
}

func (m *Monitor) runCategory(ctx context.Context, c domain.ReportCategory) CategoryResult {
	logger := zerolog.Ctx(ctx).With().Str("category", string(c)).Logger()
	ctx = logger.WithContext(ctx)
	res := CategoryResult{Category: c}

	p, ok := m.probes[c]
	if !ok {
		res.ProbeErr = fmt.Errorf("no probe registered for category %s", c)
		logger.Error().Err(res.ProbeErr).Msg("probe stage failed")
		return res
	}

	doc, err := p.Run(ctx, m.creds)
	if err != nil {
		res.ProbeErr = err
		logger.Error().Err(err).Msg("probe stage failed")
		return res
	}

	id, err := m.store.Persist(doc)
	if err != nil {
		res.StoreErr = err
		logger.Error().Err(err).Msg("persist stage failed")
		return res
	}
	res.Identity = id
	if err := m.store.UpdateLatest(c, id); err != nil {
		res.StoreErr = err
		logger.Error().Err(err).Msg("latest pointer update failed")
		return res
	}
	logger.Info().Str("report", id.String()).Msg("report persisted")

	violations, err := policy.Evaluate(doc, m.opts.Thresholds)
	if err != nil {
		res.EvalErr = err
		logger.Error().Err(err).Msg("policy evaluation failed")
		return res
	}
	res.Violations = len(violations)
	if len(violations) == 0 {
		logger.Info().Msg("no policy violations")
		return res
	}

	for _, v := range violations {
		res.Deliveries = append(res.Deliveries, m.dispatcher.Dispatch(ctx, v)...)
	}
	return res
}

func (m *Monitor) runComplianceCheck(ctx context.Context) ([]CategoryResult, bool) {
	logger := zerolog.Ctx(ctx)
	res := CategoryResult{Category: domain.CategorySecurity}

	check, ok, err := policy.CheckCompliance(ctx, m.store, m.opts.Thresholds)
	if err != nil {
		res.EvalErr = err
		logger.Error().Err(err).Msg("compliance re-check failed")
		return []CategoryResult{res}, false
	}
	if !ok {
		logger.Warn().Msg("no security report stored yet, nothing to re-check")
		return []CategoryResult{res}, true
	}

	logger.Info().Float64("compliance_score", check.Score).Msg("compliance re-check complete")
	res.Violations = len(check.Violations)
	for _, v := range check.Violations {
		res.Deliveries = append(res.Deliveries, m.dispatcher.Dispatch(ctx, v)...)
	}
	return []CategoryResult{res}, false
}

func (m *Monitor) aggregate(ctx context.Context) error {
	logger := zerolog.Ctx(ctx)
	snap, err := dashboard.Aggregate(ctx, m.store, domain.AllCategories())
	if err != nil {
		logger.Warn().Err(err).Msg("dashboard aggregation skipped")
		return err
	}
	if err := m.store.WriteSnapshot(snap); err != nil {
		logger.Error().Err(err).Msg("dashboard snapshot write failed")
		return err
	}
	logger.Info().
		Float64("compliance_score", snap.Security.ComplianceScore).
		Float64("potential_monthly_savings", snap.Cost.PotentialMonthlySavings).
		Msg("dashboard snapshot written")
	return nil
}

func (m *Monitor) prune(ctx context.Context) (int, error) {
	logger := zerolog.Ctx(ctx)
	removed, err := m.store.Prune(m.opts.Retention, time.Now())
	if err != nil {
		logger.Error().Err(err).Msg("retention pruning failed")
		return removed, err
	}
	logger.Info().Int("removed", removed).Int("max_age_days", m.opts.Retention.MaxAgeDays).
		Msg("retention pruning complete")
	return removed, nil
}

func logSummary(logger zerolog.Logger, s RunSummary) {
	for _, r := range s.Categories {
		evt := logger.Info()
		if !r.Succeeded() || r.EvalErr != nil {
			evt = logger.Warn()
		}
		delivered, failed := 0, 0
		for _, d := range r.Deliveries {
			if d.Succeeded() {
				delivered++
			} else {
				failed++
			}
		}
		evt.Str("category", string(r.Category)).
			Bool("probe_ok", r.ProbeErr == nil).
			Bool("store_ok", r.StoreErr == nil).
			Bool("eval_ok", r.EvalErr == nil).
			Int("violations", r.Violations).
			Int("alerts_delivered", delivered).
			Int("alerts_failed", failed).
			Msg("category summary")
	}

	evt := logger.Info()
	if !s.Succeeded() {
		evt = logger.Error()
	}
	evt.Bool("succeeded", s.Succeeded()).
		Dur("elapsed", s.Finished.Sub(s.Started)).
		Msg("run finished")
}
