package dashboard

import (
	"context"
	"time"

	"github.com/de-tools/workspace-monitor/pkg/models/domain"
	"github.com/rs/zerolog"
)

// LatestReader resolves the most recent persisted report per category.
type LatestReader interface {
	Latest(c domain.ReportCategory) (domain.ReportDocument, bool, error)
}

// Aggregate combines the latest reports of the requested categories into a
// single snapshot. Aggregation requires a complete set: any absent category
// fails with IncompleteDataError and nothing is produced. It extracts
// display fields only and never re-runs policy evaluation.
func Aggregate(ctx context.Context, reader LatestReader, categories []domain.ReportCategory) (domain.DashboardSnapshot, error) {
	docs := make(map[domain.ReportCategory]domain.ReportDocument, len(categories))
	var missing []domain.ReportCategory

	for _, c := range categories {
		doc, ok, err := reader.Latest(c)
		if err != nil {
			return domain.DashboardSnapshot{}, err
		}
		if !ok {
			missing = append(missing, c)
			continue
		}
		docs[c] = doc
	}
	if len(missing) > 0 {
		return domain.DashboardSnapshot{}, &domain.IncompleteDataError{Missing: missing}
	}

	snap := domain.DashboardSnapshot{GeneratedAt: time.Now().UTC().Truncate(time.Second)}
	for c, doc := range docs {
		switch c {
		case domain.CategorySecurity:
			snap.Security = securitySummary(doc)
		case domain.CategoryCost:
			snap.Cost = costSummary(doc)
		default:
			zerolog.Ctx(ctx).Warn().
				Str("category", string(c)).
				Msg("no dashboard section for category, skipping")
		}
	}
	return snap, nil
}

func securitySummary(doc domain.ReportDocument) domain.SecuritySummary {
	score, _ := doc.ScoreFields[domain.ScoreCompliance].Number()
	failed := 0
	for _, f := range doc.Findings {
		if f.Status == domain.StatusFail {
			failed++
		}
	}
	return domain.SecuritySummary{
		ComplianceScore: score,
		CriticalIssues:  failed,
		Recommendations: doc.Recommendations,
		GeneratedAt:     doc.GeneratedAt,
	}
}

func costSummary(doc domain.ReportDocument) domain.CostSummary {
	savings, _ := doc.ScoreFields[domain.ScoreMonthlySavings].Number()
	priority, _ := doc.ScoreFields[domain.ScorePriority].Text()
	return domain.CostSummary{
		PotentialMonthlySavings: savings,
		OptimizationPriority:    priority,
		Recommendations:         doc.Recommendations,
		GeneratedAt:             doc.GeneratedAt,
	}
}
