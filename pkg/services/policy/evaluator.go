package policy

import (
	"context"
	"fmt"

	"github.com/de-tools/workspace-monitor/pkg/models/domain"
)

// Thresholds contain the configurable policy limits applied to reports.
type Thresholds struct {
	// MinComplianceScore is the lowest acceptable security compliance
	// score before a COMPLIANCE violation fires (default: 70).
	MinComplianceScore float64
}

// DefaultThresholds returns the default policy configuration.
func DefaultThresholds() Thresholds {
	return Thresholds{MinComplianceScore: 70}
}

// Evaluate inspects a report document against the thresholds and yields the
// violations it breaches. It is pure: no external calls, no mutation.
func Evaluate(doc domain.ReportDocument, t Thresholds) ([]domain.Violation, error) {
	switch doc.Category {
	case domain.CategorySecurity:
		return evaluateSecurity(doc, t)
	case domain.CategoryCost:
		return evaluateCost(doc)
	}
	return nil, fmt.Errorf("no policy defined for category %q", doc.Category)
}

func evaluateSecurity(doc domain.ReportDocument, t Thresholds) ([]domain.Violation, error) {
	score, ok := numberField(doc, domain.ScoreCompliance)
	if !ok {
		return nil, &domain.SchemaError{
			Category: doc.Category,
			Field:    domain.ScoreCompliance,
			Detail:   "missing or non-numeric",
		}
	}

	criticalIssues := 0
	for _, f := range doc.Findings {
		switch f.Status {
		case domain.StatusPass, domain.StatusWarn:
		case domain.StatusFail:
			criticalIssues++
		default:
			return nil, &domain.SchemaError{
				Category: doc.Category,
				Field:    "findings.status",
				Detail:   fmt.Sprintf("unknown status %q on finding %q", f.Status, f.Name),
			}
		}
	}

	source := doc.Identity()
	var violations []domain.Violation

	// The compliance and critical-issue checks are independent; both may
	// fire for the same report.
	if score < t.MinComplianceScore {
		violations = append(violations, domain.Violation{
			Category: doc.Category,
			Kind:     domain.ViolationCompliance,
			Severity: domain.SeverityHigh,
			Message:  fmt.Sprintf("compliance score %.1f is below the required %.1f", score, t.MinComplianceScore),
			Source:   source,
		})
	}
	if criticalIssues > 0 {
		violations = append(violations, domain.Violation{
			Category: doc.Category,
			Kind:     domain.ViolationSecurity,
			Severity: domain.SeverityCritical,
			Message:  fmt.Sprintf("%d security checks failed", criticalIssues),
			Source:   source,
		})
	}
	return violations, nil
}

func evaluateCost(doc domain.ReportDocument) ([]domain.Violation, error) {
	savings, ok := numberField(doc, domain.ScoreMonthlySavings)
	if !ok {
		return nil, &domain.SchemaError{
			Category: doc.Category,
			Field:    domain.ScoreMonthlySavings,
			Detail:   "missing or non-numeric",
		}
	}
	priority, ok := textField(doc, domain.ScorePriority)
	if !ok {
		return nil, &domain.SchemaError{
			Category: doc.Category,
			Field:    domain.ScorePriority,
			Detail:   "missing or non-textual",
		}
	}

	switch priority {
	case "LOW", "MEDIUM":
		return nil, nil
	case "HIGH":
		return []domain.Violation{{
			Category: doc.Category,
			Kind:     domain.ViolationCost,
			Severity: domain.SeverityHigh,
			Message:  fmt.Sprintf("optimization priority is HIGH with potential monthly savings of $%.2f", savings),
			Source:   doc.Identity(),
		}}, nil
	}
	return nil, &domain.SchemaError{
		Category: doc.Category,
		Field:    domain.ScorePriority,
		Detail:   fmt.Sprintf("unknown priority %q", priority),
	}
}

// LatestReader resolves the most recent persisted report per category.
type LatestReader interface {
	Latest(c domain.ReportCategory) (domain.ReportDocument, bool, error)
}

// ComplianceResult is the outcome of a standalone compliance re-check.
type ComplianceResult struct {
	Score      float64
	Violations []domain.Violation
}

// CheckCompliance re-evaluates the stored latest security report. The second
// return value is false when no security report exists yet; that is neither
// a violation nor an error, the caller decides how to surface it.
func CheckCompliance(ctx context.Context, store LatestReader, t Thresholds) (ComplianceResult, bool, error) {
	doc, ok, err := store.Latest(domain.CategorySecurity)
	if err != nil {
		return ComplianceResult{}, false, err
	}
	if !ok {
		return ComplianceResult{}, false, nil
	}

	violations, err := Evaluate(doc, t)
	if err != nil {
		return ComplianceResult{}, true, err
	}
	score, _ := numberField(doc, domain.ScoreCompliance)
	return ComplianceResult{Score: score, Violations: violations}, true, nil
}

func numberField(doc domain.ReportDocument, field string) (float64, bool) {
	v, ok := doc.ScoreFields[field]
	if !ok {
		return 0, false
	}
	return v.Number()
}

func textField(doc domain.ReportDocument, field string) (string, bool) {
	v, ok := doc.ScoreFields[field]
	if !ok {
		return "", false
	}
	return v.Text()
}
