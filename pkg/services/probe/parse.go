package probe

import (
	"encoding/json"
	"fmt"

	"github.com/de-tools/workspace-monitor/pkg/models/domain"
)

// Wire schemas written by the external probes. Finding statuses are kept
// verbatim here; the policy evaluator owns status validation.

type securityWire struct {
	ComplianceScore *float64        `json:"compliance_score"`
	SecurityChecks  []securityCheck `json:"security_checks"`
	Recommendations []string        `json:"recommendations"`
}

type securityCheck struct {
	Name    string `json:"name"`
	Status  string `json:"status"`
	Details string `json:"details"`
}

func parseSecurityReport(raw []byte) (domain.ReportDocument, error) {
	var wire securityWire
	if err := json.Unmarshal(raw, &wire); err != nil {
		return domain.ReportDocument{}, &domain.ProbeError{
			Category: domain.CategorySecurity,
			Reason:   domain.ProbeParse,
			Err:      err,
		}
	}
	if wire.ComplianceScore == nil {
		return domain.ReportDocument{}, schemaFailure(domain.CategorySecurity, "compliance_score", "missing")
	}
	if *wire.ComplianceScore < 0 || *wire.ComplianceScore > 100 {
		return domain.ReportDocument{}, schemaFailure(domain.CategorySecurity, "compliance_score",
			fmt.Sprintf("%v outside 0-100", *wire.ComplianceScore))
	}

	findings := make([]domain.Finding, 0, len(wire.SecurityChecks))
	for i, check := range wire.SecurityChecks {
		name := check.Name
		if name == "" {
			name = fmt.Sprintf("check-%d", i+1)
		}
		findings = append(findings, domain.Finding{
			Name:   name,
			Status: domain.FindingStatus(check.Status),
			Detail: check.Details,
		})
	}

	return domain.ReportDocument{
		ScoreFields: map[string]domain.ScoreValue{
			domain.ScoreCompliance: domain.NumberScore(*wire.ComplianceScore),
		},
		Findings:        findings,
		Recommendations: wire.Recommendations,
	}, nil
}

type costWire struct {
	Summary *struct {
		PotentialMonthlySavings *float64 `json:"potential_monthly_savings"`
		OptimizationPriority    string   `json:"optimization_priority"`
	} `json:"summary"`
	ClusterAnalysis struct {
		Recommendations []string `json:"recommendations"`
	} `json:"cluster_analysis"`
}

func parseCostReport(raw []byte) (domain.ReportDocument, error) {
	var wire costWire
	if err := json.Unmarshal(raw, &wire); err != nil {
		return domain.ReportDocument{}, &domain.ProbeError{
			Category: domain.CategoryCost,
			Reason:   domain.ProbeParse,
			Err:      err,
		}
	}
	if wire.Summary == nil {
		return domain.ReportDocument{}, schemaFailure(domain.CategoryCost, "summary", "missing")
	}
	if wire.Summary.PotentialMonthlySavings == nil {
		return domain.ReportDocument{}, schemaFailure(domain.CategoryCost, "summary.potential_monthly_savings", "missing")
	}
	savings := *wire.Summary.PotentialMonthlySavings
	if savings < 0 {
		return domain.ReportDocument{}, schemaFailure(domain.CategoryCost, "summary.potential_monthly_savings",
			fmt.Sprintf("%v is negative", savings))
	}
	if wire.Summary.OptimizationPriority == "" {
		return domain.ReportDocument{}, schemaFailure(domain.CategoryCost, "summary.optimization_priority", "missing")
	}

	return domain.ReportDocument{
		ScoreFields: map[string]domain.ScoreValue{
			domain.ScoreMonthlySavings: domain.NumberScore(savings),
			domain.ScorePriority:       domain.TextScore(wire.Summary.OptimizationPriority),
		},
		Recommendations: wire.ClusterAnalysis.Recommendations,
	}, nil
}

func schemaFailure(c domain.ReportCategory, field, detail string) error {
	return &domain.ProbeError{
		Category: c,
		Reason:   domain.ProbeSchema,
		Err:      &domain.SchemaError{Category: c, Field: field, Detail: detail},
	}
}
