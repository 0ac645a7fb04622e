package domain

import "time"

// SecuritySummary carries the display fields extracted from the latest
// security report.
type SecuritySummary struct {
	ComplianceScore float64   `json:"compliance_score"`
	CriticalIssues  int       `json:"critical_issues"`
	Recommendations []string  `json:"recommendations,omitempty"`
	GeneratedAt     time.Time `json:"generated_at"`
}

// CostSummary carries the display fields extracted from the latest cost
// report.
type CostSummary struct {
	PotentialMonthlySavings float64   `json:"potential_monthly_savings"`
	OptimizationPriority    string    `json:"optimization_priority"`
	Recommendations         []string  `json:"recommendations,omitempty"`
	GeneratedAt             time.Time `json:"generated_at"`
}

// DashboardSnapshot is a self-contained aggregation of the latest reports,
// ready for external rendering.
type DashboardSnapshot struct {
	GeneratedAt time.Time       `json:"generated_at"`
	Security    SecuritySummary `json:"security"`
	Cost        CostSummary     `json:"cost"`
}
