package domain

type Severity int

const (
	SeverityLow Severity = iota
	SeverityMedium
	SeverityHigh
	SeverityCritical
)

func (s Severity) String() string {
	switch s {
	case SeverityLow:
		return "low"
	case SeverityMedium:
		return "medium"
	case SeverityHigh:
		return "high"
	case SeverityCritical:
		return "critical"
	}
	return "unknown"
}

// ViolationKind tags the policy check that fired.
type ViolationKind string

const (
	ViolationCompliance ViolationKind = "COMPLIANCE"
	ViolationSecurity   ViolationKind = "SECURITY"
	ViolationCost       ViolationKind = "COST"
)

// Violation is a policy breach derived from evaluating a report against
// thresholds. Violations are never persisted independently of their source.
type Violation struct {
	Category ReportCategory
	Kind     ViolationKind
	Severity Severity
	Message  string
	Source   ReportIdentity
}
