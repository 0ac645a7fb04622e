package domain

import (
	"encoding/json"
	"fmt"
	"time"
)

// ReportCategory identifies a monitoring domain with its own probe,
// thresholds and latest pointer.
type ReportCategory string

const (
	CategorySecurity ReportCategory = "security"
	CategoryCost     ReportCategory = "cost"
)

// AllCategories returns the full suite in its fixed run order.
func AllCategories() []ReportCategory {
	return []ReportCategory{CategorySecurity, CategoryCost}
}

func ParseCategory(s string) (ReportCategory, error) {
	switch ReportCategory(s) {
	case CategorySecurity, CategoryCost:
		return ReportCategory(s), nil
	}
	return "", fmt.Errorf("unknown report category %q", s)
}

// FindingStatus is the closed set of probe check outcomes. Parsers keep
// unknown values verbatim; the policy evaluator rejects them as SchemaError.
type FindingStatus string

const (
	StatusPass FindingStatus = "PASS"
	StatusWarn FindingStatus = "WARN"
	StatusFail FindingStatus = "FAIL"
)

// Finding is one atomic check result within a report.
type Finding struct {
	Name   string        `json:"name"`
	Status FindingStatus `json:"status"`
	Detail string        `json:"detail,omitempty"`
}

// Score field names shared between probe parsers and the policy evaluator.
const (
	ScoreCompliance     = "complianceScore"
	ScoreMonthlySavings = "potentialMonthlySavings"
	ScorePriority       = "optimizationPriority"
)

// ScoreValue holds a single named report metric, either numeric or textual.
type ScoreValue struct {
	number float64
	text   string
	isText bool
}

func NumberScore(v float64) ScoreValue { return ScoreValue{number: v} }
func TextScore(s string) ScoreValue    { return ScoreValue{text: s, isText: true} }

// Number returns the numeric value, false when the metric is textual.
func (v ScoreValue) Number() (float64, bool) {
	if v.isText {
		return 0, false
	}
	return v.number, true
}

// Text returns the textual value, false when the metric is numeric.
func (v ScoreValue) Text() (string, bool) {
	if !v.isText {
		return "", false
	}
	return v.text, true
}

func (v ScoreValue) MarshalJSON() ([]byte, error) {
	if v.isText {
		return json.Marshal(v.text)
	}
	return json.Marshal(v.number)
}

func (v *ScoreValue) UnmarshalJSON(data []byte) error {
	var n float64
	if err := json.Unmarshal(data, &n); err == nil {
		*v = NumberScore(n)
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("score value must be a number or a string: %w", err)
	}
	*v = TextScore(s)
	return nil
}

// ReportDocument is the structured output of one probe run. It is immutable
// once persisted.
type ReportDocument struct {
	Category        ReportCategory        `json:"category"`
	GeneratedAt     time.Time             `json:"generated_at"`
	ScoreFields     map[string]ScoreValue `json:"score_fields"`
	Findings        []Finding             `json:"findings,omitempty"`
	Recommendations []string              `json:"recommendations,omitempty"`
}

// ReportIdentity is an opaque handle to a persisted report.
type ReportIdentity struct {
	Category ReportCategory `json:"category"`
	Name     string         `json:"name"`
}

func (id ReportIdentity) String() string {
	return fmt.Sprintf("%s/%s", id.Category, id.Name)
}

// Identity derives the persisted name for the document. Timestamps are
// second resolution and category scoped, so names are collision free.
func (d ReportDocument) Identity() ReportIdentity {
	return ReportIdentity{
		Category: d.Category,
		Name:     fmt.Sprintf("%s-%s.json", d.Category, d.GeneratedAt.UTC().Format("20060102-150405")),
	}
}

// RetentionPolicy bounds how long stored reports and log records survive.
type RetentionPolicy struct {
	MaxAgeDays int
}
