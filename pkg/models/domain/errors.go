package domain

import (
	"fmt"
	"strings"
)

// ConfigError is fatal and pre-flight: the configuration document is
// malformed or a required credential is missing.
type ConfigError struct {
	Field  string
	Reason string
}

func (e *ConfigError) Error() string {
	if e.Reason == "" {
		return fmt.Sprintf("invalid configuration: missing required field %q", e.Field)
	}
	return fmt.Sprintf("invalid configuration: field %q: %s", e.Field, e.Reason)
}

// ProbeReason distinguishes how a probe run failed.
type ProbeReason string

const (
	ProbeTimeout ProbeReason = "timeout"
	ProbeExit    ProbeReason = "exit"
	ProbeParse   ProbeReason = "parse"
	ProbeSchema  ProbeReason = "schema"
)

// ProbeError is scoped to a single category; it never aborts the other
// category pipelines.
type ProbeError struct {
	Category ReportCategory
	Reason   ProbeReason
	Err      error
}

func (e *ProbeError) Error() string {
	return fmt.Sprintf("%s probe failed (%s): %v", e.Category, e.Reason, e.Err)
}

func (e *ProbeError) Unwrap() error { return e.Err }

// SchemaError reports an expected field that is missing or out of range in
// an otherwise well-formed report.
type SchemaError struct {
	Category ReportCategory
	Field    string
	Detail   string
}

func (e *SchemaError) Error() string {
	return fmt.Sprintf("%s report schema: field %q: %s", e.Category, e.Field, e.Detail)
}

// DeliveryError is scoped to a single alert channel; the remaining channels
// still attempt delivery.
type DeliveryError struct {
	Channel string
	Err     error
}

func (e *DeliveryError) Error() string {
	return fmt.Sprintf("delivery via %s failed: %v", e.Channel, e.Err)
}

func (e *DeliveryError) Unwrap() error { return e.Err }

// IncompleteDataError aborts dashboard aggregation when a required category
// has no latest report. It never fails the run as a whole.
type IncompleteDataError struct {
	Missing []ReportCategory
}

func (e *IncompleteDataError) Error() string {
	names := make([]string, len(e.Missing))
	for i, c := range e.Missing {
		names[i] = string(c)
	}
	return fmt.Sprintf("dashboard aggregation requires latest reports for: %s", strings.Join(names, ", "))
}
