package probe

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/de-tools/workspace-monitor/pkg/models/domain"
	"github.com/rs/zerolog"
)

// Probe is an external analysis process producing a structured report for
// one category.
type Probe interface {
	Category() domain.ReportCategory
	Run(ctx context.Context, creds domain.Credentials) (domain.ReportDocument, error)
}

type parseFunc func(raw []byte) (domain.ReportDocument, error)

// ExecProbe invokes a category's probe binary and normalizes its output
// document. It never retries; retry policy belongs to the orchestrator.
type ExecProbe struct {
	category domain.ReportCategory
	binary   string
	timeout  time.Duration
	parse    parseFunc
}

// NewExecProbe builds the probe for the given category.
func NewExecProbe(category domain.ReportCategory, binary string, timeout time.Duration) (*ExecProbe, error) {
	var parse parseFunc
	switch category {
	case domain.CategorySecurity:
		parse = parseSecurityReport
	case domain.CategoryCost:
		parse = parseCostReport
	default:
		return nil, fmt.Errorf("no probe implemented for category %q", category)
	}
	if binary == "" {
		return nil, fmt.Errorf("probe for %s requires a binary path", category)
	}
	return &ExecProbe{
		category: category,
		binary:   binary,
		timeout:  timeout,
		parse:    parse,
	}, nil
}

func (p *ExecProbe) Category() domain.ReportCategory { return p.category }

// Run invokes the external probe with the workspace credentials and an
// output path, then parses the document it wrote. The probe's own artifact
// is the only file written by the external call.
func (p *ExecProbe) Run(ctx context.Context, creds domain.Credentials) (domain.ReportDocument, error) {
	if creds.WorkspaceURL == "" {
		return domain.ReportDocument{}, &domain.ConfigError{Field: "workspace_url"}
	}
	if creds.AccessToken == "" {
		return domain.ReportDocument{}, &domain.ConfigError{Field: "access_token"}
	}

	scratch, err := os.MkdirTemp("", fmt.Sprintf("probe-%s-*", p.category))
	if err != nil {
		return domain.ReportDocument{}, fmt.Errorf("create probe scratch dir: %w", err)
	}
	defer func() {
		_ = os.RemoveAll(scratch)
	}()
	outputPath := filepath.Join(scratch, "report.json")

	runCtx := ctx
	var cancel context.CancelFunc
	if p.timeout > 0 {
		runCtx, cancel = context.WithTimeout(ctx, p.timeout)
		defer cancel()
	}

	cmd := exec.CommandContext(runCtx, p.binary,
		"--workspace-url", creds.WorkspaceURL,
		"--token", creds.AccessToken,
		"--output", outputPath,
	)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	zerolog.Ctx(ctx).Debug().
		Str("category", string(p.category)).
		Str("binary", p.binary).
		Msg("invoking probe")

	if err := cmd.Run(); err != nil {
		// A cancelled run (Ctrl-C) is not a probe failure.
		if errors.Is(ctx.Err(), context.Canceled) {
			return domain.ReportDocument{}, fmt.Errorf("%s probe interrupted: %w", p.category, ctx.Err())
		}
		if errors.Is(runCtx.Err(), context.DeadlineExceeded) {
			return domain.ReportDocument{}, &domain.ProbeError{
				Category: p.category,
				Reason:   domain.ProbeTimeout,
				Err:      fmt.Errorf("probe exceeded %s", p.timeout),
			}
		}
		return domain.ReportDocument{}, &domain.ProbeError{
			Category: p.category,
			Reason:   domain.ProbeExit,
			Err:      fmt.Errorf("%w: %s", err, stderrTail(stderr.String())),
		}
	}

	raw, err := os.ReadFile(outputPath)
	if err != nil {
		return domain.ReportDocument{}, &domain.ProbeError{
			Category: p.category,
			Reason:   domain.ProbeParse,
			Err:      fmt.Errorf("probe wrote no readable output: %w", err),
		}
	}

	doc, err := p.parse(raw)
	if err != nil {
		return domain.ReportDocument{}, err
	}
	doc.Category = p.category
	doc.GeneratedAt = time.Now().UTC().Truncate(time.Second)
	return doc, nil
}

func stderrTail(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return "no stderr output"
	}
	lines := strings.Split(s, "\n")
	if len(lines) > 5 {
		lines = lines[len(lines)-5:]
	}
	return strings.Join(lines, "; ")
}
