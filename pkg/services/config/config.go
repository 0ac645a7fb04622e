package config

import (
	"fmt"
	"time"

	"github.com/de-tools/workspace-monitor/pkg/models/domain"
	"github.com/spf13/viper"
)

const (
	defaultScanIntervalHours  = 24
	defaultRetentionDays      = 30
	defaultProbeTimeoutSecs   = 300
	defaultWorkerLimit        = 2
	defaultMinComplianceScore = 70
	defaultReportsDir         = "reports"
	defaultServerAddr         = ":8080"
)

// Load reads the monitor configuration document and validates it. Missing
// workspace credentials fail fast before any probe can run.
func Load(path string) (domain.MonitorConfig, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("json")

	v.SetDefault("scan_interval_hours", defaultScanIntervalHours)
	v.SetDefault("retention_days", defaultRetentionDays)
	v.SetDefault("probe_timeout_seconds", defaultProbeTimeoutSecs)
	v.SetDefault("worker_limit", defaultWorkerLimit)
	v.SetDefault("min_compliance_score", defaultMinComplianceScore)
	v.SetDefault("reports_dir", defaultReportsDir)
	v.SetDefault("server_addr", defaultServerAddr)
	v.SetDefault("probes.security", "databricks-security-scanner")
	v.SetDefault("probes.cost", "databricks-cost-analyzer")
	v.SetDefault("notifications.smtp_host", "localhost:25")
	v.SetDefault("notifications.smtp_from", "workspace-monitor@localhost")

	// Credentials may come from the environment instead of the document.
	_ = v.BindEnv("workspace_url", "DATABRICKS_HOST")
	_ = v.BindEnv("access_token", "DATABRICKS_TOKEN")

	if err := v.ReadInConfig(); err != nil {
		return domain.MonitorConfig{}, &domain.ConfigError{
			Field:  "config",
			Reason: fmt.Sprintf("cannot read %s: %v", path, err),
		}
	}

	cfg := domain.MonitorConfig{
		Credentials: domain.Credentials{
			WorkspaceURL: v.GetString("workspace_url"),
			AccessToken:  v.GetString("access_token"),
		},
		ScanInterval:       time.Duration(v.GetInt("scan_interval_hours")) * time.Hour,
		ReportsDir:         v.GetString("reports_dir"),
		Retention:          domain.RetentionPolicy{MaxAgeDays: v.GetInt("retention_days")},
		ProbeTimeout:       time.Duration(v.GetInt("probe_timeout_seconds")) * time.Second,
		WorkerLimit:        v.GetInt("worker_limit"),
		MinComplianceScore: v.GetFloat64("min_compliance_score"),
		ProbeBinaries: map[domain.ReportCategory]string{
			domain.CategorySecurity: v.GetString("probes.security"),
			domain.CategoryCost:     v.GetString("probes.cost"),
		},
		Notifications: domain.NotificationConfig{
			Email:        v.GetString("notifications.email"),
			SMTPHost:     v.GetString("notifications.smtp_host"),
			SMTPFrom:     v.GetString("notifications.smtp_from"),
			SlackWebhook: v.GetString("notifications.slack_webhook"),
		},
		ServerAddr: v.GetString("server_addr"),
	}

	if err := validate(cfg); err != nil {
		return domain.MonitorConfig{}, err
	}
	return cfg, nil
}

func validate(cfg domain.MonitorConfig) error {
	if cfg.Credentials.WorkspaceURL == "" {
		return &domain.ConfigError{Field: "workspace_url"}
	}
	if cfg.Credentials.AccessToken == "" {
		return &domain.ConfigError{Field: "access_token"}
	}
	if cfg.ScanInterval <= 0 {
		return &domain.ConfigError{Field: "scan_interval_hours", Reason: "must be positive"}
	}
	if cfg.Retention.MaxAgeDays <= 0 {
		return &domain.ConfigError{Field: "retention_days", Reason: "must be positive"}
	}
	if cfg.WorkerLimit <= 0 {
		return &domain.ConfigError{Field: "worker_limit", Reason: "must be positive"}
	}
	if cfg.MinComplianceScore < 0 || cfg.MinComplianceScore > 100 {
		return &domain.ConfigError{Field: "min_compliance_score", Reason: "must be within 0-100"}
	}
	return nil
}
