package domain

import "time"

// Credentials identify the workspace every probe runs against.
type Credentials struct {
	WorkspaceURL string
	AccessToken  string
}

// NotificationConfig lists the configured alert channels. Empty fields
// disable the corresponding channel; having none configured is valid.
type NotificationConfig struct {
	Email        string
	SMTPHost     string
	SMTPFrom     string
	SlackWebhook string
}

// MonitorConfig is the immutable configuration passed into every component
// constructor. There are no ambient globals.
type MonitorConfig struct {
	Credentials        Credentials
	ScanInterval       time.Duration
	ReportsDir         string
	Retention          RetentionPolicy
	ProbeTimeout       time.Duration
	WorkerLimit        int
	MinComplianceScore float64
	ProbeBinaries      map[ReportCategory]string
	Notifications      NotificationConfig
	ServerAddr         string
}
