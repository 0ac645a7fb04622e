package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/de-tools/workspace-monitor/pkg/models/domain"
	"github.com/de-tools/workspace-monitor/pkg/services/alert"
	"github.com/de-tools/workspace-monitor/pkg/services/config"
	"github.com/de-tools/workspace-monitor/pkg/services/monitor"
	"github.com/de-tools/workspace-monitor/pkg/services/policy"
	"github.com/de-tools/workspace-monitor/pkg/services/probe"
	"github.com/de-tools/workspace-monitor/pkg/store/reports"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

var (
	cfgPath        string
	scanOnly       bool
	costOnly       bool
	complianceOnly bool
	dashboardOnly  bool
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "monitor",
		Short: "Workspace monitoring orchestrator",
		Long: "Runs the workspace analysis probes, evaluates their reports against " +
			"policy thresholds, persists a versioned report history and alerts the " +
			"configured channels on violations.",
		RunE: runOnce,
	}

	rootCmd.PersistentFlags().StringVarP(&cfgPath, "config", "c", "monitor.json",
		"Path to the monitor configuration document")
	rootCmd.Flags().BoolVar(&scanOnly, "scan-only", false, "Run the security scan pipeline only")
	rootCmd.Flags().BoolVar(&costOnly, "cost-only", false, "Run the cost analysis pipeline only")
	rootCmd.Flags().BoolVar(&complianceOnly, "compliance-only", false,
		"Re-check compliance against the stored latest security report")
	rootCmd.Flags().BoolVar(&dashboardOnly, "dashboard-only", false,
		"Aggregate the latest reports into a dashboard snapshot without probing")
	rootCmd.MarkFlagsMutuallyExclusive("scan-only", "cost-only", "compliance-only", "dashboard-only")

	rootCmd.AddCommand(newServeCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func selectedMode() monitor.Mode {
	switch {
	case scanOnly:
		return monitor.ModeSecurity
	case costOnly:
		return monitor.ModeCost
	case complianceOnly:
		return monitor.ModeCompliance
	case dashboardOnly:
		return monitor.ModeDashboard
	}
	return monitor.ModeFull
}

func runOnce(cmd *cobra.Command, _ []string) error {
	cmd.SilenceUsage = true

	mon, _, logger, cleanup, err := buildMonitor()
	if err != nil {
		return err
	}
	defer cleanup()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx = logger.WithContext(ctx)

	summary, err := mon.Run(ctx, selectedMode())
	if err != nil {
		return err
	}
	if !summary.Succeeded() {
		return fmt.Errorf("run %s completed with failures, see log for details", summary.RunID)
	}
	return nil
}

// buildMonitor wires the orchestrator from the configuration document. The
// returned cleanup closes the run log file.
func buildMonitor() (*monitor.Monitor, domain.MonitorConfig, zerolog.Logger, func(), error) {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		fmt.Fprintf(os.Stderr, "Warning: could not load .env file: %v\n", err)
	}

	cfg, err := config.Load(cfgPath)
	if err != nil {
		return nil, cfg, zerolog.Logger{}, nil, err
	}

	store, err := reports.New(reports.Settings{Dir: cfg.ReportsDir})
	if err != nil {
		return nil, cfg, zerolog.Logger{}, nil, err
	}

	logFile, err := store.LogWriter(time.Now())
	if err != nil {
		return nil, cfg, zerolog.Logger{}, nil, fmt.Errorf("open run log: %w", err)
	}
	cleanup := func() { _ = logFile.Close() }
	logger := zerolog.New(zerolog.MultiLevelWriter(os.Stdout, logFile)).With().Timestamp().Logger()

	probes := make(map[domain.ReportCategory]probe.Probe, len(cfg.ProbeBinaries))
	for category, binary := range cfg.ProbeBinaries {
		p, err := probe.NewExecProbe(category, binary, cfg.ProbeTimeout)
		if err != nil {
			cleanup()
			return nil, cfg, zerolog.Logger{}, nil, err
		}
		probes[category] = p
	}

	channels := alert.ChannelsFromConfig(cfg.Notifications)
	if len(channels) == 0 {
		logger.Info().Msg("no notification channels configured, alerts will be logged only")
	}

	mon := monitor.New(cfg.Credentials, probes, store, alert.NewDispatcher(channels...), monitor.Options{
		WorkerLimit: cfg.WorkerLimit,
		Retention:   cfg.Retention,
		Thresholds:  policy.Thresholds{MinComplianceScore: cfg.MinComplianceScore},
	})
	return mon, cfg, logger, cleanup, nil
}
