package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/de-tools/workspace-monitor/pkg/server"
	"github.com/de-tools/workspace-monitor/pkg/services/monitor"
	"github.com/spf13/cobra"
)

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Serve the report API and run the full suite on the scan interval",
		RunE:  runServe,
	}
}

func runServe(cmd *cobra.Command, _ []string) error {
	cmd.SilenceUsage = true

	mon, cfg, logger, cleanup, err := buildMonitor()
	if err != nil {
		return err
	}
	defer cleanup()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx = logger.WithContext(ctx)

	go runOnInterval(ctx, mon, cfg.ScanInterval)

	api := server.NewWebAPI(logger, server.Config{
		Addr: cfg.ServerAddr,
		Dependencies: server.Dependencies{
			Store: mon.Store(),
		},
	})
	return api.Start()
}

// runOnInterval executes the full suite immediately, then on every tick
// until the context is cancelled.
func runOnInterval(ctx context.Context, mon *monitor.Monitor, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		_, _ = mon.Run(ctx, monitor.ModeFull)
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}
