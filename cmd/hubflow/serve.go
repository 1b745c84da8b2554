package main

import (
	"context"
	"fmt"
	"net"

	"github.com/spf13/cobra"

	"github.com/amanaz3/customer-hub-flow-sub006/pkg/cli"
	"github.com/amanaz3/customer-hub-flow-sub006/pkg/eligibility"
	"github.com/amanaz3/customer-hub-flow-sub006/pkg/reconciliation"
	"github.com/amanaz3/customer-hub-flow-sub006/pkg/server"
	"github.com/amanaz3/customer-hub-flow-sub006/pkg/telemetry/health"
)

var serveFlags struct {
	listenAddress string
	dryRun        bool
	noSchedule    bool
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the hubflow API server",
	Long: `Start the hubflow API server.

The server loads the rule source, subscribes to change notifications, opens
the ledger and runs reconciliation on the configured cron schedule.

Examples:
  # Start with a config file
  hubflow serve --config /etc/hubflow/hubflow.yaml

  # Override listen address
  hubflow serve --listen 0.0.0.0:8080

  # API only, no scheduled reconciliation
  hubflow serve --no-schedule

  # Validate config without starting server
  hubflow serve --dry-run`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().StringVarP(&serveFlags.listenAddress, "listen", "l", "", "override listen address")
	serveCmd.Flags().BoolVar(&serveFlags.dryRun, "dry-run", false, "validate config without starting server")
	serveCmd.Flags().BoolVar(&serveFlags.noSchedule, "no-schedule", false, "disable scheduled reconciliation")
}

func runServe(cmd *cobra.Command, _ []string) error {
	cfg, logger, err := loadConfig()
	if err != nil {
		return err
	}
	if serveFlags.listenAddress != "" {
		cfg.Server.ListenAddress = serveFlags.listenAddress
	}
	if serveFlags.dryRun {
		fmt.Fprintln(outWriter(cmd), "✓ Configuration valid")
		return nil
	}

	ctx, stop := cli.SignalContext(context.Background())
	defer stop()

	a, err := newApp(ctx, cfg, logger, appOptions{ledger: true, subscribe: true})
	if err != nil {
		return cli.NewCommandError("serve", err)
	}
	defer a.Close()

	// A failed initial load is not fatal: eligibility degrades to the
	// neutral result and readiness reports the rules check until a reload
	// succeeds.
	if err := a.rules.Start(ctx); err != nil {
		logger.Warn("initial rule load failed", "error", err)
	}

	checker := health.New(cfg.Telemetry.Health.CheckTimeout)
	checker.RegisterCheck("rules", a.rules.Check)
	checker.RegisterCheck("ledger", a.ledger.Ping)
	if a.redis != nil {
		checker.RegisterCheck("redis", func(ctx context.Context) error {
			return a.redis.Ping(ctx).Err()
		})
	}

	orch := a.orchestrator()

	if !serveFlags.noSchedule {
		rc := cfg.Reconciliation
		sched := reconciliation.NewScheduler(orch, rc.Schedule, reconciliation.Job{Type: reconciliation.JobType(rc.JobType)}, logger)
		if err := sched.Start(ctx); err != nil {
			return cli.NewCommandError("serve", err)
		}
		defer sched.Stop()
		if next := sched.NextRun(); next != nil {
			logger.Info("next scheduled reconciliation", "at", next)
		}
	}

	metricsPath := ""
	if cfg.Telemetry.Metrics.Enabled {
		metricsPath = cfg.Telemetry.Metrics.Path
	}
	srv := server.NewServer(cfg.Server, server.Deps{
		Eligibility: eligibility.NewEngine(a.rules, logger, a.metrics, a.tracer),
		Reconciler:  orch,
		Rules:       a.rules,
		Health:      checker,
		Metrics:     a.metrics,
		MetricsPath: metricsPath,
		Tracer:      a.tracer,
		Version:     versionInfo(),
		Logger:      logger,
	})

	ln, err := net.Listen("tcp", cfg.Server.ListenAddress)
	if err != nil {
		return cli.NewCommandError("serve", err)
	}
	w := outWriter(cmd)
	fmt.Fprintf(w, "hubflow %s\n", Version)
	fmt.Fprintf(w, "✓ Server listening on %s\n", ln.Addr())
	fmt.Fprintf(w, "✓ Health endpoint: http://%s/health\n", ln.Addr())
	if metricsPath != "" {
		fmt.Fprintf(w, "✓ Metrics endpoint: http://%s%s\n", ln.Addr(), metricsPath)
	}
	fmt.Fprintln(w, "\nPress Ctrl+C to stop")

	if err := srv.Serve(ctx, ln); err != nil {
		return cli.NewCommandError("serve", err)
	}
	a.rules.Wait()
	fmt.Fprintln(w, "✓ Server stopped")
	return nil
}
