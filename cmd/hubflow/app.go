package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/redis/go-redis/v9"

	"github.com/amanaz3/customer-hub-flow-sub006/pkg/config"
	"github.com/amanaz3/customer-hub-flow-sub006/pkg/ledger"
	"github.com/amanaz3/customer-hub-flow-sub006/pkg/ledger/storage"
	"github.com/amanaz3/customer-hub-flow-sub006/pkg/reconciliation"
	"github.com/amanaz3/customer-hub-flow-sub006/pkg/rules/notify"
	"github.com/amanaz3/customer-hub-flow-sub006/pkg/rules/source"
	"github.com/amanaz3/customer-hub-flow-sub006/pkg/rules/store"
	"github.com/amanaz3/customer-hub-flow-sub006/pkg/telemetry/metrics"
	"github.com/amanaz3/customer-hub-flow-sub006/pkg/telemetry/tracing"
)

// app holds the components shared by the commands. Fields a command does
// not ask for stay nil.
type app struct {
	cfg      *config.Config
	logger   *slog.Logger
	metrics  *metrics.Collector
	tracer   *tracing.Tracer
	redis    redis.UniversalClient
	source   source.Source
	notifier notify.Notifier
	rules    *store.Store
	ledger   ledger.Store

	closers []func() error
}

type appOptions struct {
	ledger bool
	// subscribe connects the change notifier so the rule store reloads on
	// published changes. One-shot commands load once and skip it.
	subscribe bool
	// ledgerOnly skips the rule source and store.
	ledgerOnly bool
}

func newApp(ctx context.Context, cfg *config.Config, logger *slog.Logger, opts appOptions) (_ *app, err error) {
	a := &app{cfg: cfg, logger: logger}
	defer func() {
		if err != nil {
			a.Close()
		}
	}()

	if cfg.Telemetry.Metrics.Enabled {
		a.metrics = metrics.NewCollector(&cfg.Telemetry.Metrics, nil)
	}
	a.tracer, err = tracing.New(&cfg.Telemetry.Tracing, Version)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize tracing: %w", err)
	}
	a.closers = append(a.closers, func() error { return a.tracer.Shutdown(context.Background()) })

	needRedis := cfg.Reconciliation.Lock.Enabled ||
		(opts.subscribe && cfg.Rules.Notifications.Backend == "redis")
	if needRedis {
		a.redis = newRedisClient(cfg.Redis)
		a.closers = append(a.closers, a.redis.Close)
	}

	if !opts.ledgerOnly {
		if err := a.openRules(cfg, logger, opts.subscribe); err != nil {
			return nil, err
		}
	}

	if opts.ledger || opts.ledgerOnly {
		a.ledger, err = storage.New(ctx, cfg.Ledger, logger)
		if err != nil {
			return nil, fmt.Errorf("failed to open ledger: %w", err)
		}
		a.closers = append(a.closers, a.ledger.Close)
	}
	return a, nil
}

func (a *app) openRules(cfg *config.Config, logger *slog.Logger, subscribe bool) error {
	var err error
	a.source, err = source.New(&cfg.Rules, logger)
	if err != nil {
		return fmt.Errorf("failed to open rule source: %w", err)
	}
	if c, ok := a.source.(io.Closer); ok {
		a.closers = append(a.closers, c.Close)
	}

	storeOpts := []store.Option{store.WithLogger(logger), store.WithMetrics(a.metrics)}
	if subscribe {
		a.notifier, err = notify.New(cfg, a.redis, logger)
		if err != nil {
			return fmt.Errorf("failed to create rule notifier: %w", err)
		}
		a.closers = append(a.closers, a.notifier.Close)
		storeOpts = append(storeOpts, store.WithNotifier(a.notifier))
	}
	a.rules = store.New(a.source, storeOpts...)
	return nil
}

func newRedisClient(cfg config.RedisConfig) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:        cfg.Addr,
		Password:    cfg.Password,
		DB:          cfg.DB,
		DialTimeout: cfg.DialTimeout,
	})
}

// orchestrator wires the reconciliation orchestrator, with the Redis run
// lock when enabled.
func (a *app) orchestrator() *reconciliation.Orchestrator {
	opts := []reconciliation.Option{
		reconciliation.WithMetrics(a.metrics),
		reconciliation.WithTracer(a.tracer),
		reconciliation.WithLogger(a.logger),
	}
	if lc := a.cfg.Reconciliation.Lock; lc.Enabled && a.redis != nil {
		opts = append(opts, reconciliation.WithLock(reconciliation.NewRedisLock(a.redis, lc.Key, lc.TTL, a.logger)))
	}
	return reconciliation.NewOrchestrator(a.ledger, a.rules, a.cfg.Reconciliation, opts...)
}

// Close releases components in reverse order of creation.
func (a *app) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}
