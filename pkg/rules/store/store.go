package store

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/amanaz3/customer-hub-flow-sub006/pkg/rules/notify"
	"github.com/amanaz3/customer-hub-flow-sub006/pkg/rules/source"
	"github.com/amanaz3/customer-hub-flow-sub006/pkg/telemetry/metrics"
)

// Store caches the active rule set for the whole process.
type Store struct {
	src      source.Source
	notifier notify.Notifier
	metrics  *metrics.Collector
	logger   *slog.Logger
	now      func() time.Time

	current  atomic.Pointer[Snapshot]
	reloadMu sync.Mutex
	reloadCh chan struct{}
	started  atomic.Bool
	wg       sync.WaitGroup
}

// Option configures a Store.
type Option func(*Store)

// WithNotifier subscribes the store to rule change notifications.
func WithNotifier(n notify.Notifier) Option {
	return func(s *Store) { s.notifier = n }
}

// WithMetrics records reloads and rule counts.
func WithMetrics(c *metrics.Collector) Option {
	return func(s *Store) { s.metrics = c }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Store) { s.logger = l }
}

// New creates an empty store over src. Nothing is loaded until Refresh or
// Start.
func New(src source.Source, opts ...Option) *Store {
	s := &Store{
		src:      src,
		notifier: notify.Noop{},
		logger:   slog.Default(),
		now:      time.Now,
		reloadCh: make(chan struct{}, 1),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Snapshot returns the active snapshot, or ErrNoSnapshot.
func (s *Store) Snapshot() (*Snapshot, error) {
	snap := s.current.Load()
	if snap == nil {
		return nil, ErrNoSnapshot
	}
	return snap, nil
}

// Refresh loads the source and swaps in a new snapshot. On failure the
// previous snapshot stays active and a *ReloadError is returned.
func (s *Store) Refresh(ctx context.Context) error {
	s.reloadMu.Lock()
	defer s.reloadMu.Unlock()

	start := time.Now()
	set, err := s.src.Load(ctx)
	s.metrics.RecordRuleReload(s.src.Name(), err, time.Since(start))
	if err != nil {
		s.logger.Error("rule reload failed, keeping previous snapshot",
			"source", s.src.Name(),
			"error", err,
		)
		return &ReloadError{Source: s.src.Name(), Cause: err}
	}

	snap := newSnapshot(set, s.src.Name(), s.now())
	prev := s.current.Swap(snap)
	s.metrics.SetActiveRules(snap.Counts(), snap.Version)

	attrs := []any{
		"source", snap.Source,
		"version", snap.Version,
		"eligibility_rules", len(snap.Eligibility),
		"matching_rules", len(snap.Matching),
	}
	if prev != nil {
		attrs = append(attrs, "previous_version", prev.Version)
	}
	s.logger.Info("rule snapshot loaded", attrs...)
	return nil
}

// Invalidate drops the active snapshot and asks the reload loop to load
// again. Until the reload succeeds, Snapshot returns ErrNoSnapshot.
func (s *Store) Invalidate() {
	s.current.Store(nil)
	s.logger.Info("rule snapshot invalidated", "source", s.src.Name())
	s.trigger()
}

func (s *Store) trigger() {
	select {
	case s.reloadCh <- struct{}{}:
	default:
	}
}

// Start performs the initial load and starts the reload loop, the source
// watch and the notifier subscription. They run until ctx is cancelled;
// Wait blocks until they have exited. A failed initial load is returned
// but the loops still start, so a later change can recover.
func (s *Store) Start(ctx context.Context) error {
	if !s.started.CompareAndSwap(false, true) {
		return ErrAlreadyStarted
	}

	err := s.Refresh(ctx)

	s.wg.Add(1)
	go s.reloadLoop(ctx)

	if w, ok := s.src.(source.Watcher); ok {
		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			if err := w.Watch(ctx, s.trigger); err != nil {
				s.logger.Error("rule source watch stopped", "source", s.src.Name(), "error", err)
			}
		}()
	}

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		err := s.notifier.Subscribe(ctx, func(c notify.Change) {
			s.logger.Info("rule change notification",
				"source", c.Source,
				"version", c.Version,
				"published_by", c.PublishedBy,
			)
			s.trigger()
		})
		if err != nil {
			s.logger.Error("rule change subscription stopped", "error", err)
		}
	}()

	return err
}

// Wait blocks until the goroutines started by Start have exited.
func (s *Store) Wait() {
	s.wg.Wait()
}

func (s *Store) reloadLoop(ctx context.Context) {
	defer s.wg.Done()
	for {
		select {
		case <-ctx.Done():
			return
		case <-s.reloadCh:
			// Refresh logs its own failures.
			_ = s.Refresh(ctx)
		}
	}
}

// Check is a readiness check that fails while no snapshot is loaded.
func (s *Store) Check(context.Context) error {
	_, err := s.Snapshot()
	return err
}
