package store

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"slices"
	"sync"
	"testing"
	"time"

	"github.com/amanaz3/customer-hub-flow-sub006/pkg/config"
	"github.com/amanaz3/customer-hub-flow-sub006/pkg/rules"
	"github.com/amanaz3/customer-hub-flow-sub006/pkg/rules/notify"
	"github.com/amanaz3/customer-hub-flow-sub006/pkg/rules/source"
	"github.com/amanaz3/customer-hub-flow-sub006/pkg/telemetry/metrics"

	"github.com/prometheus/client_golang/prometheus"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// ruleSet builds a version whose rules all carry the version number, so a
// reader can detect a mixed snapshot.
func ruleSet(version int) *rules.RuleSet {
	set := &rules.RuleSet{Version: version}
	for i := range 20 {
		typ := rules.TypePricing
		if i%2 == 0 {
			typ = rules.TypeMatching
		}
		set.Rules = append(set.Rules, rules.Rule{
			ID:       string(rune('a'+i)) + "-rule",
			Name:     "v" + string(rune('0'+version%10)),
			Type:     typ,
			Priority: i,
			Active:   true,
		})
	}
	return set
}

func TestSnapshotBeforeLoad(t *testing.T) {
	st := New(source.NewMemorySource(nil), WithLogger(quietLogger()))
	if _, err := st.Snapshot(); !errors.Is(err, ErrNoSnapshot) {
		t.Errorf("Snapshot() error = %v, want ErrNoSnapshot", err)
	}
	if err := st.Check(context.Background()); err == nil {
		t.Error("Check() should fail before the first load")
	}
}

func TestRefresh(t *testing.T) {
	src := source.NewMemorySource(&rules.RuleSet{
		Version: 2,
		Rules: []rules.Rule{
			{ID: "p2", Name: "p2", Type: rules.TypePricing, Priority: 20, Active: true},
			{ID: "e1", Name: "e1", Type: rules.TypeEligibility, Priority: 10, Active: true},
			{ID: "off", Name: "off", Type: rules.TypePricing, Priority: 1, Active: false},
			{ID: "m1", Name: "m1", Type: rules.TypeMatching, Priority: 30, Active: true},
		},
	})
	st := New(src, WithLogger(quietLogger()))

	if err := st.Refresh(context.Background()); err != nil {
		t.Fatalf("Refresh() error = %v", err)
	}
	snap, err := st.Snapshot()
	if err != nil {
		t.Fatalf("Snapshot() error = %v", err)
	}
	if snap.Version != 2 || snap.Source != "memory" || snap.Inactive != 1 {
		t.Errorf("snapshot = %+v", snap)
	}
	if len(snap.Eligibility) != 2 || snap.Eligibility[0].ID != "e1" {
		t.Errorf("Eligibility = %+v, want e1 then p2", snap.Eligibility)
	}
	if len(snap.Matching) != 1 {
		t.Errorf("Matching = %+v", snap.Matching)
	}
	counts := snap.Counts()
	if counts["pricing"] != 1 || counts["eligibility"] != 1 || counts["matching"] != 1 {
		t.Errorf("Counts() = %v", counts)
	}
}

func TestRefreshFailureKeepsPrevious(t *testing.T) {
	src := source.NewMemorySource(ruleSet(1))
	collector := metrics.NewCollector(&config.MetricsConfig{Enabled: true, Namespace: "test"}, prometheus.NewRegistry())
	st := New(src, WithLogger(quietLogger()), WithMetrics(collector))

	if err := st.Refresh(context.Background()); err != nil {
		t.Fatalf("Refresh() error = %v", err)
	}

	cause := errors.New("document rejected")
	src.Fail(cause)
	err := st.Refresh(context.Background())

	var rerr *ReloadError
	if !errors.As(err, &rerr) || rerr.Source != "memory" || !errors.Is(err, cause) {
		t.Fatalf("Refresh() error = %v, want ReloadError wrapping cause", err)
	}
	snap, err := st.Snapshot()
	if err != nil || snap.Version != 1 {
		t.Errorf("previous snapshot lost: %v, %v", snap, err)
	}
}

func TestInvalidate(t *testing.T) {
	st := New(source.NewMemorySource(ruleSet(1)), WithLogger(quietLogger()))
	if err := st.Refresh(context.Background()); err != nil {
		t.Fatalf("Refresh() error = %v", err)
	}
	st.Invalidate()
	if _, err := st.Snapshot(); !errors.Is(err, ErrNoSnapshot) {
		t.Errorf("Snapshot() after Invalidate error = %v", err)
	}
}

func TestStartReloadsOnChange(t *testing.T) {
	src := source.NewMemorySource(ruleSet(1))
	st := New(src, WithLogger(quietLogger()))

	ctx, cancel := context.WithCancel(context.Background())
	if err := st.Start(ctx); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	if err := st.Start(ctx); !errors.Is(err, ErrAlreadyStarted) {
		t.Errorf("second Start() error = %v", err)
	}

	src.Set(ruleSet(2))
	waitForVersion(t, st, 2)

	st.Invalidate()
	waitForVersion(t, st, 2)

	cancel()
	st.Wait()
}

type chanNotifier struct {
	notify.Noop
	ch chan notify.Change
}

func (n *chanNotifier) Subscribe(ctx context.Context, fn func(notify.Change)) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case c := <-n.ch:
			fn(c)
		}
	}
}

// staticSource is a source without Watch, so only notifications trigger
// reloads.
type staticSource struct {
	mu  sync.Mutex
	set *rules.RuleSet
}

func (s *staticSource) Name() string { return "static" }

func (s *staticSource) Load(context.Context) (*rules.RuleSet, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.set, nil
}

func TestStartReloadsOnNotification(t *testing.T) {
	src := &staticSource{set: ruleSet(1)}
	n := &chanNotifier{ch: make(chan notify.Change)}
	st := New(src, WithLogger(quietLogger()), WithNotifier(n))

	ctx, cancel := context.WithCancel(context.Background())
	defer func() {
		cancel()
		st.Wait()
	}()
	if err := st.Start(ctx); err != nil {
		t.Fatalf("Start() error = %v", err)
	}

	src.mu.Lock()
	src.set = ruleSet(3)
	src.mu.Unlock()
	n.ch <- notify.Change{Source: "static", Version: 3}

	waitForVersion(t, st, 3)
}

func waitForVersion(t *testing.T, st *Store, version int) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		if snap, err := st.Snapshot(); err == nil && snap.Version == version {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("snapshot never reached version %d", version)
}

// Readers racing a stream of refreshes must always see a snapshot whose
// rules all belong to its own version.
func TestNoTornReads(t *testing.T) {
	src := source.NewMemorySource(ruleSet(1))
	st := New(src, WithLogger(quietLogger()))
	if err := st.Refresh(context.Background()); err != nil {
		t.Fatalf("Refresh() error = %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	var wg sync.WaitGroup
	errs := make(chan string, 8)

	for range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for ctx.Err() == nil {
				snap, err := st.Snapshot()
				if err != nil {
					errs <- err.Error()
					return
				}
				want := "v" + string(rune('0'+snap.Version%10))
				for _, r := range slices.Concat(snap.Eligibility, snap.Matching) {
					if r.Name != want {
						errs <- "mixed snapshot: " + r.Name + " in " + want
						return
					}
				}
			}
		}()
	}

	for v := 2; v < 200; v++ {
		src.Set(ruleSet(v))
		if err := st.Refresh(context.Background()); err != nil {
			t.Fatalf("Refresh() error = %v", err)
		}
	}
	cancel()
	wg.Wait()
	close(errs)
	for e := range errs {
		t.Error(e)
	}
}
