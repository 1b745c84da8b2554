package source

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/amanaz3/customer-hub-flow-sub006/pkg/config"
	"github.com/amanaz3/customer-hub-flow-sub006/pkg/rules"
)

const docV1 = `
version: 1
rules:
  - id: freezone-uplift
    name: Freezone uplift
    type: pricing
    priority: 10
    conditions:
      - {field: jurisdiction_type, operator: equals, value: freezone}
    actions:
      - {type: multiply_price, value: 1.2}
`

const docV2 = `
version: 2
rules:
  - id: freezone-uplift
    name: Freezone uplift
    type: pricing
    priority: 10
    conditions:
      - {field: jurisdiction_type, operator: equals, value: freezone}
    actions:
      - {type: multiply_price, value: 1.3}
  - id: high-risk-fee
    name: High risk fee
    type: pricing
    priority: 20
    conditions:
      - {field: risk_level, operator: equals, value: high}
    actions:
      - {type: add_fee, value: 500}
`

const invalidDoc = `
version: 3
rules:
  - id: broken
    type: pricing
    actions:
      - {type: teleport}
`

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("failed to write %s: %v", path, err)
	}
}

func TestFileSource_Load(t *testing.T) {
	path := filepath.Join(t.TempDir(), "rules.yaml")
	writeFile(t, path, docV1)

	src := NewFileSource(config.FileRulesConfig{Path: path}, testLogger())
	set, err := src.Load(context.Background())
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if set.Version != 1 || len(set.Rules) != 1 {
		t.Errorf("Load() = version %d, %d rules", set.Version, len(set.Rules))
	}

	writeFile(t, path, invalidDoc)
	_, err = src.Load(context.Background())
	var verr *rules.ValidationError
	if !errors.As(err, &verr) {
		t.Errorf("Load() error = %v, want ValidationError", err)
	}
}

func TestFileSource_MissingFile(t *testing.T) {
	src := NewFileSource(config.FileRulesConfig{Path: filepath.Join(t.TempDir(), "nope.yaml")}, testLogger())
	if _, err := src.Load(context.Background()); !errors.Is(err, os.ErrNotExist) {
		t.Errorf("Load() error = %v, want os.ErrNotExist", err)
	}
}

func TestFileSource_Watch(t *testing.T) {
	path := filepath.Join(t.TempDir(), "rules.yaml")
	writeFile(t, path, docV1)

	src := NewFileSource(config.FileRulesConfig{
		Path:             path,
		Watch:            true,
		DebounceInterval: 20 * time.Millisecond,
	}, testLogger())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	changed := make(chan struct{}, 1)
	done := make(chan error, 1)
	go func() {
		done <- src.Watch(ctx, func() {
			select {
			case changed <- struct{}{}:
			default:
			}
		})
	}()

	// Give the watcher time to register before writing.
	time.Sleep(100 * time.Millisecond)
	writeFile(t, path, docV2)

	select {
	case <-changed:
	case <-time.After(5 * time.Second):
		t.Fatal("no change notification after rewriting the rule file")
	}

	cancel()
	if err := <-done; err != nil {
		t.Errorf("Watch() error = %v", err)
	}
}

func TestDebouncer(t *testing.T) {
	d := NewDebouncer(30 * time.Millisecond)
	var calls atomic.Int32
	for range 5 {
		d.Trigger(func() { calls.Add(1) })
	}
	time.Sleep(150 * time.Millisecond)
	if got := calls.Load(); got != 1 {
		t.Errorf("callback ran %d times, want 1", got)
	}

	d.Stop()
	d.Trigger(func() { calls.Add(1) })
	time.Sleep(60 * time.Millisecond)
	if got := calls.Load(); got != 1 {
		t.Errorf("callback ran after Stop")
	}
}

func TestMemorySource(t *testing.T) {
	src := NewMemorySource(nil)
	set, err := src.Load(context.Background())
	if err != nil || len(set.Rules) != 0 {
		t.Fatalf("Load() = %v, %v", set, err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	changed := make(chan struct{}, 1)
	go src.Watch(ctx, func() { changed <- struct{}{} })

	src.Set(&rules.RuleSet{Version: 4, Rules: []rules.Rule{{ID: "a", Active: true}}})
	select {
	case <-changed:
	case <-time.After(time.Second):
		t.Fatal("Set did not notify the watcher")
	}

	src.Fail(errors.New("unavailable"))
	if _, err := src.Load(context.Background()); err == nil {
		t.Error("Load() after Fail should error")
	}
}

func TestNew(t *testing.T) {
	cfg := config.NewDefault().Rules
	cfg.Source = "memory"
	src, err := New(&cfg, nil)
	if err != nil || src.Name() != "memory" {
		t.Fatalf("New(memory) = %v, %v", src, err)
	}

	cfg.Source = "s3"
	if _, err := New(&cfg, nil); err == nil {
		t.Error("New(s3) should fail")
	}
}
