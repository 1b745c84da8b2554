package source

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/amanaz3/customer-hub-flow-sub006/pkg/config"
	"github.com/amanaz3/customer-hub-flow-sub006/pkg/rules"
)

// Source loads the current rule set.
type Source interface {
	// Name identifies the source in logs, metrics and snapshots.
	Name() string

	// Load reads and validates the current rule document.
	Load(ctx context.Context) (*rules.RuleSet, error)
}

// Watcher is implemented by sources that can detect changes themselves.
// Watch blocks until ctx is cancelled, calling onChange after each change.
type Watcher interface {
	Watch(ctx context.Context, onChange func()) error
}

// New creates the source selected by cfg.Source.
func New(cfg *config.RulesConfig, logger *slog.Logger) (Source, error) {
	if logger == nil {
		logger = slog.Default()
	}
	switch cfg.Source {
	case "file":
		return NewFileSource(cfg.File, logger), nil
	case "sqlite":
		return OpenSQLiteSource(cfg.SQLite, logger)
	case "git":
		return NewGitSource(cfg.Git, logger)
	case "memory":
		return NewMemorySource(nil), nil
	default:
		return nil, fmt.Errorf("unknown rule source %q", cfg.Source)
	}
}
