package storage

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/amanaz3/customer-hub-flow-sub006/pkg/config"
	"github.com/amanaz3/customer-hub-flow-sub006/pkg/ledger"
)

// New opens the ledger store selected by cfg.Driver.
func New(ctx context.Context, cfg config.LedgerConfig, logger *slog.Logger) (ledger.Store, error) {
	switch cfg.Driver {
	case "memory":
		return NewMemoryStore(), nil
	case "sqlite3", "postgres":
		return OpenSQL(ctx, cfg, logger)
	default:
		return nil, fmt.Errorf("unknown ledger driver %q", cfg.Driver)
	}
}
