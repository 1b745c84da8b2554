package source

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/amanaz3/customer-hub-flow-sub006/pkg/config"
	"github.com/amanaz3/customer-hub-flow-sub006/pkg/rules"

	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite" // SQLite driver
)

// ErrNoActiveVersion is returned when the rule table has no active row.
var ErrNoActiveVersion = errors.New("no active rule version")

const rulesSchema = `
CREATE TABLE IF NOT EXISTS rule_config_versions (
	version      INTEGER PRIMARY KEY AUTOINCREMENT,
	format       TEXT    NOT NULL,
	document     TEXT    NOT NULL,
	checksum     TEXT    NOT NULL,
	published_by TEXT    NOT NULL DEFAULT '',
	published_at INTEGER NOT NULL,
	is_active    INTEGER NOT NULL DEFAULT 0
);

CREATE INDEX IF NOT EXISTS idx_rule_config_versions_active
	ON rule_config_versions(is_active, version);
`

// VersionInfo describes one stored rule document.
type VersionInfo struct {
	Version     int64     `db:"version" json:"version"`
	Format      string    `db:"format" json:"format"`
	Checksum    string    `db:"checksum" json:"checksum"`
	PublishedBy string    `db:"published_by" json:"publishedBy"`
	PublishedAt time.Time `db:"-" json:"publishedAt"`
	Active      bool      `db:"is_active" json:"active"`

	PublishedUnix int64 `db:"published_at" json:"-"`
}

type versionRow struct {
	VersionInfo
	Document string `db:"document"`
}

// SQLiteSource reads the latest active version of the rule document from a
// SQLite table. Each publish appends a row and makes it the only active
// one; older rows stay for audit and rollback.
type SQLiteSource struct {
	db           *sqlx.DB
	pollInterval time.Duration
	logger       *slog.Logger
}

// OpenSQLiteSource opens (and if needed creates) the rule database.
func OpenSQLiteSource(cfg config.SQLiteRulesConfig, logger *slog.Logger) (*SQLiteSource, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.Path == "" {
		return nil, errors.New("sqlite rule source: path cannot be empty")
	}
	if dir := filepath.Dir(cfg.Path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create rule database directory: %w", err)
		}
	}

	busy := cfg.BusyTimeout
	if busy <= 0 {
		busy = config.DefaultRulesSQLiteBusy
	}
	dsn := fmt.Sprintf("%s?_pragma=busy_timeout(%d)&_pragma=journal_mode(WAL)", cfg.Path, busy.Milliseconds())

	db, err := sqlx.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open rule database: %w", err)
	}
	db.SetMaxOpenConns(1) // SQLite only supports a single writer

	if _, err := db.Exec(rulesSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize rule schema: %w", err)
	}

	return &SQLiteSource{db: db, pollInterval: cfg.PollInterval, logger: logger}, nil
}

// Name returns "sqlite".
func (s *SQLiteSource) Name() string { return "sqlite" }

// Close closes the database.
func (s *SQLiteSource) Close() error {
	return s.db.Close()
}

// Ping checks the database connection.
func (s *SQLiteSource) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Load decodes the latest active document. The row version replaces the
// version field of the document.
func (s *SQLiteSource) Load(ctx context.Context) (*rules.RuleSet, error) {
	var row versionRow
	err := s.db.GetContext(ctx, &row, `
		SELECT version, format, document, checksum, published_by, published_at, is_active
		FROM rule_config_versions
		WHERE is_active = 1
		ORDER BY version DESC
		LIMIT 1`)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNoActiveVersion
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query active rule version: %w", err)
	}

	set, err := rules.Decode([]byte(row.Document), rules.Format(row.Format))
	if err != nil {
		return nil, fmt.Errorf("rule version %d: %w", row.Version, err)
	}
	set.Version = int(row.Version)
	return set, nil
}

// Publish validates data and stores it as the new active version. Invalid
// documents are rejected before anything is written.
func (s *SQLiteSource) Publish(ctx context.Context, data []byte, format rules.Format, author string) (int64, error) {
	if _, err := rules.Decode(data, format); err != nil {
		return 0, err
	}
	sum := sha256.Sum256(data)

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `UPDATE rule_config_versions SET is_active = 0 WHERE is_active = 1`); err != nil {
		return 0, fmt.Errorf("failed to deactivate rule versions: %w", err)
	}
	res, err := tx.ExecContext(ctx, `
		INSERT INTO rule_config_versions (format, document, checksum, published_by, published_at, is_active)
		VALUES (?, ?, ?, ?, ?, 1)`,
		string(format), string(data), hex.EncodeToString(sum[:]), author, time.Now().Unix())
	if err != nil {
		return 0, fmt.Errorf("failed to insert rule version: %w", err)
	}
	version, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to read rule version: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit rule version: %w", err)
	}

	s.logger.Info("published rule version", "version", version, "published_by", author)
	return version, nil
}

// Activate makes an existing version the only active one.
func (s *SQLiteSource) Activate(ctx context.Context, version int64) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	var n int
	if err := tx.GetContext(ctx, &n, `SELECT COUNT(*) FROM rule_config_versions WHERE version = ?`, version); err != nil {
		return fmt.Errorf("failed to check rule version %d: %w", version, err)
	}
	if n == 0 {
		return fmt.Errorf("rule version %d does not exist", version)
	}
	if _, err := tx.ExecContext(ctx, `UPDATE rule_config_versions SET is_active = (version = ?)`, version); err != nil {
		return fmt.Errorf("failed to activate rule version %d: %w", version, err)
	}
	return tx.Commit()
}

// Versions lists stored versions, newest first.
func (s *SQLiteSource) Versions(ctx context.Context, limit int) ([]VersionInfo, error) {
	if limit <= 0 {
		limit = 20
	}
	var out []VersionInfo
	err := s.db.SelectContext(ctx, &out, `
		SELECT version, format, checksum, published_by, published_at, is_active
		FROM rule_config_versions
		ORDER BY version DESC
		LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list rule versions: %w", err)
	}
	for i := range out {
		out[i].PublishedAt = time.Unix(out[i].PublishedUnix, 0).UTC()
	}
	return out, nil
}

func (s *SQLiteSource) activeVersion(ctx context.Context) (int64, error) {
	var v sql.NullInt64
	if err := s.db.GetContext(ctx, &v, `SELECT MAX(version) FROM rule_config_versions WHERE is_active = 1`); err != nil {
		return 0, err
	}
	return v.Int64, nil
}

// Watch polls the active version. With a zero poll interval it blocks
// until ctx is cancelled and relies on push notifications instead.
func (s *SQLiteSource) Watch(ctx context.Context, onChange func()) error {
	if s.pollInterval <= 0 {
		<-ctx.Done()
		return nil
	}

	last, err := s.activeVersion(ctx)
	if err != nil {
		s.logger.Warn("failed to read active rule version", "error", err)
	}

	ticker := time.NewTicker(s.pollInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			v, err := s.activeVersion(ctx)
			if err != nil {
				s.logger.Warn("failed to read active rule version", "error", err)
				continue
			}
			if v != last {
				s.logger.Info("active rule version changed", "from", last, "to", v)
				last = v
				onChange()
			}
		}
	}
}
