package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/amanaz3/customer-hub-flow-sub006/pkg/config"
	"github.com/amanaz3/customer-hub-flow-sub006/pkg/ledger"

	"github.com/google/uuid"
	"github.com/huandu/go-sqlbuilder"
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"
	"github.com/shopspring/decimal"
)

const (
	settingMinConfidence = "min_confidence_score"
	settingAutoMatch     = "auto_match_enabled"
)

var recordColumns = []string{
	"id", "kind", "amount", "currency", "record_date", "due_date",
	"reference", "counterparty", "settled", "linked_record_id", "created_at",
}

type recordRow struct {
	ID             string          `db:"id"`
	Kind           string          `db:"kind"`
	Amount         decimal.Decimal `db:"amount"`
	Currency       string          `db:"currency"`
	Date           time.Time       `db:"record_date"`
	DueDate        sql.NullTime    `db:"due_date"`
	Reference      string          `db:"reference"`
	Counterparty   string          `db:"counterparty"`
	Settled        bool            `db:"settled"`
	LinkedRecordID string          `db:"linked_record_id"`
	CreatedAt      time.Time       `db:"created_at"`
}

func (r recordRow) record() ledger.Record {
	out := ledger.Record{
		ID:             r.ID,
		Kind:           ledger.Kind(r.Kind),
		Amount:         r.Amount,
		Currency:       r.Currency,
		Date:           r.Date.UTC(),
		Reference:      r.Reference,
		Counterparty:   r.Counterparty,
		Settled:        r.Settled,
		LinkedRecordID: r.LinkedRecordID,
		CreatedAt:      r.CreatedAt.UTC(),
	}
	if r.DueDate.Valid {
		due := r.DueDate.Time.UTC()
		out.DueDate = &due
	}
	return out
}

type suggestionRow struct {
	ID         string    `db:"id"`
	SourceID   string    `db:"source_id"`
	TargetID   string    `db:"target_id"`
	Confidence float64   `db:"confidence"`
	Reasons    string    `db:"reasons"`
	Status     string    `db:"status"`
	CreatedAt  time.Time `db:"created_at"`
}

type flagRow struct {
	ID              string    `db:"id"`
	Type            string    `db:"flag_type"`
	Severity        string    `db:"severity"`
	EntityID        string    `db:"entity_id"`
	RelatedEntityID string    `db:"related_entity_id"`
	Message         string    `db:"message"`
	CreatedAt       time.Time `db:"created_at"`
}

// SQLStore is a ledger.Store on a SQL database.
type SQLStore struct {
	db     *sqlx.DB
	driver string
	flavor sqlbuilder.Flavor
	logger *slog.Logger
	now    func() time.Time
}

// OpenSQL connects to the database in cfg and, when cfg.AutoMigrate is
// set, creates the schema.
func OpenSQL(ctx context.Context, cfg config.LedgerConfig, logger *slog.Logger) (*SQLStore, error) {
	if logger == nil {
		logger = slog.Default()
	}

	var (
		flavor sqlbuilder.Flavor
		schema []string
	)
	switch cfg.Driver {
	case "sqlite3":
		flavor, schema = sqlbuilder.SQLite, sqliteSchema
	case "postgres":
		flavor, schema = sqlbuilder.PostgreSQL, postgresSchema
	default:
		return nil, fmt.Errorf("unsupported SQL driver %q", cfg.Driver)
	}

	db, err := sqlx.Open(cfg.Driver, cfg.DSN)
	if err != nil {
		return nil, &ledger.StorageError{Backend: cfg.Driver, Op: "open", Cause: err}
	}

	// SQLite allows one writer at a time.
	if cfg.Driver == "sqlite3" {
		db.SetMaxOpenConns(1)
	} else {
		db.SetMaxOpenConns(cfg.MaxOpenConns)
		db.SetMaxIdleConns(cfg.MaxIdleConns)
	}
	db.SetConnMaxLifetime(cfg.ConnMaxLifetime)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, &ledger.StorageError{Backend: cfg.Driver, Op: "ping", Cause: err}
	}

	s := &SQLStore{
		db:     db,
		driver: cfg.Driver,
		flavor: flavor,
		logger: logger.With("component", "ledger", "driver", cfg.Driver),
		now:    func() time.Time { return time.Now().UTC() },
	}

	if cfg.AutoMigrate {
		for _, stmt := range schema {
			if _, err := db.ExecContext(ctx, stmt); err != nil {
				db.Close()
				return nil, s.fail("migrate", err)
			}
		}
		s.logger.Debug("ledger schema ready")
	}
	return s, nil
}

func (s *SQLStore) fail(op string, err error) error {
	return &ledger.StorageError{Backend: s.driver, Op: op, Cause: err}
}

func (s *SQLStore) SaveRecord(ctx context.Context, r *ledger.Record) error {
	if !r.Kind.Valid() {
		return fmt.Errorf("record %q: unknown kind %q", r.ID, r.Kind)
	}
	if r.ID == "" {
		r.ID = uuid.NewString()
	}
	if r.CreatedAt.IsZero() {
		r.CreatedAt = s.now()
	}

	var due sql.NullTime
	if r.DueDate != nil {
		due = sql.NullTime{Time: r.DueDate.UTC(), Valid: true}
	}

	query := s.db.Rebind(`INSERT INTO ledger_records
		(id, kind, amount, currency, record_date, due_date, reference, counterparty, settled, linked_record_id, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (id) DO UPDATE SET
			kind = excluded.kind,
			amount = excluded.amount,
			currency = excluded.currency,
			record_date = excluded.record_date,
			due_date = excluded.due_date,
			reference = excluded.reference,
			counterparty = excluded.counterparty,
			settled = excluded.settled,
			linked_record_id = excluded.linked_record_id`)

	_, err := s.db.ExecContext(ctx, query,
		r.ID, string(r.Kind), r.Amount, r.Currency, r.Date.UTC(), due,
		r.Reference, r.Counterparty, r.Settled, r.LinkedRecordID, r.CreatedAt.UTC())
	if err != nil {
		return s.fail("save_record", err)
	}
	return nil
}

func (s *SQLStore) GetRecord(ctx context.Context, id string) (*ledger.Record, error) {
	sb := s.flavor.NewSelectBuilder()
	sb.Select(recordColumns...)
	sb.From("ledger_records")
	sb.Where(sb.Equal("id", id))

	query, args := sb.Build()
	var row recordRow
	if err := s.db.GetContext(ctx, &row, query, args...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("record %q: %w", id, ledger.ErrNotFound)
		}
		return nil, s.fail("get_record", err)
	}
	r := row.record()
	return &r, nil
}

func (s *SQLStore) ListOpenSources(ctx context.Context, kind ledger.Kind) ([]ledger.Record, error) {
	sb := s.flavor.NewSelectBuilder()
	sb.Select(recordColumns...)
	sb.From("ledger_records")
	sb.Where(
		sb.Equal("kind", string(kind)),
		sb.Equal("settled", false),
	)
	sb.OrderBy("record_date", "id")
	return s.listRecords(ctx, "list_open_sources", sb)
}

func (s *SQLStore) ListOpenTargets(ctx context.Context, kind ledger.Kind) ([]ledger.Record, error) {
	sb := s.flavor.NewSelectBuilder()
	sb.Select(recordColumns...)
	sb.From("ledger_records")
	sb.Where(
		sb.Equal("kind", string(kind)),
		sb.Equal("linked_record_id", ""),
	)
	sb.OrderBy("record_date", "id")
	return s.listRecords(ctx, "list_open_targets", sb)
}

func (s *SQLStore) listRecords(ctx context.Context, op string, sb *sqlbuilder.SelectBuilder) ([]ledger.Record, error) {
	query, args := sb.Build()
	var rows []recordRow
	if err := s.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, s.fail(op, err)
	}
	out := make([]ledger.Record, len(rows))
	for i, row := range rows {
		out[i] = row.record()
	}
	return out, nil
}

func (s *SQLStore) SaveSuggestion(ctx context.Context, sg *ledger.Suggestion) (bool, error) {
	s.fillSuggestion(sg)
	reasons, err := json.Marshal(sg.Reasons)
	if err != nil {
		return false, fmt.Errorf("encode reasons: %w", err)
	}

	insert := s.db.Rebind(`INSERT INTO reconciliation_suggestions
		(id, source_id, target_id, confidence, reasons, status, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (source_id, target_id) DO NOTHING`)
	res, err := s.db.ExecContext(ctx, insert,
		sg.ID, sg.SourceID, sg.TargetID, sg.Confidence, string(reasons), string(sg.Status), sg.CreatedAt)
	if err != nil {
		return false, s.fail("save_suggestion", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 1 {
		return true, nil
	}

	ub := s.flavor.NewUpdateBuilder()
	ub.Update("reconciliation_suggestions")
	ub.Set(
		ub.Assign("confidence", sg.Confidence),
		ub.Assign("reasons", string(reasons)),
	)
	ub.Where(
		ub.Equal("source_id", sg.SourceID),
		ub.Equal("target_id", sg.TargetID),
		ub.Equal("status", string(ledger.SuggestionPending)),
	)
	query, args := ub.Build()
	if _, err := s.db.ExecContext(ctx, query, args...); err != nil {
		return false, s.fail("save_suggestion", err)
	}

	sb := s.flavor.NewSelectBuilder()
	sb.Select("id", "status", "created_at")
	sb.From("reconciliation_suggestions")
	sb.Where(
		sb.Equal("source_id", sg.SourceID),
		sb.Equal("target_id", sg.TargetID),
	)
	query, args = sb.Build()
	var existing struct {
		ID        string    `db:"id"`
		Status    string    `db:"status"`
		CreatedAt time.Time `db:"created_at"`
	}
	if err := s.db.GetContext(ctx, &existing, query, args...); err != nil {
		return false, s.fail("save_suggestion", err)
	}
	sg.ID = existing.ID
	sg.Status = ledger.SuggestionStatus(existing.Status)
	sg.CreatedAt = existing.CreatedAt.UTC()
	return false, nil
}

func (s *SQLStore) fillSuggestion(sg *ledger.Suggestion) {
	if sg.ID == "" {
		sg.ID = uuid.NewString()
	}
	if sg.Status == "" {
		sg.Status = ledger.SuggestionPending
	}
	if sg.CreatedAt.IsZero() {
		sg.CreatedAt = s.now()
	}
	if sg.Reasons == nil {
		sg.Reasons = []ledger.Reason{}
	}
}

func (s *SQLStore) ListSuggestions(ctx context.Context) ([]ledger.Suggestion, error) {
	sb := s.flavor.NewSelectBuilder()
	sb.Select("id", "source_id", "target_id", "confidence", "reasons", "status", "created_at")
	sb.From("reconciliation_suggestions")
	sb.OrderBy("created_at DESC", "id")

	query, args := sb.Build()
	var rows []suggestionRow
	if err := s.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, s.fail("list_suggestions", err)
	}

	out := make([]ledger.Suggestion, 0, len(rows))
	for _, row := range rows {
		sg := ledger.Suggestion{
			ID:         row.ID,
			SourceID:   row.SourceID,
			TargetID:   row.TargetID,
			Confidence: row.Confidence,
			Status:     ledger.SuggestionStatus(row.Status),
			CreatedAt:  row.CreatedAt.UTC(),
		}
		if err := json.Unmarshal([]byte(row.Reasons), &sg.Reasons); err != nil {
			return nil, s.fail("list_suggestions", fmt.Errorf("decode reasons of %s: %w", row.ID, err))
		}
		out = append(out, sg)
	}
	return out, nil
}

// ApplyAutoMatch claims both records with conditional updates inside one
// transaction. Zero affected rows on either claim rolls everything back.
func (s *SQLStore) ApplyAutoMatch(ctx context.Context, sg *ledger.Suggestion) (err error) {
	s.fillSuggestion(sg)
	reasons, err := json.Marshal(sg.Reasons)
	if err != nil {
		return fmt.Errorf("encode reasons: %w", err)
	}

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return s.fail("begin", err)
	}
	defer func() {
		if err != nil {
			if rbErr := tx.Rollback(); rbErr != nil && !errors.Is(rbErr, sql.ErrTxDone) {
				s.logger.Warn("rollback failed", "error", rbErr)
			}
		}
	}()

	res, err := tx.ExecContext(ctx,
		tx.Rebind(`UPDATE ledger_records SET settled = ?, linked_record_id = ? WHERE id = ? AND settled = ?`),
		true, sg.TargetID, sg.SourceID, false)
	if err != nil {
		return s.fail("claim_source", err)
	}
	if err := s.claimed(ctx, tx, res, sg.SourceID, "source", ledger.ErrAlreadySettled); err != nil {
		return err
	}

	res, err = tx.ExecContext(ctx,
		tx.Rebind(`UPDATE ledger_records SET linked_record_id = ? WHERE id = ? AND linked_record_id = ''`),
		sg.SourceID, sg.TargetID)
	if err != nil {
		return s.fail("claim_target", err)
	}
	if err := s.claimed(ctx, tx, res, sg.TargetID, "target", ledger.ErrAlreadyLinked); err != nil {
		return err
	}

	_, err = tx.ExecContext(ctx,
		tx.Rebind(`INSERT INTO reconciliation_suggestions
			(id, source_id, target_id, confidence, reasons, status, created_at)
			VALUES (?, ?, ?, ?, ?, ?, ?)
			ON CONFLICT (source_id, target_id) DO UPDATE SET status = excluded.status`),
		sg.ID, sg.SourceID, sg.TargetID, sg.Confidence, string(reasons),
		string(ledger.SuggestionAutoMatched), sg.CreatedAt)
	if err != nil {
		return s.fail("mark_suggestion", err)
	}

	if err = tx.Commit(); err != nil {
		return s.fail("commit", err)
	}
	sg.Status = ledger.SuggestionAutoMatched
	return nil
}

// claimed turns zero affected rows into a conflict or a not found error.
func (s *SQLStore) claimed(ctx context.Context, tx *sqlx.Tx, res sql.Result, id, side string, conflict error) error {
	n, err := res.RowsAffected()
	if err != nil {
		return s.fail("claim_"+side, err)
	}
	if n == 1 {
		return nil
	}

	var count int
	if err := tx.GetContext(ctx, &count, tx.Rebind(`SELECT COUNT(*) FROM ledger_records WHERE id = ?`), id); err != nil {
		return s.fail("claim_"+side, err)
	}
	if count == 0 {
		return fmt.Errorf("%s %q: %w", side, id, ledger.ErrNotFound)
	}
	return fmt.Errorf("%s %q: %w", side, id, conflict)
}

func (s *SQLStore) RiskFlagExists(ctx context.Context, typ ledger.FlagType, entityID, relatedEntityID string) (bool, error) {
	sb := s.flavor.NewSelectBuilder()
	sb.Select("COUNT(*)")
	sb.From("risk_flags")
	sb.Where(
		sb.Equal("flag_type", string(typ)),
		sb.Equal("entity_id", entityID),
		sb.Equal("related_entity_id", relatedEntityID),
	)

	query, args := sb.Build()
	var count int
	if err := s.db.GetContext(ctx, &count, query, args...); err != nil {
		return false, s.fail("risk_flag_exists", err)
	}
	return count > 0, nil
}

func (s *SQLStore) CreateRiskFlag(ctx context.Context, f *ledger.RiskFlag) (bool, error) {
	if f.ID == "" {
		f.ID = uuid.NewString()
	}
	if f.CreatedAt.IsZero() {
		f.CreatedAt = s.now()
	}

	query := s.db.Rebind(`INSERT INTO risk_flags
		(id, flag_type, severity, entity_id, related_entity_id, message, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (flag_type, entity_id, related_entity_id) DO NOTHING`)
	res, err := s.db.ExecContext(ctx, query,
		f.ID, string(f.Type), string(f.Severity), f.EntityID, f.RelatedEntityID, f.Message, f.CreatedAt)
	if err != nil {
		return false, s.fail("create_risk_flag", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, s.fail("create_risk_flag", err)
	}
	return n == 1, nil
}

func (s *SQLStore) ListRiskFlags(ctx context.Context) ([]ledger.RiskFlag, error) {
	sb := s.flavor.NewSelectBuilder()
	sb.Select("id", "flag_type", "severity", "entity_id", "related_entity_id", "message", "created_at")
	sb.From("risk_flags")
	sb.OrderBy("created_at DESC", "id")

	query, args := sb.Build()
	var rows []flagRow
	if err := s.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, s.fail("list_risk_flags", err)
	}

	out := make([]ledger.RiskFlag, len(rows))
	for i, row := range rows {
		out[i] = ledger.RiskFlag{
			ID:              row.ID,
			Type:            ledger.FlagType(row.Type),
			Severity:        ledger.Severity(row.Severity),
			EntityID:        row.EntityID,
			RelatedEntityID: row.RelatedEntityID,
			Message:         row.Message,
			CreatedAt:       row.CreatedAt.UTC(),
		}
	}
	return out, nil
}

func (s *SQLStore) Settings(ctx context.Context) (ledger.StoredSettings, error) {
	var rows []struct {
		Key   string `db:"key"`
		Value string `db:"value"`
	}
	if err := s.db.SelectContext(ctx, &rows, `SELECT key, value FROM reconciliation_settings`); err != nil {
		return ledger.StoredSettings{}, s.fail("settings", err)
	}

	var out ledger.StoredSettings
	for _, row := range rows {
		switch row.Key {
		case settingMinConfidence:
			v, err := strconv.ParseFloat(row.Value, 64)
			if err != nil {
				s.logger.Warn("ignoring malformed setting", "key", row.Key, "value", row.Value)
				continue
			}
			out.MinConfidenceScore = &v
		case settingAutoMatch:
			v, err := strconv.ParseBool(row.Value)
			if err != nil {
				s.logger.Warn("ignoring malformed setting", "key", row.Key, "value", row.Value)
				continue
			}
			out.AutoMatchEnabled = &v
		}
	}
	return out, nil
}

func (s *SQLStore) SaveSettings(ctx context.Context, st ledger.Settings) (err error) {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return s.fail("begin", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	upsert := tx.Rebind(`INSERT INTO reconciliation_settings (key, value) VALUES (?, ?)
		ON CONFLICT (key) DO UPDATE SET value = excluded.value`)
	values := map[string]string{
		settingMinConfidence: strconv.FormatFloat(st.MinConfidenceScore, 'f', -1, 64),
		settingAutoMatch:     strconv.FormatBool(st.AutoMatchEnabled),
	}
	for key, value := range values {
		if _, err = tx.ExecContext(ctx, upsert, key, value); err != nil {
			return s.fail("save_settings", err)
		}
	}
	if err = tx.Commit(); err != nil {
		return s.fail("commit", err)
	}
	return nil
}

func (s *SQLStore) Ping(ctx context.Context) error {
	if err := s.db.PingContext(ctx); err != nil {
		return s.fail("ping", err)
	}
	return nil
}

func (s *SQLStore) Close() error {
	return s.db.Close()
}

var _ ledger.Store = (*SQLStore)(nil)
