package storage

var sqliteSchema = []string{
	`CREATE TABLE IF NOT EXISTS ledger_records (
		id               TEXT PRIMARY KEY,
		kind             TEXT NOT NULL,
		amount           TEXT NOT NULL,
		currency         TEXT NOT NULL DEFAULT '',
		record_date      TIMESTAMP NOT NULL,
		due_date         TIMESTAMP,
		reference        TEXT NOT NULL DEFAULT '',
		counterparty     TEXT NOT NULL DEFAULT '',
		settled          BOOLEAN NOT NULL DEFAULT 0,
		linked_record_id TEXT NOT NULL DEFAULT '',
		created_at       TIMESTAMP NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_ledger_records_open ON ledger_records (kind, settled, linked_record_id)`,
	`CREATE TABLE IF NOT EXISTS reconciliation_suggestions (
		id         TEXT PRIMARY KEY,
		source_id  TEXT NOT NULL,
		target_id  TEXT NOT NULL,
		confidence REAL NOT NULL,
		reasons    TEXT NOT NULL,
		status     TEXT NOT NULL,
		created_at TIMESTAMP NOT NULL,
		UNIQUE (source_id, target_id)
	)`,
	`CREATE TABLE IF NOT EXISTS risk_flags (
		id                TEXT PRIMARY KEY,
		flag_type         TEXT NOT NULL,
		severity          TEXT NOT NULL,
		entity_id         TEXT NOT NULL,
		related_entity_id TEXT NOT NULL DEFAULT '',
		message           TEXT NOT NULL,
		created_at        TIMESTAMP NOT NULL,
		UNIQUE (flag_type, entity_id, related_entity_id)
	)`,
	`CREATE TABLE IF NOT EXISTS reconciliation_settings (
		key   TEXT PRIMARY KEY,
		value TEXT NOT NULL
	)`,
}

var postgresSchema = []string{
	`CREATE TABLE IF NOT EXISTS ledger_records (
		id               TEXT PRIMARY KEY,
		kind             TEXT NOT NULL,
		amount           NUMERIC(20, 4) NOT NULL,
		currency         TEXT NOT NULL DEFAULT '',
		record_date      TIMESTAMPTZ NOT NULL,
		due_date         TIMESTAMPTZ,
		reference        TEXT NOT NULL DEFAULT '',
		counterparty     TEXT NOT NULL DEFAULT '',
		settled          BOOLEAN NOT NULL DEFAULT FALSE,
		linked_record_id TEXT NOT NULL DEFAULT '',
		created_at       TIMESTAMPTZ NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_ledger_records_open ON ledger_records (kind, settled, linked_record_id)`,
	`CREATE TABLE IF NOT EXISTS reconciliation_suggestions (
		id         TEXT PRIMARY KEY,
		source_id  TEXT NOT NULL,
		target_id  TEXT NOT NULL,
		confidence DOUBLE PRECISION NOT NULL,
		reasons    JSONB NOT NULL,
		status     TEXT NOT NULL,
		created_at TIMESTAMPTZ NOT NULL,
		UNIQUE (source_id, target_id)
	)`,
	`CREATE TABLE IF NOT EXISTS risk_flags (
		id                TEXT PRIMARY KEY,
		flag_type         TEXT NOT NULL,
		severity          TEXT NOT NULL,
		entity_id         TEXT NOT NULL,
		related_entity_id TEXT NOT NULL DEFAULT '',
		message           TEXT NOT NULL,
		created_at        TIMESTAMPTZ NOT NULL,
		UNIQUE (flag_type, entity_id, related_entity_id)
	)`,
	`CREATE TABLE IF NOT EXISTS reconciliation_settings (
		key   TEXT PRIMARY KEY,
		value TEXT NOT NULL
	)`,
}
