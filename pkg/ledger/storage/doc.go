// Package storage implements ledger.Store.
//
// MemoryStore keeps everything in maps and is used by tests and the
// "memory" driver. SQLStore runs on sqlx with the mattn SQLite driver
// ("sqlite3") or lib/pq ("postgres"). Both enforce the claim semantics of
// ledger.Store.ApplyAutoMatch: a source is only settled while still
// unsettled and a target is only linked while still unlinked.
package storage
