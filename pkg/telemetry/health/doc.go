// Package health implements liveness and readiness probes.
//
// Liveness (/health) only proves the process is serving HTTP. Readiness
// (/ready) runs every registered check concurrently, each bounded by the
// configured timeout, and answers 503 when any of them fails. hubflow
// registers checks for the rule snapshot, the ledger database and, when
// configured, Redis.
package health
