// Package server exposes hubflow over HTTP.
//
// # Routes
//
//   - POST /v1/eligibility/evaluate - evaluate a context map against the active rules
//   - POST /v1/reconciliation/runs - run a reconciliation job synchronously
//   - GET /v1/rules - summary of the active rule snapshot
//   - POST /v1/rules/invalidate - drop the snapshot and reload from the source
//   - GET /health - liveness probe (always 200)
//   - GET /ready - readiness probe (rules, ledger and other registered checks)
//   - GET /version - build information
//   - GET /metrics - Prometheus exposition (path configurable)
//
// # Middleware Chain
//
// Requests pass through the following middleware (innermost to outermost):
//  1. Body limit: caps request bodies at server.max_body_bytes
//  2. Tracing: W3C trace context extraction and a server span
//  3. RequestID: reuses X-Request-ID or generates one
//  4. Logging: one structured line per request
//  5. Recovery: converts panics into a 500 JSON error
//
// # Errors
//
// Every API error is a JSON object:
//
//	{"error": {"code": "run_in_progress", "message": "reconciliation run already in progress"}}
//
// The server does not install signal handlers. Cancel the context passed to
// Start, or call Shutdown, to stop it.
package server
