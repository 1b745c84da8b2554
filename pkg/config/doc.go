// Package config loads hubflow configuration.
//
// Configuration is a YAML file with environment variable overrides:
//
//	cfg, err := config.LoadConfigWithEnvOverrides("hubflow.yaml")
//
// Overrides follow HUBFLOW_SECTION_FIELD, for example HUBFLOW_LEDGER_DSN or
// HUBFLOW_RECONCILIATION_AUTO_MATCH_ENABLED, and always win over the file.
// The CLI additionally loads a .env file before reading the environment.
//
// Loading order:
//
//  1. seed values (true-by-default booleans, the reconciliation schedule)
//  2. YAML file
//  3. defaults for every remaining zero value
//  4. environment overrides
//  5. validation (all field errors are reported together)
//
// # Example
//
//	server:
//	  listen_address: "0.0.0.0:8080"
//	rules:
//	  source: sqlite
//	  sqlite:
//	    path: data/rules.db
//	  notifications:
//	    backend: redis
//	ledger:
//	  driver: postgres
//	  dsn: "postgres://hubflow:secret@db:5432/hubflow?sslmode=require"
//	reconciliation:
//	  schedule: "*/10 * * * *"
//	  auto_approve_threshold: 0.97
//	  lock:
//	    enabled: true
package config
