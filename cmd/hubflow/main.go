// hubflow evaluates eligibility and pricing rules and reconciles ledger
// records.
//
// Usage:
//
//	# Start the API server with scheduled reconciliation
//	hubflow serve --config hubflow.yaml
//
//	# Evaluate one context against the configured rules
//	hubflow evaluate --set risk_level=high --set jurisdiction_type=freezone
//
//	# Run a reconciliation job once
//	hubflow reconcile --type payable
//
//	# Validate a rule document, then publish it as the active SQLite version
//	hubflow rules lint --file rules.yaml
//	hubflow rules publish --file rules.yaml --author ops
//
//	# Seed ledger records
//	hubflow ledger import --file records.yaml
package main

import "os"

func main() {
	os.Exit(Execute())
}
