// Package reconciliation runs the matching batch job.
//
// A run lists the open source records (bills, invoices) and open target
// records (payments, receipts) of each kind pair, scores every pair with
// the active matching rules and persists a pending suggestion for each pair
// at or above the minimum confidence. With auto-match enabled, the best
// candidates at or above the auto-approve threshold are tried in order of
// confidence; the ledger store claims both records in one transaction, so a
// record is linked at most once no matter how many runs overlap. After the
// scan, the RiskFlagger raises unreconciled, overdue and duplicate payment
// flags.
//
// The scan is bounded by a duration and a pair count. A truncated run keeps
// everything it already committed and reports Truncated.
package reconciliation
