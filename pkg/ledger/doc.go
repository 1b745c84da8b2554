// Package ledger defines the financial records that reconciliation works
// on and the Store that persists them.
//
// Source records (bills and invoices) are settled by linking them to a
// target record (a payment or a receipt). Reconciliation only ever claims
// records through Store.ApplyAutoMatch, which links both sides in one
// transaction with conditional updates, so a record is never linked twice
// even when runs overlap.
//
// Implementations live in the storage subpackage.
package ledger
