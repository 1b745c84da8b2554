// Package eligibility folds eligibility and pricing rules into a Result for
// one applicant context.
//
// Rules are visited in precedence order. A rule fires when all of its
// conditions hold, and then every one of its actions is applied in order.
//
// A block action does not stop evaluation. Later rules still fire so that
// their fees, warnings and required documents are shown alongside the
// block; callers gate submission on Result.Blocked. Do not change this into
// an early return.
//
// When no rule snapshot is available the engine returns the neutral result
// (multiplier 1, nothing else) with Degraded set, instead of an error.
package eligibility
