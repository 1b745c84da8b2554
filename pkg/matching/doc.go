// Package matching scores how likely a source record (bill or invoice) is
// settled by a target record (payment or receipt).
//
// Each active matching rule scores the pair in [0, 1]; a rule with several
// criteria takes the minimum. The confidence is the weighted mean of the
// rules that found evidence:
//
//	confidence = Σ(score·weight) / Σ(weight)   over rules with score > 0
//
// Rules that score exactly 0 are left out of both sums, so one strong
// signal is not diluted by rules that had nothing to say (a missing
// reference, for instance). A pair with no contributing rule scores 0.
// Weights are 100 − priority; rules with a non-positive weight never
// contribute.
package matching
