// Package rules defines the shared rule model used by the eligibility engine
// and the reconciliation matcher, and the pure condition evaluator.
//
// A rule is a named, prioritized set of conditions gated on an evaluation
// context. Eligibility and pricing rules carry actions that accumulate into a
// result; matching rules carry criteria that score a pair of financial
// records.
//
// # Precedence
//
// A lower priority number takes precedence. Rule lists handed to the engines
// are sorted ascending by priority (see SortByPriority), and matching rules
// weigh 100 - priority, so priority is conventionally 1-99.
//
// # Evaluation semantics
//
// Conditions resolve their field through a closed set of recognized fields
// (see Field). Synonyms such as "country" and "nationality" resolve to the
// same field. Unknown fields and unknown operators never match:
//
//	equals      value equality, false when the field is absent
//	not_equals  true when the values differ or the field is absent
//	contains    substring test, false when absent or the value is a set
//	in          set membership, false when absent
//	not_in      true when absent or not a member
//
// An empty condition list always matches.
//
// # Documents
//
// Rule sets travel as versioned documents in YAML or JSON:
//
//	version: 7
//	rules:
//	  - id: high-risk-fee
//	    name: High risk activity fee
//	    type: pricing
//	    priority: 10
//	    isActive: true
//	    conditions:
//	      - {field: risk_level, operator: equals, value: high}
//	    actions:
//	      - {type: add_fee, value: 500}
//
// Decode validates a document and converts it into typed rules. Invalid
// documents are rejected as a whole.
package rules
