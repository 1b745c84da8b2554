package reconciliation

import (
	"errors"
	"fmt"

	"github.com/amanaz3/customer-hub-flow-sub006/pkg/ledger"
)

// JobType selects which kind pairs a run reconciles.
type JobType string

const (
	JobAll        JobType = "all"
	JobPayable    JobType = "payable"
	JobReceivable JobType = "receivable"
)

// Pairs returns the kind pairs covered by the job type.
func (t JobType) Pairs() []ledger.Pair {
	if t == JobAll {
		return ledger.Pairs
	}
	var out []ledger.Pair
	for _, p := range ledger.Pairs {
		if string(p.Scope) == string(t) {
			out = append(out, p)
		}
	}
	return out
}

// Job is a reconciliation request.
type Job struct {
	Type JobType `json:"type"`

	// AutoApproveThreshold overrides the configured threshold when set.
	AutoApproveThreshold *float64 `json:"autoApproveThreshold,omitempty"`
}

// Validate checks the job type and threshold.
func (j Job) Validate() error {
	switch j.Type {
	case JobAll, JobPayable, JobReceivable:
	default:
		return fmt.Errorf("%w: unknown job type %q", ErrInvalidJob, j.Type)
	}
	if t := j.AutoApproveThreshold; t != nil && (*t < 0 || *t > 1) {
		return fmt.Errorf("%w: autoApproveThreshold %v outside [0, 1]", ErrInvalidJob, *t)
	}
	return nil
}

// Failure stages.
const (
	StageSuggest   = "suggest"
	StageAutoMatch = "auto_match"
	StageRiskFlag  = "risk_flag"
)

// PairFailure is a pair whose side effects could not be written. The rest
// of the run is unaffected.
type PairFailure struct {
	SourceID string `json:"sourceId,omitempty"`
	TargetID string `json:"targetId,omitempty"`
	Stage    string `json:"stage"`
	Error    string `json:"error"`
}

// Output summarizes a run.
type Output struct {
	RunID          string              `json:"runId"`
	Type           JobType             `json:"type"`
	RuleSetVersion int                 `json:"ruleSetVersion"`
	Suggestions    []ledger.Suggestion `json:"suggestions"`
	AutoMatched    int                 `json:"autoMatched"`
	NeedsReview    int                 `json:"needsReview"`
	RiskFlags      []ledger.RiskFlag   `json:"riskFlags"`
	Failures       []PairFailure       `json:"failures"`
	Truncated      bool                `json:"truncated"`
	PairsScored    int                 `json:"pairsScored"`
	DurationMS     int64               `json:"durationMs"`
}

var (
	// ErrInvalidJob is returned for a malformed Job.
	ErrInvalidJob = errors.New("invalid reconciliation job")

	// ErrRunInProgress means another run holds the run lock.
	ErrRunInProgress = errors.New("reconciliation run already in progress")
)
