package source

import (
	"context"
	"sync"

	"github.com/amanaz3/customer-hub-flow-sub006/pkg/rules"
)

// MemorySource serves a rule set held in memory.
type MemorySource struct {
	mu      sync.RWMutex
	set     *rules.RuleSet
	err     error
	changed chan struct{}
}

// NewMemorySource creates a memory source. A nil set loads as an empty
// rule set.
func NewMemorySource(set *rules.RuleSet) *MemorySource {
	if set == nil {
		set = &rules.RuleSet{}
	}
	return &MemorySource{set: set, changed: make(chan struct{}, 1)}
}

// Name returns "memory".
func (s *MemorySource) Name() string { return "memory" }

// Load returns a copy of the held rule set, or the error set by Fail.
func (s *MemorySource) Load(context.Context) (*rules.RuleSet, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.err != nil {
		return nil, s.err
	}
	return &rules.RuleSet{
		Version: s.set.Version,
		Rules:   append([]rules.Rule(nil), s.set.Rules...),
	}, nil
}

// Set replaces the rule set and signals watchers.
func (s *MemorySource) Set(set *rules.RuleSet) {
	s.mu.Lock()
	s.set = set
	s.err = nil
	s.mu.Unlock()
	s.signal()
}

// Fail makes subsequent loads return err until the next Set.
func (s *MemorySource) Fail(err error) {
	s.mu.Lock()
	s.err = err
	s.mu.Unlock()
}

func (s *MemorySource) signal() {
	select {
	case s.changed <- struct{}{}:
	default:
	}
}

// Watch calls onChange after every Set.
func (s *MemorySource) Watch(ctx context.Context, onChange func()) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-s.changed:
			onChange()
		}
	}
}
