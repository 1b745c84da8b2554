package storage

import (
	"cmp"
	"context"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/amanaz3/customer-hub-flow-sub006/pkg/ledger"

	"github.com/google/uuid"
)

type pairKey struct{ source, target string }

type flagKey struct {
	typ     ledger.FlagType
	entity  string
	related string
}

// MemoryStore is an in-process ledger.Store.
type MemoryStore struct {
	mu          sync.Mutex
	records     map[string]ledger.Record
	suggestions map[pairKey]ledger.Suggestion
	flags       map[flagKey]ledger.RiskFlag
	settings    ledger.StoredSettings
	now         func() time.Time
}

// NewMemoryStore returns an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		records:     make(map[string]ledger.Record),
		suggestions: make(map[pairKey]ledger.Suggestion),
		flags:       make(map[flagKey]ledger.RiskFlag),
		now:         func() time.Time { return time.Now().UTC() },
	}
}

func (m *MemoryStore) SaveRecord(_ context.Context, r *ledger.Record) error {
	if !r.Kind.Valid() {
		return fmt.Errorf("record %q: unknown kind %q", r.ID, r.Kind)
	}
	if r.ID == "" {
		r.ID = uuid.NewString()
	}
	if r.CreatedAt.IsZero() {
		r.CreatedAt = m.now()
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.records[r.ID] = *r
	return nil
}

func (m *MemoryStore) GetRecord(_ context.Context, id string) (*ledger.Record, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.records[id]
	if !ok {
		return nil, fmt.Errorf("record %q: %w", id, ledger.ErrNotFound)
	}
	return &r, nil
}

func (m *MemoryStore) ListOpenSources(_ context.Context, kind ledger.Kind) ([]ledger.Record, error) {
	return m.listOpen(kind, func(r ledger.Record) bool { return !r.Settled }), nil
}

func (m *MemoryStore) ListOpenTargets(_ context.Context, kind ledger.Kind) ([]ledger.Record, error) {
	return m.listOpen(kind, func(r ledger.Record) bool { return r.LinkedRecordID == "" }), nil
}

func (m *MemoryStore) listOpen(kind ledger.Kind, open func(ledger.Record) bool) []ledger.Record {
	m.mu.Lock()
	defer m.mu.Unlock()

	var out []ledger.Record
	for _, r := range m.records {
		if r.Kind == kind && open(r) {
			out = append(out, r)
		}
	}
	slices.SortFunc(out, func(a, b ledger.Record) int {
		return cmp.Or(a.Date.Compare(b.Date), cmp.Compare(a.ID, b.ID))
	})
	return out
}

func (m *MemoryStore) SaveSuggestion(_ context.Context, s *ledger.Suggestion) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	key := pairKey{s.SourceID, s.TargetID}
	if existing, ok := m.suggestions[key]; ok {
		if existing.Status == ledger.SuggestionPending {
			existing.Confidence = s.Confidence
			existing.Reasons = slices.Clone(s.Reasons)
			m.suggestions[key] = existing
		}
		s.ID, s.Status, s.CreatedAt = existing.ID, existing.Status, existing.CreatedAt
		return false, nil
	}

	m.fillSuggestion(s)
	stored := *s
	stored.Reasons = slices.Clone(s.Reasons)
	m.suggestions[key] = stored
	return true, nil
}

func (m *MemoryStore) fillSuggestion(s *ledger.Suggestion) {
	if s.ID == "" {
		s.ID = uuid.NewString()
	}
	if s.Status == "" {
		s.Status = ledger.SuggestionPending
	}
	if s.CreatedAt.IsZero() {
		s.CreatedAt = m.now()
	}
}

func (m *MemoryStore) ListSuggestions(_ context.Context) ([]ledger.Suggestion, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]ledger.Suggestion, 0, len(m.suggestions))
	for _, s := range m.suggestions {
		out = append(out, s)
	}
	slices.SortFunc(out, func(a, b ledger.Suggestion) int {
		return cmp.Or(b.CreatedAt.Compare(a.CreatedAt), cmp.Compare(a.ID, b.ID))
	})
	return out, nil
}

func (m *MemoryStore) ApplyAutoMatch(_ context.Context, s *ledger.Suggestion) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	src, ok := m.records[s.SourceID]
	if !ok {
		return fmt.Errorf("source %q: %w", s.SourceID, ledger.ErrNotFound)
	}
	tgt, ok := m.records[s.TargetID]
	if !ok {
		return fmt.Errorf("target %q: %w", s.TargetID, ledger.ErrNotFound)
	}
	if src.Settled {
		return fmt.Errorf("source %q: %w", src.ID, ledger.ErrAlreadySettled)
	}
	if tgt.LinkedRecordID != "" {
		return fmt.Errorf("target %q: %w", tgt.ID, ledger.ErrAlreadyLinked)
	}

	src.Settled = true
	src.LinkedRecordID = tgt.ID
	tgt.LinkedRecordID = src.ID
	m.records[src.ID] = src
	m.records[tgt.ID] = tgt

	key := pairKey{s.SourceID, s.TargetID}
	stored, ok := m.suggestions[key]
	if !ok {
		m.fillSuggestion(s)
		stored = *s
		stored.Reasons = slices.Clone(s.Reasons)
	}
	stored.Status = ledger.SuggestionAutoMatched
	m.suggestions[key] = stored
	s.ID, s.Status = stored.ID, stored.Status
	return nil
}

func (m *MemoryStore) RiskFlagExists(_ context.Context, typ ledger.FlagType, entityID, relatedEntityID string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.flags[flagKey{typ, entityID, relatedEntityID}]
	return ok, nil
}

func (m *MemoryStore) CreateRiskFlag(_ context.Context, f *ledger.RiskFlag) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	key := flagKey{f.Type, f.EntityID, f.RelatedEntityID}
	if existing, ok := m.flags[key]; ok {
		*f = existing
		return false, nil
	}
	if f.ID == "" {
		f.ID = uuid.NewString()
	}
	if f.CreatedAt.IsZero() {
		f.CreatedAt = m.now()
	}
	m.flags[key] = *f
	return true, nil
}

func (m *MemoryStore) ListRiskFlags(_ context.Context) ([]ledger.RiskFlag, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]ledger.RiskFlag, 0, len(m.flags))
	for _, f := range m.flags {
		out = append(out, f)
	}
	slices.SortFunc(out, func(a, b ledger.RiskFlag) int {
		return cmp.Or(b.CreatedAt.Compare(a.CreatedAt), cmp.Compare(a.ID, b.ID))
	})
	return out, nil
}

func (m *MemoryStore) Settings(_ context.Context) (ledger.StoredSettings, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.settings, nil
}

func (m *MemoryStore) SaveSettings(_ context.Context, s ledger.Settings) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.settings = ledger.StoredSettings{
		MinConfidenceScore: &s.MinConfidenceScore,
		AutoMatchEnabled:   &s.AutoMatchEnabled,
	}
	return nil
}

func (m *MemoryStore) Ping(context.Context) error { return nil }

func (m *MemoryStore) Close() error { return nil }

var _ ledger.Store = (*MemoryStore)(nil)
