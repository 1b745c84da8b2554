package ledger

import "context"

// Store persists records, suggestions, risk flags and settings.
type Store interface {
	// SaveRecord inserts or replaces a record. A missing ID or CreatedAt
	// is filled in.
	SaveRecord(ctx context.Context, r *Record) error

	// GetRecord returns a record or ErrNotFound.
	GetRecord(ctx context.Context, id string) (*Record, error)

	// ListOpenSources returns unsettled records of kind, ordered by date
	// then ID.
	ListOpenSources(ctx context.Context, kind Kind) ([]Record, error)

	// ListOpenTargets returns unlinked records of kind, ordered by date
	// then ID.
	ListOpenTargets(ctx context.Context, kind Kind) ([]Record, error)

	// SaveSuggestion stores s unless a suggestion for the same pair exists.
	// An existing pending suggestion gets the new confidence and reasons.
	// s.ID and s.Status are set to the stored values.
	SaveSuggestion(ctx context.Context, s *Suggestion) (created bool, err error)

	// ListSuggestions returns all suggestions, newest first.
	ListSuggestions(ctx context.Context) ([]Suggestion, error)

	// ApplyAutoMatch settles the source, links the target and marks the
	// suggestion auto_matched, all or nothing. It returns
	// ErrAlreadySettled or ErrAlreadyLinked when a side was claimed first.
	ApplyAutoMatch(ctx context.Context, s *Suggestion) error

	// RiskFlagExists reports whether a flag with the same identity exists.
	RiskFlagExists(ctx context.Context, typ FlagType, entityID, relatedEntityID string) (bool, error)

	// CreateRiskFlag stores f unless a flag with the same identity exists.
	CreateRiskFlag(ctx context.Context, f *RiskFlag) (created bool, err error)

	// ListRiskFlags returns all flags, newest first.
	ListRiskFlags(ctx context.Context) ([]RiskFlag, error)

	// Settings returns the stored settings.
	Settings(ctx context.Context) (StoredSettings, error)

	// SaveSettings stores both settings.
	SaveSettings(ctx context.Context, s Settings) error

	Ping(ctx context.Context) error
	Close() error
}
