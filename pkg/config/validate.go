package config

import (
	"fmt"
	"strings"

	"github.com/robfig/cron/v3"
)

// FieldError represents a validation error for a specific configuration field.
type FieldError struct {
	// Field is the dotted path to the configuration field (e.g., "ledger.dsn").
	Field string

	// Message is a human-readable error message.
	Message string
}

// Error returns the error message for this field error.
func (e FieldError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidationError represents one or more validation errors in a configuration.
type ValidationError struct {
	// Errors contains all validation errors found in the configuration.
	Errors []FieldError
}

// Error returns a formatted string containing all validation errors.
func (e ValidationError) Error() string {
	if len(e.Errors) == 0 {
		return "configuration validation failed"
	}
	if len(e.Errors) == 1 {
		return fmt.Sprintf("configuration validation failed: %s", e.Errors[0].Error())
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("configuration validation failed with %d errors:\n", len(e.Errors)))
	for _, err := range e.Errors {
		sb.WriteString(fmt.Sprintf("  - %s\n", err.Error()))
	}
	return sb.String()
}

// Validate validates the entire configuration and returns a ValidationError
// if any validation rules fail. All errors are collected and returned together.
func Validate(cfg *Config) error {
	var errs []FieldError

	errs = append(errs, validateServer(&cfg.Server)...)
	errs = append(errs, validateRules(cfg)...)
	errs = append(errs, validateLedger(&cfg.Ledger)...)
	errs = append(errs, validateReconciliation(&cfg.Reconciliation)...)
	errs = append(errs, validateTelemetry(&cfg.Telemetry)...)

	if len(errs) > 0 {
		return ValidationError{Errors: errs}
	}
	return nil
}

func validateServer(s *ServerConfig) []FieldError {
	var errs []FieldError
	if s.ListenAddress == "" {
		errs = append(errs, FieldError{"server.listen_address", "must not be empty"})
	}
	if s.ReadTimeout < 0 || s.WriteTimeout < 0 || s.IdleTimeout < 0 {
		errs = append(errs, FieldError{"server", "timeouts must not be negative"})
	}
	if s.MaxBodyBytes <= 0 {
		errs = append(errs, FieldError{"server.max_body_bytes", "must be positive"})
	}
	return errs
}

func validateRules(cfg *Config) []FieldError {
	var errs []FieldError
	r := &cfg.Rules

	switch r.Source {
	case "file":
		if r.File.Path == "" {
			errs = append(errs, FieldError{"rules.file.path", "required when source is file"})
		}
	case "sqlite":
		if r.SQLite.Path == "" {
			errs = append(errs, FieldError{"rules.sqlite.path", "required when source is sqlite"})
		}
	case "git":
		if r.Git.Repository == "" {
			errs = append(errs, FieldError{"rules.git.repository", "required when source is git"})
		}
		switch r.Git.Auth.Type {
		case "none":
		case "token":
			if r.Git.Auth.Token == "" {
				errs = append(errs, FieldError{"rules.git.auth.token", "required for token auth"})
			}
		case "ssh":
			if r.Git.Auth.SSHKeyPath == "" {
				errs = append(errs, FieldError{"rules.git.auth.ssh_key_path", "required for ssh auth"})
			}
		default:
			errs = append(errs, FieldError{"rules.git.auth.type", fmt.Sprintf("unknown auth type %q", r.Git.Auth.Type)})
		}
		if r.Git.PollInterval <= 0 {
			errs = append(errs, FieldError{"rules.git.poll_interval", "must be positive"})
		}
	case "memory":
	default:
		errs = append(errs, FieldError{"rules.source", fmt.Sprintf("unknown source %q (file, sqlite, git, memory)", r.Source)})
	}

	switch r.Notifications.Backend {
	case "none":
	case "redis":
		if cfg.Redis.Addr == "" {
			errs = append(errs, FieldError{"redis.addr", "required for redis notifications"})
		}
	case "kafka":
		if len(cfg.Kafka.Brokers) == 0 {
			errs = append(errs, FieldError{"kafka.brokers", "required for kafka notifications"})
		}
		if r.Notifications.Topic == "" {
			errs = append(errs, FieldError{"rules.notifications.topic", "required for kafka notifications"})
		}
	default:
		errs = append(errs, FieldError{"rules.notifications.backend", fmt.Sprintf("unknown backend %q (none, redis, kafka)", r.Notifications.Backend)})
	}
	return errs
}

func validateLedger(l *LedgerConfig) []FieldError {
	var errs []FieldError
	switch l.Driver {
	case "memory":
	case "sqlite3", "postgres":
		if l.DSN == "" {
			errs = append(errs, FieldError{"ledger.dsn", fmt.Sprintf("required for driver %s", l.Driver)})
		}
	default:
		errs = append(errs, FieldError{"ledger.driver", fmt.Sprintf("unknown driver %q (memory, sqlite3, postgres)", l.Driver)})
	}
	if l.MaxOpenConns < 0 || l.MaxIdleConns < 0 {
		errs = append(errs, FieldError{"ledger", "connection limits must not be negative"})
	}
	return errs
}

func validateReconciliation(rc *ReconciliationConfig) []FieldError {
	var errs []FieldError

	if rc.Schedule != "" {
		if _, err := cron.ParseStandard(rc.Schedule); err != nil {
			errs = append(errs, FieldError{"reconciliation.schedule", fmt.Sprintf("invalid cron expression: %v", err)})
		}
	}
	switch rc.JobType {
	case "all", "payable", "receivable":
	default:
		errs = append(errs, FieldError{"reconciliation.job_type", fmt.Sprintf("unknown job type %q", rc.JobType)})
	}
	if rc.AutoApproveThreshold < 0 || rc.AutoApproveThreshold > 1 {
		errs = append(errs, FieldError{"reconciliation.auto_approve_threshold", "must be between 0 and 1"})
	}
	if rc.MinConfidenceScore < 0 || rc.MinConfidenceScore > 1 {
		errs = append(errs, FieldError{"reconciliation.min_confidence_score", "must be between 0 and 1"})
	}
	if len(rc.DefaultCurrency) != 3 {
		errs = append(errs, FieldError{"reconciliation.default_currency", "must be a 3-letter currency code"})
	}
	if rc.MaxDuration <= 0 {
		errs = append(errs, FieldError{"reconciliation.max_duration", "must be positive"})
	}
	if rc.MaxPairs < 0 {
		errs = append(errs, FieldError{"reconciliation.max_pairs", "must not be negative"})
	}
	if rc.OverdueAfterDays < 0 {
		errs = append(errs, FieldError{"reconciliation.overdue_after_days", "must not be negative"})
	}
	if rc.Lock.Enabled && rc.Lock.TTL <= rc.MaxDuration {
		errs = append(errs, FieldError{"reconciliation.lock.ttl", "must exceed reconciliation.max_duration"})
	}
	return errs
}

func validateTelemetry(t *TelemetryConfig) []FieldError {
	var errs []FieldError

	switch strings.ToLower(t.Logging.Level) {
	case "debug", "info", "warn", "error":
	default:
		errs = append(errs, FieldError{"telemetry.logging.level", fmt.Sprintf("unknown level %q", t.Logging.Level)})
	}
	switch t.Logging.Format {
	case "json", "text":
	default:
		errs = append(errs, FieldError{"telemetry.logging.format", fmt.Sprintf("unknown format %q", t.Logging.Format)})
	}
	if t.Metrics.Enabled && !strings.HasPrefix(t.Metrics.Path, "/") {
		errs = append(errs, FieldError{"telemetry.metrics.path", "must start with /"})
	}
	if t.Tracing.Enabled {
		if t.Tracing.Endpoint == "" {
			errs = append(errs, FieldError{"telemetry.tracing.endpoint", "required when tracing is enabled"})
		}
		if t.Tracing.SampleRatio < 0 || t.Tracing.SampleRatio > 1 {
			errs = append(errs, FieldError{"telemetry.tracing.sample_ratio", "must be between 0 and 1"})
		}
	}
	return errs
}
