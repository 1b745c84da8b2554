package config

import "time"

// Config is the root configuration for hubflow.
type Config struct {
	// Server contains the HTTP API configuration.
	Server ServerConfig `yaml:"server"`

	// Rules configures where rule documents come from and how changes are
	// announced.
	Rules RulesConfig `yaml:"rules"`

	// Redis contains the shared Redis connection used for rule change
	// notifications and the reconciliation run lock.
	Redis RedisConfig `yaml:"redis"`

	// Kafka contains the shared Kafka connection used for rule change
	// notifications.
	Kafka KafkaConfig `yaml:"kafka"`

	// Ledger configures the financial record store.
	Ledger LedgerConfig `yaml:"ledger"`

	// Reconciliation configures the matching batch job.
	Reconciliation ReconciliationConfig `yaml:"reconciliation"`

	// Telemetry contains logging, metrics, tracing and health settings.
	Telemetry TelemetryConfig `yaml:"telemetry"`
}

// ServerConfig contains HTTP API server settings.
type ServerConfig struct {
	// ListenAddress is the address the API listens on.
	// Default: "127.0.0.1:8080"
	ListenAddress string `yaml:"listen_address"`

	// ReadTimeout is the maximum duration for reading a request.
	// Default: 15s
	ReadTimeout time.Duration `yaml:"read_timeout"`

	// WriteTimeout is the maximum duration for writing a response. A
	// triggered reconciliation run answers within this window.
	// Default: 2m
	WriteTimeout time.Duration `yaml:"write_timeout"`

	// IdleTimeout is the keep-alive idle timeout.
	// Default: 120s
	IdleTimeout time.Duration `yaml:"idle_timeout"`

	// ShutdownTimeout bounds graceful shutdown.
	// Default: 30s
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`

	// MaxBodyBytes limits request bodies.
	// Default: 1048576 (1MB)
	MaxBodyBytes int64 `yaml:"max_body_bytes"`
}

// RulesConfig configures the rule source.
type RulesConfig struct {
	// Source selects the rule backend.
	// Options: "file", "sqlite", "git", "memory"
	// Default: "file"
	Source string `yaml:"source"`

	// File configures the file source.
	File FileRulesConfig `yaml:"file"`

	// SQLite configures the versioned SQLite source.
	SQLite SQLiteRulesConfig `yaml:"sqlite"`

	// Git configures the Git repository source.
	Git GitRulesConfig `yaml:"git"`

	// Notifications configures push notifications of rule changes.
	Notifications NotificationsConfig `yaml:"notifications"`
}

// FileRulesConfig configures loading rules from a YAML or JSON file.
type FileRulesConfig struct {
	// Path to the rule document.
	// Default: "rules.yaml"
	Path string `yaml:"path"`

	// Watch enables hot reload on file changes.
	// Default: true
	Watch bool `yaml:"watch"`

	// DebounceInterval collapses bursts of file events into one reload.
	// Default: 200ms
	DebounceInterval time.Duration `yaml:"debounce_interval"`
}

// SQLiteRulesConfig configures the versioned rule table.
type SQLiteRulesConfig struct {
	// Path to the SQLite database file.
	// Default: "data/rules.db"
	Path string `yaml:"path"`

	// BusyTimeout is how long to wait on a locked database.
	// Default: 5s
	BusyTimeout time.Duration `yaml:"busy_timeout"`

	// PollInterval re-checks the active version when no push notifications
	// are configured. Zero disables polling.
	// Default: 0
	PollInterval time.Duration `yaml:"poll_interval"`
}

// GitRulesConfig configures a Git repository holding the rule document.
type GitRulesConfig struct {
	// Repository URL (HTTPS or SSH).
	Repository string `yaml:"repository"`

	// Branch to track.
	// Default: "main"
	Branch string `yaml:"branch"`

	// Path of the rule document within the repository.
	// Default: "rules.yaml"
	Path string `yaml:"path"`

	// LocalPath is where the repository is cloned.
	// Default: "<tmp>/hubflow-rules"
	LocalPath string `yaml:"local_path"`

	// Auth configures repository authentication.
	Auth GitAuthConfig `yaml:"auth"`

	// PollInterval is how often the remote is pulled.
	// Default: 1m
	PollInterval time.Duration `yaml:"poll_interval"`

	// Timeout bounds each clone or pull.
	// Default: 30s
	Timeout time.Duration `yaml:"timeout"`
}

// GitAuthConfig configures Git authentication.
type GitAuthConfig struct {
	// Type: "none", "token" or "ssh".
	// Default: "none"
	Type string `yaml:"type"`

	// Token for HTTPS authentication.
	Token string `yaml:"token"`

	// SSHKeyPath is the private key for SSH authentication.
	SSHKeyPath string `yaml:"ssh_key_path"`

	// SSHKeyPassphrase unlocks an encrypted key.
	SSHKeyPassphrase string `yaml:"ssh_key_passphrase"`
}

// NotificationsConfig configures rule change push notifications.
type NotificationsConfig struct {
	// Backend selects the notification transport.
	// Options: "none", "redis", "kafka"
	// Default: "none"
	Backend string `yaml:"backend"`

	// Channel is the Redis pub/sub channel.
	// Default: "hubflow:rules:changed"
	Channel string `yaml:"channel"`

	// Topic is the Kafka topic.
	// Default: "hubflow.rules.changed"
	Topic string `yaml:"topic"`

	// GroupID is the Kafka consumer group. Each process needs its own
	// group so that every replica sees every change.
	// Default: "hubflow-<hostname>"
	GroupID string `yaml:"group_id"`
}

// RedisConfig contains Redis connection settings.
type RedisConfig struct {
	// Addr is the host:port of the Redis server.
	// Default: "localhost:6379"
	Addr string `yaml:"addr"`

	// Password for AUTH, if any.
	Password string `yaml:"password"`

	// DB selects the logical database.
	// Default: 0
	DB int `yaml:"db"`

	// DialTimeout bounds connection setup.
	// Default: 5s
	DialTimeout time.Duration `yaml:"dial_timeout"`
}

// KafkaConfig contains Kafka connection settings.
type KafkaConfig struct {
	// Brokers is the bootstrap broker list.
	// Default: ["localhost:9092"]
	Brokers []string `yaml:"brokers"`
}

// LedgerConfig configures the financial record store.
type LedgerConfig struct {
	// Driver selects the backend.
	// Options: "memory", "sqlite3", "postgres"
	// Default: "sqlite3"
	Driver string `yaml:"driver"`

	// DSN is the data source name passed to the driver.
	// Default: "data/ledger.db?_journal_mode=WAL&_busy_timeout=5000&_foreign_keys=on"
	DSN string `yaml:"dsn"`

	// MaxOpenConns limits open connections.
	// Default: 10 (forced to 1 for sqlite3)
	MaxOpenConns int `yaml:"max_open_conns"`

	// MaxIdleConns limits idle connections.
	// Default: 5
	MaxIdleConns int `yaml:"max_idle_conns"`

	// ConnMaxLifetime recycles connections.
	// Default: 30m
	ConnMaxLifetime time.Duration `yaml:"conn_max_lifetime"`

	// AutoMigrate creates the schema on startup.
	// Default: true
	AutoMigrate bool `yaml:"auto_migrate"`
}

// ReconciliationConfig configures the matching batch job.
type ReconciliationConfig struct {
	// Schedule is a cron expression for background runs inside serve.
	// Empty disables scheduled runs.
	// Default: "*/15 * * * *"
	Schedule string `yaml:"schedule"`

	// JobType is the job type for scheduled runs.
	// Options: "all", "payable", "receivable"
	// Default: "all"
	JobType string `yaml:"job_type"`

	// AutoApproveThreshold is used when a job does not carry its own.
	// Default: 0.95
	AutoApproveThreshold float64 `yaml:"auto_approve_threshold"`

	// MinConfidenceScore is used when the settings store has no value.
	// Default: 0.6
	MinConfidenceScore float64 `yaml:"min_confidence_score"`

	// AutoMatchEnabled is used when the settings store has no value.
	// Default: false
	AutoMatchEnabled bool `yaml:"auto_match_enabled"`

	// DefaultCurrency applies when a record omits its currency.
	// Default: "AED"
	DefaultCurrency string `yaml:"default_currency"`

	// MaxDuration bounds the candidate scan of one run. Zero means no
	// deadline for callers that build the config themselves.
	// Default: 2m
	MaxDuration time.Duration `yaml:"max_duration"`

	// MaxPairs bounds the number of scored pairs in one run. Zero means
	// unlimited.
	// Default: 250000
	MaxPairs int `yaml:"max_pairs"`

	// OverdueAfterDays is the grace period after a due date before an
	// overdue flag is raised.
	// Default: 0
	OverdueAfterDays int `yaml:"overdue_after_days"`

	// Duplicates configures duplicate payment detection.
	Duplicates DuplicatesConfig `yaml:"duplicates"`

	// Lock configures the distributed run lock.
	Lock LockConfig `yaml:"lock"`
}

// DuplicatesConfig configures duplicate payment detection.
type DuplicatesConfig struct {
	// RequireReference skips records without a reference.
	// Default: false
	RequireReference bool `yaml:"require_reference"`
}

// LockConfig configures the Redis run lock.
type LockConfig struct {
	// Enabled turns on the lock.
	// Default: false
	Enabled bool `yaml:"enabled"`

	// Key is the Redis key of the lock.
	// Default: "hubflow:reconciliation:lock"
	Key string `yaml:"key"`

	// TTL is the lock lifetime. It must exceed MaxDuration.
	// Default: 5m
	TTL time.Duration `yaml:"ttl"`
}

// TelemetryConfig contains observability configuration.
type TelemetryConfig struct {
	// Logging contains logging configuration.
	Logging LoggingConfig `yaml:"logging"`

	// Metrics contains metrics collection configuration.
	Metrics MetricsConfig `yaml:"metrics"`

	// Tracing contains distributed tracing configuration.
	Tracing TracingConfig `yaml:"tracing"`

	// Health contains health check configuration.
	Health HealthConfig `yaml:"health"`
}

// LoggingConfig contains logging configuration.
type LoggingConfig struct {
	// Level is the minimum log level to emit.
	// Options: "debug", "info", "warn", "error"
	// Default: "info"
	Level string `yaml:"level"`

	// Format controls the log output format.
	// Options: "json", "text"
	// Default: "json"
	Format string `yaml:"format"`

	// AddSource includes file and line number in log entries.
	// Default: false
	AddSource bool `yaml:"add_source"`

	// RedactSecrets masks passwords, tokens and DSN credentials.
	// Default: true
	RedactSecrets bool `yaml:"redact_secrets"`
}

// MetricsConfig contains metrics collection configuration.
type MetricsConfig struct {
	// Enabled controls whether metrics collection is active.
	// Default: true
	Enabled bool `yaml:"enabled"`

	// Path is the HTTP path for the Prometheus endpoint.
	// Default: "/metrics"
	Path string `yaml:"path"`

	// Namespace is the metric name prefix.
	// Default: "hubflow"
	Namespace string `yaml:"namespace"`
}

// TracingConfig contains distributed tracing configuration.
type TracingConfig struct {
	// Enabled controls whether distributed tracing is active.
	// Default: false
	Enabled bool `yaml:"enabled"`

	// SampleRatio is the fraction of traces to sample (0.0 to 1.0).
	// Default: 0.1
	SampleRatio float64 `yaml:"sample_ratio"`

	// Endpoint is the OTLP gRPC collector endpoint.
	// Default: "localhost:4317"
	Endpoint string `yaml:"endpoint"`

	// Insecure disables TLS for the collector connection.
	// Default: true
	Insecure bool `yaml:"insecure"`

	// ServiceName is the service name in traces.
	// Default: "hubflow"
	ServiceName string `yaml:"service_name"`
}

// HealthConfig contains health check configuration.
type HealthConfig struct {
	// CheckTimeout bounds each readiness check.
	// Default: 5s
	CheckTimeout time.Duration `yaml:"check_timeout"`
}
