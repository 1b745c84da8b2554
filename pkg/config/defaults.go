package config

import (
	"os"
	"path/filepath"
	"time"
)

// Default values for configuration fields.
const (
	// Server defaults
	DefaultListenAddress   = "127.0.0.1:8080"
	DefaultReadTimeout     = 15 * time.Second
	DefaultWriteTimeout    = 2 * time.Minute
	DefaultIdleTimeout     = 120 * time.Second
	DefaultShutdownTimeout = 30 * time.Second
	DefaultMaxBodyBytes    = int64(1 << 20)

	// Rules defaults
	DefaultRulesSource          = "file"
	DefaultRulesFilePath        = "rules.yaml"
	DefaultRulesFileWatch       = true
	DefaultRulesDebounce        = 200 * time.Millisecond
	DefaultRulesSQLitePath      = "data/rules.db"
	DefaultRulesSQLiteBusy      = 5 * time.Second
	DefaultRulesGitBranch       = "main"
	DefaultRulesGitPath         = "rules.yaml"
	DefaultRulesGitPollInterval = time.Minute
	DefaultRulesGitTimeout      = 30 * time.Second
	DefaultNotifyBackend        = "none"
	DefaultNotifyChannel        = "hubflow:rules:changed"
	DefaultNotifyTopic          = "hubflow.rules.changed"

	// Connection defaults
	DefaultRedisAddr        = "localhost:6379"
	DefaultRedisDialTimeout = 5 * time.Second
	DefaultKafkaBroker      = "localhost:9092"

	// Ledger defaults
	DefaultLedgerDriver          = "sqlite3"
	DefaultLedgerDSN             = "data/ledger.db?_journal_mode=WAL&_busy_timeout=5000&_foreign_keys=on"
	DefaultLedgerMaxOpenConns    = 10
	DefaultLedgerMaxIdleConns    = 5
	DefaultLedgerConnMaxLifetime = 30 * time.Minute

	// Reconciliation defaults
	DefaultReconcileSchedule = "*/15 * * * *"
	DefaultReconcileJobType  = "all"
	DefaultAutoApprove       = 0.95
	DefaultMinConfidence     = 0.6
	DefaultCurrency          = "AED"
	DefaultReconcileDuration = 2 * time.Minute
	DefaultReconcileMaxPairs = 250000
	DefaultLockKey           = "hubflow:reconciliation:lock"
	DefaultLockTTL           = 5 * time.Minute

	// Telemetry defaults
	DefaultLogLevel           = "info"
	DefaultLogFormat          = "json"
	DefaultMetricsEnabled     = true
	DefaultMetricsPath        = "/metrics"
	DefaultMetricsNamespace   = "hubflow"
	DefaultTracingSampleRatio = 0.1
	DefaultTracingEndpoint    = "localhost:4317"
	DefaultTracingServiceName = "hubflow"
	DefaultHealthCheckTimeout = 5 * time.Second
)

// NewDefault returns a configuration with every default applied, as if
// loaded from an empty file.
func NewDefault() *Config {
	cfg := seed()
	ApplyDefaults(cfg)
	return cfg
}

// seed returns the values that cannot be told apart from an explicit zero
// after unmarshalling: booleans that default to true, the schedule (empty
// disables scheduled runs) and the reconciliation thresholds and pair
// budget, where zero is a valid setting.
func seed() *Config {
	cfg := &Config{}
	cfg.Rules.File.Watch = DefaultRulesFileWatch
	cfg.Ledger.AutoMigrate = true
	cfg.Reconciliation.Schedule = DefaultReconcileSchedule
	cfg.Reconciliation.AutoApproveThreshold = DefaultAutoApprove
	cfg.Reconciliation.MinConfidenceScore = DefaultMinConfidence
	cfg.Reconciliation.MaxPairs = DefaultReconcileMaxPairs
	cfg.Telemetry.Metrics.Enabled = DefaultMetricsEnabled
	cfg.Telemetry.Logging.RedactSecrets = true
	cfg.Telemetry.Tracing.Insecure = true
	return cfg
}

// ApplyDefaults fills zero-valued fields with their defaults. Fields set
// by seed are left as loaded.
func ApplyDefaults(cfg *Config) {
	s := &cfg.Server
	setDefault(&s.ListenAddress, DefaultListenAddress)
	setDefault(&s.ReadTimeout, DefaultReadTimeout)
	setDefault(&s.WriteTimeout, DefaultWriteTimeout)
	setDefault(&s.IdleTimeout, DefaultIdleTimeout)
	setDefault(&s.ShutdownTimeout, DefaultShutdownTimeout)
	setDefault(&s.MaxBodyBytes, DefaultMaxBodyBytes)

	r := &cfg.Rules
	setDefault(&r.Source, DefaultRulesSource)
	setDefault(&r.File.Path, DefaultRulesFilePath)
	setDefault(&r.File.DebounceInterval, DefaultRulesDebounce)
	setDefault(&r.SQLite.Path, DefaultRulesSQLitePath)
	setDefault(&r.SQLite.BusyTimeout, DefaultRulesSQLiteBusy)
	setDefault(&r.Git.Branch, DefaultRulesGitBranch)
	setDefault(&r.Git.Path, DefaultRulesGitPath)
	setDefault(&r.Git.LocalPath, filepath.Join(os.TempDir(), "hubflow-rules"))
	setDefault(&r.Git.Auth.Type, "none")
	setDefault(&r.Git.PollInterval, DefaultRulesGitPollInterval)
	setDefault(&r.Git.Timeout, DefaultRulesGitTimeout)
	setDefault(&r.Notifications.Backend, DefaultNotifyBackend)
	setDefault(&r.Notifications.Channel, DefaultNotifyChannel)
	setDefault(&r.Notifications.Topic, DefaultNotifyTopic)
	if r.Notifications.GroupID == "" {
		host, _ := os.Hostname()
		if host == "" {
			host = "local"
		}
		r.Notifications.GroupID = "hubflow-" + host
	}

	setDefault(&cfg.Redis.Addr, DefaultRedisAddr)
	setDefault(&cfg.Redis.DialTimeout, DefaultRedisDialTimeout)
	if len(cfg.Kafka.Brokers) == 0 {
		cfg.Kafka.Brokers = []string{DefaultKafkaBroker}
	}

	l := &cfg.Ledger
	setDefault(&l.Driver, DefaultLedgerDriver)
	if l.Driver == "sqlite3" {
		setDefault(&l.DSN, DefaultLedgerDSN)
	}
	setDefault(&l.MaxOpenConns, DefaultLedgerMaxOpenConns)
	setDefault(&l.MaxIdleConns, DefaultLedgerMaxIdleConns)
	setDefault(&l.ConnMaxLifetime, DefaultLedgerConnMaxLifetime)

	rc := &cfg.Reconciliation
	setDefault(&rc.JobType, DefaultReconcileJobType)
	setDefault(&rc.DefaultCurrency, DefaultCurrency)
	setDefault(&rc.MaxDuration, DefaultReconcileDuration)
	setDefault(&rc.Lock.Key, DefaultLockKey)
	setDefault(&rc.Lock.TTL, DefaultLockTTL)

	t := &cfg.Telemetry
	setDefault(&t.Logging.Level, DefaultLogLevel)
	setDefault(&t.Logging.Format, DefaultLogFormat)
	setDefault(&t.Metrics.Path, DefaultMetricsPath)
	setDefault(&t.Metrics.Namespace, DefaultMetricsNamespace)
	setDefault(&t.Tracing.SampleRatio, DefaultTracingSampleRatio)
	setDefault(&t.Tracing.Endpoint, DefaultTracingEndpoint)
	setDefault(&t.Tracing.ServiceName, DefaultTracingServiceName)
	setDefault(&t.Health.CheckTimeout, DefaultHealthCheckTimeout)
}

func setDefault[T comparable](field *T, value T) {
	var zero T
	if *field == zero {
		*field = value
	}
}
