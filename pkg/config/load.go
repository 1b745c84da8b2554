package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// EnvPrefix is the prefix of environment variable overrides.
const EnvPrefix = "HUBFLOW_"

// LoadConfig loads configuration from a YAML file at the specified path.
// It applies default values, validates the configuration, and returns any errors.
// Environment variables are not consulted; use LoadConfigWithEnvOverrides
// for that.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read configuration file %q: %w", path, err)
	}

	cfg, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("failed to parse configuration file %q: %w", path, err)
	}

	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

// Parse decodes YAML configuration and applies defaults without validating.
func Parse(data []byte) (*Config, error) {
	cfg := seed()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, err
	}
	ApplyDefaults(cfg)
	return cfg, nil
}

// LoadConfigWithEnvOverrides loads configuration from a YAML file and applies
// environment variable overrides. Variables follow the naming convention
// HUBFLOW_SECTION_FIELD (e.g., HUBFLOW_LEDGER_DSN) and always take precedence
// over the file. An empty path loads defaults plus overrides.
//
// The loading sequence is:
// 1. Load YAML from file
// 2. Apply default values
// 3. Apply environment variable overrides
// 4. Validate final configuration
func LoadConfigWithEnvOverrides(path string) (*Config, error) {
	var cfg *Config
	if path == "" {
		cfg = NewDefault()
	} else {
		loaded, err := LoadConfig(path)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	}

	applyEnvOverrides(cfg)

	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed after environment overrides: %w", err)
	}

	return cfg, nil
}

// applyEnvOverrides applies environment variable overrides to the configuration.
func applyEnvOverrides(cfg *Config) {
	// Server overrides
	envString("SERVER_LISTEN_ADDRESS", &cfg.Server.ListenAddress)
	envDuration("SERVER_READ_TIMEOUT", &cfg.Server.ReadTimeout)
	envDuration("SERVER_WRITE_TIMEOUT", &cfg.Server.WriteTimeout)

	// Rules overrides
	envString("RULES_SOURCE", &cfg.Rules.Source)
	envString("RULES_FILE_PATH", &cfg.Rules.File.Path)
	envBool("RULES_FILE_WATCH", &cfg.Rules.File.Watch)
	envString("RULES_SQLITE_PATH", &cfg.Rules.SQLite.Path)
	envString("RULES_GIT_REPOSITORY", &cfg.Rules.Git.Repository)
	envString("RULES_GIT_BRANCH", &cfg.Rules.Git.Branch)
	envString("RULES_GIT_PATH", &cfg.Rules.Git.Path)
	envString("RULES_GIT_AUTH_TOKEN", &cfg.Rules.Git.Auth.Token)
	envString("RULES_NOTIFICATIONS_BACKEND", &cfg.Rules.Notifications.Backend)
	envString("RULES_NOTIFICATIONS_GROUP_ID", &cfg.Rules.Notifications.GroupID)

	// Connection overrides
	envString("REDIS_ADDR", &cfg.Redis.Addr)
	envString("REDIS_PASSWORD", &cfg.Redis.Password)
	envInt("REDIS_DB", &cfg.Redis.DB)
	if val := os.Getenv(EnvPrefix + "KAFKA_BROKERS"); val != "" {
		var brokers []string
		for _, b := range strings.Split(val, ",") {
			if b = strings.TrimSpace(b); b != "" {
				brokers = append(brokers, b)
			}
		}
		cfg.Kafka.Brokers = brokers
	}

	// Ledger overrides
	envString("LEDGER_DRIVER", &cfg.Ledger.Driver)
	envString("LEDGER_DSN", &cfg.Ledger.DSN)
	envInt("LEDGER_MAX_OPEN_CONNS", &cfg.Ledger.MaxOpenConns)

	// Reconciliation overrides
	envString("RECONCILIATION_SCHEDULE", &cfg.Reconciliation.Schedule)
	envString("RECONCILIATION_JOB_TYPE", &cfg.Reconciliation.JobType)
	envFloat("RECONCILIATION_AUTO_APPROVE_THRESHOLD", &cfg.Reconciliation.AutoApproveThreshold)
	envFloat("RECONCILIATION_MIN_CONFIDENCE_SCORE", &cfg.Reconciliation.MinConfidenceScore)
	envBool("RECONCILIATION_AUTO_MATCH_ENABLED", &cfg.Reconciliation.AutoMatchEnabled)
	envString("RECONCILIATION_DEFAULT_CURRENCY", &cfg.Reconciliation.DefaultCurrency)
	envDuration("RECONCILIATION_MAX_DURATION", &cfg.Reconciliation.MaxDuration)
	envInt("RECONCILIATION_MAX_PAIRS", &cfg.Reconciliation.MaxPairs)
	envBool("RECONCILIATION_LOCK_ENABLED", &cfg.Reconciliation.Lock.Enabled)

	// Telemetry overrides
	envString("TELEMETRY_LOGGING_LEVEL", &cfg.Telemetry.Logging.Level)
	envString("TELEMETRY_LOGGING_FORMAT", &cfg.Telemetry.Logging.Format)
	envBool("TELEMETRY_METRICS_ENABLED", &cfg.Telemetry.Metrics.Enabled)
	envBool("TELEMETRY_TRACING_ENABLED", &cfg.Telemetry.Tracing.Enabled)
	envString("TELEMETRY_TRACING_ENDPOINT", &cfg.Telemetry.Tracing.Endpoint)
}

func envString(key string, dst *string) {
	if val := os.Getenv(EnvPrefix + key); val != "" {
		*dst = val
	}
}

func envBool(key string, dst *bool) {
	if val := os.Getenv(EnvPrefix + key); val != "" {
		if b, err := strconv.ParseBool(val); err == nil {
			*dst = b
		}
	}
}

func envInt(key string, dst *int) {
	if val := os.Getenv(EnvPrefix + key); val != "" {
		if i, err := strconv.Atoi(val); err == nil {
			*dst = i
		}
	}
}

func envFloat(key string, dst *float64) {
	if val := os.Getenv(EnvPrefix + key); val != "" {
		if f, err := strconv.ParseFloat(val, 64); err == nil {
			*dst = f
		}
	}
}

func envDuration(key string, dst *time.Duration) {
	if val := os.Getenv(EnvPrefix + key); val != "" {
		if d, err := time.ParseDuration(val); err == nil {
			*dst = d
		}
	}
}
