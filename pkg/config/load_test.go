package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "hubflow.yaml")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("failed to write config file: %v", err)
	}
	return path
}

func TestLoadConfig_ValidFile(t *testing.T) {
	path := writeConfig(t, `
server:
  listen_address: "0.0.0.0:9090"
  write_timeout: "5m"
rules:
  source: sqlite
  sqlite:
    path: /var/lib/hubflow/rules.db
  notifications:
    backend: kafka
kafka:
  brokers: ["k1:9092", "k2:9092"]
ledger:
  driver: postgres
  dsn: "postgres://hubflow@db/hubflow?sslmode=disable"
reconciliation:
  auto_approve_threshold: 0.9
  auto_match_enabled: true
  max_duration: 30s
telemetry:
  logging:
    level: debug
    format: text
`)

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig() error = %v", err)
	}

	if cfg.Server.ListenAddress != "0.0.0.0:9090" {
		t.Errorf("ListenAddress = %q", cfg.Server.ListenAddress)
	}
	if cfg.Server.WriteTimeout != 5*time.Minute {
		t.Errorf("WriteTimeout = %v, want 5m", cfg.Server.WriteTimeout)
	}
	if cfg.Rules.Source != "sqlite" || cfg.Rules.SQLite.Path != "/var/lib/hubflow/rules.db" {
		t.Errorf("Rules = %+v", cfg.Rules)
	}
	if len(cfg.Kafka.Brokers) != 2 {
		t.Errorf("Kafka.Brokers = %v", cfg.Kafka.Brokers)
	}
	if cfg.Ledger.Driver != "postgres" {
		t.Errorf("Ledger.Driver = %q", cfg.Ledger.Driver)
	}
	if !cfg.Reconciliation.AutoMatchEnabled || cfg.Reconciliation.AutoApproveThreshold != 0.9 {
		t.Errorf("Reconciliation = %+v", cfg.Reconciliation)
	}
	if cfg.Reconciliation.MaxDuration != 30*time.Second {
		t.Errorf("MaxDuration = %v", cfg.Reconciliation.MaxDuration)
	}

	// Untouched sections keep their defaults.
	if cfg.Reconciliation.MinConfidenceScore != DefaultMinConfidence {
		t.Errorf("MinConfidenceScore = %v, want default", cfg.Reconciliation.MinConfidenceScore)
	}
	if cfg.Reconciliation.Schedule != DefaultReconcileSchedule {
		t.Errorf("Schedule = %q, want default", cfg.Reconciliation.Schedule)
	}
	if !cfg.Telemetry.Metrics.Enabled {
		t.Error("metrics should be enabled by default")
	}
}

func TestLoadConfig_EmptyScheduleDisables(t *testing.T) {
	path := writeConfig(t, "reconciliation:\n  schedule: \"\"\n")
	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig() error = %v", err)
	}
	if cfg.Reconciliation.Schedule != "" {
		t.Errorf("Schedule = %q, want empty", cfg.Reconciliation.Schedule)
	}
}

func TestLoadConfig_ExplicitZeros(t *testing.T) {
	path := writeConfig(t, "reconciliation:\n  min_confidence_score: 0\n  auto_approve_threshold: 0\n  max_pairs: 0\n")
	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig() error = %v", err)
	}
	rc := cfg.Reconciliation
	if rc.MinConfidenceScore != 0 {
		t.Errorf("MinConfidenceScore = %v, want 0", rc.MinConfidenceScore)
	}
	if rc.AutoApproveThreshold != 0 {
		t.Errorf("AutoApproveThreshold = %v, want 0", rc.AutoApproveThreshold)
	}
	if rc.MaxPairs != 0 {
		t.Errorf("MaxPairs = %d, want 0 (unlimited)", rc.MaxPairs)
	}

	def := NewDefault().Reconciliation
	if def.MinConfidenceScore != DefaultMinConfidence || def.AutoApproveThreshold != DefaultAutoApprove || def.MaxPairs != DefaultReconcileMaxPairs {
		t.Errorf("defaults changed: %+v", def)
	}
}

func TestLoadConfig_MissingFile(t *testing.T) {
	_, err := LoadConfig(filepath.Join(t.TempDir(), "missing.yaml"))
	if err == nil {
		t.Fatal("expected error for missing file")
	}
	if !errors.Is(err, os.ErrNotExist) {
		t.Errorf("error should wrap os.ErrNotExist: %v", err)
	}
}

func TestLoadConfig_InvalidYAML(t *testing.T) {
	path := writeConfig(t, "server: [not, a, map\n")
	if _, err := LoadConfig(path); err == nil {
		t.Fatal("expected parse error")
	}
}

func TestLoadConfigWithEnvOverrides(t *testing.T) {
	path := writeConfig(t, "ledger:\n  driver: sqlite3\n")

	t.Setenv("HUBFLOW_LEDGER_DRIVER", "postgres")
	t.Setenv("HUBFLOW_LEDGER_DSN", "postgres://ci@localhost/hubflow")
	t.Setenv("HUBFLOW_RECONCILIATION_AUTO_MATCH_ENABLED", "true")
	t.Setenv("HUBFLOW_RECONCILIATION_MAX_DURATION", "45s")
	t.Setenv("HUBFLOW_KAFKA_BROKERS", "a:9092, b:9092")

	cfg, err := LoadConfigWithEnvOverrides(path)
	if err != nil {
		t.Fatalf("LoadConfigWithEnvOverrides() error = %v", err)
	}
	if cfg.Ledger.Driver != "postgres" || cfg.Ledger.DSN != "postgres://ci@localhost/hubflow" {
		t.Errorf("Ledger = %+v", cfg.Ledger)
	}
	if !cfg.Reconciliation.AutoMatchEnabled {
		t.Error("AutoMatchEnabled override not applied")
	}
	if cfg.Reconciliation.MaxDuration != 45*time.Second {
		t.Errorf("MaxDuration = %v", cfg.Reconciliation.MaxDuration)
	}
	if len(cfg.Kafka.Brokers) != 2 || cfg.Kafka.Brokers[1] != "b:9092" {
		t.Errorf("Kafka.Brokers = %v", cfg.Kafka.Brokers)
	}
}

func TestLoadConfigWithEnvOverrides_NoFile(t *testing.T) {
	t.Setenv("HUBFLOW_RULES_SOURCE", "memory")
	cfg, err := LoadConfigWithEnvOverrides("")
	if err != nil {
		t.Fatalf("LoadConfigWithEnvOverrides() error = %v", err)
	}
	if cfg.Rules.Source != "memory" {
		t.Errorf("Rules.Source = %q, want memory", cfg.Rules.Source)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name      string
		mutate    func(*Config)
		wantField string
	}{
		{"unknown rules source", func(c *Config) { c.Rules.Source = "s3" }, "rules.source"},
		{"git without repository", func(c *Config) { c.Rules.Source = "git" }, "rules.git.repository"},
		{"git token without token", func(c *Config) {
			c.Rules.Source = "git"
			c.Rules.Git.Repository = "https://example.com/rules.git"
			c.Rules.Git.Auth.Type = "token"
		}, "rules.git.auth.token"},
		{"unknown notifier", func(c *Config) { c.Rules.Notifications.Backend = "sns" }, "rules.notifications.backend"},
		{"unknown ledger driver", func(c *Config) { c.Ledger.Driver = "mysql" }, "ledger.driver"},
		{"postgres without dsn", func(c *Config) { c.Ledger.Driver = "postgres"; c.Ledger.DSN = "" }, "ledger.dsn"},
		{"bad cron", func(c *Config) { c.Reconciliation.Schedule = "every minute" }, "reconciliation.schedule"},
		{"threshold above one", func(c *Config) { c.Reconciliation.AutoApproveThreshold = 1.5 }, "reconciliation.auto_approve_threshold"},
		{"bad job type", func(c *Config) { c.Reconciliation.JobType = "expenses" }, "reconciliation.job_type"},
		{"bad currency", func(c *Config) { c.Reconciliation.DefaultCurrency = "DIRHAM" }, "reconciliation.default_currency"},
		{"lock ttl too short", func(c *Config) {
			c.Reconciliation.Lock.Enabled = true
			c.Reconciliation.Lock.TTL = time.Second
		}, "reconciliation.lock.ttl"},
		{"bad log level", func(c *Config) { c.Telemetry.Logging.Level = "verbose" }, "telemetry.logging.level"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := NewDefault()
			tt.mutate(cfg)

			err := Validate(cfg)
			var verr ValidationError
			if !errors.As(err, &verr) {
				t.Fatalf("Validate() error = %v, want ValidationError", err)
			}
			found := false
			for _, fe := range verr.Errors {
				if fe.Field == tt.wantField {
					found = true
				}
			}
			if !found {
				t.Errorf("no error for %s in %v", tt.wantField, err)
			}
		})
	}
}

func TestValidate_Defaults(t *testing.T) {
	if err := Validate(NewDefault()); err != nil {
		t.Fatalf("defaults should validate: %v", err)
	}
}

func TestValidationError_Message(t *testing.T) {
	err := ValidationError{Errors: []FieldError{{"a", "bad"}, {"b", "worse"}}}
	if !strings.Contains(err.Error(), "2 errors") {
		t.Errorf("Error() = %q", err.Error())
	}
}

func TestSingleton(t *testing.T) {
	old := GetConfig()
	defer SetConfig(old)

	cfg := NewDefault()
	SetConfig(cfg)
	if GetConfig() != cfg {
		t.Error("GetConfig() did not return the config passed to SetConfig")
	}
	if MustGetConfig() != cfg {
		t.Error("MustGetConfig() did not return the config passed to SetConfig")
	}
}

func TestReloadConfig(t *testing.T) {
	old := GetConfig()
	defer SetConfig(old)

	path := writeConfig(t, "ledger:\n  driver: memory\n")
	if err := ReloadConfig(path); err != nil {
		t.Fatalf("ReloadConfig() error = %v", err)
	}
	loaded := MustGetConfig()
	if loaded.Ledger.Driver != "memory" {
		t.Errorf("Ledger.Driver = %q, want memory", loaded.Ledger.Driver)
	}

	// A failed reload keeps the current configuration.
	bad := writeConfig(t, "ledger:\n  driver: mysql\n")
	if err := ReloadConfig(bad); err == nil {
		t.Fatal("expected error for invalid configuration")
	}
	if GetConfig() != loaded {
		t.Error("failed reload replaced the configuration")
	}
}
