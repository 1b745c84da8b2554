package config

import (
	"fmt"
	"sync"
)

var (
	globalConfig *Config
	configMutex  sync.RWMutex
)

// GetConfig returns the process-wide configuration, or nil before a
// successful ReloadConfig. Prefer passing *Config explicitly in library code.
func GetConfig() *Config {
	configMutex.RLock()
	defer configMutex.RUnlock()
	return globalConfig
}

// SetConfig replaces the process-wide configuration.
func SetConfig(cfg *Config) {
	configMutex.Lock()
	defer configMutex.Unlock()
	globalConfig = cfg
}

// ReloadConfig loads configuration (file plus HUBFLOW_ overrides) into the
// process-wide instance. On failure the current configuration stays in
// place. An empty path loads defaults plus overrides.
func ReloadConfig(path string) error {
	cfg, err := LoadConfigWithEnvOverrides(path)
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}
	SetConfig(cfg)
	return nil
}

// MustGetConfig is GetConfig that panics when configuration was never
// loaded.
func MustGetConfig() *Config {
	cfg := GetConfig()
	if cfg == nil {
		panic("configuration not loaded: call ReloadConfig first")
	}
	return cfg
}
