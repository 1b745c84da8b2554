package source

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/amanaz3/customer-hub-flow-sub006/pkg/config"
	"github.com/amanaz3/customer-hub-flow-sub006/pkg/rules"
)

// FileSource loads a rule document from disk.
type FileSource struct {
	cfg    config.FileRulesConfig
	logger *slog.Logger
}

// NewFileSource creates a file source. The format follows the file
// extension: .json is JSON, anything else YAML.
func NewFileSource(cfg config.FileRulesConfig, logger *slog.Logger) *FileSource {
	if logger == nil {
		logger = slog.Default()
	}
	return &FileSource{cfg: cfg, logger: logger}
}

// Name returns "file".
func (s *FileSource) Name() string { return "file" }

// Load reads and decodes the document.
func (s *FileSource) Load(ctx context.Context) (*rules.RuleSet, error) {
	data, err := os.ReadFile(s.cfg.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to read rule file %q: %w", s.cfg.Path, err)
	}
	set, err := rules.Decode(data, rules.FormatFromPath(s.cfg.Path))
	if err != nil {
		return nil, fmt.Errorf("rule file %q: %w", s.cfg.Path, err)
	}

	s.logger.Debug("loaded rule file",
		"path", s.cfg.Path,
		"version", set.Version,
		"rule_count", len(set.Rules),
	)
	return set, nil
}

// Watch reloads on file changes when watching is enabled. With watching
// disabled it blocks until ctx is cancelled.
func (s *FileSource) Watch(ctx context.Context, onChange func()) error {
	if !s.cfg.Watch {
		<-ctx.Done()
		return nil
	}
	fw, err := NewFileWatcher(s.cfg.Path, s.cfg.DebounceInterval, s.logger)
	if err != nil {
		return err
	}
	defer fw.Close()
	return fw.Watch(ctx, onChange)
}
