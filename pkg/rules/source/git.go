package source

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/amanaz3/customer-hub-flow-sub006/pkg/config"
	"github.com/amanaz3/customer-hub-flow-sub006/pkg/rules"

	gogit "github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/transport"
	githttp "github.com/go-git/go-git/v5/plumbing/transport/http"
	"github.com/go-git/go-git/v5/plumbing/transport/ssh"
)

// GitSource loads the rule document from a file in a Git repository. The
// repository is cloned on first load and pulled on every poll.
type GitSource struct {
	cfg    config.GitRulesConfig
	logger *slog.Logger

	mu   sync.Mutex
	repo *gogit.Repository
	head string
}

// NewGitSource creates a Git source. Authentication is resolved up front so
// a bad key fails at startup.
func NewGitSource(cfg config.GitRulesConfig, logger *slog.Logger) (*GitSource, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.Repository == "" {
		return nil, errors.New("git rule source: repository URL cannot be empty")
	}
	if cfg.Branch == "" {
		return nil, errors.New("git rule source: branch cannot be empty")
	}
	if _, err := gitAuth(cfg.Auth); err != nil {
		return nil, err
	}
	return &GitSource{cfg: cfg, logger: logger}, nil
}

// Name returns "git".
func (s *GitSource) Name() string { return "git" }

// Head returns the commit the last load read from.
func (s *GitSource) Head() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.head
}

// Load clones the repository if needed and decodes the rule file at the
// current HEAD.
func (s *GitSource) Load(ctx context.Context) (*rules.RuleSet, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.ensureCloned(ctx); err != nil {
		return nil, err
	}
	ref, err := s.repo.Head()
	if err != nil {
		return nil, fmt.Errorf("failed to get HEAD: %w", err)
	}

	path := filepath.Join(s.cfg.LocalPath, s.cfg.Path)
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read rule file %q: %w", s.cfg.Path, err)
	}
	set, err := rules.Decode(data, rules.FormatFromPath(path))
	if err != nil {
		return nil, fmt.Errorf("rule file %q at %s: %w", s.cfg.Path, ref.Hash().String()[:8], err)
	}

	s.head = ref.Hash().String()
	return set, nil
}

func (s *GitSource) ensureCloned(ctx context.Context) error {
	if s.repo != nil {
		return nil
	}

	if _, err := os.Stat(filepath.Join(s.cfg.LocalPath, ".git")); err == nil {
		repo, err := gogit.PlainOpen(s.cfg.LocalPath)
		if err != nil {
			return fmt.Errorf("failed to open existing repo: %w", err)
		}
		s.repo = repo
		return nil
	}

	if err := os.MkdirAll(s.cfg.LocalPath, 0o755); err != nil {
		return fmt.Errorf("failed to create repository directory: %w", err)
	}
	auth, err := gitAuth(s.cfg.Auth)
	if err != nil {
		return err
	}

	cloneCtx, cancel := s.withTimeout(ctx)
	defer cancel()

	repo, err := gogit.PlainCloneContext(cloneCtx, s.cfg.LocalPath, false, &gogit.CloneOptions{
		URL:           s.cfg.Repository,
		ReferenceName: plumbing.NewBranchReferenceName(s.cfg.Branch),
		SingleBranch:  true,
		Auth:          auth,
	})
	if err != nil {
		return fmt.Errorf("failed to clone %s: %w", s.cfg.Repository, err)
	}
	s.repo = repo
	s.logger.Info("cloned rule repository", "repository", s.cfg.Repository, "branch", s.cfg.Branch)
	return nil
}

// Pull fetches the tracked branch and reports whether HEAD moved.
func (s *GitSource) Pull(ctx context.Context) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.ensureCloned(ctx); err != nil {
		return false, err
	}
	before, err := s.repo.Head()
	if err != nil {
		return false, fmt.Errorf("failed to get HEAD: %w", err)
	}
	wt, err := s.repo.Worktree()
	if err != nil {
		return false, fmt.Errorf("failed to get worktree: %w", err)
	}
	auth, err := gitAuth(s.cfg.Auth)
	if err != nil {
		return false, err
	}

	pullCtx, cancel := s.withTimeout(ctx)
	defer cancel()

	err = wt.PullContext(pullCtx, &gogit.PullOptions{
		RemoteName:    "origin",
		ReferenceName: plumbing.NewBranchReferenceName(s.cfg.Branch),
		SingleBranch:  true,
		Auth:          auth,
	})
	if err != nil && !errors.Is(err, gogit.NoErrAlreadyUpToDate) {
		return false, fmt.Errorf("failed to pull: %w", err)
	}

	after, err := s.repo.Head()
	if err != nil {
		return false, fmt.Errorf("failed to get new HEAD: %w", err)
	}
	return before.Hash() != after.Hash(), nil
}

// Watch pulls on every poll interval and calls onChange when HEAD moves.
func (s *GitSource) Watch(ctx context.Context, onChange func()) error {
	interval := s.cfg.PollInterval
	if interval <= 0 {
		interval = config.DefaultRulesGitPollInterval
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			changed, err := s.Pull(ctx)
			if err != nil {
				s.logger.Warn("rule repository pull failed", "repository", s.cfg.Repository, "error", err)
				continue
			}
			if changed {
				s.logger.Info("rule repository changed", "repository", s.cfg.Repository)
				onChange()
			}
		}
	}
}

func (s *GitSource) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.cfg.Timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, s.cfg.Timeout)
}

// gitAuth resolves the transport auth for cfg. Public repositories get nil.
func gitAuth(cfg config.GitAuthConfig) (transport.AuthMethod, error) {
	switch cfg.Type {
	case "", "none":
		return nil, nil
	case "token":
		if cfg.Token == "" {
			return nil, errors.New("token auth requires non-empty token")
		}
		// Any username works with a personal access token.
		return &githttp.BasicAuth{Username: "git", Password: cfg.Token}, nil
	case "ssh":
		info, err := os.Stat(cfg.SSHKeyPath)
		if err != nil {
			return nil, fmt.Errorf("failed to access SSH key file: %w", err)
		}
		if mode := info.Mode().Perm(); mode&0o077 != 0 {
			return nil, fmt.Errorf("SSH key file permissions too open (%o), should be 0600", mode)
		}
		auth, err := ssh.NewPublicKeysFromFile("git", cfg.SSHKeyPath, cfg.SSHKeyPassphrase)
		if err != nil {
			return nil, fmt.Errorf("failed to load SSH key: %w", err)
		}
		return auth, nil
	default:
		return nil, fmt.Errorf("unknown git auth type %q", cfg.Type)
	}
}
