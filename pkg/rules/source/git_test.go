package source

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/amanaz3/customer-hub-flow-sub006/pkg/config"

	gogit "github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing/object"
)

func commitFile(t *testing.T, repo *gogit.Repository, dir, name, content string) {
	t.Helper()
	writeFile(t, filepath.Join(dir, name), content)

	wt, err := repo.Worktree()
	if err != nil {
		t.Fatalf("failed to get worktree: %v", err)
	}
	if _, err := wt.Add(name); err != nil {
		t.Fatalf("failed to add file: %v", err)
	}
	_, err = wt.Commit("update "+name, &gogit.CommitOptions{
		Author: &object.Signature{Name: "Test User", Email: "test@example.com", When: time.Now()},
	})
	if err != nil {
		t.Fatalf("failed to commit: %v", err)
	}
}

func TestGitSource_LoadAndPull(t *testing.T) {
	origin := t.TempDir()
	repo, err := gogit.PlainInit(origin, false)
	if err != nil {
		t.Fatalf("failed to init repo: %v", err)
	}
	commitFile(t, repo, origin, "rules.yaml", docV1)

	src, err := NewGitSource(config.GitRulesConfig{
		Repository: origin,
		Branch:     "master", // go-git init creates "master" by default
		Path:       "rules.yaml",
		LocalPath:  filepath.Join(t.TempDir(), "clone"),
		Auth:       config.GitAuthConfig{Type: "none"},
		Timeout:    30 * time.Second,
	}, testLogger())
	if err != nil {
		t.Fatalf("NewGitSource() error = %v", err)
	}

	ctx := context.Background()
	set, err := src.Load(ctx)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if set.Version != 1 {
		t.Errorf("Version = %d, want 1", set.Version)
	}
	firstHead := src.Head()

	changed, err := src.Pull(ctx)
	if err != nil {
		t.Fatalf("Pull() error = %v", err)
	}
	if changed {
		t.Error("Pull() reported a change with no new commits")
	}

	commitFile(t, repo, origin, "rules.yaml", docV2)
	changed, err = src.Pull(ctx)
	if err != nil {
		t.Fatalf("Pull() error = %v", err)
	}
	if !changed {
		t.Fatal("Pull() missed the new commit")
	}

	set, err = src.Load(ctx)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if set.Version != 2 || src.Head() == firstHead {
		t.Errorf("after pull: version %d, head %s", set.Version, src.Head())
	}
}

func TestNewGitSource_Validation(t *testing.T) {
	tests := []struct {
		name string
		cfg  config.GitRulesConfig
	}{
		{"no repository", config.GitRulesConfig{Branch: "main"}},
		{"no branch", config.GitRulesConfig{Repository: "https://example.com/r.git"}},
		{"token without token", config.GitRulesConfig{
			Repository: "https://example.com/r.git",
			Branch:     "main",
			Auth:       config.GitAuthConfig{Type: "token"},
		}},
		{"missing ssh key", config.GitRulesConfig{
			Repository: "git@example.com:r.git",
			Branch:     "main",
			Auth:       config.GitAuthConfig{Type: "ssh", SSHKeyPath: filepath.Join(os.TempDir(), "no-such-key")},
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := NewGitSource(tt.cfg, nil); err == nil {
				t.Error("expected error")
			}
		})
	}
}
