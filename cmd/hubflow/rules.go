package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"

	"github.com/amanaz3/customer-hub-flow-sub006/pkg/cli"
	"github.com/amanaz3/customer-hub-flow-sub006/pkg/config"
	"github.com/amanaz3/customer-hub-flow-sub006/pkg/rules"
	"github.com/amanaz3/customer-hub-flow-sub006/pkg/rules/notify"
	"github.com/amanaz3/customer-hub-flow-sub006/pkg/rules/source"
)

var rulesFlags struct {
	file   string
	format string
	strict bool
	author string
	limit  int
}

var rulesCmd = &cobra.Command{
	Use:   "rules",
	Short: "Validate and publish rule documents",
}

var rulesLintCmd = &cobra.Command{
	Use:   "lint",
	Short: "Validate a rule document and report suspicious rules",
	Long: `Validate a rule document the same way the rule store does before it
loads one, then report rules that load but probably do not do what their
author meant.

Exit codes:
  0  document is valid (warnings allowed unless --strict)
  3  document is invalid, or has warnings with --strict`,
	Example: `  hubflow rules lint --file rules.yaml
  hubflow rules lint --file rules.json --strict`,
	RunE: runRulesLint,
}

var rulesPublishCmd = &cobra.Command{
	Use:   "publish",
	Short: "Publish a rule document as the new active SQLite version",
	Long: `Validate a rule document, store it as the new active version in the
SQLite rule table and announce the change on the configured notification
backend so running servers reload.`,
	Example: `  hubflow rules publish --file rules.yaml --author ops@example.com`,
	RunE:    runRulesPublish,
}

var rulesVersionsCmd = &cobra.Command{
	Use:   "versions",
	Short: "List stored SQLite rule versions",
	RunE:  runRulesVersions,
}

var rulesActivateCmd = &cobra.Command{
	Use:   "activate VERSION",
	Short: "Make a stored SQLite rule version the active one",
	Args:  cobra.ExactArgs(1),
	RunE:  runRulesActivate,
}

func init() {
	rootCmd.AddCommand(rulesCmd)
	rulesCmd.AddCommand(rulesLintCmd, rulesPublishCmd, rulesVersionsCmd, rulesActivateCmd)

	rulesCmd.PersistentFlags().StringVar(&rulesFlags.format, "format", "text", "output format: text, json, yaml")

	rulesLintCmd.Flags().StringVarP(&rulesFlags.file, "file", "f", "", "rule document (.yaml, .yml or .json)")
	rulesLintCmd.Flags().BoolVar(&rulesFlags.strict, "strict", false, "treat warnings as failures")
	_ = rulesLintCmd.MarkFlagRequired("file")

	rulesPublishCmd.Flags().StringVarP(&rulesFlags.file, "file", "f", "", "rule document (.yaml, .yml or .json)")
	rulesPublishCmd.Flags().StringVar(&rulesFlags.author, "author", os.Getenv("USER"), "recorded as the publisher")
	_ = rulesPublishCmd.MarkFlagRequired("file")

	rulesVersionsCmd.Flags().IntVar(&rulesFlags.limit, "limit", 20, "maximum number of versions")
}

// lintReport is the result of rules lint.
type lintReport struct {
	File     string          `json:"file" yaml:"file"`
	Valid    bool            `json:"valid" yaml:"valid"`
	Version  int             `json:"version,omitempty" yaml:"version,omitempty"`
	Rules    int             `json:"rules" yaml:"rules"`
	Problems []rules.Problem `json:"problems,omitempty" yaml:"problems,omitempty"`
	Findings []rules.Finding `json:"findings,omitempty" yaml:"findings,omitempty"`
}

func (r lintReport) warnings() int {
	n := 0
	for _, f := range r.Findings {
		if f.Severity == rules.SeverityWarning {
			n++
		}
	}
	return n
}

func (r lintReport) WriteText(w io.Writer) error {
	if !r.Valid {
		fmt.Fprintf(w, "✗ %s is invalid (%d problems)\n", r.File, len(r.Problems))
		for _, p := range r.Problems {
			fmt.Fprintf(w, "  %s: %s\n", p.Path, p.Message)
		}
		return nil
	}
	fmt.Fprintf(w, "✓ %s is valid: version %d, %d rules\n", r.File, r.Version, r.Rules)
	for _, f := range r.Findings {
		fmt.Fprintf(w, "  %s\n", f)
	}
	return nil
}

// lintDocument decodes data and lints the compiled rules. Decode errors
// other than validation problems are returned as errors.
func lintDocument(path string, data []byte) (lintReport, error) {
	report := lintReport{File: path}
	set, err := rules.Decode(data, rules.FormatFromPath(path))
	if err != nil {
		var verr *rules.ValidationError
		if errors.As(err, &verr) {
			report.Problems = verr.Problems
			return report, nil
		}
		return report, err
	}
	report.Valid = true
	report.Version = set.Version
	report.Rules = len(set.Rules)
	report.Findings = rules.Lint(set.Rules)
	return report, nil
}

func runRulesLint(cmd *cobra.Command, _ []string) error {
	data, err := os.ReadFile(rulesFlags.file)
	if err != nil {
		return cli.NewCommandError("rules lint", err)
	}
	report, err := lintDocument(rulesFlags.file, data)
	if err != nil {
		return cli.NewInvalidInputError("rules lint", err)
	}
	if err := printResult(cmd, rulesFlags.format, report); err != nil {
		return err
	}

	switch {
	case !report.Valid:
		return cli.NewInvalidInputError("rules lint", fmt.Errorf("%s has %d problems", rulesFlags.file, len(report.Problems)))
	case rulesFlags.strict && report.warnings() > 0:
		return cli.NewInvalidInputError("rules lint", fmt.Errorf("%s has %d warnings", rulesFlags.file, report.warnings()))
	}
	return nil
}

// openSQLiteRules opens the configured SQLite rule table regardless of
// the active rule source.
func openSQLiteRules() (*config.Config, *source.SQLiteSource, error) {
	cfg, logger, err := loadConfig()
	if err != nil {
		return nil, nil, err
	}
	src, err := source.OpenSQLiteSource(cfg.Rules.SQLite, logger)
	if err != nil {
		return nil, nil, err
	}
	return cfg, src, nil
}

func runRulesPublish(cmd *cobra.Command, _ []string) error {
	data, err := os.ReadFile(rulesFlags.file)
	if err != nil {
		return cli.NewCommandError("rules publish", err)
	}
	cfg, src, err := openSQLiteRules()
	if err != nil {
		return cli.NewCommandError("rules publish", err)
	}
	defer src.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	version, err := src.Publish(ctx, data, rules.FormatFromPath(rulesFlags.file), rulesFlags.author)
	if err != nil {
		var verr *rules.ValidationError
		if errors.As(err, &verr) {
			return cli.NewInvalidInputError("rules publish", err)
		}
		return cli.NewCommandError("rules publish", err)
	}
	fmt.Fprintf(outWriter(cmd), "✓ Published rule version %d from %s\n", version, rulesFlags.file)

	if err := announce(ctx, cfg, version); err != nil {
		// The version is stored; servers pick it up on their next poll or
		// restart.
		return cli.NewCommandError("rules publish", fmt.Errorf("version %d stored but not announced: %w", version, err))
	}
	return nil
}

// announce publishes a rule change on the configured backend.
func announce(ctx context.Context, cfg *config.Config, version int64) error {
	if cfg.Rules.Notifications.Backend == "none" {
		return nil
	}
	var rdb redis.UniversalClient
	if cfg.Rules.Notifications.Backend == "redis" {
		client := newRedisClient(cfg.Redis)
		defer client.Close()
		rdb = client
	}
	n, err := notify.New(cfg, rdb, nil)
	if err != nil {
		return err
	}
	defer n.Close()
	return n.Publish(ctx, notify.Change{
		Source:      "sqlite",
		Version:     int(version),
		PublishedBy: rulesFlags.author,
	})
}

func runRulesVersions(cmd *cobra.Command, _ []string) error {
	_, src, err := openSQLiteRules()
	if err != nil {
		return cli.NewCommandError("rules versions", err)
	}
	defer src.Close()

	list, err := src.Versions(context.Background(), rulesFlags.limit)
	if err != nil {
		return cli.NewCommandError("rules versions", err)
	}
	return printResult(cmd, rulesFlags.format, versionList(list))
}

func runRulesActivate(cmd *cobra.Command, args []string) error {
	version, err := strconv.ParseInt(args[0], 10, 64)
	if err != nil || version <= 0 {
		return cli.NewInvalidInputError("rules activate", fmt.Errorf("invalid version %q", args[0]))
	}
	cfg, src, err := openSQLiteRules()
	if err != nil {
		return cli.NewCommandError("rules activate", err)
	}
	defer src.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := src.Activate(ctx, version); err != nil {
		return cli.NewCommandError("rules activate", err)
	}
	fmt.Fprintf(outWriter(cmd), "✓ Rule version %d is active\n", version)
	if err := announce(ctx, cfg, version); err != nil {
		return cli.NewCommandError("rules activate", fmt.Errorf("version %d active but not announced: %w", version, err))
	}
	return nil
}

type versionList []source.VersionInfo

func (v versionList) WriteText(w io.Writer) error {
	if len(v) == 0 {
		fmt.Fprintln(w, "No rule versions")
		return nil
	}
	for _, vi := range v {
		active := " "
		if vi.Active {
			active = "*"
		}
		fmt.Fprintf(w, "%s %4d  %-4s  %s  %s  %.12s\n", active, vi.Version, vi.Format,
			vi.PublishedAt.Format(time.RFC3339), vi.PublishedBy, vi.Checksum)
	}
	return nil
}
