package main

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/amanaz3/customer-hub-flow-sub006/pkg/cli"
	"github.com/amanaz3/customer-hub-flow-sub006/pkg/config"
	"github.com/amanaz3/customer-hub-flow-sub006/pkg/telemetry/logging"
)

var (
	// Global flags
	cfgFile string
	envFile string
	verbose bool
)

var rootCmd = &cobra.Command{
	Use:   "hubflow",
	Short: "hubflow - rule evaluation and ledger reconciliation",
	Long: `hubflow evaluates eligibility and pricing rules against customer contexts
and reconciles bills, invoices, payments and receipts.

Rules are loaded from a YAML/JSON file, a versioned SQLite table or a Git
repository and hot-reloaded on change. Reconciliation scores candidate pairs
with the matching rules, auto-matches confident pairs and raises risk flags.`,
	Version:           Version,
	SilenceUsage:      true,
	SilenceErrors:     true,
	PersistentPreRunE: loadEnvFile,
}

// Execute runs the root command and returns the process exit code.
func Execute() int {
	err := rootCmd.Execute()
	if err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
	}
	return cli.ExitCode(err)
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "config file path (defaults plus HUBFLOW_ variables when empty)")
	rootCmd.PersistentFlags().StringVar(&envFile, "env-file", ".env", "dotenv file loaded before configuration")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "debug logging")
}

// loadEnvFile loads the dotenv file into the environment. Variables already
// set win. A missing default .env is not an error.
func loadEnvFile(cmd *cobra.Command, _ []string) error {
	if envFile == "" {
		return nil
	}
	err := godotenv.Load(envFile)
	if err == nil {
		return nil
	}
	explicit := cmd != nil && cmd.Flags().Changed("env-file")
	if errors.Is(err, fs.ErrNotExist) && !explicit {
		return nil
	}
	return cli.NewConfigError("env-file", err.Error())
}

// loadConfig loads the configuration into the process singleton and
// installs the configured logger.
func loadConfig() (*config.Config, *slog.Logger, error) {
	if err := config.ReloadConfig(cfgFile); err != nil {
		return nil, nil, cli.NewConfigError("", err.Error())
	}
	cfg := config.MustGetConfig()
	if verbose {
		cfg.Telemetry.Logging.Level = "debug"
	}
	logger, err := logging.Setup(cfg.Telemetry.Logging, os.Stderr)
	if err != nil {
		return nil, nil, cli.NewConfigError("telemetry.logging", err.Error())
	}
	return cfg, logger, nil
}

func outWriter(cmd *cobra.Command) io.Writer {
	if cmd == nil {
		return os.Stdout
	}
	return cmd.OutOrStdout()
}

func printResult(cmd *cobra.Command, format string, v any) error {
	f, err := cli.NewFormatter(cli.OutputFormat(format))
	if err != nil {
		return err
	}
	return f.FormatTo(outWriter(cmd), v)
}
