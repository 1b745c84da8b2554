package main

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/amanaz3/customer-hub-flow-sub006/pkg/cli"
	"github.com/amanaz3/customer-hub-flow-sub006/pkg/ledger"
)

var ledgerFlags struct {
	file          string
	format        string
	minConfidence float64
	autoMatch     bool
}

var ledgerCmd = &cobra.Command{
	Use:   "ledger",
	Short: "Manage ledger records, suggestions, risk flags and settings",
}

var ledgerImportCmd = &cobra.Command{
	Use:   "import",
	Short: "Import bills, invoices, payments and receipts",
	Long: `Import records from a YAML or JSON document. The whole document is
validated before anything is written. Records without an id get a
generated one; importing the same id again replaces the record.

Example document:
  records:
    - id: bill-1001
      kind: bill
      amount: "1250.00"
      currency: AED
      date: 2024-02-01
      dueDate: 2024-03-01
      reference: INV-77
      counterparty: Acme Trading LLC`,
	RunE: runLedgerImport,
}

var ledgerSuggestionsCmd = &cobra.Command{
	Use:   "suggestions",
	Short: "List reconciliation suggestions",
	RunE: func(cmd *cobra.Command, _ []string) error {
		return withLedger("ledger suggestions", func(ctx context.Context, a *app) error {
			list, err := a.ledger.ListSuggestions(ctx)
			if err != nil {
				return err
			}
			return printResult(cmd, ledgerFlags.format, suggestionList(list))
		})
	},
}

var ledgerFlagsCmd = &cobra.Command{
	Use:   "flags",
	Short: "List risk flags",
	RunE: func(cmd *cobra.Command, _ []string) error {
		return withLedger("ledger flags", func(ctx context.Context, a *app) error {
			list, err := a.ledger.ListRiskFlags(ctx)
			if err != nil {
				return err
			}
			return printResult(cmd, ledgerFlags.format, flagList(list))
		})
	},
}

var ledgerSettingsCmd = &cobra.Command{
	Use:   "settings",
	Short: "Show or change the stored reconciliation settings",
	Long: `Show the effective reconciliation settings. With --min-confidence or
--auto-match the new values are stored and used by every later run.

Examples:
  hubflow ledger settings
  hubflow ledger settings --min-confidence 0.7 --auto-match=true`,
	RunE: runLedgerSettings,
}

func init() {
	rootCmd.AddCommand(ledgerCmd)
	ledgerCmd.AddCommand(ledgerImportCmd, ledgerSuggestionsCmd, ledgerFlagsCmd, ledgerSettingsCmd)

	ledgerCmd.PersistentFlags().StringVar(&ledgerFlags.format, "format", "text", "output format: text, json, yaml")
	ledgerImportCmd.Flags().StringVarP(&ledgerFlags.file, "file", "f", "", "import document (.yaml, .yml or .json)")
	_ = ledgerImportCmd.MarkFlagRequired("file")
	ledgerSettingsCmd.Flags().Float64Var(&ledgerFlags.minConfidence, "min-confidence", 0, "minimum confidence for a suggestion, in [0, 1]")
	ledgerSettingsCmd.Flags().BoolVar(&ledgerFlags.autoMatch, "auto-match", false, "enable auto-matching")
}

func withLedger(command string, fn func(ctx context.Context, a *app) error) error {
	cfg, logger, err := loadConfig()
	if err != nil {
		return err
	}
	ctx := context.Background()
	a, err := newApp(ctx, cfg, logger, appOptions{ledgerOnly: true})
	if err != nil {
		return cli.NewCommandError(command, err)
	}
	defer a.Close()

	if err := fn(ctx, a); err != nil {
		return cli.NewCommandError(command, err)
	}
	return nil
}

func runLedgerImport(cmd *cobra.Command, _ []string) error {
	data, err := os.ReadFile(ledgerFlags.file)
	if err != nil {
		return cli.NewCommandError("ledger import", err)
	}
	records, err := ledger.ParseImport(data, ledgerFlags.file)
	if err != nil {
		return cli.NewInvalidInputError("ledger import", err)
	}

	return withLedger("ledger import", func(ctx context.Context, a *app) error {
		counts := make(map[ledger.Kind]int)
		for i := range records {
			if err := a.ledger.SaveRecord(ctx, &records[i]); err != nil {
				return fmt.Errorf("record %d (%s): %w", i, records[i].ID, err)
			}
			counts[records[i].Kind]++
		}
		w := outWriter(cmd)
		fmt.Fprintf(w, "✓ Imported %d records from %s\n", len(records), ledgerFlags.file)
		for _, k := range []ledger.Kind{ledger.KindBill, ledger.KindPayment, ledger.KindInvoice, ledger.KindReceipt} {
			if counts[k] > 0 {
				fmt.Fprintf(w, "  %-8s %d\n", k, counts[k])
			}
		}
		return nil
	})
}

func runLedgerSettings(cmd *cobra.Command, _ []string) error {
	return withLedger("ledger settings", func(ctx context.Context, a *app) error {
		defaults := ledger.Settings{
			MinConfidenceScore: a.cfg.Reconciliation.MinConfidenceScore,
			AutoMatchEnabled:   a.cfg.Reconciliation.AutoMatchEnabled,
		}
		stored, err := a.ledger.Settings(ctx)
		if err != nil {
			return err
		}
		effective := stored.Resolve(defaults)

		changed := false
		if cmd != nil && cmd.Flags().Changed("min-confidence") {
			if ledgerFlags.minConfidence < 0 || ledgerFlags.minConfidence > 1 {
				return fmt.Errorf("--min-confidence %v outside [0, 1]", ledgerFlags.minConfidence)
			}
			effective.MinConfidenceScore = ledgerFlags.minConfidence
			changed = true
		}
		if cmd != nil && cmd.Flags().Changed("auto-match") {
			effective.AutoMatchEnabled = ledgerFlags.autoMatch
			changed = true
		}
		if changed {
			if err := a.ledger.SaveSettings(ctx, effective); err != nil {
				return err
			}
		}
		return printResult(cmd, ledgerFlags.format, settingsView(effective))
	})
}

type suggestionList []ledger.Suggestion

func (s suggestionList) WriteText(w io.Writer) error {
	if len(s) == 0 {
		fmt.Fprintln(w, "No suggestions")
		return nil
	}
	for _, sg := range s {
		fmt.Fprintf(w, "%-12s %s -> %s  confidence %.4f\n", sg.Status, sg.SourceID, sg.TargetID, sg.Confidence)
	}
	return nil
}

type flagList []ledger.RiskFlag

func (f flagList) WriteText(w io.Writer) error {
	if len(f) == 0 {
		fmt.Fprintln(w, "No risk flags")
		return nil
	}
	for _, fl := range f {
		fmt.Fprintf(w, "[%s] %-17s %s\n", fl.Severity, fl.Type, fl.Message)
	}
	return nil
}

type settingsView ledger.Settings

func (s settingsView) WriteText(w io.Writer) error {
	fmt.Fprintf(w, "Min confidence score: %g\n", s.MinConfidenceScore)
	fmt.Fprintf(w, "Auto-match enabled:   %t\n", s.AutoMatchEnabled)
	return nil
}
