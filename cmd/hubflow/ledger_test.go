package main

import (
	"path/filepath"
	"strings"
	"testing"

	"github.com/amanaz3/customer-hub-flow-sub006/pkg/cli"
)

const memoryLedgerConfig = `
rules:
  source: memory
ledger:
  driver: memory
reconciliation:
  min_confidence_score: 0.7
telemetry:
  logging:
    level: error
  metrics:
    enabled: false
`

func TestRunLedgerImport(t *testing.T) {
	useConfig(t, memoryLedgerConfig)
	defer func() { ledgerFlags.file = "" }()

	ledgerFlags.file = "testdata/records.yaml"
	cmd, buf := captureCmd()
	if err := runLedgerImport(cmd, nil); err != nil {
		t.Fatalf("runLedgerImport() error = %v", err)
	}

	out := buf.String()
	for _, want := range []string{"Imported 3 records", "bill", "payment", "invoice"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
}

func TestRunLedgerImport_Errors(t *testing.T) {
	useConfig(t, memoryLedgerConfig)
	defer func() { ledgerFlags.file = "" }()

	tests := []struct {
		name     string
		file     string
		wantCode int
	}{
		{"invalid records", "testdata/records-invalid.yaml", cli.ExitInvalid},
		{"missing file", filepath.Join(t.TempDir(), "none.yaml"), cli.ExitFailure},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ledgerFlags.file = tt.file
			err := runLedgerImport(nil, nil)
			if got := cli.ExitCode(err); got != tt.wantCode {
				t.Errorf("exit code = %d, want %d (err %v)", got, tt.wantCode, err)
			}
		})
	}
}

func TestRunLedgerSettings_Defaults(t *testing.T) {
	useConfig(t, memoryLedgerConfig)
	defer func() { ledgerFlags.format = "text" }()

	ledgerFlags.format = "text"
	cmd, buf := captureCmd()
	if err := runLedgerSettings(cmd, nil); err != nil {
		t.Fatalf("runLedgerSettings() error = %v", err)
	}
	if !strings.Contains(buf.String(), "Min confidence score: 0.7") {
		t.Errorf("settings should fall back to config defaults:\n%s", buf.String())
	}
	if !strings.Contains(buf.String(), "Auto-match enabled:   false") {
		t.Errorf("unexpected output:\n%s", buf.String())
	}
}

func TestLedgerListings_Empty(t *testing.T) {
	useConfig(t, memoryLedgerConfig)

	cmd, buf := captureCmd()
	if err := ledgerSuggestionsCmd.RunE(cmd, nil); err != nil {
		t.Fatalf("suggestions error = %v", err)
	}
	if err := ledgerFlagsCmd.RunE(cmd, nil); err != nil {
		t.Fatalf("flags error = %v", err)
	}
	out := buf.String()
	if !strings.Contains(out, "No suggestions") || !strings.Contains(out, "No risk flags") {
		t.Errorf("unexpected output:\n%s", out)
	}
}
