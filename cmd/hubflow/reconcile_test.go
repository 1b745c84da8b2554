package main

import (
	"strings"
	"testing"

	"github.com/amanaz3/customer-hub-flow-sub006/pkg/cli"
)

func useRulesFileConfig(t *testing.T) {
	t.Helper()
	useConfig(t, `
rules:
  source: file
  file:
    path: `+testdataPath(t, "rules-valid.yaml")+`
    watch: false
ledger:
  driver: memory
telemetry:
  logging:
    level: error
  metrics:
    enabled: false
`)
}

func TestRunReconcile_EmptyLedger(t *testing.T) {
	useRulesFileConfig(t)
	defer func() { reconcileFlags.jobType, reconcileFlags.format = "", "text" }()

	reconcileFlags.jobType = "payable"
	reconcileFlags.format = "text"
	cmd, buf := captureCmd()
	if err := runReconcile(cmd, nil); err != nil {
		t.Fatalf("runReconcile() error = %v", err)
	}
	out := buf.String()
	for _, want := range []string{"(payable, rules v3)", "Pairs scored:  0", "Auto-matched:  0"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
}

func TestRunReconcile_InvalidJobType(t *testing.T) {
	useRulesFileConfig(t)
	defer func() { reconcileFlags.jobType = "" }()

	reconcileFlags.jobType = "expenses"
	err := runReconcile(nil, nil)
	if got := cli.ExitCode(err); got != cli.ExitInvalid {
		t.Errorf("exit code = %d, want %d (err %v)", got, cli.ExitInvalid, err)
	}
}
