package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/amanaz3/customer-hub-flow-sub006/pkg/eligibility"
)

func TestContextAttributes(t *testing.T) {
	attrs, err := contextAttributes("testdata/context.json", []string{"risk_level=low", "plan = gold"})
	if err != nil {
		t.Fatalf("contextAttributes() error = %v", err)
	}

	want := map[string]string{
		"nationality": "AE",
		"risk_level":  "low",
		"emirate":     "dubai",
		"employees":   "12",
		"vip":         "true",
		"plan":        " gold",
	}
	for k, v := range want {
		if attrs[k] != v {
			t.Errorf("attrs[%q] = %q, want %q", k, attrs[k], v)
		}
	}
	if _, ok := attrs["tags"]; ok {
		t.Error("array values should be ignored")
	}
}

func TestContextAttributes_Errors(t *testing.T) {
	notObject := filepath.Join(t.TempDir(), "list.json")
	if err := os.WriteFile(notObject, []byte(`["a"]`), 0644); err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name  string
		file  string
		pairs []string
	}{
		{"missing equals", "", []string{"nationality"}},
		{"empty key", "", []string{"=IR"}},
		{"missing file", "testdata/nonexistent.json", nil},
		{"not an object", notObject, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := contextAttributes(tt.file, tt.pairs); err == nil {
				t.Error("expected error")
			}
		})
	}
}

func TestRunEvaluate(t *testing.T) {
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
	defer func() { evaluateFlags.set, evaluateFlags.file, evaluateFlags.format = nil, "", "text" }()

	tests := []struct {
		name string
		set  []string
		want []string
	}{
		{"blocked", []string{"nationality=IR"}, []string{"Blocked: Nationality not supported", "Rule set version: 3"}},
		{"fee", []string{"risk_level=high"}, []string{"Eligible", "Additional fees:  500", "Requires document: source_of_funds"}},
		{"neutral", []string{"nationality=AE"}, []string{"Eligible", "Price multiplier: 1"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			evaluateFlags.set = tt.set
			evaluateFlags.format = "text"
			cmd, buf := captureCmd()
			if err := runEvaluate(cmd, nil); err != nil {
				t.Fatalf("runEvaluate() error = %v", err)
			}
			for _, w := range tt.want {
				if !strings.Contains(buf.String(), w) {
					t.Errorf("output missing %q:\n%s", w, buf.String())
				}
			}
		})
	}
}

func TestEvaluationText_SortedFlags(t *testing.T) {
	res := &eligibility.Result{
		PriceMultiplier: 1,
		Flags:           map[string]bool{"zeta": true, "alpha": false},
	}
	var buf bytes.Buffer
	if err := (evaluation{res}).WriteText(&buf); err != nil {
		t.Fatal(err)
	}
	out := buf.String()
	if strings.Index(out, "Flag alpha") > strings.Index(out, "Flag zeta") {
		t.Errorf("flags not sorted:\n%s", out)
	}
}
