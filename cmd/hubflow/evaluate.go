package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"maps"
	"os"
	"slices"
	"strings"

	"github.com/spf13/cobra"

	"github.com/amanaz3/customer-hub-flow-sub006/pkg/cli"
	"github.com/amanaz3/customer-hub-flow-sub006/pkg/eligibility"
	"github.com/amanaz3/customer-hub-flow-sub006/pkg/rules"
)

var evaluateFlags struct {
	set    []string
	file   string
	format string
}

var evaluateCmd = &cobra.Command{
	Use:   "evaluate",
	Short: "Evaluate a context against the eligibility and pricing rules",
	Long: `Evaluate one context against the configured rule source and print the
result. Attributes come from --set key=value pairs, a JSON object file, or
both; --set wins on conflicts.

Examples:
  hubflow evaluate --set nationality=IR
  hubflow evaluate --set risk_level=high --set jurisdiction_type=freezone --format json
  hubflow evaluate --file context.json`,
	RunE: runEvaluate,
}

func init() {
	rootCmd.AddCommand(evaluateCmd)

	evaluateCmd.Flags().StringArrayVar(&evaluateFlags.set, "set", nil, "context attribute as key=value (repeatable)")
	evaluateCmd.Flags().StringVarP(&evaluateFlags.file, "file", "f", "", "JSON file holding the context object (- for stdin)")
	evaluateCmd.Flags().StringVar(&evaluateFlags.format, "format", "text", "output format: text, json, yaml")
}

func runEvaluate(cmd *cobra.Command, _ []string) error {
	attrs, err := contextAttributes(evaluateFlags.file, evaluateFlags.set)
	if err != nil {
		return cli.NewInvalidInputError("evaluate", err)
	}

	cfg, logger, err := loadConfig()
	if err != nil {
		return err
	}
	ctx := context.Background()
	a, err := newApp(ctx, cfg, logger, appOptions{})
	if err != nil {
		return cli.NewCommandError("evaluate", err)
	}
	defer a.Close()

	if err := a.rules.Refresh(ctx); err != nil {
		logger.Warn("rules unavailable, result will be neutral", "error", err)
	}

	res := eligibility.NewEngine(a.rules, logger, a.metrics, a.tracer).Evaluate(ctx, rules.ContextFromMap(attrs))
	return printResult(cmd, evaluateFlags.format, evaluation{res})
}

// contextAttributes merges the file object with key=value pairs.
func contextAttributes(file string, pairs []string) (map[string]string, error) {
	attrs := make(map[string]string)
	if file != "" {
		var data []byte
		var err error
		if file == "-" {
			data, err = io.ReadAll(os.Stdin)
		} else {
			data, err = os.ReadFile(file)
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read context file: %w", err)
		}
		var obj map[string]any
		if err := json.Unmarshal(data, &obj); err != nil {
			return nil, fmt.Errorf("context file %s is not a JSON object: %w", file, err)
		}
		for k, v := range obj {
			switch v := v.(type) {
			case string:
				attrs[k] = v
			case float64, bool:
				attrs[k] = fmt.Sprint(v)
			}
		}
	}
	for _, p := range pairs {
		k, v, ok := strings.Cut(p, "=")
		if !ok || strings.TrimSpace(k) == "" {
			return nil, fmt.Errorf("invalid --set %q, want key=value", p)
		}
		attrs[strings.TrimSpace(k)] = v
	}
	return attrs, nil
}

// evaluation renders an eligibility result.
type evaluation struct {
	*eligibility.Result
}

func (e evaluation) MarshalJSON() ([]byte, error) {
	return json.Marshal(e.Result)
}

func (e evaluation) MarshalYAML() (any, error) {
	return e.Result, nil
}

func (e evaluation) WriteText(w io.Writer) error {
	r := e.Result
	if r.Degraded {
		fmt.Fprintln(w, "⚠  No rules loaded, neutral result")
	} else {
		fmt.Fprintf(w, "Rule set version: %d\n", r.RuleSetVersion)
	}
	if r.Blocked {
		fmt.Fprintf(w, "✗ Blocked: %s\n", r.BlockMessage)
	} else {
		fmt.Fprintln(w, "✓ Eligible")
	}
	fmt.Fprintf(w, "Price multiplier: %g\n", r.PriceMultiplier)
	fmt.Fprintf(w, "Additional fees:  %g\n", r.AdditionalFees)
	if r.ProcessingTimeDays != nil {
		fmt.Fprintf(w, "Processing time:  %d days\n", *r.ProcessingTimeDays)
	}
	for _, d := range r.RequiredDocuments {
		fmt.Fprintf(w, "Requires document: %s\n", d)
	}
	for _, name := range slices.Sorted(maps.Keys(r.Flags)) {
		fmt.Fprintf(w, "Flag %s = %t\n", name, r.Flags[name])
	}
	for _, msg := range r.Warnings {
		fmt.Fprintf(w, "⚠  %s\n", msg)
	}
	if len(r.AppliedRules) > 0 {
		fmt.Fprintf(w, "Applied rules: %s\n", strings.Join(r.AppliedRules, ", "))
	}
	return nil
}
