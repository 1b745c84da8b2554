package server

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/amanaz3/customer-hub-flow-sub006/pkg/reconciliation"
	"github.com/amanaz3/customer-hub-flow-sub006/pkg/rules"
	"github.com/amanaz3/customer-hub-flow-sub006/pkg/telemetry/logging"
)

// handleEvaluate evaluates a free-form attribute map. Scalar values of any
// JSON type are accepted and compared as strings; nulls, arrays and
// objects are ignored.
func (s *Server) handleEvaluate(w http.ResponseWriter, r *http.Request) {
	var body map[string]any
	if !decodeBody(w, r, &body, false) {
		return
	}

	attrs := make(map[string]string, len(body))
	for k, v := range body {
		switch v := v.(type) {
		case string:
			attrs[k] = v
		case float64, bool:
			attrs[k] = fmt.Sprint(v)
		}
	}

	writeJSON(w, http.StatusOK, s.deps.Eligibility.Evaluate(r.Context(), rules.ContextFromMap(attrs)))
}

// handleRun runs a reconciliation job and answers with its output. An
// empty body runs the configured default job.
func (s *Server) handleRun(w http.ResponseWriter, r *http.Request) {
	var job reconciliation.Job
	if !decodeBody(w, r, &job, true) {
		return
	}

	out, err := s.deps.Reconciler.Run(r.Context(), job)
	switch {
	case err == nil:
		writeJSON(w, http.StatusOK, out)
	case errors.Is(err, reconciliation.ErrInvalidJob):
		writeError(w, http.StatusBadRequest, codeInvalidJob, err.Error())
	case errors.Is(err, reconciliation.ErrRunInProgress):
		writeError(w, http.StatusConflict, codeRunInProgress, err.Error())
	default:
		logging.FromContext(r.Context(), s.logger).Error("reconciliation run failed", "error", err)
		writeError(w, http.StatusInternalServerError, codeInternal, err.Error())
	}
}

// RuleSummary describes one active rule.
type RuleSummary struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Type     string `json:"type"`
	Priority int    `json:"priority"`
	Scope    string `json:"scope,omitempty"`
}

// RulesResponse is the body of GET /v1/rules.
type RulesResponse struct {
	Version  int            `json:"version"`
	Source   string         `json:"source"`
	LoadedAt time.Time      `json:"loadedAt"`
	Counts   map[string]int `json:"counts"`
	Inactive int            `json:"inactive"`
	Rules    []RuleSummary  `json:"rules"`
}

func (s *Server) handleRules(w http.ResponseWriter, r *http.Request) {
	snap, err := s.deps.Rules.Snapshot()
	if err != nil {
		writeError(w, http.StatusServiceUnavailable, codeRulesUnavailable, err.Error())
		return
	}

	resp := RulesResponse{
		Version:  snap.Version,
		Source:   snap.Source,
		LoadedAt: snap.LoadedAt,
		Counts:   snap.Counts(),
		Inactive: snap.Inactive,
		Rules:    make([]RuleSummary, 0, len(snap.Eligibility)+len(snap.Matching)),
	}
	for _, set := range [][]rules.Rule{snap.Eligibility, snap.Matching} {
		for _, rule := range set {
			resp.Rules = append(resp.Rules, RuleSummary{
				ID:       rule.ID,
				Name:     rule.Name,
				Type:     string(rule.Type),
				Priority: rule.Priority,
				Scope:    string(rule.Scope),
			})
		}
	}
	writeJSON(w, http.StatusOK, resp)
}

// handleInvalidate drops the cached snapshot. The reload happens in the
// background, so the answer is 202.
func (s *Server) handleInvalidate(w http.ResponseWriter, r *http.Request) {
	s.deps.Rules.Invalidate()
	logging.FromContext(r.Context(), s.logger).Info("rule snapshot invalidated via API")
	writeJSON(w, http.StatusAccepted, map[string]string{"status": "reloading"})
}
