// Package report models the outcome of a scan run and renders it for humans
// and for the append-only run log.
package report

import (
	"encoding/json"
	"fmt"
	"io"
	"text/template"
	"time"

	"github.com/google/uuid"
)

// Run statuses. Partial means some queries failed but the run still produced
// (and possibly notified) findings; fatal means the run aborted before the
// notification step.
const (
	StatusOK      = "ok"
	StatusPartial = "partial"
	StatusFatal   = "fatal"
)

// RunError records one non-fatal failure observed during a run.
type RunError struct {
	Stage   string    `json:"stage"`
	Query   string    `json:"query,omitempty"`
	Message string    `json:"message"`
	At      time.Time `json:"at"`
}

// RunSummary contains aggregated metrics about one scan run.
type RunSummary struct {
	RunID             string     `json:"run_id"`
	StartedAt         time.Time  `json:"started_at"`
	FinishedAt        time.Time  `json:"finished_at"`
	QueriesIssued     int        `json:"queries_issued"`
	ResultsFetched    int        `json:"results_fetched"`
	FindingsExtracted int        `json:"findings_extracted"`
	NewFindings       int        `json:"new_findings"`
	NotificationSent  bool       `json:"notification_sent"`
	Status            string     `json:"status"`
	Errors            []RunError `json:"errors,omitempty"`
}

// NewRunSummary starts a summary for a run beginning now.
func NewRunSummary(now time.Time) *RunSummary {
	return &RunSummary{
		RunID:     uuid.NewString(),
		StartedAt: now,
		Status:    StatusOK,
	}
}

// AddError appends a non-fatal error and downgrades the status to partial.
func (s *RunSummary) AddError(stage, query, message string, at time.Time) {
	s.Errors = append(s.Errors, RunError{Stage: stage, Query: query, Message: message, At: at})
	if s.Status == StatusOK {
		s.Status = StatusPartial
	}
}

// Duration returns the wall-clock length of the run.
func (s *RunSummary) Duration() time.Duration {
	return s.FinishedAt.Sub(s.StartedAt)
}

// WriteJSON writes the summary to the provided writer in JSON format.
func WriteJSON(w io.Writer, summary *RunSummary) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(summary); err != nil {
		return fmt.Errorf("encode summary: %w", err)
	}
	return nil
}

// WriteText writes a human-readable text summary to the provided writer.
func WriteText(w io.Writer, summary *RunSummary) error {
	const textTmpl = `Office Project Scan Summary
---------------------------
Run ID:        {{.RunID}}
Time:          {{.StartedAt.Format "2006-01-02 15:04:05"}} - {{.FinishedAt.Format "2006-01-02 15:04:05"}}
Duration:      {{.Duration}}
Status:        {{.Status}}
Queries:       {{.QueriesIssued}}
Results:       {{.ResultsFetched}}
Findings:      {{.FindingsExtracted}}
New Findings:  {{.NewFindings}}
Notified:      {{if .NotificationSent}}yes{{else}}no{{end}}

Errors:
{{- range .Errors}}
  [{{.Stage}}{{if .Query}} {{printf "%q" .Query}}{{end}}] {{.Message}}
{{- else}}
  None
{{- end}}
`

	t, err := template.New("textReport").Parse(textTmpl)
	if err != nil {
		return fmt.Errorf("parse report template: %w", err)
	}

	if err := t.Execute(w, summary); err != nil {
		return fmt.Errorf("render report: %w", err)
	}

	return nil
}
