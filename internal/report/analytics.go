package report

import "time"

// Analytics aggregates the run log over a reporting window for the weekly
// activity mail.
type Analytics struct {
	From              time.Time `json:"from"`
	To                time.Time `json:"to"`
	Runs              int       `json:"runs"`
	OKRuns            int       `json:"ok_runs"`
	PartialRuns       int       `json:"partial_runs"`
	FatalRuns         int       `json:"fatal_runs"`
	QueriesIssued     int       `json:"queries_issued"`
	ResultsFetched    int       `json:"results_fetched"`
	FindingsExtracted int       `json:"findings_extracted"`
	NewFindings       int       `json:"new_findings"`
	NotificationsSent int       `json:"notifications_sent"`
	Errors            int       `json:"errors"`
}

// Aggregate folds run summaries into window-level counts. The window bounds
// come from the earliest start and latest finish among the runs.
func Aggregate(runs []*RunSummary) Analytics {
	var a Analytics
	if len(runs) == 0 {
		return a
	}

	a.From = runs[0].StartedAt
	a.To = runs[0].FinishedAt

	for _, r := range runs {
		a.Runs++
		switch r.Status {
		case StatusOK:
			a.OKRuns++
		case StatusPartial:
			a.PartialRuns++
		case StatusFatal:
			a.FatalRuns++
		}
		a.QueriesIssued += r.QueriesIssued
		a.ResultsFetched += r.ResultsFetched
		a.FindingsExtracted += r.FindingsExtracted
		a.NewFindings += r.NewFindings
		if r.NotificationSent {
			a.NotificationsSent++
		}
		a.Errors += len(r.Errors)

		if r.StartedAt.Before(a.From) {
			a.From = r.StartedAt
		}
		if r.FinishedAt.After(a.To) {
			a.To = r.FinishedAt
		}
	}
	return a
}
