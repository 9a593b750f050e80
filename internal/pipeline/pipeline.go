// Package pipeline orchestrates one scan run: query generation, provider
// fan-out, extraction, deduplication, and the digest notification.
package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/argyx/officetrack/internal/extract"
	"github.com/argyx/officetrack/internal/fingerprint"
	"github.com/argyx/officetrack/internal/metrics"
	"github.com/argyx/officetrack/internal/report"
	"github.com/argyx/officetrack/internal/search"
	"github.com/argyx/officetrack/internal/store"
)

// QuerySource produces the query set for a run.
type QuerySource interface {
	Generate() []search.Query
}

// Enricher replaces result snippets with fetched page text where possible.
type Enricher interface {
	Enrich(ctx context.Context, results []search.Result)
}

// Digester delivers the new-findings digest.
type Digester interface {
	SendDigest(ctx context.Context, findings []*extract.Finding, now time.Time) error
}

// Config wires the pipeline stages together.
type Config struct {
	Queries   QuerySource
	Providers []search.Provider
	Enricher  Enricher // optional page-text enrichment
	Extractor *extract.Extractor
	Store     store.Store
	Notifier  Digester

	// Concurrency bounds the number of in-flight provider calls.
	Concurrency int

	Logger *slog.Logger
	Now    func() time.Time
}

// Pipeline executes scan runs.
type Pipeline struct {
	cfg Config
	log *slog.Logger
	now func() time.Time
}

// New validates the wiring and returns a Pipeline.
func New(cfg Config) (*Pipeline, error) {
	if cfg.Queries == nil {
		return nil, fmt.Errorf("pipeline: query source is nil")
	}
	if len(cfg.Providers) == 0 {
		return nil, fmt.Errorf("pipeline: no search providers")
	}
	if cfg.Extractor == nil {
		return nil, fmt.Errorf("pipeline: extractor is nil")
	}
	if cfg.Store == nil {
		return nil, fmt.Errorf("pipeline: store is nil")
	}
	if cfg.Notifier == nil {
		return nil, fmt.Errorf("pipeline: notifier is nil")
	}
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = 3
	}
	log := cfg.Logger
	if log == nil {
		log = slog.Default()
	}
	now := cfg.Now
	if now == nil {
		now = time.Now
	}
	return &Pipeline{cfg: cfg, log: log, now: now}, nil
}

// Run executes one full scan. The returned summary is always usable, even
// when err is non-nil; err reports fatal conditions that aborted the run
// before notification.
func (p *Pipeline) Run(ctx context.Context) (*report.RunSummary, error) {
	start := p.now()
	summary := report.NewRunSummary(start)
	defer func() {
		summary.FinishedAt = p.now()
		metrics.RunDuration.Observe(summary.Duration().Seconds())
	}()

	queries := p.cfg.Queries.Generate()
	summary.QueriesIssued = len(queries)
	p.log.Info("run started", "run_id", summary.RunID, "queries", len(queries))

	results := p.searchAll(ctx, queries, summary)
	if ctx.Err() != nil {
		summary.AddError("search", "", ctx.Err().Error(), p.now())
		summary.Status = report.StatusFatal
		return summary, ctx.Err()
	}
	summary.ResultsFetched = len(results)

	if p.cfg.Enricher != nil {
		p.cfg.Enricher.Enrich(ctx, results)
	}

	findings := p.extractAll(results)
	summary.FindingsExtracted = len(findings)

	fresh, fps, err := p.dedupe(ctx, findings)
	if err != nil {
		summary.AddError("store", "", err.Error(), p.now())
		summary.Status = report.StatusFatal
		return summary, fmt.Errorf("dedupe findings: %w", err)
	}

	if err := p.cfg.Notifier.SendDigest(ctx, fresh, p.now()); err != nil {
		// Nothing is recorded as seen, so the next run retries these
		// findings rather than silently dropping them.
		summary.AddError("notify", "", err.Error(), p.now())
		metrics.ErrorsTotal.WithLabelValues("notify").Inc()
		p.log.Error("digest delivery failed, findings stay unrecorded", "error", err)
	} else if len(fresh) > 0 {
		if err := p.cfg.Store.RecordBatch(ctx, fps, p.now()); err != nil {
			// The digest went out but the seen-set write failed; the
			// next run may notify these again. Surface it loudly.
			summary.AddError("store", "", err.Error(), p.now())
			summary.Status = report.StatusFatal
			return summary, fmt.Errorf("record fingerprints: %w", err)
		}
		summary.NotificationSent = true
		metrics.DigestsSentTotal.Inc()
	}
	summary.NewFindings = len(fresh)

	p.log.Info("run finished",
		"run_id", summary.RunID,
		"status", summary.Status,
		"results", summary.ResultsFetched,
		"findings", summary.FindingsExtracted,
		"new", summary.NewFindings)
	return summary, nil
}

// searchAll fans queries out across providers with bounded concurrency.
// Results come back in (query, provider) order regardless of completion
// order, so a run over the same inputs is deterministic. A fatal provider
// error (quota, auth) cancels the remaining slots but keeps everything
// fetched so far: the rest of the pipeline still processes those results.
func (p *Pipeline) searchAll(ctx context.Context, queries []search.Query, summary *report.RunSummary) []search.Result {
	type slot struct {
		query    search.Query
		provider search.Provider
	}

	slots := make([]slot, 0, len(queries)*len(p.cfg.Providers))
	for _, q := range queries {
		for _, prov := range p.cfg.Providers {
			slots = append(slots, slot{query: q, provider: prov})
		}
	}

	sctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var mu sync.Mutex
	aborted := false
	perSlot := make([][]search.Result, len(slots))

	var g errgroup.Group
	g.SetLimit(p.cfg.Concurrency)

	for i, s := range slots {
		g.Go(func() error {
			if sctx.Err() != nil {
				return nil
			}

			results, err := s.provider.Search(sctx, s.query)
			if err != nil {
				metrics.QueriesTotal.WithLabelValues(s.provider.Name(), "error").Inc()
				metrics.ErrorsTotal.WithLabelValues("search").Inc()
				mu.Lock()
				if search.IsFatal(err) {
					// Quota or rejected credentials: every further call
					// would fail the same way, so record it once.
					if !aborted {
						aborted = true
						summary.AddError("search", s.query.Text, err.Error(), p.now())
						p.log.Error("search aborted",
							"provider", s.provider.Name(), "query", s.query.Text, "error", err)
					}
					mu.Unlock()
					cancel()
					return nil
				}
				summary.AddError("search", s.query.Text, err.Error(), p.now())
				mu.Unlock()
				p.log.Warn("query failed",
					"provider", s.provider.Name(), "query", s.query.Text, "error", err)
				return nil
			}

			metrics.QueriesTotal.WithLabelValues(s.provider.Name(), "ok").Inc()
			metrics.ResultsTotal.WithLabelValues(s.provider.Name()).Add(float64(len(results)))
			perSlot[i] = results
			return nil
		})
	}

	_ = g.Wait()

	var merged []search.Result
	for _, rs := range perSlot {
		merged = append(merged, rs...)
	}
	return merged
}

func (p *Pipeline) extractAll(results []search.Result) []*extract.Finding {
	now := p.now()
	var findings []*extract.Finding
	for i := range results {
		f := p.cfg.Extractor.Extract(results[i], now)
		if f == nil {
			continue
		}
		metrics.FindingsTotal.WithLabelValues(string(f.Language)).Inc()
		findings = append(findings, f)
	}
	return findings
}

// dedupe drops findings already recorded in the store or repeated within
// this run. Store errors are fatal: without the seen-set the run cannot
// honor its no-duplicate-notification guarantee.
func (p *Pipeline) dedupe(ctx context.Context, findings []*extract.Finding) ([]*extract.Finding, []fingerprint.Fingerprint, error) {
	inRun := make(map[fingerprint.Fingerprint]struct{}, len(findings))

	var fresh []*extract.Finding
	var fps []fingerprint.Fingerprint
	for _, f := range findings {
		fp := fingerprint.Of(f)
		if _, dup := inRun[fp]; dup {
			continue
		}
		inRun[fp] = struct{}{}

		isNew, err := p.cfg.Store.IsNew(ctx, fp)
		if err != nil {
			return nil, nil, err
		}
		if !isNew {
			continue
		}

		metrics.NewFindingsTotal.Inc()
		fresh = append(fresh, f)
		fps = append(fps, fp)
	}
	return fresh, fps, nil
}
