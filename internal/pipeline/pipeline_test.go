package pipeline

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/argyx/officetrack/internal/extract"
	"github.com/argyx/officetrack/internal/fingerprint"
	"github.com/argyx/officetrack/internal/report"
	"github.com/argyx/officetrack/internal/search"
)

type staticQueries []search.Query

func (s staticQueries) Generate() []search.Query { return s }

type fakeProvider struct {
	name    string
	results map[string][]search.Result // keyed by query text
	errOn   string                     // query text that fails
	err     error

	mu    sync.Mutex
	calls []string
}

func (f *fakeProvider) Name() string { return f.name }

func (f *fakeProvider) Search(ctx context.Context, q search.Query) ([]search.Result, error) {
	f.mu.Lock()
	f.calls = append(f.calls, q.Text)
	f.mu.Unlock()
	if f.errOn != "" && q.Text == f.errOn {
		return nil, f.err
	}
	return f.results[q.Text], nil
}

func (f *fakeProvider) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

type memStore struct {
	mu         sync.Mutex
	seen       map[fingerprint.Fingerprint]struct{}
	recorded   int
	failIsNew  bool
	failRecord bool
}

func newMemStore() *memStore {
	return &memStore{seen: make(map[fingerprint.Fingerprint]struct{})}
}

func (m *memStore) IsNew(ctx context.Context, fp fingerprint.Fingerprint) (bool, error) {
	if m.failIsNew {
		return false, errors.New("store unavailable")
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.seen[fp]
	return !ok, nil
}

func (m *memStore) Record(ctx context.Context, fp fingerprint.Fingerprint, firstSeen time.Time) error {
	return m.RecordBatch(ctx, []fingerprint.Fingerprint{fp}, firstSeen)
}

func (m *memStore) RecordBatch(ctx context.Context, fps []fingerprint.Fingerprint, firstSeen time.Time) error {
	if m.failRecord {
		return errors.New("write failed")
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, fp := range fps {
		if _, dup := m.seen[fp]; !dup {
			m.seen[fp] = struct{}{}
			m.recorded++
		}
	}
	return nil
}

func (m *memStore) Count(ctx context.Context) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return int64(len(m.seen)), nil
}

func (m *memStore) Close() error { return nil }

type fakeDigest struct {
	calls int
	got   []*extract.Finding
	err   error
}

func (f *fakeDigest) SendDigest(ctx context.Context, findings []*extract.Finding, now time.Time) error {
	f.calls++
	if f.err != nil {
		return f.err
	}
	f.got = findings
	return nil
}

func acmeResult(q search.Query) search.Result {
	return search.Result{
		Title:   "Acme Ltd opens new Athens offices",
		Snippet: "Acme Ltd announced a new office in Marousi, Greece this week.",
		URL:     "https://example.com/acme-marousi",
		Query:   q,
	}
}

func betaResult(q search.Query) search.Result {
	return search.Result{
		Title:   "Beta Properties expands",
		Snippet: "Beta Properties Ltd leased new premises in Athens, Greece.",
		URL:     "https://example.com/beta-athens",
		Query:   q,
	}
}

func newTestPipeline(t *testing.T, cfg Config) *Pipeline {
	t.Helper()
	if cfg.Extractor == nil {
		cfg.Extractor = extract.New(nil)
	}
	if cfg.Concurrency == 0 {
		cfg.Concurrency = 2
	}
	p, err := New(cfg)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return p
}

func TestRun_EndToEnd(t *testing.T) {
	q1 := search.Query{Text: "office relocation Athens", Language: search.English}
	q2 := search.Query{Text: "office lease Athens", Language: search.English}

	provider := &fakeProvider{
		name: "fake",
		results: map[string][]search.Result{
			q1.Text: {acmeResult(q1)},
			q2.Text: {betaResult(q2)},
		},
	}
	st := newMemStore()
	digest := &fakeDigest{}

	p := newTestPipeline(t, Config{
		Queries:   staticQueries{q1, q2},
		Providers: []search.Provider{provider},
		Store:     st,
		Notifier:  digest,
	})

	summary, err := p.Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	if summary.Status != report.StatusOK {
		t.Errorf("status = %q, want %q", summary.Status, report.StatusOK)
	}
	if summary.QueriesIssued != 2 || summary.ResultsFetched != 2 {
		t.Errorf("counts wrong: %+v", summary)
	}
	if summary.NewFindings != 2 || !summary.NotificationSent {
		t.Errorf("notification state wrong: %+v", summary)
	}
	if digest.calls != 1 || len(digest.got) != 2 {
		t.Fatalf("digest calls=%d findings=%d, want 1 call with 2 findings", digest.calls, len(digest.got))
	}
	// Slot ordering keeps findings in query order regardless of which
	// provider call finished first.
	if digest.got[0].Company != "Acme Ltd" || digest.got[1].Company != "Beta Properties Ltd" {
		t.Errorf("finding order wrong: %q, %q", digest.got[0].Company, digest.got[1].Company)
	}
	if st.recorded != 2 {
		t.Errorf("recorded %d fingerprints, want 2", st.recorded)
	}
}

func TestRun_SecondRunIsQuiet(t *testing.T) {
	q := search.Query{Text: "office relocation Athens", Language: search.English}
	provider := &fakeProvider{
		name:    "fake",
		results: map[string][]search.Result{q.Text: {acmeResult(q)}},
	}
	st := newMemStore()
	digest := &fakeDigest{}

	p := newTestPipeline(t, Config{
		Queries:   staticQueries{q},
		Providers: []search.Provider{provider},
		Store:     st,
		Notifier:  digest,
	})

	if _, err := p.Run(context.Background()); err != nil {
		t.Fatalf("first run: %v", err)
	}
	summary, err := p.Run(context.Background())
	if err != nil {
		t.Fatalf("second run: %v", err)
	}

	if summary.NewFindings != 0 {
		t.Errorf("second run found %d new findings, want 0", summary.NewFindings)
	}
	if summary.NotificationSent {
		t.Error("second run must not mark a notification as sent")
	}
	if st.recorded != 1 {
		t.Errorf("recorded %d fingerprints across runs, want 1", st.recorded)
	}
}

func TestRun_InRunDuplicateCollapses(t *testing.T) {
	q1 := search.Query{Text: "office relocation Athens", Language: search.English}
	q2 := search.Query{Text: "new headquarters Athens", Language: search.English}

	// Both queries surface the same article.
	provider := &fakeProvider{
		name: "fake",
		results: map[string][]search.Result{
			q1.Text: {acmeResult(q1)},
			q2.Text: {acmeResult(q2)},
		},
	}
	st := newMemStore()
	digest := &fakeDigest{}

	p := newTestPipeline(t, Config{
		Queries:   staticQueries{q1, q2},
		Providers: []search.Provider{provider},
		Store:     st,
		Notifier:  digest,
	})

	summary, err := p.Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if summary.NewFindings != 1 {
		t.Errorf("NewFindings = %d, want 1", summary.NewFindings)
	}
	if len(digest.got) != 1 {
		t.Errorf("digest got %d findings, want 1", len(digest.got))
	}
	if st.recorded != 1 {
		t.Errorf("recorded %d fingerprints, want 1", st.recorded)
	}
}

func TestRun_QueryFailureIsPartial(t *testing.T) {
	q1 := search.Query{Text: "office relocation Athens", Language: search.English}
	q2 := search.Query{Text: "office lease Athens", Language: search.English}

	provider := &fakeProvider{
		name:    "fake",
		results: map[string][]search.Result{q2.Text: {betaResult(q2)}},
		errOn:   q1.Text,
		err:     errors.New("upstream 503"),
	}
	st := newMemStore()
	digest := &fakeDigest{}

	p := newTestPipeline(t, Config{
		Queries:   staticQueries{q1, q2},
		Providers: []search.Provider{provider},
		Store:     st,
		Notifier:  digest,
	})

	summary, err := p.Run(context.Background())
	if err != nil {
		t.Fatalf("Run should survive a single query failure: %v", err)
	}
	if summary.Status != report.StatusPartial {
		t.Errorf("status = %q, want %q", summary.Status, report.StatusPartial)
	}
	if len(summary.Errors) != 1 || summary.Errors[0].Query != q1.Text {
		t.Errorf("errors = %+v", summary.Errors)
	}
	if summary.NewFindings != 1 {
		t.Errorf("NewFindings = %d, want 1", summary.NewFindings)
	}
}

func TestRun_QuotaAbortsRemainingSearch(t *testing.T) {
	q1 := search.Query{Text: "office relocation Athens", Language: search.English}
	q2 := search.Query{Text: "office lease Athens", Language: search.English}

	provider := &fakeProvider{
		name:    "fake",
		results: map[string][]search.Result{q2.Text: {betaResult(q2)}},
		errOn:   q1.Text,
		err:     search.ErrQuotaExceeded,
	}
	digest := &fakeDigest{}

	p := newTestPipeline(t, Config{
		Queries:     staticQueries{q1, q2},
		Providers:   []search.Provider{provider},
		Store:       newMemStore(),
		Notifier:    digest,
		Concurrency: 1,
	})

	summary, err := p.Run(context.Background())
	if err != nil {
		t.Fatalf("quota must not fail the whole run: %v", err)
	}
	if summary.Status != report.StatusPartial {
		t.Errorf("status = %q, want %q", summary.Status, report.StatusPartial)
	}
	// Serialized slots: the quota hit on the first query must skip the second.
	if provider.callCount() != 1 {
		t.Errorf("provider called %d times after quota, want 1", provider.callCount())
	}
	if summary.ResultsFetched != 0 {
		t.Errorf("ResultsFetched = %d, want 0", summary.ResultsFetched)
	}
	if len(summary.Errors) != 1 || !strings.Contains(summary.Errors[0].Message, "quota") {
		t.Errorf("errors = %+v", summary.Errors)
	}
}

func TestRun_QuotaKeepsFetchedResults(t *testing.T) {
	q1 := search.Query{Text: "office relocation Athens", Language: search.English}
	q2 := search.Query{Text: "office lease Athens", Language: search.English}

	provider := &fakeProvider{
		name:    "fake",
		results: map[string][]search.Result{q1.Text: {acmeResult(q1)}},
		errOn:   q2.Text,
		err:     search.ErrQuotaExceeded,
	}
	st := newMemStore()
	digest := &fakeDigest{}

	p := newTestPipeline(t, Config{
		Queries:     staticQueries{q1, q2},
		Providers:   []search.Provider{provider},
		Store:       st,
		Notifier:    digest,
		Concurrency: 1,
	})

	summary, err := p.Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if summary.Status != report.StatusPartial {
		t.Errorf("status = %q, want %q", summary.Status, report.StatusPartial)
	}
	// Results fetched before the quota hit still flow through extraction
	// and notification.
	if len(digest.got) != 1 {
		t.Fatalf("digest got %d findings, want 1", len(digest.got))
	}
	if !summary.NotificationSent || st.recorded != 1 {
		t.Errorf("notification state wrong: sent=%v recorded=%d", summary.NotificationSent, st.recorded)
	}
}

func TestRun_FailedSendRecordsNothing(t *testing.T) {
	q := search.Query{Text: "office relocation Athens", Language: search.English}
	provider := &fakeProvider{
		name:    "fake",
		results: map[string][]search.Result{q.Text: {acmeResult(q)}},
	}
	st := newMemStore()
	digest := &fakeDigest{err: errors.New("smtp down")}

	p := newTestPipeline(t, Config{
		Queries:   staticQueries{q},
		Providers: []search.Provider{provider},
		Store:     st,
		Notifier:  digest,
	})

	summary, err := p.Run(context.Background())
	if err != nil {
		t.Fatalf("a failed send must not fail the run: %v", err)
	}
	if summary.Status != report.StatusPartial {
		t.Errorf("status = %q, want %q", summary.Status, report.StatusPartial)
	}
	if summary.NotificationSent {
		t.Error("NotificationSent must be false after a failed send")
	}
	if st.recorded != 0 {
		t.Errorf("recorded %d fingerprints after failed send, want 0", st.recorded)
	}
}

func TestRun_StoreErrorIsFatal(t *testing.T) {
	q := search.Query{Text: "office relocation Athens", Language: search.English}
	provider := &fakeProvider{
		name:    "fake",
		results: map[string][]search.Result{q.Text: {acmeResult(q)}},
	}
	st := newMemStore()
	st.failIsNew = true
	digest := &fakeDigest{}

	p := newTestPipeline(t, Config{
		Queries:   staticQueries{q},
		Providers: []search.Provider{provider},
		Store:     st,
		Notifier:  digest,
	})

	summary, err := p.Run(context.Background())
	if err == nil {
		t.Fatal("expected fatal error")
	}
	if summary.Status != report.StatusFatal {
		t.Errorf("status = %q, want %q", summary.Status, report.StatusFatal)
	}
	if digest.calls != 0 {
		t.Errorf("digest must not be sent when the store is unavailable, got %d calls", digest.calls)
	}
}

func TestRun_NoFindings(t *testing.T) {
	q := search.Query{Text: "office relocation Athens", Language: search.English}
	provider := &fakeProvider{
		name: "fake",
		results: map[string][]search.Result{q.Text: {{
			Title:   "Weather forecast",
			Snippet: "Sunny skies across the region all week long today.",
			URL:     "https://example.com/weather",
			Query:   q,
		}}},
	}
	digest := &fakeDigest{}

	p := newTestPipeline(t, Config{
		Queries:   staticQueries{q},
		Providers: []search.Provider{provider},
		Store:     newMemStore(),
		Notifier:  digest,
	})

	summary, err := p.Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if summary.FindingsExtracted != 0 || summary.NewFindings != 0 {
		t.Errorf("expected no findings: %+v", summary)
	}
	if summary.NotificationSent {
		t.Error("no notification should be marked sent")
	}
	if len(digest.got) != 0 {
		t.Errorf("digest got %d findings, want 0", len(digest.got))
	}
}
