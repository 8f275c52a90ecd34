package usecase

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"FilingsMonitor/internal/classifier"
	"FilingsMonitor/internal/domain"
	"FilingsMonitor/internal/identity"
	"FilingsMonitor/internal/links"
	"FilingsMonitor/internal/monitor"
	"FilingsMonitor/internal/snapshot"
)

type stubSource struct {
	filings []domain.Filing
	err     error
}

func (s *stubSource) Announcements(_ context.Context, _ string, _, _ time.Time) ([]domain.Filing, error) {
	return s.filings, s.err
}

type stubFetcher struct {
	html string
	err  error
}

func (s *stubFetcher) FetchHTML(_ context.Context, _ string) (string, error) {
	return s.html, s.err
}

func newTestPipeline(source *stubSource, fetcher *stubFetcher, snapDir string, companies ...domain.Company) (*Pipeline, *snapshot.Store) {
	store := snapshot.NewStore(snapDir)
	return NewPipeline(PipelineDeps{
		Source:     source,
		Classifier: classifier.New(classifier.DefaultKeywords()),
		Extractor:  links.NewExtractor(fetcher),
		Detector:   monitor.NewDetector(store),
		Companies:  companies,
		FromDate:   time.Date(2024, time.January, 1, 0, 0, 0, 0, time.UTC),
		Logger:     slog.New(slog.NewTextHandler(io.Discard, nil)),
	}), store
}

func TestMonitorCompanyFiltersAndDiffs(t *testing.T) {
	t.Parallel()

	company := domain.Company{Name: "Acme Corp", Code: "500001"}
	source := &stubSource{filings: []domain.Filing{
		{ID: "n-1", Headline: "Unaudited Financial Results for Q1", Category: "Result"},
		{ID: "n-2", Headline: "New retail store opened", Category: "Company Update"},
	}}

	pipeline, store := newTestPipeline(source, &stubFetcher{}, t.TempDir(), company)

	first := pipeline.MonitorCompany(context.Background(), company)
	require.Equal(t, domain.StatusFirstSnapshot, first.Status)
	require.Equal(t, 1, first.Tracked)

	saved, err := store.Load("Acme_Corp")
	require.NoError(t, err)
	require.True(t, saved.Has("n-1"))
	require.False(t, saved.Has("n-2"), "non-financial filings never enter the snapshot")

	source.filings = append(source.filings, domain.Filing{
		ID: "n-3", Headline: "Audited Financial Results FY26", Category: "Result",
	})

	second := pipeline.MonitorCompany(context.Background(), company)
	require.Equal(t, domain.StatusChanged, second.Status)
	require.Equal(t, []string{"Audited Financial Results FY26"}, second.New)
	require.Empty(t, second.Removed)
}

func TestFailedFetchLeavesSnapshotUntouched(t *testing.T) {
	t.Parallel()

	company := domain.Company{Name: "Acme Corp", Code: "500001"}
	source := &stubSource{filings: []domain.Filing{
		{ID: "n-1", Headline: "Unaudited Financial Results for Q1", Category: "Result"},
	}}

	pipeline, store := newTestPipeline(source, &stubFetcher{}, t.TempDir(), company)

	first := pipeline.MonitorCompany(context.Background(), company)
	require.Equal(t, domain.StatusFirstSnapshot, first.Status)

	before, err := os.ReadFile(store.Path("Acme_Corp"))
	require.NoError(t, err)

	source.err = errors.New("portal unreachable")

	report := pipeline.MonitorCompany(context.Background(), company)
	require.Equal(t, domain.StatusError, report.Status)
	require.Contains(t, report.Error, "portal unreachable")

	after, err := os.ReadFile(store.Path("Acme_Corp"))
	require.NoError(t, err)
	require.Equal(t, before, after, "a failed run must not corrupt the stored snapshot")
}

func TestRunMonitorIsolatesEntityFailures(t *testing.T) {
	t.Parallel()

	good := domain.Company{Name: "Good Co", Code: "1"}
	bad := domain.Company{Name: "Bad Co", Code: "2"}

	source := &failingForCode{code: "2", filings: []domain.Filing{
		{ID: "n-1", Headline: "Unaudited Financial Results", Category: "Result"},
	}}

	store := snapshot.NewStore(t.TempDir())
	pipeline := NewPipeline(PipelineDeps{
		Source:     source,
		Classifier: classifier.New(classifier.DefaultKeywords()),
		Extractor:  links.NewExtractor(&stubFetcher{}),
		Detector:   monitor.NewDetector(store),
		Companies:  []domain.Company{good, bad},
		Logger:     slog.New(slog.NewTextHandler(io.Discard, nil)),
	})

	batch := pipeline.RunMonitor(context.Background(), 0)
	require.NotEmpty(t, batch.RunID)
	require.Len(t, batch.Changes, 2)
	require.Equal(t, domain.StatusFirstSnapshot, batch.Changes["Good Co"].Status)
	require.Equal(t, domain.StatusError, batch.Changes["Bad Co"].Status)
}

type failingForCode struct {
	code    string
	filings []domain.Filing
}

func (f *failingForCode) Announcements(_ context.Context, code string, _, _ time.Time) ([]domain.Filing, error) {
	if code == f.code {
		return nil, errors.New("boom")
	}
	return f.filings, nil
}

func TestMonitorCustomUsesDigestIdentities(t *testing.T) {
	t.Parallel()

	html := `<a href="/docs/a.pdf">A</a><a href="/docs/b.pdf">B</a>`
	fetcher := &stubFetcher{html: html}

	pipeline, store := newTestPipeline(&stubSource{}, fetcher, t.TempDir())

	report := pipeline.MonitorCustom(context.Background(), "Acme & Co", "https://example.com/ir")
	require.Equal(t, domain.StatusFirstSnapshot, report.Status)
	require.Equal(t, 2, report.Tracked)

	saved, err := store.Load("custom_Acme_Co")
	require.NoError(t, err)
	require.True(t, saved.Has(identity.SnapshotID("https://example.com/docs/a.pdf")))
	require.Equal(t, "https://example.com/docs/a.pdf",
		saved.Label(identity.SnapshotID("https://example.com/docs/a.pdf")))
}

func TestMonitorCustomFetchErrorReported(t *testing.T) {
	t.Parallel()

	fetcher := &stubFetcher{err: errors.New("page unreachable")}
	pipeline, store := newTestPipeline(&stubSource{}, fetcher, t.TempDir())

	report := pipeline.MonitorCustom(context.Background(), "Acme", "https://example.com/ir")
	require.Equal(t, domain.StatusError, report.Status)
	require.Contains(t, report.Error, "page unreachable")

	_, err := store.Load("custom_Acme")
	require.ErrorIs(t, err, snapshot.ErrNotFound, "no snapshot may be written on a failed run")
}

func TestCompanyByCode(t *testing.T) {
	t.Parallel()

	acme := domain.Company{Name: "Acme", Code: "42"}
	pipeline, _ := newTestPipeline(&stubSource{}, &stubFetcher{}, t.TempDir(), acme)

	got, ok := pipeline.CompanyByCode("42")
	require.True(t, ok)
	require.Equal(t, acme, got)

	_, ok = pipeline.CompanyByCode("43")
	require.False(t, ok)
}
