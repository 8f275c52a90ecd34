package server

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"FilingsMonitor/internal/classifier"
	"FilingsMonitor/internal/domain"
	"FilingsMonitor/internal/downloader"
	"FilingsMonitor/internal/links"
	"FilingsMonitor/internal/monitor"
	"FilingsMonitor/internal/snapshot"
	"FilingsMonitor/internal/usecase"
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

func newTestServer(t *testing.T, source *stubSource, fetcher *stubFetcher) *Server {
	t.Helper()

	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	store := snapshot.NewStore(t.TempDir())
	downloads := t.TempDir()

	pipeline := usecase.NewPipeline(usecase.PipelineDeps{
		Source:     source,
		Classifier: classifier.New(classifier.DefaultKeywords()),
		Extractor:  links.NewExtractor(fetcher),
		Detector:   monitor.NewDetector(store),
		Downloader: downloader.New(nil, downloads, "https://portal.example/attach/", log),
		Companies: []domain.Company{
			{Name: "Acme Corp", Code: "500001"},
			{Name: "Globex", Code: "500002"},
		},
		Logger: log,
	})

	return New(Options{
		BindAddr:          "127.0.0.1:0",
		Pipeline:          pipeline,
		Store:             store,
		DownloadsRoot:     downloads,
		AttachmentBaseURL: "https://portal.example/attach/",
		Logger:            log,
	})
}

func doRequest(s *Server, method, target, body string) *httptest.ResponseRecorder {
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, target, reader)
	rec := httptest.NewRecorder()
	s.http.Handler.ServeHTTP(rec, req)
	return rec
}

func TestStatusEndpoint(t *testing.T) {
	t.Parallel()

	s := newTestServer(t, &stubSource{}, &stubFetcher{})

	rec := doRequest(s, http.MethodGet, "/status", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var payload map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &payload))
	require.Equal(t, "running", payload["status"])
	require.EqualValues(t, 2, payload["companies_tracked"])
}

func TestCompaniesEndpoint(t *testing.T) {
	t.Parallel()

	s := newTestServer(t, &stubSource{}, &stubFetcher{})

	rec := doRequest(s, http.MethodGet, "/companies", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var payload struct {
		Companies []map[string]string `json:"companies"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &payload))
	require.Len(t, payload.Companies, 2)
	require.Equal(t, "500001", payload.Companies[0]["bse_code"])
}

func TestRunMonitorSingleUnknownCode(t *testing.T) {
	t.Parallel()

	s := newTestServer(t, &stubSource{}, &stubFetcher{})

	rec := doRequest(s, http.MethodPost, "/run-monitor/999999", "")
	require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestRunMonitorSingle(t *testing.T) {
	t.Parallel()

	source := &stubSource{filings: []domain.Filing{
		{ID: "n-1", Headline: "Unaudited Financial Results for Q1", Category: "Result"},
	}}
	s := newTestServer(t, source, &stubFetcher{})

	rec := doRequest(s, http.MethodPost, "/run-monitor/500001", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var payload struct {
		Changes map[string]domain.ChangeReport `json:"changes"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &payload))
	require.Equal(t, domain.StatusFirstSnapshot, payload.Changes["Acme Corp"].Status)
}

func TestFilingsEndpoint(t *testing.T) {
	t.Parallel()

	source := &stubSource{filings: []domain.Filing{
		{ID: "n-1", Headline: "Unaudited Financial Results for Q1", Category: "Result",
			NewsDate: "2026-05-02T18:00:00", Attachment: "q1.pdf"},
		{ID: "n-2", Headline: "Hackathon announced", Category: "Company Update"},
	}}
	s := newTestServer(t, source, &stubFetcher{})

	rec := doRequest(s, http.MethodGet, "/filings/500001", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var payload struct {
		TotalFilings int          `json:"total_filings"`
		Filings      []filingView `json:"filings"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &payload))
	require.Equal(t, 1, payload.TotalFilings)
	require.Equal(t, "https://portal.example/attach/q1.pdf", payload.Filings[0].PDFURL)
	require.Equal(t, "2026-05-02", payload.Filings[0].Date)
}

func TestCustomMonitorValidation(t *testing.T) {
	t.Parallel()

	s := newTestServer(t, &stubSource{}, &stubFetcher{})

	rec := doRequest(s, http.MethodPost, "/custom/run-monitor", `{"company_name":"","source_url":""}`)
	require.Equal(t, http.StatusBadRequest, rec.Code)

	rec = doRequest(s, http.MethodPost, "/custom/run-monitor", "not json")
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestCustomMonitorEndpoint(t *testing.T) {
	t.Parallel()

	fetcher := &stubFetcher{html: `<a href="report.pdf">R</a>`}
	s := newTestServer(t, &stubSource{}, fetcher)

	rec := doRequest(s, http.MethodPost, "/custom/run-monitor",
		`{"company_name":"Acme IR","source_url":"https://example.com/ir/"}`)
	require.Equal(t, http.StatusOK, rec.Code)

	var payload struct {
		Report domain.ChangeReport `json:"report"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &payload))
	require.Equal(t, domain.StatusFirstSnapshot, payload.Report.Status)
	require.Equal(t, 1, payload.Report.Tracked)
}

func TestEntityDocumentsRejectsTraversal(t *testing.T) {
	t.Parallel()

	s := newTestServer(t, &stubSource{}, &stubFetcher{})

	rec := doRequest(s, http.MethodGet, "/documents/..", "")
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestChangesEndpointListsSnapshots(t *testing.T) {
	t.Parallel()

	source := &stubSource{filings: []domain.Filing{
		{ID: "n-1", Headline: "Unaudited Financial Results", Category: "Result"},
	}}
	s := newTestServer(t, source, &stubFetcher{})

	doRequest(s, http.MethodPost, "/run-monitor/500001", "")

	rec := doRequest(s, http.MethodGet, "/changes", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var payload struct {
		Snapshots map[string]struct {
			FilingsTracked int `json:"filings_tracked"`
		} `json:"snapshots"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &payload))
	require.Equal(t, 1, payload.Snapshots["Acme_Corp"].FilingsTracked)
}
