package downloader

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"FilingsMonitor/internal/domain"
	"FilingsMonitor/internal/identity"
)

const maxReportedErrors = 10

// Downloader saves filing documents under one subdirectory per entity,
// exactly once per canonical reference. Existence of a file at the computed
// path is the dedup marker: a second run over an unchanged link set fetches
// nothing and counts everything as skipped.
//
// Removed snapshot identities never trigger cleanup; downloads are
// append-only.
type Downloader struct {
	client         *http.Client
	root           string
	attachmentBase string
	userAgent      string
	log            *slog.Logger
}

// New wires the HTTP client, the downloads root directory, and the portal's
// attachment base URL.
func New(client *http.Client, root, attachmentBase string, log *slog.Logger) *Downloader {
	if client == nil {
		client = &http.Client{Timeout: 25 * time.Second}
	}
	return &Downloader{
		client:         client,
		root:           root,
		attachmentBase: attachmentBase,
		userAgent:      "Mozilla/5.0",
		log:            log,
	}
}

// Root returns the downloads root directory.
func (d *Downloader) Root() string {
	return d.root
}

// DownloadFilings saves the attachments of classified filings for a
// registered company. Filenames combine the filing date with the sanitized
// attachment name; filings without an attachment are counted as skipped.
func (d *Downloader) DownloadFilings(ctx context.Context, entityKey string, filings []domain.Filing) (domain.DownloadReport, error) {
	dir := filepath.Join(d.root, entityKey)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return domain.DownloadReport{}, fmt.Errorf("create entity dir: %w", err)
	}

	report := domain.DownloadReport{
		Entity:     entityKey,
		Status:     "completed",
		LinksFound: len(filings),
		Downloaded: []domain.DownloadedFile{},
		SavedTo:    dir,
	}

	for _, filing := range filings {
		if filing.Attachment == "" {
			report.SkippedCount++
			continue
		}

		docURL := d.attachmentBase + filing.Attachment
		filename := filing.Date() + "_" + identity.SafeFilename(filing.Attachment)
		savePath := filepath.Join(dir, filename)

		if fileExists(savePath) {
			report.SkippedCount++
			continue
		}

		if err := d.fetchToFile(ctx, docURL, savePath); err != nil {
			d.warn("download failed", "entity", entityKey, "url", docURL, "error", err)
			report.Errors = appendError(report.Errors, docURL, err)
			continue
		}

		d.debug("downloaded", "entity", entityKey, "file", filename)
		report.Downloaded = append(report.Downloaded, domain.DownloadedFile{
			File:     filename,
			Headline: filing.Headline,
			URL:      docURL,
			Date:     filing.Date(),
		})
	}

	report.DownloadedCount = len(report.Downloaded)
	return report, nil
}

// DownloadCustom saves the documents behind a custom source's extracted
// links. Filenames carry a short digest of the link so two references that
// sanitize to the same basename still land on distinct paths.
func (d *Downloader) DownloadCustom(ctx context.Context, entityKey string, docLinks []string) (domain.DownloadReport, error) {
	dir := filepath.Join(d.root, entityKey)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return domain.DownloadReport{}, fmt.Errorf("create entity dir: %w", err)
	}

	report := domain.DownloadReport{
		Entity:     entityKey,
		Status:     "completed",
		LinksFound: len(docLinks),
		Downloaded: []domain.DownloadedFile{},
		SavedTo:    dir,
	}

	for _, link := range docLinks {
		filename := customFilename(link)
		savePath := filepath.Join(dir, filename)

		if fileExists(savePath) {
			report.SkippedCount++
			continue
		}

		if err := d.fetchToFile(ctx, link, savePath); err != nil {
			d.warn("download failed", "entity", entityKey, "url", link, "error", err)
			report.Errors = appendError(report.Errors, link, err)
			continue
		}

		d.debug("downloaded", "entity", entityKey, "file", filename)
		report.Downloaded = append(report.Downloaded, domain.DownloadedFile{
			File: filename,
			URL:  link,
		})
	}

	report.DownloadedCount = len(report.Downloaded)
	return report, nil
}

// fetchToFile streams the document into a temporary file in the target
// directory and renames it into place, so an aborted transfer never leaves
// a partial file at the dedup path.
func (d *Downloader) fetchToFile(ctx context.Context, docURL, savePath string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, docURL, nil)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("User-Agent", d.userAgent)

	resp, err := d.client.Do(req)
	if err != nil {
		return fmt.Errorf("request document: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("unexpected status %s", resp.Status)
	}

	tmp, err := os.CreateTemp(filepath.Dir(savePath), ".tmp-*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}

	if _, err := io.Copy(tmp, resp.Body); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return fmt.Errorf("write document: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("close temp file: %w", err)
	}

	if err := os.Rename(tmp.Name(), savePath); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("move into place: %w", err)
	}

	return nil
}

func customFilename(link string) string {
	basename := "document.pdf"
	if parsed, err := url.Parse(link); err == nil {
		if b := path.Base(parsed.Path); b != "" && b != "/" && b != "." {
			basename = b
		}
	}

	basename = identity.SafeFilename(basename)
	if !strings.HasSuffix(strings.ToLower(basename), ".pdf") {
		basename += ".pdf"
	}

	return identity.FilePrefix(link) + "_" + basename
}

func appendError(errs []domain.DownloadError, docURL string, err error) []domain.DownloadError {
	if len(errs) >= maxReportedErrors {
		return errs
	}
	return append(errs, domain.DownloadError{URL: docURL, Message: err.Error()})
}

func fileExists(p string) bool {
	_, err := os.Stat(p)
	return err == nil
}

func (d *Downloader) debug(msg string, args ...any) {
	if d.log != nil {
		d.log.Debug(msg, args...)
	}
}

func (d *Downloader) warn(msg string, args ...any) {
	if d.log != nil {
		d.log.Warn(msg, args...)
	}
}
