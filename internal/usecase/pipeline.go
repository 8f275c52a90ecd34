package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"FilingsMonitor/internal/classifier"
	"FilingsMonitor/internal/domain"
	"FilingsMonitor/internal/downloader"
	"FilingsMonitor/internal/identity"
	"FilingsMonitor/internal/links"
	"FilingsMonitor/internal/monitor"
	"FilingsMonitor/internal/ports"
	"FilingsMonitor/internal/snapshot"
)

// PipelineDeps wires all driven adapters into the orchestration pipeline.
type PipelineDeps struct {
	Source     ports.FilingSource
	Classifier *classifier.Classifier
	Extractor  *links.Extractor
	Detector   *monitor.Detector
	Downloader *downloader.Downloader
	Archive    ports.Archive
	Notifier   ports.Notifier
	Companies  []domain.Company
	FromDate   time.Time
	Logger     *slog.Logger
}

// Pipeline implements the monitor and download workflows over all tracked
// entities. Per-entity failures are captured into the batch report and never
// abort the batch; a per-entity mutex serializes runs so an API-triggered
// run and a scheduled run cannot interleave load-diff-save for the same
// snapshot.
type Pipeline struct {
	source     ports.FilingSource
	classifier *classifier.Classifier
	extractor  *links.Extractor
	detector   *monitor.Detector
	downloader *downloader.Downloader
	archive    ports.Archive
	notifier   ports.Notifier
	companies  []domain.Company
	fromDate   time.Time
	log        *slog.Logger

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// NewPipeline constructs the orchestration component.
func NewPipeline(deps PipelineDeps) *Pipeline {
	return &Pipeline{
		source:     deps.Source,
		classifier: deps.Classifier,
		extractor:  deps.Extractor,
		detector:   deps.Detector,
		downloader: deps.Downloader,
		archive:    deps.Archive,
		notifier:   deps.Notifier,
		companies:  deps.Companies,
		fromDate:   deps.FromDate,
		log:        deps.Logger,
		locks:      map[string]*sync.Mutex{},
	}
}

// Companies lists the tracked companies.
func (p *Pipeline) Companies() []domain.Company {
	return p.companies
}

// CompanyByCode finds a tracked company by exchange code.
func (p *Pipeline) CompanyByCode(code string) (domain.Company, bool) {
	for _, c := range p.companies {
		if c.Code == code {
			return c, true
		}
	}
	return domain.Company{}, false
}

// FinancialFilings fetches announcements for one company and keeps only the
// ones the classifier accepts.
func (p *Pipeline) FinancialFilings(ctx context.Context, company domain.Company, from time.Time) ([]domain.Filing, error) {
	if from.IsZero() {
		from = p.fromDate
	}

	all, err := p.source.Announcements(ctx, company.Code, from, time.Now().UTC())
	if err != nil {
		return nil, fmt.Errorf("fetch announcements for %s: %w", company.Name, err)
	}

	filings := make([]domain.Filing, 0, len(all))
	for _, f := range all {
		if p.classifier.IsFinancial(f.Category, f.Headline) {
			filings = append(filings, f)
		}
	}

	return filings, nil
}

// RunMonitor checks every tracked company (or the first limit of them) for
// snapshot changes and publishes a digest when anything changed.
func (p *Pipeline) RunMonitor(ctx context.Context, limit int) domain.MonitorBatch {
	batch := domain.MonitorBatch{
		RunID:     uuid.NewString(),
		StartedAt: time.Now().UTC(),
		Changes:   map[string]domain.ChangeReport{},
	}

	for _, company := range p.targets(limit) {
		report := p.MonitorCompany(ctx, company)
		batch.Changes[company.Name] = report
		p.archiveChange(ctx, batch.RunID, report)
	}

	p.notifyChanges(ctx, batch)
	return batch
}

// MonitorCompany runs one change-detection pass for a registered company.
// The snapshot identity is the portal-assigned filing id; the label is the
// headline.
func (p *Pipeline) MonitorCompany(ctx context.Context, company domain.Company) domain.ChangeReport {
	key := identity.CompanyKey(company.Name)
	defer p.lockEntity(key)()

	p.debug("monitor company", "company", company.Name, "code", company.Code)

	filings, err := p.FinancialFilings(ctx, company, time.Time{})
	if err != nil {
		return errorChange(key, err)
	}

	current := snapshot.New()
	for _, f := range filings {
		current.Set(f.ID, f.Headline)
	}

	report, err := p.detector.Detect(key, current)
	if err != nil {
		return errorChange(key, err)
	}

	return report
}

// MonitorCustom runs one change-detection pass for a custom page source.
// The snapshot identity is a digest of each extracted document URL; the
// label is the URL itself.
func (p *Pipeline) MonitorCustom(ctx context.Context, label, sourceURL string) domain.ChangeReport {
	key := identity.CustomKey(label)
	defer p.lockEntity(key)()

	p.debug("monitor custom source", "label", label, "url", sourceURL)

	docLinks, err := p.extractor.Extract(ctx, sourceURL)
	if err != nil {
		return errorChange(key, err)
	}

	current := snapshot.New()
	for _, link := range docLinks {
		current.Set(identity.SnapshotID(link), link)
	}

	report, err := p.detector.Detect(key, current)
	if err != nil {
		return errorChange(key, err)
	}

	p.archiveChange(ctx, uuid.NewString(), report)
	return report
}

// RunDownload fetches and saves documents for every tracked company (or the
// first limit of them).
func (p *Pipeline) RunDownload(ctx context.Context, limit int) domain.DownloadBatch {
	batch := domain.DownloadBatch{
		RunID:     uuid.NewString(),
		StartedAt: time.Now().UTC(),
		Results:   map[string]domain.DownloadReport{},
	}

	for _, company := range p.targets(limit) {
		batch.Results[company.Name] = p.DownloadCompany(ctx, company)
	}

	return batch
}

// DownloadCompany saves all classified filing attachments for one company.
func (p *Pipeline) DownloadCompany(ctx context.Context, company domain.Company) domain.DownloadReport {
	key := identity.CompanyKey(company.Name)
	defer p.lockEntity(key)()

	filings, err := p.FinancialFilings(ctx, company, time.Time{})
	if err != nil {
		return errorDownload(key, err)
	}

	report, err := p.downloader.DownloadFilings(ctx, key, filings)
	if err != nil {
		return errorDownload(key, err)
	}

	p.debug("download company done", "company", company.Name,
		"downloaded", report.DownloadedCount, "skipped", report.SkippedCount)
	p.archiveDownloads(ctx, key, report)
	return report
}

// DownloadCustom saves the documents linked from a custom page source.
func (p *Pipeline) DownloadCustom(ctx context.Context, label, sourceURL string) domain.DownloadReport {
	key := identity.SafeEntityKey(label)
	defer p.lockEntity(key)()

	docLinks, err := p.extractor.Extract(ctx, sourceURL)
	if err != nil {
		return errorDownload(key, err)
	}

	report, err := p.downloader.DownloadCustom(ctx, key, docLinks)
	if err != nil {
		return errorDownload(key, err)
	}

	p.archiveDownloads(ctx, key, report)
	return report
}

func (p *Pipeline) targets(limit int) []domain.Company {
	if limit > 0 && limit < len(p.companies) {
		return p.companies[:limit]
	}
	return p.companies
}

// lockEntity acquires the per-entity mutex and returns the unlock func.
func (p *Pipeline) lockEntity(key string) func() {
	p.mu.Lock()
	lock, ok := p.locks[key]
	if !ok {
		lock = &sync.Mutex{}
		p.locks[key] = lock
	}
	p.mu.Unlock()

	lock.Lock()
	return lock.Unlock
}

func (p *Pipeline) archiveChange(ctx context.Context, runID string, report domain.ChangeReport) {
	if p.archive == nil {
		return
	}
	if err := p.archive.SaveChangeReport(ctx, runID, report); err != nil {
		p.warn("archive change report", "entity", report.Entity, "error", err)
	}
}

func (p *Pipeline) archiveDownloads(ctx context.Context, key string, report domain.DownloadReport) {
	if p.archive == nil {
		return
	}
	for _, file := range report.Downloaded {
		if err := p.archive.SaveDownloadedFile(ctx, key, file); err != nil {
			p.warn("archive downloaded file", "entity", key, "file", file.File, "error", err)
		}
	}
}

func (p *Pipeline) notifyChanges(ctx context.Context, batch domain.MonitorBatch) {
	if p.notifier == nil {
		return
	}

	digest := buildChangeDigest(batch)
	if digest == "" {
		return
	}

	if err := p.notifier.PublishChanges(ctx, digest); err != nil {
		p.warn("publish change digest", "error", err)
	}
}

const digestHeadlineCap = 5

func buildChangeDigest(batch domain.MonitorBatch) string {
	var formatted string
	for entity, report := range batch.Changes {
		if report.Status != domain.StatusChanged {
			continue
		}
		formatted += fmt.Sprintf("*%s*\n", entity)
		for i, headline := range report.New {
			if i >= digestHeadlineCap {
				formatted += fmt.Sprintf("  and %d more\n", len(report.New)-i)
				break
			}
			formatted += fmt.Sprintf("  + %s\n", headline)
		}
		if len(report.Removed) > 0 {
			formatted += fmt.Sprintf("  %d removed\n", len(report.Removed))
		}
	}
	return formatted
}

func errorChange(key string, err error) domain.ChangeReport {
	return domain.ChangeReport{
		Entity:     key,
		Status:     domain.StatusError,
		Error:      err.Error(),
		DetectedAt: time.Now().UTC(),
	}
}

func errorDownload(key string, err error) domain.DownloadReport {
	return domain.DownloadReport{
		Entity: key,
		Status: "error",
		Error:  err.Error(),
	}
}

func (p *Pipeline) debug(msg string, args ...any) {
	if p.log != nil {
		p.log.Debug(msg, args...)
	}
}

func (p *Pipeline) warn(msg string, args ...any) {
	if p.log != nil {
		p.log.Warn(msg, args...)
	}
}
