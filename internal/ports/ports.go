package ports

import (
	"context"
	"time"

	"FilingsMonitor/internal/domain"
)

// FilingSource pulls raw disclosure records from the exchange portal.
type FilingSource interface {
	Announcements(ctx context.Context, scripCode string, from, to time.Time) ([]domain.Filing, error)
}

// PageFetcher retrieves a web page and returns its raw HTML.
type PageFetcher interface {
	FetchHTML(ctx context.Context, pageURL string) (string, error)
}

// Archive persists change history and a downloaded-file manifest for faster
// queries. The filesystem remains the source of truth; archive failures must
// never affect run outcomes.
type Archive interface {
	SaveChangeReport(ctx context.Context, runID string, report domain.ChangeReport) error
	SaveDownloadedFile(ctx context.Context, entityKey string, file domain.DownloadedFile) error
	RecentChanges(ctx context.Context, limit int) ([]domain.ChangeReport, error)
}

// Notifier pushes change digests to an outbound channel.
type Notifier interface {
	PublishChanges(ctx context.Context, digest string) error
}

// Scheduler controls when recurring jobs execute.
type Scheduler interface {
	Start(ctx context.Context, job func(time.Time)) error
	Stop(ctx context.Context) error
}
