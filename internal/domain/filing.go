package domain

import "time"

// Filing is a single disclosure record as reported by the exchange portal.
type Filing struct {
	ID         string
	Headline   string
	Category   string
	NewsDate   string
	Attachment string
}

// Date returns the calendar-day part of the portal timestamp.
func (f Filing) Date() string {
	if len(f.NewsDate) < 10 {
		return f.NewsDate
	}
	return f.NewsDate[:10]
}

// Company is a tracked listed company identified by its exchange code.
type Company struct {
	Name string
	Code string
}

// ChangeStatus enumerates the outcome of one monitor run for one entity.
type ChangeStatus string

const (
	StatusFirstSnapshot ChangeStatus = "first_snapshot"
	StatusNoChange      ChangeStatus = "no_change"
	StatusChanged       ChangeStatus = "changed"
	StatusError         ChangeStatus = "error"
)

// ChangeReport describes what one monitor run observed for one entity.
// New and Removed carry human-readable labels, never identities.
type ChangeReport struct {
	Entity     string       `json:"entity"`
	Status     ChangeStatus `json:"status"`
	New        []string     `json:"new_filings,omitempty"`
	Removed    []string     `json:"removed_filings,omitempty"`
	Tracked    int          `json:"tracked"`
	Error      string       `json:"error,omitempty"`
	DetectedAt time.Time    `json:"detected_at"`
}

// DownloadedFile records one document saved during a download run.
type DownloadedFile struct {
	File     string `json:"file"`
	Headline string `json:"headline,omitempty"`
	URL      string `json:"url,omitempty"`
	Date     string `json:"date,omitempty"`
}

// DownloadError pairs a document URL with the reason it could not be saved.
type DownloadError struct {
	URL     string `json:"url"`
	Message string `json:"error"`
}

// DownloadReport summarizes one download run for one entity. Existing files
// are counted as skipped, which is what makes repeated runs idempotent.
type DownloadReport struct {
	Entity          string           `json:"entity"`
	Status          string           `json:"status"`
	LinksFound      int              `json:"links_found"`
	Downloaded      []DownloadedFile `json:"downloaded"`
	DownloadedCount int              `json:"downloaded_count"`
	SkippedCount    int              `json:"skipped_count"`
	Errors          []DownloadError  `json:"errors,omitempty"`
	Error           string           `json:"error,omitempty"`
	SavedTo         string           `json:"saved_to,omitempty"`
}

// MonitorBatch aggregates per-entity change reports for one scheduled or
// API-triggered run.
type MonitorBatch struct {
	RunID     string                  `json:"run_id"`
	StartedAt time.Time               `json:"started_at"`
	Changes   map[string]ChangeReport `json:"changes"`
}

// DownloadBatch aggregates per-entity download reports for one run.
type DownloadBatch struct {
	RunID     string                    `json:"run_id"`
	StartedAt time.Time                 `json:"started_at"`
	Results   map[string]DownloadReport `json:"results"`
}
