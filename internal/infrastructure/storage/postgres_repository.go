package storage

import (
	"context"
	"database/sql"
	"fmt"

	sq "github.com/Masterminds/squirrel"
	"github.com/lib/pq"

	"FilingsMonitor/internal/domain"
	"FilingsMonitor/internal/ports"
)

// PostgresArchive keeps a queryable history of change reports and a manifest
// of downloaded files. It is an accelerator, not the source of truth: the
// snapshot files and the downloads directory stay authoritative, and callers
// treat archive errors as log-only.
type PostgresArchive struct {
	db      *sql.DB
	builder sq.StatementBuilderType
}

var _ ports.Archive = (*PostgresArchive)(nil)

// NewPostgresArchive wires a sql.DB implementation.
func NewPostgresArchive(db *sql.DB) *PostgresArchive {
	return &PostgresArchive{
		db:      db,
		builder: sq.StatementBuilder.PlaceholderFormat(sq.Dollar),
	}
}

// EnsureSchema creates the archive tables when they do not exist yet.
func (a *PostgresArchive) EnsureSchema(ctx context.Context) error {
	if a.db == nil {
		return nil
	}

	const schema = `
CREATE TABLE IF NOT EXISTS change_reports (
    id              BIGSERIAL PRIMARY KEY,
    run_id          TEXT NOT NULL,
    entity          TEXT NOT NULL,
    status          TEXT NOT NULL,
    new_filings     TEXT[] NOT NULL DEFAULT '{}',
    removed_filings TEXT[] NOT NULL DEFAULT '{}',
    tracked         INTEGER NOT NULL DEFAULT 0,
    error           TEXT NOT NULL DEFAULT '',
    detected_at     TIMESTAMPTZ NOT NULL
);
CREATE TABLE IF NOT EXISTS downloaded_files (
    entity      TEXT NOT NULL,
    file        TEXT NOT NULL,
    headline    TEXT NOT NULL DEFAULT '',
    url         TEXT NOT NULL DEFAULT '',
    filing_date TEXT NOT NULL DEFAULT '',
    saved_at    TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    PRIMARY KEY (entity, file)
);`

	if _, err := a.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("ensure archive schema: %w", err)
	}

	return nil
}

// SaveChangeReport appends one per-entity monitor outcome to the history.
func (a *PostgresArchive) SaveChangeReport(ctx context.Context, runID string, report domain.ChangeReport) error {
	if a.db == nil {
		return nil
	}

	query, args, err := a.builder.
		Insert("change_reports").
		Columns("run_id", "entity", "status", "new_filings", "removed_filings", "tracked", "error", "detected_at").
		Values(runID, report.Entity, string(report.Status),
			pq.StringArray(report.New), pq.StringArray(report.Removed),
			report.Tracked, report.Error, report.DetectedAt).
		ToSql()
	if err != nil {
		return fmt.Errorf("build insert: %w", err)
	}

	if _, err := a.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("insert change report: %w", err)
	}

	return nil
}

// SaveDownloadedFile records one saved document in the manifest. Re-recording
// the same (entity, file) pair is a no-op, mirroring the filesystem dedup.
func (a *PostgresArchive) SaveDownloadedFile(ctx context.Context, entityKey string, file domain.DownloadedFile) error {
	if a.db == nil {
		return nil
	}

	query, args, err := a.builder.
		Insert("downloaded_files").
		Columns("entity", "file", "headline", "url", "filing_date").
		Values(entityKey, file.File, file.Headline, file.URL, file.Date).
		Suffix("ON CONFLICT (entity, file) DO NOTHING").
		ToSql()
	if err != nil {
		return fmt.Errorf("build insert: %w", err)
	}

	if _, err := a.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("insert downloaded file: %w", err)
	}

	return nil
}

// RecentChanges returns the latest change reports, newest first.
func (a *PostgresArchive) RecentChanges(ctx context.Context, limit int) ([]domain.ChangeReport, error) {
	if a.db == nil {
		return nil, nil
	}
	if limit <= 0 {
		limit = 50
	}

	query, args, err := a.builder.
		Select("entity", "status", "new_filings", "removed_filings", "tracked", "error", "detected_at").
		From("change_reports").
		OrderBy("detected_at DESC").
		Limit(uint64(limit)).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build select: %w", err)
	}

	rows, err := a.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query change reports: %w", err)
	}
	defer rows.Close()

	var reports []domain.ChangeReport
	for rows.Next() {
		var (
			report         domain.ChangeReport
			status         string
			added, removed pq.StringArray
		)
		if err := rows.Scan(&report.Entity, &status, &added, &removed, &report.Tracked, &report.Error, &report.DetectedAt); err != nil {
			return nil, fmt.Errorf("scan change report: %w", err)
		}
		report.Status = domain.ChangeStatus(status)
		report.New = []string(added)
		report.Removed = []string(removed)
		reports = append(reports, report)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration: %w", err)
	}

	return reports, nil
}
