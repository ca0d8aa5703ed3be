package dedupe

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"
)

// Ledger records archived pages in a local SQLite database so a cleanup can
// be audited after the fact. Notion's trash is the recovery path; the ledger
// is the record of what was sent there and when.
type Ledger struct {
	db *sql.DB
}

const ledgerMigration = `
CREATE TABLE IF NOT EXISTS archived_pages (
	id           TEXT PRIMARY KEY,
	page_id      TEXT NOT NULL,
	title        TEXT NOT NULL,
	content_hash TEXT NOT NULL,
	created_at   DATETIME NOT NULL,
	archived_at  DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE INDEX IF NOT EXISTS idx_archived_pages_hash ON archived_pages(content_hash);
`

// OpenLedger opens (creating if needed) the archive ledger at path.
func OpenLedger(path string) (*Ledger, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, eris.Wrap(err, "dedupe: open ledger")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, eris.Wrapf(err, "dedupe: exec %s", pragma)
		}
	}
	if _, err := db.Exec(ledgerMigration); err != nil {
		db.Close()
		return nil, eris.Wrap(err, "dedupe: migrate ledger")
	}
	return &Ledger{db: db}, nil
}

// Close closes the underlying database.
func (l *Ledger) Close() error { return l.db.Close() }

// Record stores one archived page.
func (l *Ledger) Record(ctx context.Context, page PageInfo) error {
	_, err := l.db.ExecContext(ctx,
		`INSERT INTO archived_pages (id, page_id, title, content_hash, created_at)
		 VALUES (?, ?, ?, ?, ?)`,
		uuid.New().String(), page.ID, page.Title, page.ContentHash, page.CreatedAt.UTC(),
	)
	return eris.Wrap(err, "dedupe: record archived page")
}

// Archived returns every recorded page, most recently archived first.
func (l *Ledger) Archived(ctx context.Context) ([]PageInfo, error) {
	rows, err := l.db.QueryContext(ctx,
		`SELECT page_id, title, content_hash, created_at
		 FROM archived_pages ORDER BY archived_at DESC`)
	if err != nil {
		return nil, eris.Wrap(err, "dedupe: query ledger")
	}
	defer rows.Close() //nolint:errcheck

	var pages []PageInfo
	for rows.Next() {
		var p PageInfo
		var createdAt time.Time
		if err := rows.Scan(&p.ID, &p.Title, &p.ContentHash, &createdAt); err != nil {
			return nil, eris.Wrap(err, "dedupe: scan ledger row")
		}
		p.CreatedAt = createdAt
		pages = append(pages, p)
	}
	return pages, eris.Wrap(rows.Err(), "dedupe: iterate ledger")
}
