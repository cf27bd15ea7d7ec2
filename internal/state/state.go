// Package state persists export history in SQLite so re-exports can skip
// pages whose Confluence version has not changed and report files that no
// longer correspond to a live page.
package state

import (
	"context"
	"database/sql"
	"sync"
	"time"

	_ "modernc.org/sqlite"

	"git.home.luguber.info/inful/confexport/internal/foundation/errors"
)

// PageRecord is the stored export state for one Confluence page.
type PageRecord struct {
	PageID      string
	Version     int
	Title       string
	RelPath     string
	ContentHash string
	ExportedAt  time.Time
}

// Event is one recorded export event.
type Event struct {
	ID        int64
	JobID     string
	PageID    string
	EventType string
	Timestamp time.Time
	Detail    string
}

// Event types recorded during an export run.
const (
	EventExported = "exported"
	EventSkipped  = "skipped"
	EventFailed   = "failed"
)

// Store is a SQLite-backed export state store.
// Use ":memory:" for an in-memory database, or a file path for persistence.
type Store struct {
	db *sql.DB
	mu sync.RWMutex
}

// Open opens or creates the store at dbPath.
func Open(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, errors.StateError("failed to open state database").
			WithCause(err).WithContext("path", dbPath).Build()
	}

	s := &Store{db: db}
	if err := s.initialize(); err != nil {
		_ = db.Close()
		return nil, errors.StateError("failed to initialize state schema").
			WithCause(err).WithContext("path", dbPath).Build()
	}
	return s, nil
}

func (s *Store) initialize() error {
	schema := `
	CREATE TABLE IF NOT EXISTS pages (
		page_id TEXT PRIMARY KEY,
		version INTEGER NOT NULL,
		title TEXT NOT NULL,
		rel_path TEXT NOT NULL,
		content_hash TEXT NOT NULL,
		exported_at INTEGER NOT NULL
	);
	CREATE TABLE IF NOT EXISTS events (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		job_id TEXT NOT NULL,
		page_id TEXT NOT NULL,
		event_type TEXT NOT NULL,
		timestamp INTEGER NOT NULL,
		detail TEXT
	);
	CREATE INDEX IF NOT EXISTS idx_events_job_id ON events(job_id);
	CREATE INDEX IF NOT EXISTS idx_events_page_id ON events(page_id);
	CREATE INDEX IF NOT EXISTS idx_events_timestamp ON events(timestamp);
	`
	_, err := s.db.Exec(schema)
	return err
}

// UpsertPage records the exported state for a page, replacing any previous
// record for the same page ID.
func (s *Store) UpsertPage(ctx context.Context, rec PageRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO pages (page_id, version, title, rel_path, content_hash, exported_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(page_id) DO UPDATE SET
			version = excluded.version,
			title = excluded.title,
			rel_path = excluded.rel_path,
			content_hash = excluded.content_hash,
			exported_at = excluded.exported_at`,
		rec.PageID, rec.Version, rec.Title, rec.RelPath, rec.ContentHash, rec.ExportedAt.Unix(),
	)
	if err != nil {
		return errors.StateError("failed to upsert page record").
			WithCause(err).WithContext("page_id", rec.PageID).Build()
	}
	return nil
}

// GetPage returns the stored record for a page. found is false when the page
// has never been exported.
func (s *Store) GetPage(ctx context.Context, pageID string) (PageRecord, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var rec PageRecord
	var exportedUnix int64
	err := s.db.QueryRowContext(ctx,
		"SELECT page_id, version, title, rel_path, content_hash, exported_at FROM pages WHERE page_id = ?",
		pageID,
	).Scan(&rec.PageID, &rec.Version, &rec.Title, &rec.RelPath, &rec.ContentHash, &exportedUnix)
	if err == sql.ErrNoRows {
		return PageRecord{}, false, nil
	}
	if err != nil {
		return PageRecord{}, false, errors.StateError("failed to query page record").
			WithCause(err).WithContext("page_id", pageID).Build()
	}
	rec.ExportedAt = time.Unix(exportedUnix, 0)
	return rec, true, nil
}

// ListPages returns all stored page records ordered by relative path.
func (s *Store) ListPages(ctx context.Context) ([]PageRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx,
		"SELECT page_id, version, title, rel_path, content_hash, exported_at FROM pages ORDER BY rel_path")
	if err != nil {
		return nil, errors.StateError("failed to list page records").WithCause(err).Build()
	}
	defer rows.Close()

	var recs []PageRecord
	for rows.Next() {
		var rec PageRecord
		var exportedUnix int64
		if err := rows.Scan(&rec.PageID, &rec.Version, &rec.Title, &rec.RelPath, &rec.ContentHash, &exportedUnix); err != nil {
			return nil, errors.StateError("failed to scan page record").WithCause(err).Build()
		}
		rec.ExportedAt = time.Unix(exportedUnix, 0)
		recs = append(recs, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.StateError("failed to iterate page records").WithCause(err).Build()
	}
	return recs, nil
}

// StalePages returns stored records whose page ID is absent from seen.
// These correspond to files from earlier exports whose page was deleted or
// moved out of the exported tree.
func (s *Store) StalePages(ctx context.Context, seen map[string]struct{}) ([]PageRecord, error) {
	all, err := s.ListPages(ctx)
	if err != nil {
		return nil, err
	}
	var stale []PageRecord
	for _, rec := range all {
		if _, ok := seen[rec.PageID]; !ok {
			stale = append(stale, rec)
		}
	}
	return stale, nil
}

// DeletePage removes the stored record for a page.
func (s *Store) DeletePage(ctx context.Context, pageID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx, "DELETE FROM pages WHERE page_id = ?", pageID)
	if err != nil {
		return errors.StateError("failed to delete page record").
			WithCause(err).WithContext("page_id", pageID).Build()
	}
	return nil
}

// RecordEvent appends one export event.
func (s *Store) RecordEvent(ctx context.Context, jobID, pageID, eventType, detail string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx,
		"INSERT INTO events (job_id, page_id, event_type, timestamp, detail) VALUES (?, ?, ?, ?, ?)",
		jobID, pageID, eventType, time.Now().Unix(), detail,
	)
	if err != nil {
		return errors.StateError("failed to record export event").
			WithCause(err).WithContext("job_id", jobID).Build()
	}
	return nil
}

// EventsByJob returns all events recorded for one export job in order.
func (s *Store) EventsByJob(ctx context.Context, jobID string) ([]Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx,
		"SELECT id, job_id, page_id, event_type, timestamp, detail FROM events WHERE job_id = ? ORDER BY id",
		jobID,
	)
	if err != nil {
		return nil, errors.StateError("failed to query export events").
			WithCause(err).WithContext("job_id", jobID).Build()
	}
	defer rows.Close()

	var events []Event
	for rows.Next() {
		var e Event
		var ts int64
		var detail sql.NullString
		if err := rows.Scan(&e.ID, &e.JobID, &e.PageID, &e.EventType, &ts, &detail); err != nil {
			return nil, errors.StateError("failed to scan export event").WithCause(err).Build()
		}
		e.Timestamp = time.Unix(ts, 0)
		e.Detail = detail.String
		events = append(events, e)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.StateError("failed to iterate export events").WithCause(err).Build()
	}
	return events, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.db.Close()
}
