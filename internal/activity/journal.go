package activity

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/rs/zerolog"

	"github.com/AnkitM1410/Clawbook-Human/internal/observability"
	"github.com/AnkitM1410/Clawbook-Human/internal/tracing"
)

// Entry is one journaled console operation.
type Entry struct {
	ID        int64     `json:"id"`
	Timestamp time.Time `json:"timestamp"`
	Kind      string    `json:"kind"`
	Actor     string    `json:"actor"`
	Outcome   string    `json:"outcome"`
	Detail    string    `json:"detail"`
	TraceID   string    `json:"trace_id,omitempty"`
}

// Journal records console operations to a local sqlite database so the
// activity page can show what happened and when. A nil Journal is the
// disabled state: Record and Recent become no-ops.
type Journal struct {
	db     *sql.DB
	logger zerolog.Logger
	now    func() time.Time
}

// Open creates or opens the journal database at path.
func Open(path string, logger zerolog.Logger) (*Journal, error) {
	observability.EnsureRegistered()

	if path == "" {
		return nil, errors.New("journal path is required")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return nil, fmt.Errorf("failed to create journal directory: %w", err)
	}

	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open journal database: %w", err)
	}

	// Enable WAL mode for better concurrency
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
	}

	j := &Journal{
		db:     db,
		logger: logger.With().Str("component", "activity").Logger(),
		now:    time.Now,
	}
	if err := j.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	j.logger.Info().Str("path", path).Msg("Activity journal opened")
	return j, nil
}

func (j *Journal) initSchema() error {
	schema := `
		CREATE TABLE IF NOT EXISTS activity (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			ts INTEGER NOT NULL,
			kind TEXT NOT NULL,
			actor TEXT NOT NULL DEFAULT '',
			outcome TEXT NOT NULL,
			detail TEXT NOT NULL DEFAULT '',
			trace_id TEXT NOT NULL DEFAULT ''
		);
		CREATE INDEX IF NOT EXISTS idx_activity_ts ON activity(ts);
		CREATE INDEX IF NOT EXISTS idx_activity_kind ON activity(kind);
	`

	if _, err := j.db.Exec(schema); err != nil {
		return err
	}
	return nil
}

// Record journals one operation. Failures are logged and counted, not
// returned; the journal never blocks the operation it describes.
func (j *Journal) Record(ctx context.Context, kind, actor, outcome, detail string) {
	if j == nil {
		return
	}

	_, err := j.db.ExecContext(ctx,
		"INSERT INTO activity (ts, kind, actor, outcome, detail, trace_id) VALUES (?, ?, ?, ?, ?, ?)",
		j.now().UnixMilli(), kind, actor, outcome, detail, tracing.GetTraceID(ctx),
	)
	if err != nil {
		observability.RecordJournalWrite(kind, false)
		j.logger.Warn().Err(err).Str("kind", kind).Msg("Failed to record activity")
		return
	}
	observability.RecordJournalWrite(kind, true)
}

// Recent returns the newest entries, most recent first. A non-positive
// limit falls back to 50.
func (j *Journal) Recent(ctx context.Context, limit int) ([]Entry, error) {
	if j == nil {
		return []Entry{}, nil
	}
	if limit <= 0 {
		limit = 50
	}

	rows, err := j.db.QueryContext(ctx, `
		SELECT id, ts, kind, actor, outcome, detail, trace_id
		FROM activity
		ORDER BY ts DESC, id DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query activity: %w", err)
	}
	defer rows.Close()

	entries := []Entry{}
	for rows.Next() {
		var entry Entry
		var ts int64
		if err := rows.Scan(&entry.ID, &ts, &entry.Kind, &entry.Actor, &entry.Outcome, &entry.Detail, &entry.TraceID); err != nil {
			return nil, fmt.Errorf("failed to scan activity row: %w", err)
		}
		entry.Timestamp = time.UnixMilli(ts)
		entries = append(entries, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read activity rows: %w", err)
	}

	return entries, nil
}

// Close closes the journal database.
func (j *Journal) Close() error {
	if j == nil {
		return nil
	}
	return j.db.Close()
}
