package history

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

// Entry is one recorded artifact.
type Entry struct {
	ID              int64     `json:"id"`
	SessionID       string    `json:"session_id"`
	Kind            string    `json:"kind"`
	Filename        string    `json:"filename"`
	Path            string    `json:"path"`
	MIMEType        string    `json:"mime_type"`
	SizeBytes       int64     `json:"size_bytes"`
	Frames          int       `json:"frames"`
	Width           int       `json:"width"`
	Height          int       `json:"height"`
	UsedFallback    bool      `json:"used_fallback"`
	Codec           string    `json:"codec,omitempty"`
	DurationSeconds float64   `json:"duration_seconds,omitempty"`
	CreatedAt       time.Time `json:"created_at"`
}

// Store is the export history database.
type Store struct {
	db   *sql.DB
	path string
}

// Open creates or opens the database at path.
func Open(ctx context.Context, path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("ensure history directory: %w", err)
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, execErr := db.ExecContext(ctx, pragma); execErr != nil {
			_ = db.Close()
			return nil, fmt.Errorf("apply pragma %q: %w", pragma, execErr)
		}
	}

	store := &Store{db: db, path: path}
	if err := store.initSchema(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return store, nil
}

// Path is the database file.
func (s *Store) Path() string { return s.path }

// Close closes the database.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Add records an artifact and returns it with ID set. A zero CreatedAt is
// stamped with the current time.
func (s *Store) Add(ctx context.Context, entry Entry) (Entry, error) {
	if entry.Filename == "" || entry.Kind == "" {
		return Entry{}, errors.New("history entry requires kind and filename")
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now()
	}
	entry.CreatedAt = entry.CreatedAt.UTC()

	res, err := s.db.ExecContext(ctx,
		`INSERT INTO exports (
            session_id, kind, filename, path, mime_type, size_bytes, frames,
            width, height, used_fallback, codec, duration_seconds, created_at
        ) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		entry.SessionID,
		entry.Kind,
		entry.Filename,
		entry.Path,
		entry.MIMEType,
		entry.SizeBytes,
		entry.Frames,
		entry.Width,
		entry.Height,
		boolToInt(entry.UsedFallback),
		nullableString(entry.Codec),
		nullableFloat(entry.DurationSeconds),
		entry.CreatedAt.Format(time.RFC3339Nano),
	)
	if err != nil {
		return Entry{}, fmt.Errorf("insert export: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return Entry{}, fmt.Errorf("last insert id: %w", err)
	}
	entry.ID = id
	return entry, nil
}

// List returns up to limit entries, newest first. A limit <= 0 returns all.
func (s *Store) List(ctx context.Context, limit int) ([]Entry, error) {
	query := `SELECT id, session_id, kind, filename, path, mime_type, size_bytes, frames,
        width, height, used_fallback, codec, duration_seconds, created_at
        FROM exports ORDER BY created_at DESC, id DESC`
	args := []any{}
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list exports: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		entry, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate exports: %w", err)
	}
	return entries, nil
}

// CountBySession returns how many artifacts a session produced.
func (s *Store) CountBySession(ctx context.Context, sessionID string) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(1) FROM exports WHERE session_id = ?", sessionID).Scan(&n); err != nil {
		return 0, fmt.Errorf("count exports: %w", err)
	}
	return n, nil
}

func scanEntry(rows *sql.Rows) (Entry, error) {
	var (
		entry     Entry
		fallback  int
		codec     sql.NullString
		duration  sql.NullFloat64
		createdAt string
	)
	if err := rows.Scan(
		&entry.ID,
		&entry.SessionID,
		&entry.Kind,
		&entry.Filename,
		&entry.Path,
		&entry.MIMEType,
		&entry.SizeBytes,
		&entry.Frames,
		&entry.Width,
		&entry.Height,
		&fallback,
		&codec,
		&duration,
		&createdAt,
	); err != nil {
		return Entry{}, fmt.Errorf("scan export: %w", err)
	}
	entry.UsedFallback = fallback != 0
	entry.Codec = codec.String
	entry.DurationSeconds = duration.Float64
	if ts, err := time.Parse(time.RFC3339Nano, createdAt); err == nil {
		entry.CreatedAt = ts
	}
	return entry, nil
}

func boolToInt(v bool) int {
	if v {
		return 1
	}
	return 0
}

func nullableString(v string) any {
	if v == "" {
		return nil
	}
	return v
}

func nullableFloat(v float64) any {
	if v == 0 {
		return nil
	}
	return v
}
