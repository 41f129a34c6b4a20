package journal

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

// timeLayout is fixed-width so created_at sorts chronologically as text
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

// Entry is one submitted note
type Entry struct {
	ID        int64
	NoteID    int64
	DeckName  string
	Front     string
	Back      string
	Tags      []string
	SourceApp string
	SourceURL string
	SessionID string
	CreatedAt time.Time
}

// Store persists entries in a SQLite database
type Store struct {
	db   *sql.DB
	path string
}

// DefaultPath returns ~/.local/state/ankify/journal.db
func DefaultPath() string {
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".local", "state", "ankify", "journal.db")
}

// Open opens or creates the journal at path, creating parent directories
func Open(path string) (*Store, error) {
	if path == "" {
		path = DefaultPath()
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("failed to create journal directory: %w", err)
	}

	db, err := sql.Open("sqlite3", path+"?_busy_timeout=5000&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("open journal: %w", err)
	}

	s := &Store{db: db, path: path}
	if err := s.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("init journal schema: %w", err)
	}

	return s, nil
}

// Path returns the database file location
func (s *Store) Path() string {
	return s.path
}

// Close closes the database
func (s *Store) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

func (s *Store) initSchema() error {
	schema := `
CREATE TABLE IF NOT EXISTS notes (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    note_id INTEGER NOT NULL,
    deck TEXT NOT NULL,
    front TEXT NOT NULL,
    back TEXT NOT NULL,
    tags TEXT NOT NULL DEFAULT '',
    source_app TEXT NOT NULL DEFAULT '',
    source_url TEXT NOT NULL DEFAULT '',
    session_id TEXT NOT NULL DEFAULT '',
    created_at TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_notes_created ON notes(created_at DESC);
`
	_, err := s.db.Exec(schema)
	return err
}

// Record appends e. A zero CreatedAt is set to now.
func (s *Store) Record(ctx context.Context, e Entry) error {
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now()
	}

	_, err := s.db.ExecContext(ctx, `
INSERT INTO notes (note_id, deck, front, back, tags, source_app, source_url, session_id, created_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		e.NoteID, e.DeckName, e.Front, e.Back,
		strings.Join(e.Tags, " "),
		e.SourceApp, e.SourceURL, e.SessionID,
		e.CreatedAt.UTC().Format(timeLayout),
	)
	if err != nil {
		return fmt.Errorf("failed to record note %d: %w", e.NoteID, err)
	}
	return nil
}

// Recent returns up to limit entries, newest first. limit <= 0 returns all.
func (s *Store) Recent(ctx context.Context, limit int) ([]Entry, error) {
	query := `SELECT id, note_id, deck, front, back, tags, source_app, source_url, session_id, created_at
FROM notes ORDER BY created_at DESC, id DESC`
	args := []any{}
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}
	return s.query(ctx, query, args...)
}

// All returns every entry, oldest first
func (s *Store) All(ctx context.Context) ([]Entry, error) {
	return s.query(ctx, `SELECT id, note_id, deck, front, back, tags, source_app, source_url, session_id, created_at
FROM notes ORDER BY created_at ASC, id ASC`)
}

func (s *Store) query(ctx context.Context, query string, args ...any) ([]Entry, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query journal: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var (
			e         Entry
			tags      string
			createdAt string
		)
		if err := rows.Scan(&e.ID, &e.NoteID, &e.DeckName, &e.Front, &e.Back,
			&tags, &e.SourceApp, &e.SourceURL, &e.SessionID, &createdAt); err != nil {
			return nil, fmt.Errorf("scan journal row: %w", err)
		}

		e.Tags = strings.Fields(tags)
		e.CreatedAt, err = time.Parse(timeLayout, createdAt)
		if err != nil {
			return nil, fmt.Errorf("parse created_at %q: %w", createdAt, err)
		}
		entries = append(entries, e)
	}

	return entries, rows.Err()
}
