package ledger

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"github.com/blacktop/skymirror/internal/mirror"
)

// SQLiteStore keeps the ledger in a SQLite database, for deployments where
// the mirrored-post set outgrows a rewritten-in-full JSON file.
type SQLiteStore struct {
	db *sql.DB
}

// OpenSQLite opens or creates the database at dbPath. Unlike the JSON store
// an open failure here is returned, not degraded: a store that cannot be
// opened cannot commit either.
func OpenSQLite(dbPath string) (*SQLiteStore, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, mirror.LedgerIOError{Op: "open", Err: fmt.Errorf("create db dir: %w", err)}
	}

	db, err := sql.Open("sqlite", dbPath+"?_pragma=journal_mode(wal)")
	if err != nil {
		return nil, mirror.LedgerIOError{Op: "open", Err: err}
	}

	schema := `
	CREATE TABLE IF NOT EXISTS mirrored_posts (
		id          TEXT PRIMARY KEY,
		mirrored_at TEXT NOT NULL
	);`
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, mirror.LedgerIOError{Op: "migrate", Err: err}
	}

	return &SQLiteStore{db: db}, nil
}

// Has reports whether id was already committed.
func (s *SQLiteStore) Has(id string) (bool, error) {
	var one int
	err := s.db.QueryRow(`SELECT 1 FROM mirrored_posts WHERE id = ?`, id).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, mirror.LedgerIOError{Op: "read", Err: err}
	}
	return true, nil
}

// Add commits id. Re-adding a committed id is a no-op.
func (s *SQLiteStore) Add(id string) error {
	_, err := s.db.Exec(
		`INSERT INTO mirrored_posts (id, mirrored_at) VALUES (?, ?) ON CONFLICT(id) DO NOTHING`,
		id, time.Now().UTC().Format(time.RFC3339),
	)
	if err != nil {
		return mirror.LedgerIOError{Op: "write", Err: err}
	}
	return nil
}

// Close releases the database handle.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
