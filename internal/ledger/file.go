// Package ledger persists the set of source-post IDs already mirrored.
// Every store satisfies mirror.Ledger; the orchestrator takes the interface
// so tests can substitute the in-memory one.
package ledger

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/blacktop/skymirror/internal/logutil"
	"github.com/blacktop/skymirror/internal/mirror"
)

// FileStore keeps the ledger as a single JSON array of IDs, read fully at
// open and rewritten in full (pretty-printed) on every commit.
type FileStore struct {
	path string
	ids  []string
	seen map[string]struct{}
}

// OpenFile loads the ledger at path. A missing file is a fresh ledger; an
// unreadable or corrupt one degrades to empty with a warning rather than
// failing the run, at the cost of possibly re-mirroring.
func OpenFile(path string) *FileStore {
	store := &FileStore{path: path, seen: map[string]struct{}{}}

	data, err := os.ReadFile(path)
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			logutil.Warnf("ledger unreadable, starting empty: %v", err)
		}
		return store
	}

	var ids []string
	if err := json.Unmarshal(data, &ids); err != nil {
		logutil.Warnf("ledger corrupt, starting empty: %v", err)
		return store
	}

	store.ids = ids
	for _, id := range ids {
		store.seen[id] = struct{}{}
	}
	return store
}

// Has reports whether id was already committed.
func (s *FileStore) Has(id string) (bool, error) {
	_, ok := s.seen[id]
	return ok, nil
}

// Add commits id durably before updating in-memory state, so a failed write
// leaves the store consistent with the file.
func (s *FileStore) Add(id string) error {
	if _, ok := s.seen[id]; ok {
		return nil
	}

	ids := append(append([]string{}, s.ids...), id)
	data, err := json.MarshalIndent(ids, "", "  ")
	if err != nil {
		return mirror.LedgerIOError{Op: "encode", Err: err}
	}
	if err := writeAtomic(s.path, append(data, '\n')); err != nil {
		return mirror.LedgerIOError{Op: "write", Err: err}
	}

	s.ids = ids
	s.seen[id] = struct{}{}
	return nil
}

// Close is a no-op; every Add already reached disk.
func (s *FileStore) Close() error { return nil }

// writeAtomic replaces path via a temp file and rename so a crash mid-write
// never leaves a truncated ledger.
func writeAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".tmp-*")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("replace %s: %w", path, err)
	}
	return nil
}
