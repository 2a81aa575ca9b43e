package media

import (
	"os"
	"path/filepath"
)

// Workspace is a scratch directory scoped to one normalization. Close
// removes the directory and everything in it, on every exit path.
type Workspace struct {
	dir string
}

// NewWorkspace creates a fresh scratch directory.
func NewWorkspace(prefix string) (*Workspace, error) {
	dir, err := os.MkdirTemp("", prefix+"-*")
	if err != nil {
		return nil, err
	}
	return &Workspace{dir: dir}, nil
}

// Path returns the absolute path for name inside the workspace.
func (w *Workspace) Path(name string) string {
	return filepath.Join(w.dir, name)
}

// Close deletes the workspace.
func (w *Workspace) Close() error {
	return os.RemoveAll(w.dir)
}
