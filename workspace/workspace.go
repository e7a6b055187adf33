// Package workspace manages the scratch directory rendered pages are
// written to.
//
//	ws, err := workspace.New("")
//	if err != nil {
//	    return err
//	}
//	defer ws.Close()
//
// Every path a render job writes is derived from the page index alone, so
// readers can find a page without the job's result.
package workspace

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

const dirPattern = "pdf2pptx-*"

// Workspace is a private temporary directory. It is safe for concurrent use.
type Workspace struct {
	dir string

	mu     sync.Mutex
	closed bool
}

// New creates a workspace under parent, or under os.TempDir when parent
// is empty.
func New(parent string) (*Workspace, error) {
	dir, err := os.MkdirTemp(parent, dirPattern)
	if err != nil {
		return nil, fmt.Errorf("failed to create workspace: %w", err)
	}
	return &Workspace{dir: dir}, nil
}

// Dir returns the workspace directory.
func (w *Workspace) Dir() string {
	return w.dir
}

// PageImage returns the image path for the 0-based page index.
func (w *Workspace) PageImage(index int) string {
	return PageImage(w.dir, index)
}

// PageImage returns the image path for index inside dir: page-<index>.png.
func PageImage(dir string, index int) string {
	return filepath.Join(dir, fmt.Sprintf("page-%d.png", index))
}

// Exists reports whether the workspace directory is still present.
func (w *Workspace) Exists() bool {
	_, err := os.Stat(w.dir)
	return err == nil
}

// Close removes the directory and everything in it. Calling Close more
// than once is harmless.
func (w *Workspace) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return nil
	}
	w.closed = true
	if err := os.RemoveAll(w.dir); err != nil {
		return fmt.Errorf("failed to remove workspace %s: %w", w.dir, err)
	}
	return nil
}
