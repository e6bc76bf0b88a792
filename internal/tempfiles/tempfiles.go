// Package tempfiles tracks temporary files and directories created during a
// solve and guarantees their removal when the owning scope is released.
//
// Scopes nest: Push opens a scope, Add and MkdirTemp register paths in the
// innermost one, and Pop removes everything registered since the matching
// Push. Paths registered with exists=false may never be created; Pop skips
// them silently.
package tempfiles

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sync"

	"go.uber.org/multierr"
)

// ErrNoScope is returned when a path is registered without an open scope.
var ErrNoScope = errors.New("tempfiles: no open scope")

// Manager owns a stack of temp-file scopes.
// Safe for concurrent use, although a single solve only touches it from one goroutine.
type Manager struct {
	mu     sync.Mutex
	dir    string // parent for MkdirTemp; os.TempDir() when empty
	scopes [][]string
	logger *slog.Logger
}

// NewManager creates a manager rooted at dir. An empty dir means os.TempDir().
func NewManager(dir string, logger *slog.Logger) *Manager {
	if logger == nil {
		logger = slog.Default()
	}
	return &Manager{dir: dir, logger: logger}
}

// Push opens a new scope.
func (m *Manager) Push() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.scopes = append(m.scopes, nil)
}

// Depth reports the number of open scopes.
func (m *Manager) Depth() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.scopes)
}

// Add registers path for removal when the current scope is popped.
// When exists is true the path must already be present on disk.
func (m *Manager) Add(path string, exists bool) error {
	if exists {
		if _, err := os.Stat(path); err != nil {
			return fmt.Errorf("tempfiles: registering %s: %w", path, err)
		}
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.scopes) == 0 {
		return ErrNoScope
	}
	top := len(m.scopes) - 1
	m.scopes[top] = append(m.scopes[top], path)
	m.logger.Debug("Registered temp file", "path", path, "exists", exists)
	return nil
}

// Paths returns the paths registered in the current scope, oldest first.
func (m *Manager) Paths() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.scopes) == 0 {
		return nil
	}
	return append([]string(nil), m.scopes[len(m.scopes)-1]...)
}

// MkdirTemp creates a directory under the manager's root and registers it
// in the current scope.
func (m *Manager) MkdirTemp(pattern string) (string, error) {
	if m.Depth() == 0 {
		return "", ErrNoScope
	}
	dir, err := os.MkdirTemp(m.dir, pattern)
	if err != nil {
		return "", fmt.Errorf("tempfiles: failed to create temp dir: %w", err)
	}
	if err := m.Add(dir, true); err != nil {
		os.RemoveAll(dir)
		return "", err
	}
	return dir, nil
}

// Pop closes the current scope. When remove is true every registered path
// is deleted, newest first; paths that do not exist are skipped. All removal
// failures are reported together.
func (m *Manager) Pop(remove bool) error {
	m.mu.Lock()
	if len(m.scopes) == 0 {
		m.mu.Unlock()
		return ErrNoScope
	}
	top := len(m.scopes) - 1
	paths := m.scopes[top]
	m.scopes = m.scopes[:top]
	m.mu.Unlock()

	if !remove {
		m.logger.Debug("Keeping temp files", "count", len(paths))
		return nil
	}

	var errs error
	for i := len(paths) - 1; i >= 0; i-- {
		path := paths[i]
		if _, err := os.Lstat(path); os.IsNotExist(err) {
			continue
		}
		if err := os.RemoveAll(path); err != nil {
			errs = multierr.Append(errs, fmt.Errorf("tempfiles: failed to remove %s: %w", path, err))
			continue
		}
		m.logger.Debug("Removed temp file", "path", path)
	}
	return errs
}
