package workspace

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"git.home.luguber.info/inful/buildmaster/internal/logfields"
)

// Manager handles staging directories (both temporary and persistent).
type Manager struct {
	baseDir    string
	purpose    string
	dir        string
	persistent bool
}

// NewManager creates a manager for ephemeral timestamped directories under
// baseDir. purpose becomes part of the directory name.
func NewManager(baseDir, purpose string) *Manager {
	if baseDir == "" {
		baseDir = os.TempDir()
	}
	if purpose == "" {
		purpose = "stage"
	}
	return &Manager{baseDir: baseDir, purpose: purpose}
}

// NewPersistentManager creates a manager for the fixed directory
// baseDir/subdirName. Cleanup leaves it in place.
func NewPersistentManager(baseDir, subdirName string) *Manager {
	if baseDir == "" {
		baseDir = os.TempDir()
	}
	if subdirName == "" {
		subdirName = "working"
	}
	return &Manager{
		baseDir:    baseDir,
		purpose:    subdirName,
		dir:        filepath.Join(baseDir, subdirName),
		persistent: true,
	}
}

// Create creates the workspace directory.
func (m *Manager) Create() error {
	if m.persistent {
		if err := os.MkdirAll(m.dir, 0o750); err != nil {
			return fmt.Errorf("failed to create persistent workspace directory: %w", err)
		}
		slog.Debug("Using persistent workspace", logfields.Path(m.dir))
		return nil
	}

	if err := os.MkdirAll(m.baseDir, 0o750); err != nil {
		return fmt.Errorf("failed to create workspace base directory: %w", err)
	}
	pattern := fmt.Sprintf("buildmaster-%s-%s-*", m.purpose, time.Now().Format("20060102-150405"))
	dir, err := os.MkdirTemp(m.baseDir, pattern)
	if err != nil {
		return fmt.Errorf("failed to create workspace directory: %w", err)
	}

	m.dir = dir
	slog.Debug("Created workspace", logfields.Path(dir))
	return nil
}

// GetPath returns the path to the workspace directory.
func (m *Manager) GetPath() string {
	return m.dir
}

// Release forgets an ephemeral directory without removing it. Callers use it
// after the directory was renamed into its final place.
func (m *Manager) Release() {
	if !m.persistent {
		m.dir = ""
	}
}

// Cleanup removes an ephemeral workspace directory. Persistent directories
// are kept.
func (m *Manager) Cleanup() error {
	if m.dir == "" {
		return nil
	}

	if m.persistent {
		slog.Debug("Skipping cleanup for persistent workspace", logfields.Path(m.dir))
		return nil
	}

	if err := os.RemoveAll(m.dir); err != nil {
		return fmt.Errorf("failed to cleanup workspace: %w", err)
	}

	slog.Debug("Cleaned up workspace", logfields.Path(m.dir))
	m.dir = ""
	return nil
}
