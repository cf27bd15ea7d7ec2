// Package workspace manages staging directories for export runs, supporting
// both ephemeral (timestamped) and persistent (fixed-path) modes.
//
// Ephemeral mode creates timestamped directories (e.g., confexport-20260829-101500)
// suitable for one-shot exports, cleaning up completely after use.
//
// Persistent mode uses a fixed directory path that persists across runs,
// enabling the git load stage to reuse its clone between exports.
package workspace

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"git.home.luguber.info/inful/confexport/internal/logfields"
)

// Manager handles staging directory operations (both temporary and persistent).
type Manager struct {
	baseDir    string
	stagingDir string
	persistent bool // If true, use stagingDir directly without timestamps
}

// NewManager creates a workspace manager with ephemeral timestamped directories.
func NewManager(baseDir string) *Manager {
	if baseDir == "" {
		baseDir = os.TempDir()
	}
	return &Manager{baseDir: baseDir}
}

// NewPersistentManager creates a workspace manager that uses a persistent directory.
// The workspace directory is fixed (baseDir/subdirName) and not cleaned up on Cleanup().
func NewPersistentManager(baseDir, subdirName string) *Manager {
	if baseDir == "" {
		baseDir = os.TempDir()
	}
	if subdirName == "" {
		subdirName = "working"
	}
	return &Manager{
		baseDir:    baseDir,
		stagingDir: filepath.Join(baseDir, subdirName),
		persistent: true,
	}
}

// Create creates the workspace directory.
// Ephemeral mode: a fresh timestamped directory. Persistent mode: ensures the
// fixed directory exists.
func (m *Manager) Create() error {
	if m.persistent {
		if err := os.MkdirAll(m.stagingDir, 0o750); err != nil {
			return fmt.Errorf("failed to create persistent workspace directory: %w", err)
		}
		slog.Info("Using persistent workspace", logfields.Path(m.stagingDir))
		return nil
	}

	timestamp := time.Now().Format("20060102-150405")
	stagingDir := filepath.Join(m.baseDir, fmt.Sprintf("confexport-%s", timestamp))
	if err := os.MkdirAll(stagingDir, 0o750); err != nil {
		return fmt.Errorf("failed to create workspace directory: %w", err)
	}

	m.stagingDir = stagingDir
	slog.Info("Created workspace", logfields.Path(stagingDir))
	return nil
}

// GetPath returns the path to the workspace directory.
func (m *Manager) GetPath() string {
	return m.stagingDir
}

// CreateSubdir creates a subdirectory within the workspace.
func (m *Manager) CreateSubdir(name string) (string, error) {
	if m.stagingDir == "" {
		return "", fmt.Errorf("workspace not created")
	}
	subdir := filepath.Join(m.stagingDir, name)
	if err := os.MkdirAll(subdir, 0o750); err != nil {
		return "", fmt.Errorf("failed to create subdirectory: %w", err)
	}
	return subdir, nil
}

// Cleanup removes the workspace directory.
// Persistent mode keeps the directory for reuse by the next run.
func (m *Manager) Cleanup() error {
	if m.stagingDir == "" {
		return nil
	}
	if m.persistent {
		slog.Debug("Skipping cleanup for persistent workspace", logfields.Path(m.stagingDir))
		return nil
	}
	if err := os.RemoveAll(m.stagingDir); err != nil {
		return fmt.Errorf("failed to remove workspace: %w", err)
	}
	m.stagingDir = ""
	return nil
}
