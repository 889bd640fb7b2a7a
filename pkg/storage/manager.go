package storage

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

// Manager handles frame file storage and duplicate detection
type Manager struct {
	outputDir string
	existing  map[string]bool
	mu        sync.RWMutex
}

// NewManager creates a storage manager rooted at outputDir, creating the
// directory if needed and scanning it for already downloaded frames
func NewManager(outputDir string) (*Manager, error) {
	if err := os.MkdirAll(outputDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create output directory: %w", err)
	}

	manager := &Manager{
		outputDir: outputDir,
		existing:  make(map[string]bool),
	}

	if err := manager.scanExistingFiles(); err != nil {
		return nil, fmt.Errorf("failed to scan existing files: %w", err)
	}

	return manager, nil
}

// scanExistingFiles records every .jpg already present in the output directory
func (m *Manager) scanExistingFiles() error {
	entries, err := os.ReadDir(m.outputDir)
	if err != nil {
		return fmt.Errorf("failed to read directory: %w", err)
	}

	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name := entry.Name()
		if filepath.Ext(name) == ".jpg" {
			key := strings.TrimSuffix(name, ".jpg")
			m.existing[key] = true
		}
	}

	return nil
}

// Has reports whether a frame with the given key is already on disk
func (m *Manager) Has(key string) bool {
	m.mu.RLock()
	if m.existing[key] {
		m.mu.RUnlock()
		return true
	}
	m.mu.RUnlock()

	// Double-check the filesystem in case the file appeared after the scan
	if _, err := os.Stat(m.framePath(key)); err == nil {
		m.mu.Lock()
		m.existing[key] = true
		m.mu.Unlock()
		return true
	}

	return false
}

// SaveFrame writes frame bytes from r to <key>.jpg atomically
func (m *Manager) SaveFrame(r io.Reader, key string) error {
	filename := m.framePath(key)

	tempFile := filename + ".tmp"
	out, err := os.Create(tempFile)
	if err != nil {
		return fmt.Errorf("failed to create temporary file: %w", err)
	}

	_, err = io.Copy(out, r)
	closeErr := out.Close()

	if err != nil {
		os.Remove(tempFile)
		return fmt.Errorf("failed to write frame data: %w", err)
	}
	if closeErr != nil {
		os.Remove(tempFile)
		return fmt.Errorf("failed to close file: %w", closeErr)
	}

	if err := os.Rename(tempFile, filename); err != nil {
		os.Remove(tempFile)
		return fmt.Errorf("failed to rename temporary file: %w", err)
	}

	m.mu.Lock()
	m.existing[key] = true
	m.mu.Unlock()

	return nil
}

// OutputDir returns the output directory path
func (m *Manager) OutputDir() string {
	return m.outputDir
}

// Count returns the number of frames known to be on disk
func (m *Manager) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.existing)
}

func (m *Manager) framePath(key string) string {
	return filepath.Join(m.outputDir, key+".jpg")
}
