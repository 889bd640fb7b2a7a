package storage

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
)

func TestManager(t *testing.T) {
	tempDir := t.TempDir()

	manager, err := NewManager(tempDir)
	if err != nil {
		t.Fatalf("Failed to create manager: %v", err)
	}

	if manager.Count() != 0 {
		t.Error("Expected initial frame count to be 0")
	}
	if manager.Has("S04E12_100") {
		t.Error("Expected Has to return false for non-existent frame")
	}

	testData := []byte("fake jpeg data")
	if err := manager.SaveFrame(bytes.NewReader(testData), "S04E12_100"); err != nil {
		t.Fatalf("Failed to save frame: %v", err)
	}

	expectedPath := filepath.Join(tempDir, "S04E12_100.jpg")
	content, err := os.ReadFile(expectedPath)
	if err != nil {
		t.Fatalf("Failed to read saved file: %v", err)
	}
	if !bytes.Equal(content, testData) {
		t.Error("File content does not match expected data")
	}

	if !manager.Has("S04E12_100") {
		t.Error("Expected Has to return true for saved frame")
	}
	if manager.Count() != 1 {
		t.Errorf("Expected frame count 1, got %d", manager.Count())
	}

	// No leftover temp file
	if _, err := os.Stat(expectedPath + ".tmp"); !os.IsNotExist(err) {
		t.Error("Temporary file should not remain after save")
	}
}

func TestManagerScansExistingFiles(t *testing.T) {
	tempDir := t.TempDir()

	for _, name := range []string{"S01E01_5000.jpg", "S02E03_1234.jpg", "notes.txt"} {
		if err := os.WriteFile(filepath.Join(tempDir, name), []byte("x"), 0644); err != nil {
			t.Fatalf("Failed to create file %s: %v", name, err)
		}
	}

	manager, err := NewManager(tempDir)
	if err != nil {
		t.Fatalf("Failed to create manager: %v", err)
	}

	if manager.Count() != 2 {
		t.Errorf("Expected 2 frames after scan (txt ignored), got %d", manager.Count())
	}
	if !manager.Has("S01E01_5000") {
		t.Error("Expected scanned frame to be known")
	}
}

func TestManagerHasDetectsOutOfBandFiles(t *testing.T) {
	tempDir := t.TempDir()

	manager, err := NewManager(tempDir)
	if err != nil {
		t.Fatalf("Failed to create manager: %v", err)
	}

	// File created after the initial scan
	if err := os.WriteFile(filepath.Join(tempDir, "S05E05_42.jpg"), []byte("x"), 0644); err != nil {
		t.Fatal(err)
	}

	if !manager.Has("S05E05_42") {
		t.Error("Has should fall back to a filesystem check")
	}
}

func TestManagerCreatesOutputDir(t *testing.T) {
	tempDir := t.TempDir()
	nested := filepath.Join(tempDir, "a", "b")

	if _, err := NewManager(nested); err != nil {
		t.Fatalf("Failed to create manager with nested dir: %v", err)
	}
	if _, err := os.Stat(nested); err != nil {
		t.Error("Expected nested output directory to be created")
	}
}
