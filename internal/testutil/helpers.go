package testutil

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"codeberg.org/snonux/linguafill/internal/record"
)

// CreateJobDirs creates pending/active/completed directories under a
// temp root and returns their paths.
func CreateJobDirs(t *testing.T) (pending, active, completed string) {
	t.Helper()

	root := t.TempDir()
	pending = filepath.Join(root, "todo")
	active = filepath.Join(root, "processing")
	completed = filepath.Join(root, "done")

	for _, dir := range []string{pending, active, completed} {
		if err := os.MkdirAll(dir, 0755); err != nil {
			t.Fatalf("Failed to create test directory %s: %v", dir, err)
		}
	}
	return pending, active, completed
}

// WriteJobFile writes a collection as a job source file.
func WriteJobFile(t *testing.T, path string, c record.Collection) {
	t.Helper()

	data, err := json.Marshal(c)
	if err != nil {
		t.Fatalf("Failed to encode job collection: %v", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		t.Fatalf("Failed to write job file %s: %v", path, err)
	}
}

// ReadArtifact decodes a final artifact back into a collection.
func ReadArtifact(t *testing.T, path string) record.Collection {
	t.Helper()

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("Failed to read artifact %s: %v", path, err)
	}
	var c record.Collection
	if err := json.Unmarshal(data, &c); err != nil {
		t.Fatalf("Failed to decode artifact %s: %v", path, err)
	}
	return c
}

// AssertFileExists checks if a file exists
func AssertFileExists(t *testing.T, path string) {
	t.Helper()

	if _, err := os.Stat(path); os.IsNotExist(err) {
		t.Errorf("Expected file to exist: %s", path)
	}
}

// AssertFileNotExists checks if a file does not exist
func AssertFileNotExists(t *testing.T, path string) {
	t.Helper()

	if _, err := os.Stat(path); err == nil {
		t.Errorf("Expected file to not exist: %s", path)
	}
}
