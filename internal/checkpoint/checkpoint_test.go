package checkpoint

import (
	"os"
	"path/filepath"
	"reflect"
	"testing"

	"codeberg.org/snonux/linguafill/internal/record"
	"codeberg.org/snonux/linguafill/internal/testutil"
)

func newTestStore(t *testing.T) (*Store, string) {
	t.Helper()
	_, active, completed := testutil.CreateJobDirs(t)
	jobPath := filepath.Join(active, "job.json")
	testutil.WriteJobFile(t, jobPath, record.Collection{{"en": "Hello", "de": ""}})
	return NewStore(jobPath, nil), completed
}

func TestReadCursor(t *testing.T) {
	tests := []struct {
		name    string
		content string
		absent  bool
		want    int
	}{
		{name: "missing file", absent: true, want: 0},
		{name: "valid value", content: "5", want: 5},
		{name: "valid with whitespace", content: " 12\n", want: 12},
		{name: "garbage", content: "not a number", want: 0},
		{name: "negative", content: "-3", want: 0},
		{name: "empty", content: "", want: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store, _ := newTestStore(t)
			if !tt.absent {
				if err := os.WriteFile(store.CursorPath(), []byte(tt.content), 0644); err != nil {
					t.Fatal(err)
				}
			}
			if got := store.ReadCursor(); got != tt.want {
				t.Errorf("ReadCursor() = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestWriteCursorRoundTrip(t *testing.T) {
	store, _ := newTestStore(t)

	if err := store.WriteCursor(7); err != nil {
		t.Fatalf("WriteCursor() error = %v", err)
	}
	if got := store.ReadCursor(); got != 7 {
		t.Errorf("ReadCursor() after write = %d, want 7", got)
	}

	// Overwrites, no append
	if err := store.WriteCursor(8); err != nil {
		t.Fatalf("WriteCursor() error = %v", err)
	}
	if got := store.ReadCursor(); got != 8 {
		t.Errorf("ReadCursor() after overwrite = %d, want 8", got)
	}
}

func TestWorkingFilePaths(t *testing.T) {
	store := NewStore("/data/processing/batch7.json", nil)

	if got := store.CursorPath(); got != "/data/processing/batch7.progress" {
		t.Errorf("CursorPath() = %q", got)
	}
	if got := store.StagingPath(); got != "/data/processing/batch7.jsonl" {
		t.Errorf("StagingPath() = %q", got)
	}
}

func TestFinalizeAssemblesArtifact(t *testing.T) {
	store, completed := newTestStore(t)

	staged := record.Collection{
		{"en": "Hello", "de": "Hallo"},
		{"en": "World", "de": "Welt", "id": "w1"},
	}
	f, err := store.OpenStagingLog(false)
	if err != nil {
		t.Fatal(err)
	}
	for _, it := range staged {
		line, err := record.MarshalLine(it)
		if err != nil {
			t.Fatal(err)
		}
		if _, err := f.Write(line); err != nil {
			t.Fatal(err)
		}
	}
	f.Close()
	if err := store.WriteCursor(2); err != nil {
		t.Fatal(err)
	}

	if err := store.Finalize(completed); err != nil {
		t.Fatalf("Finalize() error = %v", err)
	}

	artifact := testutil.ReadArtifact(t, filepath.Join(completed, "job.json"))
	if !reflect.DeepEqual(artifact, staged) {
		t.Errorf("artifact = %v, want %v", artifact, staged)
	}

	testutil.AssertFileNotExists(t, store.StagingPath())
	testutil.AssertFileNotExists(t, store.CursorPath())
	testutil.AssertFileNotExists(t, store.JobPath())
}

func TestFinalizeWithoutStagingLog(t *testing.T) {
	store, completed := newTestStore(t)
	if err := store.WriteCursor(1); err != nil {
		t.Fatal(err)
	}

	if err := store.Finalize(completed); err != nil {
		t.Fatalf("Finalize() error = %v", err)
	}

	// Original job file moved unchanged, working files gone.
	testutil.AssertFileExists(t, filepath.Join(completed, "job.json"))
	testutil.AssertFileNotExists(t, store.JobPath())
	testutil.AssertFileNotExists(t, store.CursorPath())
}

func TestFinalizeCorruptStagingLogPreservesFiles(t *testing.T) {
	store, completed := newTestStore(t)

	if err := os.WriteFile(store.StagingPath(), []byte("{broken\n"), 0644); err != nil {
		t.Fatal(err)
	}
	if err := store.WriteCursor(1); err != nil {
		t.Fatal(err)
	}

	if err := store.Finalize(completed); err == nil {
		t.Fatal("Finalize() expected error for corrupt staging log")
	}

	// Everything is left in place for a retry.
	testutil.AssertFileExists(t, store.StagingPath())
	testutil.AssertFileExists(t, store.CursorPath())
	testutil.AssertFileExists(t, store.JobPath())
	testutil.AssertFileNotExists(t, filepath.Join(completed, "job.json"))
	testutil.AssertFileNotExists(t, filepath.Join(completed, "job.json.final"))
}

func TestFinalizeEmptyStagingLog(t *testing.T) {
	store, completed := newTestStore(t)

	// Staging log exists but holds nothing: every item was skipped.
	f, err := store.OpenStagingLog(false)
	if err != nil {
		t.Fatal(err)
	}
	f.Close()

	if err := store.Finalize(completed); err != nil {
		t.Fatalf("Finalize() error = %v", err)
	}

	artifact := testutil.ReadArtifact(t, filepath.Join(completed, "job.json"))
	if len(artifact) != 0 {
		t.Errorf("artifact has %d items, want 0", len(artifact))
	}
}

func TestOpenStagingLogModes(t *testing.T) {
	store, _ := newTestStore(t)

	f, err := store.OpenStagingLog(false)
	if err != nil {
		t.Fatal(err)
	}
	f.WriteString("{\"en\":\"a\"}\n")
	f.Close()

	// Resume keeps existing content.
	f, err = store.OpenStagingLog(true)
	if err != nil {
		t.Fatal(err)
	}
	f.WriteString("{\"en\":\"b\"}\n")
	f.Close()

	data, err := os.ReadFile(store.StagingPath())
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != "{\"en\":\"a\"}\n{\"en\":\"b\"}\n" {
		t.Errorf("append mode lost content: %q", data)
	}

	// Fresh start truncates.
	f, err = store.OpenStagingLog(false)
	if err != nil {
		t.Fatal(err)
	}
	f.Close()

	data, err = os.ReadFile(store.StagingPath())
	if err != nil {
		t.Fatal(err)
	}
	if len(data) != 0 {
		t.Errorf("truncate mode kept content: %q", data)
	}
}
