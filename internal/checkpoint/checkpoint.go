// Package checkpoint persists per-job progress: the integer cursor
// marking the next item to process, the append-only staging log of
// processed items, and the atomic assembly of the final artifact.
package checkpoint

import (
	"bufio"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"codeberg.org/snonux/linguafill/internal/record"
)

// Store manages the working files of one job while it sits in the
// active directory. It is owned by a single processor for the job's
// lifetime; there is no concurrent writer.
type Store struct {
	jobPath string
	logger  *slog.Logger
}

// NewStore creates a store for the job file at jobPath.
func NewStore(jobPath string, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{jobPath: jobPath, logger: logger}
}

// JobPath returns the path of the job source file.
func (s *Store) JobPath() string { return s.jobPath }

// CursorPath returns the path of the progress file.
func (s *Store) CursorPath() string { return replaceExt(s.jobPath, ".progress") }

// StagingPath returns the path of the staging log.
func (s *Store) StagingPath() string { return replaceExt(s.jobPath, ".jsonl") }

func replaceExt(path, ext string) string {
	return strings.TrimSuffix(path, filepath.Ext(path)) + ext
}

// ReadCursor returns the persisted cursor, or 0 when the progress file
// is absent or unparsable. It never fails the caller: a bad progress
// file means a fresh start.
func (s *Store) ReadCursor() int {
	data, err := os.ReadFile(s.CursorPath())
	if os.IsNotExist(err) {
		return 0
	}
	if err != nil {
		s.logger.Error("could not read progress file, starting from 0",
			"path", s.CursorPath(), "error", err)
		return 0
	}
	n, err := strconv.Atoi(strings.TrimSpace(string(data)))
	if err != nil || n < 0 {
		s.logger.Error("could not parse progress file, starting from 0",
			"path", s.CursorPath(), "error", err)
		return 0
	}
	return n
}

// WriteCursor overwrites the progress file with index. Callers must
// only invoke it after the corresponding staging log entry is durable.
func (s *Store) WriteCursor(index int) error {
	if err := os.WriteFile(s.CursorPath(), []byte(strconv.Itoa(index)), 0644); err != nil {
		return fmt.Errorf("failed to write progress file: %w", err)
	}
	return nil
}

// OpenStagingLog opens the staging log for writing: append mode when
// resuming a partially processed job, truncate otherwise.
func (s *Store) OpenStagingLog(resume bool) (*os.File, error) {
	flags := os.O_CREATE | os.O_WRONLY
	if resume {
		flags |= os.O_APPEND
	} else {
		flags |= os.O_TRUNC
	}
	f, err := os.OpenFile(s.StagingPath(), flags, 0644)
	if err != nil {
		return nil, fmt.Errorf("failed to open staging log: %w", err)
	}
	return f, nil
}

// Finalize assembles the final artifact from the staging log, writes
// it to a temporary path beside the destination, verifies it parses,
// atomically renames it into completedDir, and removes the working
// files. When no staging log exists the job produced no output and the
// original job file is moved to completedDir unchanged.
//
// On any failure nothing but the temporary file is deleted; the job
// remains recoverable from the staging log and cursor.
func (s *Store) Finalize(completedDir string) error {
	name := filepath.Base(s.jobPath)
	finalPath := filepath.Join(completedDir, name)

	s.logger.Info("finalizing job", "job", name, "dest", completedDir)

	if _, err := os.Stat(s.StagingPath()); os.IsNotExist(err) {
		s.logger.Warn("no staging log found, moving original job file to completed",
			"job", name)
		if err := os.Rename(s.jobPath, finalPath); err != nil {
			return fmt.Errorf("failed to move job file to completed: %w", err)
		}
		_ = os.Remove(s.CursorPath())
		return nil
	}

	collection, err := s.readStagingLog()
	if err != nil {
		return err
	}

	data, err := record.MarshalCollection(collection)
	if err != nil {
		return fmt.Errorf("failed to encode final artifact: %w", err)
	}

	tempPath := finalPath + ".final"
	if err := os.WriteFile(tempPath, data, 0644); err != nil {
		return fmt.Errorf("failed to write final artifact: %w", err)
	}

	// Verify the artifact is parseable before it replaces anything.
	var check record.Collection
	verify, err := os.ReadFile(tempPath)
	if err == nil {
		err = json.Unmarshal(verify, &check)
	}
	if err != nil {
		_ = os.Remove(tempPath)
		return fmt.Errorf("final artifact failed validation: %w", err)
	}

	if err := os.Rename(tempPath, finalPath); err != nil {
		_ = os.Remove(tempPath)
		return fmt.Errorf("failed to move final artifact into place: %w", err)
	}

	s.logger.Info("created final artifact", "path", finalPath, "items", len(collection))

	_ = os.Remove(s.StagingPath())
	_ = os.Remove(s.CursorPath())
	_ = os.Remove(s.jobPath)
	return nil
}

// readStagingLog decodes the staging log line by line, in order.
func (s *Store) readStagingLog() (record.Collection, error) {
	f, err := os.Open(s.StagingPath())
	if err != nil {
		return nil, fmt.Errorf("failed to open staging log: %w", err)
	}
	defer f.Close()

	var collection record.Collection
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		var it record.Item
		if err := json.Unmarshal([]byte(line), &it); err != nil {
			return nil, fmt.Errorf("failed to decode staging log line %d: %w", lineNo, err)
		}
		collection = append(collection, it)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read staging log: %w", err)
	}
	return collection, nil
}
