// Package queue implements the directory-based job state machine:
// jobs move pending → active → completed, an interrupted job found in
// the active directory is always resumed before new pending jobs are
// claimed, and jobs are processed one at a time (concurrency lives
// inside a job, not across jobs).
package queue

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"
)

// DefaultPollInterval is how often watch mode re-scans the pending
// directory.
const DefaultPollInterval = 30 * time.Second

// ProcessFunc processes one job file sitting in the active directory.
type ProcessFunc func(ctx context.Context, jobPath string) error

// Dirs are the three job locations.
type Dirs struct {
	Pending   string
	Active    string
	Completed string
}

// Ensure creates the job directories if they do not exist.
func (d Dirs) Ensure() error {
	for _, dir := range []string{d.Pending, d.Active, d.Completed} {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create directory %s: %w", dir, err)
		}
	}
	return nil
}

// Queue drives jobs through the state machine.
type Queue struct {
	dirs         Dirs
	process      ProcessFunc
	logger       *slog.Logger
	pollInterval time.Duration
}

// New creates a queue. pollInterval only matters in watch mode; zero
// selects the default.
func New(dirs Dirs, process ProcessFunc, logger *slog.Logger, pollInterval time.Duration) *Queue {
	if logger == nil {
		logger = slog.Default()
	}
	if pollInterval <= 0 {
		pollInterval = DefaultPollInterval
	}
	return &Queue{dirs: dirs, process: process, logger: logger, pollInterval: pollInterval}
}

// RunOnce resumes interrupted jobs, then claims and processes pending
// jobs until both locations are empty or the context is cancelled.
// Per-job failures are logged and do not stop the loop; failed jobs
// stay in the active directory for the next invocation.
func (q *Queue) RunOnce(ctx context.Context) error {
	active, err := listJobs(q.dirs.Active)
	if err != nil {
		return err
	}
	if len(active) > 0 {
		q.logger.Info("found interrupted jobs, resuming", "count", len(active))
		for _, jobPath := range active {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			if err := q.process(ctx, jobPath); err != nil {
				q.logger.Error("job failed, left in active directory",
					"job", filepath.Base(jobPath), "error", err)
			}
		}
	} else {
		q.logger.Info("no interrupted jobs found")
	}

	for ctx.Err() == nil {
		jobPath, ok, err := q.claimNext()
		if err != nil {
			return err
		}
		if !ok {
			break
		}
		if err := q.process(ctx, jobPath); err != nil {
			q.logger.Error("job failed, left in active directory",
				"job", filepath.Base(jobPath), "error", err)
		}
	}
	return ctx.Err()
}

// Watch runs forever, polling the pending directory for new jobs until
// the context is cancelled.
func (q *Queue) Watch(ctx context.Context) error {
	q.logger.Info("watching for jobs", "pending", q.dirs.Pending, "interval", q.pollInterval)
	for {
		if err := q.RunOnce(ctx); err != nil && ctx.Err() == nil {
			q.logger.Error("queue pass failed", "error", err)
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(q.pollInterval):
		}
	}
}

// claimNext moves the first pending job into the active directory.
// The rename is the atomic pending → active transition; losing a race
// against a concurrent move is benign and reported as "nothing to
// claim" after a re-scan.
func (q *Queue) claimNext() (string, bool, error) {
	pending, err := listJobs(q.dirs.Pending)
	if err != nil {
		return "", false, err
	}
	for _, src := range pending {
		dst := filepath.Join(q.dirs.Active, filepath.Base(src))
		if err := os.Rename(src, dst); err != nil {
			if os.IsNotExist(err) {
				continue
			}
			q.logger.Error("could not claim job", "job", filepath.Base(src), "error", err)
			continue
		}
		q.logger.Info("claimed job", "job", filepath.Base(src))
		return dst, true, nil
	}
	return "", false, nil
}

// listJobs returns the .json job files in dir, sorted by name.
func listJobs(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to list %s: %w", dir, err)
	}
	var jobs []string
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".json") {
			continue
		}
		jobs = append(jobs, filepath.Join(dir, entry.Name()))
	}
	sort.Strings(jobs)
	return jobs, nil
}
