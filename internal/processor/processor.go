package processor

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"codeberg.org/snonux/linguafill/internal/checkpoint"
	"codeberg.org/snonux/linguafill/internal/record"
	"codeberg.org/snonux/linguafill/internal/translate"
	"codeberg.org/snonux/linguafill/internal/tuner"
)

// AutoTuneMinItems is the smallest pending work set worth tuning;
// below it the trials would consume most of the job.
const AutoTuneMinItems = 40

// Config holds the per-job processing settings.
type Config struct {
	// Workers is the fixed pool size; ignored when auto-tuning kicks in.
	Workers int
	// AutoTune enables the throughput-driven worker count search.
	AutoTune bool
	// TrialDuration overrides the tuner's timed trial length.
	TrialDuration time.Duration
	// APIDelay is an optional pause before each translation call.
	APIDelay time.Duration
	// CompletedDir is where finalized jobs land.
	CompletedDir string
}

// Result summarizes one processing run.
type Result struct {
	// Completed is true when the whole collection was evaluated and
	// the job was finalized.
	Completed bool
	// Items is the collection length.
	Items int
	// Evaluated counts cursor advances made by this run.
	Evaluated int
	// Written counts items appended to the staging log by this run.
	Written int
	// Skipped counts skip sentinels flushed by this run.
	Skipped int
	// Workers is the pool size actually used.
	Workers int
	// Duration is the wall-clock time of the run.
	Duration time.Duration
}

// Processor processes jobs sitting in the active directory. One
// instance is shared across jobs; all per-job state lives in the run.
type Processor struct {
	translator translate.Translator
	cfg        Config
	logger     *slog.Logger
}

// New creates a processor.
func New(translator translate.Translator, cfg Config, logger *slog.Logger) *Processor {
	if cfg.Workers < 1 {
		cfg.Workers = 1
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Processor{translator: translator, cfg: cfg, logger: logger}
}

// ProcessJob runs one job to completion or to the point where no more
// progress can be made. An error means shared durable state could not
// be advanced; the job stays in the active directory and is resumable
// either way.
func (p *Processor) ProcessJob(ctx context.Context, jobPath string) (Result, error) {
	logger := p.logger.With("job", jobPath)
	logger.Info("starting job")
	start := time.Now()

	store := checkpoint.NewStore(jobPath, logger)

	collection, err := record.LoadCollection(jobPath)
	if err != nil {
		logger.Error("could not load job, leaving it for retry", "error", err)
		return Result{}, err
	}

	cursor := store.ReadCursor()
	if cursor > len(collection) {
		logger.Warn("cursor beyond collection length, clamping",
			"cursor", cursor, "items", len(collection))
		cursor = len(collection)
	}
	if cursor > 0 {
		logger.Info("resuming job", "cursor", cursor, "items", len(collection))
	}

	result := Result{Items: len(collection), Workers: p.cfg.Workers}

	if cursor >= len(collection) {
		logger.Info("all items already evaluated, finalizing")
		if err := store.Finalize(p.cfg.CompletedDir); err != nil {
			logger.Error("finalization failed, working files preserved", "error", err)
			return result, err
		}
		result.Completed = true
		result.Duration = time.Since(start)
		return result, nil
	}

	stagingLog, err := store.OpenStagingLog(cursor > 0)
	if err != nil {
		return result, err
	}
	defer stagingLog.Close()

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	results := make(chan outcome, 64)
	d := &drain{
		log:    stagingLog,
		store:  store,
		buffer: make(map[int]outcome),
		next:   cursor,
		cancel: cancel,
		logger: logger,
	}
	drained := make(chan struct{})
	go func() {
		defer close(drained)
		d.loop(results)
	}()

	feed := &indexFeed{next: int64(cursor), limit: int64(len(collection))}
	work := func(ctx context.Context) bool {
		if ctx.Err() != nil {
			return false
		}
		i, ok := feed.take()
		if !ok {
			return false
		}
		results <- p.processItem(ctx, i, collection[i])
		return true
	}

	workers := p.cfg.Workers
	if p.cfg.AutoTune && len(collection)-cursor > AutoTuneMinItems {
		session := tuner.New(work, tuner.Options{
			TrialDuration: p.cfg.TrialDuration,
			Logger:        logger,
		})
		workers = session.Run(runCtx)
	}
	result.Workers = workers
	logger.Info("dispatching items", "workers", workers, "pending", len(collection)-cursor)

	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for work(runCtx) {
			}
		}()
	}
	wg.Wait()
	close(results)
	<-drained

	result.Evaluated = d.next - cursor
	result.Written = d.written
	result.Skipped = d.skipped
	result.Duration = time.Since(start)

	if d.err != nil {
		logger.Error("run aborted, progress saved",
			"cursor", d.next, "error", d.err)
		return result, d.err
	}

	if d.next < len(collection) {
		logger.Info("run incomplete, job stays in active directory for resume",
			"cursor", d.next, "items", len(collection))
		return result, nil
	}

	logger.Info("all items evaluated", "items", len(collection))
	if err := store.Finalize(p.cfg.CompletedDir); err != nil {
		logger.Error("finalization failed, working files preserved", "error", err)
		return result, err
	}
	result.Completed = true
	return result, nil
}

// outcome is one worker completion. Exactly one of item/skipped/
// abandoned describes the item's fate.
type outcome struct {
	index int
	// item is the processed (possibly pass-through) record; nil when
	// skipped or abandoned.
	item record.Item
	// skipped marks an item excluded from output; the cursor still
	// advances past it.
	skipped bool
	// abandoned marks a completion discarded due to cancellation; the
	// cursor must not advance so the item is re-processed on resume.
	abandoned bool
}

// processItem classifies one item and, when translatable, calls the
// translation service to fill its missing language fields. Failures
// are never fatal here: the worst case is the original item passed
// through unmodified.
func (p *Processor) processItem(ctx context.Context, index int, it record.Item) (out outcome) {
	defer func() {
		if r := recover(); r != nil {
			p.logger.Error("item processing panicked, passing item through",
				"index", index, "panic", r)
			out = outcome{index: index, item: it}
		}
	}()

	if !record.Translatable(it) {
		p.logger.Debug("item has fewer than two language fields, skipping", "index", index)
		return outcome{index: index, skipped: true}
	}

	missing := record.MissingTargets(it)
	if len(missing) == 0 {
		p.logger.Debug("item already fully translated", "index", index)
		return outcome{index: index, item: it}
	}

	srcLang, srcText, ok := record.SelectSource(it)
	if !ok {
		p.logger.Warn("no populated source language, passing item through", "index", index)
		return outcome{index: index, item: it}
	}

	if p.cfg.APIDelay > 0 {
		select {
		case <-time.After(p.cfg.APIDelay):
		case <-ctx.Done():
			return outcome{index: index, abandoned: true}
		}
	}

	translations, err := p.translator.Translate(ctx, srcText)
	if err != nil {
		if ctx.Err() != nil {
			return outcome{index: index, abandoned: true}
		}
		p.logger.Error("translation failed, passing item through",
			"index", index, "source_lang", srcLang, "error", err)
		return outcome{index: index, item: it}
	}

	filled := it.Clone()
	for _, lang := range missing {
		if text, ok := translations[lang]; ok && text != "" {
			filled[lang] = text
		}
	}
	p.logger.Debug("item translated", "index", index, "source_lang", srcLang)
	return outcome{index: index, item: filled}
}

// indexFeed hands out pending collection indices to workers.
type indexFeed struct {
	next  int64
	limit int64
}

func (f *indexFeed) take() (int, bool) {
	n := atomic.AddInt64(&f.next, 1) - 1
	if n >= f.limit {
		return 0, false
	}
	return int(n), true
}

// drain is the single owner of the reorder buffer and the durable
// commit path. It consumes worker completions in arrival order and
// flushes them in index order: staging log append, log sync, cursor
// write, one item at a time. The cursor is therefore never ahead of
// what is durable in the staging log.
type drain struct {
	log    *os.File
	store  *checkpoint.Store
	buffer map[int]outcome
	next   int

	written int
	skipped int
	err     error
	cancel  context.CancelFunc
	logger  *slog.Logger
}

func (d *drain) loop(results <-chan outcome) {
	for res := range results {
		if d.err != nil || res.abandoned {
			continue
		}
		d.buffer[res.index] = res
		d.flush()
	}
}

func (d *drain) flush() {
	for {
		res, ok := d.buffer[d.next]
		if !ok {
			return
		}
		delete(d.buffer, d.next)

		if res.skipped {
			d.skipped++
		} else {
			line, err := record.MarshalLine(res.item)
			if err == nil {
				_, err = d.log.Write(line)
			}
			if err == nil {
				err = d.log.Sync()
			}
			if err != nil {
				d.fail(fmt.Errorf("failed to append to staging log: %w", err))
				return
			}
			d.written++
		}

		if err := d.store.WriteCursor(d.next + 1); err != nil {
			d.fail(err)
			return
		}
		d.next++
	}
}

// fail records the first durable-state error and cancels the run. The
// loop keeps consuming completions so workers never block on send.
func (d *drain) fail(err error) {
	d.err = err
	d.logger.Error("drain error, aborting run", "cursor", d.next, "error", err)
	d.cancel()
}
