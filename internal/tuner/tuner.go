package tuner

import (
	"context"
	"log/slog"
	"sort"
	"sync"
	"sync/atomic"
	"time"
)

// Work processes one pending item through the production path. It
// reports false when no work remains (or the context is done), which
// ends the current trial early.
type Work func(ctx context.Context) bool

// DefaultCandidates is the geometrically spaced sweep list.
var DefaultCandidates = []int{1, 2, 4, 8, 12, 16, 24, 32, 48, 64, 96, 128, 256, 512}

const (
	// DefaultTrialDuration is how long each timed trial runs.
	DefaultTrialDuration = 1500 * time.Millisecond
	// DefaultImproveMargin is the relative throughput gain a candidate
	// must show over the best-so-far to keep the sweep going.
	DefaultImproveMargin = 0.01
	// DefaultConfirmMargin is the relaxed margin used when re-checking
	// the best-so-far at a plateau, tolerating measurement noise.
	DefaultConfirmMargin = 0.005
)

// Options configures a tuning session. Zero values select defaults.
type Options struct {
	Candidates    []int
	TrialDuration time.Duration
	ImproveMargin float64
	ConfirmMargin float64
	Logger        *slog.Logger
}

// Session holds the state of one tuning run: the work source, the
// candidate list, and the measurement cache keyed by worker count.
type Session struct {
	work Work
	opts Options

	cache map[int]float64

	// measureFn performs one timed trial; it is a field so tests can
	// substitute deterministic throughput numbers.
	measureFn func(ctx context.Context, workers int) float64
}

// New creates a tuning session over the given work source.
func New(work Work, opts Options) *Session {
	if len(opts.Candidates) == 0 {
		opts.Candidates = DefaultCandidates
	}
	if opts.TrialDuration <= 0 {
		opts.TrialDuration = DefaultTrialDuration
	}
	if opts.ImproveMargin <= 0 {
		opts.ImproveMargin = DefaultImproveMargin
	}
	if opts.ConfirmMargin <= 0 {
		opts.ConfirmMargin = DefaultConfirmMargin
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	s := &Session{
		work:  work,
		opts:  opts,
		cache: make(map[int]float64),
	}
	s.measureFn = s.timedTrial
	return s
}

// Run executes the coarse sweep and the bisection refinement and
// returns the worker count with the highest observed throughput.
func (s *Session) Run(ctx context.Context) int {
	s.opts.Logger.Info("starting worker auto-tuning")

	// Warm-up: one item with one worker to prime connections and caches.
	if !s.work(ctx) {
		s.opts.Logger.Warn("no items available for tuning")
		return s.opts.Candidates[0]
	}

	bestIdx := s.coarseSweep(ctx)
	s.refine(ctx, bestIdx)

	best := s.bestMeasured()
	s.opts.Logger.Info("auto-tuning complete", "workers", best, "throughput", s.cache[best])
	return best
}

// coarseSweep walks the candidate list while throughput keeps
// improving by at least the improvement margin, and returns the index
// of the best candidate.
func (s *Session) coarseSweep(ctx context.Context) int {
	candidates := s.opts.Candidates

	bestIdx := 0
	bestRate := s.measure(ctx, candidates[0])

	i := 1
	for i < len(candidates) && ctx.Err() == nil {
		c := candidates[i]
		rate := s.measure(ctx, c)
		if rate >= bestRate*(1+s.opts.ImproveMargin) {
			bestIdx, bestRate = i, rate
			i++
			continue
		}

		// Plateau. Re-check the best-so-far once with a relaxed
		// threshold; a better re-measurement means the plateau was
		// noise, so fold it in and keep sweeping.
		s.opts.Logger.Debug("throughput plateaued, confirming best-so-far",
			"candidate", c, "best", candidates[bestIdx])
		confirm := s.measureFresh(ctx, candidates[bestIdx])
		if confirm >= bestRate*(1+s.opts.ConfirmMargin) {
			bestRate = confirm
			i++
			continue
		}
		break
	}

	s.opts.Logger.Debug("coarse sweep settled",
		"workers", candidates[bestIdx], "throughput", bestRate)
	return bestIdx
}

// refine binary-searches the interval between the best candidate's
// neighbors in the sweep list, evaluating midpoint and midpoint+1 and
// discarding the half on the side of the lower measurement.
func (s *Session) refine(ctx context.Context, bestIdx int) {
	candidates := s.opts.Candidates

	lo := candidates[bestIdx]
	if bestIdx > 0 {
		lo = candidates[bestIdx-1]
	}
	hi := candidates[bestIdx]
	if bestIdx+1 < len(candidates) {
		hi = candidates[bestIdx+1]
	}

	for hi-lo > 2 && ctx.Err() == nil {
		mid := (lo + hi) / 2
		r1 := s.measure(ctx, mid)
		r2 := s.measure(ctx, mid+1)
		if r1 >= r2 {
			hi = mid + 1
		} else {
			lo = mid
		}
	}
	if hi-lo == 2 && ctx.Err() == nil {
		s.measure(ctx, lo+1)
	}
}

// measure returns the cached throughput for a worker count, running a
// timed trial only on the first request.
func (s *Session) measure(ctx context.Context, workers int) float64 {
	if rate, ok := s.cache[workers]; ok {
		return rate
	}
	return s.measureFresh(ctx, workers)
}

// measureFresh always runs a trial. The cache keeps the best of the
// old and new measurements so a noisy re-check cannot erase a good one.
func (s *Session) measureFresh(ctx context.Context, workers int) float64 {
	rate := s.measureFn(ctx, workers)
	if old, ok := s.cache[workers]; ok && old > rate {
		rate = old
	}
	s.cache[workers] = rate
	s.opts.Logger.Debug("measured throughput", "workers", workers, "items_per_sec", rate)
	return rate
}

// timedTrial runs the work function under the given concurrency for
// the trial duration and returns completed items per second.
func (s *Session) timedTrial(ctx context.Context, workers int) float64 {
	start := time.Now()
	deadline := start.Add(s.opts.TrialDuration)

	var completed int64
	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for time.Now().Before(deadline) && ctx.Err() == nil {
				if !s.work(ctx) {
					return
				}
				atomic.AddInt64(&completed, 1)
			}
		}()
	}
	wg.Wait()

	elapsed := time.Since(start).Seconds()
	if elapsed <= 0 {
		return 0
	}
	return float64(atomic.LoadInt64(&completed)) / elapsed
}

// bestMeasured returns the cached worker count with the highest
// throughput, preferring the smaller count on ties.
func (s *Session) bestMeasured() int {
	counts := make([]int, 0, len(s.cache))
	for c := range s.cache {
		counts = append(counts, c)
	}
	sort.Ints(counts)

	best := s.opts.Candidates[0]
	bestRate := -1.0
	for _, c := range counts {
		if s.cache[c] > bestRate {
			best, bestRate = c, s.cache[c]
		}
	}
	return best
}
