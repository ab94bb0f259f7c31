// Package tuner discovers the worker count that maximizes sustained
// item throughput. It runs a coarse geometric sweep of candidate
// counts followed by a bisection refinement between the best
// candidate's neighbors, caching every measurement so no count is
// timed twice. Trials run the real per-item path, so tuning work is
// real work: completed items flow through the caller's normal commit
// path and count as job progress.
package tuner
