// Package processor drives one job through its lifecycle: load the
// record collection, resume from the persisted cursor, dispatch the
// remaining items to a bounded worker pool, commit completions in
// strict original order through the staging log and cursor, and
// finalize the job once every index has been evaluated. Completions
// arrive in arbitrary order; a reorder buffer plus a next-expected
// cursor turns them into an in-order durable commit stream, so an
// interrupted run always resumes from a consistent prefix.
package processor
