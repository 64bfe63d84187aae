package indexer

import (
	"expenseindex/internal/clock"
	"expenseindex/internal/durablequeue"
	"expenseindex/internal/logging"
	"expenseindex/internal/observability"
)

// Option configures an Indexer during construction.
type Option func(*Indexer)

// WithLogger sets a custom structured logger.
func WithLogger(l logging.Logger) Option { return func(ix *Indexer) { ix.log = l } }

// WithMetrics sets a custom metrics sink for stage timings.
func WithMetrics(m observability.Metrics) Option { return func(ix *Indexer) { ix.metrics = m } }

// WithClock sets a custom time source, for deterministic tests.
func WithClock(c clock.Clock) Option { return func(ix *Indexer) { ix.clock = c } }

// WithMaxWorkers overrides the worker pool size (default from Config).
func WithMaxWorkers(n int) Option {
	return func(ix *Indexer) {
		if n > 0 {
			ix.maxWorkers = n
		}
	}
}

// WithSequential forces single-worker, in-order processing regardless of
// EnableParallelProcessing.
func WithSequential() Option { return func(ix *Indexer) { ix.parallel = false } }

// WithDurableQueue installs a durable-queue collaborator behind Submit: a
// best-effort external record of each submission, independent of the
// indexer's own in-process queue and history.
func WithDurableQueue(p durablequeue.Publisher) Option {
	return func(ix *Indexer) {
		if p != nil {
			ix.queue = p
		}
	}
}

// WithOnComplete registers a callback invoked after a job reaches a
// terminal state (completed or failed). Breaks the indexer/facade cycle
// described in the design notes: the indexer owns completion and simply
// notifies, rather than holding a handle back into the facade.
func WithOnComplete(fn func(job JobSnapshot)) Option {
	return func(ix *Indexer) { ix.onComplete = append(ix.onComplete, fn) }
}
