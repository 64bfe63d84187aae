package query

import (
	"expenseindex/internal/clock"
	"expenseindex/internal/logging"
	"expenseindex/internal/observability"
)

// Option configures an Engine during construction.
type Option func(*Engine)

// WithLogger sets a custom structured logger.
func WithLogger(l logging.Logger) Option { return func(e *Engine) { e.log = l } }

// WithMetrics sets a custom metrics sink for search timings.
func WithMetrics(m observability.Metrics) Option { return func(e *Engine) { e.metrics = m } }

// WithClock sets a custom time source, for deterministic tests.
func WithClock(c clock.Clock) Option { return func(e *Engine) { e.clock = c } }

// WithEnhancement toggles query enhancement (enabled by default).
func WithEnhancement(enabled bool) Option { return func(e *Engine) { e.enableEnhancement = enabled } }

// WithPostProcessing toggles highlighting and deduplication (enabled by
// default).
func WithPostProcessing(enabled bool) Option {
	return func(e *Engine) { e.enablePostProcessing = enabled }
}

// WithDeduplication toggles deduplication independently of highlighting
// (enabled by default).
func WithDeduplication(enabled bool) Option {
	return func(e *Engine) { e.enableDeduplication = enabled }
}

// WithMaxLimit caps the number of results any single request can request.
func WithMaxLimit(n int) Option {
	return func(e *Engine) {
		if n > 0 {
			e.maxLimit = n
		}
	}
}
