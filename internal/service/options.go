package service

import (
	"expenseindex/internal/clock"
	"expenseindex/internal/logging"
	"expenseindex/internal/observability"
)

// Option configures a Service during construction.
type Option func(*Service)

// WithLogger sets a custom structured logger.
func WithLogger(l logging.Logger) Option { return func(s *Service) { s.log = l } }

// WithMetrics sets a custom metrics sink.
func WithMetrics(m observability.Metrics) Option { return func(s *Service) { s.metrics = m } }

// WithClock sets a custom time source, for deterministic tests.
func WithClock(c clock.Clock) Option { return func(s *Service) { s.clock = c } }
