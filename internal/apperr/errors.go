// Package apperr defines the error taxonomy shared by every stage of the
// pipeline: sentinel kinds that are errors.Is-comparable, wrapped with
// context at each call site, and classified FATAL vs TRANSIENT so the
// indexer knows whether a failure is worth retrying.
package apperr

import (
	"errors"
	"fmt"
)

// Kind is one of the named error categories surfaced to callers.
type Kind string

const (
	KindBadRequest          Kind = "BadRequest"
	KindUnsupportedType     Kind = "UnsupportedType"
	KindEmptyContent        Kind = "EmptyContent"
	KindUpstreamUnavailable Kind = "UpstreamUnavailable"
	KindTimeout             Kind = "Timeout"
	KindShutdown            Kind = "Shutdown"
	KindInternal             Kind = "Internal"
)

// Sentinel errors for each kind. Wrap with fmt.Errorf("...: %w", ErrX) to
// attach context while keeping errors.Is(err, ErrX) working.
var (
	ErrBadRequest          = errors.New(string(KindBadRequest))
	ErrUnsupportedType     = errors.New(string(KindUnsupportedType))
	ErrEmptyContent        = errors.New(string(KindEmptyContent))
	ErrUpstreamUnavailable = errors.New(string(KindUpstreamUnavailable))
	ErrTimeout             = errors.New(string(KindTimeout))
	ErrShutdown            = errors.New(string(KindShutdown))
	ErrInternal            = errors.New(string(KindInternal))
)

var sentinels = map[Kind]error{
	KindBadRequest:          ErrBadRequest,
	KindUnsupportedType:     ErrUnsupportedType,
	KindEmptyContent:        ErrEmptyContent,
	KindUpstreamUnavailable: ErrUpstreamUnavailable,
	KindTimeout:             ErrTimeout,
	KindShutdown:            ErrShutdown,
	KindInternal:            ErrInternal,
}

// Wrap attaches msg as context to the sentinel for kind.
func Wrap(kind Kind, msg string, cause error) error {
	sentinel := sentinels[kind]
	if sentinel == nil {
		sentinel = ErrInternal
	}
	if cause == nil {
		return fmt.Errorf("%s: %w", msg, sentinel)
	}
	return fmt.Errorf("%s: %w: %w", msg, sentinel, cause)
}

// Classify reports whether err should be retried. Only KindUpstreamUnavailable
// and KindTimeout are TRANSIENT; everything else, including unrecognised
// errors, is treated as FATAL.
func Classify(err error) (kind Kind, transient bool) {
	switch {
	case errors.Is(err, ErrUpstreamUnavailable):
		return KindUpstreamUnavailable, true
	case errors.Is(err, ErrTimeout):
		return KindTimeout, true
	case errors.Is(err, ErrBadRequest):
		return KindBadRequest, false
	case errors.Is(err, ErrUnsupportedType):
		return KindUnsupportedType, false
	case errors.Is(err, ErrEmptyContent):
		return KindEmptyContent, false
	case errors.Is(err, ErrShutdown):
		return KindShutdown, false
	default:
		return KindInternal, false
	}
}
