// Package durablequeue publishes submitted jobs to an external durable
// queue behind the Indexer.Submit boundary. The indexer's own queue and
// history stay in-process and transient: a crash loses in-flight jobs. A
// durable queue is an optional collaborator for replay/audit, not a
// replacement for that in-process state.
package durablequeue

import (
	"context"
	"time"
)

// JobRecord is the durable representation of one submitted job: enough to
// reconstruct or replay the submission, not the full in-memory job state.
type JobRecord struct {
	JobID       string
	Tenant      string
	DocID       string
	MIMEType    string
	SourceURL   string
	Priority    int
	SubmittedAt time.Time
}

// Publisher records a job submission outside the indexer's in-process
// queue. Publish is best-effort from the indexer's perspective: a failure
// here never fails Submit.
type Publisher interface {
	Publish(ctx context.Context, record JobRecord) error
	Close() error
}

// Noop is the default Publisher: it carries no external dependency and
// does nothing, matching the core's in-process-only design when no
// durable queue is configured.
type Noop struct{}

func (Noop) Publish(context.Context, JobRecord) error { return nil }
func (Noop) Close() error                             { return nil }
