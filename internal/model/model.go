// Package model defines the core entities of the indexing and retrieval
// pipeline: documents, fragments, indexing jobs, and cache entries.
package model

import "time"

// DocumentClass labels the kind of document detected during parsing, which
// in turn selects the chunking strategy.
type DocumentClass string

const (
	ClassExpenseDocument    DocumentClass = "expense_document"
	ClassFinancialStatement DocumentClass = "financial_statement"
	ClassContract           DocumentClass = "contract"
	ClassReport             DocumentClass = "report"
	ClassGeneralDocument    DocumentClass = "general_document"
)

// Document is the parent record a set of fragments belongs to.
type Document struct {
	DocumentID   string
	Tenant       string
	MIMEType     string
	ByteSize     int
	Class        DocumentClass
	IngestedAt   time.Time
	SourceURL    string
	CallerMeta   map[string]any
}

// ChunkType tags the strategy that produced a fragment.
type ChunkType string

const (
	ChunkFixedSize          ChunkType = "fixed_size"
	ChunkSemantic           ChunkType = "semantic"
	ChunkHierarchicalParent ChunkType = "hierarchical_parent"
	ChunkHierarchicalChild  ChunkType = "hierarchical_child"
	ChunkExpenseGeneral     ChunkType = "expense_general"
	ChunkParagraphFallback  ChunkType = "paragraph_fallback"
)

// AmountFilterOp enumerates the comparison operators accepted on the
// numeric amount facet.
type AmountFilterOp string

const (
	OpEqual        AmountFilterOp = "="
	OpLessThan     AmountFilterOp = "<"
	OpLessEqual    AmountFilterOp = "<="
	OpGreaterThan  AmountFilterOp = ">"
	OpGreaterEqual AmountFilterOp = ">="
)

// Fragment is the unit of retrieval: a chunk of a document's text plus its
// embedding and typed expense attributes.
type Fragment struct {
	FragmentID string
	Tenant     string
	DocumentID string

	Content string
	Vector  []float32

	ChunkIndex       int
	ChunkType        ChunkType
	ParentFragmentID string
	StartChar        int
	EndChar          int

	Amount       float64
	Category     string
	Merchant     string
	ExpenseDate  string
	DocumentType string
	SourceURL    string

	MetadataJSON string
	CreatedAt    time.Time
}

// JobStatus is a node in the indexing job's state machine.
type JobStatus string

const (
	StatusPending    JobStatus = "pending"
	StatusProcessing JobStatus = "processing"
	StatusCompleted  JobStatus = "completed"
	StatusFailed     JobStatus = "failed"
)

// Stage is a named point in an IndexingJob's progress, paired with the
// percentage complete when that stage begins.
type Stage string

const (
	StagePending   Stage = "pending"
	StageParsing   Stage = "parsing"
	StageChunking  Stage = "chunking"
	StageIndexing  Stage = "indexing"
	StageCompleted Stage = "completed"
)

// StageCompletion records a finished stage and when it finished.
type StageCompletion struct {
	Stage       Stage
	CompletedAt time.Time
}

// Progress tracks a job's position in the pipeline.
type Progress struct {
	Stage            Stage
	Percentage       int
	StagesCompleted  []StageCompletion
}

// IndexingJob is the indexer's in-memory record of one unit of ingestion
// work. It is never persisted; restart loses in-flight jobs by design.
type IndexingJob struct {
	JobID    string
	Tenant   string
	DocID    string

	// SourceBytes holds the document content; SourceURL, when set, records
	// where that content came from.
	SourceBytes []byte
	MIMEType    string
	SourceURL   string

	CallerMeta map[string]any
	Priority   int

	Status JobStatus

	CreatedAt   time.Time
	StartedAt   time.Time
	CompletedAt time.Time

	Progress Progress

	ChunksCreated         int
	ProcessingTimeSeconds float64
	ErrorMessage          string
	RetryCount            int
}

// CacheEntry is the value stored against a (tenant, content hash) key by the
// indexer's content-hash cache.
type CacheEntry struct {
	JobID             string
	DocumentID        string
	ChunksCreated     int
	ProcessingTime    float64
	CachedAt          time.Time
}
