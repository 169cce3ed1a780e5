package domain

import "time"

// DocumentStatus tracks a document's ingestion lifecycle.
// A document is created as StatusProcessing and reaches exactly one
// terminal state; there is no transition back. A force re-ingest creates
// a brand-new document rather than resurrecting the old one.
type DocumentStatus string

const (
	// StatusProcessing marks an ingestion in flight. A row stuck in this
	// state after a process crash has no automatic reconciliation.
	StatusProcessing DocumentStatus = "processing"

	// StatusCompleted marks a fully ingested document.
	StatusCompleted DocumentStatus = "completed"

	// StatusFailed marks an ingestion that raised after the row existed.
	// ErrorMessage carries the underlying error text verbatim.
	StatusFailed DocumentStatus = "failed"
)

// Document represents one ingested financial filing.
// The triple (Ticker, FiscalYear, DocType) is unique across the corpus
// and acts as the deduplication key.
type Document struct {
	// ID is the opaque generated identifier.
	ID string

	// Company is the issuer name (e.g. "Infosys Ltd").
	Company string

	// Ticker is the uppercased ticker symbol.
	Ticker string

	// FiscalYear is the filing's fiscal year.
	FiscalYear int

	// DocType is the normalised filing type tag (e.g. "20-F").
	DocType string

	// Filename is the original basename of the source PDF.
	Filename string

	// PageCount is the source PDF's page count.
	PageCount int

	// TotalTokens is the token count summed over all node texts.
	TotalTokens int

	// NodeCount is the number of nodes in the flattened tree.
	NodeCount int

	// ChunkCount is the number of chunks persisted for this document.
	ChunkCount int

	// Status is the lifecycle state.
	Status DocumentStatus

	// ErrorMessage holds the failure reason when Status is StatusFailed.
	ErrorMessage string

	// IngestedAt is when ingestion was submitted.
	IngestedAt time.Time
}

// IngestStatus is the caller-visible outcome of an ingest call.
type IngestStatus string

const (
	// IngestCompleted means the document was fully ingested.
	IngestCompleted IngestStatus = "completed"

	// IngestDuplicate means a document with the same filing key already
	// exists. This is not an error; batch callers treat it as
	// success-for-idempotence.
	IngestDuplicate IngestStatus = "duplicate"

	// IngestFailed means ingestion failed; Message names the cause.
	IngestFailed IngestStatus = "failed"
)

// IngestResult is returned by the ingestion orchestrator.
// For IngestDuplicate, DocID references the existing document.
type IngestResult struct {
	DocID         string
	Status        IngestStatus
	ChunksCreated int
	NodeCount     int
	PageCount     int
	Message       string
}

// RemoteDocument is a row in the cloud-indexing side table. The hosted
// service owns tree and chunk storage; locally we only track the filing
// metadata the service does not know about.
type RemoteDocument struct {
	DocID      string
	Filename   string
	Company    string
	Ticker     string
	FiscalYear int
	DocType    string
	PageCount  int
	Status     DocumentStatus
	CreatedAt  time.Time
}
