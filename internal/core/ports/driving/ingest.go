package driving

import (
	"context"

	"github.com/fildex-labs/fildex-cli/internal/core/domain"
)

// IngestRequest describes one PDF to ingest. Ticker, FiscalYear and
// DocType are optional; when absent they are inferred from the filename.
type IngestRequest struct {
	// PDFPath is the path to the source PDF on disk.
	PDFPath string

	// Company is the issuer name.
	Company string

	// Ticker overrides filename inference when set.
	Ticker string

	// FiscalYear overrides filename inference when non-zero.
	FiscalYear int

	// DocType overrides filename inference when set.
	DocType string

	// Force deletes an existing document with the same filing key
	// (cascading to its tree and chunks) before ingesting.
	Force bool
}

// Ingestor runs the local ingestion pipeline for single documents.
type Ingestor interface {
	// Ingest runs the full pipeline. Failures after the document row
	// exists are captured into the row and reported via the result's
	// status, not the error; the error is reserved for failures that
	// leave no persisted trace.
	Ingest(ctx context.Context, req IngestRequest) (*domain.IngestResult, error)
}

// CorpusManager exposes read/delete operations over the ingested corpus.
type CorpusManager interface {
	// List returns all documents ordered by (ticker, fiscal_year).
	List(ctx context.Context) ([]domain.Document, error)

	// Get returns one document by id.
	Get(ctx context.Context, docID string) (*domain.Document, error)

	// Delete removes a document and, by cascade, its tree and chunks.
	// Returns domain.ErrNotFound when the id is unknown.
	Delete(ctx context.Context, docID string) error

	// Tree returns the stored tree artifacts for a document.
	Tree(ctx context.Context, docID string) (*domain.DocumentTree, error)

	// Chunks returns a document's chunks ordered by (node_id, chunk_index).
	Chunks(ctx context.Context, docID string) ([]domain.Chunk, error)
}

// RemoteIngestor drives the cloud-indexing stack: documents are uploaded
// to the hosted service, which owns tree construction and retrieval;
// locally only filing metadata and status are tracked.
type RemoteIngestor interface {
	// Submit uploads the PDF and records a processing side-table row.
	Submit(ctx context.Context, req IngestRequest) (*domain.RemoteDocument, error)

	// Refresh polls the service for the document's status and updates
	// the side-table row.
	Refresh(ctx context.Context, docID string) (*domain.RemoteDocument, error)

	// List returns side-table rows ordered by (company, fiscal_year).
	List(ctx context.Context) ([]domain.RemoteDocument, error)
}
