package driven

import (
	"context"

	"github.com/fildex-labs/fildex-cli/internal/core/domain"
)

// CorpusStore persists documents, trees and chunks.
//
// The store guarantees referential integrity: deleting a document
// transactionally removes its tree and chunks via cascade. Callers never
// re-implement the cascade.
//
// Transaction discipline: each method is one logical transaction. The
// orchestrator never holds a transaction open across external calls; tree
// generation and embedding happen between store interactions, and only
// the final write phase (FinalizeDocument) is a multi-statement
// transaction.
type CorpusStore interface {
	// InsertDocument creates a new document row. The filing key
	// (ticker, fiscal_year, doc_type) is enforced by a unique constraint
	// at insert time; a violation is reported as domain.ErrDuplicate.
	// Racing ingests of the same key are therefore resolved by the
	// store, not by check-then-act.
	InsertDocument(ctx context.Context, doc *domain.Document) error

	// GetDocument retrieves a document by id.
	// Returns domain.ErrNotFound if it does not exist.
	GetDocument(ctx context.Context, id string) (*domain.Document, error)

	// FindByFiling retrieves the document matching a filing key.
	// Returns domain.ErrNotFound if none exists.
	FindByFiling(ctx context.Context, ticker string, fiscalYear int, docType string) (*domain.Document, error)

	// ListDocuments returns all documents ordered by (ticker, fiscal_year).
	ListDocuments(ctx context.Context) ([]domain.Document, error)

	// DeleteDocument removes a document; its tree and chunks are
	// cascade-deleted. Returns domain.ErrNotFound if no row matched.
	DeleteDocument(ctx context.Context, id string) error

	// MarkFailed sets a document's status to failed and records the
	// error message verbatim. Returns domain.ErrNotFound if no row
	// matched.
	MarkFailed(ctx context.Context, id string, message string) error

	// FinalizeDocument writes the tree row and all chunk rows, and
	// updates the document's counts and status to completed, in a
	// single transaction. Any failure rolls the whole write back.
	FinalizeDocument(ctx context.Context, doc *domain.Document, tree *domain.DocumentTree, chunks []domain.Chunk) error

	// GetTree retrieves the stored tree and its derived artifacts.
	// Returns domain.ErrNotFound if the document has no tree.
	GetTree(ctx context.Context, docID string) (*domain.DocumentTree, error)

	// GetChunks returns a document's chunks ordered by (node_id, chunk_index).
	GetChunks(ctx context.Context, docID string) ([]domain.Chunk, error)
}

// RemoteStore persists the cloud-indexing stack's side table. The hosted
// service owns document content; locally we track filing metadata and
// processing status only.
type RemoteStore interface {
	// UpsertRemoteDocument inserts or replaces a side-table row.
	UpsertRemoteDocument(ctx context.Context, doc *domain.RemoteDocument) error

	// UpdateRemoteStatus updates status and, when non-zero, page count.
	UpdateRemoteStatus(ctx context.Context, docID string, status domain.DocumentStatus, pageCount int) error

	// GetRemoteDocument retrieves a side-table row by the service's doc id.
	// Returns domain.ErrNotFound if it does not exist.
	GetRemoteDocument(ctx context.Context, docID string) (*domain.RemoteDocument, error)

	// ListRemoteDocuments returns all rows ordered by (company, fiscal_year).
	ListRemoteDocuments(ctx context.Context) ([]domain.RemoteDocument, error)
}
