package driven

import (
	"context"

	"github.com/fildex-labs/fildex-cli/internal/core/domain"
)

// RemoteIndexStatus is a point-in-time view of a hosted document.
type RemoteIndexStatus struct {
	// Status is the service-side processing state, mapped onto the local
	// lifecycle vocabulary.
	Status domain.DocumentStatus

	// PageCount is reported by the service once processing finishes;
	// zero while still in flight.
	PageCount int
}

// RemoteIndexer is the hosted document-indexing API. The service owns
// document content, tree construction and retrieval; callers keep their
// own metadata locally.
type RemoteIndexer interface {
	// SubmitDocument uploads the PDF and returns the service-assigned
	// document id. Processing continues server-side after the call
	// returns.
	SubmitDocument(ctx context.Context, pdfPath string) (string, error)

	// DocumentStatus reports the current processing state of a
	// previously submitted document.
	DocumentStatus(ctx context.Context, docID string) (*RemoteIndexStatus, error)

	// Ping validates the service is reachable and the API key accepted.
	Ping(ctx context.Context) error
}
