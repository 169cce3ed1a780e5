package services

import (
	"context"
	"fmt"

	"github.com/fildex-labs/fildex-cli/internal/core/domain"
	"github.com/fildex-labs/fildex-cli/internal/core/ports/driven"
	"github.com/fildex-labs/fildex-cli/internal/core/ports/driving"
)

// Ensure CorpusService implements the interface.
var _ driving.CorpusManager = (*CorpusService)(nil)

// CorpusService exposes read and delete operations over the ingested
// corpus. All heavy lifting lives in the store; this service only adds
// the vault cleanup on delete.
type CorpusService struct {
	store driven.CorpusStore
	vault driven.FileVault
}

// NewCorpusService creates a corpus service.
func NewCorpusService(store driven.CorpusStore, vault driven.FileVault) *CorpusService {
	return &CorpusService{store: store, vault: vault}
}

// List returns all documents ordered by (ticker, fiscal_year).
func (s *CorpusService) List(ctx context.Context) ([]domain.Document, error) {
	return s.store.ListDocuments(ctx)
}

// Get returns one document by id.
func (s *CorpusService) Get(ctx context.Context, docID string) (*domain.Document, error) {
	return s.store.GetDocument(ctx, docID)
}

// Delete removes a document, its tree and chunks, and its stored PDF.
func (s *CorpusService) Delete(ctx context.Context, docID string) error {
	if err := s.store.DeleteDocument(ctx, docID); err != nil {
		return err
	}
	if err := s.vault.Remove(ctx, docID); err != nil {
		return fmt.Errorf("document deleted but stored pdf remains: %w", err)
	}
	return nil
}

// Tree returns the stored tree artifacts for a document.
func (s *CorpusService) Tree(ctx context.Context, docID string) (*domain.DocumentTree, error) {
	return s.store.GetTree(ctx, docID)
}

// Chunks returns a document's chunks ordered by (node_id, chunk_index).
func (s *CorpusService) Chunks(ctx context.Context, docID string) ([]domain.Chunk, error) {
	return s.store.GetChunks(ctx, docID)
}
