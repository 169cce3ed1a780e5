// Package memory provides in-memory store implementations used by
// service tests. Semantics mirror the SQLite adapter, including the
// filing-key constraint and the delete cascade.
package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/fildex-labs/fildex-cli/internal/core/domain"
	"github.com/fildex-labs/fildex-cli/internal/core/ports/driven"
)

// Ensure CorpusStore implements the interface.
var _ driven.CorpusStore = (*CorpusStore)(nil)

// CorpusStore is an in-memory implementation of driven.CorpusStore.
type CorpusStore struct {
	mu        sync.RWMutex
	documents map[string]domain.Document
	trees     map[string]domain.DocumentTree
	chunks    map[string][]domain.Chunk

	// FinalizeErr, when set, makes FinalizeDocument fail. Lets tests
	// exercise the orchestrator's failure path.
	FinalizeErr error
}

// NewCorpusStore creates a new in-memory corpus store.
func NewCorpusStore() *CorpusStore {
	return &CorpusStore{
		documents: make(map[string]domain.Document),
		trees:     make(map[string]domain.DocumentTree),
		chunks:    make(map[string][]domain.Chunk),
	}
}

// InsertDocument creates a document row, enforcing the filing key.
func (s *CorpusStore) InsertDocument(_ context.Context, doc *domain.Document) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.documents {
		if existing.Ticker == doc.Ticker && existing.FiscalYear == doc.FiscalYear && existing.DocType == doc.DocType {
			return domain.ErrDuplicate
		}
	}
	s.documents[doc.ID] = *doc
	return nil
}

// GetDocument retrieves a document by id.
func (s *CorpusStore) GetDocument(_ context.Context, id string) (*domain.Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	doc, ok := s.documents[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &doc, nil
}

// FindByFiling retrieves the document matching a filing key.
func (s *CorpusStore) FindByFiling(_ context.Context, ticker string, fiscalYear int, docType string) (*domain.Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for id := range s.documents {
		doc := s.documents[id]
		if doc.Ticker == ticker && doc.FiscalYear == fiscalYear && doc.DocType == docType {
			return &doc, nil
		}
	}
	return nil, domain.ErrNotFound
}

// ListDocuments returns all documents ordered by (ticker, fiscal_year).
func (s *CorpusStore) ListDocuments(_ context.Context) ([]domain.Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	result := make([]domain.Document, 0, len(s.documents))
	for id := range s.documents {
		result = append(result, s.documents[id])
	}
	sort.Slice(result, func(i, j int) bool {
		if result[i].Ticker != result[j].Ticker {
			return result[i].Ticker < result[j].Ticker
		}
		return result[i].FiscalYear < result[j].FiscalYear
	})
	return result, nil
}

// DeleteDocument removes a document and cascades to tree and chunks.
func (s *CorpusStore) DeleteDocument(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.documents[id]; !ok {
		return domain.ErrNotFound
	}
	delete(s.documents, id)
	delete(s.trees, id)
	delete(s.chunks, id)
	return nil
}

// MarkFailed sets the document's status to failed.
func (s *CorpusStore) MarkFailed(_ context.Context, id string, message string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	doc, ok := s.documents[id]
	if !ok {
		return domain.ErrNotFound
	}
	doc.Status = domain.StatusFailed
	doc.ErrorMessage = message
	s.documents[id] = doc
	return nil
}

// FinalizeDocument writes tree, chunks and final counts atomically.
func (s *CorpusStore) FinalizeDocument(_ context.Context, doc *domain.Document, tree *domain.DocumentTree, chunks []domain.Chunk) error {
	if s.FinalizeErr != nil {
		return s.FinalizeErr
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.documents[doc.ID]; !ok {
		return domain.ErrNotFound
	}
	stored := *doc
	stored.Status = domain.StatusCompleted
	s.documents[doc.ID] = stored
	s.trees[doc.ID] = *tree
	s.chunks[doc.ID] = append([]domain.Chunk(nil), chunks...)
	return nil
}

// GetTree retrieves the stored tree artifacts.
func (s *CorpusStore) GetTree(_ context.Context, docID string) (*domain.DocumentTree, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	tree, ok := s.trees[docID]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &tree, nil
}

// GetChunks returns a document's chunks ordered by (node_id, chunk_index).
func (s *CorpusStore) GetChunks(_ context.Context, docID string) ([]domain.Chunk, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	chunks := append([]domain.Chunk(nil), s.chunks[docID]...)
	sort.Slice(chunks, func(i, j int) bool {
		if chunks[i].NodeID != chunks[j].NodeID {
			return chunks[i].NodeID < chunks[j].NodeID
		}
		return chunks[i].Index < chunks[j].Index
	})
	return chunks, nil
}
