package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/fildex-labs/fildex-cli/internal/core/domain"
	"github.com/fildex-labs/fildex-cli/internal/core/ports/driven"
)

// Ensure RemoteStore implements the interface.
var _ driven.RemoteStore = (*RemoteStore)(nil)

// RemoteStore is an in-memory implementation of driven.RemoteStore.
type RemoteStore struct {
	mu        sync.RWMutex
	documents map[string]domain.RemoteDocument
}

// NewRemoteStore creates a new in-memory remote store.
func NewRemoteStore() *RemoteStore {
	return &RemoteStore{
		documents: make(map[string]domain.RemoteDocument),
	}
}

// UpsertRemoteDocument inserts or replaces a side-table row.
func (s *RemoteStore) UpsertRemoteDocument(_ context.Context, doc *domain.RemoteDocument) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.documents[doc.DocID] = *doc
	return nil
}

// UpdateRemoteStatus updates status and, when non-zero, page count.
func (s *RemoteStore) UpdateRemoteStatus(_ context.Context, docID string, status domain.DocumentStatus, pageCount int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	doc, ok := s.documents[docID]
	if !ok {
		return domain.ErrNotFound
	}
	doc.Status = status
	if pageCount != 0 {
		doc.PageCount = pageCount
	}
	s.documents[docID] = doc
	return nil
}

// GetRemoteDocument retrieves a side-table row by doc id.
func (s *RemoteStore) GetRemoteDocument(_ context.Context, docID string) (*domain.RemoteDocument, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	doc, ok := s.documents[docID]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &doc, nil
}

// ListRemoteDocuments returns all rows ordered by (company, fiscal_year).
func (s *RemoteStore) ListRemoteDocuments(_ context.Context) ([]domain.RemoteDocument, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	result := make([]domain.RemoteDocument, 0, len(s.documents))
	for id := range s.documents {
		result = append(result, s.documents[id])
	}
	sort.Slice(result, func(i, j int) bool {
		if result[i].Company != result[j].Company {
			return result[i].Company < result[j].Company
		}
		return result[i].FiscalYear < result[j].FiscalYear
	})
	return result, nil
}
