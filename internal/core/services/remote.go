package services

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/fildex-labs/fildex-cli/internal/core/domain"
	"github.com/fildex-labs/fildex-cli/internal/core/ports/driven"
	"github.com/fildex-labs/fildex-cli/internal/core/ports/driving"
	"github.com/fildex-labs/fildex-cli/internal/logger"
)

// Ensure RemoteService implements the interface.
var _ driving.RemoteIngestor = (*RemoteService)(nil)

// RemoteService drives the cloud-indexing stack. Documents are uploaded
// to the hosted service, which owns tree construction and retrieval;
// only filing metadata and processing status are kept locally, in a
// side table separate from the local corpus.
type RemoteService struct {
	indexer driven.RemoteIndexer
	store   driven.RemoteStore
}

// NewRemoteService creates a remote-ingestion service.
func NewRemoteService(indexer driven.RemoteIndexer, store driven.RemoteStore) *RemoteService {
	return &RemoteService{indexer: indexer, store: store}
}

// Submit uploads the PDF and records a processing side-table row keyed
// by the service-assigned document id. Unlike the local pipeline there
// is no duplicate detection: the hosted service accepts re-uploads and
// assigns a fresh id each time.
func (s *RemoteService) Submit(ctx context.Context, req driving.IngestRequest) (*domain.RemoteDocument, error) {
	basename := filepath.Base(req.PDFPath)

	ticker := req.Ticker
	fiscalYear := req.FiscalYear
	docType := req.DocType
	if parsed := domain.ParseFilename(basename); parsed != nil {
		if ticker == "" {
			ticker = parsed.Ticker
		}
		if fiscalYear == 0 {
			fiscalYear = parsed.FiscalYear
		}
		if docType == "" {
			docType = parsed.DocType
		}
	}

	logger.Info("submitting %s to indexing service", basename)
	docID, err := s.indexer.SubmitDocument(ctx, req.PDFPath)
	if err != nil {
		return nil, fmt.Errorf("submitting document: %w", err)
	}

	doc := &domain.RemoteDocument{
		DocID:      docID,
		Filename:   basename,
		Company:    req.Company,
		Ticker:     strings.ToUpper(ticker),
		FiscalYear: fiscalYear,
		DocType:    domain.NormalizeDocType(docType),
		Status:     domain.StatusProcessing,
		CreatedAt:  time.Now().UTC(),
	}
	if err := s.store.UpsertRemoteDocument(ctx, doc); err != nil {
		return nil, fmt.Errorf("recording submission: %w", err)
	}

	logger.Info("submitted: doc_id=%s", docID)
	return doc, nil
}

// Refresh polls the service for the document's current status and
// updates the side-table row. Processing continues server-side, so a
// still-processing answer is a normal outcome, not an error.
func (s *RemoteService) Refresh(ctx context.Context, docID string) (*domain.RemoteDocument, error) {
	doc, err := s.store.GetRemoteDocument(ctx, docID)
	if err != nil {
		return nil, err
	}

	status, err := s.indexer.DocumentStatus(ctx, docID)
	if err != nil {
		return nil, fmt.Errorf("polling status: %w", err)
	}

	if status.Status != doc.Status || status.PageCount != doc.PageCount {
		if err := s.store.UpdateRemoteStatus(ctx, docID, status.Status, status.PageCount); err != nil {
			return nil, fmt.Errorf("updating status: %w", err)
		}
		doc.Status = status.Status
		doc.PageCount = status.PageCount
	}
	return doc, nil
}

// List returns side-table rows ordered by (company, fiscal_year).
func (s *RemoteService) List(ctx context.Context) ([]domain.RemoteDocument, error) {
	return s.store.ListRemoteDocuments(ctx)
}
