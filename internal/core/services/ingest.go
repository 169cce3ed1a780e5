package services

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/fildex-labs/fildex-cli/internal/core/domain"
	"github.com/fildex-labs/fildex-cli/internal/core/ports/driven"
	"github.com/fildex-labs/fildex-cli/internal/core/ports/driving"
	"github.com/fildex-labs/fildex-cli/internal/logger"
)

// Ensure IngestOrchestrator implements the interface.
var _ driving.Ingestor = (*IngestOrchestrator)(nil)

// Default chunking parameters, applied when ChunkingParams is zero.
const (
	defaultMaxChunkTokens = 512
	defaultChunkOverlap   = 64
	defaultMinChunkTokens = 32
)

// ChunkingParams tune how node text is split before embedding.
type ChunkingParams struct {
	MaxTokens int
	Overlap   int
	MinTokens int
}

// IngestOrchestrator runs the local ingestion pipeline:
//
//	resolve metadata → insert processing row → generate tree →
//	derive artifacts → chunk → embed → finalize in one transaction
//
// Failures after the document row exists are captured into the row
// (status=failed, error_message) and reported through the result, not
// the returned error. The error is reserved for failures that leave no
// persisted trace.
type IngestOrchestrator struct {
	store    driven.CorpusStore
	treeGen  driven.TreeGenerator
	embedder driven.EmbeddingService
	chunker  driven.TokenChunker
	vault    driven.FileVault
	pages    driven.PageCounter
	params   ChunkingParams
}

// NewIngestOrchestrator wires the pipeline's capabilities together.
func NewIngestOrchestrator(
	store driven.CorpusStore,
	treeGen driven.TreeGenerator,
	embedder driven.EmbeddingService,
	chunker driven.TokenChunker,
	vault driven.FileVault,
	pages driven.PageCounter,
	params ChunkingParams,
) *IngestOrchestrator {
	if params.MaxTokens <= 0 {
		params.MaxTokens = defaultMaxChunkTokens
	}
	if params.Overlap < 0 {
		params.Overlap = defaultChunkOverlap
	}
	if params.MinTokens <= 0 {
		params.MinTokens = defaultMinChunkTokens
	}

	return &IngestOrchestrator{
		store:    store,
		treeGen:  treeGen,
		embedder: embedder,
		chunker:  chunker,
		vault:    vault,
		pages:    pages,
		params:   params,
	}
}

// Ingest runs the full pipeline for one PDF.
func (o *IngestOrchestrator) Ingest(ctx context.Context, req driving.IngestRequest) (*domain.IngestResult, error) {
	basename := filepath.Base(req.PDFPath)
	docID := uuid.NewString()

	doc, result := o.resolveIdentity(docID, basename, req)
	if result != nil {
		return result, nil
	}

	if req.Force {
		if err := o.deleteExisting(ctx, doc); err != nil {
			return nil, err
		}
	}

	storedPath, err := o.vault.Store(ctx, req.PDFPath, docID)
	if err != nil {
		return nil, fmt.Errorf("storing source pdf: %w", err)
	}

	if err := o.store.InsertDocument(ctx, doc); err != nil {
		// No row references docID; the copy made above must not linger.
		if removeErr := o.vault.Remove(ctx, docID); removeErr != nil {
			logger.Warn("removing stored pdf for %s: %v", docID, removeErr)
		}
		if errors.Is(err, domain.ErrDuplicate) {
			return o.duplicateResult(ctx, doc)
		}
		return nil, fmt.Errorf("creating document row: %w", err)
	}

	result, err = o.runPipeline(ctx, doc, storedPath, req.PDFPath)
	if err != nil {
		logger.Error("ingest failed for %s: %v", basename, err)
		if markErr := o.store.MarkFailed(ctx, docID, err.Error()); markErr != nil {
			logger.Error("recording failure for %s: %v", docID, markErr)
		}
		return &domain.IngestResult{
			DocID:   docID,
			Status:  domain.IngestFailed,
			Message: fmt.Sprintf("Ingest failed: %v", err),
		}, nil
	}
	return result, nil
}

// resolveIdentity builds the document row from the request and filename
// inference. A nil document with a non-nil result means identity could
// not be resolved; no row is created for that case.
func (o *IngestOrchestrator) resolveIdentity(docID, basename string, req driving.IngestRequest) (*domain.Document, *domain.IngestResult) {
	parsed := domain.ParseFilename(basename)

	ticker := req.Ticker
	fiscalYear := req.FiscalYear
	docType := req.DocType
	if parsed != nil {
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
	if docType == "" {
		docType = domain.DefaultDocType
	}

	if ticker == "" || fiscalYear == 0 {
		return nil, &domain.IngestResult{
			DocID:   docID,
			Status:  domain.IngestFailed,
			Message: "Could not determine ticker/fiscal_year from filename or arguments.",
		}
	}

	return &domain.Document{
		ID:         docID,
		Company:    req.Company,
		Ticker:     strings.ToUpper(ticker),
		FiscalYear: fiscalYear,
		DocType:    domain.NormalizeDocType(docType),
		Filename:   basename,
		Status:     domain.StatusProcessing,
		IngestedAt: time.Now().UTC(),
	}, nil
}

// deleteExisting removes a prior document with the same filing key so a
// forced re-ingest starts clean. Absence is not an error.
func (o *IngestOrchestrator) deleteExisting(ctx context.Context, doc *domain.Document) error {
	existing, err := o.store.FindByFiling(ctx, doc.Ticker, doc.FiscalYear, doc.DocType)
	if errors.Is(err, domain.ErrNotFound) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("looking up existing filing: %w", err)
	}

	logger.Info("deleting existing document %s for re-ingest", existing.ID)
	if err := o.store.DeleteDocument(ctx, existing.ID); err != nil && !errors.Is(err, domain.ErrNotFound) {
		return fmt.Errorf("deleting existing document: %w", err)
	}
	if err := o.vault.Remove(ctx, existing.ID); err != nil {
		logger.Warn("removing stored pdf for %s: %v", existing.ID, err)
	}
	return nil
}

// duplicateResult reports the existing document for an insert that hit
// the filing-key constraint.
func (o *IngestOrchestrator) duplicateResult(ctx context.Context, doc *domain.Document) (*domain.IngestResult, error) {
	existingID := ""
	message := fmt.Sprintf("Document for %s %s %d already exists. Use --force to overwrite.",
		doc.Ticker, doc.DocType, doc.FiscalYear)

	existing, err := o.store.FindByFiling(ctx, doc.Ticker, doc.FiscalYear, doc.DocType)
	if err != nil {
		logger.Warn("resolving existing filing %s %s %d: %v", doc.Ticker, doc.DocType, doc.FiscalYear, err)
		message = fmt.Sprintf("Document for %s %s %d already exists but its id could not be resolved. Use --force to overwrite.",
			doc.Ticker, doc.DocType, doc.FiscalYear)
	} else {
		existingID = existing.ID
	}

	return &domain.IngestResult{
		DocID:   existingID,
		Status:  domain.IngestDuplicate,
		Message: message,
	}, nil
}

// runPipeline executes the stages that happen after the processing row
// exists. Any returned error is recorded on the row by the caller.
func (o *IngestOrchestrator) runPipeline(ctx context.Context, doc *domain.Document, storedPath, srcPath string) (*domain.IngestResult, error) {
	logger.Info("generating structure tree for %s", doc.Filename)
	structure, err := o.treeGen.GenerateTree(ctx, storedPath)
	if err != nil {
		return nil, fmt.Errorf("generating tree: %w", err)
	}

	tree := domain.NewDocumentTree(doc.ID, structure)
	flat := domain.Flatten(structure)

	pageCount, err := o.pages.PageCount(srcPath)
	if err != nil {
		return nil, fmt.Errorf("counting pages: %w", err)
	}

	totalTokens := 0
	for _, node := range flat {
		totalTokens += o.chunker.CountTokens(node.Text)
	}

	logger.Info("chunking %d nodes", len(flat))
	chunks := o.chunkNodes(doc.ID, flat)

	logger.Info("embedding %d chunks", len(chunks))
	if err := o.embedChunks(ctx, chunks); err != nil {
		return nil, err
	}

	doc.PageCount = pageCount
	doc.TotalTokens = totalTokens
	doc.NodeCount = len(flat)
	doc.ChunkCount = len(chunks)

	logger.Info("writing %s to database", doc.ID)
	if err := o.store.FinalizeDocument(ctx, doc, tree, chunks); err != nil {
		return nil, fmt.Errorf("finalizing document: %w", err)
	}

	logger.Info("ingest complete: %s -> %s", doc.Filename, doc.ID)
	return &domain.IngestResult{
		DocID:         doc.ID,
		Status:        domain.IngestCompleted,
		ChunksCreated: len(chunks),
		NodeCount:     len(flat),
		PageCount:     pageCount,
		Message:       "Ingest successful.",
	}, nil
}

// chunkNodes splits every node's text into embeddable chunks. Nodes
// without text are skipped; kept pieces are numbered from 0 within
// their node and inherit the node's page bounds.
func (o *IngestOrchestrator) chunkNodes(docID string, flat []domain.Node) []domain.Chunk {
	var chunks []domain.Chunk //nolint:prealloc // chunk count is unknown up front
	for _, node := range flat {
		if strings.TrimSpace(node.Text) == "" {
			continue
		}
		pieces := o.chunker.Chunk(node.Text, o.params.MaxTokens, o.params.Overlap, o.params.MinTokens)
		for idx, piece := range pieces {
			chunks = append(chunks, domain.Chunk{
				DocID:      docID,
				NodeID:     node.ID,
				Index:      idx,
				Content:    piece.Content,
				TokenCount: piece.TokenCount,
				StartPage:  node.StartPage,
				EndPage:    node.EndPage,
			})
		}
	}
	return chunks
}

// embedChunks fills each chunk's embedding in place. The pairing is
// positional; a count mismatch from the embedder aborts the ingest
// rather than persisting misaligned vectors.
func (o *IngestOrchestrator) embedChunks(ctx context.Context, chunks []domain.Chunk) error {
	if len(chunks) == 0 {
		return nil
	}

	texts := make([]string, len(chunks))
	for i, c := range chunks {
		texts[i] = c.Content
	}

	embeddings, err := o.embedder.EmbedBatch(ctx, texts)
	if err != nil {
		return fmt.Errorf("embedding chunks: %w", err)
	}
	if len(embeddings) != len(chunks) {
		return fmt.Errorf("embedding count mismatch: got %d for %d chunks", len(embeddings), len(chunks))
	}

	for i := range chunks {
		chunks[i].Embedding = embeddings[i]
	}
	return nil
}
