package services

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fildex-labs/fildex-cli/internal/adapters/driven/storage/memory"
	"github.com/fildex-labs/fildex-cli/internal/core/domain"
	"github.com/fildex-labs/fildex-cli/internal/core/ports/driving"
)

// fakeTreeGen returns a canned structure or a canned error.
type fakeTreeGen struct {
	nodes []domain.Node
	err   error
}

func (f *fakeTreeGen) GenerateTree(_ context.Context, _ string) ([]domain.Node, error) {
	return f.nodes, f.err
}

func (f *fakeTreeGen) Ping(_ context.Context) error { return f.err }

// fakeEmbedder emits fixed three-dimensional vectors.
type fakeEmbedder struct {
	err      error
	mismatch bool
	calls    int
}

func (f *fakeEmbedder) EmbedBatch(_ context.Context, texts []string) ([][]float32, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	n := len(texts)
	if f.mismatch {
		n--
	}
	out := make([][]float32, n)
	for i := range out {
		out[i] = []float32{1, 2, 3}
	}
	return out, nil
}

func (f *fakeEmbedder) Dimensions() int              { return 3 }
func (f *fakeEmbedder) ModelName() string            { return "fake-embed" }
func (f *fakeEmbedder) Ping(_ context.Context) error { return f.err }

// fakeChunker treats whitespace-separated words as tokens and emits one
// piece per maxTokens words.
type fakeChunker struct{}

func (fakeChunker) CountTokens(text string) int {
	return len(strings.Fields(text))
}

func (fakeChunker) Chunk(text string, maxTokens, _, minTokens int) []domain.ChunkPiece {
	words := strings.Fields(text)
	var pieces []domain.ChunkPiece
	for start := 0; start < len(words); start += maxTokens {
		end := start + maxTokens
		if end > len(words) {
			end = len(words)
		}
		if end-start < minTokens {
			break
		}
		pieces = append(pieces, domain.ChunkPiece{
			Content:    strings.Join(words[start:end], " "),
			TokenCount: end - start,
		})
	}
	return pieces
}

// fakeVault records stores and removals without touching disk.
type fakeVault struct {
	stored  []string
	removed []string
	err     error
}

func (f *fakeVault) Store(_ context.Context, _, docID string) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	f.stored = append(f.stored, docID)
	return "/uploads/" + docID + ".pdf", nil
}

func (f *fakeVault) Remove(_ context.Context, docID string) error {
	f.removed = append(f.removed, docID)
	return nil
}

// fakePages reports a fixed page count.
type fakePages struct {
	count int
	err   error
}

func (f *fakePages) PageCount(_ string) (int, error) { return f.count, f.err }

// testStructure has one container and two text-bearing leaves.
func testStructure() []domain.Node {
	return []domain.Node{
		{
			ID: "0000", Title: "Annual Report", StartPage: 1, EndPage: 20,
			Children: []domain.Node{
				{ID: "0001", Title: "Revenue", Text: "one two three four five six", StartPage: 1, EndPage: 8},
				{ID: "0002", Title: "Risks", Text: "seven eight nine", StartPage: 9, EndPage: 20},
			},
		},
	}
}

type ingestFixture struct {
	store    *memory.CorpusStore
	treeGen  *fakeTreeGen
	embedder *fakeEmbedder
	vault    *fakeVault
	pages    *fakePages
	svc      *IngestOrchestrator
}

func newIngestFixture() *ingestFixture {
	f := &ingestFixture{
		store:    memory.NewCorpusStore(),
		treeGen:  &fakeTreeGen{nodes: testStructure()},
		embedder: &fakeEmbedder{},
		vault:    &fakeVault{},
		pages:    &fakePages{count: 20},
	}
	f.svc = NewIngestOrchestrator(
		f.store, f.treeGen, f.embedder, fakeChunker{}, f.vault, f.pages,
		ChunkingParams{MaxTokens: 4, Overlap: 0, MinTokens: 1},
	)
	return f
}

func TestIngest_Completed(t *testing.T) {
	f := newIngestFixture()
	ctx := context.Background()

	result, err := f.svc.Ingest(ctx, driving.IngestRequest{
		PDFPath: "/data/INFY_20F_2022.pdf",
		Company: "Infosys Ltd",
	})
	require.NoError(t, err)
	require.Equal(t, domain.IngestCompleted, result.Status)

	// 6 words at max 4 → 2 pieces; 3 words → 1 piece.
	assert.Equal(t, 3, result.ChunksCreated)
	assert.Equal(t, 3, result.NodeCount)
	assert.Equal(t, 20, result.PageCount)

	doc, err := f.store.GetDocument(ctx, result.DocID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusCompleted, doc.Status)
	assert.Equal(t, "INFY", doc.Ticker)
	assert.Equal(t, 2022, doc.FiscalYear)
	assert.Equal(t, "20-F", doc.DocType)
	assert.Equal(t, "Infosys Ltd", doc.Company)
	assert.Equal(t, 9, doc.TotalTokens)
	assert.Equal(t, 3, doc.ChunkCount)

	tree, err := f.store.GetTree(ctx, result.DocID)
	require.NoError(t, err)
	assert.Len(t, tree.NodeMap, 3)
	assert.Empty(t, tree.StructureNoText[0].Children[0].Text)

	chunks, err := f.store.GetChunks(ctx, result.DocID)
	require.NoError(t, err)
	require.Len(t, chunks, 3)
	for _, c := range chunks {
		assert.Equal(t, []float32{1, 2, 3}, c.Embedding)
	}
	// Chunk indexes restart per node and pages come from the node.
	assert.Equal(t, "0001", chunks[0].NodeID)
	assert.Equal(t, 0, chunks[0].Index)
	assert.Equal(t, 1, chunks[1].Index)
	assert.Equal(t, "0002", chunks[2].NodeID)
	assert.Equal(t, 0, chunks[2].Index)
	assert.Equal(t, 9, chunks[2].StartPage)
	assert.Equal(t, 20, chunks[2].EndPage)
}

func TestIngest_ExplicitMetadataOverridesFilename(t *testing.T) {
	f := newIngestFixture()

	result, err := f.svc.Ingest(context.Background(), driving.IngestRequest{
		PDFPath:    "/data/INFY_20F_2022.pdf",
		Ticker:     "wipro",
		FiscalYear: 2021,
		DocType:    "10k",
	})
	require.NoError(t, err)
	require.Equal(t, domain.IngestCompleted, result.Status)

	doc, err := f.store.GetDocument(context.Background(), result.DocID)
	require.NoError(t, err)
	assert.Equal(t, "WIPRO", doc.Ticker)
	assert.Equal(t, 2021, doc.FiscalYear)
	assert.Equal(t, "10-K", doc.DocType)
}

func TestIngest_UnresolvableIdentity(t *testing.T) {
	f := newIngestFixture()

	result, err := f.svc.Ingest(context.Background(), driving.IngestRequest{
		PDFPath: "/data/scanned-report.pdf",
	})
	require.NoError(t, err)
	assert.Equal(t, domain.IngestFailed, result.Status)
	assert.Contains(t, result.Message, "Could not determine ticker/fiscal_year")

	// No row, no upload.
	docs, err := f.store.ListDocuments(context.Background())
	require.NoError(t, err)
	assert.Empty(t, docs)
	assert.Empty(t, f.vault.stored)
}

func TestIngest_DuplicateWithoutForce(t *testing.T) {
	f := newIngestFixture()
	ctx := context.Background()

	first, err := f.svc.Ingest(ctx, driving.IngestRequest{PDFPath: "/data/INFY_20F_2022.pdf"})
	require.NoError(t, err)
	require.Equal(t, domain.IngestCompleted, first.Status)

	second, err := f.svc.Ingest(ctx, driving.IngestRequest{PDFPath: "/data/INFY_20F_2022.pdf"})
	require.NoError(t, err)
	assert.Equal(t, domain.IngestDuplicate, second.Status)
	assert.Equal(t, first.DocID, second.DocID)
	assert.Contains(t, second.Message, "already exists")

	// The first document is untouched.
	docs, err := f.store.ListDocuments(ctx)
	require.NoError(t, err)
	require.Len(t, docs, 1)
	assert.Equal(t, domain.StatusCompleted, docs[0].Status)
}

func TestIngest_DuplicateRemovesStoredPDF(t *testing.T) {
	f := newIngestFixture()
	ctx := context.Background()

	first, err := f.svc.Ingest(ctx, driving.IngestRequest{PDFPath: "/data/INFY_20F_2022.pdf"})
	require.NoError(t, err)
	require.Equal(t, domain.IngestCompleted, first.Status)

	second, err := f.svc.Ingest(ctx, driving.IngestRequest{PDFPath: "/data/INFY_20F_2022.pdf"})
	require.NoError(t, err)
	require.Equal(t, domain.IngestDuplicate, second.Status)

	// The rejected copy is cleaned out of the vault; the original stays.
	require.Len(t, f.vault.stored, 2)
	rejected := f.vault.stored[1]
	assert.NotEqual(t, first.DocID, rejected)
	assert.Equal(t, []string{rejected}, f.vault.removed)
}

// findErrStore fails filing lookups so the duplicate path cannot read
// the existing row back.
type findErrStore struct {
	*memory.CorpusStore
	findErr error
}

func (s *findErrStore) FindByFiling(_ context.Context, _ string, _ int, _ string) (*domain.Document, error) {
	return nil, s.findErr
}

func TestIngest_DuplicateWithUnresolvableExistingID(t *testing.T) {
	mem := memory.NewCorpusStore()
	svc := NewIngestOrchestrator(
		&findErrStore{CorpusStore: mem, findErr: errors.New("database is locked")},
		&fakeTreeGen{nodes: testStructure()}, &fakeEmbedder{}, fakeChunker{},
		&fakeVault{}, &fakePages{count: 20},
		ChunkingParams{MaxTokens: 4, Overlap: 0, MinTokens: 1},
	)
	ctx := context.Background()

	require.NoError(t, mem.InsertDocument(ctx, &domain.Document{
		ID: "existing", Ticker: "INFY", FiscalYear: 2022, DocType: "20-F",
		Status: domain.StatusCompleted,
	}))

	result, err := svc.Ingest(ctx, driving.IngestRequest{PDFPath: "/data/INFY_20F_2022.pdf"})
	require.NoError(t, err)
	assert.Equal(t, domain.IngestDuplicate, result.Status)
	assert.Empty(t, result.DocID)
	assert.Contains(t, result.Message, "could not be resolved")
}

func TestIngest_ForceReplacesExisting(t *testing.T) {
	f := newIngestFixture()
	ctx := context.Background()

	first, err := f.svc.Ingest(ctx, driving.IngestRequest{PDFPath: "/data/INFY_20F_2022.pdf"})
	require.NoError(t, err)

	second, err := f.svc.Ingest(ctx, driving.IngestRequest{PDFPath: "/data/INFY_20F_2022.pdf", Force: true})
	require.NoError(t, err)
	require.Equal(t, domain.IngestCompleted, second.Status)
	assert.NotEqual(t, first.DocID, second.DocID)

	// Old document and its stored pdf are gone.
	_, err = f.store.GetDocument(ctx, first.DocID)
	assert.ErrorIs(t, err, domain.ErrNotFound)
	assert.Contains(t, f.vault.removed, first.DocID)

	docs, err := f.store.ListDocuments(ctx)
	require.NoError(t, err)
	assert.Len(t, docs, 1)
}

func TestIngest_TreeGenFailureMarksRow(t *testing.T) {
	f := newIngestFixture()
	f.treeGen.err = errors.New("structuring service unavailable")
	ctx := context.Background()

	result, err := f.svc.Ingest(ctx, driving.IngestRequest{PDFPath: "/data/INFY_20F_2022.pdf"})
	require.NoError(t, err)
	assert.Equal(t, domain.IngestFailed, result.Status)
	assert.Contains(t, result.Message, "structuring service unavailable")

	doc, err := f.store.GetDocument(ctx, result.DocID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusFailed, doc.Status)
	assert.Contains(t, doc.ErrorMessage, "structuring service unavailable")
}

func TestIngest_EmbeddingFailureMarksRow(t *testing.T) {
	f := newIngestFixture()
	f.embedder.err = errors.New("connection refused")

	result, err := f.svc.Ingest(context.Background(), driving.IngestRequest{PDFPath: "/data/INFY_20F_2022.pdf"})
	require.NoError(t, err)
	assert.Equal(t, domain.IngestFailed, result.Status)

	doc, err := f.store.GetDocument(context.Background(), result.DocID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusFailed, doc.Status)
}

func TestIngest_EmbeddingCountMismatch(t *testing.T) {
	f := newIngestFixture()
	f.embedder.mismatch = true

	result, err := f.svc.Ingest(context.Background(), driving.IngestRequest{PDFPath: "/data/INFY_20F_2022.pdf"})
	require.NoError(t, err)
	assert.Equal(t, domain.IngestFailed, result.Status)
	assert.Contains(t, result.Message, "mismatch")
}

func TestIngest_FinalizeFailureMarksRow(t *testing.T) {
	f := newIngestFixture()
	f.store.FinalizeErr = errors.New("disk full")

	result, err := f.svc.Ingest(context.Background(), driving.IngestRequest{PDFPath: "/data/INFY_20F_2022.pdf"})
	require.NoError(t, err)
	assert.Equal(t, domain.IngestFailed, result.Status)

	doc, err := f.store.GetDocument(context.Background(), result.DocID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusFailed, doc.Status)
	assert.Contains(t, doc.ErrorMessage, "disk full")
}

func TestIngest_VaultFailureReturnsError(t *testing.T) {
	f := newIngestFixture()
	f.vault.err = errors.New("permission denied")

	_, err := f.svc.Ingest(context.Background(), driving.IngestRequest{PDFPath: "/data/INFY_20F_2022.pdf"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "storing source pdf")

	// No row was created.
	docs, listErr := f.store.ListDocuments(context.Background())
	require.NoError(t, listErr)
	assert.Empty(t, docs)
}

func TestIngest_TextlessTreeYieldsNoChunks(t *testing.T) {
	f := newIngestFixture()
	f.treeGen.nodes = []domain.Node{{ID: "0000", Title: "Cover", Text: "   "}}

	result, err := f.svc.Ingest(context.Background(), driving.IngestRequest{PDFPath: "/data/INFY_20F_2022.pdf"})
	require.NoError(t, err)
	assert.Equal(t, domain.IngestCompleted, result.Status)
	assert.Zero(t, result.ChunksCreated)
	assert.Zero(t, f.embedder.calls)
}
