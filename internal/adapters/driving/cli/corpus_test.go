package cli

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fildex-labs/fildex-cli/internal/adapters/driven/storage/memory"
	"github.com/fildex-labs/fildex-cli/internal/core/domain"
)

func seedCorpusDocument(t *testing.T, store *memory.CorpusStore) {
	t.Helper()
	ctx := context.Background()
	doc := &domain.Document{
		ID: "doc-1", Company: "Infosys Ltd", Ticker: "INFY", FiscalYear: 2022,
		DocType: "20-F", Filename: "INFY_20F_2022.pdf", Status: domain.StatusProcessing,
		IngestedAt: time.Now().UTC(),
	}
	require.NoError(t, store.InsertDocument(ctx, doc))

	tree := domain.NewDocumentTree("doc-1", []domain.Node{
		{ID: "0000", Title: "Report", Text: "Full text here."},
	})
	chunks := []domain.Chunk{
		{DocID: "doc-1", NodeID: "0000", Index: 0, Content: "Full text here.", TokenCount: 3, Embedding: []float32{1}},
	}
	doc.PageCount = 12
	doc.NodeCount = 1
	doc.ChunkCount = 1
	require.NoError(t, store.FinalizeDocument(ctx, doc, tree, chunks))
}

func TestCorpusCmd_HasSubcommands(t *testing.T) {
	commands := corpusCmd.Commands()
	names := make([]string, 0, len(commands))
	for _, cmd := range commands {
		names = append(names, cmd.Name())
	}

	assert.Contains(t, names, "list")
	assert.Contains(t, names, "show")
	assert.Contains(t, names, "delete")
	assert.Contains(t, names, "tree")
}

func TestCorpusListCmd_Empty(t *testing.T) {
	_, cleanup := setupTestServices()
	defer cleanup()

	out, err := execute("corpus", "list")
	require.NoError(t, err)
	assert.Contains(t, out, "Corpus is empty")
}

func TestCorpusListCmd_ShowsDocuments(t *testing.T) {
	f, cleanup := setupTestServices()
	defer cleanup()
	seedCorpusDocument(t, f.store)

	out, err := execute("corpus", "list")
	require.NoError(t, err)
	assert.Contains(t, out, "doc-1")
	assert.Contains(t, out, "INFY")
	assert.Contains(t, out, "completed")
	assert.Contains(t, out, "Total: 1 document(s)")
}

func TestCorpusShowCmd(t *testing.T) {
	f, cleanup := setupTestServices()
	defer cleanup()
	seedCorpusDocument(t, f.store)

	out, err := execute("corpus", "show", "doc-1")
	require.NoError(t, err)
	assert.Contains(t, out, "Infosys Ltd")
	assert.Contains(t, out, "Fiscal year: 2022")
	assert.Contains(t, out, "Chunks:      1")
}

func TestCorpusShowCmd_NotFound(t *testing.T) {
	_, cleanup := setupTestServices()
	defer cleanup()

	_, err := execute("corpus", "show", "missing")
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestCorpusDeleteCmd(t *testing.T) {
	f, cleanup := setupTestServices()
	defer cleanup()
	seedCorpusDocument(t, f.store)

	out, err := execute("corpus", "delete", "doc-1")
	require.NoError(t, err)
	assert.Contains(t, out, "Document doc-1 deleted.")

	_, err = f.store.GetDocument(context.Background(), "doc-1")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestCorpusDeleteCmd_NotFound(t *testing.T) {
	_, cleanup := setupTestServices()
	defer cleanup()

	out, err := execute("corpus", "delete", "missing")
	require.NoError(t, err)
	assert.Contains(t, out, "Document missing not found.")
}

func TestCorpusTreeCmd_StripsTextByDefault(t *testing.T) {
	f, cleanup := setupTestServices()
	defer cleanup()
	seedCorpusDocument(t, f.store)

	out, err := execute("corpus", "tree", "doc-1")
	require.NoError(t, err)
	assert.Contains(t, out, "\"node_id\": \"0000\"")
	assert.NotContains(t, out, "Full text here.")
}

func TestCorpusTreeCmd_FullIncludesText(t *testing.T) {
	f, cleanup := setupTestServices()
	defer cleanup()
	seedCorpusDocument(t, f.store)

	out, err := execute("corpus", "tree", "doc-1", "--full")
	require.NoError(t, err)
	assert.Contains(t, out, "Full text here.")
}
