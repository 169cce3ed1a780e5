package cli

import (
	"bytes"
	"context"
	"strings"

	"github.com/fildex-labs/fildex-cli/internal/adapters/driven/storage/memory"
	"github.com/fildex-labs/fildex-cli/internal/core/domain"
	"github.com/fildex-labs/fildex-cli/internal/core/ports/driven"
	"github.com/fildex-labs/fildex-cli/internal/core/services"
)

// Test fakes for the external capabilities. The stores are the real
// in-memory adapters; only the network-facing pieces are stubbed.

type stubTreeGen struct {
	nodes []domain.Node
	err   error
}

func (s *stubTreeGen) GenerateTree(_ context.Context, _ string) ([]domain.Node, error) {
	return s.nodes, s.err
}

func (s *stubTreeGen) Ping(_ context.Context) error { return s.err }

type stubEmbedder struct {
	err error
}

func (s *stubEmbedder) EmbedBatch(_ context.Context, texts []string) ([][]float32, error) {
	if s.err != nil {
		return nil, s.err
	}
	out := make([][]float32, len(texts))
	for i := range out {
		out[i] = []float32{1, 2, 3}
	}
	return out, nil
}

func (s *stubEmbedder) Dimensions() int              { return 3 }
func (s *stubEmbedder) ModelName() string            { return "stub-embed" }
func (s *stubEmbedder) Ping(_ context.Context) error { return s.err }

type stubChunker struct{}

func (stubChunker) CountTokens(text string) int { return len(strings.Fields(text)) }

func (stubChunker) Chunk(text string, _, _, _ int) []domain.ChunkPiece {
	return []domain.ChunkPiece{{Content: text, TokenCount: len(strings.Fields(text))}}
}

type stubVault struct{}

func (stubVault) Store(_ context.Context, _, docID string) (string, error) {
	return "/uploads/" + docID + ".pdf", nil
}

func (stubVault) Remove(_ context.Context, _ string) error { return nil }

type stubPages struct{}

func (stubPages) PageCount(_ string) (int, error) { return 12, nil }

type stubIndexer struct {
	nextID string
	status driven.RemoteIndexStatus
}

func (s *stubIndexer) SubmitDocument(_ context.Context, _ string) (string, error) {
	return s.nextID, nil
}

func (s *stubIndexer) DocumentStatus(_ context.Context, _ string) (*driven.RemoteIndexStatus, error) {
	status := s.status
	return &status, nil
}

func (s *stubIndexer) Ping(_ context.Context) error { return nil }

// testFixture bundles the wired fakes so tests can seed and inspect.
type testFixture struct {
	store       *memory.CorpusStore
	remoteStore *memory.RemoteStore
	treeGen     *stubTreeGen
	embedder    *stubEmbedder
	indexer     *stubIndexer
}

// setupTestServices wires the commands to in-memory services and
// returns the fixture plus a cleanup that restores globals and flags.
func setupTestServices() (*testFixture, func()) {
	f := &testFixture{
		store:       memory.NewCorpusStore(),
		remoteStore: memory.NewRemoteStore(),
		treeGen: &stubTreeGen{nodes: []domain.Node{
			{ID: "0000", Title: "Report", Text: "quarterly revenue grew", StartPage: 1, EndPage: 12},
		}},
		embedder: &stubEmbedder{},
		indexer:  &stubIndexer{nextID: "pi-1"},
	}

	ingestService = services.NewIngestOrchestrator(
		f.store, f.treeGen, f.embedder, stubChunker{}, stubVault{}, stubPages{},
		services.ChunkingParams{},
	)
	corpusService = services.NewCorpusService(f.store, stubVault{})
	remoteService = services.NewRemoteService(f.indexer, f.remoteStore)
	treeGen = f.treeGen
	embedder = f.embedder
	wired = true

	cleanup := func() {
		ingestService = nil
		corpusService = nil
		remoteService = nil
		treeGen = nil
		embedder = nil
		wired = false

		ingestCompany = ""
		ingestTicker = ""
		ingestFiscalYear = 0
		ingestDocType = ""
		ingestForce = false
		ingestDir = ""
		ingestWatch = false
		ingestSkipChecks = false
		remoteCompany = ""
		remoteTicker = ""
		remoteFiscalYear = 0
		remoteDocType = ""
		treeFullText = false
	}
	return f, cleanup
}

// execute runs the root command with args and captures output.
func execute(args ...string) (string, error) {
	buf := new(bytes.Buffer)
	rootCmd.SetOut(buf)
	rootCmd.SetErr(buf)
	rootCmd.SetArgs(args)
	defer rootCmd.SetArgs(nil)

	err := rootCmd.Execute()
	return buf.String(), err
}
