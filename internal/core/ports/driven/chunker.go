package driven

import "github.com/fildex-labs/fildex-cli/internal/core/domain"

// TokenChunker counts tokens and splits text into token-bounded chunks.
// Implementations are pure and total over defined inputs: they do not
// fail at chunking time.
type TokenChunker interface {
	// CountTokens returns the token count for text; 0 for empty input.
	CountTokens(text string) int

	// Chunk splits text into ordered pieces of at most maxTokens tokens,
	// consecutive pieces overlapping by overlap tokens. Pieces below
	// minTokens (typically the final partial window) are dropped.
	// Empty or whitespace-only text yields no pieces.
	Chunk(text string, maxTokens, overlap, minTokens int) []domain.ChunkPiece
}
