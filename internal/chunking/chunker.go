// Package chunking provides a token-aware sliding-window text chunker.
package chunking

import (
	"fmt"
	"strings"

	"github.com/pkoukk/tiktoken-go"

	"github.com/fildex-labs/fildex-cli/internal/core/domain"
	"github.com/fildex-labs/fildex-cli/internal/core/ports/driven"
)

// Ensure Chunker implements the interface.
var _ driven.TokenChunker = (*Chunker)(nil)

// Encoding is the tokenizer used for counting and windowing. cl100k_base
// matches the tokenisation of common embedding models.
const Encoding = "cl100k_base"

// Pipeline-wide chunking defaults.
const (
	// DefaultMaxTokens is the window size in tokens.
	DefaultMaxTokens = 512

	// DefaultOverlap is the number of tokens shared by consecutive windows.
	DefaultOverlap = 64

	// DefaultMinTokens is the floor below which a window is dropped.
	DefaultMinTokens = 32
)

// Chunker splits text into overlapping token windows.
// It is stateless after construction and safe for concurrent use.
type Chunker struct {
	encoder *tiktoken.Tiktoken
}

// New creates a chunker backed by the cl100k_base encoding.
func New() (*Chunker, error) {
	encoder, err := tiktoken.GetEncoding(Encoding)
	if err != nil {
		return nil, fmt.Errorf("loading %s encoding: %w", Encoding, err)
	}
	return &Chunker{encoder: encoder}, nil
}

// CountTokens returns the token count for text; 0 for empty input.
func (c *Chunker) CountTokens(text string) int {
	if text == "" {
		return 0
	}
	return len(c.encoder.Encode(text, nil, nil))
}

// Chunk splits text into ordered pieces of at most maxTokens tokens.
// Consecutive windows overlap by overlap tokens; windows below minTokens
// (typically the final partial one) are dropped, not padded. Text fitting
// in a single window is returned whole, trimmed. Empty or whitespace-only
// input yields no pieces.
//
// The window step is floored at maxTokens so that overlap >= maxTokens
// cannot loop forever.
func (c *Chunker) Chunk(text string, maxTokens, overlap, minTokens int) []domain.ChunkPiece {
	if strings.TrimSpace(text) == "" {
		return nil
	}

	tokens := c.encoder.Encode(text, nil, nil)
	total := len(tokens)

	if total <= maxTokens {
		return []domain.ChunkPiece{{
			Content:    strings.TrimSpace(text),
			TokenCount: total,
		}}
	}

	step := maxTokens - overlap
	if step <= 0 {
		step = maxTokens
	}

	var pieces []domain.ChunkPiece
	for start := 0; start < total; start += step {
		end := start + maxTokens
		if end > total {
			end = total
		}
		window := tokens[start:end]
		if len(window) < minTokens {
			continue
		}
		pieces = append(pieces, domain.ChunkPiece{
			Content:    strings.TrimSpace(c.encoder.Decode(window)),
			TokenCount: len(window),
		})
	}

	return pieces
}
