package domain

// Chunk is an embeddable unit of node text. Chunks are owned by their
// document and cascade-deleted with it. Within a node, Index is assigned
// sequentially from 0 in the order the chunker produced the kept chunks.
type Chunk struct {
	// DocID is the owning document.
	DocID string

	// NodeID is the owning tree node.
	NodeID string

	// Index is the zero-based position within the node's chunk sequence.
	Index int

	// Content is the chunk text.
	Content string

	// TokenCount is the chunk's token count.
	TokenCount int

	// StartPage and EndPage are inherited from the owning node.
	StartPage int
	EndPage   int

	// Embedding is the fixed-dimension vector for this chunk.
	Embedding []float32
}

// ChunkPiece is the chunker's raw output before it is tagged with
// ownership and position.
type ChunkPiece struct {
	Content    string
	TokenCount int
}
