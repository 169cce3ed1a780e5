package driven

import "context"

// EmbeddingService generates vector embeddings from text.
//
// Implementations batch internally and retry transient failures with
// backoff. Exhausting retries on any batch fails the whole call: partial
// embeddings without their chunks would break the chunk↔vector pairing,
// which is positional and unchecked beyond length equality.
type EmbeddingService interface {
	// EmbedBatch generates one embedding per input text, in input order.
	// result[i] always corresponds to texts[i].
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)

	// Dimensions returns the embedding vector size (e.g. 768).
	Dimensions() int

	// ModelName returns the name of the embedding model being used.
	ModelName() string

	// Ping validates the service is reachable with a lightweight request.
	Ping(ctx context.Context) error
}
