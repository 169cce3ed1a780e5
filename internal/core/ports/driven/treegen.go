package driven

import (
	"context"

	"github.com/fildex-labs/fildex-cli/internal/core/domain"
)

// TreeGenerator produces a hierarchical structure tree for a PDF.
//
// The capability is external and opaque: it may perform multiple LLM
// calls and take tens of seconds to minutes. Failures propagate to the
// caller; retry policy, if any, belongs to the capability itself, not to
// this boundary.
type TreeGenerator interface {
	// GenerateTree structures the PDF at path into a nested node tree.
	// The result is never empty on success.
	GenerateTree(ctx context.Context, path string) ([]domain.Node, error)

	// Ping validates the service is reachable. Used by pre-ingest
	// connectivity checks.
	Ping(ctx context.Context) error
}
