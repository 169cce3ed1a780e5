// Package domain defines the core business entities for fildex.
//
// This package is part of the hexagonal architecture's innermost layer.
// It has NO external dependencies and defines the fundamental types:
//
//   - Document: An ingested financial filing and its lifecycle state
//   - Node: One section of a filing's hierarchical structure tree
//   - DocumentTree: The stored tree plus its derived artifacts
//   - Chunk: An embeddable unit of node text
//   - ParsedFiling: Metadata inferred from a filename
//
// # Architectural Position
//
// Domain is at the centre of the hexagon. It may only import
// the Go standard library. All other packages depend on domain,
// never the reverse.
//
// # Import Rules
//
//   - Can Import: Standard library only
//   - Cannot Import: Any internal/ package, any external dependency
package domain
