// Package driven defines the interfaces that core calls OUT to infrastructure.
//
// These are the "driven" or "secondary" ports in hexagonal architecture.
// Core services depend on these interfaces, and infrastructure adapters
// implement them.
//
// # Required Interfaces
//
//   - CorpusStore: document / tree / chunk persistence
//   - TreeGenerator: hierarchical PDF structuring (external capability)
//   - EmbeddingService: vector embedding generation (external capability)
//   - TokenChunker: token counting and token-window chunking
//   - PageCounter: PDF page counting
//   - FileVault: managed storage for ingested source files
//
// # Optional Interfaces
//
//   - RemoteIndexer: the hosted document-indexing API
//   - RemoteStore: side table for the cloud-indexing stack; both are
//     only needed by the remote ingestion service.
//
// # Import Rules
//
//   - Can Import: domain package only
//   - Cannot Import: Any adapter package
package driven
