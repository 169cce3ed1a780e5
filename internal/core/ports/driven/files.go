package driven

import "context"

// FileVault stores ingested source files under managed, per-document
// paths. Identifiers are fresh per ingestion, so no two documents ever
// write the same path.
type FileVault interface {
	// Store copies the file at srcPath into managed storage under docID
	// and returns the stored path. The caller's original file is
	// untouched.
	Store(ctx context.Context, srcPath, docID string) (string, error)

	// Remove deletes the stored file for docID, if present.
	Remove(ctx context.Context, docID string) error
}

// PageCounter reports the page count of a PDF file.
type PageCounter interface {
	// PageCount returns the number of pages in the PDF at path.
	PageCount(path string) (int, error)
}
