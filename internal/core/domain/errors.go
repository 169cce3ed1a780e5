package domain

import "errors"

// Domain errors represent business logic failures.
// These are distinct from infrastructure errors.
var (
	// ErrNotFound indicates a requested entity does not exist.
	ErrNotFound = errors.New("not found")

	// ErrDuplicate indicates a document with the same
	// (ticker, fiscal_year, doc_type) filing key already exists.
	// The store raises this from the insert's unique constraint, so
	// concurrent ingests of the same key resolve atomically.
	ErrDuplicate = errors.New("duplicate filing")

	// ErrInvalidInput indicates malformed or invalid input.
	ErrInvalidInput = errors.New("invalid input")
)
