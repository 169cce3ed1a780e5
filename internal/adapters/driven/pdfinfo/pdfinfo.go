// Package pdfinfo reads PDF metadata locally via pdfcpu.
package pdfinfo

import (
	"fmt"

	"github.com/pdfcpu/pdfcpu/pkg/api"

	"github.com/fildex-labs/fildex-cli/internal/core/ports/driven"
)

// Ensure Counter implements the interface.
var _ driven.PageCounter = (*Counter)(nil)

// Counter counts PDF pages without calling any external service.
type Counter struct{}

// NewCounter creates a page counter.
func NewCounter() *Counter {
	return &Counter{}
}

// PageCount returns the number of pages in the PDF at path.
func (c *Counter) PageCount(path string) (int, error) {
	count, err := api.PageCountFile(path)
	if err != nil {
		return 0, fmt.Errorf("counting pages in %s: %w", path, err)
	}
	return count, nil
}
