// Package filevault stores ingested source PDFs under a managed upload
// directory, one file per document id.
package filevault

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/fildex-labs/fildex-cli/internal/core/ports/driven"
)

// Ensure Vault implements the interface.
var _ driven.FileVault = (*Vault)(nil)

// Vault copies source files into an upload directory keyed by document
// id. The original file is never modified or moved.
type Vault struct {
	dir string
}

// NewVault creates a vault rooted at dir, creating it if needed.
func NewVault(dir string) (*Vault, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating upload directory: %w", err)
	}
	return &Vault{dir: dir}, nil
}

// Dir returns the managed upload directory.
func (v *Vault) Dir() string {
	return v.dir
}

// Store copies the file at srcPath to <dir>/<docID>.pdf and returns the
// stored path.
func (v *Vault) Store(ctx context.Context, srcPath, docID string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	src, err := os.Open(srcPath)
	if err != nil {
		return "", fmt.Errorf("opening source file: %w", err)
	}
	defer src.Close()

	destPath := v.path(docID)
	dest, err := os.Create(destPath)
	if err != nil {
		return "", fmt.Errorf("creating stored file: %w", err)
	}

	if _, err := io.Copy(dest, src); err != nil {
		dest.Close()
		os.Remove(destPath)
		return "", fmt.Errorf("copying into vault: %w", err)
	}
	if err := dest.Close(); err != nil {
		os.Remove(destPath)
		return "", fmt.Errorf("closing stored file: %w", err)
	}

	return destPath, nil
}

// Remove deletes the stored file for docID. Missing files are not an
// error; Remove is used for cleanup paths that may run twice.
func (v *Vault) Remove(_ context.Context, docID string) error {
	if err := os.Remove(v.path(docID)); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("removing stored file: %w", err)
	}
	return nil
}

func (v *Vault) path(docID string) string {
	return filepath.Join(v.dir, docID+".pdf")
}
