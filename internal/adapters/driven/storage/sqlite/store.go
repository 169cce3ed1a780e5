// Package sqlite implements the corpus store on SQLite.
package sqlite

import (
	"context"
	"database/sql"
	"embed"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"io/fs"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strings"

	_ "modernc.org/sqlite" // SQLite driver

	"github.com/fildex-labs/fildex-cli/internal/adapters/driven/storage/sqlite/migrations"
	"github.com/fildex-labs/fildex-cli/internal/core/domain"
	"github.com/fildex-labs/fildex-cli/internal/core/ports/driven"
)

// Ensure Store implements the store interfaces.
var (
	_ driven.CorpusStore = (*Store)(nil)
	_ driven.RemoteStore = (*Store)(nil)
)

// Store is a SQLite-backed corpus store. Foreign keys are enabled so the
// trees/chunks cascade is enforced by the database.
type Store struct {
	db   *sql.DB
	path string
}

// NewStore creates a SQLite store at the specified data directory.
// If dataDir is empty, defaults to ~/.fildex/data/corpus.db.
func NewStore(dataDir string) (*Store, error) {
	if dataDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("getting home directory: %w", err)
		}
		dataDir = filepath.Join(home, ".fildex", "data")
	}

	if err := os.MkdirAll(dataDir, 0700); err != nil {
		return nil, fmt.Errorf("creating data directory: %w", err)
	}

	dbPath := filepath.Join(dataDir, "corpus.db")

	// WAL for concurrent readers during long ingests.
	db, err := sql.Open("sqlite", dbPath+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enabling foreign keys: %w", err)
	}

	s := &Store{db: db, path: dbPath}

	if err := s.migrate(migrations.FS); err != nil {
		db.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}

	return s, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Path returns the database file path.
func (s *Store) Path() string {
	return s.path
}

// migrate runs all pending migrations.
func (s *Store) migrate(fsys embed.FS) error {
	_, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version INTEGER PRIMARY KEY,
			applied_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)
	`)
	if err != nil {
		return fmt.Errorf("creating schema_migrations table: %w", err)
	}

	var currentVersion int
	row := s.db.QueryRow("SELECT COALESCE(MAX(version), 0) FROM schema_migrations")
	if err := row.Scan(&currentVersion); err != nil {
		return fmt.Errorf("getting current version: %w", err)
	}

	entries, err := fs.ReadDir(fsys, ".")
	if err != nil {
		return fmt.Errorf("reading migrations directory: %w", err)
	}

	var upFiles []string
	for _, entry := range entries {
		if strings.HasSuffix(entry.Name(), ".up.sql") {
			upFiles = append(upFiles, entry.Name())
		}
	}
	sort.Strings(upFiles)

	for _, name := range upFiles {
		var version int
		if _, err := fmt.Sscanf(name, "%d_", &version); err != nil {
			continue // Skip files that don't match pattern
		}
		if version <= currentVersion {
			continue // Already applied
		}

		content, err := fs.ReadFile(fsys, name)
		if err != nil {
			return fmt.Errorf("reading migration %s: %w", name, err)
		}
		if _, err := s.db.Exec(string(content)); err != nil {
			return fmt.Errorf("executing migration %s: %w", name, err)
		}
		if _, err := s.db.Exec("INSERT INTO schema_migrations (version) VALUES (?)", version); err != nil {
			return fmt.Errorf("recording migration %s: %w", name, err)
		}
	}

	return nil
}

// ==================== Documents ====================

// InsertDocument creates a new document row. The UNIQUE(ticker,
// fiscal_year, doc_type) constraint resolves duplicate filings at insert
// time; violations surface as domain.ErrDuplicate.
func (s *Store) InsertDocument(ctx context.Context, doc *domain.Document) error {
	if doc.ID == "" || doc.Ticker == "" || doc.FiscalYear == 0 {
		return domain.ErrInvalidInput
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO documents
			(id, company, ticker, fiscal_year, doc_type, filename,
			 page_count, total_tokens, node_count, chunk_count,
			 status, error_message, ingest_timestamp)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, doc.ID, doc.Company, doc.Ticker, doc.FiscalYear, doc.DocType, doc.Filename,
		doc.PageCount, doc.TotalTokens, doc.NodeCount, doc.ChunkCount,
		string(doc.Status), nullString(doc.ErrorMessage), doc.IngestedAt)

	if err != nil {
		if isUniqueViolation(err) {
			return domain.ErrDuplicate
		}
		return fmt.Errorf("inserting document: %w", err)
	}
	return nil
}

// GetDocument retrieves a document by id.
func (s *Store) GetDocument(ctx context.Context, id string) (*domain.Document, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, company, ticker, fiscal_year, doc_type, filename,
		       page_count, total_tokens, node_count, chunk_count,
		       status, error_message, ingest_timestamp
		FROM documents WHERE id = ?
	`, id)
	return scanDocument(row)
}

// FindByFiling retrieves the document matching a filing key.
func (s *Store) FindByFiling(ctx context.Context, ticker string, fiscalYear int, docType string) (*domain.Document, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, company, ticker, fiscal_year, doc_type, filename,
		       page_count, total_tokens, node_count, chunk_count,
		       status, error_message, ingest_timestamp
		FROM documents WHERE ticker = ? AND fiscal_year = ? AND doc_type = ?
	`, ticker, fiscalYear, docType)
	return scanDocument(row)
}

// ListDocuments returns all documents ordered by (ticker, fiscal_year).
func (s *Store) ListDocuments(ctx context.Context) ([]domain.Document, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, company, ticker, fiscal_year, doc_type, filename,
		       page_count, total_tokens, node_count, chunk_count,
		       status, error_message, ingest_timestamp
		FROM documents ORDER BY ticker, fiscal_year
	`)
	if err != nil {
		return nil, fmt.Errorf("querying documents: %w", err)
	}
	defer rows.Close()

	var docs []domain.Document //nolint:prealloc // size unknown from query
	for rows.Next() {
		doc, err := scanDocumentRows(rows)
		if err != nil {
			return nil, err
		}
		docs = append(docs, *doc)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating documents: %w", err)
	}
	return docs, nil
}

// DeleteDocument removes a document; the tree and chunk rows go with it
// via cascade.
func (s *Store) DeleteDocument(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, "DELETE FROM documents WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("deleting document: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("deleting document: %w", err)
	}
	if affected == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// MarkFailed records a terminal failure with the error text verbatim.
func (s *Store) MarkFailed(ctx context.Context, id string, message string) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE documents SET status = ?, error_message = ? WHERE id = ?
	`, string(domain.StatusFailed), message, id)
	if err != nil {
		return fmt.Errorf("marking document failed: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("marking document failed: %w", err)
	}
	if affected == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// FinalizeDocument writes the tree row and all chunk rows and flips the
// document to completed, in one transaction.
func (s *Store) FinalizeDocument(ctx context.Context, doc *domain.Document, tree *domain.DocumentTree, chunks []domain.Chunk) error {
	treeJSON, err := json.Marshal(tree.Structure)
	if err != nil {
		return fmt.Errorf("marshalling tree: %w", err)
	}
	noTextJSON, err := json.Marshal(tree.StructureNoText)
	if err != nil {
		return fmt.Errorf("marshalling stripped tree: %w", err)
	}
	nodeMapJSON, err := json.Marshal(tree.NodeMap)
	if err != nil {
		return fmt.Errorf("marshalling node map: %w", err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO trees (doc_id, tree_json, tree_no_text, node_map_json)
		VALUES (?, ?, ?, ?)
	`, tree.DocID, string(treeJSON), string(noTextJSON), string(nodeMapJSON)); err != nil {
		return fmt.Errorf("inserting tree: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO chunks
			(doc_id, node_id, chunk_index, content, token_count,
			 start_page, end_page, embedding)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("preparing chunk statement: %w", err)
	}
	defer stmt.Close()

	for _, chunk := range chunks {
		embeddingBlob := float32SliceToBytes(chunk.Embedding)
		if _, err := stmt.ExecContext(ctx, chunk.DocID, chunk.NodeID, chunk.Index,
			chunk.Content, chunk.TokenCount, chunk.StartPage, chunk.EndPage,
			embeddingBlob); err != nil {
			return fmt.Errorf("inserting chunk %s/%d: %w", chunk.NodeID, chunk.Index, err)
		}
	}

	if _, err := tx.ExecContext(ctx, `
		UPDATE documents SET
			page_count = ?, total_tokens = ?, node_count = ?, chunk_count = ?,
			status = ?
		WHERE id = ?
	`, doc.PageCount, doc.TotalTokens, doc.NodeCount, doc.ChunkCount,
		string(domain.StatusCompleted), doc.ID); err != nil {
		return fmt.Errorf("updating document: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing transaction: %w", err)
	}
	return nil
}

// ==================== Trees ====================

// GetTree retrieves the stored tree and its derived artifacts.
func (s *Store) GetTree(ctx context.Context, docID string) (*domain.DocumentTree, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT tree_json, tree_no_text, node_map_json
		FROM trees WHERE doc_id = ?
	`, docID)

	var treeJSON, noTextJSON, nodeMapJSON string
	if err := row.Scan(&treeJSON, &noTextJSON, &nodeMapJSON); err != nil {
		if err == sql.ErrNoRows {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("scanning tree: %w", err)
	}

	tree := &domain.DocumentTree{DocID: docID}
	if err := json.Unmarshal([]byte(treeJSON), &tree.Structure); err != nil {
		return nil, fmt.Errorf("unmarshalling tree: %w", err)
	}
	if err := json.Unmarshal([]byte(noTextJSON), &tree.StructureNoText); err != nil {
		return nil, fmt.Errorf("unmarshalling stripped tree: %w", err)
	}
	if err := json.Unmarshal([]byte(nodeMapJSON), &tree.NodeMap); err != nil {
		return nil, fmt.Errorf("unmarshalling node map: %w", err)
	}
	return tree, nil
}

// ==================== Chunks ====================

// GetChunks returns a document's chunks ordered by (node_id, chunk_index).
func (s *Store) GetChunks(ctx context.Context, docID string) ([]domain.Chunk, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT doc_id, node_id, chunk_index, content, token_count,
		       start_page, end_page, embedding
		FROM chunks WHERE doc_id = ?
		ORDER BY node_id, chunk_index
	`, docID)
	if err != nil {
		return nil, fmt.Errorf("querying chunks: %w", err)
	}
	defer rows.Close()

	var chunks []domain.Chunk //nolint:prealloc // size unknown from query
	for rows.Next() {
		var chunk domain.Chunk
		var startPage, endPage sql.NullInt64
		var embeddingBlob []byte
		if err := rows.Scan(&chunk.DocID, &chunk.NodeID, &chunk.Index,
			&chunk.Content, &chunk.TokenCount, &startPage, &endPage,
			&embeddingBlob); err != nil {
			return nil, fmt.Errorf("scanning chunk: %w", err)
		}
		chunk.StartPage = int(startPage.Int64)
		chunk.EndPage = int(endPage.Int64)
		chunk.Embedding = bytesToFloat32Slice(embeddingBlob)
		chunks = append(chunks, chunk)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating chunks: %w", err)
	}
	return chunks, nil
}

// ==================== Remote Documents ====================

// UpsertRemoteDocument inserts or replaces a cloud-stack side-table row.
func (s *Store) UpsertRemoteDocument(ctx context.Context, doc *domain.RemoteDocument) error {
	if doc.DocID == "" {
		return domain.ErrInvalidInput
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO remote_documents
			(doc_id, filename, company, ticker, fiscal_year, doc_type,
			 page_count, status, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(doc_id) DO UPDATE SET
			filename = excluded.filename,
			company = excluded.company,
			ticker = excluded.ticker,
			fiscal_year = excluded.fiscal_year,
			doc_type = excluded.doc_type,
			page_count = excluded.page_count,
			status = excluded.status
	`, doc.DocID, doc.Filename, doc.Company, doc.Ticker, doc.FiscalYear,
		doc.DocType, doc.PageCount, string(doc.Status), doc.CreatedAt)

	if err != nil {
		return fmt.Errorf("upserting remote document: %w", err)
	}
	return nil
}

// UpdateRemoteStatus updates status and, when non-zero, page count.
func (s *Store) UpdateRemoteStatus(ctx context.Context, docID string, status domain.DocumentStatus, pageCount int) error {
	var err error
	if pageCount > 0 {
		_, err = s.db.ExecContext(ctx,
			"UPDATE remote_documents SET status = ?, page_count = ? WHERE doc_id = ?",
			string(status), pageCount, docID)
	} else {
		_, err = s.db.ExecContext(ctx,
			"UPDATE remote_documents SET status = ? WHERE doc_id = ?",
			string(status), docID)
	}
	if err != nil {
		return fmt.Errorf("updating remote status: %w", err)
	}
	return nil
}

// GetRemoteDocument retrieves a side-table row by the service's doc id.
func (s *Store) GetRemoteDocument(ctx context.Context, docID string) (*domain.RemoteDocument, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT doc_id, filename, company, ticker, fiscal_year, doc_type,
		       page_count, status, created_at
		FROM remote_documents WHERE doc_id = ?
	`, docID)

	var doc domain.RemoteDocument
	var status string
	if err := row.Scan(&doc.DocID, &doc.Filename, &doc.Company, &doc.Ticker,
		&doc.FiscalYear, &doc.DocType, &doc.PageCount, &status, &doc.CreatedAt); err != nil {
		if err == sql.ErrNoRows {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("scanning remote document: %w", err)
	}
	doc.Status = domain.DocumentStatus(status)
	return &doc, nil
}

// ListRemoteDocuments returns all rows ordered by (company, fiscal_year).
func (s *Store) ListRemoteDocuments(ctx context.Context) ([]domain.RemoteDocument, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT doc_id, filename, company, ticker, fiscal_year, doc_type,
		       page_count, status, created_at
		FROM remote_documents ORDER BY company, fiscal_year
	`)
	if err != nil {
		return nil, fmt.Errorf("querying remote documents: %w", err)
	}
	defer rows.Close()

	var docs []domain.RemoteDocument //nolint:prealloc // size unknown from query
	for rows.Next() {
		var doc domain.RemoteDocument
		var status string
		if err := rows.Scan(&doc.DocID, &doc.Filename, &doc.Company, &doc.Ticker,
			&doc.FiscalYear, &doc.DocType, &doc.PageCount, &status, &doc.CreatedAt); err != nil {
			return nil, fmt.Errorf("scanning remote document: %w", err)
		}
		doc.Status = domain.DocumentStatus(status)
		docs = append(docs, doc)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating remote documents: %w", err)
	}
	return docs, nil
}

// ==================== Helper Functions ====================

// isUniqueViolation reports whether err is a SQLite unique constraint
// failure. modernc.org/sqlite surfaces these as plain errors, so the
// message text is the only signal available.
func isUniqueViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}

// float32SliceToBytes converts a []float32 to a byte slice for storage.
func float32SliceToBytes(floats []float32) []byte {
	if len(floats) == 0 {
		return nil
	}
	buf := make([]byte, len(floats)*4)
	for i, f := range floats {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(f))
	}
	return buf
}

// bytesToFloat32Slice converts a byte slice back to []float32.
func bytesToFloat32Slice(data []byte) []float32 {
	if len(data) == 0 {
		return nil
	}
	floats := make([]float32, len(data)/4)
	for i := range floats {
		floats[i] = math.Float32frombits(binary.LittleEndian.Uint32(data[i*4:]))
	}
	return floats
}

// nullString converts an empty string to a SQL NULL.
func nullString(s string) any {
	if s == "" {
		return nil
	}
	return s
}

// scanDocument scans a single document row.
func scanDocument(row *sql.Row) (*domain.Document, error) {
	var doc domain.Document
	var status string
	var pageCount, totalTokens sql.NullInt64
	var errorMessage sql.NullString

	if err := row.Scan(&doc.ID, &doc.Company, &doc.Ticker, &doc.FiscalYear,
		&doc.DocType, &doc.Filename, &pageCount, &totalTokens,
		&doc.NodeCount, &doc.ChunkCount, &status, &errorMessage,
		&doc.IngestedAt); err != nil {
		if err == sql.ErrNoRows {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("scanning document: %w", err)
	}

	doc.PageCount = int(pageCount.Int64)
	doc.TotalTokens = int(totalTokens.Int64)
	doc.Status = domain.DocumentStatus(status)
	doc.ErrorMessage = errorMessage.String
	return &doc, nil
}

// scanDocumentRows scans a document from a multi-row result.
func scanDocumentRows(rows *sql.Rows) (*domain.Document, error) {
	var doc domain.Document
	var status string
	var pageCount, totalTokens sql.NullInt64
	var errorMessage sql.NullString

	if err := rows.Scan(&doc.ID, &doc.Company, &doc.Ticker, &doc.FiscalYear,
		&doc.DocType, &doc.Filename, &pageCount, &totalTokens,
		&doc.NodeCount, &doc.ChunkCount, &status, &errorMessage,
		&doc.IngestedAt); err != nil {
		return nil, fmt.Errorf("scanning document: %w", err)
	}

	doc.PageCount = int(pageCount.Int64)
	doc.TotalTokens = int(totalTokens.Int64)
	doc.Status = domain.DocumentStatus(status)
	doc.ErrorMessage = errorMessage.String
	return &doc, nil
}
