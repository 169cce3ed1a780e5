package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"sort"
	"strings"
	"syscall"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"

	"github.com/fildex-labs/fildex-cli/internal/core/domain"
	"github.com/fildex-labs/fildex-cli/internal/core/ports/driving"
	"github.com/fildex-labs/fildex-cli/internal/logger"
)

var ingestCmd = &cobra.Command{
	Use:   "ingest [pdf-path]",
	Short: "Ingest PDF filings into the local corpus",
	Long: `Ingest a single PDF, or every PDF in a directory with --dir.

Ticker, fiscal year and doc type are inferred from filenames shaped
like TICKER_DOCTYPE_YEAR.pdf (e.g. INFY_20F_2022.pdf); flags override
inference. A filing already in the corpus is reported as a duplicate
unless --force is given.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runIngest,
}

// ingest command flags.
var (
	ingestCompany    string
	ingestTicker     string
	ingestFiscalYear int
	ingestDocType    string
	ingestForce      bool
	ingestDir        string
	ingestWatch      bool
	ingestSkipChecks bool
)

func init() {
	ingestCmd.Flags().StringVarP(&ingestCompany, "company", "c", "", "Company name (e.g. \"Infosys Ltd\")")
	ingestCmd.Flags().StringVarP(&ingestTicker, "ticker", "t", "", "Ticker symbol (overrides filename inference)")
	ingestCmd.Flags().IntVarP(&ingestFiscalYear, "fiscal-year", "y", 0, "Fiscal year (overrides filename inference)")
	ingestCmd.Flags().StringVar(&ingestDocType, "doc-type", "", "Document type (overrides filename inference)")
	ingestCmd.Flags().BoolVarP(&ingestForce, "force", "f", false, "Overwrite an existing document with the same filing key")
	ingestCmd.Flags().StringVarP(&ingestDir, "dir", "d", "", "Ingest every PDF in this directory")
	ingestCmd.Flags().BoolVarP(&ingestWatch, "watch", "w", false, "After the initial pass, keep watching --dir for new PDFs")
	ingestCmd.Flags().BoolVar(&ingestSkipChecks, "skip-checks", false, "Skip service connectivity checks")

	rootCmd.AddCommand(ingestCmd)
}

func runIngest(cmd *cobra.Command, args []string) error {
	if err := ensureServices(); err != nil {
		return err
	}

	if len(args) == 0 && ingestDir == "" {
		return errors.New("provide a pdf path or --dir")
	}
	if len(args) > 0 && ingestDir != "" {
		return errors.New("provide either a pdf path or --dir, not both")
	}
	if ingestWatch && ingestDir == "" {
		return errors.New("--watch requires --dir")
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if !ingestSkipChecks {
		if err := runChecks(ctx, cmd); err != nil {
			return fmt.Errorf("service checks failed (use --skip-checks to bypass): %w", err)
		}
	}

	if len(args) == 1 {
		result, err := ingestOne(ctx, cmd, args[0])
		if err != nil {
			return err
		}
		if result.Status == domain.IngestFailed {
			return fmt.Errorf("ingest failed: %s", result.Message)
		}
		return nil
	}

	paths, err := listPDFs(ingestDir)
	if err != nil {
		return err
	}
	if len(paths) == 0 && !ingestWatch {
		return fmt.Errorf("no PDF files found in %s", ingestDir)
	}
	cmd.Printf("Found %d PDF(s) to ingest.\n", len(paths))

	summary := make(map[domain.IngestStatus]int)
	for _, path := range paths {
		if ctx.Err() != nil {
			break
		}
		result, err := ingestOne(ctx, cmd, path)
		if err != nil {
			cmd.Printf("  ERROR %s: %v\n", filepath.Base(path), err)
			summary[domain.IngestFailed]++
			continue
		}
		summary[result.Status]++
	}
	printSummary(cmd, summary)

	if ingestWatch && ctx.Err() == nil {
		return watchDir(ctx, cmd, ingestDir)
	}
	return nil
}

// runChecks verifies both external services before any upload, the
// same way a pre-flight avoids half-ingested batches.
func runChecks(ctx context.Context, cmd *cobra.Command) error {
	cmd.Println("[CHECK] structuring service ...")
	if err := treeGen.Ping(ctx); err != nil {
		return err
	}
	cmd.Println("[CHECK] embedding service ...")
	if err := embedder.Ping(ctx); err != nil {
		return err
	}
	cmd.Println("[CHECK] all services reachable")
	return nil
}

// ingestOne runs the pipeline for a single path and prints the outcome.
func ingestOne(ctx context.Context, cmd *cobra.Command, path string) (*domain.IngestResult, error) {
	cmd.Printf("=== Ingesting: %s ===\n", filepath.Base(path))

	result, err := ingestService.Ingest(ctx, driving.IngestRequest{
		PDFPath:    path,
		Company:    ingestCompany,
		Ticker:     ingestTicker,
		FiscalYear: ingestFiscalYear,
		DocType:    ingestDocType,
		Force:      ingestForce,
	})
	if err != nil {
		return nil, err
	}

	switch result.Status {
	case domain.IngestCompleted:
		cmd.Printf("  DONE %s: %d pages, %d nodes, %d chunks\n",
			result.DocID, result.PageCount, result.NodeCount, result.ChunksCreated)
	case domain.IngestDuplicate:
		cmd.Printf("  SKIP %s\n", result.Message)
	case domain.IngestFailed:
		cmd.Printf("  FAIL %s\n", result.Message)
	}
	return result, nil
}

// listPDFs returns the directory's PDF paths sorted by name.
func listPDFs(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("reading directory: %w", err)
	}

	var paths []string //nolint:prealloc // most entries are usually not PDFs
	for _, entry := range entries {
		if entry.IsDir() || !strings.EqualFold(filepath.Ext(entry.Name()), ".pdf") {
			continue
		}
		paths = append(paths, filepath.Join(dir, entry.Name()))
	}
	sort.Strings(paths)
	return paths, nil
}

func printSummary(cmd *cobra.Command, summary map[domain.IngestStatus]int) {
	cmd.Println(strings.Repeat("=", 40))
	cmd.Println("INGEST SUMMARY")
	cmd.Printf("  Completed:  %d\n", summary[domain.IngestCompleted])
	cmd.Printf("  Duplicates: %d\n", summary[domain.IngestDuplicate])
	cmd.Printf("  Failed:     %d\n", summary[domain.IngestFailed])
	cmd.Println(strings.Repeat("=", 40))
}

// watchDir ingests PDFs as they appear in dir until interrupted.
func watchDir(ctx context.Context, cmd *cobra.Command, dir string) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("creating watcher: %w", err)
	}
	defer watcher.Close()

	if err := watcher.Add(dir); err != nil {
		return fmt.Errorf("watching %s: %w", dir, err)
	}
	cmd.Printf("Watching %s for new PDFs (ctrl-c to stop) ...\n", dir)

	for {
		select {
		case <-ctx.Done():
			cmd.Println("Watch stopped.")
			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			// Renames cover editors and downloaders that write a temp
			// file first and move it into place when complete.
			if !event.Has(fsnotify.Create) && !event.Has(fsnotify.Rename) {
				continue
			}
			if !strings.EqualFold(filepath.Ext(event.Name), ".pdf") {
				continue
			}
			if err := waitForSettle(ctx, event.Name); err != nil {
				if ctx.Err() != nil {
					continue
				}
				logger.Warn("skipping %s: %v", filepath.Base(event.Name), err)
				continue
			}
			if _, err := ingestOne(ctx, cmd, event.Name); err != nil {
				cmd.Printf("  ERROR %s: %v\n", filepath.Base(event.Name), err)
			}

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			logger.Warn("watcher error: %v", err)
		}
	}
}

// How long waitForSettle polls, and at what interval. Vars so tests
// can shorten them.
var (
	settleInterval = 200 * time.Millisecond
	settleTimeout  = 30 * time.Second
)

// waitForSettle blocks until path's size is non-zero and unchanged
// between two polls. Create fires when a copy begins, so ingesting
// immediately would hand the pipeline a truncated file.
func waitForSettle(ctx context.Context, path string) error {
	deadline := time.After(settleTimeout)
	var lastSize int64 = -1

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-deadline:
			return fmt.Errorf("%s still changing after %s", filepath.Base(path), settleTimeout)
		case <-time.After(settleInterval):
			info, err := os.Stat(path)
			if err != nil {
				// May have been moved away again.
				lastSize = -1
				continue
			}
			if info.Size() > 0 && info.Size() == lastSize {
				return nil
			}
			lastSize = info.Size()
		}
	}
}
