package cli

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/fildex-labs/fildex-cli/internal/core/domain"
)

var corpusCmd = &cobra.Command{
	Use:   "corpus",
	Short: "Inspect and manage the ingested corpus",
}

var corpusListCmd = &cobra.Command{
	Use:   "list",
	Short: "List ingested documents",
	Args:  cobra.NoArgs,
	RunE:  runCorpusList,
}

var corpusShowCmd = &cobra.Command{
	Use:   "show [doc-id]",
	Short: "Show document details",
	Args:  cobra.ExactArgs(1),
	RunE:  runCorpusShow,
}

var corpusDeleteCmd = &cobra.Command{
	Use:   "delete [doc-id]",
	Short: "Delete a document and its tree, chunks and stored PDF",
	Args:  cobra.ExactArgs(1),
	RunE:  runCorpusDelete,
}

var corpusTreeCmd = &cobra.Command{
	Use:   "tree [doc-id]",
	Short: "Print a document's structure tree as JSON",
	Args:  cobra.ExactArgs(1),
	RunE:  runCorpusTree,
}

// treeFullText includes node text in the tree output.
var treeFullText bool

func init() {
	corpusTreeCmd.Flags().BoolVar(&treeFullText, "full", false, "Include node text (large)")

	corpusCmd.AddCommand(corpusListCmd)
	corpusCmd.AddCommand(corpusShowCmd)
	corpusCmd.AddCommand(corpusDeleteCmd)
	corpusCmd.AddCommand(corpusTreeCmd)
	rootCmd.AddCommand(corpusCmd)
}

func runCorpusList(cmd *cobra.Command, _ []string) error {
	if err := ensureServices(); err != nil {
		return err
	}

	docs, err := corpusService.List(cmd.Context())
	if err != nil {
		return fmt.Errorf("listing documents: %w", err)
	}

	if len(docs) == 0 {
		cmd.Println("Corpus is empty. Ingest a filing with: fildex ingest <pdf>")
		return nil
	}

	cmd.Printf("%-38s %-8s %-6s %-8s %-10s %s\n", "ID", "TICKER", "YEAR", "TYPE", "STATUS", "CHUNKS")
	for i := range docs {
		d := &docs[i]
		cmd.Printf("%-38s %-8s %-6d %-8s %-10s %d\n",
			d.ID, d.Ticker, d.FiscalYear, d.DocType, d.Status, d.ChunkCount)
	}
	cmd.Printf("\nTotal: %d document(s)\n", len(docs))
	return nil
}

func runCorpusShow(cmd *cobra.Command, args []string) error {
	if err := ensureServices(); err != nil {
		return err
	}

	doc, err := corpusService.Get(cmd.Context(), args[0])
	if err != nil {
		return fmt.Errorf("getting document: %w", err)
	}

	cmd.Printf("Document: %s\n\n", doc.ID)
	cmd.Printf("  Company:     %s\n", doc.Company)
	cmd.Printf("  Ticker:      %s\n", doc.Ticker)
	cmd.Printf("  Fiscal year: %d\n", doc.FiscalYear)
	cmd.Printf("  Doc type:    %s\n", doc.DocType)
	cmd.Printf("  Filename:    %s\n", doc.Filename)
	cmd.Printf("  Status:      %s\n", doc.Status)
	cmd.Printf("  Pages:       %d\n", doc.PageCount)
	cmd.Printf("  Tokens:      %d\n", doc.TotalTokens)
	cmd.Printf("  Nodes:       %d\n", doc.NodeCount)
	cmd.Printf("  Chunks:      %d\n", doc.ChunkCount)
	cmd.Printf("  Ingested:    %s\n", doc.IngestedAt.Format("2006-01-02 15:04:05"))
	if doc.ErrorMessage != "" {
		cmd.Printf("  Error:       %s\n", doc.ErrorMessage)
	}
	return nil
}

func runCorpusDelete(cmd *cobra.Command, args []string) error {
	if err := ensureServices(); err != nil {
		return err
	}

	if err := corpusService.Delete(cmd.Context(), args[0]); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			cmd.Printf("Document %s not found.\n", args[0])
			return nil
		}
		return fmt.Errorf("deleting document: %w", err)
	}
	cmd.Printf("Document %s deleted.\n", args[0])
	return nil
}

func runCorpusTree(cmd *cobra.Command, args []string) error {
	if err := ensureServices(); err != nil {
		return err
	}

	tree, err := corpusService.Tree(cmd.Context(), args[0])
	if err != nil {
		return fmt.Errorf("getting tree: %w", err)
	}

	structure := tree.StructureNoText
	if treeFullText {
		structure = tree.Structure
	}

	out, err := json.MarshalIndent(structure, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding tree: %w", err)
	}
	cmd.Println(string(out))
	return nil
}
