package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/fildex-labs/fildex-cli/internal/core/ports/driving"
)

var remoteCmd = &cobra.Command{
	Use:   "remote",
	Short: "Manage documents on the hosted indexing service",
	Long: `Upload filings to the hosted indexing service instead of the local
pipeline. The service owns document storage and tree construction;
fildex tracks filing metadata and processing status locally.`,
}

var remoteSubmitCmd = &cobra.Command{
	Use:   "submit [pdf-path]",
	Short: "Upload a PDF for hosted indexing",
	Args:  cobra.ExactArgs(1),
	RunE:  runRemoteSubmit,
}

var remoteStatusCmd = &cobra.Command{
	Use:   "status [doc-id]",
	Short: "Poll the service for a document's processing status",
	Args:  cobra.ExactArgs(1),
	RunE:  runRemoteStatus,
}

var remoteListCmd = &cobra.Command{
	Use:   "list",
	Short: "List submitted documents",
	Args:  cobra.NoArgs,
	RunE:  runRemoteList,
}

// remote submit flags.
var (
	remoteCompany    string
	remoteTicker     string
	remoteFiscalYear int
	remoteDocType    string
)

func init() {
	remoteSubmitCmd.Flags().StringVarP(&remoteCompany, "company", "c", "", "Company name")
	remoteSubmitCmd.Flags().StringVarP(&remoteTicker, "ticker", "t", "", "Ticker symbol (overrides filename inference)")
	remoteSubmitCmd.Flags().IntVarP(&remoteFiscalYear, "fiscal-year", "y", 0, "Fiscal year (overrides filename inference)")
	remoteSubmitCmd.Flags().StringVar(&remoteDocType, "doc-type", "", "Document type (overrides filename inference)")

	remoteCmd.AddCommand(remoteSubmitCmd)
	remoteCmd.AddCommand(remoteStatusCmd)
	remoteCmd.AddCommand(remoteListCmd)
	rootCmd.AddCommand(remoteCmd)
}

func runRemoteSubmit(cmd *cobra.Command, args []string) error {
	if err := ensureServices(); err != nil {
		return err
	}

	doc, err := remoteService.Submit(cmd.Context(), driving.IngestRequest{
		PDFPath:    args[0],
		Company:    remoteCompany,
		Ticker:     remoteTicker,
		FiscalYear: remoteFiscalYear,
		DocType:    remoteDocType,
	})
	if err != nil {
		return fmt.Errorf("submitting document: %w", err)
	}

	cmd.Printf("Submitted %s\n", doc.Filename)
	cmd.Printf("  doc_id: %s\n", doc.DocID)
	cmd.Println("Processing continues server-side; check with: fildex remote status", doc.DocID)
	return nil
}

func runRemoteStatus(cmd *cobra.Command, args []string) error {
	if err := ensureServices(); err != nil {
		return err
	}

	doc, err := remoteService.Refresh(cmd.Context(), args[0])
	if err != nil {
		return fmt.Errorf("refreshing status: %w", err)
	}

	cmd.Printf("Document: %s\n", doc.DocID)
	cmd.Printf("  Filename: %s\n", doc.Filename)
	cmd.Printf("  Status:   %s\n", doc.Status)
	if doc.PageCount > 0 {
		cmd.Printf("  Pages:    %d\n", doc.PageCount)
	}
	return nil
}

func runRemoteList(cmd *cobra.Command, _ []string) error {
	if err := ensureServices(); err != nil {
		return err
	}

	docs, err := remoteService.List(cmd.Context())
	if err != nil {
		return fmt.Errorf("listing remote documents: %w", err)
	}

	if len(docs) == 0 {
		cmd.Println("No documents submitted. Upload one with: fildex remote submit <pdf>")
		return nil
	}

	cmd.Printf("%-30s %-8s %-6s %-10s %s\n", "DOC ID", "TICKER", "YEAR", "STATUS", "FILENAME")
	for i := range docs {
		d := &docs[i]
		cmd.Printf("%-30s %-8s %-6d %-10s %s\n", d.DocID, d.Ticker, d.FiscalYear, d.Status, d.Filename)
	}
	cmd.Printf("\nTotal: %d document(s)\n", len(docs))
	return nil
}
