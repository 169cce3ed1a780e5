package pageindex

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/fildex-labs/fildex-cli/internal/core/domain"
	"github.com/fildex-labs/fildex-cli/internal/core/ports/driven"
)

// Ensure TreeGenerator implements the interface.
var _ driven.TreeGenerator = (*TreeGenerator)(nil)

// Default generation options.
const (
	DefaultModel            = "gpt-4o-mini"
	DefaultTOCCheckPages    = 20
	DefaultMaxPagesPerNode  = 10
	DefaultMaxTokensPerNode = 20000
	DefaultPollInterval     = 5 * time.Second
	DefaultPollTimeout      = 10 * time.Minute
)

// Options control how the service structures a document.
type Options struct {
	// Model is the LLM used for structuring (default: gpt-4o-mini).
	Model string

	// TOCCheckPages is how many leading pages are scanned for a table
	// of contents (default: 20).
	TOCCheckPages int

	// MaxPagesPerNode bounds a node's page span (default: 10).
	MaxPagesPerNode int

	// MaxTokensPerNode bounds a node's text size (default: 20000).
	MaxTokensPerNode int

	// PollInterval is the delay between status polls (default: 5s).
	PollInterval time.Duration

	// PollTimeout bounds one generation end to end (default: 10m).
	// Generation continues server-side after a timeout; only the wait
	// is abandoned.
	PollTimeout time.Duration
}

// TreeGenerator generates structure trees by submitting documents to the
// service and polling until processing completes.
type TreeGenerator struct {
	client *Client
	opts   Options
}

// NewTreeGenerator wraps client with generation options.
func NewTreeGenerator(client *Client, opts Options) *TreeGenerator {
	if opts.Model == "" {
		opts.Model = DefaultModel
	}
	if opts.TOCCheckPages == 0 {
		opts.TOCCheckPages = DefaultTOCCheckPages
	}
	if opts.MaxPagesPerNode == 0 {
		opts.MaxPagesPerNode = DefaultMaxPagesPerNode
	}
	if opts.MaxTokensPerNode == 0 {
		opts.MaxTokensPerNode = DefaultMaxTokensPerNode
	}
	if opts.PollInterval == 0 {
		opts.PollInterval = DefaultPollInterval
	}
	if opts.PollTimeout == 0 {
		opts.PollTimeout = DefaultPollTimeout
	}

	return &TreeGenerator{client: client, opts: opts}
}

// GenerateTree submits the PDF, polls until the service finishes, and
// fetches the resulting tree. Node ids, summaries and text are always
// requested since the downstream pipeline depends on them.
func (g *TreeGenerator) GenerateTree(ctx context.Context, path string) ([]domain.Node, error) {
	fields := map[string]string{
		"model":                   g.opts.Model,
		"toc_check_page_num":      strconv.Itoa(g.opts.TOCCheckPages),
		"max_page_num_each_node":  strconv.Itoa(g.opts.MaxPagesPerNode),
		"max_token_num_each_node": strconv.Itoa(g.opts.MaxTokensPerNode),
		"if_add_node_id":          "yes",
		"if_add_node_summary":     "yes",
		"if_add_node_text":        "yes",
	}

	docID, err := g.client.submit(ctx, path, fields)
	if err != nil {
		return nil, err
	}

	if err := g.waitForCompletion(ctx, docID); err != nil {
		return nil, err
	}

	return g.client.Tree(ctx, docID)
}

// waitForCompletion polls the document status until it reaches a
// terminal state or the poll timeout elapses.
func (g *TreeGenerator) waitForCompletion(ctx context.Context, docID string) error {
	ctx, cancel := context.WithTimeout(ctx, g.opts.PollTimeout)
	defer cancel()

	ticker := time.NewTicker(g.opts.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return fmt.Errorf("tree generation for %s did not finish within %s: %w", docID, g.opts.PollTimeout, ctx.Err())
		case <-ticker.C:
		}

		status, err := g.client.DocumentStatus(ctx, docID)
		if err != nil {
			// Transient poll failures are absorbed; the next tick retries.
			continue
		}

		switch status.Status {
		case domain.StatusCompleted:
			return nil
		case domain.StatusFailed:
			return fmt.Errorf("service failed to structure document %s", docID)
		}
	}
}

// Ping validates the service is reachable.
func (g *TreeGenerator) Ping(ctx context.Context) error {
	return g.client.Ping(ctx)
}
