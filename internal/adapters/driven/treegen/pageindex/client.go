// Package pageindex is an HTTP client for a PageIndex-style document
// structuring service. The same client backs two capabilities: the local
// pipeline's tree generation (submit, poll, fetch tree) and the cloud
// stack's remote indexing (submit and status only; the service keeps the
// document).
package pageindex

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"golang.org/x/time/rate"

	"github.com/fildex-labs/fildex-cli/internal/core/domain"
	"github.com/fildex-labs/fildex-cli/internal/core/ports/driven"
	"github.com/fildex-labs/fildex-cli/internal/retry"
)

// Ensure Client implements the remote-indexing interface.
var _ driven.RemoteIndexer = (*Client)(nil)

// Default configuration values.
const (
	DefaultBaseURL           = "https://api.pageindex.ai"
	DefaultTimeout           = 120 * time.Second
	DefaultRequestsPerSecond = 2
)

// Service-side processing states.
const (
	statusCompleted = "completed"
	statusFailed    = "failed"
)

// Config holds configuration for the PageIndex client.
type Config struct {
	// BaseURL is the API base URL (default: https://api.pageindex.ai).
	BaseURL string

	// APIKey authenticates every request. Required.
	APIKey string

	// Timeout is the per-request timeout (default: 120s). Polling loops
	// issue many short requests, so this bounds one request, not a whole
	// generation.
	Timeout time.Duration

	// RequestsPerSecond throttles API calls (default: 2).
	RequestsPerSecond float64

	// Retry controls retries of transient request failures. The zero
	// value uses the pipeline-wide default policy.
	Retry retry.Policy
}

// Client talks to the PageIndex API.
type Client struct {
	client  *http.Client
	limiter *rate.Limiter
	retry   retry.Policy
	baseURL string
	apiKey  string
}

// NewClient creates a PageIndex API client.
func NewClient(cfg Config) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.RequestsPerSecond <= 0 {
		cfg.RequestsPerSecond = DefaultRequestsPerSecond
	}
	if cfg.Retry.MaxAttempts == 0 {
		cfg.Retry = retry.DefaultPolicy()
	}

	return &Client{
		client: &http.Client{
			Timeout: cfg.Timeout,
		},
		limiter: rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), 1),
		retry:   cfg.Retry,
		baseURL: cfg.BaseURL,
		apiKey:  cfg.APIKey,
	}
}

// submitResponse is the POST /doc/ response format.
type submitResponse struct {
	DocID string `json:"doc_id"`
}

// statusResponse is the GET /doc/{id}/ response format.
type statusResponse struct {
	DocID   string `json:"doc_id"`
	Status  string `json:"status"`
	PageNum int    `json:"pageNum"`
}

// treeResponse is the GET /doc/{id}/?type=tree response format. The
// service emits result as a single root object or a list of roots
// depending on the document; nodeList absorbs both.
type treeResponse struct {
	DocID  string   `json:"doc_id"`
	Status string   `json:"status"`
	Result nodeList `json:"result"`
}

// listResponse is the GET /doc/ response format.
type listResponse struct {
	Total int `json:"total"`
}

// nodeList unmarshals either a JSON array of nodes or a single node
// object into a slice.
type nodeList []domain.Node

func (nl *nodeList) UnmarshalJSON(data []byte) error {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) > 0 && trimmed[0] == '[' {
		return json.Unmarshal(data, (*[]domain.Node)(nl))
	}
	var single domain.Node
	if err := json.Unmarshal(data, &single); err != nil {
		return err
	}
	*nl = nodeList{single}
	return nil
}

// SubmitDocument uploads the PDF and returns the service-assigned
// document id. extra form fields, if any, are taken from opts.
func (c *Client) SubmitDocument(ctx context.Context, pdfPath string) (string, error) {
	return c.submit(ctx, pdfPath, nil)
}

func (c *Client) submit(ctx context.Context, pdfPath string, fields map[string]string) (string, error) {
	var docID string
	err := c.retry.Do(ctx, func(ctx context.Context) error {
		var submitErr error
		docID, submitErr = c.submitOnce(ctx, pdfPath, fields)
		return submitErr
	})
	if err != nil {
		return "", fmt.Errorf("submitting %s: %w", filepath.Base(pdfPath), err)
	}
	return docID, nil
}

func (c *Client) submitOnce(ctx context.Context, pdfPath string, fields map[string]string) (string, error) {
	f, err := os.Open(pdfPath)
	if err != nil {
		return "", fmt.Errorf("opening pdf: %w", err)
	}
	defer f.Close()

	var body bytes.Buffer
	writer := multipart.NewWriter(&body)

	part, err := writer.CreateFormFile("file", filepath.Base(pdfPath))
	if err != nil {
		return "", fmt.Errorf("creating form file: %w", err)
	}
	if _, err := io.Copy(part, f); err != nil {
		return "", fmt.Errorf("copying pdf into form: %w", err)
	}
	for key, value := range fields {
		if err := writer.WriteField(key, value); err != nil {
			return "", fmt.Errorf("writing form field %s: %w", key, err)
		}
	}
	if err := writer.Close(); err != nil {
		return "", fmt.Errorf("closing form: %w", err)
	}

	var resp submitResponse
	if err := c.do(ctx, http.MethodPost, "/doc/", writer.FormDataContentType(), &body, &resp); err != nil {
		return "", err
	}
	if resp.DocID == "" {
		return "", fmt.Errorf("service returned no doc_id")
	}
	return resp.DocID, nil
}

// DocumentStatus reports the current processing state of a submitted
// document, mapped onto the local lifecycle vocabulary.
func (c *Client) DocumentStatus(ctx context.Context, docID string) (*driven.RemoteIndexStatus, error) {
	var resp statusResponse
	if err := c.do(ctx, http.MethodGet, "/doc/"+docID+"/", "", nil, &resp); err != nil {
		return nil, fmt.Errorf("fetching status for %s: %w", docID, err)
	}

	status := domain.StatusProcessing
	switch resp.Status {
	case statusCompleted:
		status = domain.StatusCompleted
	case statusFailed:
		status = domain.StatusFailed
	}

	return &driven.RemoteIndexStatus{Status: status, PageCount: resp.PageNum}, nil
}

// Tree fetches the generated structure tree for a completed document.
func (c *Client) Tree(ctx context.Context, docID string) ([]domain.Node, error) {
	var resp treeResponse
	err := c.retry.Do(ctx, func(ctx context.Context) error {
		return c.do(ctx, http.MethodGet, "/doc/"+docID+"/?type=tree", "", nil, &resp)
	})
	if err != nil {
		return nil, fmt.Errorf("fetching tree for %s: %w", docID, err)
	}
	if len(resp.Result) == 0 {
		return nil, fmt.Errorf("service returned an empty tree for %s", docID)
	}
	return resp.Result, nil
}

// Ping validates the service is reachable and the API key accepted by
// listing a single document.
func (c *Client) Ping(ctx context.Context) error {
	var resp listResponse
	if err := c.do(ctx, http.MethodGet, "/doc/?limit=1", "", nil, &resp); err != nil {
		return fmt.Errorf("pageindex: ping failed: %w", err)
	}
	return nil
}

// do performs one throttled, authenticated request and decodes the JSON
// response into out.
func (c *Client) do(ctx context.Context, method, path, contentType string, body io.Reader, out any) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("waiting for rate limiter: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	req.Header.Set("api_key", c.apiKey)

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		respBody, err := io.ReadAll(resp.Body)
		if err != nil {
			return fmt.Errorf("pageindex error (status %d): failed to read response", resp.StatusCode)
		}
		return fmt.Errorf("pageindex error (status %d): %s", resp.StatusCode, string(respBody))
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
