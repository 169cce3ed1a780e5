package pageindex

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// treeServer simulates a structuring service that completes after
// pollsUntilDone status checks.
func treeServer(t *testing.T, pollsUntilDone int32, finalStatus string) *httptest.Server {
	var polls atomic.Int32
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.Method == http.MethodPost && r.URL.Path == "/doc/":
			require.NoError(t, r.ParseMultipartForm(1<<20))
			assert.Equal(t, "yes", r.FormValue("if_add_node_text"))
			assert.Equal(t, "yes", r.FormValue("if_add_node_id"))
			assert.NotEmpty(t, r.FormValue("model"))
			require.NoError(t, json.NewEncoder(w).Encode(submitResponse{DocID: "pi-123"}))

		case r.Method == http.MethodGet && r.URL.Query().Get("type") == "tree":
			_, err := w.Write([]byte(`{
				"doc_id": "pi-123",
				"status": "completed",
				"result": [{"node_id": "0000", "title": "Report", "text": "Body."}]
			}`))
			require.NoError(t, err)

		case r.Method == http.MethodGet:
			status := "processing"
			if polls.Add(1) >= pollsUntilDone {
				status = finalStatus
			}
			require.NoError(t, json.NewEncoder(w).Encode(statusResponse{
				DocID: "pi-123", Status: status, PageNum: 12,
			}))

		default:
			t.Errorf("unexpected request: %s %s", r.Method, r.URL)
		}
	}))
}

// newTestGenerator builds a generator with millisecond polling.
func newTestGenerator(srv *httptest.Server, timeout time.Duration) *TreeGenerator {
	return NewTreeGenerator(newTestClient(srv), Options{
		PollInterval: time.Millisecond,
		PollTimeout:  timeout,
	})
}

func TestGenerateTree(t *testing.T) {
	srv := treeServer(t, 3, "completed")
	defer srv.Close()

	gen := newTestGenerator(srv, time.Second)

	nodes, err := gen.GenerateTree(context.Background(), writeTestPDF(t))
	require.NoError(t, err)
	require.Len(t, nodes, 1)
	assert.Equal(t, "Report", nodes[0].Title)
	assert.Equal(t, "Body.", nodes[0].Text)
}

func TestGenerateTree_ServiceFailure(t *testing.T) {
	srv := treeServer(t, 1, "failed")
	defer srv.Close()

	gen := newTestGenerator(srv, time.Second)

	_, err := gen.GenerateTree(context.Background(), writeTestPDF(t))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to structure")
}

func TestGenerateTree_PollTimeout(t *testing.T) {
	// Never completes.
	srv := treeServer(t, 1<<30, "completed")
	defer srv.Close()

	gen := newTestGenerator(srv, 20*time.Millisecond)

	_, err := gen.GenerateTree(context.Background(), writeTestPDF(t))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "did not finish within")
}

func TestNewTreeGenerator_Defaults(t *testing.T) {
	gen := NewTreeGenerator(NewClient(Config{APIKey: "k"}), Options{})

	assert.Equal(t, DefaultModel, gen.opts.Model)
	assert.Equal(t, DefaultTOCCheckPages, gen.opts.TOCCheckPages)
	assert.Equal(t, DefaultMaxPagesPerNode, gen.opts.MaxPagesPerNode)
	assert.Equal(t, DefaultMaxTokensPerNode, gen.opts.MaxTokensPerNode)
	assert.Equal(t, DefaultPollInterval, gen.opts.PollInterval)
	assert.Equal(t, DefaultPollTimeout, gen.opts.PollTimeout)
}
