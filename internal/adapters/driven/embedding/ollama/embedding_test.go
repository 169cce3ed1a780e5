package ollama

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

	"github.com/fildex-labs/fildex-cli/internal/retry"
)

// newTestService returns a service pointed at srv with retries and
// throttling relaxed so tests stay fast.
func newTestService(srv *httptest.Server, batchSize int) *EmbeddingService {
	return NewEmbeddingService(Config{
		BaseURL:           srv.URL,
		Model:             "test-model",
		Dimensions:        3,
		BatchSize:         batchSize,
		RequestsPerSecond: 1000,
		Retry:             retry.Policy{MaxAttempts: 1},
	})
}

// embedHandler responds with one fixed-dimension vector per input text.
func embedHandler(t *testing.T) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "/api/embed", r.URL.Path)

		var req embedRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		require.Equal(t, "test-model", req.Model)

		resp := embedResponse{Embeddings: make([][]float32, len(req.Input))}
		for i := range req.Input {
			resp.Embeddings[i] = []float32{float32(i), 1, 2}
		}
		require.NoError(t, json.NewEncoder(w).Encode(resp))
	}
}

func TestNewEmbeddingService_Defaults(t *testing.T) {
	svc := NewEmbeddingService(Config{})

	assert.Equal(t, DefaultBaseURL, svc.baseURL)
	assert.Equal(t, DefaultModel, svc.ModelName())
	assert.Equal(t, DefaultDimensions, svc.Dimensions())
	assert.Equal(t, DefaultBatchSize, svc.batchSize)
	assert.Equal(t, retry.DefaultMaxAttempts, svc.retry.MaxAttempts)
}

func TestEmbedBatch_SingleBatch(t *testing.T) {
	srv := httptest.NewServer(embedHandler(t))
	defer srv.Close()

	svc := newTestService(srv, 32)

	embeddings, err := svc.EmbedBatch(context.Background(), []string{"alpha", "beta"})
	require.NoError(t, err)
	require.Len(t, embeddings, 2)
	assert.Equal(t, []float32{0, 1, 2}, embeddings[0])
	assert.Equal(t, []float32{1, 1, 2}, embeddings[1])
}

func TestEmbedBatch_SplitsIntoBatches(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		embedHandler(t)(w, r)
	}))
	defer srv.Close()

	svc := newTestService(srv, 2)

	texts := []string{"a", "b", "c", "d", "e"}
	embeddings, err := svc.EmbedBatch(context.Background(), texts)
	require.NoError(t, err)
	assert.Len(t, embeddings, 5)
	assert.Equal(t, int32(3), calls.Load()) // 2 + 2 + 1
}

func TestEmbedBatch_EmptyInput(t *testing.T) {
	svc := NewEmbeddingService(Config{BaseURL: "http://unreachable.invalid"})

	embeddings, err := svc.EmbedBatch(context.Background(), nil)
	require.NoError(t, err)
	assert.Nil(t, embeddings)
}

func TestEmbedBatch_RetriesTransientFailure(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			http.Error(w, "model is loading", http.StatusInternalServerError)
			return
		}
		embedHandler(t)(w, r)
	}))
	defer srv.Close()

	svc := NewEmbeddingService(Config{
		BaseURL:           srv.URL,
		Model:             "test-model",
		BatchSize:         32,
		RequestsPerSecond: 1000,
		Retry:             retry.Policy{MaxAttempts: 2, BaseDelay: time.Millisecond},
	})

	embeddings, err := svc.EmbedBatch(context.Background(), []string{"alpha"})
	require.NoError(t, err)
	assert.Len(t, embeddings, 1)
	assert.Equal(t, int32(2), calls.Load())
}

func TestEmbedBatch_ExhaustedRetriesFailWholeCall(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "out of memory", http.StatusInternalServerError)
	}))
	defer srv.Close()

	svc := newTestService(srv, 32)

	_, err := svc.EmbedBatch(context.Background(), []string{"alpha"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "status 500")
}

func TestEmbedBatch_CountMismatch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// One vector for two inputs.
		require.NoError(t, json.NewEncoder(w).Encode(embedResponse{
			Embeddings: [][]float32{{1, 2, 3}},
		}))
	}))
	defer srv.Close()

	svc := newTestService(srv, 32)

	_, err := svc.EmbedBatch(context.Background(), []string{"alpha", "beta"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "got 1 vectors for 2 texts")
}

func TestPing(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/api/tags", r.URL.Path)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	svc := newTestService(srv, 32)
	assert.NoError(t, svc.Ping(context.Background()))
}

func TestPing_ServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "not ready", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	svc := newTestService(srv, 32)

	err := svc.Ping(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "status 503")
}
