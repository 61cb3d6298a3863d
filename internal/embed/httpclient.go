package embed

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/ShankarKakumani/eywa/internal/errcodes"
)

// DefaultServerTimeout is the per-request timeout against the model
// server. Forward passes are not cancellable mid-pass (spec.md §5), so
// this budgets for a full batch rather than a single item.
const DefaultServerTimeout = 60 * time.Second

// HTTPEmbedder talks to a local, Ollama-compatible model server's
// /api/embeddings endpoint. Model-file downloading itself is out of scope
// (spec.md §1); this client only ever calls an already-running server.
type HTTPEmbedder struct {
	client    *http.Client
	baseURL   string
	modelName string
	dims      int
	retry     errcodes.RetryConfig

	mu     sync.RWMutex
	closed bool
}

var _ Embedder = (*HTTPEmbedder)(nil)

// NewHTTPEmbedder builds an embedder client. dims must match the
// configured embedding model's recognized dimensionality (spec.md §6).
// Requests against the model server retry with exponential backoff
// (spec.md §7 "transient storage errors") on network failures and 5xx
// responses; 4xx responses and response-parsing failures are not
// transient and are not retried.
func NewHTTPEmbedder(baseURL, modelName string, dims int) *HTTPEmbedder {
	return &HTTPEmbedder{
		client:    &http.Client{Timeout: DefaultServerTimeout},
		baseURL:   baseURL,
		modelName: modelName,
		dims:      dims,
		retry:     errcodes.DefaultRetryConfig(),
	}
}

type embedRequest struct {
	Model string `json:"model"`
	Input string `json:"input"`
}

type embedResponse struct {
	Embedding []float32 `json:"embedding"`
}

func (e *HTTPEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	e.mu.RLock()
	closed := e.closed
	e.mu.RUnlock()
	if closed {
		return nil, errcodes.New(errcodes.ErrCodeModelUnavailable, "embedder is closed", nil)
	}

	truncated := truncateTokens(text, MaxTokens)
	reqBody, err := json.Marshal(embedRequest{Model: e.modelName, Input: truncated})
	if err != nil {
		return nil, errTokenization(err)
	}

	url := fmt.Sprintf("%s/api/embeddings", e.baseURL)

	var body []byte
	var statusCode int
	err = errcodes.WithRetry(ctx, e.retry, func() error {
		httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(reqBody))
		if err != nil {
			return errcodes.ModelError("building embed request", err)
		}
		httpReq.Header.Set("Content-Type", "application/json")

		resp, err := e.client.Do(httpReq)
		if err != nil {
			return errcodes.New(errcodes.ErrCodeModelTimeout, "embedding request failed", err)
		}
		defer resp.Body.Close()

		b, err := io.ReadAll(resp.Body)
		if err != nil {
			return errcodes.ModelError("reading embed response", err)
		}
		if resp.StatusCode >= http.StatusInternalServerError {
			return errcodes.New(errcodes.ErrCodeModelTimeout,
				fmt.Sprintf("model server returned %d: %s", resp.StatusCode, string(b)), nil)
		}

		body, statusCode = b, resp.StatusCode
		return nil
	})
	if err != nil {
		return nil, err
	}
	if statusCode != http.StatusOK {
		return nil, errcodes.ModelError(fmt.Sprintf("model server returned %d: %s", statusCode, string(body)), nil)
	}

	var parsed embedResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, errTokenization(err)
	}
	if len(parsed.Embedding) != e.dims {
		return nil, errDimensionMismatch(e.dims, len(parsed.Embedding))
	}

	return normalizeVector(parsed.Embedding), nil
}

func (e *HTTPEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return [][]float32{}, nil
	}
	results := make([][]float32, len(texts))
	for i, text := range texts {
		vec, err := e.Embed(ctx, text)
		if err != nil {
			return nil, err
		}
		results[i] = vec
	}
	return results, nil
}

func (e *HTTPEmbedder) Dimensions() int { return e.dims }

func (e *HTTPEmbedder) ModelName() string { return e.modelName }

func (e *HTTPEmbedder) Available(ctx context.Context) bool {
	e.mu.RLock()
	closed := e.closed
	e.mu.RUnlock()
	if closed {
		return false
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, e.baseURL+"/api/tags", nil)
	if err != nil {
		return false
	}
	resp, err := e.client.Do(req)
	if err != nil {
		return false
	}
	defer resp.Body.Close()
	return resp.StatusCode == http.StatusOK
}

func (e *HTTPEmbedder) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.closed = true
	return nil
}
