package rerank

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

// DefaultCrossEncoderTimeout bounds a single rerank request against the
// model server, which may score tens of documents in one call.
const DefaultCrossEncoderTimeout = 30 * time.Second

// CrossEncoder reranks via a cross-encoder model server reachable over
// HTTP. It builds the joint "[CLS] query [SEP] doc [SEP]" encoding
// server-side; this client only ships the query/document pairs and reads
// back a sigmoid score per pair.
type CrossEncoder struct {
	client    *http.Client
	baseURL   string
	modelName string
	retry     errcodes.RetryConfig

	mu     sync.RWMutex
	closed bool
}

var _ Reranker = (*CrossEncoder)(nil)

// NewCrossEncoder builds a reranker client against the model server at
// baseURL using the named reranker model. Requests retry with exponential
// backoff (spec.md §7) on network failures and 5xx responses.
func NewCrossEncoder(baseURL, modelName string) *CrossEncoder {
	return &CrossEncoder{
		client:    &http.Client{Timeout: DefaultCrossEncoderTimeout},
		baseURL:   baseURL,
		modelName: modelName,
		retry:     errcodes.DefaultRetryConfig(),
	}
}

type rerankRequest struct {
	Query     string   `json:"query"`
	Documents []string `json:"documents"`
	Model     string   `json:"model,omitempty"`
	TopK      int      `json:"top_k,omitempty"`
}

type rerankResponseItem struct {
	Index    int     `json:"index"`
	Score    float64 `json:"score"`
	Document string  `json:"document"`
}

type rerankResponse struct {
	Results []rerankResponseItem `json:"results"`
}

func (c *CrossEncoder) Rerank(ctx context.Context, query string, documents []string, topK int) ([]Result, error) {
	c.mu.RLock()
	closed := c.closed
	c.mu.RUnlock()
	if closed {
		return nil, errcodes.New(errcodes.ErrCodeModelUnavailable, "reranker is closed", nil)
	}

	if len(documents) == 0 {
		return []Result{}, nil
	}

	reqBody := rerankRequest{Query: query, Documents: documents, Model: c.modelName}
	if topK > 0 {
		reqBody.TopK = topK
	}
	payload, err := json.Marshal(reqBody)
	if err != nil {
		return nil, errcodes.ModelError("marshaling rerank request", err)
	}

	url := fmt.Sprintf("%s/rerank", c.baseURL)

	var body []byte
	var statusCode int
	err = errcodes.WithRetry(ctx, c.retry, func() error {
		httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
		if err != nil {
			return errcodes.ModelError("building rerank request", err)
		}
		httpReq.Header.Set("Content-Type", "application/json")

		resp, err := c.client.Do(httpReq)
		if err != nil {
			return errcodes.New(errcodes.ErrCodeModelTimeout, "rerank request failed", err)
		}
		defer resp.Body.Close()

		b, err := io.ReadAll(resp.Body)
		if err != nil {
			return errcodes.ModelError("reading rerank response", err)
		}
		if resp.StatusCode >= http.StatusInternalServerError {
			return errcodes.New(errcodes.ErrCodeModelTimeout,
				fmt.Sprintf("reranker server returned %d: %s", resp.StatusCode, string(b)), nil)
		}

		body, statusCode = b, resp.StatusCode
		return nil
	})
	if err != nil {
		return nil, err
	}
	if statusCode != http.StatusOK {
		return nil, errcodes.ModelError(fmt.Sprintf("reranker server returned %d: %s", statusCode, string(body)), nil)
	}

	var parsed rerankResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, errcodes.ModelError("decoding rerank response", err)
	}

	results := make([]Result, len(parsed.Results))
	for i, r := range parsed.Results {
		results[i] = Result{Index: r.Index, Score: r.Score, Document: r.Document}
	}
	return rerankTopK(results, topK), nil
}

func (c *CrossEncoder) Available(ctx context.Context) bool {
	c.mu.RLock()
	closed := c.closed
	c.mu.RUnlock()
	if closed {
		return false
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/health", nil)
	if err != nil {
		return false
	}
	resp, err := c.client.Do(req)
	if err != nil {
		return false
	}
	defer resp.Body.Close()
	return resp.StatusCode == http.StatusOK
}

func (c *CrossEncoder) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	return nil
}
