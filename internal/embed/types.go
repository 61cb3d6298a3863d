// Package embed implements the embedder: an Embedder interface, an
// HTTP client speaking to a local Ollama-compatible model server, a
// deterministic hash-based static fallback, and an LRU-caching wrapper.
package embed

import (
	"context"
	"math"

	"github.com/ShankarKakumani/eywa/internal/errcodes"
)

const (
	// DefaultBatchSize bounds how many texts go into one forward pass.
	DefaultBatchSize = 32
	// MaxTokens is the truncation length per spec.md §4.2.
	MaxTokens = 512
)

// Embedder loads a transformer encoder (remotely, via a model server) and
// exposes dimension(), embed(), and embed_batch() per spec.md §4.2.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)
	Dimensions() int
	ModelName() string
	Available(ctx context.Context) bool
	Close() error
}

// Tokenization and DimensionMismatch are the two named EmbedError failure
// modes from spec.md §4.2; both are surfaced as EngineError codes so
// callers can branch without string matching.
func errTokenization(cause error) error {
	return errcodes.New(errcodes.ErrCodeEmbeddingFailed, "tokenization failed", cause)
}

func errDimensionMismatch(expected, got int) error {
	return errcodes.New(errcodes.ErrCodeDimensionMismatch, "embedding dimension mismatch", nil).
		WithDetail("expected", itoa(expected)).
		WithDetail("got", itoa(got))
}

func itoa(n int) string {
	if n == 0 {
		return "0"
	}
	neg := n < 0
	if neg {
		n = -n
	}
	var buf [20]byte
	i := len(buf)
	for n > 0 {
		i--
		buf[i] = byte('0' + n%10)
		n /= 10
	}
	if neg {
		i--
		buf[i] = '-'
	}
	return string(buf[i:])
}

// normalizeVector L2-normalizes v in place semantics (returns a new slice),
// matching the mean-pool-then-normalize algorithm in spec.md §4.2.
func normalizeVector(v []float32) []float32 {
	var sumSquares float64
	for _, val := range v {
		sumSquares += float64(val) * float64(val)
	}
	magnitude := math.Sqrt(sumSquares)
	if magnitude == 0 {
		return v
	}
	normalized := make([]float32, len(v))
	for i, val := range v {
		normalized[i] = float32(float64(val) / magnitude)
	}
	return normalized
}

// truncateTokens enforces the ≤512 token cap by a cheap whitespace-token
// approximation — the HTTP model server performs the real tokenizer-aware
// truncation; this guards the static fallback and request-size sanity.
func truncateTokens(text string, maxTokens int) string {
	tokens := splitWhitespace(text)
	if len(tokens) <= maxTokens {
		return text
	}
	out := tokens[:maxTokens]
	joined := ""
	for i, t := range out {
		if i > 0 {
			joined += " "
		}
		joined += t
	}
	return joined
}

func splitWhitespace(s string) []string {
	var tokens []string
	start := -1
	for i, r := range s {
		if r == ' ' || r == '\n' || r == '\t' || r == '\r' {
			if start >= 0 {
				tokens = append(tokens, s[start:i])
				start = -1
			}
		} else if start < 0 {
			start = i
		}
	}
	if start >= 0 {
		tokens = append(tokens, s[start:])
	}
	return tokens
}
