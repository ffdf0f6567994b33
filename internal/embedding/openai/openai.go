package openai

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"strconv"
	"time"

	"github.com/cenkalti/backoff/v5"

	"docrag/internal/domain"
)

var _ domain.Embedder = (*Client)(nil)

// Default configuration values.
const (
	DefaultBaseURL = "https://api.openai.com/v1"
	DefaultModel   = "text-embedding-3-small"
)

var modelDimensions = map[string]int{
	"text-embedding-3-small": 1536,
	"text-embedding-3-large": 3072,
	"text-embedding-ada-002": 1536,
}

// Client is an OpenAI-compatible embeddings client implementing the Embedder interface.
type Client struct {
	baseURL        string
	apiKey         string
	model          string
	dimension      int
	client         *http.Client
	maxRetries     int
	initialBackoff time.Duration
}

// Config configures the OpenAI-compatible embeddings client.
type Config struct {
	BaseURL   string
	APIKeyEnv string
	Model     string
	// Dimension overrides the model's native size. Required for models
	// missing from the built-in table.
	Dimension      int
	Timeout        time.Duration
	MaxRetries     int
	InitialBackoff time.Duration
}

// NewClient creates a new embeddings client using the provided configuration.
func NewClient(cfg Config) (*Client, error) {
	key := os.Getenv(cfg.APIKeyEnv)
	if key == "" {
		return nil, fmt.Errorf("%w: missing API key in env %s", domain.ErrInvalidConfig, cfg.APIKeyEnv)
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}
	dim := cfg.Dimension
	if dim == 0 {
		var ok bool
		if dim, ok = modelDimensions[cfg.Model]; !ok {
			return nil, fmt.Errorf("%w: unknown dimension for model %s", domain.ErrInvalidConfig, cfg.Model)
		}
	}
	t := cfg.Timeout
	if t == 0 {
		t = 30 * time.Second
	}
	if cfg.MaxRetries == 0 {
		cfg.MaxRetries = 5
	}
	if cfg.InitialBackoff == 0 {
		cfg.InitialBackoff = 200 * time.Millisecond
	}
	return &Client{
		baseURL:        cfg.BaseURL,
		apiKey:         key,
		model:          cfg.Model,
		dimension:      dim,
		client:         &http.Client{Timeout: t},
		maxRetries:     cfg.MaxRetries,
		initialBackoff: cfg.InitialBackoff,
	}, nil
}

// Name returns the identifier of this embedder implementation.
func (c *Client) Name() string { return "openai:" + c.model }

// Dimension returns the dimensionality of the produced embedding vectors.
func (c *Client) Dimension() int { return c.dimension }

type embeddingRequest struct {
	Model      string   `json:"model"`
	Input      []string `json:"input"`
	Dimensions int      `json:"dimensions,omitempty"`
}

type embeddingResponse struct {
	Data []struct {
		Embedding []float32 `json:"embedding"`
		Index     int       `json:"index"`
	} `json:"data"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

// EmbedBatch embeds texts in one request. Rate limits and 5xx responses are
// retried with exponential backoff; re-sending a batch has no side effects.
func (c *Client) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}
	body := embeddingRequest{Model: c.model, Input: texts}
	if _, native := modelDimensions[c.model]; native && c.model != "text-embedding-ada-002" {
		body.Dimensions = c.dimension
	}
	data, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	b := backoff.NewExponentialBackOff()
	b.InitialInterval = c.initialBackoff
	b.MaxInterval = 5 * time.Second
	out, err := backoff.Retry(ctx, func() ([][]float32, error) {
		return c.do(ctx, data, len(texts))
	}, backoff.WithBackOff(b), backoff.WithMaxTries(uint(c.maxRetries+1)))
	if err != nil {
		return nil, fmt.Errorf("openai embeddings: %w", err)
	}
	return out, nil
}

func (c *Client) do(ctx context.Context, data []byte, n int) ([][]float32, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/embeddings", bytes.NewReader(data))
	if err != nil {
		return nil, backoff.Permanent(err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.client.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, backoff.Permanent(err)
		}
		return nil, err
	}
	payload, err := io.ReadAll(resp.Body)
	_ = resp.Body.Close()
	if err != nil {
		return nil, err
	}

	if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500 {
		statusErr := fmt.Errorf("status %s", resp.Status)
		if secs, err := strconv.Atoi(resp.Header.Get("Retry-After")); err == nil && secs > 0 {
			return nil, errors.Join(statusErr, backoff.RetryAfter(secs))
		}
		return nil, statusErr
	}

	var out embeddingResponse
	if err := json.Unmarshal(payload, &out); err != nil {
		return nil, backoff.Permanent(fmt.Errorf("decode response (status %s): %w", resp.Status, err))
	}
	if out.Error != nil {
		return nil, backoff.Permanent(fmt.Errorf("status %s: %s", resp.Status, out.Error.Message))
	}
	if resp.StatusCode >= 300 {
		return nil, backoff.Permanent(fmt.Errorf("status %s", resp.Status))
	}
	if len(out.Data) != n {
		return nil, backoff.Permanent(fmt.Errorf("got %d embeddings for %d inputs", len(out.Data), n))
	}

	vectors := make([][]float32, n)
	for _, d := range out.Data {
		if d.Index < 0 || d.Index >= n {
			return nil, backoff.Permanent(fmt.Errorf("embedding index %d out of range", d.Index))
		}
		if len(d.Embedding) != c.dimension {
			return nil, backoff.Permanent(fmt.Errorf("%w: model returned %d, expected %d",
				domain.ErrDimensionMismatch, len(d.Embedding), c.dimension))
		}
		vectors[d.Index] = d.Embedding
	}
	return vectors, nil
}
