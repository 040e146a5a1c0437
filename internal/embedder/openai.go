package embedder

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"semidx/internal/ir"
	"semidx/internal/tokenizer"
)

const (
	ProviderOpenAI = "openai"
	ProviderLocal  = "local"

	DefaultModel     = "text-embedding-3-small"
	DefaultDimension = 1536
	defaultAPIBase   = "https://api.openai.com/v1"
)

// OpenAI embeds text via an OpenAI-compatible /embeddings endpoint.
type OpenAI struct {
	apiKey     string
	apiBase    string
	model      string
	dimension  int
	tok        tokenizer.Tokenizer
	retry      RetryConfig
	httpClient *http.Client
}

// OpenAIConfig configures the remote provider. Zero values fall back to
// environment variables and defaults.
type OpenAIConfig struct {
	APIKey    string
	APIBase   string
	Model     string
	Dimension int
	Tokenizer tokenizer.Tokenizer
	Retry     *RetryConfig
}

// NewOpenAI creates the remote embedding client. The tokenizer is used
// to truncate over-budget documents before sending.
func NewOpenAI(cfg OpenAIConfig) (*OpenAI, error) {
	apiKey := cfg.APIKey
	if apiKey == "" {
		apiKey = os.Getenv(EnvAPIKey)
	}
	if apiKey == "" {
		return nil, fmt.Errorf("%w: %s not set", ErrNoProvider, EnvAPIKey)
	}

	apiBase := cfg.APIBase
	if apiBase == "" {
		apiBase = os.Getenv(EnvAPIBase)
	}
	if apiBase == "" {
		apiBase = defaultAPIBase
	}

	model := cfg.Model
	if model == "" {
		model = DefaultModel
	}
	dimension := cfg.Dimension
	if dimension == 0 {
		dimension = DefaultDimension
	}
	retry := DefaultRetryConfig()
	if cfg.Retry != nil {
		retry = *cfg.Retry
	}

	return &OpenAI{
		apiKey:    apiKey,
		apiBase:   apiBase,
		model:     model,
		dimension: dimension,
		tok:       cfg.Tokenizer,
		retry:     retry,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}, nil
}

// Embed truncates text to the token budget, then calls the provider
// with bounded exponential-backoff retry on transient failures.
func (o *OpenAI) Embed(ctx context.Context, text string) (ir.Vector, error) {
	text = o.truncate(text)
	return retryWithBackoff(ctx, o.retry, func() (ir.Vector, error) {
		return o.callAPI(ctx, text)
	})
}

// truncate cuts text to MaxTokens-1 tokens when it is at or over the
// budget. The token slice is decoded back to text rather than sending a
// byte prefix: provider tokenization of an over-long raw buffer has
// produced degenerate NaN vectors before.
func (o *OpenAI) truncate(text string) string {
	if o.tok == nil || o.tok.Count(text) < MaxTokens {
		return text
	}
	tokens := o.tok.Encode(text)
	if len(tokens) > MaxTokens-1 {
		tokens = tokens[:MaxTokens-1]
	}
	return o.tok.Decode(tokens)
}

func (o *OpenAI) callAPI(ctx context.Context, text string) (ir.Vector, error) {
	reqBody := map[string]interface{}{
		"input": []string{text},
		"model": o.model,
	}
	body, err := json.Marshal(reqBody)
	if err != nil {
		return nil, &Error{Kind: Permanent, Err: fmt.Errorf("marshal request: %w", err)}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, o.apiBase+"/embeddings", bytes.NewReader(body))
	if err != nil {
		return nil, &Error{Kind: Permanent, Err: fmt.Errorf("create request: %w", err)}
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+o.apiKey)

	resp, err := o.httpClient.Do(req)
	if err != nil {
		return nil, transportError(fmt.Errorf("api call: %w", err))
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		bodyBytes, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, statusError(resp.StatusCode, string(bodyBytes))
	}

	var apiResp struct {
		Data []struct {
			Embedding []float32 `json:"embedding"`
			Index     int       `json:"index"`
		} `json:"data"`
		Model string `json:"model"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&apiResp); err != nil {
		return nil, transportError(fmt.Errorf("decode response: %w", err))
	}
	if len(apiResp.Data) == 0 {
		return nil, &Error{Kind: Permanent, Message: "no embedding returned"}
	}

	return ir.Vector(apiResp.Data[0].Embedding), nil
}

func (o *OpenAI) Dimension() int { return o.dimension }
func (o *OpenAI) Model() string  { return o.model }

func (o *OpenAI) Close() error {
	o.httpClient.CloseIdleConnections()
	return nil
}
