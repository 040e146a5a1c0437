package embedder

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"semidx/internal/ir"
	"semidx/internal/tokenizer"
)

type embedRequest struct {
	Input []string `json:"input"`
	Model string   `json:"model"`
}

func embedResponse(vec []float32) map[string]interface{} {
	return map[string]interface{}{
		"data": []map[string]interface{}{
			{"embedding": vec, "index": 0},
		},
		"model": "test-model",
	}
}

func fastRetry() *RetryConfig {
	return &RetryConfig{
		MaxAttempts: 3,
		BaseDelay:   time.Millisecond,
		MaxDelay:    5 * time.Millisecond,
		Multiplier:  2.0,
	}
}

func newTestClient(t *testing.T, handler http.HandlerFunc) (*OpenAI, *httptest.Server) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	client, err := NewOpenAI(OpenAIConfig{
		APIKey:    "test-key",
		APIBase:   srv.URL,
		Tokenizer: tokenizer.Runes{},
		Retry:     fastRetry(),
	})
	require.NoError(t, err)
	return client, srv
}

func TestOpenAIEmbed(t *testing.T) {
	var got embedRequest
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/embeddings", r.URL.Path)
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		_ = json.NewEncoder(w).Encode(embedResponse([]float32{0.1, 0.2, 0.3}))
	})

	vec, err := client.Embed(context.Background(), "hello world")
	require.NoError(t, err)
	assert.Equal(t, ir.Vector{0.1, 0.2, 0.3}, vec)
	require.Len(t, got.Input, 1)
	assert.Equal(t, "hello world", got.Input[0])
}

func TestOpenAITruncatesOversizedInput(t *testing.T) {
	tok := tokenizer.Runes{}
	var got embedRequest
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		_ = json.NewEncoder(w).Encode(embedResponse([]float32{1}))
	})

	text := strings.Repeat("a", MaxTokens+100)
	_, err := client.Embed(context.Background(), text)
	require.NoError(t, err)

	require.Len(t, got.Input, 1)
	sent := got.Input[0]
	assert.LessOrEqual(t, tok.Count(sent), MaxTokens-1)
	assert.True(t, strings.HasPrefix(text, sent))
}

func TestOpenAIKeepsInputUnderBudget(t *testing.T) {
	var got embedRequest
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		_ = json.NewEncoder(w).Encode(embedResponse([]float32{1}))
	})

	text := strings.Repeat("b", MaxTokens-1)
	_, err := client.Embed(context.Background(), text)
	require.NoError(t, err)
	assert.Equal(t, text, got.Input[0])
}

func TestOpenAIRetriesTransientErrors(t *testing.T) {
	var calls atomic.Int32
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) <= 2 {
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		_ = json.NewEncoder(w).Encode(embedResponse([]float32{0.5}))
	})

	vec, err := client.Embed(context.Background(), "retry me")
	require.NoError(t, err)
	assert.Equal(t, ir.Vector{0.5}, vec)
	assert.Equal(t, int32(3), calls.Load())
}

func TestOpenAIDoesNotRetryPermanentErrors(t *testing.T) {
	var calls atomic.Int32
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"error":"bad input"}`))
	})

	_, err := client.Embed(context.Background(), "nope")
	require.Error(t, err)
	assert.Equal(t, int32(1), calls.Load())

	var ee *Error
	require.ErrorAs(t, err, &ee)
	assert.Equal(t, Permanent, ee.Kind)
	assert.Equal(t, http.StatusBadRequest, ee.Status)
}

func TestOpenAIGivesUpAfterMaxAttempts(t *testing.T) {
	var calls atomic.Int32
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusServiceUnavailable)
	})

	_, err := client.Embed(context.Background(), "always failing")
	require.Error(t, err)
	assert.Equal(t, int32(3), calls.Load())
	assert.Contains(t, err.Error(), "giving up after 3 attempts")
	assert.True(t, IsTransient(err))
}

func TestRetryRespectsContextCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	calls := 0
	_, err := retryWithBackoff(ctx, RetryConfig{
		MaxAttempts: 5,
		BaseDelay:   time.Hour,
		MaxDelay:    time.Hour,
		Multiplier:  2.0,
	}, func() (int, error) {
		calls++
		return 0, transportError(assert.AnError)
	})

	require.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, calls)
}

func TestErrorClassification(t *testing.T) {
	tests := []struct {
		status    int
		transient bool
	}{
		{http.StatusRequestTimeout, true},
		{http.StatusTooManyRequests, true},
		{http.StatusInternalServerError, true},
		{http.StatusBadGateway, true},
		{http.StatusBadRequest, false},
		{http.StatusUnauthorized, false},
		{http.StatusNotFound, false},
	}
	for _, tt := range tests {
		err := statusError(tt.status, "body")
		assert.Equal(t, tt.transient, IsTransient(err), "status %d", tt.status)
	}

	assert.True(t, IsTransient(transportError(assert.AnError)))
	assert.False(t, IsTransient(assert.AnError))
}

func TestHashDeterministic(t *testing.T) {
	assert.Equal(t, Hash("abc"), Hash("abc"))
	assert.NotEqual(t, Hash("abc"), Hash("abd"))
	assert.Len(t, Hash(""), 64)
}

func TestCacheCopiesOnGet(t *testing.T) {
	c := NewCache(10)
	c.Set("k", ir.Vector{1, 2, 3})

	vec, ok := c.Get("k")
	require.True(t, ok)
	vec[0] = 99

	again, ok := c.Get("k")
	require.True(t, ok)
	assert.Equal(t, ir.Vector{1, 2, 3}, again)
}

type countingClient struct {
	calls atomic.Int32
}

func (c *countingClient) Embed(_ context.Context, text string) (ir.Vector, error) {
	c.calls.Add(1)
	return ir.Vector{float32(len(text))}, nil
}
func (c *countingClient) Dimension() int { return 1 }
func (c *countingClient) Model() string  { return "counting" }
func (c *countingClient) Close() error   { return nil }

func TestCachedClientHitsLRU(t *testing.T) {
	inner := &countingClient{}
	client := WithCache(inner, NewCache(10), nil)

	ctx := context.Background()
	first, err := client.Embed(ctx, "cached text")
	require.NoError(t, err)
	second, err := client.Embed(ctx, "cached text")
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Equal(t, int32(1), inner.calls.Load())
}

func TestLocalDeterministic(t *testing.T) {
	l := NewLocal()
	ctx := context.Background()

	a, err := l.Embed(ctx, "same text")
	require.NoError(t, err)
	b, err := l.Embed(ctx, "same text")
	require.NoError(t, err)
	c, err := l.Embed(ctx, "other text")
	require.NoError(t, err)

	assert.Equal(t, a, b)
	assert.NotEqual(t, a, c)
	assert.Len(t, a, l.Dimension())

	var norm float64
	for _, v := range a {
		norm += float64(v) * float64(v)
	}
	assert.InDelta(t, 1.0, norm, 1e-4)
}
