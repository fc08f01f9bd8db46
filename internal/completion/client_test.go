package completion

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/costoptimizer/backend/internal/config"
)

func newTestClient(url, key string) *Client {
	return NewClient(config.CompletionConfig{
		APIKey:      key,
		BaseURL:     url + "/",
		Model:       "gpt-3.5-turbo",
		MaxTokens:   500,
		Temperature: 0.7,
		Timeout:     5 * time.Second,
	})
}

func TestComplete(t *testing.T) {
	var got chatRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer sk-test", r.Header.Get("Authorization"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"choices":[{"message":{"role":"assistant","content":"1. Buy reserved instances: save money"}}]}`))
	}))
	defer srv.Close()

	text, err := newTestClient(srv.URL, "sk-test").Complete(context.Background(), "be helpful", "costs")
	require.NoError(t, err)

	assert.Equal(t, "1. Buy reserved instances: save money", text)
	assert.Equal(t, "gpt-3.5-turbo", got.Model)
	assert.Equal(t, 500, got.MaxTokens)
	require.Len(t, got.Messages, 2)
	assert.Equal(t, Message{Role: "system", Content: "be helpful"}, got.Messages[0])
	assert.Equal(t, Message{Role: "user", Content: "costs"}, got.Messages[1])
}

func TestComplete_NotConfigured(t *testing.T) {
	c := newTestClient("http://127.0.0.1:1", "")
	assert.False(t, c.Configured())

	_, err := c.Complete(context.Background(), "s", "p")
	assert.ErrorIs(t, err, ErrNotConfigured)
}

func TestComplete_ErrorStatus(t *testing.T) {
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusTooManyRequests)
		w.Write([]byte(`{"error":{"message":"Rate limit reached"}}`))
	}))
	defer srv.Close()

	_, err := newTestClient(srv.URL, "sk-test").Complete(context.Background(), "s", "p")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Rate limit reached")
	assert.Equal(t, 1, calls)
}

func TestComplete_NoChoices(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"choices":[]}`))
	}))
	defer srv.Close()

	_, err := newTestClient(srv.URL, "sk-test").Complete(context.Background(), "s", "p")
	assert.Error(t, err)
}
