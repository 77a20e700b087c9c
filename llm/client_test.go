package llm_test

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

	"github.com/c360studio/pagelens/llm"
	_ "github.com/c360studio/pagelens/llm/providers" // Register providers
	"github.com/c360studio/pagelens/model"
)

func openAISuccess(content string) map[string]any {
	return map[string]any{
		"id":    "chatcmpl-123",
		"model": "test-model",
		"choices": []map[string]any{
			{
				"index": 0,
				"message": map[string]string{
					"role":    "assistant",
					"content": content,
				},
				"finish_reason": "stop",
			},
		},
		"usage": map[string]int{
			"prompt_tokens":     10,
			"completion_tokens": 8,
			"total_tokens":      18,
		},
	}
}

func testRegistry(url string, vision bool) *model.Registry {
	return model.NewRegistry(
		map[model.Capability]*model.CapabilityConfig{
			model.CapabilityFast: {
				Description: "Test capability",
				Preferred:   []string{"test-model"},
			},
		},
		map[string]*model.EndpointConfig{
			"test-model": {
				Provider: "ollama",
				URL:      url,
				Model:    "test-model",
				Vision:   vision,
			},
		},
	)
}

func fastRetry() llm.RetryConfig {
	return llm.RetryConfig{
		MaxAttempts:       3,
		BackoffBase:       time.Millisecond,
		BackoffMultiplier: 2.0,
		MaxBackoff:        5 * time.Millisecond,
	}
}

func TestClient_Complete_Success(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "POST", r.Method)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(openAISuccess("Hello! How can I help you?"))
	}))
	defer server.Close()

	client := llm.NewClient(testRegistry(server.URL, false))

	resp, err := client.Complete(context.Background(), llm.Request{
		Capability: "fast",
		Messages: []llm.Message{
			{Role: "user", Content: "Hello"},
		},
	})

	require.NoError(t, err)
	assert.Equal(t, "Hello! How can I help you?", resp.Content)
	assert.Equal(t, "test-model", resp.Model)
	assert.Equal(t, 18, resp.Usage.TotalTokens)
	assert.Equal(t, "stop", resp.FinishReason)
	assert.NotEmpty(t, resp.RequestID)
}

func TestClient_Complete_RetryOnTransientError(t *testing.T) {
	var attempts atomic.Int32

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if attempts.Add(1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			w.Write([]byte("Service temporarily unavailable"))
			return
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(openAISuccess("Success after retries"))
	}))
	defer server.Close()

	client := llm.NewClient(testRegistry(server.URL, false), llm.WithRetryConfig(fastRetry()))

	resp, err := client.Complete(context.Background(), llm.Request{
		Capability: "fast",
		Messages:   []llm.Message{{Role: "user", Content: "Hello"}},
	})

	require.NoError(t, err)
	assert.Equal(t, "Success after retries", resp.Content)
	assert.Equal(t, int32(3), attempts.Load())
}

func TestClient_Complete_NoRetryOnFatalError(t *testing.T) {
	var attempts atomic.Int32

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts.Add(1)
		w.WriteHeader(http.StatusUnauthorized)
		w.Write([]byte("Invalid API key"))
	}))
	defer server.Close()

	client := llm.NewClient(testRegistry(server.URL, false), llm.WithRetryConfig(fastRetry()))

	_, err := client.Complete(context.Background(), llm.Request{
		Capability: "fast",
		Messages:   []llm.Message{{Role: "user", Content: "Hello"}},
	})

	require.Error(t, err)
	assert.True(t, llm.IsFatal(err))
	assert.Equal(t, int32(1), attempts.Load())
}

func TestClient_Complete_Fallback(t *testing.T) {
	primary := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer primary.Close()

	fallback := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(openAISuccess("fallback answered"))
	}))
	defer fallback.Close()

	registry := model.NewRegistry(
		map[model.Capability]*model.CapabilityConfig{
			model.CapabilityFast: {
				Preferred: []string{"primary-model"},
				Fallback:  []string{"fallback-model"},
			},
		},
		map[string]*model.EndpointConfig{
			"primary-model":  {Provider: "ollama", URL: primary.URL, Model: "primary-model"},
			"fallback-model": {Provider: "ollama", URL: fallback.URL, Model: "fallback-model"},
		},
	)

	client := llm.NewClient(registry, llm.WithRetryConfig(fastRetry()))

	resp, err := client.Complete(context.Background(), llm.Request{
		Capability: "fast",
		Messages:   []llm.Message{{Role: "user", Content: "Hello"}},
	})

	require.NoError(t, err)
	assert.Equal(t, "fallback answered", resp.Content)
}

func TestClient_Complete_SkipsVisionlessEndpointForImages(t *testing.T) {
	var called atomic.Bool
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called.Store(true)
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(openAISuccess("should not be reached"))
	}))
	defer server.Close()

	client := llm.NewClient(testRegistry(server.URL, false), llm.WithRetryConfig(fastRetry()))

	_, err := client.Complete(context.Background(), llm.Request{
		Capability: "fast",
		Messages: []llm.Message{
			{Role: "user", Content: "What does this page show?", ImageURL: "https://example.com/p.png"},
		},
	})

	require.Error(t, err)
	assert.False(t, called.Load())
}

func TestClient_Complete_ImageReachesVisionEndpoint(t *testing.T) {
	var captured map[string]any
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&captured))
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(openAISuccess("a bar chart"))
	}))
	defer server.Close()

	client := llm.NewClient(testRegistry(server.URL, true))

	resp, err := client.Complete(context.Background(), llm.Request{
		Capability: "fast",
		Messages: []llm.Message{
			{Role: "user", Content: "What does this page show?", ImageURL: "https://example.com/p.png"},
		},
	})

	require.NoError(t, err)
	assert.Equal(t, "a bar chart", resp.Content)

	// The image must be encoded as an image_url content part.
	raw, err := json.Marshal(captured)
	require.NoError(t, err)
	assert.Contains(t, string(raw), "image_url")
	assert.Contains(t, string(raw), "https://example.com/p.png")
}

func TestClient_Complete_ValidationErrors(t *testing.T) {
	client := llm.NewClient(model.NewDefaultRegistry())

	_, err := client.Complete(context.Background(), llm.Request{
		Messages: []llm.Message{{Role: "user", Content: "hi"}},
	})
	assert.Error(t, err)

	_, err = client.Complete(context.Background(), llm.Request{Capability: "fast"})
	assert.Error(t, err)
}
