package encoder_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/c360studio/pagelens/encoder"
)

func TestClient_Embed(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "voyage-multimodal-3", req["model"])
		assert.Equal(t, "queries/abc.png", req["input"])

		json.NewEncoder(w).Encode(map[string]any{"embedding": []float64{0.1, 0.2, 0.3}})
	}))
	defer server.Close()

	client := encoder.NewClient(encoder.Config{URL: server.URL})
	emb, err := client.Embed(context.Background(), "queries/abc.png")
	require.NoError(t, err)
	assert.Equal(t, []float64{0.1, 0.2, 0.3}, emb)
}

func TestClient_Embed_EmptyEmbedding(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{"embedding": []float64{}})
	}))
	defer server.Close()

	client := encoder.NewClient(encoder.Config{URL: server.URL})
	_, err := client.Embed(context.Background(), "queries/abc.png")
	assert.Error(t, err)
}

func TestClient_Embed_ErrorStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "model unavailable", http.StatusBadGateway)
	}))
	defer server.Close()

	client := encoder.NewClient(encoder.Config{URL: server.URL})
	_, err := client.Embed(context.Background(), "queries/abc.png")
	assert.Error(t, err)
}

func TestClient_Embed_Validation(t *testing.T) {
	client := encoder.NewClient(encoder.Config{})
	_, err := client.Embed(context.Background(), "ref")
	assert.Error(t, err)

	client = encoder.NewClient(encoder.Config{URL: "http://localhost:1"})
	_, err = client.Embed(context.Background(), "")
	assert.Error(t, err)
}
