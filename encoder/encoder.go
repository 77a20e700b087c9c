// Package encoder provides the client for the external multimodal
// embedding service: a stored-artifact reference in, a fixed-dimension
// vector out.
package encoder

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"
)

// maxResponseSize bounds the embedding response body.
const maxResponseSize = 16 * 1024 * 1024

// Config holds encoder service settings.
type Config struct {
	// URL is the embedding service endpoint.
	URL string `yaml:"url"`

	// Model is the multimodal embedding model identifier.
	Model string `yaml:"model"`

	// Timeout bounds a single embed call.
	Timeout time.Duration `yaml:"timeout"`
}

// DefaultConfig returns encoder defaults.
func DefaultConfig() Config {
	return Config{
		Model:   "voyage-multimodal-3",
		Timeout: 60 * time.Second,
	}
}

// Client calls the multimodal embedding encoder.
type Client struct {
	config     Config
	httpClient *http.Client
	logger     *slog.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(c *http.Client) Option {
	return func(client *Client) {
		client.httpClient = c
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(client *Client) {
		client.logger = logger
	}
}

// NewClient creates an encoder client.
func NewClient(cfg Config, opts ...Option) *Client {
	if cfg.Model == "" {
		cfg.Model = DefaultConfig().Model
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultConfig().Timeout
	}

	c := &Client{
		config:     cfg,
		httpClient: &http.Client{Timeout: cfg.Timeout},
		logger:     slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// embedRequest is the encoder wire format.
type embedRequest struct {
	Model string `json:"model"`
	Input string `json:"input"` // stored-artifact reference
}

type embedResponse struct {
	Embedding []float64 `json:"embedding"`
}

// Embed returns the embedding vector for a stored image artifact.
func (c *Client) Embed(ctx context.Context, artifactRef string) ([]float64, error) {
	if c.config.URL == "" {
		return nil, fmt.Errorf("encoder URL not configured")
	}
	if artifactRef == "" {
		return nil, fmt.Errorf("artifact reference is required")
	}

	body, err := json.Marshal(embedRequest{
		Model: c.config.Model,
		Input: artifactRef,
	})
	if err != nil {
		return nil, fmt.Errorf("marshal embed request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.config.URL, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("execute embed request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return nil, fmt.Errorf("read embed response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		preview := string(respBody)
		if len(preview) > 200 {
			preview = preview[:200] + "..."
		}
		return nil, fmt.Errorf("encoder error (status %d): %s", resp.StatusCode, preview)
	}

	var parsed embedResponse
	if err := json.Unmarshal(respBody, &parsed); err != nil {
		return nil, fmt.Errorf("decode embed response: %w", err)
	}
	if len(parsed.Embedding) == 0 {
		return nil, fmt.Errorf("encoder returned empty embedding for %s", artifactRef)
	}

	c.logger.Debug("Embedded artifact",
		"ref", artifactRef,
		"dimensions", len(parsed.Embedding))

	return parsed.Embedding, nil
}
