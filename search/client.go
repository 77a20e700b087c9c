// Package search provides the fusion-query client for the external
// vector/lexical index. One request carries four parallel signal
// channels; the index resolves channel fusion itself. This client only
// shapes the request and normalizes the enveloped response.
package search

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/c360studio/pagelens/retrieval"
)

// maxResults caps how many candidates one query may return.
const maxResults = 1000

// maxResponseSize bounds the search response body.
const maxResponseSize = 64 * 1024 * 1024

// Config holds search index settings.
type Config struct {
	// URL is the index query endpoint.
	URL string `yaml:"url"`

	// Timeout bounds a single search call.
	Timeout time.Duration `yaml:"timeout"`
}

// DefaultConfig returns search defaults.
func DefaultConfig() Config {
	return Config{
		Timeout: 30 * time.Second,
	}
}

// Client issues fusion queries against the search index.
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

// NewClient creates a search client.
func NewClient(cfg Config, opts ...Option) *Client {
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

// channelEntry is one signal in a multi-channel query: either a vector
// or a text similarity probe.
type channelEntry struct {
	Vector []float64 `json:"vector,omitempty"`
	Text   string    `json:"text,omitempty"`
}

// fusionQuery is the multi-channel query envelope the index accepts.
type fusionQuery struct {
	MultiIndexQuery map[string][]channelEntry `json:"multi_index_query"`
	Columns         []string                  `json:"columns"`
	Limit           int                       `json:"limit"`
}

// Search issues one fused query: image-vector similarity on the projected
// embedding plus three text channels keyed on the literal question. The
// result payload may arrive wrapped under "results" or "data", or as a
// bare list; all three shapes are accepted.
func (c *Client) Search(ctx context.Context, question string, embedding []float64) ([]retrieval.Chunk, error) {
	if c.config.URL == "" {
		return nil, fmt.Errorf("search URL not configured")
	}

	query := fusionQuery{
		MultiIndexQuery: map[string][]channelEntry{
			"image_vector":   {{Vector: embedding}},
			"enriched_chunk": {{Text: question}},
			"pdf_text":       {{Text: question}},
			"raw_chunk_text": {{Text: question}},
		},
		Columns: []string{
			"ENRICHED_CHUNK",
			"RAW_CHUNK_TEXT",
			"ORIGINAL_FILE_NAME",
			"IMAGE_FILE_NAME",
			"PAGE_NUMBER",
		},
		Limit: maxResults,
	}

	body, err := json.Marshal(query)
	if err != nil {
		return nil, fmt.Errorf("marshal query: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.config.URL, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("execute search: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return nil, fmt.Errorf("read search response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		preview := string(respBody)
		if len(preview) > 200 {
			preview = preview[:200] + "..."
		}
		return nil, fmt.Errorf("search error (status %d): %s", resp.StatusCode, preview)
	}

	chunks, err := normalizeResults(respBody)
	if err != nil {
		return nil, err
	}

	c.logger.Debug("Search completed",
		"question_len", len(question),
		"results", len(chunks))

	return chunks, nil
}

// normalizeResults unwraps the index's enveloped result payload.
func normalizeResults(body []byte) ([]retrieval.Chunk, error) {
	// Bare list first.
	var chunks []retrieval.Chunk
	if err := json.Unmarshal(body, &chunks); err == nil {
		return chunks, nil
	}

	var envelope struct {
		Results []retrieval.Chunk `json:"results"`
		Data    []retrieval.Chunk `json:"data"`
	}
	if err := json.Unmarshal(body, &envelope); err != nil {
		return nil, fmt.Errorf("malformed search response: %w", err)
	}

	if envelope.Results != nil {
		return envelope.Results, nil
	}
	return envelope.Data, nil
}
