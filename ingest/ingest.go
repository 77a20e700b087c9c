// Package ingest loads PDF corpora into the search index as per-page
// documents. The index enriches chunks and renders page images out of
// band; ingest only supplies the raw per-page text.
package ingest

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"path/filepath"
	"strings"
	"time"

	"github.com/bmatcuk/doublestar/v4"
	pdflib "github.com/ledongthuc/pdf"
)

// Config holds ingestion settings.
type Config struct {
	// IndexURL is the index document-ingest endpoint.
	IndexURL string `yaml:"index_url"`

	// Timeout bounds one page upload.
	Timeout time.Duration `yaml:"timeout"`
}

// PageDocument is one page of a source PDF as the index expects it.
type PageDocument struct {
	OriginalFileName string `json:"ORIGINAL_FILE_NAME"`
	PageNumber       int    `json:"PAGE_NUMBER"`
	RawText          string `json:"RAW_CHUNK_TEXT"`
}

// Ingester uploads per-page documents to the index.
type Ingester struct {
	config     Config
	httpClient *http.Client
	logger     *slog.Logger
}

// NewIngester creates an Ingester.
func NewIngester(cfg Config, logger *slog.Logger) *Ingester {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 60 * time.Second
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Ingester{
		config:     cfg,
		httpClient: &http.Client{Timeout: cfg.Timeout},
		logger:     logger,
	}
}

// Run globs for PDFs matching pattern (doublestar ** supported),
// extracts per-page text, and posts each non-empty page to the index.
// Returns the number of pages ingested. A single unreadable file is
// logged and skipped, not fatal.
func (i *Ingester) Run(ctx context.Context, pattern string) (int, error) {
	if i.config.IndexURL == "" {
		return 0, fmt.Errorf("ingest index_url is not configured")
	}

	absPattern, err := filepath.Abs(pattern)
	if err != nil {
		return 0, fmt.Errorf("resolve pattern: %w", err)
	}

	matches, err := doublestar.FilepathGlob(absPattern)
	if err != nil {
		return 0, fmt.Errorf("glob %q: %w", pattern, err)
	}

	total := 0
	for _, path := range matches {
		if !strings.EqualFold(filepath.Ext(path), ".pdf") {
			continue
		}
		n, err := i.ingestFile(ctx, path)
		if err != nil {
			if ctx.Err() != nil {
				return total, ctx.Err()
			}
			i.logger.Warn("Skipping file", "path", path, "error", err)
			continue
		}
		i.logger.Info("Ingested document", "path", path, "pages", n)
		total += n
	}

	return total, nil
}

// ingestFile extracts and uploads all pages of one PDF.
func (i *Ingester) ingestFile(ctx context.Context, path string) (int, error) {
	f, reader, err := pdflib.Open(path)
	if err != nil {
		return 0, fmt.Errorf("open pdf: %w", err)
	}
	defer f.Close()

	name := filepath.Base(path)
	ingested := 0
	numPages := reader.NumPage()
	for pageNum := 1; pageNum <= numPages; pageNum++ {
		page := reader.Page(pageNum)
		if page.V.IsNull() {
			continue
		}
		text, err := page.GetPlainText(nil)
		if err != nil {
			i.logger.Warn("Page extraction failed",
				"path", path, "page", pageNum, "error", err)
			continue
		}
		text = strings.TrimSpace(text)
		if text == "" {
			continue
		}

		doc := PageDocument{
			OriginalFileName: name,
			PageNumber:       pageNum,
			RawText:          text,
		}
		if err := i.post(ctx, doc); err != nil {
			return ingested, fmt.Errorf("page %d: %w", pageNum, err)
		}
		ingested++
	}

	return ingested, nil
}

func (i *Ingester) post(ctx context.Context, doc PageDocument) error {
	body, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("marshal page: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, i.config.IndexURL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := i.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("post page: %w", err)
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("index returned status %d", resp.StatusCode)
	}
	return nil
}
