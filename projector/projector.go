// Package projector converts a question into a multimodal query vector.
//
// Text-only questions cannot be embedded by the image+text encoder
// directly, so the question is rendered onto a synthetic raster image,
// stored under its content hash, and that stored artifact is embedded.
// The hash keying makes projection idempotent: concurrent callers with
// the same question converge on one stored artifact.
package projector

import (
	"context"
	// MD5 is used for content addressing, not security. Keys stay
	// compatible with artifacts named by earlier corpus tooling.
	"crypto/md5" //nolint:gosec
	"encoding/hex"
	"fmt"
	"log/slog"
	"strings"

	"github.com/c360studio/pagelens/store"
)

// queryPrefix namespaces query artifacts inside the shared bucket.
const queryPrefix = "queries/"

// Encoder requests embeddings for stored artifacts.
type Encoder interface {
	Embed(ctx context.Context, artifactRef string) ([]float64, error)
}

// Projector turns question text into an embedding vector via a stored
// raster artifact.
type Projector struct {
	store   store.ObjectStore
	encoder Encoder
	logger  *slog.Logger
}

// Option configures a Projector.
type Option func(*Projector)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(p *Projector) {
		p.logger = logger
	}
}

// New creates a Projector.
func New(objects store.ObjectStore, enc Encoder, opts ...Option) *Projector {
	p := &Projector{
		store:   objects,
		encoder: enc,
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// ArtifactKey returns the store key for a question's rendered raster:
// queries/<md5-of-normalized-question>.png.
func ArtifactKey(question string) string {
	normalized := strings.ToLower(strings.TrimSpace(question))
	sum := md5.Sum([]byte(normalized)) //nolint:gosec
	return queryPrefix + hex.EncodeToString(sum[:]) + ".png"
}

// Project renders the question, stores the raster if absent, and returns
// the multimodal embedding of the stored artifact.
//
// The store write is put-if-absent: re-projecting an identical question
// never creates a second artifact. Upload and encode failures propagate
// to the caller; retries are the caller's concern.
func (p *Projector) Project(ctx context.Context, question string) ([]float64, error) {
	key := ArtifactKey(question)

	exists, err := p.store.Exists(ctx, key)
	if err != nil {
		return nil, fmt.Errorf("check query artifact: %w", err)
	}

	if !exists {
		raster, err := renderQuestion(question)
		if err != nil {
			return nil, fmt.Errorf("render query: %w", err)
		}
		if err := p.store.Put(ctx, key, raster); err != nil {
			return nil, fmt.Errorf("store query artifact: %w", err)
		}
		p.logger.Debug("Stored query artifact", "key", key, "bytes", len(raster))
	}

	embedding, err := p.encoder.Embed(ctx, key)
	if err != nil {
		return nil, fmt.Errorf("embed query artifact: %w", err)
	}

	return embedding, nil
}
