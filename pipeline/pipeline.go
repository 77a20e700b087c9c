// Package pipeline orchestrates one question from projection through
// retrieval, selection, drafting, visual validation, and final
// synthesis. All state is request-scoped; a Pipeline is safe for
// concurrent use.
//
// Stage failures are recovered locally and degrade the answer rather
// than failing it. Answer returns a non-nil error only when the context
// is done before an answer could be produced.
package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/c360studio/pagelens/citation"
	"github.com/c360studio/pagelens/metric"
	"github.com/c360studio/pagelens/retrieval"
	"github.com/c360studio/pagelens/synthesis"
	"github.com/c360studio/pagelens/vision"
)

// NoRelevantContent is the fully degraded answer when retrieval yields
// nothing usable.
const NoRelevantContent = "I found no relevant content in the document corpus for this question."

// fallbackCitationLimit bounds how many ranked images feed fallback
// citations when the draft cites nothing.
const fallbackCitationLimit = 5

// Projector turns a question into a multimodal query embedding.
type Projector interface {
	Project(ctx context.Context, question string) ([]float64, error)
}

// Searcher issues the fused retrieval query.
type Searcher interface {
	Search(ctx context.Context, question string, embedding []float64) ([]retrieval.Chunk, error)
}

// Validator runs the per-image critique fan-out. maxImages <= 0 uses
// the validator's configured limit.
type Validator interface {
	ValidateAll(ctx context.Context, question string, chunks []retrieval.Chunk, draftAnswer string, maxImages int) []vision.CritiqueResult
}

// AskOptions carries per-request overrides. Zero values fall back to
// the configured defaults; overrides can tighten limits but never
// exceed the configured caps.
type AskOptions struct {
	// MaxChunks bounds the evidence set for this question.
	MaxChunks int

	// MaxImages bounds how many images are critiqued for this question.
	MaxImages int
}

// FinalAnswer is the result of answering one question.
type FinalAnswer struct {
	// Text is the final answer, always present, possibly degraded.
	Text string `json:"text"`

	// Elapsed is end-to-end processing time.
	Elapsed time.Duration `json:"elapsed_ns"`

	// SearchResults is the raw retrieval candidate count.
	SearchResults int `json:"search_results"`

	// EvidenceCount is the size of the selected evidence set.
	EvidenceCount int `json:"evidence_count"`

	// CitationCount is how many (document, page) citations back the answer.
	CitationCount int `json:"citation_count"`

	// CritiqueSuccesses is how many image critiques completed without error.
	CritiqueSuccesses int `json:"critique_successes"`
}

// Config holds pipeline-level settings.
type Config struct {
	// MaxChunks bounds the selected evidence set.
	MaxChunks int `yaml:"max_chunks"`

	// ConfidenceThreshold filters critiques before the final merge.
	ConfidenceThreshold float64 `yaml:"confidence_threshold"`
}

// DefaultConfig returns pipeline defaults.
func DefaultConfig() Config {
	return Config{
		MaxChunks:           10,
		ConfidenceThreshold: vision.DefaultConfidenceThreshold,
	}
}

// Pipeline wires the per-question stages together.
type Pipeline struct {
	projector   Projector
	searcher    Searcher
	selector    *retrieval.Selector
	drafter     *synthesis.Drafter
	validator   Validator
	synthesizer *synthesis.Synthesizer
	config      Config
	logger      *slog.Logger
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(p *Pipeline) {
		p.logger = logger
	}
}

// New creates a Pipeline.
func New(projector Projector, searcher Searcher, selector *retrieval.Selector, drafter *synthesis.Drafter, validator Validator, synthesizer *synthesis.Synthesizer, cfg Config, opts ...Option) *Pipeline {
	def := DefaultConfig()
	if cfg.MaxChunks <= 0 {
		cfg.MaxChunks = def.MaxChunks
	}
	if cfg.ConfidenceThreshold <= 0 {
		cfg.ConfidenceThreshold = def.ConfidenceThreshold
	}

	p := &Pipeline{
		projector:   projector,
		searcher:    searcher,
		selector:    selector,
		drafter:     drafter,
		validator:   validator,
		synthesizer: synthesizer,
		config:      cfg,
		logger:      slog.Default(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Answer runs the full pipeline for one question with the configured
// limits.
func (p *Pipeline) Answer(ctx context.Context, question string) (*FinalAnswer, error) {
	return p.AnswerWith(ctx, question, AskOptions{})
}

// AnswerWith runs the full pipeline for one question, applying any
// per-request overrides.
func (p *Pipeline) AnswerWith(ctx context.Context, question string, opts AskOptions) (*FinalAnswer, error) {
	start := time.Now()
	question = strings.TrimSpace(question)
	if question == "" {
		return nil, fmt.Errorf("empty question")
	}

	logger := p.logger.With("question_len", len(question))
	logger.Info("Answering question")

	candidates, err := p.retrieve(ctx, question)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		metric.RetrievalFailures.Inc()
		logger.Error("Retrieval failed, producing degraded answer", "error", err)
		metric.QuestionsTotal.WithLabelValues("degraded").Inc()
		return &FinalAnswer{
			Text:    fmt.Sprintf("%s (retrieval error: %v)", NoRelevantContent, err),
			Elapsed: time.Since(start),
		}, nil
	}
	if len(candidates) == 0 {
		metric.QuestionsTotal.WithLabelValues("empty").Inc()
		return &FinalAnswer{
			Text:    NoRelevantContent,
			Elapsed: time.Since(start),
		}, nil
	}

	maxChunks := opts.MaxChunks
	if maxChunks <= 0 || maxChunks > p.config.MaxChunks {
		maxChunks = p.config.MaxChunks
	}

	evidence := p.selector.Select(candidates, question, maxChunks)
	logger.Info("Evidence selected",
		"candidates", len(candidates),
		"selected", len(evidence))

	draft := p.drafter.Draft(ctx, question, evidence)

	// Citations come from the draft, before visual validation changes
	// anything downstream.
	cited := citation.Extract(draft.Result)

	critiques := p.validator.ValidateAll(ctx, question, []retrieval.Chunk(evidence), draft.Result, opts.MaxImages)
	successes := 0
	for _, c := range critiques {
		if c.Failed() {
			metric.CritiquesTotal.WithLabelValues("error").Inc()
			continue
		}
		metric.CritiquesTotal.WithLabelValues(strings.ToLower(c.Status)).Inc()
		successes++
	}

	if cited.Count() == 0 {
		cited = p.fallbackCitations(critiques)
		if cited.Count() > 0 {
			metric.CitationFallbacks.Inc()
			logger.Info("Using fallback citations from ranked images",
				"citations", cited.Count())
		}
	}

	confident := vision.FilterByConfidence(critiques, p.config.ConfidenceThreshold)
	logger.Info("Image critiques resolved",
		"total", len(critiques),
		"succeeded", successes,
		"confident", len(confident))

	text := p.synthesizer.Merge(ctx, question, draft, confident)

	elapsed := time.Since(start)
	metric.QuestionsTotal.WithLabelValues("ok").Inc()
	metric.QuestionDuration.Observe(elapsed.Seconds())

	return &FinalAnswer{
		Text:              text,
		Elapsed:           elapsed,
		SearchResults:     len(candidates),
		EvidenceCount:     len(evidence),
		CitationCount:     cited.Count(),
		CritiqueSuccesses: successes,
	}, nil
}

// retrieve projects the question and runs the fused search.
func (p *Pipeline) retrieve(ctx context.Context, question string) ([]retrieval.Chunk, error) {
	embedding, err := p.projector.Project(ctx, question)
	if err != nil {
		return nil, fmt.Errorf("project question: %w", err)
	}

	chunks, err := p.searcher.Search(ctx, question, embedding)
	if err != nil {
		return nil, fmt.Errorf("fusion search: %w", err)
	}
	return chunks, nil
}

// fallbackCitations builds a citation map from the top ranked images
// when the draft cites nothing. Critique outcome is irrelevant here:
// the images were matched to the question, and that match is what the
// fallback attributes.
func (p *Pipeline) fallbackCitations(critiques []vision.CritiqueResult) citation.Citations {
	cited := citation.Citations{}
	for i, c := range critiques {
		if i == fallbackCitationLimit {
			break
		}
		cited.Add(c.DocumentName, c.Page.String())
	}
	return cited
}
