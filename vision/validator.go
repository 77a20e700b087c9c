package vision

import (
	"context"
	"fmt"
	"log/slog"
	"regexp"
	"strings"
	"time"

	"golang.org/x/sync/semaphore"

	"github.com/c360studio/pagelens/llm"
	"github.com/c360studio/pagelens/model"
	"github.com/c360studio/pagelens/retrieval"
	"github.com/c360studio/pagelens/store"
)

// Critique statuses a model may return. A failed job instead carries an
// "Error: ..." status.
const (
	StatusConfirmed        = "CONFIRMED"
	StatusRequiresCorrect  = "REQUIRES_CORRECTION"
	StatusNeedsEnhancement = "NEEDS_ENHANCEMENT"
)

var (
	statusPattern    = regexp.MustCompile(`(?i)CRITIQUE_RESULT:\s*\[?\s*(CONFIRMED|REQUIRES_CORRECTION|NEEDS_ENHANCEMENT)`)
	visualPattern    = regexp.MustCompile(`(?is)VISUAL_DATA_EXTRACTED:\s*(.+?)(?:\n[A-Z_]+:|\z)`)
	correctedPattern = regexp.MustCompile(`(?is)CORRECTED_ANSWER:\s*(.+?)(?:\n[A-Z_]+:|\z)`)
)

// CritiqueResult is the outcome of validating the draft against one
// source page image. Created by one critique job, consumed once by the
// answer synthesizer, then discarded.
type CritiqueResult struct {
	// DocumentName and ImageName identify the validated page.
	DocumentName string
	ImageName    string

	// Page is the page number within the document.
	Page retrieval.PageNumber

	// PresignedURL is the time-limited link for citation display.
	PresignedURL string

	// Status is CONFIRMED, REQUIRES_CORRECTION, NEEDS_ENHANCEMENT, or an
	// "Error: ..." marker when the job failed.
	Status string

	// VisualData is the extracted visual data section, if any.
	VisualData string

	// CorrectedAnswer is the model's corrected answer, if corrections
	// were needed.
	CorrectedAnswer string

	// Result is the full critique text (or the error description).
	Result string
}

// Failed reports whether this critique is an error placeholder.
func (c CritiqueResult) Failed() bool {
	return strings.HasPrefix(c.Status, "Error:")
}

// Completer is the slice of the llm client the validator needs.
type Completer interface {
	Complete(ctx context.Context, req llm.Request) (*llm.Response, error)
}

// Config holds visual validation settings.
type Config struct {
	// MaxImages bounds how many page images are critiqued per question.
	MaxImages int `yaml:"max_images"`

	// MaxInFlight bounds concurrently dispatched critique jobs.
	MaxInFlight int `yaml:"max_in_flight"`

	// JobTimeout bounds one critique call.
	JobTimeout time.Duration `yaml:"job_timeout"`
}

// DefaultConfig returns validation defaults.
func DefaultConfig() Config {
	return Config{
		MaxImages:   8,
		MaxInFlight: 4,
		JobTimeout:  120 * time.Second,
	}
}

// Validator dispatches per-image critique jobs and resolves them.
type Validator struct {
	completer Completer
	objects   store.ObjectStore
	config    Config
	logger    *slog.Logger
	inflight  *semaphore.Weighted
}

// Option configures a Validator.
type Option func(*Validator)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(v *Validator) {
		v.logger = logger
	}
}

// NewValidator creates a Validator.
func NewValidator(completer Completer, objects store.ObjectStore, cfg Config, opts ...Option) *Validator {
	def := DefaultConfig()
	if cfg.MaxImages <= 0 {
		cfg.MaxImages = def.MaxImages
	}
	if cfg.MaxInFlight <= 0 {
		cfg.MaxInFlight = def.MaxInFlight
	}
	if cfg.JobTimeout <= 0 {
		cfg.JobTimeout = def.JobTimeout
	}

	v := &Validator{
		completer: completer,
		objects:   objects,
		config:    cfg,
		logger:    slog.Default(),
		inflight:  semaphore.NewWeighted(int64(cfg.MaxInFlight)),
	}
	for _, opt := range opts {
		opt(v)
	}
	return v
}

// Handle is a pending critique job. Resolve blocks until the job
// finishes and never returns an error: failures become error-marked
// CritiqueResults.
type Handle struct {
	chunk  retrieval.Chunk
	result chan CritiqueResult
}

// Resolve waits for the job and returns its result.
func (h *Handle) Resolve() CritiqueResult {
	return <-h.result
}

// Dispatch submits one critique job without waiting for it. The token
// semaphore bounds how many jobs run against the external service at
// once; dispatch itself returns immediately.
func (v *Validator) Dispatch(ctx context.Context, question string, chunk retrieval.Chunk, draftAnswer string) *Handle {
	h := &Handle{
		chunk:  chunk,
		result: make(chan CritiqueResult, 1),
	}

	go func() {
		h.result <- v.run(ctx, question, chunk, draftAnswer)
	}()

	return h
}

// run executes one critique job end to end.
func (v *Validator) run(ctx context.Context, question string, chunk retrieval.Chunk, draftAnswer string) CritiqueResult {
	if err := v.inflight.Acquire(ctx, 1); err != nil {
		return errorResult(chunk, "", err)
	}
	defer v.inflight.Release(1)

	jobCtx, cancel := context.WithTimeout(ctx, v.config.JobTimeout)
	defer cancel()

	presigned, err := v.objects.PresignedURL(jobCtx, chunk.ImageName)
	if err != nil {
		return errorResult(chunk, "", fmt.Errorf("presign image: %w", err))
	}

	temp := 0.1
	topP := 0.9
	resp, err := v.completer.Complete(jobCtx, llm.Request{
		Capability: model.CapabilityVision.String(),
		Messages: []llm.Message{
			{
				Role:     "user",
				Content:  buildCritiquePrompt(question, chunk, draftAnswer),
				ImageURL: presigned,
			},
		},
		Options: llm.Options{
			Temperature: &temp,
			TopP:        &topP,
			MaxTokens:   2500,
		},
	})
	if err != nil {
		return errorResult(chunk, presigned, err)
	}

	return parseCritique(chunk, presigned, resp.Content)
}

// errorResult converts a job failure into an inline error-marked result.
func errorResult(chunk retrieval.Chunk, presigned string, err error) CritiqueResult {
	if presigned == "" {
		presigned = "#"
	}
	msg := fmt.Sprintf("Error: %v", err)
	return CritiqueResult{
		DocumentName: chunk.DocumentName,
		ImageName:    chunk.ImageName,
		Page:         chunk.PageNumber,
		PresignedURL: presigned,
		Status:       msg,
		Result:       msg,
	}
}

// parseCritique extracts the structured sections from the critique text.
// Everything is best-effort: a malformed critique still carries its raw
// text downstream.
func parseCritique(chunk retrieval.Chunk, presigned, content string) CritiqueResult {
	result := CritiqueResult{
		DocumentName: chunk.DocumentName,
		ImageName:    chunk.ImageName,
		Page:         chunk.PageNumber,
		PresignedURL: presigned,
		Status:       StatusNeedsEnhancement,
		Result:       content,
	}

	if m := statusPattern.FindStringSubmatch(content); m != nil {
		result.Status = strings.ToUpper(m[1])
	}
	if m := visualPattern.FindStringSubmatch(content); m != nil {
		result.VisualData = strings.TrimSpace(m[1])
	}
	if m := correctedPattern.FindStringSubmatch(content); m != nil {
		result.CorrectedAnswer = strings.TrimSpace(m[1])
	}

	return result
}

// ValidateAll ranks the candidates' images, dispatches a critique job
// per selected image without waiting, then resolves each job one at a
// time in submission order. One failed job never aborts the batch; it is
// substituted with an error-marked result in place. maxImages can
// tighten the configured image limit per call; <= 0 or anything larger
// uses the configured limit.
func (v *Validator) ValidateAll(ctx context.Context, question string, chunks []retrieval.Chunk, draftAnswer string, maxImages int) []CritiqueResult {
	if maxImages <= 0 || maxImages > v.config.MaxImages {
		maxImages = v.config.MaxImages
	}

	selected := RankImages(chunks, question, maxImages)
	if len(selected) == 0 {
		v.logger.Debug("No images available for validation")
		return nil
	}

	v.logger.Info("Dispatching image critiques",
		"candidates", len(chunks),
		"selected", len(selected))

	handles := make([]*Handle, len(selected))
	for i, chunk := range selected {
		handles[i] = v.Dispatch(ctx, question, chunk, draftAnswer)
	}

	results := make([]CritiqueResult, len(handles))
	for i, h := range handles {
		results[i] = h.Resolve()
		if results[i].Failed() {
			v.logger.Warn("Image critique failed",
				"document", results[i].DocumentName,
				"image", results[i].ImageName,
				"error", results[i].Status)
		}
	}

	return results
}
