package synthesis

import (
	"context"
	"log/slog"
	"strings"

	"github.com/c360studio/pagelens/llm"
	"github.com/c360studio/pagelens/model"
	"github.com/c360studio/pagelens/vision"
)

// Synthesizer merges the text draft with visual critique results into
// the final answer.
type Synthesizer struct {
	completer Completer
	config    Config
	logger    *slog.Logger
}

// NewSynthesizer creates a Synthesizer.
func NewSynthesizer(completer Completer, cfg Config, logger *slog.Logger) *Synthesizer {
	def := DefaultConfig()
	if cfg.ReportingYear <= 0 {
		cfg.ReportingYear = def.ReportingYear
	}
	if cfg.MergeMaxTokens <= 0 {
		cfg.MergeMaxTokens = def.MergeMaxTokens
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Synthesizer{
		completer: completer,
		config:    cfg,
		logger:    logger,
	}
}

// Merge produces the final answer. With no surviving critiques there is
// nothing to reconcile and the draft stands. A merge failure degrades
// the same way: the draft with the critique bodies appended, never an
// error back to the caller.
func (s *Synthesizer) Merge(ctx context.Context, question string, draft Draft, critiques []vision.CritiqueResult) string {
	if len(critiques) == 0 {
		return draft.Result
	}

	temp := 0.1
	topP := 0.9
	resp, err := s.completer.Complete(ctx, llm.Request{
		Capability: model.CapabilitySynthesis.String(),
		Messages: []llm.Message{
			{Role: "user", Content: buildMergePrompt(question, draft.Result, critiques, s.config.ReportingYear)},
		},
		Options: llm.Options{
			Temperature: &temp,
			TopP:        &topP,
			MaxTokens:   s.config.MergeMaxTokens,
		},
	})
	if err != nil {
		s.logger.Error("Merge completion failed, falling back to draft", "error", err)
		return appendCritiques(draft.Result, critiques)
	}
	if strings.TrimSpace(resp.Content) == "" {
		return appendCritiques(draft.Result, critiques)
	}

	return resp.Content
}

// appendCritiques is the degraded merge: the draft plus raw critique
// bodies so the visual findings still reach the reader.
func appendCritiques(draft string, critiques []vision.CritiqueResult) string {
	bodies := make([]string, 0, len(critiques))
	for _, c := range critiques {
		if strings.TrimSpace(c.Result) == "" {
			continue
		}
		bodies = append(bodies, strings.TrimSpace(c.Result))
	}
	if len(bodies) == 0 {
		return draft
	}
	return draft + "\n\n**Additional Image Analysis:**\n" + strings.Join(bodies, "\n\n")
}
