// Package synthesis turns a selected evidence set into a draft answer
// and merges the draft with visual critique results into the final
// answer text.
package synthesis

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/c360studio/pagelens/llm"
	"github.com/c360studio/pagelens/model"
	"github.com/c360studio/pagelens/retrieval"
	"github.com/c360studio/pagelens/store"
)

// NoUsableContext is the draft result produced when no evidence chunk
// carries both a source document and a page image. No model call is
// made in that case.
const NoUsableContext = "No usable context."

// Config holds synthesis settings.
type Config struct {
	// ReportingYear anchors the prompts' domain context.
	ReportingYear int `yaml:"reporting_year"`

	// DraftMaxTokens bounds the draft completion.
	DraftMaxTokens int `yaml:"draft_max_tokens"`

	// MergeMaxTokens bounds the final synthesis completion.
	MergeMaxTokens int `yaml:"merge_max_tokens"`
}

// DefaultConfig returns synthesis defaults.
func DefaultConfig() Config {
	return Config{
		ReportingYear:  2023,
		DraftMaxTokens: 1500,
		MergeMaxTokens: 1500,
	}
}

// Completer is the slice of the llm client synthesis needs.
type Completer interface {
	Complete(ctx context.Context, req llm.Request) (*llm.Response, error)
}

// Draft is the text-only intermediate answer plus its provenance.
type Draft struct {
	// Result is the draft text, or an error description when drafting
	// itself failed. It always flows downstream either way.
	Result string

	// EvidenceCount is how many deduplicated evidence blocks backed the
	// draft.
	EvidenceCount int
}

// Drafter produces the analytical text draft from selected evidence.
type Drafter struct {
	completer Completer
	objects   store.ObjectStore
	config    Config
	logger    *slog.Logger
}

// NewDrafter creates a Drafter.
func NewDrafter(completer Completer, objects store.ObjectStore, cfg Config, logger *slog.Logger) *Drafter {
	def := DefaultConfig()
	if cfg.ReportingYear <= 0 {
		cfg.ReportingYear = def.ReportingYear
	}
	if cfg.DraftMaxTokens <= 0 {
		cfg.DraftMaxTokens = def.DraftMaxTokens
	}
	if cfg.MergeMaxTokens <= 0 {
		cfg.MergeMaxTokens = def.MergeMaxTokens
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Drafter{
		completer: completer,
		objects:   objects,
		config:    cfg,
		logger:    logger,
	}
}

// Draft builds deduplicated context blocks from the evidence set and
// asks the drafting model for an answer in the fixed output format.
// A model failure is folded into the returned Draft rather than
// propagated: downstream stages still run with the error text.
func (d *Drafter) Draft(ctx context.Context, question string, evidence retrieval.EvidenceSet) Draft {
	blocks := d.contextBlocks(ctx, evidence)
	if len(blocks) == 0 {
		return Draft{Result: NoUsableContext}
	}

	temp := 0.05
	topP := 0.9
	resp, err := d.completer.Complete(ctx, llm.Request{
		Capability: model.CapabilityDrafting.String(),
		Messages: []llm.Message{
			{Role: "user", Content: buildDraftPrompt(question, strings.Join(blocks, "\n\n"), d.config.ReportingYear)},
		},
		Options: llm.Options{
			Temperature: &temp,
			TopP:        &topP,
			MaxTokens:   d.config.DraftMaxTokens,
		},
	})
	if err != nil {
		d.logger.Error("Draft completion failed", "error", err)
		return Draft{
			Result:        fmt.Sprintf("Error: %v", err),
			EvidenceCount: len(blocks),
		}
	}

	return Draft{
		Result:        resp.Content,
		EvidenceCount: len(blocks),
	}
}

// contextBlocks deduplicates the evidence and formats one source block
// per surviving chunk, each with a presigned source link. Chunks
// missing a page image or a document name are not usable evidence and
// are skipped entirely. A failed presign degrades that block's link to
// "#" instead of dropping the evidence.
func (d *Drafter) contextBlocks(ctx context.Context, evidence retrieval.EvidenceSet) []string {
	type dedupKey struct {
		document string
		image    string
		text     string
	}
	seen := make(map[dedupKey]struct{}, len(evidence))

	blocks := make([]string, 0, len(evidence))
	for _, chunk := range evidence {
		if !chunk.HasImage() || chunk.DocumentName == "" {
			continue
		}

		text := chunk.EnrichedText
		if text == "" {
			text = chunk.RawText
		}
		if strings.TrimSpace(text) == "" {
			continue
		}

		key := dedupKey{chunk.DocumentName, chunk.ImageName, text}
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}

		link := "#"
		url, err := d.objects.PresignedURL(ctx, chunk.ImageName)
		if err != nil {
			d.logger.Warn("Presign failed for evidence block",
				"image", chunk.ImageName, "error", err)
		} else {
			link = url
		}

		blocks = append(blocks, fmt.Sprintf(
			"---\nSource: [%s](%s)\nExtracted Content:\n%s",
			chunk.DocumentName, link, text))
	}

	return blocks
}
