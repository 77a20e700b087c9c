package pipeline_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/c360studio/pagelens/llm"
	"github.com/c360studio/pagelens/pipeline"
	"github.com/c360studio/pagelens/retrieval"
	"github.com/c360studio/pagelens/synthesis"
	"github.com/c360studio/pagelens/vision"
)

type fakeProjector struct {
	err error
}

func (f *fakeProjector) Project(ctx context.Context, question string) ([]float64, error) {
	if f.err != nil {
		return nil, f.err
	}
	return []float64{0.1, 0.2}, nil
}

type fakeSearcher struct {
	chunks []retrieval.Chunk
	err    error
}

func (f *fakeSearcher) Search(ctx context.Context, question string, embedding []float64) ([]retrieval.Chunk, error) {
	return f.chunks, f.err
}

type fakeValidator struct {
	critiques     []vision.CritiqueResult
	lastMaxImages int
}

func (f *fakeValidator) ValidateAll(ctx context.Context, question string, chunks []retrieval.Chunk, draftAnswer string, maxImages int) []vision.CritiqueResult {
	f.lastMaxImages = maxImages
	return f.critiques
}

type fakeStore struct{}

func (fakeStore) Exists(ctx context.Context, key string) (bool, error)   { return true, nil }
func (fakeStore) Put(ctx context.Context, key string, data []byte) error { return nil }
func (fakeStore) PresignedURL(ctx context.Context, key string) (string, error) {
	return "https://example.com/" + key, nil
}

// scriptedCompleter returns canned responses keyed by capability.
type scriptedCompleter struct {
	responses map[string]string
}

func (s *scriptedCompleter) Complete(ctx context.Context, req llm.Request) (*llm.Response, error) {
	content, ok := s.responses[req.Capability]
	if !ok {
		return nil, errors.New("no scripted response")
	}
	return &llm.Response{Content: content}, nil
}

func testChunks() []retrieval.Chunk {
	return []retrieval.Chunk{
		{
			DocumentName: "2023-factbook.pdf",
			ImageName:    "page-12.png",
			PageNumber:   "12",
			EnrichedText: "A chart of total net assets reaching $27.2 trillion at year-end 2023.",
			RawText:      "Total net assets: $27.2 trillion (2023)",
		},
		{
			DocumentName: "2023-factbook.pdf",
			PageNumber:   "13",
			EnrichedText: "Narrative context about fund industry growth.",
			RawText:      "growth context",
		},
	}
}

func newTestPipeline(t *testing.T, searcher pipeline.Searcher, validator pipeline.Validator, completer synthesis.Completer) *pipeline.Pipeline {
	t.Helper()

	drafter := synthesis.NewDrafter(completer, fakeStore{}, synthesis.Config{}, nil)
	synthesizer := synthesis.NewSynthesizer(completer, synthesis.Config{}, nil)

	return pipeline.New(
		&fakeProjector{},
		searcher,
		retrieval.NewDefaultSelector(),
		drafter,
		validator,
		synthesizer,
		pipeline.Config{},
	)
}

func TestPipeline_Answer_EndToEnd(t *testing.T) {
	completer := &scriptedCompleter{responses: map[string]string{
		"drafting":  "DIRECT ANSWER: $27.2 trillion.\n\nCITED SOURCES: [2023-factbook - page 12](u)",
		"synthesis": "Final: $27.2 trillion at year-end 2023.\n\nCITED SOURCES: [2023-factbook - page 12](u)",
	}}
	validator := &fakeValidator{critiques: []vision.CritiqueResult{
		{
			DocumentName: "2023-factbook.pdf",
			ImageName:    "page-12.png",
			Page:         "12",
			Status:       vision.StatusConfirmed,
			Result:       "CRITIQUE_RESULT: [CONFIRMED] verified\nCONFIDENCE_IN_VALIDATION: 0.9",
		},
	}}

	p := newTestPipeline(t, &fakeSearcher{chunks: testChunks()}, validator, completer)

	answer, err := p.Answer(context.Background(), "What were total net assets in 2023?")
	require.NoError(t, err)
	assert.Contains(t, answer.Text, "$27.2 trillion")
	assert.Equal(t, 2, answer.SearchResults)
	assert.Equal(t, 2, answer.EvidenceCount)
	assert.Equal(t, 1, answer.CitationCount)
	assert.Equal(t, 1, answer.CritiqueSuccesses)
	assert.Greater(t, answer.Elapsed.Nanoseconds(), int64(0))
}

func TestPipeline_Answer_RetrievalFailureDegrades(t *testing.T) {
	completer := &scriptedCompleter{responses: map[string]string{}}
	p := newTestPipeline(t, &fakeSearcher{err: errors.New("index unreachable")}, &fakeValidator{}, completer)

	answer, err := p.Answer(context.Background(), "any question")
	require.NoError(t, err)
	assert.Contains(t, answer.Text, pipeline.NoRelevantContent)
	assert.Contains(t, answer.Text, "index unreachable")
	assert.Equal(t, 0, answer.SearchResults)
}

func TestPipeline_Answer_EmptyResults(t *testing.T) {
	completer := &scriptedCompleter{responses: map[string]string{}}
	p := newTestPipeline(t, &fakeSearcher{}, &fakeValidator{}, completer)

	answer, err := p.Answer(context.Background(), "any question")
	require.NoError(t, err)
	assert.Equal(t, pipeline.NoRelevantContent, answer.Text)
}

func TestPipeline_Answer_EmptyQuestion(t *testing.T) {
	completer := &scriptedCompleter{responses: map[string]string{}}
	p := newTestPipeline(t, &fakeSearcher{}, &fakeValidator{}, completer)

	_, err := p.Answer(context.Background(), "   ")
	assert.Error(t, err)
}

func TestPipeline_Answer_FallbackCitations(t *testing.T) {
	// The draft cites nothing; citations come from the ranked images
	// instead, regardless of how their critiques turned out.
	completer := &scriptedCompleter{responses: map[string]string{
		"drafting":  "DIRECT ANSWER: $27.2 trillion, no sources section.",
		"synthesis": "Merged answer without a sources section.",
	}}
	validator := &fakeValidator{critiques: []vision.CritiqueResult{
		{
			DocumentName: "2023-factbook.pdf",
			Page:         "12",
			Status:       vision.StatusConfirmed,
			Result:       "CRITIQUE_RESULT: [CONFIRMED] ok\nCONFIDENCE_IN_VALIDATION: 0.9",
		},
		{
			DocumentName: "appendix.pdf",
			Page:         "3",
			Status:       "Error: endpoint down",
			Result:       "Error: endpoint down",
		},
	}}

	p := newTestPipeline(t, &fakeSearcher{chunks: testChunks()}, validator, completer)

	answer, err := p.Answer(context.Background(), "What were total net assets?")
	require.NoError(t, err)
	// Both ranked images contribute, the failed critique included.
	assert.Equal(t, 2, answer.CitationCount)
	assert.Equal(t, 1, answer.CritiqueSuccesses)
}

func TestPipeline_Answer_CitationsExtractedFromDraft(t *testing.T) {
	// The draft carries the sources section; the merged text does not.
	// Citations still come through because extraction runs on the draft.
	completer := &scriptedCompleter{responses: map[string]string{
		"drafting":  "DIRECT ANSWER: $27.2 trillion.\n\nCITED SOURCES: [2023-factbook - page 12](u)",
		"synthesis": "Merged answer without a sources section.",
	}}

	p := newTestPipeline(t, &fakeSearcher{chunks: testChunks()}, &fakeValidator{}, completer)

	answer, err := p.Answer(context.Background(), "What were total net assets?")
	require.NoError(t, err)
	assert.Equal(t, 1, answer.CitationCount)
}

func TestPipeline_Answer_PerRequestLimits(t *testing.T) {
	completer := &scriptedCompleter{responses: map[string]string{
		"drafting":  "DIRECT ANSWER: $27.2 trillion.\n\nCITED SOURCES: [2023-factbook - page 12](u)",
		"synthesis": "Merged.",
	}}
	validator := &fakeValidator{}

	p := newTestPipeline(t, &fakeSearcher{chunks: testChunks()}, validator, completer)

	answer, err := p.AnswerWith(context.Background(), "What were total net assets?",
		pipeline.AskOptions{MaxChunks: 1, MaxImages: 2})
	require.NoError(t, err)
	assert.Equal(t, 1, answer.EvidenceCount)
	assert.Equal(t, 2, validator.lastMaxImages)
}

func TestPipeline_Answer_DraftFailureStillAnswers(t *testing.T) {
	// Drafting has no scripted response and fails; the error text flows
	// through merge (which also fails) and the pipeline still answers.
	completer := &scriptedCompleter{responses: map[string]string{}}
	validator := &fakeValidator{critiques: []vision.CritiqueResult{
		{DocumentName: "d", Page: "1", Status: vision.StatusConfirmed,
			Result: "CRITIQUE_RESULT: [CONFIRMED] ok\nCONFIDENCE_IN_VALIDATION: 0.9"},
	}}

	p := newTestPipeline(t, &fakeSearcher{chunks: testChunks()}, validator, completer)

	answer, err := p.Answer(context.Background(), "question")
	require.NoError(t, err)
	assert.Contains(t, answer.Text, "Error:")
}
