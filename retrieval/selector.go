package retrieval

import (
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"
)

// domainKeywords is the weighted vocabulary of high-value terms for
// investment-company corpora. Matches in the literal view are boosted
// because exact extracted text is more trustworthy for figures.
var domainKeywords = map[string]float64{
	"asset": 3, "allocation": 3, "class": 2, "total": 3, "net": 2,
	"equity": 2, "fixed": 2, "income": 2, "money": 2, "market": 2,
	"mutual": 2, "fund": 2, "etf": 2, "exchange": 2, "traded": 2,
	"billion": 3, "trillion": 3, "percentage": 2, "breakdown": 3,
	"domestic": 2, "international": 2, "flow": 2, "investment": 1,
	"company": 1, "registered": 2,
}

// financialMarkers in the literal view indicate exact figures nearby.
var financialMarkers = []string{"$", "billion", "trillion", "assets", "net"}

var (
	numberPattern  = regexp.MustCompile(`\b\d+\.?\d*\b`)
	percentPattern = regexp.MustCompile(`\b\d+\.?\d*%`)
)

// Config holds evidence selection settings.
type Config struct {
	// MaxChunks bounds the evidence set size.
	MaxChunks int `yaml:"max_chunks"`

	// ReportingYear is the current reporting year of the corpus. The
	// prior year is derived from it. Chunks mentioning either get a
	// recency bonus.
	ReportingYear int `yaml:"reporting_year"`
}

// DefaultConfig returns selection defaults.
func DefaultConfig() Config {
	return Config{
		MaxChunks:     10,
		ReportingYear: 2023,
	}
}

// Validate checks if the configuration is valid.
func (c Config) Validate() error {
	if c.MaxChunks <= 0 {
		return fmt.Errorf("MaxChunks must be positive, got %d", c.MaxChunks)
	}
	if c.ReportingYear < 1900 || c.ReportingYear > 9999 {
		return fmt.Errorf("ReportingYear out of range: %d", c.ReportingYear)
	}
	return nil
}

// Selector scores retrieval candidates against the question and builds a
// balanced evidence set. Pure top-N selection over-weights narrative
// chunks and tends to omit exact figures, so the selector deliberately
// mixes context-rich and numerically precise chunks.
type Selector struct {
	config Config
}

// NewSelector creates a Selector with the given configuration.
func NewSelector(cfg Config) (*Selector, error) {
	if cfg.MaxChunks == 0 {
		cfg = DefaultConfig()
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Selector{config: cfg}, nil
}

// NewDefaultSelector creates a Selector with default configuration.
func NewDefaultSelector() *Selector {
	s, err := NewSelector(DefaultConfig())
	if err != nil {
		panic(err)
	}
	return s
}

// Score computes the hybrid relevance score for one chunk. Both text
// views contribute independently weighted signals; the result is a
// deterministic function of (chunk, question).
func (s *Selector) Score(chunk Chunk, question string) float64 {
	enriched := strings.ToLower(chunk.EnrichedText)
	raw := strings.ToLower(chunk.RawText)
	year := strconv.Itoa(s.config.ReportingYear)
	prior := strconv.Itoa(s.config.ReportingYear - 1)

	var score float64

	// Question keyword overlap. Literal matches weigh more because they
	// indicate the exact wording survives extraction.
	for _, word := range strings.Fields(strings.ToLower(question)) {
		word = strings.Trim(word, ".,!?")
		if len(word) <= 3 {
			continue
		}
		if strings.Contains(enriched, word) {
			score += 3
		}
		if strings.Contains(raw, word) {
			score += 4
		}
	}

	// Weighted domain vocabulary. The reporting years are vocabulary
	// terms in their own right, on top of the recency bonus below.
	addTerm := func(term string, weight float64) {
		if strings.Contains(enriched, term) {
			score += weight
		}
		if strings.Contains(raw, term) {
			score += weight * 1.2
		}
	}
	for term, weight := range domainKeywords {
		addTerm(term, weight)
	}
	addTerm(year, 3)
	addTerm(prior, 2)

	// Numeric density. Exact figures usually live in the literal view.
	score += float64(len(numberPattern.FindAllString(enriched, -1))) * 0.3
	score += float64(len(numberPattern.FindAllString(raw, -1))) * 0.8
	score += float64(len(percentPattern.FindAllString(enriched, -1))) * 0.5
	score += float64(len(percentPattern.FindAllString(raw, -1))) * 1.2

	// Recency: current reporting year outranks the prior one.
	switch {
	case strings.Contains(enriched, year):
		score += 1
	case strings.Contains(enriched, prior):
		score += 0.5
	}
	switch {
	case strings.Contains(raw, year):
		score += 2
	case strings.Contains(raw, prior):
		score += 1
	}

	// Narrative chunks describing visuals point at charts worth validating.
	if strings.Contains(enriched, "visual context") ||
		strings.Contains(enriched, "chart") ||
		strings.Contains(enriched, "table") {
		score += 1
	}

	// Literal chunks with currency markers carry exact financial data.
	for _, marker := range financialMarkers {
		if strings.Contains(raw, marker) {
			score += 1
			break
		}
	}

	return score
}

// narrativeHeavy reports whether a chunk is dominated by its narrative
// view (context-rich, light on literal text).
func narrativeHeavy(c Chunk) bool {
	return len(c.EnrichedText) > len(c.RawText)*2
}

// literalHeavy reports whether a chunk carries substantial literal text
// including at least one digit (numerically precise).
func literalHeavy(c Chunk) bool {
	return len(c.RawText) > 100 && strings.ContainsFunc(c.RawText, func(r rune) bool {
		return r >= '0' && r <= '9'
	})
}

// Select scores all candidates and returns a balanced evidence set of at
// most maxChunks items. Candidates are sorted by score descending (stable,
// so ties keep retrieval order) and the top 2×maxChunks are walked
// greedily: narrative-heavy chunks are accepted until 60% of capacity,
// literal-heavy until 50%, and unclassified chunks fill freely. Over-cap
// classed chunks are deferred; leftover capacity is filled from them in
// score order, so the caps bind only while alternatives exist.
// maxChunks <= 0 falls back to the configured default.
func (s *Selector) Select(chunks []Chunk, question string, maxChunks int) EvidenceSet {
	if maxChunks <= 0 {
		maxChunks = s.config.MaxChunks
	}
	if len(chunks) == 0 {
		return nil
	}

	scored := make([]ScoredChunk, len(chunks))
	for i, c := range chunks {
		scored[i] = ScoredChunk{Chunk: c, Score: s.Score(c, question)}
	}
	sort.SliceStable(scored, func(i, j int) bool {
		return scored[i].Score > scored[j].Score
	})

	candidates := scored
	if len(candidates) > maxChunks*2 {
		candidates = candidates[:maxChunks*2]
	}

	narrativeCap := float64(maxChunks) * 0.6
	literalCap := float64(maxChunks) * 0.5

	selected := make(EvidenceSet, 0, maxChunks)
	var deferred []ScoredChunk
	var narrativeCount, literalCount int

	for _, sc := range candidates {
		if len(selected) >= maxChunks {
			break
		}
		switch {
		case narrativeHeavy(sc.Chunk) && float64(narrativeCount) < narrativeCap:
			selected = append(selected, sc.Chunk)
			narrativeCount++
		case literalHeavy(sc.Chunk) && float64(literalCount) < literalCap:
			selected = append(selected, sc.Chunk)
			literalCount++
		case narrativeHeavy(sc.Chunk) || literalHeavy(sc.Chunk):
			deferred = append(deferred, sc)
		default:
			selected = append(selected, sc.Chunk)
		}
	}

	for _, sc := range deferred {
		if len(selected) >= maxChunks {
			break
		}
		selected = append(selected, sc.Chunk)
	}

	return selected
}
