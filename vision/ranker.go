// Package vision validates drafted answers against the actual source
// page images. Candidate images are ranked for relevance, then each
// selected image gets an independent critique job against a
// vision-capable model.
package vision

import (
	"sort"
	"strings"

	"github.com/c360studio/pagelens/retrieval"
)

// financialTerms boost images whose chunk text carries financial data.
var financialTerms = []string{
	"trillion", "billion", "million", "percent", "%", "assets", "funds",
	"investment", "expense", "ratio", "market", "share",
}

// chartIndicators mark narrative text describing visual elements.
var chartIndicators = []string{"chart", "table", "figure", "graph", "data"}

// ScoreImageRelevance scores how worthwhile a chunk's page image is to
// validate: financial keywords in either text view (+10 each), question
// word overlap with the narrative (+5 per token), any digit in the
// narrative (+20), and chart/table indicators (+15 each).
func ScoreImageRelevance(chunk retrieval.Chunk, question string) int {
	content := strings.ToLower(chunk.EnrichedText)
	rawContent := strings.ToLower(chunk.RawText)

	score := 0

	for _, term := range financialTerms {
		if strings.Contains(content, term) || strings.Contains(rawContent, term) {
			score += 10
		}
	}

	questionWords := make(map[string]struct{})
	for _, w := range strings.Fields(strings.ToLower(question)) {
		questionWords[w] = struct{}{}
	}
	for _, w := range strings.Fields(content) {
		if _, ok := questionWords[w]; ok {
			score += 5
			delete(questionWords, w) // count each overlap token once
		}
	}

	if strings.ContainsFunc(content, func(r rune) bool { return r >= '0' && r <= '9' }) {
		score += 20
	}

	for _, indicator := range chartIndicators {
		if strings.Contains(content, indicator) {
			score += 15
		}
	}

	return score
}

// RankImages returns the top max image-bearing chunks by relevance
// score, most relevant first. Chunks without an image are ignored.
func RankImages(chunks []retrieval.Chunk, question string, max int) []retrieval.Chunk {
	type scored struct {
		chunk retrieval.Chunk
		score int
	}

	var candidates []scored
	for _, c := range chunks {
		if !c.HasImage() {
			continue
		}
		candidates = append(candidates, scored{chunk: c, score: ScoreImageRelevance(c, question)})
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].score > candidates[j].score
	})

	if max > 0 && len(candidates) > max {
		candidates = candidates[:max]
	}

	ranked := make([]retrieval.Chunk, len(candidates))
	for i, c := range candidates {
		ranked[i] = c.chunk
	}
	return ranked
}
