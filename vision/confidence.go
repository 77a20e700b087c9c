package vision

import (
	"regexp"
	"strconv"
)

// DefaultConfidenceThreshold is the minimum self-reported confidence a
// critique must carry to survive filtering.
const DefaultConfidenceThreshold = 0.5

var confidencePattern = regexp.MustCompile(`(?i)CONFIDENCE[_A-Z ]*:\s*([0-9]*\.?[0-9]+)`)

// ConfidenceScore returns the self-reported confidence embedded in a
// critique's text. Missing or unparseable scores count as 0.0.
func ConfidenceScore(result CritiqueResult) float64 {
	m := confidencePattern.FindStringSubmatch(result.Result)
	if m == nil {
		return 0.0
	}
	score, err := strconv.ParseFloat(m[1], 64)
	if err != nil {
		return 0.0
	}
	return score
}

// FilterByConfidence keeps critiques whose self-reported confidence
// meets the threshold, preserving order. Failed jobs carry no score and
// are always dropped.
func FilterByConfidence(results []CritiqueResult, threshold float64) []CritiqueResult {
	if threshold <= 0 {
		threshold = DefaultConfidenceThreshold
	}

	kept := make([]CritiqueResult, 0, len(results))
	for _, r := range results {
		if r.Failed() {
			continue
		}
		if ConfidenceScore(r) >= threshold {
			kept = append(kept, r)
		}
	}
	return kept
}
