package vision_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/c360studio/pagelens/vision"
)

func critique(result string) vision.CritiqueResult {
	return vision.CritiqueResult{Status: vision.StatusConfirmed, Result: result}
}

func TestConfidenceScore(t *testing.T) {
	tests := []struct {
		name string
		text string
		want float64
	}{
		{"plain", "CONFIDENCE: 0.9", 0.9},
		{"validation variant", "CONFIDENCE_IN_VALIDATION: 0.75", 0.75},
		{"lowercase", "confidence: 0.4", 0.4},
		{"embedded", "review done\nCONFIDENCE IN VALIDATION: 0.6\nmore", 0.6},
		{"missing", "no score anywhere", 0.0},
		{"integer", "CONFIDENCE: 1", 1.0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, vision.ConfidenceScore(critique(tt.text)))
		})
	}
}

func TestFilterByConfidence(t *testing.T) {
	items := []vision.CritiqueResult{
		critique("CONFIDENCE: 0.9"),
		critique("CONFIDENCE: 0.4"),
		critique("no score at all"),
		critique("CONFIDENCE_IN_VALIDATION: 0.6"),
	}

	kept := vision.FilterByConfidence(items, 0.5)
	require.Len(t, kept, 2)
	assert.Equal(t, "CONFIDENCE: 0.9", kept[0].Result)
	assert.Equal(t, "CONFIDENCE_IN_VALIDATION: 0.6", kept[1].Result)
}

func TestFilterByConfidence_DefaultThreshold(t *testing.T) {
	items := []vision.CritiqueResult{
		critique("CONFIDENCE: 0.5"),
		critique("CONFIDENCE: 0.49"),
	}

	kept := vision.FilterByConfidence(items, 0)
	require.Len(t, kept, 1)
	assert.Equal(t, "CONFIDENCE: 0.5", kept[0].Result)
}

func TestFilterByConfidence_DropsFailedJobs(t *testing.T) {
	failed := vision.CritiqueResult{
		Status: "Error: endpoint unreachable",
		Result: "Error: endpoint unreachable CONFIDENCE: 0.9",
	}

	kept := vision.FilterByConfidence([]vision.CritiqueResult{failed}, 0.5)
	assert.Empty(t, kept)
}
