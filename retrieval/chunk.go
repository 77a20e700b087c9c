// Package retrieval defines the evidence data model and the selection
// logic that turns a flat candidate list into a bounded, balanced
// evidence set for answer drafting.
package retrieval

import (
	"encoding/json"
	"strconv"
	"strings"
)

// PageNumber is a page identifier as text. The index is inconsistent
// about whether it serializes page numbers as JSON strings or numbers,
// so both are accepted.
type PageNumber string

// UnmarshalJSON accepts both `"12"` and `12`.
func (p *PageNumber) UnmarshalJSON(data []byte) error {
	s := strings.TrimSpace(string(data))
	if s == "null" {
		*p = ""
		return nil
	}
	if len(s) > 0 && s[0] == '"' {
		var str string
		if err := json.Unmarshal(data, &str); err != nil {
			return err
		}
		*p = PageNumber(str)
		return nil
	}
	var n float64
	if err := json.Unmarshal(data, &n); err != nil {
		return err
	}
	*p = PageNumber(strconv.FormatInt(int64(n), 10))
	return nil
}

// String returns the page as text, or "N/A" when unknown.
func (p PageNumber) String() string {
	if p == "" {
		return "N/A"
	}
	return string(p)
}

// Chunk is one retrieved unit of document evidence. It carries two text
// views of the same region: EnrichedText is the narrative description
// produced during corpus enrichment, RawText is the literal extracted
// text. Chunks are immutable once fetched and live only for the duration
// of a single question.
type Chunk struct {
	// EnrichedText is the narrative (context-rich) view.
	EnrichedText string `json:"ENRICHED_CHUNK"`

	// RawText is the literal extracted view, trusted more for exact figures.
	RawText string `json:"RAW_CHUNK_TEXT"`

	// DocumentName is the source document this chunk came from.
	DocumentName string `json:"ORIGINAL_FILE_NAME"`

	// ImageName is the rendered page image backing this chunk, if any.
	ImageName string `json:"IMAGE_FILE_NAME"`

	// PageNumber is the page within the source document.
	PageNumber PageNumber `json:"PAGE_NUMBER"`
}

// HasImage reports whether the chunk has an associated page image that
// can be visually validated.
func (c Chunk) HasImage() bool {
	return c.ImageName != ""
}

// ScoredChunk pairs a chunk with its relevance score. The score is a
// deterministic function of the chunk content and the question text.
type ScoredChunk struct {
	Chunk Chunk
	Score float64
}

// EvidenceSet is the ordered, bounded subset of chunks passed to answer
// drafting. Its composition respects the selector's balance policy.
type EvidenceSet []Chunk
