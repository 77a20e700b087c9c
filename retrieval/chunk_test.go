package retrieval_test

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/c360studio/pagelens/retrieval"
)

func TestPageNumber_UnmarshalJSON(t *testing.T) {
	tests := []struct {
		name string
		json string
		want retrieval.PageNumber
	}{
		{"string", `{"PAGE_NUMBER": "12"}`, "12"},
		{"number", `{"PAGE_NUMBER": 12}`, "12"},
		{"null", `{"PAGE_NUMBER": null}`, ""},
		{"absent", `{}`, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var chunk retrieval.Chunk
			require.NoError(t, json.Unmarshal([]byte(tt.json), &chunk))
			assert.Equal(t, tt.want, chunk.PageNumber)
		})
	}
}

func TestPageNumber_String(t *testing.T) {
	assert.Equal(t, "N/A", retrieval.PageNumber("").String())
	assert.Equal(t, "12", retrieval.PageNumber("12").String())
}

func TestChunk_HasImage(t *testing.T) {
	assert.False(t, retrieval.Chunk{}.HasImage())
	assert.True(t, retrieval.Chunk{ImageName: "page-12.png"}.HasImage())
}
