package vision

import (
	"fmt"
	"strings"

	"github.com/c360studio/pagelens/retrieval"
)

// draftSnippetLimit bounds how much of the draft answer is embedded in
// the critique prompt.
const draftSnippetLimit = 2000

// buildCritiquePrompt constructs the structured visual-validation prompt
// for one page image. The fixed output sections let downstream parsing
// stay lenient but predictable.
func buildCritiquePrompt(question string, chunk retrieval.Chunk, draftAnswer string) string {
	snippet := draftAnswer
	if len(snippet) > draftSnippetLimit {
		snippet = snippet[:draftSnippetLimit]
	}

	var b strings.Builder

	b.WriteString(`You are an expert visual analyst of financial charts, tables, and
infographics in investment-company fact books. Extract precise data from
the attached page image and validate the text-based answer against it.

## VISUAL DATA EXTRACTION PROTOCOL:
1. Chart title and context: what is measured, time period, scope
2. Axis labels and scales: units (billions, percentages), time periods, categories
3. Data values: precise numbers, percentages, trends
4. Footnotes and qualifiers: symbols (*, †, ‡) are critical context - always check
5. Visual emphasis: which data points are highlighted

## VALIDATION CRITERIA:
- Numerical precision: values match exactly or within rounding (±0.1% for percentages)
- Units (billions/percentages/ratios) correctly interpreted
- Time periods precisely aligned with what is shown
- Geographic scope (US vs. global) identified from visual labels
- Fund type coverage (all vs. specific) interpreted from chart context
- No cherry-picking: all relevant visual data considered

`)

	fmt.Fprintf(&b, "## VALIDATION TASK:\n\n")
	fmt.Fprintf(&b, "**Original Question**: %s\n\n", strings.TrimSpace(question))
	fmt.Fprintf(&b, "**Text Answer Being Validated**:\n%s\n\n", snippet)
	fmt.Fprintf(&b, "**Image Source**: Document: `%s`, Page: %s\n\n", chunk.DocumentName, chunk.PageNumber)

	b.WriteString(`## REQUIRED OUTPUT FORMAT:

CRITIQUE_RESULT: [CONFIRMED/REQUIRES_CORRECTION/NEEDS_ENHANCEMENT] - [Brief assessment with specific reasoning]

VISUAL_DATA_EXTRACTED: [Specific values, percentages, trends visible in the image with exact figures, units, and time periods]

ACCURACY_VALIDATION: [Point-by-point comparison of text answer vs. visual data with discrepancies noted]

SCOPE_ASSESSMENT: [Whether the text answer scope matches the visual data scope - time period, geography, fund types, completeness]

FOOTNOTE_ANALYSIS: [Any footnotes, symbols, or qualifiers visible that affect interpretation]

MISSING_INSIGHTS: [Relevant data visible in the image but not captured in the text answer]

CORRECTED_ANSWER: [If corrections are needed, the precise corrected answer based on visual data]

CONFIDENCE_IN_VALIDATION: [0.0-1.0 based on clarity of the visual data and certainty of assessment]

The page image is the authoritative source of truth. Extract exact
numerical values, not approximations.

Analysis:
`)

	return b.String()
}
