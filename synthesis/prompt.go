package synthesis

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/c360studio/pagelens/vision"
)

// buildDraftPrompt produces the analytical drafting prompt. The output
// format is load-bearing: citation extraction and confidence filtering
// parse the DIRECT ANSWER / CONFIDENCE / CITED SOURCES sections.
func buildDraftPrompt(question, context string, year int) string {
	y := strconv.Itoa(year)
	prior := strconv.Itoa(year - 1)

	var b strings.Builder
	b.WriteString("You are an expert analyst of the " + y + " Investment Company Institute (ICI) Fact Book, a comprehensive\n")
	b.WriteString("statistical compendium containing precise financial data about US and global investment companies.\n\n")

	b.WriteString("## KNOWN DATA CONTEXT:\n")
	b.WriteString("- Total registered investment company assets: ~$27+ trillion as of year-end " + y + "\n")
	b.WriteString("- Breakdown by: Mutual Funds (~$20+ trillion), ETFs (~$6+ trillion), Closed-End (~$200+ billion)\n")
	b.WriteString("- Major asset classes: Equity (domestic/international), Fixed Income, Money Market, Hybrid\n\n")

	b.WriteString("## TERMINOLOGY PRECISION:\n")
	b.WriteString("- \"Net assets\" = Assets minus liabilities (standard ICI metric)\n")
	b.WriteString("- \"Total net assets\" = Sum across all fund types unless qualified\n")
	b.WriteString("- \"Fund assets\" = Assets within specific fund type only\n")
	b.WriteString("- \"Investment company assets\" = All registered funds combined\n\n")

	b.WriteString("## VALIDATION CHECKS:\n")
	b.WriteString("1. Scale reasonableness: US mutual fund assets should be in the $15-25 trillion range\n")
	b.WriteString("2. Percentage validation: asset allocation percentages must sum to ~100%\n")
	b.WriteString("3. Temporal consistency: " + y + " data should show logical progression from " + prior + "\n")
	b.WriteString("4. Fund type ratios: mutual funds typically 3-4x larger than ETF assets\n")
	b.WriteString("- Billions vs. trillions notation matters; US-only vs. global data distinction is critical\n")
	b.WriteString("- Always specify the data year and whether data is year-end vs. quarterly\n\n")

	b.WriteString("## CONFIDENCE SCORING:\n")
	b.WriteString("- 1.0: Direct table lookup with exact match to question parameters\n")
	b.WriteString("- 0.9: Clear chart data with minor interpolation required\n")
	b.WriteString("- 0.8: Multiple consistent sources supporting same conclusion\n")
	b.WriteString("- 0.7: Single good source but some scope mismatch (e.g., " + prior + " vs " + y + " data)\n")
	b.WriteString("- 0.6: Partial data requiring reasonable inference\n")
	b.WriteString("- 0.5: Limited data with significant uncertainty\n")
	b.WriteString("- <0.5: Insufficient data to answer question reliably\n")
	b.WriteString("Reduce confidence for time-period mismatch (-0.1 to -0.2), geographic scope mismatch (-0.2),\n")
	b.WriteString("fund-type scope mismatch (-0.1 to -0.3), conflicting sources (-0.3 to -0.5).\n\n")

	b.WriteString("---\n\n")
	b.WriteString("## USER QUESTION:\n" + strings.TrimSpace(question) + "\n\n")
	b.WriteString("## CONTEXT BLOCKS:\n" + context + "\n\n")
	b.WriteString("---\n\n")

	b.WriteString("## REQUIRED OUTPUT FORMAT:\n\n")
	b.WriteString("DIRECT ANSWER: [Precise numerical answer with units, time period, and scope clearly specified]\n\n")
	b.WriteString("CONFIDENCE: [0.0-1.0 following guidelines above, with specific reasoning for score]\n\n")
	b.WriteString("JUSTIFICATION: [Explanation referencing specific data points, noting any limitations, scope restrictions, or validation checks applied]\n\n")
	b.WriteString("CITED SOURCES: [" + y + "-factbook - page X](presigned_url) [" + y + "-factbook - page Y](presigned_url)\n\n")
	b.WriteString("Your Response:\n")

	return b.String()
}

// buildMergePrompt produces the final synthesis prompt combining the
// text draft with the surviving visual critiques.
func buildMergePrompt(question, draft string, critiques []vision.CritiqueResult, year int) string {
	y := strconv.Itoa(year)

	sections := make([]string, 0, len(critiques))
	for _, c := range critiques {
		sections = append(sections, strings.TrimSpace(fmt.Sprintf(
			"Source Image: [%s - page %s](%s)\n\nVisual Validation Results:\n%s",
			c.DocumentName, c.Page, c.PresignedURL, c.Result)))
	}
	critiqueBlock := strings.Join(sections, "\n\n")

	var b strings.Builder
	b.WriteString("You are synthesizing the definitive answer to a question about " + y + " ICI Investment Company Fact Book data,\n")
	b.WriteString("combining text-based analysis with visual validation from actual document pages.\n\n")

	b.WriteString("## USER QUESTION:\n" + question + "\n\n")
	b.WriteString("## TEXT-BASED ANALYSIS:\n" + draft + "\n\n")
	b.WriteString("## VISUAL VALIDATION RESULTS:\n" + critiqueBlock + "\n\n")

	b.WriteString("## ACCURACY PRIORITY HIERARCHY:\n")
	b.WriteString("1. Visual data from source pages (authoritative when clear and relevant)\n")
	b.WriteString("2. Text analysis validated by visuals (high confidence)\n")
	b.WriteString("3. Consistent text analysis across sources (good confidence)\n")
	b.WriteString("4. Single source text analysis (moderate confidence)\n")
	b.WriteString("5. Inference from partial data (low confidence, note limitations)\n\n")

	b.WriteString("## CONFLICT RESOLUTION:\n")
	b.WriteString("- If visual contradicts text: prioritize visual data (page images are source of truth)\n")
	b.WriteString("- If multiple visuals conflict: note discrepancy and use most comprehensive source\n")
	b.WriteString("- If visual unclear: rely on text analysis but note visual limitation\n")
	b.WriteString("- If both uncertain: provide best available answer with clear confidence qualifier\n\n")

	b.WriteString("## PRECISION STANDARDS:\n")
	b.WriteString("- Maintain exact numerical values from authoritative sources\n")
	b.WriteString("- Specify time periods, geographic scope, and data universe\n")
	b.WriteString("- Include appropriate units (billions of dollars, percentages, basis points)\n")
	b.WriteString("- Lead with the direct numerical answer, then relevant context and qualifiers\n\n")

	b.WriteString("## OUTPUT FORMAT:\n\n")
	b.WriteString("[Comprehensive, accurate answer based on synthesis of all available data, leading with the direct\n")
	b.WriteString("response to the question, followed by relevant context and qualifiers]\n\n")
	b.WriteString("**Cited Sources**:\n")
	b.WriteString("- [" + y + "-factbook - page X](url)\n")
	b.WriteString("- [" + y + "-factbook - page Y](url)\n\n")
	b.WriteString("Final Answer:\n")

	return b.String()
}
