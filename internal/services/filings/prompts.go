package filings

import (
	"fmt"

	"github.com/Vicistar-V/vin-stock-ai/internal/services/llmjson"
)

const systemPrompt = "You are a financial analyst. Provide clear analysis in bullet points."

// buildPrompt renders the per-section instructions. Filing content is only
// attached when the extracted section is substantial; otherwise the model
// is asked for a typical-company analysis.
func buildPrompt(ticker, section, relevant string) string {
	kind := KindOf(section)

	tail := typicalHint(kind, ticker)
	if len(relevant) > minSectionChars {
		tail = "Filing content: " + llmjson.Truncate(relevant, promptContentChars)
	}

	switch kind {
	case SectionRisk:
		return fmt.Sprintf(`Analyze %s's key risk factors and provide:

**Top 5 Business Risks:**
1. [Risk name]: Brief explanation and potential impact
2. [Risk name]: Brief explanation and potential impact
3. [Risk name]: Brief explanation and potential impact
4. [Risk name]: Brief explanation and potential impact
5. [Risk name]: Brief explanation and potential impact

**Key Investor Considerations:**
• [Key consideration 1]
• [Key consideration 2]
• [Key consideration 3]

%s`, ticker, tail)

	case SectionManagement:
		return fmt.Sprintf(`Analyze %s's management discussion and provide:

**Business Performance Highlights:**
• [Key highlight 1]
• [Key highlight 2]
• [Key highlight 3]

**Strategic Outlook:**
• [Strategy point 1]
• [Strategy point 2]
• [Strategy point 3]

**Key Challenges & Opportunities:**
• [Challenge/opportunity 1]
• [Challenge/opportunity 2]
• [Challenge/opportunity 3]

**Financial Trends:**
• [Trend 1]
• [Trend 2]
• [Trend 3]

%s`, ticker, tail)

	case SectionRevenue:
		return fmt.Sprintf(`Analyze %s's revenue structure and provide:

**Primary Revenue Sources:**
1. [Segment]: $X billion (X%% of total) - Description
2. [Segment]: $X billion (X%% of total) - Description
3. [Segment]: $X billion (X%% of total) - Description

**Revenue Growth Drivers:**
• [Driver 1]: Impact and trend
• [Driver 2]: Impact and trend
• [Driver 3]: Impact and trend

**Geographic/Product Breakdown:**
• [Region/Product]: Performance and outlook
• [Region/Product]: Performance and outlook
• [Region/Product]: Performance and outlook

**Key Performance Factors:**
• [Factor 1]
• [Factor 2]
• [Factor 3]

%s`, ticker, tail)

	default:
		// Unrecognised sections still get a summary instead of an empty prompt
		return fmt.Sprintf("Summarize the %s section of %s's latest SEC filing in clear bullet points.\n\n%s", section, ticker, tail)
	}
}

func typicalHint(kind SectionKind, ticker string) string {
	switch kind {
	case SectionRisk:
		return fmt.Sprintf("Provide analysis based on typical risks for %s including technology, competition, regulatory, and market risks.", ticker)
	case SectionManagement:
		return fmt.Sprintf("Provide analysis based on typical management discussion topics for %s.", ticker)
	case SectionRevenue:
		return fmt.Sprintf("Provide analysis based on typical revenue structure for %s.", ticker)
	default:
		return fmt.Sprintf("Provide analysis based on typical disclosures for %s.", ticker)
	}
}
