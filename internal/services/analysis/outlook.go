package analysis

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/Vicistar-V/vin-stock-ai/internal/interfaces"
	"github.com/Vicistar-V/vin-stock-ai/internal/models"
	"github.com/Vicistar-V/vin-stock-ai/internal/services/llmjson"
)

const (
	outlookNewsLimit    = 10
	outlookSummaryChars = 150
)

// Intro sentences the model tends to emit before the bullet list
var outlookIntros = []*regexp.Regexp{
	regexp.MustCompile(`(?i)^.*?here\s+are?\s+\d+-?\d*.*?:`),
	regexp.MustCompile(`(?i)^.*?following\s+are?\s+the.*?:`),
	regexp.MustCompile(`(?i)^.*?below\s+are?\s+.*?:`),
}

// CleanOutlook removes intro text so the reply starts at the first bullet
func CleanOutlook(text string) string {
	for _, p := range outlookIntros {
		text = p.ReplaceAllString(text, "")
	}
	if i := strings.Index(text, "•"); i > 0 {
		text = text[i:]
	}
	return strings.TrimSpace(text)
}

func buildOutlookPrompt(ticker, description, recentNews string, risks bool) string {
	focusArea := "potential future opportunities and growth drivers"
	perspective := "growth opportunities, market expansion, technological advantages, and positive catalysts"
	subject := "potential future opportunities"
	if risks {
		focusArea = "potential future risks and challenges"
		perspective = "threats, challenges, competitive pressures, regulatory risks, and market headwinds"
		subject = "potential future risks"
	}

	return fmt.Sprintf(`You are a strategic foresight expert specializing in financial markets and investment analysis. Your job is to identify %s for the following company based on the provided context.

COMPANY: %s
DESCRIPTION: %s

RECENT MARKET CONTEXT:
%s

Generate exactly 4 %s that could significantly impact this company over the next 1-3 years. Focus on %s.

CRITICAL FORMATTING REQUIREMENTS:
- Start IMMEDIATELY with the first bullet point
- NO introductory text, headers, or conclusions
- Each bullet point must start with "• **Title**: Description"
- Be specific, actionable, and forward-looking
- Each point should be 2-3 sentences maximum

Example format:
• **Regulatory Challenges**: New AI regulations could limit AWS growth in Europe...
• **Competition Intensification**: Microsoft's AI partnerships threaten cloud market share...`,
		focusArea, ticker, description, recentNews, subject, perspective)
}

func (s *Service) outlookNews(ctx context.Context, ticker string) string {
	if s.store == nil {
		return "No recent news available"
	}
	items, err := s.store.LatestNews(ctx, ticker, outlookNewsLimit)
	if err != nil {
		s.logger.Warn().Str("ticker", ticker).Err(err).Msg("Stored news unavailable")
	}
	if len(items) == 0 {
		return "No recent news available"
	}

	lines := make([]string, len(items))
	for i, item := range items {
		line := "• " + item.Headline
		if item.Summary != "" {
			line += ": " + llmjson.Truncate(item.Summary, outlookSummaryChars) + "..."
		}
		lines[i] = line
	}
	return strings.Join(lines, "\n")
}

// AnalyzeOutlook lists four forward-looking risks ("risks") or
// opportunities (any other type) as "• **Title**: Description" bullets.
func (s *Service) AnalyzeOutlook(ctx context.Context, ticker, analysisType string) (*models.OutlookAnalysis, error) {
	ticker = strings.ToUpper(strings.TrimSpace(ticker))
	analysisType = strings.TrimSpace(analysisType)
	if ticker == "" || analysisType == "" {
		return nil, ErrMissingOutlookParams
	}
	if s.finnhub == nil || s.llm == nil {
		return nil, ErrNotConfigured
	}

	var profile *models.CompanyProfile
	if p, err := s.finnhub.GetProfile(ctx, ticker); err == nil && p != nil && p.Name != "" {
		profile = p
	}

	description := ticker + " stock"
	companyName := ticker
	if profile != nil {
		industry := profile.Industry
		if industry == "" {
			industry = "Technology"
		}
		description = fmt.Sprintf("%s - %s. %s", profile.Name, industry, profile.WebURL)
		companyName = profile.Name
	}

	risks := strings.EqualFold(analysisType, "risks")
	reply, err := s.llm.Complete(ctx, interfaces.CompletionRequest{
		Prompt:      buildOutlookPrompt(ticker, description, s.outlookNews(ctx, ticker), risks),
		Temperature: 0.7,
		MaxTokens:   1000,
		Title:       "Vin Stock Future Outlook Analyzer",
	})
	if err != nil {
		return nil, fmt.Errorf("outlook completion: %w", err)
	}
	if strings.TrimSpace(reply) == "" {
		return nil, ErrEmptyReply
	}

	return &models.OutlookAnalysis{
		Success:      true,
		Analysis:     CleanOutlook(reply),
		AnalysisType: analysisType,
		Ticker:       ticker,
		CompanyName:  companyName,
		Timestamp:    s.now().UTC(),
	}, nil
}
