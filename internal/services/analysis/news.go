package analysis

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/Vicistar-V/vin-stock-ai/internal/interfaces"
	"github.com/Vicistar-V/vin-stock-ai/internal/models"
	"github.com/Vicistar-V/vin-stock-ai/internal/services/llmjson"
)

// NewsErrorSummary is the summary field of a failed news analysis body
const NewsErrorSummary = "Unable to analyze news at this time. Please try again."

func buildNewsPrompt(ticker string, articles []models.NewsArticle) string {
	lines := make([]string, len(articles))
	for i, a := range articles {
		line := fmt.Sprintf("%d. \"%s\"", i+1, a.Headline)
		if a.Summary != "" {
			line += " - " + a.Summary
		}
		lines[i] = line
	}

	return fmt.Sprintf(`Analyze %s news. Return only JSON:

News: %s

Format:
{
  "summary": "Brief impact summary",
  "sentiment_score": [1-10],
  "sentiment_justification": "Short reason",
  "key_positive_highlight": "Best news",
  "key_negative_highlight": "Main concern",
  "market_impact": "Price impact"
}`, ticker, strings.Join(lines, "\n"))
}

// AnalyzeNews scores the sentiment of the supplied articles. A reply
// without JSON becomes a neutral summary of the reply text; malformed JSON
// becomes a neutral canned analysis.
func (s *Service) AnalyzeNews(ctx context.Context, ticker string, articles []models.NewsArticle) (*models.NewsAnalysis, error) {
	if len(articles) == 0 {
		return nil, models.NewInputError("No news articles provided for analysis")
	}
	if s.llm == nil {
		return nil, ErrNotConfigured
	}

	reply, err := s.llm.Complete(ctx, interfaces.CompletionRequest{
		Prompt:      buildNewsPrompt(ticker, articles),
		Temperature: 0.1,
		MaxTokens:   400,
		Title:       "Vin Stock News Analyzer",
	})
	if err != nil {
		return nil, err
	}

	analysis := parseNewsAnalysis(reply)
	if analysis.SentimentScore < 1 || analysis.SentimentScore > 10 {
		s.logger.Warn().Str("ticker", ticker).Float64("score", analysis.SentimentScore).Msg("Sentiment score out of range")
	}

	analysis.Ticker = ticker
	analysis.ArticlesAnalyzed = len(articles)
	analysis.AnalysisTimestamp = s.now().UTC().Format(time.RFC3339Nano)
	analysis.Analyst = models.AnalystName
	return analysis, nil
}

func parseNewsAnalysis(reply string) *models.NewsAnalysis {
	cleaned := llmjson.StripPreamble(reply)

	var analysis models.NewsAnalysis
	err := llmjson.Decode(cleaned, &analysis)
	switch {
	case err == nil:
		return &analysis
	case errors.Is(err, llmjson.ErrNoJSON):
		return &models.NewsAnalysis{
			Summary:                cleaned,
			SentimentScore:         5,
			SentimentJustification: "Analysis provided",
			KeyPositiveHighlight:   "See summary for details",
			KeyNegativeHighlight:   "See summary for details",
			MarketImpact:           "Impact unclear from available data",
		}
	default:
		return &models.NewsAnalysis{
			Summary:                llmjson.Truncate(reply, 300) + "...",
			SentimentScore:         5,
			SentimentJustification: "Neutral - analysis format issue",
			KeyPositiveHighlight:   "Multiple developments noted",
			KeyNegativeHighlight:   "Some concerns mentioned",
			MarketImpact:           "Mixed signals from recent news",
		}
	}
}
