package analysis

import (
	"context"
	"fmt"
	"strings"

	"github.com/Vicistar-V/vin-stock-ai/internal/interfaces"
	"github.com/Vicistar-V/vin-stock-ai/internal/models"
	"github.com/Vicistar-V/vin-stock-ai/internal/services/llmjson"
)

// ScreenerUniverse is the only set of tickers the screener may recommend
var ScreenerUniverse = []models.StockInfo{
	{Ticker: "AAPL", Name: "Apple"},
	{Ticker: "MSFT", Name: "Microsoft"},
	{Ticker: "GOOGL", Name: "Alphabet/Google"},
	{Ticker: "META", Name: "Meta/Facebook"},
	{Ticker: "NVDA", Name: "NVIDIA"},
	{Ticker: "AMZN", Name: "Amazon"},
	{Ticker: "TSLA", Name: "Tesla"},
	{Ticker: "JPM", Name: "JPMorgan"},
	{Ticker: "NFLX", Name: "Netflix"},
}

var screenerFallback = []models.ScreenerSuggestion{
	{Ticker: "AAPL", Name: "Apple Inc", Justification: "Industry-leading technology company with strong fundamentals and innovation track record."},
	{Ticker: "MSFT", Name: "Microsoft Corp", Justification: "Dominant enterprise software and cloud computing platform with consistent growth."},
	{Ticker: "GOOGL", Name: "Alphabet Inc", Justification: "Leading search and digital advertising platform with AI and cloud capabilities."},
}

func buildScreenerPrompt(query string) string {
	available := make([]string, len(ScreenerUniverse))
	for i, s := range ScreenerUniverse {
		available[i] = fmt.Sprintf("%s (%s)", s.Ticker, s.Name)
	}

	return fmt.Sprintf(`You are a stock screener AI. Given the user's investment query, recommend 3-5 stocks from this specific list ONLY:

Available stocks: %s

User Query: "%s"

Choose the BEST matches from the available list above. Do NOT recommend any stocks not on this list.

Respond with JSON only:
{
  "interpretation": "Brief restatement of user intent",
  "suggestions": [
    {"ticker": "AAPL", "name": "Apple Inc", "justification": "Short reason why it matches from available options"},
    {"ticker": "MSFT", "name": "Microsoft Corp", "justification": "Short reason why it matches from available options"}
  ]
}`, strings.Join(available, ", "), query)
}

// Screen recommends stocks from ScreenerUniverse for a free-text query.
// An unusable reply yields three canned large-cap ideas.
func (s *Service) Screen(ctx context.Context, query string) (*models.ScreenerResult, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, models.NewInputError("Query is required")
	}
	if s.llm == nil {
		return nil, ErrNotConfigured
	}

	reply, err := s.llm.Complete(ctx, interfaces.CompletionRequest{
		Prompt:      buildScreenerPrompt(query),
		Temperature: 0.1,
		MaxTokens:   800,
	})
	if err != nil {
		return nil, err
	}

	var parsed struct {
		Interpretation string                      `json:"interpretation"`
		Suggestions    []models.ScreenerSuggestion `json:"suggestions"`
	}
	if err := llmjson.Decode(reply, &parsed); err != nil || len(parsed.Suggestions) == 0 {
		s.logger.Warn().Str("query", query).Err(err).Msg("Screener reply unusable, using fallback ideas")
		return &models.ScreenerResult{
			Success:             true,
			QueryInterpretation: "Investment ideas matching: " + query,
			Suggestions:         append([]models.ScreenerSuggestion(nil), screenerFallback...),
			Timestamp:           s.now().UTC(),
		}, nil
	}

	return &models.ScreenerResult{
		Success:             true,
		QueryInterpretation: parsed.Interpretation,
		Suggestions:         parsed.Suggestions,
		Timestamp:           s.now().UTC(),
	}, nil
}
