package market

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/Vicistar-V/vin-stock-ai/internal/interfaces"
	"github.com/Vicistar-V/vin-stock-ai/internal/models"
)

// UnrecognizedQueryMessage is returned when no ticker could be extracted
const UnrecognizedQueryMessage = `Could not identify a valid stock ticker from your query. Please try searching for a publicly traded company (e.g., "Apple", "Microsoft", "TSLA") or a specific ticker symbol.`

// SearchSuggestions accompany UnrecognizedQueryMessage
var SearchSuggestions = []string{
	"Try using the company name instead of products",
	"Use well-known ticker symbols like AAPL, MSFT, GOOGL",
	"Make sure the company is publicly traded",
}

var (
	// ErrNotConfigured means search has no LLM client
	ErrNotConfigured = errors.New("search requires an LLM client")
	// ErrMissingTicker means a ticker-scoped call got a blank ticker
	ErrMissingTicker = errors.New("missing ticker")
)

// ErrUnrecognizedQuery means the model did not produce a usable ticker
var ErrUnrecognizedQuery = errors.New("unrecognized stock query")

// TickerNotFoundError means the extracted ticker has no quote
type TickerNotFoundError struct {
	Ticker string
}

func (e *TickerNotFoundError) Error() string {
	return fmt.Sprintf("No stock data found for ticker %q. Please check if this is a valid stock symbol.", e.Ticker)
}

func (e *TickerNotFoundError) Unwrap() error {
	return models.ErrNotFound
}

func buildTickerPrompt(query string) string {
	return query + "\n\nRespond with only the stock ticker symbol (like AAPL, MSFT, GOOGL, AMZN, TSLA, META, NFLX) or UNKNOWN:"
}

// parseTickerReply normalises the model reply and reports whether it is usable
func parseTickerReply(reply string) (string, bool) {
	ticker := strings.ToUpper(strings.TrimSpace(reply))
	if ticker == "UNKNOWN" || len(ticker) < 1 || len(ticker) > 5 {
		return ticker, false
	}
	return ticker, true
}

// SearchStock resolves a natural-language query to a ticker with the LLM,
// then returns its quote and company block.
func (s *Service) SearchStock(ctx context.Context, query string) (*models.SearchResult, error) {
	if s.llm == nil {
		return nil, ErrNotConfigured
	}
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, ErrUnrecognizedQuery
	}

	reply, err := s.llm.Complete(ctx, interfaces.CompletionRequest{
		Prompt:      buildTickerPrompt(query),
		Temperature: 0,
		MaxTokens:   10,
	})
	if err != nil {
		return nil, fmt.Errorf("ticker extraction failed: %w", err)
	}

	ticker, ok := parseTickerReply(reply)
	s.logger.Debug().Str("query", query).Str("ticker", ticker).Msg("Extracted ticker")
	if !ok {
		return nil, ErrUnrecognizedQuery
	}

	quote, err := s.finnhub.GetQuote(ctx, ticker)
	if err != nil {
		return nil, fmt.Errorf("Finnhub quote API error: %w", err)
	}

	var company *models.CompanyInfo
	if profile, err := s.finnhub.GetProfile(ctx, ticker); err == nil && profile != nil {
		company = &models.CompanyInfo{
			Name:      profile.Name,
			Logo:      profile.Logo,
			Country:   profile.Country,
			Currency:  profile.Currency,
			Exchange:  profile.Exchange,
			MarketCap: profile.MarketCap,
			Industry:  profile.Industry,
			Website:   profile.WebURL,
		}
	}

	if quote.Current == 0 {
		return nil, &TickerNotFoundError{Ticker: ticker}
	}

	change := quote.Current - quote.PreviousClose
	result := &models.SearchResult{
		Ticker:        ticker,
		CurrentPrice:  quote.Current,
		PreviousClose: quote.PreviousClose,
		DayHigh:       quote.High,
		DayLow:        quote.Low,
		OpenPrice:     quote.Open,
		PriceChange:   change,
		Company:       company,
	}
	if quote.PreviousClose > 0 {
		result.PriceChangePercent = change / quote.PreviousClose * 100
	}
	if !quote.Timestamp.IsZero() {
		result.Timestamp = quote.Timestamp.Unix()
	}
	return result, nil
}
