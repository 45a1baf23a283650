// Package interfaces defines service contracts for vin-stock-ai
package interfaces

import (
	"context"
	"time"

	"github.com/Vicistar-V/vin-stock-ai/internal/models"
)

// FinnhubClient provides access to the Finnhub market data API
type FinnhubClient interface {
	// GetQuote retrieves the real-time quote for a ticker
	GetQuote(ctx context.Context, ticker string) (*models.Quote, error)

	// GetProfile retrieves the company profile (profile2)
	GetProfile(ctx context.Context, ticker string) (*models.CompanyProfile, error)

	// GetCandles retrieves OHLCV bars for a resolution and time range
	GetCandles(ctx context.Context, ticker, resolution string, from, to time.Time) ([]models.Candle, error)

	// GetMetrics retrieves basic financials (metric=all)
	GetMetrics(ctx context.Context, ticker string) (models.Metrics, error)

	// GetCompanyNews retrieves company news published between from and to
	GetCompanyNews(ctx context.Context, ticker string, from, to time.Time) ([]*models.NewsItem, error)

	// GetFilings retrieves the regulatory filing listing, most recent first
	GetFilings(ctx context.Context, ticker string) ([]models.Filing, error)
}

// CompletionRequest is a single-turn LLM completion
type CompletionRequest struct {
	System      string
	Prompt      string
	Temperature float64
	MaxTokens   int
	TopP        float64
	JSONMode    bool   // ask the provider for a JSON object response
	Title       string // caller label sent to providers that accept one
}

// LLMClient generates text completions
type LLMClient interface {
	Complete(ctx context.Context, req CompletionRequest) (string, error)
}

// DocumentFetcher downloads filing documents
type DocumentFetcher interface {
	FetchDocument(ctx context.Context, url string) (string, error)
}
