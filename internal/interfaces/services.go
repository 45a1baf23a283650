package interfaces

import (
	"context"
	"time"

	"github.com/Vicistar-V/vin-stock-ai/internal/models"
)

// MarketService serves quote-derived market data
type MarketService interface {
	// GetStockDetail returns the detail summary, substituting a mock on upstream failure
	GetStockDetail(ctx context.Context, ticker string) (*models.StockDetail, error)

	// GetChart returns chart points for a timeframe, substituting a random walk on failure
	GetChart(ctx context.Context, ticker, timeframe string) (*models.ChartResponse, error)

	// RenderChartPNG renders the timeframe chart as a PNG image
	RenderChartPNG(ctx context.Context, ticker, timeframe string) ([]byte, error)

	GetPopularStocks(ctx context.Context) ([]models.PopularStock, error)
	GetMarketMovers(ctx context.Context) (*models.MarketMovers, error)

	// SearchStock resolves a natural-language query to a ticker and quotes it
	SearchStock(ctx context.Context, query string) (*models.SearchResult, error)

	GetFinancialMetrics(ctx context.Context, ticker string) ([]models.FinancialMetric, error)
	GetMarketStatus(now time.Time) models.MarketStatus
}

// FilingService summarises regulatory filing sections
type FilingService interface {
	AnalyzeFiling(ctx context.Context, ticker, section string) (*models.FilingAnalysis, error)
}

// AnalysisService hosts the LLM research features
type AnalysisService interface {
	AnalyzeNews(ctx context.Context, ticker string, articles []models.NewsArticle) (*models.NewsAnalysis, error)
	AnalyzePortfolio(ctx context.Context, holdings string) (*models.PortfolioAnalysis, error)
	SectorPulse(ctx context.Context, sector string, tickers []string) (*models.SectorPulse, error)
	CompareStocks(ctx context.Context, ticker1, ticker2 string) (*models.ComparisonResult, error)
	AnalyzeOutlook(ctx context.Context, ticker, analysisType string) (*models.OutlookAnalysis, error)
	Screen(ctx context.Context, query string) (*models.ScreenerResult, error)
	ExplainMetric(ctx context.Context, ticker, metricName string, metricValue any) (*models.MetricExplanation, error)
}

// UpdaterService runs the quote/news/history batch
type UpdaterService interface {
	RunOnce(ctx context.Context) (*models.UpdateResult, error)
}

// DashboardResult is a dashboard payload and its cache state
type DashboardResult struct {
	Data      models.DashboardPayload
	Fresh     bool // served from cache within the freshness window
	FetchedAt time.Time
}

// DashboardService is the cached dashboard data source
type DashboardService interface {
	Get(ctx context.Context, ticker, timeframe string) (*DashboardResult, error)
	Refresh(ctx context.Context, ticker, timeframe string) (*DashboardResult, error)
	IsFresh(ticker, timeframe string) bool
	Invalidate()
}
