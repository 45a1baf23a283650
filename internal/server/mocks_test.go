package server

import (
	"context"
	"time"

	"github.com/Vicistar-V/vin-stock-ai/internal/app"
	"github.com/Vicistar-V/vin-stock-ai/internal/common"
	"github.com/Vicistar-V/vin-stock-ai/internal/interfaces"
	"github.com/Vicistar-V/vin-stock-ai/internal/models"
	"github.com/Vicistar-V/vin-stock-ai/internal/realtime"
)

type mockMarket struct {
	interfaces.MarketService
	detail    *models.StockDetail
	chart     *models.ChartResponse
	png       []byte
	popular   []models.PopularStock
	movers    *models.MarketMovers
	moversErr error
	search    *models.SearchResult
	searchErr error
	metrics   []models.FinancialMetric
	metricErr error

	lastTicker, lastTimeframe string
}

func (m *mockMarket) GetStockDetail(_ context.Context, ticker string) (*models.StockDetail, error) {
	m.lastTicker = ticker
	return m.detail, nil
}

func (m *mockMarket) GetChart(_ context.Context, ticker, timeframe string) (*models.ChartResponse, error) {
	m.lastTicker, m.lastTimeframe = ticker, timeframe
	return m.chart, nil
}

func (m *mockMarket) RenderChartPNG(_ context.Context, ticker, timeframe string) ([]byte, error) {
	m.lastTicker, m.lastTimeframe = ticker, timeframe
	return m.png, nil
}

func (m *mockMarket) GetPopularStocks(context.Context) ([]models.PopularStock, error) {
	return m.popular, nil
}

func (m *mockMarket) GetMarketMovers(context.Context) (*models.MarketMovers, error) {
	return m.movers, m.moversErr
}

func (m *mockMarket) SearchStock(context.Context, string) (*models.SearchResult, error) {
	return m.search, m.searchErr
}

func (m *mockMarket) GetFinancialMetrics(_ context.Context, ticker string) ([]models.FinancialMetric, error) {
	m.lastTicker = ticker
	return m.metrics, m.metricErr
}

func (m *mockMarket) GetMarketStatus(now time.Time) models.MarketStatus {
	return models.MarketStatus{IsOpen: true, Timezone: "America/New_York", Now: now}
}

type mockAnalysis struct {
	interfaces.AnalysisService
	err error

	news     *models.NewsAnalysis
	explain  *models.MetricExplanation
	compare  *models.ComparisonResult
	screener *models.ScreenerResult
	pulse    *models.SectorPulse
	outlook  *models.OutlookAnalysis
	folio    *models.PortfolioAnalysis

	gotArticles []models.NewsArticle
	gotValue    any
	gotTickers  []string
}

func (m *mockAnalysis) AnalyzeNews(_ context.Context, _ string, articles []models.NewsArticle) (*models.NewsAnalysis, error) {
	m.gotArticles = articles
	return m.news, m.err
}

func (m *mockAnalysis) ExplainMetric(_ context.Context, _, _ string, value any) (*models.MetricExplanation, error) {
	m.gotValue = value
	return m.explain, m.err
}

func (m *mockAnalysis) CompareStocks(context.Context, string, string) (*models.ComparisonResult, error) {
	return m.compare, m.err
}

func (m *mockAnalysis) Screen(context.Context, string) (*models.ScreenerResult, error) {
	return m.screener, m.err
}

func (m *mockAnalysis) SectorPulse(_ context.Context, _ string, tickers []string) (*models.SectorPulse, error) {
	m.gotTickers = tickers
	return m.pulse, m.err
}

func (m *mockAnalysis) AnalyzeOutlook(context.Context, string, string) (*models.OutlookAnalysis, error) {
	return m.outlook, m.err
}

func (m *mockAnalysis) AnalyzePortfolio(context.Context, string) (*models.PortfolioAnalysis, error) {
	return m.folio, m.err
}

type mockFilings struct {
	result *models.FilingAnalysis
	err    error
}

func (m *mockFilings) AnalyzeFiling(context.Context, string, string) (*models.FilingAnalysis, error) {
	return m.result, m.err
}

type mockUpdater struct {
	result *models.UpdateResult
	err    error
	runs   int
}

func (m *mockUpdater) RunOnce(context.Context) (*models.UpdateResult, error) {
	m.runs++
	return m.result, m.err
}

type mockDashboard struct {
	interfaces.DashboardService
	result    *interfaces.DashboardResult
	err       error
	refreshed bool
	gotKey    [2]string
}

func (m *mockDashboard) Get(_ context.Context, ticker, timeframe string) (*interfaces.DashboardResult, error) {
	m.gotKey = [2]string{ticker, timeframe}
	return m.result, m.err
}

func (m *mockDashboard) Refresh(ctx context.Context, ticker, timeframe string) (*interfaces.DashboardResult, error) {
	m.refreshed = true
	return m.Get(ctx, ticker, timeframe)
}

type testDeps struct {
	market    *mockMarket
	analysis  *mockAnalysis
	filings   *mockFilings
	updater   *mockUpdater
	dashboard *mockDashboard
}

var testNow = time.Date(2025, 6, 2, 14, 0, 0, 0, time.UTC)

func newTestServer() (*Server, *testDeps) {
	deps := &testDeps{
		market:    &mockMarket{},
		analysis:  &mockAnalysis{},
		filings:   &mockFilings{},
		updater:   &mockUpdater{},
		dashboard: &mockDashboard{},
	}
	logger := common.NewSilentLogger()
	a := &app.App{
		Config:           common.NewDefaultConfig(),
		Logger:           logger,
		MarketService:    deps.market,
		AnalysisService:  deps.analysis,
		FilingService:    deps.filings,
		UpdaterService:   deps.updater,
		DashboardService: deps.dashboard,
		Hub:              realtime.NewHub(logger),
	}
	s := NewServer(a)
	s.now = func() time.Time { return testNow }
	return s, deps
}
