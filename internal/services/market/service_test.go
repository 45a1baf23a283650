package market

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Vicistar-V/vin-stock-ai/internal/common"
	"github.com/Vicistar-V/vin-stock-ai/internal/interfaces"
	"github.com/Vicistar-V/vin-stock-ai/internal/models"
)

// --- Mocks ---

type mockFinnhub struct {
	mu         sync.Mutex
	quotes     map[string]*models.Quote
	quoteErr   map[string]error
	profiles   map[string]*models.CompanyProfile
	candles    []models.Candle
	candleErr  error
	metrics    models.Metrics
	metricsErr error

	lastResolution string
	lastFrom       time.Time
	lastTo         time.Time
}

func (m *mockFinnhub) GetQuote(_ context.Context, ticker string) (*models.Quote, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.quoteErr[ticker]; err != nil {
		return nil, err
	}
	if q, ok := m.quotes[ticker]; ok {
		cp := *q
		return &cp, nil
	}
	return &models.Quote{Ticker: ticker}, nil
}

func (m *mockFinnhub) GetProfile(_ context.Context, ticker string) (*models.CompanyProfile, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if p, ok := m.profiles[ticker]; ok {
		return p, nil
	}
	return &models.CompanyProfile{Ticker: ticker}, nil
}

func (m *mockFinnhub) GetCandles(_ context.Context, _ string, resolution string, from, to time.Time) ([]models.Candle, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.lastResolution, m.lastFrom, m.lastTo = resolution, from, to
	return m.candles, m.candleErr
}

func (m *mockFinnhub) GetMetrics(_ context.Context, _ string) (models.Metrics, error) {
	return m.metrics, m.metricsErr
}

func (m *mockFinnhub) GetCompanyNews(_ context.Context, _ string, _, _ time.Time) ([]*models.NewsItem, error) {
	return nil, nil
}

func (m *mockFinnhub) GetFilings(_ context.Context, _ string) ([]models.Filing, error) {
	return nil, nil
}

type mockLLM struct {
	reply string
	err   error
	reqs  []interfaces.CompletionRequest
}

func (m *mockLLM) Complete(_ context.Context, req interfaces.CompletionRequest) (string, error) {
	m.reqs = append(m.reqs, req)
	return m.reply, m.err
}

var fixedNow = time.Date(2025, 1, 6, 15, 0, 0, 0, time.UTC)

func newTestService(fh *mockFinnhub, llm interfaces.LLMClient, random float64) *Service {
	svc := NewService(fh, llm, common.NewSilentLogger())
	svc.now = func() time.Time { return fixedNow }
	svc.random = func() float64 { return random }
	return svc
}

// --- Stock detail ---

func TestGetStockDetail_ComputesFromQuote(t *testing.T) {
	fh := &mockFinnhub{
		quotes:   map[string]*models.Quote{"NFLX": {Current: 110, PreviousClose: 100, Low: 99, Volume: 1200}},
		profiles: map[string]*models.CompanyProfile{"NFLX": {Name: "Netflix Inc", MarketCap: 2000}},
	}
	svc := newTestService(fh, nil, 0.5)

	d, err := svc.GetStockDetail(context.Background(), " nflx ")
	require.NoError(t, err)
	assert.Equal(t, "NFLX", d.Ticker)
	assert.Equal(t, "Netflix Inc", d.Name)
	assert.Equal(t, "https://logo.clearbit.com/netflix.com", d.Logo)
	assert.Equal(t, 10.0, d.PriceChange)
	assert.InDelta(t, 10.0, d.ChangePercent, 1e-9)
	assert.Equal(t, 110.0, d.High, "missing high defaults to current")
	assert.Equal(t, 99.0, d.Low)
	assert.Equal(t, 110.0, d.Open)
	assert.Equal(t, 2e9, d.MarketCap)
	assert.False(t, d.Fallback)
}

func TestGetStockDetail_NameFallback(t *testing.T) {
	fh := &mockFinnhub{quotes: map[string]*models.Quote{"XYZ": {Current: 5}}}
	svc := newTestService(fh, nil, 0.5)

	d, err := svc.GetStockDetail(context.Background(), "xyz")
	require.NoError(t, err)
	assert.Equal(t, "XYZ Corporation", d.Name)
	assert.Equal(t, "https://logo.clearbit.com/xyz.com", d.Logo)
	assert.Zero(t, d.ChangePercent, "no previous close means no percent")
	assert.Equal(t, 5.0, d.PreviousClose)
	assert.Zero(t, d.MarketCap)
}

func TestGetStockDetail_ZeroPriceUsesFallback(t *testing.T) {
	svc := newTestService(&mockFinnhub{}, nil, 0.5)

	d, err := svc.GetStockDetail(context.Background(), "AAPL")
	require.NoError(t, err)
	assert.True(t, d.Fallback)
	assert.Equal(t, 175.25, d.CurrentPrice)
	assert.Equal(t, 0.0, d.PriceChange)
	assert.Equal(t, 155.80, d.High)
	assert.Equal(t, 149.15, d.PreviousClose)
	assert.Equal(t, int64(45200000), d.Volume)
	assert.Equal(t, 2.5e12, d.MarketCap)
	assert.Equal(t, "AAPL Corporation", d.Name)
}

func TestGetStockDetail_QuoteErrorUsesFallback(t *testing.T) {
	fh := &mockFinnhub{quoteErr: map[string]error{"AAPL": errors.New("429")}}
	svc := newTestService(fh, nil, 0)

	d, err := svc.GetStockDetail(context.Background(), "AAPL")
	require.NoError(t, err)
	assert.True(t, d.Fallback)
	assert.Equal(t, 150.25, d.CurrentPrice)
}

func TestGetStockDetail_EmptyTicker(t *testing.T) {
	svc := newTestService(&mockFinnhub{}, nil, 0)
	_, err := svc.GetStockDetail(context.Background(), "  ")
	assert.Error(t, err)
}

// --- Chart ---

func TestGetChart_MapsCandles(t *testing.T) {
	fh := &mockFinnhub{candles: []models.Candle{
		{Time: time.Unix(1711670340, 0), Close: 43.25},
		{Time: time.Unix(1711670640, 0), Close: 43.5},
	}}
	svc := newTestService(fh, nil, 0.5)

	resp, err := svc.GetChart(context.Background(), "BHP", "1D")
	require.NoError(t, err)
	assert.False(t, resp.Fallback)
	require.Len(t, resp.Data, 2)
	assert.Equal(t, int64(1711670340000), resp.Data[0].Timestamp)
	assert.Equal(t, "2024-03-28T23:59:00.000Z", resp.Data[0].Date)
	assert.Equal(t, "5", fh.lastResolution)
	assert.Equal(t, 24*time.Hour, fh.lastTo.Sub(fh.lastFrom))
}

func TestGetChart_DefaultTimeframeIsOneYearWeekly(t *testing.T) {
	fh := &mockFinnhub{candles: []models.Candle{{Time: fixedNow, Close: 1}}}
	svc := newTestService(fh, nil, 0.5)

	resp, err := svc.GetChart(context.Background(), "AAPL", "")
	require.NoError(t, err)
	assert.Equal(t, "1Y", resp.Timeframe)
	assert.Equal(t, "W", fh.lastResolution)
	assert.Equal(t, 365*24*time.Hour, fh.lastTo.Sub(fh.lastFrom))
}

func TestRangeFor(t *testing.T) {
	tests := []struct {
		timeframe  string
		lookback   time.Duration
		resolution string
	}{
		{"1D", 24 * time.Hour, "5"},
		{"5D", 5 * 24 * time.Hour, "30"},
		{"1M", 30 * 24 * time.Hour, "D"},
		{"6M", 180 * 24 * time.Hour, "D"},
		{"1Y", 365 * 24 * time.Hour, "W"},
		{"MAX", 5 * 365 * 24 * time.Hour, "M"},
		{"3Y", 365 * 24 * time.Hour, "W"},
	}
	for _, tt := range tests {
		r := RangeFor(tt.timeframe)
		assert.Equal(t, tt.lookback, r.Lookback, tt.timeframe)
		assert.Equal(t, tt.resolution, r.Resolution, tt.timeframe)
	}
}

func TestGetChart_FallbackWalk(t *testing.T) {
	fh := &mockFinnhub{candleErr: models.ErrNoData}

	tests := []struct {
		timeframe string
		points    int
	}{
		{"1D", 48},
		{"5D", 120},
		{"1M", 252},
		{"MAX", 252},
	}
	for _, tt := range tests {
		svc := newTestService(fh, nil, 0.5)
		resp, err := svc.GetChart(context.Background(), "AAPL", tt.timeframe)
		require.NoError(t, err)
		assert.True(t, resp.Fallback)
		require.Len(t, resp.Data, tt.points, tt.timeframe)

		last := resp.Data[len(resp.Data)-1]
		assert.Equal(t, fixedNow.Add(-time.Hour).UnixMilli(), last.Timestamp)
		assert.Equal(t, 175.0, last.Price)
	}
}

func TestGetChart_FallbackFloorsAtFifty(t *testing.T) {
	svc := newTestService(&mockFinnhub{candleErr: models.ErrNoData}, nil, 0)

	resp, err := svc.GetChart(context.Background(), "AAPL", "1Y")
	require.NoError(t, err)
	assert.Equal(t, 149.0, resp.Data[0].Price)
	for _, p := range resp.Data {
		assert.GreaterOrEqual(t, p.Price, 50.0)
	}
	assert.Equal(t, 50.0, resp.Data[len(resp.Data)-1].Price)
}

func TestRenderPriceChart(t *testing.T) {
	points := []models.ChartPoint{
		models.NewChartPoint(fixedNow.Add(-2*time.Hour), 100),
		models.NewChartPoint(fixedNow.Add(-time.Hour), 101),
		models.NewChartPoint(fixedNow, 99),
	}
	png, err := RenderPriceChart("AAPL", "1D", points)
	require.NoError(t, err)
	require.Greater(t, len(png), 8)
	assert.Equal(t, "\x89PNG", string(png[:4]))

	_, err = RenderPriceChart("AAPL", "1D", points[:1])
	assert.Error(t, err)
}

// --- Popular stocks and movers ---

func TestGetPopularStocks_FallsBackPerTicker(t *testing.T) {
	fh := &mockFinnhub{
		quotes:   map[string]*models.Quote{"AAPL": {Current: 230, ChangePercent: 0.5}},
		profiles: map[string]*models.CompanyProfile{"AAPL": {Name: "Apple Inc", Logo: "https://static/aapl.png"}},
		quoteErr: map[string]error{"TSLA": errors.New("rate limited")},
	}
	svc := newTestService(fh, nil, 0)

	stocks, err := svc.GetPopularStocks(context.Background())
	require.NoError(t, err)
	require.Len(t, stocks, 8)

	assert.Equal(t, "AAPL", stocks[0].Ticker)
	assert.Equal(t, "Apple Inc", stocks[0].Name)
	assert.Equal(t, 230.0, stocks[0].Price)
	assert.Equal(t, "https://static/aapl.png", stocks[0].Logo)

	tsla := stocks[3]
	assert.Equal(t, "TSLA", tsla.Ticker)
	assert.Equal(t, "Tesla, Inc.", tsla.Name)
	assert.Equal(t, 329.65, tsla.Price)
	assert.Equal(t, -0.45, tsla.ChangePercent)
	assert.Equal(t, "https://logo.clearbit.com/tesla.com", tsla.Logo)

	assert.Equal(t, "Microsoft Corporation", stocks[1].Name, "empty profile keeps seeded name")
}

func TestGetMarketMovers_SplitsAndRounds(t *testing.T) {
	fh := &mockFinnhub{quotes: map[string]*models.Quote{
		"AAPL": {Current: 103.456, PreviousClose: 100},
		"MSFT": {Current: 98, PreviousClose: 100},
		"KO":   {Current: 99.5, PreviousClose: 100},
	}}
	svc := newTestService(fh, nil, 0)

	movers, err := svc.GetMarketMovers(context.Background())
	require.NoError(t, err)

	require.Len(t, movers.Gainers, 1)
	assert.Equal(t, "AAPL", movers.Gainers[0].Ticker)
	assert.Equal(t, 3.46, movers.Gainers[0].ChangePercent)
	assert.Equal(t, 103.46, movers.Gainers[0].CurrentPrice)
	assert.Equal(t, 3.46, movers.Gainers[0].PriceChange)

	require.Len(t, movers.Losers, 2)
	assert.Equal(t, "MSFT", movers.Losers[0].Ticker)
	assert.Equal(t, "KO", movers.Losers[1].Ticker)
}

func TestGetMarketMovers_EmptyUsesFallback(t *testing.T) {
	svc := newTestService(&mockFinnhub{}, nil, 0)

	movers, err := svc.GetMarketMovers(context.Background())
	require.NoError(t, err)
	require.Len(t, movers.Gainers, 10)
	require.Len(t, movers.Losers, 6)
	assert.Equal(t, "AAPL", movers.Gainers[0].Ticker)
	assert.Equal(t, 4.24, movers.Gainers[0].ChangePercent)
	assert.Equal(t, "LMT", movers.Losers[0].Ticker)
	assert.Equal(t, "https://logo.clearbit.com/honeywell.com", movers.Losers[5].Logo)
}

// --- Search ---

func TestSearchStock_ResolvesTicker(t *testing.T) {
	fh := &mockFinnhub{
		quotes:   map[string]*models.Quote{"AAPL": {Current: 110, PreviousClose: 100, High: 111, Timestamp: time.Unix(1700000000, 0)}},
		profiles: map[string]*models.CompanyProfile{"AAPL": {Name: "Apple Inc", Industry: "Technology", WebURL: "https://apple.com", MarketCap: 3500000}},
	}
	llm := &mockLLM{reply: "  aapl\n"}
	svc := newTestService(fh, llm, 0)

	res, err := svc.SearchStock(context.Background(), "the iPhone company")
	require.NoError(t, err)
	assert.Equal(t, "AAPL", res.Ticker)
	assert.InDelta(t, 10.0, res.PriceChangePercent, 1e-9)
	assert.Equal(t, int64(1700000000), res.Timestamp)
	require.NotNil(t, res.Company)
	assert.Equal(t, "Technology", res.Company.Industry)
	assert.Equal(t, 3500000.0, res.Company.MarketCap)

	require.Len(t, llm.reqs, 1)
	assert.Equal(t, 0.0, llm.reqs[0].Temperature)
	assert.Equal(t, 10, llm.reqs[0].MaxTokens)
	assert.Contains(t, llm.reqs[0].Prompt, "the iPhone company\n\nRespond with only the stock ticker symbol")
}

func TestSearchStock_Unrecognized(t *testing.T) {
	for _, reply := range []string{"UNKNOWN", "", "TOOLONG"} {
		svc := newTestService(&mockFinnhub{}, &mockLLM{reply: reply}, 0)
		_, err := svc.SearchStock(context.Background(), "something")
		assert.ErrorIs(t, err, ErrUnrecognizedQuery, "reply %q", reply)
	}
}

func TestSearchStock_ZeroQuoteIsNotFound(t *testing.T) {
	svc := newTestService(&mockFinnhub{}, &mockLLM{reply: "ZZZZ"}, 0)

	_, err := svc.SearchStock(context.Background(), "zzzz corp")
	var nf *TickerNotFoundError
	require.True(t, errors.As(err, &nf))
	assert.Equal(t, "ZZZZ", nf.Ticker)
	assert.Equal(t, `No stock data found for ticker "ZZZZ". Please check if this is a valid stock symbol.`, err.Error())
	assert.ErrorIs(t, err, models.ErrNotFound)
}

func TestSearchStock_LLMError(t *testing.T) {
	svc := newTestService(&mockFinnhub{}, &mockLLM{err: errors.New("OpenRouter API error: 500")}, 0)
	_, err := svc.SearchStock(context.Background(), "apple")
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrUnrecognizedQuery)
}

// --- Metrics ---

func TestFormatMetrics(t *testing.T) {
	m := models.Metrics{
		"peTTM":                      31.27,
		"epsTTM":                     6.4,
		"roeTTM":                     1.5612,
		"totalDebtToEquityQuarterly": 1.8766,
		"revenueGrowthTTMYoy":        0.0202,
	}

	got := FormatMetrics(m)
	require.Len(t, got, 5)

	byKey := map[string]models.FinancialMetric{}
	for _, fm := range got {
		byKey[fm.Key] = fm
	}
	assert.Equal(t, "31.3", byKey["pe"].Value)
	assert.Equal(t, "P/E Ratio", byKey["pe"].Label)
	assert.Equal(t, "$6.40", byKey["epsTTM"].Value)
	assert.Equal(t, "156.1%", byKey["roeTTM"].Value)
	assert.Equal(t, "1.88", byKey["debtToEquity"].Value)
	assert.Equal(t, "2.0%", byKey["revenueGrowthTTMYoY"].Value)
	assert.Equal(t, 0.0202, byKey["revenueGrowthTTMYoY"].Raw)
	assert.NotContains(t, byKey, "netProfitMarginTTM")

	// Preferred key wins over fallback
	pe := FormatMetrics(models.Metrics{"peBasicExclExtraTTM": 20, "peTTM": 30})
	assert.Equal(t, "20.0", pe[0].Value)
}

func TestGetFinancialMetrics_Errors(t *testing.T) {
	svc := newTestService(&mockFinnhub{metricsErr: errors.New("Finnhub error 403")}, nil, 0)

	_, err := svc.GetFinancialMetrics(context.Background(), "AAPL")
	assert.Error(t, err)

	_, err = svc.GetFinancialMetrics(context.Background(), "")
	assert.ErrorIs(t, err, ErrMissingTicker)
}

// --- Market hours ---

func TestIsUSMarketHours(t *testing.T) {
	at := func(day, hour, min int) time.Time {
		return time.Date(2025, 1, day, hour, min, 0, 0, newYorkLocation)
	}
	tests := []struct {
		name string
		t    time.Time
		want bool
	}{
		{"monday before open", at(6, 9, 29), false},
		{"monday at open", at(6, 9, 30), true},
		{"monday last minute", at(6, 15, 59), true},
		{"monday at close", at(6, 16, 0), false},
		{"saturday midday", at(4, 12, 0), false},
		{"sunday midday", at(5, 12, 0), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := isUSMarketHours(tt.t); got != tt.want {
				t.Errorf("isUSMarketHours(%v) = %v, want %v", tt.t, got, tt.want)
			}
		})
	}
}

func TestGetMarketStatus(t *testing.T) {
	svc := newTestService(&mockFinnhub{}, nil, 0)

	status := svc.GetMarketStatus(time.Time{})
	assert.True(t, status.IsOpen, "fixedNow is Monday 10:00 New York")
	assert.Equal(t, "09:30", status.Opens)
	assert.Equal(t, "16:00", status.Closes)
}
