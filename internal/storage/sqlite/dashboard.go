package sqlite

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/Vicistar-V/vin-stock-ai/internal/common"
	"github.com/Vicistar-V/vin-stock-ai/internal/models"
)

const moversLimit = 10

// MarketDashboard assembles the dashboard payload from stored quotes.
// With no ticker it returns *models.DashboardData; otherwise
// *models.StockDetailData with the stored chart for timeframe.
func (s *Store) MarketDashboard(ctx context.Context, ticker, timeframe string) (models.DashboardPayload, error) {
	quotes, err := s.LatestQuotes(ctx)
	if err != nil {
		return nil, err
	}
	stocks, err := s.ListStocks(ctx)
	if err != nil {
		return nil, err
	}
	info := make(map[string]models.StockInfo, len(stocks))
	for _, st := range stocks {
		info[st.Ticker] = st
	}

	ticker = strings.ToUpper(strings.TrimSpace(ticker))
	if ticker != "" && ticker != strings.ToUpper(models.DashboardTicker) {
		return s.stockDetailData(ctx, ticker, timeframe, quotes, info)
	}
	return s.overviewData(ctx, quotes, info)
}

func (s *Store) stockDetailData(ctx context.Context, ticker, timeframe string, quotes map[string]models.Quote, info map[string]models.StockInfo) (*models.StockDetailData, error) {
	q, ok := quotes[ticker]
	if !ok || q.Current == 0 {
		return nil, fmt.Errorf("no stored quote for %s: %w", ticker, models.ErrNotFound)
	}
	if timeframe == "" {
		timeframe = models.DefaultTimeframe
	}

	chart, err := s.History(ctx, ticker, timeframe)
	if err != nil {
		return nil, err
	}

	st := info[ticker]
	return &models.StockDetailData{
		StockDetail: models.DashboardStock{
			Ticker:        ticker,
			Name:          nameOr(st.Name, ticker),
			Logo:          logoOr(st.Logo, ticker),
			CurrentPrice:  q.Current,
			PriceChange:   q.Change,
			ChangePercent: q.ChangePercent,
			High:          q.High,
			Low:           q.Low,
			Open:          q.Open,
			PreviousClose: q.PreviousClose,
			Volume:        q.Volume,
		},
		ChartData: chart,
		Timestamp: s.now().UnixMilli(),
	}, nil
}

func (s *Store) overviewData(ctx context.Context, quotes map[string]models.Quote, info map[string]models.StockInfo) (*models.DashboardData, error) {
	if len(quotes) == 0 {
		return nil, fmt.Errorf("no stored quotes: %w", models.ErrNoData)
	}

	data := &models.DashboardData{
		PopularStocks: []models.PopularStock{},
		AllChartData:  make(map[string][]models.ChartPoint),
		Timestamp:     s.now().UnixMilli(),
	}

	for _, p := range models.PopularStocks {
		q, ok := quotes[p.Ticker]
		if !ok {
			continue
		}
		st := info[p.Ticker]
		data.PopularStocks = append(data.PopularStocks, models.PopularStock{
			Ticker:        p.Ticker,
			Name:          nameOr(st.Name, p.Name),
			Logo:          logoOr(st.Logo, p.Ticker),
			Price:         q.Current,
			ChangePercent: q.ChangePercent,
		})
		points, err := s.History(ctx, p.Ticker, models.DefaultTimeframe)
		if err != nil {
			return nil, err
		}
		if len(points) > 0 {
			data.AllChartData[p.Ticker] = points
		}
	}

	items := make([]models.MoverItem, 0, len(quotes))
	var sum float64
	var last time.Time
	for t, q := range quotes {
		st := info[t]
		items = append(items, models.MoverItem{
			Ticker:        t,
			Name:          nameOr(st.Name, t),
			Logo:          logoOr(st.Logo, t),
			ChangePercent: common.Round2(q.ChangePercent),
			CurrentPrice:  common.Round2(q.Current),
			PriceChange:   common.Round2(q.Change),
			Volume:        q.Volume,
		})
		sum += q.ChangePercent
		if q.Timestamp.After(last) {
			last = q.Timestamp
		}
	}
	data.MarketMovers = models.SplitMovers(items, moversLimit)

	stats := models.MarketStats{
		TotalStocks: len(quotes),
		AvgChange:   common.Round2(sum / float64(len(quotes))),
		LastUpdated: last.UTC().Format(time.RFC3339),
	}
	for _, it := range items {
		switch {
		case it.ChangePercent > 0:
			stats.GainersCount++
		case it.ChangePercent < 0:
			stats.LosersCount++
		}
	}
	data.MarketStats = stats

	return data, nil
}

func nameOr(name, fallback string) string {
	if name != "" {
		return name
	}
	return fallback
}

func logoOr(logo, ticker string) string {
	if logo != "" {
		return logo
	}
	return models.LogoURL(ticker)
}
