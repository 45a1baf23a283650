// Package updater refreshes stored quotes, news and price history for the
// tracked stocks in one batch.
package updater

import (
	"context"
	"errors"
	"fmt"
	"math"
	"math/rand/v2"
	"time"

	"github.com/Vicistar-V/vin-stock-ai/internal/common"
	"github.com/Vicistar-V/vin-stock-ai/internal/interfaces"
	"github.com/Vicistar-V/vin-stock-ai/internal/models"
	"github.com/Vicistar-V/vin-stock-ai/internal/services/market"
)

const (
	// KeepQuotes is how many snapshots per ticker survive pruning
	KeepQuotes = 100

	newsLookback  = 7 * 24 * time.Hour
	newsPerTicker = 5
	defaultSource = "Finnhub"
)

// HistoryTimeframes are refreshed for every stock on each run
var HistoryTimeframes = []string{"1D", "5D", "1M", "6M", "1Y"}

var (
	ErrNoStocks = errors.New("no stocks in database")
	ErrNoQuotes = errors.New("no valid quotes retrieved")
)

// Service implements UpdaterService
type Service struct {
	finnhub interfaces.FinnhubClient
	store   interfaces.StockStore
	logger  *common.Logger
	delay   time.Duration // pause between upstream requests
	now     func() time.Time
	random  func() float64
}

// NewService creates an updater. A nil finnhub client makes every run
// write mock quotes and skip news and history.
func NewService(finnhub interfaces.FinnhubClient, store interfaces.StockStore, logger *common.Logger, delay time.Duration) *Service {
	return &Service{
		finnhub: finnhub,
		store:   store,
		logger:  logger,
		delay:   delay,
		now:     time.Now,
		random:  rand.Float64,
	}
}

// batch accumulates one run's writes
type batch struct {
	quotes  []models.Quote
	news    map[string][]*models.NewsItem
	history map[string]map[string][]models.ChartPoint
}

func (b *batch) newsCount() int {
	n := 0
	for _, items := range b.news {
		n += len(items)
	}
	return n
}

func (b *batch) historyCount() int {
	n := 0
	for _, byFrame := range b.history {
		for _, points := range byFrame {
			n += len(points)
		}
	}
	return n
}

// RunOnce fetches everything, then writes quotes, replaces news and
// history per ticker and prunes old quotes. Only an empty stock list, no
// usable quotes or a failed quote insert fail the run.
func (s *Service) RunOnce(ctx context.Context) (*models.UpdateResult, error) {
	start := time.Now()

	stocks, err := s.store.ListStocks(ctx)
	if err != nil {
		return nil, fmt.Errorf("fetch stocks: %w", err)
	}
	if len(stocks) == 0 {
		return nil, ErrNoStocks
	}

	b := &batch{
		news:    make(map[string][]*models.NewsItem),
		history: make(map[string]map[string][]models.ChartPoint),
	}
	for _, stock := range stocks {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if s.finnhub == nil {
			b.quotes = append(b.quotes, s.mockQuote(stock.Ticker))
			continue
		}
		if err := s.collect(ctx, stock.Ticker, b); err != nil {
			return nil, err
		}
	}

	if len(b.quotes) == 0 {
		return nil, ErrNoQuotes
	}
	if err := s.store.InsertQuotes(ctx, b.quotes); err != nil {
		return nil, fmt.Errorf("insert quotes: %w", err)
	}

	for ticker, items := range b.news {
		if err := s.store.ReplaceNews(ctx, ticker, items); err != nil {
			s.logger.Warn().Str("ticker", ticker).Err(err).Msg("Failed to replace news")
		}
	}
	for ticker, byFrame := range b.history {
		if err := s.store.ReplaceHistory(ctx, ticker, byFrame); err != nil {
			s.logger.Error().Str("ticker", ticker).Err(err).Msg("Failed to replace history")
		}
	}

	tickers := make([]string, len(b.quotes))
	for i, q := range b.quotes {
		tickers[i] = q.Ticker
		if _, err := s.store.PruneQuotes(ctx, q.Ticker, KeepQuotes); err != nil {
			s.logger.Warn().Str("ticker", q.Ticker).Err(err).Msg("Quote cleanup failed")
		}
	}

	result := &models.UpdateResult{
		Success:           true,
		UpdatedQuotes:     len(b.quotes),
		UpdatedNews:       b.newsCount(),
		UpdatedHistorical: b.historyCount(),
		Tickers:           tickers,
	}
	s.logger.Info().
		Int("quotes", result.UpdatedQuotes).
		Int("news", result.UpdatedNews).
		Int("historical", result.UpdatedHistorical).
		Dur("elapsed", time.Since(start)).
		Msg("Stock update complete")
	return result, nil
}

// collect fetches quote, news and history for one ticker into b. Upstream
// failures are logged and skipped; only cancellation is returned.
func (s *Service) collect(ctx context.Context, ticker string, b *batch) error {
	now := s.now()

	quote, err := s.finnhub.GetQuote(ctx, ticker)
	if err != nil || quote.Current == 0 {
		s.logger.Warn().Str("ticker", ticker).Err(err).Msg("Invalid quote data, skipping")
		return ctx.Err()
	}
	b.quotes = append(b.quotes, normalizeQuote(ticker, quote, now))

	if items := s.fetchNews(ctx, ticker, now); len(items) > 0 {
		b.news[ticker] = items
	}

	for _, tf := range HistoryTimeframes {
		r := market.RangeFor(tf)
		candles, err := s.finnhub.GetCandles(ctx, ticker, r.Resolution, now.Add(-r.Lookback), now)
		if err != nil {
			s.logger.Warn().Str("ticker", ticker).Str("timeframe", tf).Err(err).Msg("No historical data")
		} else if len(candles) > 0 {
			points := make([]models.ChartPoint, len(candles))
			for i, c := range candles {
				points[i] = models.NewChartPoint(c.Time, c.Close)
			}
			if b.history[ticker] == nil {
				b.history[ticker] = make(map[string][]models.ChartPoint)
			}
			b.history[ticker][tf] = points
		}
		if err := pause(ctx, s.delay); err != nil {
			return err
		}
	}

	return pause(ctx, 2*s.delay)
}

func (s *Service) fetchNews(ctx context.Context, ticker string, now time.Time) []*models.NewsItem {
	items, err := s.finnhub.GetCompanyNews(ctx, ticker, now.Add(-newsLookback), now)
	if err != nil {
		s.logger.Warn().Str("ticker", ticker).Err(err).Msg("Failed to fetch news")
		return nil
	}
	if len(items) > newsPerTicker {
		items = items[:newsPerTicker]
	}

	kept := make([]*models.NewsItem, 0, len(items))
	for _, item := range items {
		if item.Headline == "" || item.URL == "" {
			continue
		}
		n := *item
		n.Ticker = ticker
		if n.Source == "" {
			n.Source = defaultSource
		}
		kept = append(kept, &n)
	}
	return kept
}

// normalizeQuote fills missing fields from the current price
func normalizeQuote(ticker string, q *models.Quote, now time.Time) models.Quote {
	orCurrent := func(v float64) float64 {
		if v == 0 {
			return q.Current
		}
		return v
	}

	out := models.Quote{
		Ticker:        ticker,
		Current:       q.Current,
		Change:        q.Current - q.PreviousClose,
		High:          orCurrent(q.High),
		Low:           orCurrent(q.Low),
		Open:          orCurrent(q.Open),
		PreviousClose: orCurrent(q.PreviousClose),
		Volume:        q.Volume,
		Timestamp:     now,
	}
	if q.PreviousClose > 0 {
		out.ChangePercent = out.Change / q.PreviousClose * 100
	}
	return out
}

// mockQuote produces a plausible random quote for keyless runs
func (s *Service) mockQuote(ticker string) models.Quote {
	price := 150 + s.random()*100
	change := (s.random() - 0.5) * 10
	prevClose := price - change

	q := models.Quote{
		Ticker:        ticker,
		Current:       price,
		Change:        change,
		High:          price + s.random()*5,
		Low:           price - s.random()*5,
		Open:          price + (s.random()-0.5)*3,
		PreviousClose: prevClose,
		Volume:        int64(math.Floor(s.random()*50_000_000)) + 10_000_000,
		Timestamp:     s.now(),
	}
	if prevClose > 0 {
		q.ChangePercent = change / prevClose * 100
	}
	return q
}

// pause waits d or until ctx is done
func pause(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// Ensure Service implements UpdaterService
var _ interfaces.UpdaterService = (*Service)(nil)
