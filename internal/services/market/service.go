// Package market provides quote, chart and company data services
package market

import (
	"context"
	"fmt"
	"math/rand/v2"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/Vicistar-V/vin-stock-ai/internal/common"
	"github.com/Vicistar-V/vin-stock-ai/internal/interfaces"
	"github.com/Vicistar-V/vin-stock-ai/internal/models"
)

// DefaultConcurrency bounds parallel vendor calls during universe scans
const DefaultConcurrency = 8

// Service implements MarketService
type Service struct {
	finnhub     interfaces.FinnhubClient
	llm         interfaces.LLMClient
	logger      *common.Logger
	now         func() time.Time // injectable clock for testing
	random      func() float64   // injectable [0,1) source for mock data
	concurrency int
}

// NewService creates a new market service. llm may be nil; search then fails.
func NewService(finnhub interfaces.FinnhubClient, llm interfaces.LLMClient, logger *common.Logger) *Service {
	return &Service{
		finnhub:     finnhub,
		llm:         llm,
		logger:      logger,
		now:         time.Now,
		random:      rand.Float64,
		concurrency: DefaultConcurrency,
	}
}

// quoteAndProfile fetches both concurrently. A profile failure is logged
// and yields an empty profile; a quote failure is returned.
func (s *Service) quoteAndProfile(ctx context.Context, ticker string) (*models.Quote, *models.CompanyProfile, error) {
	var quote *models.Quote
	profile := &models.CompanyProfile{Ticker: ticker}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		q, err := s.finnhub.GetQuote(gctx, ticker)
		if err != nil {
			return fmt.Errorf("quote for %s: %w", ticker, err)
		}
		quote = q
		return nil
	})
	g.Go(func() error {
		p, err := s.finnhub.GetProfile(gctx, ticker)
		if err != nil {
			s.logger.Debug().Str("ticker", ticker).Err(err).Msg("Profile unavailable")
			return nil
		}
		if p != nil {
			profile = p
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, nil, err
	}
	return quote, profile, nil
}

// GetStockDetail returns the single-stock summary. Any upstream failure,
// including a zero current price, yields mock data instead of an error.
func (s *Service) GetStockDetail(ctx context.Context, ticker string) (*models.StockDetail, error) {
	ticker = strings.ToUpper(strings.TrimSpace(ticker))
	if ticker == "" {
		return nil, fmt.Errorf("ticker is required")
	}

	detail, err := s.fetchStockDetail(ctx, ticker)
	if err != nil {
		s.logger.Warn().Str("ticker", ticker).Err(err).Msg("Stock detail fetch failed, using fallback")
		return s.fallbackStockDetail(ticker), nil
	}
	return detail, nil
}

func (s *Service) fetchStockDetail(ctx context.Context, ticker string) (*models.StockDetail, error) {
	quote, profile, err := s.quoteAndProfile(ctx, ticker)
	if err != nil {
		return nil, err
	}
	if quote.Current == 0 {
		return nil, fmt.Errorf("invalid quote data for %s: %w", ticker, models.ErrNotFound)
	}

	c, pc := quote.Current, quote.PreviousClose
	detail := &models.StockDetail{
		Ticker:        ticker,
		Name:          profile.Name,
		Logo:          profile.Logo,
		CurrentPrice:  c,
		PriceChange:   c - pc,
		High:          orDefault(quote.High, c),
		Low:           orDefault(quote.Low, c),
		Open:          orDefault(quote.Open, c),
		PreviousClose: orDefault(pc, c),
		Volume:        quote.Volume,
	}
	if pc > 0 {
		detail.ChangePercent = (c - pc) / pc * 100
	}
	if detail.Name == "" {
		detail.Name = ticker + " Corporation"
	}
	if detail.Logo == "" {
		detail.Logo = models.LogoURL(ticker)
	}
	if profile.MarketCap > 0 {
		detail.MarketCap = profile.MarketCap * 1_000_000
	}
	return detail, nil
}

func (s *Service) fallbackStockDetail(ticker string) *models.StockDetail {
	return &models.StockDetail{
		Ticker:        ticker,
		Name:          ticker + " Corporation",
		Logo:          models.LogoURL(ticker),
		CurrentPrice:  150.25 + s.random()*50,
		PriceChange:   (s.random() - 0.5) * 10,
		ChangePercent: (s.random() - 0.5) * 5,
		High:          155.80,
		Low:           148.20,
		Open:          151.00,
		PreviousClose: 149.15,
		Volume:        45_200_000,
		MarketCap:     2_500_000_000_000,
		Fallback:      true,
	}
}

var popularFallback = map[string]models.PopularStock{
	"AAPL":  {Ticker: "AAPL", Name: "Apple Inc.", Price: 229.35, ChangePercent: 1.24},
	"MSFT":  {Ticker: "MSFT", Name: "Microsoft Corporation", Price: 421.88, ChangePercent: 0.89},
	"GOOGL": {Ticker: "GOOGL", Name: "Alphabet Inc.", Price: 201.42, ChangePercent: 1.15},
	"TSLA":  {Ticker: "TSLA", Name: "Tesla, Inc.", Price: 329.65, ChangePercent: -0.45},
	"AMZN":  {Ticker: "AMZN", Name: "Amazon.com, Inc.", Price: 222.69, ChangePercent: 0.67},
	"NVDA":  {Ticker: "NVDA", Name: "NVIDIA Corporation", Price: 134.85, ChangePercent: 2.15},
	"META":  {Ticker: "META", Name: "Meta Platforms, Inc.", Price: 591.34, ChangePercent: 1.34},
	"JPM":   {Ticker: "JPM", Name: "JPMorgan Chase & Co.", Price: 242.15, ChangePercent: 0.95},
}

// GetPopularStocks quotes the ticker-strip universe. A failed ticker is
// replaced by its canned entry; the call itself does not fail.
func (s *Service) GetPopularStocks(ctx context.Context) ([]models.PopularStock, error) {
	stocks := make([]models.PopularStock, len(models.PopularStocks))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.concurrency)
	for i, p := range models.PopularStocks {
		g.Go(func() error {
			quote, profile, err := s.quoteAndProfile(gctx, p.Ticker)
			if err != nil {
				s.logger.Warn().Str("ticker", p.Ticker).Err(err).Msg("Falling back for popular stock")
				fb := popularFallback[p.Ticker]
				fb.Logo = models.LogoURL(p.Ticker)
				stocks[i] = fb
				return nil
			}
			stocks[i] = models.PopularStock{
				Ticker:        p.Ticker,
				Name:          firstNonEmpty(profile.Name, p.Name),
				Logo:          firstNonEmpty(profile.Logo, models.LogoURL(p.Ticker)),
				Price:         quote.Current,
				ChangePercent: quote.ChangePercent,
			}
			return nil
		})
	}
	_ = g.Wait()

	return stocks, nil
}

// GetMarketMovers scans MoverUniverse and splits it into gainers and
// losers. When nothing could be quoted the canned lists are returned.
func (s *Service) GetMarketMovers(ctx context.Context) (*models.MarketMovers, error) {
	results := make([]*models.MoverItem, len(models.MoverUniverse))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.concurrency)
	for i, ticker := range models.MoverUniverse {
		g.Go(func() error {
			quote, profile, err := s.quoteAndProfile(gctx, ticker)
			if err != nil {
				s.logger.Debug().Str("ticker", ticker).Err(err).Msg("Mover quote failed")
				return nil
			}
			results[i] = moverFromQuote(ticker, quote, profile)
			return nil
		})
	}
	_ = g.Wait()

	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("market movers: %w", err)
	}

	items := make([]models.MoverItem, 0, len(results))
	for _, r := range results {
		if r != nil {
			items = append(items, *r)
		}
	}
	s.logger.Debug().Int("quoted", len(items)).Int("universe", len(models.MoverUniverse)).Msg("Market movers scanned")

	movers := models.SplitMovers(items, 10)
	if len(movers.Gainers) == 0 && len(movers.Losers) == 0 {
		s.logger.Info().Msg("Empty movers result, using fallback data")
		fb := fallbackMovers()
		return &fb, nil
	}
	return &movers, nil
}

func moverFromQuote(ticker string, quote *models.Quote, profile *models.CompanyProfile) *models.MoverItem {
	var changePercent float64
	if quote.PreviousClose > 0 {
		changePercent = (quote.Current - quote.PreviousClose) / quote.PreviousClose * 100
	}
	return &models.MoverItem{
		Ticker:        ticker,
		Name:          profile.Name,
		Logo:          firstNonEmpty(profile.Logo, models.LogoURL(ticker)),
		ChangePercent: common.Round2(changePercent),
		CurrentPrice:  common.Round2(quote.Current),
		PriceChange:   common.Round2(quote.Current - quote.PreviousClose),
		Volume:        quote.Volume,
	}
}

func fallbackMovers() models.MarketMovers {
	mk := func(ticker, name string, pct, price, change float64, volume int64) models.MoverItem {
		return models.MoverItem{
			Ticker: ticker, Name: name, Logo: models.LogoURL(ticker),
			ChangePercent: pct, CurrentPrice: price, PriceChange: change, Volume: volume,
		}
	}
	return models.MarketMovers{
		Gainers: []models.MoverItem{
			mk("AAPL", "Apple Inc.", 4.24, 229.35, 9.32, 45200000),
			mk("NFLX", "Netflix Inc.", 2.65, 1211.64, 31.27, 6750000),
			mk("GOOGL", "Alphabet Inc.", 2.49, 201.42, 4.9, 18900000),
			mk("BAC", "Bank of America", 2.43, 46.01, 1.09, 52400000),
			mk("MA", "Mastercard Inc.", 2.33, 574.32, 13.1, 2800000),
			mk("TSLA", "Tesla Inc.", 2.29, 329.65, 7.38, 32100000),
			mk("ABT", "Abbott Laboratories", 1.68, 134.28, 2.22, 8950000),
			mk("TMO", "Thermo Fisher Scientific", 1.32, 460.72, 5.98, 3200000),
			mk("SBUX", "Starbucks Corporation", 1.21, 92.12, 1.1, 7200000),
			mk("CVX", "Chevron Corporation", 1.21, 155.01, 1.85, 12300000),
		},
		Losers: []models.MoverItem{
			mk("LMT", "Lockheed Martin", -1.19, 425.63, -5.12, 1200000),
			mk("DIS", "The Walt Disney Company", -0.4, 112.43, -0.45, 8900000),
			mk("NEE", "NextEra Energy", -0.23, 72.41, -0.17, 4500000),
			mk("AMZN", "Amazon.com Inc.", -0.2, 222.69, -0.44, 28500000),
			mk("KO", "The Coca-Cola Company", -0.13, 70.34, -0.09, 15600000),
			mk("HON", "Honeywell International", -0.12, 216.31, -0.27, 3800000),
		},
	}
}

func orDefault(v, fallback float64) float64 {
	if v == 0 {
		return fallback
	}
	return v
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

// Ensure Service implements MarketService
var _ interfaces.MarketService = (*Service)(nil)
