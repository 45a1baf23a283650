package analysis

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/Vicistar-V/vin-stock-ai/internal/interfaces"
	"github.com/Vicistar-V/vin-stock-ai/internal/models"
	"github.com/Vicistar-V/vin-stock-ai/internal/services/llmjson"
)

const compareSystemPrompt = "You are an expert financial analyst. Respond only with valid JSON in the exact format requested."

// companySnapshot is the per-company input to the comparison prompt
type companySnapshot struct {
	ticker  string
	quote   *models.Quote
	profile *models.CompanyProfile
	metrics models.Metrics
}

// fetchSnapshot loads quote, profile and metrics together. Any failure
// yields a blank snapshot so the comparison can still run.
func (s *Service) fetchSnapshot(ctx context.Context, ticker string) companySnapshot {
	snap := companySnapshot{ticker: ticker}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		snap.quote, err = s.finnhub.GetQuote(gctx, ticker)
		return err
	})
	g.Go(func() (err error) {
		snap.profile, err = s.finnhub.GetProfile(gctx, ticker)
		return err
	})
	g.Go(func() (err error) {
		snap.metrics, err = s.finnhub.GetMetrics(gctx, ticker)
		return err
	})
	if err := g.Wait(); err != nil {
		s.logger.Warn().Str("ticker", ticker).Err(err).Msg("Comparison data unavailable, using blank snapshot")
		return companySnapshot{
			ticker:  ticker,
			quote:   &models.Quote{Ticker: ticker},
			profile: &models.CompanyProfile{Ticker: ticker, Name: ticker},
			metrics: models.Metrics{},
		}
	}
	return snap
}

// orNA renders zero as "N/A"
func orNA(v float64) string {
	if v == 0 {
		return "N/A"
	}
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func (c companySnapshot) block(n int) string {
	name := c.profile.Name
	if name == "" {
		name = c.ticker
	}
	industry := c.profile.Industry
	if industry == "" {
		industry = "Unknown Industry"
	}
	metric := func(key string) string {
		v, _ := c.metrics.First(key)
		return orNA(v)
	}

	return fmt.Sprintf(`--- DATA FOR COMPANY %d (%s) ---
Profile: %s - %s
Market Cap: $%sM
Current Price: $%s
P/E Ratio: %s
EPS: $%s
ROE: %s%%
Debt/Equity: %s
---`, n, c.ticker, name, industry,
		orNA(c.profile.MarketCap), orNA(c.quote.Current),
		metric("peTTM"), metric("epsTTM"), metric("roeTTM"), metric("totalDebtToEquityQuarterly"))
}

func buildComparePrompt(a, b companySnapshot) string {
	return fmt.Sprintf(`You are an unbiased, expert financial analyst. Your task is to provide a head-to-head comparison of two companies based ONLY on the data provided below. Do not use any outside knowledge.

%s

%s

Now, provide a balanced narrative comparison in JSON format with the following structure. Be analytical and insightful.

{
  "valuation_summary": "Compare their valuation metrics. Who seems more expensive and why?",
  "financials_summary": "Compare their financial health and growth. Who is growing faster or has a stronger balance sheet?",
  "momentum_summary": "Based on their current market position, who seems to have more positive momentum?",
  "winner": "Based on the analysis, which company appears more attractive for investment and why?"
}`, a.block(1), b.block(2))
}

// CompareStocks asks the LLM for a head-to-head narrative. Failures after
// validation come back as a result with Success false along with the cause.
func (s *Service) CompareStocks(ctx context.Context, ticker1, ticker2 string) (*models.ComparisonResult, error) {
	ticker1 = strings.ToUpper(strings.TrimSpace(ticker1))
	ticker2 = strings.ToUpper(strings.TrimSpace(ticker2))
	if ticker1 == "" || ticker2 == "" {
		return nil, models.NewInputError("Both ticker1 and ticker2 are required")
	}

	comparison, err := s.compare(ctx, ticker1, ticker2)
	if err != nil {
		s.logger.Error().Str("ticker1", ticker1).Str("ticker2", ticker2).Err(err).Msg("Comparison failed")
		return &models.ComparisonResult{Success: false, Error: err.Error()}, err
	}

	ts := s.now().UTC()
	return &models.ComparisonResult{
		Success:    true,
		Ticker1:    ticker1,
		Ticker2:    ticker2,
		Comparison: comparison,
		Timestamp:  &ts,
	}, nil
}

func (s *Service) compare(ctx context.Context, ticker1, ticker2 string) (*models.Comparison, error) {
	if s.finnhub == nil || s.llm == nil {
		return nil, ErrNotConfigured
	}

	var a, b companySnapshot
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { a = s.fetchSnapshot(gctx, ticker1); return nil })
	g.Go(func() error { b = s.fetchSnapshot(gctx, ticker2); return nil })
	_ = g.Wait()

	reply, err := s.llm.Complete(ctx, interfaces.CompletionRequest{
		System:   compareSystemPrompt,
		Prompt:   buildComparePrompt(a, b),
		JSONMode: true,
		Title:    "Vin Stock Comparison Tool",
	})
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(reply) == "" {
		return nil, ErrEmptyReply
	}

	var comparison models.Comparison
	if err := llmjson.Decode(reply, &comparison); err != nil {
		return nil, fmt.Errorf("invalid JSON from model: %w", err)
	}
	return &comparison, nil
}
