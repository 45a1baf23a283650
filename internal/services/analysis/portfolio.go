package analysis

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"github.com/Vicistar-V/vin-stock-ai/internal/interfaces"
	"github.com/Vicistar-V/vin-stock-ai/internal/models"
	"github.com/Vicistar-V/vin-stock-ai/internal/services/llmjson"
)

var (
	ErrNoHoldings    = errors.New("no valid holdings in input")
	ErrNoHoldingData = errors.New("no quote data for any holding")
)

const (
	portfolioConcurrency = 4
	unknownSector        = "Unknown"

	fallbackConcentration = "Unable to analyze sector concentration. Please review your portfolio allocation manually."
	fallbackThematic      = "Unable to generate thematic analysis. Your portfolio appears to reflect a diversified investment approach."
)

var (
	holdingTicker  = regexp.MustCompile(`^[A-Z]{1,5}(\.[A-Z])?$`)
	holdingSplit   = regexp.MustCompile(`[,;]|\sand\s`)
	holdingPattern = regexp.MustCompile(`(?i)([A-Z]{1,5})\s*[:\-\s]\s*(\d+(?:\.\d+)?)`)
)

func buildHoldingsPrompt(input string) string {
	return fmt.Sprintf(`Parse this natural language portfolio input into ticker symbols and share counts. Return ONLY a JSON array.

Input: "%s"

Convert company names to their stock ticker symbols. Common examples:
- Apple/Apple Inc → AAPL
- Microsoft → MSFT
- Google/Alphabet → GOOGL
- Nvidia → NVDA
- Tesla → TSLA
- Amazon → AMZN
- Meta/Facebook → META
- Netflix → NFLX
- Coca Cola/Coke → KO
- Disney → DIS
- Berkshire Hathaway → BRK.B
- JPMorgan/JP Morgan → JPM

Return format: [{"ticker": "AAPL", "shares": 10}, {"ticker": "MSFT", "shares": 25}]

IMPORTANT: For Berkshire Hathaway, use "BRK.B" (the more liquid B shares).
If you can't identify a company, skip it. Only return valid tickers.`, input)
}

// parseHoldings asks the LLM to structure the input. When the call fails
// or the reply holds no array, ParseHoldingsText is used instead.
func (s *Service) parseHoldings(ctx context.Context, input string) []models.HoldingInput {
	reply, err := s.llm.Complete(ctx, interfaces.CompletionRequest{
		Prompt:      buildHoldingsPrompt(input),
		Temperature: 0.1,
		MaxTokens:   300,
	})
	if err != nil {
		s.logger.Warn().Err(err).Msg("Holdings parse call failed, using pattern parser")
		return ParseHoldingsText(input)
	}

	var raw []map[string]any
	if err := llmjson.DecodeArray(reply, &raw); err != nil {
		s.logger.Warn().Err(err).Msg("Holdings reply unusable, using pattern parser")
		return ParseHoldingsText(input)
	}

	holdings := make([]models.HoldingInput, 0, len(raw))
	for _, h := range raw {
		ticker, _ := h["ticker"].(string)
		shares, ok := h["shares"].(float64)
		if !ok || shares <= 0 || !holdingTicker.MatchString(ticker) {
			s.logger.Debug().Interface("holding", h).Msg("Dropping invalid holding")
			continue
		}
		holdings = append(holdings, models.HoldingInput{Ticker: ticker, Shares: shares})
	}
	return holdings
}

// ParseHoldingsText extracts "TICKER shares" pairs from free text split on
// commas, semicolons and " and ".
func ParseHoldingsText(input string) []models.HoldingInput {
	var holdings []models.HoldingInput
	for _, entry := range holdingSplit.Split(input, -1) {
		m := holdingPattern.FindStringSubmatch(strings.TrimSpace(entry))
		if m == nil {
			continue
		}
		shares, err := strconv.ParseFloat(m[2], 64)
		if err != nil || shares <= 0 {
			continue
		}
		holdings = append(holdings, models.HoldingInput{Ticker: strings.ToUpper(m[1]), Shares: shares})
	}
	return holdings
}

// AnalyzePortfolio parses free-text holdings, values them at the latest
// quote and adds a sector breakdown with an LLM narrative.
func (s *Service) AnalyzePortfolio(ctx context.Context, input string) (*models.PortfolioAnalysis, error) {
	if s.llm == nil || s.finnhub == nil {
		return nil, ErrNotConfigured
	}

	parsed := s.parseHoldings(ctx, input)
	if len(parsed) == 0 {
		return nil, ErrNoHoldings
	}

	holdings := s.valueHoldings(ctx, parsed)
	if len(holdings) == 0 {
		return nil, ErrNoHoldingData
	}

	total, breakdown := SectorBreakdown(holdings)
	concentration, thematic := s.portfolioNarrative(ctx, holdings, breakdown, total)

	return &models.PortfolioAnalysis{
		Holdings:            holdings,
		SectorBreakdown:     breakdown,
		TotalValue:          total.InexactFloat64(),
		SectorConcentration: concentration,
		ThematicAnalysis:    thematic,
		Timestamp:           s.now().UTC(),
	}, nil
}

// valueHoldings quotes each holding concurrently, keeping input order.
// Holdings without a usable price are skipped.
func (s *Service) valueHoldings(ctx context.Context, parsed []models.HoldingInput) []models.HoldingData {
	results := make([]*models.HoldingData, len(parsed))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(portfolioConcurrency)
	for i, h := range parsed {
		g.Go(func() error {
			quote, err := s.finnhub.GetQuote(gctx, h.Ticker)
			if err != nil || quote.Current == 0 {
				s.logger.Warn().Str("ticker", h.Ticker).Err(err).Msg("No price for holding, skipping")
				return nil
			}

			sector, name := unknownSector, h.Ticker
			if profile, err := s.finnhub.GetProfile(gctx, h.Ticker); err == nil && profile != nil {
				if profile.Industry != "" {
					sector = profile.Industry
				}
				if profile.Name != "" {
					name = profile.Name
				}
			}

			value := decimal.NewFromFloat(quote.Current).Mul(decimal.NewFromFloat(h.Shares))
			results[i] = &models.HoldingData{
				Ticker:       h.Ticker,
				Shares:       h.Shares,
				CurrentPrice: quote.Current,
				Value:        value.InexactFloat64(),
				Sector:       sector,
				Name:         name,
			}
			return nil
		})
	}
	_ = g.Wait()

	holdings := make([]models.HoldingData, 0, len(results))
	for _, r := range results {
		if r != nil {
			holdings = append(holdings, *r)
		}
	}
	return holdings
}

// SectorBreakdown totals holding values per sector, largest first
func SectorBreakdown(holdings []models.HoldingData) (decimal.Decimal, []models.SectorSlice) {
	total := decimal.Zero
	bySector := make(map[string]decimal.Decimal)
	for _, h := range holdings {
		v := decimal.NewFromFloat(h.Value)
		total = total.Add(v)
		bySector[h.Sector] = bySector[h.Sector].Add(v)
	}

	hundred := decimal.NewFromInt(100)
	slices := make([]models.SectorSlice, 0, len(bySector))
	for sector, v := range bySector {
		pct := decimal.Zero
		if total.IsPositive() {
			pct = v.Div(total).Mul(hundred)
		}
		slices = append(slices, models.SectorSlice{
			Sector:     sector,
			Value:      v.InexactFloat64(),
			Percentage: pct.InexactFloat64(),
		})
	}
	sort.Slice(slices, func(i, j int) bool {
		if slices[i].Value != slices[j].Value {
			return slices[i].Value > slices[j].Value
		}
		return slices[i].Sector < slices[j].Sector
	})
	return total, slices
}

func buildPortfolioPrompt(holdings []models.HoldingData, breakdown []models.SectorSlice, total decimal.Decimal) string {
	top := holdings
	if len(top) > 5 {
		top = top[:5]
	}
	parts := make([]string, len(top))
	for i, h := range top {
		parts[i] = fmt.Sprintf("%s: %s shares, $%s (%s)",
			h.Ticker, strconv.FormatFloat(h.Shares, 'f', -1, 64),
			decimal.NewFromFloat(h.Value).StringFixed(0), h.Sector)
	}

	sectors := breakdown
	if len(sectors) > 3 {
		sectors = sectors[:3]
	}
	sectorParts := make([]string, len(sectors))
	for i, sl := range sectors {
		sectorParts[i] = fmt.Sprintf("%s: %.1f%%", sl.Sector, sl.Percentage)
	}

	return fmt.Sprintf(`Analyze this portfolio: Total: $%s. Holdings: %s. Sectors: %s.

IMPORTANT: Respond with valid JSON only. No markdown, no explanations.

{
  "sectorConcentration": "Brief risk analysis mentioning if any sector >40%%",
  "thematicAnalysis": "Brief investment strategy summary in 1-2 sentences"
}`, total.StringFixed(0), strings.Join(parts, "; "), strings.Join(sectorParts, "; "))
}

func (s *Service) portfolioNarrative(ctx context.Context, holdings []models.HoldingData, breakdown []models.SectorSlice, total decimal.Decimal) (string, string) {
	reply, err := s.llm.Complete(ctx, interfaces.CompletionRequest{
		Prompt:      buildPortfolioPrompt(holdings, breakdown, total),
		Temperature: 0.1,
		MaxTokens:   400,
		TopP:        0.9,
	})
	if err != nil {
		s.logger.Warn().Err(err).Msg("Portfolio narrative failed, using fallback")
		return fallbackConcentration, fallbackThematic
	}

	var narrative struct {
		SectorConcentration string `json:"sectorConcentration"`
		ThematicAnalysis    string `json:"thematicAnalysis"`
	}
	if err := llmjson.Decode(reply, &narrative); err != nil {
		s.logger.Warn().Err(err).Msg("Portfolio narrative unparseable, using fallback")
		return fallbackConcentration, fallbackThematic
	}
	if narrative.SectorConcentration == "" && narrative.ThematicAnalysis == "" {
		return fallbackConcentration, fallbackThematic
	}
	return narrative.SectorConcentration, narrative.ThematicAnalysis
}
