package market

import (
	"context"
	"fmt"
	"math"
	"strings"

	"github.com/Vicistar-V/vin-stock-ai/internal/models"
)

type metricFormat int

const (
	formatNumber metricFormat = iota
	formatPercent
	formatCurrency
)

// metricDef describes one displayed ratio. Keys are tried in order.
type metricDef struct {
	key    string
	label  string
	source []string
	format metricFormat
	digits int
}

var metricDefs = []metricDef{
	{key: "pe", label: "P/E Ratio", source: []string{"peBasicExclExtraTTM", "peTTM"}, format: formatNumber, digits: 1},
	{key: "epsTTM", label: "EPS (TTM)", source: []string{"epsTTM"}, format: formatCurrency, digits: 2},
	{key: "roeTTM", label: "ROE (TTM)", source: []string{"roeTTM"}, format: formatPercent, digits: 1},
	{key: "debtToEquity", label: "Debt to Equity", source: []string{"totalDebtToEquityQuarterly", "debtToEquityQuarterly"}, format: formatNumber, digits: 2},
	{key: "netProfitMarginTTM", label: "Net Profit Margin (TTM)", source: []string{"netProfitMarginTTM"}, format: formatPercent, digits: 1},
	{key: "revenueGrowthTTMYoY", label: "Revenue Growth YoY (TTM)", source: []string{"revenueGrowthTTMYoy", "revenueGrowthTTMYoY"}, format: formatPercent, digits: 1},
}

func formatMetric(v float64, format metricFormat, digits int) string {
	switch format {
	case formatPercent:
		return fmt.Sprintf("%.*f%%", digits, v*100)
	case formatCurrency:
		return fmt.Sprintf("$%.*f", digits, v)
	default:
		return fmt.Sprintf("%.*f", digits, v)
	}
}

// FormatMetrics picks and formats the displayed ratios. Absent or
// non-finite values are skipped.
func FormatMetrics(m models.Metrics) []models.FinancialMetric {
	out := make([]models.FinancialMetric, 0, len(metricDefs))
	for _, def := range metricDefs {
		v, ok := m.First(def.source...)
		if !ok || math.IsNaN(v) || math.IsInf(v, 0) {
			continue
		}
		out = append(out, models.FinancialMetric{
			Key:   def.key,
			Label: def.label,
			Value: formatMetric(v, def.format, def.digits),
			Raw:   v,
		})
	}
	return out
}

// GetFinancialMetrics fetches basic financials and formats the key ratios
func (s *Service) GetFinancialMetrics(ctx context.Context, ticker string) ([]models.FinancialMetric, error) {
	ticker = strings.ToUpper(strings.TrimSpace(ticker))
	if ticker == "" {
		return nil, ErrMissingTicker
	}

	m, err := s.finnhub.GetMetrics(ctx, ticker)
	if err != nil {
		return nil, err
	}
	return FormatMetrics(m), nil
}
