package models

import (
	"sort"
	"strings"
	"time"
)

// PopularStocks is the ticker-strip universe, also seeded into the store.
var PopularStocks = []StockInfo{
	{Ticker: "AAPL", Name: "Apple Inc.", Sector: "Technology"},
	{Ticker: "MSFT", Name: "Microsoft Corporation", Sector: "Technology"},
	{Ticker: "GOOGL", Name: "Alphabet Inc.", Sector: "Media"},
	{Ticker: "TSLA", Name: "Tesla, Inc.", Sector: "Automobiles"},
	{Ticker: "AMZN", Name: "Amazon.com, Inc.", Sector: "Retail"},
	{Ticker: "NVDA", Name: "NVIDIA Corporation", Sector: "Semiconductors"},
	{Ticker: "META", Name: "Meta Platforms, Inc.", Sector: "Media"},
	{Ticker: "JPM", Name: "JPMorgan Chase & Co.", Sector: "Banking"},
}

// MoverUniverse is scanned for top gainers and losers.
var MoverUniverse = []string{
	"AAPL", "MSFT", "GOOGL", "AMZN", "TSLA", "META", "NVDA", "JPM", "JNJ", "V",
	"PG", "UNH", "HD", "DIS", "MA", "PFE", "BAC", "XOM", "ADBE", "CRM",
	"NFLX", "PYPL", "INTC", "CMCSA", "VZ", "KO", "PEP", "WMT", "ABT", "TMO",
	"COST", "AVGO", "ACN", "DHR", "NKE", "LIN", "NEE", "MRK", "TXN", "AMD",
	"QCOM", "HON", "UPS", "LOW", "SBUX", "IBM", "CVX", "LMT", "GS",
}

var companyDomains = map[string]string{
	"AAPL":  "apple.com",
	"MSFT":  "microsoft.com",
	"GOOGL": "google.com",
	"AMZN":  "amazon.com",
	"TSLA":  "tesla.com",
	"META":  "meta.com",
	"NVDA":  "nvidia.com",
	"JPM":   "jpmorganchase.com",
	"NFLX":  "netflix.com",
	"BAC":   "bankofamerica.com",
	"MA":    "mastercard.com",
	"ABT":   "abbott.com",
	"TMO":   "thermofisher.com",
	"SBUX":  "starbucks.com",
	"CVX":   "chevron.com",
	"LMT":   "lockheedmartin.com",
	"DIS":   "disney.com",
	"NEE":   "nexteraenergy.com",
	"KO":    "coca-cola.com",
	"HON":   "honeywell.com",
}

// CompanyDomain returns the web domain used for logo lookup.
func CompanyDomain(ticker string) string {
	t := strings.ToUpper(ticker)
	if d, ok := companyDomains[t]; ok {
		return d
	}
	return strings.ToLower(t) + ".com"
}

// LogoURL returns the clearbit logo URL for a ticker.
func LogoURL(ticker string) string {
	return "https://logo.clearbit.com/" + CompanyDomain(ticker)
}

// ChartDateLayout matches the millisecond UTC ISO-8601 form used in chart points.
const ChartDateLayout = "2006-01-02T15:04:05.000Z"

// NewChartPoint builds a chart point from a time and price.
func NewChartPoint(t time.Time, price float64) ChartPoint {
	return ChartPoint{
		Timestamp: t.UnixMilli(),
		Price:     price,
		Date:      t.UTC().Format(ChartDateLayout),
	}
}

// SplitMovers sorts by change descending and returns up to limit positive
// movers and up to limit negative movers, most negative first.
func SplitMovers(items []MoverItem, limit int) MarketMovers {
	sorted := make([]MoverItem, len(items))
	copy(sorted, items)
	sort.SliceStable(sorted, func(i, j int) bool {
		if sorted[i].ChangePercent == sorted[j].ChangePercent {
			return sorted[i].Ticker < sorted[j].Ticker
		}
		return sorted[i].ChangePercent > sorted[j].ChangePercent
	})

	movers := MarketMovers{Gainers: []MoverItem{}, Losers: []MoverItem{}}
	for _, it := range sorted {
		if it.ChangePercent <= 0 || len(movers.Gainers) == limit {
			break
		}
		movers.Gainers = append(movers.Gainers, it)
	}
	for i := len(sorted) - 1; i >= 0; i-- {
		it := sorted[i]
		if it.ChangePercent >= 0 || len(movers.Losers) == limit {
			break
		}
		movers.Losers = append(movers.Losers, it)
	}
	return movers
}
