// Package models defines data structures for vin-stock-ai
package models

import (
	"errors"
	"time"
)

// ErrNoData is returned when an upstream answered but carried nothing usable.
var ErrNoData = errors.New("no data")

// ErrNotFound is returned when a ticker has no quote or stored record.
var ErrNotFound = errors.New("not found")

// InputError reports a request the caller must fix. Handlers answer 400.
type InputError struct {
	Message string
}

func (e *InputError) Error() string {
	return e.Message
}

// NewInputError returns an *InputError with msg
func NewInputError(msg string) error {
	return &InputError{Message: msg}
}

// Quote is a real-time price snapshot for a ticker
type Quote struct {
	Ticker        string    `json:"ticker"`
	Current       float64   `json:"current"`
	Change        float64   `json:"change"`
	ChangePercent float64   `json:"change_percent"`
	High          float64   `json:"high"`
	Low           float64   `json:"low"`
	Open          float64   `json:"open"`
	PreviousClose float64   `json:"previous_close"`
	Volume        int64     `json:"volume"`
	Timestamp     time.Time `json:"timestamp"`
}

// CompanyProfile is the vendor company profile. MarketCap is in millions.
type CompanyProfile struct {
	Ticker    string  `json:"ticker"`
	Name      string  `json:"name"`
	Logo      string  `json:"logo"`
	Country   string  `json:"country"`
	Currency  string  `json:"currency"`
	Exchange  string  `json:"exchange"`
	Industry  string  `json:"industry"`
	WebURL    string  `json:"weburl"`
	IPO       string  `json:"ipo,omitempty"`
	MarketCap float64 `json:"market_cap"`
}

// Candle is one OHLCV bar
type Candle struct {
	Time   time.Time `json:"time"`
	Open   float64   `json:"open"`
	High   float64   `json:"high"`
	Low    float64   `json:"low"`
	Close  float64   `json:"close"`
	Volume int64     `json:"volume"`
}

// Metrics holds the numeric entries of a basic-financials response.
// Null and non-numeric vendor fields are dropped.
type Metrics map[string]float64

// First returns the value of the first key present.
func (m Metrics) First(keys ...string) (float64, bool) {
	for _, k := range keys {
		if v, ok := m[k]; ok {
			return v, true
		}
	}
	return 0, false
}

// NewsItem is a company news article
type NewsItem struct {
	ID          int64     `json:"id"`
	Ticker      string    `json:"ticker"`
	Headline    string    `json:"headline"`
	Summary     string    `json:"summary"`
	URL         string    `json:"url"`
	Source      string    `json:"source"`
	Image       string    `json:"image,omitempty"`
	Category    string    `json:"category,omitempty"`
	PublishedAt time.Time `json:"published_at"`
}

// Filing is a regulatory filing listing entry
type Filing struct {
	AccessNumber string `json:"accessNumber"`
	Symbol       string `json:"symbol"`
	CIK          string `json:"cik"`
	Form         string `json:"form"`
	FiledDate    string `json:"filedDate"`
	AcceptedDate string `json:"acceptedDate"`
	ReportURL    string `json:"reportUrl"`
	FilingURL    string `json:"filingUrl"`
}

// StockInfo is a tracked stock row
type StockInfo struct {
	Ticker string `json:"ticker"`
	Name   string `json:"name"`
	Sector string `json:"sector,omitempty"`
	Logo   string `json:"logo,omitempty"`
}

// StockDetail is the single-stock summary served to the detail page
type StockDetail struct {
	Ticker        string  `json:"ticker"`
	Name          string  `json:"name"`
	Logo          string  `json:"logo,omitempty"`
	CurrentPrice  float64 `json:"currentPrice"`
	PriceChange   float64 `json:"priceChange"`
	ChangePercent float64 `json:"changePercent"`
	High          float64 `json:"high"`
	Low           float64 `json:"low"`
	Open          float64 `json:"open"`
	PreviousClose float64 `json:"previousClose"`
	Volume        int64   `json:"volume"`
	MarketCap     float64 `json:"marketCap,omitempty"`
	Fallback      bool    `json:"-"`
}

// ChartPoint is one point of a price chart. Timestamp is unix milliseconds.
type ChartPoint struct {
	Timestamp int64   `json:"timestamp"`
	Price     float64 `json:"price"`
	Date      string  `json:"date"`
}

// ChartResponse is the stock-chart payload
type ChartResponse struct {
	Ticker    string       `json:"ticker"`
	Timeframe string       `json:"timeframe"`
	Data      []ChartPoint `json:"data"`
	Fallback  bool         `json:"fallback,omitempty"`
}

// PopularStock is a ticker-strip entry
type PopularStock struct {
	Ticker        string  `json:"ticker"`
	Name          string  `json:"name"`
	Logo          string  `json:"logo"`
	Price         float64 `json:"price"`
	ChangePercent float64 `json:"changePercent"`
}

// MoverItem is a gainer or loser entry
type MoverItem struct {
	Ticker        string  `json:"ticker"`
	Name          string  `json:"name,omitempty"`
	Logo          string  `json:"logo,omitempty"`
	ChangePercent float64 `json:"changePercent"`
	CurrentPrice  float64 `json:"currentPrice"`
	PriceChange   float64 `json:"priceChange"`
	Volume        int64   `json:"volume,omitempty"`
}

// MarketMovers is the gainers/losers pair
type MarketMovers struct {
	Gainers []MoverItem `json:"gainers"`
	Losers  []MoverItem `json:"losers"`
}

// CompanyInfo is the company block of a search result
type CompanyInfo struct {
	Name      string  `json:"name"`
	Logo      string  `json:"logo"`
	Country   string  `json:"country"`
	Currency  string  `json:"currency"`
	Exchange  string  `json:"exchange"`
	MarketCap float64 `json:"marketCap"`
	Industry  string  `json:"industry"`
	Website   string  `json:"website"`
}

// SearchResult is the natural-language stock search payload
type SearchResult struct {
	Ticker             string       `json:"ticker"`
	CurrentPrice       float64      `json:"currentPrice"`
	PreviousClose      float64      `json:"previousClose"`
	DayHigh            float64      `json:"dayHigh"`
	DayLow             float64      `json:"dayLow"`
	OpenPrice          float64      `json:"openPrice"`
	PriceChange        float64      `json:"priceChange"`
	PriceChangePercent float64      `json:"priceChangePercent"`
	Timestamp          int64        `json:"timestamp"`
	Company            *CompanyInfo `json:"company"`
}

// FinancialMetric is one formatted ratio row
type FinancialMetric struct {
	Key   string  `json:"key"`
	Label string  `json:"label"`
	Value string  `json:"value"`
	Raw   float64 `json:"raw"`
}

// MarketStatus reports whether the US equity market is open
type MarketStatus struct {
	IsOpen   bool      `json:"isOpen"`
	Timezone string    `json:"timezone"`
	Now      time.Time `json:"now"`
	Opens    string    `json:"opens"`
	Closes   string    `json:"closes"`
}
