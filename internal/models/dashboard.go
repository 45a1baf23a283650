package models

import "time"

// DashboardTicker is the cache key used when no ticker is requested
const DashboardTicker = "dashboard"

// DefaultTimeframe applies to single-stock dashboard requests
const DefaultTimeframe = "1D"

// MarketStats summarises the tracked universe
type MarketStats struct {
	TotalStocks  int     `json:"total_stocks"`
	GainersCount int     `json:"gainers_count"`
	LosersCount  int     `json:"losers_count"`
	AvgChange    float64 `json:"avg_change"`
	LastUpdated  string  `json:"last_updated"`
}

// DashboardData is the market overview payload
type DashboardData struct {
	PopularStocks []PopularStock          `json:"popular_stocks"`
	MarketMovers  MarketMovers            `json:"market_movers"`
	MarketStats   MarketStats             `json:"market_stats"`
	AllChartData  map[string][]ChartPoint `json:"all_chart_data,omitempty"`
	Timestamp     int64                   `json:"timestamp"`
}

// DashboardStock is the snake_case stock block of StockDetailData
type DashboardStock struct {
	Ticker        string  `json:"ticker"`
	Name          string  `json:"name"`
	Logo          string  `json:"logo"`
	CurrentPrice  float64 `json:"current_price"`
	PriceChange   float64 `json:"price_change"`
	ChangePercent float64 `json:"change_percent"`
	High          float64 `json:"high"`
	Low           float64 `json:"low"`
	Open          float64 `json:"open"`
	PreviousClose float64 `json:"previous_close"`
	Volume        int64   `json:"volume"`
	MarketCap     float64 `json:"market_cap,omitempty"`
}

// StockDetailData is the single-stock dashboard payload
type StockDetailData struct {
	StockDetail DashboardStock `json:"stock_detail"`
	ChartData   []ChartPoint   `json:"chart_data"`
	Timestamp   int64          `json:"timestamp"`
}

// DashboardStockFromDetail converts a stock-detail response into the
// dashboard block.
func DashboardStockFromDetail(d *StockDetail) DashboardStock {
	return DashboardStock{
		Ticker:        d.Ticker,
		Name:          d.Name,
		Logo:          d.Logo,
		CurrentPrice:  d.CurrentPrice,
		PriceChange:   d.PriceChange,
		ChangePercent: d.ChangePercent,
		High:          d.High,
		Low:           d.Low,
		Open:          d.Open,
		PreviousClose: d.PreviousClose,
		Volume:        d.Volume,
		MarketCap:     d.MarketCap,
	}
}

// DashboardPayload is either a *DashboardData or a *StockDetailData.
type DashboardPayload interface {
	isDashboardPayload()
}

func (*DashboardData) isDashboardPayload()   {}
func (*StockDetailData) isDashboardPayload() {}

// ChangeEvent is published by the store when a watched table changes
type ChangeEvent struct {
	Table  string    `json:"table"`
	Op     string    `json:"op"`
	Ticker string    `json:"ticker"`
	At     time.Time `json:"at"`
}

// Store tables and operations carried in ChangeEvent
const (
	TableStockQuotes = "stock_quotes"
	TableNews        = "news"
	TableHistory     = "stock_history"
	OpInsert         = "INSERT"
)
