package interfaces

import (
	"context"

	"github.com/Vicistar-V/vin-stock-ai/internal/models"
)

// StockStore persists tracked stocks, quotes, news and price history
type StockStore interface {
	UpsertStock(ctx context.Context, stock models.StockInfo) error
	ListStocks(ctx context.Context) ([]models.StockInfo, error)

	// InsertQuotes stores quote snapshots and publishes one INSERT event per row
	InsertQuotes(ctx context.Context, quotes []models.Quote) error
	LatestQuotes(ctx context.Context) (map[string]models.Quote, error)
	PruneQuotes(ctx context.Context, ticker string, keep int) (int64, error)

	ReplaceNews(ctx context.Context, ticker string, items []*models.NewsItem) error
	LatestNews(ctx context.Context, ticker string, limit int) ([]*models.NewsItem, error)

	ReplaceHistory(ctx context.Context, ticker string, history map[string][]models.ChartPoint) error
	History(ctx context.Context, ticker, timeframe string) ([]models.ChartPoint, error)

	// MarketDashboard builds the overview (ticker == "") or one stock's
	// detail with chart data for the timeframe.
	MarketDashboard(ctx context.Context, ticker, timeframe string) (models.DashboardPayload, error)

	Close() error
}

// ChangeFeed delivers store change notifications
type ChangeFeed interface {
	// Subscribe returns events for table and a cancel func that closes the channel
	Subscribe(table string) (<-chan models.ChangeEvent, func())
}
