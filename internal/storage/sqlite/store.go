// Package sqlite implements the stock store on an embedded SQLite database
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite" // Pure-Go SQLite driver.

	"github.com/Vicistar-V/vin-stock-ai/internal/common"
	"github.com/Vicistar-V/vin-stock-ai/internal/interfaces"
	"github.com/Vicistar-V/vin-stock-ai/internal/models"
)

// MemoryPath opens a private in-memory database
const MemoryPath = ":memory:"

// Compile-time interface checks.
var _ interfaces.StockStore = (*Store)(nil)
var _ interfaces.ChangeFeed = (*Store)(nil)

// Store persists stocks, quotes, news and history
type Store struct {
	db     *sql.DB
	feed   *Feed
	logger *common.Logger
	now    func() time.Time
}

const schema = `
CREATE TABLE IF NOT EXISTS stocks (
	ticker TEXT PRIMARY KEY,
	name TEXT NOT NULL DEFAULT '',
	sector TEXT NOT NULL DEFAULT '',
	logo TEXT NOT NULL DEFAULT ''
);

CREATE TABLE IF NOT EXISTS stock_quotes (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	ticker TEXT NOT NULL,
	price REAL NOT NULL,
	change REAL NOT NULL DEFAULT 0,
	change_percent REAL NOT NULL DEFAULT 0,
	high REAL NOT NULL DEFAULT 0,
	low REAL NOT NULL DEFAULT 0,
	open REAL NOT NULL DEFAULT 0,
	previous_close REAL NOT NULL DEFAULT 0,
	volume INTEGER NOT NULL DEFAULT 0,
	created_at INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_quotes_ticker ON stock_quotes(ticker, id);

CREATE TABLE IF NOT EXISTS news (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	ticker TEXT NOT NULL,
	headline TEXT NOT NULL,
	summary TEXT NOT NULL DEFAULT '',
	url TEXT NOT NULL DEFAULT '',
	source TEXT NOT NULL DEFAULT '',
	published_at INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_news_ticker ON news(ticker, published_at);

CREATE TABLE IF NOT EXISTS stock_history (
	ticker TEXT NOT NULL,
	timeframe TEXT NOT NULL,
	ts INTEGER NOT NULL,
	price REAL NOT NULL,
	PRIMARY KEY (ticker, timeframe, ts)
);
`

// Open opens (or creates) the database at path, applies the schema and
// seeds the popular universe when the stocks table is empty.
func Open(ctx context.Context, path string, logger *common.Logger) (*Store, error) {
	if logger == nil {
		logger = common.NewSilentLogger()
	}
	if path == "" {
		path = MemoryPath
	}
	if path != MemoryPath {
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			return nil, fmt.Errorf("failed to create directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// One connection: keeps ":memory:" a single database and serialises writers.
	db.SetMaxOpenConns(1)

	s := &Store{db: db, feed: NewFeed(), logger: logger, now: time.Now}
	if err := s.initialize(ctx); err != nil {
		db.Close()
		return nil, err
	}

	logger.Debug().Str("path", path).Msg("SQLite store opened")
	return s, nil
}

func (s *Store) initialize(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, "PRAGMA busy_timeout = 5000"); err != nil {
		return fmt.Errorf("failed to set busy timeout: %w", err)
	}
	if _, err := s.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("failed to create tables: %w", err)
	}

	var count int
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM stocks").Scan(&count); err != nil {
		return fmt.Errorf("failed to count stocks: %w", err)
	}
	if count > 0 {
		return nil
	}
	for _, stock := range models.PopularStocks {
		if err := s.UpsertStock(ctx, stock); err != nil {
			return fmt.Errorf("failed to seed %s: %w", stock.Ticker, err)
		}
	}
	s.logger.Info().Int("stocks", len(models.PopularStocks)).Msg("Seeded stock universe")
	return nil
}

// Close closes the change feed and the database
func (s *Store) Close() error {
	s.feed.Close()
	return s.db.Close()
}

// Subscribe registers for change events on table
func (s *Store) Subscribe(table string) (<-chan models.ChangeEvent, func()) {
	return s.feed.Subscribe(table)
}

// UpsertStock inserts or updates a tracked stock
func (s *Store) UpsertStock(ctx context.Context, stock models.StockInfo) error {
	ticker := strings.ToUpper(strings.TrimSpace(stock.Ticker))
	if ticker == "" {
		return errors.New("ticker is required")
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO stocks (ticker, name, sector, logo) VALUES (?, ?, ?, ?)
		ON CONFLICT(ticker) DO UPDATE SET name = excluded.name, sector = excluded.sector, logo = excluded.logo`,
		ticker, stock.Name, stock.Sector, stock.Logo)
	if err != nil {
		return fmt.Errorf("failed to upsert stock: %w", err)
	}
	return nil
}

// ListStocks returns all tracked stocks ordered by ticker
func (s *Store) ListStocks(ctx context.Context) ([]models.StockInfo, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT ticker, name, sector, logo FROM stocks ORDER BY ticker")
	if err != nil {
		return nil, fmt.Errorf("failed to list stocks: %w", err)
	}
	defer rows.Close()

	var stocks []models.StockInfo
	for rows.Next() {
		var st models.StockInfo
		if err := rows.Scan(&st.Ticker, &st.Name, &st.Sector, &st.Logo); err != nil {
			return nil, fmt.Errorf("failed to scan stock: %w", err)
		}
		stocks = append(stocks, st)
	}
	return stocks, rows.Err()
}

// InsertQuotes stores quote snapshots in one transaction, then publishes an
// INSERT event per row.
func (s *Store) InsertQuotes(ctx context.Context, quotes []models.Quote) error {
	if len(quotes) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO stock_quotes (ticker, price, change, change_percent, high, low, open, previous_close, volume, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("failed to prepare insert: %w", err)
	}
	defer stmt.Close()

	events := make([]models.ChangeEvent, 0, len(quotes))
	for _, q := range quotes {
		at := q.Timestamp
		if at.IsZero() {
			at = s.now()
		}
		ticker := strings.ToUpper(q.Ticker)
		if _, err := stmt.ExecContext(ctx, ticker, q.Current, q.Change, q.ChangePercent,
			q.High, q.Low, q.Open, q.PreviousClose, q.Volume, at.UnixMilli()); err != nil {
			return fmt.Errorf("failed to insert quote for %s: %w", ticker, err)
		}
		events = append(events, models.ChangeEvent{
			Table: models.TableStockQuotes, Op: models.OpInsert, Ticker: ticker, At: at,
		})
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit quotes: %w", err)
	}

	for _, ev := range events {
		s.feed.Publish(ev)
	}
	return nil
}

// LatestQuotes returns the most recent quote per ticker
func (s *Store) LatestQuotes(ctx context.Context) (map[string]models.Quote, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT ticker, price, change, change_percent, high, low, open, previous_close, volume, created_at
		FROM stock_quotes
		WHERE id IN (SELECT MAX(id) FROM stock_quotes GROUP BY ticker)`)
	if err != nil {
		return nil, fmt.Errorf("failed to query latest quotes: %w", err)
	}
	defer rows.Close()

	quotes := make(map[string]models.Quote)
	for rows.Next() {
		var q models.Quote
		var createdAt int64
		if err := rows.Scan(&q.Ticker, &q.Current, &q.Change, &q.ChangePercent, &q.High, &q.Low,
			&q.Open, &q.PreviousClose, &q.Volume, &createdAt); err != nil {
			return nil, fmt.Errorf("failed to scan quote: %w", err)
		}
		q.Timestamp = time.UnixMilli(createdAt).UTC()
		quotes[q.Ticker] = q
	}
	return quotes, rows.Err()
}

// PruneQuotes keeps the newest keep rows for ticker and returns the number deleted
func (s *Store) PruneQuotes(ctx context.Context, ticker string, keep int) (int64, error) {
	ticker = strings.ToUpper(ticker)
	res, err := s.db.ExecContext(ctx, `
		DELETE FROM stock_quotes
		WHERE ticker = ? AND id NOT IN (
			SELECT id FROM stock_quotes WHERE ticker = ? ORDER BY id DESC LIMIT ?
		)`, ticker, ticker, keep)
	if err != nil {
		return 0, fmt.Errorf("failed to prune quotes: %w", err)
	}
	return res.RowsAffected()
}

// ReplaceNews swaps the stored news for ticker
func (s *Store) ReplaceNews(ctx context.Context, ticker string, items []*models.NewsItem) error {
	ticker = strings.ToUpper(ticker)

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, "DELETE FROM news WHERE ticker = ?", ticker); err != nil {
		return fmt.Errorf("failed to clear news: %w", err)
	}
	for _, n := range items {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO news (ticker, headline, summary, url, source, published_at) VALUES (?, ?, ?, ?, ?, ?)`,
			ticker, n.Headline, n.Summary, n.URL, n.Source, n.PublishedAt.UnixMilli()); err != nil {
			return fmt.Errorf("failed to insert news: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit news: %w", err)
	}
	return nil
}

// LatestNews returns up to limit news items for ticker, newest first
func (s *Store) LatestNews(ctx context.Context, ticker string, limit int) ([]*models.NewsItem, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, ticker, headline, summary, url, source, published_at
		FROM news WHERE ticker = ? ORDER BY published_at DESC, id DESC LIMIT ?`,
		strings.ToUpper(ticker), limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query news: %w", err)
	}
	defer rows.Close()

	var items []*models.NewsItem
	for rows.Next() {
		n := &models.NewsItem{}
		var published int64
		if err := rows.Scan(&n.ID, &n.Ticker, &n.Headline, &n.Summary, &n.URL, &n.Source, &published); err != nil {
			return nil, fmt.Errorf("failed to scan news: %w", err)
		}
		n.PublishedAt = time.UnixMilli(published).UTC()
		items = append(items, n)
	}
	return items, rows.Err()
}

// ReplaceHistory swaps the stored chart series for each timeframe given
func (s *Store) ReplaceHistory(ctx context.Context, ticker string, history map[string][]models.ChartPoint) error {
	ticker = strings.ToUpper(ticker)

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	for timeframe, points := range history {
		if _, err := tx.ExecContext(ctx, "DELETE FROM stock_history WHERE ticker = ? AND timeframe = ?", ticker, timeframe); err != nil {
			return fmt.Errorf("failed to clear history: %w", err)
		}
		for _, p := range points {
			if _, err := tx.ExecContext(ctx, `
				INSERT OR REPLACE INTO stock_history (ticker, timeframe, ts, price) VALUES (?, ?, ?, ?)`,
				ticker, timeframe, p.Timestamp, p.Price); err != nil {
				return fmt.Errorf("failed to insert history: %w", err)
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit history: %w", err)
	}
	return nil
}

// History returns the stored chart series, oldest first
func (s *Store) History(ctx context.Context, ticker, timeframe string) ([]models.ChartPoint, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT ts, price FROM stock_history WHERE ticker = ? AND timeframe = ? ORDER BY ts`,
		strings.ToUpper(ticker), timeframe)
	if err != nil {
		return nil, fmt.Errorf("failed to query history: %w", err)
	}
	defer rows.Close()

	points := []models.ChartPoint{}
	for rows.Next() {
		var ts int64
		var price float64
		if err := rows.Scan(&ts, &price); err != nil {
			return nil, fmt.Errorf("failed to scan history: %w", err)
		}
		points = append(points, models.NewChartPoint(time.UnixMilli(ts), price))
	}
	return points, rows.Err()
}
