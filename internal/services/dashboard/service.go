// Package dashboard serves the market dashboard and single-stock views from
// a short-lived per-key cache that is invalidated by store quote inserts.
package dashboard

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/Vicistar-V/vin-stock-ai/internal/common"
	"github.com/Vicistar-V/vin-stock-ai/internal/interfaces"
	"github.com/Vicistar-V/vin-stock-ai/internal/models"
)

// loadTimeout bounds a shared fetch, which outlives the caller that started it
const loadTimeout = 30 * time.Second

// entry is the last payload fetched for one cache key
type entry struct {
	data      models.DashboardPayload
	fetchedAt time.Time // zero after Invalidate
}

// Service implements DashboardService
type Service struct {
	store  interfaces.StockStore
	feed   interfaces.ChangeFeed
	market interfaces.MarketService // fallback for single-stock views; may be nil
	logger *common.Logger
	ttl    time.Duration
	now    func() time.Time

	mu      sync.RWMutex
	entries map[string]*entry
	gen     uint64 // bumped by Invalidate
	group   singleflight.Group

	watchMu  sync.RWMutex
	watchers []func(models.ChangeEvent)
}

// NewService creates a dashboard cache. A non-positive ttl uses the
// default freshness window.
func NewService(store interfaces.StockStore, feed interfaces.ChangeFeed, market interfaces.MarketService, ttl time.Duration, logger *common.Logger) *Service {
	if ttl <= 0 {
		ttl = common.FreshnessDashboard
	}
	return &Service{
		store:   store,
		feed:    feed,
		market:  market,
		logger:  logger,
		ttl:     ttl,
		now:     time.Now,
		entries: make(map[string]*entry),
	}
}

// CacheKey returns TICKER_TIMEFRAME, or the overview key when ticker is empty
func CacheKey(ticker, timeframe string) string {
	ticker = strings.ToUpper(strings.TrimSpace(ticker))
	if ticker == "" {
		return models.DashboardTicker
	}
	if timeframe == "" {
		timeframe = models.DefaultTimeframe
	}
	return ticker + "_" + strings.ToUpper(timeframe)
}

// IsFresh reports whether the key was fetched within the ttl
func (s *Service) IsFresh(ticker, timeframe string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.entries[CacheKey(ticker, timeframe)]
	return ok && common.IsFreshAt(e.fetchedAt, s.now(), s.ttl)
}

// Get returns the cached payload while fresh, otherwise refetches
func (s *Service) Get(ctx context.Context, ticker, timeframe string) (*interfaces.DashboardResult, error) {
	key := CacheKey(ticker, timeframe)

	s.mu.RLock()
	e, ok := s.entries[key]
	if ok && common.IsFreshAt(e.fetchedAt, s.now(), s.ttl) {
		res := &interfaces.DashboardResult{Data: e.data, Fresh: true, FetchedAt: e.fetchedAt}
		s.mu.RUnlock()
		return res, nil
	}
	s.mu.RUnlock()

	return s.fetch(ctx, key, ticker, timeframe)
}

// Refresh refetches regardless of freshness
func (s *Service) Refresh(ctx context.Context, ticker, timeframe string) (*interfaces.DashboardResult, error) {
	return s.fetch(ctx, CacheKey(ticker, timeframe), ticker, timeframe)
}

// Invalidate marks every key stale. Payloads are kept so a failed refetch
// can still serve the last known value. Fetches already in flight finish
// but their results are cached unstamped, and later misses do not join them.
func (s *Service) Invalidate() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.gen++
	for _, e := range s.entries {
		e.fetchedAt = time.Time{}
	}
}

// Watch registers fn to be called after each invalidating change event
func (s *Service) Watch(fn func(models.ChangeEvent)) {
	s.watchMu.Lock()
	defer s.watchMu.Unlock()
	s.watchers = append(s.watchers, fn)
}

// Run consumes quote insert events until ctx is done or the feed closes
func (s *Service) Run(ctx context.Context) {
	events, cancel := s.feed.Subscribe(models.TableStockQuotes)
	defer cancel()

	s.logger.Debug().Msg("Dashboard: watching quote inserts")
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-events:
			if !ok {
				return
			}
			if ev.Op != models.OpInsert {
				continue
			}
			s.Invalidate()
			s.notify(ev)
		}
	}
}

func (s *Service) notify(ev models.ChangeEvent) {
	s.watchMu.RLock()
	defer s.watchMu.RUnlock()
	for _, fn := range s.watchers {
		fn(ev)
	}
}

// fetch coalesces concurrent misses for key, then caches the result. On
// failure the last cached payload, if any, is returned with the error.
// The shared load ignores the caller's cancellation so one disconnecting
// client cannot fail the others waiting on the same key.
func (s *Service) fetch(ctx context.Context, key, ticker, timeframe string) (*interfaces.DashboardResult, error) {
	s.mu.RLock()
	gen := s.gen
	s.mu.RUnlock()

	ch := s.group.DoChan(key+"@"+strconv.FormatUint(gen, 10), func() (any, error) {
		lctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), loadTimeout)
		defer cancel()

		data, err := s.load(lctx, ticker, timeframe)
		if err != nil {
			return nil, err
		}
		at := s.now()
		s.save(key, data, at, gen)
		return &interfaces.DashboardResult{Data: data, FetchedAt: at}, nil
	})

	var err error
	select {
	case r := <-ch:
		if r.Err == nil {
			return r.Val.(*interfaces.DashboardResult), nil
		}
		err = r.Err
	case <-ctx.Done():
		err = ctx.Err()
	}

	s.logger.Warn().Str("key", key).Err(err).Msg("Dashboard fetch failed")
	s.mu.RLock()
	defer s.mu.RUnlock()
	if e, ok := s.entries[key]; ok {
		return &interfaces.DashboardResult{Data: e.data, FetchedAt: e.fetchedAt}, err
	}
	return nil, err
}

// save caches data loaded under generation gen. A load that raced an
// Invalidate is kept as the last known value but never counts as fresh,
// and never replaces a payload fetched after the invalidation.
func (s *Service) save(key string, data models.DashboardPayload, at time.Time, gen uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if gen == s.gen {
		s.entries[key] = &entry{data: data, fetchedAt: at}
		return
	}
	if e, ok := s.entries[key]; ok && !e.fetchedAt.IsZero() {
		return
	}
	s.entries[key] = &entry{data: data}
}

// load tries the store first, then the stock-detail operation when a
// ticker is given.
func (s *Service) load(ctx context.Context, ticker, timeframe string) (models.DashboardPayload, error) {
	data, err := s.store.MarketDashboard(ctx, ticker, timeframe)
	if err == nil && !isEmpty(data) {
		return data, nil
	}
	if err == nil {
		err = models.ErrNoData
	}

	ticker = strings.ToUpper(strings.TrimSpace(ticker))
	if ticker == "" || s.market == nil {
		return nil, fmt.Errorf("dashboard: %w", err)
	}

	s.logger.Debug().Str("ticker", ticker).Err(err).Msg("Dashboard store miss, using stock detail")
	detail, ferr := s.market.GetStockDetail(ctx, ticker)
	if ferr != nil {
		return nil, fmt.Errorf("dashboard fallback for %s: %w", ticker, errors.Join(err, ferr))
	}
	return &models.StockDetailData{
		StockDetail: models.DashboardStockFromDetail(detail),
		ChartData:   []models.ChartPoint{},
		Timestamp:   s.now().UnixMilli(),
	}, nil
}

func isEmpty(p models.DashboardPayload) bool {
	switch d := p.(type) {
	case nil:
		return true
	case *models.DashboardData:
		return d == nil
	case *models.StockDetailData:
		return d == nil
	}
	return false
}

// Ensure Service implements DashboardService
var _ interfaces.DashboardService = (*Service)(nil)
