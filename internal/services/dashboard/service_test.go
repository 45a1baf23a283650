package dashboard

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/Vicistar-V/vin-stock-ai/internal/common"
	"github.com/Vicistar-V/vin-stock-ai/internal/interfaces"
	"github.com/Vicistar-V/vin-stock-ai/internal/models"
	"github.com/Vicistar-V/vin-stock-ai/internal/storage/sqlite"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

// --- Fakes ---

type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

type fakeStore struct {
	interfaces.StockStore
	calls atomic.Int32
	gate  chan struct{} // when set, MarketDashboard blocks until closed
	err   error
	price float64
}

func (s *fakeStore) MarketDashboard(ctx context.Context, ticker, _ string) (models.DashboardPayload, error) {
	n := s.calls.Add(1)
	if s.gate != nil {
		<-s.gate
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if s.err != nil {
		return nil, s.err
	}
	if ticker == "" {
		return &models.DashboardData{
			MarketStats: models.MarketStats{TotalStocks: int(n)},
		}, nil
	}
	return &models.StockDetailData{
		StockDetail: models.DashboardStock{Ticker: ticker, CurrentPrice: s.price},
		ChartData:   []models.ChartPoint{},
	}, nil
}

type fakeMarket struct {
	interfaces.MarketService
	detail *models.StockDetail
	err    error
	calls  int
}

func (m *fakeMarket) GetStockDetail(_ context.Context, ticker string) (*models.StockDetail, error) {
	m.calls++
	if m.err != nil {
		return nil, m.err
	}
	d := *m.detail
	d.Ticker = ticker
	return &d, nil
}

var start = time.Date(2025, 5, 1, 14, 30, 0, 0, time.UTC)

func newTestService(store interfaces.StockStore, market interfaces.MarketService) (*Service, *fakeClock, *sqlite.Feed) {
	clock := &fakeClock{t: start}
	feed := sqlite.NewFeed()
	svc := NewService(store, feed, market, 10*time.Second, common.NewSilentLogger())
	svc.now = clock.Now
	return svc, clock, feed
}

func overviewTotal(t *testing.T, res *interfaces.DashboardResult) int {
	t.Helper()
	d, ok := res.Data.(*models.DashboardData)
	require.True(t, ok, "want *DashboardData, got %T", res.Data)
	return d.MarketStats.TotalStocks
}

// --- Tests ---

func TestCacheKey(t *testing.T) {
	tests := []struct {
		ticker, timeframe, want string
	}{
		{"", "", "dashboard"},
		{"", "1M", "dashboard"},
		{"aapl", "", "AAPL_1D"},
		{" msft ", "5d", "MSFT_5D"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, CacheKey(tt.ticker, tt.timeframe), "CacheKey(%q, %q)", tt.ticker, tt.timeframe)
	}
}

func TestGet_ServesCacheWithinWindowAndRefetchesAfter(t *testing.T) {
	store := &fakeStore{}
	svc, clock, _ := newTestService(store, nil)
	ctx := context.Background()

	res, err := svc.Get(ctx, "", "")
	require.NoError(t, err)
	assert.False(t, res.Fresh)
	assert.Equal(t, 1, overviewTotal(t, res))
	assert.Equal(t, start, res.FetchedAt)

	clock.Advance(9 * time.Second)
	res, err = svc.Get(ctx, "", "")
	require.NoError(t, err)
	assert.True(t, res.Fresh)
	assert.Equal(t, 1, overviewTotal(t, res))
	assert.True(t, svc.IsFresh("", ""))

	clock.Advance(time.Second)
	assert.False(t, svc.IsFresh("", ""), "fresh window is exclusive")
	res, err = svc.Get(ctx, "", "")
	require.NoError(t, err)
	assert.False(t, res.Fresh)
	assert.Equal(t, 2, overviewTotal(t, res))
	assert.Equal(t, int32(2), store.calls.Load())
}

func TestGet_KeysAreIndependent(t *testing.T) {
	store := &fakeStore{price: 101}
	svc, clock, _ := newTestService(store, nil)
	ctx := context.Background()

	_, err := svc.Get(ctx, "AAPL", "1D")
	require.NoError(t, err)
	clock.Advance(8 * time.Second)
	_, err = svc.Get(ctx, "MSFT", "")
	require.NoError(t, err)
	clock.Advance(3 * time.Second)

	assert.False(t, svc.IsFresh("AAPL", "1D"))
	assert.True(t, svc.IsFresh("msft", "1d"))
	assert.False(t, svc.IsFresh("AAPL", "5D"), "other timeframe was never fetched")
}

func TestRefresh_IgnoresFreshness(t *testing.T) {
	store := &fakeStore{}
	svc, _, _ := newTestService(store, nil)
	ctx := context.Background()

	_, err := svc.Get(ctx, "", "")
	require.NoError(t, err)
	res, err := svc.Refresh(ctx, "", "")
	require.NoError(t, err)
	assert.Equal(t, 2, overviewTotal(t, res))
}

func TestGet_FallsBackToStockDetail(t *testing.T) {
	store := &fakeStore{err: models.ErrNotFound}
	market := &fakeMarket{detail: &models.StockDetail{
		Name: "Apple Inc", CurrentPrice: 190.5, PriceChange: 1.5, ChangePercent: 0.79, Volume: 1200,
	}}
	svc, _, _ := newTestService(store, market)

	res, err := svc.Get(context.Background(), "aapl", "")
	require.NoError(t, err)

	d, ok := res.Data.(*models.StockDetailData)
	require.True(t, ok)
	assert.Equal(t, "AAPL", d.StockDetail.Ticker)
	assert.Equal(t, "Apple Inc", d.StockDetail.Name)
	assert.Equal(t, 190.5, d.StockDetail.CurrentPrice)
	assert.Equal(t, int64(1200), d.StockDetail.Volume)
	assert.NotNil(t, d.ChartData)
	assert.Empty(t, d.ChartData)
	assert.Equal(t, start.UnixMilli(), d.Timestamp)
	assert.Equal(t, 1, market.calls)
}

func TestGet_OverviewHasNoFallback(t *testing.T) {
	store := &fakeStore{err: models.ErrNoData}
	market := &fakeMarket{detail: &models.StockDetail{}}
	svc, _, _ := newTestService(store, market)

	res, err := svc.Get(context.Background(), "", "")
	assert.ErrorIs(t, err, models.ErrNoData)
	assert.Nil(t, res)
	assert.Zero(t, market.calls)
}

func TestGet_FailureKeepsLastValue(t *testing.T) {
	store := &fakeStore{price: 50}
	market := &fakeMarket{err: errors.New("Finnhub API error: 429")}
	svc, clock, _ := newTestService(store, market)
	ctx := context.Background()

	_, err := svc.Get(ctx, "TSLA", "")
	require.NoError(t, err)

	store.err = errors.New("database is locked")
	clock.Advance(time.Minute)

	res, err := svc.Get(ctx, "TSLA", "")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "database is locked")
	assert.Contains(t, err.Error(), "429")
	require.NotNil(t, res)
	assert.False(t, res.Fresh)
	assert.Equal(t, start, res.FetchedAt)
	assert.Equal(t, 50.0, res.Data.(*models.StockDetailData).StockDetail.CurrentPrice)
}

func TestGet_CoalescesConcurrentMisses(t *testing.T) {
	store := &fakeStore{gate: make(chan struct{})}
	svc, _, _ := newTestService(store, nil)

	const callers = 8
	var wg sync.WaitGroup
	results := make([]*interfaces.DashboardResult, callers)
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			res, err := svc.Get(context.Background(), "", "")
			assert.NoError(t, err)
			results[i] = res
		}(i)
	}

	require.Eventually(t, func() bool { return store.calls.Load() == 1 }, time.Second, time.Millisecond)
	time.Sleep(20 * time.Millisecond)
	close(store.gate)
	wg.Wait()

	for _, res := range results {
		require.NotNil(t, res)
	}
	assert.LessOrEqual(t, store.calls.Load(), int32(2), "late callers may start one more fetch")
}

func TestInvalidate_DuringFetchIsNotCachedAsFresh(t *testing.T) {
	store := &fakeStore{gate: make(chan struct{})}
	svc, _, _ := newTestService(store, nil)
	ctx := context.Background()

	done := make(chan *interfaces.DashboardResult, 1)
	go func() {
		res, err := svc.Get(ctx, "", "")
		assert.NoError(t, err)
		done <- res
	}()
	require.Eventually(t, func() bool { return store.calls.Load() == 1 }, time.Second, time.Millisecond)

	svc.Invalidate()
	close(store.gate)

	res := <-done
	require.NotNil(t, res)
	assert.Equal(t, 1, overviewTotal(t, res))
	assert.False(t, svc.IsFresh("", ""), "snapshot loaded before the invalidation must not be fresh")

	res, err := svc.Get(ctx, "", "")
	require.NoError(t, err)
	assert.Equal(t, 2, overviewTotal(t, res))
	assert.Equal(t, int32(2), store.calls.Load())
	assert.True(t, svc.IsFresh("", ""))
}

func TestInvalidate_NewMissDoesNotJoinStaleFetch(t *testing.T) {
	store := &fakeStore{gate: make(chan struct{})}
	svc, _, _ := newTestService(store, nil)
	ctx := context.Background()

	var wg sync.WaitGroup
	get := func() {
		defer wg.Done()
		_, err := svc.Get(ctx, "", "")
		assert.NoError(t, err)
	}

	wg.Add(1)
	go get()
	require.Eventually(t, func() bool { return store.calls.Load() == 1 }, time.Second, time.Millisecond)

	svc.Invalidate()
	wg.Add(1)
	go get()
	require.Eventually(t, func() bool { return store.calls.Load() == 2 }, time.Second, time.Millisecond)

	close(store.gate)
	wg.Wait()

	res, err := svc.Get(ctx, "", "")
	require.NoError(t, err)
	assert.True(t, res.Fresh)
	assert.Equal(t, 2, overviewTotal(t, res), "the post-invalidation load wins")
	assert.Equal(t, int32(2), store.calls.Load())
}

func TestGet_CallerCancelDoesNotFailSharedFetch(t *testing.T) {
	store := &fakeStore{gate: make(chan struct{})}
	svc, _, _ := newTestService(store, nil)

	ctxA, cancelA := context.WithCancel(context.Background())
	defer cancelA()
	errA := make(chan error, 1)
	go func() {
		_, err := svc.Get(ctxA, "", "")
		errA <- err
	}()
	require.Eventually(t, func() bool { return store.calls.Load() == 1 }, time.Second, time.Millisecond)

	resB := make(chan *interfaces.DashboardResult, 1)
	go func() {
		res, err := svc.Get(context.Background(), "", "")
		assert.NoError(t, err)
		resB <- res
	}()
	time.Sleep(20 * time.Millisecond)

	cancelA()
	assert.ErrorIs(t, <-errA, context.Canceled)

	close(store.gate)
	res := <-resB
	require.NotNil(t, res)
	assert.Equal(t, 1, overviewTotal(t, res))
	assert.Equal(t, int32(1), store.calls.Load())
	assert.True(t, svc.IsFresh("", ""))
}

func TestRun_InvalidatesOnQuoteInsert(t *testing.T) {
	store := &fakeStore{}
	svc, _, feed := newTestService(store, nil)
	defer feed.Close()

	seen := make(chan models.ChangeEvent, 1)
	svc.Watch(func(ev models.ChangeEvent) {
		select {
		case seen <- ev:
		default:
		}
	})

	_, err := svc.Get(context.Background(), "", "")
	require.NoError(t, err)
	require.True(t, svc.IsFresh("", ""))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		svc.Run(ctx)
	}()

	// Subscribe happens inside Run; publish until the watcher sees it
	ev := models.ChangeEvent{Table: models.TableStockQuotes, Op: models.OpInsert, Ticker: "AAPL", At: start}
	require.Eventually(t, func() bool {
		feed.Publish(ev)
		select {
		case got := <-seen:
			assert.Equal(t, "AAPL", got.Ticker)
			return true
		default:
			return false
		}
	}, time.Second, 5*time.Millisecond)

	assert.False(t, svc.IsFresh("", ""))
	res, err := svc.Get(context.Background(), "", "")
	require.NoError(t, err)
	assert.Equal(t, 2, overviewTotal(t, res))

	cancel()
	<-done
}

func TestRun_StopsWhenFeedCloses(t *testing.T) {
	svc, _, feed := newTestService(&fakeStore{}, nil)

	done := make(chan struct{})
	go func() {
		defer close(done)
		svc.Run(context.Background())
	}()

	time.Sleep(10 * time.Millisecond)
	feed.Close()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Run did not return after feed close")
	}
}
