package analysis

import (
	"context"
	"sync"
	"time"

	"github.com/Vicistar-V/vin-stock-ai/internal/common"
	"github.com/Vicistar-V/vin-stock-ai/internal/interfaces"
	"github.com/Vicistar-V/vin-stock-ai/internal/models"
)

type mockFinnhub struct {
	mu          sync.Mutex
	quotes      map[string]*models.Quote
	profiles    map[string]*models.CompanyProfile
	metrics     map[string]models.Metrics
	news        map[string][]*models.NewsItem
	errs        map[string]error // keyed by ticker, applies to every call
	newsCalls   []string
	newsFrom    time.Time
	newsTo      time.Time
	quoteCalled int
}

func (m *mockFinnhub) GetQuote(_ context.Context, ticker string) (*models.Quote, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.quoteCalled++
	if err := m.errs[ticker]; err != nil {
		return nil, err
	}
	if q, ok := m.quotes[ticker]; ok {
		return q, nil
	}
	return &models.Quote{Ticker: ticker}, nil
}

func (m *mockFinnhub) GetProfile(_ context.Context, ticker string) (*models.CompanyProfile, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.errs[ticker]; err != nil {
		return nil, err
	}
	if p, ok := m.profiles[ticker]; ok {
		return p, nil
	}
	return &models.CompanyProfile{Ticker: ticker}, nil
}

func (m *mockFinnhub) GetCandles(context.Context, string, string, time.Time, time.Time) ([]models.Candle, error) {
	return nil, models.ErrNoData
}

func (m *mockFinnhub) GetMetrics(_ context.Context, ticker string) (models.Metrics, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.errs[ticker]; err != nil {
		return nil, err
	}
	return m.metrics[ticker], nil
}

func (m *mockFinnhub) GetCompanyNews(_ context.Context, ticker string, from, to time.Time) ([]*models.NewsItem, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.newsCalls = append(m.newsCalls, ticker)
	m.newsFrom, m.newsTo = from, to
	if err := m.errs[ticker]; err != nil {
		return nil, err
	}
	return m.news[ticker], nil
}

func (m *mockFinnhub) GetFilings(context.Context, string) ([]models.Filing, error) {
	return nil, nil
}

type llmReply struct {
	text string
	err  error
}

// scriptedLLM answers with replies in order, repeating the last one
type scriptedLLM struct {
	mu      sync.Mutex
	replies []llmReply
	reqs    []interfaces.CompletionRequest
}

func newLLM(replies ...string) *scriptedLLM {
	l := &scriptedLLM{}
	for _, r := range replies {
		l.replies = append(l.replies, llmReply{text: r})
	}
	return l
}

func failingLLM(err error) *scriptedLLM {
	return &scriptedLLM{replies: []llmReply{{err: err}}}
}

func (l *scriptedLLM) Complete(_ context.Context, req interfaces.CompletionRequest) (string, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	i := len(l.reqs)
	l.reqs = append(l.reqs, req)
	if i >= len(l.replies) {
		i = len(l.replies) - 1
	}
	return l.replies[i].text, l.replies[i].err
}

// newsStore serves LatestNews only
type newsStore struct {
	interfaces.StockStore
	items []*models.NewsItem
	limit int
}

func (s *newsStore) LatestNews(_ context.Context, _ string, limit int) ([]*models.NewsItem, error) {
	s.limit = limit
	return s.items, nil
}

var fixedNow = time.Date(2025, 3, 14, 12, 0, 0, 0, time.UTC)

func newTestService(fh interfaces.FinnhubClient, store interfaces.StockStore, llm interfaces.LLMClient) *Service {
	svc := NewService(fh, store, llm, common.NewSilentLogger())
	svc.now = func() time.Time { return fixedNow }
	svc.tickerDelay = 0
	return svc
}
