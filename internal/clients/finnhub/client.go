// Package finnhub provides a client for the Finnhub market data API
package finnhub

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/Vicistar-V/vin-stock-ai/internal/common"
	"github.com/Vicistar-V/vin-stock-ai/internal/interfaces"
	"github.com/Vicistar-V/vin-stock-ai/internal/models"
)

// flexFloat64 handles JSON values that may be a number, a string or null.
type flexFloat64 float64

func (f *flexFloat64) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*f = 0
		return nil
	}
	var num float64
	if err := json.Unmarshal(data, &num); err == nil {
		*f = flexFloat64(num)
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		if s == "" || s == "N/A" {
			*f = 0
			return nil
		}
		num, err := strconv.ParseFloat(s, 64)
		if err != nil {
			*f = 0
			return nil
		}
		*f = flexFloat64(num)
		return nil
	}
	return fmt.Errorf("cannot unmarshal %s into float64", string(data))
}

const (
	DefaultBaseURL   = "https://finnhub.io/api/v1"
	DefaultTimeout   = 30 * time.Second
	DefaultRateLimit = 30 // requests per second
)

// Client implements the FinnhubClient interface
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	logger     *common.Logger
	limiter    *rate.Limiter
}

var _ interfaces.FinnhubClient = (*Client)(nil)

// ClientOption configures the client
type ClientOption func(*Client)

// WithBaseURL sets the base URL
func WithBaseURL(baseURL string) ClientOption {
	return func(c *Client) {
		c.baseURL = strings.TrimRight(baseURL, "/")
	}
}

// WithLogger sets the logger
func WithLogger(logger *common.Logger) ClientOption {
	return func(c *Client) {
		c.logger = logger
	}
}

// WithRateLimit sets the rate limit
func WithRateLimit(requestsPerSecond int) ClientOption {
	return func(c *Client) {
		if requestsPerSecond > 0 {
			c.limiter = rate.NewLimiter(rate.Limit(requestsPerSecond), requestsPerSecond)
		}
	}
}

// WithTimeout sets the HTTP timeout
func WithTimeout(timeout time.Duration) ClientOption {
	return func(c *Client) {
		c.httpClient.Timeout = timeout
	}
}

// NewClient creates a new Finnhub client
func NewClient(apiKey string, opts ...ClientOption) *Client {
	c := &Client{
		baseURL: DefaultBaseURL,
		apiKey:  apiKey,
		httpClient: &http.Client{
			Timeout: DefaultTimeout,
		},
		limiter: rate.NewLimiter(rate.Limit(DefaultRateLimit), DefaultRateLimit),
		logger:  common.NewSilentLogger(),
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// APIError represents an API error
type APIError struct {
	StatusCode int
	Message    string
	Endpoint   string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("Finnhub API error: %s (status: %d, endpoint: %s)", e.Message, e.StatusCode, e.Endpoint)
}

// get performs a rate-limited GET request
func (c *Client) get(ctx context.Context, path string, params url.Values, result interface{}) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("rate limit wait: %w", err)
	}

	if params == nil {
		params = url.Values{}
	}
	params.Set("token", c.apiKey)

	reqURL := fmt.Sprintf("%s%s?%s", c.baseURL, path, params.Encode())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	c.logger.Debug().Str("url", c.baseURL+path).Str("symbol", params.Get("symbol")).Msg("Finnhub API request")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to execute request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return &APIError{
			StatusCode: resp.StatusCode,
			Message:    strings.TrimSpace(string(body)),
			Endpoint:   path,
		}
	}

	if err := json.NewDecoder(resp.Body).Decode(result); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}

	return nil
}

func symbolParams(ticker string) url.Values {
	params := url.Values{}
	params.Set("symbol", strings.ToUpper(ticker))
	return params
}

type quoteResponse struct {
	C  flexFloat64 `json:"c"`
	D  flexFloat64 `json:"d"`
	DP flexFloat64 `json:"dp"`
	H  flexFloat64 `json:"h"`
	L  flexFloat64 `json:"l"`
	O  flexFloat64 `json:"o"`
	PC flexFloat64 `json:"pc"`
	T  int64       `json:"t"`
	V  flexFloat64 `json:"v"`
}

// GetQuote retrieves the real-time quote. A zero current price is
// reported as-is; callers decide whether that means "no data".
func (c *Client) GetQuote(ctx context.Context, ticker string) (*models.Quote, error) {
	var resp quoteResponse
	if err := c.get(ctx, "/quote", symbolParams(ticker), &resp); err != nil {
		return nil, err
	}

	q := &models.Quote{
		Ticker:        strings.ToUpper(ticker),
		Current:       float64(resp.C),
		Change:        float64(resp.D),
		ChangePercent: float64(resp.DP),
		High:          float64(resp.H),
		Low:           float64(resp.L),
		Open:          float64(resp.O),
		PreviousClose: float64(resp.PC),
		Volume:        int64(resp.V),
	}
	if resp.T > 0 {
		q.Timestamp = time.Unix(resp.T, 0).UTC()
	}
	return q, nil
}

type profileResponse struct {
	Country              string      `json:"country"`
	Currency             string      `json:"currency"`
	Exchange             string      `json:"exchange"`
	FinnhubIndustry      string      `json:"finnhubIndustry"`
	IPO                  string      `json:"ipo"`
	Logo                 string      `json:"logo"`
	MarketCapitalization flexFloat64 `json:"marketCapitalization"`
	Name                 string      `json:"name"`
	Ticker               string      `json:"ticker"`
	WebURL               string      `json:"weburl"`
}

// GetProfile retrieves the company profile. Unknown tickers return an
// empty profile rather than an error.
func (c *Client) GetProfile(ctx context.Context, ticker string) (*models.CompanyProfile, error) {
	var resp profileResponse
	if err := c.get(ctx, "/stock/profile2", symbolParams(ticker), &resp); err != nil {
		return nil, err
	}

	symbol := resp.Ticker
	if symbol == "" {
		symbol = strings.ToUpper(ticker)
	}
	return &models.CompanyProfile{
		Ticker:    symbol,
		Name:      resp.Name,
		Logo:      resp.Logo,
		Country:   resp.Country,
		Currency:  resp.Currency,
		Exchange:  resp.Exchange,
		Industry:  resp.FinnhubIndustry,
		WebURL:    resp.WebURL,
		IPO:       resp.IPO,
		MarketCap: float64(resp.MarketCapitalization),
	}, nil
}

type candleResponse struct {
	C []float64 `json:"c"`
	H []float64 `json:"h"`
	L []float64 `json:"l"`
	O []float64 `json:"o"`
	S string    `json:"s"`
	T []int64   `json:"t"`
	V []float64 `json:"v"`
}

// GetCandles retrieves OHLCV bars. Returns models.ErrNoData unless the
// response status is "ok" with at least one close.
func (c *Client) GetCandles(ctx context.Context, ticker, resolution string, from, to time.Time) ([]models.Candle, error) {
	params := symbolParams(ticker)
	params.Set("resolution", resolution)
	params.Set("from", strconv.FormatInt(from.Unix(), 10))
	params.Set("to", strconv.FormatInt(to.Unix(), 10))

	var resp candleResponse
	if err := c.get(ctx, "/stock/candle", params, &resp); err != nil {
		return nil, err
	}
	if resp.S != "ok" || len(resp.C) == 0 {
		return nil, fmt.Errorf("candles for %s (%s): %w", ticker, resp.S, models.ErrNoData)
	}

	candles := make([]models.Candle, 0, len(resp.C))
	for i, closePrice := range resp.C {
		if i >= len(resp.T) {
			break
		}
		candle := models.Candle{
			Time:  time.Unix(resp.T[i], 0).UTC(),
			Close: closePrice,
		}
		if i < len(resp.O) {
			candle.Open = resp.O[i]
		}
		if i < len(resp.H) {
			candle.High = resp.H[i]
		}
		if i < len(resp.L) {
			candle.Low = resp.L[i]
		}
		if i < len(resp.V) {
			candle.Volume = int64(resp.V[i])
		}
		candles = append(candles, candle)
	}
	return candles, nil
}

type metricResponse struct {
	Metric map[string]json.RawMessage `json:"metric"`
	Symbol string                     `json:"symbol"`
}

// GetMetrics retrieves the basic financials metric block. Only numeric
// entries are kept.
func (c *Client) GetMetrics(ctx context.Context, ticker string) (models.Metrics, error) {
	params := symbolParams(ticker)
	params.Set("metric", "all")

	var resp metricResponse
	if err := c.get(ctx, "/stock/metric", params, &resp); err != nil {
		return nil, err
	}

	metrics := make(models.Metrics, len(resp.Metric))
	for key, raw := range resp.Metric {
		var v float64
		if err := json.Unmarshal(raw, &v); err != nil {
			continue
		}
		metrics[key] = v
	}
	return metrics, nil
}

type newsResponse struct {
	Category string `json:"category"`
	Datetime int64  `json:"datetime"`
	Headline string `json:"headline"`
	ID       int64  `json:"id"`
	Image    string `json:"image"`
	Related  string `json:"related"`
	Source   string `json:"source"`
	Summary  string `json:"summary"`
	URL      string `json:"url"`
}

// GetCompanyNews retrieves company news between from and to (inclusive dates)
func (c *Client) GetCompanyNews(ctx context.Context, ticker string, from, to time.Time) ([]*models.NewsItem, error) {
	params := symbolParams(ticker)
	params.Set("from", from.Format("2006-01-02"))
	params.Set("to", to.Format("2006-01-02"))

	var resp []newsResponse
	if err := c.get(ctx, "/company-news", params, &resp); err != nil {
		return nil, err
	}

	items := make([]*models.NewsItem, 0, len(resp))
	for _, n := range resp {
		items = append(items, &models.NewsItem{
			ID:          n.ID,
			Ticker:      strings.ToUpper(ticker),
			Headline:    n.Headline,
			Summary:     n.Summary,
			URL:         n.URL,
			Source:      n.Source,
			Image:       n.Image,
			Category:    n.Category,
			PublishedAt: time.Unix(n.Datetime, 0).UTC(),
		})
	}
	return items, nil
}

// GetFilings retrieves the SEC filing listing, most recent first
func (c *Client) GetFilings(ctx context.Context, ticker string) ([]models.Filing, error) {
	var filings []models.Filing
	if err := c.get(ctx, "/stock/filings", symbolParams(ticker), &filings); err != nil {
		return nil, err
	}
	return filings, nil
}
