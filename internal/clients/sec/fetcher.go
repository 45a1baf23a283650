// Package sec downloads filing documents from EDGAR
package sec

import (
	"bytes"
	"context"
	"fmt"
	"html"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/ledongthuc/pdf"
	"golang.org/x/time/rate"

	"github.com/Vicistar-V/vin-stock-ai/internal/common"
	"github.com/Vicistar-V/vin-stock-ai/internal/interfaces"
)

const (
	UserAgent       = "Mozilla/5.0 (compatible; SEC Filing Analyzer)"
	DefaultTimeout  = 30 * time.Second
	DefaultMaxBytes = 20 * 1024 * 1024
	// Text kept from a PDF filing; the section windows never need more
	maxPDFText = 200000
	// EDGAR fair-access policy allows 10 requests per second
	DefaultRateLimit = 10
)

// Fetcher implements DocumentFetcher for sec.gov report URLs
type Fetcher struct {
	httpClient *http.Client
	limiter    *rate.Limiter
	maxBytes   int64
	logger     *common.Logger
}

// FetcherOption configures the fetcher
type FetcherOption func(*Fetcher)

// WithLogger sets the logger
func WithLogger(logger *common.Logger) FetcherOption {
	return func(f *Fetcher) {
		f.logger = logger
	}
}

// WithTimeout sets the HTTP timeout
func WithTimeout(timeout time.Duration) FetcherOption {
	return func(f *Fetcher) {
		f.httpClient.Timeout = timeout
	}
}

// WithMaxBytes caps how much of a document is read
func WithMaxBytes(n int64) FetcherOption {
	return func(f *Fetcher) {
		if n > 0 {
			f.maxBytes = n
		}
	}
}

// NewFetcher creates a new filing document fetcher
func NewFetcher(opts ...FetcherOption) *Fetcher {
	f := &Fetcher{
		httpClient: &http.Client{Timeout: DefaultTimeout},
		limiter:    rate.NewLimiter(rate.Limit(DefaultRateLimit), DefaultRateLimit),
		maxBytes:   DefaultMaxBytes,
		logger:     common.NewSilentLogger(),
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// FetchDocument downloads a filing document and returns its raw body.
// PDF documents are converted to text and returned HTML-escaped so the
// caller can parse every document the same way.
func (f *Fetcher) FetchDocument(ctx context.Context, url string) (string, error) {
	if err := f.limiter.Wait(ctx); err != nil {
		return "", fmt.Errorf("rate limit wait: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", UserAgent)

	f.logger.Debug().Str("url", url).Msg("Fetching filing document")

	resp, err := f.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to fetch filing: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("failed to fetch filing: %d", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, f.maxBytes))
	if err != nil {
		return "", fmt.Errorf("failed to read filing: %w", err)
	}

	if isPDF(resp.Header.Get("Content-Type"), body) {
		text, err := pdfText(body)
		if err != nil {
			return "", err
		}
		f.logger.Debug().Str("url", url).Int("chars", len(text)).Msg("Extracted PDF filing text")
		return html.EscapeString(text), nil
	}
	return string(body), nil
}

func isPDF(contentType string, body []byte) bool {
	return strings.HasPrefix(strings.ToLower(contentType), "application/pdf") || bytes.HasPrefix(body, []byte("%PDF-"))
}

// pdfText extracts plain text page by page until maxPDFText is reached.
// Pages that fail to decode are skipped. The decoder panics on some
// malformed input, which is reported as an error.
func pdfText(body []byte) (text string, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			text, err = "", fmt.Errorf("failed to decode PDF filing: %v", rec)
		}
	}()

	r, err := pdf.NewReader(bytes.NewReader(body), int64(len(body)))
	if err != nil {
		return "", fmt.Errorf("failed to open PDF filing: %w", err)
	}

	var sb strings.Builder
	for i := 1; i <= r.NumPage(); i++ {
		page := r.Page(i)
		if page.V.IsNull() {
			continue
		}
		pageText, err := page.GetPlainText(nil)
		if err != nil {
			continue
		}
		sb.WriteString(pageText)
		sb.WriteString("\n")
		if sb.Len() > maxPDFText {
			break
		}
	}
	if sb.Len() == 0 {
		return "", fmt.Errorf("PDF filing has no extractable text")
	}
	return sb.String(), nil
}

var _ interfaces.DocumentFetcher = (*Fetcher)(nil)
