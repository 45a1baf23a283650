// Package filings summarises sections of a company's latest 10-K or 10-Q
package filings

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/Vicistar-V/vin-stock-ai/internal/common"
	"github.com/Vicistar-V/vin-stock-ai/internal/interfaces"
	"github.com/Vicistar-V/vin-stock-ai/internal/models"
	"github.com/Vicistar-V/vin-stock-ai/internal/services/llmjson"
)

// Errors surfaced alongside the canned response
var (
	ErrMissingParams = errors.New("missing ticker or section")
	ErrNoFilings     = errors.New("no SEC filings for ticker")
	ErrNoReport      = errors.New("no 10-K or 10-Q filing")
	ErrNotConfigured = errors.New("filing analysis requires Finnhub and LLM clients")
)

// UnavailableError is the error field of the canned response
const UnavailableError = "Service temporarily unavailable"

const (
	promptContentChars = 3000
	minSectionChars    = 100
)

// Service implements FilingService
type Service struct {
	finnhub interfaces.FinnhubClient
	fetcher interfaces.DocumentFetcher
	llm     interfaces.LLMClient
	logger  *common.Logger
}

// NewService creates a filing analyzer. Any nil dependency makes every
// call return the canned response.
func NewService(finnhub interfaces.FinnhubClient, fetcher interfaces.DocumentFetcher, llm interfaces.LLMClient, logger *common.Logger) *Service {
	return &Service{
		finnhub: finnhub,
		fetcher: fetcher,
		llm:     llm,
		logger:  logger,
	}
}

// AnalyzeFiling summarises one section of the latest annual or quarterly
// report. It always returns a displayable result; on failure the result is
// the canned apology and the cause is returned as the error.
func (s *Service) AnalyzeFiling(ctx context.Context, ticker, section string) (*models.FilingAnalysis, error) {
	ticker = strings.ToUpper(strings.TrimSpace(ticker))
	section = strings.TrimSpace(section)

	result, err := s.analyze(ctx, ticker, section)
	if err != nil {
		s.logger.Error().Str("ticker", ticker).Str("section", section).Err(err).Msg("Filing analysis failed")
		return UnavailableResponse(ticker, section), err
	}
	return result, nil
}

func (s *Service) analyze(ctx context.Context, ticker, section string) (*models.FilingAnalysis, error) {
	if ticker == "" || section == "" {
		return nil, ErrMissingParams
	}
	if s.finnhub == nil || s.llm == nil || s.fetcher == nil {
		return nil, ErrNotConfigured
	}

	filing, err := s.latestReport(ctx, ticker)
	if err != nil {
		return nil, err
	}
	s.logger.Info().Str("ticker", ticker).Str("form", filing.Form).Str("filed", filing.FiledDate).Msg("Using filing")

	text := s.reportText(ctx, filing)
	if text == "" {
		text = fmt.Sprintf("This is a %s filing for %s filed on %s. The filing discusses the company's business operations, financial performance, and various business factors.",
			filing.Form, ticker, filing.FiledDate)
	}

	relevant := ExtractSection(text, section)
	if strings.TrimSpace(relevant) == "" {
		relevant = fmt.Sprintf("This analysis is based on %s's %s filing from %s. The filing contains comprehensive information about the company's business operations, financial performance, and various business factors relevant to %s.",
			ticker, filing.Form, filing.FiledDate, section)
	}

	reply, err := s.llm.Complete(ctx, interfaces.CompletionRequest{
		System:      systemPrompt,
		Prompt:      buildPrompt(ticker, section, relevant),
		Temperature: 0.1,
		MaxTokens:   600,
		Title:       "SEC Filing Analyzer",
	})
	if err != nil {
		return nil, fmt.Errorf("filing summary: %w", err)
	}

	return &models.FilingAnalysis{
		Analysis:    llmjson.CleanMarkdown(llmjson.StripPreamble(reply)),
		FilingTitle: filingTitle(ticker, filing),
		Success:     true,
		Section:     section,
	}, nil
}

// latestReport returns the first 10-K or 10-Q in the listing
func (s *Service) latestReport(ctx context.Context, ticker string) (*models.Filing, error) {
	filings, err := s.finnhub.GetFilings(ctx, ticker)
	if err != nil {
		return nil, fmt.Errorf("fetch filings: %w", err)
	}
	if len(filings) == 0 {
		return nil, ErrNoFilings
	}
	for i := range filings {
		if filings[i].Form == "10-K" || filings[i].Form == "10-Q" {
			return &filings[i], nil
		}
	}
	return nil, ErrNoReport
}

// reportText downloads and flattens the report. Failures are logged and
// yield "" so the caller can fall back to metadata text.
func (s *Service) reportText(ctx context.Context, filing *models.Filing) string {
	if filing.ReportURL == "" {
		return ""
	}
	raw, err := s.fetcher.FetchDocument(ctx, filing.ReportURL)
	if err != nil {
		s.logger.Warn().Str("url", filing.ReportURL).Err(err).Msg("Could not fetch filing content")
		return ""
	}
	text, err := ExtractText(raw)
	if err != nil {
		s.logger.Warn().Str("url", filing.ReportURL).Err(err).Msg("Could not parse filing content")
		return ""
	}
	s.logger.Debug().Int("raw_chars", len(raw)).Int("text_chars", len(text)).Msg("Filing text extracted")
	return text
}

var filedDateLayouts = []string{"2006-01-02 15:04:05", "2006-01-02"}

// filingTitle reads like "AAPL 10-K Report (11/1/2024)"
func filingTitle(ticker string, filing *models.Filing) string {
	date := filing.FiledDate
	for _, layout := range filedDateLayouts {
		if t, err := time.Parse(layout, filing.FiledDate); err == nil {
			date = t.Format("1/2/2006")
			break
		}
	}
	return fmt.Sprintf("%s %s Report (%s)", ticker, filing.Form, date)
}

// UnavailableResponse is the canned body returned with status 200 when the
// analysis cannot be produced.
func UnavailableResponse(ticker, section string) *models.FilingAnalysis {
	company := ticker
	if company == "" {
		company = "this company"
	}
	topic := section
	if topic == "" {
		topic = "general"
	}
	title := ticker
	if title == "" {
		title = "Company"
	}
	return &models.FilingAnalysis{
		Analysis: fmt.Sprintf(`I'm experiencing a temporary issue analyzing %s's SEC filing. Please try again in a moment.

In the meantime, for %s analysis, consider checking:
• The company's investor relations website
• Recent quarterly earnings calls
• Industry analysis reports
• SEC EDGAR database directly at sec.gov`, company, topic),
		FilingTitle: title + " SEC Filing Analysis",
		Success:     false,
		Error:       UnavailableError,
	}
}

// Ensure Service implements FilingService
var _ interfaces.FilingService = (*Service)(nil)
