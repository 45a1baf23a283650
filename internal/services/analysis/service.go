// Package analysis hosts the LLM research features: news sentiment,
// portfolio breakdowns, sector briefings, head-to-head comparisons,
// outlooks, screening and metric explanations.
package analysis

import (
	"context"
	"errors"
	"time"

	"github.com/Vicistar-V/vin-stock-ai/internal/common"
	"github.com/Vicistar-V/vin-stock-ai/internal/interfaces"
)

var (
	// ErrNotConfigured means a vendor client needed by the feature is missing
	ErrNotConfigured = errors.New("analysis clients not configured")
	// ErrEmptyReply means the model answered with no content
	ErrEmptyReply = errors.New("empty reply from model")
	// ErrMissingOutlookParams means ticker or analysis type was blank
	ErrMissingOutlookParams = errors.New("missing ticker or analysis type")
)

// DefaultTickerDelay spaces per-ticker news calls in SectorPulse
const DefaultTickerDelay = 100 * time.Millisecond

// Service implements AnalysisService
type Service struct {
	finnhub     interfaces.FinnhubClient
	store       interfaces.StockStore
	llm         interfaces.LLMClient
	logger      *common.Logger
	now         func() time.Time // injectable clock for testing
	tickerDelay time.Duration
}

// NewService creates the analysis service. store backs the outlook news
// context and may be nil.
func NewService(finnhub interfaces.FinnhubClient, store interfaces.StockStore, llm interfaces.LLMClient, logger *common.Logger) *Service {
	return &Service{
		finnhub:     finnhub,
		store:       store,
		llm:         llm,
		logger:      logger,
		now:         time.Now,
		tickerDelay: DefaultTickerDelay,
	}
}

// pause waits d or until ctx is done
func pause(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// Ensure Service implements AnalysisService
var _ interfaces.AnalysisService = (*Service)(nil)
