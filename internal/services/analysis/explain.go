package analysis

import (
	"context"
	"fmt"
	"strings"

	"github.com/Vicistar-V/vin-stock-ai/internal/interfaces"
	"github.com/Vicistar-V/vin-stock-ai/internal/models"
	"github.com/Vicistar-V/vin-stock-ai/internal/services/llmjson"
)

const (
	explainSystemPrompt = "You are a friendly finance teacher. Explain this financial metric in only 1 simple sentences that a beginner can understand. Be encouraging and clear."

	// ExplainUnavailableNote accompanies the fallback explanation
	ExplainUnavailableNote = "AI explanation service temporarily unavailable - showing fallback explanation"

	minExplanationChars = 10
)

// ExplainMetric returns a one-sentence beginner explanation of a metric
// value. Upstream failures return the fallback sentence with a note and no
// error; only missing parameters are an error.
func (s *Service) ExplainMetric(ctx context.Context, ticker, metricName string, metricValue any) (*models.MetricExplanation, error) {
	if ticker == "" || metricName == "" || metricValue == nil {
		return nil, models.NewInputError("Missing ticker, metricName, or metricValue")
	}

	explanation, err := s.explain(ctx, ticker, metricName, metricValue)
	if err != nil {
		s.logger.Warn().Str("ticker", ticker).Str("metric", metricName).Err(err).Msg("Metric explanation failed, using fallback")
		return &models.MetricExplanation{
			Success:     true,
			Ticker:      ticker,
			MetricName:  metricName,
			MetricValue: metricValue,
			Explanation: fmt.Sprintf("A %s helps investors evaluate company performance. This specific value provides insight into the stock's fundamentals.", metricName),
			Note:        ExplainUnavailableNote,
		}, nil
	}

	return &models.MetricExplanation{
		Success:     true,
		Ticker:      ticker,
		MetricName:  metricName,
		MetricValue: metricValue,
		Explanation: explanation,
	}, nil
}

func (s *Service) explain(ctx context.Context, ticker, metricName string, metricValue any) (string, error) {
	if s.llm == nil {
		return "", ErrNotConfigured
	}

	reply, err := s.llm.Complete(ctx, interfaces.CompletionRequest{
		System:      explainSystemPrompt,
		Prompt:      fmt.Sprintf("Explain what a %s of %v means for %s stock. Keep it simple and friendly.", metricName, metricValue, ticker),
		Temperature: 0.1,
		MaxTokens:   80,
		Title:       "Stock Analysis Platform",
	})
	if err != nil {
		return "", err
	}

	explanation := llmjson.StripPreamble(reply,
		llmjson.HereIsPreamble, llmjson.InShortPreamble, llmjson.ExplanationPreamble)
	if len(strings.TrimSpace(explanation)) < minExplanationChars {
		explanation = fmt.Sprintf("A %s of %v is a key financial indicator for %s. This metric helps investors understand the company's performance.",
			metricName, metricValue, ticker)
	}
	return explanation, nil
}
