package analysis

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/Vicistar-V/vin-stock-ai/internal/interfaces"
	"github.com/Vicistar-V/vin-stock-ai/internal/models"
	"github.com/Vicistar-V/vin-stock-ai/internal/services/llmjson"
)

const (
	sectorNewsLookback  = 7 * 24 * time.Hour
	sectorNewsPerTicker = 3

	sectorSystemPrompt = "You are a senior financial analyst writing sector briefings for institutional investors. Analyze news from multiple companies to understand the overall industry landscape, trends, and outlook."
)

type sectorHeadline struct {
	ticker   string
	headline string
	summary  string
}

func firstTickers(tickers []string, n int) string {
	if len(tickers) > n {
		tickers = tickers[:n]
	}
	return strings.Join(tickers, ", ")
}

// quietSectorPulse is returned when no news could be gathered
func quietSectorPulse(sector string, tickers []string, now time.Time) *models.SectorPulse {
	return &models.SectorPulse{
		Sector:        sector,
		MoodAndTrends: fmt.Sprintf("The %s sector continues to navigate current market conditions with mixed signals. While some uncertainty persists around interest rates and global economic conditions, the sector maintains its fundamental strengths and long-term growth potential.", sector),
		MajorPlayers:  fmt.Sprintf("Key players in the %s sector including %s are focusing on operational efficiency and strategic positioning. Major companies continue to invest in innovation while managing costs and maintaining competitive advantages.", sector, firstTickers(tickers, 3)),
		EmergingStories: []string{
			fmt.Sprintf("Ongoing market volatility continues to impact %s valuations", sector),
			"Companies are focusing on cost optimization and operational efficiency",
			"Long-term growth strategies remain a priority for sector leaders",
			"Regulatory environment continues to evolve for the industry",
		},
		Timestamp: now,
	}
}

// unparsedSectorPulse is returned when the briefing reply cannot be decoded
func unparsedSectorPulse(sector string, tickers []string, now time.Time) *models.SectorPulse {
	return &models.SectorPulse{
		Sector:        sector,
		MoodAndTrends: fmt.Sprintf("The %s sector is experiencing mixed signals in the current market environment. Recent developments across major players suggest a period of adjustment as companies navigate evolving market conditions while maintaining focus on core business strategies.", sector),
		MajorPlayers:  fmt.Sprintf("Leading companies in the %s space including %s are implementing strategic initiatives to strengthen their market positions. These industry leaders continue to drive innovation while adapting to changing market dynamics.", sector, firstTickers(tickers, 3)),
		EmergingStories: []string{
			fmt.Sprintf("Market volatility continues to influence %s sector valuations", sector),
			"Companies are prioritizing operational efficiency and cost management",
			"Strategic partnerships and collaborations are becoming more common",
			"Long-term growth investments remain a focus despite near-term uncertainties",
		},
		Timestamp: now,
	}
}

func buildSectorPrompt(sector string, news []sectorHeadline) string {
	blocks := make([]string, len(news))
	for i, n := range news {
		blocks[i] = fmt.Sprintf("[%s] %s\n%s", n.ticker, n.headline, n.summary)
	}

	return fmt.Sprintf(`Please analyze the current state of the %[1]s sector based on the following recent news headlines and summaries from key companies:

--- RECENT NEWS FROM %[2]s SECTOR ---
%[3]s
--- END OF NEWS ---

Please provide a comprehensive sector analysis with exactly these three sections:

1. OVERALL MOOD & KEY TRENDS: Write a detailed paragraph (4-6 sentences) summarizing the big picture sentiment and major themes affecting the entire %[1]s industry right now.

2. MAJOR PLAYERS & RECENT MOVES: Write a detailed paragraph (4-6 sentences) highlighting what the most important companies are doing, their strategic moves, and how they're positioning themselves.

3. EMERGING STORIES: Provide exactly 4 bullet points of other notable developments, potential future catalysts, or industry-wide concerns that investors should watch.

Format your response as valid JSON:
{
  "mood_and_trends": "your detailed paragraph here",
  "major_players": "your detailed paragraph here",
  "emerging_stories": ["story 1", "story 2", "story 3", "story 4"]
}`, sector, strings.ToUpper(sector), strings.Join(blocks, "\n\n"))
}

// gatherSectorNews takes the newest few headlines per ticker from the last
// week, pausing between tickers. Failed tickers are skipped.
func (s *Service) gatherSectorNews(ctx context.Context, tickers []string) ([]sectorHeadline, error) {
	now := s.now()
	var news []sectorHeadline
	for i, ticker := range tickers {
		if i > 0 {
			if err := pause(ctx, s.tickerDelay); err != nil {
				return nil, err
			}
		}

		items, err := s.finnhub.GetCompanyNews(ctx, ticker, now.Add(-sectorNewsLookback), now)
		if err != nil {
			s.logger.Warn().Str("ticker", ticker).Err(err).Msg("Sector news fetch failed")
			continue
		}
		if len(items) > sectorNewsPerTicker {
			items = items[:sectorNewsPerTicker]
		}
		for _, item := range items {
			summary := item.Summary
			if summary == "" {
				summary = item.Headline
			}
			news = append(news, sectorHeadline{ticker: ticker, headline: item.Headline, summary: summary})
		}
	}
	return news, nil
}

// SectorPulse writes a sector briefing from recent company news
func (s *Service) SectorPulse(ctx context.Context, sector string, tickers []string) (*models.SectorPulse, error) {
	if s.finnhub == nil || s.llm == nil {
		return nil, ErrNotConfigured
	}

	news, err := s.gatherSectorNews(ctx, tickers)
	if err != nil {
		return nil, err
	}
	s.logger.Info().Str("sector", sector).Int("tickers", len(tickers)).Int("headlines", len(news)).Msg("Gathered sector news")

	if len(news) == 0 {
		return quietSectorPulse(sector, tickers, s.now().UTC()), nil
	}

	reply, err := s.llm.Complete(ctx, interfaces.CompletionRequest{
		System:      sectorSystemPrompt,
		Prompt:      buildSectorPrompt(sector, news),
		Temperature: 0.3,
		MaxTokens:   1000,
	})
	if err != nil {
		return nil, fmt.Errorf("sector completion: %w", err)
	}

	var parsed struct {
		MoodAndTrends   string `json:"mood_and_trends"`
		MajorPlayers    string `json:"major_players"`
		EmergingStories any    `json:"emerging_stories"`
	}
	if err := llmjson.Decode(reply, &parsed); err != nil {
		s.logger.Warn().Str("sector", sector).Err(err).Msg("Sector briefing unparseable, using fallback")
		return unparsedSectorPulse(sector, tickers, s.now().UTC()), nil
	}

	return &models.SectorPulse{
		Sector:          sector,
		MoodAndTrends:   parsed.MoodAndTrends,
		MajorPlayers:    parsed.MajorPlayers,
		EmergingStories: stringList(parsed.EmergingStories),
		Timestamp:       s.now().UTC(),
	}, nil
}

// stringList keeps the string entries of a decoded JSON array; anything
// else yields an empty list.
func stringList(v any) []string {
	items, ok := v.([]any)
	if !ok {
		return []string{}
	}
	out := make([]string, 0, len(items))
	for _, item := range items {
		if s, ok := item.(string); ok {
			out = append(out, s)
		}
	}
	return out
}
