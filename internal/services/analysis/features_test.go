package analysis

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Vicistar-V/vin-stock-ai/internal/models"
)

// --- Sector pulse ---

func headlines(prefix string, n int) []*models.NewsItem {
	items := make([]*models.NewsItem, n)
	for i := range items {
		items[i] = &models.NewsItem{Headline: prefix + string(rune('A'+i))}
	}
	items[0].Summary = prefix + " summary"
	return items
}

func TestSectorPulse_ParsesBriefing(t *testing.T) {
	fh := &mockFinnhub{
		news: map[string][]*models.NewsItem{
			"JPM": headlines("jpm", 5),
			"BAC": headlines("bac", 1),
		},
		errs: map[string]error{"GS": errors.New("429")},
	}
	llm := newLLM("```json\n{\"mood_and_trends\":\"Calm\",\"major_players\":\"JPM leads\",\"emerging_stories\":[\"a\",\"b\",3]}\n```")
	svc := newTestService(fh, nil, llm)

	res, err := svc.SectorPulse(context.Background(), "Banking", []string{"JPM", "GS", "BAC"})
	require.NoError(t, err)
	assert.Equal(t, "Banking", res.Sector)
	assert.Equal(t, "Calm", res.MoodAndTrends)
	assert.Equal(t, "JPM leads", res.MajorPlayers)
	assert.Equal(t, []string{"a", "b"}, res.EmergingStories)

	assert.Equal(t, []string{"JPM", "GS", "BAC"}, fh.newsCalls)
	assert.Equal(t, 7*24*time.Hour, fh.newsTo.Sub(fh.newsFrom))

	require.Len(t, llm.reqs, 1)
	req := llm.reqs[0]
	assert.Equal(t, sectorSystemPrompt, req.System)
	assert.Equal(t, 0.3, req.Temperature)
	assert.Equal(t, 1000, req.MaxTokens)
	assert.Contains(t, req.Prompt, "--- RECENT NEWS FROM BANKING SECTOR ---\n[JPM] jpmA\njpm summary\n\n[JPM] jpmB\njpmB\n\n[JPM] jpmC\njpmC\n\n[BAC] bacA\nbac summary\n--- END OF NEWS ---")
	assert.NotContains(t, req.Prompt, "jpmD")
}

func TestSectorPulse_NoNewsUsesQuietBriefing(t *testing.T) {
	llm := newLLM("unused")
	svc := newTestService(&mockFinnhub{}, nil, llm)

	res, err := svc.SectorPulse(context.Background(), "Energy", []string{"XOM", "CVX", "COP", "SLB"})
	require.NoError(t, err)
	assert.Contains(t, res.MoodAndTrends, "The Energy sector continues to navigate")
	assert.Contains(t, res.MajorPlayers, "including XOM, CVX, COP are focusing")
	assert.Len(t, res.EmergingStories, 4)
	assert.Empty(t, llm.reqs)
}

func TestSectorPulse_UnparseableUsesFallback(t *testing.T) {
	fh := &mockFinnhub{news: map[string][]*models.NewsItem{"XOM": headlines("xom", 1)}}
	svc := newTestService(fh, nil, newLLM("The sector is fine."))

	res, err := svc.SectorPulse(context.Background(), "Energy", []string{"XOM"})
	require.NoError(t, err)
	assert.Contains(t, res.MoodAndTrends, "The Energy sector is experiencing mixed signals")
	assert.Equal(t, "Market volatility continues to influence Energy sector valuations", res.EmergingStories[0])
}

func TestSectorPulse_LLMErrorFails(t *testing.T) {
	fh := &mockFinnhub{news: map[string][]*models.NewsItem{"XOM": headlines("xom", 1)}}
	svc := newTestService(fh, nil, failingLLM(errors.New("502")))

	_, err := svc.SectorPulse(context.Background(), "Energy", []string{"XOM"})
	assert.Error(t, err)
}

func TestSectorPulse_CancelledBetweenTickers(t *testing.T) {
	svc := newTestService(&mockFinnhub{}, nil, newLLM("{}"))
	svc.tickerDelay = time.Hour

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := svc.SectorPulse(ctx, "Energy", []string{"XOM", "CVX"})
	assert.ErrorIs(t, err, context.Canceled)
}

// --- Compare ---

func TestCompareStocks_Success(t *testing.T) {
	fh := &mockFinnhub{
		quotes:   map[string]*models.Quote{"AAPL": {Current: 230.5}},
		profiles: map[string]*models.CompanyProfile{"AAPL": {Name: "Apple Inc", Industry: "Technology", MarketCap: 3500000}},
		metrics:  map[string]models.Metrics{"AAPL": {"peTTM": 35.1, "roeTTM": 150}},
		errs:     map[string]error{"MSFT": errors.New("timeout")},
	}
	llm := newLLM(`{"valuation_summary":"v","financials_summary":"f","momentum_summary":"m","winner":"AAPL"}`)
	svc := newTestService(fh, nil, llm)

	res, err := svc.CompareStocks(context.Background(), "aapl", "msft")
	require.NoError(t, err)
	assert.True(t, res.Success)
	assert.Equal(t, "AAPL", res.Ticker1)
	assert.Equal(t, "MSFT", res.Ticker2)
	require.NotNil(t, res.Comparison)
	assert.Equal(t, "AAPL", res.Comparison.Winner)
	require.NotNil(t, res.Timestamp)

	require.Len(t, llm.reqs, 1)
	req := llm.reqs[0]
	assert.True(t, req.JSONMode)
	assert.Equal(t, compareSystemPrompt, req.System)
	assert.Contains(t, req.Prompt, "--- DATA FOR COMPANY 1 (AAPL) ---\nProfile: Apple Inc - Technology\nMarket Cap: $3500000M\nCurrent Price: $230.5\nP/E Ratio: 35.1\nEPS: $N/A\nROE: 150%")
	assert.Contains(t, req.Prompt, "--- DATA FOR COMPANY 2 (MSFT) ---\nProfile: MSFT - Unknown Industry\nMarket Cap: $N/AM\nCurrent Price: $N/A")
}

func TestCompareStocks_Failures(t *testing.T) {
	svc := newTestService(&mockFinnhub{}, nil, newLLM("not json at all"))

	res, err := svc.CompareStocks(context.Background(), "AAPL", "MSFT")
	require.Error(t, err)
	require.NotNil(t, res)
	assert.False(t, res.Success)
	assert.Contains(t, res.Error, "invalid JSON from model")
	assert.Nil(t, res.Comparison)

	_, err = svc.CompareStocks(context.Background(), "AAPL", " ")
	var inputErr *models.InputError
	assert.ErrorAs(t, err, &inputErr)
}

// --- Outlook ---

func TestCleanOutlook(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"Here are 4 potential future risks for AAPL:\n• **A**: one\n• **B**: two", "• **A**: one\n• **B**: two"},
		{"The following are the key opportunities:\n\n• **A**: one", "• **A**: one"},
		{"Some intro text\n\n• **A**: one", "• **A**: one"},
		{"• **A**: already clean", "• **A**: already clean"},
		{"no bullets at all", "no bullets at all"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, CleanOutlook(tt.in), tt.in)
	}
}

func TestAnalyzeOutlook_UsesProfileAndStoredNews(t *testing.T) {
	fh := &mockFinnhub{profiles: map[string]*models.CompanyProfile{
		"AMZN": {Name: "Amazon.com Inc", WebURL: "https://amazon.com"},
	}}
	store := &newsStore{items: []*models.NewsItem{
		{Headline: "AWS grows", Summary: "Cloud revenue rose"},
		{Headline: "Prime Day record"},
	}}
	llm := newLLM("Here are 4 risks:\n• **Regulation**: EU scrutiny.")
	svc := newTestService(fh, store, llm)

	res, err := svc.AnalyzeOutlook(context.Background(), "amzn", "Risks")
	require.NoError(t, err)
	assert.True(t, res.Success)
	assert.Equal(t, "• **Regulation**: EU scrutiny.", res.Analysis)
	assert.Equal(t, "Risks", res.AnalysisType)
	assert.Equal(t, "Amazon.com Inc", res.CompanyName)
	assert.Equal(t, 10, store.limit)

	req := llm.reqs[0]
	assert.Equal(t, 0.7, req.Temperature)
	assert.Contains(t, req.Prompt, "identify potential future risks and challenges")
	assert.Contains(t, req.Prompt, "DESCRIPTION: Amazon.com Inc - Technology. https://amazon.com")
	assert.Contains(t, req.Prompt, "• AWS grows: Cloud revenue rose...\n• Prime Day record\n")
}

func TestAnalyzeOutlook_OpportunitiesWithoutContext(t *testing.T) {
	llm := newLLM("• **Growth**: new markets")
	svc := newTestService(&mockFinnhub{}, nil, llm)

	res, err := svc.AnalyzeOutlook(context.Background(), "XYZ", "opportunities")
	require.NoError(t, err)
	assert.Equal(t, "XYZ", res.CompanyName)
	assert.Contains(t, llm.reqs[0].Prompt, "DESCRIPTION: XYZ stock")
	assert.Contains(t, llm.reqs[0].Prompt, "No recent news available")
	assert.Contains(t, llm.reqs[0].Prompt, "Generate exactly 4 potential future opportunities")
}

func TestAnalyzeOutlook_Errors(t *testing.T) {
	svc := newTestService(&mockFinnhub{}, nil, failingLLM(errors.New("500")))

	_, err := svc.AnalyzeOutlook(context.Background(), "AAPL", "")
	assert.ErrorIs(t, err, ErrMissingOutlookParams)

	_, err = svc.AnalyzeOutlook(context.Background(), "AAPL", "risks")
	assert.Error(t, err)
}

// --- Screener ---

func TestScreen_ParsesSuggestions(t *testing.T) {
	llm := newLLM("```json\n{\"interpretation\":\"Streaming growth\",\"suggestions\":[{\"ticker\":\"NFLX\",\"name\":\"Netflix\",\"justification\":\"Streaming leader\"}]}\n```")
	svc := newTestService(&mockFinnhub{}, nil, llm)

	res, err := svc.Screen(context.Background(), "streaming companies")
	require.NoError(t, err)
	assert.True(t, res.Success)
	assert.Equal(t, "Streaming growth", res.QueryInterpretation)
	require.Len(t, res.Suggestions, 1)
	assert.Equal(t, "NFLX", res.Suggestions[0].Ticker)

	assert.Contains(t, llm.reqs[0].Prompt, "Available stocks: AAPL (Apple), MSFT (Microsoft), GOOGL (Alphabet/Google), META (Meta/Facebook), NVDA (NVIDIA), AMZN (Amazon), TSLA (Tesla), JPM (JPMorgan), NFLX (Netflix)")
	assert.Contains(t, llm.reqs[0].Prompt, `User Query: "streaming companies"`)
}

func TestScreen_Fallback(t *testing.T) {
	svc := newTestService(&mockFinnhub{}, nil, newLLM("I cannot help with that."))

	res, err := svc.Screen(context.Background(), "cheap banks")
	require.NoError(t, err)
	assert.True(t, res.Success)
	assert.Equal(t, "Investment ideas matching: cheap banks", res.QueryInterpretation)
	require.Len(t, res.Suggestions, 3)
	assert.Equal(t, []string{"AAPL", "MSFT", "GOOGL"}, []string{res.Suggestions[0].Ticker, res.Suggestions[1].Ticker, res.Suggestions[2].Ticker})

	_, err = svc.Screen(context.Background(), "")
	var inputErr *models.InputError
	assert.ErrorAs(t, err, &inputErr)
}

// --- Explain metric ---

func TestExplainMetric(t *testing.T) {
	llm := newLLM("Here's a simple explanation: A P/E of 31.3 means investors pay $31.30 for each $1 of earnings.")
	svc := newTestService(&mockFinnhub{}, nil, llm)

	res, err := svc.ExplainMetric(context.Background(), "AAPL", "P/E Ratio", 31.3)
	require.NoError(t, err)
	assert.True(t, res.Success)
	assert.Equal(t, "A P/E of 31.3 means investors pay $31.30 for each $1 of earnings.", res.Explanation)
	assert.Empty(t, res.Note)
	assert.Equal(t, 31.3, res.MetricValue)

	req := llm.reqs[0]
	assert.Equal(t, 80, req.MaxTokens)
	assert.Equal(t, "Explain what a P/E Ratio of 31.3 means for AAPL stock. Keep it simple and friendly.", req.Prompt)
}

func TestExplainMetric_ShortReplyUsesTemplate(t *testing.T) {
	svc := newTestService(&mockFinnhub{}, nil, newLLM("In short: ok"))

	res, err := svc.ExplainMetric(context.Background(), "AAPL", "ROE", "156.1%")
	require.NoError(t, err)
	assert.Equal(t, "A ROE of 156.1% is a key financial indicator for AAPL. This metric helps investors understand the company's performance.", res.Explanation)
}

func TestExplainMetric_FailureUsesFallbackNote(t *testing.T) {
	svc := newTestService(&mockFinnhub{}, nil, failingLLM(errors.New("timeout")))

	res, err := svc.ExplainMetric(context.Background(), "AAPL", "EPS", 6.4)
	require.NoError(t, err)
	assert.True(t, res.Success)
	assert.Equal(t, ExplainUnavailableNote, res.Note)
	assert.Equal(t, "A EPS helps investors evaluate company performance. This specific value provides insight into the stock's fundamentals.", res.Explanation)

	_, err = svc.ExplainMetric(context.Background(), "AAPL", "EPS", nil)
	var inputErr *models.InputError
	assert.ErrorAs(t, err, &inputErr)
}
