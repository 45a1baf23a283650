package models

import "time"

// AnalystName is stamped on generated news analyses
const AnalystName = "Vin Stock AI"

// NewsArticle is an article submitted for sentiment analysis
type NewsArticle struct {
	Headline string `json:"headline"`
	Summary  string `json:"summary,omitempty"`
	URL      string `json:"url,omitempty"`
	Source   string `json:"source,omitempty"`
}

// NewsAnalysis is the LLM news sentiment result plus request metadata
type NewsAnalysis struct {
	Summary                string  `json:"summary"`
	SentimentScore         float64 `json:"sentiment_score"`
	SentimentJustification string  `json:"sentiment_justification"`
	KeyPositiveHighlight   string  `json:"key_positive_highlight"`
	KeyNegativeHighlight   string  `json:"key_negative_highlight"`
	MarketImpact           string  `json:"market_impact"`
	Ticker                 string  `json:"ticker"`
	ArticlesAnalyzed       int     `json:"articles_analyzed"`
	AnalysisTimestamp      string  `json:"analysis_timestamp"`
	Analyst                string  `json:"analyst"`
}

// FilingAnalysis is the SEC filing section summary
type FilingAnalysis struct {
	Analysis    string `json:"analysis"`
	FilingTitle string `json:"filingTitle"`
	Success     bool   `json:"success"`
	Section     string `json:"section,omitempty"`
	Error       string `json:"error,omitempty"`
}

// HoldingInput is one parsed portfolio line
type HoldingInput struct {
	Ticker string  `json:"ticker"`
	Shares float64 `json:"shares"`
}

// HoldingData is a valued portfolio holding
type HoldingData struct {
	Ticker       string  `json:"ticker"`
	Shares       float64 `json:"shares"`
	CurrentPrice float64 `json:"currentPrice"`
	Value        float64 `json:"value"`
	Sector       string  `json:"sector"`
	Name         string  `json:"name"`
}

// SectorSlice is one row of the sector breakdown
type SectorSlice struct {
	Sector     string  `json:"sector"`
	Value      float64 `json:"value"`
	Percentage float64 `json:"percentage"`
}

// PortfolioAnalysis is the full portfolio analyzer payload
type PortfolioAnalysis struct {
	Holdings            []HoldingData `json:"holdings"`
	SectorBreakdown     []SectorSlice `json:"sectorBreakdown"`
	TotalValue          float64       `json:"totalValue"`
	SectorConcentration string        `json:"sectorConcentration"`
	ThematicAnalysis    string        `json:"thematicAnalysis"`
	Timestamp           time.Time     `json:"timestamp"`
}

// SectorPulse is the sector news briefing
type SectorPulse struct {
	Sector          string    `json:"sector"`
	MoodAndTrends   string    `json:"mood_and_trends"`
	MajorPlayers    string    `json:"major_players"`
	EmergingStories []string  `json:"emerging_stories"`
	Timestamp       time.Time `json:"timestamp"`
}

// Comparison is the LLM head-to-head narrative
type Comparison struct {
	ValuationSummary  string `json:"valuation_summary"`
	FinancialsSummary string `json:"financials_summary"`
	MomentumSummary   string `json:"momentum_summary"`
	Winner            string `json:"winner"`
}

// ComparisonResult wraps a comparison for the response body
type ComparisonResult struct {
	Success    bool        `json:"success"`
	Ticker1    string      `json:"ticker1,omitempty"`
	Ticker2    string      `json:"ticker2,omitempty"`
	Comparison *Comparison `json:"comparison,omitempty"`
	Timestamp  *time.Time  `json:"timestamp,omitempty"`
	Error      string      `json:"error,omitempty"`
}

// OutlookAnalysis is the risks/opportunities bullet list
type OutlookAnalysis struct {
	Success      bool      `json:"success"`
	Analysis     string    `json:"analysis"`
	AnalysisType string    `json:"analysisType"`
	Ticker       string    `json:"ticker"`
	CompanyName  string    `json:"companyName"`
	Timestamp    time.Time `json:"timestamp"`
}

// ScreenerSuggestion is one recommended stock
type ScreenerSuggestion struct {
	Ticker        string `json:"ticker"`
	Name          string `json:"name"`
	Justification string `json:"justification"`
}

// ScreenerResult is the AI screener payload
type ScreenerResult struct {
	Success             bool                 `json:"success"`
	QueryInterpretation string               `json:"query_interpretation"`
	Suggestions         []ScreenerSuggestion `json:"suggestions"`
	Timestamp           time.Time            `json:"timestamp"`
}

// MetricExplanation is the plain-language metric explainer payload
type MetricExplanation struct {
	Success     bool   `json:"success"`
	Ticker      string `json:"ticker"`
	MetricName  string `json:"metricName"`
	MetricValue any    `json:"metricValue"`
	Explanation string `json:"explanation"`
	Note        string `json:"note,omitempty"`
}

// UpdateResult reports one updater batch
type UpdateResult struct {
	Success           bool     `json:"success"`
	UpdatedQuotes     int      `json:"updated_quotes"`
	UpdatedNews       int      `json:"updated_news"`
	UpdatedHistorical int      `json:"updated_historical"`
	Tickers           []string `json:"tickers"`
}
