package server

import (
	"net/http"

	"github.com/Vicistar-V/vin-stock-ai/internal/models"
	"github.com/Vicistar-V/vin-stock-ai/internal/services/analysis"
)

func (s *Server) handleExplainMetric(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Ticker      string      `json:"ticker"`
		MetricName  string      `json:"metricName"`
		MetricValue interface{} `json:"metricValue"`
	}
	if !DecodeJSON(w, r, &req) {
		return
	}

	result, err := s.app.AnalysisService.ExplainMetric(r.Context(), req.Ticker, req.MetricName, req.MetricValue)
	if err != nil {
		s.writeAnalysisError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, result)
}

func (s *Server) handleAnalyzeNews(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Ticker       string               `json:"ticker"`
		NewsArticles []models.NewsArticle `json:"news_articles"`
	}
	if !DecodeJSON(w, r, &req) {
		return
	}

	result, err := s.app.AnalysisService.AnalyzeNews(r.Context(), req.Ticker, req.NewsArticles)
	if err != nil {
		if msg, ok := inputMessage(err); ok {
			WriteError(w, http.StatusBadRequest, msg)
			return
		}
		s.logger.Error().Str("ticker", req.Ticker).Err(err).Msg("News analysis failed")
		WriteJSON(w, http.StatusInternalServerError, map[string]interface{}{
			"error":           clientMessage(err),
			"ticker":          "unknown",
			"sentiment_score": 5,
			"summary":         analysis.NewsErrorSummary,
		})
		return
	}
	WriteJSON(w, http.StatusOK, result)
}

// handleFilingAnalyzer always answers 200; failures carry success=false
// and a canned analysis.
func (s *Server) handleFilingAnalyzer(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Ticker  string `json:"ticker"`
		Section string `json:"section"`
	}
	if !DecodeJSON(w, r, &req) {
		return
	}

	result, err := s.app.FilingService.AnalyzeFiling(r.Context(), req.Ticker, req.Section)
	if err != nil {
		s.logger.Error().Str("ticker", req.Ticker).Str("section", req.Section).Err(err).Msg("Filing analysis failed")
	}
	WriteJSON(w, http.StatusOK, result)
}

func (s *Server) handleAnalyzePortfolio(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Holdings string `json:"holdings"`
	}
	if !DecodeJSON(w, r, &req) {
		return
	}

	result, err := s.app.AnalysisService.AnalyzePortfolio(r.Context(), req.Holdings)
	if err != nil {
		s.writeAnalysisError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, result)
}

func (s *Server) handleSectorPulse(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Sector  string   `json:"sector"`
		Tickers []string `json:"tickers"`
	}
	if !DecodeJSON(w, r, &req) {
		return
	}

	result, err := s.app.AnalysisService.SectorPulse(r.Context(), req.Sector, req.Tickers)
	if err != nil {
		if msg, ok := inputMessage(err); ok {
			WriteError(w, http.StatusBadRequest, msg)
			return
		}
		s.logger.Error().Str("sector", req.Sector).Err(err).Msg("Sector pulse failed")
		WriteErrorWithDetails(w, http.StatusInternalServerError, "Failed to generate sector analysis", clientMessage(err))
		return
	}
	WriteJSON(w, http.StatusOK, result)
}

// handleCompareStocks answers 200 with success=false once the tickers
// are valid.
func (s *Server) handleCompareStocks(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Ticker1 string `json:"ticker1"`
		Ticker2 string `json:"ticker2"`
	}
	if !DecodeJSON(w, r, &req) {
		return
	}

	result, err := s.app.AnalysisService.CompareStocks(r.Context(), req.Ticker1, req.Ticker2)
	if err != nil {
		if result == nil {
			s.writeAnalysisError(w, err)
			return
		}
		result.Error = clientMessage(err)
	}
	WriteJSON(w, http.StatusOK, result)
}

func (s *Server) handleAnalyzeOutlook(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Ticker       string `json:"ticker"`
		AnalysisType string `json:"analysisType"`
	}
	if !DecodeJSON(w, r, &req) {
		return
	}

	result, err := s.app.AnalysisService.AnalyzeOutlook(r.Context(), req.Ticker, req.AnalysisType)
	if err != nil {
		s.logger.Error().Str("ticker", req.Ticker).Err(err).Msg("Outlook analysis failed")
		WriteJSON(w, http.StatusInternalServerError, map[string]interface{}{
			"error":   clientMessage(err),
			"success": false,
		})
		return
	}
	WriteJSON(w, http.StatusOK, result)
}

func (s *Server) handleScreener(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Query string `json:"query"`
	}
	if !DecodeJSON(w, r, &req) {
		return
	}

	result, err := s.app.AnalysisService.Screen(r.Context(), req.Query)
	if err != nil {
		status := http.StatusInternalServerError
		msg := clientMessage(err)
		if m, ok := inputMessage(err); ok {
			status, msg = http.StatusBadRequest, m
		} else {
			s.logger.Error().Str("query", req.Query).Err(err).Msg("Screener failed")
		}
		WriteJSON(w, status, map[string]interface{}{"success": false, "error": msg})
		return
	}
	WriteJSON(w, http.StatusOK, result)
}

// writeAnalysisError maps validation errors to 400 and everything else to 500.
func (s *Server) writeAnalysisError(w http.ResponseWriter, err error) {
	if msg, ok := inputMessage(err); ok {
		WriteError(w, http.StatusBadRequest, msg)
		return
	}
	s.logger.Error().Err(err).Msg("Analysis failed")
	WriteError(w, http.StatusInternalServerError, clientMessage(err))
}
