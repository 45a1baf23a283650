package server

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/Vicistar-V/vin-stock-ai/internal/common"
)

// registerRoutes sets up all REST API routes on the router.
func (s *Server) registerRoutes(r chi.Router) {
	r.Route("/api", func(r chi.Router) {
		// System
		r.Get("/health", s.handleHealth)
		r.Get("/version", s.handleVersion)

		// Market data
		r.Get("/stock-detail", s.handleStockDetail)
		r.Post("/stock-detail", s.handleStockDetail)
		r.Get("/stock-chart", s.handleStockChart)
		r.Post("/stock-chart", s.handleStockChart)
		r.Get("/stock-chart/image", s.handleStockChartImage)
		r.Get("/popular-stocks", s.handlePopularStocks)
		r.Post("/popular-stocks", s.handlePopularStocks)
		r.Get("/market-movers", s.handleMarketMovers)
		r.Post("/market-movers", s.handleMarketMovers)
		r.Get("/market-status", s.handleMarketStatus)
		r.Post("/stock-search", s.handleStockSearch)
		r.Post("/financial-metrics", s.handleFinancialMetrics)

		// AI research
		r.Post("/explain-metric", s.handleExplainMetric)
		r.Post("/analyze-news", s.handleAnalyzeNews)
		r.Post("/sec-filing-analyzer", s.handleFilingAnalyzer)
		r.Post("/analyze-portfolio", s.handleAnalyzePortfolio)
		r.Post("/sector-pulse", s.handleSectorPulse)
		r.Post("/compare-stocks", s.handleCompareStocks)
		r.Post("/analyze-outlook", s.handleAnalyzeOutlook)
		r.Post("/ai-screener", s.handleScreener)

		// Data refresh
		r.Post("/stock-data-updater", s.handleStockDataUpdater)
		r.Post("/trigger-stock-update", s.handleTriggerStockUpdate)

		// Dashboard
		r.Get("/dashboard", s.handleDashboard)
		r.Get("/realtime", s.handleRealtime)
	})

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		WriteError(w, http.StatusNotFound, "Not found")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		WriteError(w, http.StatusMethodNotAllowed, "Method not allowed")
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleVersion(w http.ResponseWriter, r *http.Request) {
	WriteJSON(w, http.StatusOK, map[string]string{
		"version": common.GetVersion(),
		"build":   common.GetBuild(),
		"commit":  common.GetGitCommit(),
	})
}
