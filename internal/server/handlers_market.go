package server

import (
	"errors"
	"net/http"
	"strings"

	"github.com/Vicistar-V/vin-stock-ai/internal/services/market"
)

type tickerRequest struct {
	Ticker    string `json:"ticker"`
	Timeframe string `json:"timeframe"`
}

func (s *Server) bindTicker(w http.ResponseWriter, r *http.Request) (tickerRequest, bool) {
	var req tickerRequest
	if !bindRequest(w, r, &req) {
		return req, false
	}
	req.Ticker = strings.TrimSpace(orQuery(r, req.Ticker, "ticker"))
	req.Timeframe = strings.TrimSpace(orQuery(r, req.Timeframe, "timeframe"))
	return req, true
}

func (s *Server) handleStockDetail(w http.ResponseWriter, r *http.Request) {
	req, ok := s.bindTicker(w, r)
	if !ok {
		return
	}
	if req.Ticker == "" {
		WriteError(w, http.StatusBadRequest, "Ticker parameter required")
		return
	}

	detail, err := s.app.MarketService.GetStockDetail(r.Context(), req.Ticker)
	if err != nil {
		WriteError(w, http.StatusInternalServerError, clientMessage(err))
		return
	}
	WriteJSON(w, http.StatusOK, detail)
}

func (s *Server) handleStockChart(w http.ResponseWriter, r *http.Request) {
	req, ok := s.bindTicker(w, r)
	if !ok {
		return
	}
	if req.Ticker == "" {
		WriteError(w, http.StatusBadRequest, "Ticker parameter required")
		return
	}

	chart, err := s.app.MarketService.GetChart(r.Context(), req.Ticker, req.Timeframe)
	if err != nil {
		WriteError(w, http.StatusInternalServerError, clientMessage(err))
		return
	}
	WriteJSON(w, http.StatusOK, map[string]interface{}{"data": chart.Data})
}

func (s *Server) handleStockChartImage(w http.ResponseWriter, r *http.Request) {
	ticker := strings.TrimSpace(r.URL.Query().Get("ticker"))
	if ticker == "" {
		WriteError(w, http.StatusBadRequest, "Ticker parameter required")
		return
	}

	png, err := s.app.MarketService.RenderChartPNG(r.Context(), ticker, r.URL.Query().Get("timeframe"))
	if err != nil {
		WriteError(w, http.StatusInternalServerError, clientMessage(err))
		return
	}
	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Cache-Control", "max-age=60")
	w.WriteHeader(http.StatusOK)
	w.Write(png)
}

func (s *Server) handlePopularStocks(w http.ResponseWriter, r *http.Request) {
	stocks, err := s.app.MarketService.GetPopularStocks(r.Context())
	if err != nil {
		WriteError(w, http.StatusInternalServerError, clientMessage(err))
		return
	}
	WriteJSON(w, http.StatusOK, map[string]interface{}{"stocks": stocks})
}

func (s *Server) handleMarketMovers(w http.ResponseWriter, r *http.Request) {
	movers, err := s.app.MarketService.GetMarketMovers(r.Context())
	if err != nil {
		WriteErrorWithDetails(w, http.StatusInternalServerError, "Failed to fetch market movers data", clientMessage(err))
		return
	}
	WriteJSON(w, http.StatusOK, movers)
}

func (s *Server) handleMarketStatus(w http.ResponseWriter, r *http.Request) {
	WriteJSON(w, http.StatusOK, s.app.MarketService.GetMarketStatus(s.now()))
}

func (s *Server) handleStockSearch(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Query string `json:"query"`
	}
	if !DecodeJSON(w, r, &req) {
		return
	}

	result, err := s.app.MarketService.SearchStock(r.Context(), req.Query)
	if err != nil {
		var notFound *market.TickerNotFoundError
		switch {
		case errors.Is(err, market.ErrUnrecognizedQuery):
			WriteJSON(w, http.StatusBadRequest, map[string]interface{}{
				"error":       market.UnrecognizedQueryMessage,
				"suggestions": market.SearchSuggestions,
			})
		case errors.As(err, &notFound):
			WriteError(w, http.StatusNotFound, notFound.Error())
		default:
			WriteError(w, http.StatusInternalServerError, clientMessage(err))
		}
		return
	}
	WriteJSON(w, http.StatusOK, result)
}

// handleFinancialMetrics answers 200 even on upstream failure so the
// metrics panel can render its own empty state.
func (s *Server) handleFinancialMetrics(w http.ResponseWriter, r *http.Request) {
	req, ok := s.bindTicker(w, r)
	if !ok {
		return
	}
	if req.Ticker == "" {
		WriteError(w, http.StatusBadRequest, "Missing ticker")
		return
	}

	metrics, err := s.app.MarketService.GetFinancialMetrics(r.Context(), req.Ticker)
	if err != nil {
		s.logger.Warn().Str("ticker", req.Ticker).Err(err).Msg("Financial metrics failed")
		WriteJSON(w, http.StatusOK, map[string]interface{}{"success": false, "error": clientMessage(err)})
		return
	}
	WriteJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"ticker":  req.Ticker,
		"metrics": metrics,
	})
}
