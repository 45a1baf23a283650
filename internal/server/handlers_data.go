package server

import (
	"net/http"
	"strings"
	"time"

	"github.com/Vicistar-V/vin-stock-ai/internal/models"
)

// dashboardResponse wraps a dashboard payload with its cache state. Error
// is set when a refetch failed and the last cached payload is served.
type dashboardResponse struct {
	Data      models.DashboardPayload `json:"data"`
	Fresh     bool                    `json:"fresh"`
	FetchedAt time.Time               `json:"fetched_at"`
	Error     string                  `json:"error,omitempty"`
}

func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	ticker := strings.TrimSpace(q.Get("ticker"))
	timeframe := strings.TrimSpace(q.Get("timeframe"))

	get := s.app.DashboardService.Get
	if q.Get("refresh") == "true" {
		get = s.app.DashboardService.Refresh
	}

	res, err := get(r.Context(), ticker, timeframe)
	if res == nil {
		msg := "Failed to load dashboard data"
		if err != nil {
			msg = clientMessage(err)
		}
		WriteError(w, http.StatusInternalServerError, msg)
		return
	}

	body := dashboardResponse{Data: res.Data, Fresh: res.Fresh, FetchedAt: res.FetchedAt}
	if err != nil {
		body.Error = clientMessage(err)
	}
	WriteJSON(w, http.StatusOK, body)
}

func (s *Server) handleRealtime(w http.ResponseWriter, r *http.Request) {
	s.app.Hub.ServeWS(w, r)
}

func (s *Server) handleStockDataUpdater(w http.ResponseWriter, r *http.Request) {
	result, err := s.app.UpdaterService.RunOnce(r.Context())
	if err != nil {
		s.logger.Error().Err(err).Msg("Stock update failed")
		WriteError(w, http.StatusInternalServerError, clientMessage(err))
		return
	}
	WriteJSON(w, http.StatusOK, result)
}

func (s *Server) handleTriggerStockUpdate(w http.ResponseWriter, r *http.Request) {
	result, err := s.app.UpdaterService.RunOnce(r.Context())
	if err != nil {
		s.logger.Error().Err(err).Msg("Failed to trigger stock update")
		WriteError(w, http.StatusInternalServerError, "Stock updater failed: "+clientMessage(err))
		return
	}
	WriteJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"message": "Stock data update triggered successfully",
		"result":  result,
	})
}
