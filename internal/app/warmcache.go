package app

import (
	"context"
	"os"
	"time"

	"github.com/Vicistar-V/vin-stock-ai/internal/common"
	"github.com/Vicistar-V/vin-stock-ai/internal/interfaces"
	"github.com/Vicistar-V/vin-stock-ai/internal/models"
)

// warmCache fills the dashboard overview and the popular single-stock
// views on startup so the first page load is served from cache.
func warmCache(ctx context.Context, dashboardService interfaces.DashboardService, logger *common.Logger) {
	if os.Getenv("VINSTOCK_WARM_CACHE") == "off" {
		logger.Info().Msg("Warm cache: disabled via VINSTOCK_WARM_CACHE=off")
		return
	}

	start := time.Now()
	warmed := 0

	if _, err := dashboardService.Refresh(ctx, "", ""); err != nil {
		logger.Info().Err(err).Msg("Warm cache: no stored overview yet")
	} else {
		warmed++
	}

	for _, p := range models.PopularStocks {
		if ctx.Err() != nil {
			break
		}
		if _, err := dashboardService.Refresh(ctx, p.Ticker, models.DefaultTimeframe); err != nil {
			logger.Debug().Str("ticker", p.Ticker).Err(err).Msg("Warm cache: ticker skipped")
			continue
		}
		warmed++
	}

	logger.Info().
		Int("keys", warmed).
		Dur("elapsed", time.Since(start)).
		Msg("Warm cache: complete")
}
