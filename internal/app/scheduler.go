package app

import (
	"context"
	"time"

	"github.com/Vicistar-V/vin-stock-ai/internal/common"
	"github.com/Vicistar-V/vin-stock-ai/internal/interfaces"
)

// startUpdateScheduler runs the updater on a fixed interval until ctx is done.
func startUpdateScheduler(ctx context.Context, updaterService interfaces.UpdaterService, logger *common.Logger, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	logger.Info().Dur("interval", interval).Msg("Update scheduler: started")
	for {
		select {
		case <-ctx.Done():
			logger.Info().Msg("Update scheduler: stopped")
			return
		case <-ticker.C:
			runUpdate(ctx, updaterService, logger)
		}
	}
}

func runUpdate(ctx context.Context, updaterService interfaces.UpdaterService, logger *common.Logger) {
	start := time.Now()

	result, err := updaterService.RunOnce(ctx)
	if err != nil {
		logger.Warn().Err(err).Msg("Update scheduler: run failed")
		return
	}

	logger.Info().
		Int("quotes", result.UpdatedQuotes).
		Int("news", result.UpdatedNews).
		Int("historical", result.UpdatedHistorical).
		Dur("elapsed", time.Since(start)).
		Msg("Update scheduler: complete")
}
