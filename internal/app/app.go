package app

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/Vicistar-V/vin-stock-ai/internal/clients/finnhub"
	"github.com/Vicistar-V/vin-stock-ai/internal/clients/gemini"
	"github.com/Vicistar-V/vin-stock-ai/internal/clients/openrouter"
	"github.com/Vicistar-V/vin-stock-ai/internal/clients/sec"
	"github.com/Vicistar-V/vin-stock-ai/internal/common"
	"github.com/Vicistar-V/vin-stock-ai/internal/interfaces"
	"github.com/Vicistar-V/vin-stock-ai/internal/models"
	"github.com/Vicistar-V/vin-stock-ai/internal/realtime"
	"github.com/Vicistar-V/vin-stock-ai/internal/services/analysis"
	"github.com/Vicistar-V/vin-stock-ai/internal/services/dashboard"
	"github.com/Vicistar-V/vin-stock-ai/internal/services/filings"
	"github.com/Vicistar-V/vin-stock-ai/internal/services/market"
	"github.com/Vicistar-V/vin-stock-ai/internal/services/updater"
	"github.com/Vicistar-V/vin-stock-ai/internal/storage/sqlite"
)

// App holds all initialized services, clients and storage.
// It is the shared core used by the serve and update commands.
type App struct {
	Config           *common.Config
	Logger           *common.Logger
	Store            *sqlite.Store
	FinnhubClient    interfaces.FinnhubClient
	LLMClient        interfaces.LLMClient
	MarketService    interfaces.MarketService
	FilingService    interfaces.FilingService
	AnalysisService  interfaces.AnalysisService
	UpdaterService   interfaces.UpdaterService
	DashboardService interfaces.DashboardService
	Hub              *realtime.Hub
	StartupTime      time.Time

	dashboard       *dashboard.Service
	closers         []func() error
	schedulerCancel context.CancelFunc
	watchCancel     context.CancelFunc
	warmCacheCancel context.CancelFunc
}

// getBinaryDir returns the directory containing the executable.
func getBinaryDir() string {
	exe, err := os.Executable()
	if err != nil {
		return "."
	}
	return filepath.Dir(exe)
}

// ResolveConfigPath picks the config file: explicit path, VINSTOCK_CONFIG,
// next to the binary, then config/vinstock.toml for development.
func ResolveConfigPath(configPath string) string {
	if configPath == "" {
		configPath = os.Getenv("VINSTOCK_CONFIG")
	}
	if configPath == "" {
		configPath = filepath.Join(getBinaryDir(), "vinstock.toml")
		if _, err := os.Stat(configPath); os.IsNotExist(err) {
			configPath = "config/vinstock.toml"
		}
	}
	return configPath
}

// NewApp loads configuration and initializes everything.
// configPath may be empty, in which case ResolveConfigPath applies.
func NewApp(configPath string) (*App, error) {
	config, err := common.LoadConfig(ResolveConfigPath(configPath))
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	return NewAppWithConfig(config)
}

// NewAppWithConfig initializes clients, storage and services from config.
func NewAppWithConfig(config *common.Config) (*App, error) {
	startupStart := time.Now()
	ctx := context.Background()

	logger := common.NewLoggerFromConfig(config.Logging)

	store, err := sqlite.Open(ctx, config.Storage.Path, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize storage: %w", err)
	}

	a := &App{
		Config:      config,
		Logger:      logger,
		Store:       store,
		StartupTime: startupStart,
		closers:     []func() error{store.Close},
	}

	// Market data client. Keyless calls fail upstream and the market
	// service falls back to canned data.
	fh := finnhub.NewClient(config.Clients.Finnhub.APIKey,
		finnhub.WithBaseURL(config.Clients.Finnhub.BaseURL),
		finnhub.WithLogger(logger),
		finnhub.WithRateLimit(config.Clients.Finnhub.RateLimit),
		finnhub.WithTimeout(config.Clients.Finnhub.GetTimeout()),
	)

	// Features that require a key receive a nil interface when it is missing
	var keyedFinnhub interfaces.FinnhubClient
	if config.Clients.Finnhub.APIKey != "" {
		keyedFinnhub = fh
		a.FinnhubClient = fh
	} else {
		logger.Warn().Msg("Finnhub API key not configured - using fallback market data")
	}

	a.LLMClient = a.newLLMClient(ctx)

	fetcher := sec.NewFetcher(sec.WithLogger(logger))

	marketService := market.NewService(fh, a.LLMClient, logger)
	a.MarketService = marketService
	a.FilingService = filings.NewService(keyedFinnhub, fetcher, a.LLMClient, logger)
	a.AnalysisService = analysis.NewService(keyedFinnhub, store, a.LLMClient, logger)
	a.UpdaterService = updater.NewService(keyedFinnhub, store, logger, config.Updater.GetRequestDelay())

	a.dashboard = dashboard.NewService(store, store, marketService, config.Dashboard.GetCacheTTL(), logger)
	a.DashboardService = a.dashboard

	a.Hub = realtime.NewHub(logger)
	a.dashboard.Watch(func(ev models.ChangeEvent) {
		for _, msg := range realtime.EventsFromChange(ev) {
			a.Hub.Broadcast(msg)
		}
	})

	logger.Info().Dur("startup", time.Since(startupStart)).Msg("App initialized")
	return a, nil
}

// newLLMClient builds the configured completion provider, or returns nil
// when its key is missing.
func (a *App) newLLMClient(ctx context.Context) interfaces.LLMClient {
	config, logger := a.Config, a.Logger

	switch config.LLM.Provider {
	case common.ProviderGemini:
		if config.Clients.Gemini.APIKey == "" {
			logger.Warn().Msg("Gemini API key not configured - AI analysis will be unavailable")
			return nil
		}
		client, err := gemini.NewClient(ctx, config.Clients.Gemini.APIKey,
			gemini.WithLogger(logger),
			gemini.WithModel(config.Clients.Gemini.Model),
		)
		if err != nil {
			logger.Warn().Err(err).Msg("Failed to initialize Gemini client")
			return nil
		}
		a.closers = append(a.closers, client.Close)
		return client

	default:
		if config.Clients.OpenRouter.APIKey == "" {
			logger.Warn().Msg("OpenRouter API key not configured - AI analysis will be unavailable")
			return nil
		}
		return openrouter.NewClient(config.Clients.OpenRouter.APIKey,
			openrouter.WithBaseURL(config.Clients.OpenRouter.BaseURL),
			openrouter.WithModel(config.Clients.OpenRouter.Model),
			openrouter.WithReferer(config.Clients.OpenRouter.Referer),
			openrouter.WithLogger(logger),
			openrouter.WithTimeout(config.Clients.OpenRouter.GetTimeout()),
		)
	}
}

// StartBackground launches the hub, the dashboard invalidation watcher,
// cache warming and, when enabled, the update scheduler.
func (a *App) StartBackground() {
	go a.Hub.Run()

	watchCtx, watchCancel := context.WithCancel(context.Background())
	a.watchCancel = watchCancel
	go a.dashboard.Run(watchCtx)

	a.StartWarmCache()

	if a.Config.Updater.Enabled {
		a.StartUpdateScheduler()
	}
}

// StartWarmCache fills the dashboard cache in the background.
func (a *App) StartWarmCache() {
	warmCtx, warmCancel := context.WithTimeout(context.Background(), time.Minute)
	a.warmCacheCancel = warmCancel
	go func() {
		defer warmCancel()
		warmCache(warmCtx, a.DashboardService, a.Logger)
	}()
}

// StartUpdateScheduler launches the periodic updater goroutine.
func (a *App) StartUpdateScheduler() {
	schedulerCtx, schedulerCancel := context.WithCancel(context.Background())
	a.schedulerCancel = schedulerCancel
	go startUpdateScheduler(schedulerCtx, a.UpdaterService, a.Logger, a.Config.Updater.GetInterval())
}

// Close releases all resources held by the App.
// Shutdown order: background loops, hub, then clients and storage.
func (a *App) Close() {
	for _, cancel := range []*context.CancelFunc{&a.schedulerCancel, &a.warmCacheCancel, &a.watchCancel} {
		if *cancel != nil {
			(*cancel)()
			*cancel = nil
		}
	}
	if a.Hub != nil {
		a.Hub.Stop()
	}
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			a.Logger.Warn().Err(err).Msg("Close failed")
		}
	}
	a.closers = nil
}
