package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/solarops-dev/solarops/internal/alert"
	"github.com/solarops-dev/solarops/internal/api"
	"github.com/solarops-dev/solarops/internal/config"
	"github.com/solarops-dev/solarops/internal/engine"
	"github.com/solarops-dev/solarops/internal/logger"
	"github.com/solarops-dev/solarops/internal/models"
	"github.com/solarops-dev/solarops/internal/portfolio"
	"github.com/solarops-dev/solarops/internal/storage"
	"github.com/solarops-dev/solarops/internal/watch"
	"github.com/solarops-dev/solarops/internal/weather"
)

const usage = `Usage: solarops <command> [flags]

Commands:
  analyze   run a single-site cleaning analysis and print the decision
  optimize  allocate a water budget across farms from a JSON file
  serve     run the HTTP API
  watch     re-analyze configured sites on an interval and alert on flips
`

func main() {
	if len(os.Args) < 2 {
		fmt.Fprint(os.Stderr, usage)
		os.Exit(2)
	}

	switch os.Args[1] {
	case "analyze":
		runAnalyze(os.Args[2:])
	case "optimize":
		runOptimize(os.Args[2:])
	case "serve":
		runServe(os.Args[2:])
	case "watch":
		runWatch(os.Args[2:])
	default:
		fmt.Fprint(os.Stderr, usage)
		os.Exit(2)
	}
}

// setup loads and validates config, initializes logging, and builds the
// shared dependencies every command needs.
func setup(configPath string) (*config.Config, weather.Provider, *storage.Storage) {
	cfg, err := config.Load(configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	logger.Init(cfg.Logging.Level, cfg.Logging.Format)
	logger.Info("Configuration loaded from %s", configPath)

	var provider weather.Provider
	if cfg.Weather.DemoMode {
		logger.Warn("Demo mode enabled: using synthetic weather data")
		provider = weather.Synthetic{}
	} else {
		provider = weather.NewNASAPower(cfg.Weather.APIBaseURL, cfg.Weather.Timeout, cfg.Weather.MaxRetries)
	}

	store := storage.New(
		cfg.Storage.MaxDecisionsPerSite,
		cfg.Storage.MaxSelections,
		cfg.Storage.FilePath,
		0o644,
		0o755,
	)
	if err := store.Load(); err != nil {
		logger.Warn("Failed to load history, starting fresh: %v", err)
	}

	return cfg, provider, store
}

func runAnalyze(args []string) {
	fs := flag.NewFlagSet("analyze", flag.ExitOnError)
	configPath := fs.String("config", "configs/config.yaml", "Path to configuration file")
	lat := fs.Float64("lat", 0, "Site latitude")
	lon := fs.Float64("lon", 0, "Site longitude")
	capacityMW := fs.Float64("capacity-mw", 0, "Plant capacity in MW")
	panelArea := fs.Float64("area-m2", 0, "Panel area in square meters (overrides capacity)")
	dustRate := fs.Float64("dust-rate", 1.0, "Dust accumulation rate")
	carbonWeight := fs.Float64("carbon-weight", -1, "Carbon weight in [0,1] (-1 uses config default)")
	fs.Parse(args)

	cfg, provider, store := setup(*configPath)

	req := engine.Request{
		SiteID:           "cli",
		Latitude:         *lat,
		Longitude:        *lon,
		PlantCapacityMW:  *capacityMW,
		PanelAreaM2:      *panelArea,
		DustRate:         *dustRate,
		ElectricityPrice: cfg.Engine.ElectricityPrice,
		CleaningCost:     cfg.Engine.CleaningCost,
		CarbonWeight:     cfg.Engine.CarbonWeight,
		HorizonDays:      cfg.Engine.HorizonDays,
		WaterUsageLiters: cfg.Engine.WaterUsageLiters,
		WaterUnitCost:    cfg.Engine.WaterUnitCost,
	}
	if *carbonWeight >= 0 {
		req.CarbonWeight = *carbonWeight
	}

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Weather.Timeout+time.Minute)
	defer cancel()

	samples, err := provider.Daily(ctx, req.Latitude, req.Longitude, time.Now(), req.HorizonDays)
	if err != nil {
		logger.Fatal("Failed to fetch weather data: %v", err)
	}
	req.Samples = samples

	start := time.Now()
	decision, err := engine.New().Analyze(ctx, req)
	if err != nil {
		logger.Fatal("Analysis failed: %v", err)
	}

	if err := store.AddDecision(req.SiteID, time.Since(start), decision); err != nil {
		logger.Warn("Failed to record decision: %v", err)
	}
	if err := store.Save(); err != nil {
		logger.Warn("Failed to persist history: %v", err)
	}

	printJSON(decision)
}

func runOptimize(args []string) {
	fs := flag.NewFlagSet("optimize", flag.ExitOnError)
	configPath := fs.String("config", "configs/config.yaml", "Path to configuration file")
	farmsPath := fs.String("farms", "farms.json", "Path to farms JSON file")
	budget := fs.Float64("water-budget", 0, "Water budget in liters")
	modeName := fs.String("mode", "PROFIT", "Optimization mode: PROFIT, CARBON or WATER_SCARCITY")
	exact := fs.Bool("exact", false, "Use the exact knapsack strategy instead of greedy")
	fs.Parse(args)

	cfg, _, store := setup(*configPath)

	data, err := os.ReadFile(*farmsPath)
	if err != nil {
		logger.Fatal("Failed to read farms file: %v", err)
	}
	var farms []models.Farm
	if err := json.Unmarshal(data, &farms); err != nil {
		logger.Fatal("Failed to parse farms file: %v", err)
	}

	mode, err := models.ParseMode(*modeName)
	if err != nil {
		logger.Fatal("%v", err)
	}

	opt := portfolio.New(cfg.Engine.AvgIrradiance, cfg.Engine.WaterUnitCost)
	if *exact {
		opt.Strategy = portfolio.StrategyExactDP
	}

	start := time.Now()
	selection, err := opt.Optimize(context.Background(), farms, *budget, mode)
	if err != nil {
		logger.Fatal("Optimization failed: %v", err)
	}

	if err := store.AddSelection(time.Since(start), selection); err != nil {
		logger.Warn("Failed to record selection: %v", err)
	}
	if err := store.Save(); err != nil {
		logger.Warn("Failed to persist history: %v", err)
	}

	printJSON(selection)
}

func runServe(args []string) {
	fs := flag.NewFlagSet("serve", flag.ExitOnError)
	configPath := fs.String("config", "configs/config.yaml", "Path to configuration file")
	fs.Parse(args)

	cfg, provider, store := setup(*configPath)

	srv := api.New(engine.New(), provider, store, cfg.Engine)
	httpServer := &http.Server{
		Addr:    cfg.Server.Address,
		Handler: srv.Handler(),
	}

	ctx, cancel := signalContext()
	defer cancel()

	go func() {
		logger.Info("HTTP API listening on %s", cfg.Server.Address)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("HTTP server failed: %v", err)
		}
	}()

	persistTicker := time.NewTicker(cfg.Storage.PersistenceInterval)
	defer persistTicker.Stop()

	for {
		select {
		case <-ctx.Done():
			shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer shutdownCancel()
			if err := httpServer.Shutdown(shutdownCtx); err != nil {
				logger.Error("HTTP shutdown failed: %v", err)
			}
			persistHistory(store)
			logger.Info("Service stopped")
			return

		case <-persistTicker.C:
			persistHistory(store)
		}
	}
}

func runWatch(args []string) {
	fs := flag.NewFlagSet("watch", flag.ExitOnError)
	configPath := fs.String("config", "configs/config.yaml", "Path to configuration file")
	fs.Parse(args)

	cfg, provider, store := setup(*configPath)

	if !cfg.Watch.Enabled {
		logger.Fatal("watch.enabled is false in configuration")
	}

	var notifier watch.Notifier
	if cfg.Telegram.Enabled {
		client, err := alert.NewClient(cfg.Telegram.BotToken, cfg.Telegram.ChatID, 3, time.Second)
		if err != nil {
			logger.Fatal("Failed to initialize Telegram client: %v", err)
		}
		notifier = client
		logger.Info("Telegram alerts initialized")
	} else {
		logger.Debug("Telegram alerts disabled")
	}

	watcher := watch.New(engine.New(), provider, store, notifier, cfg.Engine, cfg.Watch.Cooldown)

	ctx, cancel := signalContext()
	defer cancel()

	logger.Info("Starting watch loop (interval: %v, sites: %d)", cfg.Watch.Interval, len(cfg.Sites))

	ticker := time.NewTicker(cfg.Watch.Interval)
	defer ticker.Stop()

	persistTicker := time.NewTicker(cfg.Storage.PersistenceInterval)
	defer persistTicker.Stop()

	// Run the first cycle immediately rather than waiting a full interval.
	if err := watcher.RunCycle(ctx, cfg.Sites); err != nil {
		logger.Error("Watch cycle failed: %v", err)
	}

	for {
		select {
		case <-ctx.Done():
			persistHistory(store)
			logger.Info("Service stopped")
			return

		case <-ticker.C:
			if err := watcher.RunCycle(ctx, cfg.Sites); err != nil {
				logger.Error("Watch cycle failed: %v", err)
			}
			if err := store.Rotate(); err != nil {
				logger.Warn("Failed to rotate history: %v", err)
			}

		case <-persistTicker.C:
			persistHistory(store)
		}
	}
}

func signalContext() (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-sigChan
		logger.Info("Shutdown signal received, cleaning up...")
		cancel()
	}()

	return ctx, cancel
}

func persistHistory(store *storage.Storage) {
	if err := store.Save(); err != nil {
		logger.Error("Failed to persist history: %v", err)
	}
}

func printJSON(v interface{}) {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		logger.Fatal("Failed to encode output: %v", err)
	}
	fmt.Println(string(out))
}
