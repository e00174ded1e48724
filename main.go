package main

import (
	"context"
	"flag"
	"log" // Use standard log only for initial fatal errors before logger is set up

	"tradeTracker/config"
	"tradeTracker/internal/adapters/alpacabroker"
	"tradeTracker/internal/adapters/logger"
	"tradeTracker/internal/adapters/sqlite"
	"tradeTracker/internal/app"
	"tradeTracker/internal/ports"
	"tradeTracker/internal/reconcile"
	"tradeTracker/internal/trades"
)

func main() {
	once := flag.Bool("once", false, "run a single tracking pass and exit")
	flag.Parse()

	// 1. Load Configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("FATAL: Failed to load configuration: %v", err) // Use standard log before logger is ready
	}

	// 2. Initialize Logger
	var appLogger ports.Logger
	if cfg.LogFormat == "json" {
		zl, err := logger.NewZapLogger(cfg.LogLevel)
		if err != nil {
			log.Fatalf("FATAL: Failed to initialize zap logger: %v", err)
		}
		defer zl.Sync()
		appLogger = zl
	} else {
		appLogger = logger.NewStdLogger(cfg.LogLevel)
	}
	appLogger.Info(context.Background(), "Logger initialized", map[string]interface{}{"level": cfg.LogLevel.String(), "format": cfg.LogFormat})

	// 3. Initialize Repository (Database Adapter)
	repo, err := sqlite.NewRepository(sqlite.Config{
		DBPath: cfg.DBPath,
		Logger: appLogger,
	})
	if err != nil {
		appLogger.Error(context.Background(), err, "FATAL: Failed to initialize database repository")
		log.Fatalf("FATAL: Failed to initialize database repository: %v", err) // Also log to stderr
	}
	defer func() {
		if err := repo.Close(); err != nil {
			appLogger.Error(context.Background(), err, "Error closing database repository")
		}
	}()
	appLogger.Info(context.Background(), "Database repository initialized")

	// 4. Initialize Broker Client (Alpaca Adapter)
	broker, err := alpacabroker.NewClient(alpacabroker.Config{
		APIKey:      cfg.APIKey,
		APISecret:   cfg.APISecret,
		BaseURL:     cfg.BaseURL,
		DataBaseURL: cfg.DataBaseURL,
		Logger:      appLogger,
	})
	if err != nil {
		appLogger.Error(context.Background(), err, "FATAL: Failed to initialize Alpaca client")
		log.Fatalf("FATAL: Failed to initialize Alpaca client: %v", err)
	}
	appLogger.Info(context.Background(), "Alpaca client initialized")

	// 5. Initialize Trade Calculator and Repair Engine
	calc, err := trades.NewCalculator(appLogger)
	if err != nil {
		appLogger.Error(context.Background(), err, "FATAL: Failed to initialize trade calculator")
		log.Fatalf("FATAL: Failed to initialize trade calculator: %v", err)
	}

	repair, err := reconcile.NewEngine(reconcile.EngineConfig{
		Logger:    appLogger,
		Broker:    broker,
		OrderRepo: repo,
		TradeRepo: repo,
		Calc:      calc,
	})
	if err != nil {
		appLogger.Error(context.Background(), err, "FATAL: Failed to initialize repair engine")
		log.Fatalf("FATAL: Failed to initialize repair engine: %v", err)
	}

	// 6. Initialize Application Service
	trackingService, err := app.NewTrackingService(
		cfg,
		appLogger,
		broker, // Pass the concrete implementation, service expects the interface
		broker, // Also serves quotes
		repo,
		repo,
		repo,
		repo,
		calc,
		repair,
	)
	if err != nil {
		appLogger.Error(context.Background(), err, "FATAL: Failed to initialize tracking service")
		log.Fatalf("FATAL: Failed to initialize tracking service: %v", err)
	}
	appLogger.Info(context.Background(), "Tracking service initialized")

	// 7. Start the Service
	if err := trackingService.Run(context.Background(), *once); err != nil {
		appLogger.Error(context.Background(), err, "Tracking service exited with error")
		log.Fatalf("FATAL: Tracking service exited with error: %v", err)
	}

	appLogger.Info(context.Background(), "Application finished gracefully.")
}
