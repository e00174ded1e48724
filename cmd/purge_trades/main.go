// Command purge_trades deletes trades invalidated by external events (splits,
// symbol changes, broker corrections) from a JSON purge list and detaches
// their orders so later rebuilds do not resurrect them.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"

	"tradeTracker/config"
	"tradeTracker/internal/adapters/logger"
	"tradeTracker/internal/adapters/sqlite"
	"tradeTracker/internal/reconcile"
)

func main() {
	file := flag.String("file", "purge.json", "path to the purge list")
	flag.Parse()

	// 1. Load Configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("FATAL: Failed to load configuration: %v", err) // Use standard log before logger is ready
	}

	// 2. Initialize Logger
	appLogger := logger.NewStdLogger(cfg.LogLevel)

	// 3. Initialize Repository (Database Adapter)
	repo, err := sqlite.NewRepository(sqlite.Config{
		DBPath: cfg.DBPath,
		Logger: appLogger,
	})
	if err != nil {
		appLogger.Error(context.Background(), err, "FATAL: Failed to initialize database repository")
		log.Fatalf("FATAL: Failed to initialize database repository: %v", err)
	}
	defer repo.Close()

	list, err := loadPurgeList(*file)
	if err != nil {
		appLogger.Error(context.Background(), err, "Failed to load purge list", map[string]interface{}{"file": *file})
		log.Fatalf("FATAL: %v", err)
	}

	purger, err := reconcile.NewPurger(appLogger, repo, repo)
	if err != nil {
		log.Fatalf("FATAL: Failed to initialize purger: %v", err)
	}

	purged, err := purger.Run(context.Background(), list)
	if err != nil {
		appLogger.Error(context.Background(), err, "Purge failed")
		log.Fatalf("FATAL: purge failed: %v", err)
	}
	fmt.Printf("Purged %d of %d requested trades.\n", purged, len(list.Entries))
	fmt.Println("Run rebuild_trades to recompute the affected symbols.")
}

func loadPurgeList(path string) (*reconcile.PurgeList, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read purge list %s: %w", path, err)
	}
	list := &reconcile.PurgeList{}
	if err := json.Unmarshal(data, list); err != nil {
		return nil, fmt.Errorf("failed to parse purge list %s: %w", path, err)
	}
	return list, nil
}
