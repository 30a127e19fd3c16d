package main

import (
	"context"
	"fmt"
	"time"

	mongoMigration "pawwalk/internal/migrations/mongo"
	sqliteMigration "pawwalk/internal/migrations/sqlite"
	"pawwalk/pkg/config"
)

const JobName = "migration"

func main() {
	ctx, cancel := context.WithTimeout(context.Background(), 120*time.Second)
	defer cancel()

	cfg := config.Load(JobName)
	cfg.Connect()
	defer cfg.GracefulShutdown()

	switch cfg.StorageDriver {
	case config.StorageSQLite:
		cfg.Log.Info("Starting SQLite migration job", "path", cfg.SQLitePath)
		if err := sqliteMigration.RunMigration(ctx, cfg.Client.SQLite, cfg.Log); err != nil {
			cfg.Log.Fatal("Migration failed", "error", err)
		}
	default:
		cfg.Log.Info("Starting Mongo migration job", "database", cfg.MongoDatabaseName)
		if err := mongoMigration.RunMigration(ctx, cfg.Client.Mongo, cfg.MongoDatabaseName, cfg.Log); err != nil {
			cfg.Log.Fatal("Migration failed", "error", err)
		}
	}
	fmt.Println("Migration completed successfully.")
}
