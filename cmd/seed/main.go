package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/sh6drack/actually-waxfeed-sub002/internal/database"
	"github.com/sh6drack/actually-waxfeed-sub002/internal/logger"
	"github.com/sh6drack/actually-waxfeed-sub002/internal/seed"
)

func main() {
	_ = godotenv.Load()
	logger.InitializeConsole(os.Getenv("LOG_LEVEL"))

	command := "dev"
	if len(os.Args) > 1 {
		command = os.Args[1]
	}

	switch command {
	case "dev", "test", "clean":
	default:
		fmt.Println("Usage: seed [dev|test|clean]")
		fmt.Println("  dev   - Seed development database with a generated catalog and listeners")
		fmt.Println("  test  - Seed test database with a small fixed catalog")
		fmt.Println("  clean - Remove all seed data (use with caution)")
		os.Exit(1)
	}

	if err := database.Initialize(); err != nil {
		logger.FatalWithFields("Failed to connect to database", err)
	}
	defer database.Close()

	if err := database.Migrate(); err != nil {
		logger.FatalWithFields("Migration failed", err)
	}

	ctx := context.Background()
	seeder := seed.NewSeeder(database.DB, uint64(time.Now().UnixNano()))

	var err error
	switch command {
	case "dev":
		err = seeder.SeedDev(ctx, seed.DefaultSizes())
	case "test":
		err = seeder.SeedTest(ctx)
	case "clean":
		err = seeder.Clean(ctx)
	}
	if err != nil {
		logger.FatalWithFields("Seeding failed", err)
	}

	logger.Log.Info("Seed command finished: " + command)
}
