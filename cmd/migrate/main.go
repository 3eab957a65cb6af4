package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/sh6drack/actually-waxfeed-sub002/internal/database"
	"github.com/sh6drack/actually-waxfeed-sub002/internal/logger"
)

func main() {
	_ = godotenv.Load()
	logger.InitializeConsole(os.Getenv("LOG_LEVEL"))

	command := "up"
	if len(os.Args) > 1 {
		command = os.Args[1]
	}

	switch command {
	case "up":
		runMigrationsUp()
	default:
		fmt.Println("Usage: migrate [up]")
		fmt.Println("  up - Create or update every table and index")
		os.Exit(1)
	}
}

func runMigrationsUp() {
	logger.Log.Info("Connecting to database...")
	if err := database.Initialize(); err != nil {
		logger.FatalWithFields("Failed to connect to database", err)
	}
	defer database.Close()

	if err := database.Migrate(); err != nil {
		logger.FatalWithFields("Migration failed", err)
	}

	logger.Log.Info("All migrations completed successfully")
}
