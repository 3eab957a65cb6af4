package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/sh6drack/actually-waxfeed-sub002/internal/config"
	"github.com/sh6drack/actually-waxfeed-sub002/internal/database"
	"github.com/sh6drack/actually-waxfeed-sub002/internal/kernel"
	"github.com/sh6drack/actually-waxfeed-sub002/internal/logger"
	"github.com/spf13/cobra"
)

var (
	configPath string
	output     = "json" // "text" or "json"
	verbose    bool

	k *kernel.Kernel
)

var rootCmd = &cobra.Command{
	Use:   "waxfeed",
	Short: "Waxfeed CLI - inspect recommendations from the command line",
	Long: `Waxfeed CLI runs the recommendation engine directly against the database
configured by DATABASE_URL (or DB_* variables). Users may be given by ID or
username.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		_ = godotenv.Load()
		level := "warn"
		if verbose {
			level = "debug"
		}
		logger.InitializeConsole(level)

		if err := database.Initialize(); err != nil {
			return err
		}

		path := configPath
		if path == "" {
			path = os.Getenv("RECOMMEND_CONFIG")
		}
		engineCfg, err := config.LoadRecommendConfig(path)
		if err != nil {
			return err
		}

		secret := os.Getenv("JWT_SECRET")
		if secret == "" {
			secret = "waxfeed-dev-secret"
		}
		k, err = kernel.Bootstrap(database.DB, nil, kernel.Options{
			Engine:    engineCfg,
			JWTSecret: []byte(secret),
		})
		return err
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		_ = database.Close()
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Recommendation tunables YAML (defaults to RECOMMEND_CONFIG)")
	rootCmd.PersistentFlags().StringVar(&output, "output", output, "Output format: text or json")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Log SQL and engine debug output")

	rootCmd.AddCommand(recommendCmd)
	rootCmd.AddCommand(swipeCmd)
	rootCmd.AddCommand(compatCmd)
	rootCmd.AddCommand(profileCmd)
	rootCmd.AddCommand(tokenCmd)
	rootCmd.AddCommand(ctrCmd)
}

func printJSON(v interface{}) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
