package main

import (
	"fmt"
	"time"

	"github.com/sh6drack/actually-waxfeed-sub002/internal/tracking"
	"github.com/sh6drack/actually-waxfeed-sub002/internal/util"
	"github.com/spf13/cobra"
)

var (
	tokenTTL time.Duration
	since    string
)

var tokenCmd = &cobra.Command{
	Use:   "token <user>",
	Short: "Mint a bearer token for a user (signed with JWT_SECRET)",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		user, err := resolveUser(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		token, expires, err := k.Tokens().GenerateToken(user.ID, user.Username, tokenTTL)
		if err != nil {
			return err
		}
		if output == "json" {
			return printJSON(map[string]interface{}{
				"user_id":    user.ID,
				"token":      token,
				"expires_at": expires,
			})
		}
		fmt.Println(token)
		return nil
	},
}

var ctrCmd = &cobra.Command{
	Use:   "ctr",
	Short: "Show click-through rate per pool",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		start := util.ParseSince(since, time.Now().UTC(), 24*time.Hour)
		metrics, err := tracking.CalculateCTR(cmd.Context(), k.DB(), start)
		if err != nil {
			return err
		}
		if output == "json" {
			return printJSON(metrics)
		}
		fmt.Printf("since %s\n", start.Format(time.RFC3339))
		for _, m := range metrics {
			fmt.Printf("  %-13s %6d impressions %5d clicks %6.2f%%\n", m.Pool, m.Impressions, m.Clicks, m.CTR)
		}
		return nil
	},
}

func init() {
	tokenCmd.Flags().DurationVar(&tokenTTL, "ttl", 24*time.Hour, "Token lifetime")
	ctrCmd.Flags().StringVar(&since, "since", "24h", "Lookback window, e.g. 24h or 7d")
}
