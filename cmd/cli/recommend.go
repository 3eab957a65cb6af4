package main

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/sh6drack/actually-waxfeed-sub002/internal/models"
	"github.com/sh6drack/actually-waxfeed-sub002/internal/repository"
	"github.com/spf13/cobra"
)

var (
	mode       string
	limit      int
	onboarding bool
)

var recommendCmd = &cobra.Command{
	Use:   "recommend <user>",
	Short: "Pick one album for a user",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		user, err := resolveUser(ctx, args[0])
		if err != nil {
			return err
		}
		pick, err := k.Engine().GetRandomAlbum(ctx, user.ID, mode)
		if err != nil {
			return err
		}
		if output == "json" {
			return printJSON(pick)
		}
		fmt.Printf("%s - %s\n", pick.Album.ArtistName, pick.Album.Title)
		fmt.Printf("  pool:   %s\n  score:  %d\n  reason: %s\n", pick.Pool, pick.Score, pick.Reason)
		return nil
	},
}

var swipeCmd = &cobra.Command{
	Use:   "swipe <user>",
	Short: "Build a swipe batch for a user",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		user, err := resolveUser(ctx, args[0])
		if err != nil {
			return err
		}
		batch, err := k.Engine().GetSwipeBatch(ctx, user.ID, limit, onboarding)
		if err != nil {
			return err
		}
		if output == "json" {
			return printJSON(batch)
		}
		for i, a := range batch.Albums {
			fmt.Printf("%2d. [%-9s %.2f] %s - %s (%s)\n", i+1, a.Pool, a.Score, a.ArtistName, a.Title, a.Reason)
		}
		if len(batch.Degraded) > 0 {
			fmt.Printf("degraded pools: %v\n", batch.Degraded)
		}
		return nil
	},
}

var compatCmd = &cobra.Command{
	Use:   "compat <user> <other-user>",
	Short: "Compare two users' taste",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		a, err := resolveUser(ctx, args[0])
		if err != nil {
			return err
		}
		b, err := resolveUser(ctx, args[1])
		if err != nil {
			return err
		}
		result, err := k.Engine().GetCompatibility(ctx, a.ID, b.ID)
		if err != nil {
			return err
		}
		if output == "json" {
			return printJSON(result)
		}
		fmt.Printf("%s <> %s: %d%% (%s)\n", a.Username, b.Username, result.OverallScore, result.MatchType)
		fmt.Printf("  genre overlap:    %.1f%%\n  rating alignment: %.1f%%\n", result.GenreOverlapPct, result.RatingAlignmentPct)
		if len(result.SharedGenres) > 0 {
			fmt.Printf("  shared genres:    %s\n", strings.Join(result.SharedGenres, ", "))
		}
		return nil
	},
}

var profileCmd = &cobra.Command{
	Use:   "profile <user>",
	Short: "Show a user's derived taste profile",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		user, err := resolveUser(ctx, args[0])
		if err != nil {
			return err
		}
		profile, err := k.Engine().GetTasteProfile(ctx, user.ID)
		if err != nil {
			return err
		}
		if output == "json" {
			return printJSON(profile)
		}
		fmt.Printf("%s (%d reviews, avg %.2f)\n", user.Username, profile.ReviewCount, profile.AverageRating)
		fmt.Printf("  top genres:      %s\n", strings.Join(profile.TopGenres, ", "))
		artists := make([]string, 0, len(profile.FavoriteArtists))
		for _, a := range profile.FavoriteArtists {
			artists = append(artists, a.Name)
		}
		fmt.Printf("  top artists:     %s\n", strings.Join(artists, ", "))
		fmt.Printf("  adventurousness: %.2f\n", profile.Adventurousness)
		return nil
	},
}

func init() {
	recommendCmd.Flags().StringVar(&mode, "mode", "smart", "smart, discovery, quality or pure-random")
	swipeCmd.Flags().IntVar(&limit, "limit", 20, "Batch size")
	swipeCmd.Flags().BoolVar(&onboarding, "onboarding", false, "Serve the popularity batch for new users")
}

// resolveUser accepts a user ID or a username
func resolveUser(ctx context.Context, ref string) (*models.User, error) {
	user, err := k.Users().GetUser(ctx, ref)
	if err == nil {
		return user, nil
	}
	if !errors.Is(err, repository.ErrUserNotFound) {
		return nil, err
	}
	user, err = k.Users().GetUserByUsername(ctx, ref)
	if errors.Is(err, repository.ErrUserNotFound) {
		return nil, fmt.Errorf("no user with id or username %q", ref)
	}
	return user, err
}
