package recommend

import "fmt"

// explain picks a human-readable reason from the candidate's pool and its
// strongest signals
func explain(c ScoredCandidate, profile *TasteProfile, mode Mode) string {
	if mode == ModePureRandom {
		return "Picked completely at random"
	}

	switch c.Pool {
	case PoolArtist:
		return fmt.Sprintf("Because you rate %s highly", c.ArtistName)
	}

	if c.Breakdown.Collaborative > 0 {
		return "Loved by listeners with similar taste"
	}
	if c.Breakdown.HighAffinity > 0 && profile != nil {
		if g := firstMatch(c.Genres, profile.HighAffinityGenres); g != "" {
			return fmt.Sprintf("You rate %s above your average", g)
		}
	}

	switch c.Pool {
	case PoolQuality:
		if c.ChartRank != nil {
			return fmt.Sprintf("#%d on the charts", *c.ChartRank)
		}
		if c.CommunityAverageRating != nil {
			return fmt.Sprintf("Rated %.1f by %d listeners", *c.CommunityAverageRating, c.TotalReviews)
		}
		return "Highly rated by the community"
	case PoolGenre:
		if profile != nil {
			if g := firstMatch(c.Genres, profile.TopGenres); g != "" {
				return fmt.Sprintf("Matches your taste in %s", g)
			}
		}
		return "Matches your taste"
	case PoolDiscovery:
		if profile != nil && len(profile.TopGenres) > 0 {
			return fmt.Sprintf("Something outside your usual %s", profile.TopGenres[0])
		}
		return "Something new to explore"
	}
	return "Picked for you"
}

func firstMatch(genres, targets []string) string {
	set := make(map[string]bool, len(targets))
	for _, t := range targets {
		set[t] = true
	}
	for _, g := range normalizeGenres(genres) {
		if set[g] {
			return g
		}
	}
	return ""
}
