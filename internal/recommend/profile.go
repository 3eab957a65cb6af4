package recommend

import (
	"math"
	"sort"
	"strings"
	"time"
)

// TasteProfile is the derived summary of a user's review history
type TasteProfile struct {
	UserID              string             `json:"user_id"`
	GenreWeights        map[string]float64 `json:"genre_weights"`
	GenreAverageRatings map[string]float64 `json:"genre_average_ratings"`
	TopGenres           []string           `json:"top_genres"`
	HighAffinityGenres  []string           `json:"high_affinity_genres"`
	AverageRating       float64            `json:"average_rating"`
	RatingVariance      float64            `json:"rating_variance"`
	Adventurousness     float64            `json:"adventurousness"`
	ReviewCount         int                `json:"review_count"`
	FavoriteArtists     []FavoriteArtist   `json:"favorite_artists"`
	AlbumRatings        map[string]float64 `json:"album_ratings,omitempty"`
	AudioPreferences    AudioPreferences   `json:"audio_preferences,omitempty"`
	BuiltAt             time.Time          `json:"built_at"`
}

// ProfileOptions are the inputs to BuildTasteProfile besides the reviews
type ProfileOptions struct {
	Config                 ProfileConfig
	DefaultAdventurousness float64
	// StoredAdventurousness overrides the derived value when set
	StoredAdventurousness *float64
	AudioPreferences      AudioPreferences
	Now                   time.Time
}

// BuildTasteProfile aggregates a review history in one pass. The result
// depends only on the reviews and options, so rebuilding is idempotent.
func BuildTasteProfile(userID string, reviews []RatedAlbum, opts ProfileOptions) *TasteProfile {
	cfg := opts.Config
	now := opts.Now
	if now.IsZero() {
		now = time.Now()
	}

	p := &TasteProfile{
		UserID:              userID,
		GenreWeights:        make(map[string]float64),
		GenreAverageRatings: make(map[string]float64),
		TopGenres:           []string{},
		HighAffinityGenres:  []string{},
		ReviewCount:         len(reviews),
		AlbumRatings:        make(map[string]float64, len(reviews)),
		AudioPreferences:    opts.AudioPreferences,
		BuiltAt:             now,
	}
	if len(reviews) == 0 {
		p.Adventurousness = resolveAdventurousness(opts.StoredAdventurousness, opts.DefaultAdventurousness)
		p.FavoriteArtists = []FavoriteArtist{}
		return p
	}

	genreCounts := make(map[string]int)
	genreSums := make(map[string]float64)
	albumRatedAt := make(map[string]time.Time, len(reviews))
	totalObservations := 0
	ratingSum := 0.0

	for _, r := range reviews {
		ratingSum += r.Rating
		for _, g := range normalizeGenres(r.Genres) {
			genreCounts[g]++
			genreSums[g] += r.Rating
			totalObservations++
		}
		if r.AlbumID != "" {
			if at, ok := albumRatedAt[r.AlbumID]; !ok || r.CreatedAt.After(at) {
				albumRatedAt[r.AlbumID] = r.CreatedAt
				p.AlbumRatings[r.AlbumID] = r.Rating
			}
		}
	}

	n := float64(len(reviews))
	p.AverageRating = ratingSum / n
	variance := 0.0
	for _, r := range reviews {
		d := r.Rating - p.AverageRating
		variance += d * d
	}
	p.RatingVariance = variance / n

	for g, c := range genreCounts {
		p.GenreWeights[g] = float64(c) / float64(totalObservations)
		p.GenreAverageRatings[g] = genreSums[g] / float64(c)
	}

	p.TopGenres = rankGenres(genreCounts, cfg.TopGenreCap)
	p.HighAffinityGenres = highAffinityGenres(genreCounts, p.GenreAverageRatings, p.AverageRating, cfg)
	p.FavoriteArtists = MergeFavoriteArtists(reviews, cfg, now)

	switch {
	case opts.StoredAdventurousness != nil:
		p.Adventurousness = clamp01(*opts.StoredAdventurousness)
	case totalObservations == 0:
		p.Adventurousness = clamp01(opts.DefaultAdventurousness)
	default:
		p.Adventurousness = derivedAdventurousness(reviews, p.TopGenres, cfg.AdventurousnessCoreGenres, opts.DefaultAdventurousness)
	}

	return p
}

// CoreGenres returns at most n leading top genres
func (p *TasteProfile) CoreGenres(n int) []string {
	if n > len(p.TopGenres) {
		n = len(p.TopGenres)
	}
	return p.TopGenres[:n]
}

// Stats echoes the profile for client display
func (p *TasteProfile) Stats() UserStats {
	return UserStats{
		ReviewCount:   p.ReviewCount,
		TopGenres:     p.CoreGenres(3),
		AverageRating: math.Round(p.AverageRating*100) / 100,
	}
}

// artistWeights maps lower-cased favorite artist names to their pool bonus weight
func (p *TasteProfile) artistWeights(cfg ProfileConfig) map[string]float64 {
	weights := make(map[string]float64, len(p.FavoriteArtists))
	for _, a := range p.FavoriteArtists {
		w := cfg.BackfillArtistBonusWeight
		if a.Tier == ArtistTierRecent {
			w = cfg.RecentArtistBonusWeight
		}
		weights[strings.ToLower(a.Name)] = w
	}
	return weights
}

func rankGenres(counts map[string]int, limit int) []string {
	genres := make([]string, 0, len(counts))
	for g := range counts {
		genres = append(genres, g)
	}
	sort.Slice(genres, func(i, j int) bool {
		if counts[genres[i]] != counts[genres[j]] {
			return counts[genres[i]] > counts[genres[j]]
		}
		return genres[i] < genres[j]
	})
	if limit > 0 && len(genres) > limit {
		genres = genres[:limit]
	}
	return genres
}

func highAffinityGenres(counts map[string]int, avgByGenre map[string]float64, overall float64, cfg ProfileConfig) []string {
	out := []string{}
	for g, c := range counts {
		if c < cfg.HighAffinityMinObservations {
			continue
		}
		if avgByGenre[g] > overall+cfg.HighAffinityMargin {
			out = append(out, g)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if avgByGenre[out[i]] != avgByGenre[out[j]] {
			return avgByGenre[out[i]] > avgByGenre[out[j]]
		}
		return out[i] < out[j]
	})
	if cfg.HighAffinityCap > 0 && len(out) > cfg.HighAffinityCap {
		out = out[:cfg.HighAffinityCap]
	}
	return out
}

// derivedAdventurousness is the fraction of genre-tagged reviews whose album
// shares no genre with the user's core (top-N) genres
func derivedAdventurousness(reviews []RatedAlbum, topGenres []string, coreSize int, fallback float64) float64 {
	if coreSize > len(topGenres) {
		coreSize = len(topGenres)
	}
	core := make(map[string]bool, coreSize)
	for _, g := range topGenres[:coreSize] {
		core[g] = true
	}

	tagged, outside := 0, 0
	for _, r := range reviews {
		genres := normalizeGenres(r.Genres)
		if len(genres) == 0 {
			continue
		}
		tagged++
		inCore := false
		for _, g := range genres {
			if core[g] {
				inCore = true
				break
			}
		}
		if !inCore {
			outside++
		}
	}
	if tagged == 0 {
		return clamp01(fallback)
	}
	return float64(outside) / float64(tagged)
}

func resolveAdventurousness(stored *float64, fallback float64) float64 {
	if stored != nil {
		return clamp01(*stored)
	}
	return clamp01(fallback)
}

func clamp01(v float64) float64 {
	if math.IsNaN(v) || v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
