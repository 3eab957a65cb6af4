package recommend

import (
	"fmt"
	"math"
	"sort"
	"strings"
)

// MatchType labels the nature of two users' taste compatibility
type MatchType string

const (
	MatchTasteTwin     MatchType = "taste_twin"
	MatchGenreBuddy    MatchType = "genre_buddy"
	MatchComplementary MatchType = "complementary"
	MatchExplorerGuide MatchType = "explorer_guide"
)

// CompatibilityConfig holds the matcher thresholds
type CompatibilityConfig struct {
	OverlapWeight   float64 `yaml:"overlap_weight"`
	AlignmentWeight float64 `yaml:"alignment_weight"`

	// MinSharedAlbums is the co-rated album count needed for a correlation
	MinSharedAlbums int `yaml:"min_shared_albums"`

	TasteTwinMinScore        int     `yaml:"taste_twin_min_score"`
	GenreBuddyMinOverlap     float64 `yaml:"genre_buddy_min_overlap"`
	MiddlingAlignmentMin     float64 `yaml:"middling_alignment_min"`
	MiddlingAlignmentMax     float64 `yaml:"middling_alignment_max"`
	ComplementaryMaxOverlap  float64 `yaml:"complementary_max_overlap"`
	HealthyReviewDepth       int     `yaml:"healthy_review_depth"`
	ExplorerAdventurousDelta float64 `yaml:"explorer_adventurousness_delta"`

	// RatingScale is the width of the rating range, used to normalize differences
	RatingScale float64 `yaml:"rating_scale"`
}

// DefaultCompatibilityConfig returns the production thresholds
func DefaultCompatibilityConfig() CompatibilityConfig {
	return CompatibilityConfig{
		OverlapWeight:            0.6,
		AlignmentWeight:          0.4,
		MinSharedAlbums:          3,
		TasteTwinMinScore:        80,
		GenreBuddyMinOverlap:     50,
		MiddlingAlignmentMin:     40,
		MiddlingAlignmentMax:     80,
		ComplementaryMaxOverlap:  30,
		HealthyReviewDepth:       20,
		ExplorerAdventurousDelta: 0.3,
		RatingScale:              10,
	}
}

// Validate keeps the score monotonic and the thresholds ordered
func (c CompatibilityConfig) Validate() error {
	if c.OverlapWeight <= 0 || c.AlignmentWeight <= 0 {
		return fmt.Errorf("compatibility weights must be positive")
	}
	if math.Abs(c.OverlapWeight+c.AlignmentWeight-1) > 1e-9 {
		return fmt.Errorf("compatibility weights must sum to 1, got %.3f", c.OverlapWeight+c.AlignmentWeight)
	}
	if c.MinSharedAlbums < 2 {
		return fmt.Errorf("compatibility.min_shared_albums must be >= 2")
	}
	if c.MiddlingAlignmentMin > c.MiddlingAlignmentMax {
		return fmt.Errorf("compatibility middling alignment range is inverted")
	}
	if c.ComplementaryMaxOverlap > c.GenreBuddyMinOverlap {
		return fmt.Errorf("compatibility.complementary_max_overlap must not exceed genre_buddy_min_overlap")
	}
	if c.RatingScale <= 0 {
		return fmt.Errorf("compatibility.rating_scale must be positive")
	}
	return nil
}

// CompatibilityResult compares two users from A's point of view
type CompatibilityResult struct {
	UserA              string    `json:"user_a"`
	UserB              string    `json:"user_b"`
	OverallScore       int       `json:"overall_score"`
	MatchType          MatchType `json:"match_type"`
	SharedGenres       []string  `json:"shared_genres"`
	SharedArtists      []string  `json:"shared_artists"`
	GenreOverlapPct    float64   `json:"genre_overlap_pct"`
	RatingAlignmentPct float64   `json:"rating_alignment_pct"`
	SharedAlbumCount   int       `json:"shared_album_count"`
}

// Compare scores two taste profiles
func Compare(a, b *TasteProfile, cfg CompatibilityConfig) CompatibilityResult {
	shared, overlap := genreOverlap(a.TopGenres, b.TopGenres)
	alignment, sharedAlbums := ratingAlignment(a, b, cfg)

	score := int(math.Round(cfg.OverlapWeight*overlap + cfg.AlignmentWeight*alignment))
	if score < 0 {
		score = 0
	} else if score > 100 {
		score = 100
	}

	return CompatibilityResult{
		UserA:              a.UserID,
		UserB:              b.UserID,
		OverallScore:       score,
		MatchType:          classifyMatch(score, overlap, alignment, a, b, cfg),
		SharedGenres:       shared,
		SharedArtists:      sharedArtists(a.FavoriteArtists, b.FavoriteArtists),
		GenreOverlapPct:    round1(overlap),
		RatingAlignmentPct: round1(alignment),
		SharedAlbumCount:   sharedAlbums,
	}
}

func classifyMatch(score int, overlap, alignment float64, a, b *TasteProfile, cfg CompatibilityConfig) MatchType {
	switch {
	case score >= cfg.TasteTwinMinScore:
		return MatchTasteTwin
	case overlap >= cfg.GenreBuddyMinOverlap &&
		alignment >= cfg.MiddlingAlignmentMin && alignment < cfg.MiddlingAlignmentMax:
		return MatchGenreBuddy
	case overlap < cfg.ComplementaryMaxOverlap &&
		a.ReviewCount >= cfg.HealthyReviewDepth && b.ReviewCount >= cfg.HealthyReviewDepth:
		return MatchComplementary
	case math.Abs(a.Adventurousness-b.Adventurousness) >= cfg.ExplorerAdventurousDelta:
		return MatchExplorerGuide
	case overlap >= cfg.GenreBuddyMinOverlap:
		return MatchGenreBuddy
	}
	return MatchComplementary
}

// genreOverlap is the Jaccard index of the two top-genre sets, as a percentage.
// Shared genres keep A's order.
func genreOverlap(a, b []string) ([]string, float64) {
	inB := make(map[string]bool, len(b))
	for _, g := range b {
		inB[g] = true
	}
	union := make(map[string]bool, len(a)+len(b))
	shared := []string{}
	for _, g := range a {
		union[g] = true
		if inB[g] {
			shared = append(shared, g)
		}
	}
	for _, g := range b {
		union[g] = true
	}
	if len(union) == 0 {
		return shared, 0
	}
	return shared, float64(len(shared)) / float64(len(union)) * 100
}

func ratingAlignment(a, b *TasteProfile, cfg CompatibilityConfig) (float64, int) {
	ids := make([]string, 0)
	for id := range a.AlbumRatings {
		if _, ok := b.AlbumRatings[id]; ok {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)

	if len(ids) >= cfg.MinSharedAlbums {
		xs := make([]float64, len(ids))
		ys := make([]float64, len(ids))
		for i, id := range ids {
			xs[i] = a.AlbumRatings[id]
			ys[i] = b.AlbumRatings[id]
		}
		if r, ok := pearson(xs, ys); ok {
			return (r + 1) / 2 * 100, len(ids)
		}
		// constant ratings on one side; fall back to mean absolute difference
		diff := 0.0
		for i := range xs {
			diff += math.Abs(xs[i] - ys[i])
		}
		diff /= float64(len(xs))
		return clampPct(100 * (1 - diff/cfg.RatingScale)), len(ids)
	}

	meanDiff := math.Abs(a.AverageRating - b.AverageRating)
	stdDiff := math.Abs(math.Sqrt(a.RatingVariance) - math.Sqrt(b.RatingVariance))
	sim := 1 - (meanDiff/cfg.RatingScale+stdDiff/(cfg.RatingScale/2))/2
	return clampPct(100 * sim), len(ids)
}

// pearson returns false when either series has zero variance
func pearson(xs, ys []float64) (float64, bool) {
	n := float64(len(xs))
	var mx, my float64
	for i := range xs {
		mx += xs[i]
		my += ys[i]
	}
	mx /= n
	my /= n

	var cov, vx, vy float64
	for i := range xs {
		dx, dy := xs[i]-mx, ys[i]-my
		cov += dx * dy
		vx += dx * dx
		vy += dy * dy
	}
	if vx == 0 || vy == 0 {
		return 0, false
	}
	r := cov / math.Sqrt(vx*vy)
	return math.Max(-1, math.Min(1, r)), true
}

func sharedArtists(a, b []FavoriteArtist) []string {
	inB := make(map[string]bool, len(b))
	for _, fa := range b {
		inB[strings.ToLower(fa.Name)] = true
	}
	out := []string{}
	for _, fa := range a {
		if inB[strings.ToLower(fa.Name)] {
			out = append(out, fa.Name)
		}
	}
	return out
}

func clampPct(v float64) float64 {
	return math.Max(0, math.Min(100, v))
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}
