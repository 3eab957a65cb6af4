package recommend

import (
	"fmt"
	"time"
)

// Config holds every tunable of the engine. Zero values are not meaningful;
// start from DefaultConfig and override.
type Config struct {
	// PoolSizeMultiplier sets the per-pool fetch size as a multiple of the requested count
	PoolSizeMultiplier int `yaml:"pool_size_multiplier"`

	// RandomPoolSize is the per-pool fetch size for a single random pick
	RandomPoolSize int `yaml:"random_pool_size"`

	// MaxBatchSize caps GetSwipeBatch
	MaxBatchSize int `yaml:"max_batch_size"`

	// PoolTimeout bounds every candidate pool read
	PoolTimeout time.Duration `yaml:"pool_timeout"`

	// ProfileTimeout bounds a shared taste profile build
	ProfileTimeout time.Duration `yaml:"profile_timeout"`

	// SkipResurfaceWindow is how long not_now and reason-less skips hide an album
	SkipResurfaceWindow time.Duration `yaml:"skip_resurface_window"`

	// SkipPenaltyMinCount is the per-genre skip count where the penalty kicks in
	SkipPenaltyMinCount int `yaml:"skip_penalty_min_count"`

	// DefaultAdventurousness is used when nothing can be derived
	DefaultAdventurousness float64 `yaml:"default_adventurousness"`

	// MinReviewsForProfile is the smallest history the engine builds a profile from
	MinReviewsForProfile int `yaml:"min_reviews_for_profile"`

	// EligibilityMinReviews is the caller-side policy for the personalized flows
	EligibilityMinReviews int `yaml:"eligibility_min_reviews"`

	Profile       ProfileConfig       `yaml:"profile"`
	Quality       QualityConfig       `yaml:"quality"`
	Collaborative CollaborativeConfig `yaml:"collaborative"`
	Compatibility CompatibilityConfig `yaml:"compatibility"`
	Selection     SelectionConfig     `yaml:"selection"`
	Modes         WeightTable         `yaml:"modes"`
}

// ProfileConfig tunes taste-profile construction
type ProfileConfig struct {
	TopGenreCap                 int           `yaml:"top_genre_cap"`
	HighAffinityCap             int           `yaml:"high_affinity_cap"`
	HighAffinityMargin          float64       `yaml:"high_affinity_margin"`
	HighAffinityMinObservations int           `yaml:"high_affinity_min_observations"`
	FavoriteArtistCap           int           `yaml:"favorite_artist_cap"`
	RecentArtistWindow          time.Duration `yaml:"recent_artist_window"`
	RecentArtistMinRating       float64       `yaml:"recent_artist_min_rating"`
	AllTimeArtistMinRating      float64       `yaml:"all_time_artist_min_rating"`
	AdventurousnessCoreGenres   int           `yaml:"adventurousness_core_genres"`
	RecentArtistBonusWeight     float64       `yaml:"recent_artist_bonus_weight"`
	BackfillArtistBonusWeight   float64       `yaml:"backfill_artist_bonus_weight"`
}

// QualityConfig defines the community quality signal
type QualityConfig struct {
	MinRating      float64 `yaml:"min_rating"`
	MinReviews     int     `yaml:"min_reviews"`
	ChartRankScale float64 `yaml:"chart_rank_scale"`
}

// CollaborativeConfig tunes the similar-user boost. The similarity heuristic
// is a shared high-rated genre, so these values are deliberately exposed.
type CollaborativeConfig struct {
	Enabled        bool    `yaml:"enabled"`
	MinRating      float64 `yaml:"min_rating"`
	SimilarUserCap int     `yaml:"similar_user_cap"`
	AlbumCap       int     `yaml:"album_cap"`
	Boost          float64 `yaml:"boost"`
}

// SelectionConfig tunes the selector
type SelectionConfig struct {
	ArtistShare       float64 `yaml:"artist_share"`
	QualityShare      float64 `yaml:"quality_share"`
	GenreShareMax     float64 `yaml:"genre_share_max"`
	GenreShareMin     float64 `yaml:"genre_share_min"`
	DiscoveryShareMin float64 `yaml:"discovery_share_min"`
	DiscoveryShareMax float64 `yaml:"discovery_share_max"`
	RandomPickTopFrac float64 `yaml:"random_pick_top_fraction"`
	RandomPickFloor   float64 `yaml:"random_pick_floor"`
}

// DefaultConfig returns the production defaults
func DefaultConfig() Config {
	return Config{
		PoolSizeMultiplier:     5,
		RandomPoolSize:         40,
		MaxBatchSize:           50,
		PoolTimeout:            2 * time.Second,
		ProfileTimeout:         5 * time.Second,
		SkipResurfaceWindow:    14 * 24 * time.Hour,
		SkipPenaltyMinCount:    5,
		DefaultAdventurousness: 0.5,
		MinReviewsForProfile:   1,
		EligibilityMinReviews:  10,
		Profile: ProfileConfig{
			TopGenreCap:                 10,
			HighAffinityCap:             5,
			HighAffinityMargin:          0.5,
			HighAffinityMinObservations: 2,
			FavoriteArtistCap:           25,
			RecentArtistWindow:          90 * 24 * time.Hour,
			RecentArtistMinRating:       8,
			AllTimeArtistMinRating:      7,
			AdventurousnessCoreGenres:   3,
			RecentArtistBonusWeight:     1.0,
			BackfillArtistBonusWeight:   0.5,
		},
		Quality: QualityConfig{
			MinRating:      7,
			MinReviews:     3,
			ChartRankScale: 200,
		},
		Collaborative: CollaborativeConfig{
			Enabled:        true,
			MinRating:      8,
			SimilarUserCap: 20,
			AlbumCap:       200,
			Boost:          0.1,
		},
		Compatibility: DefaultCompatibilityConfig(),
		Selection: SelectionConfig{
			ArtistShare:       0.25,
			QualityShare:      0.15,
			GenreShareMax:     0.50,
			GenreShareMin:     0.35,
			DiscoveryShareMin: 0.15,
			DiscoveryShareMax: 0.30,
			RandomPickTopFrac: 0.2,
			RandomPickFloor:   0.1,
		},
		Modes: DefaultWeightTable(),
	}
}

// Validate rejects configurations that would break engine invariants
func (c Config) Validate() error {
	if c.PoolSizeMultiplier < 1 {
		return fmt.Errorf("pool_size_multiplier must be >= 1")
	}
	if c.RandomPoolSize < 1 {
		return fmt.Errorf("random_pool_size must be >= 1")
	}
	if c.MaxBatchSize < 1 {
		return fmt.Errorf("max_batch_size must be >= 1")
	}
	if c.PoolTimeout <= 0 {
		return fmt.Errorf("pool_timeout must be positive")
	}
	if c.ProfileTimeout <= 0 {
		return fmt.Errorf("profile_timeout must be positive")
	}
	if c.SkipResurfaceWindow <= 0 {
		return fmt.Errorf("skip_resurface_window must be positive")
	}
	if c.DefaultAdventurousness < 0 || c.DefaultAdventurousness > 1 {
		return fmt.Errorf("default_adventurousness must be in [0,1]")
	}
	if c.MinReviewsForProfile < 1 {
		return fmt.Errorf("min_reviews_for_profile must be >= 1")
	}
	if c.Profile.TopGenreCap < 3 {
		return fmt.Errorf("profile.top_genre_cap must be >= 3")
	}
	if c.Quality.ChartRankScale <= 0 {
		return fmt.Errorf("quality.chart_rank_scale must be positive")
	}
	s := c.Selection
	if s.GenreShareMin > s.GenreShareMax {
		return fmt.Errorf("selection.genre_share_min must not exceed genre_share_max")
	}
	if s.DiscoveryShareMin > s.DiscoveryShareMax {
		return fmt.Errorf("selection.discovery_share_min must not exceed discovery_share_max")
	}
	if s.RandomPickTopFrac <= 0 || s.RandomPickTopFrac > 1 {
		return fmt.Errorf("selection.random_pick_top_fraction must be in (0,1]")
	}
	if err := c.Compatibility.Validate(); err != nil {
		return err
	}
	return c.Modes.Validate()
}
