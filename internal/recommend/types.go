package recommend

import (
	"fmt"
	"strings"
	"time"
)

// Pool identifies the retrieval intent a candidate came from
type Pool string

const (
	PoolArtist    Pool = "artist"
	PoolGenre     Pool = "genre"
	PoolQuality   Pool = "quality"
	PoolDiscovery Pool = "discovery"
)

// poolOrder is the fetch priority and the round-robin order used when interleaving
var poolOrder = []Pool{PoolArtist, PoolGenre, PoolQuality, PoolDiscovery}

// AllPools returns every pool in fetch order
func AllPools() []Pool {
	return append([]Pool(nil), poolOrder...)
}

// Mode selects a row of the scoring weight table
type Mode string

const (
	ModeSmart      Mode = "smart"
	ModeDiscovery  Mode = "discovery"
	ModeQuality    Mode = "quality"
	ModePureRandom Mode = "pure-random"
)

// ParseMode validates a mode string. An empty string means ModeSmart;
// anything else that is not a known mode is rejected.
func ParseMode(s string) (Mode, error) {
	if s == "" {
		return ModeSmart, nil
	}
	m := Mode(strings.ToLower(strings.TrimSpace(s)))
	switch m {
	case ModeSmart, ModeDiscovery, ModeQuality, ModePureRandom:
		return m, nil
	}
	return "", fmt.Errorf("%w: unknown mode %q", ErrInvalidInput, s)
}

// SkipReason is the optional reason a user gave when dismissing an album
type SkipReason string

const (
	SkipNotInterested SkipReason = "not_interested"
	SkipAlreadyKnow   SkipReason = "already_know"
	SkipNotNow        SkipReason = "not_now"
	SkipNoReason      SkipReason = ""
)

// Permanent reports whether the skip excludes the album for good
func (r SkipReason) Permanent() bool {
	return r == SkipNotInterested || r == SkipAlreadyKnow
}

// AudioProfile holds normalized (0-1) audio features of an album
type AudioProfile struct {
	Energy       float64 `json:"energy"`
	Valence      float64 `json:"valence"`
	Danceability float64 `json:"danceability"`
	Acousticness float64 `json:"acousticness"`
	Tempo        float64 `json:"tempo"`
}

// Audio feature names used as keys in AudioPreferences
const (
	FeatureEnergy       = "energy"
	FeatureValence      = "valence"
	FeatureDanceability = "danceability"
	FeatureAcousticness = "acousticness"
	FeatureTempo        = "tempo"
)

// Feature returns a feature value by name
func (a AudioProfile) Feature(name string) (float64, bool) {
	switch name {
	case FeatureEnergy:
		return a.Energy, true
	case FeatureValence:
		return a.Valence, true
	case FeatureDanceability:
		return a.Danceability, true
	case FeatureAcousticness:
		return a.Acousticness, true
	case FeatureTempo:
		return a.Tempo, true
	}
	return 0, false
}

// AudioPreference is a user's accepted range for one audio feature
type AudioPreference struct {
	Min       float64 `json:"min" yaml:"min"`
	Max       float64 `json:"max" yaml:"max"`
	SweetSpot float64 `json:"sweet_spot" yaml:"sweet_spot"`
	Weight    float64 `json:"weight" yaml:"weight"`
}

// AudioPreferences maps feature names to preferences
type AudioPreferences map[string]AudioPreference

// CandidateAlbum is the read-only catalog projection the engine scores
type CandidateAlbum struct {
	ID                     string        `json:"id"`
	Title                  string        `json:"title"`
	ArtistName             string        `json:"artist_name"`
	Genres                 []string      `json:"genres"`
	ReleaseDate            *time.Time    `json:"release_date,omitempty"`
	CoverURL               string        `json:"cover_url,omitempty"`
	CommunityAverageRating *float64      `json:"community_average_rating,omitempty"`
	TotalReviews           int           `json:"total_reviews"`
	ChartRank              *int          `json:"chart_rank,omitempty"`
	AudioProfile           *AudioProfile `json:"audio_profile,omitempty"`
}

// DedupKey identifies the real-world album regardless of catalog ID
func (a CandidateAlbum) DedupKey() string {
	return strings.ToLower(strings.TrimSpace(a.Title)) + "|" + strings.ToLower(strings.TrimSpace(a.ArtistName))
}

// WellReviewed reports whether the community signal clears the given thresholds
func (a CandidateAlbum) WellReviewed(minRating float64, minReviews int) bool {
	return a.CommunityAverageRating != nil && *a.CommunityAverageRating >= minRating && a.TotalReviews >= minReviews
}

// ScoreBreakdown holds the named sub-scores that add up to a candidate's score
type ScoreBreakdown struct {
	Base          float64 `json:"base"`
	PoolBonus     float64 `json:"pool_bonus"`
	GenreAffinity float64 `json:"genre_affinity"`
	HighAffinity  float64 `json:"high_affinity"`
	SkipPenalty   float64 `json:"skip_penalty"`
	AudioAffinity float64 `json:"audio_affinity"`
	Quality       float64 `json:"quality"`
	Collaborative float64 `json:"collaborative"`
	Jitter        float64 `json:"jitter"`
}

// Total sums the components before clamping
func (b ScoreBreakdown) Total() float64 {
	return b.Base + b.PoolBonus + b.GenreAffinity + b.HighAffinity - b.SkipPenalty +
		b.AudioAffinity + b.Quality + b.Collaborative + b.Jitter
}

// ScoredCandidate is a candidate tagged with its pool and composite score
type ScoredCandidate struct {
	CandidateAlbum
	Score     float64        `json:"score"`
	Breakdown ScoreBreakdown `json:"breakdown"`
	Pool      Pool           `json:"pool"`
	Reason    string         `json:"reason,omitempty"`
}

// RatedAlbum is one entry of a user's review history
type RatedAlbum struct {
	AlbumID    string    `json:"album_id"`
	ArtistName string    `json:"artist_name"`
	Genres     []string  `json:"genres"`
	Rating     float64   `json:"rating"`
	CreatedAt  time.Time `json:"created_at"`
}

// SkipEvent is a recorded dismissal of an album
type SkipEvent struct {
	AlbumID   string     `json:"album_id"`
	Genres    []string   `json:"genres"`
	Reason    SkipReason `json:"reason"`
	CreatedAt time.Time  `json:"created_at"`
}

// UserSettings are the stored per-user knobs the engine reads
type UserSettings struct {
	UserID           string
	Adventurousness  *float64
	AudioPreferences AudioPreferences
}

// UserStats echoes a little of the profile back to the client
type UserStats struct {
	ReviewCount   int      `json:"review_count"`
	TopGenres     []string `json:"top_genres"`
	AverageRating float64  `json:"average_rating"`
}

// RandomPick is the result of GetRandomAlbum
type RandomPick struct {
	Album     CandidateAlbum `json:"album"`
	Pool      Pool           `json:"pool"`
	Reason    string         `json:"reason"`
	Score     int            `json:"score"`
	Breakdown ScoreBreakdown `json:"breakdown"`
	Mode      Mode           `json:"mode"`
	UserStats UserStats      `json:"user_stats"`
}

// SwipeBatch is the result of GetSwipeBatch
type SwipeBatch struct {
	Albums     []ScoredCandidate `json:"albums"`
	Onboarding bool              `json:"onboarding"`
	PoolCounts map[Pool]int      `json:"pool_counts,omitempty"`
	Degraded   []Pool            `json:"degraded_pools,omitempty"`
}

func normalizeGenre(g string) string {
	return strings.ToLower(strings.TrimSpace(g))
}

func normalizeGenres(genres []string) []string {
	out := make([]string, 0, len(genres))
	seen := make(map[string]bool, len(genres))
	for _, g := range genres {
		n := normalizeGenre(g)
		if n == "" || seen[n] {
			continue
		}
		seen[n] = true
		out = append(out, n)
	}
	return out
}
