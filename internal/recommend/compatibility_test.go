package recommend

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func profileFor(userID string, reviews ...RatedAlbum) *TasteProfile {
	cfg := DefaultConfig()
	return BuildTasteProfile(userID, reviews, ProfileOptions{
		Config:                 cfg.Profile,
		DefaultAdventurousness: cfg.DefaultAdventurousness,
		Now:                    testNow,
	})
}

func manualProfile(userID string, genres []string, avg, variance, adv float64, reviews int) *TasteProfile {
	return &TasteProfile{
		UserID:          userID,
		TopGenres:       genres,
		AverageRating:   avg,
		RatingVariance:  variance,
		Adventurousness: adv,
		ReviewCount:     reviews,
		AlbumRatings:    map[string]float64{},
	}
}

func TestCompare_TasteTwinScenario(t *testing.T) {
	genres := []string{"jazz", "soul", "funk", "bebop", "fusion"}
	var a, b []RatedAlbum
	for i, g := range genres {
		id := fmt.Sprintf("album-%d", i)
		a = append(a, rated(id, "Artist "+g, 5+float64(i), 10, g))
		b = append(b, rated(id, "Artist "+g, 4+float64(i), 10, g))
	}

	result := Compare(profileFor("alice", a...), profileFor("bob", b...), DefaultCompatibilityConfig())

	assert.Equal(t, MatchTasteTwin, result.MatchType)
	assert.GreaterOrEqual(t, result.OverallScore, 80)
	assert.Equal(t, 100.0, result.GenreOverlapPct)
	assert.Equal(t, 100.0, result.RatingAlignmentPct)
	assert.Equal(t, 5, result.SharedAlbumCount)
	assert.ElementsMatch(t, genres, result.SharedGenres)
	assert.Equal(t, "alice", result.UserA)
	assert.Equal(t, "bob", result.UserB)
}

func TestCompare_MatchTypes(t *testing.T) {
	cfg := DefaultCompatibilityConfig()
	same := []string{"jazz", "soul", "funk"}

	tests := []struct {
		name string
		a, b *TasteProfile
		want MatchType
	}{
		{
			name: "genre buddy: same genres, middling alignment",
			a:    manualProfile("a", same, 8, 0, 0.5, 10),
			b:    manualProfile("b", same, 2, 6.25, 0.5, 10),
			want: MatchGenreBuddy,
		},
		{
			name: "complementary: no overlap, deep histories",
			a:    manualProfile("a", []string{"jazz", "soul"}, 7, 1, 0.2, 40),
			b:    manualProfile("b", []string{"metal", "punk"}, 7, 1, 0.3, 25),
			want: MatchComplementary,
		},
		{
			name: "explorer guide: adventurousness gap",
			a:    manualProfile("a", []string{"jazz", "soul"}, 7, 1, 0.1, 5),
			b:    manualProfile("b", []string{"metal", "punk"}, 7, 1, 0.8, 5),
			want: MatchExplorerGuide,
		},
		{
			name: "fallback genre buddy on decent overlap",
			a:    manualProfile("a", []string{"a", "b", "c", "d"}, 7, 1, 0.5, 5),
			b:    manualProfile("b", []string{"a", "b", "c", "e"}, 7, 1, 0.5, 5),
			want: MatchGenreBuddy,
		},
		{
			name: "fallback complementary on thin overlap",
			a:    manualProfile("a", []string{"a", "b"}, 7, 1, 0.5, 5),
			b:    manualProfile("b", []string{"c", "d"}, 7, 1, 0.5, 5),
			want: MatchComplementary,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := Compare(tt.a, tt.b, cfg)
			assert.Equal(t, tt.want, result.MatchType, "score=%d overlap=%.1f alignment=%.1f",
				result.OverallScore, result.GenreOverlapPct, result.RatingAlignmentPct)
			assert.Less(t, result.OverallScore, cfg.TasteTwinMinScore)
		})
	}
}

func TestCompare_MonotonicInOverlapAndAlignment(t *testing.T) {
	cfg := DefaultCompatibilityConfig()
	base := manualProfile("a", []string{"a", "b", "c", "d"}, 7, 1, 0.5, 10)

	lowOverlap := Compare(base, manualProfile("b", []string{"a", "x", "y", "z"}, 7, 1, 0.5, 10), cfg)
	highOverlap := Compare(base, manualProfile("b", []string{"a", "b", "c", "z"}, 7, 1, 0.5, 10), cfg)
	assert.Equal(t, lowOverlap.RatingAlignmentPct, highOverlap.RatingAlignmentPct)
	assert.Greater(t, highOverlap.OverallScore, lowOverlap.OverallScore)

	farRatings := Compare(base, manualProfile("b", []string{"a", "b", "c", "z"}, 3, 4, 0.5, 10), cfg)
	assert.Equal(t, farRatings.GenreOverlapPct, highOverlap.GenreOverlapPct)
	assert.Greater(t, highOverlap.OverallScore, farRatings.OverallScore)
}

func TestCompare_RatingAlignment(t *testing.T) {
	cfg := DefaultCompatibilityConfig()

	t.Run("anti-correlated shared ratings", func(t *testing.T) {
		a := profileFor("a", rated("x", "A", 2, 1, "rock"), rated("y", "B", 5, 1, "rock"), rated("z", "C", 8, 1, "rock"))
		b := profileFor("b", rated("x", "A", 8, 1, "rock"), rated("y", "B", 5, 1, "rock"), rated("z", "C", 2, 1, "rock"))

		result := Compare(a, b, cfg)
		assert.InDelta(t, 0.0, result.RatingAlignmentPct, 1e-9)
		assert.Equal(t, 3, result.SharedAlbumCount)
	})

	t.Run("constant ratings fall back to absolute difference", func(t *testing.T) {
		a := profileFor("a", rated("x", "A", 8, 1, "rock"), rated("y", "B", 8, 1, "rock"), rated("z", "C", 8, 1, "rock"))
		b := profileFor("b", rated("x", "A", 6, 1, "rock"), rated("y", "B", 7, 1, "rock"), rated("z", "C", 8, 1, "rock"))

		result := Compare(a, b, cfg)
		assert.InDelta(t, 90.0, result.RatingAlignmentPct, 1e-9)
	})

	t.Run("too few shared albums uses mean and spread", func(t *testing.T) {
		a := manualProfile("a", nil, 7, 4, 0.5, 10)
		b := manualProfile("b", nil, 5, 1, 0.5, 10)

		result := Compare(a, b, cfg)
		// (|7-5|/10 + |2-1|/5) / 2 = 0.2
		assert.InDelta(t, 80.0, result.RatingAlignmentPct, 1e-9)
		assert.Equal(t, 0.0, result.GenreOverlapPct)
		assert.Equal(t, 32, result.OverallScore)
	})
}

func TestCompare_SharedArtists(t *testing.T) {
	a := profileFor("a", rated("1", "Burial", 9, 1, "electronic"), rated("2", "Four Tet", 9, 2, "electronic"))
	b := profileFor("b", rated("3", "burial", 8, 1, "electronic"), rated("4", "Bonobo", 9, 2, "electronic"))

	result := Compare(a, b, DefaultCompatibilityConfig())

	assert.Equal(t, []string{"Burial"}, result.SharedArtists)
}

func TestCompatibilityConfig_Validate(t *testing.T) {
	require.NoError(t, DefaultCompatibilityConfig().Validate())

	cfg := DefaultCompatibilityConfig()
	cfg.OverlapWeight = 0
	cfg.AlignmentWeight = 1
	assert.Error(t, cfg.Validate(), "a zero weight breaks monotonicity")

	cfg = DefaultCompatibilityConfig()
	cfg.MiddlingAlignmentMin = 90
	assert.Error(t, cfg.Validate())

	cfg = DefaultCompatibilityConfig()
	cfg.ComplementaryMaxOverlap = 70
	assert.Error(t, cfg.Validate())
}
