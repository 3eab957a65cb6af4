package recommend

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// noJitter returns the mode's weights with jitter removed so scores are exact
func noJitter(t *testing.T, m Mode) ModeWeights {
	w, err := DefaultWeightTable().Weights(m)
	require.NoError(t, err)
	w.Jitter = 0
	return w
}

func jazzProfile() *TasteProfile {
	return buildProfile(
		rated("a1", "Coltrane", 9, 10, "jazz"),
		rated("a2", "Monk", 8, 20, "jazz"),
		rated("a3", "Nickelback", 4, 30, "rock"),
	)
}

func TestScorer_GenreAffinityAndHighAffinity(t *testing.T) {
	s := NewScorer(DefaultConfig(), newLockedRand(1))
	sc := &ScoreContext{Profile: jazzProfile(), Weights: noJitter(t, ModeSmart)}

	got := s.Score(album("x", "Someone", "jazz"), PoolGenre, sc)

	assert.InDelta(t, 0.5, got.Breakdown.Base, 1e-9)
	assert.InDelta(t, 2.0/3.0*0.3, got.Breakdown.GenreAffinity, 1e-9)
	assert.InDelta(t, 0.1, got.Breakdown.HighAffinity, 1e-9)
	assert.Zero(t, got.Breakdown.PoolBonus)
	assert.InDelta(t, 0.5+0.2+0.1, got.Score, 1e-9)
	assert.Equal(t, PoolGenre, got.Pool)
}

func TestScorer_UnknownGenreDefault(t *testing.T) {
	s := NewScorer(DefaultConfig(), nil)
	sc := &ScoreContext{Profile: jazzProfile(), Weights: noJitter(t, ModeSmart)}

	got := s.Score(album("x", "Someone", "polka"), PoolDiscovery, sc)
	assert.InDelta(t, 0.3*0.3, got.Breakdown.GenreAffinity, 1e-9)

	untagged := s.Score(album("y", "Someone"), PoolDiscovery, sc)
	assert.InDelta(t, 0.3*0.3, untagged.Breakdown.GenreAffinity, 1e-9)
}

func TestScorer_DiscoveryModeInvertsAffinity(t *testing.T) {
	s := NewScorer(DefaultConfig(), nil)
	profile := jazzProfile()

	smart := s.Score(album("x", "A", "jazz"), PoolGenre, &ScoreContext{Profile: profile, Weights: noJitter(t, ModeSmart)})
	discovery := s.Score(album("x", "A", "jazz"), PoolGenre, &ScoreContext{Profile: profile, Weights: noJitter(t, ModeDiscovery)})

	assert.InDelta(t, (1-2.0/3.0)*0.3, discovery.Breakdown.GenreAffinity, 1e-9)
	assert.Zero(t, discovery.Breakdown.HighAffinity)
	assert.Greater(t, smart.Score, discovery.Score)

	familiar := s.Score(album("y", "A", "jazz"), PoolGenre, &ScoreContext{Profile: profile, Weights: noJitter(t, ModeDiscovery)})
	unfamiliar := s.Score(album("z", "A", "rock"), PoolGenre, &ScoreContext{Profile: profile, Weights: noJitter(t, ModeDiscovery)})
	assert.Greater(t, unfamiliar.Breakdown.GenreAffinity, familiar.Breakdown.GenreAffinity)
}

func TestScorer_PoolBonus(t *testing.T) {
	s := NewScorer(DefaultConfig(), nil)
	profile := buildProfile(
		rated("r1", "Recent Artist", 9, 2, "jazz"),
		rated("o1", "Old Artist", 8, 400, "jazz"),
	)
	sc := &ScoreContext{
		Profile:       profile,
		ArtistWeights: profile.artistWeights(DefaultConfig().Profile),
		Weights:       noJitter(t, ModeSmart),
	}

	quality := s.Score(charted(album("q", "X", "pop"), 1), PoolQuality, sc)
	assert.InDelta(t, 0.3*(1-1.0/200), quality.Breakdown.PoolBonus, 1e-9)

	outOfChart := s.Score(charted(album("q2", "X", "pop"), 450), PoolQuality, sc)
	assert.Zero(t, outOfChart.Breakdown.PoolBonus)

	recent := s.Score(album("a", "recent artist", "jazz"), PoolArtist, sc)
	old := s.Score(album("b", "Old Artist", "jazz"), PoolArtist, sc)
	assert.InDelta(t, 0.2, recent.Breakdown.PoolBonus, 1e-9)
	assert.InDelta(t, 0.1, old.Breakdown.PoolBonus, 1e-9)

	// the chart bonus belongs to the quality pool only
	sameAlbumElsewhere := s.Score(charted(album("q", "X", "pop"), 1), PoolDiscovery, sc)
	assert.Zero(t, sameAlbumElsewhere.Breakdown.PoolBonus)
}

func TestScorer_SkipPenalty(t *testing.T) {
	s := NewScorer(DefaultConfig(), nil)
	tests := []struct {
		name    string
		skips   int
		penalty float64
	}{
		{"below threshold", 4, 0},
		{"at threshold", 5, 0.1},
		{"grows with skips", 10, 0.2},
		{"capped", 40, 0.3},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sc := &ScoreContext{
				Skips:   SkipSignals{GenreSkipCounts: map[string]int{"metal": tt.skips, "rock": 1}},
				Weights: noJitter(t, ModeSmart),
			}
			got := s.Score(album("x", "A", "rock", "metal"), PoolGenre, sc)
			assert.InDelta(t, tt.penalty, got.Breakdown.SkipPenalty, 1e-9)
		})
	}
}

func TestAudioAffinity(t *testing.T) {
	prefs := AudioPreferences{
		FeatureEnergy: {Min: 0.4, Max: 0.8, SweetSpot: 0.6, Weight: 1},
	}

	tests := []struct {
		name   string
		energy float64
		want   float64
	}{
		{"sweet spot", 0.6, 1.0},
		{"lower edge", 0.4, 0.5},
		{"upper edge", 0.8, 0.5},
		{"halfway", 0.7, 0.75},
		{"outside", 0.95, 0.2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := AudioAffinity(AudioProfile{Energy: tt.energy}, prefs)
			require.True(t, ok)
			assert.InDelta(t, tt.want, got, 1e-9)
		})
	}

	t.Run("weighted average", func(t *testing.T) {
		prefs := AudioPreferences{
			FeatureEnergy:  {Min: 0, Max: 1, SweetSpot: 0.5, Weight: 3},
			FeatureValence: {Min: 0.6, Max: 1, SweetSpot: 0.8, Weight: 1},
		}
		got, ok := AudioAffinity(AudioProfile{Energy: 0.5, Valence: 0.1}, prefs)
		require.True(t, ok)
		assert.InDelta(t, (3*1.0+1*0.2)/4, got, 1e-9)
	})

	t.Run("no weighted preferences", func(t *testing.T) {
		_, ok := AudioAffinity(AudioProfile{}, AudioPreferences{FeatureTempo: {Min: 0, Max: 1}})
		assert.False(t, ok)
	})
}

func TestScorer_AudioNeedsProfileAndPreferences(t *testing.T) {
	s := NewScorer(DefaultConfig(), nil)
	profile := jazzProfile()
	profile.AudioPreferences = AudioPreferences{FeatureEnergy: {Min: 0, Max: 1, SweetSpot: 0.5, Weight: 1}}
	sc := &ScoreContext{Profile: profile, Weights: noJitter(t, ModeSmart)}

	withAudio := album("x", "A", "jazz")
	withAudio.AudioProfile = &AudioProfile{Energy: 0.5}
	assert.InDelta(t, 0.2, s.Score(withAudio, PoolGenre, sc).Breakdown.AudioAffinity, 1e-9)

	assert.Zero(t, s.Score(album("y", "A", "jazz"), PoolGenre, sc).Breakdown.AudioAffinity)
}

func TestScorer_QualityBonusScaledByMode(t *testing.T) {
	s := NewScorer(DefaultConfig(), nil)
	a := reviewed(charted(album("x", "A", "pop"), 100), 8.2, 12)

	smart := s.Score(a, PoolGenre, &ScoreContext{Weights: noJitter(t, ModeSmart)})
	quality := s.Score(a, PoolGenre, &ScoreContext{Weights: noJitter(t, ModeQuality)})

	assert.InDelta(t, 0.1*0.5+0.1, smart.Breakdown.Quality, 1e-9)
	assert.InDelta(t, 2*(0.1*0.5+0.1), quality.Breakdown.Quality, 1e-9)

	thin := reviewed(album("y", "A", "pop"), 9.5, 2)
	assert.Zero(t, s.Score(thin, PoolGenre, &ScoreContext{Weights: noJitter(t, ModeSmart)}).Breakdown.Quality)
}

func TestScorer_CollaborativeBoost(t *testing.T) {
	s := NewScorer(DefaultConfig(), nil)
	sc := &ScoreContext{
		Boosted: map[string]struct{}{"liked": {}},
		Weights: noJitter(t, ModeSmart),
	}

	assert.InDelta(t, 0.1, s.Score(album("liked", "A"), PoolGenre, sc).Breakdown.Collaborative, 1e-9)
	assert.Zero(t, s.Score(album("other", "A"), PoolGenre, sc).Breakdown.Collaborative)
}

func TestScorer_Clamped(t *testing.T) {
	s := NewScorer(DefaultConfig(), newLockedRand(3))
	profile := buildProfile(
		rated("a1", "A", 10, 1, "jazz", "soul", "funk"),
		rated("a2", "A", 10, 1, "jazz", "soul", "funk"),
		rated("a3", "B", 1, 1, "rock"),
		rated("a4", "B", 1, 1, "rock"),
	)
	profile.AudioPreferences = AudioPreferences{
		FeatureEnergy:       {Min: 0, Max: 1, SweetSpot: 1, Weight: 1},
		FeatureAcousticness: {Min: 0, Max: 1, SweetSpot: 0, Weight: 1},
	}

	loud := ModeWeights{PoolBonus: 10, GenreAffinity: 10, HighAffinity: 10, AudioAffinity: 10, Quality: 10, Collaborative: 10, Jitter: 0.1}
	best := reviewed(charted(album("x", "A", "jazz", "soul", "funk"), 1), 10, 0)
	best.AudioProfile = &AudioProfile{Energy: 1, Acousticness: 0, Tempo: 1}
	high := s.Score(best, PoolQuality, &ScoreContext{
		Profile: profile,
		Boosted: map[string]struct{}{"x": {}},
		Weights: loud,
	})
	assert.Equal(t, 1.0, high.Score)
	assert.Greater(t, high.Breakdown.Total(), 1.0)

	harsh := ModeWeights{SkipPenalty: 100}
	low := s.Score(album("y", "B", "rock"), PoolDiscovery, &ScoreContext{
		Profile: profile,
		Skips:   SkipSignals{GenreSkipCounts: map[string]int{"rock": 50}},
		Weights: harsh,
	})
	assert.Equal(t, 0.0, low.Score)

	for _, m := range []Mode{ModeSmart, ModeDiscovery, ModeQuality, ModePureRandom} {
		w, err := DefaultWeightTable().Weights(m)
		require.NoError(t, err)
		for i := 0; i < 50; i++ {
			got := s.Score(best, PoolQuality, &ScoreContext{Profile: profile, Weights: w})
			assert.GreaterOrEqual(t, got.Score, 0.0)
			assert.LessOrEqual(t, got.Score, 1.0)
		}
	}
}

func TestScorer_JitterBounded(t *testing.T) {
	s := NewScorer(DefaultConfig(), newLockedRand(9))
	w, err := DefaultWeightTable().Weights(ModeSmart)
	require.NoError(t, err)

	for i := 0; i < 200; i++ {
		got := s.Score(album("x", "A"), PoolDiscovery, &ScoreContext{Weights: w})
		assert.GreaterOrEqual(t, got.Breakdown.Jitter, 0.0)
		assert.Less(t, got.Breakdown.Jitter, 0.1)
	}
}
