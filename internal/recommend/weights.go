package recommend

import "fmt"

// ModeWeights is one row of the scoring weight table. Every scoring factor
// reads its multiplier from here, so a new mode is a new row and never a new
// branch in the scorer.
type ModeWeights struct {
	// PoolBonus scales the pool-specific bonus (quality chart bonus, artist recency bonus)
	PoolBonus float64 `yaml:"pool_bonus" json:"pool_bonus"`

	// GenreAffinity is the maximum contribution of the mean genre weight
	GenreAffinity float64 `yaml:"genre_affinity" json:"genre_affinity"`

	// InvertAffinity flips the genre term so unfamiliar genres score higher
	InvertAffinity bool `yaml:"invert_affinity" json:"invert_affinity"`

	// HighAffinity is the flat bonus per matched high-affinity genre
	HighAffinity float64 `yaml:"high_affinity" json:"high_affinity"`

	// SkipPenalty scales the skip penalty
	SkipPenalty float64 `yaml:"skip_penalty" json:"skip_penalty"`

	// AudioAffinity is the maximum contribution of audio-feature affinity
	AudioAffinity float64 `yaml:"audio_affinity" json:"audio_affinity"`

	// Quality scales the chart and community-rating bonus
	Quality float64 `yaml:"quality" json:"quality"`

	// Collaborative scales the similar-user boost
	Collaborative float64 `yaml:"collaborative" json:"collaborative"`

	// Jitter is the upper bound of the uniform tie-breaking noise
	Jitter float64 `yaml:"jitter" json:"jitter"`

	// IgnoreScores makes selection sample uniformly
	IgnoreScores bool `yaml:"ignore_scores" json:"ignore_scores"`
}

// WeightTable maps each mode to its weights
type WeightTable map[Mode]ModeWeights

// DefaultWeightTable returns the built-in blend for every mode
func DefaultWeightTable() WeightTable {
	return WeightTable{
		ModeSmart: {
			PoolBonus:     1.0,
			GenreAffinity: 0.3,
			HighAffinity:  0.1,
			SkipPenalty:   1.0,
			AudioAffinity: 0.2,
			Quality:       1.0,
			Collaborative: 1.0,
			Jitter:        0.1,
		},
		ModeDiscovery: {
			PoolBonus:      1.0,
			GenreAffinity:  0.3,
			InvertAffinity: true,
			HighAffinity:   0,
			SkipPenalty:    1.0,
			AudioAffinity:  0.2,
			Quality:        1.0,
			Collaborative:  0.5,
			Jitter:         0.1,
		},
		ModeQuality: {
			PoolBonus:     1.0,
			GenreAffinity: 0.15,
			HighAffinity:  0.05,
			SkipPenalty:   1.0,
			AudioAffinity: 0.1,
			Quality:       2.0,
			Collaborative: 1.0,
			Jitter:        0.05,
		},
		ModePureRandom: {
			IgnoreScores: true,
		},
	}
}

// Weights returns the row for a mode
func (t WeightTable) Weights(m Mode) (ModeWeights, error) {
	w, ok := t[m]
	if !ok {
		return ModeWeights{}, fmt.Errorf("%w: no weights for mode %q", ErrInvalidInput, m)
	}
	return w, nil
}

// Validate checks every row for negative multipliers and oversized jitter
func (t WeightTable) Validate() error {
	for mode, w := range t {
		for name, v := range map[string]float64{
			"pool_bonus":     w.PoolBonus,
			"genre_affinity": w.GenreAffinity,
			"high_affinity":  w.HighAffinity,
			"skip_penalty":   w.SkipPenalty,
			"audio_affinity": w.AudioAffinity,
			"quality":        w.Quality,
			"collaborative":  w.Collaborative,
			"jitter":         w.Jitter,
		} {
			if v < 0 {
				return fmt.Errorf("mode %s: %s must be non-negative, got %.3f", mode, name, v)
			}
		}
		if w.Jitter > 0.1 {
			return fmt.Errorf("mode %s: jitter must be at most 0.1, got %.3f", mode, w.Jitter)
		}
	}
	for _, required := range []Mode{ModeSmart, ModeDiscovery, ModeQuality, ModePureRandom} {
		if _, ok := t[required]; !ok {
			return fmt.Errorf("weight table is missing mode %s", required)
		}
	}
	return nil
}
