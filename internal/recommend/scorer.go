package recommend

import (
	"math"
	"strings"
)

const (
	baseScore          = 0.5
	qualityPoolBonus   = 0.3
	artistPoolBonus    = 0.2
	unknownGenreWeight = 0.3
	maxSkipPenalty     = 0.3
	skipPenaltyPerSkip = 0.02
	chartRankBonus     = 0.1
	wellReviewedBonus  = 0.1

	audioInsideEdge = 0.5
	audioOutside    = 0.2
)

// ScoreContext carries the per-request signals shared by every candidate
type ScoreContext struct {
	Profile       *TasteProfile
	Skips         SkipSignals
	ArtistWeights map[string]float64
	// Boosted holds album IDs highly rated by similar users
	Boosted map[string]struct{}
	Weights ModeWeights
}

// Scorer computes composite scores. It is pure apart from the jitter draw.
type Scorer struct {
	cfg Config
	rng Rand
}

// NewScorer creates a scorer
func NewScorer(cfg Config, rng Rand) *Scorer {
	return &Scorer{cfg: cfg, rng: rng}
}

// Score rates one candidate drawn from a pool
func (s *Scorer) Score(album CandidateAlbum, pool Pool, sc *ScoreContext) ScoredCandidate {
	w := sc.Weights
	genres := normalizeGenres(album.Genres)

	b := ScoreBreakdown{Base: baseScore}
	b.PoolBonus = s.poolBonus(album, pool, sc) * w.PoolBonus

	if sc.Profile != nil {
		affinity := meanGenreWeight(genres, sc.Profile.GenreWeights)
		if w.InvertAffinity {
			affinity = 1 - affinity
		}
		b.GenreAffinity = affinity * w.GenreAffinity
		b.HighAffinity = float64(countMatches(genres, sc.Profile.HighAffinityGenres)) * w.HighAffinity

		if prefs := sc.Profile.AudioPreferences; album.AudioProfile != nil && len(prefs) > 0 {
			if a, ok := AudioAffinity(*album.AudioProfile, prefs); ok {
				b.AudioAffinity = a * w.AudioAffinity
			}
		}
	}

	if maxSkips := sc.Skips.MaxGenreSkips(genres); maxSkips >= s.cfg.SkipPenaltyMinCount {
		b.SkipPenalty = math.Min(maxSkipPenalty, float64(maxSkips)*skipPenaltyPerSkip) * w.SkipPenalty
	}

	quality := 0.0
	if album.ChartRank != nil {
		quality += chartRankBonus * s.rankFactor(*album.ChartRank)
	}
	if album.WellReviewed(s.cfg.Quality.MinRating, s.cfg.Quality.MinReviews) {
		quality += wellReviewedBonus
	}
	b.Quality = quality * w.Quality

	if _, ok := sc.Boosted[album.ID]; ok {
		b.Collaborative = s.cfg.Collaborative.Boost * w.Collaborative
	}

	if w.Jitter > 0 && s.rng != nil {
		b.Jitter = s.rng.Float64() * w.Jitter
	}

	return ScoredCandidate{
		CandidateAlbum: album,
		Score:          clamp01(b.Total()),
		Breakdown:      b,
		Pool:           pool,
	}
}

func (s *Scorer) poolBonus(album CandidateAlbum, pool Pool, sc *ScoreContext) float64 {
	switch pool {
	case PoolQuality:
		if album.ChartRank != nil {
			return qualityPoolBonus * s.rankFactor(*album.ChartRank)
		}
	case PoolArtist:
		if weight, ok := sc.ArtistWeights[strings.ToLower(strings.TrimSpace(album.ArtistName))]; ok {
			return artistPoolBonus * weight
		}
	}
	return 0
}

// rankFactor maps a chart rank to [0,1], 1 being the top of the chart
func (s *Scorer) rankFactor(rank int) float64 {
	if rank < 1 {
		rank = 1
	}
	return math.Max(0, 1-float64(rank)/s.cfg.Quality.ChartRankScale)
}

func meanGenreWeight(genres []string, weights map[string]float64) float64 {
	if len(genres) == 0 {
		return unknownGenreWeight
	}
	sum := 0.0
	for _, g := range genres {
		if w, ok := weights[g]; ok {
			sum += w
		} else {
			sum += unknownGenreWeight
		}
	}
	return sum / float64(len(genres))
}

func countMatches(genres, targets []string) int {
	if len(targets) == 0 {
		return 0
	}
	set := make(map[string]bool, len(targets))
	for _, t := range targets {
		set[t] = true
	}
	n := 0
	for _, g := range genres {
		if set[g] {
			n++
		}
	}
	return n
}

// AudioAffinity returns the preference-weighted audio match in [0,1].
// A feature scores 1.0 at its sweet spot, decays linearly to 0.5 at the
// edge of [Min, Max] and scores 0.2 outside. ok is false when no
// preference carries positive weight.
func AudioAffinity(profile AudioProfile, prefs AudioPreferences) (float64, bool) {
	var weighted, total float64
	for name, pref := range prefs {
		if pref.Weight <= 0 {
			continue
		}
		v, known := profile.Feature(name)
		if !known {
			continue
		}
		weighted += featureScore(v, pref) * pref.Weight
		total += pref.Weight
	}
	if total == 0 {
		return 0, false
	}
	return clamp01(weighted / total), true
}

func featureScore(v float64, p AudioPreference) float64 {
	if v < p.Min || v > p.Max {
		return audioOutside
	}
	sweet := math.Max(p.Min, math.Min(p.Max, p.SweetSpot))
	edge := sweet - p.Min
	if v > sweet {
		edge = p.Max - sweet
	}
	if edge <= 0 {
		return 1
	}
	return 1 - (1-audioInsideEdge)*math.Abs(v-sweet)/edge
}
