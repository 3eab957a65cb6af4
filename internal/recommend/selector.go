package recommend

import (
	"math"
	"sort"
)

// Allocation is the number of output slots reserved per pool
type Allocation map[Pool]int

// Allocate splits limit across pools. The genre share shrinks and the
// discovery share grows linearly with adventurousness; every share is
// rounded up, so the sum may exceed limit.
func Allocate(limit int, adventurousness float64, cfg SelectionConfig) Allocation {
	adv := clamp01(adventurousness)
	l := float64(limit)
	genreShare := cfg.GenreShareMax - (cfg.GenreShareMax-cfg.GenreShareMin)*adv
	discoveryShare := cfg.DiscoveryShareMin + (cfg.DiscoveryShareMax-cfg.DiscoveryShareMin)*adv
	return Allocation{
		PoolArtist:    ceilSlots(cfg.ArtistShare * l),
		PoolGenre:     ceilSlots(genreShare * l),
		PoolQuality:   ceilSlots(cfg.QualityShare * l),
		PoolDiscovery: ceilSlots(discoveryShare * l),
	}
}

// ceilSlots rounds up while ignoring float noise such as 3.0000000000000004
func ceilSlots(v float64) int {
	return int(math.Ceil(v - 1e-9))
}

// SelectOptions parameterize one Select call
type SelectOptions struct {
	Limit           int
	Adventurousness float64
	IgnoreScores    bool
	Excluded        map[string]struct{}
}

// Selector turns scored pools into an ordered, de-duplicated list
type Selector struct {
	cfg SelectionConfig
	rng Rand
}

// NewSelector creates a selector
func NewSelector(cfg SelectionConfig, rng Rand) *Selector {
	return &Selector{cfg: cfg, rng: rng}
}

// Select allocates slots per pool, interleaves the pools round-robin and tops
// up from the best remaining candidates. The result never holds two albums
// with the same DedupKey or any excluded ID.
func (s *Selector) Select(pools map[Pool][]ScoredCandidate, opts SelectOptions) []ScoredCandidate {
	if opts.Limit <= 0 {
		return nil
	}
	alloc := Allocate(opts.Limit, opts.Adventurousness, s.cfg)

	ordered := make(map[Pool][]ScoredCandidate, len(pools))
	for _, pool := range poolOrder {
		ordered[pool] = s.order(filterExcluded(pools[pool], opts.Excluded), opts.IgnoreScores)
	}

	out := make([]ScoredCandidate, 0, opts.Limit)
	chosenIDs := make(map[string]bool, opts.Limit)
	chosenKeys := make(map[string]bool, opts.Limit)
	take := func(c ScoredCandidate) bool {
		if chosenIDs[c.ID] || chosenKeys[c.DedupKey()] {
			return false
		}
		chosenIDs[c.ID] = true
		chosenKeys[c.DedupKey()] = true
		out = append(out, c)
		return true
	}

	cursor := make(map[Pool]int, len(poolOrder))
	taken := make(map[Pool]int, len(poolOrder))
	for len(out) < opts.Limit {
		progressed := false
		for _, pool := range poolOrder {
			if len(out) >= opts.Limit || taken[pool] >= alloc[pool] {
				continue
			}
			list := ordered[pool]
			for cursor[pool] < len(list) {
				c := list[cursor[pool]]
				cursor[pool]++
				if take(c) {
					taken[pool]++
					progressed = true
					break
				}
			}
		}
		if !progressed {
			break
		}
	}

	if len(out) < opts.Limit {
		var rest []ScoredCandidate
		for _, pool := range poolOrder {
			rest = append(rest, ordered[pool][cursor[pool]:]...)
		}
		rest = s.order(rest, opts.IgnoreScores)
		for _, c := range rest {
			if len(out) >= opts.Limit {
				break
			}
			take(c)
		}
	}
	return out
}

// PickOne draws a single album. Scored modes draw from the top slice of the
// score-sorted list with probability proportional to score plus a floor;
// IgnoreScores draws uniformly over every candidate.
func (s *Selector) PickOne(candidates []ScoredCandidate, ignoreScores bool) (ScoredCandidate, bool) {
	if len(candidates) == 0 {
		return ScoredCandidate{}, false
	}
	if ignoreScores {
		return candidates[s.rng.Intn(len(candidates))], true
	}

	sorted := sortByScore(candidates)
	top := ceilSlots(float64(len(sorted)) * s.cfg.RandomPickTopFrac)
	if top < 1 {
		top = 1
	}
	if top > len(sorted) {
		top = len(sorted)
	}
	sorted = sorted[:top]

	total := 0.0
	for _, c := range sorted {
		total += c.Score + s.cfg.RandomPickFloor
	}
	r := s.rng.Float64() * total
	for _, c := range sorted {
		r -= c.Score + s.cfg.RandomPickFloor
		if r < 0 {
			return c, true
		}
	}
	return sorted[len(sorted)-1], true
}

func (s *Selector) order(list []ScoredCandidate, ignoreScores bool) []ScoredCandidate {
	if !ignoreScores {
		return sortByScore(list)
	}
	shuffled := append([]ScoredCandidate(nil), list...)
	s.rng.Shuffle(len(shuffled), func(i, j int) {
		shuffled[i], shuffled[j] = shuffled[j], shuffled[i]
	})
	return shuffled
}

// sortByScore returns a copy ordered by score desc, ties by ID
func sortByScore(list []ScoredCandidate) []ScoredCandidate {
	sorted := append([]ScoredCandidate(nil), list...)
	sort.SliceStable(sorted, func(i, j int) bool {
		if sorted[i].Score != sorted[j].Score {
			return sorted[i].Score > sorted[j].Score
		}
		return sorted[i].ID < sorted[j].ID
	})
	return sorted
}

func filterExcluded(list []ScoredCandidate, excluded map[string]struct{}) []ScoredCandidate {
	if len(excluded) == 0 {
		return list
	}
	out := make([]ScoredCandidate, 0, len(list))
	for _, c := range list {
		if _, skip := excluded[c.ID]; !skip {
			out = append(out, c)
		}
	}
	return out
}

// dedupByKey keeps the best-scored candidate per DedupKey, in first-seen order
func dedupByKey(list []ScoredCandidate) []ScoredCandidate {
	index := make(map[string]int, len(list))
	out := make([]ScoredCandidate, 0, len(list))
	for _, c := range list {
		key := c.DedupKey()
		if i, ok := index[key]; ok {
			if c.Score > out[i].Score {
				out[i] = c
			}
			continue
		}
		index[key] = len(out)
		out = append(out, c)
	}
	return out
}
