package recommend

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/sh6drack/actually-waxfeed-sub002/internal/logger"
	"github.com/sh6drack/actually-waxfeed-sub002/internal/metrics"
	"go.uber.org/zap"
)

// sourceCollaborative labels the similar-user fetch in logs and metrics
const sourceCollaborative = "collaborative"

// fetchGrace is how long past PoolTimeout Fetch waits for a pool to report
const fetchGrace = 100 * time.Millisecond

// PoolSet is the output of one retrieval round
type PoolSet struct {
	Albums map[Pool][]CandidateAlbum
	// Boosted holds album IDs liked by similar users
	Boosted map[string]struct{}
	// Degraded lists pools that failed or timed out and were treated as empty
	Degraded []Pool
}

// Retriever fetches the candidate pools from the catalog
type Retriever struct {
	catalog CatalogStore
	history HistoryStore
	cfg     Config
	rng     Rand
}

// NewRetriever creates a retriever
func NewRetriever(catalog CatalogStore, history HistoryStore, cfg Config, rng Rand) *Retriever {
	return &Retriever{catalog: catalog, history: history, cfg: cfg, rng: rng}
}

// Fetch runs the four pool queries and the similar-user query concurrently.
// Each runs under its own timeout; a failure empties that pool only.
func (r *Retriever) Fetch(ctx context.Context, profile *TasteProfile, excluded map[string]struct{}, size int) PoolSet {
	type sourceResult struct {
		pool   Pool
		source string
		albums []CandidateAlbum
		ids    []string
		err    error
	}

	excludeIDs := make([]string, 0, len(excluded))
	for id := range excluded {
		excludeIDs = append(excludeIDs, id)
	}

	fetchers := map[Pool]func(context.Context) ([]CandidateAlbum, error){
		PoolArtist:    func(ctx context.Context) ([]CandidateAlbum, error) { return r.artistPool(ctx, profile, excludeIDs, size) },
		PoolGenre:     func(ctx context.Context) ([]CandidateAlbum, error) { return r.genrePool(ctx, profile, excludeIDs, size) },
		PoolQuality:   func(ctx context.Context) ([]CandidateAlbum, error) { return r.qualityPool(ctx, excludeIDs, size) },
		PoolDiscovery: func(ctx context.Context) ([]CandidateAlbum, error) { return r.discoveryPool(ctx, profile, excludeIDs, size) },
	}

	resultsChan := make(chan sourceResult, len(fetchers)+1)
	for pool, fetch := range fetchers {
		go func(pool Pool, fetch func(context.Context) ([]CandidateAlbum, error)) {
			pctx, cancel := context.WithTimeout(ctx, r.cfg.PoolTimeout)
			defer cancel()
			albums, err := fetch(pctx)
			resultsChan <- sourceResult{pool: pool, source: string(pool), albums: albums, err: err}
		}(pool, fetch)
	}

	expected := len(fetchers)
	if r.cfg.Collaborative.Enabled && profile != nil && len(profile.TopGenres) > 0 {
		expected++
		go func() {
			pctx, cancel := context.WithTimeout(ctx, r.cfg.PoolTimeout)
			defer cancel()
			ids, err := r.history.SimilarUserAlbums(pctx, profile.UserID, profile.CoreGenres(3),
				r.cfg.Collaborative.MinRating, r.cfg.Collaborative.SimilarUserCap, r.cfg.Collaborative.AlbumCap)
			resultsChan <- sourceResult{source: sourceCollaborative, ids: ids, err: err}
		}()
	}

	set := PoolSet{
		Albums:  make(map[Pool][]CandidateAlbum, len(fetchers)),
		Boosted: make(map[string]struct{}),
	}
	pending := make(map[Pool]bool, len(fetchers))
	for pool := range fetchers {
		pending[pool] = true
	}

	// a store that ignores its context must not hold the request past the
	// pool timeout; whatever is still out is treated as failed
	deadline := time.NewTimer(r.cfg.PoolTimeout + fetchGrace)
	defer deadline.Stop()

collect:
	for i := 0; i < expected; i++ {
		var result sourceResult
		select {
		case result = <-resultsChan:
		case <-deadline.C:
			r.abandon(&set, pending)
			break collect
		case <-ctx.Done():
			r.abandon(&set, pending)
			break collect
		}
		delete(pending, result.pool)
		if result.err != nil {
			logger.Log.Warn("Recommendation source failed",
				zap.String("source", result.source),
				zap.Error(result.err))
			metrics.Get().RecommendationPoolFailures.WithLabelValues(result.source).Inc()
			if result.pool != "" {
				set.Degraded = append(set.Degraded, result.pool)
			}
			continue
		}
		if result.source == sourceCollaborative {
			for _, id := range result.ids {
				set.Boosted[id] = struct{}{}
			}
			logger.Log.Debug("Recommendations: similar-user albums fetched", zap.Int("count", len(result.ids)))
			continue
		}

		albums := dropExcluded(result.albums, excluded)
		set.Albums[result.pool] = albums
		metrics.Get().RecommendationPoolSize.WithLabelValues(result.source).Observe(float64(len(albums)))
		logger.Log.Debug("Recommendations: pool fetched",
			zap.String("pool", result.source),
			zap.Int("count", len(albums)))
	}
	sortPools(set.Degraded)
	return set
}

// abandon marks every pool still in flight as degraded
func (r *Retriever) abandon(set *PoolSet, pending map[Pool]bool) {
	for pool := range pending {
		logger.Log.Warn("Recommendation source abandoned",
			zap.String("source", string(pool)),
			zap.Duration("timeout", r.cfg.PoolTimeout))
		metrics.Get().RecommendationPoolFailures.WithLabelValues(string(pool)).Inc()
		set.Degraded = append(set.Degraded, pool)
	}
}

func (r *Retriever) artistPool(ctx context.Context, profile *TasteProfile, excludeIDs []string, size int) ([]CandidateAlbum, error) {
	if profile == nil || len(profile.FavoriteArtists) == 0 {
		return nil, nil
	}
	filter := AlbumFilter{Artists: artistNames(profile.FavoriteArtists), ExcludeIDs: excludeIDs}
	return r.randomPage(ctx, filter, size)
}

func (r *Retriever) genrePool(ctx context.Context, profile *TasteProfile, excludeIDs []string, size int) ([]CandidateAlbum, error) {
	if profile == nil || len(profile.TopGenres) == 0 {
		return nil, nil
	}
	filter := AlbumFilter{AnyGenres: profile.TopGenres, ExcludeIDs: excludeIDs}
	return r.randomPage(ctx, filter, size)
}

func (r *Retriever) qualityPool(ctx context.Context, excludeIDs []string, size int) ([]CandidateAlbum, error) {
	filter := r.qualityFilter(excludeIDs)
	filter.OrderByQuality = true
	albums, err := r.catalog.FindAlbums(ctx, filter, Page{Limit: size})
	if err != nil {
		return nil, fmt.Errorf("quality pool: %w", err)
	}
	return albums, nil
}

// discoveryPool avoids the core genres only once three are known; a thinner
// history samples the whole catalog instead
func (r *Retriever) discoveryPool(ctx context.Context, profile *TasteProfile, excludeIDs []string, size int) ([]CandidateAlbum, error) {
	filter := AlbumFilter{ExcludeIDs: excludeIDs}
	if profile != nil && len(profile.TopGenres) >= r.cfg.Profile.AdventurousnessCoreGenres {
		filter.NoneGenres = profile.CoreGenres(r.cfg.Profile.AdventurousnessCoreGenres)
	}
	return r.randomPage(ctx, filter, size)
}

// Onboarding samples charted or well-reviewed albums without any profile
func (r *Retriever) Onboarding(ctx context.Context, excluded map[string]struct{}, size int) ([]CandidateAlbum, error) {
	excludeIDs := make([]string, 0, len(excluded))
	for id := range excluded {
		excludeIDs = append(excludeIDs, id)
	}
	pctx, cancel := context.WithTimeout(ctx, r.cfg.PoolTimeout)
	defer cancel()

	type pageResult struct {
		albums []CandidateAlbum
		err    error
	}
	done := make(chan pageResult, 1)
	go func() {
		albums, err := r.randomPage(pctx, r.qualityFilter(excludeIDs), size)
		done <- pageResult{albums: albums, err: err}
	}()

	select {
	case res := <-done:
		if res.err != nil {
			return nil, res.err
		}
		return dropExcluded(res.albums, excluded), nil
	case <-pctx.Done():
		return nil, fmt.Errorf("onboarding pool: %w", pctx.Err())
	}
}

func (r *Retriever) qualityFilter(excludeIDs []string) AlbumFilter {
	return AlbumFilter{
		QualityOnly: true,
		MinRating:   r.cfg.Quality.MinRating,
		MinReviews:  r.cfg.Quality.MinReviews,
		ExcludeIDs:  excludeIDs,
	}
}

// randomPage counts the filter's rows and reads one randomly placed page
func (r *Retriever) randomPage(ctx context.Context, filter AlbumFilter, size int) ([]CandidateAlbum, error) {
	total, err := r.catalog.CountAlbums(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("count albums: %w", err)
	}
	if total == 0 {
		return nil, nil
	}
	albums, err := r.catalog.FindAlbums(ctx, filter, RandomPage(r.rng, total, size))
	if err != nil {
		return nil, fmt.Errorf("find albums: %w", err)
	}
	return albums, nil
}

func dropExcluded(albums []CandidateAlbum, excluded map[string]struct{}) []CandidateAlbum {
	out := make([]CandidateAlbum, 0, len(albums))
	for _, a := range albums {
		if _, skip := excluded[a.ID]; !skip {
			out = append(out, a)
		}
	}
	return out
}

// sortPools orders pools as poolOrder does
func sortPools(pools []Pool) {
	rank := make(map[Pool]int, len(poolOrder))
	for i, p := range poolOrder {
		rank[p] = i
	}
	sort.SliceStable(pools, func(i, j int) bool {
		return rank[pools[i]] < rank[pools[j]]
	})
}

