package recommend

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/sh6drack/actually-waxfeed-sub002/internal/logger"
	"github.com/sh6drack/actually-waxfeed-sub002/internal/metrics"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"
)

// Flow labels used in metrics
const (
	flowRandom        = "random"
	flowSwipe         = "swipe"
	flowOnboarding    = "onboarding"
	flowCompatibility = "compatibility"
)

// Engine produces album recommendations for one user per call. It holds no
// per-request state; concurrent calls are independent.
type Engine struct {
	catalog CatalogStore
	history HistoryStore
	cache   ProfileCache
	cfg     Config
	rng     Rand
	now     func() time.Time

	retriever *Retriever
	scorer    *Scorer
	selector  *Selector

	builds singleflight.Group
	tracer trace.Tracer
}

// Option configures an Engine
type Option func(*Engine)

// WithSeed makes the engine's randomness reproducible
func WithSeed(seed int64) Option {
	return func(e *Engine) { e.rng = newLockedRand(seed) }
}

// WithRand replaces the random source. r must be safe for concurrent use.
func WithRand(r Rand) Option {
	return func(e *Engine) { e.rng = r }
}

// WithClock overrides time.Now
func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

// WithProfileCache enables taste profile caching
func WithProfileCache(c ProfileCache) Option {
	return func(e *Engine) { e.cache = c }
}

// NewEngine validates cfg and wires the engine
func NewEngine(catalog CatalogStore, history HistoryStore, cfg Config, opts ...Option) (*Engine, error) {
	if catalog == nil || history == nil {
		return nil, fmt.Errorf("recommend: catalog and history stores are required")
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("recommend: invalid config: %w", err)
	}

	e := &Engine{
		catalog: catalog,
		history: history,
		cfg:     cfg,
		now:     time.Now,
		tracer:  otel.Tracer("waxfeed/recommend"),
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.rng == nil {
		e.rng = newLockedRand(time.Now().UnixNano())
	}

	e.retriever = NewRetriever(catalog, history, cfg, e.rng)
	e.scorer = NewScorer(cfg, e.rng)
	e.selector = NewSelector(cfg.Selection, e.rng)
	return e, nil
}

// Config returns the engine's configuration
func (e *Engine) Config() Config {
	return e.cfg
}

// GetTasteProfile returns the user's profile, building it on a cache miss.
// Concurrent misses for one user share a single build.
func (e *Engine) GetTasteProfile(ctx context.Context, userID string) (*TasteProfile, error) {
	if err := requireUser(userID); err != nil {
		return nil, err
	}

	if e.cache != nil {
		if p, ok := e.cache.GetProfile(ctx, userID); ok {
			metrics.Get().ProfileCacheHits.Inc()
			return p, nil
		}
		metrics.Get().ProfileCacheMisses.Inc()
	}

	// The shared build outlives any single caller; each caller still stops
	// waiting when its own context ends.
	results := e.builds.DoChan(userID, func() (interface{}, error) {
		bctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), e.cfg.ProfileTimeout)
		defer cancel()
		return e.buildProfile(bctx, userID)
	})
	select {
	case res := <-results:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.(*TasteProfile), nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (e *Engine) buildProfile(ctx context.Context, userID string) (*TasteProfile, error) {
	var (
		reviews  []RatedAlbum
		settings *UserSettings
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		reviews, err = e.history.UserReviews(gctx, userID)
		if err != nil {
			return fmt.Errorf("load reviews: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		var err error
		settings, err = e.history.UserSettings(gctx, userID)
		if err != nil {
			return fmt.Errorf("load settings: %w", err)
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	if len(reviews) < e.cfg.MinReviewsForProfile {
		return nil, fmt.Errorf("%w: user %s has %d reviews", ErrPreconditionUnmet, userID, len(reviews))
	}

	opts := ProfileOptions{
		Config:                 e.cfg.Profile,
		DefaultAdventurousness: e.cfg.DefaultAdventurousness,
		Now:                    e.now(),
	}
	if settings != nil {
		opts.StoredAdventurousness = settings.Adventurousness
		opts.AudioPreferences = settings.AudioPreferences
	}
	profile := BuildTasteProfile(userID, reviews, opts)

	if e.cache != nil {
		e.cache.SetProfile(ctx, profile)
	}
	logger.Log.Debug("Recommendations: taste profile built",
		zap.String("user_id", userID),
		zap.Int("reviews", profile.ReviewCount),
		zap.Strings("top_genres", profile.CoreGenres(3)),
		zap.Float64("adventurousness", profile.Adventurousness))
	return profile, nil
}

// loadSignals loads the profile, the skip history and the reviewed album IDs
// concurrently and returns the IDs the request must not serve. Reviewed IDs
// are always read from the store since a cached profile may predate them.
func (e *Engine) loadSignals(ctx context.Context, userID string) (*TasteProfile, SkipSignals, map[string]struct{}, error) {
	ctx, span := e.tracer.Start(ctx, "recommend.load_signals")
	defer span.End()

	var (
		profile  *TasteProfile
		skips    []SkipEvent
		reviewed []string
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		profile, err = e.GetTasteProfile(gctx, userID)
		return err
	})
	g.Go(func() error {
		var err error
		skips, err = e.history.UserSkips(gctx, userID)
		if err != nil {
			return fmt.Errorf("load skips: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		var err error
		reviewed, err = e.history.ReviewedAlbumIDs(gctx, userID)
		if err != nil {
			return fmt.Errorf("load reviewed albums: %w", err)
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		span.RecordError(err)
		return nil, SkipSignals{}, nil, err
	}
	signals := AggregateSkips(skips, e.now(), e.cfg.SkipResurfaceWindow)
	return profile, signals, excludedIDs(profile, signals, reviewed), nil
}

// GetRandomAlbum returns one album for the "random pick" flow
func (e *Engine) GetRandomAlbum(ctx context.Context, userID, modeName string) (*RandomPick, error) {
	start := time.Now()
	defer func() {
		metrics.Get().RecommendationDuration.WithLabelValues(flowRandom).Observe(time.Since(start).Seconds())
	}()

	if err := requireUser(userID); err != nil {
		return nil, err
	}
	mode, err := ParseMode(modeName)
	if err != nil {
		return nil, err
	}
	weights, err := e.cfg.Modes.Weights(mode)
	if err != nil {
		return nil, err
	}

	profile, skips, excluded, err := e.loadSignals(ctx, userID)
	if err != nil {
		return nil, err
	}

	scored, _ := e.candidates(ctx, profile, skips, excluded, e.cfg.RandomPoolSize, weights)
	all := make([]ScoredCandidate, 0)
	for _, pool := range poolOrder {
		all = append(all, scored[pool]...)
	}
	all = dedupByKey(filterExcluded(all, excluded))

	_, span := e.tracer.Start(ctx, "recommend.select")
	pick, ok := e.selector.PickOne(all, weights.IgnoreScores)
	span.End()
	if !ok {
		metrics.Get().RecommendationEmptyResults.WithLabelValues(flowRandom).Inc()
		return nil, fmt.Errorf("%w: random pick for user %s", ErrNoCandidates, userID)
	}
	metrics.Get().RecommendationsServed.WithLabelValues(flowRandom, string(pick.Pool)).Inc()

	return &RandomPick{
		Album:     pick.CandidateAlbum,
		Pool:      pick.Pool,
		Reason:    explain(pick, profile, mode),
		Score:     int(math.Round(pick.Score * 100)),
		Breakdown: pick.Breakdown,
		Mode:      mode,
		UserStats: profile.Stats(),
	}, nil
}

// GetSwipeBatch returns up to limit interleaved albums for a rapid rating
// session. Zero or negative limit is rejected. HTTP callers reject limit
// above MaxBatchSize before calling; the engine caps it for other callers.
func (e *Engine) GetSwipeBatch(ctx context.Context, userID string, limit int, onboarding bool) (*SwipeBatch, error) {
	flow := flowSwipe
	if onboarding {
		flow = flowOnboarding
	}
	start := time.Now()
	defer func() {
		metrics.Get().RecommendationDuration.WithLabelValues(flow).Observe(time.Since(start).Seconds())
	}()

	if err := requireUser(userID); err != nil {
		return nil, err
	}
	if limit <= 0 {
		return nil, fmt.Errorf("%w: limit must be positive, got %d", ErrInvalidInput, limit)
	}
	if limit > e.cfg.MaxBatchSize {
		limit = e.cfg.MaxBatchSize
	}

	var batch *SwipeBatch
	var err error
	if onboarding {
		batch, err = e.onboardingBatch(ctx, userID, limit)
	} else {
		batch, err = e.personalizedBatch(ctx, userID, limit)
	}
	if err != nil {
		return nil, err
	}
	if len(batch.Albums) == 0 {
		metrics.Get().RecommendationEmptyResults.WithLabelValues(flow).Inc()
		return nil, fmt.Errorf("%w: swipe batch for user %s", ErrNoCandidates, userID)
	}
	for _, a := range batch.Albums {
		metrics.Get().RecommendationsServed.WithLabelValues(flow, string(a.Pool)).Inc()
	}
	return batch, nil
}

func (e *Engine) personalizedBatch(ctx context.Context, userID string, limit int) (*SwipeBatch, error) {
	weights, err := e.cfg.Modes.Weights(ModeSmart)
	if err != nil {
		return nil, err
	}
	profile, skips, excluded, err := e.loadSignals(ctx, userID)
	if err != nil {
		return nil, err
	}

	scored, set := e.candidates(ctx, profile, skips, excluded, limit*e.cfg.PoolSizeMultiplier, weights)

	_, span := e.tracer.Start(ctx, "recommend.select")
	selected := e.selector.Select(scored, SelectOptions{
		Limit:           limit,
		Adventurousness: profile.Adventurousness,
		IgnoreScores:    weights.IgnoreScores,
		Excluded:        excluded,
	})
	span.SetAttributes(attribute.Int("selected", len(selected)))
	span.End()

	batch := &SwipeBatch{
		Albums:     selected,
		PoolCounts: make(map[Pool]int, len(poolOrder)),
		Degraded:   set.Degraded,
	}
	for i := range batch.Albums {
		batch.Albums[i].Reason = explain(batch.Albums[i], profile, ModeSmart)
		batch.PoolCounts[batch.Albums[i].Pool]++
	}
	return batch, nil
}

// onboardingBatch ignores personalization so that it works before the
// first review; it only hides albums the user reviewed or skipped
func (e *Engine) onboardingBatch(ctx context.Context, userID string, limit int) (*SwipeBatch, error) {
	weights, err := e.cfg.Modes.Weights(ModeQuality)
	if err != nil {
		return nil, err
	}

	var (
		reviewed []string
		events   []SkipEvent
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		reviewed, err = e.history.ReviewedAlbumIDs(gctx, userID)
		if err != nil {
			return fmt.Errorf("load reviewed albums: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		var err error
		events, err = e.history.UserSkips(gctx, userID)
		if err != nil {
			return fmt.Errorf("load skips: %w", err)
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	skips := AggregateSkips(events, e.now(), e.cfg.SkipResurfaceWindow)
	excluded := excludedIDs(nil, skips, reviewed)

	albums, err := e.retriever.Onboarding(ctx, excluded, limit*e.cfg.PoolSizeMultiplier)
	if err != nil {
		logger.Log.Warn("Recommendation source failed",
			zap.String("source", flowOnboarding),
			zap.Error(err))
		metrics.Get().RecommendationPoolFailures.WithLabelValues(flowOnboarding).Inc()
		return &SwipeBatch{Onboarding: true, Degraded: []Pool{PoolQuality}}, nil
	}

	sc := &ScoreContext{Skips: skips, Weights: weights}
	scored := make([]ScoredCandidate, 0, len(albums))
	for _, a := range albums {
		c := e.scorer.Score(a, PoolQuality, sc)
		c.Reason = explain(c, nil, ModeQuality)
		scored = append(scored, c)
	}
	e.rng.Shuffle(len(scored), func(i, j int) {
		scored[i], scored[j] = scored[j], scored[i]
	})
	scored = dedupByKey(scored)
	if len(scored) > limit {
		scored = scored[:limit]
	}
	return &SwipeBatch{
		Albums:     scored,
		Onboarding: true,
		PoolCounts: map[Pool]int{PoolQuality: len(scored)},
	}, nil
}

// GetCompatibility compares two users' taste profiles from userA's side
func (e *Engine) GetCompatibility(ctx context.Context, userA, userB string) (*CompatibilityResult, error) {
	start := time.Now()
	defer func() {
		metrics.Get().RecommendationDuration.WithLabelValues(flowCompatibility).Observe(time.Since(start).Seconds())
	}()

	if err := requireUser(userA); err != nil {
		return nil, err
	}
	if err := requireUser(userB); err != nil {
		return nil, err
	}
	if userA == userB {
		return nil, fmt.Errorf("%w: cannot compare a user with themselves", ErrInvalidInput)
	}

	var a, b *TasteProfile
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		a, err = e.GetTasteProfile(gctx, userA)
		return err
	})
	g.Go(func() error {
		var err error
		b, err = e.GetTasteProfile(gctx, userB)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	result := Compare(a, b, e.cfg.Compatibility)
	return &result, nil
}

// candidates fetches every pool and scores its albums. An album found by
// several pools is kept only in the first one in poolOrder.
func (e *Engine) candidates(ctx context.Context, profile *TasteProfile, skips SkipSignals, excluded map[string]struct{}, size int, weights ModeWeights) (map[Pool][]ScoredCandidate, PoolSet) {
	fctx, span := e.tracer.Start(ctx, "recommend.fetch_pools")
	set := e.retriever.Fetch(fctx, profile, excluded, size)
	if len(set.Degraded) > 0 {
		degraded := make([]string, len(set.Degraded))
		for i, p := range set.Degraded {
			degraded[i] = string(p)
		}
		span.SetAttributes(attribute.String("degraded_pools", strings.Join(degraded, ",")))
	}
	span.End()

	_, span = e.tracer.Start(ctx, "recommend.score")
	defer span.End()

	sc := &ScoreContext{
		Profile:       profile,
		Skips:         skips,
		ArtistWeights: profile.artistWeights(e.cfg.Profile),
		Boosted:       set.Boosted,
		Weights:       weights,
	}
	seen := make(map[string]bool)
	scored := make(map[Pool][]ScoredCandidate, len(poolOrder))
	total := 0
	for _, pool := range poolOrder {
		for _, album := range set.Albums[pool] {
			if seen[album.ID] {
				continue
			}
			seen[album.ID] = true
			scored[pool] = append(scored[pool], e.scorer.Score(album, pool, sc))
			total++
		}
	}
	span.SetAttributes(attribute.Int("candidates", total))
	return scored, set
}

// excludedIDs merges skip exclusions with every album the user already
// reviewed. profile may be nil.
func excludedIDs(profile *TasteProfile, skips SkipSignals, reviewed []string) map[string]struct{} {
	out := make(map[string]struct{}, len(skips.ExcludedAlbumIDs)+len(reviewed))
	for id := range skips.ExcludedAlbumIDs {
		out[id] = struct{}{}
	}
	for _, id := range reviewed {
		out[id] = struct{}{}
	}
	if profile != nil {
		for id := range profile.AlbumRatings {
			out[id] = struct{}{}
		}
	}
	return out
}

func requireUser(userID string) error {
	if strings.TrimSpace(userID) == "" {
		return fmt.Errorf("%w: user id is required", ErrInvalidInput)
	}
	return nil
}

// IsEngineError reports whether err is one of the engine's expected outcomes
// rather than a store failure
func IsEngineError(err error) bool {
	return errors.Is(err, ErrPreconditionUnmet) || errors.Is(err, ErrNoCandidates) || errors.Is(err, ErrInvalidInput)
}
