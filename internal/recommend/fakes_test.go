package recommend

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"
)

// fakeCatalog is an in-memory CatalogStore honoring every AlbumFilter field
type fakeCatalog struct {
	mu     sync.Mutex
	albums []CandidateAlbum
	// fail lets a test break the queries matching a filter
	fail  func(ctx context.Context, f AlbumFilter) error
	calls int
}

func newFakeCatalog(albums ...CandidateAlbum) *fakeCatalog {
	return &fakeCatalog{albums: albums}
}

func (c *fakeCatalog) CountAlbums(ctx context.Context, f AlbumFilter) (int64, error) {
	if err := c.check(ctx, f); err != nil {
		return 0, err
	}
	return int64(len(c.match(f))), nil
}

func (c *fakeCatalog) FindAlbums(ctx context.Context, f AlbumFilter, page Page) ([]CandidateAlbum, error) {
	if err := c.check(ctx, f); err != nil {
		return nil, err
	}
	rows := c.match(f)
	if page.Offset >= len(rows) {
		return []CandidateAlbum{}, nil
	}
	end := len(rows)
	if page.Limit > 0 && page.Offset+page.Limit < end {
		end = page.Offset + page.Limit
	}
	return rows[page.Offset:end], nil
}

func (c *fakeCatalog) check(ctx context.Context, f AlbumFilter) error {
	c.mu.Lock()
	c.calls++
	fail := c.fail
	c.mu.Unlock()
	if fail != nil {
		return fail(ctx, f)
	}
	return nil
}

func (c *fakeCatalog) match(f AlbumFilter) []CandidateAlbum {
	c.mu.Lock()
	defer c.mu.Unlock()

	excluded := toSet(f.ExcludeIDs)
	artists := make(map[string]bool, len(f.Artists))
	for _, a := range f.Artists {
		artists[strings.ToLower(strings.TrimSpace(a))] = true
	}
	anyGenres := toSet(normalizeGenres(f.AnyGenres))
	noneGenres := toSet(normalizeGenres(f.NoneGenres))

	var out []CandidateAlbum
	for _, a := range c.albums {
		if _, ok := excluded[a.ID]; ok {
			continue
		}
		if len(artists) > 0 && !artists[strings.ToLower(strings.TrimSpace(a.ArtistName))] {
			continue
		}
		genres := normalizeGenres(a.Genres)
		if len(anyGenres) > 0 && !intersects(genres, anyGenres) {
			continue
		}
		if len(noneGenres) > 0 && intersects(genres, noneGenres) {
			continue
		}
		if f.QualityOnly && a.ChartRank == nil && !a.WellReviewed(f.MinRating, f.MinReviews) {
			continue
		}
		out = append(out, a)
	}

	if f.OrderByQuality {
		sort.SliceStable(out, func(i, j int) bool {
			ri, rj := out[i].ChartRank, out[j].ChartRank
			if (ri == nil) != (rj == nil) {
				return ri != nil
			}
			if ri != nil && *ri != *rj {
				return *ri < *rj
			}
			return ratingOf(out[i]) > ratingOf(out[j])
		})
	} else {
		sort.SliceStable(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	}
	return out
}

func ratingOf(a CandidateAlbum) float64 {
	if a.CommunityAverageRating == nil {
		return 0
	}
	return *a.CommunityAverageRating
}

func toSet(items []string) map[string]struct{} {
	out := make(map[string]struct{}, len(items))
	for _, i := range items {
		out[i] = struct{}{}
	}
	return out
}

func intersects(genres []string, set map[string]struct{}) bool {
	for _, g := range genres {
		if _, ok := set[g]; ok {
			return true
		}
	}
	return false
}

// fakeHistory is an in-memory HistoryStore
type fakeHistory struct {
	mu          sync.Mutex
	reviews     map[string][]RatedAlbum
	skips       map[string][]SkipEvent
	settings    map[string]*UserSettings
	similar     map[string][]string
	reviewErr   error
	reviewCalls int
	// reviewGate, when set, holds UserReviews until it is closed or ctx ends
	reviewGate chan struct{}
}

func newFakeHistory() *fakeHistory {
	return &fakeHistory{
		reviews:  make(map[string][]RatedAlbum),
		skips:    make(map[string][]SkipEvent),
		settings: make(map[string]*UserSettings),
		similar:  make(map[string][]string),
	}
}

func (h *fakeHistory) UserReviews(ctx context.Context, userID string) ([]RatedAlbum, error) {
	h.mu.Lock()
	h.reviewCalls++
	gate := h.reviewGate
	h.mu.Unlock()

	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	if h.reviewErr != nil {
		return nil, h.reviewErr
	}
	return h.reviews[userID], nil
}

func (h *fakeHistory) ReviewedAlbumIDs(_ context.Context, userID string) ([]string, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	ids := make([]string, 0, len(h.reviews[userID]))
	for _, r := range h.reviews[userID] {
		ids = append(ids, r.AlbumID)
	}
	return ids, nil
}

func (h *fakeHistory) addReview(userID string, r RatedAlbum) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.reviews[userID] = append(h.reviews[userID], r)
}

func (h *fakeHistory) UserSkips(_ context.Context, userID string) ([]SkipEvent, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.skips[userID], nil
}

func (h *fakeHistory) UserSettings(_ context.Context, userID string) (*UserSettings, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.settings[userID], nil
}

func (h *fakeHistory) SimilarUserAlbums(_ context.Context, userID string, _ []string, _ float64, _, _ int) ([]string, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.similar[userID], nil
}

func (h *fakeHistory) calls() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.reviewCalls
}

// memoryProfileCache is a map-backed ProfileCache
type memoryProfileCache struct {
	mu       sync.Mutex
	profiles map[string]*TasteProfile
}

func (m *memoryProfileCache) GetProfile(_ context.Context, userID string) (*TasteProfile, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.profiles[userID]
	return p, ok
}

func (m *memoryProfileCache) SetProfile(_ context.Context, p *TasteProfile) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.profiles == nil {
		m.profiles = make(map[string]*TasteProfile)
	}
	m.profiles[p.UserID] = p
}

var testNow = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

func album(id, artist string, genres ...string) CandidateAlbum {
	return CandidateAlbum{
		ID:         id,
		Title:      "Album " + id,
		ArtistName: artist,
		Genres:     genres,
	}
}

func charted(a CandidateAlbum, rank int) CandidateAlbum {
	a.ChartRank = &rank
	return a
}

func reviewed(a CandidateAlbum, rating float64, count int) CandidateAlbum {
	a.CommunityAverageRating = &rating
	a.TotalReviews = count
	return a
}

func rated(albumID, artist string, rating float64, daysAgo int, genres ...string) RatedAlbum {
	return RatedAlbum{
		AlbumID:    albumID,
		ArtistName: artist,
		Genres:     genres,
		Rating:     rating,
		CreatedAt:  testNow.Add(-time.Duration(daysAgo) * 24 * time.Hour),
	}
}

// catalogOf builds n albums in one genre, with unique titles
func catalogOf(n int, prefix, genre string) []CandidateAlbum {
	out := make([]CandidateAlbum, n)
	for i := range out {
		out[i] = album(fmt.Sprintf("%s-%03d", prefix, i), fmt.Sprintf("Artist %s %d", prefix, i), genre)
	}
	return out
}

func newTestEngine(t interface{ Fatalf(string, ...interface{}) }, catalog CatalogStore, history HistoryStore, cfg Config, opts ...Option) *Engine {
	opts = append([]Option{WithSeed(42), WithClock(func() time.Time { return testNow })}, opts...)
	e, err := NewEngine(catalog, history, cfg, opts...)
	if err != nil {
		t.Fatalf("new engine: %v", err)
	}
	return e
}
