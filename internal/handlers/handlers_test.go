package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sh6drack/actually-waxfeed-sub002/internal/database"
	"github.com/sh6drack/actually-waxfeed-sub002/internal/kernel"
	"github.com/sh6drack/actually-waxfeed-sub002/internal/models"
	"github.com/sh6drack/actually-waxfeed-sub002/internal/recommend"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
	"gorm.io/gorm"
)

var catalogFixture = []struct {
	id, title, artist string
	genres            []string
}{
	{"a01", "Kind of Blue", "Miles Davis", []string{"jazz", "modal"}},
	{"a02", "Blue Train", "John Coltrane", []string{"jazz", "hard bop"}},
	{"a03", "Mingus Ah Um", "Charles Mingus", []string{"jazz"}},
	{"a04", "Bitches Brew", "Miles Davis", []string{"jazz", "fusion"}},
	{"a05", "A Love Supreme", "John Coltrane", []string{"jazz", "spiritual"}},
	{"a06", "Head Hunters", "Herbie Hancock", []string{"jazz", "funk"}},
	{"a07", "What's Going On", "Marvin Gaye", []string{"soul"}},
	{"a08", "Maggot Brain", "Funkadelic", []string{"funk", "rock"}},
	{"a09", "Unknown Pleasures", "Joy Division", []string{"post-punk"}},
	{"a10", "Loveless", "My Bloody Valentine", []string{"shoegaze"}},
	{"a11", "Selected Ambient Works", "Aphex Twin", []string{"electronic", "ambient"}},
	{"a12", "Blue Lines", "Massive Attack", []string{"trip hop", "electronic"}},
}

// RecommendationsTestSuite tests the recommendation handlers end to end over sqlite
type RecommendationsTestSuite struct {
	suite.Suite
	db     *gorm.DB
	kernel *kernel.Kernel
	router *gin.Engine
}

func (s *RecommendationsTestSuite) SetupTest() {
	db, err := database.OpenSQLite(":memory:", nil)
	s.Require().NoError(err)
	s.Require().NoError(database.MigrateDB(db))
	s.db = db

	cfg := recommend.DefaultConfig()
	cfg.EligibilityMinReviews = 2

	k, err := kernel.Bootstrap(db, nil, kernel.Options{
		Engine:        cfg,
		JWTSecret:     []byte("handler-test-secret"),
		EngineOptions: []recommend.Option{recommend.WithSeed(7)},
	})
	s.Require().NoError(err)
	s.kernel = k

	gin.SetMode(gin.TestMode)
	s.router = gin.New()
	NewHandlers(k).RegisterRoutes(s.router.Group("/api/v1"))

	s.seed()
}

func (s *RecommendationsTestSuite) TearDownTest() {
	if sqlDB, err := s.db.DB(); err == nil {
		sqlDB.Close()
	}
}

func (s *RecommendationsTestSuite) seed() {
	ctx := context.Background()
	for i, a := range catalogFixture {
		rank := i + 1
		s.Require().NoError(s.kernel.Catalog().CreateAlbum(ctx, &models.Album{
			ID: a.id, Title: a.title, ArtistName: a.artist, Genres: a.genres, ChartRank: &rank,
		}))
	}
	for _, id := range []string{"u1", "u2", "u3", "u4"} {
		s.Require().NoError(s.kernel.Users().CreateUser(ctx, &models.User{ID: id, Username: id, DisplayName: id}))
	}

	s.review("u1", "a01", 9)
	s.review("u1", "a02", 8)
	s.review("u1", "a03", 7)

	s.review("u2", "a01", 8)
	s.review("u2", "a04", 9)
	s.review("u2", "a07", 6)

	for _, a := range catalogFixture {
		s.review("u3", a.id, 7)
	}
}

func (s *RecommendationsTestSuite) review(userID, albumID string, rating float64) {
	s.Require().NoError(s.kernel.History().CreateReview(context.Background(), &models.Review{
		UserID: userID, AlbumID: albumID, Rating: rating,
	}))
}

func (s *RecommendationsTestSuite) token(userID string) string {
	token, _, err := s.kernel.Tokens().GenerateToken(userID, userID, time.Hour)
	s.Require().NoError(err)
	return token
}

func (s *RecommendationsTestSuite) do(method, path, userID string, body interface{}) (*httptest.ResponseRecorder, map[string]interface{}) {
	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		s.Require().NoError(err)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if userID != "" {
		req.Header.Set("Authorization", "Bearer "+s.token(userID))
	}
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)

	var out map[string]interface{}
	if w.Body.Len() > 0 {
		s.Require().NoError(json.Unmarshal(w.Body.Bytes(), &out), w.Body.String())
	}
	return w, out
}

func albumIDs(s *RecommendationsTestSuite, body map[string]interface{}) []string {
	raw, ok := body["albums"].([]interface{})
	s.Require().True(ok, "albums missing: %v", body)
	ids := make([]string, 0, len(raw))
	for _, item := range raw {
		ids = append(ids, item.(map[string]interface{})["id"].(string))
	}
	return ids
}

func (s *RecommendationsTestSuite) TestRequiresAuth() {
	w, body := s.do("GET", "/api/v1/recommendations/random", "", nil)
	s.Equal(http.StatusUnauthorized, w.Code)
	s.Equal("UNAUTHORIZED", body["code"])
}

func (s *RecommendationsTestSuite) TestRandom_NotEligible() {
	w, body := s.do("GET", "/api/v1/recommendations/random", "u4", nil)
	s.Equal(http.StatusOK, w.Code)
	s.Equal(false, body["eligible"])
	s.Equal("NOT_ELIGIBLE", body["code"])
	s.EqualValues(0, body["review_count"])
	s.EqualValues(2, body["required_reviews"])
}

func (s *RecommendationsTestSuite) TestRandom_InvalidMode() {
	w, body := s.do("GET", "/api/v1/recommendations/random?mode=loud", "u1", nil)
	s.Equal(http.StatusBadRequest, w.Code)
	s.Equal("VALIDATION_ERROR", body["code"])
	s.Equal("mode", body["field"])
}

func (s *RecommendationsTestSuite) TestRandom_ServesUnreviewedAlbum() {
	reviewed := map[string]bool{"a01": true, "a02": true, "a03": true}

	for _, mode := range []string{"smart", "discovery", "quality", "pure-random"} {
		w, body := s.do("GET", "/api/v1/recommendations/random?mode="+mode, "u1", nil)
		s.Require().Equal(http.StatusOK, w.Code, w.Body.String())
		s.Equal(true, body["eligible"])
		s.Equal(mode, body["mode"])

		album := body["album"].(map[string]interface{})
		s.False(reviewed[album["id"].(string)], "mode %s served a reviewed album", mode)

		score := body["score"].(float64)
		s.GreaterOrEqual(score, 0.0)
		s.LessOrEqual(score, 100.0)
		s.NotEmpty(body["reason"])

		stats := body["user_stats"].(map[string]interface{})
		s.EqualValues(3, stats["review_count"])
	}
}

func (s *RecommendationsTestSuite) TestSwipe_Personalized() {
	w, body := s.do("GET", "/api/v1/recommendations/swipe?limit=5", "u1", nil)
	s.Require().Equal(http.StatusOK, w.Code, w.Body.String())
	s.Equal(false, body["onboarding"])

	ids := albumIDs(s, body)
	s.NotEmpty(ids)
	s.LessOrEqual(len(ids), 5)
	seen := make(map[string]bool)
	for _, id := range ids {
		s.NotContains([]string{"a01", "a02", "a03"}, id)
		s.False(seen[id], "duplicate %s", id)
		seen[id] = true
	}
}

func (s *RecommendationsTestSuite) TestSwipe_InvalidLimit() {
	for _, limit := range []string{"0", "-3", "51"} {
		w, body := s.do("GET", "/api/v1/recommendations/swipe?limit="+limit, "u1", nil)
		s.Equal(http.StatusBadRequest, w.Code, "limit=%s", limit)
		s.Equal("limit", body["field"])
	}
}

func (s *RecommendationsTestSuite) TestSwipe_LimitFollowsEngineBatchCap() {
	cfg := recommend.DefaultConfig()
	cfg.EligibilityMinReviews = 2
	cfg.MaxBatchSize = 5
	k, err := kernel.Bootstrap(s.db, nil, kernel.Options{
		Engine:        cfg,
		JWTSecret:     []byte("handler-test-secret"),
		EngineOptions: []recommend.Option{recommend.WithSeed(7)},
	})
	s.Require().NoError(err)
	s.kernel = k
	s.router = gin.New()
	NewHandlers(k).RegisterRoutes(s.router.Group("/api/v1"))

	w, body := s.do("GET", "/api/v1/recommendations/swipe?limit=6", "u1", nil)
	s.Equal(http.StatusBadRequest, w.Code)
	s.Equal("limit", body["field"])

	w, _ = s.do("GET", "/api/v1/recommendations/swipe?limit=5", "u1", nil)
	s.Equal(http.StatusOK, w.Code)
}

func (s *RecommendationsTestSuite) TestSwipe_OnboardingWithoutHistory() {
	w, body := s.do("GET", "/api/v1/recommendations/swipe?limit=8&onboarding=true", "u4", nil)
	s.Require().Equal(http.StatusOK, w.Code, w.Body.String())
	s.Equal(true, body["onboarding"])
	s.Len(albumIDs(s, body), 8)

	w, body = s.do("GET", "/api/v1/recommendations/swipe?limit=8", "u4", nil)
	s.Equal(http.StatusOK, w.Code)
	s.Equal("NOT_ELIGIBLE", body["code"])
}

func (s *RecommendationsTestSuite) TestSwipe_NoCandidates() {
	w, body := s.do("GET", "/api/v1/recommendations/swipe?limit=5", "u3", nil)
	s.Equal(http.StatusOK, w.Code)
	s.Equal("NO_CANDIDATES", body["code"])
	s.Empty(body["albums"])
}

func (s *RecommendationsTestSuite) TestSkip_ExcludesAlbum() {
	w, body := s.do("POST", "/api/v1/recommendations/a06/skip", "u1", map[string]string{"reason": "not_interested"})
	s.Require().Equal(http.StatusOK, w.Code, w.Body.String())
	s.Equal(true, body["permanent"])

	for i := 0; i < 3; i++ {
		w, body = s.do("GET", "/api/v1/recommendations/swipe?limit=50", "u1", nil)
		s.Require().Equal(http.StatusOK, w.Code, w.Body.String())
		s.NotContains(albumIDs(s, body), "a06")
	}
}

func (s *RecommendationsTestSuite) TestSkip_Validation() {
	w, _ := s.do("POST", "/api/v1/recommendations/a06/skip", "u1", map[string]string{"reason": "meh"})
	s.Equal(http.StatusBadRequest, w.Code)

	w, _ = s.do("POST", "/api/v1/recommendations/missing/skip", "u1", nil)
	s.Equal(http.StatusNotFound, w.Code)

	w, body := s.do("POST", "/api/v1/recommendations/a06/skip", "u1", nil)
	s.Equal(http.StatusOK, w.Code)
	s.Equal(false, body["permanent"])
}

func (s *RecommendationsTestSuite) TestCompatibility() {
	w, body := s.do("GET", "/api/v1/recommendations/compatibility/u2", "u1", nil)
	s.Require().Equal(http.StatusOK, w.Code, w.Body.String())
	result := body["compatibility"].(map[string]interface{})
	s.Equal("u1", result["user_a"])
	s.Equal("u2", result["user_b"])
	s.Contains(result["shared_genres"], "jazz")
	s.NotEmpty(result["match_type"])

	w, body = s.do("GET", "/api/v1/recommendations/compatibility/u1", "u1", nil)
	s.Equal(http.StatusBadRequest, w.Code)

	w, body = s.do("GET", "/api/v1/recommendations/compatibility/u4", "u1", nil)
	s.Equal(http.StatusOK, w.Code)
	s.Equal("NOT_ELIGIBLE", body["code"])
}

func (s *RecommendationsTestSuite) TestProfile() {
	w, body := s.do("GET", "/api/v1/recommendations/profile", "u1", nil)
	s.Require().Equal(http.StatusOK, w.Code, w.Body.String())
	s.Equal(true, body["eligible"])
	profile := body["profile"].(map[string]interface{})
	s.EqualValues(3, profile["review_count"])
	s.Contains(profile["top_genres"], "jazz")

	w, body = s.do("GET", "/api/v1/recommendations/profile", "u4", nil)
	s.Equal(http.StatusOK, w.Code)
	s.Equal(false, body["eligible"])
}

func (s *RecommendationsTestSuite) TestUpdateSettings() {
	w, _ := s.do("PUT", "/api/v1/recommendations/settings", "u1", map[string]interface{}{"adventurousness": 1.5})
	s.Equal(http.StatusBadRequest, w.Code)

	w, _ = s.do("PUT", "/api/v1/recommendations/settings", "u1", map[string]interface{}{
		"audio_preferences": map[string]interface{}{"loudness": map[string]float64{"min": 0, "max": 1}},
	})
	s.Equal(http.StatusBadRequest, w.Code)

	w, _ = s.do("PUT", "/api/v1/recommendations/settings", "u1", map[string]interface{}{
		"adventurousness": 0.9,
		"audio_preferences": map[string]interface{}{
			"energy": map[string]float64{"min": 0.4, "max": 0.9, "sweet_spot": 0.7, "weight": 1},
		},
	})
	s.Require().Equal(http.StatusOK, w.Code, w.Body.String())

	settings, err := s.kernel.History().UserSettings(context.Background(), "u1")
	s.Require().NoError(err)
	s.Require().NotNil(settings.Adventurousness)
	s.InDelta(0.9, *settings.Adventurousness, 1e-9)
	s.InDelta(0.7, settings.AudioPreferences["energy"].SweetSpot, 1e-9)

	w, body := s.do("GET", "/api/v1/recommendations/profile", "u1", nil)
	s.Require().Equal(http.StatusOK, w.Code)
	s.InDelta(0.9, body["profile"].(map[string]interface{})["adventurousness"].(float64), 1e-9)
}

func (s *RecommendationsTestSuite) TestClickAndCTR() {
	ctx := context.Background()
	served := []recommend.ScoredCandidate{
		{CandidateAlbum: recommend.CandidateAlbum{ID: "a04"}, Pool: recommend.PoolArtist, Score: 0.9},
		{CandidateAlbum: recommend.CandidateAlbum{ID: "a05"}, Pool: recommend.PoolArtist, Score: 0.8},
	}
	s.Require().NoError(s.kernel.Tracker().RecordImpressions(ctx, "u1", "swipe", "", served))

	w, body := s.do("POST", "/api/v1/recommendations/a05/click", "u1", nil)
	s.Require().Equal(http.StatusOK, w.Code, w.Body.String())
	s.Equal("artist", body["pool"])
	s.EqualValues(1, body["position"])

	w, body = s.do("GET", "/api/v1/recommendations/ctr?since=1h", "u1", nil)
	s.Require().Equal(http.StatusOK, w.Code, w.Body.String())
	metrics := body["metrics"].([]interface{})
	s.Len(metrics, 5)
	artist := metrics[0].(map[string]interface{})
	s.Equal("artist", artist["pool"])
	s.EqualValues(2, artist["impressions"])
	s.EqualValues(1, artist["clicks"])
	s.InDelta(50.0, artist["ctr"].(float64), 1e-9)
}

func TestRecommendationsTestSuite(t *testing.T) {
	suite.Run(t, new(RecommendationsTestSuite))
}

func TestCatalogFixtureIsUnique(t *testing.T) {
	seen := make(map[string]bool)
	for _, a := range catalogFixture {
		key := fmt.Sprintf("%s|%s", a.title, a.artist)
		require.False(t, seen[key], key)
		seen[key] = true
	}
}
