package repository

import (
	"context"
	"testing"
	"time"

	"github.com/sh6drack/actually-waxfeed-sub002/internal/database"
	"github.com/sh6drack/actually-waxfeed-sub002/internal/models"
	"github.com/sh6drack/actually-waxfeed-sub002/internal/recommend"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := database.OpenSQLite(":memory:", nil)
	require.NoError(t, err)
	require.NoError(t, database.MigrateDB(db))
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			sqlDB.Close()
		}
	})
	return db
}

func ptrFloat(v float64) *float64 { return &v }
func ptrInt(v int) *int           { return &v }

type fixture struct {
	db      *gorm.DB
	catalog CatalogRepository
	history HistoryRepository
	users   UserRepository
}

func newFixture(t *testing.T) *fixture {
	db := setupTestDB(t)
	return &fixture{
		db:      db,
		catalog: NewCatalogRepository(db),
		history: NewHistoryRepository(db),
		users:   NewUserRepository(db),
	}
}

func (f *fixture) album(t *testing.T, id, title, artist string, genres ...string) *models.Album {
	t.Helper()
	a := &models.Album{ID: id, Title: title, ArtistName: artist, Genres: genres}
	require.NoError(t, f.catalog.CreateAlbum(context.Background(), a))
	return a
}

func (f *fixture) user(t *testing.T, id string) {
	t.Helper()
	require.NoError(t, f.users.CreateUser(context.Background(), &models.User{ID: id, Username: id, DisplayName: id}))
}

func (f *fixture) review(t *testing.T, userID, albumID string, rating float64) {
	t.Helper()
	require.NoError(t, f.history.CreateReview(context.Background(), &models.Review{UserID: userID, AlbumID: albumID, Rating: rating}))
}

func ids(albums []recommend.CandidateAlbum) []string {
	out := make([]string, len(albums))
	for i, a := range albums {
		out[i] = a.ID
	}
	return out
}

func TestCatalogRepository_GenreFilters(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.album(t, "a1", "Blue Train", "John Coltrane", "Jazz", "Hard Bop")
	f.album(t, "a2", "Maggot Brain", "Funkadelic", "funk", "rock")
	f.album(t, "a3", "Jazz Funk Odyssey", "Various", "jazz-funk")
	f.album(t, "a4", "Untitled", "Nobody")

	got, err := f.catalog.FindAlbums(ctx, recommend.AlbumFilter{AnyGenres: []string{"jazz"}}, recommend.Page{})
	require.NoError(t, err)
	assert.Equal(t, []string{"a1"}, ids(got), "genre tokens match whole, not by substring")

	got, err = f.catalog.FindAlbums(ctx, recommend.AlbumFilter{AnyGenres: []string{"rock", "hard bop"}}, recommend.Page{})
	require.NoError(t, err)
	assert.Equal(t, []string{"a1", "a2"}, ids(got))

	got, err = f.catalog.FindAlbums(ctx, recommend.AlbumFilter{NoneGenres: []string{"jazz", "funk"}}, recommend.Page{})
	require.NoError(t, err)
	assert.Equal(t, []string{"a3", "a4"}, ids(got))

	count, err := f.catalog.CountAlbums(ctx, recommend.AlbumFilter{NoneGenres: []string{"jazz"}, ExcludeIDs: []string{"a4"}})
	require.NoError(t, err)
	assert.Equal(t, int64(2), count)
}

func TestCatalogRepository_ArtistFilterIsCaseInsensitive(t *testing.T) {
	f := newFixture(t)
	f.album(t, "a1", "Untrue", "Burial", "electronic")
	f.album(t, "a2", "Rounds", "Four Tet", "electronic")

	got, err := f.catalog.FindAlbums(context.Background(), recommend.AlbumFilter{Artists: []string{" BURIAL"}}, recommend.Page{})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "Untrue", got[0].Title)
	assert.Equal(t, []string{"electronic"}, got[0].Genres)
}

func TestCatalogRepository_QualityOrderingAndPaging(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	charted := f.album(t, "c2", "Charted Two", "X", "pop")
	require.NoError(t, f.catalog.SetChartRank(ctx, charted.ID, ptrInt(2)))
	charted = f.album(t, "c1", "Charted One", "Y", "pop")
	require.NoError(t, f.catalog.SetChartRank(ctx, charted.ID, ptrInt(1)))

	f.album(t, "r1", "Reviewed", "Z", "pop")
	f.album(t, "r2", "Thin", "W", "pop")
	for i, u := range []string{"u1", "u2", "u3"} {
		f.user(t, u)
		f.review(t, u, "r1", 8+float64(i)*0.5)
	}
	f.review(t, "u1", "r2", 10)

	filter := recommend.AlbumFilter{QualityOnly: true, MinRating: 7.5, MinReviews: 3, OrderByQuality: true}
	got, err := f.catalog.FindAlbums(ctx, filter, recommend.Page{})
	require.NoError(t, err)
	assert.Equal(t, []string{"c1", "c2", "r1"}, ids(got), "chart rank first, then rating; thin reviews excluded")
	assert.Equal(t, 3, got[2].TotalReviews)
	require.NotNil(t, got[2].CommunityAverageRating)
	assert.InDelta(t, 8.5, *got[2].CommunityAverageRating, 1e-9)

	page, err := f.catalog.FindAlbums(ctx, filter, recommend.Page{Offset: 1, Limit: 1})
	require.NoError(t, err)
	assert.Equal(t, []string{"c2"}, ids(page))
}

func TestCatalogRepository_AudioProfileNeedsEveryFeature(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	full := &models.Album{ID: "full", Title: "Full", ArtistName: "A",
		Energy: ptrFloat(0.7), Valence: ptrFloat(0.4), Danceability: ptrFloat(0.6), Acousticness: ptrFloat(0.1), Tempo: ptrFloat(0.5)}
	partial := &models.Album{ID: "partial", Title: "Partial", ArtistName: "B", Energy: ptrFloat(0.7)}
	require.NoError(t, f.catalog.CreateAlbum(ctx, full))
	require.NoError(t, f.catalog.CreateAlbum(ctx, partial))

	got, err := f.catalog.FindAlbums(ctx, recommend.AlbumFilter{}, recommend.Page{})
	require.NoError(t, err)
	require.Len(t, got, 2)
	require.NotNil(t, got[0].AudioProfile)
	assert.Equal(t, 0.7, got[0].AudioProfile.Energy)
	assert.Nil(t, got[1].AudioProfile)
}

func TestHistoryRepository_ReviewsAndSkips(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.user(t, "u1")
	f.album(t, "a1", "One", "Artist One", "jazz")
	f.album(t, "a2", "Two", "Artist Two", "soul")

	f.review(t, "u1", "a1", 9)
	time.Sleep(2 * time.Millisecond)
	f.review(t, "u1", "a2", 6)

	reviews, err := f.history.UserReviews(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, reviews, 2)
	assert.Equal(t, "a1", reviews[0].AlbumID, "oldest first")
	assert.Equal(t, "Artist One", reviews[0].ArtistName)
	assert.Equal(t, []string{"jazz"}, reviews[0].Genres)

	reviewedIDs, err := f.history.ReviewedAlbumIDs(ctx, "u1")
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"a1", "a2"}, reviewedIDs)

	none, err := f.history.ReviewedAlbumIDs(ctx, "nobody")
	require.NoError(t, err)
	assert.Empty(t, none)

	_, err = f.history.RecordSkip(ctx, "u1", "a2", recommend.SkipNotNow)
	require.NoError(t, err)
	_, err = f.history.RecordSkip(ctx, "u1", "missing", recommend.SkipNotNow)
	assert.ErrorIs(t, err, ErrAlbumNotFound)
	_, err = f.history.RecordSkip(ctx, "u1", "a2", "bored")
	assert.ErrorIs(t, err, ErrInvalidInput)

	skips, err := f.history.UserSkips(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, skips, 1)
	assert.Equal(t, recommend.SkipNotNow, skips[0].Reason)
	assert.Equal(t, []string{"soul"}, skips[0].Genres)

	count, err := f.history.GetReviewCount(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, int64(2), count)
}

func TestHistoryRepository_CreateReviewValidates(t *testing.T) {
	f := newFixture(t)
	err := f.history.CreateReview(context.Background(), &models.Review{UserID: "u", AlbumID: "a", Rating: 11})
	assert.ErrorIs(t, err, ErrInvalidInput)
	assert.ErrorIs(t, f.history.CreateReview(context.Background(), nil), ErrInvalidInput)
}

func TestHistoryRepository_Settings(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	settings, err := f.history.UserSettings(ctx, "ghost")
	require.NoError(t, err)
	assert.Nil(t, settings)

	f.user(t, "u1")
	settings, err = f.history.UserSettings(ctx, "u1")
	require.NoError(t, err)
	require.NotNil(t, settings)
	assert.Nil(t, settings.Adventurousness)
	assert.Empty(t, settings.AudioPreferences)

	prefs := recommend.AudioPreferences{
		recommend.FeatureEnergy: {Min: 0.5, Max: 0.9, SweetSpot: 0.7, Weight: 1},
	}
	require.NoError(t, f.users.UpdateRecommendationSettings(ctx, "u1", ptrFloat(0.8), prefs))

	settings, err = f.history.UserSettings(ctx, "u1")
	require.NoError(t, err)
	require.NotNil(t, settings.Adventurousness)
	assert.Equal(t, 0.8, *settings.Adventurousness)
	assert.Equal(t, prefs, settings.AudioPreferences)

	assert.ErrorIs(t, f.users.UpdateRecommendationSettings(ctx, "u1", ptrFloat(1.5), nil), ErrInvalidInput)
	assert.ErrorIs(t, f.users.UpdateRecommendationSettings(ctx, "ghost", nil, nil), ErrUserNotFound)
}

func TestHistoryRepository_SimilarUserAlbums(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	for _, u := range []string{"me", "twin", "other", "lukewarm"} {
		f.user(t, u)
	}
	f.album(t, "jazz1", "J1", "A", "jazz")
	f.album(t, "jazz2", "J2", "B", "jazz")
	f.album(t, "rock1", "R1", "C", "rock")
	f.album(t, "soul1", "S1", "D", "soul")

	f.review(t, "me", "jazz1", 9)
	f.review(t, "twin", "jazz1", 9)
	f.review(t, "twin", "soul1", 10)
	f.review(t, "twin", "rock1", 8.5)
	f.review(t, "twin", "jazz2", 3)
	f.review(t, "other", "rock1", 10)
	f.review(t, "lukewarm", "jazz2", 6)

	got, err := f.history.SimilarUserAlbums(ctx, "me", []string{"jazz"}, 8, 50, 200)
	require.NoError(t, err)
	assert.Equal(t, []string{"soul1", "jazz1", "rock1"}, got)

	capped, err := f.history.SimilarUserAlbums(ctx, "me", []string{"jazz"}, 8, 50, 1)
	require.NoError(t, err)
	assert.Equal(t, []string{"soul1"}, capped)

	none, err := f.history.SimilarUserAlbums(ctx, "me", nil, 8, 50, 200)
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestUserRepository(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.user(t, "Alice")
	f.user(t, "bob")

	u, err := f.users.GetUserByUsername(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, "Alice", u.ID)

	_, err = f.users.GetUser(ctx, "nobody")
	assert.ErrorIs(t, err, ErrUserNotFound)

	all, err := f.users.ListUserIDs(ctx, 0)
	require.NoError(t, err)
	assert.Len(t, all, 2)

	count, err := f.users.GetTotalUserCount(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(2), count)
}
