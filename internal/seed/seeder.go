// Package seed populates a development or test database with a believable
// album catalog, listeners and review histories.
package seed

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/brianvoe/gofakeit/v7"
	"github.com/sh6drack/actually-waxfeed-sub002/internal/logger"
	"github.com/sh6drack/actually-waxfeed-sub002/internal/models"
	"github.com/sh6drack/actually-waxfeed-sub002/internal/recommend"
	"github.com/sh6drack/actually-waxfeed-sub002/internal/repository"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// genreFamilies groups genres listeners tend to stay within; seeded users
// draw most reviews from one or two families
var genreFamilies = [][]string{
	{"jazz", "hard bop", "modal", "fusion", "spiritual jazz"},
	{"soul", "funk", "r&b", "neo-soul", "gospel"},
	{"rock", "post-punk", "shoegaze", "indie rock", "noise rock"},
	{"electronic", "ambient", "techno", "house", "idm"},
	{"hip-hop", "boom bap", "trap", "jazz rap", "abstract hip-hop"},
	{"folk", "singer-songwriter", "americana", "country", "bluegrass"},
	{"metal", "doom metal", "black metal", "sludge", "post-metal"},
	{"classical", "minimalism", "contemporary classical", "baroque", "opera"},
}

// Sizes controls how much data SeedDev creates
type Sizes struct {
	Artists      int
	Albums       int
	Users        int
	ChartedTop   int
	MinReviews   int
	MaxReviews   int
	SkipsPerUser int
}

// DefaultSizes is a catalog large enough to exercise every pool
func DefaultSizes() Sizes {
	return Sizes{
		Artists:      120,
		Albums:       600,
		Users:        80,
		ChartedTop:   100,
		MinReviews:   3,
		MaxReviews:   40,
		SkipsPerUser: 6,
	}
}

// Seeder handles database seeding operations
type Seeder struct {
	db      *gorm.DB
	faker   *gofakeit.Faker
	catalog repository.CatalogRepository
	history repository.HistoryRepository
	users   repository.UserRepository
}

// NewSeeder creates a new seeder. The same seed always produces the same data.
func NewSeeder(db *gorm.DB, seed uint64) *Seeder {
	return &Seeder{
		db:      db,
		faker:   gofakeit.New(seed),
		catalog: repository.NewCatalogRepository(db),
		history: repository.NewHistoryRepository(db),
		users:   repository.NewUserRepository(db),
	}
}

type seededArtist struct {
	name   string
	family int
}

// SeedDev seeds the development database with realistic data
func (s *Seeder) SeedDev(ctx context.Context, sizes Sizes) error {
	if sizes.Albums <= 0 || sizes.Artists <= 0 {
		return fmt.Errorf("seed: artists and albums must be positive")
	}

	logger.Log.Info("Creating albums...", zap.Int("albums", sizes.Albums), zap.Int("artists", sizes.Artists))
	albums, err := s.seedAlbums(ctx, s.seedArtists(sizes.Artists), sizes.Albums)
	if err != nil {
		return fmt.Errorf("failed to seed albums: %w", err)
	}

	logger.Log.Info("Creating users...", zap.Int("users", sizes.Users))
	users, err := s.seedUsers(ctx, sizes.Users)
	if err != nil {
		return fmt.Errorf("failed to seed users: %w", err)
	}

	logger.Log.Info("Creating reviews...")
	reviews, err := s.seedReviews(ctx, users, albums, sizes)
	if err != nil {
		return fmt.Errorf("failed to seed reviews: %w", err)
	}

	logger.Log.Info("Assigning chart ranks...", zap.Int("charted", sizes.ChartedTop))
	if err := s.seedChartRanks(ctx, albums, sizes.ChartedTop); err != nil {
		return fmt.Errorf("failed to seed chart ranks: %w", err)
	}

	logger.Log.Info("Creating skips...")
	if err := s.seedSkips(ctx, users, albums, sizes.SkipsPerUser); err != nil {
		return fmt.Errorf("failed to seed skips: %w", err)
	}

	logger.Log.Info("Development seed complete",
		zap.Int("albums", len(albums)),
		zap.Int("users", len(users)),
		zap.Int("reviews", reviews))
	return nil
}

// SeedTest seeds a small fixed catalog with named users for manual testing
func (s *Seeder) SeedTest(ctx context.Context) error {
	fixtures := []struct {
		title, artist string
		genres        []string
	}{
		{"Kind of Blue", "Miles Davis", []string{"jazz", "modal"}},
		{"A Love Supreme", "John Coltrane", []string{"jazz", "spiritual jazz"}},
		{"Head Hunters", "Herbie Hancock", []string{"jazz", "fusion", "funk"}},
		{"What's Going On", "Marvin Gaye", []string{"soul"}},
		{"Maggot Brain", "Funkadelic", []string{"funk", "rock"}},
		{"Unknown Pleasures", "Joy Division", []string{"post-punk"}},
		{"Loveless", "My Bloody Valentine", []string{"shoegaze"}},
		{"Selected Ambient Works 85-92", "Aphex Twin", []string{"electronic", "ambient"}},
		{"Illmatic", "Nas", []string{"hip-hop", "boom bap"}},
		{"Pink Moon", "Nick Drake", []string{"folk", "singer-songwriter"}},
		{"Master of Reality", "Black Sabbath", []string{"metal", "doom metal"}},
		{"Music for 18 Musicians", "Steve Reich", []string{"classical", "minimalism"}},
	}

	albums := make([]models.Album, 0, len(fixtures))
	for i, f := range fixtures {
		rank := i + 1
		album := models.Album{Title: f.title, ArtistName: f.artist, Genres: f.genres, ChartRank: &rank}
		if err := s.catalog.CreateAlbum(ctx, &album); err != nil {
			return fmt.Errorf("failed to create album %q: %w", f.title, err)
		}
		albums = append(albums, album)
	}

	ratings := map[string][]float64{
		"alice":   {9, 8, 9, 7, 6, 0, 0, 0, 0, 0, 0, 0},
		"bob":     {8, 9, 7, 8, 8, 0, 0, 0, 0, 0, 0, 0},
		"charlie": {0, 0, 0, 0, 5, 9, 10, 8, 0, 0, 7, 0},
		"diana":   {0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0},
	}
	for _, username := range []string{"alice", "bob", "charlie", "diana"} {
		user := models.User{Username: username, DisplayName: titleCase(username)}
		if err := s.users.CreateUser(ctx, &user); err != nil {
			return fmt.Errorf("failed to create user %s: %w", username, err)
		}
		for i, rating := range ratings[username] {
			if rating == 0 {
				continue
			}
			review := models.Review{UserID: user.ID, AlbumID: albums[i].ID, Rating: rating}
			if err := s.history.CreateReview(ctx, &review); err != nil {
				return fmt.Errorf("failed to create review: %w", err)
			}
		}
	}

	logger.Log.Info("Test seed complete", zap.Int("albums", len(albums)))
	return nil
}

// Clean removes all seeded rows, children first
func (s *Seeder) Clean(ctx context.Context) error {
	tables := []string{
		"recommendation_clicks",
		"recommendation_impressions",
		"skip_events",
		"reviews",
		"albums",
		"users",
	}
	for _, table := range tables {
		if err := s.db.WithContext(ctx).Exec("DELETE FROM " + table).Error; err != nil {
			return fmt.Errorf("failed to clean %s: %w", table, err)
		}
	}
	return nil
}

func (s *Seeder) seedArtists(count int) []seededArtist {
	artists := make([]seededArtist, 0, count)
	seen := make(map[string]bool, count)
	for len(artists) < count {
		name := s.artistName()
		if seen[name] {
			continue
		}
		seen[name] = true
		artists = append(artists, seededArtist{name: name, family: s.faker.IntRange(0, len(genreFamilies)-1)})
	}
	return artists
}

func (s *Seeder) artistName() string {
	switch s.faker.IntRange(0, 2) {
	case 0:
		return s.faker.Name()
	case 1:
		return "The " + titleCase(s.faker.Adjective()) + " " + titleCase(s.faker.Noun()) + "s"
	default:
		return titleCase(s.faker.HipsterWord()) + " " + titleCase(s.faker.Noun())
	}
}

func (s *Seeder) albumTitle() string {
	if s.faker.Bool() {
		return titleCase(s.faker.Adjective() + " " + s.faker.Noun())
	}
	return titleCase(s.faker.HipsterWord() + " " + s.faker.HipsterWord())
}

func (s *Seeder) seedAlbums(ctx context.Context, artists []seededArtist, count int) ([]models.Album, error) {
	albums := make([]models.Album, 0, count)
	seen := make(map[string]bool, count)

	for len(albums) < count {
		artist := artists[s.faker.IntRange(0, len(artists)-1)]
		title := s.albumTitle()
		key := strings.ToLower(title + "|" + artist.name)
		if seen[key] {
			continue
		}
		seen[key] = true

		album := models.Album{
			Title:      title,
			ArtistName: artist.name,
			Genres:     s.genresFor(artist.family),
			CoverURL:   fmt.Sprintf("https://picsum.photos/seed/%d/600", len(albums)),
		}
		released := s.faker.DateRange(time.Date(1955, 1, 1, 0, 0, 0, 0, time.UTC), time.Now())
		album.ReleaseDate = &released

		// most catalog entries carry audio analysis
		if s.faker.Float64Range(0, 1) < 0.75 {
			album.Energy = s.feature()
			album.Valence = s.feature()
			album.Danceability = s.feature()
			album.Acousticness = s.feature()
			album.Tempo = s.feature()
		}

		if err := s.catalog.CreateAlbum(ctx, &album); err != nil {
			return nil, err
		}
		albums = append(albums, album)
	}
	return albums, nil
}

func (s *Seeder) feature() *float64 {
	v := s.faker.Float64Range(0, 1)
	return &v
}

// genresFor picks one to three genres, mostly from the artist's family
func (s *Seeder) genresFor(family int) []string {
	n := s.faker.IntRange(1, 3)
	picked := make([]string, 0, n)
	seen := make(map[string]bool, n)
	for len(picked) < n {
		f := family
		if s.faker.Float64Range(0, 1) < 0.15 {
			f = s.faker.IntRange(0, len(genreFamilies)-1)
		}
		g := s.faker.RandomString(genreFamilies[f])
		if !seen[g] {
			seen[g] = true
			picked = append(picked, g)
		}
	}
	return picked
}

func (s *Seeder) seedUsers(ctx context.Context, count int) ([]models.User, error) {
	users := make([]models.User, 0, count)
	for len(users) < count {
		user := models.User{
			Username:    s.faker.Username(),
			DisplayName: s.faker.Name(),
		}
		if s.faker.Float64Range(0, 1) < 0.2 {
			adv := s.faker.Float64Range(0, 1)
			user.Adventurousness = &adv
		}
		if _, err := s.users.GetUserByUsername(ctx, user.Username); err == nil {
			continue
		} else if !errors.Is(err, repository.ErrUserNotFound) {
			return nil, err
		}
		if err := s.users.CreateUser(ctx, &user); err != nil {
			return nil, err
		}
		users = append(users, user)
	}
	return users, nil
}

// seedReviews gives each user a history concentrated in one or two genre
// families, rating in-family albums higher
func (s *Seeder) seedReviews(ctx context.Context, users []models.User, albums []models.Album, sizes Sizes) (int, error) {
	byFamily := make(map[int][]int)
	for i, a := range albums {
		byFamily[familyOf(a.Genres)] = append(byFamily[familyOf(a.Genres)], i)
	}

	total := 0
	for _, user := range users {
		home := s.faker.IntRange(0, len(genreFamilies)-1)
		second := s.faker.IntRange(0, len(genreFamilies)-1)
		n := s.faker.IntRange(sizes.MinReviews, sizes.MaxReviews)
		reviewed := make(map[int]bool, n)

		for attempts := 0; len(reviewed) < n && attempts < n*10; attempts++ {
			var idx int
			roll := s.faker.Float64Range(0, 1)
			switch {
			case roll < 0.6 && len(byFamily[home]) > 0:
				idx = byFamily[home][s.faker.IntRange(0, len(byFamily[home])-1)]
			case roll < 0.85 && len(byFamily[second]) > 0:
				idx = byFamily[second][s.faker.IntRange(0, len(byFamily[second])-1)]
			default:
				idx = s.faker.IntRange(0, len(albums)-1)
			}
			if reviewed[idx] {
				continue
			}
			reviewed[idx] = true

			family := familyOf(albums[idx].Genres)
			rating := s.faker.Float64Range(2, 7)
			if family == home {
				rating = s.faker.Float64Range(6, 10)
			}
			review := models.Review{
				UserID:  user.ID,
				AlbumID: albums[idx].ID,
				Rating:  float64(int(rating*2)) / 2,
				Body:    s.faker.HipsterSentence(),
			}
			if err := s.history.CreateReview(ctx, &review); err != nil {
				return total, err
			}
			total++
		}
	}
	return total, nil
}

// seedChartRanks ranks the best-reviewed albums
func (s *Seeder) seedChartRanks(ctx context.Context, albums []models.Album, top int) error {
	if top <= 0 {
		return nil
	}
	candidates, err := s.catalog.FindAlbums(ctx, recommend.AlbumFilter{
		QualityOnly:    true,
		MinRating:      6,
		MinReviews:     2,
		OrderByQuality: true,
	}, recommend.Page{Limit: top})
	if err != nil {
		return err
	}
	for i, a := range candidates {
		rank := i + 1
		if err := s.catalog.SetChartRank(ctx, a.ID, &rank); err != nil {
			return err
		}
	}
	return nil
}

func (s *Seeder) seedSkips(ctx context.Context, users []models.User, albums []models.Album, perUser int) error {
	reasons := []recommend.SkipReason{recommend.SkipNotInterested, recommend.SkipAlreadyKnow, recommend.SkipNotNow, recommend.SkipNoReason}
	for _, user := range users {
		for i := 0; i < perUser; i++ {
			album := albums[s.faker.IntRange(0, len(albums)-1)]
			reason := reasons[s.faker.IntRange(0, len(reasons)-1)]
			if _, err := s.history.RecordSkip(ctx, user.ID, album.ID, reason); err != nil {
				return err
			}
		}
	}
	return nil
}

// familyOf returns the family of the album's first known genre
func familyOf(genres []string) int {
	for _, g := range genres {
		for i, family := range genreFamilies {
			for _, member := range family {
				if g == member {
					return i
				}
			}
		}
	}
	return -1
}

func titleCase(s string) string {
	words := strings.Fields(s)
	for i, w := range words {
		words[i] = strings.ToUpper(w[:1]) + w[1:]
	}
	return strings.Join(words, " ")
}
