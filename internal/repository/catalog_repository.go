package repository

import (
	"context"
	"errors"

	"github.com/sh6drack/actually-waxfeed-sub002/internal/models"
	"github.com/sh6drack/actually-waxfeed-sub002/internal/recommend"
	"gorm.io/gorm"
)

// CatalogRepository is the album catalog. It serves the recommendation
// engine's candidate queries and the admin/seed write path.
type CatalogRepository interface {
	recommend.CatalogStore

	CreateAlbum(ctx context.Context, album *models.Album) error
	GetAlbum(ctx context.Context, albumID string) (*models.Album, error)
	SetChartRank(ctx context.Context, albumID string, rank *int) error
	GetTotalAlbumCount(ctx context.Context) (int64, error)
}

type catalogRepository struct {
	db *gorm.DB
}

// NewCatalogRepository creates a new catalog repository
func NewCatalogRepository(db *gorm.DB) CatalogRepository {
	return &catalogRepository{db: db}
}

// CreateAlbum inserts an album
func (r *catalogRepository) CreateAlbum(ctx context.Context, album *models.Album) error {
	if album == nil {
		return ErrInvalidInput
	}
	album.Genres = models.StringArray(lowerAll(album.Genres))
	return r.db.WithContext(ctx).Create(album).Error
}

// GetAlbum gets an album by ID
func (r *catalogRepository) GetAlbum(ctx context.Context, albumID string) (*models.Album, error) {
	var album models.Album
	err := r.db.WithContext(ctx).Where("id = ?", albumID).First(&album).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrAlbumNotFound
	}
	return &album, err
}

// SetChartRank sets or clears an album's chart position
func (r *catalogRepository) SetChartRank(ctx context.Context, albumID string, rank *int) error {
	res := r.db.WithContext(ctx).Model(&models.Album{}).Where("id = ?", albumID).Update("chart_rank", rank)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrAlbumNotFound
	}
	return nil
}

// GetTotalAlbumCount returns the catalog size
func (r *catalogRepository) GetTotalAlbumCount(ctx context.Context) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.Album{}).Count(&count).Error
	return count, err
}

// CountAlbums counts albums matching filter
func (r *catalogRepository) CountAlbums(ctx context.Context, filter recommend.AlbumFilter) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.Album{}).
		Scopes(albumFilter(filter)).
		Count(&count).Error
	return count, err
}

// FindAlbums returns one page of albums matching filter
func (r *catalogRepository) FindAlbums(ctx context.Context, filter recommend.AlbumFilter, page recommend.Page) ([]recommend.CandidateAlbum, error) {
	query := r.db.WithContext(ctx).
		Model(&models.Album{}).
		Scopes(albumFilter(filter))

	if filter.OrderByQuality {
		query = query.
			Order("CASE WHEN chart_rank IS NULL THEN 1 ELSE 0 END").
			Order("chart_rank ASC").
			Order("COALESCE(average_rating, 0) DESC")
	}
	query = query.Order("id ASC")

	if page.Offset > 0 {
		query = query.Offset(page.Offset)
	}
	if page.Limit > 0 {
		query = query.Limit(page.Limit)
	}

	var albums []models.Album
	if err := query.Find(&albums).Error; err != nil {
		return nil, err
	}

	out := make([]recommend.CandidateAlbum, len(albums))
	for i := range albums {
		out[i] = toCandidate(&albums[i])
	}
	return out, nil
}

func albumFilter(f recommend.AlbumFilter) func(*gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		if artists := lowerAll(f.Artists); len(artists) > 0 {
			db = db.Where("LOWER(artist_name) IN ?", artists)
		}
		db = anyGenre("genres", f.AnyGenres)(db)
		db = noGenre("genres", f.NoneGenres)(db)
		if f.QualityOnly {
			db = db.Where("chart_rank IS NOT NULL OR (average_rating >= ? AND total_reviews >= ?)", f.MinRating, f.MinReviews)
		}
		if len(f.ExcludeIDs) > 0 {
			db = db.Where("id NOT IN ?", f.ExcludeIDs)
		}
		return db
	}
}

func toCandidate(a *models.Album) recommend.CandidateAlbum {
	c := recommend.CandidateAlbum{
		ID:                     a.ID,
		Title:                  a.Title,
		ArtistName:             a.ArtistName,
		Genres:                 []string(a.Genres),
		ReleaseDate:            a.ReleaseDate,
		CoverURL:               a.CoverURL,
		CommunityAverageRating: a.AverageRating,
		TotalReviews:           a.TotalReviews,
		ChartRank:              a.ChartRank,
	}
	if a.HasAudioFeatures() {
		c.AudioProfile = &recommend.AudioProfile{
			Energy:       *a.Energy,
			Valence:      *a.Valence,
			Danceability: *a.Danceability,
			Acousticness: *a.Acousticness,
			Tempo:        *a.Tempo,
		}
	}
	return c
}
