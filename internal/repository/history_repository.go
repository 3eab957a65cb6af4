package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"

	"github.com/sh6drack/actually-waxfeed-sub002/internal/models"
	"github.com/sh6drack/actually-waxfeed-sub002/internal/recommend"
	"gorm.io/gorm"
)

// HistoryRepository holds per-user reviews, skips and settings
type HistoryRepository interface {
	recommend.HistoryStore

	// CreateReview stores a review and refreshes the album's community stats
	CreateReview(ctx context.Context, review *models.Review) error

	// RecordSkip stores a dismissal; reason may be empty
	RecordSkip(ctx context.Context, userID, albumID string, reason recommend.SkipReason) (*models.SkipEvent, error)

	GetReviewCount(ctx context.Context, userID string) (int64, error)
}

type historyRepository struct {
	db *gorm.DB
}

// NewHistoryRepository creates a new history repository
func NewHistoryRepository(db *gorm.DB) HistoryRepository {
	return &historyRepository{db: db}
}

// CreateReview inserts a review and recomputes the album's average rating
// and review count inside one transaction
func (r *historyRepository) CreateReview(ctx context.Context, review *models.Review) error {
	if review == nil || review.UserID == "" || review.AlbumID == "" {
		return ErrInvalidInput
	}
	if review.Rating < 0 || review.Rating > 10 || math.IsNaN(review.Rating) {
		return fmt.Errorf("%w: rating %.2f outside 0-10", ErrInvalidInput, review.Rating)
	}

	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Omit("Album").Create(review).Error; err != nil {
			return err
		}

		var stats struct {
			Average float64
			Total   int
		}
		err := tx.Model(&models.Review{}).
			Select("AVG(rating) AS average, COUNT(*) AS total").
			Where("album_id = ?", review.AlbumID).
			Scan(&stats).Error
		if err != nil {
			return err
		}

		avg := math.Round(stats.Average*100) / 100
		return tx.Model(&models.Album{}).
			Where("id = ?", review.AlbumID).
			Updates(map[string]interface{}{
				"average_rating": avg,
				"total_reviews":  stats.Total,
			}).Error
	})
}

// RecordSkip stores a skip event
func (r *historyRepository) RecordSkip(ctx context.Context, userID, albumID string, reason recommend.SkipReason) (*models.SkipEvent, error) {
	if userID == "" || albumID == "" {
		return nil, ErrInvalidInput
	}
	switch reason {
	case recommend.SkipNotInterested, recommend.SkipAlreadyKnow, recommend.SkipNotNow, recommend.SkipNoReason:
	default:
		return nil, fmt.Errorf("%w: unknown skip reason %q", ErrInvalidInput, reason)
	}

	var count int64
	if err := r.db.WithContext(ctx).Model(&models.Album{}).Where("id = ?", albumID).Count(&count).Error; err != nil {
		return nil, err
	}
	if count == 0 {
		return nil, ErrAlbumNotFound
	}

	event := &models.SkipEvent{UserID: userID, AlbumID: albumID, Reason: string(reason)}
	if err := r.db.WithContext(ctx).Omit("Album").Create(event).Error; err != nil {
		return nil, err
	}
	return event, nil
}

// GetReviewCount returns how many albums the user rated
func (r *historyRepository) GetReviewCount(ctx context.Context, userID string) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.Review{}).Where("user_id = ?", userID).Count(&count).Error
	return count, err
}

// UserReviews returns the user's ratings, oldest first. Reviews of albums
// that have since left the catalog are dropped.
func (r *historyRepository) UserReviews(ctx context.Context, userID string) ([]recommend.RatedAlbum, error) {
	var reviews []models.Review
	err := r.db.WithContext(ctx).
		Preload("Album").
		Where("user_id = ?", userID).
		Order("created_at ASC").
		Find(&reviews).Error
	if err != nil {
		return nil, err
	}

	out := make([]recommend.RatedAlbum, 0, len(reviews))
	for _, rv := range reviews {
		if rv.Album.ID == "" {
			continue
		}
		out = append(out, recommend.RatedAlbum{
			AlbumID:    rv.AlbumID,
			ArtistName: rv.Album.ArtistName,
			Genres:     []string(rv.Album.Genres),
			Rating:     rv.Rating,
			CreatedAt:  rv.CreatedAt,
		})
	}
	return out, nil
}

// ReviewedAlbumIDs returns the IDs of every album the user rated
func (r *historyRepository) ReviewedAlbumIDs(ctx context.Context, userID string) ([]string, error) {
	var ids []string
	err := r.db.WithContext(ctx).
		Model(&models.Review{}).
		Where("user_id = ?", userID).
		Pluck("album_id", &ids).Error
	if err != nil {
		return nil, err
	}
	return ids, nil
}

// UserSkips returns every skip the user recorded, newest first
func (r *historyRepository) UserSkips(ctx context.Context, userID string) ([]recommend.SkipEvent, error) {
	var skips []models.SkipEvent
	err := r.db.WithContext(ctx).
		Preload("Album").
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Find(&skips).Error
	if err != nil {
		return nil, err
	}

	out := make([]recommend.SkipEvent, len(skips))
	for i, s := range skips {
		out[i] = recommend.SkipEvent{
			AlbumID:   s.AlbumID,
			Genres:    []string(s.Album.Genres),
			Reason:    recommend.SkipReason(s.Reason),
			CreatedAt: s.CreatedAt,
		}
	}
	return out, nil
}

// UserSettings returns the stored knobs, or nil for an unknown user
func (r *historyRepository) UserSettings(ctx context.Context, userID string) (*recommend.UserSettings, error) {
	var user models.User
	err := r.db.WithContext(ctx).
		Select("id", "adventurousness", "audio_preferences").
		Where("id = ?", userID).
		First(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	prefs, err := decodeAudioPreferences(user.AudioPreferences)
	if err != nil {
		return nil, fmt.Errorf("decode audio preferences for %s: %w", userID, err)
	}
	return &recommend.UserSettings{
		UserID:           user.ID,
		Adventurousness:  user.Adventurousness,
		AudioPreferences: prefs,
	}, nil
}

// SimilarUserAlbums finds up to userCap other users who rated an album in one
// of genres at least minRating, then returns up to albumCap albums those
// users rated at least minRating, best-rated first
func (r *historyRepository) SimilarUserAlbums(ctx context.Context, userID string, genres []string, minRating float64, userCap, albumCap int) ([]string, error) {
	if len(genres) == 0 || userCap <= 0 || albumCap <= 0 {
		return nil, nil
	}

	var userIDs []string
	err := r.db.WithContext(ctx).
		Model(&models.Review{}).
		Joins("JOIN albums ON albums.id = reviews.album_id").
		Where("reviews.user_id <> ? AND reviews.rating >= ?", userID, minRating).
		Scopes(anyGenre("albums.genres", genres)).
		Distinct("reviews.user_id").
		Order("reviews.user_id").
		Limit(userCap).
		Pluck("reviews.user_id", &userIDs).Error
	if err != nil {
		return nil, fmt.Errorf("similar users: %w", err)
	}
	if len(userIDs) == 0 {
		return nil, nil
	}

	var albumIDs []string
	err = r.db.WithContext(ctx).
		Model(&models.Review{}).
		Where("user_id IN ? AND rating >= ?", userIDs, minRating).
		Group("album_id").
		Order("MAX(rating) DESC").
		Order("album_id").
		Limit(albumCap).
		Pluck("album_id", &albumIDs).Error
	if err != nil {
		return nil, fmt.Errorf("similar user albums: %w", err)
	}
	return albumIDs, nil
}

func decodeAudioPreferences(raw []byte) (recommend.AudioPreferences, error) {
	if len(raw) == 0 || string(raw) == "null" {
		return nil, nil
	}
	var prefs recommend.AudioPreferences
	if err := json.Unmarshal(raw, &prefs); err != nil {
		return nil, err
	}
	return prefs, nil
}
