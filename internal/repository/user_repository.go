package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/sh6drack/actually-waxfeed-sub002/internal/models"
	"github.com/sh6drack/actually-waxfeed-sub002/internal/recommend"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// UserRepository handles all database operations for users
type UserRepository interface {
	CreateUser(ctx context.Context, user *models.User) error
	GetUser(ctx context.Context, userID string) (*models.User, error)
	GetUserByUsername(ctx context.Context, username string) (*models.User, error)
	ListUserIDs(ctx context.Context, limit int) ([]string, error)

	// UpdateRecommendationSettings stores the exploration knob and audio
	// preferences. A nil adventurousness clears the stored value.
	UpdateRecommendationSettings(ctx context.Context, userID string, adventurousness *float64, prefs recommend.AudioPreferences) error

	GetTotalUserCount(ctx context.Context) (int64, error)
}

type userRepository struct {
	db *gorm.DB
}

// NewUserRepository creates a new user repository
func NewUserRepository(db *gorm.DB) UserRepository {
	return &userRepository{db: db}
}

// CreateUser creates a new user
func (r *userRepository) CreateUser(ctx context.Context, user *models.User) error {
	if user == nil {
		return ErrInvalidInput
	}

	return r.db.WithContext(ctx).Create(user).Error
}

// GetUser gets a user by ID
func (r *userRepository) GetUser(ctx context.Context, userID string) (*models.User, error) {
	var user models.User
	err := r.db.WithContext(ctx).Where("id = ?", userID).First(&user).Error

	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrUserNotFound
	}

	return &user, err
}

// GetUserByUsername gets a user by username (case-insensitive)
func (r *userRepository) GetUserByUsername(ctx context.Context, username string) (*models.User, error) {
	var user models.User
	err := r.db.WithContext(ctx).
		Where("LOWER(username) = LOWER(?)", username).
		First(&user).Error

	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrUserNotFound
	}

	return &user, err
}

// ListUserIDs returns up to limit user IDs in creation order
func (r *userRepository) ListUserIDs(ctx context.Context, limit int) ([]string, error) {
	var ids []string
	query := r.db.WithContext(ctx).Model(&models.User{}).Order("created_at ASC")
	if limit > 0 {
		query = query.Limit(limit)
	}
	err := query.Pluck("id", &ids).Error
	return ids, err
}

// UpdateRecommendationSettings updates the recommendation knobs
func (r *userRepository) UpdateRecommendationSettings(ctx context.Context, userID string, adventurousness *float64, prefs recommend.AudioPreferences) error {
	if adventurousness != nil && (*adventurousness < 0 || *adventurousness > 1) {
		return fmt.Errorf("%w: adventurousness must be within [0,1]", ErrInvalidInput)
	}

	var encoded datatypes.JSON
	if len(prefs) > 0 {
		raw, err := json.Marshal(prefs)
		if err != nil {
			return err
		}
		encoded = datatypes.JSON(raw)
	}

	res := r.db.WithContext(ctx).
		Model(&models.User{}).
		Where("id = ?", userID).
		Updates(map[string]interface{}{
			"adventurousness":   adventurousness,
			"audio_preferences": encoded,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrUserNotFound
	}
	return nil
}

// GetTotalUserCount returns the total number of users
func (r *userRepository) GetTotalUserCount(ctx context.Context) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.User{}).Count(&count).Error
	return count, err
}
