package models

import (
	"time"

	"gorm.io/gorm"
)

// RecommendationImpression tracks when a recommended album is shown to a user.
// Used for CTR (Click-Through Rate) tracking per pool and mode.
type RecommendationImpression struct {
	ID      string `gorm:"primaryKey;type:uuid" json:"id"`
	UserID  string `gorm:"not null;index:idx_impression_user_created" json:"user_id"`
	AlbumID string `gorm:"not null;index" json:"album_id"`

	// Recommendation context
	Flow     string `gorm:"not null;index" json:"flow"` // "random", "swipe", "onboarding"
	Pool     string `gorm:"not null;index" json:"pool"` // "artist", "genre", "quality", "discovery"
	Mode     string `gorm:"index" json:"mode,omitempty"`
	Position int    `gorm:"not null" json:"position"` // 0-based position in the batch

	Clicked   bool       `gorm:"default:false;index" json:"clicked"`
	ClickedAt *time.Time `json:"clicked_at,omitempty"`

	Score  *float64 `json:"score,omitempty"`
	Reason *string  `json:"reason,omitempty"`

	CreatedAt time.Time      `gorm:"index:idx_impression_user_created" json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}

func (r *RecommendationImpression) BeforeCreate(tx *gorm.DB) error {
	if r.ID == "" {
		r.ID = generateUUID()
	}
	return nil
}

// RecommendationClick tracks when a user opens a recommended album
type RecommendationClick struct {
	ID                         string  `gorm:"primaryKey;type:uuid" json:"id"`
	UserID                     string  `gorm:"not null;index" json:"user_id"`
	AlbumID                    string  `gorm:"not null;index" json:"album_id"`
	RecommendationImpressionID *string `gorm:"index" json:"recommendation_impression_id,omitempty"`

	Pool     string `gorm:"not null;index" json:"pool"`
	Position *int   `json:"position,omitempty"`

	CreatedAt time.Time      `gorm:"index" json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}

func (r *RecommendationClick) BeforeCreate(tx *gorm.DB) error {
	if r.ID == "" {
		r.ID = generateUUID()
	}
	return nil
}
