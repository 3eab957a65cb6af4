package models

import (
	"time"

	"gorm.io/gorm"
)

// Review is a user's rating of an album on a 0-10 scale
type Review struct {
	ID      string  `gorm:"primaryKey;type:uuid" json:"id"`
	UserID  string  `gorm:"not null;uniqueIndex:idx_review_user_album;index:idx_review_user_created" json:"user_id"`
	AlbumID string  `gorm:"not null;uniqueIndex:idx_review_user_album;index" json:"album_id"`
	Rating  float64 `gorm:"not null;index" json:"rating"`
	Body    string  `gorm:"type:text" json:"body,omitempty"`

	Album Album `gorm:"foreignKey:AlbumID" json:"album,omitempty"`

	CreatedAt time.Time      `gorm:"index:idx_review_user_created" json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}

func (r *Review) BeforeCreate(tx *gorm.DB) error {
	if r.ID == "" {
		r.ID = generateUUID()
	}
	return nil
}
