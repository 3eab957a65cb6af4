package models

import (
	"time"

	"gorm.io/gorm"
)

// SkipEvent records a user dismissing a recommended album.
// Reason is one of "not_interested", "already_know", "not_now" or empty.
type SkipEvent struct {
	ID      string `gorm:"primaryKey;type:uuid" json:"id"`
	UserID  string `gorm:"not null;index:idx_skip_user_created" json:"user_id"`
	AlbumID string `gorm:"not null;index" json:"album_id"`
	Reason  string `gorm:"type:varchar(32)" json:"reason,omitempty"`

	Album Album `gorm:"foreignKey:AlbumID" json:"album,omitempty"`

	CreatedAt time.Time `gorm:"index:idx_skip_user_created" json:"created_at"`
}

// TableName specifies the table name
func (SkipEvent) TableName() string {
	return "skip_events"
}

func (s *SkipEvent) BeforeCreate(tx *gorm.DB) error {
	if s.ID == "" {
		s.ID = generateUUID()
	}
	return nil
}
