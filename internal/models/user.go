package models

import (
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// User is a listener account. Only the fields recommendations read live here.
type User struct {
	ID          string `gorm:"primaryKey;type:uuid" json:"id"`
	Username    string `gorm:"uniqueIndex;not null" json:"username"`
	DisplayName string `gorm:"not null" json:"display_name"`

	// Adventurousness is the stored exploration preference in [0,1];
	// null means derive it from rating history
	Adventurousness *float64 `json:"adventurousness,omitempty"`

	// AudioPreferences holds a JSON object keyed by feature name with
	// {min, max, sweet_spot, weight} values
	AudioPreferences datatypes.JSON `json:"audio_preferences,omitempty"`

	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}

func (u *User) BeforeCreate(tx *gorm.DB) error {
	if u.ID == "" {
		u.ID = generateUUID()
	}
	return nil
}
