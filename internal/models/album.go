package models

import (
	"time"

	"gorm.io/gorm"
)

// Album is a catalog entry. Community stats are maintained by the review
// pipeline; chart rank is set by the chart importer.
type Album struct {
	ID          string      `gorm:"primaryKey;type:uuid" json:"id"`
	Title       string      `gorm:"not null;index" json:"title"`
	ArtistName  string      `gorm:"not null;index" json:"artist_name"`
	Genres      StringArray `json:"genres"`
	ReleaseDate *time.Time  `json:"release_date,omitempty"`
	CoverURL    string      `gorm:"type:text" json:"cover_url,omitempty"`

	// Community signal
	AverageRating *float64 `gorm:"index" json:"average_rating,omitempty"`
	TotalReviews  int      `gorm:"default:0" json:"total_reviews"`
	ChartRank     *int     `gorm:"index" json:"chart_rank,omitempty"`

	// Normalized (0-1) audio features; all null when the album was never analyzed
	Energy       *float64 `json:"energy,omitempty"`
	Valence      *float64 `json:"valence,omitempty"`
	Danceability *float64 `json:"danceability,omitempty"`
	Acousticness *float64 `json:"acousticness,omitempty"`
	Tempo        *float64 `json:"tempo,omitempty"`

	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}

// HasAudioFeatures reports whether every audio column is populated
func (a *Album) HasAudioFeatures() bool {
	return a.Energy != nil && a.Valence != nil && a.Danceability != nil && a.Acousticness != nil && a.Tempo != nil
}

func (a *Album) BeforeCreate(tx *gorm.DB) error {
	if a.ID == "" {
		a.ID = generateUUID()
	}
	return nil
}
