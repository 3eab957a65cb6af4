package recommend

import "context"

// AlbumFilter describes one candidate query against the catalog.
// Zero-valued fields do not constrain the query.
type AlbumFilter struct {
	// Artists matches albums by any of these artists, case-insensitively
	Artists []string

	// AnyGenres matches albums sharing at least one genre
	AnyGenres []string

	// NoneGenres rejects albums carrying any of these genres
	NoneGenres []string

	// QualityOnly keeps charted albums plus albums with
	// rating >= MinRating and reviews >= MinReviews
	QualityOnly bool
	MinRating   float64
	MinReviews  int

	ExcludeIDs []string

	// OrderByQuality sorts by chart rank ascending (nulls last), then rating descending
	OrderByQuality bool
}

// CatalogStore is the read-only album catalog
type CatalogStore interface {
	CountAlbums(ctx context.Context, filter AlbumFilter) (int64, error)
	FindAlbums(ctx context.Context, filter AlbumFilter, page Page) ([]CandidateAlbum, error)
}

// HistoryStore is the read-only per-user history
type HistoryStore interface {
	// UserReviews returns the user's ratings, oldest first
	UserReviews(ctx context.Context, userID string) ([]RatedAlbum, error)

	// ReviewedAlbumIDs lists every album the user rated. It is read on every
	// request, unlike the cached profile.
	ReviewedAlbumIDs(ctx context.Context, userID string) ([]string, error)

	UserSkips(ctx context.Context, userID string) ([]SkipEvent, error)

	// UserSettings returns nil settings when the user stored none
	UserSettings(ctx context.Context, userID string) (*UserSettings, error)

	// SimilarUserAlbums returns albums rated >= minRating by up to userCap other
	// users who also rated >= minRating an album in one of genres
	SimilarUserAlbums(ctx context.Context, userID string, genres []string, minRating float64, userCap, albumCap int) ([]string, error)
}

// ProfileCache stores built taste profiles. Implementations must tolerate
// being unavailable; a miss falls back to a rebuild.
type ProfileCache interface {
	GetProfile(ctx context.Context, userID string) (*TasteProfile, bool)
	SetProfile(ctx context.Context, profile *TasteProfile)
}
