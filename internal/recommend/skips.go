package recommend

import "time"

// SkipSignals is the aggregated negative feedback of one user
type SkipSignals struct {
	// ExcludedAlbumIDs holds permanent exclusions plus temporary ones still inside the window
	ExcludedAlbumIDs map[string]struct{}

	// GenreSkipCounts counts every skip event per genre, expired or not
	GenreSkipCounts map[string]int
}

// AggregateSkips folds skip events into an exclusion set and per-genre counts.
// not_interested and already_know exclude forever; not_now and reason-less
// skips exclude only while now - createdAt < window.
func AggregateSkips(events []SkipEvent, now time.Time, window time.Duration) SkipSignals {
	out := SkipSignals{
		ExcludedAlbumIDs: make(map[string]struct{}),
		GenreSkipCounts:  make(map[string]int),
	}
	for _, ev := range events {
		for _, g := range normalizeGenres(ev.Genres) {
			out.GenreSkipCounts[g]++
		}
		if ev.AlbumID == "" {
			continue
		}
		if ev.Reason.Permanent() || now.Sub(ev.CreatedAt) < window {
			out.ExcludedAlbumIDs[ev.AlbumID] = struct{}{}
		}
	}
	return out
}

// Excluded reports whether an album is hidden
func (s SkipSignals) Excluded(albumID string) bool {
	_, ok := s.ExcludedAlbumIDs[albumID]
	return ok
}

// MaxGenreSkips returns the largest skip count among the given genres
func (s SkipSignals) MaxGenreSkips(genres []string) int {
	maxCount := 0
	for _, g := range genres {
		if c := s.GenreSkipCounts[normalizeGenre(g)]; c > maxCount {
			maxCount = c
		}
	}
	return maxCount
}
