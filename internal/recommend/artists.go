package recommend

import (
	"sort"
	"strings"
	"time"
)

// ArtistTier records which half of the favorite-artist merge an artist came from
type ArtistTier string

const (
	ArtistTierRecent  ArtistTier = "recent"
	ArtistTierAllTime ArtistTier = "all_time"
)

// FavoriteArtist is one entry of the merged favorite-artist list
type FavoriteArtist struct {
	Name string     `json:"name"`
	Tier ArtistTier `json:"tier"`
}

// MergeFavoriteArtists builds the favorite-artist list as a two-tier merge:
//
//  1. Recent tier: artists of reviews rated at least RecentArtistMinRating
//     inside RecentArtistWindow, newest review first (ties by artist name).
//  2. All-time tier: artists ranked by number of reviews, then average
//     rating, then name; only artists averaging AllTimeArtistMinRating or more.
//
// Names are de-duplicated case-insensitively keeping the first occurrence,
// and the list is truncated to FavoriteArtistCap, so the recent tier always
// survives truncation first.
func MergeFavoriteArtists(reviews []RatedAlbum, cfg ProfileConfig, now time.Time) []FavoriteArtist {
	limit := cfg.FavoriteArtistCap
	if limit <= 0 {
		return nil
	}

	recent := make([]RatedAlbum, 0, len(reviews))
	for _, r := range reviews {
		if strings.TrimSpace(r.ArtistName) == "" {
			continue
		}
		if r.Rating >= cfg.RecentArtistMinRating && now.Sub(r.CreatedAt) <= cfg.RecentArtistWindow {
			recent = append(recent, r)
		}
	}
	sort.SliceStable(recent, func(i, j int) bool {
		if !recent[i].CreatedAt.Equal(recent[j].CreatedAt) {
			return recent[i].CreatedAt.After(recent[j].CreatedAt)
		}
		return strings.ToLower(recent[i].ArtistName) < strings.ToLower(recent[j].ArtistName)
	})

	type artistStats struct {
		name  string
		count int
		sum   float64
	}
	byKey := make(map[string]*artistStats)
	for _, r := range reviews {
		key := strings.ToLower(strings.TrimSpace(r.ArtistName))
		if key == "" {
			continue
		}
		st, ok := byKey[key]
		if !ok {
			st = &artistStats{name: strings.TrimSpace(r.ArtistName)}
			byKey[key] = st
		}
		st.count++
		st.sum += r.Rating
	}
	allTime := make([]*artistStats, 0, len(byKey))
	for _, st := range byKey {
		if st.sum/float64(st.count) >= cfg.AllTimeArtistMinRating {
			allTime = append(allTime, st)
		}
	}
	sort.Slice(allTime, func(i, j int) bool {
		if allTime[i].count != allTime[j].count {
			return allTime[i].count > allTime[j].count
		}
		ai := allTime[i].sum / float64(allTime[i].count)
		aj := allTime[j].sum / float64(allTime[j].count)
		if ai != aj {
			return ai > aj
		}
		return strings.ToLower(allTime[i].name) < strings.ToLower(allTime[j].name)
	})

	merged := make([]FavoriteArtist, 0, limit)
	seen := make(map[string]bool)
	add := func(name string, tier ArtistTier) {
		key := strings.ToLower(strings.TrimSpace(name))
		if len(merged) >= limit || seen[key] {
			return
		}
		seen[key] = true
		merged = append(merged, FavoriteArtist{Name: strings.TrimSpace(name), Tier: tier})
	}
	for _, r := range recent {
		add(r.ArtistName, ArtistTierRecent)
	}
	for _, st := range allTime {
		add(st.name, ArtistTierAllTime)
	}
	return merged
}

// artistNames returns the display names of a favorite-artist list
func artistNames(artists []FavoriteArtist) []string {
	names := make([]string, len(artists))
	for i, a := range artists {
		names[i] = a.Name
	}
	return names
}
