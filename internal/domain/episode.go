package domain

import (
	"time"

	"github.com/google/uuid"
)

// Episode represents an episodes row in the series catalog.
type Episode struct {
	ID          uuid.UUID `json:"id"`
	Number      int       `json:"number"`
	TitleEN     string    `json:"title_en"`
	TitlePL     string    `json:"title_pl"`
	ReleaseDate time.Time `json:"release_date"`
	IsFiller    bool      `json:"is_filler"`
	Description string    `json:"description,omitempty"`
}

// UserEpisode is one user's watch state for one episode.
// Unique per (user, episode).
type UserEpisode struct {
	ID          uuid.UUID  `json:"id"`
	UserID      uuid.UUID  `json:"user_id"`
	EpisodeID   uuid.UUID  `json:"episode_id"`
	Watched     bool       `json:"watched"`
	WatchedDate *time.Time `json:"watched_date,omitempty"`
	Rating      *int       `json:"rating,omitempty"`
	Note        string     `json:"note,omitempty"`
}

// WatchProgress is the binge report over a user's watched episodes.
type WatchProgress struct {
	TotalEpisodes    int        `json:"total_episodes"`
	WatchedCount     int        `json:"watched_count"`
	RemainingCount   int        `json:"remaining_count"`
	FirstWatched     *time.Time `json:"first_watched,omitempty"`
	LastWatched      *time.Time `json:"last_watched,omitempty"`
	DaysWatching     int        `json:"days_watching"`
	AvgEpisodesPerDay float64   `json:"avg_episodes_per_day"`
	AvgMinutesPerDay  float64   `json:"avg_minutes_per_day"`
	EstimatedEndDate *time.Time `json:"estimated_end_date,omitempty"`
	RequiredPerDay   *float64   `json:"required_episodes_per_day,omitempty"`
	MarathonDay      *time.Time `json:"max_marathon_day,omitempty"`
	MarathonCount    int        `json:"max_marathon_count"`
	MonthlyCounts    [12]int    `json:"monthly_counts"`
}
