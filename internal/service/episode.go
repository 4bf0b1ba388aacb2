package service

import (
	"context"
	"math"
	"time"

	"github.com/coder/quartz"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pokernight/platform/internal/domain"
	"github.com/pokernight/platform/internal/repository"
)

// episodeMinutes is the assumed runtime of one episode, used in the pace
// figures of the progress report.
const episodeMinutes = 20

// EpisodeService handles the episode catalog and per-user watch tracking.
type EpisodeService struct {
	pool     *pgxpool.Pool
	episodes repository.EpisodeRepository
	clock    quartz.Clock
}

// NewEpisodeService creates an EpisodeService.
func NewEpisodeService(pool *pgxpool.Pool, episodes repository.EpisodeRepository, clock quartz.Clock) *EpisodeService {
	return &EpisodeService{pool: pool, episodes: episodes, clock: clock}
}

// EpisodeWithState is a catalog entry annotated with the caller's watch state.
type EpisodeWithState struct {
	domain.Episode
	Watched     bool       `json:"watched"`
	WatchedDate *time.Time `json:"watched_date,omitempty"`
}

// List returns the full catalog with the caller's watch state folded in.
func (s *EpisodeService) List(ctx context.Context, userID uuid.UUID) ([]EpisodeWithState, error) {
	episodes, err := s.episodes.ListAll(ctx, s.pool)
	if err != nil {
		return nil, domain.ErrInternal("list episodes", err)
	}
	watched, err := s.episodes.ListWatched(ctx, s.pool, userID)
	if err != nil {
		return nil, domain.ErrInternal("list watch state", err)
	}

	watchedByEpisode := make(map[uuid.UUID]domain.UserEpisode, len(watched))
	for _, ue := range watched {
		watchedByEpisode[ue.EpisodeID] = ue
	}

	out := make([]EpisodeWithState, 0, len(episodes))
	for _, e := range episodes {
		entry := EpisodeWithState{Episode: e}
		if ue, ok := watchedByEpisode[e.ID]; ok {
			entry.Watched = true
			entry.WatchedDate = ue.WatchedDate
		}
		out = append(out, entry)
	}
	return out, nil
}

// ToggleWatch flips the caller's watch state for one episode. Marking an
// episode watched also back-fills every earlier episode, mirroring how a
// watcher who saw episode 40 has necessarily seen 1 through 39. Unwatching
// touches only the one episode.
func (s *EpisodeService) ToggleWatch(ctx context.Context, userID, episodeID uuid.UUID) (bool, error) {
	episode, err := s.episodes.FindByID(ctx, s.pool, episodeID)
	if err != nil {
		return false, domain.ErrInternal("find episode", err)
	}
	if episode == nil {
		return false, domain.ErrNotFound("episode", episodeID.String())
	}

	current, err := s.episodes.FindWatch(ctx, s.pool, userID, episodeID)
	if err != nil {
		return false, domain.ErrInternal("find watch state", err)
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return false, domain.ErrInternal("begin tx", err)
	}
	defer tx.Rollback(ctx)

	if current != nil && current.Watched {
		if err := s.episodes.SetWatched(ctx, tx, userID, episodeID, false, nil); err != nil {
			return false, domain.ErrInternal("unwatch episode", err)
		}
		if err := tx.Commit(ctx); err != nil {
			return false, domain.ErrInternal("commit tx", err)
		}
		return false, nil
	}

	now := s.clock.Now()
	if err := s.episodes.SetWatched(ctx, tx, userID, episodeID, true, &now); err != nil {
		return false, domain.ErrInternal("watch episode", err)
	}
	if err := s.episodes.BackfillWatched(ctx, tx, userID, episode.Number, now); err != nil {
		return false, domain.ErrInternal("backfill watched", err)
	}
	if err := tx.Commit(ctx); err != nil {
		return false, domain.ErrInternal("commit tx", err)
	}
	return true, nil
}

// Progress builds the caller's binge report. target, when set, adds the
// required daily pace to finish by that date.
func (s *EpisodeService) Progress(ctx context.Context, userID uuid.UUID, target *time.Time) (*domain.WatchProgress, error) {
	total, err := s.episodes.CountEpisodes(ctx, s.pool)
	if err != nil {
		return nil, domain.ErrInternal("count episodes", err)
	}
	watched, err := s.episodes.ListWatched(ctx, s.pool, userID)
	if err != nil {
		return nil, domain.ErrInternal("list watch state", err)
	}
	progress := ComputeWatchProgress(total, watched, s.clock.Now(), target)
	return &progress, nil
}

// ComputeWatchProgress derives the binge report from the watched rows.
func ComputeWatchProgress(total int, watched []domain.UserEpisode, now time.Time, target *time.Time) domain.WatchProgress {
	progress := domain.WatchProgress{
		TotalEpisodes:  total,
		WatchedCount:   len(watched),
		RemainingCount: total - len(watched),
	}

	var first, last *time.Time
	perDay := make(map[string]int)
	for _, ue := range watched {
		if ue.WatchedDate == nil {
			continue
		}
		d := *ue.WatchedDate
		if first == nil || d.Before(*first) {
			first = &d
		}
		if last == nil || d.After(*last) {
			last = &d
		}
		perDay[d.Format("2006-01-02")]++
		progress.MonthlyCounts[d.Month()-1]++
	}
	progress.FirstWatched = first
	progress.LastWatched = last

	var marathonDay string
	for day, count := range perDay {
		// Earlier day wins a tie so the result is stable.
		if count > progress.MarathonCount || (count == progress.MarathonCount && day < marathonDay) {
			progress.MarathonCount = count
			marathonDay = day
		}
	}
	if marathonDay != "" {
		t, _ := time.Parse("2006-01-02", marathonDay)
		progress.MarathonDay = &t
	}

	if first != nil && last != nil {
		// Calendar days inclusive, so a one-day binge counts as one day.
		days := int(last.Truncate(24*time.Hour).Sub(first.Truncate(24*time.Hour)).Hours()/24) + 1
		progress.DaysWatching = days
		rate := float64(progress.WatchedCount) / float64(days)
		progress.AvgEpisodesPerDay = math.Round(rate*100) / 100
		progress.AvgMinutesPerDay = math.Round(rate*episodeMinutes*100) / 100

		if rate > 0 && progress.RemainingCount > 0 {
			daysLeft := float64(progress.RemainingCount) / rate
			end := now.AddDate(0, 0, int(math.Ceil(daysLeft)))
			progress.EstimatedEndDate = &end
		}
	}

	if target != nil && progress.RemainingCount > 0 {
		daysToTarget := target.Sub(now).Hours() / 24
		if daysToTarget >= 1 {
			required := float64(progress.RemainingCount) / math.Floor(daysToTarget)
			required = math.Round(required*100) / 100
			progress.RequiredPerDay = &required
		}
	}

	return progress
}
