package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/pokernight/platform/internal/domain"
)

const episodeColumns = `id, number, title_en, title_pl, release_date, is_filler, description`

type episodeRepo struct{}

// NewEpisodeRepository returns a pgx-backed EpisodeRepository.
func NewEpisodeRepository() EpisodeRepository {
	return &episodeRepo{}
}

func (r *episodeRepo) ListAll(ctx context.Context, db DBTX) ([]domain.Episode, error) {
	rows, err := db.Query(ctx, `
		SELECT `+episodeColumns+` FROM episodes ORDER BY number`)
	if err != nil {
		return nil, fmt.Errorf("query episodes: %w", err)
	}
	defer rows.Close()

	var eps []domain.Episode
	for rows.Next() {
		var e domain.Episode
		if err := rows.Scan(&e.ID, &e.Number, &e.TitleEN, &e.TitlePL, &e.ReleaseDate, &e.IsFiller, &e.Description); err != nil {
			return nil, fmt.Errorf("scan episode: %w", err)
		}
		eps = append(eps, e)
	}
	return eps, rows.Err()
}

func (r *episodeRepo) FindByID(ctx context.Context, db DBTX, id uuid.UUID) (*domain.Episode, error) {
	var e domain.Episode
	err := db.QueryRow(ctx, `
		SELECT `+episodeColumns+` FROM episodes WHERE id = $1`, id).
		Scan(&e.ID, &e.Number, &e.TitleEN, &e.TitlePL, &e.ReleaseDate, &e.IsFiller, &e.Description)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find episode: %w", err)
	}
	return &e, nil
}

func (r *episodeRepo) FindWatch(ctx context.Context, db DBTX, userID, episodeID uuid.UUID) (*domain.UserEpisode, error) {
	var ue domain.UserEpisode
	err := db.QueryRow(ctx, `
		SELECT id, user_id, episode_id, watched, watched_date, rating, COALESCE(note, '')
		FROM user_episodes WHERE user_id = $1 AND episode_id = $2`, userID, episodeID).
		Scan(&ue.ID, &ue.UserID, &ue.EpisodeID, &ue.Watched, &ue.WatchedDate, &ue.Rating, &ue.Note)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find watch state: %w", err)
	}
	return &ue, nil
}

func (r *episodeRepo) ListWatched(ctx context.Context, db DBTX, userID uuid.UUID) ([]domain.UserEpisode, error) {
	rows, err := db.Query(ctx, `
		SELECT ue.id, ue.user_id, ue.episode_id, ue.watched, ue.watched_date, ue.rating, COALESCE(ue.note, '')
		FROM user_episodes ue
		JOIN episodes e ON e.id = ue.episode_id
		WHERE ue.user_id = $1 AND ue.watched
		ORDER BY e.number`, userID)
	if err != nil {
		return nil, fmt.Errorf("query watched episodes: %w", err)
	}
	defer rows.Close()

	var watched []domain.UserEpisode
	for rows.Next() {
		var ue domain.UserEpisode
		if err := rows.Scan(&ue.ID, &ue.UserID, &ue.EpisodeID, &ue.Watched, &ue.WatchedDate, &ue.Rating, &ue.Note); err != nil {
			return nil, fmt.Errorf("scan watch state: %w", err)
		}
		watched = append(watched, ue)
	}
	return watched, rows.Err()
}

func (r *episodeRepo) SetWatched(ctx context.Context, db DBTX, userID, episodeID uuid.UUID, watched bool, date *time.Time) error {
	_, err := db.Exec(ctx, `
		INSERT INTO user_episodes (id, user_id, episode_id, watched, watched_date)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (user_id, episode_id)
		DO UPDATE SET watched = EXCLUDED.watched, watched_date = EXCLUDED.watched_date`,
		uuid.New(), userID, episodeID, watched, date)
	if err != nil {
		return fmt.Errorf("set watched: %w", err)
	}
	return nil
}

func (r *episodeRepo) BackfillWatched(ctx context.Context, db DBTX, userID uuid.UUID, belowNumber int, date time.Time) error {
	// Marking episode N watched implies every earlier episode was watched
	// too. Rows already marked keep their original watch date.
	_, err := db.Exec(ctx, `
		INSERT INTO user_episodes (id, user_id, episode_id, watched, watched_date)
		SELECT gen_random_uuid(), $1, e.id, true, $3
		FROM episodes e
		WHERE e.number < $2
		ON CONFLICT (user_id, episode_id)
		DO UPDATE SET watched = true, watched_date = EXCLUDED.watched_date
		WHERE user_episodes.watched = false`,
		userID, belowNumber, date)
	if err != nil {
		return fmt.Errorf("backfill watched: %w", err)
	}
	return nil
}

func (r *episodeRepo) CountEpisodes(ctx context.Context, db DBTX) (int, error) {
	var n int
	if err := db.QueryRow(ctx, `SELECT COUNT(*) FROM episodes`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count episodes: %w", err)
	}
	return n, nil
}
