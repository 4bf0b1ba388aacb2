package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/pokernight/platform/internal/domain"
	"github.com/pokernight/platform/internal/infra"
)

type gameRepo struct{}

// NewGameRepository returns a pgx-backed GameRepository.
func NewGameRepository() GameRepository {
	return &gameRepo{}
}

const gameColumns = `id, code, buy_in, blind, how_many_plo, how_often_stand_up,
	is_poker_jackpot, is_win_27, creator_id, start_time, end_time, duration_us, is_closed`

func (r *gameRepo) FindByCode(ctx context.Context, db DBTX, code string) (*domain.Game, error) {
	row := db.QueryRow(ctx, `SELECT `+gameColumns+` FROM games WHERE code = $1`, code)
	return scanGame(row)
}

func (r *gameRepo) LockByCode(ctx context.Context, tx pgx.Tx, code string) (*domain.Game, error) {
	row := tx.QueryRow(ctx, `SELECT `+gameColumns+` FROM games WHERE code = $1 FOR UPDATE`, code)
	return scanGame(row)
}

func (r *gameRepo) Create(ctx context.Context, db DBTX, game *domain.Game) error {
	_, err := db.Exec(ctx, `
		INSERT INTO games
		  (id, code, buy_in, blind, how_many_plo, how_often_stand_up,
		   is_poker_jackpot, is_win_27, creator_id, start_time)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		game.ID,
		game.Code,
		infra.CentsToNumeric(game.BuyIn),
		infra.CentsToNumeric(game.Blind),
		game.HowManyPLO,
		game.HowOftenStandUp,
		game.IsPokerJackpot,
		game.IsWin27,
		game.CreatorID,
		game.StartTime,
	)
	if err != nil {
		return fmt.Errorf("insert game: %w", err)
	}
	return nil
}

func (r *gameRepo) Close(ctx context.Context, tx pgx.Tx, gameID uuid.UUID, endTime time.Time, duration time.Duration) error {
	tag, err := tx.Exec(ctx, `
		UPDATE games SET end_time = $2, duration_us = $3, is_closed = true
		WHERE id = $1 AND is_closed = false`,
		gameID, endTime, duration.Microseconds())
	if err != nil {
		return fmt.Errorf("close game: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("game %s already closed", gameID)
	}
	return nil
}

func scanGame(row pgx.Row) (*domain.Game, error) {
	var g domain.Game
	var buyInNum, blindNum pgtype.Numeric
	var durationUS *int64
	err := row.Scan(
		&g.ID, &g.Code, &buyInNum, &blindNum, &g.HowManyPLO, &g.HowOftenStandUp,
		&g.IsPokerJackpot, &g.IsWin27, &g.CreatorID, &g.StartTime, &g.EndTime,
		&durationUS, &g.IsClosed,
	)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("scan game: %w", err)
	}

	if g.BuyIn, err = infra.NumericToCents(buyInNum); err != nil {
		return nil, fmt.Errorf("convert buy_in: %w", err)
	}
	if g.Blind, err = infra.NumericToCents(blindNum); err != nil {
		return nil, fmt.Errorf("convert blind: %w", err)
	}
	if durationUS != nil {
		d := time.Duration(*durationUS) * time.Microsecond
		g.Duration = &d
	}
	return &g, nil
}

type membershipRepo struct{}

// NewMembershipRepository returns a pgx-backed MembershipRepository.
func NewMembershipRepository() MembershipRepository {
	return &membershipRepo{}
}

func (r *membershipRepo) Find(ctx context.Context, db DBTX, userID, gameID uuid.UUID) (*domain.Membership, error) {
	row := db.QueryRow(ctx, `
		SELECT id, player_id, game_id, join_time
		FROM game_players WHERE player_id = $1 AND game_id = $2`, userID, gameID)

	var m domain.Membership
	err := row.Scan(&m.ID, &m.UserID, &m.GameID, &m.JoinTime)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("scan membership: %w", err)
	}
	return &m, nil
}

func (r *membershipRepo) Create(ctx context.Context, db DBTX, m *domain.Membership) error {
	_, err := db.Exec(ctx, `
		INSERT INTO game_players (id, player_id, game_id, join_time)
		VALUES ($1, $2, $3, $4)`,
		m.ID, m.UserID, m.GameID, m.JoinTime)
	if err != nil {
		return fmt.Errorf("insert membership: %w", err)
	}
	return nil
}

func (r *membershipRepo) ListByGame(ctx context.Context, db DBTX, gameID uuid.UUID) ([]Member, error) {
	rows, err := db.Query(ctx, `
		SELECT gp.id, gp.player_id, gp.game_id, gp.join_time, u.username, u.email
		FROM game_players gp
		JOIN users u ON u.id = gp.player_id
		WHERE gp.game_id = $1
		ORDER BY gp.join_time ASC`, gameID)
	if err != nil {
		return nil, fmt.Errorf("query members: %w", err)
	}
	defer rows.Close()

	var members []Member
	for rows.Next() {
		var m Member
		if err := rows.Scan(&m.Membership.ID, &m.Membership.UserID, &m.Membership.GameID,
			&m.Membership.JoinTime, &m.Username, &m.Email); err != nil {
			return nil, fmt.Errorf("scan member row: %w", err)
		}
		members = append(members, m)
	}
	return members, rows.Err()
}

func (r *membershipRepo) CountByGame(ctx context.Context, db DBTX, gameID uuid.UUID) (int, error) {
	var count int
	err := db.QueryRow(ctx, `SELECT COUNT(*) FROM game_players WHERE game_id = $1`, gameID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count members: %w", err)
	}
	return count, nil
}

func (r *membershipRepo) CountByUser(ctx context.Context, db DBTX, userID uuid.UUID) (int, error) {
	var count int
	err := db.QueryRow(ctx, `SELECT COUNT(*) FROM game_players WHERE player_id = $1`, userID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count games for user: %w", err)
	}
	return count, nil
}

type rebuyRepo struct{}

// NewRebuyRepository returns a pgx-backed RebuyRepository.
func NewRebuyRepository() RebuyRepository {
	return &rebuyRepo{}
}

func (r *rebuyRepo) Add(ctx context.Context, db DBTX, membershipID uuid.UUID, multiplier int) error {
	_, err := db.Exec(ctx, `
		INSERT INTO actions (id, membership_id, multiplier)
		VALUES ($1, $2, $3)`,
		uuid.New(), membershipID, multiplier)
	if err != nil {
		return fmt.Errorf("insert action: %w", err)
	}
	return nil
}

func (r *rebuyRepo) RemoveLast(ctx context.Context, db DBTX, membershipID uuid.UUID) (bool, error) {
	// The oldest action is the initial buy-in and is never removable.
	tag, err := db.Exec(ctx, `
		DELETE FROM actions
		WHERE id = (
			SELECT id FROM actions
			WHERE membership_id = $1
			ORDER BY action_time DESC, id DESC
			LIMIT 1
		)
		AND (SELECT COUNT(*) FROM actions WHERE membership_id = $1) > 1`, membershipID)
	if err != nil {
		return false, fmt.Errorf("delete last action: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}

// Stack sums run server-side: multiplier * the owning game's buy_in.

func (r *rebuyRepo) TotalOnTable(ctx context.Context, db DBTX, gameID uuid.UUID) (int64, error) {
	var n pgtype.Numeric
	err := db.QueryRow(ctx, `
		SELECT COALESCE(SUM(a.multiplier * g.buy_in), 0)
		FROM actions a
		JOIN game_players gp ON gp.id = a.membership_id
		JOIN games g ON g.id = gp.game_id
		WHERE gp.game_id = $1`, gameID).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("sum table total: %w", err)
	}
	return infra.NumericToCents(n)
}

func (r *rebuyRepo) StackForMembership(ctx context.Context, db DBTX, membershipID uuid.UUID) (int64, error) {
	var n pgtype.Numeric
	err := db.QueryRow(ctx, `
		SELECT COALESCE(SUM(a.multiplier * g.buy_in), 0)
		FROM actions a
		JOIN game_players gp ON gp.id = a.membership_id
		JOIN games g ON g.id = gp.game_id
		WHERE a.membership_id = $1`, membershipID).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("sum stack: %w", err)
	}
	return infra.NumericToCents(n)
}
