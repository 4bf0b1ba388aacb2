package repository

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/pokernight/platform/internal/domain"
	"github.com/pokernight/platform/internal/infra"
)

type statisticsRepo struct{}

// NewStatisticsRepository returns a pgx-backed StatisticsRepository.
func NewStatisticsRepository() StatisticsRepository {
	return &statisticsRepo{}
}

func (r *statisticsRepo) Insert(ctx context.Context, db DBTX, rec *domain.StatisticsRecord) error {
	_, err := db.Exec(ctx, `
		INSERT INTO statistics (id, membership_id, buy_in, cash_out, recorded_at)
		VALUES ($1, $2, $3, $4, $5)`,
		rec.ID,
		rec.MembershipID,
		infra.CentsToNumeric(rec.BuyIn),
		infra.CentsToNumeric(rec.CashOut),
		rec.RecordedAt,
	)
	if err != nil {
		return fmt.Errorf("insert statistics record: %w", err)
	}
	return nil
}

func (r *statisticsRepo) ListByUser(ctx context.Context, db DBTX, userID uuid.UUID) ([]domain.StatisticsRecord, error) {
	rows, err := db.Query(ctx, `
		SELECT s.id, s.membership_id, s.buy_in, s.cash_out, s.recorded_at
		FROM statistics s
		JOIN game_players gp ON gp.id = s.membership_id
		WHERE gp.player_id = $1
		ORDER BY s.recorded_at ASC`, userID)
	if err != nil {
		return nil, fmt.Errorf("query statistics: %w", err)
	}
	defer rows.Close()

	var recs []domain.StatisticsRecord
	for rows.Next() {
		var rec domain.StatisticsRecord
		var buyInNum, cashOutNum pgtype.Numeric
		if err := rows.Scan(&rec.ID, &rec.MembershipID, &buyInNum, &cashOutNum, &rec.RecordedAt); err != nil {
			return nil, fmt.Errorf("scan statistics row: %w", err)
		}
		if rec.BuyIn, err = infra.NumericToCents(buyInNum); err != nil {
			return nil, fmt.Errorf("convert buy_in: %w", err)
		}
		if rec.CashOut, err = infra.NumericToCents(cashOutNum); err != nil {
			return nil, fmt.Errorf("convert cash_out: %w", err)
		}
		recs = append(recs, rec)
	}
	return recs, rows.Err()
}

func (r *statisticsRepo) AggregateByUser(ctx context.Context, db DBTX, userID uuid.UUID) (*StatsAggregate, error) {
	var buyInNum, cashOutNum, highestNum pgtype.Numeric
	var agg StatsAggregate
	err := db.QueryRow(ctx, `
		SELECT COALESCE(SUM(s.buy_in), 0),
		       COALESCE(SUM(s.cash_out), 0),
		       COALESCE(MAX(s.cash_out - s.buy_in), 0),
		       COUNT(*)
		FROM statistics s
		JOIN game_players gp ON gp.id = s.membership_id
		WHERE gp.player_id = $1`, userID).
		Scan(&buyInNum, &cashOutNum, &highestNum, &agg.Records)
	if err != nil {
		return nil, fmt.Errorf("aggregate statistics: %w", err)
	}

	if agg.TotalBuyIn, err = infra.NumericToCents(buyInNum); err != nil {
		return nil, fmt.Errorf("convert total buy_in: %w", err)
	}
	if agg.TotalCashOut, err = infra.NumericToCents(cashOutNum); err != nil {
		return nil, fmt.Errorf("convert total cash_out: %w", err)
	}
	if agg.HighestWin, err = infra.NumericToCents(highestNum); err != nil {
		return nil, fmt.Errorf("convert highest win: %w", err)
	}
	return &agg, nil
}

func (r *statisticsRepo) PlayTimeSeconds(ctx context.Context, db DBTX, userID uuid.UUID) (int64, error) {
	var seconds int64
	err := db.QueryRow(ctx, `
		SELECT COALESCE(SUM(g.duration_us), 0) / 1000000
		FROM games g
		JOIN game_players gp ON gp.game_id = g.id
		WHERE gp.player_id = $1 AND g.is_closed`, userID).Scan(&seconds)
	if err != nil {
		return 0, fmt.Errorf("sum play time: %w", err)
	}
	return seconds, nil
}
