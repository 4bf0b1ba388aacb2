package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/pokernight/platform/internal/domain"
	"github.com/pokernight/platform/internal/infra"
)

const debtColumns = `id, game_id, sender_id, receiver_id, amount, is_sent, sent_at, is_accepted, accepted_at`

type debtRepo struct{}

// NewDebtRepository returns a pgx-backed DebtRepository.
func NewDebtRepository() DebtRepository {
	return &debtRepo{}
}

func (r *debtRepo) Insert(ctx context.Context, db DBTX, debt *domain.Debt) error {
	_, err := db.Exec(ctx, `
		INSERT INTO debts (`+debtColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		debt.ID, debt.GameID, debt.SenderID, debt.ReceiverID,
		infra.CentsToNumeric(debt.Amount),
		debt.IsSent, debt.SentAt, debt.IsAccepted, debt.AcceptedAt,
	)
	if err != nil {
		return fmt.Errorf("insert debt: %w", err)
	}
	return nil
}

func (r *debtRepo) ListForUser(ctx context.Context, db DBTX, userID uuid.UUID) ([]domain.DebtEntry, error) {
	// Outgoing rows wait on the sender; incoming rows are sent and wait on
	// the receiver. The counterparty's phone number travels with outgoing
	// rows so the client can show where to send money.
	rows, err := db.Query(ctx, `
		SELECT d.id, su.username, ru.username, d.amount,
		       COALESCE(rp.phone_number, ''),
		       CASE WHEN d.sender_id = $1 THEN 'outgoing' ELSE 'incoming' END
		FROM debts d
		JOIN users su ON su.id = d.sender_id
		JOIN users ru ON ru.id = d.receiver_id
		LEFT JOIN user_profiles rp ON rp.user_id = d.receiver_id
		WHERE (d.sender_id = $1 AND NOT d.is_sent)
		   OR (d.receiver_id = $1 AND d.is_sent AND NOT d.is_accepted)
		ORDER BY d.id`, userID)
	if err != nil {
		return nil, fmt.Errorf("query debts: %w", err)
	}
	defer rows.Close()

	var entries []domain.DebtEntry
	for rows.Next() {
		var e domain.DebtEntry
		var amountNum pgtype.Numeric
		if err := rows.Scan(&e.ID, &e.From, &e.To, &amountNum, &e.PhoneNumber, &e.Direction); err != nil {
			return nil, fmt.Errorf("scan debt entry: %w", err)
		}
		if e.Amount, err = infra.NumericToCents(amountNum); err != nil {
			return nil, fmt.Errorf("convert debt amount: %w", err)
		}
		if e.Direction == domain.DebtIncoming {
			e.PhoneNumber = ""
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

func (r *debtRepo) MarkSent(ctx context.Context, db DBTX, debtID, senderID uuid.UUID, at time.Time) (*domain.Debt, error) {
	row := db.QueryRow(ctx, `
		UPDATE debts
		SET is_sent = true, sent_at = $3
		WHERE id = $1 AND sender_id = $2 AND NOT is_sent
		RETURNING `+debtColumns,
		debtID, senderID, at)
	return scanDebt(row)
}

func (r *debtRepo) MarkAccepted(ctx context.Context, db DBTX, debtID, receiverID uuid.UUID, at time.Time) (*domain.Debt, error) {
	row := db.QueryRow(ctx, `
		UPDATE debts
		SET is_accepted = true, accepted_at = $3
		WHERE id = $1 AND receiver_id = $2 AND is_sent AND NOT is_accepted
		RETURNING `+debtColumns,
		debtID, receiverID, at)
	return scanDebt(row)
}

func (r *debtRepo) ListByGame(ctx context.Context, db DBTX, gameID uuid.UUID) ([]domain.Debt, error) {
	rows, err := db.Query(ctx, `
		SELECT `+debtColumns+` FROM debts WHERE game_id = $1 ORDER BY id`, gameID)
	if err != nil {
		return nil, fmt.Errorf("query game debts: %w", err)
	}
	defer rows.Close()

	var debts []domain.Debt
	for rows.Next() {
		debt, err := scanDebt(rows)
		if err != nil {
			return nil, err
		}
		debts = append(debts, *debt)
	}
	return debts, rows.Err()
}

func scanDebt(row pgx.Row) (*domain.Debt, error) {
	var d domain.Debt
	var amountNum pgtype.Numeric
	err := row.Scan(&d.ID, &d.GameID, &d.SenderID, &d.ReceiverID, &amountNum,
		&d.IsSent, &d.SentAt, &d.IsAccepted, &d.AcceptedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("scan debt: %w", err)
	}
	if d.Amount, err = infra.NumericToCents(amountNum); err != nil {
		return nil, fmt.Errorf("convert debt amount: %w", err)
	}
	return &d, nil
}
