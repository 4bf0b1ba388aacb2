package service

import (
	"context"

	"github.com/coder/quartz"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pokernight/platform/internal/domain"
	"github.com/pokernight/platform/internal/repository"
)

// DebtService handles the send/accept lifecycle of settlement debts.
type DebtService struct {
	pool   *pgxpool.Pool
	debts  repository.DebtRepository
	outbox repository.OutboxRepository
	clock  quartz.Clock
}

// NewDebtService creates a DebtService.
func NewDebtService(pool *pgxpool.Pool, debts repository.DebtRepository, outbox repository.OutboxRepository, clock quartz.Clock) *DebtService {
	return &DebtService{pool: pool, debts: debts, outbox: outbox, clock: clock}
}

// List returns the caller's open obligations, both directions.
func (s *DebtService) List(ctx context.Context, userID uuid.UUID) ([]domain.DebtEntry, error) {
	entries, err := s.debts.ListForUser(ctx, s.pool, userID)
	if err != nil {
		return nil, domain.ErrInternal("list debts", err)
	}
	if entries == nil {
		entries = []domain.DebtEntry{}
	}
	return entries, nil
}

// Send marks the debt as sent by its sender. The update is scoped to the
// caller's own unsent rows, so a foreign or already-sent debt reads as
// not found rather than forbidden.
func (s *DebtService) Send(ctx context.Context, userID, debtID uuid.UUID) (*domain.Debt, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, domain.ErrInternal("begin tx", err)
	}
	defer tx.Rollback(ctx)

	debt, err := s.debts.MarkSent(ctx, tx, debtID, userID, s.clock.Now())
	if err != nil {
		return nil, domain.ErrInternal("mark sent", err)
	}
	if debt == nil {
		return nil, domain.ErrNotFound("debt", debtID.String())
	}

	if err := s.outbox.Insert(ctx, tx, domain.NewDebtFlagEvent(debt, domain.EventDebtSent)); err != nil {
		return nil, domain.ErrInternal("record debt event", err)
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, domain.ErrInternal("commit tx", err)
	}
	return debt, nil
}

// Accept marks a sent debt as accepted by its receiver.
func (s *DebtService) Accept(ctx context.Context, userID, debtID uuid.UUID) (*domain.Debt, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, domain.ErrInternal("begin tx", err)
	}
	defer tx.Rollback(ctx)

	debt, err := s.debts.MarkAccepted(ctx, tx, debtID, userID, s.clock.Now())
	if err != nil {
		return nil, domain.ErrInternal("mark accepted", err)
	}
	if debt == nil {
		return nil, domain.ErrNotFound("debt", debtID.String())
	}

	if err := s.outbox.Insert(ctx, tx, domain.NewDebtFlagEvent(debt, domain.EventDebtAccepted)); err != nil {
		return nil, domain.ErrInternal("record debt event", err)
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, domain.ErrInternal("commit tx", err)
	}
	return debt, nil
}
