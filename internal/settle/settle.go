// Package settle implements end-of-game debt settlement: it validates that a
// batch of per-player results is financially consistent and converts the
// resulting balances into a short list of peer-to-peer transfers.
//
// All arithmetic is on int64 cents. The package is pure; persistence of the
// emitted transfers is the caller's job.
package settle

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/pokernight/platform/internal/domain"
)

// PlayerResult is one player's buy-in/cash-out pair for a single game.
type PlayerResult struct {
	UserID   uuid.UUID
	Username string
	BuyIn    int64
	CashOut  int64
}

// Balance is the player's net for the game. Positive means the table owes
// them money.
func (p PlayerResult) Balance() int64 {
	return p.CashOut - p.BuyIn
}

// Transfer is one emitted obligation: Sender owes Receiver Amount cents.
type Transfer struct {
	SenderID   uuid.UUID `json:"sender_id"`
	Sender     string    `json:"sender"`
	ReceiverID uuid.UUID `json:"receiver_id"`
	Receiver   string    `json:"receiver"`
	Amount     int64     `json:"amount"`
}

// ValidateBatch checks that a batch is settleable: non-empty, no duplicate
// players, no negative amounts, and balances summing to exactly zero. Cash on
// the table is conserved by definition, so a non-zero total is a data-entry
// error upstream and must block settlement. Pure, no side effects.
func ValidateBatch(batch []PlayerResult) error {
	if len(batch) == 0 {
		return domain.ErrEmptyBatch()
	}

	seen := make(map[string]bool, len(batch))
	var total int64
	for _, p := range batch {
		if seen[p.Username] {
			return domain.ErrValidation(fmt.Sprintf("player %s appears more than once", p.Username))
		}
		seen[p.Username] = true
		if p.BuyIn < 0 || p.CashOut < 0 {
			return domain.ErrValidation(fmt.Sprintf("player %s has a negative amount", p.Username))
		}
		total += p.Balance()
	}

	if total != 0 {
		return domain.ErrImbalancedBatch(total)
	}
	return nil
}

// Strategy turns a validated batch into transfers. Implementations must zero
// every balance exactly and never emit a non-positive or self-directed
// transfer.
type Strategy interface {
	// Name tags the strategy in logs and debt metadata.
	Name() string

	// Settle emits the transfer list for a batch whose balances sum to zero.
	// The input is not mutated.
	Settle(batch []PlayerResult) []Transfer
}

// FirstFit matches the first open debtor against the first open creditor
// until both queues drain. Not globally transaction-minimal, but never emits
// more than n-1 transfers for n unbalanced players, and its output order is
// deterministic in the input order.
type FirstFit struct{}

func (FirstFit) Name() string { return "first-fit" }

func (FirstFit) Settle(batch []PlayerResult) []Transfer {
	type party struct {
		id      uuid.UUID
		name    string
		balance int64
	}

	// Partition preserving input order. Players who broke even never enter
	// either queue.
	var debtors, creditors []party
	for _, p := range batch {
		switch b := p.Balance(); {
		case b < 0:
			debtors = append(debtors, party{p.UserID, p.Username, b})
		case b > 0:
			creditors = append(creditors, party{p.UserID, p.Username, b})
		}
	}

	var transfers []Transfer
	for len(debtors) > 0 && len(creditors) > 0 {
		d := &debtors[0]
		c := &creditors[0]

		amount := min(-d.balance, c.balance)
		transfers = append(transfers, Transfer{
			SenderID:   d.id,
			Sender:     d.name,
			ReceiverID: c.id,
			Receiver:   c.name,
			Amount:     amount,
		})

		d.balance += amount
		c.balance -= amount

		// A tie drains both parties in the same step.
		if d.balance == 0 {
			debtors = debtors[1:]
		}
		if c.balance == 0 {
			creditors = creditors[1:]
		}
	}

	return transfers
}
