package domain

import (
	"time"

	"github.com/google/uuid"
)

// Debt represents a debts row: an obligation from sender to receiver produced
// by settlement. Amount, sender, receiver and game are immutable after
// creation; the only mutations are the two one-way flag transitions
// is_sent (by the sender) and then is_accepted (by the receiver).
type Debt struct {
	ID         uuid.UUID  `json:"id"`
	GameID     uuid.UUID  `json:"game_id"`
	SenderID   uuid.UUID  `json:"sender_id"`
	ReceiverID uuid.UUID  `json:"receiver_id"`
	Amount     int64      `json:"amount"`
	IsSent     bool       `json:"is_sent"`
	SentAt     *time.Time `json:"sent_at,omitempty"`
	IsAccepted bool       `json:"is_accepted"`
	AcceptedAt *time.Time `json:"accepted_at,omitempty"`
}

// DebtDirection tags a debt entry from the requesting user's point of view.
type DebtDirection string

const (
	DebtOutgoing DebtDirection = "outgoing"
	DebtIncoming DebtDirection = "incoming"
)

// DebtEntry is one row in a user's debt list, with the counterparty's
// contact details resolved.
type DebtEntry struct {
	ID          uuid.UUID     `json:"id"`
	From        string        `json:"from"`
	To          string        `json:"to"`
	Amount      int64         `json:"money"`
	PhoneNumber string        `json:"phone_number,omitempty"`
	Direction   DebtDirection `json:"type"`
}
