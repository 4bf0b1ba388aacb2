package domain

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// EventType enumerates all domain event types published through the outbox.
type EventType string

const (
	EventUserCreated  EventType = "poker.user.created"
	EventGameCreated  EventType = "poker.game.created"
	EventPlayerJoined EventType = "poker.game.player.joined"
	EventGameClosed   EventType = "poker.game.closed"
	EventDebtCreated  EventType = "poker.debt.created"
	EventDebtSent     EventType = "poker.debt.sent"
	EventDebtAccepted EventType = "poker.debt.accepted"
	EventGameSummary  EventType = "poker.notification.game_summary"
)

// AggregateType enumerates the aggregate root types for outbox events.
type AggregateType string

const (
	AggregateUser         AggregateType = "user"
	AggregateGame         AggregateType = "game"
	AggregateDebt         AggregateType = "debt"
	AggregateNotification AggregateType = "notification"
)

// OutboxDraft is the payload written to the event_outbox table. Events are
// inserted in the same transaction as the state change they describe and
// published to Kafka asynchronously by the outbox poller.
type OutboxDraft struct {
	EventID       uuid.UUID       `json:"event_id"`
	AggregateType AggregateType   `json:"aggregate_type"`
	AggregateID   string          `json:"aggregate_id"`
	EventType     EventType       `json:"event_type"`
	PartitionKey  string          `json:"partition_key"`
	Headers       json.RawMessage `json:"headers"`
	Payload       json.RawMessage `json:"payload"`
	OccurredAt    time.Time       `json:"occurred_at"`
}
