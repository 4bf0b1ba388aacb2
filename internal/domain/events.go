package domain

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// NewGameCreatedEvent records a freshly opened game.
func NewGameCreatedEvent(game *Game) OutboxDraft {
	payload, _ := json.Marshal(map[string]interface{}{
		"game_id":    game.ID.String(),
		"code":       game.Code,
		"buy_in":     game.BuyIn,
		"creator_id": game.CreatorID.String(),
		"start_time": game.StartTime,
	})
	return OutboxDraft{
		EventID:       uuid.New(),
		AggregateType: AggregateGame,
		AggregateID:   game.ID.String(),
		EventType:     EventGameCreated,
		PartitionKey:  game.ID.String(),
		Headers:       json.RawMessage(`{}`),
		Payload:       payload,
		OccurredAt:    time.Now(),
	}
}

// NewPlayerJoinedEvent records a player taking a seat.
func NewPlayerJoinedEvent(m *Membership) OutboxDraft {
	payload, _ := json.Marshal(map[string]interface{}{
		"game_id":   m.GameID.String(),
		"user_id":   m.UserID.String(),
		"join_time": m.JoinTime,
	})
	return OutboxDraft{
		EventID:       uuid.New(),
		AggregateType: AggregateGame,
		AggregateID:   m.GameID.String(),
		EventType:     EventPlayerJoined,
		PartitionKey:  m.GameID.String(),
		Headers:       json.RawMessage(`{}`),
		Payload:       payload,
		OccurredAt:    time.Now(),
	}
}

// NewGameClosedEvent records the close of a game with its final duration.
func NewGameClosedEvent(game *Game, debtCount int) OutboxDraft {
	payload, _ := json.Marshal(map[string]interface{}{
		"game_id":    game.ID.String(),
		"code":       game.Code,
		"end_time":   game.EndTime,
		"duration_s": int64(game.Duration.Seconds()),
		"debt_count": debtCount,
	})
	return OutboxDraft{
		EventID:       uuid.New(),
		AggregateType: AggregateGame,
		AggregateID:   game.ID.String(),
		EventType:     EventGameClosed,
		PartitionKey:  game.ID.String(),
		Headers:       json.RawMessage(`{}`),
		Payload:       payload,
		OccurredAt:    time.Now(),
	}
}

// NewDebtCreatedEvent records one settlement obligation.
func NewDebtCreatedEvent(debt *Debt) OutboxDraft {
	payload, _ := json.Marshal(debt)
	return OutboxDraft{
		EventID:       uuid.New(),
		AggregateType: AggregateDebt,
		AggregateID:   debt.ID.String(),
		EventType:     EventDebtCreated,
		PartitionKey:  debt.GameID.String(),
		Headers:       json.RawMessage(`{}`),
		Payload:       payload,
		OccurredAt:    time.Now(),
	}
}

// NewDebtFlagEvent records a send or accept transition on a debt.
func NewDebtFlagEvent(debt *Debt, eventType EventType) OutboxDraft {
	payload, _ := json.Marshal(debt)
	return OutboxDraft{
		EventID:       uuid.New(),
		AggregateType: AggregateDebt,
		AggregateID:   debt.ID.String(),
		EventType:     eventType,
		PartitionKey:  debt.GameID.String(),
		Headers:       json.RawMessage(`{}`),
		Payload:       payload,
		OccurredAt:    time.Now(),
	}
}

// NewGameSummaryEvent hands one per-player notification payload to the
// notification collaborator. The email lands in the headers so the consumer
// can address delivery without parsing the payload.
func NewGameSummaryEvent(gameID, userID uuid.UUID, email string, payload json.RawMessage) OutboxDraft {
	headers, _ := json.Marshal(map[string]string{"recipient": email})
	return OutboxDraft{
		EventID:       uuid.New(),
		AggregateType: AggregateNotification,
		AggregateID:   userID.String(),
		EventType:     EventGameSummary,
		PartitionKey:  gameID.String(),
		Headers:       headers,
		Payload:       payload,
		OccurredAt:    time.Now(),
	}
}

// NewUserCreatedEvent records a registration.
func NewUserCreatedEvent(userID uuid.UUID, username, email string) OutboxDraft {
	payload, _ := json.Marshal(map[string]string{
		"user_id":  userID.String(),
		"username": username,
		"email":    email,
	})
	return OutboxDraft{
		EventID:       uuid.New(),
		AggregateType: AggregateUser,
		AggregateID:   userID.String(),
		EventType:     EventUserCreated,
		PartitionKey:  userID.String(),
		Headers:       json.RawMessage(`{}`),
		Payload:       payload,
		OccurredAt:    time.Now(),
	}
}
