package notify

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/pokernight/platform/internal/domain"
	"github.com/pokernight/platform/internal/settle"
)

func TestBuildSummary(t *testing.T) {
	start := time.Date(2024, 3, 8, 19, 0, 0, 0, time.UTC)
	end := start.Add(2 * time.Hour)
	dur := 2 * time.Hour

	game := &domain.Game{
		ID:        uuid.New(),
		Code:      "ABCDEFGH",
		BuyIn:     5000,
		StartTime: start,
		EndTime:   &end,
		Duration:  &dur,
		IsClosed:  true,
	}

	alice := settle.PlayerResult{Username: "alice", BuyIn: 5000, CashOut: 15000}
	batch := []settle.PlayerResult{
		alice,
		{Username: "bob", BuyIn: 5000, CashOut: 0},
		{Username: "carol", BuyIn: 5000, CashOut: 0},
	}
	transfers := []settle.Transfer{
		{Sender: "bob", Receiver: "alice", Amount: 5000},
		{Sender: "carol", Receiver: "alice", Amount: 5000},
	}

	s := BuildSummary(game, alice, batch, transfers)

	assert.Equal(t, end, s.GameDate)
	assert.Equal(t, 2.0, s.DurationHours)
	assert.Equal(t, int64(5000), s.BuyIn)
	assert.Equal(t, int64(15000), s.CashOut)
	assert.Equal(t, int64(15000), s.TotalPot)
	assert.Equal(t, int64(5000), s.AvgStack)
	assert.Equal(t, int64(10000), s.Profit)
	assert.Equal(t, 5000.0, s.ProfitPerHour)
	assert.Len(t, s.Transactions, 2)
	assert.Equal(t, Transaction{From: "bob", To: "alice", Money: 5000}, s.Transactions[0])
}

func TestBuildSummaryLosingPlayer(t *testing.T) {
	start := time.Date(2024, 3, 8, 19, 0, 0, 0, time.UTC)
	dur := 30 * time.Minute

	game := &domain.Game{BuyIn: 5000, StartTime: start, Duration: &dur}

	bob := settle.PlayerResult{Username: "bob", BuyIn: 10000, CashOut: 4000}
	batch := []settle.PlayerResult{
		{Username: "alice", BuyIn: 5000, CashOut: 11000},
		bob,
	}

	s := BuildSummary(game, bob, batch, nil)

	// Falls back to the start time when the end time is missing.
	assert.Equal(t, start, s.GameDate)
	assert.Equal(t, int64(-6000), s.Profit)
	assert.Equal(t, -12000.0, s.ProfitPerHour)
	assert.Equal(t, int64(15000), s.TotalPot)
	assert.Equal(t, int64(7500), s.AvgStack)
	assert.Empty(t, s.Transactions)
}

func TestBuildSummaryNoDuration(t *testing.T) {
	game := &domain.Game{BuyIn: 5000, StartTime: time.Now()}
	p := settle.PlayerResult{Username: "solo", BuyIn: 5000, CashOut: 5000}

	s := BuildSummary(game, p, []settle.PlayerResult{p}, nil)

	assert.Zero(t, s.DurationHours)
	assert.Zero(t, s.ProfitPerHour)
}
