// Package notify builds the per-player game summary payloads delivered after
// a game closes. Pure assembly; delivery happens through the outbox.
package notify

import (
	"time"

	"github.com/pokernight/platform/internal/domain"
	"github.com/pokernight/platform/internal/settle"
)

// Transaction is one settlement transfer as shown to a player.
type Transaction struct {
	From  string `json:"from"`
	To    string `json:"to"`
	Money int64  `json:"money"`
}

// Summary is the game recap sent to one settled player.
type Summary struct {
	GameDate      time.Time     `json:"game_date"`
	DurationHours float64       `json:"duration_hours"`
	BuyIn         int64         `json:"buy_in"`
	CashOut       int64         `json:"cash_out"`
	TotalPot      int64         `json:"total_pot"`
	AvgStack      int64         `json:"avg_stack"`
	Profit        int64         `json:"profit"`
	ProfitPerHour float64       `json:"profit_per_hour"`
	Transactions  []Transaction `json:"transactions"`
}

// BuildSummary assembles the recap for one player. TotalPot is the sum of
// everyone's buy-in; AvgStack divides it evenly across the table.
func BuildSummary(game *domain.Game, player settle.PlayerResult, batch []settle.PlayerResult, transfers []settle.Transfer) Summary {
	var totalPot int64
	for _, p := range batch {
		totalPot += p.BuyIn
	}

	var avgStack int64
	if len(batch) > 0 {
		avgStack = totalPot / int64(len(batch))
	}

	var hours float64
	if game.Duration != nil {
		hours = game.Duration.Hours()
	}

	profit := player.Balance()
	var perHour float64
	if hours > 0 {
		perHour = float64(profit) / hours
	}

	txs := make([]Transaction, 0, len(transfers))
	for _, t := range transfers {
		txs = append(txs, Transaction{From: t.Sender, To: t.Receiver, Money: t.Amount})
	}

	gameDate := game.StartTime
	if game.EndTime != nil {
		gameDate = *game.EndTime
	}

	return Summary{
		GameDate:      gameDate,
		DurationHours: hours,
		BuyIn:         player.BuyIn,
		CashOut:       player.CashOut,
		TotalPot:      totalPot,
		AvgStack:      avgStack,
		Profit:        profit,
		ProfitPerHour: perHour,
		Transactions:  txs,
	}
}
