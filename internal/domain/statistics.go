package domain

import (
	"time"

	"github.com/google/uuid"
)

// StatisticsRecord is one append-only ledger row per settled player per game.
// Never updated or deleted; aggregate reports read over it.
type StatisticsRecord struct {
	ID           uuid.UUID `json:"id"`
	MembershipID uuid.UUID `json:"membership_id"`
	BuyIn        int64     `json:"buy_in"`
	CashOut      int64     `json:"cash_out"`
	RecordedAt   time.Time `json:"recorded_at"`
}

// Result is the player's net for the game.
func (s StatisticsRecord) Result() int64 {
	return s.CashOut - s.BuyIn
}

// UserStats is the aggregate report over a user's StatisticsRecords.
// AverageStake divides total buy-in by games played; WinRate is total
// cash-out over total buy-in.
type UserStats struct {
	Earn          int64   `json:"earn"`
	GamesPlayed   int     `json:"games_played"`
	TotalPlayTime float64 `json:"total_play_time"`
	HourlyRate    float64 `json:"hourly_rate"`
	HighestWin    int64   `json:"highest_win"`
	AverageStake  int64   `json:"average_stake"`
	WinRate       float64 `json:"win_rate"`
	TotalBuyIn    int64   `json:"total_buyin"`
}

// PlotPoint is one game result on a user's history chart.
type PlotPoint struct {
	Date       time.Time `json:"date"`
	Result     int64     `json:"result"`
	Cumulative int64     `json:"cumulative"`
}
