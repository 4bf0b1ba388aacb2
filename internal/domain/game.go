package domain

import (
	"crypto/rand"
	"time"

	"github.com/google/uuid"
)

// GameCodeLength is the length of the join code printed on the table.
const GameCodeLength = 8

// DefaultBuyIn is the default buy-in in cents (50.00).
const DefaultBuyIn int64 = 5000

// Game represents a games row: one poker night session.
// IsClosed is one-way; EndTime and Duration are set exactly once at close.
type Game struct {
	ID              uuid.UUID      `json:"id"`
	Code            string         `json:"code"`
	BuyIn           int64          `json:"buy_in"`
	Blind           int64          `json:"blind"`
	HowManyPLO      int            `json:"how_many_plo"`
	HowOftenStandUp int            `json:"how_often_stand_up"`
	IsPokerJackpot  bool           `json:"is_poker_jackpot"`
	IsWin27         bool           `json:"is_win_27"`
	CreatorID       uuid.UUID      `json:"creator_id"`
	StartTime       time.Time      `json:"start_time"`
	EndTime         *time.Time     `json:"end_time,omitempty"`
	Duration        *time.Duration `json:"duration,omitempty"`
	IsClosed        bool           `json:"is_closed"`
}

// Membership represents a game_players row: one player joined to one game.
// Unique per (player, game).
type Membership struct {
	ID       uuid.UUID `json:"id"`
	UserID   uuid.UUID `json:"user_id"`
	GameID   uuid.UUID `json:"game_id"`
	JoinTime time.Time `json:"join_time"`
}

// Rebuy represents an actions row: one buy-in or rebuy event during play.
// Stack on the table is the sum of Multiplier times the game's buy-in.
type Rebuy struct {
	ID           uuid.UUID `json:"id"`
	MembershipID uuid.UUID `json:"membership_id"`
	Multiplier   int       `json:"multiplier"`
	ActionTime   time.Time `json:"action_time"`
}

// PlayerStack pairs a username with the cash currently in front of them.
type PlayerStack struct {
	Username string `json:"name"`
	Stack    int64  `json:"stack"`
}

const codeAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ"

// NewGameCode returns a random 8-letter uppercase join code.
// Uniqueness is enforced by the games.code unique constraint; callers retry
// on conflict.
func NewGameCode() string {
	buf := make([]byte, GameCodeLength)
	if _, err := rand.Read(buf); err != nil {
		panic(err) // crypto/rand never fails on supported platforms
	}
	for i, b := range buf {
		buf[i] = codeAlphabet[int(b)%len(codeAlphabet)]
	}
	return string(buf)
}
