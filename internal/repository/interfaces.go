package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/pokernight/platform/internal/domain"
)

// DBTX abstracts pgx.Tx and pgxpool.Pool so repositories work with both.
type DBTX interface {
	Exec(ctx context.Context, sql string, arguments ...interface{}) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...interface{}) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...interface{}) pgx.Row
}

// UserRepository provides access to users.
type UserRepository interface {
	FindByID(ctx context.Context, db DBTX, id uuid.UUID) (*domain.User, error)

	FindByUsername(ctx context.Context, db DBTX, username string) (*domain.User, error)

	// FindByUsernames resolves a set of usernames in one query. Missing names
	// are simply absent from the result; callers diff against the request.
	FindByUsernames(ctx context.Context, db DBTX, usernames []string) ([]domain.User, error)

	Create(ctx context.Context, db DBTX, user *domain.User) error

	// RecordLogin stamps last_login_at.
	RecordLogin(ctx context.Context, db DBTX, id uuid.UUID, at time.Time) error
}

// AuthUserRepository provides access to auth_users (credentials).
type AuthUserRepository interface {
	FindByUsername(ctx context.Context, db DBTX, username string) (*domain.AuthUser, error)
	Create(ctx context.Context, db DBTX, user *domain.AuthUser) error
}

// ProfileRepository provides access to user_profiles.
type ProfileRepository interface {
	FindByUserID(ctx context.Context, db DBTX, userID uuid.UUID) (*domain.UserProfile, error)
	Create(ctx context.Context, db DBTX, profile *domain.UserProfile) error
}

// GameRepository provides access to games.
type GameRepository interface {
	FindByCode(ctx context.Context, db DBTX, code string) (*domain.Game, error)

	// LockByCode acquires a row-level lock (SELECT FOR UPDATE) on the game.
	// The end-of-game sequence runs under this lock so a game can only be
	// closed once.
	LockByCode(ctx context.Context, tx pgx.Tx, code string) (*domain.Game, error)

	Create(ctx context.Context, db DBTX, game *domain.Game) error

	// Close marks the game closed with its final end time and duration.
	Close(ctx context.Context, tx pgx.Tx, gameID uuid.UUID, endTime time.Time, duration time.Duration) error
}

// Member pairs a membership row with the player's public identity.
type Member struct {
	Membership domain.Membership
	Username   string
	Email      string
}

// MembershipRepository provides access to game_players.
type MembershipRepository interface {
	Find(ctx context.Context, db DBTX, userID, gameID uuid.UUID) (*domain.Membership, error)

	Create(ctx context.Context, db DBTX, m *domain.Membership) error

	// ListByGame returns all members of a game with usernames resolved,
	// ordered by join time.
	ListByGame(ctx context.Context, db DBTX, gameID uuid.UUID) ([]Member, error)

	// CountByGame returns the number of players at the table.
	CountByGame(ctx context.Context, db DBTX, gameID uuid.UUID) (int, error)

	// CountByUser returns how many games the user has joined (the
	// games_played figure in stats).
	CountByUser(ctx context.Context, db DBTX, userID uuid.UUID) (int, error)
}

// RebuyRepository provides access to actions (buy-in/rebuy events).
type RebuyRepository interface {
	Add(ctx context.Context, db DBTX, membershipID uuid.UUID, multiplier int) error

	// RemoveLast deletes the most recent rebuy for a membership. Returns
	// false when there was nothing to remove.
	RemoveLast(ctx context.Context, db DBTX, membershipID uuid.UUID) (bool, error)

	// TotalOnTable sums multiplier*buy_in over every action in the game.
	TotalOnTable(ctx context.Context, db DBTX, gameID uuid.UUID) (int64, error)

	// StackForMembership sums multiplier*buy_in for one player.
	StackForMembership(ctx context.Context, db DBTX, membershipID uuid.UUID) (int64, error)
}

// StatsAggregate holds the SQL-side sums over a user's statistics rows.
type StatsAggregate struct {
	TotalBuyIn   int64
	TotalCashOut int64
	HighestWin   int64
	Records      int
}

// StatisticsRepository provides access to the statistics ledger. Rows are
// append-only; there is deliberately no update or delete.
type StatisticsRepository interface {
	Insert(ctx context.Context, db DBTX, rec *domain.StatisticsRecord) error

	// ListByUser returns the user's records across all games ordered by
	// recorded_at ascending (plot order).
	ListByUser(ctx context.Context, db DBTX, userID uuid.UUID) ([]domain.StatisticsRecord, error)

	// AggregateByUser computes the stat sums in SQL.
	AggregateByUser(ctx context.Context, db DBTX, userID uuid.UUID) (*StatsAggregate, error)

	// PlayTimeSeconds sums the durations of the user's closed games.
	PlayTimeSeconds(ctx context.Context, db DBTX, userID uuid.UUID) (int64, error)
}

// DebtRepository provides access to debts.
type DebtRepository interface {
	Insert(ctx context.Context, db DBTX, debt *domain.Debt) error

	// ListForUser returns the user's open obligations: outgoing rows they
	// still have to send, and incoming rows sent to them awaiting
	// acceptance. Counterparty contact details are resolved in the query.
	ListForUser(ctx context.Context, db DBTX, userID uuid.UUID) ([]domain.DebtEntry, error)

	// MarkSent flips is_sent for a debt owned by sender. Returns nil when no
	// matching unsent row exists (ownership-scoped lookup).
	MarkSent(ctx context.Context, db DBTX, debtID, senderID uuid.UUID, at time.Time) (*domain.Debt, error)

	// MarkAccepted flips is_accepted for a sent debt owned by receiver.
	MarkAccepted(ctx context.Context, db DBTX, debtID, receiverID uuid.UUID, at time.Time) (*domain.Debt, error)

	// ListByGame returns a game's debts in creation order.
	ListByGame(ctx context.Context, db DBTX, gameID uuid.UUID) ([]domain.Debt, error)
}

// EpisodeRepository provides access to the episode catalog and per-user
// watch state.
type EpisodeRepository interface {
	ListAll(ctx context.Context, db DBTX) ([]domain.Episode, error)

	FindByID(ctx context.Context, db DBTX, id uuid.UUID) (*domain.Episode, error)

	FindWatch(ctx context.Context, db DBTX, userID, episodeID uuid.UUID) (*domain.UserEpisode, error)

	// ListWatched returns the user's watched rows.
	ListWatched(ctx context.Context, db DBTX, userID uuid.UUID) ([]domain.UserEpisode, error)

	// SetWatched upserts the watch state for one episode.
	SetWatched(ctx context.Context, db DBTX, userID, episodeID uuid.UUID, watched bool, date *time.Time) error

	// BackfillWatched marks every episode numbered below the given one as
	// watched for the user, inserting rows where none exist.
	BackfillWatched(ctx context.Context, db DBTX, userID uuid.UUID, belowNumber int, date time.Time) error

	CountEpisodes(ctx context.Context, db DBTX) (int, error)
}

// OutboxRow is a fetched outbox event plus its sequence id.
type OutboxRow struct {
	SeqID int64
	Draft domain.OutboxDraft
}

// OutboxRepository provides access to the event_outbox table.
type OutboxRepository interface {
	// Insert writes an outbox event (within the same transaction as the
	// state change it describes).
	Insert(ctx context.Context, db DBTX, draft domain.OutboxDraft) error

	// FetchUnpublished returns unpublished events in occurrence order.
	FetchUnpublished(ctx context.Context, db DBTX, limit int) ([]OutboxRow, error)

	// MarkPublished stamps events as published.
	MarkPublished(ctx context.Context, db DBTX, ids []int64) error
}
