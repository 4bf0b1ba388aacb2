package service

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/coder/quartz"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pokernight/platform/internal/domain"
	"github.com/pokernight/platform/internal/notify"
	"github.com/pokernight/platform/internal/repository"
	"github.com/pokernight/platform/internal/settle"
)

// codeRetries bounds how many times game creation retries on a join-code
// collision before giving up.
const codeRetries = 5

// GameService handles the game lifecycle: creation, joining, rebuys and the
// end-of-game settlement sequence.
type GameService struct {
	pool         *pgxpool.Pool
	games        repository.GameRepository
	members      repository.MembershipRepository
	rebuys       repository.RebuyRepository
	stats        repository.StatisticsRepository
	debts        repository.DebtRepository
	users        repository.UserRepository
	outbox       repository.OutboxRepository
	strategy     settle.Strategy
	defaultOwner string
	clock        quartz.Clock
	logger       *slog.Logger
}

// NewGameService creates a GameService. defaultOwner is the username joined
// to games created without an authenticated creator (ops tooling).
func NewGameService(
	pool *pgxpool.Pool,
	games repository.GameRepository,
	members repository.MembershipRepository,
	rebuys repository.RebuyRepository,
	stats repository.StatisticsRepository,
	debts repository.DebtRepository,
	users repository.UserRepository,
	outbox repository.OutboxRepository,
	strategy settle.Strategy,
	defaultOwner string,
	clock quartz.Clock,
	logger *slog.Logger,
) *GameService {
	return &GameService{
		pool:         pool,
		games:        games,
		members:      members,
		rebuys:       rebuys,
		stats:        stats,
		debts:        debts,
		users:        users,
		outbox:       outbox,
		strategy:     strategy,
		defaultOwner: defaultOwner,
		clock:        clock,
		logger:       logger,
	}
}

// CreateGameInput holds the table settings for a new game.
type CreateGameInput struct {
	BuyIn           int64 `json:"buy_in"`
	Blind           int64 `json:"blind"`
	HowManyPLO      int   `json:"how_many_plo"`
	HowOftenStandUp int   `json:"how_often_stand_up"`
	IsPokerJackpot  bool  `json:"is_poker_jackpot"`
	IsWin27         bool  `json:"is_win_27"`
}

// Create opens a new game with a fresh join code and joins the creator to it.
// A zero creatorID means the game was opened by ops tooling; the configured
// default owner takes the seat instead.
func (s *GameService) Create(ctx context.Context, creatorID uuid.UUID, input CreateGameInput) (*domain.Game, error) {
	if input.BuyIn == 0 {
		input.BuyIn = domain.DefaultBuyIn
	}
	if err := domain.ValidatePositiveAmount(input.BuyIn); err != nil {
		return nil, domain.ErrValidation("buy_in: " + err.Error())
	}
	if err := domain.ValidateNonNegativeAmount(input.Blind); err != nil {
		return nil, domain.ErrValidation("blind: " + err.Error())
	}

	if creatorID == uuid.Nil {
		owner, err := s.users.FindByUsername(ctx, s.pool, s.defaultOwner)
		if err != nil {
			return nil, domain.ErrInternal("find default owner", err)
		}
		if owner == nil {
			return nil, domain.ErrInternal("default game owner not provisioned", nil)
		}
		creatorID = owner.ID
	}

	now := s.clock.Now()
	game := &domain.Game{
		ID:              uuid.New(),
		BuyIn:           input.BuyIn,
		Blind:           input.Blind,
		HowManyPLO:      input.HowManyPLO,
		HowOftenStandUp: input.HowOftenStandUp,
		IsPokerJackpot:  input.IsPokerJackpot,
		IsWin27:         input.IsWin27,
		CreatorID:       creatorID,
		StartTime:       now,
	}

	// A collision on the unique code column aborts the transaction, so each
	// attempt runs in its own.
	var err error
	for i := 0; i < codeRetries; i++ {
		game.Code = domain.NewGameCode()
		err = s.createGame(ctx, game, creatorID, now)
		if err == nil {
			s.logger.Info("game created", "code", game.Code, "buy_in", game.BuyIn)
			return game, nil
		}
		if !isUniqueViolation(err) {
			return nil, domain.ErrInternal("create game", err)
		}
	}
	return nil, domain.ErrInternal("exhausted game code retries", err)
}

func (s *GameService) createGame(ctx context.Context, game *domain.Game, creatorID uuid.UUID, now time.Time) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	if err := s.games.Create(ctx, tx, game); err != nil {
		return err
	}

	membership := &domain.Membership{
		ID:       uuid.New(),
		UserID:   creatorID,
		GameID:   game.ID,
		JoinTime: now,
	}
	if err := s.members.Create(ctx, tx, membership); err != nil {
		return err
	}
	if err := s.rebuys.Add(ctx, tx, membership.ID, 1); err != nil {
		return err
	}
	if err := s.outbox.Insert(ctx, tx, domain.NewGameCreatedEvent(game)); err != nil {
		return err
	}

	return tx.Commit(ctx)
}

// Join seats the user at the game identified by code. The first buy-in is
// recorded as part of joining.
func (s *GameService) Join(ctx context.Context, userID uuid.UUID, code string) (*domain.Membership, error) {
	game, err := s.findOpenGame(ctx, code)
	if err != nil {
		return nil, err
	}

	existing, err := s.members.Find(ctx, s.pool, userID, game.ID)
	if err != nil {
		return nil, domain.ErrInternal("find membership", err)
	}
	if existing != nil {
		return nil, domain.ErrConflict("already joined this game")
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, domain.ErrInternal("begin tx", err)
	}
	defer tx.Rollback(ctx)

	membership := &domain.Membership{
		ID:       uuid.New(),
		UserID:   userID,
		GameID:   game.ID,
		JoinTime: s.clock.Now(),
	}
	if err := s.members.Create(ctx, tx, membership); err != nil {
		if isUniqueViolation(err) {
			return nil, domain.ErrConflict("already joined this game")
		}
		return nil, domain.ErrInternal("create membership", err)
	}
	if err := s.rebuys.Add(ctx, tx, membership.ID, 1); err != nil {
		return nil, domain.ErrInternal("record initial buy-in", err)
	}
	if err := s.outbox.Insert(ctx, tx, domain.NewPlayerJoinedEvent(membership)); err != nil {
		return nil, domain.ErrInternal("record join event", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, domain.ErrInternal("commit tx", err)
	}
	return membership, nil
}

// MembershipStatus reports whether the caller sits at the table and whether
// the game has already ended.
type MembershipStatus struct {
	IsInGame    bool `json:"is_in_game"`
	IsGameEnded bool `json:"is_game_ended"`
}

// CheckMembership reports the caller's relation to the game.
func (s *GameService) CheckMembership(ctx context.Context, userID uuid.UUID, code string) (*MembershipStatus, error) {
	game, err := s.games.FindByCode(ctx, s.pool, code)
	if err != nil {
		return nil, domain.ErrInternal("find game", err)
	}
	if game == nil {
		return nil, domain.ErrNotFound("game", code)
	}

	membership, err := s.members.Find(ctx, s.pool, userID, game.ID)
	if err != nil {
		return nil, domain.ErrInternal("find membership", err)
	}

	return &MembershipStatus{
		IsInGame:    membership != nil,
		IsGameEnded: game.IsClosed,
	}, nil
}

// PlayerListResult is the roster with per-player stacks.
type PlayerListResult struct {
	BuyIn   int64                `json:"buy_in"`
	Players []domain.PlayerStack `json:"players"`
}

// PlayerList returns the table roster. Superusers see every player's stack;
// a regular player sees only their own.
func (s *GameService) PlayerList(ctx context.Context, callerID uuid.UUID, isSuperuser bool, code string) (*PlayerListResult, error) {
	game, err := s.games.FindByCode(ctx, s.pool, code)
	if err != nil {
		return nil, domain.ErrInternal("find game", err)
	}
	if game == nil {
		return nil, domain.ErrNotFound("game", code)
	}

	members, err := s.members.ListByGame(ctx, s.pool, game.ID)
	if err != nil {
		return nil, domain.ErrInternal("list members", err)
	}

	result := &PlayerListResult{BuyIn: game.BuyIn, Players: []domain.PlayerStack{}}
	for _, m := range members {
		if !isSuperuser && m.Membership.UserID != callerID {
			continue
		}
		stack, err := s.rebuys.StackForMembership(ctx, s.pool, m.Membership.ID)
		if err != nil {
			return nil, domain.ErrInternal("sum stack", err)
		}
		result.Players = append(result.Players, domain.PlayerStack{Username: m.Username, Stack: stack})
	}
	return result, nil
}

// Rebuy records one more buy-in for the named player.
func (s *GameService) Rebuy(ctx context.Context, code, username string) error {
	game, membership, err := s.findMember(ctx, code, username)
	if err != nil {
		return err
	}
	if game.IsClosed {
		return domain.ErrAlreadyClosed(code)
	}
	if err := s.rebuys.Add(ctx, s.pool, membership.ID, 1); err != nil {
		return domain.ErrInternal("record rebuy", err)
	}
	return nil
}

// UndoRebuy removes the named player's most recent rebuy. Superuser only.
func (s *GameService) UndoRebuy(ctx context.Context, isSuperuser bool, code, username string) error {
	if !isSuperuser {
		return domain.ErrForbidden("only a superuser can undo a rebuy")
	}
	_, membership, err := s.findMember(ctx, code, username)
	if err != nil {
		return err
	}
	removed, err := s.rebuys.RemoveLast(ctx, s.pool, membership.ID)
	if err != nil {
		return domain.ErrInternal("remove rebuy", err)
	}
	if !removed {
		return domain.ErrValidation("no rebuy to undo")
	}
	return nil
}

// GameData is the live table overview.
type GameData struct {
	Blind           int64     `json:"blind"`
	StartTime       time.Time `json:"start_time"`
	MoneyOnTable    int64     `json:"money_on_table"`
	NumberOfPlayers int       `json:"number_of_players"`
	AvgStack        int64     `json:"avg_stack"`
}

// Data returns the live table overview for the game.
func (s *GameService) Data(ctx context.Context, code string) (*GameData, error) {
	game, err := s.games.FindByCode(ctx, s.pool, code)
	if err != nil {
		return nil, domain.ErrInternal("find game", err)
	}
	if game == nil {
		return nil, domain.ErrNotFound("game", code)
	}

	total, err := s.rebuys.TotalOnTable(ctx, s.pool, game.ID)
	if err != nil {
		return nil, domain.ErrInternal("sum table", err)
	}
	count, err := s.members.CountByGame(ctx, s.pool, game.ID)
	if err != nil {
		return nil, domain.ErrInternal("count players", err)
	}

	data := &GameData{
		Blind:           game.Blind,
		StartTime:       game.StartTime,
		MoneyOnTable:    total,
		NumberOfPlayers: count,
	}
	if count > 0 {
		data.AvgStack = total / int64(count)
	}
	return data, nil
}

// AdditionalData is the game's option flags.
type AdditionalData struct {
	HowManyPLO      int  `json:"how_many_plo"`
	HowOftenStandUp int  `json:"how_often_stand_up"`
	IsPokerJackpot  bool `json:"is_poker_jackpot"`
	IsWin27         bool `json:"is_win_27"`
}

// Additional returns the game's option flags.
func (s *GameService) Additional(ctx context.Context, code string) (*AdditionalData, error) {
	game, err := s.games.FindByCode(ctx, s.pool, code)
	if err != nil {
		return nil, domain.ErrInternal("find game", err)
	}
	if game == nil {
		return nil, domain.ErrNotFound("game", code)
	}
	return &AdditionalData{
		HowManyPLO:      game.HowManyPLO,
		HowOftenStandUp: game.HowOftenStandUp,
		IsPokerJackpot:  game.IsPokerJackpot,
		IsWin27:         game.IsWin27,
	}, nil
}

// PlayerResultInput is one row of the end-of-game settlement request.
type PlayerResultInput struct {
	Username string `json:"username"`
	BuyIn    int64  `json:"buy_in"`
	CashOut  int64  `json:"cash_out"`
}

// EndGameResult summarizes the close.
type EndGameResult struct {
	Code      string            `json:"code"`
	EndTime   time.Time         `json:"end_time"`
	Duration  float64           `json:"duration_hours"`
	Transfers []settle.Transfer `json:"transfers"`
}

// EndGame validates the final results, settles the table and closes the game.
// All writes — statistics rows, debts, the close itself and the notification
// events — happen in one transaction under a row lock on the game, so a
// double close loses cleanly and a failed step keeps nothing.
func (s *GameService) EndGame(ctx context.Context, isSuperuser bool, code string, results []PlayerResultInput) (*EndGameResult, error) {
	if !isSuperuser {
		return nil, domain.ErrForbidden("only a superuser can end a game")
	}
	if len(results) == 0 {
		return nil, domain.ErrEmptyBatch()
	}

	usernames := make([]string, 0, len(results))
	for _, r := range results {
		usernames = append(usernames, r.Username)
	}
	users, err := s.users.FindByUsernames(ctx, s.pool, usernames)
	if err != nil {
		return nil, domain.ErrInternal("resolve players", err)
	}
	byName := make(map[string]domain.User, len(users))
	for _, u := range users {
		byName[u.Username] = u
	}
	var missing []string
	for _, name := range usernames {
		if _, ok := byName[name]; !ok {
			missing = append(missing, name)
		}
	}
	if len(missing) > 0 {
		return nil, domain.ErrUnknownPlayer(missing)
	}

	batch := make([]settle.PlayerResult, 0, len(results))
	for _, r := range results {
		batch = append(batch, settle.PlayerResult{
			UserID:   byName[r.Username].ID,
			Username: r.Username,
			BuyIn:    r.BuyIn,
			CashOut:  r.CashOut,
		})
	}
	if err := settle.ValidateBatch(batch); err != nil {
		return nil, err
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, domain.ErrInternal("begin tx", err)
	}
	defer tx.Rollback(ctx)

	game, err := s.games.LockByCode(ctx, tx, code)
	if err != nil {
		return nil, domain.ErrInternal("lock game", err)
	}
	if game == nil {
		return nil, domain.ErrNotFound("game", code)
	}
	if game.IsClosed {
		return nil, domain.ErrAlreadyClosed(code)
	}

	members, err := s.members.ListByGame(ctx, tx, game.ID)
	if err != nil {
		return nil, domain.ErrInternal("list members", err)
	}
	memberByUser := make(map[uuid.UUID]repository.Member, len(members))
	for _, m := range members {
		memberByUser[m.Membership.UserID] = m
	}

	now := s.clock.Now()
	for _, p := range batch {
		member, ok := memberByUser[p.UserID]
		if !ok {
			return nil, domain.ErrPlayerNotInGame(p.Username, code)
		}
		rec := &domain.StatisticsRecord{
			ID:           uuid.New(),
			MembershipID: member.Membership.ID,
			BuyIn:        p.BuyIn,
			CashOut:      p.CashOut,
			RecordedAt:   now,
		}
		if err := s.stats.Insert(ctx, tx, rec); err != nil {
			return nil, domain.ErrInternal("insert statistics", err)
		}
	}

	transfers := s.strategy.Settle(batch)
	for _, t := range transfers {
		debt := &domain.Debt{
			ID:         uuid.New(),
			GameID:     game.ID,
			SenderID:   t.SenderID,
			ReceiverID: t.ReceiverID,
			Amount:     t.Amount,
		}
		if err := s.debts.Insert(ctx, tx, debt); err != nil {
			return nil, domain.ErrInternal("insert debt", err)
		}
		if err := s.outbox.Insert(ctx, tx, domain.NewDebtCreatedEvent(debt)); err != nil {
			return nil, domain.ErrInternal("record debt event", err)
		}
	}

	duration := now.Sub(game.StartTime)
	if err := s.games.Close(ctx, tx, game.ID, now, duration); err != nil {
		return nil, domain.ErrInternal("close game", err)
	}
	game.EndTime = &now
	game.Duration = &duration
	game.IsClosed = true

	if err := s.outbox.Insert(ctx, tx, domain.NewGameClosedEvent(game, len(transfers))); err != nil {
		return nil, domain.ErrInternal("record close event", err)
	}

	// One summary event per settled player that has an email on file. The
	// outbox poller hands these to the notifier out-of-band.
	for _, p := range batch {
		member := memberByUser[p.UserID]
		if member.Email == "" {
			continue
		}
		summary := notify.BuildSummary(game, p, batch, transfers)
		payload, err := json.Marshal(summary)
		if err != nil {
			return nil, domain.ErrInternal("marshal summary", err)
		}
		event := domain.NewGameSummaryEvent(game.ID, p.UserID, member.Email, payload)
		if err := s.outbox.Insert(ctx, tx, event); err != nil {
			return nil, domain.ErrInternal("record summary event", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, domain.ErrInternal("commit tx", err)
	}

	s.logger.Info("game closed",
		"code", game.Code,
		"players", len(batch),
		"transfers", len(transfers),
		"duration", duration.Round(time.Minute).String(),
	)

	return &EndGameResult{
		Code:      game.Code,
		EndTime:   now,
		Duration:  duration.Hours(),
		Transfers: transfers,
	}, nil
}

func (s *GameService) findOpenGame(ctx context.Context, code string) (*domain.Game, error) {
	game, err := s.games.FindByCode(ctx, s.pool, code)
	if err != nil {
		return nil, domain.ErrInternal("find game", err)
	}
	if game == nil {
		return nil, domain.ErrNotFound("game", code)
	}
	if game.IsClosed {
		return nil, domain.ErrAlreadyClosed(code)
	}
	return game, nil
}

func (s *GameService) findMember(ctx context.Context, code, username string) (*domain.Game, *domain.Membership, error) {
	game, err := s.games.FindByCode(ctx, s.pool, code)
	if err != nil {
		return nil, nil, domain.ErrInternal("find game", err)
	}
	if game == nil {
		return nil, nil, domain.ErrNotFound("game", code)
	}

	user, err := s.users.FindByUsername(ctx, s.pool, username)
	if err != nil {
		return nil, nil, domain.ErrInternal("find user", err)
	}
	if user == nil {
		return nil, nil, domain.ErrPlayerNotInGame(username, code)
	}

	membership, err := s.members.Find(ctx, s.pool, user.ID, game.ID)
	if err != nil {
		return nil, nil, domain.ErrInternal("find membership", err)
	}
	if membership == nil {
		return nil, nil, domain.ErrPlayerNotInGame(username, code)
	}
	return game, membership, nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}
