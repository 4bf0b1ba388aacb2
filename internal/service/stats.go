package service

import (
	"context"
	"math"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pokernight/platform/internal/domain"
	"github.com/pokernight/platform/internal/repository"
)

// StatsService builds reports over the append-only statistics ledger.
type StatsService struct {
	pool    *pgxpool.Pool
	stats   repository.StatisticsRepository
	members repository.MembershipRepository
}

// NewStatsService creates a StatsService.
func NewStatsService(pool *pgxpool.Pool, stats repository.StatisticsRepository, members repository.MembershipRepository) *StatsService {
	return &StatsService{pool: pool, stats: stats, members: members}
}

// UserStats computes the aggregate report for one user.
//
// AverageStake divides by games joined while WinRate is a ratio of the
// ledger sums; a player who joined but never settled lowers the former
// without touching the latter.
func (s *StatsService) UserStats(ctx context.Context, userID uuid.UUID) (*domain.UserStats, error) {
	agg, err := s.stats.AggregateByUser(ctx, s.pool, userID)
	if err != nil {
		return nil, domain.ErrInternal("aggregate statistics", err)
	}
	gamesPlayed, err := s.members.CountByUser(ctx, s.pool, userID)
	if err != nil {
		return nil, domain.ErrInternal("count games", err)
	}
	playSeconds, err := s.stats.PlayTimeSeconds(ctx, s.pool, userID)
	if err != nil {
		return nil, domain.ErrInternal("sum play time", err)
	}

	stats := &domain.UserStats{
		Earn:        agg.TotalCashOut - agg.TotalBuyIn,
		GamesPlayed: gamesPlayed,
		HighestWin:  agg.HighestWin,
		TotalBuyIn:  agg.TotalBuyIn,
	}

	hours := float64(playSeconds) / 3600
	stats.TotalPlayTime = round2(hours)
	if hours > 0 {
		stats.HourlyRate = round2(float64(stats.Earn) / hours)
	}
	if gamesPlayed > 0 {
		stats.AverageStake = agg.TotalBuyIn / int64(gamesPlayed)
	}
	if agg.TotalBuyIn > 0 {
		stats.WinRate = round2(float64(agg.TotalCashOut) / float64(agg.TotalBuyIn))
	}
	return stats, nil
}

// PlotData is the user's result history for charting.
type PlotData struct {
	Labels            []string `json:"labels"`
	SingleGameResults []int64  `json:"single_game_results"`
	CumulativeResults []int64  `json:"cumulative_results"`
}

// PlotData returns the user's per-game and cumulative results in settle
// order.
func (s *StatsService) PlotData(ctx context.Context, userID uuid.UUID) (*PlotData, error) {
	recs, err := s.stats.ListByUser(ctx, s.pool, userID)
	if err != nil {
		return nil, domain.ErrInternal("list statistics", err)
	}

	data := &PlotData{
		Labels:            make([]string, 0, len(recs)),
		SingleGameResults: make([]int64, 0, len(recs)),
		CumulativeResults: make([]int64, 0, len(recs)),
	}
	var running int64
	for _, rec := range recs {
		result := rec.Result()
		running += result
		data.Labels = append(data.Labels, rec.RecordedAt.Format("2006-01-02"))
		data.SingleGameResults = append(data.SingleGameResults, result)
		data.CumulativeResults = append(data.CumulativeResults, running)
	}
	return data, nil
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
