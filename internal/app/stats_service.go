package app

import (
	"context"
	"fmt"

	"quiz-score-service/internal/domain"
	"golang.org/x/sync/singleflight"
)

const (
	maxHistoryLimit     = 100
	maxLeaderboardLimit = 500
)

// StatsService computes per-user statistics, attempt history, and the
// global leaderboard on demand. Nothing is materialized; concurrent
// identical leaderboard reads are collapsed with singleflight.
type StatsService struct {
	participants ParticipantRepository
	scores       ScoreRepository
	sf           singleflight.Group
}

func NewStatsService(participants ParticipantRepository, scores ScoreRepository) *StatsService {
	return &StatsService{participants: participants, scores: scores}
}

// UserStats returns {count, average, best} over raw scores. A participant
// with no entries gets zero values, never an error.
func (s *StatsService) UserStats(ctx context.Context, address string) (domain.UserStats, error) {
	addr, err := domain.NormalizeAddress(address)
	if err != nil {
		return domain.UserStats{}, err
	}
	return s.scores.Stats(ctx, addr)
}

// History returns attempts newest-first. Limit is clamped to [1,100],
// offset to >= 0.
func (s *StatsService) History(ctx context.Context, address string, limit, offset int) ([]domain.ScoreEntry, int, error) {
	addr, err := domain.NormalizeAddress(address)
	if err != nil {
		return nil, 0, err
	}
	if limit < 1 {
		limit = 1
	}
	if limit > maxHistoryLimit {
		limit = maxHistoryLimit
	}
	if offset < 0 {
		offset = 0
	}
	return s.scores.List(ctx, addr, limit, offset)
}

// Leaderboard ranks participants with total > 0 by descending total;
// equal totals order by registration time ascending, then address. Ranks
// are the contiguous 1-based positions of that ordering. Limit is clamped
// to [1,500].
func (s *StatsService) Leaderboard(ctx context.Context, limit int) ([]domain.LeaderboardEntry, error) {
	if limit < 1 {
		limit = 1
	}
	if limit > maxLeaderboardLimit {
		limit = maxLeaderboardLimit
	}

	result, err, _ := s.sf.Do(fmt.Sprintf("leaderboard:%d", limit), func() (interface{}, error) {
		top, err := s.participants.TopByScore(ctx, limit)
		if err != nil {
			return nil, err
		}

		addresses := make([]string, len(top))
		for i, p := range top {
			addresses[i] = p.Address
		}
		counts, err := s.scores.AttemptCounts(ctx, addresses)
		if err != nil {
			return nil, err
		}

		entries := make([]domain.LeaderboardEntry, len(top))
		for i, p := range top {
			entries[i] = domain.LeaderboardEntry{
				Rank:        i + 1,
				Address:     p.Address,
				DisplayName: p.DisplayName,
				Score:       p.TotalScore,
				QuizCount:   counts[p.Address],
			}
		}
		return entries, nil
	})
	if err != nil {
		return nil, err
	}
	return result.([]domain.LeaderboardEntry), nil
}
