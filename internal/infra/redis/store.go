package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"time"

	"quiz-score-service/internal/domain"
	"github.com/redis/go-redis/v9"
)

// Store is a Redis implementation of app.ParticipantRepository and
// app.ScoreRepository. Layout:
//
//	participant:{addr}        hash   profile fields + total_score
//	participants              zset   addr scored by registration unix nano
//	leaderboard               zset   addr scored by total score
//	attempts:{addr}           hash   {quizID} -> score entry JSON
//	attempttimes:{addr}       zset   quizID scored by creation unix nano
//
// HSetNX makes participant creation and attempt insertion atomic
// check-and-inserts; HIncrBy makes accrual a single atomic increment.
type Store struct {
	client *redis.Client
	clock  func() time.Time
}

func NewStore(client *redis.Client) *Store {
	return &Store{client: client, clock: time.Now}
}

// NewStoreWithClock allows deterministic timestamps in tests.
func NewStoreWithClock(client *redis.Client, now func() time.Time) *Store {
	return &Store{client: client, clock: now}
}

func participantKey(address string) string { return "participant:" + address }
func attemptsKey(address string) string    { return "attempts:" + address }
func timesKey(address string) string       { return "attempttimes:" + address }

const (
	participantsKey = "participants"
	leaderboardKey  = "leaderboard"
)

func (s *Store) Create(ctx context.Context, p *domain.Participant) error {
	now := s.clock()
	key := participantKey(p.Address)

	created, err := s.client.HSetNX(ctx, key, "address", p.Address).Result()
	if err != nil {
		return fmt.Errorf("create participant: %w", err)
	}
	if !created {
		return domain.ErrParticipantExists
	}

	p.CreatedAt = now
	p.UpdatedAt = now
	pipe := s.client.Pipeline()
	pipe.HSet(ctx, key,
		"display_name", p.DisplayName,
		"image_url", p.ImageURL,
		"total_score", p.TotalScore,
		"level", p.Level,
		"created_at", now.Format(time.RFC3339Nano),
		"updated_at", now.Format(time.RFC3339Nano),
	)
	pipe.ZAdd(ctx, participantsKey, redis.Z{Score: float64(now.UnixNano()), Member: p.Address})
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("create participant: %w", err)
	}
	return nil
}

func (s *Store) Get(ctx context.Context, address string) (domain.Participant, error) {
	fields, err := s.client.HGetAll(ctx, participantKey(address)).Result()
	if err != nil {
		return domain.Participant{}, fmt.Errorf("get participant: %w", err)
	}
	if len(fields) == 0 {
		return domain.Participant{}, domain.ErrParticipantNotFound
	}
	return participantFromHash(fields), nil
}

func (s *Store) UpdateProfile(ctx context.Context, address string, displayName, imageURL *string) (domain.Participant, error) {
	key := participantKey(address)
	exists, err := s.client.Exists(ctx, key).Result()
	if err != nil {
		return domain.Participant{}, fmt.Errorf("update profile: %w", err)
	}
	if exists == 0 {
		return domain.Participant{}, domain.ErrParticipantNotFound
	}

	values := []interface{}{"updated_at", s.clock().Format(time.RFC3339Nano)}
	if displayName != nil {
		values = append(values, "display_name", *displayName)
	}
	if imageURL != nil {
		values = append(values, "image_url", *imageURL)
	}
	if err := s.client.HSet(ctx, key, values...).Err(); err != nil {
		return domain.Participant{}, fmt.Errorf("update profile: %w", err)
	}
	return s.Get(ctx, address)
}

func (s *Store) AccrueScore(ctx context.Context, address string, delta int) (domain.Participant, error) {
	key := participantKey(address)
	exists, err := s.client.Exists(ctx, key).Result()
	if err != nil {
		return domain.Participant{}, fmt.Errorf("accrue: %w", err)
	}
	if exists == 0 {
		return domain.Participant{}, domain.ErrParticipantNotFound
	}

	if _, err := s.client.HIncrBy(ctx, key, "total_score", int64(delta)).Result(); err != nil {
		return domain.Participant{}, fmt.Errorf("accrue: %w", err)
	}

	// ZIncrBy is commutative, so concurrent accruals cannot leave the
	// leaderboard index behind the hash total regardless of commit order.
	pipe := s.client.Pipeline()
	pipe.HSet(ctx, key, "updated_at", s.clock().Format(time.RFC3339Nano))
	pipe.ZIncrBy(ctx, leaderboardKey, float64(delta), address)
	if _, err := pipe.Exec(ctx); err != nil {
		return domain.Participant{}, fmt.Errorf("accrue: %w", err)
	}
	return s.Get(ctx, address)
}

func (s *Store) SetTotalScore(ctx context.Context, address string, total int) error {
	key := participantKey(address)
	exists, err := s.client.Exists(ctx, key).Result()
	if err != nil {
		return fmt.Errorf("set total: %w", err)
	}
	if exists == 0 {
		return domain.ErrParticipantNotFound
	}

	pipe := s.client.Pipeline()
	pipe.HSet(ctx, key, "total_score", total, "updated_at", s.clock().Format(time.RFC3339Nano))
	pipe.ZAdd(ctx, leaderboardKey, redis.Z{Score: float64(total), Member: address})
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("set total: %w", err)
	}
	return nil
}

func (s *Store) TopByScore(ctx context.Context, limit int) ([]domain.Participant, error) {
	members, err := s.client.ZRevRangeByScore(ctx, leaderboardKey, &redis.ZRangeBy{
		Min:    "(0",
		Max:    "+inf",
		Offset: 0,
		Count:  int64(limit),
	}).Result()
	if err != nil {
		return nil, fmt.Errorf("leaderboard range: %w", err)
	}

	// The zset slices equal scores lexicographically, so the window may cut
	// through a tie group. Pull in the whole group at the boundary score so
	// the creation-time tie-break decides who makes the cut.
	if len(members) == limit && limit > 0 {
		boundary, err := s.client.ZScore(ctx, leaderboardKey, members[limit-1]).Result()
		if err != nil {
			return nil, fmt.Errorf("leaderboard boundary: %w", err)
		}
		score := strconv.FormatFloat(boundary, 'f', -1, 64)
		ties, err := s.client.ZRangeByScore(ctx, leaderboardKey, &redis.ZRangeBy{Min: score, Max: score}).Result()
		if err != nil {
			return nil, fmt.Errorf("leaderboard ties: %w", err)
		}
		seen := make(map[string]struct{}, len(members))
		for _, addr := range members {
			seen[addr] = struct{}{}
		}
		for _, addr := range ties {
			if _, ok := seen[addr]; !ok {
				members = append(members, addr)
			}
		}
	}

	ranked := make([]domain.Participant, 0, len(members))
	for _, addr := range members {
		p, err := s.Get(ctx, addr)
		if err != nil {
			return nil, err
		}
		ranked = append(ranked, p)
	}
	sort.SliceStable(ranked, func(i, j int) bool {
		if ranked[i].TotalScore != ranked[j].TotalScore {
			return ranked[i].TotalScore > ranked[j].TotalScore
		}
		if !ranked[i].CreatedAt.Equal(ranked[j].CreatedAt) {
			return ranked[i].CreatedAt.Before(ranked[j].CreatedAt)
		}
		return ranked[i].Address < ranked[j].Address
	})
	if len(ranked) > limit {
		ranked = ranked[:limit]
	}
	return ranked, nil
}

func (s *Store) All(ctx context.Context) ([]domain.Participant, error) {
	members, err := s.client.ZRange(ctx, participantsKey, 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("list participants: %w", err)
	}
	all := make([]domain.Participant, 0, len(members))
	for _, addr := range members {
		p, err := s.Get(ctx, addr)
		if err != nil {
			return nil, err
		}
		all = append(all, p)
	}
	return all, nil
}

func (s *Store) Insert(ctx context.Context, entry *domain.ScoreEntry) error {
	entry.ID = entry.Address + ":" + entry.QuizID
	entry.CreatedAt = s.clock()

	payload, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("marshal entry: %w", err)
	}
	inserted, err := s.client.HSetNX(ctx, attemptsKey(entry.Address), entry.QuizID, payload).Result()
	if err != nil {
		return fmt.Errorf("insert entry: %w", err)
	}
	if !inserted {
		return domain.ErrDuplicateAttempt
	}
	if err := s.client.ZAdd(ctx, timesKey(entry.Address), redis.Z{
		Score:  float64(entry.CreatedAt.UnixNano()),
		Member: entry.QuizID,
	}).Err(); err != nil {
		return fmt.Errorf("insert entry: %w", err)
	}
	return nil
}

func (s *Store) List(ctx context.Context, address string, limit, offset int) ([]domain.ScoreEntry, int, error) {
	total, err := s.client.ZCard(ctx, timesKey(address)).Result()
	if err != nil {
		return nil, 0, fmt.Errorf("list entries: %w", err)
	}
	if total == 0 || int64(offset) >= total {
		return []domain.ScoreEntry{}, int(total), nil
	}

	quizIDs, err := s.client.ZRevRange(ctx, timesKey(address), int64(offset), int64(offset+limit-1)).Result()
	if err != nil {
		return nil, 0, fmt.Errorf("list entries: %w", err)
	}
	raw, err := s.client.HMGet(ctx, attemptsKey(address), quizIDs...).Result()
	if err != nil {
		return nil, 0, fmt.Errorf("list entries: %w", err)
	}

	entries := make([]domain.ScoreEntry, 0, len(raw))
	for _, v := range raw {
		str, ok := v.(string)
		if !ok {
			continue
		}
		var e domain.ScoreEntry
		if err := json.Unmarshal([]byte(str), &e); err != nil {
			return nil, 0, fmt.Errorf("decode entry: %w", err)
		}
		entries = append(entries, e)
	}
	return entries, int(total), nil
}

func (s *Store) Stats(ctx context.Context, address string) (domain.UserStats, error) {
	raw, err := s.client.HVals(ctx, attemptsKey(address)).Result()
	if err != nil {
		return domain.UserStats{}, fmt.Errorf("stats: %w", err)
	}
	if len(raw) == 0 {
		return domain.UserStats{}, nil
	}

	stats := domain.UserStats{Count: len(raw)}
	sum := 0
	for _, v := range raw {
		var e domain.ScoreEntry
		if err := json.Unmarshal([]byte(v), &e); err != nil {
			return domain.UserStats{}, fmt.Errorf("decode entry: %w", err)
		}
		sum += e.RawScore
		if e.RawScore > stats.BestScore {
			stats.BestScore = e.RawScore
		}
	}
	stats.AverageScore = float64(sum) / float64(len(raw))
	return stats, nil
}

func (s *Store) SumScores(ctx context.Context, address string) (int, error) {
	raw, err := s.client.HVals(ctx, attemptsKey(address)).Result()
	if err != nil {
		return 0, fmt.Errorf("sum scores: %w", err)
	}
	sum := 0
	for _, v := range raw {
		var e domain.ScoreEntry
		if err := json.Unmarshal([]byte(v), &e); err != nil {
			return 0, fmt.Errorf("decode entry: %w", err)
		}
		sum += e.RawScore
	}
	return sum, nil
}

func (s *Store) AttemptCounts(ctx context.Context, addresses []string) (map[string]int, error) {
	counts := make(map[string]int, len(addresses))
	for _, addr := range addresses {
		n, err := s.client.HLen(ctx, attemptsKey(addr)).Result()
		if err != nil {
			return nil, fmt.Errorf("attempt counts: %w", err)
		}
		counts[addr] = int(n)
	}
	return counts, nil
}

func (s *Store) Ping(ctx context.Context) error {
	if err := s.client.Ping(ctx).Err(); err != nil {
		return domain.ErrStoreUnavailable
	}
	return nil
}

func participantFromHash(fields map[string]string) domain.Participant {
	total, _ := strconv.Atoi(fields["total_score"])
	createdAt, _ := time.Parse(time.RFC3339Nano, fields["created_at"])
	updatedAt, _ := time.Parse(time.RFC3339Nano, fields["updated_at"])
	return domain.Participant{
		Address:     fields["address"],
		DisplayName: fields["display_name"],
		ImageURL:    fields["image_url"],
		TotalScore:  total,
		Level:       fields["level"],
		CreatedAt:   createdAt,
		UpdatedAt:   updatedAt,
	}
}
