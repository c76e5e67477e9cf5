package redis

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"quiz-score-service/internal/domain"
	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func TestParticipantCreateAndGet(t *testing.T) {
	ctx := context.Background()
	store, mr := newTestStore(t)

	p := domain.Participant{Address: "0xaaaa", DisplayName: "Alice", ImageURL: "https://example.com/a.png", Level: domain.DefaultLevel}
	if err := store.Create(ctx, &p); err != nil {
		t.Fatalf("create: %v", err)
	}
	if !mr.Exists("participant:0xaaaa") {
		t.Fatalf("expected participant hash to be set")
	}

	if err := store.Create(ctx, &domain.Participant{Address: "0xaaaa", DisplayName: "Other"}); !errors.Is(err, domain.ErrParticipantExists) {
		t.Fatalf("expected exists, got %v", err)
	}

	got, err := store.Get(ctx, "0xaaaa")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.DisplayName != "Alice" || got.Level != domain.DefaultLevel || got.TotalScore != 0 {
		t.Fatalf("round trip mismatch: %+v", got)
	}
	if got.CreatedAt.IsZero() {
		t.Fatalf("created_at not stored")
	}

	if _, err := store.Get(ctx, "0xbbbb"); !errors.Is(err, domain.ErrParticipantNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestAccrueIsIncrement(t *testing.T) {
	ctx := context.Background()
	store, _ := newTestStore(t)

	if err := store.Create(ctx, &domain.Participant{Address: "0xaaaa", DisplayName: "Alice"}); err != nil {
		t.Fatalf("create: %v", err)
	}

	if _, err := store.AccrueScore(ctx, "0xaaaa", 18); err != nil {
		t.Fatalf("accrue: %v", err)
	}
	p, err := store.AccrueScore(ctx, "0xaaaa", 10)
	if err != nil {
		t.Fatalf("accrue: %v", err)
	}
	if p.TotalScore != 28 {
		t.Fatalf("expected 28, got %d", p.TotalScore)
	}

	if _, err := store.AccrueScore(ctx, "0xmissing", 1); !errors.Is(err, domain.ErrParticipantNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestConcurrentAccrualKeepsLeaderboardExact(t *testing.T) {
	ctx := context.Background()
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("run miniredis: %v", err)
	}
	defer mr.Close()

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	store := NewStore(client)

	if err := store.Create(ctx, &domain.Participant{Address: "0xaaaa", DisplayName: "Alice"}); err != nil {
		t.Fatalf("create: %v", err)
	}

	const workers = 100
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := store.AccrueScore(ctx, "0xaaaa", 1); err != nil {
				t.Errorf("accrue: %v", err)
			}
		}()
	}
	wg.Wait()

	p, err := store.Get(ctx, "0xaaaa")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if p.TotalScore != workers {
		t.Fatalf("lost updates: total %d, want %d", p.TotalScore, workers)
	}
	// The leaderboard index must agree with the hash total no matter how
	// the concurrent writes interleaved.
	zscore, err := client.ZScore(ctx, "leaderboard", "0xaaaa").Result()
	if err != nil {
		t.Fatalf("zscore: %v", err)
	}
	if int(zscore) != p.TotalScore {
		t.Fatalf("leaderboard index stale: zset=%d hash=%d", int(zscore), p.TotalScore)
	}
}

func TestInsertDuplicateAttempt(t *testing.T) {
	ctx := context.Background()
	store, _ := newTestStore(t)

	entry := domain.ScoreEntry{Address: "0xaaaa", QuizID: "q1", RawScore: 18, MaxScore: 20, Percentage: 90, Difficulty: "medium"}
	if err := store.Insert(ctx, &entry); err != nil {
		t.Fatalf("insert: %v", err)
	}
	if entry.ID == "" || entry.CreatedAt.IsZero() {
		t.Fatalf("insert left entry unfilled: %+v", entry)
	}

	dup := domain.ScoreEntry{Address: "0xaaaa", QuizID: "q1", RawScore: 3, MaxScore: 20, Difficulty: "easy"}
	if err := store.Insert(ctx, &dup); !errors.Is(err, domain.ErrDuplicateAttempt) {
		t.Fatalf("expected duplicate, got %v", err)
	}
}

func TestListAndStats(t *testing.T) {
	ctx := context.Background()
	store, _ := newTestStore(t)

	for i, raw := range []int{10, 18, 14} {
		entry := domain.ScoreEntry{Address: "0xaaaa", QuizID: fmt.Sprintf("q%d", i), RawScore: raw, MaxScore: 20, Difficulty: "medium"}
		if err := store.Insert(ctx, &entry); err != nil {
			t.Fatalf("insert %d: %v", i, err)
		}
	}

	entries, total, err := store.List(ctx, "0xaaaa", 2, 0)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if total != 3 || len(entries) != 2 {
		t.Fatalf("expected 2 of 3, got %d of %d", len(entries), total)
	}
	if entries[0].QuizID != "q2" || entries[1].QuizID != "q1" {
		t.Fatalf("not newest-first: %+v", entries)
	}

	stats, err := store.Stats(ctx, "0xaaaa")
	if err != nil {
		t.Fatalf("stats: %v", err)
	}
	if stats.Count != 3 || stats.BestScore != 18 || stats.AverageScore != 14 {
		t.Fatalf("unexpected stats: %+v", stats)
	}

	empty, err := store.Stats(ctx, "0xbbbb")
	if err != nil || empty.Count != 0 {
		t.Fatalf("expected zero stats, got %+v err=%v", empty, err)
	}

	sum, err := store.SumScores(ctx, "0xaaaa")
	if err != nil || sum != 42 {
		t.Fatalf("expected ledger sum 42, got %d err=%v", sum, err)
	}
}

func TestTopByScoreFiltersAndBreaksTies(t *testing.T) {
	ctx := context.Background()
	store, _ := newTestStore(t)

	seed := []struct {
		address string
		name    string
		total   int
	}{
		{"0xaaaa", "Alice", 28},
		{"0xbbbb", "Bob", 40},
		{"0xcccc", "Cara", 28},
		{"0xdddd", "Dan", 0},
	}
	for _, s := range seed {
		if err := store.Create(ctx, &domain.Participant{Address: s.address, DisplayName: s.name}); err != nil {
			t.Fatalf("create %s: %v", s.name, err)
		}
		if s.total > 0 {
			if _, err := store.AccrueScore(ctx, s.address, s.total); err != nil {
				t.Fatalf("accrue %s: %v", s.name, err)
			}
		}
	}

	top, err := store.TopByScore(ctx, 10)
	if err != nil {
		t.Fatalf("top: %v", err)
	}
	if len(top) != 3 {
		t.Fatalf("zero-score participant included: %+v", top)
	}
	// Alice and Cara tie at 28; Alice registered first.
	if top[0].Address != "0xbbbb" || top[1].Address != "0xaaaa" || top[2].Address != "0xcccc" {
		t.Fatalf("unexpected order: %+v", top)
	}

	counts, err := store.AttemptCounts(ctx, []string{"0xaaaa", "0xdddd"})
	if err != nil {
		t.Fatalf("counts: %v", err)
	}
	if counts["0xaaaa"] != 0 || counts["0xdddd"] != 0 {
		t.Fatalf("unexpected counts: %+v", counts)
	}
}

func TestTopByScoreTieGroupAtBoundary(t *testing.T) {
	ctx := context.Background()
	store, _ := newTestStore(t)

	// Alice registers first but sorts lexicographically lowest among the
	// tied addresses, so a plain window slice would drop her.
	seed := []struct {
		address string
		total   int
	}{
		{"0xaaaa", 28},
		{"0xcccc", 28},
		{"0xdddd", 28},
		{"0xbbbb", 40},
	}
	for _, s := range seed {
		if err := store.Create(ctx, &domain.Participant{Address: s.address, DisplayName: s.address}); err != nil {
			t.Fatalf("create %s: %v", s.address, err)
		}
		if _, err := store.AccrueScore(ctx, s.address, s.total); err != nil {
			t.Fatalf("accrue %s: %v", s.address, err)
		}
	}

	top, err := store.TopByScore(ctx, 2)
	if err != nil {
		t.Fatalf("top: %v", err)
	}
	if len(top) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(top))
	}
	if top[0].Address != "0xbbbb" || top[1].Address != "0xaaaa" {
		t.Fatalf("earliest-registered tie member dropped at the boundary: %+v", top)
	}
}

func newTestStore(t *testing.T) (*Store, *miniredis.Miniredis) {
	t.Helper()
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("run miniredis: %v", err)
	}
	t.Cleanup(mr.Close)

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	tick := time.Date(2025, 6, 10, 12, 0, 0, 0, time.UTC)
	return NewStoreWithClock(client, func() time.Time {
		tick = tick.Add(time.Second)
		return tick
	}), mr
}
