package memory

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"quiz-score-service/internal/domain"
)

const addr = "0xabcdef1234567890abcdef1234567890abcdef12"

func TestParticipantLifecycle(t *testing.T) {
	ctx := context.Background()
	store := NewStore()

	p := domain.Participant{Address: addr, DisplayName: "Alice", Level: domain.DefaultLevel}
	if err := store.Create(ctx, &p); err != nil {
		t.Fatalf("create: %v", err)
	}
	if err := store.Create(ctx, &domain.Participant{Address: addr, DisplayName: "Other"}); !errors.Is(err, domain.ErrParticipantExists) {
		t.Fatalf("expected exists, got %v", err)
	}

	name := "Alice B"
	updated, err := store.UpdateProfile(ctx, addr, &name, nil)
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if updated.DisplayName != "Alice B" {
		t.Fatalf("update not applied: %+v", updated)
	}

	if _, err := store.Get(ctx, "0x0000000000000000000000000000000000000000"); !errors.Is(err, domain.ErrParticipantNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestConcurrentAccrualIsExact(t *testing.T) {
	ctx := context.Background()
	store := NewStore()
	if err := store.Create(ctx, &domain.Participant{Address: addr, DisplayName: "Alice"}); err != nil {
		t.Fatalf("create: %v", err)
	}

	const workers = 50
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			entry := domain.ScoreEntry{Address: addr, QuizID: fmt.Sprintf("quiz-%d", i), RawScore: 2, MaxScore: 20, Difficulty: "easy"}
			if err := store.Insert(ctx, &entry); err != nil {
				t.Errorf("insert %d: %v", i, err)
				return
			}
			if _, err := store.AccrueScore(ctx, addr, 2); err != nil {
				t.Errorf("accrue %d: %v", i, err)
			}
		}(i)
	}
	wg.Wait()

	p, err := store.Get(ctx, addr)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if p.TotalScore != workers*2 {
		t.Fatalf("lost updates: total %d, want %d", p.TotalScore, workers*2)
	}
	sum, _ := store.SumScores(ctx, addr)
	if sum != p.TotalScore {
		t.Fatalf("ledger sum %d disagrees with total %d", sum, p.TotalScore)
	}
}

func TestConcurrentDuplicateHasOneWinner(t *testing.T) {
	ctx := context.Background()
	store := NewStore()
	if err := store.Create(ctx, &domain.Participant{Address: addr, DisplayName: "Alice"}); err != nil {
		t.Fatalf("create: %v", err)
	}

	const racers = 20
	var wg sync.WaitGroup
	var mu sync.Mutex
	wins, losses := 0, 0
	for i := 0; i < racers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			entry := domain.ScoreEntry{Address: addr, QuizID: "same-quiz", RawScore: 5, MaxScore: 20, Difficulty: "easy"}
			err := store.Insert(ctx, &entry)
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				wins++
			case errors.Is(err, domain.ErrDuplicateAttempt):
				losses++
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}()
	}
	wg.Wait()

	if wins != 1 || losses != racers-1 {
		t.Fatalf("expected exactly one winner, got %d wins %d losses", wins, losses)
	}
}

func TestListNewestFirst(t *testing.T) {
	ctx := context.Background()
	store := NewStore()

	for i := 0; i < 3; i++ {
		entry := domain.ScoreEntry{Address: addr, QuizID: fmt.Sprintf("q%d", i), RawScore: i, MaxScore: 20, Difficulty: "easy"}
		if err := store.Insert(ctx, &entry); err != nil {
			t.Fatalf("insert: %v", err)
		}
		if entry.ID == "" {
			t.Fatalf("insert left ID empty")
		}
	}

	entries, total, err := store.List(ctx, addr, 10, 0)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if total != 3 || len(entries) != 3 {
		t.Fatalf("expected 3 entries, got %d (total %d)", len(entries), total)
	}
	if entries[0].QuizID != "q2" || entries[2].QuizID != "q0" {
		t.Fatalf("not newest-first: %+v", entries)
	}

	entries, total, err = store.List(ctx, addr, 10, 5)
	if err != nil || total != 3 || len(entries) != 0 {
		t.Fatalf("offset past end: entries=%d total=%d err=%v", len(entries), total, err)
	}
}
