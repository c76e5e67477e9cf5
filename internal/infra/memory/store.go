package memory

import (
	"context"
	"sort"
	"strconv"
	"sync"
	"time"

	"quiz-score-service/internal/domain"
)

// Store is an in-memory implementation of both app.ParticipantRepository
// and app.ScoreRepository, useful for tests and single-process demos. A
// single mutex guards all state, so accrual and check-and-insert are
// atomic with respect to concurrent callers.
type Store struct {
	mu           sync.RWMutex
	participants map[string]*domain.Participant
	entries      map[string]map[string]*domain.ScoreEntry
	timeline     map[string][]*domain.ScoreEntry
	nextID       int64
	clock        func() time.Time
}

func NewStore() *Store {
	return &Store{
		participants: make(map[string]*domain.Participant),
		entries:      make(map[string]map[string]*domain.ScoreEntry),
		timeline:     make(map[string][]*domain.ScoreEntry),
		clock:        time.Now,
	}
}

// NewStoreWithClock allows deterministic timestamps in tests.
func NewStoreWithClock(now func() time.Time) *Store {
	s := NewStore()
	s.clock = now
	return s
}

func (s *Store) Create(_ context.Context, p *domain.Participant) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.participants[p.Address]; ok {
		return domain.ErrParticipantExists
	}
	now := s.clock()
	p.CreatedAt = now
	p.UpdatedAt = now
	clone := *p
	s.participants[p.Address] = &clone
	return nil
}

func (s *Store) Get(_ context.Context, address string) (domain.Participant, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, ok := s.participants[address]
	if !ok {
		return domain.Participant{}, domain.ErrParticipantNotFound
	}
	return *p, nil
}

func (s *Store) UpdateProfile(_ context.Context, address string, displayName, imageURL *string) (domain.Participant, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.participants[address]
	if !ok {
		return domain.Participant{}, domain.ErrParticipantNotFound
	}
	if displayName != nil {
		p.DisplayName = *displayName
	}
	if imageURL != nil {
		p.ImageURL = *imageURL
	}
	p.UpdatedAt = s.clock()
	return *p, nil
}

func (s *Store) AccrueScore(_ context.Context, address string, delta int) (domain.Participant, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.participants[address]
	if !ok {
		return domain.Participant{}, domain.ErrParticipantNotFound
	}
	p.TotalScore += delta
	p.UpdatedAt = s.clock()
	return *p, nil
}

func (s *Store) SetTotalScore(_ context.Context, address string, total int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.participants[address]
	if !ok {
		return domain.ErrParticipantNotFound
	}
	p.TotalScore = total
	p.UpdatedAt = s.clock()
	return nil
}

func (s *Store) TopByScore(_ context.Context, limit int) ([]domain.Participant, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ranked := make([]domain.Participant, 0, len(s.participants))
	for _, p := range s.participants {
		if p.TotalScore > 0 {
			ranked = append(ranked, *p)
		}
	}
	// Score descending; ties break by earliest registration, then address.
	sort.Slice(ranked, func(i, j int) bool {
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

func (s *Store) All(_ context.Context) ([]domain.Participant, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	all := make([]domain.Participant, 0, len(s.participants))
	for _, p := range s.participants {
		all = append(all, *p)
	}
	sort.Slice(all, func(i, j int) bool { return all[i].Address < all[j].Address })
	return all, nil
}

func (s *Store) Insert(_ context.Context, entry *domain.ScoreEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	byQuiz, ok := s.entries[entry.Address]
	if !ok {
		byQuiz = make(map[string]*domain.ScoreEntry)
		s.entries[entry.Address] = byQuiz
	}
	if _, ok := byQuiz[entry.QuizID]; ok {
		return domain.ErrDuplicateAttempt
	}

	s.nextID++
	entry.ID = strconv.FormatInt(s.nextID, 10)
	entry.CreatedAt = s.clock()
	clone := *entry
	byQuiz[entry.QuizID] = &clone
	s.timeline[entry.Address] = append(s.timeline[entry.Address], &clone)
	return nil
}

func (s *Store) List(_ context.Context, address string, limit, offset int) ([]domain.ScoreEntry, int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	line := s.timeline[address]
	total := len(line)
	if offset >= total {
		return []domain.ScoreEntry{}, total, nil
	}

	// timeline is append-ordered; walk it backwards for newest-first.
	out := make([]domain.ScoreEntry, 0, limit)
	for i := total - 1 - offset; i >= 0 && len(out) < limit; i-- {
		out = append(out, *line[i])
	}
	return out, total, nil
}

func (s *Store) Stats(_ context.Context, address string) (domain.UserStats, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	line := s.timeline[address]
	if len(line) == 0 {
		return domain.UserStats{}, nil
	}

	stats := domain.UserStats{Count: len(line)}
	sum := 0
	for _, e := range line {
		sum += e.RawScore
		if e.RawScore > stats.BestScore {
			stats.BestScore = e.RawScore
		}
	}
	stats.AverageScore = float64(sum) / float64(len(line))
	return stats, nil
}

func (s *Store) SumScores(_ context.Context, address string) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sum := 0
	for _, e := range s.timeline[address] {
		sum += e.RawScore
	}
	return sum, nil
}

func (s *Store) AttemptCounts(_ context.Context, addresses []string) (map[string]int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	counts := make(map[string]int, len(addresses))
	for _, addr := range addresses {
		counts[addr] = len(s.timeline[addr])
	}
	return counts, nil
}

// Ping always succeeds; the in-memory store has no external dependency.
func (s *Store) Ping(_ context.Context) error { return nil }
