package app

import (
	"context"

	"quiz-score-service/internal/domain"
)

// ParticipantRepository abstracts how participant profiles are stored
// (in-memory, Redis, Postgres).
type ParticipantRepository interface {
	// Create registers a new participant. Returns domain.ErrParticipantExists
	// if the address is already taken.
	Create(ctx context.Context, p *domain.Participant) error
	Get(ctx context.Context, address string) (domain.Participant, error)
	// UpdateProfile applies a partial update; nil fields are left untouched.
	UpdateProfile(ctx context.Context, address string, displayName, imageURL *string) (domain.Participant, error)
	// AccrueScore adds delta to the total as a single atomic increment at
	// the store, never an application-level read-modify-write.
	AccrueScore(ctx context.Context, address string, delta int) (domain.Participant, error)
	// SetTotalScore overwrites the total; reconciliation only.
	SetTotalScore(ctx context.Context, address string, total int) error
	// TopByScore returns participants with total > 0, ordered by total
	// descending, then registration time ascending, then address.
	TopByScore(ctx context.Context, limit int) ([]domain.Participant, error)
	All(ctx context.Context) ([]domain.Participant, error)
}

// ScoreRepository abstracts the append-only attempt ledger.
type ScoreRepository interface {
	// Insert records an attempt, filling ID and CreatedAt. The
	// (address, quiz) uniqueness check is atomic at the store; the loser
	// of a race observes domain.ErrDuplicateAttempt.
	Insert(ctx context.Context, entry *domain.ScoreEntry) error
	// List returns entries ordered by creation time descending plus the
	// total entry count for the address.
	List(ctx context.Context, address string, limit, offset int) ([]domain.ScoreEntry, int, error)
	Stats(ctx context.Context, address string) (domain.UserStats, error)
	// SumScores returns the exact ledger sum of raw scores for an address.
	SumScores(ctx context.Context, address string) (int, error)
	// AttemptCounts returns the number of recorded attempts per address.
	AttemptCounts(ctx context.Context, addresses []string) (map[string]int, error)
}

// Pinger reports whether the backing store is reachable; the transport
// layer gates readiness on it.
type Pinger interface {
	Ping(ctx context.Context) error
}
