package postgres

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"quiz-score-service/internal/domain"
	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"
)

// Store is a Postgres implementation of app.ParticipantRepository and
// app.ScoreRepository over a pgx pool. The UNIQUE (wallet_address,
// quiz_id) constraint is what closes the duplicate-submission race, and
// accrual is a single UPDATE with an in-place increment.
type Store struct {
	pool *pgxpool.Pool
}

func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

const participantColumns = `wallet_address, display_name, image_url, total_score, level, created_at, updated_at`

func (s *Store) Create(ctx context.Context, p *domain.Participant) error {
	now := time.Now()
	tag, err := s.pool.Exec(ctx, `
		INSERT INTO participants (wallet_address, display_name, image_url, total_score, level, created_at, updated_at)
		VALUES ($1, $2, $3, 0, $4, $5, $5)
		ON CONFLICT (wallet_address) DO NOTHING`,
		p.Address, p.DisplayName, p.ImageURL, p.Level, now)
	if err != nil {
		return fmt.Errorf("create participant: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrParticipantExists
	}
	p.CreatedAt = now
	p.UpdatedAt = now
	return nil
}

func (s *Store) Get(ctx context.Context, address string) (domain.Participant, error) {
	row := s.pool.QueryRow(ctx, `SELECT `+participantColumns+` FROM participants WHERE wallet_address=$1`, address)
	return scanParticipant(row)
}

func (s *Store) UpdateProfile(ctx context.Context, address string, displayName, imageURL *string) (domain.Participant, error) {
	row := s.pool.QueryRow(ctx, `
		UPDATE participants
		SET display_name = COALESCE($2, display_name),
		    image_url    = COALESCE($3, image_url),
		    updated_at   = now()
		WHERE wallet_address = $1
		RETURNING `+participantColumns,
		address, displayName, imageURL)
	return scanParticipant(row)
}

func (s *Store) AccrueScore(ctx context.Context, address string, delta int) (domain.Participant, error) {
	row := s.pool.QueryRow(ctx, `
		UPDATE participants
		SET total_score = total_score + $2, updated_at = now()
		WHERE wallet_address = $1
		RETURNING `+participantColumns,
		address, delta)
	return scanParticipant(row)
}

func (s *Store) SetTotalScore(ctx context.Context, address string, total int) error {
	tag, err := s.pool.Exec(ctx, `
		UPDATE participants SET total_score = $2, updated_at = now() WHERE wallet_address = $1`,
		address, total)
	if err != nil {
		return fmt.Errorf("set total: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrParticipantNotFound
	}
	return nil
}

func (s *Store) TopByScore(ctx context.Context, limit int) ([]domain.Participant, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT `+participantColumns+`
		FROM participants
		WHERE total_score > 0
		ORDER BY total_score DESC, created_at ASC, wallet_address ASC
		LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("leaderboard query: %w", err)
	}
	defer rows.Close()
	return collectParticipants(rows)
}

func (s *Store) All(ctx context.Context) ([]domain.Participant, error) {
	rows, err := s.pool.Query(ctx, `SELECT `+participantColumns+` FROM participants ORDER BY created_at ASC`)
	if err != nil {
		return nil, fmt.Errorf("list participants: %w", err)
	}
	defer rows.Close()
	return collectParticipants(rows)
}

func (s *Store) Insert(ctx context.Context, entry *domain.ScoreEntry) error {
	// ON CONFLICT DO NOTHING yields no row on a duplicate, so the losing
	// submitter of a race sees ErrDuplicateAttempt without a separate
	// existence check.
	var id int64
	var createdAt time.Time
	err := s.pool.QueryRow(ctx, `
		INSERT INTO score_entries (wallet_address, quiz_id, raw_score, max_score, percentage, difficulty, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, now())
		ON CONFLICT (wallet_address, quiz_id) DO NOTHING
		RETURNING id, created_at`,
		entry.Address, entry.QuizID, entry.RawScore, entry.MaxScore, entry.Percentage, entry.Difficulty,
	).Scan(&id, &createdAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.ErrDuplicateAttempt
	}
	if err != nil {
		return fmt.Errorf("insert entry: %w", err)
	}
	entry.ID = strconv.FormatInt(id, 10)
	entry.CreatedAt = createdAt
	return nil
}

func (s *Store) List(ctx context.Context, address string, limit, offset int) ([]domain.ScoreEntry, int, error) {
	var total int
	if err := s.pool.QueryRow(ctx, `SELECT COUNT(*) FROM score_entries WHERE wallet_address=$1`, address).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count entries: %w", err)
	}

	rows, err := s.pool.Query(ctx, `
		SELECT id, wallet_address, quiz_id, raw_score, max_score, percentage, difficulty, created_at
		FROM score_entries
		WHERE wallet_address = $1
		ORDER BY created_at DESC, id DESC
		LIMIT $2 OFFSET $3`, address, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("list entries: %w", err)
	}
	defer rows.Close()

	entries := make([]domain.ScoreEntry, 0, limit)
	for rows.Next() {
		var e domain.ScoreEntry
		var id int64
		if err := rows.Scan(&id, &e.Address, &e.QuizID, &e.RawScore, &e.MaxScore, &e.Percentage, &e.Difficulty, &e.CreatedAt); err != nil {
			return nil, 0, fmt.Errorf("scan entry: %w", err)
		}
		e.ID = strconv.FormatInt(id, 10)
		entries = append(entries, e)
	}
	return entries, total, rows.Err()
}

func (s *Store) Stats(ctx context.Context, address string) (domain.UserStats, error) {
	var stats domain.UserStats
	err := s.pool.QueryRow(ctx, `
		SELECT COUNT(*), COALESCE(AVG(raw_score), 0)::float8, COALESCE(MAX(raw_score), 0)
		FROM score_entries WHERE wallet_address = $1`, address,
	).Scan(&stats.Count, &stats.AverageScore, &stats.BestScore)
	if err != nil {
		return domain.UserStats{}, fmt.Errorf("stats query: %w", err)
	}
	return stats, nil
}

func (s *Store) SumScores(ctx context.Context, address string) (int, error) {
	var sum int
	err := s.pool.QueryRow(ctx, `
		SELECT COALESCE(SUM(raw_score), 0) FROM score_entries WHERE wallet_address = $1`, address,
	).Scan(&sum)
	if err != nil {
		return 0, fmt.Errorf("sum query: %w", err)
	}
	return sum, nil
}

func (s *Store) AttemptCounts(ctx context.Context, addresses []string) (map[string]int, error) {
	counts := make(map[string]int, len(addresses))
	if len(addresses) == 0 {
		return counts, nil
	}
	rows, err := s.pool.Query(ctx, `
		SELECT wallet_address, COUNT(*) FROM score_entries
		WHERE wallet_address = ANY($1)
		GROUP BY wallet_address`, addresses)
	if err != nil {
		return nil, fmt.Errorf("attempt counts: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var addr string
		var n int
		if err := rows.Scan(&addr, &n); err != nil {
			return nil, fmt.Errorf("scan count: %w", err)
		}
		counts[addr] = n
	}
	return counts, rows.Err()
}

func (s *Store) Ping(ctx context.Context) error {
	if err := s.pool.Ping(ctx); err != nil {
		return domain.ErrStoreUnavailable
	}
	return nil
}

func scanParticipant(row pgx.Row) (domain.Participant, error) {
	var p domain.Participant
	err := row.Scan(&p.Address, &p.DisplayName, &p.ImageURL, &p.TotalScore, &p.Level, &p.CreatedAt, &p.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Participant{}, domain.ErrParticipantNotFound
	}
	if err != nil {
		return domain.Participant{}, fmt.Errorf("scan participant: %w", err)
	}
	return p, nil
}

func collectParticipants(rows pgx.Rows) ([]domain.Participant, error) {
	var out []domain.Participant
	for rows.Next() {
		var p domain.Participant
		if err := rows.Scan(&p.Address, &p.DisplayName, &p.ImageURL, &p.TotalScore, &p.Level, &p.CreatedAt, &p.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan participant: %w", err)
		}
		out = append(out, p)
	}
	return out, rows.Err()
}
