package app

import (
	"context"
	"log"

	"quiz-score-service/internal/domain"
)

// SubmissionService coordinates score intake: validate, confirm the
// participant, append to the ledger, then accrue the total. The two
// mutations are deliberately separate; an accrual failure after a
// successful ledger write surfaces as *domain.PartialFailureError and is
// repaired by RecomputeTotals, never retried here.
type SubmissionService struct {
	participants ParticipantRepository
	scores       ScoreRepository
}

func NewSubmissionService(participants ParticipantRepository, scores ScoreRepository) *SubmissionService {
	return &SubmissionService{participants: participants, scores: scores}
}

// Submit records one quiz attempt and returns the stored percentage, the
// new running total, and reward eligibility (percentage >= 70).
func (s *SubmissionService) Submit(ctx context.Context, address, quizID string, rawScore, maxScore int, difficulty string) (domain.SubmissionResult, error) {
	result := domain.SubmissionResult{State: domain.StateReceived}

	addr, err := domain.NormalizeAddress(address)
	if err != nil {
		result.State = domain.StateRejected
		return result, err
	}
	if quizID == "" {
		result.State = domain.StateRejected
		return result, domain.ErrInvalidQuizID
	}
	if maxScore == 0 {
		maxScore = domain.DefaultMaxScore
	}
	if err := domain.ValidateScore(rawScore, maxScore); err != nil {
		result.State = domain.StateRejected
		return result, err
	}
	diff, err := domain.NormalizeDifficulty(difficulty)
	if err != nil {
		result.State = domain.StateRejected
		return result, err
	}
	result.State = domain.StateValidated

	// Submissions never create participants implicitly.
	if _, err := s.participants.Get(ctx, addr); err != nil {
		result.State = domain.StateRejected
		return result, err
	}

	entry := domain.ScoreEntry{
		Address:    addr,
		QuizID:     quizID,
		RawScore:   rawScore,
		MaxScore:   maxScore,
		Percentage: domain.Percentage(rawScore, maxScore),
		Difficulty: diff,
	}
	// A failed ledger write is a conflict or a store fault, not a
	// validation rejection; the submission stays at validated.
	if err := s.scores.Insert(ctx, &entry); err != nil {
		return result, err
	}
	result.State = domain.StateRecorded
	result.ScoreID = entry.ID
	result.Percentage = entry.Percentage

	updated, err := s.participants.AccrueScore(ctx, addr, rawScore)
	if err != nil {
		// The ledger entry stays; the total is now behind the ledger sum
		// until a reconcile pass runs.
		result.State = domain.StateFailed
		log.Printf("accrual failed for %s quiz %s (score %s): %v", addr, quizID, entry.ID, err)
		return result, &domain.PartialFailureError{Address: addr, QuizID: quizID, ScoreID: entry.ID, Err: err}
	}
	result.State = domain.StateAccrued

	result.NewTotal = updated.TotalScore
	result.EligibleForReward = entry.Percentage >= domain.RewardThreshold
	result.State = domain.StateCompleted
	return result, nil
}

// RecomputeTotals rewrites every participant's total as the exact sum of
// their ledger entries, repairing drift left by partial failures. It
// returns the number of adjusted participants.
func (s *SubmissionService) RecomputeTotals(ctx context.Context) (int, error) {
	participants, err := s.participants.All(ctx)
	if err != nil {
		return 0, err
	}

	adjusted := 0
	for _, p := range participants {
		sum, err := s.scores.SumScores(ctx, p.Address)
		if err != nil {
			return adjusted, err
		}
		if sum == p.TotalScore {
			continue
		}
		if err := s.participants.SetTotalScore(ctx, p.Address, sum); err != nil {
			return adjusted, err
		}
		log.Printf("reconciled %s: total %d -> %d", p.Address, p.TotalScore, sum)
		adjusted++
	}
	return adjusted, nil
}
