package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidAddress is returned when an identifier is not a 0x-prefixed
	// 40-character hex wallet address.
	ErrInvalidAddress = errors.New("invalid wallet address")
	// ErrInvalidName is returned when a display name is outside 3-30 characters.
	ErrInvalidName = errors.New("display name must be between 3 and 30 characters")
	// ErrInvalidImageURL is returned when a profile image reference is not an http(s) URL.
	ErrInvalidImageURL = errors.New("invalid profile image url")
	// ErrInvalidQuizID is returned when a submission omits the quiz identifier.
	ErrInvalidQuizID = errors.New("quiz id is required")
	// ErrInvalidScore is returned when a raw score falls outside [0, maxScore].
	ErrInvalidScore = errors.New("score out of range")
	// ErrInvalidDifficulty is returned when a difficulty is not in the known set.
	ErrInvalidDifficulty = errors.New("unknown difficulty")
	// ErrParticipantExists is returned when registering an address twice.
	ErrParticipantExists = errors.New("participant already registered")
	// ErrParticipantNotFound is returned for lookups of unknown addresses.
	ErrParticipantNotFound = errors.New("participant not found")
	// ErrDuplicateAttempt is returned when a (address, quiz) pair was already recorded.
	ErrDuplicateAttempt = errors.New("quiz already attempted")
	// ErrStoreUnavailable indicates the backing store cannot serve requests.
	ErrStoreUnavailable = errors.New("store unavailable")
)

// PartialFailureError reports a submission whose ledger write succeeded but
// whose total-score accrual did not. The ledger entry is permanent; the
// participant's total stays inconsistent until a reconciliation pass
// recomputes it from the ledger.
type PartialFailureError struct {
	Address string
	QuizID  string
	ScoreID string
	Err     error
}

func (e *PartialFailureError) Error() string {
	return fmt.Sprintf("score %s recorded for %s quiz %s but accrual failed: %v", e.ScoreID, e.Address, e.QuizID, e.Err)
}

func (e *PartialFailureError) Unwrap() error { return e.Err }

// IsValidation reports whether err belongs to the validation class, which
// is always surfaced before any mutation.
func IsValidation(err error) bool {
	return errors.Is(err, ErrInvalidAddress) ||
		errors.Is(err, ErrInvalidName) ||
		errors.Is(err, ErrInvalidImageURL) ||
		errors.Is(err, ErrInvalidQuizID) ||
		errors.Is(err, ErrInvalidScore) ||
		errors.Is(err, ErrInvalidDifficulty)
}

// IsConflict reports whether err is a conflict that retrying would only repeat.
func IsConflict(err error) bool {
	return errors.Is(err, ErrParticipantExists) || errors.Is(err, ErrDuplicateAttempt)
}
