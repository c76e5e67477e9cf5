package domain

import "time"

// DefaultLevel is the label given to new participants. It is a stored
// label only; nothing derives it from scores.
const DefaultLevel = "beginner"

// RewardThreshold is the fixed percentage at or above which a submission
// earns a reward.
const RewardThreshold = 70.0

// DefaultMaxScore applies when a submission omits the max score.
const DefaultMaxScore = 20

// Participant is a registered user identified by a wallet address, with
// their running total across all recorded quizzes.
type Participant struct {
	Address     string    `json:"walletAddress"`
	DisplayName string    `json:"displayName"`
	ImageURL    string    `json:"profileImage,omitempty"`
	TotalScore  int       `json:"totalScore"`
	Level       string    `json:"level"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// ScoreEntry is one recorded quiz attempt. Entries are append-only; at
// most one exists per (address, quiz) pair.
type ScoreEntry struct {
	ID         string    `json:"scoreId"`
	Address    string    `json:"walletAddress"`
	QuizID     string    `json:"quizId"`
	RawScore   int       `json:"score"`
	MaxScore   int       `json:"maxScore"`
	Percentage float64   `json:"percentage"`
	Difficulty string    `json:"difficulty"`
	CreatedAt  time.Time `json:"createdAt"`
}

// UserStats summarizes a participant's recorded attempts. All fields are
// zero when no entries exist.
type UserStats struct {
	Count        int     `json:"totalQuizzes"`
	AverageScore float64 `json:"averageScore"`
	BestScore    int     `json:"bestScore"`
}

// LeaderboardEntry is one ranked row of the global leaderboard.
type LeaderboardEntry struct {
	Rank        int    `json:"rank"`
	Address     string `json:"walletAddress"`
	DisplayName string `json:"displayName"`
	Score       int    `json:"totalScore"`
	QuizCount   int    `json:"quizCount"`
}

// SubmissionState tracks a submission through the coordinator.
type SubmissionState string

const (
	StateReceived  SubmissionState = "received"
	StateValidated SubmissionState = "validated"
	StateRecorded  SubmissionState = "recorded"
	StateAccrued   SubmissionState = "accrued"
	StateCompleted SubmissionState = "completed"
	StateRejected  SubmissionState = "rejected"
	StateFailed    SubmissionState = "failed"
)

// SubmissionResult is returned to the caller after a submission.
type SubmissionResult struct {
	ScoreID           string          `json:"scoreId"`
	Percentage        float64         `json:"percentage"`
	NewTotal          int             `json:"newTotalScore"`
	EligibleForReward bool            `json:"eligibleForReward"`
	State             SubmissionState `json:"-"`
}
