package quiz

import "errors"

type State string

const (
	StateNotStarted State = "not_started"
	StateInProgress State = "in_progress"
	StatePassed     State = "submitted_passed"
	StateFailed     State = "submitted_failed"
)

// Unanswered marks a question with no selected option.
const Unanswered = -1

var (
	ErrNotInProgress      = errors.New("attempt is not in progress")
	ErrAlreadyStarted     = errors.New("attempt already started")
	ErrCannotRestart      = errors.New("only a failed attempt can be restarted")
	ErrQuestionOutOfRange = errors.New("question index out of range")
	ErrOptionOutOfRange   = errors.New("option index out of range")
	ErrInvalidAttempt     = errors.New("attempt number must be at least 1")
	ErrSnapshotMismatch   = errors.New("snapshot does not match quiz")
)

// Result is the outcome of a submitted attempt.
type Result struct {
	Score         int   `json:"score"`
	Total         int   `json:"total"`
	Passed        bool  `json:"passed"`
	PointsAwarded int   `json:"points_awarded"`
	AttemptNumber int   `json:"attempt_number"`
	NextAttempt   int   `json:"next_attempt"`
	Answers       []int `json:"answers"`
}

// Snapshot is the serialisable form of a Machine.
type Snapshot struct {
	State          State   `json:"state"`
	Current        int     `json:"current"`
	Answers        []int   `json:"answers"`
	Attempt        int     `json:"attempt"`
	InitialAttempt int     `json:"initial_attempt"`
	Result         *Result `json:"result,omitempty"`
}

// PassedFunc is told about a passing attempt and the points it earned.
type PassedFunc func(result Result)
