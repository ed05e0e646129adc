package quiz

import (
	"fmt"

	"learnsphere/internal/models"
)

// Machine walks one learner through a quiz: answer selection, navigation,
// scoring and the retry counter.
type Machine struct {
	quiz           *models.Quiz
	state          State
	current        int
	answers        []int
	attempt        int
	initialAttempt int
	result         *Result
	onPassed       PassedFunc
}

// NewMachine creates a machine in not_started for the given attempt number.
func NewMachine(quiz *models.Quiz, attemptNumber int) (*Machine, error) {
	if len(quiz.Questions) == 0 {
		return nil, models.ErrNoQuestions
	}
	if attemptNumber < 1 {
		return nil, ErrInvalidAttempt
	}
	return &Machine{
		quiz:           quiz,
		state:          StateNotStarted,
		answers:        blankAnswers(len(quiz.Questions)),
		attempt:        attemptNumber,
		initialAttempt: attemptNumber,
	}, nil
}

// OnPassed registers the callback fired once per passing submission.
func (m *Machine) OnPassed(fn PassedFunc) {
	m.onPassed = fn
}

func (m *Machine) Start() error {
	if m.state != StateNotStarted {
		return ErrAlreadyStarted
	}
	m.state = StateInProgress
	m.current = 0
	return nil
}

// SelectAnswer records optionIndex for questionIndex, replacing any earlier
// choice.
func (m *Machine) SelectAnswer(questionIndex, optionIndex int) error {
	if m.state != StateInProgress {
		return ErrNotInProgress
	}
	if questionIndex < 0 || questionIndex >= len(m.quiz.Questions) {
		return ErrQuestionOutOfRange
	}
	if optionIndex < 0 || optionIndex >= len(m.quiz.Questions[questionIndex].Options) {
		return ErrOptionOutOfRange
	}
	m.answers[questionIndex] = optionIndex
	return nil
}

// Advance moves to the next question, or submits when on the last one.
// The returned result is nil unless this call submitted the attempt.
func (m *Machine) Advance() (*Result, error) {
	if m.state != StateInProgress {
		return nil, ErrNotInProgress
	}
	if m.current < len(m.quiz.Questions)-1 {
		m.current++
		return nil, nil
	}
	return m.submit(), nil
}

// Back moves to the previous question; a no-op on the first.
func (m *Machine) Back() error {
	if m.state != StateInProgress {
		return ErrNotInProgress
	}
	if m.current > 0 {
		m.current--
	}
	return nil
}

func (m *Machine) GoTo(questionIndex int) error {
	if m.state != StateInProgress {
		return ErrNotInProgress
	}
	if questionIndex < 0 || questionIndex >= len(m.quiz.Questions) {
		return ErrQuestionOutOfRange
	}
	m.current = questionIndex
	return nil
}

// Restart begins the next attempt after a failure with cleared answers.
// The counter was already bumped when the failed attempt was submitted.
func (m *Machine) Restart() error {
	if m.state != StateFailed {
		return ErrCannotRestart
	}
	m.state = StateInProgress
	m.current = 0
	m.answers = blankAnswers(len(m.quiz.Questions))
	m.result = nil
	return nil
}

// Renumber moves the counter to an attempt number handed out elsewhere.
// It never goes below the number the machine was created with.
func (m *Machine) Renumber(attempt int) error {
	if attempt < m.initialAttempt {
		return ErrInvalidAttempt
	}
	m.attempt = attempt
	return nil
}

// Reset returns the machine to not_started with the attempt counter it was
// created with.
func (m *Machine) Reset() {
	m.state = StateNotStarted
	m.current = 0
	m.answers = blankAnswers(len(m.quiz.Questions))
	m.attempt = m.initialAttempt
	m.result = nil
}

func (m *Machine) submit() *Result {
	correct, passed := Score(m.quiz, m.answers)
	result := Result{
		Score:         correct,
		Total:         len(m.quiz.Questions),
		Passed:        passed,
		AttemptNumber: m.attempt,
		NextAttempt:   m.attempt,
		Answers:       append([]int(nil), m.answers...),
	}

	if passed {
		m.state = StatePassed
		result.PointsAwarded = m.quiz.RewardTable.PointsForAttempt(m.attempt)
	} else {
		m.state = StateFailed
		m.attempt++
		result.NextAttempt = m.attempt
	}
	m.result = &result

	if passed && m.onPassed != nil {
		m.onPassed(result)
	}
	return &result
}

func (m *Machine) State() State       { return m.state }
func (m *Machine) Current() int       { return m.current }
func (m *Machine) Attempt() int       { return m.attempt }
func (m *Machine) Result() *Result    { return m.result }
func (m *Machine) Quiz() *models.Quiz { return m.quiz }

func (m *Machine) Answers() []int {
	return append([]int(nil), m.answers...)
}

func (m *Machine) Snapshot() Snapshot {
	var result *Result
	if m.result != nil {
		r := *m.result
		result = &r
	}
	return Snapshot{
		State:          m.state,
		Current:        m.current,
		Answers:        m.Answers(),
		Attempt:        m.attempt,
		InitialAttempt: m.initialAttempt,
		Result:         result,
	}
}

// Restore rebuilds a machine for quiz from a snapshot taken earlier.
func Restore(quiz *models.Quiz, snap Snapshot) (*Machine, error) {
	m, err := NewMachine(quiz, snap.InitialAttempt)
	if err != nil {
		return nil, err
	}
	if len(snap.Answers) != len(quiz.Questions) {
		return nil, fmt.Errorf("%w: %d answers for %d questions", ErrSnapshotMismatch, len(snap.Answers), len(quiz.Questions))
	}
	if snap.Current < 0 || snap.Current >= len(quiz.Questions) || snap.Attempt < snap.InitialAttempt {
		return nil, ErrSnapshotMismatch
	}
	m.state = snap.State
	m.current = snap.Current
	m.answers = append([]int(nil), snap.Answers...)
	m.attempt = snap.Attempt
	if snap.Result != nil {
		r := *snap.Result
		m.result = &r
	}
	return m, nil
}

// Score counts answers equal to the question's correct index. An attempt
// passes only when every question is answered correctly.
func Score(quiz *models.Quiz, answers []int) (correct int, passed bool) {
	for i, question := range quiz.Questions {
		if i < len(answers) && answers[i] != Unanswered && answers[i] == question.CorrectIndex {
			correct++
		}
	}
	return correct, correct == len(quiz.Questions)
}

func blankAnswers(n int) []int {
	answers := make([]int, n)
	for i := range answers {
		answers[i] = Unanswered
	}
	return answers
}
