package quiz

import (
	"errors"
	"testing"

	"learnsphere/internal/models"
)

func threeQuestionQuiz() *models.Quiz {
	return &models.Quiz{
		ID:    "quiz-1",
		Title: "Go basics",
		Questions: []models.Question{
			{Text: "q1", Options: []string{"a", "b", "c"}, CorrectIndex: 1},
			{Text: "q2", Options: []string{"a", "b", "c"}, CorrectIndex: 0},
			{Text: "q3", Options: []string{"a", "b", "c"}, CorrectIndex: 2},
		},
		RewardTable: models.RewardTable{
			{Attempt: 1, Points: 30},
			{Attempt: 2, Points: 20},
			{Attempt: 3, Points: 10},
		},
	}
}

func answerAll(t *testing.T, m *Machine, answers []int) *Result {
	t.Helper()
	for i, option := range answers {
		if err := m.SelectAnswer(i, option); err != nil {
			t.Fatalf("SelectAnswer(%d, %d): %v", i, option, err)
		}
	}
	var result *Result
	for i := 0; i < len(answers); i++ {
		r, err := m.Advance()
		if err != nil {
			t.Fatalf("Advance: %v", err)
		}
		result = r
	}
	if result == nil {
		t.Fatal("Expected the last Advance to submit")
	}
	return result
}

func TestPerfectAttemptPasses(t *testing.T) {
	m, err := NewMachine(threeQuestionQuiz(), 1)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	var notified *Result
	m.OnPassed(func(r Result) { notified = &r })

	if err := m.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}
	result := answerAll(t, m, []int{1, 0, 2})

	if result.Score != 3 || result.Total != 3 {
		t.Errorf("Expected score 3/3, got %d/%d", result.Score, result.Total)
	}
	if !result.Passed {
		t.Error("Expected passed attempt")
	}
	if result.PointsAwarded != 30 {
		t.Errorf("Expected 30 points for attempt 1, got %d", result.PointsAwarded)
	}
	if m.State() != StatePassed {
		t.Errorf("Expected state %s, got %s", StatePassed, m.State())
	}
	if notified == nil || notified.PointsAwarded != 30 {
		t.Errorf("Expected pass callback with 30 points, got %+v", notified)
	}
}

func TestSingleWrongAnswerFails(t *testing.T) {
	m, _ := NewMachine(threeQuestionQuiz(), 1)
	called := false
	m.OnPassed(func(Result) { called = true })
	_ = m.Start()

	result := answerAll(t, m, []int{1, 0, 0})

	if result.Score != 2 {
		t.Errorf("Expected score 2, got %d", result.Score)
	}
	if result.Passed {
		t.Error("Expected failed attempt")
	}
	if result.PointsAwarded != 0 {
		t.Errorf("Expected 0 points, got %d", result.PointsAwarded)
	}
	if m.Attempt() != 2 || result.NextAttempt != 2 {
		t.Errorf("Expected attempt counter 2, got machine=%d result=%d", m.Attempt(), result.NextAttempt)
	}
	if result.AttemptNumber != 1 {
		t.Errorf("Expected scored attempt number 1, got %d", result.AttemptNumber)
	}
	if called {
		t.Error("Pass callback must not fire on failure")
	}
}

func TestPassedRequiresEveryAnswer(t *testing.T) {
	quiz := threeQuestionQuiz()
	correct := []int{1, 0, 2}

	// every combination of answers over three options
	for a := Unanswered; a < 3; a++ {
		for b := Unanswered; b < 3; b++ {
			for c := Unanswered; c < 3; c++ {
				answers := []int{a, b, c}
				_, passed := Score(quiz, answers)
				want := a == correct[0] && b == correct[1] && c == correct[2]
				if passed != want {
					t.Errorf("Score(%v) passed=%v, want %v", answers, passed, want)
				}
			}
		}
	}
}

func TestUnansweredCountsAsIncorrect(t *testing.T) {
	m, _ := NewMachine(threeQuestionQuiz(), 1)
	_ = m.Start()
	_ = m.SelectAnswer(0, 1)
	_ = m.SelectAnswer(2, 2)

	var result *Result
	for result == nil {
		r, err := m.Advance()
		if err != nil {
			t.Fatalf("Advance: %v", err)
		}
		result = r
	}
	if result.Score != 2 || result.Passed {
		t.Errorf("Expected 2/3 failed, got %d passed=%v", result.Score, result.Passed)
	}
}

func TestAttemptCounterIncreasesByOnePerFailure(t *testing.T) {
	m, _ := NewMachine(threeQuestionQuiz(), 1)
	_ = m.Start()

	for want := 2; want <= 5; want++ {
		answerAll(t, m, []int{0, 0, 0})
		if m.Attempt() != want {
			t.Fatalf("Expected attempt %d after failure, got %d", want, m.Attempt())
		}
		if err := m.Restart(); err != nil {
			t.Fatalf("Restart: %v", err)
		}
		if m.Attempt() != want {
			t.Fatalf("Restart must not bump the counter again: got %d", m.Attempt())
		}
		for i, a := range m.Answers() {
			if a != Unanswered {
				t.Fatalf("Answer %d not cleared after restart: %d", i, a)
			}
		}
	}

	// attempt 5 is past the table: clamps to the last tier
	result := answerAll(t, m, []int{1, 0, 2})
	if !result.Passed || result.PointsAwarded != 10 {
		t.Errorf("Expected pass with overflow tier 10 points, got %+v", result)
	}

	m.Reset()
	if m.Attempt() != 1 || m.State() != StateNotStarted {
		t.Errorf("Reset: expected attempt 1 not_started, got %d %s", m.Attempt(), m.State())
	}
}

func TestRenumber(t *testing.T) {
	m, _ := NewMachine(threeQuestionQuiz(), 2)
	_ = m.Start()
	answerAll(t, m, []int{0, 0, 0})

	if err := m.Renumber(5); err != nil {
		t.Fatalf("Renumber: %v", err)
	}
	if m.Attempt() != 5 {
		t.Errorf("Expected attempt 5, got %d", m.Attempt())
	}
	if err := m.Renumber(1); !errors.Is(err, ErrInvalidAttempt) {
		t.Errorf("Expected ErrInvalidAttempt below the initial attempt, got %v", err)
	}
	_ = m.Restart()
	if result := answerAll(t, m, []int{1, 0, 2}); result.AttemptNumber != 5 {
		t.Errorf("Expected the pass numbered 5, got %d", result.AttemptNumber)
	}
}

func TestStateGuards(t *testing.T) {
	m, _ := NewMachine(threeQuestionQuiz(), 1)

	if err := m.SelectAnswer(0, 0); !errors.Is(err, ErrNotInProgress) {
		t.Errorf("SelectAnswer before start: expected ErrNotInProgress, got %v", err)
	}
	if _, err := m.Advance(); !errors.Is(err, ErrNotInProgress) {
		t.Errorf("Advance before start: expected ErrNotInProgress, got %v", err)
	}
	if err := m.Restart(); !errors.Is(err, ErrCannotRestart) {
		t.Errorf("Restart before start: expected ErrCannotRestart, got %v", err)
	}

	_ = m.Start()
	if err := m.Start(); !errors.Is(err, ErrAlreadyStarted) {
		t.Errorf("Second Start: expected ErrAlreadyStarted, got %v", err)
	}
	if err := m.SelectAnswer(3, 0); !errors.Is(err, ErrQuestionOutOfRange) {
		t.Errorf("Expected ErrQuestionOutOfRange, got %v", err)
	}
	if err := m.SelectAnswer(0, 3); !errors.Is(err, ErrOptionOutOfRange) {
		t.Errorf("Expected ErrOptionOutOfRange, got %v", err)
	}
	if err := m.SelectAnswer(0, -1); !errors.Is(err, ErrOptionOutOfRange) {
		t.Errorf("Expected ErrOptionOutOfRange for negative option, got %v", err)
	}

	answerAll(t, m, []int{1, 0, 2})
	if err := m.Restart(); !errors.Is(err, ErrCannotRestart) {
		t.Errorf("Restart after pass: expected ErrCannotRestart, got %v", err)
	}
	if err := m.SelectAnswer(0, 0); !errors.Is(err, ErrNotInProgress) {
		t.Errorf("SelectAnswer after submit: expected ErrNotInProgress, got %v", err)
	}
}

func TestSelectAnswerOverwrites(t *testing.T) {
	m, _ := NewMachine(threeQuestionQuiz(), 1)
	_ = m.Start()
	_ = m.SelectAnswer(0, 2)
	_ = m.SelectAnswer(0, 1)
	if got := m.Answers()[0]; got != 1 {
		t.Errorf("Expected overwritten answer 1, got %d", got)
	}
}

func TestNavigation(t *testing.T) {
	m, _ := NewMachine(threeQuestionQuiz(), 1)
	_ = m.Start()

	_ = m.Back()
	if m.Current() != 0 {
		t.Errorf("Back on first question should stay at 0, got %d", m.Current())
	}
	if _, err := m.Advance(); err != nil {
		t.Fatal(err)
	}
	if m.Current() != 1 {
		t.Errorf("Expected question 1, got %d", m.Current())
	}
	if err := m.GoTo(2); err != nil {
		t.Fatal(err)
	}
	if err := m.GoTo(5); !errors.Is(err, ErrQuestionOutOfRange) {
		t.Errorf("Expected ErrQuestionOutOfRange, got %v", err)
	}
	result, err := m.Advance()
	if err != nil || result == nil {
		t.Fatalf("Advance on last question should submit, got %v %v", result, err)
	}
}

func TestNewMachineRejectsEmptyQuiz(t *testing.T) {
	if _, err := NewMachine(&models.Quiz{}, 1); !errors.Is(err, models.ErrNoQuestions) {
		t.Errorf("Expected ErrNoQuestions, got %v", err)
	}
	if _, err := NewMachine(threeQuestionQuiz(), 0); !errors.Is(err, ErrInvalidAttempt) {
		t.Errorf("Expected ErrInvalidAttempt, got %v", err)
	}
}

func TestSnapshotRoundTrip(t *testing.T) {
	quiz := threeQuestionQuiz()
	m, _ := NewMachine(quiz, 2)
	_ = m.Start()
	_ = m.SelectAnswer(0, 1)
	_, _ = m.Advance()

	restored, err := Restore(quiz, m.Snapshot())
	if err != nil {
		t.Fatalf("Restore: %v", err)
	}
	if restored.State() != StateInProgress || restored.Current() != 1 || restored.Attempt() != 2 {
		t.Errorf("Unexpected restored machine: state=%s current=%d attempt=%d", restored.State(), restored.Current(), restored.Attempt())
	}
	if restored.Answers()[0] != 1 {
		t.Errorf("Expected restored answer 1, got %d", restored.Answers()[0])
	}

	bad := m.Snapshot()
	bad.Answers = bad.Answers[:1]
	if _, err := Restore(quiz, bad); !errors.Is(err, ErrSnapshotMismatch) {
		t.Errorf("Expected ErrSnapshotMismatch, got %v", err)
	}
}

func TestReplay(t *testing.T) {
	quiz := threeQuestionQuiz()

	result, err := Replay(quiz, 1, []int{1, 0, 2}, nil)
	if err != nil {
		t.Fatalf("Replay: %v", err)
	}
	if !result.Passed || result.PointsAwarded != 30 {
		t.Errorf("Expected pass for 30, got %+v", result)
	}

	result, err = Replay(quiz, 2, []int{1, 0, 0}, nil)
	if err != nil {
		t.Fatalf("Replay: %v", err)
	}
	if result.Passed || result.Score != 2 || result.NextAttempt != 3 || result.PointsAwarded != 0 {
		t.Errorf("Unexpected failed replay: %+v", result)
	}

	result, err = Replay(quiz, 1, []int{1}, nil)
	if err != nil || result.Score != 1 {
		t.Errorf("Short answer list: %+v %v", result, err)
	}

	if _, err := Replay(quiz, 1, []int{1, 0, 2, 1}, nil); !errors.Is(err, ErrQuestionOutOfRange) {
		t.Errorf("Expected ErrQuestionOutOfRange, got %v", err)
	}
	if _, err := Replay(quiz, 1, []int{9, 0, 2}, nil); !errors.Is(err, ErrOptionOutOfRange) {
		t.Errorf("Expected ErrOptionOutOfRange, got %v", err)
	}
}
