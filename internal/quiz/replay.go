package quiz

import "learnsphere/internal/models"

// Replay runs a whole attempt in one go: start, select every given answer,
// advance to the end. Missing trailing answers and Unanswered entries stay
// unanswered.
func Replay(quiz *models.Quiz, attemptNumber int, answers []int, onPassed PassedFunc) (*Result, error) {
	m, err := NewMachine(quiz, attemptNumber)
	if err != nil {
		return nil, err
	}
	if len(answers) > len(quiz.Questions) {
		return nil, ErrQuestionOutOfRange
	}
	m.OnPassed(onPassed)
	if err := m.Start(); err != nil {
		return nil, err
	}
	for i, option := range answers {
		if option == Unanswered {
			continue
		}
		if err := m.SelectAnswer(i, option); err != nil {
			return nil, err
		}
	}
	for {
		result, err := m.Advance()
		if err != nil {
			return nil, err
		}
		if result != nil {
			return result, nil
		}
	}
}
