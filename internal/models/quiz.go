package models

import (
	"errors"
	"fmt"
	"sort"
	"time"
)

var (
	ErrNoQuestions      = errors.New("quiz has no questions")
	ErrTooFewOptions    = errors.New("question needs at least two options")
	ErrCorrectIndex     = errors.New("correct index is not a valid option")
	ErrOptionIndex      = errors.New("option index out of range")
	ErrInvalidRewardKey = errors.New("reward table attempt numbers start at 1")
)

// MinOptions is the smallest option list a question may carry.
const MinOptions = 2

type Question struct {
	Text         string   `bson:"text" json:"text" binding:"required"`
	Options      []string `bson:"options" json:"options" binding:"required"`
	CorrectIndex int      `bson:"correct_index" json:"correct_index"`
}

// RewardTier grants Points on a passing attempt with the given number.
type RewardTier struct {
	Attempt int `bson:"attempt" json:"attempt"`
	Points  int `bson:"points" json:"points"`
}

type RewardTable []RewardTier

type Quiz struct {
	ID               string      `bson:"_id,omitempty" json:"id"`
	CourseID         string      `bson:"course_id" json:"course_id"`
	LessonID         string      `bson:"lesson_id" json:"lesson_id"`
	Title            string      `bson:"title" json:"title" binding:"required"`
	Questions        []Question  `bson:"questions" json:"questions"`
	RewardTable      RewardTable `bson:"reward_table" json:"reward_table"`
	TimeLimitSeconds int         `bson:"time_limit_seconds" json:"time_limit_seconds"`
	Proctored        bool        `bson:"proctored" json:"proctored"`
	CreatedBy        string      `bson:"created_by" json:"created_by"`
	CreatedAt        time.Time   `bson:"created_at" json:"created_at"`
	UpdatedAt        time.Time   `bson:"updated_at" json:"updated_at"`
}

type PublicQuestion struct {
	Text    string   `json:"text"`
	Options []string `json:"options"`
}

// PublicQuiz is what a learner sees: no correct indices.
type PublicQuiz struct {
	ID               string           `json:"id"`
	CourseID         string           `json:"course_id"`
	LessonID         string           `json:"lesson_id"`
	Title            string           `json:"title"`
	Questions        []PublicQuestion `json:"questions"`
	RewardTable      RewardTable      `json:"reward_table"`
	TimeLimitSeconds int              `json:"time_limit_seconds"`
	Proctored        bool             `json:"proctored"`
}

func (q *Quiz) Public() PublicQuiz {
	questions := make([]PublicQuestion, len(q.Questions))
	for i, question := range q.Questions {
		options := make([]string, len(question.Options))
		copy(options, question.Options)
		questions[i] = PublicQuestion{Text: question.Text, Options: options}
	}
	return PublicQuiz{
		ID:               q.ID,
		CourseID:         q.CourseID,
		LessonID:         q.LessonID,
		Title:            q.Title,
		Questions:        questions,
		RewardTable:      q.RewardTable.Sorted(),
		TimeLimitSeconds: q.TimeLimitSeconds,
		Proctored:        q.Proctored,
	}
}

// Validate checks every question's correct index and the reward table.
func (q *Quiz) Validate() error {
	if len(q.Questions) == 0 {
		return ErrNoQuestions
	}
	for i := range q.Questions {
		if err := q.Questions[i].Validate(); err != nil {
			return fmt.Errorf("question %d: %w", i, err)
		}
	}
	return q.RewardTable.Validate()
}

func (q *Question) Validate() error {
	if len(q.Options) < MinOptions {
		return ErrTooFewOptions
	}
	if q.CorrectIndex < 0 || q.CorrectIndex >= len(q.Options) {
		return ErrCorrectIndex
	}
	return nil
}

// AddOption appends an option; the correct index is unaffected.
func (q *Question) AddOption(text string) {
	q.Options = append(q.Options, text)
}

// RemoveOption deletes option i. Options after i shift left, so a correct
// index above i is decremented; removing the correct option itself
// re-points the correct index at the first remaining option.
func (q *Question) RemoveOption(i int) error {
	if i < 0 || i >= len(q.Options) {
		return ErrOptionIndex
	}
	if len(q.Options) <= MinOptions {
		return ErrTooFewOptions
	}
	q.Options = append(q.Options[:i], q.Options[i+1:]...)
	switch {
	case i < q.CorrectIndex:
		q.CorrectIndex--
	case i == q.CorrectIndex:
		q.CorrectIndex = 0
	}
	return nil
}

// MoveOption reorders options and keeps the correct index on the same option.
func (q *Question) MoveOption(from, to int) error {
	if from < 0 || from >= len(q.Options) || to < 0 || to >= len(q.Options) {
		return ErrOptionIndex
	}
	if from == to {
		return nil
	}
	moved := q.Options[from]
	q.Options = append(q.Options[:from], q.Options[from+1:]...)
	q.Options = append(q.Options[:to], append([]string{moved}, q.Options[to:]...)...)

	switch {
	case q.CorrectIndex == from:
		q.CorrectIndex = to
	case from < q.CorrectIndex && to >= q.CorrectIndex:
		q.CorrectIndex--
	case from > q.CorrectIndex && to <= q.CorrectIndex:
		q.CorrectIndex++
	}
	return nil
}

func (t RewardTable) Validate() error {
	for _, tier := range t {
		if tier.Attempt < 1 {
			return ErrInvalidRewardKey
		}
		if tier.Points < 0 {
			return fmt.Errorf("attempt %d: negative points", tier.Attempt)
		}
	}
	return nil
}

// Sorted returns a copy ordered by attempt number.
func (t RewardTable) Sorted() RewardTable {
	out := make(RewardTable, len(t))
	copy(out, t)
	sort.Slice(out, func(i, j int) bool { return out[i].Attempt < out[j].Attempt })
	return out
}

// PointsForAttempt looks up the tier for attempt n. Attempts past the
// highest configured tier get the highest tier's points; gaps fall back to
// the closest lower tier; anything below the first tier gets the first.
func (t RewardTable) PointsForAttempt(n int) int {
	if len(t) == 0 {
		return 0
	}
	sorted := t.Sorted()
	points := sorted[0].Points
	for _, tier := range sorted {
		if tier.Attempt > n {
			break
		}
		points = tier.Points
	}
	return points
}

// QuizRequest is the authoring payload for creating or replacing a quiz.
type QuizRequest struct {
	Title            string      `json:"title" binding:"required"`
	Questions        []Question  `json:"questions" binding:"required"`
	RewardTable      RewardTable `json:"reward_table"`
	TimeLimitSeconds int         `json:"time_limit_seconds" binding:"gte=0"`
	Proctored        bool        `json:"proctored"`
}

type OptionRequest struct {
	Text string `json:"text" binding:"required"`
}

type MoveOptionRequest struct {
	To *int `json:"to" binding:"required"`
}
