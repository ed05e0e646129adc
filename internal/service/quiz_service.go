package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"learnsphere/internal/models"

	"go.mongodb.org/mongo-driver/v2/bson"
)

// QuizService handles quiz authoring.
type QuizService struct {
	quizzes QuizStore
	lessons LessonStore
	courses CourseStore
}

func NewQuizService(quizzes QuizStore, lessons LessonStore, courses CourseStore) *QuizService {
	return &QuizService{quizzes: quizzes, lessons: lessons, courses: courses}
}

func (s *QuizService) Create(ctx context.Context, session models.Session, lessonID string, req *models.QuizRequest) (*models.Quiz, error) {
	lesson, err := s.lessons.FindByID(ctx, lessonID)
	if err != nil {
		return nil, err
	}
	if err := s.authorize(ctx, session, lesson.CourseID); err != nil {
		return nil, err
	}
	if lesson.QuizID != "" {
		return nil, ErrQuizExists
	}

	quiz := fromRequest(req)
	quiz.CourseID = lesson.CourseID
	quiz.LessonID = lesson.ID
	quiz.CreatedBy = session.UserID
	if err := quiz.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrValidation, err)
	}

	if err := s.quizzes.Create(ctx, quiz); err != nil {
		return nil, err
	}
	if err := s.lessons.Update(ctx, lesson.ID, bson.M{"quiz_id": quiz.ID}); err != nil {
		return nil, err
	}
	return quiz, nil
}

// Get returns the full quiz to its authors and the learner projection to
// everyone else.
func (s *QuizService) Get(ctx context.Context, session models.Session, id string) (any, error) {
	quiz, err := s.quizzes.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if s.authorize(ctx, session, quiz.CourseID) == nil {
		return quiz, nil
	}
	return quiz.Public(), nil
}

func (s *QuizService) Update(ctx context.Context, session models.Session, id string, req *models.QuizRequest) (*models.Quiz, error) {
	existing, err := s.quizzes.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.authorize(ctx, session, existing.CourseID); err != nil {
		return nil, err
	}

	quiz := fromRequest(req)
	quiz.ID = existing.ID
	quiz.CourseID = existing.CourseID
	quiz.LessonID = existing.LessonID
	quiz.CreatedBy = existing.CreatedBy
	quiz.CreatedAt = existing.CreatedAt
	if err := quiz.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrValidation, err)
	}
	if err := s.quizzes.Replace(ctx, quiz); err != nil {
		return nil, err
	}
	return quiz, nil
}

// AddOption appends an option to a question.
func (s *QuizService) AddOption(ctx context.Context, session models.Session, quizID string, questionIndex int, text string) (*models.Quiz, error) {
	if strings.TrimSpace(text) == "" {
		return nil, validation("option text is required")
	}
	return s.editQuestion(ctx, session, quizID, questionIndex, func(q *models.Question) error {
		q.AddOption(text)
		return nil
	})
}

// MoveOption reorders a question's options; the correct answer follows
// the option it points at.
func (s *QuizService) MoveOption(ctx context.Context, session models.Session, quizID string, questionIndex, from, to int) (*models.Quiz, error) {
	return s.editQuestion(ctx, session, quizID, questionIndex, func(q *models.Question) error {
		return q.MoveOption(from, to)
	})
}

// RemoveOption deletes one option and keeps the question's correct index
// pointing at a valid option.
func (s *QuizService) RemoveOption(ctx context.Context, session models.Session, quizID string, questionIndex, optionIndex int) (*models.Quiz, error) {
	return s.editQuestion(ctx, session, quizID, questionIndex, func(q *models.Question) error {
		return q.RemoveOption(optionIndex)
	})
}

// editQuestion applies one option edit to a question and stores the quiz.
func (s *QuizService) editQuestion(ctx context.Context, session models.Session, quizID string, questionIndex int,
	edit func(*models.Question) error) (*models.Quiz, error) {
	quiz, err := s.quizzes.FindByID(ctx, quizID)
	if err != nil {
		return nil, err
	}
	if err := s.authorize(ctx, session, quiz.CourseID); err != nil {
		return nil, err
	}
	if questionIndex < 0 || questionIndex >= len(quiz.Questions) {
		return nil, validation("question %d out of range", questionIndex)
	}
	if err := edit(&quiz.Questions[questionIndex]); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrValidation, err)
	}
	if err := s.quizzes.Replace(ctx, quiz); err != nil {
		return nil, err
	}
	return quiz, nil
}

func (s *QuizService) authorize(ctx context.Context, session models.Session, courseID string) error {
	if session.Role == models.RoleAdmin {
		return nil
	}
	course, err := s.courses.FindByID(ctx, courseID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return ErrForbidden
		}
		return err
	}
	if !canEdit(session, course) {
		return ErrForbidden
	}
	return nil
}

func fromRequest(req *models.QuizRequest) *models.Quiz {
	questions := make([]models.Question, len(req.Questions))
	for i, q := range req.Questions {
		questions[i] = models.Question{
			Text:         q.Text,
			Options:      append([]string(nil), q.Options...),
			CorrectIndex: q.CorrectIndex,
		}
	}
	return &models.Quiz{
		Title:            req.Title,
		Questions:        questions,
		RewardTable:      req.RewardTable.Sorted(),
		TimeLimitSeconds: req.TimeLimitSeconds,
		Proctored:        req.Proctored,
	}
}
