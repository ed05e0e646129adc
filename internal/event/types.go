package event

import (
	"errors"
	"strings"

	"learnsphere/internal/models"
)

const (
	// Attempt events
	EventTypeAttemptSubmitted = "quiz.attempt.submitted"
	EventTypeAttemptPassed    = "quiz.attempt.passed"

	// Course events
	EventTypeCourseUpdated  = "course.updated"
	EventTypeCourseDeleted  = "course.deleted"
	EventTypeCourseReviewed = "course.reviewed"
	EventTypeCourseEnrolled = "course.enrolled"
)

// errMalformed marks messages that will never decode; they are dropped
// instead of requeued.
var errMalformed = errors.New("malformed message")

// AttemptEvent is published for every persisted attempt; passing attempts
// additionally go out as quiz.attempt.passed.
type AttemptEvent struct {
	EventType     string                   `json:"eventType"`
	AttemptID     string                   `json:"attemptId"`
	SubmissionID  string                   `json:"submissionId"`
	QuizID        string                   `json:"quizId"`
	CourseID      string                   `json:"courseId"`
	LessonID      string                   `json:"lessonId"`
	UserID        string                   `json:"userId"`
	AttemptNumber int                      `json:"attemptNumber"`
	Score         int                      `json:"score"`
	Total         int                      `json:"total"`
	Passed        bool                     `json:"passed"`
	PointsAwarded int                      `json:"pointsAwarded"`
	Proctoring    models.ProctoringSummary `json:"proctoring"`
	Timestamp     int64                    `json:"timestamp"`
}

type CourseEvent struct {
	EventType   string  `json:"eventType"`
	CourseID    string  `json:"courseId"`
	UserID      string  `json:"userId,omitempty"`
	Rating      float64 `json:"rating,omitempty"`
	RatingCount int     `json:"ratingCount,omitempty"`
	Timestamp   int64   `json:"timestamp"`
}

func isAttemptEvent(routingKey string) bool {
	return strings.HasPrefix(routingKey, "quiz.attempt.")
}

func isCourseEvent(routingKey string) bool {
	return strings.HasPrefix(routingKey, "course.")
}
