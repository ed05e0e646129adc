package service

import (
	"context"
	"io"
	"time"

	"learnsphere/internal/models"

	"go.mongodb.org/mongo-driver/v2/bson"
)

// The interfaces below are what the services need from the repository
// package. Tests supply in-memory versions.

type UserStore interface {
	Create(ctx context.Context, user *models.User) error
	FindByID(ctx context.Context, id string) (*models.User, error)
	FindByEmail(ctx context.Context, email string) (*models.User, error)
	FindByIDs(ctx context.Context, ids []string) (map[string]*models.User, error)
	AddPointsOnce(ctx context.Context, id, submissionID string, points int) error
	TopByPoints(ctx context.Context, limit int) ([]models.User, error)
	CountByRole(ctx context.Context) (map[models.Role]int64, error)
}

type CourseStore interface {
	Create(ctx context.Context, course *models.Course) error
	FindByID(ctx context.Context, id string) (*models.Course, error)
	ListPublished(ctx context.Context, skip, limit int64) ([]models.Course, int64, error)
	ListByInstructor(ctx context.Context, instructorID string) ([]models.Course, error)
	FindByIDs(ctx context.Context, ids []string) ([]models.Course, error)
	Update(ctx context.Context, id string, update bson.M) error
	Delete(ctx context.Context, id string) error
	IncrementEnrollment(ctx context.Context, id string) error
	Count(ctx context.Context) (int64, error)
}

type LessonStore interface {
	Create(ctx context.Context, lesson *models.Lesson) error
	FindByID(ctx context.Context, id string) (*models.Lesson, error)
	ListByCourse(ctx context.Context, courseID string) ([]models.Lesson, error)
	CountByCourse(ctx context.Context, courseID string) (int64, error)
	Update(ctx context.Context, id string, update bson.M) error
	AddMaterial(ctx context.Context, id, key string) error
	DeleteByCourse(ctx context.Context, courseID string) (int64, error)
}

type QuizStore interface {
	Create(ctx context.Context, quiz *models.Quiz) error
	FindByID(ctx context.Context, id string) (*models.Quiz, error)
	Replace(ctx context.Context, quiz *models.Quiz) error
	DeleteByCourse(ctx context.Context, courseID string) error
}

type AttemptStore interface {
	Insert(ctx context.Context, attempt *models.Attempt) error
	FindBySubmission(ctx context.Context, submissionID string) (*models.Attempt, error)
	ListByUserQuiz(ctx context.Context, userID, quizID string) ([]models.Attempt, error)
	ListByQuiz(ctx context.Context, quizID string) ([]models.Attempt, error)
	RecentByUser(ctx context.Context, userID string, limit int64) ([]models.Attempt, error)
}

// AttemptCounter numbers attempts per learner and quiz.
type AttemptCounter interface {
	Peek(ctx context.Context, userID, quizID string) (number int, passedBefore bool, err error)
	Reserve(ctx context.Context, userID, quizID string, passed bool) (number int, passedBefore bool, err error)
}

type EnrollmentStore interface {
	Create(ctx context.Context, e *models.Enrollment) error
	Find(ctx context.Context, courseID, userID string) (*models.Enrollment, error)
	CompleteLesson(ctx context.Context, courseID, userID, lessonID, submissionID string, points int) (bool, error)
	ListByUser(ctx context.Context, userID string) ([]models.Enrollment, error)
	DeleteByCourse(ctx context.Context, courseID string) error
}

type ReviewStore interface {
	Submit(ctx context.Context, review *models.Review) (*models.RatingAggregate, error)
	ListByCourse(ctx context.Context, courseID string, limit int64) ([]models.Review, error)
	DeleteByCourse(ctx context.Context, courseID string) error
}

type FileStore interface {
	Create(ctx context.Context, file *models.StoredFile) error
	ListByLesson(ctx context.Context, lessonID string) ([]models.StoredFile, error)
	Delete(ctx context.Context, id string) error
}

type Cache interface {
	SaveStructCached(ctx context.Context, key string, model any) error
	GetStructCached(ctx context.Context, key string, model any) error
	Invalidate(ctx context.Context, keys ...string) error
}

type LiveAttemptStore interface {
	Create(ctx context.Context, id string, v any) error
	Get(ctx context.Context, id string, v any) error
	Update(ctx context.Context, id string, v any, mutate func() error) error
	Delete(ctx context.Context, id string) error
}

type LeaderboardStore interface {
	Top(ctx context.Context, limit int) ([]models.LeaderboardEntry, error)
	Rebuild(ctx context.Context, totals map[string]int) error
}

type OAuthStateStore interface {
	Save(ctx context.Context, state string) error
	Consume(ctx context.Context, state string) (bool, error)
}

type ObjectStore interface {
	Bucket() string
	Upload(ctx context.Context, key string, reader io.Reader, size int64, contentType string) error
	Delete(ctx context.Context, key string) error
	PresignedURL(ctx context.Context, key string, expiry time.Duration) (string, error)
}

type AttemptQueue interface {
	QueueAttemptPersist(ctx context.Context, attempt *models.Attempt) error
}

// ProgressTracker is told when a learner passes a lesson's quiz. It returns
// the points the attempt actually credited.
type ProgressTracker interface {
	OnQuizPassed(ctx context.Context, attempt *models.Attempt) (int, error)
}

func canEdit(session models.Session, course *models.Course) bool {
	return session.Role == models.RoleAdmin || course.InstructorID == session.UserID
}
