package handlers

import (
	"context"

	"learnsphere/internal/models"
	"learnsphere/internal/proctoring"
	"learnsphere/internal/service"
)

// What the handlers need from the service layer.

type AuthAPI interface {
	Register(ctx context.Context, req *models.RegisterRequest) (*models.AuthResponse, error)
	Login(ctx context.Context, req *models.LoginRequest) (*models.AuthResponse, error)
	Me(ctx context.Context, session models.Session) (*models.User, error)
	GoogleLoginURL(ctx context.Context) (string, error)
	GoogleCallback(ctx context.Context, state, code string) (*models.AuthResponse, error)
	FrontendRedirect(token string) string
	VerifyToken(tokenString string) (*models.Claims, error)
}

type DashboardAPI interface {
	For(ctx context.Context, session models.Session) (*service.Dashboard, error)
}

type CourseAPI interface {
	List(ctx context.Context, page, pageSize int) (*service.CoursePage, error)
	Get(ctx context.Context, session models.Session, id string) (*models.Course, error)
	Create(ctx context.Context, session models.Session, req *models.CourseRequest) (*models.Course, error)
	Update(ctx context.Context, session models.Session, id string, req *models.CourseRequest) (*models.Course, error)
	Publish(ctx context.Context, session models.Session, id string) (*models.Course, error)
	Delete(ctx context.Context, session models.Session, id string) error
	Enroll(ctx context.Context, session models.Session, courseID string) (*models.Enrollment, error)
}

type ProgressAPI interface {
	Progress(ctx context.Context, session models.Session, courseID string) (*models.CourseProgress, error)
}

type LessonAPI interface {
	ListByCourse(ctx context.Context, session models.Session, courseID string) ([]models.Lesson, error)
	Create(ctx context.Context, session models.Session, courseID string, req *models.LessonRequest) (*models.Lesson, error)
	Update(ctx context.Context, session models.Session, lessonID string, req *models.LessonRequest) (*models.Lesson, error)
	UploadMaterial(ctx context.Context, session models.Session, lessonID string, up service.Upload) (*models.StoredFile, error)
	ListMaterials(ctx context.Context, session models.Session, lessonID string) ([]models.StoredFile, error)
	MaterialURL(ctx context.Context, session models.Session, lessonID, fileID string) (string, error)
}

type QuizAPI interface {
	Create(ctx context.Context, session models.Session, lessonID string, req *models.QuizRequest) (*models.Quiz, error)
	Get(ctx context.Context, session models.Session, id string) (any, error)
	Update(ctx context.Context, session models.Session, id string, req *models.QuizRequest) (*models.Quiz, error)
	AddOption(ctx context.Context, session models.Session, quizID string, questionIndex int, text string) (*models.Quiz, error)
	MoveOption(ctx context.Context, session models.Session, quizID string, questionIndex, from, to int) (*models.Quiz, error)
	RemoveOption(ctx context.Context, session models.Session, quizID string, questionIndex, optionIndex int) (*models.Quiz, error)
}

type AttemptAPI interface {
	Submit(ctx context.Context, session models.Session, quizID string, req *models.SubmitRequest) (*service.SubmitResult, error)
	History(ctx context.Context, session models.Session, quizID string) ([]models.Attempt, error)
	AllAttempts(ctx context.Context, session models.Session, quizID string) ([]models.Attempt, error)
	StartLive(ctx context.Context, session models.Session, quizID string) (*service.LiveView, error)
	GetLive(ctx context.Context, session models.Session, id string) (*service.LiveView, error)
	AnswerLive(ctx context.Context, session models.Session, id string, question, option int) (*service.LiveView, error)
	BackLive(ctx context.Context, session models.Session, id string) (*service.LiveView, error)
	GoToLive(ctx context.Context, session models.Session, id string, question int) (*service.LiveView, error)
	AdvanceLive(ctx context.Context, session models.Session, id string) (*service.LiveView, error)
	EventLive(ctx context.Context, session models.Session, id string, ev proctoring.Event) (*service.EventOutcome, error)
	RestartLive(ctx context.Context, session models.Session, id string) (*service.LiveView, error)
}

type ReviewAPI interface {
	Submit(ctx context.Context, session models.Session, courseID string, req *models.ReviewRequest) (*models.RatingAggregate, error)
	List(ctx context.Context, courseID string, limit int) ([]models.Review, error)
}

type LeaderboardAPI interface {
	Top(ctx context.Context, limit int) ([]models.LeaderboardEntry, error)
}
