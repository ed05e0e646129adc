package handlers

import (
	"net/http"
	"time"

	"learnsphere/internal/middleware"
	"learnsphere/internal/models"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Pinger reports whether a backing service is reachable.
type Pinger func() bool

type Handlers struct {
	Auth        *AuthHandler
	Courses     *CourseHandler
	Lessons     *LessonHandler
	Quizzes     *QuizHandler
	Attempts    *AttemptHandler
	Reviews     *ReviewHandler
	Leaderboard *LeaderboardHandler
	ServiceName string
	Pingers     map[string]Pinger
}

// HealthCheck answers Consul's check. Any failed ping makes it 503.
func (h *Handlers) HealthCheck(c *gin.Context) {
	status, code := "healthy", http.StatusOK
	deps := make(map[string]string, len(h.Pingers))
	for name, ping := range h.Pingers {
		if ping() {
			deps[name] = "up"
			continue
		}
		deps[name] = "down"
		status, code = "degraded", http.StatusServiceUnavailable
	}
	c.JSON(code, gin.H{
		"service":      h.ServiceName,
		"status":       status,
		"dependencies": deps,
		"timestamp":    time.Now(),
	})
}

func SetupRoutes(r *gin.Engine, h *Handlers, verifier middleware.TokenVerifier) {
	r.GET("/health", h.HealthCheck)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	api := r.Group("/api")
	auth := middleware.Authenticate(verifier)
	instructors := middleware.RoleRequired(models.RoleInstructor)

	publicAuth := api.Group("/auth")
	{
		publicAuth.POST("/register", h.Auth.Register)
		publicAuth.POST("/login", h.Auth.Login)
		publicAuth.GET("/google/login", h.Auth.GoogleLogin)
		publicAuth.GET("/google/callback", h.Auth.GoogleCallback)
	}

	// catalogue reads work without a token
	catalogue := api.Group("", middleware.OptionalAuthenticate(verifier))
	{
		catalogue.GET("/courses", h.Courses.List)
		catalogue.GET("/courses/:id", h.Courses.Get)
		catalogue.GET("/courses/:id/reviews", h.Reviews.List)
		catalogue.GET("/leaderboard", h.Leaderboard.Top)
	}

	protected := api.Group("", auth)
	{
		protected.GET("/me", h.Auth.Me)
		protected.GET("/me/dashboard", h.Auth.Dashboard)

		protected.POST("/courses", instructors, h.Courses.Create)
		protected.PUT("/courses/:id", instructors, h.Courses.Update)
		protected.POST("/courses/:id/publish", instructors, h.Courses.Publish)
		protected.DELETE("/courses/:id", instructors, h.Courses.Delete)
		protected.POST("/courses/:id/enroll", h.Courses.Enroll)
		protected.GET("/courses/:id/progress", h.Courses.Progress)
		protected.POST("/courses/:id/reviews", h.Reviews.Submit)

		protected.GET("/courses/:id/lessons", h.Lessons.ListByCourse)
		protected.POST("/courses/:id/lessons", instructors, h.Lessons.Create)
		protected.PUT("/lessons/:id", instructors, h.Lessons.Update)
		protected.POST("/lessons/:id/materials", instructors, h.Lessons.UploadMaterial)
		protected.GET("/lessons/:id/materials", h.Lessons.ListMaterials)
		protected.GET("/lessons/:id/materials/:fileId", h.Lessons.MaterialURL)

		protected.POST("/lessons/:id/quiz", instructors, h.Quizzes.Create)
		protected.GET("/quizzes/:id", h.Quizzes.Get)
		protected.PUT("/quizzes/:id", instructors, h.Quizzes.Update)
		protected.POST("/quizzes/:id/questions/:q/options", instructors, h.Quizzes.AddOption)
		protected.PUT("/quizzes/:id/questions/:q/options/:o/position", instructors, h.Quizzes.MoveOption)
		protected.DELETE("/quizzes/:id/questions/:q/options/:o", instructors, h.Quizzes.RemoveOption)

		protected.POST("/quizzes/:id/submit", h.Attempts.Submit)
		protected.POST("/quizzes/:id/attempts", h.Attempts.StartLive)
		protected.GET("/quizzes/:id/attempts", h.Attempts.History)
		protected.GET("/quizzes/:id/attempts/all", instructors, h.Attempts.AllAttempts)
	}

	live := api.Group("/attempts/live/:sid", auth)
	{
		live.GET("", h.Attempts.GetLive)
		live.PUT("/answers/:q", h.Attempts.AnswerLive)
		live.POST("/advance", h.Attempts.AdvanceLive)
		live.POST("/back", h.Attempts.BackLive)
		live.POST("/goto/:q", h.Attempts.GoToLive)
		live.POST("/events", h.Attempts.EventLive)
		live.POST("/restart", h.Attempts.RestartLive)
	}
}
