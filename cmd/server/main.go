package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"learnsphere/internal/config"
	"learnsphere/internal/database/minio"
	"learnsphere/internal/database/mongo"
	"learnsphere/internal/database/redis"
	"learnsphere/internal/event"
	"learnsphere/internal/handlers"
	"learnsphere/internal/jobs"
	"learnsphere/internal/middleware"
	"learnsphere/internal/repository"
	"learnsphere/internal/service"
	"learnsphere/pkg/discovery"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	log "github.com/sirupsen/logrus"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}
	cfg := config.Load()

	logFile, err := cfg.ConfigureLogger()
	if err != nil {
		log.Printf("Warning: logging to stdout only: %v", err)
	} else {
		defer logFile.Close()
	}

	if cfg.IsProductionMode() {
		gin.SetMode(gin.ReleaseMode)
	}

	if err := mongo.Connect(cfg.MongoDB); err != nil {
		log.Fatalf("Failed to connect to MongoDB: %v", err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	if err := repository.EnsureIndexes(ctx, mongo.Database); err != nil {
		log.Printf("Warning: Failed to create database indexes: %v", err)
	} else {
		log.Println("Database indexes created successfully")
	}
	cancel()

	redisClient := redis.Connect(cfg.Redis)

	ctx, cancel = context.WithTimeout(context.Background(), 15*time.Second)
	objects, err := minio.Connect(ctx, cfg.MinIO)
	cancel()
	if err != nil {
		log.Fatalf("Failed to initialize MinIO: %v", err)
	}

	// Initialize repositories
	userRepo := repository.NewUserRepository(mongo.Database)
	courseRepo := repository.NewCourseRepository(mongo.Database)
	lessonRepo := repository.NewLessonRepository(mongo.Database)
	quizRepo := repository.NewQuizRepository(mongo.Database)
	attemptRepo := repository.NewAttemptRepository(mongo.Database)
	counterRepo := repository.NewAttemptCounterRepository(mongo.Database)
	enrollmentRepo := repository.NewEnrollmentRepository(mongo.Database)
	fileRepo := repository.NewFileRepository(mongo.Database)
	reviewRepo := repository.NewReviewRepository(mongo.Database, courseRepo, cfg.MongoDB.TransactionsEnabled)
	cacheRepo := repository.NewCacheRepository(redisClient, cfg.Redis.CacheTTL)
	leaderboardRepo := repository.NewLeaderboardRepository(redisClient)
	liveRepo := repository.NewLiveAttemptRepository(redisClient, cfg.Quiz.LiveAttemptTTL)
	stateRepo := repository.NewOAuthStateRepository(redisClient, cfg.Auth.StateExpiry)

	// Events: through RabbitMQ when configured, otherwise projected in process
	projector := event.NewProjector(leaderboardRepo, cacheRepo)
	var publisher event.Publisher
	if cfg.RabbitMQ.URI == "" {
		log.Println("RabbitMQ URI is empty, projecting events in process")
		publisher = event.NewLocalPublisher(projector)
	} else {
		amqpPublisher, err := event.NewEventPublisher(cfg.RabbitMQ.URI, cfg.RabbitMQ.Exchange)
		if err != nil {
			log.Fatalf("Failed to initialize event publisher: %v", err)
		}
		publisher = amqpPublisher

		consumer, err := event.NewEventConsumer(cfg.RabbitMQ.URI, cfg.RabbitMQ.Exchange, cfg.RabbitMQ.QueueName, projector)
		if err != nil {
			log.Printf("Warning: Failed to initialize event consumer: %v", err)
		} else if err := consumer.Start(); err != nil {
			log.Printf("Warning: Failed to start event consumer: %v", err)
			consumer.Close()
		} else {
			defer consumer.Close()
		}
	}

	jobManager := jobs.NewJobManager(cfg.Redis, cfg.Quiz.JobQueue)

	// Initialize services
	authService := service.NewAuthService(userRepo, stateRepo, cfg.Auth, cfg.Google)
	progressService := service.NewProgressService(enrollmentRepo, lessonRepo, userRepo)
	courseService := service.NewCourseService(courseRepo, lessonRepo, quizRepo, enrollmentRepo, reviewRepo, cacheRepo, publisher)
	lessonService := service.NewLessonService(lessonRepo, courseRepo, enrollmentRepo, fileRepo, objects, cfg.MinIO)
	quizService := service.NewQuizService(quizRepo, lessonRepo, courseRepo)
	attemptService := service.NewAttemptService(quizRepo, courseRepo, attemptRepo, counterRepo, enrollmentRepo,
		progressService, liveRepo, jobManager, publisher, cfg.Quiz)
	reviewService := service.NewReviewService(reviewRepo, courseRepo, enrollmentRepo, cacheRepo, publisher)
	leaderboardService := service.NewLeaderboardService(leaderboardRepo, userRepo)
	dashboardService := service.NewDashboardService(userRepo, courseRepo, lessonRepo, enrollmentRepo, attemptRepo)

	jobManager.RegisterHandlers(attemptService)
	if err := jobManager.Start(); err != nil {
		log.Fatalf("Failed to start job worker: %v", err)
	}

	router := gin.New()
	router.Use(gin.Recovery(), middleware.RequestLogger(), middleware.Metrics())
	router.Use(cors.New(cors.Config{
		AllowOrigins:     cfg.Server.AllowOrigins,
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	handlers.SetupRoutes(router, &handlers.Handlers{
		Auth:        handlers.NewAuthHandler(authService, dashboardService),
		Courses:     handlers.NewCourseHandler(courseService, progressService),
		Lessons:     handlers.NewLessonHandler(lessonService),
		Quizzes:     handlers.NewQuizHandler(quizService),
		Attempts:    handlers.NewAttemptHandler(attemptService),
		Reviews:     handlers.NewReviewHandler(reviewService),
		Leaderboard: handlers.NewLeaderboardHandler(leaderboardService),
		ServiceName: cfg.Server.ServiceName,
		Pingers: map[string]handlers.Pinger{
			"mongodb": mongo.IsConnected,
			"redis":   redis.IsConnected,
		},
	}, authService)

	srv := &http.Server{
		Addr:         fmt.Sprintf("%s:%s", cfg.Server.Host, cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	registry, err := discovery.NewServiceRegistry(cfg)
	if err != nil {
		log.Fatalf("Service Discovery Init Failed: %v", err)
	}

	shutdownChan := make(chan os.Signal, 1)
	signal.Notify(shutdownChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		log.Printf("Starting server on %s", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("Error starting server: %v", err)
		}
	}()

	if err := registry.Register(); err != nil {
		log.Printf("Warning: %v", err)
	}

	<-shutdownChan
	log.Println("Shutting down server...")

	if err := registry.Deregister(); err != nil {
		log.Printf("Error deregistering from service discovery: %v", err)
	}

	ctx, cancel = context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Printf("Error shutting down HTTP server: %v", err)
	}

	jobManager.Stop()
	if err := publisher.Close(); err != nil {
		log.Printf("Error closing event publisher: %v", err)
	}
	redis.Close()
	mongo.Disconnect()

	log.Println("Server shutdown complete")
}
