package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"learnsphere/internal/config"
	"learnsphere/internal/models"

	"github.com/hibiken/asynq"
	log "github.com/sirupsen/logrus"
)

const (
	TypePersistAttempt = "attempt:persist"
)

// AttemptPersister stores an attempt and runs its side effects. It must be
// safe to call again for an attempt that already landed.
type AttemptPersister interface {
	PersistAttempt(ctx context.Context, attempt *models.Attempt) error
}

type JobManager struct {
	client *asynq.Client
	server *asynq.Server
	mux    *asynq.ServeMux
	queue  string
}

type AttemptPayload struct {
	Attempt models.Attempt `json:"attempt"`
}

func NewJobManager(redisCfg config.RedisConfig, queue string) *JobManager {
	redisOpt := asynq.RedisClientOpt{
		Addr:     redisCfg.Address,
		Password: redisCfg.Password,
		DB:       redisCfg.DB,
	}

	server := asynq.NewServer(redisOpt, asynq.Config{
		Concurrency: 10,
		Queues: map[string]int{
			queue:     6,
			"default": 3,
		},
		ErrorHandler: asynq.ErrorHandlerFunc(func(ctx context.Context, task *asynq.Task, err error) {
			log.Errorf("Job failed: type=%s error=%v", task.Type(), err)
		}),
		Logger: &AsynqLogger{},
	})

	return &JobManager{
		client: asynq.NewClient(redisOpt),
		server: server,
		mux:    asynq.NewServeMux(),
		queue:  queue,
	}
}

func (jm *JobManager) RegisterHandlers(persister AttemptPersister) {
	jm.mux.HandleFunc(TypePersistAttempt, handlePersistAttempt(persister))
}

// Start runs the worker in the background.
func (jm *JobManager) Start() error {
	log.Println("Starting job queue worker...")
	return jm.server.Start(jm.mux)
}

func (jm *JobManager) Stop() {
	log.Println("Stopping job queue...")
	jm.server.Stop()
	jm.server.Shutdown()
	if err := jm.client.Close(); err != nil {
		log.Printf("Error closing asynq client: %v", err)
	}
}

// QueueAttemptPersist defers an attempt write that failed inline. The
// submission id doubles as the task id so a retried request cannot queue
// the same attempt twice.
func (jm *JobManager) QueueAttemptPersist(ctx context.Context, attempt *models.Attempt) error {
	payload, err := json.Marshal(AttemptPayload{Attempt: *attempt})
	if err != nil {
		return fmt.Errorf("failed to marshal attempt payload: %w", err)
	}

	task := asynq.NewTask(TypePersistAttempt, payload)
	info, err := jm.client.EnqueueContext(ctx, task,
		asynq.Queue(jm.queue),
		asynq.MaxRetry(10),
		asynq.Timeout(30*time.Second),
		asynq.TaskID(attempt.SubmissionID),
		asynq.Retention(24*time.Hour),
	)
	if errors.Is(err, asynq.ErrTaskIDConflict) {
		log.Printf("Attempt %s is already queued", attempt.SubmissionID)
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to enqueue attempt task: %w", err)
	}

	log.Printf("Queued attempt persist job: ID=%s submission=%s user=%s", info.ID, attempt.SubmissionID, attempt.UserID)
	return nil
}

func handlePersistAttempt(persister AttemptPersister) func(context.Context, *asynq.Task) error {
	return func(ctx context.Context, task *asynq.Task) error {
		var payload AttemptPayload
		if err := json.Unmarshal(task.Payload(), &payload); err != nil {
			return fmt.Errorf("failed to unmarshal attempt payload: %v: %w", err, asynq.SkipRetry)
		}

		log.Printf("Processing attempt persist job: submission=%s user=%s quiz=%s",
			payload.Attempt.SubmissionID, payload.Attempt.UserID, payload.Attempt.QuizID)

		if err := persister.PersistAttempt(ctx, &payload.Attempt); err != nil {
			return fmt.Errorf("failed to persist attempt %s: %w", payload.Attempt.SubmissionID, err)
		}
		return nil
	}
}

// AsynqLogger routes asynq's logs through logrus.
type AsynqLogger struct{}

func (l *AsynqLogger) Debug(args ...interface{}) { log.Debug(args...) }
func (l *AsynqLogger) Info(args ...interface{})  { log.Info(args...) }
func (l *AsynqLogger) Warn(args ...interface{})  { log.Warn(args...) }
func (l *AsynqLogger) Error(args ...interface{}) { log.Error(args...) }
func (l *AsynqLogger) Fatal(args ...interface{}) { log.Fatal(args...) }
