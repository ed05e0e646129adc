package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"learnsphere/internal/config"
	"learnsphere/internal/event"
	"learnsphere/internal/models"
	"learnsphere/internal/quiz"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
)

type AttemptService struct {
	quizzes     QuizStore
	courses     CourseStore
	attempts    AttemptStore
	counter     AttemptCounter
	enrollments EnrollmentStore
	progress    ProgressTracker
	live        LiveAttemptStore
	queue       AttemptQueue
	publisher   event.Publisher
	cfg         config.QuizConfig

	now   func() time.Time
	sleep func(time.Duration)
}

func NewAttemptService(quizzes QuizStore, courses CourseStore, attempts AttemptStore, counter AttemptCounter,
	enrollments EnrollmentStore, progress ProgressTracker, live LiveAttemptStore, queue AttemptQueue, publisher event.Publisher, cfg config.QuizConfig) *AttemptService {
	return &AttemptService{
		quizzes:     quizzes,
		courses:     courses,
		attempts:    attempts,
		counter:     counter,
		enrollments: enrollments,
		progress:    progress,
		live:        live,
		queue:       queue,
		publisher:   publisher,
		cfg:         cfg,
		now:         time.Now,
		sleep:       time.Sleep,
	}
}

// SubmitResult is the scored attempt plus how its write went. When
// Persisted is false and Queued is true the attempt will be written by the
// background worker.
type SubmitResult struct {
	quiz.Result
	SubmissionID string                   `json:"submission_id"`
	Proctoring   models.ProctoringSummary `json:"proctoring"`
	Persisted    bool                     `json:"persisted"`
	Queued       bool                     `json:"queued"`
}

// playable loads a quiz the caller may attempt.
func (s *AttemptService) playable(ctx context.Context, session models.Session, quizID string) (*models.Quiz, error) {
	q, err := s.quizzes.FindByID(ctx, quizID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, ErrQuizUnavailable
		}
		return nil, err
	}
	if len(q.Questions) == 0 {
		return nil, ErrQuizUnavailable
	}
	if q.CourseID == "" || session.Role == models.RoleAdmin {
		return q, nil
	}

	course, err := s.courses.FindByID(ctx, q.CourseID)
	if err != nil {
		return nil, err
	}
	if canEdit(session, course) {
		return q, nil
	}
	if _, err := s.enrollments.Find(ctx, q.CourseID, session.UserID); err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, ErrNotEnrolled
		}
		return nil, err
	}
	return q, nil
}

// number reserves the attempt's number once its outcome is known and
// settles the reward. A failure takes the next number, a pass keeps the
// current one, and only the first pass on a quiz earns points.
func (s *AttemptService) number(ctx context.Context, q *models.Quiz, attempt *models.Attempt) error {
	n, passedBefore, err := s.counter.Reserve(ctx, attempt.UserID, q.ID, attempt.Passed)
	if err != nil {
		return err
	}
	attempt.AttemptNumber = n
	attempt.PointsAwarded = 0
	if attempt.Passed && !passedBefore {
		attempt.PointsAwarded = q.RewardTable.PointsForAttempt(n)
	}
	return nil
}

// Submit scores a whole attempt in one request.
func (s *AttemptService) Submit(ctx context.Context, session models.Session, quizID string, req *models.SubmitRequest) (*SubmitResult, error) {
	if req.SubmissionID == "" {
		req.SubmissionID = uuid.NewString()
	}

	existing, err := s.attempts.FindBySubmission(ctx, req.SubmissionID)
	switch {
	case err == nil:
		if existing.UserID != session.UserID || existing.QuizID != quizID {
			return nil, validation("submission id already used")
		}
		return storedResult(existing), nil
	case !errors.Is(err, ErrNotFound):
		log.Warnf("Submission lookup failed for %s: %v", req.SubmissionID, err)
	}

	q, err := s.playable(ctx, session, quizID)
	if err != nil {
		return nil, err
	}
	// scored first, numbered once pass or fail is known
	result, err := quiz.Replay(q, 1, req.Answers, nil)
	if err != nil {
		return nil, scoringError(err)
	}

	startedAt := req.StartedAt
	if startedAt.IsZero() {
		startedAt = s.now()
	}
	attempt := s.buildAttempt(q, session.UserID, req.SubmissionID, result, req.Proctoring, startedAt)
	if err := s.number(ctx, q, attempt); err != nil {
		return nil, err
	}
	return s.record(ctx, attempt)
}

func (s *AttemptService) buildAttempt(q *models.Quiz, userID, submissionID string, result *quiz.Result,
	proctoring models.ProctoringSummary, startedAt time.Time) *models.Attempt {
	return &models.Attempt{
		SubmissionID:  submissionID,
		QuizID:        q.ID,
		CourseID:      q.CourseID,
		LessonID:      q.LessonID,
		UserID:        userID,
		AttemptNumber: result.AttemptNumber,
		Answers:       result.Answers,
		Score:         result.Score,
		Total:         result.Total,
		Passed:        result.Passed,
		PointsAwarded: result.PointsAwarded,
		Proctoring:    proctoring,
		StartedAt:     startedAt,
		SubmittedAt:   s.now(),
	}
}

// record writes the attempt with a few inline retries, then falls back to
// the job queue. ErrPersistUnavailable is returned together with the
// result when both fail.
func (s *AttemptService) record(ctx context.Context, attempt *models.Attempt) (*SubmitResult, error) {
	res := resultFor(attempt)

	retries := max(s.cfg.PersistRetries, 1)
	var err error
	for i := 0; i < retries; i++ {
		if i > 0 {
			s.sleep(s.cfg.PersistBackoff * time.Duration(i))
		}
		if err = s.PersistAttempt(ctx, attempt); err == nil {
			res.Persisted = true
			return res, nil
		}
		log.Warnf("Persisting attempt %s failed (try %d/%d): %v", attempt.SubmissionID, i+1, retries, err)
	}

	if qerr := s.queue.QueueAttemptPersist(ctx, attempt); qerr != nil {
		log.Errorf("Queueing attempt %s failed: %v", attempt.SubmissionID, qerr)
		return res, fmt.Errorf("%w: %v", ErrPersistUnavailable, err)
	}
	res.Queued = true
	return res, nil
}

// PersistAttempt stores an attempt and runs its side effects. Every step
// is safe to repeat, so a submission id that is already stored still gets
// its progress credit and events, and a failed progress update is returned
// for the caller to retry.
func (s *AttemptService) PersistAttempt(ctx context.Context, attempt *models.Attempt) error {
	err := s.attempts.Insert(ctx, attempt)
	if errors.Is(err, ErrDuplicateDoc) {
		stored, ferr := s.attempts.FindBySubmission(ctx, attempt.SubmissionID)
		if ferr != nil {
			// the number, not the submission, collided
			return fmt.Errorf("attempt %s: %w", attempt.SubmissionID, err)
		}
		log.Debugf("Attempt %s already stored, finishing side effects", attempt.SubmissionID)
		attempt = stored
	} else if err != nil {
		return err
	}

	credited := 0
	if attempt.Passed {
		credited, err = s.progress.OnQuizPassed(ctx, attempt)
		if err != nil {
			return fmt.Errorf("progress for attempt %s: %w", attempt.SubmissionID, err)
		}
	}
	s.publishAttempt(ctx, attempt, credited)
	return nil
}

// publishAttempt announces the attempt. credited is what the learner's
// total actually gained, which the leaderboard adds.
func (s *AttemptService) publishAttempt(ctx context.Context, attempt *models.Attempt, credited int) {
	types := []string{event.EventTypeAttemptSubmitted}
	if attempt.Passed {
		types = append(types, event.EventTypeAttemptPassed)
	}
	for _, t := range types {
		err := s.publisher.PublishAttemptEvent(ctx, &event.AttemptEvent{
			EventType:     t,
			AttemptID:     attempt.ID,
			SubmissionID:  attempt.SubmissionID,
			QuizID:        attempt.QuizID,
			CourseID:      attempt.CourseID,
			LessonID:      attempt.LessonID,
			UserID:        attempt.UserID,
			AttemptNumber: attempt.AttemptNumber,
			Score:         attempt.Score,
			Total:         attempt.Total,
			Passed:        attempt.Passed,
			PointsAwarded: credited,
			Proctoring:    attempt.Proctoring,
			Timestamp:     attempt.SubmittedAt.Unix(),
		})
		if err != nil {
			log.Warnf("Failed to publish %s for attempt %s: %v", t, attempt.SubmissionID, err)
		}
	}
}

// History lists the caller's own attempts on a quiz, newest first.
func (s *AttemptService) History(ctx context.Context, session models.Session, quizID string) ([]models.Attempt, error) {
	return s.attempts.ListByUserQuiz(ctx, session.UserID, quizID)
}

// AllAttempts lists every learner's attempts for the quiz's instructor.
func (s *AttemptService) AllAttempts(ctx context.Context, session models.Session, quizID string) ([]models.Attempt, error) {
	q, err := s.quizzes.FindByID(ctx, quizID)
	if err != nil {
		return nil, err
	}
	if session.Role != models.RoleAdmin {
		course, err := s.courses.FindByID(ctx, q.CourseID)
		if err != nil {
			return nil, err
		}
		if !canEdit(session, course) {
			return nil, ErrForbidden
		}
	}
	return s.attempts.ListByQuiz(ctx, quizID)
}

func resultFor(a *models.Attempt) *SubmitResult {
	next := a.AttemptNumber
	if !a.Passed {
		next++
	}
	return &SubmitResult{
		Result: quiz.Result{
			Score:         a.Score,
			Total:         a.Total,
			Passed:        a.Passed,
			PointsAwarded: a.PointsAwarded,
			AttemptNumber: a.AttemptNumber,
			NextAttempt:   next,
			Answers:       a.Answers,
		},
		SubmissionID: a.SubmissionID,
		Proctoring:   a.Proctoring,
	}
}

func storedResult(a *models.Attempt) *SubmitResult {
	res := resultFor(a)
	res.Persisted = true
	return res
}

func scoringError(err error) error {
	if errors.Is(err, quiz.ErrQuestionOutOfRange) || errors.Is(err, quiz.ErrOptionOutOfRange) {
		return fmt.Errorf("%w: %v", ErrValidation, err)
	}
	return err
}
