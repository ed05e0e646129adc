package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"learnsphere/internal/models"
	"learnsphere/internal/proctoring"
	"learnsphere/internal/quiz"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
)

// LiveAttempt is a quiz session kept in Redis between requests.
type LiveAttempt struct {
	ID        string           `json:"id"`
	QuizID    string           `json:"quiz_id"`
	UserID    string           `json:"user_id"`
	Proctored bool             `json:"proctored"`
	StartedAt time.Time        `json:"started_at"`
	Machine   quiz.Snapshot    `json:"machine"`
	Monitor   proctoring.State `json:"monitor"`
	Result    *SubmitResult    `json:"result,omitempty"`
}

// LiveView is what the learner's client renders.
type LiveView struct {
	ID               string                 `json:"id"`
	QuizID           string                 `json:"quiz_id"`
	Title            string                 `json:"title"`
	State            quiz.State             `json:"state"`
	Current          int                    `json:"current"`
	Total            int                    `json:"total"`
	Attempt          int                    `json:"attempt"`
	Question         *models.PublicQuestion `json:"question,omitempty"`
	Answers          []int                  `json:"answers"`
	Result           *SubmitResult          `json:"result,omitempty"`
	Proctored        bool                   `json:"proctored"`
	Blocked          bool                   `json:"blocked"`
	Warnings         []proctoring.Warning   `json:"warnings"`
	Counters         proctoring.Counters    `json:"counters"`
	TimeLimitSeconds int                    `json:"time_limit_seconds"`
	StartedAt        time.Time              `json:"started_at"`
}

// EventOutcome is the reply to a forwarded browser event.
type EventOutcome struct {
	proctoring.Response
	View *LiveView `json:"attempt"`
}

// session is a live attempt with its machine and monitor rebuilt.
type session struct {
	live    *LiveAttempt
	quiz    *models.Quiz
	machine *quiz.Machine
	monitor *proctoring.Monitor
}

func (s *AttemptService) newMonitor() *proctoring.Monitor {
	return proctoring.NewMonitor(nil, proctoring.Options{
		WarningTTL:        s.cfg.WarningTTL,
		RequireFullscreen: s.cfg.RequireFullscreen,
		Now:               s.now,
	})
}

// StartLive opens a live session showing the learner's next attempt
// number. The number is only reserved when the attempt is submitted.
func (s *AttemptService) StartLive(ctx context.Context, sess models.Session, quizID string) (*LiveView, error) {
	q, err := s.playable(ctx, sess, quizID)
	if err != nil {
		return nil, err
	}
	number, _, err := s.counter.Peek(ctx, sess.UserID, quizID)
	if err != nil {
		return nil, err
	}

	m, err := quiz.NewMachine(q, number)
	if err != nil {
		return nil, err
	}
	if err := m.Start(); err != nil {
		return nil, err
	}
	mon := s.newMonitor()
	if q.Proctored {
		mon.Activate()
	}

	live := &LiveAttempt{
		ID:        uuid.NewString(),
		QuizID:    q.ID,
		UserID:    sess.UserID,
		Proctored: q.Proctored,
		StartedAt: s.now(),
		Machine:   m.Snapshot(),
		Monitor:   mon.State(),
	}
	if err := s.live.Create(ctx, live.ID, live); err != nil {
		return nil, err
	}
	log.Infof("Live attempt %s started on quiz %s by %s (attempt %d)", live.ID, q.ID, sess.UserID, number)
	return s.view(&session{live: live, quiz: q, machine: m, monitor: mon}), nil
}

func (s *AttemptService) GetLive(ctx context.Context, sess models.Session, id string) (*LiveView, error) {
	var live LiveAttempt
	if err := s.live.Get(ctx, id, &live); err != nil {
		return nil, err
	}
	if live.UserID != sess.UserID {
		return nil, ErrNotFound
	}
	restored, err := s.restore(ctx, &live)
	if err != nil {
		return nil, err
	}
	return s.view(restored), nil
}

func (s *AttemptService) restore(ctx context.Context, live *LiveAttempt) (*session, error) {
	q, err := s.quizzes.FindByID(ctx, live.QuizID)
	if err != nil {
		return nil, err
	}
	m, err := quiz.Restore(q, live.Machine)
	if err != nil {
		// the quiz was edited under the session
		return nil, ErrQuizUnavailable
	}
	mon := s.newMonitor()
	mon.Restore(live.Monitor)
	return &session{live: live, quiz: q, machine: m, monitor: mon}, nil
}

// mutate runs fn against the restored session inside the store's
// optimistic update and writes the new snapshots back.
func (s *AttemptService) mutate(ctx context.Context, sess models.Session, id string, fn func(*session) error) (*session, error) {
	var live LiveAttempt
	if err := s.live.Get(ctx, id, &live); err != nil {
		return nil, err
	}
	if live.UserID != sess.UserID {
		return nil, ErrNotFound
	}

	var current *session
	err := s.live.Update(ctx, id, &live, func() error {
		restored, err := s.restore(ctx, &live)
		if err != nil {
			return err
		}
		if err := fn(restored); err != nil {
			return err
		}
		live.Machine = restored.machine.Snapshot()
		live.Monitor = restored.monitor.State()
		current = restored
		return nil
	})
	if err != nil {
		return nil, err
	}
	return current, nil
}

func (s *AttemptService) AnswerLive(ctx context.Context, sess models.Session, id string, question, option int) (*LiveView, error) {
	current, err := s.mutate(ctx, sess, id, func(ss *session) error {
		if ss.monitor.Blocked() {
			return ErrInteractionBlocked
		}
		return ss.machine.SelectAnswer(question, option)
	})
	if err != nil {
		return nil, machineError(err)
	}
	return s.view(current), nil
}

// GoToLive jumps to any question of an attempt in progress.
func (s *AttemptService) GoToLive(ctx context.Context, sess models.Session, id string, question int) (*LiveView, error) {
	current, err := s.mutate(ctx, sess, id, func(ss *session) error {
		if ss.monitor.Blocked() {
			return ErrInteractionBlocked
		}
		return ss.machine.GoTo(question)
	})
	if err != nil {
		return nil, machineError(err)
	}
	return s.view(current), nil
}

func (s *AttemptService) BackLive(ctx context.Context, sess models.Session, id string) (*LiveView, error) {
	current, err := s.mutate(ctx, sess, id, func(ss *session) error {
		if ss.monitor.Blocked() {
			return ErrInteractionBlocked
		}
		return ss.machine.Back()
	})
	if err != nil {
		return nil, machineError(err)
	}
	return s.view(current), nil
}

// AdvanceLive moves to the next question. On the last question it submits:
// the monitor is closed, its counters go into the attempt and the attempt
// is numbered and recorded like a one-shot submission. A persistence
// failure comes back as ErrPersistUnavailable with the view still filled in.
func (s *AttemptService) AdvanceLive(ctx context.Context, sess models.Session, id string) (*LiveView, error) {
	var attempt *models.Attempt
	current, err := s.mutate(ctx, sess, id, func(ss *session) error {
		attempt = nil
		if ss.monitor.Blocked() {
			return ErrInteractionBlocked
		}
		result, err := ss.machine.Advance()
		if err != nil || result == nil {
			return err
		}
		ss.monitor.Close()
		counters := ss.monitor.Counters()
		attempt = s.buildAttempt(ss.quiz, sess.UserID, uuid.NewString(), result, models.ProctoringSummary{
			TabSwitches:     counters.TabSwitches,
			FullScreenExits: counters.FullScreenExits,
			WebcamEnabled:   counters.WebcamEnabled,
		}, ss.live.StartedAt)
		ss.live.Result = resultFor(attempt)
		return nil
	})
	if err != nil {
		return nil, machineError(err)
	}
	if attempt == nil {
		return s.view(current), nil
	}

	// numbered outside the session update, which may run more than once
	if err := s.number(ctx, current.quiz, attempt); err != nil {
		log.Errorf("Numbering live attempt %s failed: %v", id, err)
		return s.view(current), fmt.Errorf("%w: %v", ErrPersistUnavailable, err)
	}
	res, recErr := s.record(ctx, attempt)
	current.live.Result = res
	if err := current.machine.Renumber(res.NextAttempt); err != nil {
		log.Warnf("Live attempt %s keeps attempt %d: %v", id, current.machine.Attempt(), err)
	}
	s.saveResult(ctx, id, res)
	return s.view(current), recErr
}

// saveResult stores how the submission was written on the session, along
// with the attempt number the next try will get.
func (s *AttemptService) saveResult(ctx context.Context, id string, res *SubmitResult) {
	var live LiveAttempt
	err := s.live.Update(ctx, id, &live, func() error {
		live.Result = res
		if res.NextAttempt >= live.Machine.InitialAttempt {
			live.Machine.Attempt = res.NextAttempt
		}
		return nil
	})
	if err != nil {
		log.Errorf("Saving result on live attempt %s failed: %v", id, err)
	}
}

// EventLive feeds one forwarded browser event through a bus into the
// session's monitor.
func (s *AttemptService) EventLive(ctx context.Context, sess models.Session, id string, ev proctoring.Event) (*EventOutcome, error) {
	if !ev.Kind.Valid() {
		return nil, validation("unknown event type %q", ev.Kind)
	}
	var resp proctoring.Response
	current, err := s.mutate(ctx, sess, id, func(ss *session) error {
		bus := proctoring.NewBus()
		detach := ss.monitor.Attach(bus)
		defer detach()
		resp = bus.Publish(ev)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &EventOutcome{Response: resp, View: s.view(current)}, nil
}

// RestartLive begins the next attempt after a failed one on the same
// session, with cleared answers and fresh proctoring counters.
func (s *AttemptService) RestartLive(ctx context.Context, sess models.Session, id string) (*LiveView, error) {
	current, err := s.mutate(ctx, sess, id, func(ss *session) error {
		if err := ss.machine.Restart(); err != nil {
			return err
		}
		ss.monitor = s.newMonitor()
		if ss.live.Proctored {
			ss.monitor.Activate()
		}
		ss.live.Result = nil
		ss.live.StartedAt = s.now()
		return nil
	})
	if err != nil {
		return nil, machineError(err)
	}
	return s.view(current), nil
}

func (s *AttemptService) view(ss *session) *LiveView {
	now := s.now()
	m := ss.machine
	v := &LiveView{
		ID:               ss.live.ID,
		QuizID:           ss.quiz.ID,
		Title:            ss.quiz.Title,
		State:            m.State(),
		Current:          m.Current(),
		Total:            len(ss.quiz.Questions),
		Attempt:          m.Attempt(),
		Answers:          m.Answers(),
		Result:           ss.live.Result,
		Proctored:        ss.live.Proctored,
		Blocked:          ss.monitor.Blocked(),
		Warnings:         ss.monitor.ActiveWarnings(now),
		Counters:         ss.monitor.Counters(),
		TimeLimitSeconds: ss.quiz.TimeLimitSeconds,
		StartedAt:        ss.live.StartedAt,
	}
	if m.State() == quiz.StateInProgress {
		q := ss.quiz.Questions[m.Current()]
		v.Question = &models.PublicQuestion{Text: q.Text, Options: append([]string(nil), q.Options...)}
	}
	return v
}

func machineError(err error) error {
	switch {
	case errors.Is(err, quiz.ErrQuestionOutOfRange), errors.Is(err, quiz.ErrOptionOutOfRange):
		return scoringError(err)
	case errors.Is(err, quiz.ErrNotInProgress), errors.Is(err, quiz.ErrCannotRestart), errors.Is(err, quiz.ErrAlreadyStarted):
		return validation("%v", err)
	}
	return err
}
