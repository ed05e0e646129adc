package event

import (
	"context"
	"encoding/json"
	"fmt"

	"learnsphere/internal/repository"

	log "github.com/sirupsen/logrus"
)

type LeaderboardWriter interface {
	AddPointsOnce(ctx context.Context, submissionID, userID string, points int) (bool, error)
}

type CacheInvalidator interface {
	Invalidate(ctx context.Context, keys ...string) error
}

// Projector keeps the Redis read models in step with domain events.
type Projector struct {
	leaderboard LeaderboardWriter
	cache       CacheInvalidator
}

func NewProjector(leaderboard LeaderboardWriter, cache CacheInvalidator) *Projector {
	return &Projector{leaderboard: leaderboard, cache: cache}
}

func (p *Projector) HandleAttempt(ctx context.Context, event *AttemptEvent) error {
	if event.EventType != EventTypeAttemptPassed || event.PointsAwarded <= 0 {
		return nil
	}
	added, err := p.leaderboard.AddPointsOnce(ctx, event.SubmissionID, event.UserID, event.PointsAwarded)
	if err != nil {
		return fmt.Errorf("leaderboard projection: %w", err)
	}
	if added {
		log.Printf("Leaderboard: +%d points for user %s", event.PointsAwarded, event.UserID)
	}
	return nil
}

// HandleCourse drops the cached course document whenever its aggregate or
// content changes.
func (p *Projector) HandleCourse(ctx context.Context, event *CourseEvent) error {
	if event.CourseID == "" {
		return nil
	}
	if err := p.cache.Invalidate(ctx, repository.CourseCacheKey(event.CourseID)); err != nil {
		return fmt.Errorf("course cache projection: %w", err)
	}
	return nil
}

// Dispatch decodes a raw message by routing key and projects it. Unknown
// keys are ignored.
func (p *Projector) Dispatch(ctx context.Context, routingKey string, body []byte) error {
	switch {
	case isAttemptEvent(routingKey):
		var event AttemptEvent
		if err := json.Unmarshal(body, &event); err != nil {
			return fmt.Errorf("%w: attempt event: %v", errMalformed, err)
		}
		event.EventType = routingKey
		return p.HandleAttempt(ctx, &event)
	case isCourseEvent(routingKey):
		var event CourseEvent
		if err := json.Unmarshal(body, &event); err != nil {
			return fmt.Errorf("%w: course event: %v", errMalformed, err)
		}
		event.EventType = routingKey
		return p.HandleCourse(ctx, &event)
	default:
		log.Printf("Unknown routing key: %s", routingKey)
		return nil
	}
}
