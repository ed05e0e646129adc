package event

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
)

type fakeLeaderboard struct {
	seen     map[string]bool
	points   map[string]int
	// failNext fails the next write without marking the submission.
	failNext bool
}

func newFakeLeaderboard() *fakeLeaderboard {
	return &fakeLeaderboard{seen: map[string]bool{}, points: map[string]int{}}
}

func (f *fakeLeaderboard) AddPointsOnce(ctx context.Context, submissionID, userID string, points int) (bool, error) {
	if f.failNext {
		f.failNext = false
		return false, errors.New("redis timeout")
	}
	if f.seen[submissionID] {
		return false, nil
	}
	f.seen[submissionID] = true
	f.points[userID] += points
	return true, nil
}

type fakeCache struct {
	invalidated []string
}

func (f *fakeCache) Invalidate(ctx context.Context, keys ...string) error {
	f.invalidated = append(f.invalidated, keys...)
	return nil
}

func TestProjectorCreditsPassedAttemptsOnce(t *testing.T) {
	board := newFakeLeaderboard()
	p := NewProjector(board, &fakeCache{})
	ctx := context.Background()

	passed := &AttemptEvent{EventType: EventTypeAttemptPassed, SubmissionID: "s1", UserID: "u1", PointsAwarded: 10}
	if err := p.HandleAttempt(ctx, passed); err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	// redelivery
	if err := p.HandleAttempt(ctx, passed); err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	failed := &AttemptEvent{EventType: EventTypeAttemptSubmitted, SubmissionID: "s2", UserID: "u1"}
	if err := p.HandleAttempt(ctx, failed); err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	if board.points["u1"] != 10 {
		t.Errorf("Expected 10 points, got %d", board.points["u1"])
	}
}

func TestProjectorRedeliveryAfterFailureCredits(t *testing.T) {
	board := newFakeLeaderboard()
	board.failNext = true
	p := NewProjector(board, &fakeCache{})
	ctx := context.Background()

	passed := &AttemptEvent{EventType: EventTypeAttemptPassed, SubmissionID: "s1", UserID: "u1", PointsAwarded: 30}
	if err := p.HandleAttempt(ctx, passed); err == nil {
		t.Fatal("Expected the failed write to be returned for requeue")
	}
	if err := p.HandleAttempt(ctx, passed); err != nil {
		t.Fatalf("Redelivery: %v", err)
	}
	if board.points["u1"] != 30 {
		t.Errorf("Expected 30 points after redelivery, got %d", board.points["u1"])
	}

	// a pass that credited nothing leaves the board alone
	uncredited := &AttemptEvent{EventType: EventTypeAttemptPassed, SubmissionID: "s2", UserID: "u1"}
	if err := p.HandleAttempt(ctx, uncredited); err != nil {
		t.Fatal(err)
	}
	if board.seen["s2"] || board.points["u1"] != 30 {
		t.Errorf("Uncredited pass touched the board: %+v", board.points)
	}
}

func TestDispatchByRoutingKey(t *testing.T) {
	board := newFakeLeaderboard()
	cache := &fakeCache{}
	p := NewProjector(board, cache)
	ctx := context.Background()

	body, _ := json.Marshal(AttemptEvent{SubmissionID: "s1", UserID: "u2", PointsAwarded: 5})
	if err := p.Dispatch(ctx, EventTypeAttemptPassed, body); err != nil {
		t.Fatalf("Dispatch attempt: %v", err)
	}
	if board.points["u2"] != 5 {
		t.Errorf("Expected 5 points, got %d", board.points["u2"])
	}

	body, _ = json.Marshal(CourseEvent{CourseID: "c1", Rating: 4.5})
	if err := p.Dispatch(ctx, EventTypeCourseReviewed, body); err != nil {
		t.Fatalf("Dispatch course: %v", err)
	}
	if len(cache.invalidated) != 1 || cache.invalidated[0] != "course:c1" {
		t.Errorf("Expected course:c1 invalidated, got %v", cache.invalidated)
	}

	if err := p.Dispatch(ctx, "billing.invoice", []byte("{}")); err != nil {
		t.Errorf("Unknown routing keys should be ignored, got %v", err)
	}

	err := p.Dispatch(ctx, EventTypeAttemptPassed, []byte("not json"))
	if !errors.Is(err, errMalformed) {
		t.Errorf("Expected errMalformed, got %v", err)
	}
}

func TestLocalPublisherProjectsInProcess(t *testing.T) {
	board := newFakeLeaderboard()
	cache := &fakeCache{}
	var pub Publisher = NewLocalPublisher(NewProjector(board, cache))
	ctx := context.Background()

	_ = pub.PublishAttemptEvent(ctx, &AttemptEvent{EventType: EventTypeAttemptPassed, SubmissionID: "s9", UserID: "u3", PointsAwarded: 7})
	_ = pub.PublishCourseEvent(ctx, &CourseEvent{EventType: EventTypeCourseUpdated, CourseID: "c7"})

	if board.points["u3"] != 7 {
		t.Errorf("Expected 7 points, got %d", board.points["u3"])
	}
	if len(cache.invalidated) != 1 {
		t.Errorf("Expected one invalidation, got %v", cache.invalidated)
	}
	if err := pub.Close(); err != nil {
		t.Errorf("Close: %v", err)
	}
}

func TestDisabledPublisherIsNoop(t *testing.T) {
	pub, err := NewEventPublisher("", "learnsphere.events")
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if err := pub.PublishCourseEvent(context.Background(), &CourseEvent{EventType: EventTypeCourseUpdated}); err != nil {
		t.Errorf("Disabled publisher should not fail, got %v", err)
	}
	if err := pub.Close(); err != nil {
		t.Errorf("Close: %v", err)
	}
}
