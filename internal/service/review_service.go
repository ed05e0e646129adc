package service

import (
	"context"
	"errors"
	"strings"

	"learnsphere/internal/event"
	"learnsphere/internal/models"
	"learnsphere/internal/repository"

	log "github.com/sirupsen/logrus"
)

const defaultReviewLimit = 50

type ReviewService struct {
	reviews     ReviewStore
	courses     CourseStore
	enrollments EnrollmentStore
	cache       Cache
	publisher   event.Publisher
}

func NewReviewService(reviews ReviewStore, courses CourseStore, enrollments EnrollmentStore, cache Cache, publisher event.Publisher) *ReviewService {
	return &ReviewService{
		reviews:     reviews,
		courses:     courses,
		enrollments: enrollments,
		cache:       cache,
		publisher:   publisher,
	}
}

// Submit records one rating per learner and course and returns the
// course's new aggregate.
func (s *ReviewService) Submit(ctx context.Context, session models.Session, courseID string, req *models.ReviewRequest) (*models.RatingAggregate, error) {
	if req.Rating < models.MinRating || req.Rating > models.MaxRating {
		return nil, validation("rating must be between %d and %d", models.MinRating, models.MaxRating)
	}
	course, err := s.courses.FindByID(ctx, courseID)
	if err != nil {
		return nil, err
	}
	if !course.Published {
		return nil, ErrNotFound
	}
	if course.InstructorID == session.UserID {
		return nil, ErrForbidden
	}
	if _, err := s.enrollments.Find(ctx, courseID, session.UserID); err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, ErrNotEnrolled
		}
		return nil, err
	}

	review := &models.Review{
		CourseID: courseID,
		UserID:   session.UserID,
		UserName: session.Name,
		Rating:   req.Rating,
		Comment:  strings.TrimSpace(req.Comment),
	}
	agg, err := s.reviews.Submit(ctx, review)
	if err != nil {
		if errors.Is(err, ErrDuplicateDoc) {
			return nil, ErrAlreadyReviewed
		}
		return nil, err
	}
	log.Printf("Review %s on course %s: rating %d, course now %.2f over %d", review.ID, courseID, req.Rating, agg.Rating, agg.RatingCount)

	if err := s.cache.Invalidate(ctx, repository.CourseCacheKey(courseID)); err != nil {
		log.Warnf("Course cache invalidation failed for %s: %v", courseID, err)
	}
	err = s.publisher.PublishCourseEvent(ctx, &event.CourseEvent{
		EventType:   event.EventTypeCourseReviewed,
		CourseID:    courseID,
		UserID:      session.UserID,
		Rating:      agg.Rating,
		RatingCount: agg.RatingCount,
		Timestamp:   review.CreatedAt.Unix(),
	})
	if err != nil {
		log.Warnf("Failed to publish review event for course %s: %v", courseID, err)
	}
	return agg, nil
}

func (s *ReviewService) List(ctx context.Context, courseID string, limit int) ([]models.Review, error) {
	if limit < 1 || limit > defaultReviewLimit {
		limit = defaultReviewLimit
	}
	if _, err := s.courses.FindByID(ctx, courseID); err != nil {
		return nil, err
	}
	return s.reviews.ListByCourse(ctx, courseID, int64(limit))
}
