package service

import (
	"context"
	"errors"

	"learnsphere/internal/models"

	log "github.com/sirupsen/logrus"
)

// ProgressService tracks lesson completion and points per enrollment.
type ProgressService struct {
	enrollments EnrollmentStore
	lessons     LessonStore
	users       UserStore
}

func NewProgressService(enrollments EnrollmentStore, lessons LessonStore, users UserStore) *ProgressService {
	return &ProgressService{enrollments: enrollments, lessons: lessons, users: users}
}

// OnQuizPassed marks the quiz's lesson complete and credits the points,
// returning what was credited. A lesson completed by another submission is
// not credited again; repeating the call for the same submission is safe.
func (s *ProgressService) OnQuizPassed(ctx context.Context, attempt *models.Attempt) (int, error) {
	if attempt.CourseID == "" || attempt.LessonID == "" {
		return 0, nil
	}
	credited, err := s.enrollments.CompleteLesson(ctx, attempt.CourseID, attempt.UserID, attempt.LessonID,
		attempt.SubmissionID, attempt.PointsAwarded)
	if err != nil {
		return 0, err
	}
	if !credited {
		log.Debugf("Lesson %s already complete for %s", attempt.LessonID, attempt.UserID)
		return 0, nil
	}
	if attempt.PointsAwarded > 0 {
		if err := s.users.AddPointsOnce(ctx, attempt.UserID, attempt.SubmissionID, attempt.PointsAwarded); err != nil {
			return 0, err
		}
	}
	log.Infof("Lesson %s complete for %s (+%d points)", attempt.LessonID, attempt.UserID, attempt.PointsAwarded)
	return attempt.PointsAwarded, nil
}

func (s *ProgressService) Progress(ctx context.Context, session models.Session, courseID string) (*models.CourseProgress, error) {
	enrollment, err := s.enrollments.Find(ctx, courseID, session.UserID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, ErrNotEnrolled
		}
		return nil, err
	}
	total, err := s.lessons.CountByCourse(ctx, courseID)
	if err != nil {
		return nil, err
	}
	return buildProgress(enrollment, int(total)), nil
}

func buildProgress(e *models.Enrollment, totalLessons int) *models.CourseProgress {
	p := &models.CourseProgress{
		CourseID:         e.CourseID,
		TotalLessons:     totalLessons,
		CompletedLessons: e.CompletedLessons,
		Points:           e.Points,
	}
	if p.CompletedLessons == nil {
		p.CompletedLessons = []string{}
	}
	if totalLessons > 0 {
		p.Percentage = float64(len(p.CompletedLessons)) * 100 / float64(totalLessons)
		if p.Percentage > 100 {
			p.Percentage = 100
		}
	}
	return p
}
