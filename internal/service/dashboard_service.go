package service

import (
	"context"
	"fmt"

	"learnsphere/internal/models"

	log "github.com/sirupsen/logrus"
)

const recentAttempts = 10

// Dashboard carries exactly one of the role sections, selected by Role.
type Dashboard struct {
	Role       models.Role          `json:"role"`
	Learner    *LearnerDashboard    `json:"learner,omitempty"`
	Instructor *InstructorDashboard `json:"instructor,omitempty"`
	Admin      *AdminDashboard      `json:"admin,omitempty"`
}

type EnrolledCourse struct {
	Course   models.Course         `json:"course"`
	Progress models.CourseProgress `json:"progress"`
}

type LearnerDashboard struct {
	Points         int              `json:"points"`
	Courses        []EnrolledCourse `json:"courses"`
	RecentAttempts []models.Attempt `json:"recent_attempts"`
}

type InstructorDashboard struct {
	Courses          []models.Course `json:"courses"`
	TotalEnrollments int             `json:"total_enrollments"`
	AverageRating    float64         `json:"average_rating"`
	Published        int             `json:"published"`
}

type AdminDashboard struct {
	UsersByRole map[models.Role]int64 `json:"users_by_role"`
	Courses     int64                 `json:"courses"`
}

type DashboardService struct {
	users       UserStore
	courses     CourseStore
	lessons     LessonStore
	enrollments EnrollmentStore
	attempts    AttemptStore
}

func NewDashboardService(users UserStore, courses CourseStore, lessons LessonStore, enrollments EnrollmentStore, attempts AttemptStore) *DashboardService {
	return &DashboardService{users: users, courses: courses, lessons: lessons, enrollments: enrollments, attempts: attempts}
}

func (s *DashboardService) For(ctx context.Context, session models.Session) (*Dashboard, error) {
	d := &Dashboard{Role: session.Role}
	var err error
	switch session.Role {
	case models.RoleLearner:
		d.Learner, err = s.learner(ctx, session)
	case models.RoleInstructor:
		d.Instructor, err = s.instructor(ctx, session)
	case models.RoleAdmin:
		d.Admin, err = s.admin(ctx)
	default:
		return nil, fmt.Errorf("%w: unknown role %q", ErrForbidden, session.Role)
	}
	if err != nil {
		return nil, err
	}
	return d, nil
}

func (s *DashboardService) learner(ctx context.Context, session models.Session) (*LearnerDashboard, error) {
	user, err := s.users.FindByID(ctx, session.UserID)
	if err != nil {
		return nil, err
	}
	enrollments, err := s.enrollments.ListByUser(ctx, session.UserID)
	if err != nil {
		return nil, err
	}

	ids := make([]string, len(enrollments))
	for i, e := range enrollments {
		ids[i] = e.CourseID
	}
	courses, err := s.courses.FindByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}
	byID := make(map[string]models.Course, len(courses))
	for _, c := range courses {
		byID[c.ID] = c
	}

	out := &LearnerDashboard{Points: user.Points, Courses: []EnrolledCourse{}}
	for i := range enrollments {
		course, ok := byID[enrollments[i].CourseID]
		if !ok {
			continue
		}
		total, err := s.lessons.CountByCourse(ctx, course.ID)
		if err != nil {
			log.Warnf("Lesson count failed for course %s: %v", course.ID, err)
		}
		out.Courses = append(out.Courses, EnrolledCourse{
			Course:   course,
			Progress: *buildProgress(&enrollments[i], int(total)),
		})
	}

	out.RecentAttempts, err = s.attempts.RecentByUser(ctx, session.UserID, recentAttempts)
	if err != nil {
		return nil, err
	}
	if out.RecentAttempts == nil {
		out.RecentAttempts = []models.Attempt{}
	}
	return out, nil
}

func (s *DashboardService) instructor(ctx context.Context, session models.Session) (*InstructorDashboard, error) {
	courses, err := s.courses.ListByInstructor(ctx, session.UserID)
	if err != nil {
		return nil, err
	}
	out := &InstructorDashboard{Courses: courses}
	if out.Courses == nil {
		out.Courses = []models.Course{}
	}

	var ratingSum, ratingCount int
	for _, c := range courses {
		out.TotalEnrollments += c.EnrollmentCount
		ratingSum += c.RatingSum
		ratingCount += c.RatingCount
		if c.Published {
			out.Published++
		}
	}
	if ratingCount > 0 {
		out.AverageRating = float64(ratingSum) / float64(ratingCount)
	}
	return out, nil
}

func (s *DashboardService) admin(ctx context.Context) (*AdminDashboard, error) {
	byRole, err := s.users.CountByRole(ctx)
	if err != nil {
		return nil, err
	}
	courses, err := s.courses.Count(ctx)
	if err != nil {
		return nil, err
	}
	return &AdminDashboard{UsersByRole: byRole, Courses: courses}, nil
}
