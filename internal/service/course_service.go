package service

import (
	"context"
	"errors"
	"time"

	"learnsphere/internal/event"
	"learnsphere/internal/models"
	"learnsphere/internal/repository"

	log "github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/v2/bson"
)

const maxPageSize = 50

type CourseService struct {
	courses     CourseStore
	lessons     LessonStore
	quizzes     QuizStore
	enrollments EnrollmentStore
	reviews     ReviewStore
	cache       Cache
	publisher   event.Publisher
}

func NewCourseService(courses CourseStore, lessons LessonStore, quizzes QuizStore, enrollments EnrollmentStore,
	reviews ReviewStore, cache Cache, publisher event.Publisher) *CourseService {
	return &CourseService{
		courses:     courses,
		lessons:     lessons,
		quizzes:     quizzes,
		enrollments: enrollments,
		reviews:     reviews,
		cache:       cache,
		publisher:   publisher,
	}
}

type CoursePage struct {
	Courses  []models.Course `json:"courses"`
	Total    int64           `json:"total"`
	Page     int             `json:"page"`
	PageSize int             `json:"page_size"`
}

func (s *CourseService) List(ctx context.Context, page, pageSize int) (*CoursePage, error) {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 || pageSize > maxPageSize {
		pageSize = 20
	}
	courses, total, err := s.courses.ListPublished(ctx, int64((page-1)*pageSize), int64(pageSize))
	if err != nil {
		return nil, err
	}
	return &CoursePage{Courses: courses, Total: total, Page: page, PageSize: pageSize}, nil
}

// Get returns a course through the Redis cache. Unpublished courses are only
// visible to their instructor and admins.
func (s *CourseService) Get(ctx context.Context, session models.Session, id string) (*models.Course, error) {
	course, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if !course.Published && !canEdit(session, course) {
		return nil, ErrNotFound
	}
	return course, nil
}

func (s *CourseService) load(ctx context.Context, id string) (*models.Course, error) {
	key := repository.CourseCacheKey(id)
	var cached models.Course
	err := s.cache.GetStructCached(ctx, key, &cached)
	if err == nil {
		return &cached, nil
	}
	if !errors.Is(err, ErrNotFound) {
		log.Warnf("Course cache read failed for %s: %v", id, err)
	}

	course, err := s.courses.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.cache.SaveStructCached(ctx, key, course); err != nil {
		log.Warnf("Course cache write failed for %s: %v", id, err)
	}
	return course, nil
}

// editable loads a course straight from Mongo and checks the caller may
// change it.
func (s *CourseService) editable(ctx context.Context, session models.Session, id string) (*models.Course, error) {
	course, err := s.courses.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !canEdit(session, course) {
		return nil, ErrForbidden
	}
	return course, nil
}

func (s *CourseService) Create(ctx context.Context, session models.Session, req *models.CourseRequest) (*models.Course, error) {
	course := &models.Course{
		Title:        req.Title,
		Description:  req.Description,
		InstructorID: session.UserID,
		Price:        req.Price,
		Tags:         req.Tags,
	}
	if err := s.courses.Create(ctx, course); err != nil {
		return nil, err
	}
	log.Printf("Course %s created by %s", course.ID, session.UserID)
	return course, nil
}

func (s *CourseService) Update(ctx context.Context, session models.Session, id string, req *models.CourseRequest) (*models.Course, error) {
	if _, err := s.editable(ctx, session, id); err != nil {
		return nil, err
	}
	update := bson.M{
		"title":       req.Title,
		"description": req.Description,
		"price":       req.Price,
		"tags":        req.Tags,
	}
	if err := s.courses.Update(ctx, id, update); err != nil {
		return nil, err
	}
	s.changed(ctx, event.EventTypeCourseUpdated, id, session.UserID)
	return s.courses.FindByID(ctx, id)
}

// Publish makes a course visible in the catalogue. A course needs at least
// one lesson first.
func (s *CourseService) Publish(ctx context.Context, session models.Session, id string) (*models.Course, error) {
	course, err := s.editable(ctx, session, id)
	if err != nil {
		return nil, err
	}
	n, err := s.lessons.CountByCourse(ctx, id)
	if err != nil {
		return nil, err
	}
	if n == 0 {
		return nil, validation("course has no lessons")
	}
	if err := s.courses.Update(ctx, id, bson.M{"published": true}); err != nil {
		return nil, err
	}
	course.Published = true
	s.changed(ctx, event.EventTypeCourseUpdated, id, session.UserID)
	return course, nil
}

// Delete removes the course and everything hanging off it.
func (s *CourseService) Delete(ctx context.Context, session models.Session, id string) error {
	if _, err := s.editable(ctx, session, id); err != nil {
		return err
	}
	if err := s.courses.Delete(ctx, id); err != nil {
		return err
	}
	// TODO: purge the lessons' material objects and file records as well.
	if _, err := s.lessons.DeleteByCourse(ctx, id); err != nil {
		log.Errorf("Error deleting lessons of course %s: %v", id, err)
	}
	if err := s.quizzes.DeleteByCourse(ctx, id); err != nil {
		log.Errorf("Error deleting quizzes of course %s: %v", id, err)
	}
	if err := s.enrollments.DeleteByCourse(ctx, id); err != nil {
		log.Errorf("Error deleting enrollments of course %s: %v", id, err)
	}
	if err := s.reviews.DeleteByCourse(ctx, id); err != nil {
		log.Errorf("Error deleting reviews of course %s: %v", id, err)
	}
	s.changed(ctx, event.EventTypeCourseDeleted, id, session.UserID)
	return nil
}

func (s *CourseService) Enroll(ctx context.Context, session models.Session, courseID string) (*models.Enrollment, error) {
	course, err := s.Get(ctx, session, courseID)
	if err != nil {
		return nil, err
	}
	if !course.Published {
		return nil, validation("course is not published")
	}
	enrollment := &models.Enrollment{CourseID: courseID, UserID: session.UserID}
	if err := s.enrollments.Create(ctx, enrollment); err != nil {
		if errors.Is(err, ErrDuplicateDoc) {
			return nil, ErrAlreadyEnrolled
		}
		return nil, err
	}
	if err := s.courses.IncrementEnrollment(ctx, courseID); err != nil {
		log.Errorf("Error counting enrollment for course %s: %v", courseID, err)
	}
	s.changed(ctx, event.EventTypeCourseEnrolled, courseID, session.UserID)
	return enrollment, nil
}

// changed invalidates the cached course and tells the rest of the system.
func (s *CourseService) changed(ctx context.Context, eventType, courseID, userID string) {
	if err := s.cache.Invalidate(ctx, repository.CourseCacheKey(courseID)); err != nil {
		log.Warnf("Course cache invalidation failed for %s: %v", courseID, err)
	}
	err := s.publisher.PublishCourseEvent(ctx, &event.CourseEvent{
		EventType: eventType,
		CourseID:  courseID,
		UserID:    userID,
		Timestamp: time.Now().Unix(),
	})
	if err != nil {
		log.Warnf("Failed to publish %s for course %s: %v", eventType, courseID, err)
	}
}
