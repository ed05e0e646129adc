package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"slices"
	"strings"

	"learnsphere/internal/config"
	"learnsphere/internal/models"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/v2/bson"
)

type LessonService struct {
	lessons     LessonStore
	courses     CourseStore
	enrollments EnrollmentStore
	files       FileStore
	objects     ObjectStore
	cfg         config.MinIOConfig
}

func NewLessonService(lessons LessonStore, courses CourseStore, enrollments EnrollmentStore,
	files FileStore, objects ObjectStore, cfg config.MinIOConfig) *LessonService {
	return &LessonService{
		lessons:     lessons,
		courses:     courses,
		enrollments: enrollments,
		files:       files,
		objects:     objects,
		cfg:         cfg,
	}
}

// Upload is one multipart file headed for a lesson.
type Upload struct {
	Name        string
	ContentType string
	Size        int64
	Body        io.Reader
}

func (s *LessonService) ListByCourse(ctx context.Context, session models.Session, courseID string) ([]models.Lesson, error) {
	course, err := s.courses.FindByID(ctx, courseID)
	if err != nil {
		return nil, err
	}
	if !course.Published && !canEdit(session, course) {
		return nil, ErrNotFound
	}
	return s.lessons.ListByCourse(ctx, courseID)
}

func (s *LessonService) Create(ctx context.Context, session models.Session, courseID string, req *models.LessonRequest) (*models.Lesson, error) {
	course, err := s.courses.FindByID(ctx, courseID)
	if err != nil {
		return nil, err
	}
	if !canEdit(session, course) {
		return nil, ErrForbidden
	}
	lesson := &models.Lesson{
		CourseID: courseID,
		Title:    req.Title,
		Content:  req.Content,
		Order:    req.Order,
	}
	if err := s.lessons.Create(ctx, lesson); err != nil {
		return nil, err
	}
	return lesson, nil
}

func (s *LessonService) Update(ctx context.Context, session models.Session, lessonID string, req *models.LessonRequest) (*models.Lesson, error) {
	lesson, err := s.editable(ctx, session, lessonID)
	if err != nil {
		return nil, err
	}
	err = s.lessons.Update(ctx, lessonID, bson.M{
		"title":   req.Title,
		"content": req.Content,
		"order":   req.Order,
	})
	if err != nil {
		return nil, err
	}
	lesson.Title, lesson.Content, lesson.Order = req.Title, req.Content, req.Order
	return lesson, nil
}

// editable returns the lesson if the caller may change its course.
func (s *LessonService) editable(ctx context.Context, session models.Session, lessonID string) (*models.Lesson, error) {
	lesson, err := s.lessons.FindByID(ctx, lessonID)
	if err != nil {
		return nil, err
	}
	course, err := s.courses.FindByID(ctx, lesson.CourseID)
	if err != nil {
		return nil, err
	}
	if !canEdit(session, course) {
		return nil, ErrForbidden
	}
	return lesson, nil
}

// readable returns the lesson if the caller teaches or is enrolled in its
// course.
func (s *LessonService) readable(ctx context.Context, session models.Session, lessonID string) (*models.Lesson, error) {
	lesson, err := s.lessons.FindByID(ctx, lessonID)
	if err != nil {
		return nil, err
	}
	course, err := s.courses.FindByID(ctx, lesson.CourseID)
	if err != nil {
		return nil, err
	}
	if canEdit(session, course) {
		return lesson, nil
	}
	if _, err := s.enrollments.Find(ctx, course.ID, session.UserID); err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, ErrNotEnrolled
		}
		return nil, err
	}
	return lesson, nil
}

// UploadMaterial streams a file into object storage and links it to the
// lesson.
func (s *LessonService) UploadMaterial(ctx context.Context, session models.Session, lessonID string, up Upload) (*models.StoredFile, error) {
	if up.Size <= 0 {
		return nil, validation("empty file")
	}
	if s.cfg.MaxUploadBytes > 0 && up.Size > s.cfg.MaxUploadBytes {
		return nil, validation("file exceeds %d bytes", s.cfg.MaxUploadBytes)
	}
	lesson, err := s.editable(ctx, session, lessonID)
	if err != nil {
		return nil, err
	}

	name := path.Base(strings.ReplaceAll(up.Name, "\\", "/"))
	if name == "." || name == "/" || name == "" {
		name = "material"
	}
	contentType := up.ContentType
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	key := fmt.Sprintf("lessons/%s/%s-%s", lesson.ID, uuid.NewString(), name)

	if err := s.objects.Upload(ctx, key, up.Body, up.Size, contentType); err != nil {
		return nil, fmt.Errorf("upload material: %w", err)
	}

	file := &models.StoredFile{
		OwnerID:     session.UserID,
		LessonID:    lesson.ID,
		Key:         key,
		Bucket:      s.objects.Bucket(),
		Name:        name,
		ContentType: contentType,
		Size:        up.Size,
	}
	if err := s.files.Create(ctx, file); err != nil {
		s.discard(ctx, key)
		return nil, err
	}
	if err := s.lessons.AddMaterial(ctx, lesson.ID, key); err != nil {
		if derr := s.files.Delete(ctx, file.ID); derr != nil {
			log.Errorf("Error removing file record %s: %v", file.ID, derr)
		}
		s.discard(ctx, key)
		return nil, err
	}
	log.Printf("Stored material %s for lesson %s (%d bytes)", key, lesson.ID, up.Size)
	return file, nil
}

func (s *LessonService) discard(ctx context.Context, key string) {
	if err := s.objects.Delete(ctx, key); err != nil {
		log.Errorf("Error discarding orphan object %s: %v", key, err)
	}
}

func (s *LessonService) ListMaterials(ctx context.Context, session models.Session, lessonID string) ([]models.StoredFile, error) {
	if _, err := s.readable(ctx, session, lessonID); err != nil {
		return nil, err
	}
	return s.files.ListByLesson(ctx, lessonID)
}

// MaterialURL returns a presigned download link for one of the lesson's
// materials.
func (s *LessonService) MaterialURL(ctx context.Context, session models.Session, lessonID, fileID string) (string, error) {
	lesson, err := s.readable(ctx, session, lessonID)
	if err != nil {
		return "", err
	}
	files, err := s.files.ListByLesson(ctx, lessonID)
	if err != nil {
		return "", err
	}
	idx := slices.IndexFunc(files, func(f models.StoredFile) bool { return f.ID == fileID })
	if idx < 0 || !slices.Contains(lesson.MaterialKeys, files[idx].Key) {
		return "", ErrNotFound
	}
	return s.objects.PresignedURL(ctx, files[idx].Key, s.cfg.PresignExpiry)
}
