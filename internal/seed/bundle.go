// Package seed loads course bundles written in YAML and imports them
// through the service layer, so seeded content passes the same checks as
// content authored over the API.
package seed

import (
	"context"
	"fmt"
	"os"
	"sort"

	"learnsphere/internal/models"

	log "github.com/sirupsen/logrus"
	"gopkg.in/yaml.v2"
)

type Bundle struct {
	Course  CourseSpec   `yaml:"course"`
	Lessons []LessonSpec `yaml:"lessons"`
}

type CourseSpec struct {
	Title       string   `yaml:"title"`
	Description string   `yaml:"description"`
	Price       float64  `yaml:"price"`
	Tags        []string `yaml:"tags"`
}

type LessonSpec struct {
	Title   string    `yaml:"title"`
	Content string    `yaml:"content"`
	Quiz    *QuizSpec `yaml:"quiz,omitempty"`
}

type QuizSpec struct {
	Title            string         `yaml:"title"`
	Proctored        bool           `yaml:"proctored"`
	TimeLimitSeconds int            `yaml:"time_limit_seconds"`
	Rewards          map[int]int    `yaml:"rewards"`
	Questions        []QuestionSpec `yaml:"questions"`
}

type QuestionSpec struct {
	Text    string   `yaml:"text"`
	Options []string `yaml:"options"`
	Correct int      `yaml:"correct"`
}

func Load(path string) (*Bundle, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return Parse(data)
}

func Parse(data []byte) (*Bundle, error) {
	var b Bundle
	if err := yaml.UnmarshalStrict(data, &b); err != nil {
		return nil, fmt.Errorf("parse bundle: %w", err)
	}
	return &b, nil
}

// Validate runs the quiz rules on every lesson quiz in the bundle.
func (b *Bundle) Validate() error {
	if b.Course.Title == "" {
		return fmt.Errorf("course title is required")
	}
	if b.Course.Price < 0 {
		return fmt.Errorf("course price must not be negative")
	}
	for i, lesson := range b.Lessons {
		if lesson.Title == "" {
			return fmt.Errorf("lesson %d: title is required", i)
		}
		if lesson.Quiz == nil {
			continue
		}
		req := lesson.Quiz.Request()
		q := models.Quiz{Title: req.Title, Questions: req.Questions, RewardTable: req.RewardTable}
		if q.Title == "" {
			return fmt.Errorf("lesson %d quiz: title is required", i)
		}
		if err := q.Validate(); err != nil {
			return fmt.Errorf("lesson %d quiz: %w", i, err)
		}
	}
	return nil
}

func (q *QuizSpec) Request() *models.QuizRequest {
	questions := make([]models.Question, len(q.Questions))
	for i, question := range q.Questions {
		questions[i] = models.Question{Text: question.Text, Options: question.Options, CorrectIndex: question.Correct}
	}
	attempts := make([]int, 0, len(q.Rewards))
	for attempt := range q.Rewards {
		attempts = append(attempts, attempt)
	}
	sort.Ints(attempts)
	rewards := make(models.RewardTable, 0, len(attempts))
	for _, attempt := range attempts {
		rewards = append(rewards, models.RewardTier{Attempt: attempt, Points: q.Rewards[attempt]})
	}
	return &models.QuizRequest{
		Title:            q.Title,
		Questions:        questions,
		RewardTable:      rewards,
		TimeLimitSeconds: q.TimeLimitSeconds,
		Proctored:        q.Proctored,
	}
}

type CourseCreator interface {
	Create(ctx context.Context, session models.Session, req *models.CourseRequest) (*models.Course, error)
	Publish(ctx context.Context, session models.Session, id string) (*models.Course, error)
}

type LessonCreator interface {
	Create(ctx context.Context, session models.Session, courseID string, req *models.LessonRequest) (*models.Lesson, error)
}

type QuizCreator interface {
	Create(ctx context.Context, session models.Session, lessonID string, req *models.QuizRequest) (*models.Quiz, error)
}

type Importer struct {
	Courses CourseCreator
	Lessons LessonCreator
	Quizzes QuizCreator
}

// Import creates the course, its lessons in bundle order and their quizzes
// as the given instructor. A failure part way leaves the course as a draft.
func (im *Importer) Import(ctx context.Context, instructor models.Session, b *Bundle, publish bool) (*models.Course, error) {
	if err := b.Validate(); err != nil {
		return nil, err
	}
	course, err := im.Courses.Create(ctx, instructor, &models.CourseRequest{
		Title:       b.Course.Title,
		Description: b.Course.Description,
		Price:       b.Course.Price,
		Tags:        b.Course.Tags,
	})
	if err != nil {
		return nil, fmt.Errorf("create course: %w", err)
	}
	log.Printf("Created course %s (%s)", course.ID, course.Title)

	for i, spec := range b.Lessons {
		lesson, err := im.Lessons.Create(ctx, instructor, course.ID, &models.LessonRequest{
			Title:   spec.Title,
			Content: spec.Content,
			Order:   i + 1,
		})
		if err != nil {
			return course, fmt.Errorf("lesson %q: %w", spec.Title, err)
		}
		if spec.Quiz == nil {
			continue
		}
		q, err := im.Quizzes.Create(ctx, instructor, lesson.ID, spec.Quiz.Request())
		if err != nil {
			return course, fmt.Errorf("quiz for lesson %q: %w", spec.Title, err)
		}
		log.Printf("Lesson %s: quiz %s with %d questions", lesson.ID, q.ID, len(q.Questions))
	}

	if publish {
		if course, err = im.Courses.Publish(ctx, instructor, course.ID); err != nil {
			return nil, fmt.Errorf("publish course: %w", err)
		}
	}
	return course, nil
}
