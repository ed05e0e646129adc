package models

import "time"

type Course struct {
	ID              string    `bson:"_id,omitempty" json:"id"`
	Title           string    `bson:"title" json:"title"`
	Description     string    `bson:"description" json:"description"`
	InstructorID    string    `bson:"instructor_id" json:"instructor_id"`
	Price           float64   `bson:"price" json:"price"`
	Tags            []string  `bson:"tags" json:"tags"`
	Published       bool      `bson:"published" json:"published"`
	Rating          float64   `bson:"rating" json:"rating"`
	RatingCount     int       `bson:"rating_count" json:"rating_count"`
	RatingSum       int       `bson:"rating_sum" json:"-"`
	EnrollmentCount int       `bson:"enrollment_count" json:"enrollment_count"`
	ThumbnailKey    string    `bson:"thumbnail_key,omitempty" json:"thumbnail_key,omitempty"`
	CreatedAt       time.Time `bson:"created_at" json:"created_at"`
	UpdatedAt       time.Time `bson:"updated_at" json:"updated_at"`
}

type CourseRequest struct {
	Title       string   `json:"title" binding:"required"`
	Description string   `json:"description"`
	Price       float64  `json:"price" binding:"gte=0"`
	Tags        []string `json:"tags"`
}

type Lesson struct {
	ID           string    `bson:"_id,omitempty" json:"id"`
	CourseID     string    `bson:"course_id" json:"course_id"`
	Title        string    `bson:"title" json:"title"`
	Content      string    `bson:"content" json:"content"`
	Order        int       `bson:"order" json:"order"`
	QuizID       string    `bson:"quiz_id,omitempty" json:"quiz_id,omitempty"`
	MaterialKeys []string  `bson:"material_keys" json:"material_keys"`
	CreatedAt    time.Time `bson:"created_at" json:"created_at"`
	UpdatedAt    time.Time `bson:"updated_at" json:"updated_at"`
}

type LessonRequest struct {
	Title   string `json:"title" binding:"required"`
	Content string `json:"content"`
	Order   int    `json:"order"`
}

// Enrollment doubles as the learner's course progress record.
type Enrollment struct {
	ID               string            `bson:"_id,omitempty" json:"id"`
	CourseID         string            `bson:"course_id" json:"course_id"`
	UserID           string            `bson:"user_id" json:"user_id"`
	CompletedLessons []string          `bson:"completed_lessons" json:"completed_lessons"`
	Points           int               `bson:"points" json:"points"`
	// LessonCredits maps a completed lesson to the submission that credited it.
	LessonCredits    map[string]string `bson:"lesson_credits,omitempty" json:"-"`
	EnrolledAt       time.Time         `bson:"enrolled_at" json:"enrolled_at"`
	UpdatedAt        time.Time         `bson:"updated_at" json:"updated_at"`
}

type CourseProgress struct {
	CourseID         string   `json:"course_id"`
	TotalLessons     int      `json:"total_lessons"`
	CompletedLessons []string `json:"completed_lessons"`
	Percentage       float64  `json:"percentage"`
	Points           int      `json:"points"`
}
