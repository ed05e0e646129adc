package models

import "time"

// ProctoringSummary is the set of client-observed counters attached to an
// attempt at submission. Nothing here is verified server side.
type ProctoringSummary struct {
	TabSwitches     int  `bson:"tab_switches" json:"tabSwitches"`
	FullScreenExits int  `bson:"full_screen_exits" json:"fullScreenExits"`
	WebcamEnabled   bool `bson:"webcam_enabled" json:"webcamEnabled"`
}

type Attempt struct {
	ID            string            `bson:"_id,omitempty" json:"id"`
	SubmissionID  string            `bson:"submission_id" json:"submission_id"`
	QuizID        string            `bson:"quiz_id" json:"quiz_id"`
	CourseID      string            `bson:"course_id" json:"course_id"`
	LessonID      string            `bson:"lesson_id" json:"lesson_id"`
	UserID        string            `bson:"user_id" json:"user_id"`
	AttemptNumber int               `bson:"attempt_number" json:"attempt_number"`
	Answers       []int             `bson:"answers" json:"answers"`
	Score         int               `bson:"score" json:"score"`
	Total         int               `bson:"total" json:"total"`
	Passed        bool              `bson:"passed" json:"passed"`
	PointsAwarded int               `bson:"points_awarded" json:"points_awarded"`
	Proctoring    ProctoringSummary `bson:"proctoring" json:"proctoring"`
	StartedAt     time.Time         `bson:"started_at" json:"started_at"`
	SubmittedAt   time.Time         `bson:"submitted_at" json:"submitted_at"`
}

// SubmitRequest is a one-shot submission. SubmissionID is chosen by the
// client so a retried request is recognised.
type SubmitRequest struct {
	SubmissionID string            `json:"submission_id"`
	Answers      []int             `json:"answers" binding:"required"`
	Proctoring   ProctoringSummary `json:"proctoring"`
	StartedAt    time.Time         `json:"started_at"`
}

type AnswerRequest struct {
	Option *int `json:"option" binding:"required"`
}
