package models

import "time"

type StoredFile struct {
	ID          string    `bson:"_id,omitempty" json:"id"`
	OwnerID     string    `bson:"owner_id" json:"owner_id"`
	LessonID    string    `bson:"lesson_id" json:"lesson_id"`
	Key         string    `bson:"key" json:"key"`
	Bucket      string    `bson:"bucket" json:"bucket"`
	Name        string    `bson:"name" json:"name"`
	ContentType string    `bson:"content_type" json:"content_type"`
	Size        int64     `bson:"size" json:"size"`
	CreatedAt   time.Time `bson:"created_at" json:"created_at"`
}
