package repository

import (
	"context"
	"time"

	"learnsphere/internal/models"

	"github.com/pkg/errors"
	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
)

type EnrollmentRepository struct {
	Col *mongo.Collection
}

func NewEnrollmentRepository(db *mongo.Database) *EnrollmentRepository {
	return &EnrollmentRepository{Col: db.Collection(enrollmentsCollection)}
}

func (r *EnrollmentRepository) Create(ctx context.Context, e *models.Enrollment) error {
	if e.ID == "" {
		e.ID = newID()
	}
	if e.CompletedLessons == nil {
		e.CompletedLessons = []string{}
	}
	now := time.Now()
	e.EnrolledAt, e.UpdatedAt = now, now
	_, err := r.Col.InsertOne(ctx, e)
	return translate(err, "insert enrollment")
}

func (r *EnrollmentRepository) Find(ctx context.Context, courseID, userID string) (*models.Enrollment, error) {
	var e models.Enrollment
	if err := r.Col.FindOne(ctx, bson.M{"course_id": courseID, "user_id": userID}).Decode(&e); err != nil {
		return nil, translate(err, "find enrollment")
	}
	return &e, nil
}

// CompleteLesson marks a lesson done and credits points on behalf of a
// submission. It reports true when that submission holds the lesson's
// credit, including when an earlier call with the same submission already
// made it, so the call can be repeated after a partial failure.
func (r *EnrollmentRepository) CompleteLesson(ctx context.Context, courseID, userID, lessonID, submissionID string, points int) (bool, error) {
	creditKey := "lesson_credits." + lessonID
	filter := bson.M{
		"course_id":         courseID,
		"user_id":           userID,
		"completed_lessons": bson.M{"$ne": lessonID},
	}
	res, err := r.Col.UpdateOne(ctx, filter, bson.M{
		"$addToSet": bson.M{"completed_lessons": lessonID},
		"$inc":      bson.M{"points": points},
		"$set":      bson.M{creditKey: submissionID, "updated_at": time.Now()},
	})
	if err != nil {
		return false, errors.Wrap(err, "complete lesson")
	}
	if res.ModifiedCount > 0 {
		return true, nil
	}

	n, err := r.Col.CountDocuments(ctx, bson.M{
		"course_id": courseID,
		"user_id":   userID,
		creditKey:   submissionID,
	}, options.Count().SetLimit(1))
	if err != nil {
		return false, errors.Wrap(err, "check lesson credit")
	}
	return n > 0, nil
}

func (r *EnrollmentRepository) ListByUser(ctx context.Context, userID string) ([]models.Enrollment, error) {
	cur, err := r.Col.Find(ctx, bson.M{"user_id": userID},
		options.Find().SetSort(bson.D{{Key: "updated_at", Value: -1}}))
	if err != nil {
		return nil, errors.Wrap(err, "list enrollments")
	}
	enrollments := []models.Enrollment{}
	if err := cur.All(ctx, &enrollments); err != nil {
		return nil, errors.Wrap(err, "decode enrollments")
	}
	return enrollments, nil
}

func (r *EnrollmentRepository) DeleteByCourse(ctx context.Context, courseID string) error {
	_, err := r.Col.DeleteMany(ctx, bson.M{"course_id": courseID})
	return errors.Wrap(err, "delete course enrollments")
}
