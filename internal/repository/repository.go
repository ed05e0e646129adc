package repository

import (
	"context"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
)

var (
	ErrNotFound  = errors.New("document not found")
	ErrDuplicate = errors.New("document already exists")
	ErrConflict  = errors.New("concurrent update, retries exhausted")
)

const (
	usersCollection       = "users"
	coursesCollection     = "courses"
	lessonsCollection     = "lessons"
	quizzesCollection     = "quizzes"
	attemptsCollection    = "attempts"
	enrollmentsCollection = "enrollments"
	reviewsCollection     = "reviews"
	filesCollection       = "files"
	countersCollection    = "attempt_counters"
)

func newID() string {
	return bson.NewObjectID().Hex()
}

// translate maps driver errors onto the package sentinels and attaches op.
func translate(err error, op string) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, mongo.ErrNoDocuments):
		return errors.Wrap(ErrNotFound, op)
	case mongo.IsDuplicateKeyError(err):
		return errors.Wrap(ErrDuplicate, op)
	default:
		return errors.Wrap(err, op)
	}
}

type index struct {
	collection string
	keys       bson.D
	unique     bool
	// partial limits a unique index to the matching documents.
	partial    bson.M
}

var indexes = []index{
	{usersCollection, bson.D{{Key: "email", Value: 1}}, true, nil},
	{usersCollection, bson.D{{Key: "points", Value: -1}}, false, nil},
	{coursesCollection, bson.D{{Key: "published", Value: 1}, {Key: "created_at", Value: -1}}, false, nil},
	{coursesCollection, bson.D{{Key: "instructor_id", Value: 1}}, false, nil},
	{lessonsCollection, bson.D{{Key: "course_id", Value: 1}, {Key: "order", Value: 1}}, false, nil},
	{quizzesCollection, bson.D{{Key: "lesson_id", Value: 1}}, false, nil},
	{attemptsCollection, bson.D{{Key: "submission_id", Value: 1}}, true, nil},
	{attemptsCollection, bson.D{{Key: "user_id", Value: 1}, {Key: "quiz_id", Value: 1}, {Key: "submitted_at", Value: -1}}, false, nil},
	// a retake after a pass reuses the pass's number, so only failures are unique
	{attemptsCollection, bson.D{{Key: "user_id", Value: 1}, {Key: "quiz_id", Value: 1}, {Key: "attempt_number", Value: 1}}, true, bson.M{"passed": false}},
	{enrollmentsCollection, bson.D{{Key: "course_id", Value: 1}, {Key: "user_id", Value: 1}}, true, nil},
	{reviewsCollection, bson.D{{Key: "course_id", Value: 1}, {Key: "user_id", Value: 1}}, true, nil},
	{filesCollection, bson.D{{Key: "lesson_id", Value: 1}}, false, nil},
}

// EnsureIndexes creates the indexes every repository relies on, including
// the unique ones that enforce one review per learner and idempotent
// attempt submission.
func EnsureIndexes(ctx context.Context, db *mongo.Database) error {
	for _, idx := range indexes {
		model := mongo.IndexModel{Keys: idx.keys}
		if idx.unique {
			opts := options.Index().SetUnique(true)
			if idx.partial != nil {
				opts.SetPartialFilterExpression(idx.partial)
			}
			model.Options = opts
		}
		name, err := db.Collection(idx.collection).Indexes().CreateOne(ctx, model)
		if err != nil {
			return errors.Wrapf(err, "create index on %s", idx.collection)
		}
		log.Debugf("Index %s.%s ready", idx.collection, name)
	}
	return nil
}
