package repository

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
)

// attemptCounter is one learner's numbering state on one quiz.
type attemptCounter struct {
	ID        string    `bson:"_id"`
	UserID    string    `bson:"user_id"`
	QuizID    string    `bson:"quiz_id"`
	Failed    int       `bson:"failed"`
	Passed    bool      `bson:"passed"`
	UpdatedAt time.Time `bson:"updated_at"`
}

// AttemptCounterRepository hands out attempt numbers. Every number is taken
// with a single FindOneAndUpdate, so concurrent or queued submissions never
// share one.
type AttemptCounterRepository struct {
	Col *mongo.Collection
}

func NewAttemptCounterRepository(db *mongo.Database) *AttemptCounterRepository {
	return &AttemptCounterRepository{Col: db.Collection(countersCollection)}
}

func counterID(userID, quizID string) string {
	return userID + ":" + quizID
}

// Peek returns the number the learner's next attempt would get.
func (r *AttemptCounterRepository) Peek(ctx context.Context, userID, quizID string) (int, bool, error) {
	var c attemptCounter
	err := r.Col.FindOne(ctx, bson.M{"_id": counterID(userID, quizID)}).Decode(&c)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return 1, false, nil
	}
	if err != nil {
		return 0, false, errors.Wrap(err, "peek attempt counter")
	}
	return c.Failed + 1, c.Passed, nil
}

// Reserve numbers a scored attempt. A failure takes the next number; a pass
// takes the current one and marks the quiz passed. passedBefore reports
// whether an earlier attempt had already passed.
func (r *AttemptCounterRepository) Reserve(ctx context.Context, userID, quizID string, passed bool) (number int, passedBefore bool, err error) {
	filter := bson.M{"_id": counterID(userID, quizID)}
	insert := bson.M{"user_id": userID, "quiz_id": quizID}
	now := time.Now()

	if !passed {
		var c attemptCounter
		err := r.Col.FindOneAndUpdate(ctx, filter, bson.M{
			"$inc":         bson.M{"failed": 1},
			"$set":         bson.M{"updated_at": now},
			"$setOnInsert": insert,
		}, options.FindOneAndUpdate().SetUpsert(true).SetReturnDocument(options.After)).Decode(&c)
		if err != nil {
			return 0, false, errors.Wrap(err, "reserve failed attempt")
		}
		return c.Failed, c.Passed, nil
	}

	insert["failed"] = 0
	var before attemptCounter
	err = r.Col.FindOneAndUpdate(ctx, filter, bson.M{
		"$set":         bson.M{"passed": true, "updated_at": now},
		"$setOnInsert": insert,
	}, options.FindOneAndUpdate().SetUpsert(true).SetReturnDocument(options.Before)).Decode(&before)
	if errors.Is(err, mongo.ErrNoDocuments) {
		// first attempt on this quiz
		return 1, false, nil
	}
	if err != nil {
		return 0, false, errors.Wrap(err, "reserve passed attempt")
	}
	return before.Failed + 1, before.Passed, nil
}
