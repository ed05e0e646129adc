package repository

import (
	"context"

	"learnsphere/internal/models"

	"github.com/pkg/errors"
	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
)

type AttemptRepository struct {
	Col *mongo.Collection
}

func NewAttemptRepository(db *mongo.Database) *AttemptRepository {
	return &AttemptRepository{Col: db.Collection(attemptsCollection)}
}

// Insert stores a scored attempt. A repeated submission id returns
// ErrDuplicate so callers can treat the retry as already persisted.
func (r *AttemptRepository) Insert(ctx context.Context, attempt *models.Attempt) error {
	if attempt.ID == "" {
		attempt.ID = newID()
	}
	_, err := r.Col.InsertOne(ctx, attempt)
	return translate(err, "insert attempt")
}

func (r *AttemptRepository) FindBySubmission(ctx context.Context, submissionID string) (*models.Attempt, error) {
	var attempt models.Attempt
	if err := r.Col.FindOne(ctx, bson.M{"submission_id": submissionID}).Decode(&attempt); err != nil {
		return nil, translate(err, "find attempt by submission")
	}
	return &attempt, nil
}

func (r *AttemptRepository) ListByUserQuiz(ctx context.Context, userID, quizID string) ([]models.Attempt, error) {
	return r.list(ctx, bson.M{"user_id": userID, "quiz_id": quizID}, 0)
}

func (r *AttemptRepository) ListByQuiz(ctx context.Context, quizID string) ([]models.Attempt, error) {
	return r.list(ctx, bson.M{"quiz_id": quizID}, 0)
}

func (r *AttemptRepository) RecentByUser(ctx context.Context, userID string, limit int64) ([]models.Attempt, error) {
	return r.list(ctx, bson.M{"user_id": userID}, limit)
}

func (r *AttemptRepository) list(ctx context.Context, filter bson.M, limit int64) ([]models.Attempt, error) {
	opts := options.Find().SetSort(bson.D{{Key: "submitted_at", Value: -1}})
	if limit > 0 {
		opts.SetLimit(limit)
	}
	cur, err := r.Col.Find(ctx, filter, opts)
	if err != nil {
		return nil, errors.Wrap(err, "list attempts")
	}
	attempts := []models.Attempt{}
	if err := cur.All(ctx, &attempts); err != nil {
		return nil, errors.Wrap(err, "decode attempts")
	}
	return attempts, nil
}
