package repository

import (
	"context"
	"time"

	"learnsphere/internal/models"

	"github.com/pkg/errors"
	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
)

type QuizRepository struct {
	Col *mongo.Collection
}

func NewQuizRepository(db *mongo.Database) *QuizRepository {
	return &QuizRepository{Col: db.Collection(quizzesCollection)}
}

func (r *QuizRepository) Create(ctx context.Context, quiz *models.Quiz) error {
	if quiz.ID == "" {
		quiz.ID = newID()
	}
	now := time.Now()
	quiz.CreatedAt, quiz.UpdatedAt = now, now
	_, err := r.Col.InsertOne(ctx, quiz)
	return translate(err, "insert quiz")
}

func (r *QuizRepository) FindByID(ctx context.Context, id string) (*models.Quiz, error) {
	var quiz models.Quiz
	if err := r.Col.FindOne(ctx, bson.M{"_id": id}).Decode(&quiz); err != nil {
		return nil, translate(err, "find quiz")
	}
	return &quiz, nil
}

// Replace stores the whole quiz document; questions and reward table are
// always written together so the correct indices stay consistent.
func (r *QuizRepository) Replace(ctx context.Context, quiz *models.Quiz) error {
	quiz.UpdatedAt = time.Now()
	res, err := r.Col.ReplaceOne(ctx, bson.M{"_id": quiz.ID}, quiz)
	if err != nil {
		return errors.Wrap(err, "replace quiz")
	}
	if res.MatchedCount == 0 {
		return errors.Wrap(ErrNotFound, "replace quiz")
	}
	return nil
}

func (r *QuizRepository) DeleteByCourse(ctx context.Context, courseID string) error {
	_, err := r.Col.DeleteMany(ctx, bson.M{"course_id": courseID})
	return errors.Wrap(err, "delete course quizzes")
}
