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

type LessonRepository struct {
	Col *mongo.Collection
}

func NewLessonRepository(db *mongo.Database) *LessonRepository {
	return &LessonRepository{Col: db.Collection(lessonsCollection)}
}

func (r *LessonRepository) Create(ctx context.Context, lesson *models.Lesson) error {
	if lesson.ID == "" {
		lesson.ID = newID()
	}
	if lesson.MaterialKeys == nil {
		lesson.MaterialKeys = []string{}
	}
	now := time.Now()
	lesson.CreatedAt, lesson.UpdatedAt = now, now
	_, err := r.Col.InsertOne(ctx, lesson)
	return translate(err, "insert lesson")
}

func (r *LessonRepository) FindByID(ctx context.Context, id string) (*models.Lesson, error) {
	var lesson models.Lesson
	if err := r.Col.FindOne(ctx, bson.M{"_id": id}).Decode(&lesson); err != nil {
		return nil, translate(err, "find lesson")
	}
	return &lesson, nil
}

func (r *LessonRepository) ListByCourse(ctx context.Context, courseID string) ([]models.Lesson, error) {
	cur, err := r.Col.Find(ctx, bson.M{"course_id": courseID},
		options.Find().SetSort(bson.D{{Key: "order", Value: 1}, {Key: "created_at", Value: 1}}))
	if err != nil {
		return nil, errors.Wrap(err, "list lessons")
	}
	lessons := []models.Lesson{}
	if err := cur.All(ctx, &lessons); err != nil {
		return nil, errors.Wrap(err, "decode lessons")
	}
	return lessons, nil
}

func (r *LessonRepository) CountByCourse(ctx context.Context, courseID string) (int64, error) {
	n, err := r.Col.CountDocuments(ctx, bson.M{"course_id": courseID})
	return n, errors.Wrap(err, "count lessons")
}

func (r *LessonRepository) Update(ctx context.Context, id string, update bson.M) error {
	update["updated_at"] = time.Now()
	res, err := r.Col.UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$set": update})
	if err != nil {
		return errors.Wrap(err, "update lesson")
	}
	if res.MatchedCount == 0 {
		return errors.Wrap(ErrNotFound, "update lesson")
	}
	return nil
}

func (r *LessonRepository) AddMaterial(ctx context.Context, id, key string) error {
	res, err := r.Col.UpdateOne(ctx, bson.M{"_id": id}, bson.M{
		"$addToSet": bson.M{"material_keys": key},
		"$set":      bson.M{"updated_at": time.Now()},
	})
	if err != nil {
		return errors.Wrap(err, "add lesson material")
	}
	if res.MatchedCount == 0 {
		return errors.Wrap(ErrNotFound, "add lesson material")
	}
	return nil
}

func (r *LessonRepository) DeleteByCourse(ctx context.Context, courseID string) (int64, error) {
	res, err := r.Col.DeleteMany(ctx, bson.M{"course_id": courseID})
	if err != nil {
		return 0, errors.Wrap(err, "delete course lessons")
	}
	return res.DeletedCount, nil
}
