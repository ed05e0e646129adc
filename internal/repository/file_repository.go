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

type FileRepository struct {
	Col *mongo.Collection
}

func NewFileRepository(db *mongo.Database) *FileRepository {
	return &FileRepository{Col: db.Collection(filesCollection)}
}

func (r *FileRepository) Create(ctx context.Context, file *models.StoredFile) error {
	if file.ID == "" {
		file.ID = newID()
	}
	file.CreatedAt = time.Now()
	_, err := r.Col.InsertOne(ctx, file)
	return translate(err, "insert file")
}

func (r *FileRepository) ListByLesson(ctx context.Context, lessonID string) ([]models.StoredFile, error) {
	cur, err := r.Col.Find(ctx, bson.M{"lesson_id": lessonID},
		options.Find().SetSort(bson.D{{Key: "created_at", Value: 1}}))
	if err != nil {
		return nil, errors.Wrap(err, "list files")
	}
	files := []models.StoredFile{}
	if err := cur.All(ctx, &files); err != nil {
		return nil, errors.Wrap(err, "decode files")
	}
	return files, nil
}

func (r *FileRepository) Delete(ctx context.Context, id string) error {
	_, err := r.Col.DeleteOne(ctx, bson.M{"_id": id})
	return errors.Wrap(err, "delete file")
}
