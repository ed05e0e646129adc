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

type CourseRepository struct {
	Col *mongo.Collection
}

func NewCourseRepository(db *mongo.Database) *CourseRepository {
	return &CourseRepository{Col: db.Collection(coursesCollection)}
}

func (r *CourseRepository) Create(ctx context.Context, course *models.Course) error {
	if course.ID == "" {
		course.ID = newID()
	}
	now := time.Now()
	course.CreatedAt, course.UpdatedAt = now, now
	_, err := r.Col.InsertOne(ctx, course)
	return translate(err, "insert course")
}

func (r *CourseRepository) FindByID(ctx context.Context, id string) (*models.Course, error) {
	var course models.Course
	if err := r.Col.FindOne(ctx, bson.M{"_id": id}).Decode(&course); err != nil {
		return nil, translate(err, "find course")
	}
	return &course, nil
}

// ListPublished pages through published courses, newest first.
func (r *CourseRepository) ListPublished(ctx context.Context, skip, limit int64) ([]models.Course, int64, error) {
	filter := bson.M{"published": true}
	total, err := r.Col.CountDocuments(ctx, filter)
	if err != nil {
		return nil, 0, errors.Wrap(err, "count courses")
	}

	opts := options.Find().
		SetSort(bson.D{{Key: "created_at", Value: -1}}).
		SetSkip(skip).
		SetLimit(limit)
	cur, err := r.Col.Find(ctx, filter, opts)
	if err != nil {
		return nil, 0, errors.Wrap(err, "list courses")
	}
	courses := []models.Course{}
	if err := cur.All(ctx, &courses); err != nil {
		return nil, 0, errors.Wrap(err, "decode courses")
	}
	return courses, total, nil
}

func (r *CourseRepository) ListByInstructor(ctx context.Context, instructorID string) ([]models.Course, error) {
	cur, err := r.Col.Find(ctx, bson.M{"instructor_id": instructorID},
		options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}}))
	if err != nil {
		return nil, errors.Wrap(err, "list instructor courses")
	}
	courses := []models.Course{}
	if err := cur.All(ctx, &courses); err != nil {
		return nil, errors.Wrap(err, "decode courses")
	}
	return courses, nil
}

func (r *CourseRepository) FindByIDs(ctx context.Context, ids []string) ([]models.Course, error) {
	cur, err := r.Col.Find(ctx, bson.M{"_id": bson.M{"$in": ids}})
	if err != nil {
		return nil, errors.Wrap(err, "find courses")
	}
	courses := []models.Course{}
	if err := cur.All(ctx, &courses); err != nil {
		return nil, errors.Wrap(err, "decode courses")
	}
	return courses, nil
}

// Update applies a partial $set; last write wins.
func (r *CourseRepository) Update(ctx context.Context, id string, update bson.M) error {
	update["updated_at"] = time.Now()
	res, err := r.Col.UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$set": update})
	if err != nil {
		return errors.Wrap(err, "update course")
	}
	if res.MatchedCount == 0 {
		return errors.Wrap(ErrNotFound, "update course")
	}
	return nil
}

func (r *CourseRepository) Delete(ctx context.Context, id string) error {
	res, err := r.Col.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return errors.Wrap(err, "delete course")
	}
	if res.DeletedCount == 0 {
		return errors.Wrap(ErrNotFound, "delete course")
	}
	return nil
}

func (r *CourseRepository) IncrementEnrollment(ctx context.Context, id string) error {
	_, err := r.Col.UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$inc": bson.M{"enrollment_count": 1}})
	return errors.Wrap(err, "increment enrollment count")
}

// ApplyRating folds one rating into the course aggregate in a single
// server-side update, so concurrent reviews never overwrite each other.
func (r *CourseRepository) ApplyRating(ctx context.Context, id string, rating int) (*models.RatingAggregate, error) {
	pipeline := ratingPipeline(rating, time.Now())
	opts := options.FindOneAndUpdate().
		SetReturnDocument(options.After).
		SetProjection(bson.M{"rating": 1, "rating_count": 1})

	var agg models.RatingAggregate
	if err := r.Col.FindOneAndUpdate(ctx, bson.M{"_id": id}, pipeline, opts).Decode(&agg); err != nil {
		return nil, translate(err, "apply rating")
	}
	return &agg, nil
}

// ratingPipeline adds one rating to the stored sum and count, then derives
// the average from the updated fields. Missing fields count as zero.
func ratingPipeline(rating int, now time.Time) mongo.Pipeline {
	return mongo.Pipeline{
		{{Key: "$set", Value: bson.M{
			"rating_sum":   bson.M{"$add": bson.A{bson.M{"$ifNull": bson.A{"$rating_sum", 0}}, rating}},
			"rating_count": bson.M{"$add": bson.A{bson.M{"$ifNull": bson.A{"$rating_count", 0}}, 1}},
			"updated_at":   now,
		}}},
		{{Key: "$set", Value: bson.M{
			"rating": bson.M{"$round": bson.A{bson.M{"$divide": bson.A{"$rating_sum", "$rating_count"}}, 2}},
		}}},
	}
}

func (r *CourseRepository) Count(ctx context.Context) (int64, error) {
	n, err := r.Col.CountDocuments(ctx, bson.M{})
	return n, errors.Wrap(err, "count courses")
}
