package repository

import (
	"context"
	"time"

	"learnsphere/internal/models"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
)

type ReviewRepository struct {
	Col          *mongo.Collection
	courses      *CourseRepository
	client       *mongo.Client
	transactions bool
}

// NewReviewRepository needs the client to run the insert and the rating
// update in one transaction. Transactions require a replica set; with
// transactions disabled the two writes run back to back.
func NewReviewRepository(db *mongo.Database, courses *CourseRepository, transactions bool) *ReviewRepository {
	return &ReviewRepository{
		Col:          db.Collection(reviewsCollection),
		courses:      courses,
		client:       db.Client(),
		transactions: transactions,
	}
}

// Submit stores the review and folds its rating into the course aggregate.
func (r *ReviewRepository) Submit(ctx context.Context, review *models.Review) (*models.RatingAggregate, error) {
	if review.ID == "" {
		review.ID = newID()
	}
	review.CreatedAt = time.Now()

	write := func(ctx context.Context) (*models.RatingAggregate, error) {
		if _, err := r.Col.InsertOne(ctx, review); err != nil {
			return nil, translate(err, "insert review")
		}
		return r.courses.ApplyRating(ctx, review.CourseID, review.Rating)
	}

	if !r.transactions {
		agg, err := write(ctx)
		if err != nil && !errors.Is(err, ErrDuplicate) {
			// keep the unique index meaningful: drop the orphan review
			if _, delErr := r.Col.DeleteOne(ctx, bson.M{"_id": review.ID}); delErr != nil {
				log.Errorf("Error removing review %s after failed rating update: %v", review.ID, delErr)
			}
		}
		return agg, err
	}

	sess, err := r.client.StartSession()
	if err != nil {
		return nil, errors.Wrap(err, "start session")
	}
	defer sess.EndSession(ctx)

	result, err := sess.WithTransaction(ctx, func(ctx context.Context) (any, error) {
		return write(ctx)
	})
	if err != nil {
		return nil, err
	}
	return result.(*models.RatingAggregate), nil
}

func (r *ReviewRepository) ListByCourse(ctx context.Context, courseID string, limit int64) ([]models.Review, error) {
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}})
	if limit > 0 {
		opts.SetLimit(limit)
	}
	cur, err := r.Col.Find(ctx, bson.M{"course_id": courseID}, opts)
	if err != nil {
		return nil, errors.Wrap(err, "list reviews")
	}
	reviews := []models.Review{}
	if err := cur.All(ctx, &reviews); err != nil {
		return nil, errors.Wrap(err, "decode reviews")
	}
	return reviews, nil
}

func (r *ReviewRepository) DeleteByCourse(ctx context.Context, courseID string) error {
	_, err := r.Col.DeleteMany(ctx, bson.M{"course_id": courseID})
	return errors.Wrap(err, "delete course reviews")
}
