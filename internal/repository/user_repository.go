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

type UserRepository struct {
	Col *mongo.Collection
}

func NewUserRepository(db *mongo.Database) *UserRepository {
	return &UserRepository{Col: db.Collection(usersCollection)}
}

func (r *UserRepository) Create(ctx context.Context, user *models.User) error {
	if user.ID == "" {
		user.ID = newID()
	}
	now := time.Now()
	user.CreatedAt, user.UpdatedAt = now, now
	_, err := r.Col.InsertOne(ctx, user)
	return translate(err, "insert user")
}

func (r *UserRepository) FindByID(ctx context.Context, id string) (*models.User, error) {
	var user models.User
	if err := r.Col.FindOne(ctx, bson.M{"_id": id}).Decode(&user); err != nil {
		return nil, translate(err, "find user")
	}
	return &user, nil
}

func (r *UserRepository) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	var user models.User
	if err := r.Col.FindOne(ctx, bson.M{"email": email}).Decode(&user); err != nil {
		return nil, translate(err, "find user by email")
	}
	return &user, nil
}

// FindByIDs returns the users with the given ids keyed by id.
func (r *UserRepository) FindByIDs(ctx context.Context, ids []string) (map[string]*models.User, error) {
	cur, err := r.Col.Find(ctx, bson.M{"_id": bson.M{"$in": ids}})
	if err != nil {
		return nil, errors.Wrap(err, "find users")
	}
	defer cur.Close(ctx)

	users := make(map[string]*models.User, len(ids))
	for cur.Next(ctx) {
		var u models.User
		if err := cur.Decode(&u); err != nil {
			return nil, errors.Wrap(err, "decode user")
		}
		users[u.ID] = &u
	}
	return users, errors.Wrap(cur.Err(), "iterate users")
}

// AddPointsOnce adds a submission's points to the user's total. A
// submission already counted is a no-op.
func (r *UserRepository) AddPointsOnce(ctx context.Context, id, submissionID string, points int) error {
	res, err := r.Col.UpdateOne(ctx, bson.M{"_id": id, "credited_submissions": bson.M{"$ne": submissionID}}, bson.M{
		"$inc":  bson.M{"points": points},
		"$push": bson.M{"credited_submissions": submissionID},
		"$set":  bson.M{"updated_at": time.Now()},
	})
	if err != nil {
		return errors.Wrap(err, "add user points")
	}
	if res.MatchedCount > 0 {
		return nil
	}
	n, err := r.Col.CountDocuments(ctx, bson.M{"_id": id}, options.Count().SetLimit(1))
	if err != nil {
		return errors.Wrap(err, "add user points")
	}
	if n == 0 {
		return errors.Wrap(ErrNotFound, "add user points")
	}
	return nil
}

// TopByPoints is the leaderboard fallback when Redis is unavailable.
func (r *UserRepository) TopByPoints(ctx context.Context, limit int) ([]models.User, error) {
	opts := options.Find().
		SetSort(bson.D{{Key: "points", Value: -1}, {Key: "_id", Value: 1}}).
		SetLimit(int64(limit))
	cur, err := r.Col.Find(ctx, bson.M{"points": bson.M{"$gt": 0}}, opts)
	if err != nil {
		return nil, errors.Wrap(err, "find top users")
	}
	var users []models.User
	if err := cur.All(ctx, &users); err != nil {
		return nil, errors.Wrap(err, "decode top users")
	}
	return users, nil
}

func (r *UserRepository) CountByRole(ctx context.Context) (map[models.Role]int64, error) {
	cur, err := r.Col.Aggregate(ctx, mongo.Pipeline{
		{{Key: "$group", Value: bson.M{"_id": "$role", "count": bson.M{"$sum": 1}}}},
	})
	if err != nil {
		return nil, errors.Wrap(err, "count users by role")
	}
	var rows []struct {
		Role  models.Role `bson:"_id"`
		Count int64       `bson:"count"`
	}
	if err := cur.All(ctx, &rows); err != nil {
		return nil, errors.Wrap(err, "decode role counts")
	}
	counts := make(map[models.Role]int64, len(rows))
	for _, row := range rows {
		counts[row.Role] = row.Count
	}
	return counts, nil
}
