package repository

import (
	"context"
	"time"

	"learnsphere/internal/models"

	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"
)

const (
	leaderboardKey = "leaderboard:points"
	creditedTTL    = 7 * 24 * time.Hour
)

// LeaderboardRepository ranks learners by total points in a sorted set.
type LeaderboardRepository struct {
	client *redis.Client
}

func NewLeaderboardRepository(client *redis.Client) *LeaderboardRepository {
	return &LeaderboardRepository{client: client}
}

// addOnceScript credits a submission's points and records the submission
// in one server-side step. The marker is written after ZINCRBY, so a failed
// increment leaves nothing behind and a redelivered event can still credit.
var addOnceScript = redis.NewScript(`
if redis.call("EXISTS", KEYS[1]) == 1 then
	return 0
end
redis.call("ZINCRBY", KEYS[2], ARGV[1], ARGV[2])
redis.call("SET", KEYS[1], "1", "EX", ARGV[3])
return 1
`)

func creditedKey(submissionID string) string {
	return "leaderboard:seen:" + submissionID
}

// AddPointsOnce credits points for a submission at most once, so a
// redelivered event does not double count.
func (r *LeaderboardRepository) AddPointsOnce(ctx context.Context, submissionID, userID string, points int) (bool, error) {
	keys := []string{creditedKey(submissionID), leaderboardKey}
	added, err := addOnceScript.Run(ctx, r.client, keys, points, userID, int(creditedTTL.Seconds())).Int()
	if err != nil {
		return false, errors.Wrap(err, "leaderboard add points")
	}
	return added == 1, nil
}

func (r *LeaderboardRepository) Top(ctx context.Context, limit int) ([]models.LeaderboardEntry, error) {
	rows, err := r.client.ZRevRangeWithScores(ctx, leaderboardKey, 0, int64(limit-1)).Result()
	if err != nil {
		return nil, errors.Wrap(err, "leaderboard top")
	}
	entries := make([]models.LeaderboardEntry, 0, len(rows))
	for i, row := range rows {
		userID, _ := row.Member.(string)
		entries = append(entries, models.LeaderboardEntry{
			Rank:   i + 1,
			UserID: userID,
			Points: int(row.Score),
		})
	}
	return entries, nil
}

// Rebuild replaces the sorted set with the given totals.
func (r *LeaderboardRepository) Rebuild(ctx context.Context, totals map[string]int) error {
	_, err := r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, leaderboardKey)
		for userID, points := range totals {
			pipe.ZAdd(ctx, leaderboardKey, redis.Z{Score: float64(points), Member: userID})
		}
		return nil
	})
	return errors.Wrap(err, "leaderboard rebuild")
}
