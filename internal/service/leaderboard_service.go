package service

import (
	"context"

	"learnsphere/internal/models"

	log "github.com/sirupsen/logrus"
)

const (
	defaultLeaderboardLimit = 10
	maxLeaderboardLimit     = 100
	// rebuildSize caps how many users are copied back into Redis when the
	// sorted set is missing.
	rebuildSize = 1000
)

// LeaderboardService ranks learners by points. Redis holds the ranking;
// Mongo user totals are the source it is rebuilt from.
type LeaderboardService struct {
	board LeaderboardStore
	users UserStore
}

func NewLeaderboardService(board LeaderboardStore, users UserStore) *LeaderboardService {
	return &LeaderboardService{board: board, users: users}
}

func (s *LeaderboardService) Top(ctx context.Context, limit int) ([]models.LeaderboardEntry, error) {
	if limit < 1 {
		limit = defaultLeaderboardLimit
	}
	if limit > maxLeaderboardLimit {
		limit = maxLeaderboardLimit
	}

	entries, err := s.board.Top(ctx, limit)
	if err != nil {
		log.Warnf("Leaderboard read from Redis failed, using Mongo: %v", err)
		return s.fromUsers(ctx, limit, false)
	}
	if len(entries) == 0 {
		return s.fromUsers(ctx, limit, true)
	}
	s.fillNames(ctx, entries)
	return entries, nil
}

// fromUsers ranks straight from user totals and, when asked, repopulates
// the Redis set from them.
func (s *LeaderboardService) fromUsers(ctx context.Context, limit int, rebuild bool) ([]models.LeaderboardEntry, error) {
	size := limit
	if rebuild {
		size = rebuildSize
	}
	users, err := s.users.TopByPoints(ctx, size)
	if err != nil {
		return nil, err
	}

	if rebuild && len(users) > 0 {
		totals := make(map[string]int, len(users))
		for _, u := range users {
			totals[u.ID] = u.Points
		}
		if err := s.board.Rebuild(ctx, totals); err != nil {
			log.Warnf("Leaderboard rebuild failed: %v", err)
		} else {
			log.Printf("Leaderboard rebuilt with %d users", len(totals))
		}
	}

	if len(users) > limit {
		users = users[:limit]
	}
	entries := make([]models.LeaderboardEntry, len(users))
	for i, u := range users {
		entries[i] = models.LeaderboardEntry{Rank: i + 1, UserID: u.ID, Name: u.Name, Points: u.Points}
	}
	return entries, nil
}

func (s *LeaderboardService) fillNames(ctx context.Context, entries []models.LeaderboardEntry) {
	ids := make([]string, len(entries))
	for i, e := range entries {
		ids[i] = e.UserID
	}
	users, err := s.users.FindByIDs(ctx, ids)
	if err != nil {
		log.Warnf("Leaderboard name lookup failed: %v", err)
		return
	}
	for i := range entries {
		if u, ok := users[entries[i].UserID]; ok {
			entries[i].Name = u.Name
		}
	}
}
