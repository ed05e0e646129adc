package models

type LeaderboardEntry struct {
	Rank   int    `json:"rank"`
	UserID string `json:"user_id"`
	Name   string `json:"name,omitempty"`
	Points int    `json:"points"`
}
