package models

// RankedStudent is one leaderboard entry.
type RankedStudent struct {
	Rank       int    `json:"rank"`
	ID         string `json:"id"`
	Name       string `json:"name"`
	Experience int    `json:"experience"`
	Level      int    `json:"level"`
}
