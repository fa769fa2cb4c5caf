package domain

import (
	"time"

	"github.com/google/uuid"
)

// PlayerRating is the Glicko-2 state of one player together with the
// win/loss record accumulated during a replay.
type PlayerRating struct {
	Rating     float64
	RD         float64
	Volatility float64
	Wins       int
	Losses     int
	// Streak is positive for consecutive wins and negative for consecutive losses.
	Streak int
}

func (p PlayerRating) GamesPlayed() int {
	return p.Wins + p.Losses
}

// RatingSnapshot is a player's rating right after one game and its change
// caused by that game.
type RatingSnapshot struct {
	Rating float64 `json:"rating"`
	Delta  float64 `json:"delta"`
}

// RatingHistory maps game id to player name to snapshot.
type RatingHistory map[string]map[string]RatingSnapshot

type Profile struct {
	ID           uuid.UUID
	Username     string
	Email        string
	RegisteredAt time.Time
	PlayerRating
}

// ProfileRating is one row written back to the profile store after a recomputation.
type ProfileRating struct {
	ProfileID uuid.UUID
	Username  string
	PlayerRating
}

type LeaderboardEntry struct {
	Rank        int    `json:"rank"`
	Player      string `json:"player"`
	Rating      int    `json:"rating"`
	RD          int    `json:"rd"`
	Wins        int    `json:"wins"`
	Losses      int    `json:"losses"`
	Streak      int    `json:"streak"`
	GamesPlayed int    `json:"gamesPlayed"`
	WinRate     int    `json:"winRate"`
}

type HistoryPoint struct {
	GameID   string
	Date     string
	Rating   float64
	Delta    float64
	Opponent string
	Won      bool
}
