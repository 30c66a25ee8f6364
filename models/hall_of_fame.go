package models

import "time"

// HallOfFameEntry is one archived tournament's headline result, written
// by the archive worker. Read-only from then on.
type HallOfFameEntry struct {
	ID             string    `json:"id" gorm:"primaryKey"`
	TournamentID   string    `json:"tournament_id" gorm:"uniqueIndex;not null"`
	TournamentName string    `json:"tournament_name"`
	RulesProfile   string    `json:"rules_profile"`
	BracketSize    int       `json:"bracket_size"`
	ChampionID     string    `json:"champion_id" gorm:"index"`
	RunnerUpID     string    `json:"runner_up_id"`
	PrizePool      int64     `json:"prize_pool"`
	FinishedAt     time.Time `json:"finished_at" gorm:"index"`
	CreatedAt      time.Time `json:"created_at" gorm:"autoCreateTime"`
}

// LeaderboardRow aggregates a player's record across archived
// tournaments; upserted by the archive worker.
type LeaderboardRow struct {
	PlayerID      string    `json:"player_id" gorm:"primaryKey"`
	Titles        int       `json:"titles" gorm:"default:0"`
	FinalsReached int       `json:"finals_reached" gorm:"default:0"`
	MatchWins     int       `json:"match_wins" gorm:"default:0"`
	MatchLosses   int       `json:"match_losses" gorm:"default:0"`
	PrizeWon      int64     `json:"prize_won" gorm:"default:0"`
	UpdatedAt     time.Time `json:"updated_at" gorm:"autoUpdateTime"`
}
