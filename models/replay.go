package models

import "time"

// Replay is the durable record of a completed match: summary plus the
// full move log. Immutable once written; the archive worker later
// mirrors the move log to object storage and fills in ArchiveURL.
type Replay struct {
	ID           string `json:"id" gorm:"primaryKey"` // equals the match id
	TournamentID string `json:"tournament_id" gorm:"not null;index"`
	Round        int    `json:"round"`
	Player1ID    string `json:"player1_id"`
	Player2ID    string `json:"player2_id"`
	WinnerID     string `json:"winner_id"`
	Player1Score int    `json:"player1_score"`
	Player2Score int    `json:"player2_score"`
	ByForfeit    bool   `json:"by_forfeit" gorm:"default:false"`
	MoveCount    int    `json:"move_count"`

	StartedAt   time.Time `json:"started_at"`
	CompletedAt time.Time `json:"completed_at"`
	DurationSec int       `json:"duration_sec" gorm:"default:0"`

	ArchiveURL string    `json:"archive_url,omitempty"`
	CreatedAt  time.Time `json:"created_at" gorm:"autoCreateTime"`

	Moves []ReplayMove `json:"moves,omitempty" gorm:"foreignKey:ReplayID"`
}

// ReplayMove is one accepted move. SequenceIndex is the sole ordering
// key: strictly increasing from 0 with no gaps per replay.
type ReplayMove struct {
	ID            string    `json:"id" gorm:"primaryKey"`
	ReplayID      string    `json:"replay_id" gorm:"not null;index"`
	SequenceIndex int       `json:"sequence_index" gorm:"not null"`
	ActorID       string    `json:"actor_id" gorm:"not null"`
	ActionKind    string    `json:"action_kind" gorm:"not null"`
	CardRef       string    `json:"card_ref,omitempty"`
	GameRound     int       `json:"game_round"`
	Timestamp     time.Time `json:"timestamp"`
}
