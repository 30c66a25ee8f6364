package models

import (
	"time"
)

// Tournament is the persisted record of one single-elimination
// tournament. Live lifecycle state is owned by the engine runtime; rows
// here mirror it at each transition so list/archive queries never touch
// the runtimes.
type Tournament struct {
	ID              string `json:"id" gorm:"primaryKey"`
	Name            string `json:"name" gorm:"not null"`
	Slug            string `json:"slug" gorm:"index"`
	RulesProfile    string `json:"rules_profile" gorm:"not null"`
	MaxParticipants int    `json:"max_participants" gorm:"not null"`
	MinParticipants int    `json:"min_participants" gorm:"default:2"`
	EntryFee        int64  `json:"entry_fee" gorm:"default:0"`
	PrizePool       int64  `json:"prize_pool" gorm:"default:0"`
	BracketSize     int    `json:"bracket_size"`

	// registration → bracket_ready → round_in_progress → finished →
	// archived; cancelled is terminal from registration only.
	State        string `json:"state" gorm:"default:'registration';index"`
	CurrentRound int    `json:"current_round" gorm:"default:0"`
	ChampionID   string `json:"champion_id,omitempty"`
	RunnerUpID   string `json:"runner_up_id,omitempty"`

	ScheduledStart *time.Time `json:"scheduled_start,omitempty" gorm:"index"`
	StartedAt      *time.Time `json:"started_at,omitempty"`
	FinishedAt     *time.Time `json:"finished_at,omitempty"`
	ArchivedAt     *time.Time `json:"archived_at,omitempty"`
	CreatedAt      time.Time  `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt      time.Time  `json:"updated_at" gorm:"autoUpdateTime"`

	// Relationships
	Entries  []TournamentEntry `json:"entries,omitempty" gorm:"foreignKey:TournamentID"`
	Pairings []PairingRecord   `json:"pairings,omitempty" gorm:"foreignKey:TournamentID"`

	// Calculated fields (not stored in DB)
	ParticipantCount int64 `json:"participant_count,omitempty" gorm:"-"`
}

// TournamentEntry is one registered participant. Seed equals the
// registration position (1-based); seeding is purely positional.
type TournamentEntry struct {
	ID           string    `json:"id" gorm:"primaryKey"`
	TournamentID string    `json:"tournament_id" gorm:"not null;index"`
	PlayerID     string    `json:"player_id" gorm:"not null;index"`
	PlayerName   string    `json:"player_name"`
	Seed         int       `json:"seed"`
	JoinedAt     time.Time `json:"joined_at" gorm:"autoCreateTime"`
}

// PairingRecord mirrors one bracket slot. Rows for every round exist as
// soon as the bracket is built; later-round players stay empty until the
// preceding round's barrier releases.
type PairingRecord struct {
	ID           string `json:"id" gorm:"primaryKey"` // match id
	TournamentID string `json:"tournament_id" gorm:"not null;index"`
	Round        int    `json:"round"`
	SlotIndex    int    `json:"slot_index"`
	Player1ID    string `json:"player1_id,omitempty"`
	Player2ID    string `json:"player2_id,omitempty"`
	WinnerID     string `json:"winner_id,omitempty"`

	// pending / running / bye / complete
	State        string `json:"state" gorm:"default:'pending';index"`
	ByForfeit    bool   `json:"by_forfeit" gorm:"default:false"`
	Player1Score int    `json:"player1_score" gorm:"default:0"`
	Player2Score int    `json:"player2_score" gorm:"default:0"`
	ReplayID     string `json:"replay_id,omitempty" gorm:"index"`

	StartedAt   *time.Time `json:"started_at,omitempty"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
	CreatedAt   time.Time  `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt   time.Time  `json:"updated_at" gorm:"autoUpdateTime"`
}

// TournamentMini is the list snapshot consumed by the lobby screen.
type TournamentMini struct {
	ID               string     `json:"id"`
	Name             string     `json:"name"`
	State            string     `json:"state"`
	RulesProfile     string     `json:"rules_profile"`
	MaxParticipants  int        `json:"max_participants"`
	ParticipantCount int64      `json:"participant_count"`
	EntryFee         int64      `json:"entry_fee"`
	PrizePool        int64      `json:"prize_pool"`
	CurrentRound     int        `json:"current_round"`
	ScheduledStart   *time.Time `json:"scheduled_start,omitempty"`
	StartedAt        *time.Time `json:"started_at,omitempty"`
	FinishedAt       *time.Time `json:"finished_at,omitempty"`
	CreatedAt        time.Time  `json:"created_at"`
}
