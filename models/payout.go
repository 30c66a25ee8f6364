package models

import "time"

const (
	PayoutKindPrize  = "prize"
	PayoutKindRefund = "refund"

	PayoutStatusPending = "pending"
	PayoutStatusSent    = "sent"
	PayoutStatusFailed  = "failed"
)

// Payout is one ledger row the payout worker drains to the external
// wallet service: prize shares when a tournament finishes, refunds when
// one is cancelled. The engine never moves money itself.
type Payout struct {
	ID           string `json:"id" gorm:"primaryKey"`
	TournamentID string `json:"tournament_id" gorm:"not null;index"`
	PlayerID     string `json:"player_id" gorm:"not null;index"`
	Kind         string `json:"kind" gorm:"not null"`
	Place        int    `json:"place,omitempty"`
	Amount       int64  `json:"amount" gorm:"not null"`

	Status     string     `json:"status" gorm:"default:'pending';index"`
	FailReason string     `json:"fail_reason,omitempty"`
	SentAt     *time.Time `json:"sent_at,omitempty"`
	CreatedAt  time.Time  `json:"created_at" gorm:"autoCreateTime"`
}
