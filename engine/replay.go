package engine

import "time"

type ActionKind string

const (
	ActionPlayCard  ActionKind = "PLAY_CARD"
	ActionPass      ActionKind = "PASS"
	ActionUseLeader ActionKind = "USE_LEADER"
	ActionOther     ActionKind = "OTHER"
)

// Action is one move request as submitted by a player. Legality is the
// authority's business; the engine only sequences and records it.
type Action struct {
	Kind    ActionKind `json:"kind"`
	CardRef string     `json:"card_ref,omitempty"`
}

// Move is one accepted action in a replay log. SequenceIndex is the sole
// ordering key; the timestamp is informational.
type Move struct {
	ActorID       string     `json:"actor_id"`
	Kind          ActionKind `json:"kind"`
	CardRef       string     `json:"card_ref,omitempty"`
	GameRound     int        `json:"game_round"`
	SequenceIndex int        `json:"sequence_index"`
	Timestamp     time.Time  `json:"timestamp"`
}

// ReplayLog is the append-only move history of one match. It is owned by
// the match's runtime loop (single writer, no internal locking) and is
// sealed when the match completes; Append panics after Seal because a
// post-completion append is a bug in the caller, not a runtime condition.
type ReplayLog struct {
	matchID string
	moves   []Move
	sealed  bool
}

func NewReplayLog(matchID string) *ReplayLog {
	return &ReplayLog{matchID: matchID}
}

func (l *ReplayLog) MatchID() string { return l.matchID }

func (l *ReplayLog) Len() int { return len(l.moves) }

// Append records an accepted action with the next sequence index.
func (l *ReplayLog) Append(actorID string, action Action, gameRound int) Move {
	if l.sealed {
		panic("engine: append to sealed replay log")
	}
	m := Move{
		ActorID:       actorID,
		Kind:          action.Kind,
		CardRef:       action.CardRef,
		GameRound:     gameRound,
		SequenceIndex: len(l.moves),
		Timestamp:     time.Now().UTC(),
	}
	l.moves = append(l.moves, m)
	return m
}

func (l *ReplayLog) Seal() { l.sealed = true }

// Moves returns a copy of the log in sequence order.
func (l *ReplayLog) Moves() []Move {
	out := make([]Move, len(l.moves))
	copy(out, l.moves)
	return out
}

// ReplayOutcome steps through a finished log against a fresh authority
// and returns the winner and rounds-won score it reproduces. Given the
// same moves the result is identical to the live match (round-trip
// determinism); a move the fresh authority rejects means the log or the
// authority implementation has diverged.
func ReplayOutcome(moves []Move, authority Authority, roundsToWin int) (string, map[string]int, error) {
	score := map[string]int{}
	for _, m := range moves {
		verdict, err := authority.Apply(m.ActorID, Action{Kind: m.Kind, CardRef: m.CardRef})
		if err != nil {
			return "", nil, err
		}
		if verdict.RoundWinner != "" {
			score[verdict.RoundWinner]++
			if score[verdict.RoundWinner] >= roundsToWin {
				return verdict.RoundWinner, score, nil
			}
		}
	}
	return "", score, nil
}
