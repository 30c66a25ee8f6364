package engine

import "fmt"

// RulesProfile tags which rule set the match authority should enforce.
// The engine treats it as opaque and only passes it through.
type RulesProfile string

const (
	RulesStandard RulesProfile = "STANDARD"
	RulesLegacy   RulesProfile = "LEGACY"
)

func (p RulesProfile) Valid() bool {
	return p == RulesStandard || p == RulesLegacy
}

// Supported bracket sizes. Participant counts below a size are padded
// with byes; counts above 32 are rejected at registration time.
var bracketSizes = [...]int{8, 16, 32}

// BracketSizeFor returns the smallest supported bracket size >= n.
func BracketSizeFor(n int) (int, error) {
	for _, size := range bracketSizes {
		if n <= size {
			return size, nil
		}
	}
	return 0, fmt.Errorf("no bracket size fits %d participants", n)
}

type PairingState string

const (
	PairingPending  PairingState = "pending"
	PairingRunning  PairingState = "running"
	PairingBye      PairingState = "bye"
	PairingComplete PairingState = "complete"
)

// Pairing is one matchup slot in the bracket. A slot missing a player in
// round 0 is a bye; in later rounds empty players are either unresolved
// placeholders filled in as earlier rounds complete, or walkovers fed by
// an empty slot below.
type Pairing struct {
	MatchID string
	Round   int
	Index   int
	Player1 string
	Player2 string
	Winner  string
	State   PairingState
}

// IsBye reports whether this slot resolves without a match being played.
func (p *Pairing) IsBye() bool {
	return p.State == PairingBye
}

// Bracket is an indexed array-of-rounds. A pairing's next slot is
// arithmetic: winner of Rounds[r][i] feeds Rounds[r+1][i/2], side i%2.
type Bracket struct {
	Size   int
	Rounds [][]Pairing
}

// BuildBracket seeds a single-elimination bracket from the registration
// order. Seeding is purely positional: seed i meets seed size+1-i, so
// when the participant count is below the bracket size the byes land on
// the top seeds and never face each other. Construction is deterministic;
// the same participant order always yields the same bracket.
func BuildBracket(participants []string, minParticipants int) (*Bracket, error) {
	if len(participants) == 0 || len(participants) < minParticipants {
		return nil, ErrTooFewParticipants
	}
	size, err := BracketSizeFor(len(participants))
	if err != nil {
		return nil, err
	}

	rounds := make([][]Pairing, 0, 4)
	for n := size / 2; n >= 1; n /= 2 {
		round := make([]Pairing, n)
		for i := range round {
			round[i] = Pairing{Round: len(rounds), Index: i, State: PairingPending}
		}
		rounds = append(rounds, round)
	}

	b := &Bracket{Size: size, Rounds: rounds}
	for i := 0; i < size/2; i++ {
		p := &b.Rounds[0][i]
		if i < len(participants) {
			p.Player1 = participants[i] // seed i+1
		}
		if opp := size - i; opp <= len(participants) {
			p.Player2 = participants[opp-1] // seed size-i
		} else {
			p.State = PairingBye
		}
	}
	return b, nil
}

// FinalRound is the index of the last round (the final).
func (b *Bracket) FinalRound() int {
	return len(b.Rounds) - 1
}

// Advance records a winner and places them into their next-round slot.
// Called only from the owning TournamentRuntime at round boundaries or
// on match completion; never concurrently.
func (b *Bracket) Advance(round, index int, winner string) {
	p := &b.Rounds[round][index]
	p.Winner = winner
	if p.State != PairingBye {
		p.State = PairingComplete
	}
	if round == b.FinalRound() {
		return
	}
	next := &b.Rounds[round+1][index/2]
	if index%2 == 0 {
		next.Player1 = winner
	} else {
		next.Player2 = winner
	}
}

// RoundResolved reports whether every pairing of the round has resolved.
// A bye slot with no players at all never produces a winner; it counts
// as resolved.
func (b *Bracket) RoundResolved(round int) bool {
	for i := range b.Rounds[round] {
		p := &b.Rounds[round][i]
		if p.State == PairingBye && p.Player1 == "" && p.Player2 == "" {
			continue
		}
		if p.Winner == "" {
			return false
		}
	}
	return true
}
