package engine

// Verdict is the authority's report on an accepted action.
type Verdict struct {
	// GameRound the action belonged to, starting at 1.
	GameRound int
	// RoundWinner is set when the action closed a game round.
	RoundWinner string
}

// Authority is the external rules collaborator that owns card-game
// legality. The engine hands it every submitted action and trusts its
// verdict for scoring; a returned error means the action was rejected
// and nothing may be recorded.
//
// Implementations must be deterministic over the accepted-action
// sequence so sealed replay logs can be stepped through again.
type Authority interface {
	Apply(actorID string, action Action) (Verdict, error)
}

// AuthorityFactory builds a fresh authority for one match. The rules
// profile is an opaque tag; only the authority interprets it.
type AuthorityFactory func(profile RulesProfile, player1, player2 string) Authority

// cardAuthority is the reference authority used when no external rules
// service is wired in. It enforces strict turn alternation starting with
// player1 and scores game rounds by accumulated card weight: a round
// closes when both players pass back to back, and the heavier hand wins.
type cardAuthority struct {
	profile     RulesProfile
	players     [2]string
	turn        int
	gameRound   int
	weight      map[string]int
	leaderUsed  map[string]bool
	passStreak  int
	leaderBonus int
}

// NewCardAuthority returns the built-in deterministic authority.
func NewCardAuthority(profile RulesProfile, player1, player2 string) Authority {
	bonus := 5
	if profile == RulesLegacy {
		bonus = 7
	}
	return &cardAuthority{
		profile:     profile,
		players:     [2]string{player1, player2},
		gameRound:   1,
		weight:      map[string]int{},
		leaderUsed:  map[string]bool{},
		leaderBonus: bonus,
	}
}

func (a *cardAuthority) Apply(actorID string, action Action) (Verdict, error) {
	if actorID != a.players[0] && actorID != a.players[1] {
		return Verdict{}, ErrNotAParticipant
	}
	if actorID != a.players[a.turn] {
		return Verdict{}, ErrOutOfTurn
	}

	verdict := Verdict{GameRound: a.gameRound}
	switch action.Kind {
	case ActionPlayCard:
		if action.CardRef == "" {
			return Verdict{}, ErrIllegalMove
		}
		a.weight[actorID] += cardWeight(action.CardRef)
		a.passStreak = 0
	case ActionUseLeader:
		if a.leaderUsed[actorID] {
			return Verdict{}, ErrIllegalMove
		}
		a.leaderUsed[actorID] = true
		a.weight[actorID] += a.leaderBonus
		a.passStreak = 0
	case ActionPass:
		a.passStreak++
		if a.passStreak >= 2 {
			verdict.RoundWinner = a.roundWinner()
			a.gameRound++
			a.weight = map[string]int{}
			a.passStreak = 0
		}
	case ActionOther:
		// Accepted but scoreless; timers, emotes and the like.
	default:
		return Verdict{}, ErrIllegalMove
	}

	a.turn = 1 - a.turn
	return verdict, nil
}

// roundWinner picks the heavier hand; a dead-even round goes to player1,
// keeping the outcome a pure function of the move sequence.
func (a *cardAuthority) roundWinner() string {
	if a.weight[a.players[1]] > a.weight[a.players[0]] {
		return a.players[1]
	}
	return a.players[0]
}

func cardWeight(ref string) int {
	w := 0
	for _, r := range ref {
		w += int(r)
	}
	return w%13 + 1
}
