package engine

import (
	"time"

	"github.com/google/uuid"
)

type TournamentState string

const (
	StateRegistration    TournamentState = "registration"
	StateBracketReady    TournamentState = "bracket_ready"
	StateRoundInProgress TournamentState = "round_in_progress"
	StateFinished        TournamentState = "finished"
	StateArchived        TournamentState = "archived"
	StateCancelled       TournamentState = "cancelled"
)

// Hooks are the engine's outbound edge: persistence and notification
// live behind them. They are invoked from the runtime's own loop, so an
// implementation must not call back into the same runtime.
type Hooks struct {
	OnBracketReady  func(snapshot TournamentSnapshot)
	OnRoundStarted  func(tournamentID string, round int, pairings []Pairing)
	OnMatchComplete func(MatchResult)
	OnFinished      func(TournamentResult)
	OnCancelled     func(TournamentSnapshot)
}

// PrizeAward is one share of the locked prize pool.
type PrizeAward struct {
	PlayerID string `json:"player_id"`
	Place    int    `json:"place"`
	Amount   int64  `json:"amount"`
}

type TournamentResult struct {
	TournamentID string
	Name         string
	Champion     string
	RunnerUp     string
	PrizePool    int64
	Awards       []PrizeAward
	FinishedAt   time.Time
}

// TournamentSnapshot is the list/detail view of a tournament.
type TournamentSnapshot struct {
	ID              string          `json:"id"`
	Name            string          `json:"name"`
	Profile         RulesProfile    `json:"rules_profile"`
	State           TournamentState `json:"state"`
	CurrentRound    int             `json:"current_round"`
	Participants    []string        `json:"participants"`
	MaxParticipants int             `json:"max_participants"`
	EntryFee        int64           `json:"entry_fee"`
	PrizePool       int64           `json:"prize_pool"`
	ScheduledStart  time.Time       `json:"scheduled_start"`
	Bracket         *Bracket        `json:"bracket,omitempty"`
}

// TournamentConfig describes one tournament instance.
type TournamentConfig struct {
	ID              string
	Name            string
	Profile         RulesProfile
	MaxParticipants int
	MinParticipants int
	EntryFee        int64
	BestOf          int
	// PrizeSplit holds fractional shares for the top finishers in
	// placement order (champion first). Configuration input, never a
	// hardcoded constant in the engine.
	PrizeSplit     []float64
	ScheduledStart time.Time
	NewAuthority   AuthorityFactory
	Registry       *Registry
	Hooks          Hooks
}

type tournamentCommand struct {
	kind     string
	playerID string
	resp     chan error
	snap     chan TournamentSnapshot
	result   MatchResult
}

// TournamentRuntime owns one tournament's lifecycle. Like MatchRuntime
// it is a single loop goroutine: registration, close-of-registration and
// round advancement all serialize through it, which makes registration
// close a barrier (a racing register is either fully admitted or
// rejected) and makes round advancement a join over the round's match
// completions rather than a shared counter.
type TournamentRuntime struct {
	cfg TournamentConfig

	state        TournamentState
	participants []string
	seen         map[string]bool
	prizePool    int64
	bracket      *Bracket
	currentRound int
	outstanding  int

	cmdCh  chan tournamentCommand
	quitCh chan struct{}
}

// NewTournament creates the runtime in REGISTRATION and starts its loop.
func NewTournament(cfg TournamentConfig) *TournamentRuntime {
	if cfg.MinParticipants < 2 {
		cfg.MinParticipants = 2
	}
	if cfg.NewAuthority == nil {
		cfg.NewAuthority = NewCardAuthority
	}
	rt := &TournamentRuntime{
		cfg:    cfg,
		state:  StateRegistration,
		seen:   map[string]bool{},
		cmdCh:  make(chan tournamentCommand, 32),
		quitCh: make(chan struct{}),
	}
	go rt.loop()
	return rt
}

func (rt *TournamentRuntime) ID() string { return rt.cfg.ID }

// Register admits a player while the registration window is open.
func (rt *TournamentRuntime) Register(playerID string) error {
	return rt.do(tournamentCommand{kind: "register", playerID: playerID})
}

// CloseRegistration locks the prize pool, builds the bracket and starts
// round 1. With fewer than the configured minimum of participants it
// fails and the tournament stays in REGISTRATION.
func (rt *TournamentRuntime) CloseRegistration() error {
	return rt.do(tournamentCommand{kind: "close"})
}

// Cancel aborts a tournament that has not left REGISTRATION. Refunds are
// the caller's concern, signalled through the OnCancelled hook.
func (rt *TournamentRuntime) Cancel() error {
	return rt.do(tournamentCommand{kind: "cancel"})
}

// Snapshot returns the current lifecycle view including the bracket.
func (rt *TournamentRuntime) Snapshot() TournamentSnapshot {
	cmd := tournamentCommand{kind: "snapshot", snap: make(chan TournamentSnapshot, 1), resp: make(chan error, 1)}
	select {
	case rt.cmdCh <- cmd:
	case <-rt.quitCh:
		return rt.snapshotLocked()
	}
	select {
	case s := <-cmd.snap:
		return s
	case <-rt.quitCh:
		return rt.snapshotLocked()
	}
}

// Stop ends the runtime loop. Called once the tournament has reached a
// terminal state and its records are persisted.
func (rt *TournamentRuntime) Stop() {
	select {
	case <-rt.quitCh:
	default:
		close(rt.quitCh)
	}
}

func (rt *TournamentRuntime) do(cmd tournamentCommand) error {
	cmd.resp = make(chan error, 1)
	select {
	case rt.cmdCh <- cmd:
	case <-rt.quitCh:
		return ErrTournamentNotFound
	}
	select {
	case err := <-cmd.resp:
		return err
	case <-rt.quitCh:
		return ErrTournamentNotFound
	}
}

func (rt *TournamentRuntime) loop() {
	for {
		select {
		case cmd := <-rt.cmdCh:
			rt.handleCommand(cmd)
		case <-rt.quitCh:
			return
		}
	}
}

func (rt *TournamentRuntime) handleCommand(cmd tournamentCommand) {
	switch cmd.kind {
	case "register":
		cmd.resp <- rt.handleRegister(cmd.playerID)
	case "close":
		cmd.resp <- rt.handleClose()
	case "cancel":
		cmd.resp <- rt.handleCancel()
	case "snapshot":
		cmd.snap <- rt.snapshotLocked()
		cmd.resp <- nil
	case "matchResult":
		rt.handleMatchResult(cmd.result)
		cmd.resp <- nil
	default:
		cmd.resp <- nil
	}
}

func (rt *TournamentRuntime) handleRegister(playerID string) error {
	if rt.state != StateRegistration {
		return ErrRegistrationClosed
	}
	if rt.seen[playerID] {
		return ErrAlreadyRegistered
	}
	if len(rt.participants) >= rt.cfg.MaxParticipants {
		return ErrTournamentFull
	}
	rt.seen[playerID] = true
	rt.participants = append(rt.participants, playerID)
	rt.prizePool += rt.cfg.EntryFee

	if len(rt.participants) == rt.cfg.MaxParticipants {
		return rt.handleClose()
	}
	return nil
}

func (rt *TournamentRuntime) handleClose() error {
	if rt.state != StateRegistration {
		return ErrRegistrationClosed
	}
	bracket, err := BuildBracket(rt.participants, rt.cfg.MinParticipants)
	if err != nil {
		// Degenerate bracket refused; registration stays open.
		return err
	}
	rt.bracket = bracket
	rt.state = StateBracketReady
	rt.assignMatchIDs()
	if rt.cfg.Hooks.OnBracketReady != nil {
		rt.cfg.Hooks.OnBracketReady(rt.snapshotLocked())
	}
	rt.startRound(0)
	return nil
}

func (rt *TournamentRuntime) handleCancel() error {
	if rt.state != StateRegistration {
		return ErrTournamentNotCancellable
	}
	rt.state = StateCancelled
	if rt.cfg.Hooks.OnCancelled != nil {
		rt.cfg.Hooks.OnCancelled(rt.snapshotLocked())
	}
	return nil
}

// assignMatchIDs gives every pairing slot an id up front so spectators
// and persistence can refer to later-round slots before they resolve.
func (rt *TournamentRuntime) assignMatchIDs() {
	for r := range rt.bracket.Rounds {
		for i := range rt.bracket.Rounds[r] {
			p := &rt.bracket.Rounds[r][i]
			p.MatchID = uuid.NewString()
			if rt.cfg.Registry != nil {
				rt.cfg.Registry.trackPending(p.MatchID, rt.cfg.ID)
			}
		}
	}
}

// startRound instantiates one MatchRuntime per playable pairing of the
// round. Byes and walkovers (a slot fed by an empty slot below) resolve
// immediately without a runtime but still count toward the round barrier.
func (rt *TournamentRuntime) startRound(round int) {
	rt.state = StateRoundInProgress
	rt.currentRound = round
	rt.outstanding = len(rt.bracket.Rounds[round])

	resolvedByes := make([]*Pairing, 0)
	for i := range rt.bracket.Rounds[round] {
		p := &rt.bracket.Rounds[round][i]
		if p.Player1 == "" || p.Player2 == "" {
			p.State = PairingBye
			if rt.cfg.Registry != nil {
				rt.cfg.Registry.markBye(p.MatchID, rt.cfg.ID)
			}
			resolvedByes = append(resolvedByes, p)
			continue
		}
		p.State = PairingRunning
		match := StartMatch(MatchConfig{
			MatchID:      p.MatchID,
			TournamentID: rt.cfg.ID,
			Round:        round,
			Index:        i,
			Player1:      p.Player1,
			Player2:      p.Player2,
			BestOf:       rt.cfg.BestOf,
			Authority:    rt.cfg.NewAuthority(rt.cfg.Profile, p.Player1, p.Player2),
			OnComplete:   rt.submitMatchResult,
		})
		if rt.cfg.Registry != nil {
			rt.cfg.Registry.promoteRunning(match)
		}
	}

	if rt.cfg.Hooks.OnRoundStarted != nil {
		pairings := make([]Pairing, len(rt.bracket.Rounds[round]))
		copy(pairings, rt.bracket.Rounds[round])
		rt.cfg.Hooks.OnRoundStarted(rt.cfg.ID, round, pairings)
	}

	for _, p := range resolvedByes {
		winner := p.Player1
		if winner == "" {
			winner = p.Player2
		}
		rt.resolvePairing(p.Round, p.Index, winner)
	}
}

// submitMatchResult is the MatchRuntime completion callback; it re-enters
// the loop as a command so bracket mutation stays single-writer.
func (rt *TournamentRuntime) submitMatchResult(res MatchResult) {
	_ = rt.do(tournamentCommand{kind: "matchResult", result: res})
}

func (rt *TournamentRuntime) handleMatchResult(res MatchResult) {
	if rt.cfg.Registry != nil {
		rt.cfg.Registry.untrackMatch(res.MatchID)
	}
	if rt.cfg.Hooks.OnMatchComplete != nil {
		rt.cfg.Hooks.OnMatchComplete(res)
	}
	rt.resolvePairing(res.Round, res.Index, res.Winner)
}

// resolvePairing records a winner and, once the whole round has resolved
// (the barrier), either builds the next round or finishes the tournament.
// Round N+1 pairings are never constructed while any round-N pairing is
// still outstanding.
func (rt *TournamentRuntime) resolvePairing(round, index int, winner string) {
	rt.bracket.Advance(round, index, winner)
	rt.outstanding--
	if rt.outstanding > 0 {
		return
	}

	if round == rt.bracket.FinalRound() {
		rt.finish(winner)
		return
	}
	rt.startRound(round + 1)
}

func (rt *TournamentRuntime) finish(champion string) {
	rt.state = StateFinished

	final := rt.bracket.Rounds[rt.bracket.FinalRound()][0]
	runnerUp := final.Player1
	if champion == final.Player1 {
		runnerUp = final.Player2
	}
	if runnerUp == "" {
		// Walkover final; the runner-up is the last player the champion
		// actually beat.
		runnerUp = rt.lastBeatenBy(champion)
	}

	result := TournamentResult{
		TournamentID: rt.cfg.ID,
		Name:         rt.cfg.Name,
		Champion:     champion,
		RunnerUp:     runnerUp,
		PrizePool:    rt.prizePool,
		Awards:       rt.computeAwards(champion),
		FinishedAt:   time.Now().UTC(),
	}
	if rt.cfg.Hooks.OnFinished != nil {
		rt.cfg.Hooks.OnFinished(result)
	}
}

func (rt *TournamentRuntime) lastBeatenBy(champion string) string {
	for r := rt.bracket.FinalRound(); r >= 0; r-- {
		for i := range rt.bracket.Rounds[r] {
			p := rt.bracket.Rounds[r][i]
			if p.State != PairingComplete || p.Winner != champion {
				continue
			}
			if p.Player1 == champion {
				return p.Player2
			}
			return p.Player1
		}
	}
	return ""
}

// computeAwards maps the configured prize split onto finishers in
// placement order: champion, runner-up, then losers of each earlier
// round from the semifinals backwards. Shares beyond the available
// finishers are dropped; amounts round down, remainder stays with the
// pool owner.
func (rt *TournamentRuntime) computeAwards(champion string) []PrizeAward {
	placements := []string{champion}
	for r := rt.bracket.FinalRound(); r >= 0; r-- {
		for i := range rt.bracket.Rounds[r] {
			p := rt.bracket.Rounds[r][i]
			if p.State == PairingBye || p.Winner == "" {
				continue
			}
			loser := p.Player1
			if p.Winner == p.Player1 {
				loser = p.Player2
			}
			if loser == "" {
				continue
			}
			placements = append(placements, loser)
		}
	}

	awards := make([]PrizeAward, 0, len(rt.cfg.PrizeSplit))
	for i, share := range rt.cfg.PrizeSplit {
		if i >= len(placements) {
			break
		}
		awards = append(awards, PrizeAward{
			PlayerID: placements[i],
			Place:    i + 1,
			Amount:   int64(float64(rt.prizePool) * share),
		})
	}
	return awards
}

func (rt *TournamentRuntime) snapshotLocked() TournamentSnapshot {
	participants := make([]string, len(rt.participants))
	copy(participants, rt.participants)

	var bracket *Bracket
	if rt.bracket != nil {
		rounds := make([][]Pairing, len(rt.bracket.Rounds))
		for r := range rt.bracket.Rounds {
			rounds[r] = make([]Pairing, len(rt.bracket.Rounds[r]))
			copy(rounds[r], rt.bracket.Rounds[r])
		}
		bracket = &Bracket{Size: rt.bracket.Size, Rounds: rounds}
	}

	return TournamentSnapshot{
		ID:              rt.cfg.ID,
		Name:            rt.cfg.Name,
		Profile:         rt.cfg.Profile,
		State:           rt.state,
		CurrentRound:    rt.currentRound,
		Participants:    participants,
		MaxParticipants: rt.cfg.MaxParticipants,
		EntryFee:        rt.cfg.EntryFee,
		PrizePool:       rt.prizePool,
		ScheduledStart:  rt.cfg.ScheduledStart,
		Bracket:         bracket,
	}
}
