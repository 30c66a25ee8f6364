package engine

import (
	"time"
)

type MatchState string

const (
	MatchPending  MatchState = "pending"
	MatchRunning  MatchState = "running"
	MatchComplete MatchState = "complete"
)

// MatchSnapshot is the read-only view handed to spectators and list
// endpoints. It carries no authority over the match.
type MatchSnapshot struct {
	MatchID      string         `json:"match_id"`
	TournamentID string         `json:"tournament_id"`
	Round        int            `json:"round"`
	Player1      string         `json:"player1"`
	Player2      string         `json:"player2"`
	State        MatchState     `json:"state"`
	GameRound    int            `json:"game_round"`
	RoundsWon    map[string]int `json:"rounds_won"`
	MoveCount    int            `json:"move_count"`
	Winner       string         `json:"winner,omitempty"`
	ByForfeit    bool           `json:"by_forfeit,omitempty"`
	StartedAt    time.Time      `json:"started_at"`
}

// MatchResult is the completion record handed to the tournament runtime
// and from there to durable storage, replay log included.
type MatchResult struct {
	MatchID      string
	TournamentID string
	Round        int
	Index        int
	Player1      string
	Player2      string
	Winner       string
	Loser        string
	Score        map[string]int
	ByForfeit    bool
	StartedAt    time.Time
	CompletedAt  time.Time
	Duration     time.Duration
	Moves        []Move
}

type matchCommand struct {
	kind    string
	actorID string
	action  Action
	resp    chan error
	snap    chan MatchSnapshot
	subID   string
	subCh   chan MatchSnapshot
}

// MatchConfig wires one pairing into a live runtime.
type MatchConfig struct {
	MatchID      string
	TournamentID string
	Round        int
	Index        int
	Player1      string
	Player2      string
	BestOf       int
	Authority    Authority
	OnComplete   func(MatchResult)
}

// MatchRuntime holds authority over exactly one running pairing. All
// mutation goes through a single loop goroutine, so concurrent moves
// from the two players serialize into one total order and sequence
// indexes never race. Spectator fan-out happens from the same loop with
// non-blocking sends, so a slow subscriber can never hold the match up.
type MatchRuntime struct {
	id           string
	tournamentID string
	round        int
	index        int
	player1      string
	player2      string
	roundsToWin  int
	authority    Authority
	onComplete   func(MatchResult)

	state     MatchState
	gameRound int
	roundsWon map[string]int
	winner    string
	byForfeit bool
	startedAt time.Time
	log       *ReplayLog

	subscribers map[string]chan MatchSnapshot
	cmdCh       chan matchCommand
	quitCh      chan struct{}
}

// StartMatch spins up the runtime loop and marks the pairing RUNNING.
func StartMatch(cfg MatchConfig) *MatchRuntime {
	bestOf := cfg.BestOf
	if bestOf < 1 {
		bestOf = 3
	}
	rt := &MatchRuntime{
		id:           cfg.MatchID,
		tournamentID: cfg.TournamentID,
		round:        cfg.Round,
		index:        cfg.Index,
		player1:      cfg.Player1,
		player2:      cfg.Player2,
		roundsToWin:  bestOf/2 + 1,
		authority:    cfg.Authority,
		onComplete:   cfg.OnComplete,
		state:        MatchRunning,
		gameRound:    1,
		roundsWon:    map[string]int{},
		startedAt:    time.Now().UTC(),
		log:          NewReplayLog(cfg.MatchID),
		subscribers:  map[string]chan MatchSnapshot{},
		cmdCh:        make(chan matchCommand, 16),
		quitCh:       make(chan struct{}),
	}
	go rt.loop()
	return rt
}

func (rt *MatchRuntime) ID() string { return rt.id }

// ApplyMove submits one action on behalf of a player. Authority
// rejections come back as-is; nothing is logged for a rejected move.
func (rt *MatchRuntime) ApplyMove(actorID string, action Action) error {
	return rt.do(matchCommand{kind: "move", actorID: actorID, action: action})
}

// Forfeit force-completes the match with the opponent as winner. This is
// the designed recovery path for disconnects; the session layer calls it,
// the engine never detects liveness itself.
func (rt *MatchRuntime) Forfeit(actorID string) error {
	return rt.do(matchCommand{kind: "forfeit", actorID: actorID})
}

// Snapshot returns the current spectator-safe state.
func (rt *MatchRuntime) Snapshot() MatchSnapshot {
	cmd := matchCommand{kind: "snapshot", snap: make(chan MatchSnapshot, 1), resp: make(chan error, 1)}
	select {
	case rt.cmdCh <- cmd:
	case <-rt.quitCh:
		return rt.finalSnapshot()
	}
	select {
	case s := <-cmd.snap:
		return s
	case <-rt.quitCh:
		return rt.finalSnapshot()
	}
}

func (rt *MatchRuntime) subscribe(subID string) (chan MatchSnapshot, error) {
	ch := make(chan MatchSnapshot, 8)
	if err := rt.do(matchCommand{kind: "subscribe", subID: subID, subCh: ch}); err != nil {
		return nil, err
	}
	return ch, nil
}

func (rt *MatchRuntime) unsubscribe(subID string) {
	_ = rt.do(matchCommand{kind: "unsubscribe", subID: subID})
}

func (rt *MatchRuntime) do(cmd matchCommand) error {
	cmd.resp = make(chan error, 1)
	select {
	case rt.cmdCh <- cmd:
	case <-rt.quitCh:
		return ErrMatchAlreadyComplete
	}
	select {
	case err := <-cmd.resp:
		return err
	case <-rt.quitCh:
		return ErrMatchAlreadyComplete
	}
}

func (rt *MatchRuntime) loop() {
	for {
		select {
		case cmd := <-rt.cmdCh:
			rt.handleCommand(cmd)
			if rt.state == MatchComplete {
				rt.shutdown()
				return
			}
		case <-rt.quitCh:
			return
		}
	}
}

func (rt *MatchRuntime) handleCommand(cmd matchCommand) {
	switch cmd.kind {
	case "move":
		cmd.resp <- rt.handleMove(cmd.actorID, cmd.action)
	case "forfeit":
		cmd.resp <- rt.handleForfeit(cmd.actorID)
	case "snapshot":
		cmd.snap <- rt.snapshotLocked()
		cmd.resp <- nil
	case "subscribe":
		rt.subscribers[cmd.subID] = cmd.subCh
		// Seed the new subscriber with the current state right away.
		cmd.subCh <- rt.snapshotLocked()
		cmd.resp <- nil
	case "unsubscribe":
		if ch, ok := rt.subscribers[cmd.subID]; ok {
			delete(rt.subscribers, cmd.subID)
			close(ch)
		}
		cmd.resp <- nil
	default:
		cmd.resp <- nil
	}
}

func (rt *MatchRuntime) handleMove(actorID string, action Action) error {
	if rt.state != MatchRunning {
		return ErrMatchAlreadyComplete
	}
	if actorID != rt.player1 && actorID != rt.player2 {
		return ErrNotAParticipant
	}

	verdict, err := rt.authority.Apply(actorID, action)
	if err != nil {
		return err
	}

	rt.log.Append(actorID, action, verdict.GameRound)
	rt.gameRound = verdict.GameRound
	if verdict.RoundWinner != "" {
		rt.roundsWon[verdict.RoundWinner]++
		if rt.roundsWon[verdict.RoundWinner] >= rt.roundsToWin {
			rt.completeLocked(verdict.RoundWinner, false)
		}
	}
	rt.broadcastLocked()
	return nil
}

func (rt *MatchRuntime) handleForfeit(actorID string) error {
	if rt.state != MatchRunning {
		return ErrMatchAlreadyComplete
	}
	switch actorID {
	case rt.player1:
		rt.completeLocked(rt.player2, true)
	case rt.player2:
		rt.completeLocked(rt.player1, true)
	default:
		return ErrNotAParticipant
	}
	rt.broadcastLocked()
	return nil
}

// completeLocked transitions to COMPLETE exactly once and seals the log.
func (rt *MatchRuntime) completeLocked(winner string, byForfeit bool) {
	rt.state = MatchComplete
	rt.winner = winner
	rt.byForfeit = byForfeit
	rt.log.Seal()
}

// shutdown runs after the completing command has been answered: final
// snapshot to every subscriber, channels closed, result dispatched.
func (rt *MatchRuntime) shutdown() {
	final := rt.snapshotLocked()
	for id, ch := range rt.subscribers {
		select {
		case ch <- final:
		default:
		}
		close(ch)
		delete(rt.subscribers, id)
	}

	res := rt.resultLocked()
	close(rt.quitCh)
	if rt.onComplete != nil {
		go rt.onComplete(res)
	}
}

func (rt *MatchRuntime) resultLocked() MatchResult {
	completedAt := time.Now().UTC()
	loser := rt.player1
	if rt.winner == rt.player1 {
		loser = rt.player2
	}
	score := map[string]int{}
	for k, v := range rt.roundsWon {
		score[k] = v
	}
	return MatchResult{
		MatchID:      rt.id,
		TournamentID: rt.tournamentID,
		Round:        rt.round,
		Index:        rt.index,
		Player1:      rt.player1,
		Player2:      rt.player2,
		Winner:       rt.winner,
		Loser:        loser,
		Score:        score,
		ByForfeit:    rt.byForfeit,
		StartedAt:    rt.startedAt,
		CompletedAt:  completedAt,
		Duration:     completedAt.Sub(rt.startedAt),
		Moves:        rt.log.Moves(),
	}
}

func (rt *MatchRuntime) snapshotLocked() MatchSnapshot {
	won := map[string]int{}
	for k, v := range rt.roundsWon {
		won[k] = v
	}
	return MatchSnapshot{
		MatchID:      rt.id,
		TournamentID: rt.tournamentID,
		Round:        rt.round,
		Player1:      rt.player1,
		Player2:      rt.player2,
		State:        rt.state,
		GameRound:    rt.gameRound,
		RoundsWon:    won,
		MoveCount:    rt.log.Len(),
		Winner:       rt.winner,
		ByForfeit:    rt.byForfeit,
		StartedAt:    rt.startedAt,
	}
}

// finalSnapshot serves reads that arrive after the loop has exited. The
// loop only exits once state is COMPLETE, so these fields are frozen.
func (rt *MatchRuntime) finalSnapshot() MatchSnapshot {
	return rt.snapshotLocked()
}

// broadcastLocked fans the current state out to subscribers without
// blocking; a full channel drops the snapshot rather than back-pressuring
// the match.
func (rt *MatchRuntime) broadcastLocked() {
	if len(rt.subscribers) == 0 {
		return
	}
	snap := rt.snapshotLocked()
	for _, ch := range rt.subscribers {
		select {
		case ch <- snap:
		default:
		}
	}
}
