package engine

import (
	"errors"
	"sync"
	"testing"
	"time"
)

type scriptedMove struct {
	actor  string
	action Action
}

// bestOfThreeWin is a move script where the named player takes two game
// rounds straight. Turn order starts with player1 and the closing pass
// of each round flips the turn, which fixes the shape of both scripts.
func bestOfThreeWin(p1, p2 string, winner string) []scriptedMove {
	if winner == p1 {
		return []scriptedMove{
			{p1, Action{Kind: ActionPlayCard, CardRef: "F"}},
			{p2, Action{Kind: ActionPass}},
			{p1, Action{Kind: ActionPass}},
			{p2, Action{Kind: ActionPass}},
			{p1, Action{Kind: ActionPlayCard, CardRef: "F"}},
			{p2, Action{Kind: ActionPass}},
			{p1, Action{Kind: ActionPass}},
		}
	}
	return []scriptedMove{
		{p1, Action{Kind: ActionPass}},
		{p2, Action{Kind: ActionPlayCard, CardRef: "F"}},
		{p1, Action{Kind: ActionPass}},
		{p2, Action{Kind: ActionPass}},
		{p1, Action{Kind: ActionPass}},
		{p2, Action{Kind: ActionPlayCard, CardRef: "F"}},
		{p1, Action{Kind: ActionPass}},
		{p2, Action{Kind: ActionPass}},
	}
}

// singleRoundWin is the best-of-1 equivalent.
func singleRoundWin(p1, p2 string, winner string) []scriptedMove {
	if winner == p1 {
		return []scriptedMove{
			{p1, Action{Kind: ActionPlayCard, CardRef: "F"}},
			{p2, Action{Kind: ActionPass}},
			{p1, Action{Kind: ActionPass}},
		}
	}
	return []scriptedMove{
		{p1, Action{Kind: ActionPass}},
		{p2, Action{Kind: ActionPlayCard, CardRef: "F"}},
		{p1, Action{Kind: ActionPass}},
		{p2, Action{Kind: ActionPass}},
	}
}

func startTestMatch(bestOf int, onComplete func(MatchResult)) *MatchRuntime {
	return StartMatch(MatchConfig{
		MatchID:      "m1",
		TournamentID: "t1",
		Round:        0,
		Index:        0,
		Player1:      "alice",
		Player2:      "bob",
		BestOf:       bestOf,
		Authority:    NewCardAuthority(RulesStandard, "alice", "bob"),
		OnComplete:   onComplete,
	})
}

func TestMatchRejectsOutsider(t *testing.T) {
	rt := startTestMatch(3, nil)

	err := rt.ApplyMove("mallory", Action{Kind: ActionPass})
	if !errors.Is(err, ErrNotAParticipant) {
		t.Fatalf("outsider move: got %v, want ErrNotAParticipant", err)
	}
	if err := rt.Forfeit("mallory"); !errors.Is(err, ErrNotAParticipant) {
		t.Fatalf("outsider forfeit: got %v, want ErrNotAParticipant", err)
	}
	if snap := rt.Snapshot(); snap.MoveCount != 0 {
		t.Fatalf("rejected actions were logged, move count %d", snap.MoveCount)
	}
}

func TestMatchRejectedMoveNotLogged(t *testing.T) {
	rt := startTestMatch(3, nil)

	if err := rt.ApplyMove("bob", Action{Kind: ActionPass}); !errors.Is(err, ErrOutOfTurn) {
		t.Fatalf("out-of-turn move: got %v, want ErrOutOfTurn", err)
	}
	if err := rt.ApplyMove("alice", Action{Kind: ActionPlayCard}); !errors.Is(err, ErrIllegalMove) {
		t.Fatalf("play without card: got %v, want ErrIllegalMove", err)
	}
	snap := rt.Snapshot()
	if snap.MoveCount != 0 {
		t.Fatalf("move count = %d after only rejected moves", snap.MoveCount)
	}
	if snap.State != MatchRunning {
		t.Fatalf("state = %q, want running", snap.State)
	}
}

func TestMatchCompletesWithGaplessLog(t *testing.T) {
	results := make(chan MatchResult, 1)
	rt := startTestMatch(3, func(res MatchResult) { results <- res })

	script := bestOfThreeWin("alice", "bob", "alice")
	for i, s := range script {
		if err := rt.ApplyMove(s.actor, s.action); err != nil {
			t.Fatalf("move %d (%s %s): %v", i, s.actor, s.action.Kind, err)
		}
	}

	var res MatchResult
	select {
	case res = <-results:
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for completion callback")
	}

	if res.Winner != "alice" || res.Loser != "bob" {
		t.Fatalf("winner/loser = %q/%q, want alice/bob", res.Winner, res.Loser)
	}
	if res.ByForfeit {
		t.Fatal("played-out match reported as forfeit")
	}
	if res.Score["alice"] != 2 || res.Score["bob"] != 0 {
		t.Fatalf("score = %v, want alice 2, bob 0", res.Score)
	}
	if len(res.Moves) != len(script) {
		t.Fatalf("logged %d moves, want %d", len(res.Moves), len(script))
	}
	for i, m := range res.Moves {
		if m.SequenceIndex != i {
			t.Fatalf("move %d has sequence index %d, log is not gapless", i, m.SequenceIndex)
		}
		if m.ActorID != script[i].actor {
			t.Fatalf("move %d actor = %q, want %q", i, m.ActorID, script[i].actor)
		}
	}

	// The runtime is gone; late submissions see completion, not a hang.
	if err := rt.ApplyMove("alice", Action{Kind: ActionPass}); !errors.Is(err, ErrMatchAlreadyComplete) {
		t.Fatalf("post-completion move: got %v, want ErrMatchAlreadyComplete", err)
	}
	if snap := rt.Snapshot(); snap.State != MatchComplete {
		t.Fatalf("post-completion snapshot state = %q, want complete", snap.State)
	}
}

func TestMatchForfeitCreditsOpponent(t *testing.T) {
	results := make(chan MatchResult, 1)
	rt := startTestMatch(3, func(res MatchResult) { results <- res })

	if err := rt.ApplyMove("alice", Action{Kind: ActionPlayCard, CardRef: "F"}); err != nil {
		t.Fatalf("move: %v", err)
	}
	if err := rt.Forfeit("alice"); err != nil {
		t.Fatalf("forfeit: %v", err)
	}

	var res MatchResult
	select {
	case res = <-results:
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for completion callback")
	}
	if res.Winner != "bob" {
		t.Fatalf("winner = %q, want bob", res.Winner)
	}
	if !res.ByForfeit {
		t.Fatal("forfeit not flagged in result")
	}
	// The partial move log survives the forfeit.
	if len(res.Moves) != 1 {
		t.Fatalf("logged %d moves, want 1", len(res.Moves))
	}

	if err := rt.Forfeit("bob"); !errors.Is(err, ErrMatchAlreadyComplete) {
		t.Fatalf("second forfeit: got %v, want ErrMatchAlreadyComplete", err)
	}
}

// Both players hammer the match concurrently. The loop serializes them
// into one total order: every accepted move is logged exactly once and
// every rejection is a turn violation, nothing else.
func TestMatchConcurrentSubmissions(t *testing.T) {
	rt := startTestMatch(3, nil)

	const perPlayer = 20
	var wg sync.WaitGroup
	var mu sync.Mutex
	accepted := 0

	for _, player := range []string{"alice", "bob"} {
		wg.Add(1)
		go func(p string) {
			defer wg.Done()
			for i := 0; i < perPlayer; i++ {
				err := rt.ApplyMove(p, Action{Kind: ActionOther})
				if err == nil {
					mu.Lock()
					accepted++
					mu.Unlock()
					continue
				}
				if !errors.Is(err, ErrOutOfTurn) {
					t.Errorf("unexpected rejection for %s: %v", p, err)
					return
				}
			}
		}(player)
	}
	wg.Wait()

	snap := rt.Snapshot()
	if snap.MoveCount != accepted {
		t.Fatalf("move count = %d, accepted = %d; accepted and logged moves diverged", snap.MoveCount, accepted)
	}
	if snap.State != MatchRunning {
		t.Fatalf("state = %q, want running (OTHER never scores)", snap.State)
	}
}
