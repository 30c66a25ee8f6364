package engine

import (
	"errors"
	"testing"
	"time"
)

func setupHubTournament(t *testing.T) (*Registry, *SpectatorHub, *TournamentRuntime) {
	t.Helper()
	reg := NewRegistry()
	hub := NewSpectatorHub(reg)
	rt := newTestTournament(t, TournamentConfig{MinParticipants: 2, Registry: reg})
	for _, p := range participants(8) {
		if err := rt.Register(p); err != nil {
			t.Fatalf("register %s: %v", p, err)
		}
	}
	// Registration auto-closed at capacity, round 1 is live.
	waitForRunning(t, reg, 4)
	return reg, hub, rt
}

func waitForRunning(t *testing.T, reg *Registry, n int) []MatchSnapshot {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if snaps := reg.RunningMatches(); len(snaps) >= n {
			return snaps
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("never saw %d running matches", n)
	return nil
}

func TestHubAttachUnknownMatch(t *testing.T) {
	_, hub, _ := setupHubTournament(t)

	if _, _, err := hub.Attach("no-such-match"); !errors.Is(err, ErrMatchNotFound) {
		t.Fatalf("unknown id: got %v, want ErrMatchNotFound", err)
	}
}

func TestHubAttachPendingSlot(t *testing.T) {
	_, hub, rt := setupHubTournament(t)

	snap := rt.Snapshot()
	// A round-2 slot exists and has an id, but no live match yet.
	pendingID := snap.Bracket.Rounds[1][0].MatchID
	if pendingID == "" {
		t.Fatal("round-2 slot has no match id")
	}
	if _, _, err := hub.Attach(pendingID); !errors.Is(err, ErrMatchNotRunning) {
		t.Fatalf("pending slot: got %v, want ErrMatchNotRunning", err)
	}
}

func TestHubAttachByePairing(t *testing.T) {
	reg := NewRegistry()
	hub := NewSpectatorHub(reg)
	rt := newTestTournament(t, TournamentConfig{MinParticipants: 2, Registry: reg})

	// Five entrants in an 8-bracket: seeds 1-3 get round-1 byes.
	for _, p := range participants(5) {
		if err := rt.Register(p); err != nil {
			t.Fatalf("register %s: %v", p, err)
		}
	}
	if err := rt.CloseRegistration(); err != nil {
		t.Fatalf("close: %v", err)
	}

	snap := rt.Snapshot()
	byeID := snap.Bracket.Rounds[0][0].MatchID
	if !snap.Bracket.Rounds[0][0].IsBye() {
		t.Fatal("seed-1 slot is not a bye")
	}
	// A bye never has a runtime, but its id is known: attach reports
	// "not running", never "not found".
	if _, _, err := hub.Attach(byeID); !errors.Is(err, ErrMatchNotRunning) {
		t.Fatalf("bye slot: got %v, want ErrMatchNotRunning", err)
	}
}

func TestHubAttachRunningMatch(t *testing.T) {
	reg, hub, _ := setupHubTournament(t)

	running := reg.RunningMatches()
	subID, ch, err := hub.Attach(running[0].MatchID)
	if err != nil {
		t.Fatalf("attach: %v", err)
	}
	defer hub.Detach(subID)

	// A new subscriber is seeded with the current state right away.
	select {
	case snap := <-ch:
		if snap.MatchID != running[0].MatchID {
			t.Fatalf("seeded snapshot for %q, want %q", snap.MatchID, running[0].MatchID)
		}
		if snap.State != MatchRunning {
			t.Fatalf("seeded state = %q, want running", snap.State)
		}
	case <-time.After(time.Second):
		t.Fatal("no seed snapshot delivered")
	}

	// Every accepted move fans out.
	m := reg.Match(running[0].MatchID)
	if err := m.ApplyMove(running[0].Player1, Action{Kind: ActionOther}); err != nil {
		t.Fatalf("move: %v", err)
	}
	select {
	case snap := <-ch:
		if snap.MoveCount != 1 {
			t.Fatalf("snapshot move count = %d, want 1", snap.MoveCount)
		}
	case <-time.After(time.Second):
		t.Fatal("no snapshot after accepted move")
	}
}

func TestHubStreamClosesOnCompletion(t *testing.T) {
	reg, hub, _ := setupHubTournament(t)

	running := reg.RunningMatches()
	target := running[0]
	subID, ch, err := hub.Attach(target.MatchID)
	if err != nil {
		t.Fatalf("attach: %v", err)
	}
	defer hub.Detach(subID)

	m := reg.Match(target.MatchID)
	playOut(t, m, target.Player1, target.Player2, target.Player1)

	// Drain until the runtime closes the channel; the last delivered
	// snapshot must show completion.
	var last MatchSnapshot
	deadline := time.After(2 * time.Second)
	for {
		select {
		case snap, ok := <-ch:
			if !ok {
				if last.State != MatchComplete {
					t.Fatalf("final snapshot state = %q, want complete", last.State)
				}
				if last.Winner != target.Player1 {
					t.Fatalf("final snapshot winner = %q, want %q", last.Winner, target.Player1)
				}
				return
			}
			last = snap
		case <-deadline:
			t.Fatal("stream never closed after match completion")
		}
	}
}

// A spectator that never drains must not stall the match. Snapshots for
// it are dropped, the channel still closes at the end.
func TestHubSlowSpectatorDoesNotBlock(t *testing.T) {
	reg, hub, _ := setupHubTournament(t)

	running := reg.RunningMatches()
	target := running[0]
	subID, ch, err := hub.Attach(target.MatchID)
	if err != nil {
		t.Fatalf("attach: %v", err)
	}
	defer hub.Detach(subID)

	m := reg.Match(target.MatchID)
	// Far more accepted moves than the subscriber buffer holds.
	for i := 0; i < 40; i++ {
		actor := target.Player1
		if i%2 == 1 {
			actor = target.Player2
		}
		if err := m.ApplyMove(actor, Action{Kind: ActionOther}); err != nil {
			t.Fatalf("move %d: %v", i, err)
		}
	}
	playOut(t, m, target.Player1, target.Player2, target.Player1)

	deadline := time.After(2 * time.Second)
	for {
		select {
		case _, ok := <-ch:
			if !ok {
				return
			}
		case <-deadline:
			t.Fatal("stream never closed for slow spectator")
		}
	}
}

func TestHubDetachClosesStream(t *testing.T) {
	reg, hub, _ := setupHubTournament(t)

	running := reg.RunningMatches()
	subID, ch, err := hub.Attach(running[0].MatchID)
	if err != nil {
		t.Fatalf("attach: %v", err)
	}
	hub.Detach(subID)

	deadline := time.After(2 * time.Second)
	for {
		select {
		case _, ok := <-ch:
			if !ok {
				// Detach again must be a no-op.
				hub.Detach(subID)
				return
			}
		case <-deadline:
			t.Fatal("detach did not close the stream")
		}
	}
}

func TestHubAttachCompletedMatch(t *testing.T) {
	reg, hub, _ := setupHubTournament(t)

	running := reg.RunningMatches()
	target := running[0]
	m := reg.Match(target.MatchID)
	playOut(t, m, target.Player1, target.Player2, target.Player1)

	// Wait for the tournament loop to untrack the finished match.
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if reg.Match(target.MatchID) == nil && !reg.MatchKnown(target.MatchID) {
			break
		}
		time.Sleep(5 * time.Millisecond)
	}

	if _, _, err := hub.Attach(target.MatchID); !errors.Is(err, ErrMatchNotFound) {
		t.Fatalf("completed match: got %v, want ErrMatchNotFound", err)
	}
}
