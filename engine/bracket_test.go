package engine

import (
	"fmt"
	"reflect"
	"testing"
)

func participants(n int) []string {
	out := make([]string, n)
	for i := range out {
		out[i] = fmt.Sprintf("player-%02d", i+1)
	}
	return out
}

func TestBracketSizeFor(t *testing.T) {
	tests := []struct {
		n    int
		want int
		err  bool
	}{
		{1, 8, false},
		{2, 8, false},
		{8, 8, false},
		{9, 16, false},
		{16, 16, false},
		{17, 32, false},
		{32, 32, false},
		{33, 0, true},
	}
	for _, tt := range tests {
		got, err := BracketSizeFor(tt.n)
		if tt.err {
			if err == nil {
				t.Fatalf("BracketSizeFor(%d): expected error, got %d", tt.n, got)
			}
			continue
		}
		if err != nil {
			t.Fatalf("BracketSizeFor(%d): unexpected error: %v", tt.n, err)
		}
		if got != tt.want {
			t.Fatalf("BracketSizeFor(%d) = %d, want %d", tt.n, got, tt.want)
		}
	}
}

func TestBuildBracketRejectsTooFew(t *testing.T) {
	if _, err := BuildBracket(nil, 2); err != ErrTooFewParticipants {
		t.Fatalf("empty field: got %v, want ErrTooFewParticipants", err)
	}
	if _, err := BuildBracket(participants(1), 2); err != ErrTooFewParticipants {
		t.Fatalf("one participant: got %v, want ErrTooFewParticipants", err)
	}
	if _, err := BuildBracket(participants(3), 4); err != ErrTooFewParticipants {
		t.Fatalf("below configured minimum: got %v, want ErrTooFewParticipants", err)
	}
}

func TestBuildBracketSeedingAndByes(t *testing.T) {
	for k := 2; k <= 32; k++ {
		field := participants(k)
		b, err := BuildBracket(field, 2)
		if err != nil {
			t.Fatalf("k=%d: unexpected error: %v", k, err)
		}
		size, _ := BracketSizeFor(k)
		if b.Size != size {
			t.Fatalf("k=%d: size = %d, want %d", k, b.Size, size)
		}
		if len(b.Rounds[0]) != size/2 {
			t.Fatalf("k=%d: round 1 has %d pairings, want %d", k, len(b.Rounds[0]), size/2)
		}

		byes := 0
		for i := range b.Rounds[0] {
			p := b.Rounds[0][i]
			if i < k {
				if p.Player1 != field[i] {
					t.Fatalf("k=%d pairing %d: player1 = %q, want seed %d (%q)", k, i, p.Player1, i+1, field[i])
				}
			} else if p.Player1 != "" {
				t.Fatalf("k=%d pairing %d: player1 = %q, want empty slot", k, i, p.Player1)
			}
			if p.IsBye() {
				byes++
				// Byes must land on the top seeds only.
				if i >= size-k {
					t.Fatalf("k=%d: bye at pairing %d, expected byes only below index %d", k, i, size-k)
				}
				continue
			}
			opp := size - i - 1
			if p.Player2 != field[opp] {
				t.Fatalf("k=%d pairing %d: player2 = %q, want seed %d (%q)", k, i, p.Player2, opp+1, field[opp])
			}
		}
		wantByes := size - k
		if wantByes > size/2 {
			wantByes = size / 2
		}
		if byes != wantByes {
			t.Fatalf("k=%d: %d byes, want %d", k, byes, wantByes)
		}
	}
}

func TestBuildBracketFivePlayers(t *testing.T) {
	field := participants(5)
	b, err := BuildBracket(field, 2)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if b.Size != 8 {
		t.Fatalf("size = %d, want 8", b.Size)
	}
	if len(b.Rounds) != 3 {
		t.Fatalf("rounds = %d, want 3", len(b.Rounds))
	}
	// Seeds 1 through 3 sit out round 1; only 4 vs 5 actually plays.
	for i := 0; i < 3; i++ {
		if !b.Rounds[0][i].IsBye() {
			t.Fatalf("pairing %d should be a bye", i)
		}
	}
	last := b.Rounds[0][3]
	if last.Player1 != "player-04" || last.Player2 != "player-05" {
		t.Fatalf("pairing 3 = %q vs %q, want player-04 vs player-05", last.Player1, last.Player2)
	}
}

func TestBuildBracketDeterministic(t *testing.T) {
	field := participants(11)
	a, err := BuildBracket(field, 2)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	b, err := BuildBracket(field, 2)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !reflect.DeepEqual(a, b) {
		t.Fatal("same participant order produced different brackets")
	}
}

func TestAdvanceFeedsNextRound(t *testing.T) {
	b, err := BuildBracket(participants(8), 2)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	b.Advance(0, 0, "player-01")
	b.Advance(0, 1, "player-07")

	next := b.Rounds[1][0]
	if next.Player1 != "player-01" {
		t.Fatalf("slot 0 player1 = %q, want player-01", next.Player1)
	}
	if next.Player2 != "player-07" {
		t.Fatalf("slot 0 player2 = %q, want player-07", next.Player2)
	}
	if b.Rounds[0][0].State != PairingComplete {
		t.Fatalf("resolved pairing state = %q, want complete", b.Rounds[0][0].State)
	}

	if b.RoundResolved(0) {
		t.Fatal("round 0 reported resolved with two pairings outstanding")
	}
	b.Advance(0, 2, "player-03")
	b.Advance(0, 3, "player-04")
	if !b.RoundResolved(0) {
		t.Fatal("round 0 not resolved after all winners recorded")
	}
}

func TestRoundResolvedSkipsEmptyByeSlots(t *testing.T) {
	b, err := BuildBracket(participants(2), 2)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// Two entrants in an eight-bracket: two single-player byes and two
	// slots with no players at all. Only the former ever get winners.
	for i := range b.Rounds[0] {
		p := b.Rounds[0][i]
		if p.Player1 == "" && p.Player2 == "" {
			continue
		}
		winner := p.Player1
		if winner == "" {
			winner = p.Player2
		}
		b.Advance(0, i, winner)
	}

	if !b.RoundResolved(0) {
		t.Fatal("round 0 not resolved with only empty bye slots outstanding")
	}
}

func TestAdvanceFinalRoundStops(t *testing.T) {
	b, err := BuildBracket(participants(8), 2)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	final := b.FinalRound()
	b.Advance(final, 0, "player-01")
	if b.Rounds[final][0].Winner != "player-01" {
		t.Fatalf("final winner = %q, want player-01", b.Rounds[final][0].Winner)
	}
}
