package chess

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestPositionReplay(t *testing.T) {
	pos := Position{Moves: []string{"e2e4", "e7e5", "g1f3"}}
	game, err := pos.Replay()
	if err != nil {
		t.Fatalf("Replay: %v", err)
	}
	if got := len(game.Moves()); got != 3 {
		t.Fatalf("moves = %d", got)
	}
	want := []string{"e4", "e5", "Nf3"}
	if diff := cmp.Diff(want, SANMoves(game)); diff != "" {
		t.Fatalf("SAN mismatch (-want +got):\n%s", diff)
	}
}

func TestPositionReplayRejectsIllegal(t *testing.T) {
	_, err := Position{Moves: []string{"e2e4", "e2e4"}}.Replay()
	if !errors.Is(err, ErrIllegalMove) {
		t.Fatalf("expected ErrIllegalMove, got %v", err)
	}
}

func TestPositionFromFEN(t *testing.T) {
	fen := "4k3/8/8/8/8/8/4P3/4K3 w - - 0 1"
	game, err := Position{FEN: fen, Moves: []string{"e1d1"}}.Replay()
	if err != nil {
		t.Fatalf("Replay: %v", err)
	}
	if got := game.FEN(); got != "4k3/8/8/8/8/8/4P3/3K4 b - - 1 1" {
		t.Fatalf("fen after Kd1 = %q", got)
	}
	if _, err := NewGameFromFEN("not a fen"); !errors.Is(err, ErrInvalidFEN) {
		t.Fatalf("expected ErrInvalidFEN, got %v", err)
	}
}

func TestParseMoveAcceptsUCIAndSAN(t *testing.T) {
	game, _ := NewGameFromFEN("")
	if got, err := ParseMove(game, "E2E4"); err != nil || got != "e2e4" {
		t.Fatalf("ParseMove uci = %q, %v", got, err)
	}
	if got, err := ParseMove(game, "Nf3"); err != nil || got != "g1f3" {
		t.Fatalf("ParseMove san = %q, %v", got, err)
	}
	if _, err := ParseMove(game, "Ke2"); !errors.Is(err, ErrIllegalMove) {
		t.Fatalf("expected illegal, got %v", err)
	}
	if len(game.Moves()) != 0 {
		t.Fatalf("ParseMove must not mutate the game")
	}
}

func TestSANLineStopsAtIllegal(t *testing.T) {
	game, _ := NewGameFromFEN("")
	got := SANLine(game, []string{"e2e4", "e7e5", "e4e5", "g1f3"}, 5)
	if diff := cmp.Diff([]string{"e4", "e5"}, got); diff != "" {
		t.Fatalf("SANLine (-want +got):\n%s", diff)
	}
	got = SANLine(game, []string{"d2d4", "d7d5", "c2c4"}, 2)
	if diff := cmp.Diff([]string{"d4", "d5"}, got); diff != "" {
		t.Fatalf("SANLine limit (-want +got):\n%s", diff)
	}
}

func TestParseSquare(t *testing.T) {
	sq, err := ParseSquare("e4")
	if err != nil || sq.String() != "e4" {
		t.Fatalf("ParseSquare e4 = %v, %v", sq, err)
	}
	for _, bad := range []string{"", "i1", "a9", "e44"} {
		if _, err := ParseSquare(bad); err == nil {
			t.Fatalf("ParseSquare(%q) should fail", bad)
		}
	}
	from, to, ok := SquaresOf("g7g8q")
	if !ok || from.String() != "g7" || to.String() != "g8" {
		t.Fatalf("SquaresOf = %v %v %v", from, to, ok)
	}
}
