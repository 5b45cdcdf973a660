package chess

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/park285/cheese-chess/internal/chess/uci"
)

func TestNewEvaluationWhitePerspective(t *testing.T) {
	game, err := Position{Moves: []string{"e2e4"}}.Replay()
	if err != nil {
		t.Fatalf("Replay: %v", err)
	}
	resp := uci.SearchResponse{
		BestMove: "e7e5",
		Candidates: []uci.Candidate{{
			Move:      "e7e5",
			Score:     uci.Score{Value: 25},
			Depth:     18,
			Principal: []string{"e7e5", "g1f3", "b8c6", "f1b5", "a7a6", "b5a4"},
		}},
	}
	got := NewEvaluation(game, resp, 5)
	want := Evaluation{
		FEN:         game.FEN(),
		BestMove:    "e7e5",
		BestMoveSAN: "e5",
		Score:       -25,
		PV:          []string{"e5", "Nf3", "Nc6", "Bb5", "a6"},
		PVUCI:       []string{"e7e5", "g1f3", "b8c6", "f1b5", "a7a6"},
		Depth:       18,
	}
	if diff := cmp.Diff(want, got, cmpopts.IgnoreFields(Evaluation{}, "At")); diff != "" {
		t.Fatalf("evaluation (-want +got):\n%s", diff)
	}
	if got.ScoreText() != "-0.25" {
		t.Fatalf("score text = %q", got.ScoreText())
	}
}

func TestNewEvaluationMate(t *testing.T) {
	// black to move, black mates in 2 from its own point of view
	game, err := Position{Moves: []string{"f2f3", "e7e5", "g2g4"}}.Replay()
	if err != nil {
		t.Fatalf("Replay: %v", err)
	}
	resp := uci.SearchResponse{Candidates: []uci.Candidate{{
		Score:     uci.Score{Mate: true, Value: 1},
		Principal: []string{"d8h4"},
	}}, BestMove: "d8h4"}
	ev := NewEvaluation(game, resp, 5)
	if !ev.IsMate || ev.MateIn != 1 || ev.Score != -MateScore {
		t.Fatalf("mate evaluation = %+v", ev)
	}
	if ev.BestMoveSAN != "Qh4#" {
		t.Fatalf("best san = %q", ev.BestMoveSAN)
	}
	if ev.ScoreText() != "Mate in 1" || ev.BarFraction() != 0 {
		t.Fatalf("mate presentation = %q %v", ev.ScoreText(), ev.BarFraction())
	}
}

func TestNewEvaluationDropsIllegalBestMove(t *testing.T) {
	game, _ := NewGameFromFEN("")
	resp := uci.SearchResponse{BestMove: "e2e5", Candidates: []uci.Candidate{{Score: uci.Score{Value: 10}, Principal: []string{"e2e5"}}}}
	ev := NewEvaluation(game, resp, 5)
	if ev.BestMove != "" || len(ev.PV) != 0 || ev.Score != 10 {
		t.Fatalf("unexpected evaluation %+v", ev)
	}
}

func TestFormatScore(t *testing.T) {
	cases := []struct {
		score  int
		mate   bool
		mateIn int
		want   string
	}{
		{0, false, 0, "+0.00"},
		{34, false, 0, "+0.34"},
		{-120, false, 0, "-1.20"},
		{1500, false, 0, "+15.0"},
		{-2250, false, 0, "-22.5"},
		{MateScore, true, 3, "Mate in 3"},
		{-MateScore, true, 2, "Mate in 2"},
	}
	for _, tc := range cases {
		if got := FormatScore(tc.score, tc.mate, tc.mateIn); got != tc.want {
			t.Fatalf("FormatScore(%d) = %q, want %q", tc.score, got, tc.want)
		}
	}
}

func TestEvalBarFraction(t *testing.T) {
	cases := map[int]float64{
		0:          0.5,
		500:        0.75,
		-1000:      0,
		4000:       1,
		MateScore:  1,
		-MateScore: 0,
	}
	for score, want := range cases {
		if got := EvalBarFraction(score); got != want {
			t.Fatalf("EvalBarFraction(%d) = %v, want %v", score, got, want)
		}
	}
}
