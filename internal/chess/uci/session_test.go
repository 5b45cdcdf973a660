package uci

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/park285/cheese-chess/internal/chess/uci/ucitest"
)

var testOptions = Options{Threads: 1, HashMB: 16, SkillLevel: 10, MultiPV: 1}

func TestParseInfo(t *testing.T) {
	cases := []struct {
		line string
		want Info
		ok   bool
	}{
		{
			line: "info depth 12 seldepth 18 multipv 2 score cp -41 nodes 1200 nps 90000 pv e7e5 g1f3 b8c6",
			want: Info{MultiPV: 2, Depth: 12, Score: Score{Value: -41}, HasScore: true, PV: []string{"e7e5", "g1f3", "b8c6"}},
			ok:   true,
		},
		{
			line: "info depth 7 score mate -3 pv h7h6",
			want: Info{MultiPV: 1, Depth: 7, Score: Score{Mate: true, Value: -3}, HasScore: true, PV: []string{"h7h6"}},
			ok:   true,
		},
		{
			line: "info depth 0 score mate 0",
			want: Info{MultiPV: 1, Score: Score{Mate: true}, HasScore: true},
			ok:   true,
		},
		{line: "info string NNUE evaluation using nn.nnue", ok: false},
		{line: "info depth 3 currmove e2e4 currmovenumber 1", ok: false},
		{line: "bestmove e2e4", ok: false},
	}
	for _, tc := range cases {
		got, ok := ParseInfo(tc.line)
		if ok != tc.ok {
			t.Fatalf("ParseInfo(%q) ok=%v, want %v", tc.line, ok, tc.ok)
		}
		if !ok {
			continue
		}
		if diff := cmp.Diff(tc.want, got); diff != "" {
			t.Fatalf("ParseInfo(%q) mismatch (-want +got):\n%s", tc.line, diff)
		}
	}
}

func TestScoreCentipawns(t *testing.T) {
	if got := (Score{Mate: true, Value: 2}).Centipawns(); got != MateValue {
		t.Fatalf("mate 2 = %d", got)
	}
	if got := (Score{Mate: true, Value: -1}).Centipawns(); got != -MateValue {
		t.Fatalf("mate -1 = %d", got)
	}
	if got := (Score{Mate: true, Value: 0}).Centipawns(); got != -MateValue {
		t.Fatalf("mate 0 = %d", got)
	}
}

func TestBuildCommands(t *testing.T) {
	if got := buildPositionCommand("", []string{"e2e4", "e7e5"}); got != "position startpos moves e2e4 e7e5\n" {
		t.Fatalf("position = %q", got)
	}
	fen := "8/8/8/8/8/8/8/K6k w - - 0 1"
	if got := buildPositionCommand(fen, nil); got != "position fen "+fen+"\n" {
		t.Fatalf("position fen = %q", got)
	}
	tokens, err := buildGoTokens(Limits{Depth: 3, MoveTimeMillis: 100})
	if err != nil {
		t.Fatalf("buildGoTokens: %v", err)
	}
	if diff := cmp.Diff([]string{"go", "depth", "3", "movetime", "100"}, tokens); diff != "" {
		t.Fatalf("go tokens (-want +got):\n%s", diff)
	}
	if _, err := buildGoTokens(Limits{}); err == nil {
		t.Fatalf("expected error for empty limits")
	}
}

func TestParseBestMove(t *testing.T) {
	best, ponder := parseBestMove("bestmove g1f3 ponder d7d5")
	if best != "g1f3" || ponder != "d7d5" {
		t.Fatalf("got %q %q", best, ponder)
	}
	best, _ = parseBestMove("bestmove (none)")
	if best != "" {
		t.Fatalf("(none) should map to empty, got %q", best)
	}
}

func TestValidateOptions(t *testing.T) {
	bad := []Options{
		{HashMB: 16, MultiPV: 1, SkillLevel: 21},
		{HashMB: 0, MultiPV: 1},
		{HashMB: 16, MultiPV: 0},
	}
	for _, opt := range bad {
		if err := validateOptions(opt); err == nil {
			t.Fatalf("expected error for %+v", opt)
		}
	}
	if err := validateOptions(testOptions); err != nil {
		t.Fatalf("valid options rejected: %v", err)
	}
}

func TestSessionSearch(t *testing.T) {
	bin := ucitest.Write(t, ucitest.DefaultScript())
	ctx := context.Background()
	s, err := NewSession(ctx, bin, testOptions)
	if err != nil {
		t.Fatalf("NewSession: %v", err)
	}
	defer s.Close()

	if err := s.NewGame(ctx); err != nil {
		t.Fatalf("NewGame: %v", err)
	}
	resp, err := s.Search(ctx, SearchRequest{Limits: Limits{Depth: 2, MoveTimeMillis: 50}})
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if resp.BestMove != "e2e4" || resp.Ponder != "e7e5" {
		t.Fatalf("unexpected bestmove %+v", resp)
	}
	if len(resp.Candidates) != 1 {
		t.Fatalf("candidates = %d", len(resp.Candidates))
	}
	c := resp.Candidates[0]
	if c.Depth != 2 || c.EvalCP() != 34 || len(c.Principal) != 3 {
		t.Fatalf("candidate %+v", c)
	}

	// the session is reusable after a completed search
	if _, err := s.Search(ctx, SearchRequest{Moves: []string{"e2e4"}, Limits: Limits{Depth: 1}}); err != nil {
		t.Fatalf("second Search: %v", err)
	}
	if !s.Healthy() {
		t.Fatalf("session should stay healthy")
	}
}

func TestSessionSearchCancelDrains(t *testing.T) {
	script := ucitest.Script{
		Go:   []string{"info depth 1 score cp 5 pv d2d4"},
		Stop: []string{"info depth 2 score cp 9 pv d2d4 d7d5", "bestmove d2d4"},
	}
	bin := ucitest.Write(t, script)
	s, err := NewSession(context.Background(), bin, testOptions)
	if err != nil {
		t.Fatalf("NewSession: %v", err)
	}
	defer s.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 150*time.Millisecond)
	defer cancel()
	_, err = s.Search(ctx, SearchRequest{Limits: Limits{Depth: 30}})
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected deadline error, got %v", err)
	}
	if !s.Healthy() {
		t.Fatalf("session should survive a drained stop")
	}
	if err := s.EnsureReady(context.Background()); err != nil {
		t.Fatalf("EnsureReady after stop: %v", err)
	}
}

func TestNewSessionHandshakeTimeout(t *testing.T) {
	bin := ucitest.Write(t, ucitest.Script{SkipUCIOK: true})
	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()
	if _, err := NewSession(ctx, bin, testOptions); err == nil {
		t.Fatalf("expected handshake error")
	}
}

func TestSessionCloseIdempotent(t *testing.T) {
	bin := ucitest.Write(t, ucitest.DefaultScript())
	s, err := NewSession(context.Background(), bin, testOptions)
	if err != nil {
		t.Fatalf("NewSession: %v", err)
	}
	if err := s.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if err := s.Close(); err != nil {
		t.Fatalf("second Close: %v", err)
	}
	if s.Healthy() {
		t.Fatalf("closed session reported healthy")
	}
}
