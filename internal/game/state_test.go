package game

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
	corechess "github.com/park285/cheese-chess/internal/chess"
)

type phaseChange struct{ Old, New Phase }

func newRecordedState(t *testing.T) (*State, *[]phaseChange, *[]corechess.Position) {
	t.Helper()
	s := New()
	var phases []phaseChange
	var positions []corechess.Position
	s.SetPhaseHook(func(old, next Phase) { phases = append(phases, phaseChange{old, next}) })
	s.SetPositionHook(func(pos corechess.Position) { positions = append(positions, pos) })
	return s, &phases, &positions
}

func playAll(t *testing.T, s *State, moves ...string) {
	t.Helper()
	for _, mv := range moves {
		if _, err := s.MakeMove(mv); err != nil {
			t.Fatalf("MakeMove(%s): %v", mv, err)
		}
	}
}

func TestMakeMoveAndHistory(t *testing.T) {
	s, _, positions := newRecordedState(t)
	if _, err := s.MakeMove("e2e4"); !errors.Is(err, ErrInvalidPhase) {
		t.Fatalf("moves in the menu should fail, got %v", err)
	}
	s.StartGame(ModeTwoPlayer, "hard")
	if s.Difficulty() != "" {
		t.Fatalf("two player game kept difficulty %q", s.Difficulty())
	}

	san, err := s.MakeMove("E2E4")
	if err != nil || san != "e4" {
		t.Fatalf("MakeMove = %q, %v", san, err)
	}
	if _, err := s.MakeMove("e2e4"); !errors.Is(err, corechess.ErrIllegalMove) {
		t.Fatalf("expected illegal move, got %v", err)
	}
	playAll(t, s, "e7e5", "g1f3")

	if s.HistoryLength() != 4 || s.Index() != 3 || s.LastMove() != "g1f3" {
		t.Fatalf("history len=%d index=%d last=%q", s.HistoryLength(), s.Index(), s.LastMove())
	}
	if s.Turn() != Black {
		t.Fatalf("turn = %s", s.Turn())
	}
	if len(*positions) != 3 {
		t.Fatalf("position hook fired %d times", len(*positions))
	}
	if diff := cmp.Diff([]string{"e4", "e5", "Nf3"}, s.SANLine()); diff != "" {
		t.Fatalf("SAN line (-want +got):\n%s", diff)
	}
}

func TestNavigationAndBranching(t *testing.T) {
	s, _, positions := newRecordedState(t)
	s.StartGame(ModeTwoPlayer, "")
	playAll(t, s, "e2e4", "e7e5", "g1f3")
	*positions = nil

	if !s.GoBack() || !s.GoBack() {
		t.Fatalf("GoBack failed")
	}
	if s.Index() != 1 || s.LastMove() != "e2e4" || s.Turn() != Black {
		t.Fatalf("after back: index=%d last=%q turn=%s", s.Index(), s.LastMove(), s.Turn())
	}
	if s.AtLatest() {
		t.Fatalf("should not be at latest")
	}
	if got := (*positions)[len(*positions)-1]; len(got.Moves) != 1 {
		t.Fatalf("position hook got %+v", got)
	}
	if !s.GoForward() || s.Index() != 2 {
		t.Fatalf("GoForward index=%d", s.Index())
	}
	s.GoBack()

	// a different reply truncates the old continuation
	playAll(t, s, "c7c5")
	if diff := cmp.Diff([]string{"e2e4", "c7c5"}, s.Line()); diff != "" {
		t.Fatalf("line after branch (-want +got):\n%s", diff)
	}
	if s.GoForward() {
		t.Fatalf("nothing should be ahead after branching")
	}

	s.GoBack()
	s.GoBack()
	if s.GoBack() {
		t.Fatalf("GoBack past start should fail")
	}
	if s.LastMove() != "" {
		t.Fatalf("last move at start = %q", s.LastMove())
	}
}

func TestCheckmateEndsGameAndCountsTally(t *testing.T) {
	s, phases, _ := newRecordedState(t)
	s.StartGame(ModeSinglePlayer, "easy")
	playAll(t, s, "f2f3", "e7e5", "g2g4", "d8h4")

	if s.Phase() != PhaseGameOver {
		t.Fatalf("phase = %s", s.Phase())
	}
	r, ok := s.Result()
	if !ok || r.String() != "Black wins by checkmate" || r.PGNResult() != "0-1" {
		t.Fatalf("result = %+v (%s)", r, r.String())
	}
	if diff := cmp.Diff(Tally{Engine: 1}, s.Tally()); diff != "" {
		t.Fatalf("tally (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]phaseChange{{PhasePlaying, PhaseGameOver}}, *phases); diff != "" {
		t.Fatalf("phase hook (-want +got):\n%s", diff)
	}
	if _, err := s.MakeMove("a2a3"); !errors.Is(err, ErrInvalidPhase) {
		t.Fatalf("moves after game over should fail, got %v", err)
	}
}

func TestPlayerAsBlackTallyAndTurn(t *testing.T) {
	s := New()
	s.SetPlayerColor(Black)
	s.StartGame(ModeSinglePlayer, "medium")
	if !s.EngineToMove() {
		t.Fatalf("engine should move first when the player is black")
	}
	if _, _, err := s.Select("e2"); !errors.Is(err, ErrNotYourTurn) {
		t.Fatalf("expected ErrNotYourTurn, got %v", err)
	}
	playAll(t, s, "f2f3", "e7e5", "g2g4", "d8h4")
	if diff := cmp.Diff(Tally{Player: 1}, s.Tally()); diff != "" {
		t.Fatalf("tally (-want +got):\n%s", diff)
	}
}

func TestStalemate(t *testing.T) {
	s := New()
	if err := s.StartFromFEN("7k/4Q3/6K1/8/8/8/8/8 w - - 0 1"); err != nil {
		t.Fatalf("StartFromFEN: %v", err)
	}
	playAll(t, s, "e7f7")
	r, ok := s.Result()
	if !ok || r.String() != "Game drawn by stalemate" {
		t.Fatalf("result = %+v", r)
	}
	if s.Tally().Draw != 1 {
		t.Fatalf("tally = %+v", s.Tally())
	}
}

func TestFivefoldRepetitionEndsGame(t *testing.T) {
	s := New()
	s.StartGame(ModeTwoPlayer, "")
	cycle := []string{"g1f3", "g8f6", "f3g1", "f6g8"}
	for i := 0; i < 3; i++ {
		playAll(t, s, cycle...)
	}
	if s.Phase() != PhasePlaying {
		t.Fatalf("threefold repetition must not end the game, phase=%s", s.Phase())
	}

	playAll(t, s, cycle...)
	if s.Phase() != PhaseGameOver {
		t.Fatalf("fivefold repetition should end the game, phase=%s", s.Phase())
	}
	r, ok := s.Result()
	if !ok || r.String() != "Game drawn by repetition" {
		t.Fatalf("result = %+v", r)
	}
	if diff := cmp.Diff(Tally{Draw: 1}, s.Tally()); diff != "" {
		t.Fatalf("tally (-want +got):\n%s", diff)
	}
}

func TestStartFromDecidedPositionRejected(t *testing.T) {
	s := New()
	for _, fen := range []string{
		"rnb1kbnr/pppp1ppp/8/4p3/6Pq/5P2/PPPPP2P/RNBQKBNR w KQkq - 1 3",
		"7k/5Q2/6K1/8/8/8/8/8 b - - 0 1",
	} {
		if err := s.StartFromFEN(fen); !errors.Is(err, corechess.ErrInvalidFEN) {
			t.Fatalf("StartFromFEN(%q) = %v, want ErrInvalidFEN", fen, err)
		}
	}
	if s.Phase() != PhaseMenu {
		t.Fatalf("rejected position changed phase to %s", s.Phase())
	}
}

func TestResignAndDrawHandshake(t *testing.T) {
	s := New()
	s.StartGame(ModeTwoPlayer, "")
	playAll(t, s, "e2e4")
	r, err := s.Resign()
	if err != nil || r.String() != "White wins by resignation" {
		t.Fatalf("Resign = %+v, %v", r, err)
	}

	s.ResetAndPlay()
	if s.Phase() != PhasePlaying || s.HistoryLength() != 1 {
		t.Fatalf("ResetAndPlay phase=%s len=%d", s.Phase(), s.HistoryLength())
	}
	accepted, err := s.RequestDraw()
	if err != nil || accepted || !s.DrawRequested() {
		t.Fatalf("first request accepted=%v err=%v", accepted, err)
	}
	if err := s.DeclineDraw(); err != nil || s.DrawRequested() {
		t.Fatalf("decline err=%v requested=%v", err, s.DrawRequested())
	}
	s.RequestDraw()
	accepted, err = s.RequestDraw()
	if err != nil || !accepted {
		t.Fatalf("second request accepted=%v err=%v", accepted, err)
	}
	r, _ = s.Result()
	if r.String() != "Game drawn by agreement" {
		t.Fatalf("result = %s", r)
	}
	if diff := cmp.Diff(Tally{Player: 1, Draw: 1}, s.Tally()); diff != "" {
		t.Fatalf("tally (-want +got):\n%s", diff)
	}

	s.StartGame(ModeSinglePlayer, "easy")
	if _, err := s.RequestDraw(); !errors.Is(err, ErrTwoPlayerOnly) {
		t.Fatalf("single player draw request: %v", err)
	}
}

func TestClaimDrawByRepetition(t *testing.T) {
	s := New()
	s.StartGame(ModeTwoPlayer, "")
	if _, err := s.ClaimDraw(); !errors.Is(err, ErrDrawNotClaimable) {
		t.Fatalf("expected ErrDrawNotClaimable, got %v", err)
	}
	playAll(t, s, "g1f3", "g8f6", "f3g1", "f6g8", "g1f3", "g8f6", "f3g1", "f6g8")
	r, err := s.ClaimDraw()
	if err != nil {
		t.Fatalf("ClaimDraw: %v", err)
	}
	if r.String() != "Game drawn by repetition" || s.Phase() != PhaseGameOver {
		t.Fatalf("claim result %s phase %s", r, s.Phase())
	}
}

func TestSelectAndPromotion(t *testing.T) {
	s := New()
	if err := s.StartFromFEN("4k3/P7/8/8/8/8/8/4K3 w - - 0 1"); err != nil {
		t.Fatalf("StartFromFEN: %v", err)
	}
	out, _, err := s.Select("e8")
	if err != nil || out != ClickIgnored {
		t.Fatalf("selecting opponent piece: %v %v", out, err)
	}
	out, _, _ = s.Select("a7")
	if out != ClickSelected {
		t.Fatalf("select a7 = %v", out)
	}
	if diff := cmp.Diff([]string{"a8"}, s.Targets()); diff != "" {
		t.Fatalf("targets (-want +got):\n%s", diff)
	}
	out, _, _ = s.Select("a8")
	if out != ClickPromotion {
		t.Fatalf("select a8 = %v", out)
	}
	p := s.PendingPromotion()
	if p == nil || len(p.Choices) != 4 {
		t.Fatalf("pending promotion %+v", p)
	}
	if _, _, err := s.Select("e1"); !errors.Is(err, ErrPromotionPending) {
		t.Fatalf("board input during promotion: %v", err)
	}
	if _, err := s.Promote("king"); !errors.Is(err, ErrInvalidPromotion) {
		t.Fatalf("expected ErrInvalidPromotion, got %v", err)
	}
	mv, err := s.Promote("knight")
	if err != nil || mv != "a7a8n" {
		t.Fatalf("Promote = %q, %v", mv, err)
	}
	if _, err := s.Promote("q"); !errors.Is(err, ErrNoPendingPromotion) {
		t.Fatalf("expected ErrNoPendingPromotion, got %v", err)
	}
}

func TestSelectMoveAndDeselect(t *testing.T) {
	s := New()
	s.StartGame(ModeTwoPlayer, "")
	s.Select("g1")
	out, _, _ := s.Select("g1")
	if out != ClickDeselected || s.Selected() != "" {
		t.Fatalf("reselect = %v selected=%q", out, s.Selected())
	}
	s.Select("g1")
	out, _, _ = s.Select("b1")
	if out != ClickSelected || s.Selected() != "b1" {
		t.Fatalf("switch selection = %v %q", out, s.Selected())
	}
	out, _, _ = s.Select("b4")
	if out != ClickDeselected || s.HistoryLength() != 1 {
		t.Fatalf("illegal target = %v", out)
	}
	s.Select("b1")
	out, mv, err := s.Select("c3")
	if err != nil || out != ClickMoved || mv != "b1c3" {
		t.Fatalf("move = %v %q %v", out, mv, err)
	}
}

func TestAnalysisDoesNotReopenGameOver(t *testing.T) {
	s := New()
	s.StartGame(ModeTwoPlayer, "")
	playAll(t, s, "f2f3", "e7e5", "g2g4", "d8h4")
	s.SetPhase(PhaseAnalysis)
	s.GoBack()
	playAll(t, s, "d8h4")
	if s.Phase() != PhaseAnalysis {
		t.Fatalf("phase = %s", s.Phase())
	}
	if _, ok := s.Terminal(); !ok {
		t.Fatalf("terminal position not reported")
	}
	if s.Tally().Engine != 1 {
		t.Fatalf("tally counted twice: %+v", s.Tally())
	}
}

func TestMenuResetsTally(t *testing.T) {
	s, phases, _ := newRecordedState(t)
	s.StartGame(ModeTwoPlayer, "")
	s.Resign()
	s.SetPhase(PhaseMenu)
	if s.Tally() != (Tally{}) || s.HistoryLength() != 1 || s.Mode() != ModeNone {
		t.Fatalf("menu did not reset: %+v", s.Snapshot())
	}
	last := (*phases)[len(*phases)-1]
	if last != (phaseChange{PhaseGameOver, PhaseMenu}) {
		t.Fatalf("last phase change %+v", last)
	}
}

func TestSnapshotRestore(t *testing.T) {
	s := New()
	s.SetPlayerColor(Black)
	s.StartGame(ModeSinglePlayer, "hard")
	playAll(t, s, "d2d4", "d7d5", "c2c4")
	s.GoBack()
	s.ToggleEvaluation()

	snap := s.Snapshot()
	restored := New()
	if err := restored.Restore(snap); err != nil {
		t.Fatalf("Restore: %v", err)
	}
	if diff := cmp.Diff(snap, restored.Snapshot()); diff != "" {
		t.Fatalf("snapshot mismatch (-want +got):\n%s", diff)
	}
	if restored.FEN() != s.FEN() {
		t.Fatalf("fen %q != %q", restored.FEN(), s.FEN())
	}

	snap.Index = 9
	if err := restored.Restore(snap); err == nil {
		t.Fatalf("expected error for out of range index")
	}
	snap.Index = 1
	snap.Line = []string{"e2e5"}
	if err := restored.Restore(snap); err == nil {
		t.Fatalf("expected error for illegal line")
	}
}

func TestOpeningAndPGN(t *testing.T) {
	s := New()
	s.StartGame(ModeTwoPlayer, "")
	playAll(t, s, "e2e4", "c7c5")
	code, title := s.Opening()
	if code == "" || title == "" {
		t.Fatalf("opening not found: %q %q", code, title)
	}
	if again, _ := s.Opening(); again != code {
		t.Fatalf("second lookup = %q, want %q", again, code)
	}
	if ecoBook() != ecoBook() {
		t.Fatalf("opening book rebuilt between lookups")
	}
	s.Resign()
	pgn := s.PGN()
	if pgn == "" {
		t.Fatalf("empty pgn")
	}
}
