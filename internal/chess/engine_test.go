package chess

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/park285/cheese-chess/internal/chess/uci/ucitest"
)

func fakeScript() ucitest.Script {
	s := ucitest.DefaultScript()
	s.Positions = map[string][]string{
		"moves e2e4": {
			"info depth 9 multipv 1 score cp 25 pv e7e5 g1f3",
			"bestmove e7e5 ponder g1f3",
		},
	}
	return s
}

func newTestEngine(t *testing.T, s ucitest.Script) *Engine {
	t.Helper()
	bin := ucitest.Write(t, s)
	e, err := NewEngine(EngineConfig{
		BinaryPath:   bin,
		EvalTime:     20 * time.Millisecond,
		EvalDepth:    4,
		EvalInterval: 10 * time.Millisecond,
	})
	if err != nil {
		t.Fatalf("NewEngine: %v", err)
	}
	t.Cleanup(func() { e.Close() })
	return e
}

func TestNewEngineMissingBinary(t *testing.T) {
	if _, err := NewEngine(EngineConfig{BinaryPath: "no-such-stockfish-binary"}); err == nil {
		t.Fatalf("expected error for missing binary")
	}
}

func TestEngineBestMove(t *testing.T) {
	e := newTestEngine(t, fakeScript())
	ctx := context.Background()

	res, err := e.BestMove(ctx, Position{}, "hard")
	if err != nil {
		t.Fatalf("BestMove: %v", err)
	}
	if res.Move != "e2e4" || res.SAN != "e4" || res.Difficulty != "hard" {
		t.Fatalf("unexpected result %+v", res)
	}

	if err := e.SetDifficulty("easy"); err != nil {
		t.Fatalf("SetDifficulty: %v", err)
	}
	res, err = e.BestMove(ctx, Position{Moves: []string{"e2e4"}}, "")
	if err != nil {
		t.Fatalf("BestMove reply: %v", err)
	}
	if res.Move != "e7e5" || res.Difficulty != "easy" || res.Ponder != "g1f3" {
		t.Fatalf("unexpected reply %+v", res)
	}
	if err := e.SetDifficulty("impossible"); !errors.Is(err, ErrUnknownDifficulty) {
		t.Fatalf("expected ErrUnknownDifficulty, got %v", err)
	}
}

func TestEngineBestMoveRejectsIllegalEngineMove(t *testing.T) {
	e := newTestEngine(t, ucitest.DefaultScript())
	// the fake always answers e2e4, which black cannot play
	_, err := e.BestMove(context.Background(), Position{Moves: []string{"d2d4"}}, "medium")
	if !errors.Is(err, ErrIllegalMove) {
		t.Fatalf("expected ErrIllegalMove, got %v", err)
	}
}

func TestEngineAnalyse(t *testing.T) {
	e := newTestEngine(t, fakeScript())
	ev, err := e.Analyse(context.Background(), Position{Moves: []string{"e2e4"}})
	if err != nil {
		t.Fatalf("Analyse: %v", err)
	}
	if ev.Score != -25 || ev.BestMove != "e7e5" || ev.Depth != 9 {
		t.Fatalf("unexpected evaluation %+v", ev)
	}
}

func TestEngineEvaluationLoop(t *testing.T) {
	e := newTestEngine(t, fakeScript())
	got := make(chan Evaluation, 16)
	e.StartEvaluation(Position{}, func(ev Evaluation) {
		select {
		case got <- ev:
		default:
		}
	})
	if !e.Evaluating() {
		t.Fatalf("expected evaluation to be running")
	}

	first := waitEvaluation(t, got)
	if first.BestMove != "e2e4" || first.Score != 34 {
		t.Fatalf("first evaluation %+v", first)
	}

	e.UpdateEvaluationPosition(Position{Moves: []string{"e2e4"}})
	deadline := time.After(3 * time.Second)
	for {
		select {
		case ev := <-got:
			if ev.BestMove == "e7e5" {
				if ev.Score != -25 {
					t.Fatalf("updated evaluation %+v", ev)
				}
				goto updated
			}
		case <-deadline:
			t.Fatalf("no evaluation for updated position")
		}
	}
updated:
	e.StopEvaluation()
	if e.Evaluating() {
		t.Fatalf("evaluation still running after stop")
	}
	if ev, ok := e.Evaluation(); !ok || ev.BestMove != "e7e5" {
		t.Fatalf("latest evaluation = %+v, %v", ev, ok)
	}

	e.ResetEvaluationState()
	if _, ok := e.Evaluation(); ok {
		t.Fatalf("reset should clear the latest evaluation")
	}
}

func TestUpdateEvaluationPositionWhenIdle(t *testing.T) {
	e := newTestEngine(t, fakeScript())
	e.UpdateEvaluationPosition(Position{Moves: []string{"e2e4"}})
	if e.Evaluating() {
		t.Fatalf("update must not start an idle evaluation")
	}
}

func TestStaleEvaluationRunIsDiscarded(t *testing.T) {
	e := newTestEngine(t, fakeScript())
	got := make(chan Evaluation, 16)
	cb := func(ev Evaluation) {
		select {
		case got <- ev:
		default:
		}
	}
	e.StartEvaluation(Position{}, cb)
	waitEvaluation(t, got)

	e.mu.Lock()
	oldRun := e.evalRun
	e.mu.Unlock()

	e.UpdateEvaluationPosition(Position{Moves: []string{"e2e4"}})
	calls := 0
	e.publish(oldRun, Evaluation{BestMove: "a2a3"}, func(Evaluation) { calls++ })
	if ev, ok := e.Evaluation(); ok && ev.BestMove == "a2a3" {
		t.Fatalf("result of a replaced run overwrote the latest evaluation")
	}

	e.mu.Lock()
	lastRun := e.evalRun
	e.mu.Unlock()
	e.StopEvaluation()
	before, _ := e.Evaluation()
	e.publish(lastRun, Evaluation{BestMove: "h2h3"}, func(Evaluation) { calls++ })
	after, _ := e.Evaluation()
	if after.BestMove != before.BestMove {
		t.Fatalf("result of a stopped run was stored: %q", after.BestMove)
	}
	if calls != 0 {
		t.Fatalf("stale runs reached the callback %d times", calls)
	}
}

func waitEvaluation(t *testing.T, ch <-chan Evaluation) Evaluation {
	t.Helper()
	select {
	case ev := <-ch:
		return ev
	case <-time.After(3 * time.Second):
		t.Fatalf("timed out waiting for evaluation")
	}
	return Evaluation{}
}
