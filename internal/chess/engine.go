package chess

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/park285/cheese-chess/internal/chess/uci"
	"github.com/park285/cheese-chess/internal/obslog"
	"go.uber.org/zap"
)

var ErrNoBestMove = errors.New("engine returned no move")

const (
	defaultEvalDepth    = 20
	defaultEvalTime     = 500 * time.Millisecond
	defaultEvalInterval = 100 * time.Millisecond
	defaultPVLength     = 5
	analysisSkillLevel  = 20
)

type EngineConfig struct {
	BinaryPath        string
	Threads           int
	HashMB            int
	EvalDepth         int
	EvalTime          time.Duration
	EvalInterval      time.Duration
	PVLength          int
	DefaultDifficulty string
	// PerPresetCapacity bounds engine processes per option set.
	PerPresetCapacity int
}

func (c *EngineConfig) applyDefaults() {
	if c.Threads <= 0 {
		c.Threads = defaultThreads
	}
	if c.HashMB <= 0 {
		c.HashMB = defaultHashMB
	}
	if c.EvalDepth <= 0 {
		c.EvalDepth = defaultEvalDepth
	}
	if c.EvalTime <= 0 {
		c.EvalTime = defaultEvalTime
	}
	if c.EvalInterval <= 0 {
		c.EvalInterval = defaultEvalInterval
	}
	if c.PVLength <= 0 {
		c.PVLength = defaultPVLength
	}
	if strings.TrimSpace(c.DefaultDifficulty) == "" {
		c.DefaultDifficulty = "medium"
	}
	if c.PerPresetCapacity <= 0 {
		c.PerPresetCapacity = 1
	}
}

// EvaluationFunc receives every fresh evaluation. It runs on the evaluation goroutine
// and must not call back into the Engine's evaluation controls.
type EvaluationFunc func(Evaluation)

// Engine owns the engine processes: one pool bucket for play at the chosen difficulty
// and one for full-strength analysis, so a move request never interrupts analysis.
type Engine struct {
	pool   *uci.Pool
	cfg    EngineConfig
	logger *zap.Logger

	// ctl serializes Start/Stop/Update/Reset of the evaluation loop.
	ctl        sync.Mutex
	mu         sync.Mutex
	difficulty string
	evalRun    uint64
	evalCancel context.CancelFunc
	evalDone   chan struct{}
	evalCB     EvaluationFunc
	latest     *Evaluation
}

func NewEngine(cfg EngineConfig) (*Engine, error) {
	cfg.applyDefaults()
	pool, err := uci.NewPool(uci.PoolConfig{BinaryPath: cfg.BinaryPath, PerPresetCapacity: cfg.PerPresetCapacity})
	if err != nil {
		return nil, err
	}
	difficulty := normalizePresetName(cfg.DefaultDifficulty)
	if _, err := GetPreset(difficulty); err != nil {
		pool.Close()
		return nil, err
	}
	return &Engine{
		pool:       pool,
		cfg:        cfg,
		logger:     obslog.Named("engine"),
		difficulty: difficulty,
	}, nil
}

// SetDifficulty selects the preset used by BestMove when no difficulty is given.
func (e *Engine) SetDifficulty(name string) error {
	p, err := GetPreset(name)
	if err != nil {
		return err
	}
	e.mu.Lock()
	e.difficulty = p.Name
	e.mu.Unlock()
	e.logger.Info("engine_difficulty", zap.String("difficulty", p.Name), zap.Int("skill", p.SkillLevel))
	return nil
}

func (e *Engine) Difficulty() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.difficulty
}

type MoveResult struct {
	Move       string
	SAN        string
	Ponder     string
	Difficulty string
	Duration   time.Duration
}

// BestMove asks the engine for a move in pos under the limits of difficulty
// (or the current difficulty when empty).
func (e *Engine) BestMove(ctx context.Context, pos Position, difficulty string) (MoveResult, error) {
	if strings.TrimSpace(difficulty) == "" {
		difficulty = e.Difficulty()
	}
	preset, err := GetPreset(difficulty)
	if err != nil {
		return MoveResult{}, err
	}
	preset.Threads, preset.HashMB = e.cfg.Threads, e.cfg.HashMB

	game, err := pos.Replay()
	if err != nil {
		return MoveResult{}, err
	}
	goTokens, err := BuildGoCommand(preset)
	if err != nil {
		return MoveResult{}, err
	}

	session, err := e.pool.Acquire(ctx, optionsFromPreset(preset))
	if err != nil {
		return MoveResult{}, err
	}
	var releaseErr error
	defer func() {
		e.pool.Release(session, releaseErr)
	}()

	start := time.Now()
	resp, err := session.Search(ctx, uci.SearchRequest{
		FEN:         pos.FEN,
		Moves:       pos.Moves,
		Limits:      limitsFromPreset(preset),
		GoOverrides: goTokens,
	})
	if err != nil {
		if !isContextErr(err) {
			releaseErr = err
		}
		return MoveResult{}, err
	}
	if resp.BestMove == "" {
		return MoveResult{}, ErrNoBestMove
	}
	san, err := PlayUCI(game.Clone(), resp.BestMove)
	if err != nil {
		releaseErr = err
		return MoveResult{}, fmt.Errorf("engine move %s: %w", resp.BestMove, err)
	}

	result := MoveResult{
		Move:       resp.BestMove,
		SAN:        san,
		Ponder:     resp.Ponder,
		Difficulty: preset.Name,
		Duration:   time.Since(start),
	}
	e.logger.Info("engine_move",
		zap.String("difficulty", preset.Name),
		zap.String("move", result.Move),
		zap.String("san", result.SAN),
		zap.Int("ply", len(pos.Moves)),
		zap.Duration("took", result.Duration),
	)
	return result, nil
}

// Analyse runs one full-strength analysis of pos.
func (e *Engine) Analyse(ctx context.Context, pos Position) (Evaluation, error) {
	session, err := e.pool.Acquire(ctx, e.analysisOptions())
	if err != nil {
		return Evaluation{}, err
	}
	ev, err := e.analyseWith(ctx, session, pos)
	var releaseErr error
	if err != nil && !isContextErr(err) {
		releaseErr = err
	}
	e.pool.Release(session, releaseErr)
	return ev, err
}

func (e *Engine) analyseWith(ctx context.Context, session *uci.Session, pos Position) (Evaluation, error) {
	game, err := pos.Replay()
	if err != nil {
		return Evaluation{}, err
	}
	resp, err := session.Search(ctx, uci.SearchRequest{
		FEN:   pos.FEN,
		Moves: pos.Moves,
		Limits: uci.Limits{
			Depth:          e.cfg.EvalDepth,
			MoveTimeMillis: int(e.cfg.EvalTime / time.Millisecond),
		},
	})
	if err != nil {
		return Evaluation{}, err
	}
	return NewEvaluation(game, resp, e.cfg.PVLength), nil
}

func (e *Engine) analysisOptions() uci.Options {
	return uci.Options{
		Threads:    e.cfg.Threads,
		HashMB:     e.cfg.HashMB,
		SkillLevel: analysisSkillLevel,
		MultiPV:    1,
	}
}

// StartEvaluation (re)starts continuous analysis of pos. cb gets each new result.
func (e *Engine) StartEvaluation(pos Position, cb EvaluationFunc) {
	e.ctl.Lock()
	defer e.ctl.Unlock()
	e.startEvaluation(pos, cb)
}

func (e *Engine) startEvaluation(pos Position, cb EvaluationFunc) {
	e.stopEvaluation()

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})

	e.mu.Lock()
	e.evalRun++
	run := e.evalRun
	e.evalCancel = cancel
	e.evalDone = done
	e.evalCB = cb
	e.mu.Unlock()

	e.logger.Debug("evaluation_start", zap.Uint64("run", run), zap.Int("ply", len(pos.Moves)))
	go e.evaluationLoop(ctx, run, pos.Clone(), cb, done)
}

// StopEvaluation cancels the running analysis and waits for it to finish.
func (e *Engine) StopEvaluation() {
	e.ctl.Lock()
	defer e.ctl.Unlock()
	e.stopEvaluation()
}

func (e *Engine) stopEvaluation() {
	e.mu.Lock()
	cancel, done := e.evalCancel, e.evalDone
	e.evalCancel, e.evalDone = nil, nil
	e.evalRun++
	e.mu.Unlock()

	if cancel == nil {
		return
	}
	cancel()
	<-done
}

// UpdateEvaluationPosition moves a running analysis to pos. It does nothing when idle.
func (e *Engine) UpdateEvaluationPosition(pos Position) {
	e.ctl.Lock()
	defer e.ctl.Unlock()
	e.mu.Lock()
	running := e.evalCancel != nil
	cb := e.evalCB
	e.mu.Unlock()
	if !running {
		return
	}
	e.startEvaluation(pos, cb)
}

// ResetEvaluationState stops analysis and forgets the last result.
func (e *Engine) ResetEvaluationState() {
	e.ctl.Lock()
	defer e.ctl.Unlock()
	e.stopEvaluation()
	e.mu.Lock()
	e.latest = nil
	e.evalCB = nil
	e.mu.Unlock()
}

func (e *Engine) Evaluating() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.evalCancel != nil
}

// Evaluation returns the most recent analysis result, if any.
func (e *Engine) Evaluation() (Evaluation, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.latest == nil {
		return Evaluation{}, false
	}
	ev := *e.latest
	ev.PV = append([]string(nil), ev.PV...)
	ev.PVUCI = append([]string(nil), ev.PVUCI...)
	return ev, true
}

func (e *Engine) evaluationLoop(ctx context.Context, run uint64, pos Position, cb EvaluationFunc, done chan struct{}) {
	defer close(done)

	var session *uci.Session
	defer func() {
		if session != nil {
			e.pool.Release(session, nil)
		}
	}()

	for {
		if session == nil {
			s, err := e.pool.Acquire(ctx, e.analysisOptions())
			if err != nil {
				if ctx.Err() != nil {
					return
				}
				e.logger.Warn("evaluation_acquire_error", zap.Uint64("run", run), zap.Error(err))
			} else {
				session = s
			}
		}

		if session != nil {
			ev, err := e.analyseWith(ctx, session, pos)
			switch {
			case ctx.Err() != nil:
				return
			case err != nil:
				e.logger.Warn("evaluation_error", zap.Uint64("run", run), zap.Error(err))
				if !session.Healthy() {
					e.pool.Release(session, err)
					session = nil
				}
			default:
				e.publish(run, ev, cb)
			}
		}

		select {
		case <-ctx.Done():
			return
		case <-time.After(e.cfg.EvalInterval):
		}
	}
}

func (e *Engine) publish(run uint64, ev Evaluation, cb EvaluationFunc) {
	e.mu.Lock()
	if run != e.evalRun {
		e.mu.Unlock()
		return
	}
	stored := ev
	e.latest = &stored
	e.mu.Unlock()

	if cb != nil {
		cb(ev)
	}
}

func (e *Engine) Close() error {
	e.StopEvaluation()
	if e.pool == nil {
		return nil
	}
	return e.pool.Close()
}

func isContextErr(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}
