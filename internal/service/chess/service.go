package chess

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	corechess "github.com/park285/cheese-chess/internal/chess"
	"github.com/park285/cheese-chess/internal/game"
	"go.uber.org/zap"
)

var (
	ErrEngineUnavailable = errors.New("chess engine unavailable")
	ErrEngineTimeout     = errors.New("chess engine timeout")
	ErrGameNotFound      = errors.New("chess game not found")
	ErrSessionNotFound   = errors.New("chess session not found")
	ErrEvaluationOff     = errors.New("evaluation is off")
)

const (
	maxHistoryLimit         = 50
	engineMoveFallback      = 5 * time.Second
	engineMoveTimeoutBuffer = 800 * time.Millisecond
)

// Engine is the part of the engine manager the service drives.
type Engine interface {
	SetDifficulty(name string) error
	BestMove(ctx context.Context, pos corechess.Position, difficulty string) (corechess.MoveResult, error)
	StartEvaluation(pos corechess.Position, cb corechess.EvaluationFunc)
	StopEvaluation()
	UpdateEvaluationPosition(pos corechess.Position)
	ResetEvaluationState()
	Evaluation() (corechess.Evaluation, bool)
}

type Config struct {
	// SessionKey names the live session in the SessionStore.
	SessionKey   string
	HistoryLimit int
	// MoveTimeout bounds one engine move. Zero derives it from the difficulty.
	MoveTimeout time.Duration
}

// Service is the input handler: it turns commands into game state changes, drives
// the engine and keeps the session and the archive up to date. Safe for concurrent use.
type Service struct {
	mu       sync.Mutex
	state    *game.State
	engine   Engine
	store    SessionStore
	repo     Repository
	renderer BoardRenderer
	cfg      Config
	logger   *zap.Logger

	sessionUUID    string
	version        int64
	startedAt      time.Time
	engineMoves    int
	engineTime     time.Duration
	engineErr      error
	archivePending bool
	lastGameID     int64

	listenersMu sync.RWMutex
	listeners   []func(corechess.Evaluation)
}

// NewService wires the service. engine and store may be nil: without an engine only
// two player games and the archive work, without a store nothing is resumed.
func NewService(engine Engine, store SessionStore, repo Repository, renderer BoardRenderer, cfg Config, logger *zap.Logger) (*Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("chess repository is required")
	}
	if renderer == nil {
		return nil, fmt.Errorf("board renderer is required")
	}
	if strings.TrimSpace(cfg.SessionKey) == "" {
		cfg.SessionKey = "local"
	}
	if cfg.HistoryLimit <= 0 || cfg.HistoryLimit > maxHistoryLimit {
		cfg.HistoryLimit = 10
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	s := &Service{
		state:    game.New(),
		engine:   engine,
		store:    store,
		repo:     repo,
		renderer: renderer,
		cfg:      cfg,
		logger:   logger,
	}
	s.state.SetPhaseHook(s.onPhase)
	s.state.SetPositionHook(s.onPosition)
	return s, nil
}

// OnEvaluation registers fn for every evaluation round. fn runs on the engine's
// evaluation goroutine and must not call back into the Service.
func (s *Service) OnEvaluation(fn func(corechess.Evaluation)) {
	if fn == nil {
		return
	}
	s.listenersMu.Lock()
	s.listeners = append(s.listeners, fn)
	s.listenersMu.Unlock()
}

func (s *Service) publishEvaluation(ev corechess.Evaluation) {
	s.listenersMu.RLock()
	listeners := slices.Clone(s.listeners)
	s.listenersMu.RUnlock()
	for _, fn := range listeners {
		fn(ev)
	}
}

func (s *Service) EngineAvailable() bool { return s.engine != nil }

// run executes fn under the lock, then archives a finished game and saves the session.
func (s *Service) run(ctx context.Context, fn func() error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	err := fn()
	s.archiveIfPending(ctx)
	if err == nil {
		s.saveSession(ctx)
	}
	return err
}

func (s *Service) onPhase(old, next game.Phase) {
	live := func(p game.Phase) bool { return p == game.PhasePlaying || p == game.PhaseAnalysis }

	if live(old) && !live(next) {
		s.state.SetEvaluationMode(false)
		if s.engine != nil {
			s.engine.StopEvaluation()
		}
	}
	if next == game.PhaseMenu || (next == game.PhasePlaying && old != game.PhaseDifficulty) {
		if s.engine != nil {
			s.engine.ResetEvaluationState()
		}
	}
	if next == game.PhaseAnalysis && !s.state.EvaluationMode() && s.engine != nil {
		s.state.SetEvaluationMode(true)
		s.engine.StartEvaluation(s.state.Position(), s.publishEvaluation)
	}
	if old == game.PhasePlaying && next == game.PhaseGameOver {
		s.archivePending = true
	}
	s.logger.Debug("chess_phase", zap.String("from", string(old)), zap.String("to", string(next)))
}

func (s *Service) onPosition(pos corechess.Position) {
	if s.state.EvaluationMode() && s.engine != nil {
		s.engine.UpdateEvaluationPosition(pos)
	}
}

func (s *Service) newSession() {
	s.sessionUUID = uuid.NewString()
	s.startedAt = time.Now()
	s.engineMoves = 0
	s.engineTime = 0
	s.engineErr = nil
}

func (s *Service) ChooseSinglePlayer(ctx context.Context) error {
	return s.run(ctx, func() error {
		if s.state.Phase() != game.PhaseMenu {
			return game.ErrInvalidPhase
		}
		if s.engine == nil {
			return ErrEngineUnavailable
		}
		s.state.SetPhase(game.PhaseColorSelect)
		return nil
	})
}

func (s *Service) ChooseTwoPlayer(ctx context.Context) error {
	return s.run(ctx, func() error {
		if s.state.Phase() != game.PhaseMenu {
			return game.ErrInvalidPhase
		}
		s.state.SetPlayerColor(game.White)
		s.state.StartGame(game.ModeTwoPlayer, "")
		s.newSession()
		s.logger.Info("chess_game_started", zap.String("session_uuid", s.sessionUUID), zap.String("mode", string(game.ModeTwoPlayer)))
		return nil
	})
}

// StartFromFEN begins a two player game from an arbitrary position.
func (s *Service) StartFromFEN(ctx context.Context, fen string) error {
	return s.run(ctx, func() error {
		if s.state.Phase() != game.PhaseMenu {
			return game.ErrInvalidPhase
		}
		s.state.SetPlayerColor(game.White)
		if err := s.state.StartFromFEN(fen); err != nil {
			return err
		}
		s.newSession()
		return nil
	})
}

func (s *Service) ChooseColor(ctx context.Context, color string) error {
	return s.run(ctx, func() error {
		if s.state.Phase() != game.PhaseColorSelect {
			return game.ErrInvalidPhase
		}
		c, err := game.ParseColor(color)
		if err != nil {
			return err
		}
		s.state.SetPlayerColor(c)
		s.state.SetPhase(game.PhaseDifficulty)
		return nil
	})
}

// ChooseDifficulty starts a single player game. The engine opens when the player is Black.
func (s *Service) ChooseDifficulty(ctx context.Context, name string) error {
	return s.run(ctx, func() error {
		if s.state.Phase() != game.PhaseDifficulty {
			return game.ErrInvalidPhase
		}
		if s.engine == nil {
			return ErrEngineUnavailable
		}
		preset, err := corechess.GetPreset(name)
		if err != nil {
			return err
		}
		if err := s.engine.SetDifficulty(preset.Name); err != nil {
			return err
		}
		s.state.StartGame(game.ModeSinglePlayer, preset.Name)
		s.newSession()
		s.logger.Info("chess_game_started",
			zap.String("session_uuid", s.sessionUUID),
			zap.String("mode", string(game.ModeSinglePlayer)),
			zap.String("difficulty", preset.Name),
			zap.String("player_color", string(s.state.PlayerColor())),
		)
		if s.state.EngineToMove() {
			s.engineReply(ctx)
		}
		return nil
	})
}

// MainMenu returns to the menu from any other phase. The tally starts over.
func (s *Service) MainMenu(ctx context.Context) error {
	return s.run(ctx, func() error {
		if s.state.Phase() == game.PhaseMenu {
			return game.ErrInvalidPhase
		}
		s.state.SetPhase(game.PhaseMenu)
		s.sessionUUID = ""
		return nil
	})
}

// Back steps one move back while playing or analysing, and one screen back in the
// colour and difficulty menus.
func (s *Service) Back(ctx context.Context) error {
	return s.run(ctx, func() error {
		switch s.state.Phase() {
		case game.PhaseColorSelect:
			s.state.SetPhase(game.PhaseMenu)
		case game.PhaseDifficulty:
			s.state.SetPhase(game.PhaseColorSelect)
		case game.PhasePlaying, game.PhaseAnalysis:
			s.state.GoBack()
		default:
			return game.ErrInvalidPhase
		}
		return nil
	})
}

func (s *Service) Forward(ctx context.Context) error {
	return s.run(ctx, func() error {
		switch s.state.Phase() {
		case game.PhasePlaying, game.PhaseAnalysis:
			s.state.GoForward()
			return nil
		}
		return game.ErrInvalidPhase
	})
}

// GoTo shows the position after ply moves of the line (0 is the start).
func (s *Service) GoTo(ctx context.Context, ply int) error {
	return s.run(ctx, func() error {
		switch s.state.Phase() {
		case game.PhasePlaying, game.PhaseAnalysis:
		default:
			return game.ErrInvalidPhase
		}
		if ply < 0 || ply > s.state.HistoryLength()-1 {
			return fmt.Errorf("%w: ply %d outside 0-%d", ErrInvalidArgument, ply, s.state.HistoryLength()-1)
		}
		s.state.GoTo(ply)
		return nil
	})
}

// ClickSquare is a board click on square.
func (s *Service) ClickSquare(ctx context.Context, square string) (game.ClickOutcome, error) {
	var outcome game.ClickOutcome
	err := s.run(ctx, func() error {
		out, _, err := s.state.Select(square)
		outcome = out
		if err != nil {
			return err
		}
		if out == game.ClickMoved {
			s.afterPlayerMove(ctx)
		}
		return nil
	})
	return outcome, err
}

// PlayMove plays a move typed as UCI or SAN.
func (s *Service) PlayMove(ctx context.Context, text string) error {
	return s.run(ctx, func() error {
		if err := s.state.CanEditBoard(); err != nil {
			return err
		}
		if s.state.PendingPromotion() != nil {
			return game.ErrPromotionPending
		}
		mv, err := corechess.ParseMove(s.state.Board(), text)
		if err != nil {
			return err
		}
		if _, err := s.state.MakeMove(mv); err != nil {
			return err
		}
		s.afterPlayerMove(ctx)
		return nil
	})
}

func (s *Service) Promote(ctx context.Context, piece string) error {
	return s.run(ctx, func() error {
		if _, err := s.state.Promote(piece); err != nil {
			return err
		}
		s.afterPlayerMove(ctx)
		return nil
	})
}

func (s *Service) CancelPromotion(ctx context.Context) error {
	return s.run(ctx, func() error { return s.state.CancelPromotion() })
}

func (s *Service) afterPlayerMove(ctx context.Context) {
	if s.state.EngineToMove() {
		s.engineReply(ctx)
	}
}

// engineReply plays the engine's move. On failure the turn stays with the engine
// and the error is kept for the view until RetryEngine succeeds.
func (s *Service) engineReply(ctx context.Context) {
	if s.engine == nil {
		s.engineErr = ErrEngineUnavailable
		return
	}
	difficulty := s.state.Difficulty()
	timeout := s.moveTimeout(difficulty)
	moveCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	res, err := s.engine.BestMove(moveCtx, s.state.Position(), difficulty)
	if err != nil {
		s.engineErr = mapEngineError(err)
		s.logger.Warn("chess engine move failed",
			zap.Error(err),
			zap.String("session_uuid", s.sessionUUID),
			zap.String("difficulty", difficulty),
			zap.Int("ply", s.state.Index()),
			zap.Duration("timeout", timeout),
		)
		return
	}
	if _, err := s.state.MakeMove(res.Move); err != nil {
		s.engineErr = fmt.Errorf("%w: %v", ErrEngineUnavailable, err)
		s.logger.Warn("chess engine move rejected", zap.String("move", res.Move), zap.Error(err))
		return
	}
	s.engineErr = nil
	s.engineMoves++
	s.engineTime += res.Duration
}

// RetryEngine asks the engine again after a failed reply.
func (s *Service) RetryEngine(ctx context.Context) error {
	return s.run(ctx, func() error {
		if !s.state.EngineToMove() {
			return game.ErrInvalidPhase
		}
		s.engineReply(ctx)
		return s.engineErr
	})
}

func (s *Service) moveTimeout(difficulty string) time.Duration {
	if s.cfg.MoveTimeout > 0 {
		return s.cfg.MoveTimeout
	}
	preset, err := corechess.GetPreset(difficulty)
	if err != nil {
		return engineMoveFallback
	}
	timeout := 2 * (time.Duration(preset.MoveTimeMillis)*time.Millisecond + engineMoveTimeoutBuffer)
	if timeout < engineMoveFallback {
		return engineMoveFallback
	}
	return timeout
}

func mapEngineError(err error) error {
	if err == nil {
		return ErrEngineUnavailable
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) || strings.Contains(strings.ToLower(err.Error()), "timeout") {
		return ErrEngineTimeout
	}
	return ErrEngineUnavailable
}

func (s *Service) Resign(ctx context.Context) error {
	return s.run(ctx, func() error {
		_, err := s.state.Resign()
		return err
	})
}

// RequestDraw asks for a draw in two player games. It reports true when the request
// was accepted and the game ended.
func (s *Service) RequestDraw(ctx context.Context) (bool, error) {
	var accepted bool
	err := s.run(ctx, func() error {
		ok, err := s.state.RequestDraw()
		accepted = ok
		return err
	})
	return accepted, err
}

func (s *Service) DeclineDraw(ctx context.Context) error {
	return s.run(ctx, func() error { return s.state.DeclineDraw() })
}

func (s *Service) ClaimDraw(ctx context.Context) error {
	return s.run(ctx, func() error {
		_, err := s.state.ClaimDraw()
		return err
	})
}

// ToggleEvaluation switches the background evaluation on or off.
func (s *Service) ToggleEvaluation(ctx context.Context) error {
	return s.run(ctx, func() error {
		switch s.state.Phase() {
		case game.PhasePlaying, game.PhaseAnalysis:
		default:
			return game.ErrInvalidPhase
		}
		if s.engine == nil {
			return ErrEngineUnavailable
		}
		if s.state.ToggleEvaluation() {
			s.engine.StartEvaluation(s.state.Position(), s.publishEvaluation)
		} else {
			s.engine.StopEvaluation()
		}
		return nil
	})
}

func (s *Service) ToggleBestMove(ctx context.Context) error {
	return s.run(ctx, func() error {
		if !s.state.EvaluationMode() {
			return ErrEvaluationOff
		}
		s.state.ToggleBestMove()
		return nil
	})
}

// Analyze opens the finished game for analysis with evaluation on.
func (s *Service) Analyze(ctx context.Context) error {
	return s.run(ctx, func() error {
		if s.state.Phase() != game.PhaseGameOver {
			return game.ErrInvalidPhase
		}
		s.state.SetPhase(game.PhaseAnalysis)
		return nil
	})
}

// BackToGameOver leaves analysis for the result screen.
func (s *Service) BackToGameOver(ctx context.Context) error {
	return s.run(ctx, func() error {
		if s.state.Phase() != game.PhaseAnalysis {
			return game.ErrInvalidPhase
		}
		s.state.SetPhase(game.PhaseGameOver)
		return nil
	})
}

// PlayAgain starts a new game with the same mode, colour and difficulty.
func (s *Service) PlayAgain(ctx context.Context) error {
	return s.run(ctx, func() error {
		if s.state.Phase() != game.PhaseGameOver {
			return game.ErrInvalidPhase
		}
		s.state.ResetAndPlay()
		s.newSession()
		if s.state.EngineToMove() {
			s.engineReply(ctx)
		}
		return nil
	})
}

// Close stops the evaluation and saves the session one last time.
func (s *Service) Close(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.engine != nil {
		s.engine.StopEvaluation()
	}
	s.saveSession(ctx)
}
