package chess

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	corechess "github.com/park285/cheese-chess/internal/chess"
	"github.com/park285/cheese-chess/internal/domain"
	"github.com/park285/cheese-chess/internal/game"
	"go.uber.org/zap"
)

func (s *Service) saveSession(ctx context.Context) {
	if s.store == nil {
		return
	}
	rec := &SessionRecord{
		SessionUUID: s.sessionUUID,
		Version:     s.version,
		State:       s.state.Snapshot(),
		StartedAt:   s.startedAt,
		EngineMoves: s.engineMoves,
		EngineTime:  s.engineTime,
	}
	err := s.store.Save(ctx, s.cfg.SessionKey, rec)
	if errors.Is(err, ErrSessionConflict) {
		// 다른 프로세스가 먼저 저장한 경우 최신 버전 위에 덮어쓴다
		if cur, lerr := s.store.Load(ctx, s.cfg.SessionKey); lerr == nil && cur != nil {
			rec.Version = cur.Version
			err = s.store.Save(ctx, s.cfg.SessionKey, rec)
		}
	}
	if err != nil {
		s.logger.Warn("chess session save failed", zap.String("session_uuid", s.sessionUUID), zap.Error(err))
		return
	}
	s.version = rec.Version
}

// Resume restores the session saved under the configured key.
func (s *Service) Resume(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.store == nil {
		return ErrSessionNotFound
	}
	rec, err := s.store.Load(ctx, s.cfg.SessionKey)
	if err != nil {
		return err
	}
	if rec == nil {
		return ErrSessionNotFound
	}

	if s.engine != nil {
		s.engine.StopEvaluation()
		s.engine.ResetEvaluationState()
	}
	if err := s.state.Restore(rec.State); err != nil {
		return fmt.Errorf("restore chess session: %w", err)
	}
	s.sessionUUID = rec.SessionUUID
	s.version = rec.Version
	s.startedAt = rec.StartedAt
	s.engineMoves = rec.EngineMoves
	s.engineTime = rec.EngineTime
	s.engineErr = nil

	if s.engine == nil {
		s.state.SetEvaluationMode(false)
	} else {
		if d := s.state.Difficulty(); d != "" {
			if err := s.engine.SetDifficulty(d); err != nil {
				s.logger.Warn("chess session difficulty", zap.String("difficulty", d), zap.Error(err))
			}
		}
		switch s.state.Phase() {
		case game.PhasePlaying, game.PhaseAnalysis:
			if s.state.EvaluationMode() {
				s.engine.StartEvaluation(s.state.Position(), s.publishEvaluation)
			}
		default:
			s.state.SetEvaluationMode(false)
		}
	}
	s.logger.Info("chess_session_resumed",
		zap.String("session_uuid", s.sessionUUID),
		zap.String("phase", string(s.state.Phase())),
		zap.Int("ply", s.state.Index()),
	)
	return nil
}

// DiscardSession removes the saved session.
func (s *Service) DiscardSession(ctx context.Context) error {
	if s.store == nil {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.version = 0
	return s.store.Delete(ctx, s.cfg.SessionKey)
}

func (s *Service) archiveIfPending(ctx context.Context) {
	if !s.archivePending {
		return
	}
	s.archivePending = false
	result, ok := s.state.Result()
	if !ok {
		return
	}

	rec := s.buildGameRecord(result)
	id, err := s.repo.InsertGame(ctx, rec)
	if errors.Is(err, ErrDuplicateGame) {
		existing, gerr := s.repo.GetGameBySession(ctx, rec.SessionUUID)
		if gerr == nil && existing != nil {
			id, err = existing.ID, nil
		}
	}
	if err != nil {
		s.logger.Warn("chess game archive failed", zap.String("session_uuid", rec.SessionUUID), zap.Error(err))
		return
	}
	s.lastGameID = id
	s.logger.Info("chess_game_archived",
		zap.Int64("game_id", id),
		zap.String("session_uuid", rec.SessionUUID),
		zap.String("result", rec.Result),
		zap.String("method", rec.ResultMethod),
		zap.Int("plies", len(rec.MovesUCI)),
		zap.Duration("duration", rec.Duration),
	)
}

func (s *Service) buildGameRecord(result game.Result) *domain.ChessGame {
	now := time.Now()
	started := s.startedAt
	if started.IsZero() {
		started = now
	}
	sessionUUID := s.sessionUUID
	if sessionUUID == "" {
		s.newSession()
		sessionUUID = s.sessionUUID
	}
	snap := s.state.Snapshot()
	code, title := s.state.Opening()

	rec := &domain.ChessGame{
		SessionUUID:   sessionUUID,
		Mode:          string(snap.Mode),
		Difficulty:    snap.Difficulty,
		PlayerColor:   string(snap.PlayerColor),
		StartFEN:      snap.StartFEN,
		Result:        result.PGNResult(),
		ResultMethod:  string(result.Method),
		ResultText:    result.String(),
		MovesUCI:      snap.Line,
		MovesSAN:      s.state.SANLine(),
		ECOCode:       code,
		ECOTitle:      title,
		StartedAt:     started,
		EndedAt:       now,
		Duration:      now.Sub(started),
		EngineMoves:   s.engineMoves,
		EngineLatency: s.engineTime,
	}
	rec.PGN = buildPGN(rec)
	return rec
}

func buildPGN(rec *domain.ChessGame) string {
	white, black := "Player 1", "Player 2"
	if rec.Mode == string(game.ModeSinglePlayer) {
		engine := "Stockfish"
		if rec.Difficulty != "" {
			engine = fmt.Sprintf("Stockfish (%s)", rec.Difficulty)
		}
		if rec.PlayerColor == string(game.Black) {
			white, black = engine, "Player"
		} else {
			white, black = "Player", engine
		}
	}

	var b strings.Builder
	header := func(k, v string) { fmt.Fprintf(&b, "[%s \"%s\"]\n", k, strings.ReplaceAll(v, `"`, `'`)) }
	header("Event", "Casual Game")
	header("Site", "cheese-chess")
	header("Date", rec.StartedAt.Format("2006.01.02"))
	header("White", white)
	header("Black", black)
	header("Result", rec.Result)
	if rec.StartFEN != "" {
		header("SetUp", "1")
		header("FEN", rec.StartFEN)
	}
	if rec.ECOCode != "" {
		header("ECO", rec.ECOCode)
		header("Opening", rec.ECOTitle)
	}
	header("Termination", rec.ResultText)
	b.WriteString("\n")

	startMove, blackFirst := 1, false
	if rec.StartFEN != "" {
		if g, err := corechess.NewGameFromFEN(rec.StartFEN); err == nil {
			blackFirst = g.Position().Turn().String() == "b"
			if n := fullMoveNumber(rec.StartFEN); n > 0 {
				startMove = n
			}
		}
	}
	moveNo := startMove
	for i, san := range rec.MovesSAN {
		whiteMove := (i%2 == 0) != blackFirst
		switch {
		case whiteMove:
			fmt.Fprintf(&b, "%d. %s ", moveNo, san)
		case i == 0:
			fmt.Fprintf(&b, "%d... %s ", moveNo, san)
			moveNo++
		default:
			fmt.Fprintf(&b, "%s ", san)
			moveNo++
		}
	}
	b.WriteString(rec.Result)
	b.WriteString("\n")
	return b.String()
}

func fullMoveNumber(fen string) int {
	fields := strings.Fields(fen)
	if len(fields) < 6 {
		return 0
	}
	var n int
	if _, err := fmt.Sscanf(fields[5], "%d", &n); err != nil {
		return 0
	}
	return n
}

// History lists the most recent archived games, newest first.
func (s *Service) History(ctx context.Context, limit int) ([]*domain.ChessGame, error) {
	if limit <= 0 || limit > maxHistoryLimit {
		limit = s.cfg.HistoryLimit
	}
	return s.repo.GetRecentGames(ctx, limit)
}

func (s *Service) Game(ctx context.Context, id int64) (*domain.ChessGame, error) {
	rec, err := s.repo.GetGame(ctx, id)
	if err != nil {
		return nil, err
	}
	if rec == nil {
		return nil, ErrGameNotFound
	}
	return rec, nil
}

// ReviewGame loads an archived game into analysis at its final position.
func (s *Service) ReviewGame(ctx context.Context, id int64) error {
	rec, err := s.Game(ctx, id)
	if err != nil {
		return err
	}
	return s.run(ctx, func() error {
		snap := game.Snapshot{
			Phase:       game.PhaseAnalysis,
			Mode:        game.Mode(rec.Mode),
			Difficulty:  rec.Difficulty,
			PlayerColor: game.Color(rec.PlayerColor),
			StartFEN:    rec.StartFEN,
			Line:        rec.MovesUCI,
			Index:       len(rec.MovesUCI),
			Tally:       s.state.Tally(),
		}
		if r, ok := resultFromRecord(rec); ok {
			snap.Result = &r
		}
		if s.engine != nil {
			s.engine.StopEvaluation()
		}
		if err := s.state.Restore(snap); err != nil {
			return fmt.Errorf("review game %d: %w", id, err)
		}
		s.newSession()
		if s.engine != nil {
			s.engine.ResetEvaluationState()
			s.state.SetEvaluationMode(true)
			s.engine.StartEvaluation(s.state.Position(), s.publishEvaluation)
		}
		return nil
	})
}

func resultFromRecord(rec *domain.ChessGame) (game.Result, bool) {
	r := game.Result{Method: game.Method(rec.ResultMethod)}
	switch rec.Result {
	case "1-0":
		r.Winner = game.White
	case "0-1":
		r.Winner = game.Black
	case "1/2-1/2":
	default:
		return game.Result{}, false
	}
	return r, true
}
