package chess

import (
	"context"
	"fmt"
	"strings"

	nchess "github.com/corentings/chess/v2"
	corechess "github.com/park285/cheese-chess/internal/chess"
	"github.com/park285/cheese-chess/internal/game"
)

// View is everything a front end needs to draw the current screen.
type View struct {
	SessionUUID string
	Phase       game.Phase
	Mode        game.Mode
	Difficulty  string
	PlayerColor game.Color
	Turn        game.Color
	FEN         string

	// Difficulties is filled on the difficulty screen, weakest first.
	Difficulties []string

	LastMove  string
	Selected  string
	Targets   []string
	Promotion *game.Promotion

	Index         int
	HistoryLength int
	AtLatest      bool
	MovesSAN      []string

	Result        *game.Result
	ResultText    string
	Tally         game.Tally
	DrawRequested bool
	InCheck       bool

	EvaluationMode bool
	ShowBestMove   bool
	Evaluation     *corechess.Evaluation
	// BestMove is set only when the best move is shown and legal on the board.
	BestMove    string
	BestMoveSAN string

	ECOCode  string
	ECOTitle string
	Material MaterialScore
	Captured CapturedPieces

	EngineAvailable bool
	EngineError     string
	LastGameID      int64
}

func (s *Service) View() View {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.viewLocked()
}

func (s *Service) viewLocked() View {
	st := s.state
	board := st.Board()
	v := View{
		SessionUUID:     s.sessionUUID,
		Phase:           st.Phase(),
		Mode:            st.Mode(),
		Difficulty:      st.Difficulty(),
		PlayerColor:     st.PlayerColor(),
		Turn:            st.Turn(),
		FEN:             st.FEN(),
		LastMove:        st.LastMove(),
		Selected:        st.Selected(),
		Targets:         st.Targets(),
		Promotion:       st.PendingPromotion(),
		Index:           st.Index(),
		HistoryLength:   st.HistoryLength(),
		AtLatest:        st.AtLatest(),
		MovesSAN:        st.SANLine(),
		Tally:           st.Tally(),
		DrawRequested:   st.DrawRequested(),
		InCheck:         inCheck(board),
		EvaluationMode:  st.EvaluationMode(),
		ShowBestMove:    st.ShowBestMove(),
		EngineAvailable: s.engine != nil,
		LastGameID:      s.lastGameID,
	}
	if v.Phase == game.PhaseDifficulty {
		v.Difficulties = corechess.PresetNames()
	}
	if r, ok := st.Result(); ok {
		v.Result = &r
		v.ResultText = r.String()
	}
	if s.engineErr != nil {
		v.EngineError = s.engineErr.Error()
	}
	v.ECOCode, v.ECOTitle = st.Opening()
	v.Material, v.Captured = computeMaterial(board.Position().Board())

	if v.EvaluationMode && s.engine != nil {
		if ev, ok := s.engine.Evaluation(); ok {
			v.Evaluation = &ev
			if v.ShowBestMove && ev.BestMove != "" && corechess.IsLegalUCI(board, ev.BestMove) {
				v.BestMove = ev.BestMove
				v.BestMoveSAN = ev.BestMoveSAN
				if ev.FEN != v.FEN || v.BestMoveSAN == "" {
					if san, err := corechess.PlayUCI(board.Clone(), ev.BestMove); err == nil {
						v.BestMoveSAN = san
					}
				}
			}
		}
	}
	return v
}

func inCheck(g *nchess.Game) bool {
	moves := g.Moves()
	if len(moves) == 0 {
		return false
	}
	return moves[len(moves)-1].HasTag(nchess.Check)
}

// RenderBoard draws the current board as PNG with the same overlays as the view.
func (s *Service) RenderBoard(ctx context.Context) ([]byte, error) {
	s.mu.Lock()
	v := s.viewLocked()
	board := s.state.Board().Position().Board()
	s.mu.Unlock()

	return s.renderer.RenderPNG(ctx, board, renderOptionsFor(v))
}

func renderOptionsFor(v View) RenderOptions {
	opts := RenderOptions{Header: boardHeader(v), Status: boardStatus(v)}
	if from, to, ok := corechess.SquaresOf(v.LastMove); ok {
		opts.LastMove = &MoveHighlight{From: from, To: to}
	}
	if v.Selected != "" {
		if sq, err := corechess.ParseSquare(v.Selected); err == nil {
			opts.Selected = &sq
		}
	}
	for _, t := range v.Targets {
		if sq, err := corechess.ParseSquare(t); err == nil {
			opts.Targets = append(opts.Targets, sq)
		}
	}
	if v.Evaluation != nil {
		share := v.Evaluation.BarFraction()
		opts.EvalShare = &share
	}
	if from, to, ok := corechess.SquaresOf(v.BestMove); ok {
		opts.BestMove = &MoveHighlight{From: from, To: to}
	}
	return opts
}

func boardHeader(v View) string {
	switch v.Mode {
	case game.ModeSinglePlayer:
		return fmt.Sprintf("Player 1: %d Stockfish: %d Draw: %d", v.Tally.Player, v.Tally.Engine, v.Tally.Draw)
	case game.ModeTwoPlayer:
		return fmt.Sprintf("Player 1: %d Player 2: %d Draw: %d", v.Tally.Player, v.Tally.Engine, v.Tally.Draw)
	}
	return ""
}

func boardStatus(v View) string {
	parts := []string{fmt.Sprintf("Move: %d/%d", v.Index+1, v.HistoryLength)}
	if v.Evaluation != nil {
		parts = append(parts, v.Evaluation.ScoreText())
	}
	if v.ResultText != "" {
		parts = append(parts, v.ResultText)
	}
	return strings.Join(parts, "  ")
}
