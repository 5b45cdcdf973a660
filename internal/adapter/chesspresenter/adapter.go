package chesspresenter

import (
	"errors"

	corechess "github.com/park285/cheese-chess/internal/chess"
	"github.com/park285/cheese-chess/internal/domain"
	"github.com/park285/cheese-chess/internal/game"
	svc "github.com/park285/cheese-chess/internal/service/chess"
	"github.com/park285/cheese-chess/pkg/chessdto"
)

func ToDTOView(v svc.View) *chessdto.View {
	out := &chessdto.View{
		SessionUUID:     v.SessionUUID,
		Phase:           string(v.Phase),
		Mode:            string(v.Mode),
		Difficulty:      v.Difficulty,
		Difficulties:    append([]string(nil), v.Difficulties...),
		PlayerColor:     string(v.PlayerColor),
		Turn:            string(v.Turn),
		FEN:             v.FEN,
		LastMove:        v.LastMove,
		Selected:        v.Selected,
		Targets:         append([]string(nil), v.Targets...),
		Index:           v.Index,
		HistoryLength:   v.HistoryLength,
		AtLatest:        v.AtLatest,
		MovesSAN:        append([]string(nil), v.MovesSAN...),
		ResultText:      v.ResultText,
		Tally:           chessdto.Tally{Player: v.Tally.Player, Engine: v.Tally.Engine, Draw: v.Tally.Draw},
		DrawRequested:   v.DrawRequested,
		InCheck:         v.InCheck,
		EvaluationMode:  v.EvaluationMode,
		ShowBestMove:    v.ShowBestMove,
		BestMove:        v.BestMove,
		BestMoveSAN:     v.BestMoveSAN,
		ECOCode:         v.ECOCode,
		ECOTitle:        v.ECOTitle,
		Material:        chessdto.MaterialScore{White: v.Material.White, Black: v.Material.Black},
		Captured:        chessdto.CapturedPieces{White: svc.Tokens(v.Captured.White), Black: svc.Tokens(v.Captured.Black)},
		EngineAvailable: v.EngineAvailable,
		EngineError:     v.EngineError,
		LastGameID:      v.LastGameID,
	}
	if v.Promotion != nil {
		out.Promotion = &chessdto.Promotion{From: v.Promotion.From, To: v.Promotion.To, Choices: append([]string(nil), v.Promotion.Choices...)}
	}
	if v.Result != nil {
		out.Result = v.Result.PGNResult()
		out.ResultMethod = string(v.Result.Method)
	}
	if v.Evaluation != nil {
		out.Evaluation = ToDTOEvaluation(*v.Evaluation)
	}
	return out
}

func ToDTOEvaluation(ev corechess.Evaluation) *chessdto.Evaluation {
	return &chessdto.Evaluation{
		FEN:         ev.FEN,
		Score:       ev.Score,
		ScoreText:   ev.ScoreText(),
		IsMate:      ev.IsMate,
		MateIn:      ev.MateIn,
		BarWhite:    ev.BarFraction(),
		BestMove:    ev.BestMove,
		BestMoveSAN: ev.BestMoveSAN,
		PV:          append([]string(nil), ev.PV...),
		Depth:       ev.Depth,
		At:          ev.At,
	}
}

func ToDTOGames(list []*domain.ChessGame) []*chessdto.ChessGame {
	out := make([]*chessdto.ChessGame, 0, len(list))
	for _, g := range list {
		if g == nil {
			continue
		}
		out = append(out, ToDTOGame(g))
	}
	return out
}

func ToDTOGame(g *domain.ChessGame) *chessdto.ChessGame {
	if g == nil {
		return nil
	}
	gg := *g
	return &chessdto.ChessGame{
		ID:            gg.ID,
		SessionUUID:   gg.SessionUUID,
		Mode:          gg.Mode,
		Difficulty:    gg.Difficulty,
		PlayerColor:   gg.PlayerColor,
		StartFEN:      gg.StartFEN,
		Result:        gg.Result,
		ResultMethod:  gg.ResultMethod,
		ResultText:    gg.ResultText,
		MovesUCI:      append([]string(nil), gg.MovesUCI...),
		MovesSAN:      append([]string(nil), gg.MovesSAN...),
		PGN:           gg.PGN,
		ECOCode:       gg.ECOCode,
		ECOTitle:      gg.ECOTitle,
		StartedAt:     gg.StartedAt,
		EndedAt:       gg.EndedAt,
		Duration:      gg.Duration,
		EngineMoves:   gg.EngineMoves,
		EngineLatency: gg.EngineLatency,
	}
}

// ToDomainError classifies err for front ends. nil stays nil.
func ToDomainError(err error) *chessdto.DomainError {
	if err == nil {
		return nil
	}
	var de chessdto.DomainError
	if errors.As(err, &de) {
		return &de
	}
	code, retryable := chessdto.CodeInternal, false
	switch {
	case errors.Is(err, game.ErrInvalidPhase):
		code = chessdto.CodeInvalidPhase
	case errors.Is(err, game.ErrNotYourTurn):
		code = chessdto.CodeNotYourTurn
	case errors.Is(err, corechess.ErrIllegalMove):
		code = chessdto.CodeIllegalMove
	case errors.Is(err, game.ErrNoPendingPromotion), errors.Is(err, game.ErrPromotionPending), errors.Is(err, game.ErrInvalidPromotion):
		code = chessdto.CodePromotion
	case errors.Is(err, game.ErrDrawNotClaimable):
		code = chessdto.CodeDrawNotClaimable
	case errors.Is(err, game.ErrTwoPlayerOnly):
		code = chessdto.CodeTwoPlayerOnly
	case errors.Is(err, svc.ErrEvaluationOff):
		code = chessdto.CodeEvaluationOff
	case errors.Is(err, svc.ErrEngineTimeout):
		code, retryable = chessdto.CodeEngineTimeout, true
	case errors.Is(err, svc.ErrEngineUnavailable):
		code, retryable = chessdto.CodeEngineUnavailable, true
	case errors.Is(err, svc.ErrGameNotFound), errors.Is(err, svc.ErrSessionNotFound):
		code = chessdto.CodeNotFound
	case errors.Is(err, svc.ErrUnknownCommand):
		code = chessdto.CodeUnknownCommand
	case errors.Is(err, corechess.ErrInvalidFEN), errors.Is(err, corechess.ErrUnknownDifficulty), errors.Is(err, corechess.ErrInvalidSquare), errors.Is(err, game.ErrInvalidColor), errors.Is(err, svc.ErrInvalidArgument):
		code = chessdto.CodeInvalidInput
	}
	return &chessdto.DomainError{Code: code, Message: err.Error(), Retryable: retryable}
}
