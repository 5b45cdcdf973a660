package chess

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
)

var (
	ErrUnknownCommand  = errors.New("unknown command")
	ErrInvalidArgument = errors.New("invalid argument")
)

// Commands lists the names Dispatch understands.
var Commands = []string{
	"single", "two", "fen", "color", "difficulty", "menu", "back", "forward",
	"click", "move", "promote", "cancel", "resign", "draw", "decline", "claim",
	"eval", "best", "analyze", "end", "again", "retry", "review", "resume",
	"goto", "discard",
}

// Dispatch runs the command called name with its argument. It is the shared entry
// point of the terminal and HTTP front ends.
func (s *Service) Dispatch(ctx context.Context, name, arg string) error {
	arg = strings.TrimSpace(arg)
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "single":
		return s.ChooseSinglePlayer(ctx)
	case "two":
		return s.ChooseTwoPlayer(ctx)
	case "fen":
		return s.StartFromFEN(ctx, arg)
	case "color":
		return s.ChooseColor(ctx, arg)
	case "difficulty":
		return s.ChooseDifficulty(ctx, arg)
	case "menu":
		return s.MainMenu(ctx)
	case "back":
		return s.Back(ctx)
	case "forward":
		return s.Forward(ctx)
	case "click":
		_, err := s.ClickSquare(ctx, arg)
		return err
	case "move":
		return s.PlayMove(ctx, arg)
	case "promote":
		return s.Promote(ctx, arg)
	case "cancel":
		return s.CancelPromotion(ctx)
	case "resign":
		return s.Resign(ctx)
	case "draw":
		_, err := s.RequestDraw(ctx)
		return err
	case "decline":
		return s.DeclineDraw(ctx)
	case "claim":
		return s.ClaimDraw(ctx)
	case "eval":
		return s.ToggleEvaluation(ctx)
	case "best":
		return s.ToggleBestMove(ctx)
	case "analyze":
		return s.Analyze(ctx)
	case "end":
		return s.BackToGameOver(ctx)
	case "again":
		return s.PlayAgain(ctx)
	case "retry":
		return s.RetryEngine(ctx)
	case "review":
		id, err := strconv.ParseInt(arg, 10, 64)
		if err != nil {
			return fmt.Errorf("%w: game id %q", ErrInvalidArgument, arg)
		}
		return s.ReviewGame(ctx, id)
	case "resume":
		return s.Resume(ctx)
	case "discard":
		return s.DiscardSession(ctx)
	case "goto":
		ply, err := strconv.Atoi(arg)
		if err != nil {
			return fmt.Errorf("%w: ply %q", ErrInvalidArgument, arg)
		}
		return s.GoTo(ctx, ply)
	}
	return fmt.Errorf("%w: %s", ErrUnknownCommand, name)
}
