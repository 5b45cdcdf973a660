package chess

import (
	"errors"
	"fmt"
	"strings"

	nchess "github.com/corentings/chess/v2"
)

var (
	ErrIllegalMove   = errors.New("illegal move")
	ErrInvalidFEN    = errors.New("invalid fen")
	ErrInvalidSquare = errors.New("invalid square")
)

// Position is a start position plus the UCI moves played from it.
// It is what gets sent to the engine and what gets replayed to rebuild a board.
type Position struct {
	FEN   string   `json:"fen,omitempty"`
	Moves []string `json:"moves,omitempty"`
}

func (p Position) Clone() Position {
	return Position{FEN: p.FEN, Moves: append([]string(nil), p.Moves...)}
}

// Replay rebuilds the game, rejecting the first move that is not legal.
func (p Position) Replay() (*nchess.Game, error) {
	game, err := NewGameFromFEN(p.FEN)
	if err != nil {
		return nil, err
	}
	for _, mv := range p.Moves {
		if _, err := PlayUCI(game, mv); err != nil {
			return nil, err
		}
	}
	return game, nil
}

// NewGameFromFEN returns a fresh game; an empty FEN means the standard start.
func NewGameFromFEN(fen string) (*nchess.Game, error) {
	fen = strings.TrimSpace(fen)
	if fen == "" || fen == "startpos" {
		return nchess.NewGame(), nil
	}
	opt, err := nchess.FEN(fen)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidFEN, err)
	}
	return nchess.NewGame(opt), nil
}

// PlayUCI applies a UCI move to game and returns its SAN.
func PlayUCI(game *nchess.Game, uciMove string) (string, error) {
	text := strings.ToLower(strings.TrimSpace(uciMove))
	if text == "" {
		return "", fmt.Errorf("%w: empty", ErrIllegalMove)
	}
	before := game.Position()
	if err := game.PushNotationMove(text, nchess.UCINotation{}, nil); err != nil {
		return "", fmt.Errorf("%w: %s", ErrIllegalMove, text)
	}
	moves := game.Moves()
	return nchess.AlgebraicNotation{}.Encode(before, moves[len(moves)-1]), nil
}

// ParseMove accepts UCI (e2e4, e7e8q) or SAN (Nf3, exd5) and returns the UCI form.
func ParseMove(game *nchess.Game, text string) (string, error) {
	raw := strings.TrimSpace(text)
	if raw == "" {
		return "", fmt.Errorf("%w: empty", ErrIllegalMove)
	}
	if IsLegalUCI(game, strings.ToLower(raw)) {
		return strings.ToLower(raw), nil
	}
	clone := game.Clone()
	if err := clone.PushNotationMove(raw, nchess.AlgebraicNotation{}, nil); err != nil {
		return "", fmt.Errorf("%w: %s", ErrIllegalMove, raw)
	}
	moves := clone.Moves()
	return moves[len(moves)-1].String(), nil
}

// LegalMovesUCI lists the legal moves of the current position.
func LegalMovesUCI(game *nchess.Game) []string {
	valid := game.ValidMoves()
	out := make([]string, 0, len(valid))
	for _, mv := range valid {
		out = append(out, mv.String())
	}
	return out
}

func IsLegalUCI(game *nchess.Game, uciMove string) bool {
	for _, mv := range LegalMovesUCI(game) {
		if mv == uciMove {
			return true
		}
	}
	return false
}

// SANLine converts up to limit UCI moves into SAN, stopping at the first illegal one.
func SANLine(game *nchess.Game, uciMoves []string, limit int) []string {
	if limit <= 0 || limit > len(uciMoves) {
		limit = len(uciMoves)
	}
	clone := game.Clone()
	out := make([]string, 0, limit)
	for _, mv := range uciMoves[:limit] {
		san, err := PlayUCI(clone, mv)
		if err != nil {
			break
		}
		out = append(out, san)
	}
	return out
}

// SANMoves returns the SAN of every move played in game.
func SANMoves(game *nchess.Game) []string {
	positions := game.Positions()
	moves := game.Moves()
	out := make([]string, len(moves))
	notation := nchess.AlgebraicNotation{}
	for i, mv := range moves {
		if i < len(positions) {
			out[i] = notation.Encode(positions[i], mv)
		}
	}
	return out
}

// ParseSquare reads algebraic coordinates such as "e4".
func ParseSquare(text string) (nchess.Square, error) {
	s := strings.ToLower(strings.TrimSpace(text))
	if len(s) != 2 || s[0] < 'a' || s[0] > 'h' || s[1] < '1' || s[1] > '8' {
		return nchess.NoSquare, fmt.Errorf("%w %q", ErrInvalidSquare, text)
	}
	return nchess.NewSquare(nchess.File(s[0]-'a'), nchess.Rank(s[1]-'1')), nil
}

// SquaresOf splits a UCI move into its origin and destination squares.
func SquaresOf(uciMove string) (nchess.Square, nchess.Square, bool) {
	if len(uciMove) < 4 {
		return nchess.NoSquare, nchess.NoSquare, false
	}
	from, err := ParseSquare(uciMove[0:2])
	if err != nil {
		return nchess.NoSquare, nchess.NoSquare, false
	}
	to, err := ParseSquare(uciMove[2:4])
	if err != nil {
		return nchess.NoSquare, nchess.NoSquare, false
	}
	return from, to, true
}
