package chess

import (
	nchess "github.com/corentings/chess/v2"
)

var (
	startingCounts = map[nchess.PieceType]int{
		nchess.Pawn:   8,
		nchess.Knight: 2,
		nchess.Bishop: 2,
		nchess.Rook:   2,
		nchess.Queen:  1,
	}
	pieceValues = map[nchess.PieceType]int{
		nchess.Pawn:   1,
		nchess.Knight: 3,
		nchess.Bishop: 3,
		nchess.Rook:   5,
		nchess.Queen:  9,
	}
	capturedOrder = []nchess.PieceType{nchess.Queen, nchess.Rook, nchess.Bishop, nchess.Knight, nchess.Pawn}
)

// MaterialScore is the piece value left on the board per side (pawn = 1).
type MaterialScore struct {
	White int `json:"white"`
	Black int `json:"black"`
}

func (m MaterialScore) Diff() int { return m.White - m.Black }

// CapturedPieces lists what each side has taken, most valuable first.
// White holds black pieces captured by White.
type CapturedPieces struct {
	White []nchess.PieceType
	Black []nchess.PieceType
}

func (c CapturedPieces) IsEmpty() bool { return len(c.White) == 0 && len(c.Black) == 0 }

// computeMaterial counts material on the board. Captures are derived from missing
// pieces, so promotions can make a side look short of pawns but never negative.
func computeMaterial(board *nchess.Board) (MaterialScore, CapturedPieces) {
	var score MaterialScore
	var captured CapturedPieces
	if board == nil {
		return score, captured
	}

	counts := map[nchess.Color]map[nchess.PieceType]int{
		nchess.White: {},
		nchess.Black: {},
	}
	for _, piece := range board.SquareMap() {
		pt := piece.Type()
		value := pieceValues[pt]
		if value == 0 {
			continue
		}
		counts[piece.Color()][pt]++
		if piece.Color() == nchess.White {
			score.White += value
		} else {
			score.Black += value
		}
	}

	for _, pt := range capturedOrder {
		for i := counts[nchess.Black][pt]; i < startingCounts[pt]; i++ {
			captured.White = append(captured.White, pt)
		}
		for i := counts[nchess.White][pt]; i < startingCounts[pt]; i++ {
			captured.Black = append(captured.Black, pt)
		}
	}
	return score, captured
}

func pieceTypeToken(pt nchess.PieceType) string {
	switch pt {
	case nchess.Queen:
		return "queen"
	case nchess.Rook:
		return "rook"
	case nchess.Bishop:
		return "bishop"
	case nchess.Knight:
		return "knight"
	case nchess.Pawn:
		return "pawn"
	case nchess.King:
		return "king"
	}
	return ""
}

// Tokens names the captured piece types, e.g. ["queen", "pawn"].
func Tokens(list []nchess.PieceType) []string {
	out := make([]string, 0, len(list))
	for _, pt := range list {
		out = append(out, pieceTypeToken(pt))
	}
	return out
}
