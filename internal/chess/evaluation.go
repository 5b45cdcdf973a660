package chess

import (
	"fmt"
	"time"

	nchess "github.com/corentings/chess/v2"
	"github.com/park285/cheese-chess/internal/chess/uci"
)

const (
	// MateScore stands in for a forced mate in Evaluation.Score.
	MateScore = uci.MateValue
	// mateThreshold separates mate scores from ordinary centipawn scores.
	mateThreshold = 10000
	barClampCP    = 1000
)

// Evaluation is one analysis round. Score is always from White's point of view.
type Evaluation struct {
	FEN         string    `json:"fen"`
	BestMove    string    `json:"best_move,omitempty"`
	BestMoveSAN string    `json:"best_move_san,omitempty"`
	Score       int       `json:"score"`
	IsMate      bool      `json:"is_mate"`
	MateIn      int       `json:"mate_in,omitempty"`
	PV          []string  `json:"pv,omitempty"`
	PVUCI       []string  `json:"pv_uci,omitempty"`
	Depth       int       `json:"depth"`
	At          time.Time `json:"at"`
}

// NewEvaluation turns a search result into a White-relative evaluation of game's
// current position. The best move is kept only when it is legal there.
func NewEvaluation(game *nchess.Game, resp uci.SearchResponse, pvLength int) Evaluation {
	ev := Evaluation{FEN: game.FEN(), At: time.Now()}

	var principal []string
	if len(resp.Candidates) > 0 {
		top := resp.Candidates[0]
		principal = top.Principal
		ev.Depth = top.Depth

		cp := top.Score.Centipawns()
		if game.Position().Turn() == nchess.Black {
			cp = -cp
		}
		ev.Score = cp
		if top.Score.Mate {
			ev.IsMate = true
			ev.MateIn = abs(top.Score.Value)
		}
	}

	best := resp.BestMove
	if len(principal) > 0 {
		best = principal[0]
	}
	if best != "" && IsLegalUCI(game, best) {
		ev.BestMove = best
		ev.BestMoveSAN = SANLine(game, []string{best}, 1)[0]
	}

	ev.PV = SANLine(game, principal, pvLength)
	ev.PVUCI = append([]string(nil), principal[:len(ev.PV)]...)
	return ev
}

// ScoreText renders the score the way the evaluation bar labels it.
func (e Evaluation) ScoreText() string {
	return FormatScore(e.Score, e.IsMate, e.MateIn)
}

// BarFraction is White's share of the evaluation bar in [0,1].
func (e Evaluation) BarFraction() float64 {
	return EvalBarFraction(e.Score)
}

func FormatScore(score int, isMate bool, mateIn int) string {
	if isMate && abs(score) > mateThreshold {
		return fmt.Sprintf("Mate in %d", mateIn)
	}
	if abs(score) > barClampCP {
		return fmt.Sprintf("%+.1f", float64(score)/100)
	}
	return fmt.Sprintf("%+.2f", float64(score)/100)
}

func EvalBarFraction(score int) float64 {
	if abs(score) > mateThreshold {
		if score > 0 {
			return 1
		}
		return 0
	}
	clamped := score
	if clamped > barClampCP {
		clamped = barClampCP
	}
	if clamped < -barClampCP {
		clamped = -barClampCP
	}
	return float64(clamped+barClampCP) / float64(2*barClampCP)
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
