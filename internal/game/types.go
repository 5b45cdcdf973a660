package game

import (
	"errors"
	"fmt"
	"strings"

	nchess "github.com/corentings/chess/v2"
)

var (
	ErrInvalidPhase       = errors.New("action not available in this phase")
	ErrNotYourTurn        = errors.New("not your turn")
	ErrNoPendingPromotion = errors.New("no pending promotion")
	ErrPromotionPending   = errors.New("promotion choice pending")
	ErrInvalidPromotion   = errors.New("invalid promotion piece")
	ErrDrawNotClaimable   = errors.New("no draw can be claimed")
	ErrTwoPlayerOnly      = errors.New("only available in two player games")
	ErrInvalidColor       = errors.New("invalid colour")
)

type Phase string

const (
	PhaseMenu        Phase = "menu"
	PhaseColorSelect Phase = "color_select"
	PhaseDifficulty  Phase = "difficulty"
	PhasePlaying     Phase = "playing"
	PhaseGameOver    Phase = "game_over"
	PhaseAnalysis    Phase = "analysis"
)

type Mode string

const (
	ModeNone         Mode = ""
	ModeSinglePlayer Mode = "singleplayer"
	ModeTwoPlayer    Mode = "multiplayer"
)

type Color string

const (
	White Color = "white"
	Black Color = "black"
)

func (c Color) Other() Color {
	if c == Black {
		return White
	}
	return Black
}

// Title is the capitalised colour used in result text.
func (c Color) Title() string {
	if c == Black {
		return "Black"
	}
	return "White"
}

func ParseColor(s string) (Color, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "white", "w":
		return White, nil
	case "black", "b":
		return Black, nil
	}
	return "", fmt.Errorf("%w %q", ErrInvalidColor, s)
}

func colorOf(c nchess.Color) Color {
	if c == nchess.Black {
		return Black
	}
	return White
}

// Tally counts finished games from the local player's side.
type Tally struct {
	Player int `json:"player"`
	Engine int `json:"engine"`
	Draw   int `json:"draw"`
}

type Method string

const (
	MethodCheckmate            Method = "checkmate"
	MethodStalemate            Method = "stalemate"
	MethodInsufficientMaterial Method = "insufficient_material"
	MethodFiftyMove            Method = "fifty_move_rule"
	MethodRepetition           Method = "repetition"
	MethodResignation          Method = "resignation"
	MethodAgreement            Method = "agreement"
)

// Result is a finished game. Winner is empty for a draw.
type Result struct {
	Winner Color  `json:"winner,omitempty"`
	Method Method `json:"method"`
}

func (r Result) IsDraw() bool { return r.Winner == "" }

func (r Result) String() string {
	switch r.Method {
	case MethodCheckmate:
		return r.Winner.Title() + " wins by checkmate"
	case MethodResignation:
		return r.Winner.Title() + " wins by resignation"
	case MethodStalemate:
		return "Game drawn by stalemate"
	case MethodInsufficientMaterial:
		return "Game drawn due to insufficient material"
	case MethodFiftyMove:
		return "Game drawn by fifty-move rule"
	case MethodRepetition:
		return "Game drawn by repetition"
	case MethodAgreement:
		return "Game drawn by agreement"
	}
	if r.IsDraw() {
		return "Game drawn"
	}
	return r.Winner.Title() + " wins"
}

// PGNResult is the result token of a PGN header.
func (r Result) PGNResult() string {
	switch r.Winner {
	case White:
		return "1-0"
	case Black:
		return "0-1"
	}
	return "1/2-1/2"
}

// Promotion is a pawn move waiting for the piece choice.
type Promotion struct {
	From    string   `json:"from"`
	To      string   `json:"to"`
	Choices []string `json:"choices"`
}

// ClickOutcome tells the caller what a square selection did.
type ClickOutcome int

const (
	ClickIgnored ClickOutcome = iota
	ClickSelected
	ClickDeselected
	ClickMoved
	ClickPromotion
)

func (o ClickOutcome) String() string {
	switch o {
	case ClickSelected:
		return "selected"
	case ClickDeselected:
		return "deselected"
	case ClickMoved:
		return "moved"
	case ClickPromotion:
		return "promotion"
	}
	return "ignored"
}
