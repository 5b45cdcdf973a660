// Package game holds the state of one local chess session: phase, board history,
// selection, result and the running tally. It is not safe for concurrent use;
// callers serialize access.
package game

import (
	"fmt"
	"strings"
	"sync"

	nchess "github.com/corentings/chess/v2"
	"github.com/corentings/chess/v2/opening"
	corechess "github.com/park285/cheese-chess/internal/chess"
)

var ecoBook = sync.OnceValue(opening.NewBookECO)

type PhaseHook func(old, next Phase)

type PositionHook func(pos corechess.Position)

type State struct {
	phase       Phase
	mode        Mode
	difficulty  string
	playerColor Color

	startFEN string
	line     []string
	index    int
	board    *nchess.Game
	lastMove string

	selected  string
	targets   []string
	promotion *Promotion

	evaluationMode bool
	showBestMove   bool
	drawRequested  bool

	result *Result
	tally  Tally

	onPhase    PhaseHook
	onPosition PositionHook
}

func New() *State {
	s := &State{
		phase:       PhaseMenu,
		playerColor: White,
	}
	s.board = nchess.NewGame()
	return s
}

// SetPhaseHook registers the callback fired on phase transitions.
func (s *State) SetPhaseHook(h PhaseHook) { s.onPhase = h }

// SetPositionHook registers the callback fired when the displayed position changes.
func (s *State) SetPositionHook(h PositionHook) { s.onPosition = h }

func (s *State) Phase() Phase              { return s.phase }
func (s *State) Mode() Mode                { return s.mode }
func (s *State) Difficulty() string        { return s.difficulty }
func (s *State) PlayerColor() Color        { return s.playerColor }
func (s *State) Tally() Tally              { return s.tally }
func (s *State) EvaluationMode() bool      { return s.evaluationMode }
func (s *State) ShowBestMove() bool        { return s.showBestMove }
func (s *State) DrawRequested() bool       { return s.drawRequested }
func (s *State) LastMove() string          { return s.lastMove }
func (s *State) Selected() string          { return s.selected }
func (s *State) Index() int                { return s.index }
func (s *State) Board() *nchess.Game       { return s.board }
func (s *State) PendingPromotion() *Promotion {
	if s.promotion == nil {
		return nil
	}
	p := *s.promotion
	p.Choices = append([]string(nil), s.promotion.Choices...)
	return &p
}

func (s *State) Targets() []string { return append([]string(nil), s.targets...) }

// Line is the full move line in UCI, including moves after the current index.
func (s *State) Line() []string { return append([]string(nil), s.line...) }

// HistoryLength counts positions, the start position included.
func (s *State) HistoryLength() int { return len(s.line) + 1 }

func (s *State) AtLatest() bool { return s.index == len(s.line) }

func (s *State) Result() (Result, bool) {
	if s.result == nil {
		return Result{}, false
	}
	return *s.result, true
}

func (s *State) Turn() Color { return colorOf(s.board.Position().Turn()) }

func (s *State) FEN() string { return s.board.FEN() }

// Position is the displayed position: start FEN plus moves up to the index.
func (s *State) Position() corechess.Position {
	return corechess.Position{FEN: s.startFEN, Moves: append([]string(nil), s.line[:s.index]...)}
}

// SetPlayerColor picks the human side for single player games.
func (s *State) SetPlayerColor(c Color) { s.playerColor = c }

// SetPhase moves to p. Entering the menu resets the board and the tally.
func (s *State) SetPhase(p Phase) {
	old := s.phase
	s.phase = p
	if p == PhaseMenu {
		s.ResetGame()
		s.mode = ModeNone
		s.difficulty = ""
		s.tally = Tally{}
	}
	if s.onPhase != nil {
		s.onPhase(old, p)
	}
}

// ResetGame clears the board and every per-game flag. Phase, mode and tally are kept.
func (s *State) ResetGame() {
	s.startFEN = ""
	s.line = nil
	s.index = 0
	s.board = nchess.NewGame()
	s.lastMove = ""
	s.clearSelection()
	s.promotion = nil
	s.evaluationMode = false
	s.showBestMove = false
	s.drawRequested = false
	s.result = nil
}

// StartGame begins a new game. The difficulty only applies to single player.
func (s *State) StartGame(mode Mode, difficulty string) {
	s.phase = PhasePlaying
	s.ResetGame()
	s.mode = mode
	if mode == ModeSinglePlayer {
		s.difficulty = strings.ToLower(strings.TrimSpace(difficulty))
	} else {
		s.difficulty = ""
	}
}

// StartFromFEN begins a two player game from an arbitrary position. Positions that
// are already mate or drawn are rejected.
func (s *State) StartFromFEN(fen string) error {
	board, err := corechess.NewGameFromFEN(fen)
	if err != nil {
		return err
	}
	if board.Outcome() != nchess.NoOutcome {
		return fmt.Errorf("%w: position is already decided (%s)", corechess.ErrInvalidFEN, methodFromBoard(board.Method()))
	}
	s.StartGame(ModeTwoPlayer, "")
	s.startFEN = strings.TrimSpace(fen)
	s.board = board
	return nil
}

// ResetAndPlay starts over in the same mode and difficulty.
func (s *State) ResetAndPlay() {
	old := s.phase
	s.ResetGame()
	s.phase = PhasePlaying
	if s.onPhase != nil {
		s.onPhase(old, PhasePlaying)
	}
}

// EngineToMove reports whether the engine owns the side to move.
func (s *State) EngineToMove() bool {
	return s.mode == ModeSinglePlayer && s.phase == PhasePlaying && s.Turn() != s.playerColor
}

func (s *State) ToggleEvaluation() bool {
	s.evaluationMode = !s.evaluationMode
	return s.evaluationMode
}

func (s *State) SetEvaluationMode(on bool) { s.evaluationMode = on }

func (s *State) ToggleBestMove() bool {
	s.showBestMove = !s.showBestMove
	return s.showBestMove
}

// Opening names the ECO opening of the moves up to the index.
func (s *State) Opening() (code, title string) {
	if s.startFEN != "" {
		return "", ""
	}
	book := ecoBook()
	if book == nil {
		return "", ""
	}
	if eco := book.Find(s.board.Moves()); eco != nil {
		return eco.Code(), eco.Title()
	}
	return "", ""
}

// SANLine returns the SAN of the whole line.
func (s *State) SANLine() []string {
	full, err := corechess.Position{FEN: s.startFEN, Moves: s.line}.Replay()
	if err != nil {
		return nil
	}
	return corechess.SANMoves(full)
}

// PGN renders the whole line with the result, if any.
func (s *State) PGN() string {
	full, err := corechess.Position{FEN: s.startFEN, Moves: s.line}.Replay()
	if err != nil {
		return ""
	}
	if s.result != nil && full.Outcome() == nchess.NoOutcome {
		switch s.result.Winner {
		case White:
			full.Resign(nchess.Black)
		case Black:
			full.Resign(nchess.White)
		default:
			_ = full.Draw(nchess.DrawOffer)
		}
	}
	return full.String()
}

// rebuild replays the line up to the index into the board.
func (s *State) rebuild() error {
	board, err := corechess.Position{FEN: s.startFEN, Moves: s.line[:s.index]}.Replay()
	if err != nil {
		return fmt.Errorf("rebuild position: %w", err)
	}
	s.board = board
	if s.index > 0 {
		s.lastMove = s.line[s.index-1]
	} else {
		s.lastMove = ""
	}
	return nil
}

func (s *State) firePosition() {
	if s.onPosition != nil {
		s.onPosition(s.Position())
	}
}

func (s *State) clearSelection() {
	s.selected = ""
	s.targets = nil
}
