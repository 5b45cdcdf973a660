package game

import (
	"fmt"
	"strings"

	nchess "github.com/corentings/chess/v2"
	corechess "github.com/park285/cheese-chess/internal/chess"
)

var promotionPieces = []string{"q", "r", "b", "n"}

// CanEditBoard reports whether board input is accepted right now.
func (s *State) CanEditBoard() error {
	switch s.phase {
	case PhasePlaying, PhaseAnalysis:
	default:
		return ErrInvalidPhase
	}
	if s.phase == PhasePlaying && s.mode == ModeSinglePlayer && s.Turn() != s.playerColor {
		return ErrNotYourTurn
	}
	return nil
}

// MakeMove plays a legal UCI move at the current index. Moves after the index are
// dropped, so playing from an earlier position starts a new branch.
func (s *State) MakeMove(uciMove string) (string, error) {
	if s.phase != PhasePlaying && s.phase != PhaseAnalysis {
		return "", ErrInvalidPhase
	}
	mv := strings.ToLower(strings.TrimSpace(uciMove))
	if !corechess.IsLegalUCI(s.board, mv) {
		return "", fmt.Errorf("%w: %s", corechess.ErrIllegalMove, uciMove)
	}
	san, err := corechess.PlayUCI(s.board, mv)
	if err != nil {
		return "", err
	}

	s.line = append(s.line[:s.index:s.index], mv)
	s.index = len(s.line)
	s.lastMove = mv
	s.promotion = nil
	s.clearSelection()
	s.checkGameEnd()
	s.firePosition()
	return san, nil
}

// GoBack steps one move back in the history. It returns false at the start.
func (s *State) GoBack() bool {
	if s.index == 0 {
		return false
	}
	s.index--
	return s.navigate()
}

// GoForward steps one move forward. It returns false at the end of the line.
func (s *State) GoForward() bool {
	if s.index >= len(s.line) {
		return false
	}
	s.index++
	return s.navigate()
}

// GoTo jumps to ply index (0 is the start position).
func (s *State) GoTo(index int) bool {
	if index < 0 || index > len(s.line) || index == s.index {
		return false
	}
	s.index = index
	return s.navigate()
}

func (s *State) navigate() bool {
	if err := s.rebuild(); err != nil {
		return false
	}
	s.promotion = nil
	s.clearSelection()
	s.firePosition()
	return true
}

// LegalTargets lists destination squares of legal moves from square.
func (s *State) LegalTargets(square string) []string {
	from := strings.ToLower(strings.TrimSpace(square))
	seen := make(map[string]struct{})
	var out []string
	for _, mv := range corechess.LegalMovesUCI(s.board) {
		if mv[0:2] != from {
			continue
		}
		to := mv[2:4]
		if _, dup := seen[to]; dup {
			continue
		}
		seen[to] = struct{}{}
		out = append(out, to)
	}
	return out
}

// Select handles a click on square: pick up a piece of the side to move, or try to
// move the picked piece there. A pawn reaching the last rank waits for Promote.
func (s *State) Select(square string) (ClickOutcome, string, error) {
	if err := s.CanEditBoard(); err != nil {
		return ClickIgnored, "", err
	}
	if s.promotion != nil {
		return ClickIgnored, "", ErrPromotionPending
	}
	sq, err := corechess.ParseSquare(square)
	if err != nil {
		return ClickIgnored, "", err
	}
	name := sq.String()

	if s.selected == "" {
		piece := s.board.Position().Board().Piece(sq)
		if piece == nchess.NoPiece || colorOf(piece.Color()) != s.Turn() {
			return ClickIgnored, "", nil
		}
		s.selected = name
		s.targets = s.LegalTargets(name)
		return ClickSelected, "", nil
	}

	from := s.selected
	if from == name {
		s.clearSelection()
		return ClickDeselected, "", nil
	}

	// picking another own piece switches the selection
	piece := s.board.Position().Board().Piece(sq)
	if piece != nchess.NoPiece && colorOf(piece.Color()) == s.Turn() {
		s.selected = name
		s.targets = s.LegalTargets(name)
		return ClickSelected, "", nil
	}

	if choices := s.promotionChoices(from, name); len(choices) > 0 {
		s.promotion = &Promotion{From: from, To: name, Choices: choices}
		s.clearSelection()
		return ClickPromotion, "", nil
	}

	mv := from + name
	if !corechess.IsLegalUCI(s.board, mv) {
		s.clearSelection()
		return ClickDeselected, "", nil
	}
	if _, err := s.MakeMove(mv); err != nil {
		s.clearSelection()
		return ClickIgnored, "", err
	}
	return ClickMoved, mv, nil
}

func (s *State) promotionChoices(from, to string) []string {
	var out []string
	for _, p := range promotionPieces {
		if corechess.IsLegalUCI(s.board, from+to+p) {
			out = append(out, p)
		}
	}
	return out
}

// Promote completes the pending promotion with piece (q, r, b or n).
func (s *State) Promote(piece string) (string, error) {
	if s.promotion == nil {
		return "", ErrNoPendingPromotion
	}
	p := strings.ToLower(strings.TrimSpace(piece))
	switch p {
	case "queen":
		p = "q"
	case "rook":
		p = "r"
	case "bishop":
		p = "b"
	case "knight":
		p = "n"
	}
	valid := false
	for _, c := range s.promotion.Choices {
		if c == p {
			valid = true
		}
	}
	if !valid {
		return "", fmt.Errorf("%w: %q", ErrInvalidPromotion, piece)
	}
	mv := s.promotion.From + s.promotion.To + p
	s.promotion = nil
	if _, err := s.MakeMove(mv); err != nil {
		return "", err
	}
	return mv, nil
}

func (s *State) CancelPromotion() error {
	if s.promotion == nil {
		return ErrNoPendingPromotion
	}
	s.promotion = nil
	return nil
}

// Terminal reports how the displayed position ended, if it did.
func (s *State) Terminal() (Result, bool) {
	if s.board.Outcome() == nchess.NoOutcome {
		return Result{}, false
	}
	return resultFromBoard(s.board), true
}

// checkGameEnd ends a game in progress when the rules library reports an outcome.
// Positions explored in analysis never reopen game over.
func (s *State) checkGameEnd() {
	if s.phase != PhasePlaying {
		return
	}
	if r, ok := s.Terminal(); ok {
		s.EndGame(r)
	}
}

func resultFromBoard(board *nchess.Game) Result {
	var r Result
	switch board.Outcome() {
	case nchess.WhiteWon:
		r.Winner = White
	case nchess.BlackWon:
		r.Winner = Black
	}
	r.Method = methodFromBoard(board.Method())
	return r
}

func methodFromBoard(m nchess.Method) Method {
	switch m {
	case nchess.Checkmate:
		return MethodCheckmate
	case nchess.Stalemate:
		return MethodStalemate
	case nchess.InsufficientMaterial:
		return MethodInsufficientMaterial
	case nchess.FiftyMoveRule, nchess.SeventyFiveMoveRule:
		return MethodFiftyMove
	case nchess.ThreefoldRepetition, nchess.FivefoldRepetition:
		return MethodRepetition
	case nchess.Resignation:
		return MethodResignation
	case nchess.DrawOffer:
		return MethodAgreement
	}
	return ""
}

// EndGame moves to game over and counts the result. A white win counts for the
// player when the player is White, otherwise for the opponent.
func (s *State) EndGame(r Result) {
	old := s.phase
	s.phase = PhaseGameOver
	res := r
	s.result = &res
	s.drawRequested = false
	s.promotion = nil
	s.clearSelection()

	switch r.Winner {
	case White, Black:
		if r.Winner == s.playerColor {
			s.tally.Player++
		} else {
			s.tally.Engine++
		}
	default:
		s.tally.Draw++
	}
	if s.onPhase != nil && old != PhaseGameOver {
		s.onPhase(old, PhaseGameOver)
	}
}

// Resign ends the game in favour of the side not to move.
func (s *State) Resign() (Result, error) {
	if s.phase != PhasePlaying {
		return Result{}, ErrInvalidPhase
	}
	r := Result{Winner: s.Turn().Other(), Method: MethodResignation}
	s.EndGame(r)
	return r, nil
}

// OfferDraw ends the game as drawn by agreement.
func (s *State) OfferDraw() (Result, error) {
	if s.phase != PhasePlaying {
		return Result{}, ErrInvalidPhase
	}
	r := Result{Method: MethodAgreement}
	s.EndGame(r)
	return r, nil
}

// RequestDraw runs the two player handshake: the first call asks, the second accepts.
func (s *State) RequestDraw() (accepted bool, err error) {
	if s.phase != PhasePlaying {
		return false, ErrInvalidPhase
	}
	if s.mode != ModeTwoPlayer {
		return false, ErrTwoPlayerOnly
	}
	if !s.drawRequested {
		s.drawRequested = true
		return false, nil
	}
	if _, err := s.OfferDraw(); err != nil {
		return false, err
	}
	return true, nil
}

func (s *State) DeclineDraw() error {
	if s.phase != PhasePlaying {
		return ErrInvalidPhase
	}
	if s.mode != ModeTwoPlayer {
		return ErrTwoPlayerOnly
	}
	s.drawRequested = false
	return nil
}

// ClaimDraw ends the game by threefold repetition or the fifty-move rule when eligible.
func (s *State) ClaimDraw() (Result, error) {
	if s.phase != PhasePlaying {
		return Result{}, ErrInvalidPhase
	}
	for _, m := range s.board.EligibleDraws() {
		if m != nchess.ThreefoldRepetition && m != nchess.FiftyMoveRule {
			continue
		}
		if err := s.board.Draw(m); err != nil {
			return Result{}, err
		}
		r := Result{Method: methodFromBoard(m)}
		s.EndGame(r)
		return r, nil
	}
	return Result{}, ErrDrawNotClaimable
}
