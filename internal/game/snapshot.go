package game

import (
	"fmt"

	corechess "github.com/park285/cheese-chess/internal/chess"
)

// Snapshot is the serialisable form of a State.
type Snapshot struct {
	Phase          Phase      `json:"phase"`
	Mode           Mode       `json:"mode,omitempty"`
	Difficulty     string     `json:"difficulty,omitempty"`
	PlayerColor    Color      `json:"player_color"`
	StartFEN       string     `json:"start_fen,omitempty"`
	Line           []string   `json:"line"`
	Index          int        `json:"index"`
	Selected       string     `json:"selected,omitempty"`
	Promotion      *Promotion `json:"promotion,omitempty"`
	EvaluationMode bool       `json:"evaluation_mode"`
	ShowBestMove   bool       `json:"show_best_move"`
	DrawRequested  bool       `json:"draw_requested"`
	Result         *Result    `json:"result,omitempty"`
	Tally          Tally      `json:"tally"`
}

func (s *State) Snapshot() Snapshot {
	snap := Snapshot{
		Phase:          s.phase,
		Mode:           s.mode,
		Difficulty:     s.difficulty,
		PlayerColor:    s.playerColor,
		StartFEN:       s.startFEN,
		Line:           s.Line(),
		Index:          s.index,
		Selected:       s.selected,
		Promotion:      s.PendingPromotion(),
		EvaluationMode: s.evaluationMode,
		ShowBestMove:   s.showBestMove,
		DrawRequested:  s.drawRequested,
		Tally:          s.tally,
	}
	if s.result != nil {
		r := *s.result
		snap.Result = &r
	}
	return snap
}

// Restore replaces the state with snap. Hooks are kept and not fired.
func (s *State) Restore(snap Snapshot) error {
	if snap.Index < 0 || snap.Index > len(snap.Line) {
		return fmt.Errorf("snapshot index %d outside line of %d", snap.Index, len(snap.Line))
	}
	if _, err := (corechess.Position{FEN: snap.StartFEN, Moves: snap.Line}).Replay(); err != nil {
		return fmt.Errorf("snapshot line: %w", err)
	}
	switch snap.Phase {
	case PhaseMenu, PhaseColorSelect, PhaseDifficulty, PhasePlaying, PhaseGameOver, PhaseAnalysis:
	default:
		return fmt.Errorf("snapshot phase %q", snap.Phase)
	}
	color := snap.PlayerColor
	if color != Black {
		color = White
	}

	s.phase = snap.Phase
	s.mode = snap.Mode
	s.difficulty = snap.Difficulty
	s.playerColor = color
	s.startFEN = snap.StartFEN
	s.line = append([]string(nil), snap.Line...)
	s.index = snap.Index
	if err := s.rebuild(); err != nil {
		return err
	}
	s.clearSelection()
	if snap.Selected != "" {
		s.selected = snap.Selected
		s.targets = s.LegalTargets(snap.Selected)
	}
	s.promotion = nil
	if snap.Promotion != nil {
		p := *snap.Promotion
		s.promotion = &p
	}
	s.evaluationMode = snap.EvaluationMode
	s.showBestMove = snap.ShowBestMove
	s.drawRequested = snap.DrawRequested
	s.result = nil
	if snap.Result != nil {
		r := *snap.Result
		s.result = &r
	}
	s.tally = snap.Tally
	return nil
}
