package chesspresenter

import (
	"fmt"
	"strings"
	"time"

	"github.com/fatih/color"
	"github.com/park285/cheese-chess/internal/msgcat"
	"github.com/park285/cheese-chess/pkg/chessdto"
)

const (
	evalBarWidth        = 20
	capturedRecentLimit = 8
	recentMovesLimit    = 10
)

// Formatter renders chess DTOs into terminal text.
type Formatter struct {
	catalog *msgcat.Catalog
	colors  bool

	heading, warn *color.Color
}

const (
	lightSquareBg = color.BgHiYellow
	darkSquareBg  = color.BgYellow
	markBg        = color.BgHiGreen
	targetBg      = color.BgGreen
	whitePieceFg  = color.FgHiWhite
	blackPieceFg  = color.FgBlack
)

// NewFormatter uses catalog for screen texts. With colors off the board is plain ASCII.
func NewFormatter(catalog *msgcat.Catalog, colors bool) *Formatter {
	f := &Formatter{catalog: catalog, colors: colors}
	f.heading = f.newColor(color.Bold)
	f.warn = f.newColor(color.FgRed)
	return f
}

func (f *Formatter) newColor(attrs ...color.Attribute) *color.Color {
	c := color.New(attrs...)
	if f.colors {
		c.EnableColor()
	} else {
		c.DisableColor()
	}
	return c
}

func (f *Formatter) text(key string, data any, fallback string) string {
	return f.catalog.Text(key, data, fallback)
}

// Screen renders the whole screen for the view's phase.
func (f *Formatter) Screen(v *chessdto.View) string {
	if v == nil {
		return ""
	}
	var sb strings.Builder
	switch v.Phase {
	case "menu":
		sb.WriteString(f.heading.Sprint(f.text("app.title", nil, "Cheese Chess")))
		sb.WriteString("\n\n")
		sb.WriteString(f.text("menu.options", nil, "single | two | quit"))
	case "color_select":
		sb.WriteString(f.heading.Sprint(f.text("color.title", nil, "Choose Your Color")))
		sb.WriteString("\n\n")
		sb.WriteString(f.text("color.options", nil, "white | black | menu"))
	case "difficulty":
		sb.WriteString(f.heading.Sprint(f.text("difficulty.title", nil, "Select Difficulty")))
		sb.WriteString("\n\n")
		sb.WriteString(f.text("difficulty.options", nil, "easy | medium | hard | back"))
		if len(v.Difficulties) > 0 {
			sb.WriteString("\n")
			sb.WriteString(f.text("difficulty.available", map[string]any{"Names": strings.Join(v.Difficulties, " | ")}, "Available: "+strings.Join(v.Difficulties, " | ")))
		}
	case "game_over":
		sb.WriteString(f.Board(v))
		sb.WriteString("\n")
		sb.WriteString(f.Stats(v))
		sb.WriteString("\n\n")
		sb.WriteString(f.heading.Sprint(f.text("game_over.title", nil, "GAME OVER")))
		sb.WriteString("\n")
		sb.WriteString(v.ResultText)
		if v.LastGameID > 0 {
			fmt.Fprintf(&sb, " (game #%d)", v.LastGameID)
		}
		sb.WriteString("\n\n")
		sb.WriteString(f.text("game_over.options", nil, "analyze | again | menu"))
	default:
		sb.WriteString(f.Game(v))
	}
	return strings.TrimRight(sb.String(), "\n")
}

// Game renders the board screen used while playing and analysing.
func (f *Formatter) Game(v *chessdto.View) string {
	var sb strings.Builder
	if v.Phase == "analysis" {
		sb.WriteString(f.heading.Sprint(f.text("analysis.title", nil, "Analysis")))
		if v.ResultText != "" {
			sb.WriteString(" - ")
			sb.WriteString(v.ResultText)
		}
		sb.WriteString("\n")
	}
	sb.WriteString(f.Board(v))
	sb.WriteString("\n")
	sb.WriteString(f.Stats(v))
	sb.WriteString("\n")
	sb.WriteString(f.MoveCounter(v))
	if moves := formatRecentMoves(v.MovesSAN, v.Index); moves != "" {
		sb.WriteString("  ")
		sb.WriteString(moves)
	}
	sb.WriteString("\n")
	if v.ECOCode != "" {
		fmt.Fprintf(&sb, "Opening: %s %s\n", v.ECOCode, v.ECOTitle)
	}
	if captured := formatCaptured(v.Captured); captured != "" {
		fmt.Fprintf(&sb, "Captured: %s  (material %s)\n", captured, formatMaterial(v.Material))
	}

	if v.EvaluationMode {
		sb.WriteString(f.EvalBar(v.Evaluation))
		sb.WriteString("\n")
		if v.ShowBestMove {
			sb.WriteString(f.EvaluationInfo(v))
			sb.WriteString("\n")
		}
	}

	switch {
	case v.Promotion != nil:
		sb.WriteString(f.text("promotion.prompt", nil, "Choose promotion:"))
		sb.WriteString("\n")
	case v.DrawRequested:
		sb.WriteString(f.warn.Sprint(f.text("draw.requested", nil, "Draw requested! Accept or Decline?")))
		sb.WriteString("\n")
	}
	if v.Phase == "playing" {
		sb.WriteString(f.text("playing.turn", map[string]any{"Color": titleColor(v.Turn)}, titleColor(v.Turn)+" to move"))
		if v.InCheck {
			sb.WriteString(" ")
			sb.WriteString(f.warn.Sprint(f.text("playing.check", nil, "Check!")))
		}
		sb.WriteString("\n")
	}
	if v.EngineError != "" {
		sb.WriteString(f.warn.Sprint(f.text("playing.engine_error", map[string]any{"Error": v.EngineError}, "Engine failed to move: "+v.EngineError)))
		sb.WriteString("\n")
	}
	if v.Phase == "analysis" {
		sb.WriteString(f.text("analysis.controls", nil, ""))
	} else {
		sb.WriteString(f.text("playing.controls", nil, ""))
	}
	return sb.String()
}

// Board draws the position with White at the bottom. Last move and selection are
// shown in brackets, legal targets with an asterisk.
func (f *Formatter) Board(v *chessdto.View) string {
	grid, err := placement(v.FEN)
	if err != nil {
		return err.Error()
	}
	marked := map[string]bool{}
	if len(v.LastMove) >= 4 {
		marked[v.LastMove[0:2]] = true
		marked[v.LastMove[2:4]] = true
	}
	if v.Selected != "" {
		marked[v.Selected] = true
	}
	if v.BestMove != "" && len(v.BestMove) >= 4 {
		marked[v.BestMove[0:2]] = true
		marked[v.BestMove[2:4]] = true
	}
	targets := map[string]bool{}
	for _, t := range v.Targets {
		targets[t] = true
	}

	var sb strings.Builder
	for row := 0; row < 8; row++ {
		rank := 8 - row
		fmt.Fprintf(&sb, "%d ", rank)
		for col := 0; col < 8; col++ {
			name := fmt.Sprintf("%c%d", 'a'+col, rank)
			sb.WriteString(f.square(grid[row][col], (row+col)%2 == 1, marked[name], targets[name]))
		}
		sb.WriteString("\n")
	}
	sb.WriteString("   a  b  c  d  e  f  g  h")
	return sb.String()
}

func (f *Formatter) square(piece byte, dark, marked, target bool) string {
	attrs := []color.Attribute{lightSquareBg}
	switch {
	case marked:
		attrs[0] = markBg
	case target:
		attrs[0] = targetBg
	case dark:
		attrs[0] = darkSquareBg
	}

	var glyph string
	switch {
	case piece != 0 && piece >= 'a':
		glyph = string(piece)
		attrs = append(attrs, blackPieceFg, color.Bold)
	case piece != 0:
		glyph = string(piece)
		attrs = append(attrs, whitePieceFg, color.Bold)
	case target:
		glyph = "*"
	case dark:
		glyph = ":"
	default:
		glyph = "."
	}
	left, right := " ", " "
	if marked {
		left, right = "[", "]"
	} else if target && piece != 0 {
		left, right = "*", "*"
	}
	return f.newColor(attrs...).Sprint(left + glyph + right)
}

// placement expands the board field of a FEN into rows from rank 8 down.
func placement(fen string) ([8][8]byte, error) {
	var grid [8][8]byte
	field := strings.Fields(fen)
	if len(field) == 0 {
		return grid, fmt.Errorf("empty fen")
	}
	rows := strings.Split(field[0], "/")
	if len(rows) != 8 {
		return grid, fmt.Errorf("bad fen placement %q", field[0])
	}
	for r, row := range rows {
		c := 0
		for i := 0; i < len(row); i++ {
			ch := row[i]
			if ch >= '1' && ch <= '8' {
				c += int(ch - '0')
				continue
			}
			if c > 7 {
				return grid, fmt.Errorf("bad fen row %q", row)
			}
			grid[r][c] = ch
			c++
		}
	}
	return grid, nil
}

// Stats is the running tally line.
func (f *Formatter) Stats(v *chessdto.View) string {
	opponent := "Player 2"
	if v.Mode == "singleplayer" {
		opponent = "Stockfish"
	}
	return fmt.Sprintf("Player 1: %d %s: %d Draw: %d", v.Tally.Player, opponent, v.Tally.Engine, v.Tally.Draw)
}

func (f *Formatter) MoveCounter(v *chessdto.View) string {
	return fmt.Sprintf("Move: %d/%d", v.Index+1, v.HistoryLength)
}

// EvalBar draws White's share of the evaluation followed by the score.
func (f *Formatter) EvalBar(ev *chessdto.Evaluation) string {
	if ev == nil {
		return "[" + strings.Repeat("?", evalBarWidth) + "] ..."
	}
	white := int(ev.BarWhite*evalBarWidth + 0.5)
	if white < 0 {
		white = 0
	}
	if white > evalBarWidth {
		white = evalBarWidth
	}
	bar := strings.Repeat("#", white) + strings.Repeat("-", evalBarWidth-white)
	return fmt.Sprintf("[%s] %s (depth %d)", bar, ev.ScoreText, ev.Depth)
}

// EvaluationInfo is the best move and principal variation block.
func (f *Formatter) EvaluationInfo(v *chessdto.View) string {
	ev := v.Evaluation
	if ev == nil {
		return "No valid line available"
	}
	var lines []string
	switch {
	case v.BestMove != "":
		lines = append(lines, "Best: "+v.BestMoveSAN)
	case ev.BestMove != "":
		lines = append(lines, "Best: "+ev.BestMove+" (not applicable)")
	}
	if len(ev.PV) > 0 {
		lines = append(lines, "Line: "+strings.Join(ev.PV, " "))
	} else {
		lines = append(lines, "No valid line available")
	}
	return strings.Join(lines, "\n")
}

func (f *Formatter) Help() string {
	return f.text("help.body", nil, "Type a move in UCI or SAN.")
}

func (f *Formatter) History(games []*chessdto.ChessGame) string {
	if len(games) == 0 {
		return f.text("history.empty", nil, "No archived games yet.")
	}
	var sb strings.Builder
	sb.WriteString(f.heading.Sprint(f.text("history.title", nil, "Recent games")))
	sb.WriteByte('\n')
	for _, g := range games {
		movesCount := len(g.MovesSAN)
		if movesCount == 0 {
			movesCount = len(g.MovesUCI)
		}
		fmt.Fprintf(&sb, "#%d %s %s %s (%s, %d plies)", g.ID, formatShortTime(g.EndedAt), g.Result, g.ResultText, formatOpponent(g), movesCount)
		if d := formatGameDuration(g.Duration); d != "" {
			fmt.Fprintf(&sb, " %s", d)
		}
		sb.WriteByte('\n')
	}
	sb.WriteString(f.text("history.hint", nil, ""))
	return strings.TrimRight(sb.String(), "\n")
}

func (f *Formatter) GameRecord(g *chessdto.ChessGame) string {
	if g == nil {
		return "Game not found."
	}
	var sb strings.Builder
	fmt.Fprintf(&sb, "Game #%d: %s (%s)\n", g.ID, g.ResultText, g.Result)
	fmt.Fprintf(&sb, "Opponent: %s\n", formatOpponent(g))
	if g.ECOCode != "" {
		fmt.Fprintf(&sb, "Opening: %s %s\n", g.ECOCode, g.ECOTitle)
	}
	if !g.StartedAt.IsZero() {
		fmt.Fprintf(&sb, "Started: %s\n", formatShortTime(g.StartedAt))
	}
	if d := formatGameDuration(g.Duration); d != "" {
		fmt.Fprintf(&sb, "Duration: %s\n", d)
	}
	if g.EngineMoves > 0 {
		fmt.Fprintf(&sb, "Engine: %d moves, avg %s\n", g.EngineMoves, (g.EngineLatency / time.Duration(g.EngineMoves)).Round(time.Millisecond))
	}
	if g.PGN != "" {
		sb.WriteString("\n")
		sb.WriteString(strings.TrimSpace(g.PGN))
	}
	return strings.TrimRight(sb.String(), "\n")
}

func (f *Formatter) Error(err *chessdto.DomainError) string {
	if err == nil {
		return ""
	}
	msg := err.Error()
	if err.Retryable {
		msg += " (try 'retry')"
	}
	return f.warn.Sprint(msg)
}

func titleColor(c string) string {
	switch c {
	case "white":
		return "White"
	case "black":
		return "Black"
	}
	return c
}

func formatOpponent(g *chessdto.ChessGame) string {
	if g.Mode == "singleplayer" {
		if g.Difficulty != "" {
			return "Stockfish " + g.Difficulty
		}
		return "Stockfish"
	}
	return "two player"
}

// formatRecentMoves shows the last SAN moves up to the current index.
func formatRecentMoves(moves []string, index int) string {
	if index > len(moves) {
		index = len(moves)
	}
	moves = moves[:index]
	if len(moves) == 0 {
		return ""
	}
	if len(moves) <= recentMovesLimit {
		return strings.Join(moves, " ")
	}
	return "... " + strings.Join(moves[len(moves)-recentMovesLimit:], " ")
}

func formatShortTime(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return t.Local().Format("2006-01-02 15:04")
}

func formatGameDuration(d time.Duration) string {
	if d <= 0 {
		return ""
	}
	if d < time.Second {
		return d.Round(time.Millisecond).String()
	}
	return d.Round(time.Second).String()
}

func formatMaterial(score chessdto.MaterialScore) string {
	diff := score.White - score.Black
	switch {
	case diff > 0:
		return fmt.Sprintf("White +%d", diff)
	case diff < 0:
		return fmt.Sprintf("Black +%d", -diff)
	}
	return "even"
}

func formatCaptured(captured chessdto.CapturedPieces) string {
	white := formatCapturedSequence(captured.White, capturedRecentLimit)
	black := formatCapturedSequence(captured.Black, capturedRecentLimit)
	if white == "" && black == "" {
		return ""
	}
	var parts []string
	if white != "" {
		parts = append(parts, "White "+white)
	}
	if black != "" {
		parts = append(parts, "Black "+black)
	}
	return strings.Join(parts, " / ")
}

func formatCapturedSequence(order []string, limit int) string {
	if len(order) > limit {
		order = order[:limit]
	}
	tokens := make([]string, 0, len(order))
	for _, token := range order {
		if symbol := capturedSymbol(token); symbol != "" {
			tokens = append(tokens, symbol)
		}
	}
	return strings.Join(tokens, "")
}

func capturedSymbol(piece string) string {
	switch strings.ToLower(strings.TrimSpace(piece)) {
	case "queen", "q":
		return "Q"
	case "rook", "r":
		return "R"
	case "bishop", "b":
		return "B"
	case "knight", "n":
		return "N"
	case "pawn", "p":
		return "P"
	}
	return ""
}
