package main

import (
	"strings"

	"github.com/park285/cheese-chess/pkg/chessdto"
)

type actionKind int

const (
	actDispatch actionKind = iota
	actQuit
	actHelp
	actShow
	actPNG
	actHistory
	actGame
	actWatch
)

type action struct {
	kind actionKind
	cmd  string
	arg  string
}

// passthrough commands keep their name in every phase.
var passthrough = map[string]bool{
	"resign": true, "draw": true, "decline": true, "claim": true,
	"eval": true, "best": true, "forward": true, "retry": true,
	"analyze": true, "again": true, "end": true, "resume": true,
	"promote": true, "cancel": true, "move": true, "click": true,
	"review": true, "fen": true, "single": true, "two": true,
	"color": true, "difficulty": true, "goto": true, "discard": true,
}

// parseInput turns one terminal line into an action for the current screen.
// Short answers mirror the buttons of each screen.
func parseInput(v *chessdto.View, line string) (action, bool) {
	line = strings.TrimSpace(line)
	if line == "" {
		return action{kind: actShow}, true
	}
	fields := strings.Fields(line)
	word := strings.ToLower(fields[0])
	rest := strings.TrimSpace(strings.TrimPrefix(line, fields[0]))

	switch word {
	case "quit", "exit":
		return action{kind: actQuit}, true
	case "help", "?":
		return action{kind: actHelp}, true
	case "show", "board":
		return action{kind: actShow}, true
	case "png":
		return action{kind: actPNG, arg: rest}, true
	case "history":
		return action{kind: actHistory, arg: rest}, true
	case "game":
		return action{kind: actGame, arg: rest}, true
	case "watch":
		return action{kind: actWatch}, true
	case "menu":
		return dispatch("menu", ""), true
	case "back":
		return dispatch("back", ""), true
	}

	phase := ""
	if v != nil {
		phase = v.Phase
	}
	switch phase {
	case "menu":
		switch word {
		case "1", "s", "single":
			return dispatch("single", ""), true
		case "2", "t", "two":
			return dispatch("two", ""), true
		case "q":
			return action{kind: actQuit}, true
		}
	case "color_select":
		switch word {
		case "w", "white":
			return dispatch("color", "white"), true
		case "b", "black":
			return dispatch("color", "black"), true
		case "m":
			return dispatch("back", ""), true
		}
	case "difficulty":
		if !passthrough[word] {
			return dispatch("difficulty", word), true
		}
	case "game_over":
		switch word {
		case "a", "analyze", "analyse":
			return dispatch("analyze", ""), true
		case "p", "again", "play":
			return dispatch("again", ""), true
		case "m":
			return dispatch("menu", ""), true
		}
	case "playing", "analysis":
		if v.Promotion != nil {
			switch word {
			case "q", "r", "b", "n", "queen", "rook", "bishop", "knight":
				return dispatch("promote", word), true
			}
		}
		switch word {
		case "f", "fwd", ">":
			return dispatch("forward", ""), true
		case "<":
			return dispatch("back", ""), true
		case "accept":
			return dispatch("draw", ""), true
		}
		if !passthrough[word] && len(fields) == 1 {
			if isSquare(word) {
				return dispatch("click", word), true
			}
			return dispatch("move", fields[0]), true
		}
	}

	if passthrough[word] {
		return dispatch(word, rest), true
	}
	return action{}, false
}

func dispatch(cmd, arg string) action {
	return action{kind: actDispatch, cmd: cmd, arg: arg}
}

func isSquare(s string) bool {
	return len(s) == 2 && s[0] >= 'a' && s[0] <= 'h' && s[1] >= '1' && s[1] <= '8'
}
