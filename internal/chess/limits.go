package chess

import (
	"fmt"
	"strconv"

	"github.com/park285/cheese-chess/internal/chess/uci"
)

func BuildGoCommand(p DifficultyPreset) ([]string, error) {
	if err := ValidatePreset(p); err != nil {
		return nil, err
	}

	args := []string{"go"}
	if p.DepthCap > 0 {
		args = append(args, "depth", strconv.Itoa(p.DepthCap))
	}
	if p.MoveTimeMillis > 0 {
		args = append(args, "movetime", strconv.Itoa(p.MoveTimeMillis))
	}
	if p.NodeCap > 0 {
		args = append(args, "nodes", strconv.Itoa(p.NodeCap))
	}

	if len(args) == 1 {
		return nil, fmt.Errorf("preset %s does not define search limits", p.Name)
	}

	return args, nil
}

func optionsFromPreset(p DifficultyPreset) uci.Options {
	return uci.Options{
		Threads:    p.Threads,
		SkillLevel: p.SkillLevel,
		HashMB:     p.HashMB,
		MultiPV:    p.MultiPV,
	}
}

func limitsFromPreset(p DifficultyPreset) uci.Limits {
	return uci.Limits{
		Depth:          p.DepthCap,
		MoveTimeMillis: p.MoveTimeMillis,
		NodeCap:        p.NodeCap,
	}
}
