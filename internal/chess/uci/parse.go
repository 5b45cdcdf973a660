package uci

import (
	"sort"
	"strconv"
	"strings"
)

// MateValue is the centipawn stand-in for a forced mate.
const MateValue = 30000

// Score is an engine score relative to the side to move.
type Score struct {
	Mate bool
	// Value is centipawns, or signed moves-to-mate when Mate is set.
	Value int
}

// Centipawns folds mate scores into ±MateValue.
func (s Score) Centipawns() int {
	if !s.Mate {
		return s.Value
	}
	// mate 0: the side to move is already mated
	if s.Value > 0 {
		return MateValue
	}
	return -MateValue
}

type Info struct {
	MultiPV  int
	Depth    int
	Score    Score
	HasScore bool
	PV       []string
}

type Candidate struct {
	Move      string
	Score     Score
	Depth     int
	Principal []string
}

// EvalCP is the candidate score in centipawns with mates folded in.
func (c Candidate) EvalCP() int { return c.Score.Centipawns() }

func (i Info) Candidate() Candidate {
	c := Candidate{Score: i.Score, Depth: i.Depth, Principal: append([]string(nil), i.PV...)}
	if len(i.PV) > 0 {
		c.Move = i.PV[0]
	}
	return c
}

// ParseInfo reads a UCI info line. Lines carrying neither a score nor a pv are ignored.
func ParseInfo(line string) (Info, bool) {
	parts := strings.Fields(line)
	if len(parts) == 0 || parts[0] != "info" {
		return Info{}, false
	}
	info := Info{MultiPV: 1}
	pvIdx := -1

	for i := 1; i < len(parts); i++ {
		switch parts[i] {
		case "string":
			return Info{}, false
		case "multipv":
			if i+1 < len(parts) {
				if v, err := strconv.Atoi(parts[i+1]); err == nil && v > 0 {
					info.MultiPV = v
				}
				i++
			}
		case "depth":
			if i+1 < len(parts) {
				if v, err := strconv.Atoi(parts[i+1]); err == nil {
					info.Depth = v
				}
				i++
			}
		case "score":
			if i+2 < len(parts) {
				kind, val := parts[i+1], parts[i+2]
				if v, err := strconv.Atoi(val); err == nil {
					switch kind {
					case "cp":
						info.Score = Score{Value: v}
						info.HasScore = true
					case "mate":
						info.Score = Score{Mate: true, Value: v}
						info.HasScore = true
					}
				}
				i += 2
			}
		case "pv":
			pvIdx = i + 1
			i = len(parts)
		}
	}

	if pvIdx != -1 && pvIdx < len(parts) {
		info.PV = append([]string(nil), parts[pvIdx:]...)
	}
	if !info.HasScore && len(info.PV) == 0 {
		return Info{}, false
	}
	return info, true
}

func collapseCandidates(m map[int]Candidate) []Candidate {
	if len(m) == 0 {
		return nil
	}
	keys := make([]int, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Ints(keys)
	result := make([]Candidate, 0, len(keys))
	for _, k := range keys {
		result = append(result, m[k])
	}
	return result
}
