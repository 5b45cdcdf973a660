package chess

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/park285/cheese-chess/internal/config"
)

// ErrUnknownDifficulty is returned for a difficulty name with no preset.
var ErrUnknownDifficulty = errors.New("unknown difficulty")

type DifficultyPreset struct {
	Name           string
	SkillLevel     int
	Threads        int
	HashMB         int
	MoveTimeMillis int
	NodeCap        int
	DepthCap       int
	MultiPV        int
}

const (
	defaultThreads = 1
	defaultHashMB  = 16
)

var presetMu sync.RWMutex

var DefaultPresets = map[string]DifficultyPreset{
	"easy": {
		Name:           "easy",
		SkillLevel:     0,
		Threads:        defaultThreads,
		HashMB:         defaultHashMB,
		MoveTimeMillis: 10,
		DepthCap:       1,
		MultiPV:        1,
	},
	"medium": {
		Name:           "medium",
		SkillLevel:     10,
		Threads:        defaultThreads,
		HashMB:         defaultHashMB,
		MoveTimeMillis: 100,
		DepthCap:       3,
		MultiPV:        1,
	},
	"hard": {
		Name:           "hard",
		SkillLevel:     20,
		Threads:        defaultThreads,
		HashMB:         defaultHashMB,
		MoveTimeMillis: 1000,
		DepthCap:       5,
		MultiPV:        1,
	},
}

var presetAliases = map[string]string{
	"1": "easy", "e": "easy", "beginner": "easy",
	"2": "medium", "m": "medium", "normal": "medium",
	"3": "hard", "h": "hard", "expert": "hard",
}

func normalizePresetName(name string) string {
	token := strings.ToLower(strings.TrimSpace(name))
	if alias, ok := presetAliases[token]; ok {
		return alias
	}
	return token
}

func GetPreset(name string) (DifficultyPreset, error) {
	key := normalizePresetName(name)
	presetMu.RLock()
	p, ok := DefaultPresets[key]
	presetMu.RUnlock()
	if ok {
		return p, nil
	}
	return DifficultyPreset{}, fmt.Errorf("%w: %s", ErrUnknownDifficulty, strings.TrimSpace(name))
}

// RegisterPreset adds or replaces a preset after validating it.
func RegisterPreset(p DifficultyPreset) error {
	p.Name = strings.ToLower(strings.TrimSpace(p.Name))
	if p.Name == "" {
		return fmt.Errorf("preset name required")
	}
	if p.Threads <= 0 {
		p.Threads = defaultThreads
	}
	if p.HashMB <= 0 {
		p.HashMB = defaultHashMB
	}
	if p.MultiPV <= 0 {
		p.MultiPV = 1
	}
	if err := ValidatePreset(p); err != nil {
		return fmt.Errorf("preset %s: %w", p.Name, err)
	}
	presetMu.Lock()
	DefaultPresets[p.Name] = p
	presetMu.Unlock()
	return nil
}

// ApplyDifficultyLevels registers every level from the difficulty file.
func ApplyDifficultyLevels(levels []config.DifficultyLevel, threads, hashMB int) error {
	for _, lvl := range levels {
		p := DifficultyPreset{
			Name:           lvl.Name,
			SkillLevel:     lvl.SkillLevel,
			Threads:        threads,
			HashMB:         hashMB,
			MoveTimeMillis: lvl.MoveTimeMS,
			DepthCap:       lvl.Depth,
			NodeCap:        lvl.Nodes,
			MultiPV:        1,
		}
		if err := RegisterPreset(p); err != nil {
			return err
		}
	}
	return nil
}

// SetPresetResources applies engine-wide thread and hash settings to every preset.
func SetPresetResources(threads, hashMB int) {
	presetMu.Lock()
	defer presetMu.Unlock()
	for name, p := range DefaultPresets {
		if threads > 0 {
			p.Threads = threads
		}
		if hashMB > 0 {
			p.HashMB = hashMB
		}
		DefaultPresets[name] = p
	}
}

// PresetNames lists presets from weakest to strongest.
func PresetNames() []string {
	presetMu.RLock()
	list := make([]DifficultyPreset, 0, len(DefaultPresets))
	for _, p := range DefaultPresets {
		list = append(list, p)
	}
	presetMu.RUnlock()
	sort.Slice(list, func(i, j int) bool {
		if list[i].SkillLevel != list[j].SkillLevel {
			return list[i].SkillLevel < list[j].SkillLevel
		}
		if list[i].MoveTimeMillis != list[j].MoveTimeMillis {
			return list[i].MoveTimeMillis < list[j].MoveTimeMillis
		}
		return list[i].Name < list[j].Name
	})
	names := make([]string, len(list))
	for i, p := range list {
		names[i] = p.Name
	}
	return names
}

func ValidatePreset(p DifficultyPreset) error {
	switch {
	case p.SkillLevel < 0 || p.SkillLevel > 20:
		return fmt.Errorf("skill level %d out of range 0-20", p.SkillLevel)
	case p.Threads <= 0:
		return fmt.Errorf("threads must be > 0: %d", p.Threads)
	case p.HashMB <= 0:
		return fmt.Errorf("hash size must be > 0: %d", p.HashMB)
	case p.MultiPV <= 0:
		return fmt.Errorf("multipv must be > 0: %d", p.MultiPV)
	case p.MoveTimeMillis < 0:
		return fmt.Errorf("move time must be >= 0: %d", p.MoveTimeMillis)
	case p.NodeCap < 0:
		return fmt.Errorf("node cap must be >= 0: %d", p.NodeCap)
	case p.DepthCap < 0:
		return fmt.Errorf("depth cap must be >= 0: %d", p.DepthCap)
	case p.MoveTimeMillis == 0 && p.NodeCap == 0 && p.DepthCap == 0:
		return fmt.Errorf("preset %s does not define search limits", p.Name)
	}
	return nil
}
