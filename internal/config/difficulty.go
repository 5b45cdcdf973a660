package config

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// DifficultyLevel is one entry of the difficulty file.
//
//	levels:
//	  - name: easy
//	    skill: 0
//	    movetime_ms: 10
//	    depth: 1
type DifficultyLevel struct {
	Name       string `yaml:"name"`
	SkillLevel int    `yaml:"skill"`
	MoveTimeMS int    `yaml:"movetime_ms"`
	Depth      int    `yaml:"depth"`
	Nodes      int    `yaml:"nodes"`
}

type difficultyFile struct {
	Levels []DifficultyLevel `yaml:"levels"`
}

// LoadDifficulties reads the YAML difficulty table at path.
func LoadDifficulties(path string) ([]DifficultyLevel, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read difficulty file: %w", err)
	}
	return ParseDifficulties(raw)
}

func ParseDifficulties(raw []byte) ([]DifficultyLevel, error) {
	var doc difficultyFile
	if err := yaml.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("parse difficulty file: %w", err)
	}
	seen := make(map[string]struct{}, len(doc.Levels))
	out := make([]DifficultyLevel, 0, len(doc.Levels))
	for i, lvl := range doc.Levels {
		lvl.Name = strings.ToLower(strings.TrimSpace(lvl.Name))
		if lvl.Name == "" {
			return nil, fmt.Errorf("difficulty #%d: name required", i+1)
		}
		if _, dup := seen[lvl.Name]; dup {
			return nil, fmt.Errorf("difficulty %s declared twice", lvl.Name)
		}
		seen[lvl.Name] = struct{}{}
		out = append(out, lvl)
	}
	return out, nil
}
