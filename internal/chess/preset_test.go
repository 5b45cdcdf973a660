package chess

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/park285/cheese-chess/internal/config"
)

func TestDefaultPresets(t *testing.T) {
	cases := map[string]struct {
		skill, movetime, depth int
	}{
		"easy":   {0, 10, 1},
		"medium": {10, 100, 3},
		"hard":   {20, 1000, 5},
	}
	for name, want := range cases {
		p, err := GetPreset(name)
		if err != nil {
			t.Fatalf("GetPreset(%s): %v", name, err)
		}
		if p.SkillLevel != want.skill || p.MoveTimeMillis != want.movetime || p.DepthCap != want.depth {
			t.Fatalf("%s = %+v", name, p)
		}
		if err := ValidatePreset(p); err != nil {
			t.Fatalf("%s invalid: %v", name, err)
		}
	}
}

func TestGetPresetAliases(t *testing.T) {
	p, err := GetPreset(" 3 ")
	if err != nil || p.Name != "hard" {
		t.Fatalf("alias 3 = %+v, %v", p, err)
	}
	if _, err := GetPreset("grandmaster"); !errors.Is(err, ErrUnknownDifficulty) {
		t.Fatalf("expected ErrUnknownDifficulty, got %v", err)
	}
}

func TestBuildGoCommand(t *testing.T) {
	p, _ := GetPreset("medium")
	got, err := BuildGoCommand(p)
	if err != nil {
		t.Fatalf("BuildGoCommand: %v", err)
	}
	if diff := cmp.Diff([]string{"go", "depth", "3", "movetime", "100"}, got); diff != "" {
		t.Fatalf("go command (-want +got):\n%s", diff)
	}
	p.DepthCap, p.MoveTimeMillis = 0, 0
	if _, err := BuildGoCommand(p); err == nil {
		t.Fatalf("expected error without limits")
	}
}

func TestApplyDifficultyLevels(t *testing.T) {
	t.Cleanup(func() {
		presetMu.Lock()
		delete(DefaultPresets, "club")
		presetMu.Unlock()
	})
	err := ApplyDifficultyLevels([]config.DifficultyLevel{{Name: "Club", SkillLevel: 5, MoveTimeMS: 50}}, 2, 32)
	if err != nil {
		t.Fatalf("ApplyDifficultyLevels: %v", err)
	}
	p, err := GetPreset("club")
	if err != nil {
		t.Fatalf("GetPreset: %v", err)
	}
	want := DifficultyPreset{Name: "club", SkillLevel: 5, Threads: 2, HashMB: 32, MoveTimeMillis: 50, MultiPV: 1}
	if diff := cmp.Diff(want, p); diff != "" {
		t.Fatalf("preset (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"easy", "club", "medium", "hard"}, PresetNames()); diff != "" {
		t.Fatalf("order (-want +got):\n%s", diff)
	}

	bad := []config.DifficultyLevel{{Name: "broken", SkillLevel: 30, MoveTimeMS: 10}}
	if err := ApplyDifficultyLevels(bad, 1, 16); err == nil {
		t.Fatalf("expected validation error")
	}
}
