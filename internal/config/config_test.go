package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
)

func TestLoadDefaults(t *testing.T) {
	for _, k := range []string{"STOCKFISH_PATH", "ENGINE_THREADS", "ENGINE_HASH", "EVAL_TIME_MS", "EVAL_DEPTH", "CHESS_COLOR", "CHESS_SESSION_TTL"} {
		t.Setenv(k, "")
	}
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.StockfishPath != "stockfish" || cfg.EngineThreads != 1 || cfg.EngineHashMB != 16 {
		t.Fatalf("unexpected engine defaults: %+v", cfg)
	}
	if cfg.EvalTime() != 500*time.Millisecond || cfg.EvalDepth != 20 || cfg.EvalPVLineLength != 5 {
		t.Fatalf("unexpected eval defaults: %+v", cfg)
	}
	if cfg.EvalInterval() != 100*time.Millisecond {
		t.Fatalf("eval interval = %v", cfg.EvalInterval())
	}
	if cfg.DefaultDifficulty != "medium" {
		t.Fatalf("default difficulty = %q", cfg.DefaultDifficulty)
	}
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("STOCKFISH_PATH", "/opt/sf")
	t.Setenv("ENGINE_THREADS", "4")
	t.Setenv("ENGINE_HASH", "bogus")
	t.Setenv("CHESS_SESSION_TTL", "2h")
	t.Setenv("CHESS_COLOR", "Black")
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.StockfishPath != "/opt/sf" || cfg.EngineThreads != 4 {
		t.Fatalf("overrides not applied: %+v", cfg)
	}
	if cfg.EngineHashMB != 16 {
		t.Fatalf("invalid hash should keep default, got %d", cfg.EngineHashMB)
	}
	if cfg.ChessSessionTTL != 2*time.Hour {
		t.Fatalf("ttl = %v", cfg.ChessSessionTTL)
	}
	if cfg.PlayerColor != "black" {
		t.Fatalf("color = %q", cfg.PlayerColor)
	}

	t.Setenv("CHESS_SESSION_TTL", "90")
	cfg, err = Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.ChessSessionTTL != 90*time.Second {
		t.Fatalf("ttl seconds = %v", cfg.ChessSessionTTL)
	}
}

func TestLoadRejectsBadColor(t *testing.T) {
	t.Setenv("CHESS_COLOR", "green")
	if _, err := Load(); err == nil {
		t.Fatalf("expected error for invalid colour")
	}
}

func TestLoadDifficulties(t *testing.T) {
	path := filepath.Join(t.TempDir(), "levels.yaml")
	body := []byte("levels:\n  - name: Easy\n    skill: 0\n    movetime_ms: 10\n    depth: 1\n  - name: club\n    skill: 8\n    movetime_ms: 250\n")
	if err := os.WriteFile(path, body, 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}
	got, err := LoadDifficulties(path)
	if err != nil {
		t.Fatalf("LoadDifficulties: %v", err)
	}
	want := []DifficultyLevel{
		{Name: "easy", SkillLevel: 0, MoveTimeMS: 10, Depth: 1},
		{Name: "club", SkillLevel: 8, MoveTimeMS: 250},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("levels mismatch (-want +got):\n%s", diff)
	}
}

func TestParseDifficultiesDuplicate(t *testing.T) {
	_, err := ParseDifficulties([]byte("levels:\n  - name: hard\n  - name: HARD\n"))
	if err == nil {
		t.Fatalf("expected duplicate error")
	}
}
