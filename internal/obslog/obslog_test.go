package obslog

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func TestBuildWritesJSONFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "chess.log")
	logger, err := Build(Options{Level: "debug", ToFile: true, Format: "json", FilePath: path})
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	logger.Info("engine_ready", zap.String("binary", "stockfish"))
	_ = logger.Sync()

	raw, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read log: %v", err)
	}
	if !strings.Contains(string(raw), `"msg":"engine_ready"`) || !strings.Contains(string(raw), `"binary":"stockfish"`) {
		t.Fatalf("unexpected log body: %s", raw)
	}
}

func TestBuildWithoutSinksIsNop(t *testing.T) {
	logger, err := Build(Options{})
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if logger.Core().Enabled(zapcore.ErrorLevel) {
		t.Fatalf("expected nop logger")
	}
}

func TestParseLevel(t *testing.T) {
	cases := map[string]zapcore.Level{
		"debug":   zapcore.DebugLevel,
		" WARN ":  zapcore.WarnLevel,
		"warning": zapcore.WarnLevel,
		"error":   zapcore.ErrorLevel,
		"":        zapcore.InfoLevel,
		"verbose": zapcore.InfoLevel,
	}
	for in, want := range cases {
		if got := parseLevel(in); got != want {
			t.Fatalf("parseLevel(%q) = %v, want %v", in, got, want)
		}
	}
}

func TestSetNilFallsBackToNop(t *testing.T) {
	prev := L()
	t.Cleanup(func() { Set(prev) })
	Set(nil)
	if L() == nil {
		t.Fatalf("L() returned nil")
	}
	Named("engine").Info("ignored")
}
