// Package ucitest provides a scripted stand-in for a UCI engine binary.
package ucitest

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"
)

// Script describes how the fake engine answers. Each field is a list of output lines.
type Script struct {
	// Go is printed on every "go" command. Without Bestmove in it, the fake waits for "stop".
	Go []string
	// Stop is printed when "stop" arrives.
	Stop []string
	// Positions maps a suffix of the "position" command to Go output used instead of Go.
	Positions map[string][]string
	// SkipUCIOK makes the handshake hang.
	SkipUCIOK bool
}

// DefaultScript answers every search with a short pv starting e2e4.
func DefaultScript() Script {
	return Script{
		Go: []string{
			"info depth 1 seldepth 1 multipv 1 score cp 20 nodes 20 pv e2e4",
			"info depth 2 seldepth 2 multipv 1 score cp 34 nodes 80 pv e2e4 e7e5 g1f3",
			"bestmove e2e4 ponder e7e5",
		},
		Stop: []string{"bestmove e2e4"},
	}
}

// Write stores an executable shell script implementing s and returns its path.
// The test is skipped where /bin/sh is unavailable.
func Write(t testing.TB, s Script) string {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("fake engine needs /bin/sh")
	}
	if _, err := os.Stat("/bin/sh"); err != nil {
		t.Skip("fake engine needs /bin/sh")
	}

	var b strings.Builder
	b.WriteString("#!/bin/sh\n")
	b.WriteString("pos=''\n")
	b.WriteString("while IFS= read -r line; do\n")
	b.WriteString("  case \"$line\" in\n")
	if s.SkipUCIOK {
		b.WriteString("    uci) echo 'id name fake' ;;\n")
	} else {
		b.WriteString("    uci) echo 'id name fake'; echo 'uciok' ;;\n")
	}
	b.WriteString("    isready) echo 'readyok' ;;\n")
	b.WriteString("    position*) pos=\"$line\" ;;\n")
	b.WriteString("    go*)\n")
	if len(s.Positions) > 0 {
		b.WriteString("      case \"$pos\" in\n")
		for suffix, lines := range s.Positions {
			fmt.Fprintf(&b, "        *%s) %s ;;\n", shellQuote(suffix), echoLines(lines))
		}
		fmt.Fprintf(&b, "        *) %s ;;\n", echoLines(s.Go))
		b.WriteString("      esac\n")
	} else {
		fmt.Fprintf(&b, "      %s\n", echoLines(s.Go))
	}
	b.WriteString("      ;;\n")
	fmt.Fprintf(&b, "    stop) %s ;;\n", echoLines(s.Stop))
	b.WriteString("    quit) exit 0 ;;\n")
	b.WriteString("  esac\n")
	b.WriteString("done\n")

	path := filepath.Join(t.TempDir(), "fakefish")
	if err := os.WriteFile(path, []byte(b.String()), 0o755); err != nil {
		t.Fatalf("write fake engine: %v", err)
	}
	return path
}

func echoLines(lines []string) string {
	if len(lines) == 0 {
		return ":"
	}
	parts := make([]string, 0, len(lines))
	for _, l := range lines {
		parts = append(parts, "echo "+shellQuote(l))
	}
	return strings.Join(parts, "; ")
}

func shellQuote(s string) string {
	return "'" + strings.ReplaceAll(s, "'", `'\''`) + "'"
}
