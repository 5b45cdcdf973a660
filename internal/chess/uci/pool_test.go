package uci

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/park285/cheese-chess/internal/chess/uci/ucitest"
)

func TestNewPoolMissingBinary(t *testing.T) {
	if _, err := NewPool(PoolConfig{BinaryPath: "definitely-not-a-chess-engine-xyz"}); err == nil {
		t.Fatalf("expected lookup error")
	}
	if _, err := NewPool(PoolConfig{}); err == nil {
		t.Fatalf("expected error for empty path")
	}
}

func TestPoolReusesReleasedSession(t *testing.T) {
	bin := ucitest.Write(t, ucitest.DefaultScript())
	pool, err := NewPool(PoolConfig{BinaryPath: bin, PerPresetCapacity: 1})
	if err != nil {
		t.Fatalf("NewPool: %v", err)
	}
	defer pool.Close()

	ctx := context.Background()
	s1, err := pool.Acquire(ctx, testOptions)
	if err != nil {
		t.Fatalf("Acquire: %v", err)
	}
	pool.Release(s1, nil)
	if pool.Idle(testOptions) != 1 {
		t.Fatalf("expected one idle session")
	}

	s2, err := pool.Acquire(ctx, testOptions)
	if err != nil {
		t.Fatalf("Acquire again: %v", err)
	}
	if s1 != s2 {
		t.Fatalf("expected the idle session to be reused")
	}
	pool.Release(s2, errors.New("boom"))
	if pool.Idle(testOptions) != 0 {
		t.Fatalf("failed session must not be parked")
	}
}

func TestPoolCapacityWaits(t *testing.T) {
	bin := ucitest.Write(t, ucitest.DefaultScript())
	pool, err := NewPool(PoolConfig{BinaryPath: bin, PerPresetCapacity: 1})
	if err != nil {
		t.Fatalf("NewPool: %v", err)
	}
	defer pool.Close()

	held, err := pool.Acquire(context.Background(), testOptions)
	if err != nil {
		t.Fatalf("Acquire: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()
	if _, err := pool.Acquire(ctx, testOptions); !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected wait to time out, got %v", err)
	}

	// a different option set gets its own bucket
	other := testOptions
	other.SkillLevel = 0
	s, err := pool.Acquire(context.Background(), other)
	if err != nil {
		t.Fatalf("Acquire other bucket: %v", err)
	}
	pool.Release(s, nil)
	pool.Release(held, nil)
}

func TestPoolSharesBucketForEquivalentOptions(t *testing.T) {
	bin := ucitest.Write(t, ucitest.DefaultScript())
	pool, err := NewPool(PoolConfig{BinaryPath: bin, PerPresetCapacity: 1})
	if err != nil {
		t.Fatalf("NewPool: %v", err)
	}
	defer pool.Close()

	implicit := testOptions
	implicit.Threads = 0
	explicit := testOptions
	explicit.Threads = 1

	s, err := pool.Acquire(context.Background(), implicit)
	if err != nil {
		t.Fatalf("Acquire: %v", err)
	}
	pool.Release(s, nil)
	if pool.Idle(explicit) != 1 {
		t.Fatalf("a single thread session should be reused for an explicit thread count of 1")
	}
}
