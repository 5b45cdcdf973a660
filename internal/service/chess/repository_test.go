package chess

import (
	"context"
	"database/sql"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	_ "github.com/lib/pq"
)

// Runs against a real Postgres only when CHESS_TEST_DATABASE_URL is set.
func TestPostgresRepositoryRoundTrip(t *testing.T) {
	dsn := os.Getenv("CHESS_TEST_DATABASE_URL")
	if dsn == "" {
		t.Skip("CHESS_TEST_DATABASE_URL not set")
	}
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		t.Fatalf("sql.Open: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := EnsureSchema(ctx, db); err != nil {
		t.Fatalf("EnsureSchema: %v", err)
	}

	repo := NewRepository(db)
	in := sampleGame(uuid.NewString(), time.Now().UTC().Truncate(time.Millisecond))
	in.Duration = 90 * time.Second
	id, err := repo.InsertGame(ctx, in)
	if err != nil {
		t.Fatalf("InsertGame: %v", err)
	}
	if _, err := repo.InsertGame(ctx, in); !errors.Is(err, ErrDuplicateGame) {
		t.Fatalf("expected ErrDuplicateGame, got %v", err)
	}
	got, err := repo.GetGameBySession(ctx, in.SessionUUID)
	if err != nil || got == nil {
		t.Fatalf("GetGameBySession: %v", err)
	}
	if got.ID != id || len(got.MovesUCI) != 2 || got.Duration != in.Duration {
		t.Fatalf("round trip mismatch: %+v", got)
	}
}
