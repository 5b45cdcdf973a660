package chess

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/park285/cheese-chess/internal/domain"
)

func sampleGame(session string, ended time.Time) *domain.ChessGame {
	return &domain.ChessGame{
		SessionUUID: session,
		Mode:        "multiplayer",
		PlayerColor: "white",
		Result:      "1-0",
		MovesUCI:    []string{"e2e4", "e7e5"},
		MovesSAN:    []string{"e4", "e5"},
		StartedAt:   ended.Add(-time.Minute),
		EndedAt:     ended,
	}
}

func TestMemoryRepositoryInsertAndGet(t *testing.T) {
	repo := NewMemoryRepository()
	ctx := context.Background()
	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

	in := sampleGame("s-1", now)
	id, err := repo.InsertGame(ctx, in)
	if err != nil {
		t.Fatalf("InsertGame: %v", err)
	}
	if _, err := repo.InsertGame(ctx, sampleGame("s-1", now)); !errors.Is(err, ErrDuplicateGame) {
		t.Fatalf("expected ErrDuplicateGame, got %v", err)
	}

	got, err := repo.GetGame(ctx, id)
	if err != nil {
		t.Fatalf("GetGame: %v", err)
	}
	want := *in
	want.ID = id
	if diff := cmp.Diff(&want, got); diff != "" {
		t.Fatalf("GetGame mismatch (-want +got):\n%s", diff)
	}

	// 반환값을 수정해도 저장본은 그대로여야 한다
	got.MovesUCI[0] = "d2d4"
	again, _ := repo.GetGameBySession(ctx, "s-1")
	if again.MovesUCI[0] != "e2e4" {
		t.Fatalf("stored game aliased: %v", again.MovesUCI)
	}

	if g, err := repo.GetGame(ctx, 404); err != nil || g != nil {
		t.Fatalf("missing GetGame = %v, %v", g, err)
	}
	if g, err := repo.GetGameBySession(ctx, "none"); err != nil || g != nil {
		t.Fatalf("missing GetGameBySession = %v, %v", g, err)
	}
}

func TestMemoryRepositoryRecentOrder(t *testing.T) {
	repo := NewMemoryRepository()
	ctx := context.Background()
	base := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

	for i, s := range []string{"a", "b", "c"} {
		if _, err := repo.InsertGame(ctx, sampleGame(s, base.Add(time.Duration(i)*time.Hour))); err != nil {
			t.Fatalf("InsertGame(%s): %v", s, err)
		}
	}
	games, err := repo.GetRecentGames(ctx, 2)
	if err != nil {
		t.Fatalf("GetRecentGames: %v", err)
	}
	var sessions []string
	for _, g := range games {
		sessions = append(sessions, g.SessionUUID)
	}
	if diff := cmp.Diff([]string{"c", "b"}, sessions); diff != "" {
		t.Fatalf("recent order (-want +got):\n%s", diff)
	}
}
