package chess

import (
	"context"
	"sort"
	"strings"
	"sync"

	"github.com/park285/cheese-chess/internal/domain"
)

// memrepo keeps the archive in process memory. Used when DATABASE_URL is not set.
type memrepo struct {
	mu sync.RWMutex

	nextID int64

	gamesByID      map[int64]*domain.ChessGame
	gamesBySession map[string]*domain.ChessGame
}

func NewMemoryRepository() Repository {
	return &memrepo{
		gamesByID:      make(map[int64]*domain.ChessGame),
		gamesBySession: make(map[string]*domain.ChessGame),
	}
}

func (m *memrepo) InsertGame(ctx context.Context, game *domain.ChessGame) (int64, error) {
	if game == nil {
		return 0, ErrDuplicateGame
	}
	key := strings.TrimSpace(game.SessionUUID)

	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.gamesBySession[key]; exists {
		return 0, ErrDuplicateGame
	}

	m.nextID++
	stored := cloneGame(game)
	stored.ID = m.nextID

	m.gamesByID[stored.ID] = stored
	m.gamesBySession[key] = stored
	return stored.ID, nil
}

func (m *memrepo) GetRecentGames(ctx context.Context, limit int) ([]*domain.ChessGame, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	items := make([]*domain.ChessGame, 0, len(m.gamesByID))
	for _, g := range m.gamesByID {
		items = append(items, cloneGame(g))
	}
	// 최근 종료 순, 같으면 ID 역순
	sort.Slice(items, func(i, j int) bool {
		if !items[i].EndedAt.Equal(items[j].EndedAt) {
			return items[i].EndedAt.After(items[j].EndedAt)
		}
		return items[i].ID > items[j].ID
	})
	if limit > 0 && len(items) > limit {
		items = items[:limit]
	}
	return items, nil
}

func (m *memrepo) GetGame(ctx context.Context, id int64) (*domain.ChessGame, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	g, ok := m.gamesByID[id]
	if !ok || g == nil {
		return nil, nil
	}
	return cloneGame(g), nil
}

func (m *memrepo) GetGameBySession(ctx context.Context, sessionUUID string) (*domain.ChessGame, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if g, ok := m.gamesBySession[strings.TrimSpace(sessionUUID)]; ok && g != nil {
		return cloneGame(g), nil
	}
	return nil, nil
}

func cloneGame(g *domain.ChessGame) *domain.ChessGame {
	c := *g
	c.MovesUCI = append([]string(nil), g.MovesUCI...)
	c.MovesSAN = append([]string(nil), g.MovesSAN...)
	return &c
}
