package main

import (
	"context"

	"github.com/park285/cheese-chess/internal/adapter/chesspresenter"
	"github.com/park285/cheese-chess/internal/chessclient"
	svcchess "github.com/park285/cheese-chess/internal/service/chess"
	"github.com/park285/cheese-chess/pkg/chessdto"
)

// backend is what the terminal drives: the in-process service or a remote HTTP API.
type backend interface {
	State(ctx context.Context) (*chessdto.View, error)
	Command(ctx context.Context, name, arg string) (*chessdto.View, error)
	History(ctx context.Context, limit int) ([]*chessdto.ChessGame, error)
	Game(ctx context.Context, id int64) (*chessdto.ChessGame, error)
	BoardPNG(ctx context.Context) ([]byte, error)
}

var _ backend = (*chessclient.Client)(nil)

type localBackend struct {
	svc *svcchess.Service
}

func (b localBackend) State(context.Context) (*chessdto.View, error) {
	return chesspresenter.ToDTOView(b.svc.View()), nil
}

func (b localBackend) Command(ctx context.Context, name, arg string) (*chessdto.View, error) {
	err := b.svc.Dispatch(ctx, name, arg)
	return chesspresenter.ToDTOView(b.svc.View()), err
}

func (b localBackend) History(ctx context.Context, limit int) ([]*chessdto.ChessGame, error) {
	games, err := b.svc.History(ctx, limit)
	if err != nil {
		return nil, err
	}
	return chesspresenter.ToDTOGames(games), nil
}

func (b localBackend) Game(ctx context.Context, id int64) (*chessdto.ChessGame, error) {
	g, err := b.svc.Game(ctx, id)
	if err != nil {
		return nil, err
	}
	return chesspresenter.ToDTOGame(g), nil
}

func (b localBackend) BoardPNG(ctx context.Context) ([]byte, error) {
	return b.svc.RenderBoard(ctx)
}
