package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/fatih/color"
	"github.com/park285/cheese-chess/internal/adapter/chesspresenter"
	corechess "github.com/park285/cheese-chess/internal/chess"
	"github.com/park285/cheese-chess/internal/chessbuilder"
	"github.com/park285/cheese-chess/internal/chessclient"
	"github.com/park285/cheese-chess/internal/config"
	"github.com/park285/cheese-chess/internal/evalfeed"
	"github.com/park285/cheese-chess/internal/httpapi"
	"github.com/park285/cheese-chess/internal/msgcat"
	"github.com/park285/cheese-chess/internal/obslog"
	"github.com/park285/cheese-chess/pkg/chessdto"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

func main() {
	if err := obslog.InitFromEnv(); err != nil {
		log.Printf("logger init error: %v", err)
	}
	logger := obslog.L()
	defer func() { _ = logger.Sync() }()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config error: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logger); err != nil {
		logger.Error("chess_exit", zap.Error(err))
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.AppConfig, logger *zap.Logger) error {
	if cfg.RemoteURL != "" {
		return runRemote(ctx, cfg, logger)
	}

	deps, err := chessbuilder.New(cfg, logger.Named("builder"))
	if err != nil {
		return fmt.Errorf("chess init: %w", err)
	}
	defer deps.Close()
	if deps.Engine == nil {
		fmt.Fprintf(os.Stderr, "Stockfish not found at %q: single player and evaluation are disabled.\n", cfg.StockfishPath)
	}

	g, gctx := errgroup.WithContext(ctx)
	term := newTerminal(localBackend{svc: deps.Service}, chesspresenter.NewFormatter(deps.Catalog, !color.NoColor), os.Stdin, os.Stdout, logger.Named("terminal"))
	deps.Service.OnEvaluation(func(ev corechess.Evaluation) {
		term.evaluation(chesspresenter.ToDTOEvaluation(ev))
	})

	if cfg.HTTPAddr != "" {
		srv := httpapi.NewServer(deps.Service, logger.Named("http"))
		g.Go(func() error { return srv.ListenAndServe(cfg.HTTPAddr) })
		g.Go(func() error {
			<-gctx.Done()
			return shutdown(srv.Shutdown)
		})
	}
	if cfg.FeedAddr != "" {
		hub := evalfeed.NewHub(logger.Named("feed"))
		deps.Service.OnEvaluation(hub.Publish)
		srv := evalfeed.NewServer(hub, logger.Named("feed"))
		g.Go(func() error { return srv.ListenAndServe(cfg.FeedAddr) })
		g.Go(func() error {
			<-gctx.Done()
			return shutdown(srv.Shutdown)
		})
	}

	g.Go(func() error { return term.run(gctx) })
	return exitErr(g.Wait())
}

// runRemote drives a chess server started elsewhere with CHESS_HTTP_ADDR.
func runRemote(ctx context.Context, cfg *config.AppConfig, logger *zap.Logger) error {
	catalog, err := msgcat.New(cfg.MessagesDir)
	if err != nil {
		return fmt.Errorf("load messages: %w", err)
	}
	client := chessclient.NewClient(cfg.RemoteURL, chessclient.WithTimeout(time.Minute))
	term := newTerminal(client, chesspresenter.NewFormatter(catalog, !color.NoColor), os.Stdin, os.Stdout, logger.Named("terminal"))

	if cfg.RemoteFeedURL != "" {
		feed := chessclient.NewFeed(cfg.RemoteFeedURL, 5)
		feed.OnMessage(func(msg *chessdto.FeedMessage) {
			if msg.Type == evalfeed.TypeEvaluation {
				term.evaluation(msg.Evaluation)
			}
		})
		feed.OnStateChange(func(state chessclient.FeedState) {
			logger.Debug("feed_state", zap.String("state", string(state)))
		})
		if err := feed.Connect(ctx); err != nil {
			logger.Warn("feed_connect_failed", zap.String("url", cfg.RemoteFeedURL), zap.Error(err))
		}
		defer func() { _ = shutdown(feed.Close) }()
	}

	return exitErr(term.run(ctx))
}

func shutdown(fn func(context.Context) error) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return fn(ctx)
}

func exitErr(err error) error {
	if errors.Is(err, errQuit) || errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}
