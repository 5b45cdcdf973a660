package chessbuilder

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	_ "github.com/lib/pq"
	corechess "github.com/park285/cheese-chess/internal/chess"
	"github.com/park285/cheese-chess/internal/config"
	"github.com/park285/cheese-chess/internal/msgcat"
	svcchess "github.com/park285/cheese-chess/internal/service/chess"
	"go.uber.org/zap"
)

type Deps struct {
	Service *svcchess.Service
	// Engine is nil when the Stockfish binary could not be found.
	Engine  *corechess.Engine
	Store   *svcchess.RedisSessionStore
	Repo    svcchess.Repository
	Catalog *msgcat.Catalog

	db *sql.DB
}

// New wires the chess service from cfg. Only the message catalog and the service
// itself are mandatory: a missing engine, Redis or Postgres degrades the service.
func New(cfg *config.AppConfig, logger *zap.Logger) (*Deps, error) {
	if cfg == nil {
		return nil, errors.New("nil config")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	deps := &Deps{}

	catalog, err := msgcat.New(cfg.MessagesDir)
	if err != nil {
		return nil, fmt.Errorf("load messages: %w", err)
	}
	deps.Catalog = catalog

	corechess.SetPresetResources(cfg.EngineThreads, cfg.EngineHashMB)
	if cfg.DifficultyFile != "" {
		levels, err := config.LoadDifficulties(cfg.DifficultyFile)
		if err != nil {
			return nil, fmt.Errorf("load difficulties: %w", err)
		}
		if err := corechess.ApplyDifficultyLevels(levels, cfg.EngineThreads, cfg.EngineHashMB); err != nil {
			return nil, fmt.Errorf("apply difficulties: %w", err)
		}
	}

	// Engine (optional)
	var engine svcchess.Engine
	eng, err := corechess.NewEngine(corechess.EngineConfig{
		BinaryPath:        cfg.StockfishPath,
		Threads:           cfg.EngineThreads,
		HashMB:            cfg.EngineHashMB,
		EvalDepth:         cfg.EvalDepth,
		EvalTime:          cfg.EvalTime(),
		EvalInterval:      cfg.EvalInterval(),
		PVLength:          cfg.EvalPVLineLength,
		DefaultDifficulty: cfg.DefaultDifficulty,
	})
	if err != nil {
		logger.Warn("engine_unavailable", zap.String("path", cfg.StockfishPath), zap.Error(err))
	} else {
		deps.Engine = eng
		engine = eng
	}

	// Session store (Redis optional)
	var store svcchess.SessionStore
	if cfg.RedisURL != "" {
		rs, err := svcchess.NewRedisSessionStore(cfg.RedisURL, cfg.ChessSessionTTL)
		if err != nil {
			deps.Close()
			return nil, fmt.Errorf("init session store: %w", err)
		}
		deps.Store = rs
		store = rs
	} else {
		logger.Info("session_store_disabled")
	}

	// Repository (Postgres optional, memory otherwise)
	if cfg.DatabaseURL != "" {
		db, err := openPostgres(cfg.DatabaseURL)
		if err != nil {
			deps.Close()
			return nil, err
		}
		deps.db = db
		repo := svcchess.NewRepository(db)
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		err = svcchess.EnsureSchema(ctx, db)
		cancel()
		if err != nil {
			deps.Close()
			return nil, fmt.Errorf("ensure schema: %w", err)
		}
		deps.Repo = repo
	} else {
		logger.Info("game_archive_in_memory")
		deps.Repo = svcchess.NewMemoryRepository()
	}

	svcCfg := svcchess.Config{
		SessionKey:   strings.TrimSpace(cfg.SessionKey),
		HistoryLimit: cfg.ChessHistoryLimit,
	}
	service, err := svcchess.NewService(engine, store, deps.Repo, svcchess.NewBoardRenderer(cfg.BoardSize), svcCfg, logger.Named("chess"))
	if err != nil {
		deps.Close()
		return nil, err
	}
	deps.Service = service
	return deps, nil
}

func openPostgres(dsn string) (*sql.DB, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	// basic pool settings
	db.SetMaxOpenConns(8)
	db.SetMaxIdleConns(4)
	db.SetConnMaxLifetime(30 * time.Minute)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	return db, nil
}

// Close releases everything New opened, service session first.
func (d *Deps) Close() {
	if d == nil {
		return
	}
	if d.Service != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		d.Service.Close(ctx)
		cancel()
	}
	if d.Engine != nil {
		_ = d.Engine.Close()
	}
	if d.Store != nil {
		_ = d.Store.Close()
	}
	if d.db != nil {
		_ = d.db.Close()
	}
}
