package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

type AppConfig struct {
	StockfishPath string
	EngineThreads int
	EngineHashMB  int

	EvalTimeMillis     int
	EvalDepth          int
	EvalPVLineLength   int
	EvalIntervalMillis int

	DefaultDifficulty string
	DifficultyFile    string
	// PlayerColor is the colour offered first in single player ("white" or "black").
	PlayerColor string

	RedisURL    string
	DatabaseURL string

	ChessSessionTTL   time.Duration
	ChessHistoryLimit int
	SessionKey        string

	HTTPAddr    string
	FeedAddr    string
	MessagesDir string
	BoardSize   int

	// RemoteURL points the terminal at a running HTTP API instead of a local engine.
	RemoteURL     string
	RemoteFeedURL string
}

func Load() (*AppConfig, error) {
	cfg := &AppConfig{
		StockfishPath:      "stockfish",
		EngineThreads:      1,
		EngineHashMB:       16,
		EvalTimeMillis:     500,
		EvalDepth:          20,
		EvalPVLineLength:   5,
		EvalIntervalMillis: 100,
		DefaultDifficulty:  "medium",
		PlayerColor:        "white",
		ChessSessionTTL:    time.Hour,
		ChessHistoryLimit:  10,
		SessionKey:         "local",
		BoardSize:          640,
	}

	if v := strings.TrimSpace(os.Getenv("STOCKFISH_PATH")); v != "" {
		cfg.StockfishPath = v
	}
	if n, ok := positiveInt("ENGINE_THREADS"); ok {
		cfg.EngineThreads = n
	}
	if n, ok := positiveInt("ENGINE_HASH"); ok {
		cfg.EngineHashMB = n
	}

	if n, ok := positiveInt("EVAL_TIME_MS"); ok {
		cfg.EvalTimeMillis = n
	}
	if n, ok := positiveInt("EVAL_DEPTH"); ok {
		cfg.EvalDepth = n
	}
	if n, ok := positiveInt("EVAL_PV_LINE_LENGTH"); ok {
		cfg.EvalPVLineLength = n
	}
	if n, ok := positiveInt("EVAL_INTERVAL_MS"); ok {
		cfg.EvalIntervalMillis = n
	}

	// Chess specific
	if v := strings.TrimSpace(os.Getenv("CHESS_DEFAULT_DIFFICULTY")); v != "" {
		cfg.DefaultDifficulty = strings.ToLower(v)
	}
	cfg.DifficultyFile = strings.TrimSpace(os.Getenv("CHESS_DIFFICULTY_FILE"))
	if v := strings.TrimSpace(os.Getenv("CHESS_COLOR")); v != "" {
		cfg.PlayerColor = strings.ToLower(v)
	}

	cfg.RedisURL = strings.TrimSpace(os.Getenv("REDIS_URL"))
	cfg.DatabaseURL = strings.TrimSpace(os.Getenv("DATABASE_URL"))

	if v := strings.TrimSpace(os.Getenv("CHESS_SESSION_TTL")); v != "" { // seconds or a duration such as 2h
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.ChessSessionTTL = time.Duration(n) * time.Second
		} else if d, err := time.ParseDuration(v); err == nil && d > 0 {
			cfg.ChessSessionTTL = d
		}
	}
	if n, ok := positiveInt("CHESS_HISTORY_LIMIT"); ok {
		cfg.ChessHistoryLimit = n
	}
	if v := strings.TrimSpace(os.Getenv("CHESS_SESSION_KEY")); v != "" {
		cfg.SessionKey = v
	}

	cfg.HTTPAddr = strings.TrimSpace(os.Getenv("CHESS_HTTP_ADDR"))
	cfg.FeedAddr = strings.TrimSpace(os.Getenv("CHESS_FEED_ADDR"))
	cfg.MessagesDir = strings.TrimSpace(os.Getenv("CHESS_MESSAGES_DIR"))
	if n, ok := positiveInt("CHESS_BOARD_SIZE"); ok {
		cfg.BoardSize = n
	}
	cfg.RemoteURL = strings.TrimSpace(os.Getenv("CHESS_REMOTE_URL"))
	cfg.RemoteFeedURL = strings.TrimSpace(os.Getenv("CHESS_REMOTE_FEED_URL"))

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *AppConfig) validate() error {
	switch c.PlayerColor {
	case "white", "black":
	default:
		return fmt.Errorf("CHESS_COLOR must be white or black: %q", c.PlayerColor)
	}
	if c.EvalPVLineLength > 64 {
		return errors.New("EVAL_PV_LINE_LENGTH must be <= 64")
	}
	if c.BoardSize < 160 {
		return fmt.Errorf("CHESS_BOARD_SIZE too small: %d", c.BoardSize)
	}
	return nil
}

// EvalTime returns the per-round analysis budget.
func (c *AppConfig) EvalTime() time.Duration {
	return time.Duration(c.EvalTimeMillis) * time.Millisecond
}

func (c *AppConfig) EvalInterval() time.Duration {
	return time.Duration(c.EvalIntervalMillis) * time.Millisecond
}

func positiveInt(key string) (int, bool) {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return 0, false
	}
	n, err := strconv.Atoi(v)
	if err != nil || n <= 0 {
		return 0, false
	}
	return n, true
}
