package chess

import (
	"context"
	"crypto/tls"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/park285/cheese-chess/internal/game"
	"github.com/redis/go-redis/v9"
)

var ErrSessionConflict = errors.New("chess session changed concurrently")

// SessionRecord is the live session as kept in the store.
type SessionRecord struct {
	SessionUUID string        `json:"session_uuid"`
	Version     int64         `json:"version"`
	State       game.Snapshot `json:"state"`
	StartedAt   time.Time     `json:"started_at"`
	UpdatedAt   time.Time     `json:"updated_at"`
	EngineMoves int           `json:"engine_moves,omitempty"`
	EngineTime  time.Duration `json:"engine_time,omitempty"`
}

// SessionStore keeps the live session between runs. Load returns (nil, nil) when
// nothing is stored.
type SessionStore interface {
	Load(ctx context.Context, key string) (*SessionRecord, error)
	Save(ctx context.Context, key string, rec *SessionRecord) error
	Delete(ctx context.Context, key string) error
}

type RedisSessionStore struct {
	rdb *redis.Client
	ttl time.Duration
}

func NewRedisSessionStore(redisURL string, ttl time.Duration) (*RedisSessionStore, error) {
	if strings.TrimSpace(redisURL) == "" {
		return nil, fmt.Errorf("REDIS_URL required for session store")
	}
	opts, err := parseRedisURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	rdb := redis.NewClient(opts)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	return NewRedisSessionStoreWithClient(rdb, ttl), nil
}

func NewRedisSessionStoreWithClient(rdb *redis.Client, ttl time.Duration) *RedisSessionStore {
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &RedisSessionStore{rdb: rdb, ttl: ttl}
}

func (s *RedisSessionStore) Close() error {
	if s == nil || s.rdb == nil {
		return nil
	}
	return s.rdb.Close()
}

func (s *RedisSessionStore) Load(ctx context.Context, key string) (*SessionRecord, error) {
	raw, err := s.rdb.Get(ctx, sessionKey(key)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load chess session: %w", err)
	}
	var rec SessionRecord
	if err := json.Unmarshal(raw, &rec); err != nil {
		return nil, fmt.Errorf("decode chess session: %w", err)
	}
	return &rec, nil
}

// Save writes rec when the stored version still equals rec.Version and bumps it.
// A concurrent writer makes it fail with ErrSessionConflict.
func (s *RedisSessionStore) Save(ctx context.Context, key string, rec *SessionRecord) error {
	if rec == nil {
		return fmt.Errorf("nil chess session")
	}
	k := sessionKey(key)
	next := *rec
	next.Version = rec.Version + 1
	if next.UpdatedAt.IsZero() {
		next.UpdatedAt = time.Now()
	}

	err := s.rdb.Watch(ctx, func(tx *redis.Tx) error {
		raw, err := tx.Get(ctx, k).Bytes()
		switch {
		case errors.Is(err, redis.Nil):
		case err != nil:
			return err
		default:
			var cur SessionRecord
			if jerr := json.Unmarshal(raw, &cur); jerr != nil {
				return jerr
			}
			if cur.Version != rec.Version {
				return redis.TxFailedErr
			}
		}

		payload, err := json.Marshal(&next)
		if err != nil {
			return err
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, k, payload, s.ttl)
			return nil
		})
		return err
	}, k)
	if errors.Is(err, redis.TxFailedErr) {
		return ErrSessionConflict
	}
	if err != nil {
		return fmt.Errorf("save chess session: %w", err)
	}
	rec.Version = next.Version
	rec.UpdatedAt = next.UpdatedAt
	return nil
}

func (s *RedisSessionStore) Delete(ctx context.Context, key string) error {
	if err := s.rdb.Del(ctx, sessionKey(key)).Err(); err != nil {
		return fmt.Errorf("delete chess session: %w", err)
	}
	return nil
}

func sessionKey(key string) string { return "chess:session:" + strings.TrimSpace(key) }

func parseRedisURL(raw string) (*redis.Options, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return nil, err
	}
	if u.Scheme != "redis" && u.Scheme != "rediss" {
		return nil, fmt.Errorf("unsupported scheme: %s", u.Scheme)
	}
	host := u.Hostname()
	port := u.Port()
	if port == "" {
		port = "6379"
	}
	db := 0
	if p := strings.TrimPrefix(u.Path, "/"); p != "" {
		n, err := strconv.Atoi(p)
		if err != nil {
			return nil, fmt.Errorf("invalid redis db %q", p)
		}
		db = n
	}
	pass, _ := u.User.Password()
	opts := &redis.Options{Addr: host + ":" + port, Username: u.User.Username(), Password: pass, DB: db}
	if u.Scheme == "rediss" {
		opts.TLSConfig = &tls.Config{ServerName: host, MinVersion: tls.VersionTLS12}
	}
	return opts, nil
}
